package gateway

import (
	"encoding/json"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/Williamgithubit/bsm-backend/internal/athletes"
	"github.com/Williamgithubit/bsm-backend/internal/models"
)

func TestFilterKeyDistinguishesFilterSets(t *testing.T) {
	a := filterKey(athletes.Filters{Sport: "football", County: "Bong"})
	b := filterKey(athletes.Filters{Sport: "football", County: "Montserrado"})
	c := filterKey(athletes.Filters{Sport: "football", County: "Bong"})

	assert.NotEqual(t, a, b)
	assert.Equal(t, a, c)

	// Search is part of the pool identity.
	assert.NotEqual(t,
		filterKey(athletes.Filters{Search: "striker"}),
		filterKey(athletes.Filters{}))
}

func TestMarshalSnapshot(t *testing.T) {
	data, err := marshalSnapshot([]models.Athlete{{ID: "a1", Name: "John Doe"}})
	require.NoError(t, err)

	var payload struct {
		Type     string           `json:"type"`
		Athletes []models.Athlete `json:"athletes"`
	}
	require.NoError(t, json.Unmarshal(data, &payload))
	assert.Equal(t, "athletes:snapshot", payload.Type)
	require.Len(t, payload.Athletes, 1)
	assert.Equal(t, "John Doe", payload.Athletes[0].Name)

	// A nil list still serializes as an empty array, never null.
	data, err = marshalSnapshot(nil)
	require.NoError(t, err)
	assert.Contains(t, string(data), `"athletes":[]`)
}

func TestFiltersFromQuery(t *testing.T) {
	r := httptest.NewRequest("GET", "/ws/athletes?sport=football&county=Bong&search=%20striker%20", nil)
	f := filtersFromQuery(r)

	assert.Equal(t, "football", f.Sport)
	assert.Equal(t, "Bong", f.County)
	assert.Equal(t, "striker", f.Search)
	assert.Empty(t, f.Level)
}
