package athletes

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/Williamgithubit/bsm-backend/internal/docstore"
	"github.com/Williamgithubit/bsm-backend/internal/models"
)

func names(list []models.Athlete) []string {
	out := make([]string, len(list))
	for i, a := range list {
		out[i] = a.Name
	}
	return out
}

func TestSubscribeDeliversReconciledLists(t *testing.T) {
	ctx := context.Background()
	repo, clock := newTestRepo(docstore.NewMemoryStore())
	seedAthletes(t, repo, clock, directorySeeds)

	var got [][]models.Athlete
	sub, err := repo.Subscribe(ctx, Filters{Sport: "football", ScoutingStatus: "scouted"}, func(list []models.Athlete) {
		got = append(got, list)
	})
	require.NoError(t, err)
	defer sub.Unsubscribe()

	// Initial snapshot is delivered synchronously.
	require.Len(t, got, 1)
	assert.Equal(t, []string{"James Freeman", "John Doe"}, names(got[0]))
	assert.Equal(t, names(got[0]), names(sub.Current()))

	// A matching write produces a fresh full snapshot.
	seedAthletes(t, repo, clock, []seedAthlete{
		{name: "New Prospect", sport: "football", scoutingStatus: models.ScoutingScouted},
	})
	require.GreaterOrEqual(t, len(got), 2)
	last := got[len(got)-1]
	assert.Equal(t, []string{"New Prospect", "James Freeman", "John Doe"}, names(last))
}

func TestSubscribeAppliesSearchClientSide(t *testing.T) {
	ctx := context.Background()
	repo, clock := newTestRepo(docstore.NewMemoryStore())
	seedAthletes(t, repo, clock, directorySeeds)

	var last []models.Athlete
	sub, err := repo.Subscribe(ctx, Filters{Sport: "football", Search: "striker"}, func(list []models.Athlete) {
		last = list
	})
	require.NoError(t, err)
	defer sub.Unsubscribe()

	// Only John Doe plays Striker; search re-applies on every snapshot.
	require.Len(t, last, 1)
	assert.Equal(t, "John Doe", last[0].Name)

	seedAthletes(t, repo, clock, []seedAthlete{
		{name: "Backup Striker", sport: "football", position: "Striker"},
	})
	assert.Equal(t, []string{"Backup Striker", "John Doe"}, names(last))
}

func TestSubscribeFallsBackWithoutIndex(t *testing.T) {
	ctx := context.Background()
	repo, clock := newTestRepo(docstore.NewMemoryStore(docstore.WithStrictIndexes(docstore.IndexSet{})))
	seedAthletes(t, repo, clock, directorySeeds)

	var last []models.Athlete
	sub, err := repo.Subscribe(ctx, Filters{Sport: "football", ScoutingStatus: "scouted"}, func(list []models.Athlete) {
		last = list
	})
	require.NoError(t, err)
	defer sub.Unsubscribe()

	// The degraded subscription still applies every predicate.
	assert.Equal(t, []string{"James Freeman", "John Doe"}, names(last))

	seedAthletes(t, repo, clock, []seedAthlete{
		{name: "Unrelated Player", sport: "basketball", scoutingStatus: models.ScoutingActive},
	})
	assert.Equal(t, []string{"James Freeman", "John Doe"}, names(last))
}

func TestUnsubscribeStopsCallbacksAndIsIdempotent(t *testing.T) {
	ctx := context.Background()
	repo, clock := newTestRepo(docstore.NewMemoryStore())
	seedAthletes(t, repo, clock, directorySeeds[:1])

	calls := 0
	sub, err := repo.Subscribe(ctx, Filters{}, func([]models.Athlete) {
		calls++
	})
	require.NoError(t, err)
	require.Equal(t, 1, calls)

	sub.Unsubscribe()
	sub.Unsubscribe()

	seedAthletes(t, repo, clock, []seedAthlete{{name: "After Cancel", sport: "football"}})
	assert.Equal(t, 1, calls)
}
