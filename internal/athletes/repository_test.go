package athletes

import (
	"context"
	"testing"
	"time"

	"github.com/jonboulle/clockwork"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/Williamgithubit/bsm-backend/internal/docstore"
	"github.com/Williamgithubit/bsm-backend/internal/models"
)

var testEpoch = time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC)

func newTestRepo(store docstore.Store) (*Repository, *clockwork.FakeClock) {
	clock := clockwork.NewFakeClockAt(testEpoch)
	return NewRepository(store, clock), clock
}

func strPtr(s string) *string { return &s }
func intPtr(n int) *int       { return &n }

type seedAthlete struct {
	name           string
	sport          string
	level          models.Level
	scoutingStatus models.ScoutingStatus
	county         string
	position       string
}

func seedAthletes(t *testing.T, repo *Repository, clock *clockwork.FakeClock, seeds []seedAthlete) map[string]models.Athlete {
	t.Helper()
	out := make(map[string]models.Athlete, len(seeds))
	for _, s := range seeds {
		// Distinct timestamps keep the updated_at ordering deterministic.
		clock.Advance(time.Minute)
		req := CreateAthleteRequest{
			Name:           s.name,
			Sport:          s.sport,
			Level:          s.level,
			ScoutingStatus: s.scoutingStatus,
			Status:         models.StatusActive,
		}
		if s.county != "" {
			req.County = strPtr(s.county)
		}
		if s.position != "" {
			req.Position = strPtr(s.position)
		}
		a, err := repo.Create(context.Background(), req)
		require.NoError(t, err)
		out[s.name] = *a
	}
	return out
}

var directorySeeds = []seedAthlete{
	{name: "John Doe", sport: "football", level: models.LevelSemiPro, scoutingStatus: models.ScoutingScouted, county: "Montserrado", position: "Striker"},
	{name: "Mary Kollie", sport: "football", level: models.LevelGrassroots, scoutingStatus: models.ScoutingActive, county: "Bong", position: "Midfielder"},
	{name: "James Freeman", sport: "football", level: models.LevelSemiPro, scoutingStatus: models.ScoutingScouted, county: "Bong", position: "Goalkeeper"},
	{name: "Sarah Johnson", sport: "basketball", level: models.LevelProfessional, scoutingStatus: models.ScoutingSigned, county: "Montserrado", position: "Guard"},
	{name: "Peter Gaye", sport: "football", level: models.LevelGrassroots, scoutingStatus: models.ScoutingActive, county: "Nimba"},
}

func TestCreateAndGet(t *testing.T) {
	ctx := context.Background()
	repo, _ := newTestRepo(docstore.NewMemoryStore())

	created, err := repo.Create(ctx, CreateAthleteRequest{
		Name:           "John Doe",
		Sport:          "football",
		Level:          models.LevelSemiPro,
		ScoutingStatus: models.ScoutingScouted,
		Status:         models.StatusActive,
		Age:            intPtr(19),
		County:         strPtr("Montserrado"),
		Contact:        &models.Contact{Email: "john@example.com"},
		Stats:          map[string]float64{"goals": 12},
	})
	require.NoError(t, err)
	require.NotEmpty(t, created.ID)
	assert.Equal(t, testEpoch, created.CreatedAt)
	assert.Equal(t, testEpoch, created.UpdatedAt)

	got, err := repo.Get(ctx, created.ID)
	require.NoError(t, err)
	require.NotNil(t, got)
	assert.Equal(t, "John Doe", got.Name)
	assert.Equal(t, models.LevelSemiPro, got.Level)
	require.NotNil(t, got.Age)
	assert.Equal(t, 19, *got.Age)
	require.NotNil(t, got.Contact)
	assert.Equal(t, "john@example.com", got.Contact.Email)
	assert.Equal(t, float64(12), got.Stat("goals"))
	assert.Nil(t, got.Bio)
}

func TestGetMissingReturnsNil(t *testing.T) {
	repo, _ := newTestRepo(docstore.NewMemoryStore())
	got, err := repo.Get(context.Background(), "missing")
	require.NoError(t, err)
	assert.Nil(t, got)
}

func TestUpdateIsPartial(t *testing.T) {
	ctx := context.Background()
	repo, clock := newTestRepo(docstore.NewMemoryStore())

	created, err := repo.Create(ctx, CreateAthleteRequest{
		Name:  "John Doe",
		Sport: "football",
		Bio:   strPtr("original bio"),
	})
	require.NoError(t, err)

	clock.Advance(time.Hour)
	require.NoError(t, repo.Update(ctx, created.ID, UpdateAthleteRequest{
		Position: strPtr("Striker"),
	}))

	got, err := repo.Get(ctx, created.ID)
	require.NoError(t, err)
	assert.Equal(t, "John Doe", got.Name)
	require.NotNil(t, got.Bio)
	assert.Equal(t, "original bio", *got.Bio)
	require.NotNil(t, got.Position)
	assert.Equal(t, "Striker", *got.Position)
	assert.Equal(t, created.CreatedAt, got.CreatedAt)
	assert.True(t, got.UpdatedAt.After(created.UpdatedAt))
}

func TestListComposesFilters(t *testing.T) {
	ctx := context.Background()
	repo, clock := newTestRepo(docstore.NewMemoryStore())
	seedAthletes(t, repo, clock, directorySeeds)

	list, usedFallback, err := repo.List(ctx, Filters{
		Sport:          "football",
		ScoutingStatus: "scouted",
	})
	require.NoError(t, err)
	assert.False(t, usedFallback)
	require.Len(t, list, 2)

	// Sorted by updated_at descending: James was created after John.
	assert.Equal(t, "James Freeman", list[0].Name)
	assert.Equal(t, "John Doe", list[1].Name)
}

func TestListTreatsAllAsUnconstrained(t *testing.T) {
	ctx := context.Background()
	repo, clock := newTestRepo(docstore.NewMemoryStore())
	seedAthletes(t, repo, clock, directorySeeds)

	list, _, err := repo.List(ctx, Filters{Sport: FilterAll, Level: "", County: FilterAll})
	require.NoError(t, err)
	assert.Len(t, list, len(directorySeeds))
}

func TestScoutedFootballersByCounty(t *testing.T) {
	ctx := context.Background()
	repo, clock := newTestRepo(docstore.NewMemoryStore())
	seedAthletes(t, repo, clock, directorySeeds)

	montserrado, _, err := repo.List(ctx, Filters{
		Sport:          "football",
		ScoutingStatus: "scouted",
		County:         "Montserrado",
	})
	require.NoError(t, err)
	require.Len(t, montserrado, 1)
	assert.Equal(t, "John Doe", montserrado[0].Name)

	bong, _, err := repo.List(ctx, Filters{
		Sport:          "football",
		ScoutingStatus: "scouted",
		County:         "Bong",
	})
	require.NoError(t, err)
	require.Len(t, bong, 1)
	assert.Equal(t, "James Freeman", bong[0].Name)
}

// The degraded path must return exactly what the indexed path would have.
func TestListFallbackEquivalence(t *testing.T) {
	ctx := context.Background()

	indexed, indexedClock := newTestRepo(docstore.NewMemoryStore())
	strict, strictClock := newTestRepo(docstore.NewMemoryStore(docstore.WithStrictIndexes(docstore.IndexSet{})))
	seedAthletes(t, indexed, indexedClock, directorySeeds)
	seedAthletes(t, strict, strictClock, directorySeeds)

	f := Filters{Sport: "football", ScoutingStatus: "scouted"}

	fromIndexed, usedFallback, err := indexed.List(ctx, f)
	require.NoError(t, err)
	assert.False(t, usedFallback)

	fromStrict, usedFallback, err := strict.List(ctx, f)
	require.NoError(t, err)
	assert.True(t, usedFallback)

	require.Len(t, fromStrict, len(fromIndexed))
	for i := range fromIndexed {
		assert.Equal(t, fromIndexed[i].Name, fromStrict[i].Name)
	}
}

func TestListPageExhaustsViaCursor(t *testing.T) {
	ctx := context.Background()
	repo, clock := newTestRepo(docstore.NewMemoryStore())

	seeds := make([]seedAthlete, 7)
	for i := range seeds {
		seeds[i] = seedAthlete{name: "Athlete " + string(rune('A'+i)), sport: "football"}
	}
	seedAthletes(t, repo, clock, seeds)

	var seen []string
	cursor := ""
	pages := 0
	for {
		page, err := repo.ListPage(ctx, Filters{}, PageRequest{PageSize: 3, Cursor: cursor})
		require.NoError(t, err)
		assert.False(t, page.UsedFallback)
		for _, a := range page.Athletes {
			seen = append(seen, a.ID)
		}
		pages++
		if !page.HasMore {
			break
		}
		cursor = page.Cursor
	}

	assert.Equal(t, 3, pages)
	require.Len(t, seen, 7)
	unique := make(map[string]bool, len(seen))
	for _, id := range seen {
		unique[id] = true
	}
	assert.Len(t, unique, 7)
}

func TestListPageFallbackIsPositional(t *testing.T) {
	ctx := context.Background()
	repo, clock := newTestRepo(docstore.NewMemoryStore(docstore.WithStrictIndexes(docstore.IndexSet{})))
	seedAthletes(t, repo, clock, directorySeeds)

	f := Filters{Sport: "football", ScoutingStatus: "active"}

	first, err := repo.ListPage(ctx, f, PageRequest{Page: 1, PageSize: 1})
	require.NoError(t, err)
	assert.True(t, first.UsedFallback)
	assert.Empty(t, first.Cursor)
	require.Len(t, first.Athletes, 1)
	assert.True(t, first.HasMore)

	second, err := repo.ListPage(ctx, f, PageRequest{Page: 2, PageSize: 1})
	require.NoError(t, err)
	require.Len(t, second.Athletes, 1)
	assert.False(t, second.HasMore)
	assert.NotEqual(t, first.Athletes[0].ID, second.Athletes[0].ID)

	// Past the end: empty page, no phantom next page.
	third, err := repo.ListPage(ctx, f, PageRequest{Page: 3, PageSize: 1})
	require.NoError(t, err)
	assert.Empty(t, third.Athletes)
	assert.False(t, third.HasMore)
}

func TestCountAgreesWithList(t *testing.T) {
	ctx := context.Background()

	for name, store := range map[string]docstore.Store{
		"indexed": docstore.NewMemoryStore(),
		"strict":  docstore.NewMemoryStore(docstore.WithStrictIndexes(docstore.IndexSet{})),
	} {
		t.Run(name, func(t *testing.T) {
			repo, clock := newTestRepo(store)
			seedAthletes(t, repo, clock, directorySeeds)

			f := Filters{Sport: "football", ScoutingStatus: "scouted"}
			list, _, err := repo.List(ctx, f)
			require.NoError(t, err)
			n, err := repo.Count(ctx, f)
			require.NoError(t, err)
			assert.Equal(t, len(list), n)
		})
	}
}

func TestBulkApplyIsAtomic(t *testing.T) {
	ctx := context.Background()
	repo, clock := newTestRepo(docstore.NewMemoryStore())
	byName := seedAthletes(t, repo, clock, directorySeeds[:2])

	err := repo.BulkApply(ctx, BulkAction{
		Type:   BulkUpdateStatus,
		IDs:    []string{byName["John Doe"].ID, "missing-id", byName["Mary Kollie"].ID},
		Status: models.StatusSuspended,
	})
	var bulkErr *BulkOperationError
	require.ErrorAs(t, err, &bulkErr)
	assert.Equal(t, 3, bulkErr.IDs)

	// The rejected batch left every athlete untouched.
	for _, name := range []string{"John Doe", "Mary Kollie"} {
		got, err := repo.Get(ctx, byName[name].ID)
		require.NoError(t, err)
		assert.Equal(t, models.StatusActive, got.Status)
	}
}

func TestBulkApplyMutations(t *testing.T) {
	ctx := context.Background()
	repo, clock := newTestRepo(docstore.NewMemoryStore())
	byName := seedAthletes(t, repo, clock, directorySeeds[:3])

	ids := []string{byName["John Doe"].ID, byName["Mary Kollie"].ID}

	clock.Advance(time.Hour)
	require.NoError(t, repo.BulkApply(ctx, BulkAction{Type: BulkUpdateLevel, IDs: ids, Level: models.LevelProfessional}))
	require.NoError(t, repo.BulkApply(ctx, BulkAction{Type: BulkAssignProgram, IDs: ids, Program: "Elite Camp"}))

	for _, id := range ids {
		got, err := repo.Get(ctx, id)
		require.NoError(t, err)
		assert.Equal(t, models.LevelProfessional, got.Level)
		require.NotNil(t, got.TrainingProgram)
		assert.Equal(t, "Elite Camp", *got.TrainingProgram)
		assert.True(t, got.UpdatedAt.After(byName["John Doe"].UpdatedAt))
	}

	require.NoError(t, repo.BulkApply(ctx, BulkAction{Type: BulkDelete, IDs: ids}))
	for _, id := range ids {
		got, err := repo.Get(ctx, id)
		require.NoError(t, err)
		assert.Nil(t, got)
	}

	// The third athlete survived both batches.
	got, err := repo.Get(ctx, byName["James Freeman"].ID)
	require.NoError(t, err)
	require.NotNil(t, got)
}
