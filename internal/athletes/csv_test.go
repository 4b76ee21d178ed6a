package athletes

import (
	"context"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/Williamgithubit/bsm-backend/internal/models"
)

func TestExportQuotesEveryField(t *testing.T) {
	ctx := context.Background()
	app, _, _ := newTestApp(t)

	_, err := app.CreateAthlete(ctx, CreateAthleteRequest{
		Name:     `John "Flash" Doe`,
		Sport:    "football",
		Age:      intPtr(19),
		Position: strPtr("Striker"),
		Contact:  &models.Contact{Email: "john@example.com", Phone: "0770000000"},
		Stats:    map[string]float64{"goals": 12, "assists": 4},
	})
	require.NoError(t, err)

	out, err := app.ExportAthletesToCSV(ctx, Filters{})
	require.NoError(t, err)

	lines := strings.Split(strings.TrimRight(out, "\n"), "\n")
	require.Len(t, lines, 2)

	assert.Equal(t,
		`"Name","Age","Position","Sport","Level","County","Location","Scouting Status","Email","Phone","Bio","Training Program","Goals","Assists","Matches","Created At"`,
		lines[0])

	// Every field is quoted, embedded quotes are doubled.
	assert.Contains(t, lines[1], `"John ""Flash"" Doe"`)
	assert.Contains(t, lines[1], `"19"`)
	assert.Contains(t, lines[1], `"john@example.com"`)
	assert.Contains(t, lines[1], `"12"`)
	// Unset stat renders empty, still quoted.
	assert.Contains(t, lines[1], `,"",`)
}

func TestExportAppliesSearch(t *testing.T) {
	ctx := context.Background()
	app, _, _ := newTestApp(t)

	for _, name := range []string{"John Doe", "Mary Kollie"} {
		_, err := app.CreateAthlete(ctx, CreateAthleteRequest{Name: name, Sport: "football"})
		require.NoError(t, err)
	}

	out, err := app.ExportAthletesToCSV(ctx, Filters{Search: "mary"})
	require.NoError(t, err)
	assert.Contains(t, out, "Mary Kollie")
	assert.NotContains(t, out, "John Doe")
}

func TestExportByIDsSkipsMissing(t *testing.T) {
	ctx := context.Background()
	app, _, _ := newTestApp(t)

	created, err := app.CreateAthlete(ctx, CreateAthleteRequest{Name: "John Doe"})
	require.NoError(t, err)

	out, err := app.ExportAthletesByIDs(ctx, []string{created.ID, "missing-id"})
	require.NoError(t, err)

	lines := strings.Split(strings.TrimRight(out, "\n"), "\n")
	assert.Len(t, lines, 2)
	assert.Contains(t, lines[1], "John Doe")
}

func TestImportCreatesAthletes(t *testing.T) {
	ctx := context.Background()
	app, _, _ := newTestApp(t)

	csvText := strings.Join([]string{
		`"Name","Age","Position","Sport","Level","County","Scouting Status","Email","Goals"`,
		`"John Doe","19","Striker","football","semi-pro","Montserrado","scouted","john@example.com","12"`,
		`"Mary Kollie","","Midfielder","","","Bong","","",""`,
	}, "\n")

	result, err := app.ImportAthletesFromCSV(ctx, csvText, "coach-1")
	require.NoError(t, err)
	assert.Equal(t, 2, result.Success)
	assert.Empty(t, result.Errors)

	list, _, err := app.repo.List(ctx, Filters{})
	require.NoError(t, err)
	require.Len(t, list, 2)

	byName := map[string]models.Athlete{}
	for _, a := range list {
		byName[a.Name] = a
	}

	john := byName["John Doe"]
	require.NotNil(t, john.Age)
	assert.Equal(t, 19, *john.Age)
	assert.Equal(t, models.LevelSemiPro, john.Level)
	assert.Equal(t, models.ScoutingScouted, john.ScoutingStatus)
	require.NotNil(t, john.Contact)
	assert.Equal(t, "john@example.com", john.Contact.Email)
	assert.Equal(t, float64(12), john.Stat("goals"))
	require.NotNil(t, john.CreatedBy)
	assert.Equal(t, "coach-1", *john.CreatedBy)

	// Empty cells fall back to create defaults.
	mary := byName["Mary Kollie"]
	assert.Equal(t, models.DefaultSport, mary.Sport)
	assert.Equal(t, models.LevelGrassroots, mary.Level)
	assert.Nil(t, mary.Age)
}

func TestImportReportsRowErrors(t *testing.T) {
	ctx := context.Background()
	app, _, _ := newTestApp(t)

	csvText := strings.Join([]string{
		`"Name","Age","Sport"`,
		`"","19","football"`,
		`"Mary Kollie","not-a-number","football"`,
		`"James Freeman","21","football"`,
	}, "\n")

	result, err := app.ImportAthletesFromCSV(ctx, csvText, "")
	require.NoError(t, err)
	assert.Equal(t, 1, result.Success)
	require.Len(t, result.Errors, 2)

	// Row numbers are 1-based and count the header row.
	assert.Contains(t, result.Errors[0], "row 2:")
	assert.Contains(t, result.Errors[1], "row 3:")
	assert.Contains(t, result.Errors[1], "invalid age")
}

func TestImportExportRoundTrip(t *testing.T) {
	ctx := context.Background()
	source, _, _ := newTestApp(t)

	_, err := source.CreateAthlete(ctx, CreateAthleteRequest{
		Name:           "John Doe",
		Sport:          "football",
		Level:          models.LevelSemiPro,
		ScoutingStatus: models.ScoutingScouted,
		Age:            intPtr(19),
		Position:       strPtr("Striker"),
		County:         strPtr("Montserrado"),
		Bio:            strPtr(`Fast, two-footed "finisher"`),
		Stats:          map[string]float64{"goals": 12, "assists": 4, "matches": 30},
	})
	require.NoError(t, err)

	exported, err := source.ExportAthletesToCSV(ctx, Filters{})
	require.NoError(t, err)

	target, _, _ := newTestApp(t)
	result, err := target.ImportAthletesFromCSV(ctx, exported, "")
	require.NoError(t, err)
	require.Equal(t, 1, result.Success)
	require.Empty(t, result.Errors)

	list, _, err := target.repo.List(ctx, Filters{})
	require.NoError(t, err)
	require.Len(t, list, 1)

	got := list[0]
	assert.Equal(t, "John Doe", got.Name)
	assert.Equal(t, models.LevelSemiPro, got.Level)
	assert.Equal(t, models.ScoutingScouted, got.ScoutingStatus)
	require.NotNil(t, got.Age)
	assert.Equal(t, 19, *got.Age)
	require.NotNil(t, got.Bio)
	assert.Equal(t, `Fast, two-footed "finisher"`, *got.Bio)
	assert.Equal(t, float64(12), got.Stat("goals"))
	assert.Equal(t, float64(4), got.Stat("assists"))
	assert.Equal(t, float64(30), got.Stat("matches"))
}
