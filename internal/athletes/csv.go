package athletes

import (
	"context"
	"encoding/csv"
	"fmt"
	"strconv"
	"strings"
	"time"

	"github.com/Williamgithubit/bsm-backend/internal/models"
)

// csvHeaders is the fixed export column set. Every field is double-quoted
// on output with embedded quotes doubled.
var csvHeaders = []string{
	"Name", "Age", "Position", "Sport", "Level", "County", "Location",
	"Scouting Status", "Email", "Phone", "Bio", "Training Program",
	"Goals", "Assists", "Matches", "Created At",
}

// ExportAthletesToCSV renders every athlete matching the filters (including
// the client-side search predicate) as CSV.
func (a *App) ExportAthletesToCSV(ctx context.Context, f Filters) (string, error) {
	list, _, err := a.repo.List(ctx, f)
	if err != nil {
		return "", fmt.Errorf("failed to load athletes for export: %w", err)
	}
	return renderCSV(applySearch(list, f)), nil
}

// ExportAthletesByIDs renders the selected athletes as CSV, skipping ids
// that no longer resolve.
func (a *App) ExportAthletesByIDs(ctx context.Context, ids []string) (string, error) {
	var list []models.Athlete
	for _, id := range ids {
		athlete, err := a.repo.Get(ctx, id)
		if err != nil {
			return "", err
		}
		if athlete != nil {
			list = append(list, *athlete)
		}
	}
	return renderCSV(list), nil
}

func renderCSV(list []models.Athlete) string {
	var b strings.Builder
	writeCSVRow(&b, csvHeaders)
	for _, a := range list {
		writeCSVRow(&b, athleteToCSVRow(a))
	}
	return b.String()
}

// writeCSVRow quotes every field unconditionally; encoding/csv only quotes
// when it must, and the export format requires quoting throughout.
func writeCSVRow(b *strings.Builder, fields []string) {
	for i, f := range fields {
		if i > 0 {
			b.WriteByte(',')
		}
		b.WriteByte('"')
		b.WriteString(strings.ReplaceAll(f, `"`, `""`))
		b.WriteByte('"')
	}
	b.WriteByte('\n')
}

func athleteToCSVRow(a models.Athlete) []string {
	age := ""
	if a.Age != nil {
		age = strconv.Itoa(*a.Age)
	}
	email, phone := "", ""
	if a.Contact != nil {
		email, phone = a.Contact.Email, a.Contact.Phone
	}
	return []string{
		a.Name,
		age,
		deref(a.Position),
		a.Sport,
		string(a.Level),
		deref(a.County),
		deref(a.Location),
		string(a.ScoutingStatus),
		email,
		phone,
		deref(a.Bio),
		deref(a.TrainingProgram),
		statCSV(a, "goals"),
		statCSV(a, "assists"),
		statCSV(a, "matches"),
		a.CreatedAt.UTC().Format(time.RFC3339),
	}
}

func statCSV(a models.Athlete, key string) string {
	if a.Stats == nil {
		return ""
	}
	v, ok := a.Stats[key]
	if !ok {
		return ""
	}
	return strconv.FormatFloat(v, 'f', -1, 64)
}

// ImportAthletesFromCSV creates one athlete per data row. Row numbers in
// error entries are 1-based and include the header, so the first data row
// is row 2. A row with an empty Name is rejected without creating anything.
func (a *App) ImportAthletesFromCSV(ctx context.Context, csvText, createdBy string) (ImportResult, error) {
	reader := csv.NewReader(strings.NewReader(csvText))
	reader.FieldsPerRecord = -1

	records, err := reader.ReadAll()
	if err != nil {
		return ImportResult{}, fmt.Errorf("failed to parse CSV: %w", err)
	}
	if len(records) == 0 {
		return ImportResult{}, fmt.Errorf("CSV is empty")
	}

	col := make(map[string]int, len(records[0]))
	for i, h := range records[0] {
		col[strings.TrimSpace(h)] = i
	}

	result := ImportResult{Errors: []string{}}
	for i, record := range records[1:] {
		rowNum := i + 2

		req, err := csvRowToCreateRequest(record, col, createdBy)
		if err != nil {
			result.Errors = append(result.Errors, fmt.Sprintf("row %d: %v", rowNum, err))
			continue
		}
		if _, err := a.CreateAthlete(ctx, req); err != nil {
			result.Errors = append(result.Errors, fmt.Sprintf("row %d: %v", rowNum, err))
			continue
		}
		result.Success++
	}
	return result, nil
}

func csvRowToCreateRequest(record []string, col map[string]int, createdBy string) (CreateAthleteRequest, error) {
	cell := func(name string) string {
		idx, ok := col[name]
		if !ok || idx >= len(record) {
			return ""
		}
		return strings.TrimSpace(record[idx])
	}

	name := cell("Name")
	if name == "" {
		return CreateAthleteRequest{}, fmt.Errorf("name is required")
	}

	req := CreateAthleteRequest{
		Name:           name,
		Sport:          cell("Sport"),
		Level:          models.Level(cell("Level")),
		ScoutingStatus: models.ScoutingStatus(cell("Scouting Status")),
	}
	if createdBy != "" {
		req.CreatedBy = &createdBy
	}

	if v := cell("Age"); v != "" {
		age, err := strconv.Atoi(v)
		if err != nil {
			return CreateAthleteRequest{}, fmt.Errorf("invalid age %q", v)
		}
		req.Age = &age
	}
	setOptional := func(name string, dst **string) {
		if v := cell(name); v != "" {
			*dst = &v
		}
	}
	setOptional("Position", &req.Position)
	setOptional("County", &req.County)
	setOptional("Location", &req.Location)
	setOptional("Bio", &req.Bio)
	setOptional("Training Program", &req.TrainingProgram)

	if email, phone := cell("Email"), cell("Phone"); email != "" || phone != "" {
		req.Contact = &models.Contact{Email: email, Phone: phone}
	}

	stats := map[string]float64{}
	for header, key := range map[string]string{"Goals": "goals", "Assists": "assists", "Matches": "matches"} {
		if v := cell(header); v != "" {
			n, err := strconv.ParseFloat(v, 64)
			if err != nil {
				return CreateAthleteRequest{}, fmt.Errorf("invalid %s %q", strings.ToLower(header), v)
			}
			stats[key] = n
		}
	}
	if len(stats) > 0 {
		req.Stats = stats
	}

	return req, nil
}
