package athletes

import (
	"strings"

	"github.com/Williamgithubit/bsm-backend/internal/models"
)

// Collection is the document store collection holding athletes.
const Collection = "athletes"

// FilterAll is the sentinel meaning "no constraint on this field".
const FilterAll = "all"

// Filters captures directory query intent. Equality fields holding
// FilterAll or the empty string are unconstrained. Search is never pushed to
// the store; it is applied client-side. AgeRange is advisory and client-only.
type Filters struct {
	Search         string `json:"search"`
	Sport          string `json:"sport"`
	Level          string `json:"level"`
	County         string `json:"county"`
	ScoutingStatus string `json:"scouting_status"`
	Position       string `json:"position"`
	AgeMin         *int   `json:"age_min,omitempty"`
	AgeMax         *int   `json:"age_max,omitempty"`
}

func constrained(v string) bool {
	return v != "" && v != FilterAll
}

// equalityFields returns field name → required value for every constrained
// equality selector, in the same semantics the store query uses.
func (f Filters) equalityFields() map[string]string {
	out := make(map[string]string)
	if constrained(f.Sport) {
		out["sport"] = f.Sport
	}
	if constrained(f.Level) {
		out["level"] = f.Level
	}
	if constrained(f.County) {
		out["county"] = f.County
	}
	if constrained(f.ScoutingStatus) {
		out["scouting_status"] = f.ScoutingStatus
	}
	if constrained(f.Position) {
		out["position"] = f.Position
	}
	return out
}

// Matches re-applies the equality predicates in memory, for the degraded
// path where the store never executed them.
func (f Filters) Matches(a models.Athlete) bool {
	if constrained(f.Sport) && a.Sport != f.Sport {
		return false
	}
	if constrained(f.Level) && string(a.Level) != f.Level {
		return false
	}
	if constrained(f.County) && (a.County == nil || *a.County != f.County) {
		return false
	}
	if constrained(f.ScoutingStatus) && string(a.ScoutingStatus) != f.ScoutingStatus {
		return false
	}
	if constrained(f.Position) && (a.Position == nil || *a.Position != f.Position) {
		return false
	}
	return true
}

// MatchesSearch applies the free-text predicate case-insensitively against
// name, position, location and bio. An empty term matches everything.
func (f Filters) MatchesSearch(a models.Athlete) bool {
	term := strings.TrimSpace(strings.ToLower(f.Search))
	if term == "" {
		return true
	}
	for _, field := range []string{
		a.Name,
		deref(a.Position),
		deref(a.Location),
		deref(a.Bio),
	} {
		if strings.Contains(strings.ToLower(field), term) {
			return true
		}
	}
	return false
}

func deref(s *string) string {
	if s == nil {
		return ""
	}
	return *s
}

// PageRequest addresses one page of the directory. Cursor is the opaque
// store cursor from the previous page; Page is the 1-based display page
// number, which doubles as the slice offset in fallback mode. The two are
// never interchangeable.
type PageRequest struct {
	Page     int    `json:"page"`
	PageSize int    `json:"page_size"`
	Cursor   string `json:"cursor,omitempty"`
}

// Page is one page of results. Cursor addresses the next page when the
// store served the query; in fallback mode paging is positional and Cursor
// stays empty.
type Page struct {
	Athletes     []models.Athlete `json:"athletes"`
	Cursor       string           `json:"cursor,omitempty"`
	HasMore      bool             `json:"has_more"`
	UsedFallback bool             `json:"-"`
}

// BulkActionType enumerates bulk directory actions.
type BulkActionType string

const (
	BulkUpdateStatus  BulkActionType = "updateStatus"
	BulkUpdateLevel   BulkActionType = "updateLevel"
	BulkAssignProgram BulkActionType = "assignProgram"
	BulkDelete        BulkActionType = "delete"
	BulkExport        BulkActionType = "export"
)

// BulkAction applies one mutation to a set of athlete ids atomically.
type BulkAction struct {
	Type    BulkActionType        `json:"type"`
	IDs     []string              `json:"ids"`
	Status  models.Status         `json:"status,omitempty"`
	Level   models.Level          `json:"level,omitempty"`
	Program string                `json:"program,omitempty"`
}

// CreateAthleteRequest contains the data needed to create an athlete.
type CreateAthleteRequest struct {
	Name            string              `json:"name"`
	Sport           string              `json:"sport"`
	Level           models.Level        `json:"level"`
	ScoutingStatus  models.ScoutingStatus `json:"scouting_status"`
	Status          models.Status       `json:"status"`
	Age             *int                `json:"age,omitempty"`
	Position        *string             `json:"position,omitempty"`
	County          *string             `json:"county,omitempty"`
	Location        *string             `json:"location,omitempty"`
	Bio             *string             `json:"bio,omitempty"`
	TrainingProgram *string             `json:"training_program,omitempty"`
	Contact         *models.Contact     `json:"contact,omitempty"`
	Social          *models.SocialLinks `json:"social,omitempty"`
	Physical        *models.Physical    `json:"physical,omitempty"`
	Stats           map[string]float64  `json:"stats,omitempty"`
	CreatedBy       *string             `json:"created_by,omitempty"`
}

// UpdateAthleteRequest is a partial update; nil fields are left untouched.
type UpdateAthleteRequest struct {
	Name            *string               `json:"name,omitempty"`
	Sport           *string               `json:"sport,omitempty"`
	Level           *models.Level         `json:"level,omitempty"`
	ScoutingStatus  *models.ScoutingStatus `json:"scouting_status,omitempty"`
	Status          *models.Status        `json:"status,omitempty"`
	Age             *int                  `json:"age,omitempty"`
	Position        *string               `json:"position,omitempty"`
	County          *string               `json:"county,omitempty"`
	Location        *string               `json:"location,omitempty"`
	Bio             *string               `json:"bio,omitempty"`
	TrainingProgram *string               `json:"training_program,omitempty"`
	Contact         *models.Contact       `json:"contact,omitempty"`
	Social          *models.SocialLinks   `json:"social,omitempty"`
	Physical        *models.Physical      `json:"physical,omitempty"`
	Stats           map[string]float64    `json:"stats,omitempty"`
}

// ImportResult summarizes a CSV import: rows created and one error entry per
// rejected row.
type ImportResult struct {
	Success int      `json:"success"`
	Errors  []string `json:"errors"`
}
