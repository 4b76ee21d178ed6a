package models

import "time"

// Level represents the competitive level of an athlete
type Level string

const (
	LevelGrassroots   Level = "grassroots"
	LevelSemiPro      Level = "semi-pro"
	LevelProfessional Level = "professional"
)

// ScoutingStatus tracks an athlete's position in the scouting pipeline
type ScoutingStatus string

const (
	ScoutingActive   ScoutingStatus = "active"
	ScoutingScouted  ScoutingStatus = "scouted"
	ScoutingSigned   ScoutingStatus = "signed"
	ScoutingInactive ScoutingStatus = "inactive"
)

// Status is the lifecycle/visibility flag, distinct from ScoutingStatus
type Status string

const (
	StatusActive    Status = "active"
	StatusInactive  Status = "inactive"
	StatusSuspended Status = "suspended"
)

// DefaultSport is assigned when a sport is not specified on create
const DefaultSport = "football"

// Contact holds an athlete's contact details
type Contact struct {
	Email string `json:"email,omitempty"`
	Phone string `json:"phone,omitempty"`
}

// SocialLinks holds optional social media handles
type SocialLinks struct {
	Facebook  string `json:"facebook,omitempty"`
	Instagram string `json:"instagram,omitempty"`
	Twitter   string `json:"twitter,omitempty"`
}

// Physical holds optional physical attributes
type Physical struct {
	HeightCm *int `json:"height_cm,omitempty"`
	WeightKg *int `json:"weight_kg,omitempty"`
}

// Athlete represents an athlete in the directory
type Athlete struct {
	ID              string         `json:"id"`
	Name            string         `json:"name"`
	Sport           string         `json:"sport"`
	Level           Level          `json:"level"`
	ScoutingStatus  ScoutingStatus `json:"scouting_status"`
	Status          Status         `json:"status"`
	Age             *int           `json:"age,omitempty"`
	DateOfBirth     *time.Time     `json:"date_of_birth,omitempty"`
	Position        *string        `json:"position,omitempty"`
	County          *string        `json:"county,omitempty"`
	Location        *string        `json:"location,omitempty"`
	Bio             *string        `json:"bio,omitempty"`
	TrainingProgram *string        `json:"training_program,omitempty"`
	Contact         *Contact       `json:"contact,omitempty"`
	Social          *SocialLinks   `json:"social,omitempty"`
	Physical        *Physical      `json:"physical,omitempty"`

	// Stats is an open-ended numeric map (goals, assists, matches, ...).
	// Keys are not restricted to a fixed schema.
	Stats map[string]float64 `json:"stats,omitempty"`

	Media []MediaItem `json:"media,omitempty"`

	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`
	CreatedBy *string   `json:"created_by,omitempty"`
}

// Stat returns the named stat, or zero when it was never recorded.
func (a *Athlete) Stat(key string) float64 {
	if a.Stats == nil {
		return 0
	}
	return a.Stats[key]
}
