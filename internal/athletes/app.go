package athletes

import (
	"context"
	"fmt"
	"strings"

	"github.com/rs/zerolog/log"

	"github.com/Williamgithubit/bsm-backend/internal/models"
)

// AthleteRepository defines what the app layer needs from the repository.
type AthleteRepository interface {
	Create(ctx context.Context, req CreateAthleteRequest) (*models.Athlete, error)
	Get(ctx context.Context, id string) (*models.Athlete, error)
	Update(ctx context.Context, id string, req UpdateAthleteRequest) error
	SetMedia(ctx context.Context, id string, items []models.MediaItem) error
	Delete(ctx context.Context, id string) error
	List(ctx context.Context, f Filters) ([]models.Athlete, bool, error)
	ListPage(ctx context.Context, f Filters, req PageRequest) (Page, error)
	Count(ctx context.Context, f Filters) (int, error)
	BulkApply(ctx context.Context, action BulkAction) error
	Subscribe(ctx context.Context, f Filters, fn ListSnapshotFunc) (*Subscription, error)
}

// MediaCleaner is what the app needs to purge stored media files. Removal is
// best-effort: the app logs failures and proceeds.
type MediaCleaner interface {
	Remove(ctx context.Context, item models.MediaItem) error
}

// App handles athlete directory business logic.
type App struct {
	repo  AthleteRepository
	media MediaCleaner
}

// NewApp creates a new athletes App.
func NewApp(repo AthleteRepository, media MediaCleaner) *App {
	return &App{repo: repo, media: media}
}

// CreateAthlete validates, applies defaults and inserts a new athlete.
func (a *App) CreateAthlete(ctx context.Context, req CreateAthleteRequest) (*models.Athlete, error) {
	if strings.TrimSpace(req.Name) == "" {
		return nil, &ValidationError{Field: "name", Reason: "is required"}
	}
	applyCreateDefaults(&req)

	athlete, err := a.repo.Create(ctx, req)
	if err != nil {
		return nil, fmt.Errorf("failed to create athlete: %w", err)
	}
	return athlete, nil
}

func applyCreateDefaults(req *CreateAthleteRequest) {
	if req.Sport == "" {
		req.Sport = models.DefaultSport
	}
	if req.Level == "" {
		req.Level = models.LevelGrassroots
	}
	if req.ScoutingStatus == "" {
		req.ScoutingStatus = models.ScoutingActive
	}
	if req.Status == "" {
		req.Status = models.StatusActive
	}
}

// GetAthlete retrieves an athlete by id. Absence is not an error: the caller
// gets nil and must check for it.
func (a *App) GetAthlete(ctx context.Context, id string) (*models.Athlete, error) {
	return a.repo.Get(ctx, id)
}

// UpdateAthlete applies a partial update. Unspecified fields keep their
// prior values.
func (a *App) UpdateAthlete(ctx context.Context, id string, req UpdateAthleteRequest) error {
	if req.Name != nil && strings.TrimSpace(*req.Name) == "" {
		return &ValidationError{Field: "name", Reason: "must not be empty"}
	}
	return a.repo.Update(ctx, id, req)
}

// DeleteAthlete removes an athlete and purges its media. Media cleanup is
// best-effort: a stray file that cannot be removed must not leave the
// athlete undeletable, so cleanup failures are logged and the document
// delete proceeds.
func (a *App) DeleteAthlete(ctx context.Context, id string) error {
	athlete, err := a.repo.Get(ctx, id)
	if err != nil {
		return fmt.Errorf("failed to load athlete for delete: %w", err)
	}
	if athlete == nil {
		return nil
	}

	a.purgeMedia(ctx, athlete)

	if err := a.repo.Delete(ctx, id); err != nil {
		return fmt.Errorf("failed to delete athlete: %w", err)
	}
	return nil
}

func (a *App) purgeMedia(ctx context.Context, athlete *models.Athlete) {
	for _, item := range athlete.Media {
		if err := a.media.Remove(ctx, item); err != nil {
			log.Warn().Err(err).Str("athlete_id", athlete.ID).Str("media_id", item.ID).
				Msg("failed to remove media during cascade delete, continuing")
		}
	}
}

// GetAthletes returns one page of the directory.
func (a *App) GetAthletes(ctx context.Context, f Filters, req PageRequest) (Page, error) {
	return a.repo.ListPage(ctx, f, req)
}

// GetAthletesCount returns the total matching the filters, independently of
// any page.
func (a *App) GetAthletesCount(ctx context.Context, f Filters) (int, error) {
	return a.repo.Count(ctx, f)
}

// BulkUpdateAthletes applies one action to a set of athletes as a single
// atomic batch. Export is not a mutation; use ExportAthletesByIDs.
func (a *App) BulkUpdateAthletes(ctx context.Context, action BulkAction) error {
	if len(action.IDs) == 0 {
		return &ValidationError{Field: "ids", Reason: "must not be empty"}
	}
	if action.Type == BulkExport {
		return &ValidationError{Field: "type", Reason: "export is not a bulk mutation"}
	}

	if action.Type == BulkDelete {
		// Purge media before the batch; the document deletes stay atomic.
		for _, id := range action.IDs {
			athlete, err := a.repo.Get(ctx, id)
			if err != nil || athlete == nil {
				continue
			}
			a.purgeMedia(ctx, athlete)
		}
	}

	return a.repo.BulkApply(ctx, action)
}

// SubscribeToAthletes opens a live directory subscription for the filters.
func (a *App) SubscribeToAthletes(ctx context.Context, f Filters, fn ListSnapshotFunc) (*Subscription, error) {
	return a.repo.Subscribe(ctx, f, fn)
}

// AddMedia appends an uploaded media reference to the athlete.
func (a *App) AddMedia(ctx context.Context, athleteID string, item models.MediaItem) error {
	athlete, err := a.repo.Get(ctx, athleteID)
	if err != nil {
		return err
	}
	if athlete == nil {
		return &ValidationError{Field: "athlete_id", Reason: "does not exist"}
	}
	return a.repo.SetMedia(ctx, athleteID, append(athlete.Media, item))
}

// RemoveMedia deletes one media item: the reference is removed from the
// athlete and the stored file is cleaned up best-effort.
func (a *App) RemoveMedia(ctx context.Context, athleteID, mediaID string) error {
	athlete, err := a.repo.Get(ctx, athleteID)
	if err != nil {
		return err
	}
	if athlete == nil {
		return &ValidationError{Field: "athlete_id", Reason: "does not exist"}
	}

	var kept []models.MediaItem
	var removed *models.MediaItem
	for _, item := range athlete.Media {
		if item.ID == mediaID {
			it := item
			removed = &it
			continue
		}
		kept = append(kept, item)
	}
	if removed == nil {
		return nil
	}

	if err := a.repo.SetMedia(ctx, athleteID, kept); err != nil {
		return err
	}
	if err := a.media.Remove(ctx, *removed); err != nil {
		log.Warn().Err(err).Str("athlete_id", athleteID).Str("media_id", mediaID).
			Msg("failed to remove stored media file, reference already detached")
	}
	return nil
}
