package media

import (
	"bytes"
	"context"
	"fmt"
	"path"
	"sync"

	"github.com/google/uuid"
	"github.com/jonboulle/clockwork"
	"github.com/rs/zerolog/log"

	"github.com/Williamgithubit/bsm-backend/internal/models"
)

// UploadRequest describes one file to store for an athlete.
type UploadRequest struct {
	AthleteID string
	FileName  string
	MimeType  string
	Type      models.MediaType
	Caption   string
	Data      []byte
}

// App handles media upload and cleanup orchestration.
type App struct {
	storage Storage
	clock   clockwork.Clock
}

// NewApp creates a new media App.
func NewApp(storage Storage, clock clockwork.Clock) *App {
	return &App{storage: storage, clock: clock}
}

// Upload stores one file and returns the media reference to record on the
// athlete.
func (a *App) Upload(ctx context.Context, req UploadRequest) (models.MediaItem, error) {
	if req.AthleteID == "" {
		return models.MediaItem{}, fmt.Errorf("athlete id is required")
	}
	if len(req.Data) == 0 {
		return models.MediaItem{}, fmt.Errorf("file is empty")
	}

	id := uuid.NewString()
	key := fmt.Sprintf("athletes/%s/%s%s", req.AthleteID, id, path.Ext(req.FileName))

	if err := a.storage.Save(ctx, key, bytes.NewReader(req.Data), req.MimeType); err != nil {
		return models.MediaItem{}, err
	}

	return models.MediaItem{
		ID:         id,
		URL:        a.storage.URL(key),
		Type:       req.Type,
		Caption:    req.Caption,
		UploadedAt: a.clock.Now().UTC(),
		SizeBytes:  int64(len(req.Data)),
		MimeType:   req.MimeType,
	}, nil
}

// UploadResult pairs one fan-out upload with its outcome.
type UploadResult struct {
	Item models.MediaItem
	Err  error
}

// UploadAll issues every upload concurrently and waits for all to settle.
// No relative ordering between uploads is guaranteed; results arrive in
// request order with per-item errors.
func (a *App) UploadAll(ctx context.Context, reqs []UploadRequest) []UploadResult {
	results := make([]UploadResult, len(reqs))

	var wg sync.WaitGroup
	for i, req := range reqs {
		wg.Add(1)
		go func(i int, req UploadRequest) {
			defer wg.Done()
			item, err := a.Upload(ctx, req)
			results[i] = UploadResult{Item: item, Err: err}
		}(i, req)
	}
	wg.Wait()

	return results
}

// Remove deletes the stored file behind a media reference. Absence counts
// as success; unexpected failures come back as OperationError and callers
// treat them as non-fatal cleanup noise.
func (a *App) Remove(ctx context.Context, item models.MediaItem) error {
	key := a.storage.KeyFromURL(item.URL)
	if key == "" {
		log.Warn().Str("url", item.URL).Msg("media URL does not map to a storage key, skipping cleanup")
		return nil
	}
	return a.storage.Delete(ctx, key)
}
