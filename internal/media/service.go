package media

import (
	"context"
	"encoding/json"
	"io"
	"net/http"
	"strings"

	"github.com/gorilla/mux"
	"github.com/rs/zerolog/log"

	"github.com/Williamgithubit/bsm-backend/internal/models"
)

const maxUploadBytes = 64 << 20

// DirectoryApp is what the media routes need from the athletes application.
type DirectoryApp interface {
	AddMedia(ctx context.Context, athleteID string, item models.MediaItem) error
	RemoveMedia(ctx context.Context, athleteID, mediaID string) error
}

// Service exposes the media upload/delete routes. These are thin
// pass-throughs: store the file, then record the reference on the athlete.
type Service struct {
	app       *App
	directory DirectoryApp
}

// NewService creates a new media HTTP service.
func NewService(app *App, directory DirectoryApp) *Service {
	return &Service{app: app, directory: directory}
}

// RegisterRoutes mounts the media endpoints on the router.
func (s *Service) RegisterRoutes(r *mux.Router) {
	r.HandleFunc("/athletes/{id}/media", s.handleUpload).Methods(http.MethodPost)
	r.HandleFunc("/athletes/{id}/media/{mediaID}", s.handleDelete).Methods(http.MethodDelete)
}

func (s *Service) handleUpload(w http.ResponseWriter, r *http.Request) {
	athleteID := mux.Vars(r)["id"]

	if err := r.ParseMultipartForm(maxUploadBytes); err != nil {
		s.writeJSON(w, http.StatusBadRequest, map[string]string{"error": "invalid multipart body"})
		return
	}

	files := r.MultipartForm.File["files"]
	if len(files) == 0 {
		s.writeJSON(w, http.StatusBadRequest, map[string]string{"error": "no files provided"})
		return
	}

	var reqs []UploadRequest
	for _, fh := range files {
		f, err := fh.Open()
		if err != nil {
			s.writeJSON(w, http.StatusBadRequest, map[string]string{"error": "unreadable file"})
			return
		}
		data, err := io.ReadAll(f)
		f.Close()
		if err != nil {
			s.writeJSON(w, http.StatusBadRequest, map[string]string{"error": "unreadable file"})
			return
		}

		mimeType := fh.Header.Get("Content-Type")
		mediaType := models.MediaPhoto
		if strings.HasPrefix(mimeType, "video/") {
			mediaType = models.MediaVideo
		}

		reqs = append(reqs, UploadRequest{
			AthleteID: athleteID,
			FileName:  fh.Filename,
			MimeType:  mimeType,
			Type:      mediaType,
			Caption:   r.FormValue("caption"),
			Data:      data,
		})
	}

	results := s.app.UploadAll(r.Context(), reqs)

	var items []models.MediaItem
	var uploadErrors []string
	for i, res := range results {
		if res.Err != nil {
			log.Error().Err(res.Err).Str("athlete_id", athleteID).
				Str("file", reqs[i].FileName).Msg("media upload failed")
			uploadErrors = append(uploadErrors, reqs[i].FileName+": upload failed")
			continue
		}
		if err := s.directory.AddMedia(r.Context(), athleteID, res.Item); err != nil {
			log.Error().Err(err).Str("athlete_id", athleteID).
				Str("media_id", res.Item.ID).Msg("failed to record media reference")
			uploadErrors = append(uploadErrors, reqs[i].FileName+": failed to attach")
			continue
		}
		items = append(items, res.Item)
	}

	status := http.StatusCreated
	if len(items) == 0 {
		status = http.StatusBadGateway
	}
	s.writeJSON(w, status, map[string]any{
		"items":  items,
		"errors": uploadErrors,
	})
}

func (s *Service) handleDelete(w http.ResponseWriter, r *http.Request) {
	vars := mux.Vars(r)
	if err := s.directory.RemoveMedia(r.Context(), vars["id"], vars["mediaID"]); err != nil {
		log.Error().Err(err).Str("athlete_id", vars["id"]).Msg("media delete failed")
		s.writeJSON(w, http.StatusInternalServerError, map[string]string{"error": "failed to delete media"})
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

func (s *Service) writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(v); err != nil {
		log.Error().Err(err).Msg("failed to encode response")
	}
}
