package athletes

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"strconv"

	"github.com/gorilla/mux"
	"github.com/rs/zerolog/log"

	"github.com/Williamgithubit/bsm-backend/internal/docstore"
	"github.com/Williamgithubit/bsm-backend/internal/models"
)

// AthletesApp defines what the service layer needs from the athletes
// application.
type AthletesApp interface {
	CreateAthlete(ctx context.Context, req CreateAthleteRequest) (*models.Athlete, error)
	GetAthlete(ctx context.Context, id string) (*models.Athlete, error)
	UpdateAthlete(ctx context.Context, id string, req UpdateAthleteRequest) error
	DeleteAthlete(ctx context.Context, id string) error
	GetAthletes(ctx context.Context, f Filters, req PageRequest) (Page, error)
	GetAthletesCount(ctx context.Context, f Filters) (int, error)
	BulkUpdateAthletes(ctx context.Context, action BulkAction) error
	ExportAthletesToCSV(ctx context.Context, f Filters) (string, error)
	ExportAthletesByIDs(ctx context.Context, ids []string) (string, error)
	ImportAthletesFromCSV(ctx context.Context, csvText, createdBy string) (ImportResult, error)
}

// Service exposes the athlete directory over HTTP JSON.
type Service struct {
	app AthletesApp
}

// NewService creates a new athletes HTTP service.
func NewService(app AthletesApp) *Service {
	return &Service{app: app}
}

// RegisterRoutes mounts the directory endpoints on the router.
func (s *Service) RegisterRoutes(r *mux.Router) {
	r.HandleFunc("/athletes", s.handleList).Methods(http.MethodGet)
	r.HandleFunc("/athletes", s.handleCreate).Methods(http.MethodPost)
	r.HandleFunc("/athletes/count", s.handleCount).Methods(http.MethodGet)
	r.HandleFunc("/athletes/bulk", s.handleBulk).Methods(http.MethodPost)
	r.HandleFunc("/athletes/export", s.handleExport).Methods(http.MethodGet)
	r.HandleFunc("/athletes/import", s.handleImport).Methods(http.MethodPost)
	r.HandleFunc("/athletes/{id}", s.handleGet).Methods(http.MethodGet)
	r.HandleFunc("/athletes/{id}", s.handleUpdate).Methods(http.MethodPut)
	r.HandleFunc("/athletes/{id}", s.handleDelete).Methods(http.MethodDelete)
}

func filtersFromQuery(r *http.Request) Filters {
	q := r.URL.Query()
	f := Filters{
		Search:         q.Get("search"),
		Sport:          q.Get("sport"),
		Level:          q.Get("level"),
		County:         q.Get("county"),
		ScoutingStatus: q.Get("scouting_status"),
		Position:       q.Get("position"),
	}
	if v, err := strconv.Atoi(q.Get("age_min")); err == nil {
		f.AgeMin = &v
	}
	if v, err := strconv.Atoi(q.Get("age_max")); err == nil {
		f.AgeMax = &v
	}
	return f
}

func (s *Service) handleList(w http.ResponseWriter, r *http.Request) {
	q := r.URL.Query()
	req := PageRequest{Cursor: q.Get("cursor")}
	if v, err := strconv.Atoi(q.Get("page")); err == nil {
		req.Page = v
	}
	if v, err := strconv.Atoi(q.Get("page_size")); err == nil {
		req.PageSize = v
	}

	page, err := s.app.GetAthletes(r.Context(), filtersFromQuery(r), req)
	if err != nil {
		s.writeError(w, err)
		return
	}
	if page.Athletes == nil {
		page.Athletes = []models.Athlete{}
	}
	s.writeJSON(w, http.StatusOK, page)
}

func (s *Service) handleCount(w http.ResponseWriter, r *http.Request) {
	count, err := s.app.GetAthletesCount(r.Context(), filtersFromQuery(r))
	if err != nil {
		s.writeError(w, err)
		return
	}
	s.writeJSON(w, http.StatusOK, map[string]int{"count": count})
}

func (s *Service) handleCreate(w http.ResponseWriter, r *http.Request) {
	var req CreateAthleteRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		s.writeJSON(w, http.StatusBadRequest, map[string]string{"error": "invalid request body"})
		return
	}

	athlete, err := s.app.CreateAthlete(r.Context(), req)
	if err != nil {
		s.writeError(w, err)
		return
	}
	s.writeJSON(w, http.StatusCreated, athlete)
}

func (s *Service) handleGet(w http.ResponseWriter, r *http.Request) {
	athlete, err := s.app.GetAthlete(r.Context(), mux.Vars(r)["id"])
	if err != nil {
		s.writeError(w, err)
		return
	}
	if athlete == nil {
		s.writeJSON(w, http.StatusNotFound, map[string]string{"error": "athlete not found"})
		return
	}
	s.writeJSON(w, http.StatusOK, athlete)
}

func (s *Service) handleUpdate(w http.ResponseWriter, r *http.Request) {
	var req UpdateAthleteRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		s.writeJSON(w, http.StatusBadRequest, map[string]string{"error": "invalid request body"})
		return
	}

	if err := s.app.UpdateAthlete(r.Context(), mux.Vars(r)["id"], req); err != nil {
		s.writeError(w, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

func (s *Service) handleDelete(w http.ResponseWriter, r *http.Request) {
	if err := s.app.DeleteAthlete(r.Context(), mux.Vars(r)["id"]); err != nil {
		s.writeError(w, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

func (s *Service) handleBulk(w http.ResponseWriter, r *http.Request) {
	var action BulkAction
	if err := json.NewDecoder(r.Body).Decode(&action); err != nil {
		s.writeJSON(w, http.StatusBadRequest, map[string]string{"error": "invalid request body"})
		return
	}

	// Export is a read, not a batch mutation.
	if action.Type == BulkExport {
		data, err := s.app.ExportAthletesByIDs(r.Context(), action.IDs)
		if err != nil {
			s.writeError(w, err)
			return
		}
		w.Header().Set("Content-Type", "text/csv")
		_, _ = w.Write([]byte(data))
		return
	}

	if err := s.app.BulkUpdateAthletes(r.Context(), action); err != nil {
		s.writeError(w, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

func (s *Service) handleExport(w http.ResponseWriter, r *http.Request) {
	data, err := s.app.ExportAthletesToCSV(r.Context(), filtersFromQuery(r))
	if err != nil {
		s.writeError(w, err)
		return
	}
	w.Header().Set("Content-Type", "text/csv")
	w.Header().Set("Content-Disposition", `attachment; filename="athletes.csv"`)
	_, _ = w.Write([]byte(data))
}

func (s *Service) handleImport(w http.ResponseWriter, r *http.Request) {
	var req struct {
		CSV       string `json:"csv"`
		CreatedBy string `json:"created_by"`
	}
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		s.writeJSON(w, http.StatusBadRequest, map[string]string{"error": "invalid request body"})
		return
	}

	result, err := s.app.ImportAthletesFromCSV(r.Context(), req.CSV, req.CreatedBy)
	if err != nil {
		s.writeError(w, err)
		return
	}
	s.writeJSON(w, http.StatusOK, result)
}

func (s *Service) writeError(w http.ResponseWriter, err error) {
	var validation *ValidationError
	if errors.As(err, &validation) {
		s.writeJSON(w, http.StatusBadRequest, map[string]string{"error": validation.Error()})
		return
	}
	if errors.Is(err, docstore.ErrNotFound) {
		s.writeJSON(w, http.StatusNotFound, map[string]string{"error": "athlete not found"})
		return
	}

	var bulk *BulkOperationError
	if errors.As(err, &bulk) {
		log.Error().Err(err).Msg("bulk operation failed")
		s.writeJSON(w, http.StatusConflict, map[string]string{"error": bulk.Error()})
		return
	}

	log.Error().Err(err).Msg("athletes request failed")
	s.writeJSON(w, http.StatusInternalServerError, map[string]string{"error": "internal error"})
}

func (s *Service) writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(v); err != nil {
		log.Error().Err(err).Msg("failed to encode response")
	}
}
