package gateway

import (
	"context"
	"fmt"
	"net/http"
	"strings"

	"github.com/gorilla/mux"
	"github.com/rs/zerolog/log"

	"github.com/Williamgithubit/bsm-backend/internal/athletes"
)

// Service exposes the live directory over WebSocket.
type Service struct {
	manager *ConnectionManager
}

// NewService creates a new gateway service.
func NewService(app SubscriberApp, config ConnectionConfig) *Service {
	return &Service{manager: NewConnectionManager(app, config)}
}

// Start runs the broadcast loop until ctx ends.
func (s *Service) Start(ctx context.Context) {
	s.manager.Start(ctx)
}

// RegisterRoutes mounts the WebSocket and stats endpoints.
func (s *Service) RegisterRoutes(r *mux.Router) {
	r.HandleFunc("/ws/athletes", s.handleAthletesWS).Methods(http.MethodGet)
	r.HandleFunc("/ws/stats", s.handleStats).Methods(http.MethodGet)
}

// handleAthletesWS upgrades the request and streams filtered directory
// snapshots. Filters come from query parameters, same shape as the REST
// list endpoint. The request context dies when the handler returns, so the
// subscription is bound to the connection lifetime instead: unregister
// cancels it.
func (s *Service) handleAthletesWS(w http.ResponseWriter, r *http.Request) {
	f := filtersFromQuery(r)
	if err := s.manager.UpgradeConnection(context.Background(), w, r, f); err != nil {
		log.Error().Err(err).Msg("failed to establish directory WebSocket")
	}
}

func (s *Service) handleStats(w http.ResponseWriter, r *http.Request) {
	total, pools := s.manager.ConnectionStats()
	w.Header().Set("Content-Type", "application/json")
	fmt.Fprintf(w, `{"connections":%d,"pools":%d}`, total, pools)
}

func filtersFromQuery(r *http.Request) athletes.Filters {
	q := r.URL.Query()
	return athletes.Filters{
		Search:         strings.TrimSpace(q.Get("search")),
		Sport:          q.Get("sport"),
		Level:          q.Get("level"),
		County:         q.Get("county"),
		ScoutingStatus: q.Get("scoutingStatus"),
		Position:       q.Get("position"),
	}
}
