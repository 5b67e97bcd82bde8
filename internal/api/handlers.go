package api

import (
	"encoding/json"
	"net/http"
	"strconv"
	"strings"

	"github.com/go-chi/chi/v5"

	"github.com/yegors/fdwatch/internal/config"
	"github.com/yegors/fdwatch/internal/engine"
	"github.com/yegors/fdwatch/internal/storage/sqlite"
	"github.com/yegors/fdwatch/internal/track"
	"github.com/yegors/fdwatch/pkg/logger"
)

const (
	defaultCueLimit = 20
	maxCueLimit     = 500
)

// EngineView is the read-only engine surface the API serves
type EngineView interface {
	Status() engine.Status
	Aircraft() []track.View
	Lookup(id string) (track.View, bool)
}

// CueHistory lists logged cues, newest first
type CueHistory interface {
	RecentCues(limit int) ([]*sqlite.CueRecord, error)
}

// Handler contains the API handlers
type Handler struct {
	engine EngineView
	cues       CueHistory        // nil when the cue log is disabled
	simulation SimulationControl // nil unless flying the simulation source
	config     *config.Config
	logger     *logger.Logger
}

// NewHandler creates a new API handler
func NewHandler(view EngineView, cues CueHistory, cfg *config.Config, log *logger.Logger) *Handler {
	return &Handler{
		engine: view,
		cues:   cues,
		config: cfg,
		logger: log.Named("api-handler"),
	}
}

// GetHealth reports liveness and when the engine last polled
func (h *Handler) GetHealth(w http.ResponseWriter, r *http.Request) {
	st := h.engine.Status()
	WriteJSON(w, http.StatusOK, map[string]any{
		"status":    "ok",
		"last_poll": st.LastPoll,
		"state":     st.State,
	})
}

// GetStatus returns the engine summary
func (h *Handler) GetStatus(w http.ResponseWriter, r *http.Request) {
	WriteJSON(w, http.StatusOK, h.engine.Status())
}

// GetAllAircraft returns the aircraft inside the monitoring radius, nearest first
func (h *Handler) GetAllAircraft(w http.ResponseWriter, r *http.Request) {
	aircraft := h.engine.Aircraft()
	WriteJSON(w, http.StatusOK, map[string]any{
		"count":    len(aircraft),
		"aircraft": aircraft,
	})
}

// GetAircraftByID returns one tracked aircraft by its ICAO address, wherever it is
func (h *Handler) GetAircraftByID(w http.ResponseWriter, r *http.Request) {
	id := strings.ToLower(chi.URLParam(r, "id"))
	if id == "" {
		http.Error(w, "Missing aircraft ID", http.StatusBadRequest)
		return
	}

	v, ok := h.engine.Lookup(id)
	if !ok {
		http.Error(w, "Aircraft not found", http.StatusNotFound)
		return
	}
	WriteJSON(w, http.StatusOK, v)
}

// GetCues returns the most recent cue log entries. The limit query parameter defaults to
// 20 and is capped at 500.
func (h *Handler) GetCues(w http.ResponseWriter, r *http.Request) {
	limit := defaultCueLimit
	if raw := r.URL.Query().Get("limit"); raw != "" {
		n, err := strconv.Atoi(raw)
		if err != nil || n <= 0 {
			http.Error(w, "Invalid limit", http.StatusBadRequest)
			return
		}
		limit = min(n, maxCueLimit)
	}

	if h.cues == nil {
		WriteJSON(w, http.StatusOK, map[string]any{"count": 0, "cues": []*sqlite.CueRecord{}})
		return
	}

	cues, err := h.cues.RecentCues(limit)
	if err != nil {
		h.logger.Error("Failed to load cues", logger.Error(err))
		http.Error(w, "Failed to load cues", http.StatusInternalServerError)
		return
	}
	WriteJSON(w, http.StatusOK, map[string]any{
		"count": len(cues),
		"cues":  cues,
	})
}

// GetConfig returns the public configuration
func (h *Handler) GetConfig(w http.ResponseWriter, r *http.Request) {
	publicConfig := map[string]any{
		"station": map[string]any{
			"latitude":  h.config.Station.Latitude,
			"longitude": h.config.Station.Longitude,
		},
		"adsb": map[string]any{
			"source_type":            h.config.ADSB.SourceType,
			"fetch_interval_seconds": h.config.ADSB.FetchIntervalSecs,
		},
		"trigger": map[string]any{
			"monitoring_radius_miles": h.config.Trigger.MonitoringRadius,
			"trigger_radius_miles":    h.config.Trigger.TriggerRadius,
			"min_altitude_feet":       h.config.Trigger.MinAltitudeFeet,
			"max_altitude_feet":       h.config.Trigger.MaxAltitudeFeet,
			"min_speed_knots":         h.config.Trigger.MinSpeedKnots,
			"max_speed_knots":         h.config.Trigger.MaxSpeedKnots,
		},
		"phases": map[string]any{
			"landing_runway":    h.config.Phases.LandingRunway,
			"takeoff_runway":    h.config.Phases.TakeoffRunway,
			"heading_deviation": h.config.Phases.HeadingDeviation,
		},
		"chatter_per_hour": h.config.Chatter.PerHour,
	}

	WriteJSON(w, http.StatusOK, publicConfig)
}

// WriteJSON writes a JSON response
func WriteJSON(w http.ResponseWriter, status int, data any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(data); err != nil {
		http.Error(w, err.Error(), http.StatusInternalServerError)
	}
}
