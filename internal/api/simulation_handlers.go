package api

import (
	"encoding/json"
	"net/http"
	"strings"

	"github.com/go-chi/chi/v5"

	"github.com/yegors/fdwatch/internal/simulation"
	"github.com/yegors/fdwatch/pkg/logger"
)

// SimulationControl is the simulated feed the API can steer. Only present when the engine
// runs on the simulation source.
type SimulationControl interface {
	CreateAircraft(lat, lon, altitude, heading, speed, verticalRate float64) (*simulation.SimulatedAircraft, error)
	SpawnApproach() (*simulation.SimulatedAircraft, error)
	UpdateControls(hex string, heading, speed, verticalRate float64) error
	RemoveAircraft(hex string) error
	GetAllAircraft() []simulation.SimulatedAircraft
	IsSimulated(hex string) bool
}

type simulationControls struct {
	Heading      float64 `json:"heading"`
	Speed        float64 `json:"speed"`
	VerticalRate float64 `json:"vertical_rate"`
}

// validate returns a message describing the first out of range value
func (c simulationControls) validate() string {
	switch {
	case c.Heading < 0 || c.Heading >= 360:
		return "Invalid heading (0-359 degrees)"
	case c.Speed < 0 || c.Speed > 500:
		return "Invalid speed (0-500 knots)"
	case c.VerticalRate < -3000 || c.VerticalRate > 3000:
		return "Invalid vertical rate (-3000 to +3000 fpm)"
	}
	return ""
}

// CreateSimulatedAircraft creates a new simulated aircraft
func (h *Handler) CreateSimulatedAircraft(w http.ResponseWriter, r *http.Request) {
	var req struct {
		Lat      float64 `json:"lat"`
		Lon      float64 `json:"lon"`
		Altitude float64 `json:"altitude"`
		simulationControls
	}
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		http.Error(w, "Invalid JSON", http.StatusBadRequest)
		return
	}

	if req.Lat < -90 || req.Lat > 90 || req.Lon < -180 || req.Lon > 180 {
		http.Error(w, "Invalid coordinates", http.StatusBadRequest)
		return
	}
	if req.Altitude < 0 || req.Altitude > 60000 {
		http.Error(w, "Invalid altitude (0-60000 ft)", http.StatusBadRequest)
		return
	}
	if msg := req.validate(); msg != "" {
		http.Error(w, msg, http.StatusBadRequest)
		return
	}

	aircraft, err := h.simulation.CreateAircraft(
		req.Lat, req.Lon, req.Altitude,
		req.Heading, req.Speed, req.VerticalRate,
	)
	if err != nil {
		http.Error(w, err.Error(), http.StatusBadRequest)
		return
	}

	h.logger.Info("Created simulated aircraft via API",
		logger.String("hex", aircraft.Hex),
		logger.String("flight", aircraft.Flight))

	WriteJSON(w, http.StatusOK, map[string]any{
		"status":   "success",
		"aircraft": aircraft,
	})
}

// SpawnSimulatedApproach puts an aircraft on the scripted final now instead of waiting for
// the next scheduled arrival
func (h *Handler) SpawnSimulatedApproach(w http.ResponseWriter, r *http.Request) {
	aircraft, err := h.simulation.SpawnApproach()
	if err != nil {
		http.Error(w, err.Error(), http.StatusBadRequest)
		return
	}
	WriteJSON(w, http.StatusOK, map[string]any{
		"status":   "success",
		"aircraft": aircraft,
	})
}

// UpdateSimulationControls updates the control parameters for a simulated aircraft
func (h *Handler) UpdateSimulationControls(w http.ResponseWriter, r *http.Request) {
	hex := strings.ToLower(chi.URLParam(r, "hex"))
	if !h.simulation.IsSimulated(hex) {
		http.Error(w, "Simulated aircraft not found", http.StatusNotFound)
		return
	}

	var req simulationControls
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		http.Error(w, "Invalid JSON", http.StatusBadRequest)
		return
	}
	if msg := req.validate(); msg != "" {
		http.Error(w, msg, http.StatusBadRequest)
		return
	}

	// It may have been retired since the check above
	if err := h.simulation.UpdateControls(hex, req.Heading, req.Speed, req.VerticalRate); err != nil {
		http.Error(w, err.Error(), http.StatusNotFound)
		return
	}

	h.logger.Debug("Updated simulation controls via API",
		logger.String("hex", hex),
		logger.Float64("heading", req.Heading),
		logger.Float64("speed", req.Speed),
		logger.Float64("vertical_rate", req.VerticalRate))

	WriteJSON(w, http.StatusOK, map[string]any{"status": "success"})
}

// RemoveSimulatedAircraft removes a simulated aircraft
func (h *Handler) RemoveSimulatedAircraft(w http.ResponseWriter, r *http.Request) {
	hex := strings.ToLower(chi.URLParam(r, "hex"))
	if err := h.simulation.RemoveAircraft(hex); err != nil {
		http.Error(w, err.Error(), http.StatusNotFound)
		return
	}

	h.logger.Info("Removed simulated aircraft via API", logger.String("hex", hex))
	WriteJSON(w, http.StatusOK, map[string]any{"status": "success"})
}

// GetSimulatedAircraft returns all simulated aircraft
func (h *Handler) GetSimulatedAircraft(w http.ResponseWriter, r *http.Request) {
	WriteJSON(w, http.StatusOK, h.simulation.GetAllAircraft())
}
