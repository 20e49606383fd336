package web

import (
	"net/http"
	"time"

	"github.com/vbonduro/nearby/internal/domain"
	"github.com/vbonduro/nearby/internal/lifecycle"
)

type locationRequest struct {
	Latitude  *float64  `json:"latitude"`
	Longitude *float64  `json:"longitude"`
	Accuracy  float64   `json:"accuracy"`
	Timestamp time.Time `json:"timestamp"`
}

type locationResponse struct {
	Delivered int `json:"delivered"`
}

type lifecycleRequest struct {
	State string `json:"state"`
}

type lifecycleResponse struct {
	State     lifecycle.State `json:"state"`
	Proximity string          `json:"proximity"`
}

type proximityResponse struct {
	Status     string  `json:"status"`
	State      string  `json:"app_state"`
	Active     []int64 `json:"active"`
	ThresholdM float64 `json:"threshold_m"`
}

// handleLocation feeds a device fix into the location source. Fixes that
// arrive while nothing is subscribed are accepted and dropped.
func (s *Server) handleLocation(w http.ResponseWriter, r *http.Request) {
	var req locationRequest
	if err := decodeJSON(r, &req); err != nil {
		s.writeError(w, http.StatusBadRequest, err.Error())
		return
	}
	if req.Latitude == nil || req.Longitude == nil {
		s.writeError(w, http.StatusBadRequest, "latitude and longitude are required")
		return
	}
	if !domain.ValidCoordinates(*req.Latitude, *req.Longitude) {
		s.writeError(w, http.StatusBadRequest, "coordinates out of range")
		return
	}

	n := s.locations.Push(domain.LocationSample{
		Latitude:  *req.Latitude,
		Longitude: *req.Longitude,
		Accuracy:  req.Accuracy,
		Timestamp: req.Timestamp,
	})
	s.writeJSON(w, http.StatusAccepted, locationResponse{Delivered: n})
}

func (s *Server) handleLifecycle(w http.ResponseWriter, r *http.Request) {
	var req lifecycleRequest
	if err := decodeJSON(r, &req); err != nil {
		s.writeError(w, http.StatusBadRequest, err.Error())
		return
	}
	state, err := lifecycle.ParseState(req.State)
	if err != nil {
		s.writeError(w, http.StatusBadRequest, err.Error())
		return
	}

	if err := s.app.SetState(r.Context(), state); err != nil {
		s.logger.ErrorContext(r.Context(), "lifecycle transition failed", "state", string(state), "error", err)
		s.writeError(w, http.StatusInternalServerError, "failed to change app state")
		return
	}
	s.writeJSON(w, http.StatusOK, lifecycleResponse{
		State:     s.app.State(),
		Proximity: s.proximity.Status().String(),
	})
}

func (s *Server) handleProximity(w http.ResponseWriter, r *http.Request) {
	s.writeJSON(w, http.StatusOK, proximityResponse{
		Status:     s.proximity.Status().String(),
		State:      string(s.app.State()),
		Active:     s.proximity.Active(),
		ThresholdM: s.proximity.Threshold(),
	})
}
