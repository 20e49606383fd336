package web

import (
	"net/http"
)

const maxLabelLen = 200

type createPointRequest struct {
	Latitude  *float64 `json:"latitude"`
	Longitude *float64 `json:"longitude"`
	Label     string   `json:"label"`
	Color     string   `json:"color"`
}

// updatePointRequest leaves a field unchanged when it is omitted.
type updatePointRequest struct {
	Label *string `json:"label"`
	Color *string `json:"color"`
}

func (s *Server) handleListPoints(w http.ResponseWriter, r *http.Request) {
	points, err := s.service.SearchPoints(r.Context(), r.URL.Query().Get("q"))
	if err != nil {
		s.writeServiceError(w, r, "list points", err)
		return
	}
	s.writeJSON(w, http.StatusOK, points)
}

func (s *Server) handleCreatePoint(w http.ResponseWriter, r *http.Request) {
	var req createPointRequest
	if err := decodeJSON(r, &req); err != nil {
		s.writeError(w, http.StatusBadRequest, err.Error())
		return
	}
	if req.Latitude == nil || req.Longitude == nil {
		s.writeError(w, http.StatusBadRequest, "latitude and longitude are required")
		return
	}
	if len(req.Label) > maxLabelLen {
		s.writeError(w, http.StatusBadRequest, "label too long")
		return
	}

	p, err := s.service.AddPoint(r.Context(), *req.Latitude, *req.Longitude, req.Label, req.Color)
	if err != nil {
		s.writeServiceError(w, r, "create point", err)
		return
	}
	s.writeJSON(w, http.StatusCreated, p)
}

func (s *Server) handleGetPoint(w http.ResponseWriter, r *http.Request) {
	id, err := parseID(r)
	if err != nil {
		s.writeError(w, http.StatusBadRequest, "invalid point id")
		return
	}

	p, err := s.service.GetPoint(r.Context(), id)
	if err != nil {
		s.writeServiceError(w, r, "get point", err)
		return
	}
	s.writeJSON(w, http.StatusOK, p)
}

func (s *Server) handleUpdatePoint(w http.ResponseWriter, r *http.Request) {
	id, err := parseID(r)
	if err != nil {
		s.writeError(w, http.StatusBadRequest, "invalid point id")
		return
	}

	var req updatePointRequest
	if err := decodeJSON(r, &req); err != nil {
		s.writeError(w, http.StatusBadRequest, err.Error())
		return
	}
	if req.Label != nil && len(*req.Label) > maxLabelLen {
		s.writeError(w, http.StatusBadRequest, "label too long")
		return
	}

	current, err := s.service.GetPoint(r.Context(), id)
	if err != nil {
		s.writeServiceError(w, r, "update point", err)
		return
	}
	label, color := current.Label, current.Color
	if req.Label != nil {
		label = *req.Label
	}
	if req.Color != nil {
		color = *req.Color
	}

	p, err := s.service.UpdatePoint(r.Context(), id, label, color)
	if err != nil {
		s.writeServiceError(w, r, "update point", err)
		return
	}
	s.writeJSON(w, http.StatusOK, p)
}

func (s *Server) handleDeletePoint(w http.ResponseWriter, r *http.Request) {
	id, err := parseID(r)
	if err != nil {
		s.writeError(w, http.StatusBadRequest, "invalid point id")
		return
	}

	if err := s.service.DeletePoint(r.Context(), id); err != nil {
		s.writeServiceError(w, r, "delete point", err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}
