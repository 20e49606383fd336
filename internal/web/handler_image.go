package web

import (
	"io"
	"mime"
	"net/http"
)

type addImageRequest struct {
	URI string `json:"uri"`
}

func (s *Server) handleListImages(w http.ResponseWriter, r *http.Request) {
	pointID, err := parseID(r)
	if err != nil {
		s.writeError(w, http.StatusBadRequest, "invalid point id")
		return
	}

	images, err := s.service.ListImages(r.Context(), pointID)
	if err != nil {
		s.writeServiceError(w, r, "list images", err)
		return
	}
	s.writeJSON(w, http.StatusOK, images)
}

// handleAddImage accepts either a multipart upload or a JSON body naming an
// external URI.
func (s *Server) handleAddImage(w http.ResponseWriter, r *http.Request) {
	pointID, err := parseID(r)
	if err != nil {
		s.writeError(w, http.StatusBadRequest, "invalid point id")
		return
	}

	if mediaType, _, _ := mime.ParseMediaType(r.Header.Get("Content-Type")); mediaType == "multipart/form-data" {
		s.handleUploadImage(w, r, pointID)
		return
	}

	var req addImageRequest
	if err := decodeJSON(r, &req); err != nil {
		s.writeError(w, http.StatusBadRequest, err.Error())
		return
	}

	img, err := s.service.AddImage(r.Context(), pointID, req.URI)
	if err != nil {
		s.writeServiceError(w, r, "add image", err)
		return
	}
	s.writeJSON(w, http.StatusCreated, img)
}

func (s *Server) handleGetImage(w http.ResponseWriter, r *http.Request) {
	id, err := parseID(r)
	if err != nil {
		s.writeError(w, http.StatusBadRequest, "invalid image id")
		return
	}

	img, err := s.service.GetImage(r.Context(), id)
	if err != nil {
		s.writeServiceError(w, r, "get image", err)
		return
	}
	s.writeJSON(w, http.StatusOK, img)
}

func (s *Server) handleDeleteImage(w http.ResponseWriter, r *http.Request) {
	id, err := parseID(r)
	if err != nil {
		s.writeError(w, http.StatusBadRequest, "invalid image id")
		return
	}

	if err := s.service.DeleteImage(r.Context(), id); err != nil {
		s.writeServiceError(w, r, "delete image", err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

func (s *Server) handleImageContent(w http.ResponseWriter, r *http.Request) {
	id, err := parseID(r)
	if err != nil {
		s.writeError(w, http.StatusBadRequest, "invalid image id")
		return
	}

	reader, mimeType, err := s.service.OpenImage(r.Context(), id)
	if err != nil {
		s.writeServiceError(w, r, "open image", err)
		return
	}
	defer closeWithLog(reader, "image reader", s.logger)

	w.Header().Set("Content-Type", mimeType)
	w.Header().Set("Cache-Control", "private, max-age=86400")
	if _, err := io.Copy(w, reader); err != nil {
		s.logger.Error("write image failed", "image_id", id, "error", err)
	}
}
