package web

import (
	"bytes"
	"io"
	"net/http"
)

const maxImageSize = 20 * 1024 * 1024 // 20 MB

// allowedImageTypes is the set of MIME types accepted for uploaded images.
// net/http.DetectContentType handles JPEG, PNG, and GIF via magic-byte
// sniffing. WebP is detected separately because the WHATWG sniff spec (and
// therefore the stdlib) does not include a WebP signature.
var allowedImageTypes = map[string]bool{
	"image/jpeg": true,
	"image/png":  true,
	"image/gif":  true,
}

// isWebP reports whether data is a WebP image (RIFF container with "WEBP" at
// offset 8).
func isWebP(data []byte) bool {
	return len(data) >= 12 &&
		string(data[0:4]) == "RIFF" &&
		string(data[8:12]) == "WEBP"
}

// allowedImageMIME returns the detected MIME type and true if the data is an
// accepted image format, or ("", false) otherwise.
func allowedImageMIME(data []byte) (string, bool) {
	if isWebP(data) {
		return "image/webp", true
	}
	mime := http.DetectContentType(data)
	if allowedImageTypes[mime] {
		return mime, true
	}
	return "", false
}

// handleUploadImage stores the multipart "image" field and attaches it to
// the point. The declared content type is ignored; the bytes are sniffed.
func (s *Server) handleUploadImage(w http.ResponseWriter, r *http.Request, pointID int64) {
	r.Body = http.MaxBytesReader(w, r.Body, maxImageSize+1<<20)
	if err := r.ParseMultipartForm(maxImageSize); err != nil {
		s.writeError(w, http.StatusBadRequest, "failed to parse form")
		return
	}

	file, _, err := r.FormFile("image")
	if err != nil {
		s.writeError(w, http.StatusBadRequest, "image file required")
		return
	}
	defer closeWithLog(file, "upload file", s.logger)

	imageData, err := io.ReadAll(io.LimitReader(file, maxImageSize+1))
	if err != nil {
		s.writeError(w, http.StatusInternalServerError, "failed to read file")
		s.logger.Error("read upload failed", "point_id", pointID, "error", err)
		return
	}
	if len(imageData) > maxImageSize {
		s.writeError(w, http.StatusRequestEntityTooLarge, "image too large")
		return
	}

	mimeType, ok := allowedImageMIME(imageData)
	if !ok {
		s.writeError(w, http.StatusBadRequest, "unsupported image format")
		return
	}

	img, err := s.service.UploadImage(r.Context(), pointID, mimeType, bytes.NewReader(imageData))
	if err != nil {
		s.writeServiceError(w, r, "upload image", err)
		return
	}
	s.writeJSON(w, http.StatusCreated, img)
}
