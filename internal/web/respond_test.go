package web

import (
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/vbonduro/nearby/internal/domain"
	"github.com/vbonduro/nearby/internal/service"
)

func TestWriteServiceError(t *testing.T) {
	tests := []struct {
		name       string
		err        error
		wantStatus int
		wantMsg    string
	}{
		{name: "validation", err: fmt.Errorf("%w: bad latitude", domain.ErrValidation), wantStatus: http.StatusBadRequest},
		{name: "reference", err: domain.ErrReference, wantStatus: http.StatusConflict},
		{name: "point not found", err: domain.ErrPointNotFound, wantStatus: http.StatusNotFound},
		{name: "image not found", err: domain.ErrImageNotFound, wantStatus: http.StatusNotFound},
		{name: "external image", err: service.ErrNotLocal, wantStatus: http.StatusNotFound},
		{
			name:       "storage",
			err:        &domain.StorageError{Op: "list points", Err: errors.New("disk I/O error")},
			wantStatus: http.StatusInternalServerError,
			wantMsg:    "failed to list points",
		},
	}

	s := &Server{logger: slog.Default()}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			rec := httptest.NewRecorder()
			req := httptest.NewRequest(http.MethodGet, "/api/points", nil)

			s.writeServiceError(rec, req, "list points", tt.err)

			assert.Equal(t, tt.wantStatus, rec.Code)
			var body errorResponse
			require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &body))
			if tt.wantMsg != "" {
				assert.Equal(t, tt.wantMsg, body.Error, "internal detail must not leak")
			} else {
				assert.Equal(t, tt.err.Error(), body.Error)
			}
		})
	}
}
