package service

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"strings"
	"sync"

	"github.com/vbonduro/nearby/internal/domain"
	"github.com/vbonduro/nearby/internal/imagestore"
)

// ErrNotLocal is returned by OpenImage for images that reference external
// content.
var ErrNotLocal = errors.New("image content is not stored locally")

// pointRepository is the subset of store.PointStore that PointService requires.
type pointRepository interface {
	Create(ctx context.Context, lat, lng float64, label, color string) (*domain.Point, error)
	GetByID(ctx context.Context, id int64) (*domain.Point, error)
	List(ctx context.Context) ([]domain.Point, error)
	Search(ctx context.Context, query string) ([]domain.Point, error)
	Update(ctx context.Context, id int64, label, color string) error
	Delete(ctx context.Context, id int64) error
}

// imageRepository is the subset of store.ImageStore that PointService requires.
type imageRepository interface {
	Create(ctx context.Context, pointID int64, uri string) (*domain.Image, error)
	GetByID(ctx context.Context, id int64) (*domain.Image, error)
	ListByPointID(ctx context.Context, pointID int64) ([]domain.Image, error)
	Delete(ctx context.Context, id int64) error
}

// PointListener is told about every change to the point set. The proximity
// engine implements it.
type PointListener interface {
	OnPointSetChanged(points []domain.Point)
	OnPointDeleted(id int64)
}

type PointService struct {
	points   pointRepository
	images   imageRepository
	files    imagestore.Store
	listener PointListener
	logger   *slog.Logger

	// writeMu orders mutations with the point-set snapshots published after
	// them, so the listener never sees an older set after a newer one. Image
	// inserts take it too: DeletePoint lists a point's images before the
	// cascade, and an image added in between would lose its file.
	writeMu sync.Mutex
}

// NewPointService wires the stores together. listener may be nil.
func NewPointService(
	points pointRepository,
	images imageRepository,
	files imagestore.Store,
	listener PointListener,
	logger *slog.Logger,
) *PointService {
	return &PointService{
		points:   points,
		images:   images,
		files:    files,
		listener: listener,
		logger:   logger,
	}
}

// ListPoints returns every point, newest first.
func (s *PointService) ListPoints(ctx context.Context) ([]domain.Point, error) {
	return s.points.List(ctx)
}

func (s *PointService) SearchPoints(ctx context.Context, query string) ([]domain.Point, error) {
	query = strings.TrimSpace(query)
	if query == "" {
		return s.points.List(ctx)
	}
	return s.points.Search(ctx, query)
}

func (s *PointService) GetPoint(ctx context.Context, id int64) (*domain.Point, error) {
	p, err := s.points.GetByID(ctx, id)
	if err != nil {
		return nil, err
	}
	if p == nil {
		return nil, domain.ErrPointNotFound
	}
	return p, nil
}

func (s *PointService) AddPoint(ctx context.Context, lat, lng float64, label, color string) (*domain.Point, error) {
	if !domain.ValidCoordinates(lat, lng) {
		return nil, fmt.Errorf("%w: coordinates (%v, %v) out of range", domain.ErrValidation, lat, lng)
	}

	s.writeMu.Lock()
	defer s.writeMu.Unlock()

	p, err := s.points.Create(ctx, lat, lng, label, color)
	if err != nil {
		return nil, err
	}
	s.logger.Info("point added", "point_id", p.ID, "label", p.Label)
	s.publish(ctx)
	return p, nil
}

func (s *PointService) UpdatePoint(ctx context.Context, id int64, label, color string) (*domain.Point, error) {
	s.writeMu.Lock()
	defer s.writeMu.Unlock()

	if err := s.points.Update(ctx, id, label, color); err != nil {
		return nil, err
	}
	p, err := s.points.GetByID(ctx, id)
	if err != nil {
		return nil, err
	}
	if p == nil {
		// Deleted between the update and the read.
		return nil, domain.ErrPointNotFound
	}
	s.logger.Info("point updated", "point_id", id)
	s.publish(ctx)
	return p, nil
}

// DeletePoint removes the point and its images. It is idempotent. Files of
// locally stored images are removed best-effort after the rows are gone.
func (s *PointService) DeletePoint(ctx context.Context, id int64) error {
	s.writeMu.Lock()
	defer s.writeMu.Unlock()

	images, err := s.images.ListByPointID(ctx, id)
	if err != nil {
		return err
	}
	if err := s.points.Delete(ctx, id); err != nil {
		return err
	}

	if s.listener != nil {
		s.listener.OnPointDeleted(id)
	}
	s.publish(ctx)
	s.logger.Info("point deleted", "point_id", id, "images", len(images))

	for _, img := range images {
		s.removeFile(ctx, img)
	}
	return nil
}

func (s *PointService) ListImages(ctx context.Context, pointID int64) ([]domain.Image, error) {
	return s.images.ListByPointID(ctx, pointID)
}

func (s *PointService) GetImage(ctx context.Context, id int64) (*domain.Image, error) {
	img, err := s.images.GetByID(ctx, id)
	if err != nil {
		return nil, err
	}
	if img == nil {
		return nil, domain.ErrImageNotFound
	}
	return img, nil
}

// AddImage attaches an external image URI to a point. It fails with
// domain.ErrReference when the point does not exist.
func (s *PointService) AddImage(ctx context.Context, pointID int64, uri string) (*domain.Image, error) {
	uri = strings.TrimSpace(uri)
	if uri == "" {
		return nil, fmt.Errorf("%w: image uri is required", domain.ErrValidation)
	}
	s.writeMu.Lock()
	img, err := s.images.Create(ctx, pointID, uri)
	s.writeMu.Unlock()
	if err != nil {
		return nil, err
	}
	s.logger.Info("image added", "point_id", pointID, "image_id", img.ID)
	return img, nil
}

// UploadImage stores the bytes from r and attaches them to the point. The
// bytes are written before the lock is taken; the insert re-checks the point
// under it, and the file is removed when the point is gone by then.
func (s *PointService) UploadImage(ctx context.Context, pointID int64, mimeType string, r io.Reader) (*domain.Image, error) {
	p, err := s.points.GetByID(ctx, pointID)
	if err != nil {
		return nil, err
	}
	if p == nil {
		return nil, domain.ErrReference
	}

	key, err := s.files.Save(ctx, fmt.Sprintf("point_%d", pointID), mimeType, r)
	if err != nil {
		return nil, fmt.Errorf("failed to save image: %w", err)
	}
	s.logger.Debug("image saved", "point_id", pointID, "storage_key", key)

	s.writeMu.Lock()
	img, err := s.images.Create(ctx, pointID, imagestore.LocalURI(key))
	s.writeMu.Unlock()
	if err != nil {
		if derr := s.files.Delete(ctx, key); derr != nil {
			s.logger.Error("failed to remove image file after insert error", "storage_key", key, "error", derr)
		}
		return nil, err
	}
	s.logger.Info("image uploaded", "point_id", pointID, "image_id", img.ID, "mime_type", mimeType)
	return img, nil
}

// DeleteImage is idempotent.
func (s *PointService) DeleteImage(ctx context.Context, id int64) error {
	img, err := s.images.GetByID(ctx, id)
	if err != nil {
		return err
	}
	if img == nil {
		return nil
	}
	if err := s.images.Delete(ctx, id); err != nil {
		return err
	}
	s.removeFile(ctx, *img)
	return nil
}

// OpenImage returns the stored bytes of a locally uploaded image and their
// MIME type. The caller must close the reader.
func (s *PointService) OpenImage(ctx context.Context, id int64) (io.ReadCloser, string, error) {
	img, err := s.GetImage(ctx, id)
	if err != nil {
		return nil, "", err
	}
	key, ok := imagestore.KeyFromURI(img.URI)
	if !ok {
		return nil, "", ErrNotLocal
	}
	rc, mimeType, err := s.files.Get(ctx, key)
	if err != nil {
		if errors.Is(err, imagestore.ErrNotFound) {
			return nil, "", domain.ErrImageNotFound
		}
		return nil, "", fmt.Errorf("failed to open image: %w", err)
	}
	return rc, mimeType, nil
}

// publish hands the current point set to the listener. A failed reload keeps
// the listener's previous set; deletions are delivered separately and do not
// depend on it.
func (s *PointService) publish(ctx context.Context) {
	if s.listener == nil {
		return
	}
	points, err := s.points.List(ctx)
	if err != nil {
		s.logger.Warn("failed to reload points for proximity", "error", err)
		return
	}
	s.listener.OnPointSetChanged(points)
}

func (s *PointService) removeFile(ctx context.Context, img domain.Image) {
	key, ok := imagestore.KeyFromURI(img.URI)
	if !ok {
		return
	}
	if err := s.files.Delete(ctx, key); err != nil {
		s.logger.Error("failed to delete image file", "image_id", img.ID, "storage_key", key, "error", err)
	}
}
