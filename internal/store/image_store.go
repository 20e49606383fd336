package store

import (
	"context"
	"database/sql"
	"errors"
	"time"

	"github.com/vbonduro/nearby/internal/domain"
)

type ImageStore struct {
	db  *sql.DB
	now func() time.Time
}

func NewImageStore(db *sql.DB) *ImageStore {
	return &ImageStore{db: db, now: utcNow}
}

// Create attaches uri to pointID. It returns domain.ErrReference when the
// point does not exist; the existence check and the insert are one statement.
func (s *ImageStore) Create(ctx context.Context, pointID int64, uri string) (*domain.Image, error) {
	img := &domain.Image{PointID: pointID, URI: uri, CreatedAt: s.now()}

	result, err := s.db.ExecContext(ctx, `
		INSERT INTO images (point_id, uri, created_at)
		SELECT ?, ?, ? WHERE EXISTS (SELECT 1 FROM points WHERE id = ?)
	`, img.PointID, img.URI, img.CreatedAt, pointID)
	if err != nil {
		if isForeignKeyViolation(err) {
			return nil, domain.ErrReference
		}
		return nil, storageErr("create image", err)
	}

	rowsAffected, err := result.RowsAffected()
	if err != nil {
		return nil, storageErr("get rows affected", err)
	}
	if rowsAffected == 0 {
		return nil, domain.ErrReference
	}

	img.ID, err = result.LastInsertId()
	if err != nil {
		return nil, storageErr("get last insert id", err)
	}
	return img, nil
}

// GetByID returns the image or (nil, nil) when it does not exist.
func (s *ImageStore) GetByID(ctx context.Context, id int64) (*domain.Image, error) {
	img := &domain.Image{}
	err := s.db.QueryRowContext(ctx, `
		SELECT id, point_id, uri, created_at FROM images WHERE id = ?
	`, id).Scan(&img.ID, &img.PointID, &img.URI, &img.CreatedAt)

	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, storageErr("get image", err)
	}
	return img, nil
}

// ListByPointID returns the point's images, newest first. An unknown point
// simply has no images.
func (s *ImageStore) ListByPointID(ctx context.Context, pointID int64) ([]domain.Image, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT id, point_id, uri, created_at FROM images
		WHERE point_id = ? ORDER BY created_at DESC, id DESC
	`, pointID)
	if err != nil {
		return nil, storageErr("list images", err)
	}
	defer closeRows(rows)

	images := []domain.Image{}
	for rows.Next() {
		var img domain.Image
		if err := rows.Scan(&img.ID, &img.PointID, &img.URI, &img.CreatedAt); err != nil {
			return nil, storageErr("scan image", err)
		}
		images = append(images, img)
	}
	if err := rows.Err(); err != nil {
		return nil, storageErr("list images", err)
	}
	return images, nil
}

// Delete removes an image. Deleting a missing image is a no-op.
func (s *ImageStore) Delete(ctx context.Context, id int64) error {
	if _, err := s.db.ExecContext(ctx, `DELETE FROM images WHERE id = ?`, id); err != nil {
		return storageErr("delete image", err)
	}
	return nil
}
