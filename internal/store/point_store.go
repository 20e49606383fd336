package store

import (
	"context"
	"database/sql"
	"errors"
	"strings"
	"time"

	"github.com/vbonduro/nearby/internal/domain"
)

type PointStore struct {
	db  *sql.DB
	now func() time.Time
}

func NewPointStore(db *sql.DB) *PointStore {
	return &PointStore{db: db, now: utcNow}
}

// Create inserts a new point. Empty label and color are replaced with the
// domain defaults.
func (s *PointStore) Create(ctx context.Context, lat, lng float64, label, color string) (*domain.Point, error) {
	p := &domain.Point{
		Latitude:  lat,
		Longitude: lng,
		Label:     domain.NormalizeLabel(label),
		Color:     domain.NormalizeColor(color),
		CreatedAt: s.now(),
	}

	result, err := s.db.ExecContext(ctx, `
		INSERT INTO points (latitude, longitude, label, color, created_at) VALUES (?, ?, ?, ?, ?)
	`, p.Latitude, p.Longitude, p.Label, p.Color, p.CreatedAt)
	if err != nil {
		return nil, storageErr("create point", err)
	}

	p.ID, err = result.LastInsertId()
	if err != nil {
		return nil, storageErr("get last insert id", err)
	}
	return p, nil
}

// GetByID returns the point or (nil, nil) when it does not exist.
func (s *PointStore) GetByID(ctx context.Context, id int64) (*domain.Point, error) {
	p := &domain.Point{}
	err := s.db.QueryRowContext(ctx, `
		SELECT id, latitude, longitude, label, color, created_at FROM points WHERE id = ?
	`, id).Scan(&p.ID, &p.Latitude, &p.Longitude, &p.Label, &p.Color, &p.CreatedAt)

	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, storageErr("get point", err)
	}
	return p, nil
}

// List returns every point, newest first. The result is read in a single
// statement so it is always one consistent snapshot.
func (s *PointStore) List(ctx context.Context) ([]domain.Point, error) {
	return s.query(ctx, "list points", `
		SELECT id, latitude, longitude, label, color, created_at FROM points
		ORDER BY created_at DESC, id DESC
	`)
}

// Search returns points whose label contains query, case-insensitively.
// LIKE wildcards in query match literally.
func (s *PointStore) Search(ctx context.Context, query string) ([]domain.Point, error) {
	pattern := "%" + likeEscaper.Replace(strings.ToLower(query)) + "%"
	return s.query(ctx, "search points", `
		SELECT id, latitude, longitude, label, color, created_at FROM points
		WHERE LOWER(label) LIKE ? ESCAPE '\'
		ORDER BY created_at DESC, id DESC
	`, pattern)
}

var likeEscaper = strings.NewReplacer(`\`, `\\`, `%`, `\%`, `_`, `\_`)

func (s *PointStore) query(ctx context.Context, op, q string, args ...any) ([]domain.Point, error) {
	rows, err := s.db.QueryContext(ctx, q, args...)
	if err != nil {
		return nil, storageErr(op, err)
	}
	defer closeRows(rows)

	points := []domain.Point{}
	for rows.Next() {
		var p domain.Point
		if err := rows.Scan(&p.ID, &p.Latitude, &p.Longitude, &p.Label, &p.Color, &p.CreatedAt); err != nil {
			return nil, storageErr("scan point", err)
		}
		points = append(points, p)
	}
	if err := rows.Err(); err != nil {
		return nil, storageErr(op, err)
	}
	return points, nil
}

// Update changes a point's label and color. Coordinates and created_at are
// immutable.
func (s *PointStore) Update(ctx context.Context, id int64, label, color string) error {
	result, err := s.db.ExecContext(ctx, `
		UPDATE points SET label = ?, color = ? WHERE id = ?
	`, domain.NormalizeLabel(label), domain.NormalizeColor(color), id)
	if err != nil {
		return storageErr("update point", err)
	}

	rowsAffected, err := result.RowsAffected()
	if err != nil {
		return storageErr("get rows affected", err)
	}
	if rowsAffected == 0 {
		return domain.ErrPointNotFound
	}
	return nil
}

// Delete removes the point and, through the foreign key cascade, all of its
// images in the same statement. Deleting a missing point is a no-op.
func (s *PointStore) Delete(ctx context.Context, id int64) error {
	if _, err := s.db.ExecContext(ctx, `DELETE FROM points WHERE id = ?`, id); err != nil {
		return storageErr("delete point", err)
	}
	return nil
}
