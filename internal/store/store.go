// Package store persists points of interest and their images in SQLite.
//
// Referential integrity is owned by the schema: images.point_id is a foreign
// key with ON DELETE CASCADE, so deleting a point and its images is a single
// statement and therefore a single durable transaction. Every mutation is one
// autocommit statement; SQLite serializes writers, so readers never observe a
// half-applied cascade.
package store

import (
	"database/sql"
	"errors"
	"log/slog"
	"time"

	"github.com/vbonduro/nearby/internal/domain"
	"modernc.org/sqlite"
	sqlite3 "modernc.org/sqlite/lib"
)

func storageErr(op string, err error) error {
	return &domain.StorageError{Op: op, Err: err}
}

// isForeignKeyViolation reports whether err is SQLite rejecting a row whose
// point_id does not reference a live point.
func isForeignKeyViolation(err error) bool {
	var se *sqlite.Error
	return errors.As(err, &se) && se.Code() == sqlite3.SQLITE_CONSTRAINT_FOREIGNKEY
}

func closeRows(rows *sql.Rows) {
	if err := rows.Close(); err != nil {
		slog.Error("failed to close rows", "error", err)
	}
}

func utcNow() time.Time { return time.Now().UTC() }
