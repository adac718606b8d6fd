package sqlite

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"io/fs"
	"time"

	"github.com/artpar/schemata/ports"
)

// Documents implements ports.FileStore using the documents table.
// Paths are opaque keys.
type Documents struct {
	db    *DB
	clock ports.Clock
}

// NewDocuments creates a document store stamping writes with clock.
func NewDocuments(db *DB, clock ports.Clock) *Documents {
	return &Documents{db: db, clock: clock}
}

// ReadFile returns the body stored at path.
func (s *Documents) ReadFile(ctx context.Context, path string) ([]byte, error) {
	var body []byte
	err := s.db.QueryRowContext(ctx,
		`SELECT body FROM documents WHERE path = ?`,
		path,
	).Scan(&body)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, fmt.Errorf("read %s: %w", path, fs.ErrNotExist)
		}
		return nil, fmt.Errorf("read %s: %w", path, err)
	}
	return body, nil
}

// WriteFile stores or replaces the body at path.
func (s *Documents) WriteFile(ctx context.Context, path string, data []byte) error {
	if data == nil {
		data = []byte{}
	}
	_, err := s.db.ExecContext(ctx,
		`INSERT INTO documents (path, body, updated_at)
		VALUES (?, ?, ?)
		ON CONFLICT(path) DO UPDATE SET
			body = excluded.body,
			updated_at = excluded.updated_at`,
		path, data, s.clock.Now().UTC().Format(time.RFC3339Nano),
	)
	if err != nil {
		return fmt.Errorf("write %s: %w", path, err)
	}
	return nil
}

// Delete removes the document at path. Deleting a missing document is not an error.
func (s *Documents) Delete(ctx context.Context, path string) error {
	_, err := s.db.ExecContext(ctx, `DELETE FROM documents WHERE path = ?`, path)
	return err
}

// List returns the documents whose path starts with prefix, sorted by path.
func (s *Documents) List(ctx context.Context, prefix string) ([]ports.DocumentInfo, error) {
	rows, err := s.db.QueryContext(ctx,
		`SELECT path, length(body), updated_at FROM documents
		WHERE substr(path, 1, ?) = ?
		ORDER BY path`,
		len(prefix), prefix,
	)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var docs []ports.DocumentInfo
	for rows.Next() {
		var info ports.DocumentInfo
		var updatedAt string
		if err := rows.Scan(&info.Path, &info.Size, &updatedAt); err != nil {
			return nil, err
		}
		info.UpdatedAt, _ = time.Parse(time.RFC3339Nano, updatedAt)
		docs = append(docs, info)
	}
	return docs, rows.Err()
}

// Count returns the number of stored documents whose path starts with prefix.
func (s *Documents) Count(ctx context.Context, prefix string) (int, error) {
	var n int
	err := s.db.QueryRowContext(ctx,
		`SELECT COUNT(*) FROM documents WHERE substr(path, 1, ?) = ?`,
		len(prefix), prefix,
	).Scan(&n)
	return n, err
}

// Ensure interface compliance.
var (
	_ ports.FileStore      = (*Documents)(nil)
	_ ports.DocumentLister = (*Documents)(nil)
)
