package drafts

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	_ "modernc.org/sqlite"

	"github.com/voltclass/presenterd/internal/domain"
)

// Draft is a locally persisted working copy of a deck, written on
// autosave so an interrupted editing session can be picked up again
// before anything reached the backend.
type Draft struct {
	PresentationID string
	Title          string
	Slides         []*domain.Slide
	UpdatedAt      time.Time
}

var ErrDraftNotFound = errors.New("draft not found")

// Store keeps drafts in a local sqlite file, one row per presentation.
type Store struct {
	db *sql.DB
}

// Open opens (and creates if needed) the draft database at path.
func Open(path string) (*Store, error) {
	db, err := sql.Open("sqlite", path)
	if err != nil {
		return nil, fmt.Errorf("open draft db: %w", err)
	}
	if err := createSchema(db); err != nil {
		db.Close()
		return nil, err
	}
	return &Store{db: db}, nil
}

func (s *Store) Close() error {
	return s.db.Close()
}

// createSchema creates the draft table. Safe to call multiple times.
func createSchema(db *sql.DB) error {
	_, err := db.Exec(schema)
	if err != nil {
		return fmt.Errorf("create draft schema: %w", err)
	}
	return nil
}

const schema = `
CREATE TABLE IF NOT EXISTS draft (
    presentation_id TEXT PRIMARY KEY,
    title           TEXT NOT NULL,
    slides          TEXT NOT NULL,
    updated_at      TIMESTAMP NOT NULL
);
`

// Save upserts the draft for its presentation id.
func (s *Store) Save(ctx context.Context, d Draft) error {
	payload, err := json.Marshal(d.Slides)
	if err != nil {
		return fmt.Errorf("encode draft: %w", err)
	}
	if d.UpdatedAt.IsZero() {
		d.UpdatedAt = time.Now().UTC()
	}

	_, err = s.db.ExecContext(ctx, `
		INSERT INTO draft (presentation_id, title, slides, updated_at)
		VALUES (?, ?, ?, ?)
		ON CONFLICT(presentation_id) DO UPDATE SET
		    title = excluded.title,
		    slides = excluded.slides,
		    updated_at = excluded.updated_at`,
		d.PresentationID, d.Title, string(payload), d.UpdatedAt,
	)
	if err != nil {
		return fmt.Errorf("save draft: %w", err)
	}
	return nil
}

// Load returns the draft for the presentation, or ErrDraftNotFound.
func (s *Store) Load(ctx context.Context, presentationID string) (Draft, error) {
	row := s.db.QueryRowContext(ctx, `
		SELECT title, slides, updated_at FROM draft WHERE presentation_id = ?`,
		presentationID,
	)

	d := Draft{PresentationID: presentationID}
	var payload string
	if err := row.Scan(&d.Title, &payload, &d.UpdatedAt); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return Draft{}, ErrDraftNotFound
		}
		return Draft{}, fmt.Errorf("load draft: %w", err)
	}
	if err := json.Unmarshal([]byte(payload), &d.Slides); err != nil {
		return Draft{}, fmt.Errorf("decode draft: %w", err)
	}
	return d, nil
}

// Delete removes the draft, typically after a successful backend save.
// Deleting a missing draft is not an error.
func (s *Store) Delete(ctx context.Context, presentationID string) error {
	_, err := s.db.ExecContext(ctx,
		`DELETE FROM draft WHERE presentation_id = ?`, presentationID)
	if err != nil {
		return fmt.Errorf("delete draft: %w", err)
	}
	return nil
}

// List returns draft metadata (no slide payloads), newest first.
func (s *Store) List(ctx context.Context) ([]Draft, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT presentation_id, title, updated_at
		FROM draft ORDER BY updated_at DESC`)
	if err != nil {
		return nil, fmt.Errorf("list drafts: %w", err)
	}
	defer rows.Close()

	var out []Draft
	for rows.Next() {
		var d Draft
		if err := rows.Scan(&d.PresentationID, &d.Title, &d.UpdatedAt); err != nil {
			return nil, fmt.Errorf("list drafts: %w", err)
		}
		out = append(out, d)
	}
	return out, rows.Err()
}
