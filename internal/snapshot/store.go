// Package snapshot persists named wrapped cluster trees in SQLite.
package snapshot

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"

	"github.com/mattjoyce/msgcluster/internal/cluster"
	"github.com/mattjoyce/msgcluster/internal/codec"
)

// DefaultMaxBytes caps the encoded size of a single snapshot.
const DefaultMaxBytes = 8 << 20

var (
	ErrNotFound       = errors.New("snapshot not found")
	ErrDigestMismatch = errors.New("snapshot digest mismatch")
	ErrTooLarge       = errors.New("snapshot exceeds max size")
)

// Entry describes a stored snapshot without its body.
type Entry struct {
	Name      string    `json:"name"`
	ID        string    `json:"id"`
	RootType  int       `json:"root_type"`
	Digest    string    `json:"digest"`
	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`
}

type Store struct {
	db       *sql.DB
	maxBytes int
	now      func() time.Time
}

func NewStore(db *sql.DB) *Store {
	return &Store{
		db:       db,
		maxBytes: DefaultMaxBytes,
		now:      func() time.Time { return time.Now().UTC() },
	}
}

// Save stores w under name, replacing any previous snapshot with that name.
// Every save gets a fresh id; created_at is kept across replacements.
func (s *Store) Save(ctx context.Context, name string, w cluster.Wrapped) (Entry, error) {
	if name == "" {
		return Entry{}, fmt.Errorf("snapshot name is empty")
	}

	body, err := codec.Marshal(codec.JSON, w)
	if err != nil {
		return Entry{}, err
	}
	if len(body) > s.maxBytes {
		return Entry{}, fmt.Errorf("%w (%d > %d bytes)", ErrTooLarge, len(body), s.maxBytes)
	}
	digest, err := codec.Digest(w)
	if err != nil {
		return Entry{}, err
	}

	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return Entry{}, fmt.Errorf("begin tx: %w", err)
	}
	defer func() { _ = tx.Rollback() }()

	now := s.now()
	created := now
	var createdRaw string
	err = tx.QueryRowContext(ctx, "SELECT created_at FROM snapshots WHERE name = ?;", name).Scan(&createdRaw)
	switch {
	case errors.Is(err, sql.ErrNoRows):
	case err != nil:
		return Entry{}, fmt.Errorf("read snapshot: %w", err)
	default:
		if created, err = parseTime(createdRaw); err != nil {
			return Entry{}, err
		}
	}

	e := Entry{
		Name:      name,
		ID:        uuid.NewString(),
		RootType:  w.Type,
		Digest:    digest,
		CreatedAt: created,
		UpdatedAt: now,
	}
	_, err = tx.ExecContext(ctx, `
INSERT INTO snapshots(name, id, root_type, digest, body, created_at, updated_at)
VALUES(?, ?, ?, ?, ?, ?, ?)
ON CONFLICT(name) DO UPDATE SET
  id = excluded.id,
  root_type = excluded.root_type,
  digest = excluded.digest,
  body = excluded.body,
  updated_at = excluded.updated_at;
`, e.Name, e.ID, e.RootType, e.Digest, string(body), formatTime(e.CreatedAt), formatTime(e.UpdatedAt))
	if err != nil {
		return Entry{}, fmt.Errorf("upsert snapshot: %w", err)
	}

	if err := tx.Commit(); err != nil {
		return Entry{}, fmt.Errorf("commit tx: %w", err)
	}
	return e, nil
}

// Load returns the snapshot stored under name. The body is checked against
// the recorded digest before it is returned.
func (s *Store) Load(ctx context.Context, name string) (cluster.Wrapped, Entry, error) {
	var (
		e                Entry
		body             string
		created, updated string
	)
	err := s.db.QueryRowContext(ctx, `
SELECT name, id, root_type, digest, body, created_at, updated_at
FROM snapshots WHERE name = ?;`, name).Scan(&e.Name, &e.ID, &e.RootType, &e.Digest, &body, &created, &updated)
	if errors.Is(err, sql.ErrNoRows) {
		return cluster.Wrapped{}, Entry{}, fmt.Errorf("%w: %q", ErrNotFound, name)
	}
	if err != nil {
		return cluster.Wrapped{}, Entry{}, fmt.Errorf("read snapshot: %w", err)
	}
	if err := e.setTimes(created, updated); err != nil {
		return cluster.Wrapped{}, Entry{}, err
	}

	w, err := codec.Unmarshal([]byte(body), codec.JSON)
	if err != nil {
		return cluster.Wrapped{}, Entry{}, fmt.Errorf("decode snapshot %q: %w", name, err)
	}
	digest, err := codec.Digest(w)
	if err != nil {
		return cluster.Wrapped{}, Entry{}, err
	}
	if digest != e.Digest {
		return cluster.Wrapped{}, Entry{}, fmt.Errorf("%w: %q", ErrDigestMismatch, name)
	}
	return w, e, nil
}

// List returns all snapshots, most recently updated first.
func (s *Store) List(ctx context.Context) ([]Entry, error) {
	rows, err := s.db.QueryContext(ctx, `
SELECT name, id, root_type, digest, created_at, updated_at
FROM snapshots ORDER BY updated_at DESC, name ASC;`)
	if err != nil {
		return nil, fmt.Errorf("list snapshots: %w", err)
	}
	defer rows.Close()

	var out []Entry
	for rows.Next() {
		var (
			e                Entry
			created, updated string
		)
		if err := rows.Scan(&e.Name, &e.ID, &e.RootType, &e.Digest, &created, &updated); err != nil {
			return nil, fmt.Errorf("scan snapshot: %w", err)
		}
		if err := e.setTimes(created, updated); err != nil {
			return nil, err
		}
		out = append(out, e)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("list snapshots: %w", err)
	}
	return out, nil
}

// Delete removes the snapshot stored under name.
func (s *Store) Delete(ctx context.Context, name string) error {
	res, err := s.db.ExecContext(ctx, "DELETE FROM snapshots WHERE name = ?;", name)
	if err != nil {
		return fmt.Errorf("delete snapshot: %w", err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("delete snapshot: %w", err)
	}
	if n == 0 {
		return fmt.Errorf("%w: %q", ErrNotFound, name)
	}
	return nil
}

func (e *Entry) setTimes(created, updated string) error {
	var err error
	if e.CreatedAt, err = parseTime(created); err != nil {
		return err
	}
	e.UpdatedAt, err = parseTime(updated)
	return err
}

func formatTime(t time.Time) string { return t.UTC().Format(time.RFC3339Nano) }

func parseTime(raw string) (time.Time, error) {
	t, err := time.Parse(time.RFC3339Nano, raw)
	if err != nil {
		return time.Time{}, fmt.Errorf("parse snapshot time %q: %w", raw, err)
	}
	return t, nil
}
