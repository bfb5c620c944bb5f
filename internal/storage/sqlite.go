package storage

import (
	"context"
	"database/sql"
	"fmt"

	_ "github.com/mattn/go-sqlite3"

	"github.com/starford/jotter/internal/apperr"
	"github.com/starford/jotter/internal/models"
)

const sqliteSchemaSQL = `
CREATE TABLE IF NOT EXISTS notes (
	seq  INTEGER PRIMARY KEY AUTOINCREMENT,
	id   INTEGER NOT NULL,
	body TEXT    NOT NULL
);

CREATE INDEX IF NOT EXISTS idx_notes_id ON notes(id);
`

// SQLite implements Store on an embedded SQLite database.
// Each note is one row; stored order is insertion order (seq).
type SQLite struct {
	conn *sql.DB
}

var _ Store = (*SQLite)(nil)

// OpenSQLite opens (or creates) the database at path and applies the schema.
func OpenSQLite(path string) (*SQLite, error) {
	// _txlock=immediate takes the write lock at BEGIN, so two writers can
	// never both read the same MAX(id).
	conn, err := sql.Open("sqlite3", path+"?_journal_mode=WAL&_busy_timeout=5000&_txlock=immediate")
	if err != nil {
		return nil, fmt.Errorf("storage: open db: %w", err)
	}
	if err := conn.Ping(); err != nil {
		conn.Close()
		return nil, fmt.Errorf("storage: ping: %w", err)
	}
	if _, err := conn.Exec(sqliteSchemaSQL); err != nil {
		conn.Close()
		return nil, fmt.Errorf("storage: apply schema: %w", err)
	}
	return &SQLite{conn: conn}, nil
}

// List returns every note ordered by insertion.
func (s *SQLite) List(ctx context.Context) (models.Collection, error) {
	rows, err := s.conn.QueryContext(ctx, `SELECT body FROM notes ORDER BY seq`)
	if err != nil {
		return nil, apperr.IO("storage: query notes", err)
	}
	defer rows.Close()

	notes := models.Collection{}
	for rows.Next() {
		var body string
		if err := rows.Scan(&body); err != nil {
			return nil, apperr.IO("storage: scan note", err)
		}
		n, err := models.ParseNote([]byte(body))
		if err != nil {
			return nil, apperr.Parse("storage: decode note", err)
		}
		notes = append(notes, n)
	}
	if err := rows.Err(); err != nil {
		return nil, apperr.IO("storage: iterate notes", err)
	}
	return notes, nil
}

// Create assigns MAX(id)+1 and inserts the note inside one transaction.
func (s *SQLite) Create(ctx context.Context, payload *models.Note) (*models.Note, error) {
	tx, err := s.conn.BeginTx(ctx, nil)
	if err != nil {
		return nil, apperr.IO("storage: begin tx", err)
	}
	defer tx.Rollback() //nolint:errcheck // no-op after commit

	var maxID int64
	if err := tx.QueryRowContext(ctx, `SELECT COALESCE(MAX(id), 0) FROM notes WHERE id > 0`).Scan(&maxID); err != nil {
		return nil, apperr.IO("storage: max id", err)
	}

	id, err := models.NextAfter(maxID)
	if err != nil {
		return nil, apperr.Exhausted("storage: create note", err)
	}
	note := payload.Clone()
	note.SetID(id)
	body, err := note.MarshalJSON()
	if err != nil {
		return nil, apperr.IO("storage: encode note", err)
	}

	if _, err := tx.ExecContext(ctx, `INSERT INTO notes (id, body) VALUES (?, ?)`, id, string(body)); err != nil {
		return nil, apperr.IO("storage: insert note", err)
	}
	if err := tx.Commit(); err != nil {
		return nil, apperr.IO("storage: commit", err)
	}
	return note, nil
}

// Remove deletes all rows with the given id.
func (s *SQLite) Remove(ctx context.Context, id int64) error {
	if _, err := s.conn.ExecContext(ctx, `DELETE FROM notes WHERE id = ?`, id); err != nil {
		return apperr.IO("storage: delete note", err)
	}
	return nil
}

// Close closes the underlying database connection.
func (s *SQLite) Close() error {
	return s.conn.Close()
}
