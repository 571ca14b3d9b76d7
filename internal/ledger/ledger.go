// Package ledger keeps an append-only record of finished compositions in a
// SQLite database.
package ledger

import (
	"database/sql"
	"embed"
	"os"
	"path/filepath"
	"strings"
	"time"

	"betra/internal/errors"
	"betra/internal/log"

	"github.com/google/uuid"
	_ "github.com/mattn/go-sqlite3"
)

//go:embed db/schema.sql
var dbFS embed.FS

// Timestamps are stored in UTC with a fixed width so they sort as text.
const timeLayout = "2006-01-02T15:04:05.000000000Z07:00"

// Record is one ledger line.
type Record struct {
	ID         string
	Identifier string    // Caller-chosen name of the composition
	Timestamp  time.Time // When the composition was written
	Output     string    // Output document name
}

// Ledger is an open ledger database.
type Ledger struct {
	db *sql.DB
}

// Open opens or creates the ledger at path. An empty path opens an
// in-memory ledger.
func Open(path string) (*Ledger, error) {
	dsn := path
	if dsn == "" {
		dsn = ":memory:"
	} else if err := os.MkdirAll(filepath.Dir(path), 0755); err != nil {
		return nil, errors.NewLedgerError("failed to create ledger directory", err)
	}

	db, err := sql.Open("sqlite3", dsn)
	if err != nil {
		return nil, errors.NewLedgerError("failed to open ledger database", err)
	}
	// An in-memory database lives in a single connection
	db.SetMaxOpenConns(1)

	schemaSQL, err := dbFS.ReadFile("db/schema.sql")
	if err != nil {
		db.Close()
		return nil, errors.NewLedgerError("failed to read ledger schema", err)
	}
	if _, err := db.Exec(string(schemaSQL)); err != nil {
		db.Close()
		return nil, errors.NewLedgerError("failed to initialize ledger schema", err)
	}

	log.LogWithFields(log.F("path", dsn)).Debug("ledger opened")
	return &Ledger{db: db}, nil
}

// Close closes the database connection
func (l *Ledger) Close() error {
	return l.db.Close()
}

// Append records a composition. A zero timestamp means now.
func (l *Ledger) Append(identifier string, timestamp time.Time, output string) (*Record, error) {
	identifier = strings.TrimSpace(identifier)
	if identifier == "" {
		return nil, errors.NewLedgerError("identifier is required", nil)
	}
	if output == "" {
		return nil, errors.NewLedgerError("output name is required", nil)
	}
	if timestamp.IsZero() {
		timestamp = time.Now()
	}

	rec := &Record{
		ID:         uuid.New().String(),
		Identifier: identifier,
		Timestamp:  timestamp.UTC(),
		Output:     output,
	}

	query := `
		INSERT INTO compositions (id, identifier, timestamp, output)
		VALUES (?, ?, ?, ?)
	`
	if _, err := l.db.Exec(query, rec.ID, rec.Identifier, rec.Timestamp.Format(timeLayout), rec.Output); err != nil {
		return nil, errors.NewLedgerError("failed to append ledger record", err)
	}

	log.LogWithFields(log.F("identifier", identifier), log.F("output", output)).Debug("ledger record appended")
	return rec, nil
}

// List returns up to limit records, newest first. A limit of zero or less
// returns every record.
func (l *Ledger) List(limit int) ([]*Record, error) {
	if limit <= 0 {
		limit = -1
	}

	query := `
		SELECT id, identifier, timestamp, output
		FROM compositions
		ORDER BY timestamp DESC, seq DESC
		LIMIT ?
	`
	rows, err := l.db.Query(query, limit)
	if err != nil {
		return nil, errors.NewLedgerError("failed to query ledger", err)
	}
	defer rows.Close()

	var records []*Record
	for rows.Next() {
		var rec Record
		var ts string
		if err := rows.Scan(&rec.ID, &rec.Identifier, &ts, &rec.Output); err != nil {
			return nil, errors.NewLedgerError("failed to scan ledger record", err)
		}
		if rec.Timestamp, err = time.Parse(timeLayout, ts); err != nil {
			return nil, errors.NewLedgerError("invalid ledger timestamp "+ts, err)
		}
		records = append(records, &rec)
	}
	if err := rows.Err(); err != nil {
		return nil, errors.NewLedgerError("failed to read ledger", err)
	}
	return records, nil
}
