package db

import (
	"crypto/sha256"
	"encoding/hex"
	"fmt"
	"io/fs"
	"path"
	"sort"
	"strings"
	"time"

	"github.com/jmoiron/sqlx"
)

/*
 * Schema migrations.
 *
 * Each driver has its own embedded directory of NNN_name.sql files, applied
 * in file name order. Every applied file is recorded with its SHA-256; a
 * recorded file whose checksum no longer matches, or that vanished from the
 * binary, stops the runner before anything else is applied. One migration and
 * its tracking row commit in a single transaction.
 */

// MigrationStatus represents the state of a single migration.
type MigrationStatus struct {
	ID          string
	Checksum    string
	Applied     bool
	AppliedAt   *time.Time
	ExecutionMs int64
}

// migration is one embedded schema file.
type migration struct {
	ID       string
	Checksum string
	SQL      string
}

// migrator runs the embedded migrations of one dialect against db.
type migrator struct {
	db      *sqlx.DB
	dialect dialect
}

func newMigrator(db *sqlx.DB) (*migrator, error) {
	d, err := dialectFor(db)
	if err != nil {
		return nil, err
	}
	if _, err := db.Exec(d.trackingTable); err != nil {
		return nil, fmt.Errorf("failed to create migrations table: %w", err)
	}
	return &migrator{db: db, dialect: d}, nil
}

// MigrateUp applies every pending migration and returns the IDs it applied.
func MigrateUp(db *sqlx.DB) ([]string, error) {
	m, err := newMigrator(db)
	if err != nil {
		return nil, err
	}
	files, err := m.files()
	if err != nil {
		return nil, err
	}
	applied, err := m.applied()
	if err != nil {
		return nil, err
	}
	if err := verify(files, applied); err != nil {
		return nil, fmt.Errorf("migration checksum validation failed: %w", err)
	}

	var ran []string
	for _, f := range files {
		if _, done := applied[f.ID]; done {
			continue
		}
		if err := m.apply(f); err != nil {
			return ran, err
		}
		ran = append(ran, f.ID)
	}
	return ran, nil
}

// MigrateStatus lists every embedded migration with its applied state.
func MigrateStatus(db *sqlx.DB) ([]MigrationStatus, error) {
	m, err := newMigrator(db)
	if err != nil {
		return nil, err
	}
	files, err := m.files()
	if err != nil {
		return nil, err
	}
	applied, err := m.applied()
	if err != nil {
		return nil, err
	}

	statuses := make([]MigrationStatus, 0, len(files))
	for _, f := range files {
		if s, ok := applied[f.ID]; ok {
			statuses = append(statuses, s)
			continue
		}
		statuses = append(statuses, MigrationStatus{ID: f.ID, Checksum: f.Checksum})
	}
	return statuses, nil
}

// files reads the dialect's embedded migrations in file name order.
func (m *migrator) files() ([]migration, error) {
	var files []migration
	err := fs.WalkDir(m.dialect.migrations, m.dialect.dir, func(p string, d fs.DirEntry, err error) error {
		if err != nil {
			return err
		}
		if d.IsDir() || !strings.HasSuffix(p, ".sql") {
			return nil
		}
		content, err := m.dialect.migrations.ReadFile(p)
		if err != nil {
			return fmt.Errorf("failed to read %s: %w", p, err)
		}
		sum := sha256.Sum256(content)
		files = append(files, migration{
			ID:       path.Base(p),
			Checksum: hex.EncodeToString(sum[:]),
			SQL:      string(content),
		})
		return nil
	})
	if err != nil {
		return nil, fmt.Errorf("failed to parse migrations: %w", err)
	}

	sort.Slice(files, func(i, j int) bool { return files[i].ID < files[j].ID })
	return files, nil
}

// applied returns the tracking rows keyed by migration ID.
func (m *migrator) applied() (map[string]MigrationStatus, error) {
	rows, err := m.db.Queryx("SELECT migration_id, checksum, applied_at, execution_ms FROM migrations")
	if err != nil {
		return nil, fmt.Errorf("failed to query applied migrations: %w", err)
	}
	defer rows.Close()

	applied := make(map[string]MigrationStatus)
	for rows.Next() {
		var (
			s         MigrationStatus
			appliedAt interface{}
		)
		if err := rows.Scan(&s.ID, &s.Checksum, &appliedAt, &s.ExecutionMs); err != nil {
			return nil, err
		}
		s.AppliedAt = parseAppliedAt(appliedAt)
		s.Applied = true
		applied[s.ID] = s
	}
	return applied, rows.Err()
}

// verify checks every recorded migration against the embedded files.
func verify(files []migration, applied map[string]MigrationStatus) error {
	embedded := make(map[string]string, len(files))
	for _, f := range files {
		embedded[f.ID] = f.Checksum
	}

	ids := make([]string, 0, len(applied))
	for id := range applied {
		ids = append(ids, id)
	}
	sort.Strings(ids)

	for _, id := range ids {
		want, ok := embedded[id]
		if !ok {
			return fmt.Errorf("migration %s exists in database but not in embedded files", id)
		}
		if got := applied[id].Checksum; got != want {
			return fmt.Errorf("checksum mismatch for migration %s: expected %s, got %s", id, want, got)
		}
	}
	return nil
}

// apply runs one migration and records it in the same transaction.
func (m *migrator) apply(f migration) error {
	start := time.Now()

	tx, err := m.db.Beginx()
	if err != nil {
		return fmt.Errorf("failed to begin transaction for migration %s: %w", f.ID, err)
	}
	defer tx.Rollback()

	// lib/pq rejects multi-statement Exec
	for _, stmt := range strings.Split(stripComments(f.SQL), ";") {
		stmt = strings.TrimSpace(stmt)
		if stmt == "" {
			continue
		}
		if _, err := tx.Exec(stmt); err != nil {
			return fmt.Errorf("failed to apply migration %s: %w", f.ID, err)
		}
	}

	_, err = tx.Exec(
		tx.Rebind("INSERT INTO migrations (migration_id, checksum, applied_at, execution_ms) VALUES (?, ?, ?, ?)"),
		f.ID, f.Checksum, m.dialect.appliedAt(time.Now()), time.Since(start).Milliseconds(),
	)
	if err != nil {
		return fmt.Errorf("failed to record migration %s: %w", f.ID, err)
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("failed to commit migration %s: %w", f.ID, err)
	}
	return nil
}

// stripComments drops full-line "--" comments so they do not hide the
// statement that follows them.
func stripComments(sql string) string {
	lines := strings.Split(sql, "\n")
	kept := lines[:0]
	for _, line := range lines {
		if strings.HasPrefix(strings.TrimSpace(line), "--") {
			continue
		}
		kept = append(kept, line)
	}
	return strings.Join(kept, "\n")
}

// parseAppliedAt normalizes applied_at: sqlite stores RFC3339 text,
// postgres returns a timestamp.
func parseAppliedAt(v interface{}) *time.Time {
	var s string
	switch t := v.(type) {
	case time.Time:
		return &t
	case string:
		s = t
	case []byte:
		s = string(t)
	default:
		return nil
	}
	parsed, err := time.Parse(time.RFC3339, s)
	if err != nil {
		return nil
	}
	return &parsed
}
