package sqlite

import (
	"context"
	"database/sql"
	"embed"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"time"

	_ "modernc.org/sqlite" // SQLite driver

	"github.com/scieloorg/doaj-exporter/internal/adapters/driven/storage/sqlite/migrations"
	"github.com/scieloorg/doaj-exporter/internal/core/domain"
	"github.com/scieloorg/doaj-exporter/internal/core/ports/driven"
)

// Store is the SQLite-backed persistence layer of the exporter.
type Store struct {
	db   *sql.DB
	path string
}

// NewStore creates a new SQLite store at the specified data directory.
// If dataDir is empty, defaults to ~/.doaj-exporter/data/mappings.db.
func NewStore(dataDir string) (*Store, error) {
	if dataDir == "" {
		home, err := os.UserHomeDir()
		if err != nil {
			return nil, fmt.Errorf("getting home directory: %w", err)
		}
		dataDir = filepath.Join(home, ".doaj-exporter", "data")
	}

	if err := os.MkdirAll(dataDir, 0700); err != nil {
		return nil, fmt.Errorf("creating data directory: %w", err)
	}

	dbPath := filepath.Join(dataDir, "mappings.db")

	// Open database with WAL mode for better concurrency
	db, err := sql.Open("sqlite", dbPath+"?_pragma=journal_mode(WAL)&_pragma=busy_timeout(5000)")
	if err != nil {
		return nil, fmt.Errorf("opening database: %w", err)
	}

	s := &Store{
		db:   db,
		path: dbPath,
	}

	if err := s.migrate(migrations.FS); err != nil {
		db.Close()
		return nil, fmt.Errorf("running migrations: %w", err)
	}

	return s, nil
}

// Close closes the database connection.
func (s *Store) Close() error {
	return s.db.Close()
}

// Path returns the database file path.
func (s *Store) Path() string {
	return s.path
}

// MappingStore returns a MappingStore interface backed by this store.
func (s *Store) MappingStore() driven.MappingStore {
	return &mappingStore{store: s}
}

// migrate runs all pending migrations.
func (s *Store) migrate(fsys embed.FS) error {
	_, err := s.db.Exec(`
		CREATE TABLE IF NOT EXISTS schema_migrations (
			version INTEGER PRIMARY KEY,
			applied_at DATETIME DEFAULT CURRENT_TIMESTAMP
		)
	`)
	if err != nil {
		return fmt.Errorf("creating schema_migrations table: %w", err)
	}

	var currentVersion int
	row := s.db.QueryRow("SELECT COALESCE(MAX(version), 0) FROM schema_migrations")
	if err := row.Scan(&currentVersion); err != nil {
		return fmt.Errorf("getting current version: %w", err)
	}

	entries, err := fs.ReadDir(fsys, ".")
	if err != nil {
		return fmt.Errorf("reading migrations directory: %w", err)
	}

	var upFiles []string
	for _, entry := range entries {
		name := entry.Name()
		if strings.HasSuffix(name, ".up.sql") {
			upFiles = append(upFiles, name)
		}
	}
	sort.Strings(upFiles)

	for _, name := range upFiles {
		// Extract version number (e.g., "001_initial.up.sql" -> 1)
		var version int
		if _, err := fmt.Sscanf(name, "%d_", &version); err != nil {
			continue
		}

		if version <= currentVersion {
			continue
		}

		content, err := fs.ReadFile(fsys, name)
		if err != nil {
			return fmt.Errorf("reading migration %s: %w", name, err)
		}

		if _, err := s.db.Exec(string(content)); err != nil {
			return fmt.Errorf("executing migration %s: %w", name, err)
		}

		if _, err := s.db.Exec("INSERT INTO schema_migrations (version) VALUES (?)", version); err != nil {
			return fmt.Errorf("recording migration %s: %w", name, err)
		}
	}

	return nil
}

// mappingStore implements driven.MappingStore.
type mappingStore struct {
	store *Store
}

var _ driven.MappingStore = (*mappingStore)(nil)

// Save stores or updates a mapping. The creation time of an existing row is
// preserved; only updated_at moves.
func (s *mappingStore) Save(ctx context.Context, mapping domain.Mapping) error {
	if mapping.PID == "" {
		return fmt.Errorf("%w: mapping PID is empty", domain.ErrInvalidInput)
	}

	now := time.Now().UTC()
	if mapping.CreatedAt.IsZero() {
		mapping.CreatedAt = now
	}
	mapping.UpdatedAt = now

	_, err := s.store.db.ExecContext(ctx, `
		INSERT INTO mappings (pid, issn, collection, destination_id, content_hash, created_at, updated_at)
		VALUES (?, ?, ?, ?, ?, ?, ?)
		ON CONFLICT(pid) DO UPDATE SET
			issn = excluded.issn,
			collection = excluded.collection,
			destination_id = excluded.destination_id,
			content_hash = excluded.content_hash,
			updated_at = excluded.updated_at
	`, mapping.PID, mapping.ISSN, mapping.Collection, mapping.DestinationID,
		mapping.ContentHash, mapping.CreatedAt, mapping.UpdatedAt)

	if err != nil {
		return fmt.Errorf("saving mapping: %w", err)
	}
	return nil
}

// Get retrieves a mapping by PID.
func (s *mappingStore) Get(ctx context.Context, pid string) (*domain.Mapping, error) {
	row := s.store.db.QueryRowContext(ctx, `
		SELECT pid, issn, collection, destination_id, content_hash, created_at, updated_at
		FROM mappings WHERE pid = ?
	`, pid)

	var mapping domain.Mapping
	var createdAt, updatedAt sql.NullTime
	if err := row.Scan(&mapping.PID, &mapping.ISSN, &mapping.Collection,
		&mapping.DestinationID, &mapping.ContentHash, &createdAt, &updatedAt); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, domain.ErrNotFound
		}
		return nil, fmt.Errorf("scanning mapping: %w", err)
	}

	if createdAt.Valid {
		mapping.CreatedAt = createdAt.Time
	}
	if updatedAt.Valid {
		mapping.UpdatedAt = updatedAt.Time
	}

	return &mapping, nil
}

// Delete removes a mapping. Deleting an absent PID is not an error.
func (s *mappingStore) Delete(ctx context.Context, pid string) error {
	_, err := s.store.db.ExecContext(ctx, "DELETE FROM mappings WHERE pid = ?", pid)
	if err != nil {
		return fmt.Errorf("deleting mapping: %w", err)
	}
	return nil
}

// List returns all mappings ordered by PID.
func (s *mappingStore) List(ctx context.Context) ([]domain.Mapping, error) {
	rows, err := s.store.db.QueryContext(ctx, `
		SELECT pid, issn, collection, destination_id, content_hash, created_at, updated_at
		FROM mappings ORDER BY pid
	`)
	if err != nil {
		return nil, fmt.Errorf("querying mappings: %w", err)
	}
	defer rows.Close()

	var mappings []domain.Mapping //nolint:prealloc // size unknown from query
	for rows.Next() {
		var mapping domain.Mapping
		var createdAt, updatedAt sql.NullTime
		if err := rows.Scan(&mapping.PID, &mapping.ISSN, &mapping.Collection,
			&mapping.DestinationID, &mapping.ContentHash, &createdAt, &updatedAt); err != nil {
			return nil, fmt.Errorf("scanning mapping: %w", err)
		}

		if createdAt.Valid {
			mapping.CreatedAt = createdAt.Time
		}
		if updatedAt.Valid {
			mapping.UpdatedAt = updatedAt.Time
		}
		mappings = append(mappings, mapping)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterating mappings: %w", err)
	}

	return mappings, nil
}
