package remote

import (
	"context"
	"database/sql"
	"fmt"
	"sync"

	_ "modernc.org/sqlite"
)

// Store provides SQLite-backed persistence for discovered remote
// capability descriptors and their usage statistics. It lets a catalog
// resolve names across restarts before the first live listing succeeds.
type Store struct {
	mu sync.Mutex
	db *sql.DB
}

// NewStore opens (creating if needed) the store at dbPath.
func NewStore(dbPath string) (*Store, error) {
	db, err := sql.Open("sqlite", dbPath+"?_pragma=journal_mode(WAL)&_pragma=busy_timeout(5000)")
	if err != nil {
		return nil, fmt.Errorf("failed to open capability store: %w", err)
	}

	s := &Store{db: db}
	if err := s.initialize(); err != nil {
		db.Close()
		return nil, err
	}
	return s, nil
}

func (s *Store) initialize() error {
	_, err := s.db.Exec(`
		CREATE TABLE IF NOT EXISTS remote_capabilities (
			name TEXT PRIMARY KEY,
			description TEXT,
			category TEXT,
			input_schema TEXT,
			discovered_at DATETIME DEFAULT CURRENT_TIMESTAMP,
			usage_count INTEGER DEFAULT 0,
			success_count INTEGER DEFAULT 0,
			total_latency_ms INTEGER DEFAULT 0,
			last_used DATETIME
		)
	`)
	if err != nil {
		return fmt.Errorf("failed to create remote_capabilities table: %w", err)
	}
	return nil
}

// SaveDescriptors upserts the full set of descriptors from a catalog
// refresh, keeping usage counters for names that already exist.
func (s *Store) SaveDescriptors(ctx context.Context, descs []Descriptor) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer tx.Rollback()

	for _, d := range descs {
		_, err := tx.ExecContext(ctx, `
			INSERT INTO remote_capabilities (name, description, category, input_schema)
			VALUES (?, ?, ?, ?)
			ON CONFLICT(name) DO UPDATE SET
				description = excluded.description,
				category = excluded.category,
				input_schema = excluded.input_schema
		`, d.Name, d.Description, d.Category, string(d.InputSchema))
		if err != nil {
			return fmt.Errorf("failed to save descriptor %s: %w", d.Name, err)
		}
	}
	return tx.Commit()
}

// LoadDescriptors returns all persisted descriptors, most recently
// discovered first.
func (s *Store) LoadDescriptors(ctx context.Context) ([]Descriptor, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	rows, err := s.db.QueryContext(ctx, `
		SELECT name, description, category, input_schema
		FROM remote_capabilities
		ORDER BY discovered_at DESC
	`)
	if err != nil {
		return nil, fmt.Errorf("failed to load descriptors: %w", err)
	}
	defer rows.Close()

	var out []Descriptor
	for rows.Next() {
		var d Descriptor
		var schema string
		if err := rows.Scan(&d.Name, &d.Description, &d.Category, &schema); err != nil {
			return nil, fmt.Errorf("failed to scan descriptor: %w", err)
		}
		if schema != "" {
			d.InputSchema = []byte(schema)
		}
		out = append(out, d)
	}
	return out, rows.Err()
}

// RecordUsage updates invocation counters for a capability.
func (s *Store) RecordUsage(ctx context.Context, name string, success bool, latencyMs int64) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	successInc := 0
	if success {
		successInc = 1
	}
	_, err := s.db.ExecContext(ctx, `
		UPDATE remote_capabilities SET
			usage_count = usage_count + 1,
			success_count = success_count + ?,
			total_latency_ms = total_latency_ms + ?,
			last_used = CURRENT_TIMESTAMP
		WHERE name = ?
	`, successInc, latencyMs, name)
	if err != nil {
		return fmt.Errorf("failed to record usage for %s: %w", name, err)
	}
	return nil
}

// UsageStats holds aggregate invocation counters for one capability.
type UsageStats struct {
	Name         string
	UsageCount   int64
	SuccessCount int64
	AvgLatencyMs int64
}

// Stats returns usage counters for all capabilities that have been
// invoked at least once, busiest first.
func (s *Store) Stats(ctx context.Context) ([]UsageStats, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	rows, err := s.db.QueryContext(ctx, `
		SELECT name, usage_count, success_count,
			CASE WHEN usage_count > 0 THEN total_latency_ms / usage_count ELSE 0 END
		FROM remote_capabilities
		WHERE usage_count > 0
		ORDER BY usage_count DESC
	`)
	if err != nil {
		return nil, fmt.Errorf("failed to query usage stats: %w", err)
	}
	defer rows.Close()

	var out []UsageStats
	for rows.Next() {
		var st UsageStats
		if err := rows.Scan(&st.Name, &st.UsageCount, &st.SuccessCount, &st.AvgLatencyMs); err != nil {
			return nil, fmt.Errorf("failed to scan usage stats: %w", err)
		}
		out = append(out, st)
	}
	return out, rows.Err()
}

// Close releases the underlying database handle.
func (s *Store) Close() error {
	return s.db.Close()
}
