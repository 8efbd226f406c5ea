package store

import (
	"database/sql"
	"fmt"
	"time"

	"github.com/google/uuid"
	_ "modernc.org/sqlite"

	"github.com/AdamKaabyia/oc-mcp/pkg/models"
)

// SQLiteStore implements Store using SQLite
type SQLiteStore struct {
	db *sql.DB
}

// NewSQLiteStore creates a new SQLite store
func NewSQLiteStore(dbPath string) (*SQLiteStore, error) {
	db, err := sql.Open("sqlite", dbPath)
	if err != nil {
		return nil, fmt.Errorf("failed to open database: %w", err)
	}

	store := &SQLiteStore{db: db}
	if err := store.migrate(); err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to migrate: %w", err)
	}

	return store, nil
}

// migrate creates the database schema
func (s *SQLiteStore) migrate() error {
	schema := `
	CREATE TABLE IF NOT EXISTS tool_invocations (
		id TEXT PRIMARY KEY,
		tool TEXT NOT NULL,
		arguments TEXT,
		status TEXT NOT NULL,
		error TEXT,
		duration_ms INTEGER NOT NULL DEFAULT 0,
		created_at DATETIME DEFAULT CURRENT_TIMESTAMP
	);

	CREATE INDEX IF NOT EXISTS idx_invocations_tool ON tool_invocations(tool);
	CREATE INDEX IF NOT EXISTS idx_invocations_created ON tool_invocations(created_at);
	`
	_, err := s.db.Exec(schema)
	return err
}

// RecordInvocation inserts one invocation record, assigning an ID and
// timestamp when unset.
func (s *SQLiteStore) RecordInvocation(inv *models.ToolInvocation) error {
	if inv.ID == uuid.Nil {
		inv.ID = uuid.New()
	}
	if inv.CreatedAt.IsZero() {
		inv.CreatedAt = time.Now().UTC()
	}
	_, err := s.db.Exec(`
		INSERT INTO tool_invocations (id, tool, arguments, status, error, duration_ms, created_at)
		VALUES (?, ?, ?, ?, ?, ?, ?)`,
		inv.ID.String(), inv.Tool, inv.Arguments, inv.Status, inv.Error, inv.DurationMS, inv.CreatedAt,
	)
	if err != nil {
		return fmt.Errorf("failed to record invocation: %w", err)
	}
	return nil
}

// GetInvocation fetches one invocation by ID
func (s *SQLiteStore) GetInvocation(id uuid.UUID) (*models.ToolInvocation, error) {
	row := s.db.QueryRow(`
		SELECT id, tool, arguments, status, error, duration_ms, created_at
		FROM tool_invocations WHERE id = ?`, id.String())
	return scanInvocation(row)
}

// ListInvocations returns the most recent invocations
func (s *SQLiteStore) ListInvocations(limit int) ([]models.ToolInvocation, error) {
	return s.list(`
		SELECT id, tool, arguments, status, error, duration_ms, created_at
		FROM tool_invocations ORDER BY created_at DESC LIMIT ?`, limit)
}

// ListInvocationsByTool returns the most recent invocations of one tool
func (s *SQLiteStore) ListInvocationsByTool(tool string, limit int) ([]models.ToolInvocation, error) {
	return s.list(`
		SELECT id, tool, arguments, status, error, duration_ms, created_at
		FROM tool_invocations WHERE tool = ? ORDER BY created_at DESC LIMIT ?`, tool, limit)
}

// PruneBefore deletes records older than the given number of days and
// returns how many were removed.
func (s *SQLiteStore) PruneBefore(days int) (int64, error) {
	cutoff := time.Now().UTC().AddDate(0, 0, -days)
	result, err := s.db.Exec(`DELETE FROM tool_invocations WHERE created_at < ?`, cutoff)
	if err != nil {
		return 0, fmt.Errorf("failed to prune invocations: %w", err)
	}
	return result.RowsAffected()
}

// Close closes the database
func (s *SQLiteStore) Close() error {
	return s.db.Close()
}

func (s *SQLiteStore) list(query string, args ...any) ([]models.ToolInvocation, error) {
	rows, err := s.db.Query(query, args...)
	if err != nil {
		return nil, fmt.Errorf("failed to list invocations: %w", err)
	}
	defer rows.Close()

	var result []models.ToolInvocation
	for rows.Next() {
		inv, err := scanInvocationRows(rows)
		if err != nil {
			return nil, err
		}
		result = append(result, *inv)
	}
	return result, rows.Err()
}

type rowScanner interface {
	Scan(dest ...any) error
}

func scanRow(scanner rowScanner) (*models.ToolInvocation, error) {
	var inv models.ToolInvocation
	var id string
	var args, errMsg sql.NullString
	if err := scanner.Scan(&id, &inv.Tool, &args, &inv.Status, &errMsg, &inv.DurationMS, &inv.CreatedAt); err != nil {
		return nil, err
	}
	parsed, err := uuid.Parse(id)
	if err != nil {
		return nil, fmt.Errorf("invalid invocation id %q: %w", id, err)
	}
	inv.ID = parsed
	inv.Arguments = args.String
	inv.Error = errMsg.String
	return &inv, nil
}

func scanInvocation(row *sql.Row) (*models.ToolInvocation, error) {
	inv, err := scanRow(row)
	if err == sql.ErrNoRows {
		return nil, fmt.Errorf("invocation not found")
	}
	return inv, err
}

func scanInvocationRows(rows *sql.Rows) (*models.ToolInvocation, error) {
	return scanRow(rows)
}
