package storage

import (
	"context"
	"database/sql"
	"encoding/json"
	"fmt"
	"log/slog"
	"strings"
	"time"

	_ "github.com/mattn/go-sqlite3"

	"warden-hq/warden/pkg/audit"
)

// SQLiteConfig contains configuration for the SQLite storage backend.
type SQLiteConfig struct {
	// Path is the database file path.
	Path string

	// MaxOpenConns is the maximum number of open connections to the database.
	// Default: 10
	MaxOpenConns int

	// MaxIdleConns is the maximum number of idle connections.
	// Default: 5
	MaxIdleConns int

	// WALMode enables Write-Ahead Logging mode for better concurrency.
	// Default: true
	WALMode bool

	// BusyTimeout is the duration to wait when the database is locked.
	// Default: 5 seconds
	BusyTimeout time.Duration
}

// DefaultSQLiteConfig returns the default SQLite configuration.
func DefaultSQLiteConfig() *SQLiteConfig {
	return &SQLiteConfig{
		Path:         "data/audit.db",
		MaxOpenConns: 10,
		MaxIdleConns: 5,
		WALMode:      true,
		BusyTimeout:  5 * time.Second,
	}
}

// SQLiteStore implements audit.Store using SQLite.
type SQLiteStore struct {
	db     *sql.DB
	config *SQLiteConfig
	logger *slog.Logger
}

// NewSQLiteStore creates a new SQLite storage backend.
// It initializes the database schema and enables WAL mode if configured.
func NewSQLiteStore(config *SQLiteConfig) (*SQLiteStore, error) {
	if config == nil {
		config = DefaultSQLiteConfig()
	}

	logger := slog.Default().With("component", "audit.storage.sqlite")

	db, err := sql.Open("sqlite3", config.Path)
	if err != nil {
		return nil, fmt.Errorf("sqlite open: %w", err)
	}

	db.SetMaxOpenConns(config.MaxOpenConns)
	db.SetMaxIdleConns(config.MaxIdleConns)

	s := &SQLiteStore{
		db:     db,
		config: config,
		logger: logger,
	}

	if err := s.initialize(); err != nil {
		db.Close()
		return nil, err
	}

	logger.Info("SQLite audit storage initialized",
		"path", config.Path,
		"wal_mode", config.WALMode,
		"max_open_conns", config.MaxOpenConns,
	)

	return s, nil
}

// initialize sets up the database schema and enables WAL mode.
func (s *SQLiteStore) initialize() error {
	if s.config.WALMode {
		if _, err := s.db.Exec("PRAGMA journal_mode=WAL;"); err != nil {
			return fmt.Errorf("sqlite enable_wal: %w", err)
		}
	}

	busyTimeoutMs := s.config.BusyTimeout.Milliseconds()
	if _, err := s.db.Exec(fmt.Sprintf("PRAGMA busy_timeout=%d;", busyTimeoutMs)); err != nil {
		return fmt.Errorf("sqlite set_busy_timeout: %w", err)
	}

	if _, err := s.db.Exec(Schema); err != nil {
		return fmt.Errorf("sqlite create_schema: %w", err)
	}

	if _, err := s.db.Exec(InsertSchemaVersion, SchemaVersion); err != nil {
		return fmt.Errorf("sqlite schema_version: %w", err)
	}

	return nil
}

// Store persists one event.
func (s *SQLiteStore) Store(ctx context.Context, event *audit.Event) error {
	details, err := json.Marshal(event.Details)
	if err != nil {
		return &audit.StoreError{EventID: event.ID, Cause: err}
	}
	metadata, err := json.Marshal(event.Metadata)
	if err != nil {
		return &audit.StoreError{EventID: event.ID, Cause: err}
	}

	const insert = `
INSERT INTO audit_events (
    id, event_type, timestamp, action, outcome,
    agent_id, session_id, user_id, risk_level,
    details, metadata, correlation_id, parent_event_id
) VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?);`

	_, err = s.db.ExecContext(ctx, insert,
		event.ID,
		string(event.Type),
		event.Timestamp.UTC(),
		event.Action,
		string(event.Outcome),
		event.AgentID,
		event.SessionID,
		event.UserID,
		string(event.RiskLevel),
		string(details),
		string(metadata),
		event.CorrelationID,
		event.ParentEventID,
	)
	if err != nil {
		return &audit.StoreError{EventID: event.ID, Cause: err}
	}

	return nil
}

// Query retrieves events matching the query, newest first.
func (s *SQLiteStore) Query(ctx context.Context, query *audit.Query) ([]*audit.Event, error) {
	var (
		where []string
		args  []interface{}
	)

	if query != nil {
		if query.CorrelationID != "" {
			where = append(where, "correlation_id = ?")
			args = append(args, query.CorrelationID)
		}
		if query.AgentID != "" {
			where = append(where, "agent_id = ?")
			args = append(args, query.AgentID)
		}
		if !query.Since.IsZero() {
			where = append(where, "timestamp >= ?")
			args = append(args, query.Since.UTC())
		}
		if len(query.Types) > 0 {
			placeholders := make([]string, len(query.Types))
			for i, t := range query.Types {
				placeholders[i] = "?"
				args = append(args, string(t))
			}
			where = append(where, fmt.Sprintf("event_type IN (%s)", strings.Join(placeholders, ", ")))
		}
	}

	sqlQuery := `
SELECT id, event_type, timestamp, action, outcome,
       agent_id, session_id, user_id, risk_level,
       details, metadata, correlation_id, parent_event_id
FROM audit_events`

	if len(where) > 0 {
		sqlQuery += " WHERE " + strings.Join(where, " AND ")
	}
	sqlQuery += " ORDER BY timestamp DESC"

	if query != nil && query.Limit > 0 {
		sqlQuery += " LIMIT ?"
		args = append(args, query.Limit)
	}

	rows, err := s.db.QueryContext(ctx, sqlQuery, args...)
	if err != nil {
		return nil, fmt.Errorf("sqlite query: %w", err)
	}
	defer rows.Close()

	var results []*audit.Event
	for rows.Next() {
		event, err := scanEvent(rows)
		if err != nil {
			return nil, err
		}
		results = append(results, event)
	}

	return results, rows.Err()
}

// Count returns the number of stored events.
func (s *SQLiteStore) Count(ctx context.Context) (int, error) {
	var count int
	err := s.db.QueryRowContext(ctx, "SELECT COUNT(*) FROM audit_events").Scan(&count)
	if err != nil {
		return 0, fmt.Errorf("sqlite count: %w", err)
	}
	return count, nil
}

// DeleteBefore removes events older than the cutoff.
func (s *SQLiteStore) DeleteBefore(ctx context.Context, cutoff time.Time) (int, error) {
	result, err := s.db.ExecContext(ctx,
		"DELETE FROM audit_events WHERE timestamp < ?", cutoff.UTC())
	if err != nil {
		return 0, fmt.Errorf("sqlite delete: %w", err)
	}

	affected, err := result.RowsAffected()
	if err != nil {
		return 0, fmt.Errorf("sqlite rows_affected: %w", err)
	}

	return int(affected), nil
}

// Close closes the database connection.
func (s *SQLiteStore) Close() error {
	return s.db.Close()
}

// scanEvent scans one row into an audit event.
func scanEvent(rows *sql.Rows) (*audit.Event, error) {
	var (
		event              audit.Event
		eventType, outcome string
		riskLevel          sql.NullString
		agentID, sessionID sql.NullString
		userID             sql.NullString
		details, metadata  sql.NullString
		correlationID      sql.NullString
		parentEventID      sql.NullString
	)

	err := rows.Scan(
		&event.ID,
		&eventType,
		&event.Timestamp,
		&event.Action,
		&outcome,
		&agentID,
		&sessionID,
		&userID,
		&riskLevel,
		&details,
		&metadata,
		&correlationID,
		&parentEventID,
	)
	if err != nil {
		return nil, fmt.Errorf("sqlite scan: %w", err)
	}

	event.Type = audit.EventType(eventType)
	event.Outcome = audit.Outcome(outcome)
	event.RiskLevel = audit.RiskLevel(riskLevel.String)
	event.AgentID = agentID.String
	event.SessionID = sessionID.String
	event.UserID = userID.String
	event.CorrelationID = correlationID.String
	event.ParentEventID = parentEventID.String

	if details.Valid && details.String != "" && details.String != "null" {
		if err := json.Unmarshal([]byte(details.String), &event.Details); err != nil {
			return nil, fmt.Errorf("sqlite decode details: %w", err)
		}
	}
	if metadata.Valid && metadata.String != "" && metadata.String != "null" {
		if err := json.Unmarshal([]byte(metadata.String), &event.Metadata); err != nil {
			return nil, fmt.Errorf("sqlite decode metadata: %w", err)
		}
	}

	return &event, nil
}
