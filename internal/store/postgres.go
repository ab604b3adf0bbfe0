// Package store provides storage backends for PayFlow.
//
// This file implements a PostgreSQL-backed store for session state records.
package store

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"log/slog"
	"time"

	_ "embed"

	"github.com/BTreeMap/PayFlow/internal/models"
	_ "github.com/lib/pq"
)

// Database connection pool configuration constants
const (
	// DefaultMaxOpenConns is the default maximum number of open connections to the database
	DefaultMaxOpenConns = 25
	// DefaultMaxIdleConns is the default maximum number of idle connections in the pool
	DefaultMaxIdleConns = 25
	// DefaultConnMaxLifetime is the default maximum amount of time a connection may be reused
	DefaultConnMaxLifetime = 5 * time.Minute
)

//go:embed migrations_postgres.sql
var postgresMigrations string

// PostgresStore stores session state records in PostgreSQL.
type PostgresStore struct {
	db *sql.DB
}

// NewPostgresStore creates a new Postgres store based on provided options.
func NewPostgresStore(opts ...Option) (*PostgresStore, error) {
	var cfg Opts
	for _, opt := range opts {
		opt(&cfg)
	}
	slog.Debug("PostgresStore.NewPostgresStore: creating Postgres store", "DSN_set", cfg.DSN != "")
	dsn := cfg.DSN
	if dsn == "" {
		slog.Error("PostgresStore DSN not set")
		return nil, fmt.Errorf("database DSN not set")
	}

	db, err := sql.Open("postgres", dsn)
	if err != nil {
		slog.Error("Failed to open Postgres connection", "error", err)
		return nil, err
	}

	db.SetMaxOpenConns(DefaultMaxOpenConns)
	db.SetMaxIdleConns(DefaultMaxIdleConns)
	db.SetConnMaxLifetime(DefaultConnMaxLifetime)

	if err := db.Ping(); err != nil {
		slog.Error("Postgres ping failed", "error", err)
		db.Close()
		return nil, err
	}
	if _, err := db.Exec(postgresMigrations); err != nil {
		slog.Error("Failed to run migrations", "error", err)
		db.Close()
		return nil, fmt.Errorf("failed to run migrations: %w", err)
	}
	slog.Debug("Postgres migrations applied successfully")
	return &PostgresStore{db: db}, nil
}

// SaveFlowState stores or updates the record for a session.
func (s *PostgresStore) SaveFlowState(ctx context.Context, state models.FlowState) error {
	query := `
		INSERT INTO flow_states (session_id, flow_kind, current_state, state_data, created_at, updated_at)
		VALUES ($1, $2, $3, $4, $5, $6)
		ON CONFLICT (session_id, flow_kind)
		DO UPDATE SET
			current_state = EXCLUDED.current_state,
			state_data = EXCLUDED.state_data,
			updated_at = EXCLUDED.updated_at`

	stateDataJSON, err := encodeStateData(state.StateData)
	if err != nil {
		slog.Error("PostgresStore SaveFlowState JSON marshal failed", "error", err, "sessionID", state.SessionID)
		return err
	}

	_, err = s.db.ExecContext(ctx, query, state.SessionID, state.FlowKind, state.CurrentState,
		nilIfEmpty(stateDataJSON), state.CreatedAt, state.UpdatedAt)
	if err != nil {
		slog.Error("PostgresStore SaveFlowState failed", "error", err, "sessionID", state.SessionID, "kind", state.FlowKind)
		return err
	}
	slog.Debug("PostgresStore SaveFlowState succeeded", "sessionID", state.SessionID, "kind", state.FlowKind, "state", state.CurrentState)
	return nil
}

// GetFlowState retrieves the record for a session.
func (s *PostgresStore) GetFlowState(ctx context.Context, sessionID string, kind models.FlowKind) (*models.FlowState, error) {
	query := `SELECT session_id, flow_kind, current_state, state_data, created_at, updated_at
			  FROM flow_states WHERE session_id = $1 AND flow_kind = $2`

	var state models.FlowState
	var stateDataJSON sql.NullString
	err := s.db.QueryRowContext(ctx, query, sessionID, kind).Scan(
		&state.SessionID, &state.FlowKind, &state.CurrentState,
		&stateDataJSON, &state.CreatedAt, &state.UpdatedAt)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		slog.Error("PostgresStore GetFlowState failed", "error", err, "sessionID", sessionID, "kind", kind)
		return nil, err
	}
	state.StateData = decodeStateData(stateDataJSON.String, sessionID)
	return &state, nil
}

// DeleteFlowState removes the record for a session.
func (s *PostgresStore) DeleteFlowState(ctx context.Context, sessionID string, kind models.FlowKind) error {
	_, err := s.db.ExecContext(ctx, `DELETE FROM flow_states WHERE session_id = $1 AND flow_kind = $2`, sessionID, kind)
	if err != nil {
		slog.Error("PostgresStore DeleteFlowState failed", "error", err, "sessionID", sessionID, "kind", kind)
		return err
	}
	slog.Debug("PostgresStore DeleteFlowState succeeded", "sessionID", sessionID, "kind", kind)
	return nil
}

// Close closes the Postgres database connection.
func (s *PostgresStore) Close() error {
	return s.db.Close()
}

// nilIfEmpty returns nil if s is empty, otherwise returns s.
// Used for nullable database columns.
func nilIfEmpty(s string) interface{} {
	if s == "" {
		return nil
	}
	return s
}
