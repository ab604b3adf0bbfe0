// Package store provides storage backends for PayFlow.
//
// This file implements an SQLite-backed store for session state records.
package store

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"

	_ "embed"

	"github.com/BTreeMap/PayFlow/internal/models"
	_ "github.com/mattn/go-sqlite3"
)

// Constants for SQLite store configuration
const (
	// DefaultDirPermissions defines the default permissions for database directories
	DefaultDirPermissions = 0755
)

//go:embed migrations_sqlite.sql
var sqliteMigrations string

// SQLiteStore stores session state records in a SQLite file.
type SQLiteStore struct {
	db *sql.DB
}

// NewSQLiteStore creates a new SQLite store with the given DSN.
// The DSN should be a file path to the SQLite database file.
// If the directory doesn't exist, it will be created.
func NewSQLiteStore(opts ...Option) (*SQLiteStore, error) {
	var cfg Opts
	for _, opt := range opts {
		opt(&cfg)
	}
	slog.Debug("NewSQLiteStore invoked", "DSN_set", cfg.DSN != "")

	dsn := cfg.DSN
	if dsn == "" {
		slog.Error("SQLiteStore DSN not set")
		return nil, fmt.Errorf("database DSN not set")
	}

	dir := filepath.Dir(dsn)
	if err := os.MkdirAll(dir, DefaultDirPermissions); err != nil {
		slog.Error("Failed to create database directory", "error", err, "dir", dir)
		return nil, fmt.Errorf("failed to create database directory: %w", err)
	}

	db, err := sql.Open("sqlite3", dsn)
	if err != nil {
		slog.Error("Failed to open SQLite connection", "error", err)
		return nil, err
	}
	if err := db.Ping(); err != nil {
		slog.Error("SQLite ping failed", "error", err)
		db.Close()
		return nil, err
	}

	if _, err := db.Exec(sqliteMigrations); err != nil {
		slog.Error("Failed to run migrations", "error", err)
		db.Close()
		return nil, fmt.Errorf("failed to run migrations: %w", err)
	}
	slog.Debug("SQLite migrations applied successfully")

	return &SQLiteStore{db: db}, nil
}

// SaveFlowState stores or updates the record for a session.
func (s *SQLiteStore) SaveFlowState(ctx context.Context, state models.FlowState) error {
	query := `
		INSERT OR REPLACE INTO flow_states (session_id, flow_kind, current_state, state_data, created_at, updated_at)
		VALUES (?, ?, ?, ?, ?, ?)`

	stateDataJSON, err := encodeStateData(state.StateData)
	if err != nil {
		slog.Error("SQLiteStore SaveFlowState JSON marshal failed", "error", err, "sessionID", state.SessionID)
		return err
	}

	_, err = s.db.ExecContext(ctx, query, state.SessionID, state.FlowKind, state.CurrentState,
		stateDataJSON, state.CreatedAt, state.UpdatedAt)
	if err != nil {
		slog.Error("SQLiteStore SaveFlowState failed", "error", err, "sessionID", state.SessionID, "kind", state.FlowKind)
		return err
	}
	slog.Debug("SQLiteStore SaveFlowState succeeded", "sessionID", state.SessionID, "kind", state.FlowKind, "state", state.CurrentState)
	return nil
}

// GetFlowState retrieves the record for a session.
func (s *SQLiteStore) GetFlowState(ctx context.Context, sessionID string, kind models.FlowKind) (*models.FlowState, error) {
	query := `SELECT session_id, flow_kind, current_state, state_data, created_at, updated_at
			  FROM flow_states WHERE session_id = ? AND flow_kind = ?`

	var state models.FlowState
	var stateDataJSON string
	err := s.db.QueryRowContext(ctx, query, sessionID, kind).Scan(
		&state.SessionID, &state.FlowKind, &state.CurrentState,
		&stateDataJSON, &state.CreatedAt, &state.UpdatedAt)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		slog.Error("SQLiteStore GetFlowState failed", "error", err, "sessionID", sessionID, "kind", kind)
		return nil, err
	}
	state.StateData = decodeStateData(stateDataJSON, sessionID)
	return &state, nil
}

// DeleteFlowState removes the record for a session.
func (s *SQLiteStore) DeleteFlowState(ctx context.Context, sessionID string, kind models.FlowKind) error {
	_, err := s.db.ExecContext(ctx, `DELETE FROM flow_states WHERE session_id = ? AND flow_kind = ?`, sessionID, kind)
	if err != nil {
		slog.Error("SQLiteStore DeleteFlowState failed", "error", err, "sessionID", sessionID, "kind", kind)
		return err
	}
	slog.Debug("SQLiteStore DeleteFlowState succeeded", "sessionID", sessionID, "kind", kind)
	return nil
}

// Close closes the SQLite database connection.
func (s *SQLiteStore) Close() error {
	slog.Debug("Closing SQLite database connection")
	err := s.db.Close()
	if err != nil {
		slog.Error("Failed to close SQLite database", "error", err)
	}
	return err
}
