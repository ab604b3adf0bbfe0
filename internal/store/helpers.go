package store

import (
	"encoding/json"
	"fmt"
	"log/slog"
	"strings"

	"github.com/BTreeMap/PayFlow/internal/models"
)

// Opts holds configuration options for the SQL stores.
type Opts struct {
	DSN string
}

// Option defines a function that configures Opts.
type Option func(*Opts)

// WithSQLiteDSN sets the SQLite database file path.
func WithSQLiteDSN(dsn string) Option {
	return func(o *Opts) { o.DSN = dsn }
}

// WithPostgresDSN sets the PostgreSQL connection string.
func WithPostgresDSN(dsn string) Option {
	return func(o *Opts) { o.DSN = dsn }
}

// DetectDSNType returns "postgres" for PostgreSQL connection strings and
// "sqlite3" for everything else.
func DetectDSNType(dsn string) string {
	if strings.HasPrefix(dsn, "postgres://") || strings.HasPrefix(dsn, "postgresql://") ||
		strings.Contains(dsn, "host=") || strings.Contains(dsn, "user=") || strings.Contains(dsn, "dbname=") {
		return "postgres"
	}
	return "sqlite3"
}

// New opens the backend matching dsn, or an in-memory store when dsn is empty.
func New(dsn string) (Store, error) {
	switch {
	case dsn == "":
		slog.Debug("No database DSN provided, using in-memory store")
		return NewInMemoryStore(), nil
	case DetectDSNType(dsn) == "postgres":
		return NewPostgresStore(WithPostgresDSN(dsn))
	default:
		return NewSQLiteStore(WithSQLiteDSN(dsn))
	}
}

// encodeStateData serializes state data; an empty map becomes the empty string.
func encodeStateData(data map[models.DataKey]string) (string, error) {
	if len(data) == 0 {
		return "", nil
	}
	b, err := json.Marshal(data)
	if err != nil {
		return "", fmt.Errorf("marshal state data: %w", err)
	}
	return string(b), nil
}

// decodeStateData parses stored state data. Corrupt JSON yields an empty map
// rather than failing the read.
func decodeStateData(raw, sessionID string) map[models.DataKey]string {
	data := make(map[models.DataKey]string)
	if raw == "" {
		return data
	}
	if err := json.Unmarshal([]byte(raw), &data); err != nil {
		slog.Error("store: state data unmarshal failed", "error", err, "sessionID", sessionID)
		return make(map[models.DataKey]string)
	}
	return data
}
