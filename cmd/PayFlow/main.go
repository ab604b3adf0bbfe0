package main

import (
	"context"
	"encoding/json"
	"errors"
	"flag"
	"fmt"
	"io"
	"log/slog"
	"os"
	"os/signal"
	"path/filepath"
	"syscall"
	"time"

	"github.com/BTreeMap/PayFlow/internal/api"
	"github.com/BTreeMap/PayFlow/internal/flow"
	"github.com/BTreeMap/PayFlow/internal/gateway"
	"github.com/BTreeMap/PayFlow/internal/lockfile"
	"github.com/BTreeMap/PayFlow/internal/models"
	"github.com/BTreeMap/PayFlow/internal/presenter"
	"github.com/BTreeMap/PayFlow/internal/store"
	"github.com/BTreeMap/PayFlow/internal/tracing"
	"github.com/BTreeMap/PayFlow/internal/util"
	"github.com/joho/godotenv"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	_ "go.uber.org/automaxprocs"
)

// Default configuration constants
const (
	// DefaultStateDir is the default directory for PayFlow state data
	DefaultStateDir = "/var/lib/payflow"
	// DefaultDBFileName is the default SQLite database filename
	DefaultDBFileName = "payflow.db"
	// DefaultTraceFlushTimeout bounds the span flush on exit
	DefaultTraceFlushTimeout = 5 * time.Second
)

func main() {
	config := loadEnvironmentConfig()
	flags := parseCommandLineFlags(flag.CommandLine, os.Args[1:], config)
	initializeLogger(os.Stdout, *flags.debug)

	tp, err := tracing.NewProvider(buildTracingOptions(flags, os.Stdout)...)
	if err != nil {
		slog.Error("PayFlow failed to set up tracing", "error", err)
		os.Exit(1)
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	if *flags.preview {
		err = runPreview(ctx, flags, os.Stdout)
	} else {
		err = runServer(ctx, flags)
	}
	stop()

	// flush spans before exiting; os.Exit skips deferred calls
	flushCtx, cancel := context.WithTimeout(context.Background(), DefaultTraceFlushTimeout)
	tp.Shutdown(flushCtx)
	cancel()

	if err != nil {
		slog.Error("PayFlow failed to run", "error", err)
		os.Exit(1)
	}
	slog.Info("PayFlow exited successfully")
}

// Config holds environment configuration
type Config struct {
	APIKey             string
	Environment        string
	BaseURL            string
	StateDir           string
	DatabaseURL        string
	APIAddr            string
	Locale             string
	Debug              bool
	TraceStdout        bool
	FetchTimeout       time.Duration
	SessionRetention   time.Duration
	SessionIdleTimeout time.Duration
}

// Flags holds command line flag values
type Flags struct {
	apiKey             *string
	environment        *string
	baseURL            *string
	stateDir           *string
	dbDSN              *string
	apiAddr            *string
	locale             *string
	debug              *bool
	traceStdout        *bool
	fetchTimeout       *time.Duration
	sessionRetention   *time.Duration
	sessionIdleTimeout *time.Duration

	preview    *bool
	flowKind   *string
	configPath *string
	sdkPath    *string
}

// initializeLogger sets up structured logging; debug switches to debug level
func initializeLogger(w io.Writer, debug bool) {
	level := slog.LevelInfo
	if debug {
		level = slog.LevelDebug
	}
	slog.SetDefault(slog.New(slog.NewTextHandler(w, &slog.HandlerOptions{Level: level})))
}

// loadEnvironmentConfig loads configuration from environment variables and .env file
func loadEnvironmentConfig() Config {
	if err := godotenv.Load(); err != nil {
		slog.Debug("failed to load .env file", "error", err)
	} else {
		slog.Debug("successfully loaded .env file")
	}

	config := Config{
		APIKey:             os.Getenv("PAYFLOW_API_KEY"),
		Environment:        os.Getenv("PAYFLOW_ENVIRONMENT"),
		BaseURL:            os.Getenv("PAYFLOW_BASE_URL"),
		StateDir:           os.Getenv("PAYFLOW_STATE_DIR"),
		DatabaseURL:        os.Getenv("DATABASE_URL"),
		APIAddr:            os.Getenv("API_ADDR"),
		Locale:             os.Getenv("PAYFLOW_LOCALE"),
		Debug:              util.ParseBoolEnv("PAYFLOW_DEBUG", false),
		TraceStdout:        util.ParseBoolEnv("PAYFLOW_TRACE_STDOUT", false),
		FetchTimeout:       util.ParseDurationEnv("PAYFLOW_FETCH_TIMEOUT", gateway.DefaultTimeout),
		SessionRetention:   util.ParseDurationEnv("PAYFLOW_SESSION_RETENTION", api.DefaultSessionRetention),
		SessionIdleTimeout: util.ParseDurationEnv("PAYFLOW_SESSION_IDLE_TIMEOUT", api.DefaultSessionIdleTimeout),
	}

	if config.StateDir == "" {
		config.StateDir = DefaultStateDir
		slog.Debug("No PAYFLOW_STATE_DIR set, using default", "default_state_dir", config.StateDir)
	}
	if config.Environment == "" {
		config.Environment = string(models.EnvironmentQA)
	}
	if config.APIAddr == "" {
		config.APIAddr = api.DefaultServerAddress
	}

	// If no database URL is provided, default to SQLite in the state directory
	if config.DatabaseURL == "" {
		config.DatabaseURL = filepath.Join(config.StateDir, DefaultDBFileName)
		slog.Debug("No database DSN provided, defaulting to SQLite", "sqlite_path", config.DatabaseURL)
	}

	slog.Debug("environment variables loaded",
		"PAYFLOW_API_KEY_SET", config.APIKey != "",
		"PAYFLOW_ENVIRONMENT", config.Environment,
		"PAYFLOW_BASE_URL", config.BaseURL,
		"PAYFLOW_STATE_DIR", config.StateDir,
		"DATABASE_URL_SET", config.DatabaseURL != "",
		"API_ADDR", config.APIAddr,
		"PAYFLOW_DEBUG", config.Debug,
		"PAYFLOW_TRACE_STDOUT", config.TraceStdout)

	return config
}

// parseCommandLineFlags parses command line arguments with environment defaults
func parseCommandLineFlags(fs *flag.FlagSet, args []string, config Config) Flags {
	flags := Flags{
		apiKey:             fs.String("api-key", config.APIKey, "gateway API key (overrides $PAYFLOW_API_KEY)"),
		environment:        fs.String("environment", config.Environment, "gateway environment: qa, cat or prod (overrides $PAYFLOW_ENVIRONMENT)"),
		baseURL:            fs.String("base-url", config.BaseURL, "fixed gateway base URL (overrides $PAYFLOW_BASE_URL)"),
		stateDir:           fs.String("state-dir", config.StateDir, "state directory for PayFlow data (overrides $PAYFLOW_STATE_DIR)"),
		dbDSN:              fs.String("db-dsn", config.DatabaseURL, "database DSN for session state (overrides $DATABASE_URL)"),
		apiAddr:            fs.String("api-addr", config.APIAddr, "API server address (overrides $API_ADDR)"),
		locale:             fs.String("locale", config.Locale, "default locale for localized strings (overrides $PAYFLOW_LOCALE)"),
		debug:              fs.Bool("debug", config.Debug, "enable debug logging (overrides $PAYFLOW_DEBUG)"),
		traceStdout:        fs.Bool("trace-stdout", config.TraceStdout, "export gateway spans to stdout (overrides $PAYFLOW_TRACE_STDOUT)"),
		fetchTimeout:       fs.Duration("fetch-timeout", config.FetchTimeout, "gateway request timeout (overrides $PAYFLOW_FETCH_TIMEOUT)"),
		sessionRetention:   fs.Duration("session-retention", config.SessionRetention, "how long finished sessions stay queryable (overrides $PAYFLOW_SESSION_RETENTION)"),
		sessionIdleTimeout: fs.Duration("session-idle-timeout", config.SessionIdleTimeout, "stop sessions left running this long, 0 disables (overrides $PAYFLOW_SESSION_IDLE_TIMEOUT)"),

		preview:    fs.Bool("preview", false, "run a single flow and print what it publishes"),
		flowKind:   fs.String("flow", "", "flow kind for -preview"),
		configPath: fs.String("config", "", "flow configuration JSON file for -preview"),
		sdkPath:    fs.String("sdk", "", "SDK configuration JSON file for -preview"),
	}

	fs.Parse(args)

	// Follow a moved state directory unless the DSN was set explicitly
	defaultDSN := filepath.Join(config.StateDir, DefaultDBFileName)
	if *flags.dbDSN == defaultDSN && *flags.stateDir != config.StateDir {
		*flags.dbDSN = filepath.Join(*flags.stateDir, DefaultDBFileName)
		slog.Debug("Updated dbDSN based on state directory", "new_state_dir", *flags.stateDir)
	}

	return flags
}

// buildStoreOptions reports the driver the DSN selects, mirroring store.New
func buildStoreOptions(flags Flags) (driver string, opts []store.Option) {
	dsn := *flags.dbDSN
	if dsn == "" {
		return "memory", nil
	}
	if store.DetectDSNType(dsn) == "postgres" {
		slog.Debug("Detected PostgreSQL DSN, configuring PostgreSQL store", "dsn_set", true)
		return "postgres", []store.Option{store.WithPostgresDSN(dsn)}
	}
	slog.Debug("Detected SQLite DSN, configuring SQLite store", "db_path", dsn)
	return "sqlite3", []store.Option{store.WithSQLiteDSN(dsn)}
}

func openStore(flags Flags) (store.Store, error) {
	driver, opts := buildStoreOptions(flags)
	switch driver {
	case "postgres":
		return store.NewPostgresStore(opts...)
	case "sqlite3":
		return store.NewSQLiteStore(opts...)
	default:
		return store.NewInMemoryStore(), nil
	}
}

// buildGatewayOptions constructs gateway client options
func buildGatewayOptions(flags Flags) []gateway.Option {
	opts := []gateway.Option{gateway.WithTimeout(*flags.fetchTimeout)}
	if *flags.baseURL != "" {
		opts = append(opts, gateway.WithBaseURL(*flags.baseURL))
	}
	return opts
}

// buildTracingOptions exports spans to out when -trace-stdout is set
func buildTracingOptions(flags Flags, out io.Writer) []tracing.Option {
	if !*flags.traceStdout {
		return nil
	}
	return []tracing.Option{tracing.WithWriter(out)}
}

// buildAPIOptions constructs API server configuration options
func buildAPIOptions(flags Flags, reg *prometheus.Registry) []api.Option {
	return []api.Option{
		api.WithAddr(*flags.apiAddr),
		api.WithSessionRetention(*flags.sessionRetention),
		api.WithSessionIdleTimeout(*flags.sessionIdleTimeout),
		api.WithGatherer(reg),
	}
}

// probeURL is the URL whose host the connectivity probe dials
func probeURL(flags Flags) (string, error) {
	if *flags.baseURL != "" {
		return *flags.baseURL, nil
	}
	env, err := models.ParseEnvironment(*flags.environment)
	if err != nil {
		return "", fmt.Errorf("%w: %q", err, *flags.environment)
	}
	return env.BaseURL(), nil
}

func runServer(ctx context.Context, flags Flags) error {
	driver, _ := buildStoreOptions(flags)
	if driver == "sqlite3" {
		lock, err := lockfile.Acquire(filepath.Dir(*flags.dbDSN))
		if err != nil {
			return err
		}
		defer lock.Release()
	}

	st, err := openStore(flags)
	if err != nil {
		return fmt.Errorf("open store: %w", err)
	}
	defer st.Close()

	target, err := probeURL(flags)
	if err != nil {
		return err
	}

	reg := prometheus.NewRegistry()
	reg.MustRegister(collectors.NewGoCollector(), collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}))

	deps := flow.Dependencies{
		APIKey:       *flags.apiKey,
		Connectivity: gateway.NewProbe(target, gateway.DefaultProbeTimeout),
		StateManager: flow.NewStoreBasedStateManager(st),
		Metrics:      flow.NewMetrics(reg),
	}
	client := gateway.NewClient(buildGatewayOptions(flags)...)
	deps.Configuration = client
	deps.AccountData = client

	slog.Info("Bootstrapping PayFlow", "store", driver, "environment", *flags.environment, "api_addr", *flags.apiAddr)
	return api.NewServer(deps, buildAPIOptions(flags, reg)...).Run(ctx)
}

// previewInput reads and decodes the files named by the preview flags
func previewInput(flags Flags) (models.FlowKind, *models.SDKConfiguration, models.FlowConfiguration, error) {
	kind := models.FlowKind(*flags.flowKind)
	if !models.IsValidFlowKind(kind) {
		return "", nil, nil, fmt.Errorf("%w: %q", models.ErrInvalidFlowKind, kind)
	}
	if *flags.sdkPath == "" || *flags.configPath == "" {
		return "", nil, nil, errors.New("-preview requires -sdk and -config")
	}

	sdkRaw, err := os.ReadFile(*flags.sdkPath)
	if err != nil {
		return "", nil, nil, fmt.Errorf("read sdk configuration: %w", err)
	}
	var sdk models.SDKConfiguration
	if err := json.Unmarshal(sdkRaw, &sdk); err != nil {
		return "", nil, nil, fmt.Errorf("decode sdk configuration: %w", err)
	}
	if sdk.Environment == "" {
		sdk.Environment = models.Environment(*flags.environment)
	}
	if sdk.Locale == "" {
		sdk.Locale = *flags.locale
	}

	cfgRaw, err := os.ReadFile(*flags.configPath)
	if err != nil {
		return "", nil, nil, fmt.Errorf("read flow configuration: %w", err)
	}
	cfg, err := models.DecodeFlowConfiguration(kind, cfgRaw)
	if err != nil {
		return "", nil, nil, err
	}
	return kind, &sdk, cfg, nil
}

// runPreview runs one session against the gateway, prints the publication and
// ends the session once it is loaded.
func runPreview(ctx context.Context, flags Flags, out io.Writer) error {
	kind, sdk, cfg, err := previewInput(flags)
	if err != nil {
		return err
	}
	target, err := probeURL(flags)
	if err != nil {
		return err
	}
	client := gateway.NewClient(buildGatewayOptions(flags)...)
	term := presenter.NewTerminal(out)

	f, err := flow.New(kind, sdk, cfg, flow.Dependencies{
		APIKey:        *flags.apiKey,
		Connectivity:  gateway.NewProbe(target, gateway.DefaultProbeTimeout),
		Configuration: client,
		AccountData:   client,
		Presenter:     term,
	})
	if err != nil {
		return err
	}

	results := make(chan models.Result, 1)
	if err := f.Start(ctx, func(r models.Result) { results <- r }); err != nil {
		term.PresentResult(ctx, flow.ResultScreen{SessionID: f.ID(), Title: "Session failed", Result: <-results})
		return err
	}

	select {
	case <-f.Loaded():
		f.Stop(nil)
	case <-f.Done():
	case <-ctx.Done():
	}
	result := <-results
	if result.HasStatus() {
		term.PresentResult(ctx, flow.ResultScreen{SessionID: f.ID(), Title: "Session ended", Result: result})
	}
	slog.Debug("runPreview: session finished", "sessionID", f.ID(), "state", f.State())
	if f.State() == models.StateFailed {
		return fmt.Errorf("session %s failed with status %s", f.ID(), result.StatusCode())
	}
	return nil
}
