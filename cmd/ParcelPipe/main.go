package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"log/slog"
	"os"
	"os/signal"
	"path/filepath"
	"strings"
	"syscall"
	"time"

	"github.com/joho/godotenv"
	"golang.org/x/sync/errgroup"

	"github.com/BTreeMap/ParcelPipe/internal/api"
	"github.com/BTreeMap/ParcelPipe/internal/config"
	"github.com/BTreeMap/ParcelPipe/internal/flow"
	"github.com/BTreeMap/ParcelPipe/internal/lockfile"
	"github.com/BTreeMap/ParcelPipe/internal/scheduler"
	"github.com/BTreeMap/ParcelPipe/internal/session"
	"github.com/BTreeMap/ParcelPipe/internal/store"
	"github.com/BTreeMap/ParcelPipe/internal/util"
	"github.com/BTreeMap/ParcelPipe/internal/validate"
)

// Default configuration constants
const (
	// DefaultStateDir is the default directory for ParcelPipe state data
	DefaultStateDir = "/var/lib/parcelpipe"
	// DefaultDBFileName is the default SQLite database filename
	DefaultDBFileName = "parcelpipe.db"
	// DefaultConfigFileName is looked up in the state directory when no config path is given
	DefaultConfigFileName = "parcelpipe.yaml"
)

// The store satisfies both collaborators the dialogue layer needs.
var (
	_ flow.Signaler     = store.Store(nil)
	_ session.Persister = store.Store(nil)
)

func main() {
	envCfg := loadEnvironmentConfig()

	flags, err := parseCommandLineFlags(envCfg, os.Args[1:])
	if err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(2)
	}

	initializeLogger(*flags.logLevel)

	if err := ensureDirectoriesExist(flags); err != nil {
		slog.Error("Failed to create required directories", "error", err)
		os.Exit(1)
	}

	lock, err := lockfile.AcquireLock(*flags.stateDir, map[string]string{
		"addr":  *flags.apiAddr,
		"store": storeKind(*flags.dbDSN),
	})
	if err != nil {
		slog.Error("Failed to lock state directory", "error", err)
		os.Exit(1)
	}
	defer lock.Release()

	settings, err := loadSettings(flags)
	if err != nil {
		slog.Error("Failed to load configuration", "error", err)
		lock.Release()
		os.Exit(1)
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	slog.Info("Bootstrapping ParcelPipe", "stateDir", *flags.stateDir, "store", storeKind(*flags.dbDSN), "apiAddr", *flags.apiAddr)
	if err := run(ctx, flags, settings); err != nil {
		slog.Error("ParcelPipe failed to run", "error", err)
		lock.Release()
		os.Exit(1)
	}
	slog.Info("ParcelPipe exited successfully")
}

// Config holds environment configuration
type Config struct {
	DatabaseURL string
	StateDir    string
	APIAddr     string
	ConfigPath  string
	LogLevel    string
	InMemory    bool
	MaxRetries  int
	SessionTTL  time.Duration
	SignalPoll  time.Duration
}

// Flags holds command line flag values
type Flags struct {
	stateDir   *string
	dbDSN      *string
	apiAddr    *string
	configPath *string
	logLevel   *string
	maxRetries *int
	sessionTTL *time.Duration
	signalPoll *time.Duration
}

// initializeLogger sets up structured logging at the given level
func initializeLogger(level string) {
	logger := slog.New(slog.NewTextHandler(os.Stdout, &slog.HandlerOptions{Level: parseLogLevel(level)}))
	slog.SetDefault(logger)
}

func parseLogLevel(level string) slog.Level {
	switch strings.ToLower(strings.TrimSpace(level)) {
	case "debug":
		return slog.LevelDebug
	case "warn", "warning":
		return slog.LevelWarn
	case "error":
		return slog.LevelError
	default:
		return slog.LevelInfo
	}
}

// loadEnvironmentConfig loads configuration from environment variables and .env file
func loadEnvironmentConfig() Config {
	if err := godotenv.Load(); err != nil {
		slog.Debug("failed to load .env file", "error", err)
	} else {
		slog.Debug("successfully loaded .env file")
	}

	envCfg := Config{
		DatabaseURL: os.Getenv("DATABASE_URL"),
		StateDir:    util.GetenvDefault("PARCELPIPE_STATE_DIR", DefaultStateDir),
		APIAddr:     util.GetenvDefault("API_ADDR", api.DefaultAddr),
		ConfigPath:  os.Getenv("PARCELPIPE_CONFIG"),
		LogLevel:    util.GetenvDefault("LOG_LEVEL", "info"),
		InMemory:    util.ParseBoolEnv("PARCELPIPE_IN_MEMORY", false),
		MaxRetries:  util.ParseIntEnv("PARCELPIPE_MAX_RETRIES", 0),
		SessionTTL:  util.ParseDurationEnv("PARCELPIPE_SESSION_TTL", 0),
		SignalPoll:  util.ParseDurationEnv("PARCELPIPE_SIGNAL_POLL", 0),
	}

	slog.Debug("environment variables loaded",
		"DATABASE_URL_SET", envCfg.DatabaseURL != "",
		"PARCELPIPE_STATE_DIR", envCfg.StateDir,
		"API_ADDR", envCfg.APIAddr,
		"PARCELPIPE_CONFIG", envCfg.ConfigPath,
		"PARCELPIPE_IN_MEMORY", envCfg.InMemory)

	return envCfg
}

// parseCommandLineFlags parses command line arguments with environment defaults
func parseCommandLineFlags(envCfg Config, args []string) (Flags, error) {
	fs := flag.NewFlagSet("parcelpipe", flag.ContinueOnError)
	flags := Flags{
		stateDir:   fs.String("state-dir", envCfg.StateDir, "state directory for ParcelPipe data (overrides $PARCELPIPE_STATE_DIR)"),
		dbDSN:      fs.String("db-dsn", envCfg.DatabaseURL, "database DSN; a PostgreSQL URL or SQLite path (overrides $DATABASE_URL, defaults to SQLite in the state directory)"),
		apiAddr:    fs.String("api-addr", envCfg.APIAddr, "API server address (overrides $API_ADDR)"),
		configPath: fs.String("config", envCfg.ConfigPath, "YAML settings file (overrides $PARCELPIPE_CONFIG)"),
		logLevel:   fs.String("log-level", envCfg.LogLevel, "log level: debug, info, warn or error (overrides $LOG_LEVEL)"),
		maxRetries: fs.Int("max-retries", envCfg.MaxRetries, "failed answers before the skip hint; 0 keeps the config value (overrides $PARCELPIPE_MAX_RETRIES)"),
		sessionTTL: fs.Duration("session-ttl", envCfg.SessionTTL, "idle time before a session leaves memory; 0 keeps the config value (overrides $PARCELPIPE_SESSION_TTL)"),
		signalPoll: fs.Duration("signal-poll", envCfg.SignalPoll, "signal dispatcher poll interval; 0 keeps the config value (overrides $PARCELPIPE_SIGNAL_POLL)"),
	}
	if err := fs.Parse(args); err != nil {
		return Flags{}, err
	}

	// Without an explicit DSN the SQLite file lives in the state directory,
	// unless the in-memory store was requested.
	if *flags.dbDSN == "" && !envCfg.InMemory {
		*flags.dbDSN = filepath.Join(*flags.stateDir, DefaultDBFileName)
		slog.Debug("No database DSN provided, defaulting to SQLite", "sqlitePath", *flags.dbDSN)
	}

	slog.Debug("flags parsed",
		"stateDir", *flags.stateDir,
		"dbDSN_set", *flags.dbDSN != "",
		"apiAddr", *flags.apiAddr,
		"configPath", *flags.configPath,
		"maxRetries", *flags.maxRetries)
	return flags, nil
}

// ensureDirectoriesExist creates the state directory and, for SQLite, the database directory
func ensureDirectoriesExist(flags Flags) error {
	if err := os.MkdirAll(*flags.stateDir, 0755); err != nil {
		return fmt.Errorf("failed to create state directory %s: %w", *flags.stateDir, err)
	}
	if *flags.dbDSN != "" && store.DetectDSNType(*flags.dbDSN) == "sqlite3" {
		dir := filepath.Dir(*flags.dbDSN)
		if err := os.MkdirAll(dir, 0755); err != nil {
			return fmt.Errorf("failed to create database directory %s: %w", dir, err)
		}
	}
	return nil
}

// loadSettings reads the YAML settings and applies flag overrides.
func loadSettings(flags Flags) (*config.Config, error) {
	path := *flags.configPath
	if path == "" {
		path = filepath.Join(*flags.stateDir, DefaultConfigFileName)
	}
	settings, err := config.Load(path)
	if err != nil {
		return nil, err
	}
	if *flags.maxRetries > 0 {
		settings.Dialogue.MaxRetries = *flags.maxRetries
	}
	if *flags.sessionTTL > 0 {
		settings.Sessions.TTL = flags.sessionTTL.String()
	}
	if *flags.signalPoll > 0 {
		settings.Signals.PollInterval = flags.signalPoll.String()
	}
	return settings, nil
}

func storeKind(dsn string) string {
	if dsn == "" {
		return "memory"
	}
	return store.DetectDSNType(dsn)
}

// buildStoreOptions constructs store configuration options
func buildStoreOptions(flags Flags) []store.Option {
	var storeOpts []store.Option
	if *flags.dbDSN == "" {
		slog.Debug("No database DSN provided, will use in-memory store")
		return storeOpts
	}
	if store.DetectDSNType(*flags.dbDSN) == "postgres" {
		slog.Debug("Detected PostgreSQL DSN, configuring PostgreSQL store")
		storeOpts = append(storeOpts, store.WithPostgresDSN(*flags.dbDSN))
	} else {
		slog.Debug("Detected SQLite DSN, configuring SQLite store", "dbPath", *flags.dbDSN)
		storeOpts = append(storeOpts, store.WithSQLiteDSN(*flags.dbDSN))
	}
	return storeOpts
}

// buildValidatorOptions maps the validator settings to options
func buildValidatorOptions(settings *config.Config) []validate.Option {
	v := settings.Validator
	return []validate.Option{
		validate.WithMaxDimension(v.MaxDimension),
		validate.WithMaxWeight(v.MaxWeight),
		validate.WithMaxValue(v.MaxValue),
		validate.WithMaxInstructionsLen(v.MaxInstructionsLen),
	}
}

// buildEngineOptions constructs dialogue engine options
func buildEngineOptions(settings *config.Config, signaler flow.Signaler) []flow.Option {
	return []flow.Option{
		flow.WithMaxRetries(settings.Dialogue.MaxRetries),
		flow.WithDefaultCurrency(settings.Currency()),
		flow.WithValidator(validate.New(buildValidatorOptions(settings)...)),
		flow.WithSignaler(signaler),
	}
}

// buildRegistryOptions constructs session registry options
func buildRegistryOptions(settings *config.Config, persister session.Persister) []session.Option {
	return []session.Option{
		session.WithTTL(settings.SessionTTL()),
		session.WithMaxSessions(settings.Sessions.MaxSessions),
		session.WithDefaultCurrency(settings.Currency()),
		session.WithPersister(persister),
	}
}

// buildAPIOptions constructs API server configuration options
func buildAPIOptions(flags Flags) []api.Option {
	var apiOpts []api.Option
	if *flags.apiAddr != "" {
		apiOpts = append(apiOpts, api.WithAddr(*flags.apiAddr))
	}
	return apiOpts
}

// signalOutputDir resolves the dispatcher output directory against the state directory.
func signalOutputDir(flags Flags, settings *config.Config) string {
	dir := settings.Signals.OutputDir
	if dir == "" {
		dir = "signals"
	}
	if filepath.IsAbs(dir) {
		return dir
	}
	return filepath.Join(*flags.stateDir, dir)
}

// run wires the modules and serves until ctx is cancelled.
func run(ctx context.Context, flags Flags, settings *config.Config) error {
	st, err := store.NewStore(buildStoreOptions(flags)...)
	if err != nil {
		return fmt.Errorf("failed to open store: %w", err)
	}
	defer st.Close()

	engine := flow.NewEngine(buildEngineOptions(settings, st)...)
	registry := session.NewRegistry(buildRegistryOptions(settings, st)...)
	server := api.NewServer(engine, registry, st, buildAPIOptions(flags)...)

	dispatcher := store.NewSignalDispatcher(st, store.FileDispatchFunc(signalOutputDir(flags, settings)), settings.SignalPollInterval())
	if err := dispatcher.RecoverStaleSignals(ctx); err != nil {
		slog.Warn("Signal recovery failed", "error", err)
	}

	sched := scheduler.NewScheduler()
	if err := sched.AddJob("maintenance", settings.Maintenance.Schedule, maintenanceJob(registry, dispatcher)); err != nil {
		return err
	}

	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error { return server.Run(gctx) })
	g.Go(func() error { return dispatcher.Run(gctx) })
	g.Go(func() error { return sched.Run(gctx) })

	if err := g.Wait(); err != nil && !errors.Is(err, context.Canceled) {
		return err
	}
	return nil
}

// maintenanceJob drops idle sessions from memory and requeues signals whose
// dispatch was interrupted.
func maintenanceJob(registry *session.Registry, dispatcher *store.SignalDispatcher) scheduler.Job {
	return func(ctx context.Context) error {
		swept := registry.Sweep()
		if err := dispatcher.RecoverStaleSignals(ctx); err != nil {
			return fmt.Errorf("signal recovery failed: %w", err)
		}
		slog.Debug("maintenance: completed", "sweptSessions", swept)
		return nil
	}
}
