package main

import (
	"context"
	"flag"
	"log/slog"
	"os"
	"os/signal"
	"path/filepath"
	"syscall"

	"github.com/joho/godotenv"
	"github.com/mamamind/mamamind/internal/api"
	"github.com/mamamind/mamamind/internal/flow"
	"github.com/mamamind/mamamind/internal/genai"
	"github.com/mamamind/mamamind/internal/lockfile"
	"github.com/mamamind/mamamind/internal/mealplan"
	"github.com/mamamind/mamamind/internal/messaging"
	"github.com/mamamind/mamamind/internal/notify"
	"github.com/mamamind/mamamind/internal/scheduler"
	"github.com/mamamind/mamamind/internal/store"
	"github.com/mamamind/mamamind/internal/twilio"
	"github.com/mamamind/mamamind/internal/whatsapp"
)

// Default configuration constants
const (
	// DefaultStateDir is the default directory for MamaMind state data
	DefaultStateDir = "/var/lib/mamamind"
	// DefaultDBFileName is the default SQLite database filename
	DefaultDBFileName = "mamamind.db"
	// DefaultSweepSchedule triggers the daily notification sweep at 08:00
	DefaultSweepSchedule = "0 8 * * *"
)

func main() {
	initializeLogger()

	config := loadEnvironmentConfig()
	flags := parseCommandLineFlags(config)

	if err := ensureDirectoriesExist(flags); err != nil {
		slog.Error("Failed to create required directories", "error", err)
		os.Exit(1)
	}

	lock, err := lockfile.AcquireLock(*flags.stateDir)
	if err != nil {
		slog.Error("Failed to acquire state directory lock", "error", err)
		os.Exit(1)
	}
	defer lock.Release()

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	if err := run(ctx, flags); err != nil {
		slog.Error("MamaMind failed to run", "error", err)
		os.Exit(1)
	}
	slog.Info("MamaMind exited successfully")
}

func run(ctx context.Context, flags Flags) error {
	st, err := buildStore(flags)
	if err != nil {
		return err
	}
	defer st.Close()

	ai, cleanup, err := buildCompletionClient(ctx, flags)
	if err != nil {
		return err
	}
	defer cleanup()

	msgService, err := buildMessagingService(flags)
	if err != nil {
		return err
	}
	if err := msgService.Start(ctx); err != nil {
		return err
	}
	defer msgService.Stop()

	var genOpts []mealplan.GeneratorOption
	if *flags.model != "" {
		genOpts = append(genOpts, mealplan.WithModel(*flags.model))
	}
	generator := mealplan.NewGenerator(st, ai, genOpts...)
	convFlow := flow.NewConversationFlow(st, generator, ai, flow.WithAsyncPlanDelivery(msgService))
	sweeper := notify.NewSweeper(st, msgService, ai, generator)

	sched := scheduler.NewScheduler()
	defer sched.Stop()
	if *flags.sweepCron != "" {
		if err := sched.AddJob(*flags.sweepCron, func() {
			sweeper.Run(context.Background())
		}); err != nil {
			return err
		}
	}

	var apiOpts []api.Option
	if *flags.apiAddr != "" {
		apiOpts = append(apiOpts, api.WithAddr(*flags.apiAddr))
	}
	server := api.NewServer(convFlow, sweeper, apiOpts...)

	slog.Info("Bootstrapping MamaMind", "backend", *flags.backend, "provider", *flags.provider,
		"dsn_set", *flags.dbDSN != "", "sweep_cron", *flags.sweepCron)
	return server.Run(ctx)
}

// buildStore selects the store implementation from the DSN. An empty DSN
// falls back to the in-memory store, which loses state on restart.
func buildStore(flags Flags) (store.Store, error) {
	dsn := *flags.dbDSN
	if dsn == "" {
		slog.Warn("No database DSN provided, using in-memory store")
		return store.NewInMemoryStore(), nil
	}
	if store.DetectDSNType(dsn) == "postgres" {
		slog.Debug("Detected PostgreSQL DSN, configuring PostgreSQL store")
		return store.NewPostgresStore(store.WithDSN(dsn))
	}
	slog.Debug("Detected SQLite DSN, configuring SQLite store", "db_path", dsn)
	return store.NewSQLiteStore(store.WithDSN(dsn))
}

// buildCompletionClient selects the AI provider. The returned cleanup closes
// provider resources and is always safe to call.
func buildCompletionClient(ctx context.Context, flags Flags) (genai.CompletionClient, func(), error) {
	if *flags.provider == "gemini" {
		client, err := genai.NewGeminiClient(ctx, *flags.geminiKey)
		if err != nil {
			return nil, func() {}, err
		}
		return client, func() { client.Close() }, nil
	}

	var opts []genai.Option
	if *flags.apiKey != "" {
		opts = append(opts, genai.WithAPIKey(*flags.apiKey))
	}
	if *flags.baseURL != "" {
		opts = append(opts, genai.WithBaseURL(*flags.baseURL))
	}
	if *flags.model != "" {
		opts = append(opts, genai.WithModel(*flags.model))
	}
	client, err := genai.NewClient(opts...)
	if err != nil {
		return nil, func() {}, err
	}
	return client, func() {}, nil
}

// buildMessagingService selects the delivery transport. Twilio credentials
// and the sender number come from TWILIO_* environment variables.
func buildMessagingService(flags Flags) (messaging.Service, error) {
	if *flags.backend == "whatsapp" {
		var waOpts []whatsapp.Option
		if *flags.dbDSN != "" {
			waOpts = append(waOpts, whatsapp.WithDBDSN(*flags.dbDSN))
		}
		if *flags.qrOutput != "" {
			waOpts = append(waOpts, whatsapp.WithQRCodeOutput(*flags.qrOutput))
		}
		if *flags.numeric {
			waOpts = append(waOpts, whatsapp.WithNumericCode())
		}
		client, err := whatsapp.NewClient(waOpts...)
		if err != nil {
			return nil, err
		}
		return messaging.NewWhatsAppService(client), nil
	}

	client, err := twilio.NewClient()
	if err != nil {
		return nil, err
	}
	return messaging.NewTwilioService(client), nil
}

// Config holds environment configuration
type Config struct {
	DatabaseDSN string
	StateDir    string
	Backend     string
	Provider    string
	APIKey      string
	BaseURL     string
	Model       string
	GeminiKey   string
	APIAddr     string
	SweepCron   string
}

// Flags holds command line flag values
type Flags struct {
	dbDSN     *string
	stateDir  *string
	backend   *string
	provider  *string
	apiKey    *string
	baseURL   *string
	model     *string
	geminiKey *string
	apiAddr   *string
	sweepCron *string
	qrOutput  *string
	numeric   *bool
}

// initializeLogger sets up structured logging with debug level
func initializeLogger() {
	logger := slog.New(slog.NewTextHandler(os.Stdout, &slog.HandlerOptions{Level: slog.LevelDebug}))
	slog.SetDefault(logger)
}

// loadEnvironmentConfig loads configuration from environment variables and .env file
func loadEnvironmentConfig() Config {
	if err := godotenv.Load(); err != nil {
		slog.Debug("failed to load .env file", "error", err)
	} else {
		slog.Debug("successfully loaded .env file")
	}

	config := Config{
		DatabaseDSN: os.Getenv("DATABASE_DSN"),
		StateDir:    os.Getenv("MAMAMIND_STATE_DIR"),
		Backend:     os.Getenv("MESSAGING_BACKEND"),
		Provider:    os.Getenv("AI_PROVIDER"),
		APIKey:      os.Getenv("COMPLETION_API_KEY"),
		BaseURL:     os.Getenv("COMPLETION_BASE_URL"),
		Model:       os.Getenv("COMPLETION_MODEL"),
		GeminiKey:   os.Getenv("GEMINI_API_KEY"),
		APIAddr:     os.Getenv("API_ADDR"),
		SweepCron:   os.Getenv("SWEEP_SCHEDULE"),
	}

	if config.DatabaseDSN == "" {
		config.DatabaseDSN = os.Getenv("DATABASE_URL")
	}
	if config.StateDir == "" {
		config.StateDir = DefaultStateDir
	}
	if config.DatabaseDSN == "" {
		config.DatabaseDSN = filepath.Join(config.StateDir, DefaultDBFileName)
		slog.Debug("No database DSN provided, defaulting to SQLite", "sqlite_path", config.DatabaseDSN)
	}
	if config.Backend == "" {
		config.Backend = "twilio"
	}
	if config.Provider == "" {
		config.Provider = "openai"
	}
	if config.SweepCron == "" {
		config.SweepCron = DefaultSweepSchedule
	}

	slog.Debug("environment variables loaded",
		"DATABASE_DSN_SET", config.DatabaseDSN != "",
		"MAMAMIND_STATE_DIR", config.StateDir,
		"MESSAGING_BACKEND", config.Backend,
		"AI_PROVIDER", config.Provider,
		"COMPLETION_API_KEY_SET", config.APIKey != "",
		"API_ADDR", config.APIAddr,
		"SWEEP_SCHEDULE", config.SweepCron)

	return config
}

// parseCommandLineFlags parses command line arguments with environment defaults
func parseCommandLineFlags(config Config) Flags {
	flags := Flags{
		dbDSN:     flag.String("db-dsn", config.DatabaseDSN, "database DSN for the application store (overrides $DATABASE_DSN)"),
		stateDir:  flag.String("state-dir", config.StateDir, "state directory for MamaMind data (overrides $MAMAMIND_STATE_DIR)"),
		backend:   flag.String("messaging-backend", config.Backend, "messaging backend: twilio or whatsapp (overrides $MESSAGING_BACKEND)"),
		provider:  flag.String("ai-provider", config.Provider, "completion provider: openai or gemini (overrides $AI_PROVIDER)"),
		apiKey:    flag.String("completion-api-key", config.APIKey, "completion API key (overrides $COMPLETION_API_KEY)"),
		baseURL:   flag.String("completion-base-url", config.BaseURL, "completion API base URL, e.g. Perplexity (overrides $COMPLETION_BASE_URL)"),
		model:     flag.String("completion-model", config.Model, "completion model name (overrides $COMPLETION_MODEL)"),
		geminiKey: flag.String("gemini-api-key", config.GeminiKey, "Gemini API key (overrides $GEMINI_API_KEY)"),
		apiAddr:   flag.String("api-addr", config.APIAddr, "API server address (overrides $API_ADDR)"),
		sweepCron: flag.String("sweep-cron", config.SweepCron, "cron schedule for the notification sweep (overrides $SWEEP_SCHEDULE)"),
		qrOutput:  flag.String("qr-output", "", "path to write WhatsApp login QR code"),
		numeric:   flag.Bool("numeric-code", false, "use numeric WhatsApp login code instead of QR code"),
	}

	flag.Parse()

	slog.Debug("flags parsed",
		"dbDSN_set", *flags.dbDSN != "",
		"stateDir", *flags.stateDir,
		"backend", *flags.backend,
		"provider", *flags.provider,
		"apiAddr", *flags.apiAddr,
		"sweepCron", *flags.sweepCron)

	return flags
}

// ensureDirectoriesExist creates the state directory for file-based storage
func ensureDirectoriesExist(flags Flags) error {
	if store.DetectDSNType(*flags.dbDSN) == "postgres" {
		return nil
	}
	stateDir := filepath.Dir(*flags.dbDSN)
	if err := os.MkdirAll(stateDir, 0755); err != nil {
		slog.Error("Failed to create state directory", "error", err, "state_dir", stateDir)
		return err
	}
	return nil
}
