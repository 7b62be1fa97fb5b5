// Command lumobot serves the LumoPack packaging-order interview over HTTP and,
// optionally, over WhatsApp.
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
	"github.com/lumopack/lumobot/internal/api"
	"github.com/lumopack/lumobot/internal/flow"
	"github.com/lumopack/lumobot/internal/genai"
	"github.com/lumopack/lumobot/internal/lockfile"
	"github.com/lumopack/lumobot/internal/messaging"
	"github.com/lumopack/lumobot/internal/pricing"
	"github.com/lumopack/lumobot/internal/scheduler"
	"github.com/lumopack/lumobot/internal/store"
	"github.com/lumopack/lumobot/internal/twiliowhatsapp"
	"github.com/lumopack/lumobot/internal/util"
	"github.com/lumopack/lumobot/internal/whatsapp"
	"golang.org/x/sync/errgroup"
)

// Default configuration constants
const (
	// DefaultStateDir is the default directory for lumobot state data
	DefaultStateDir = "/var/lib/lumobot"
	// DefaultDBFileName is the default SQLite database filename
	DefaultDBFileName = "lumobot.db"
	// DefaultWhatsAppDBFileName is the default whatsmeow device store filename
	DefaultWhatsAppDBFileName = "whatsmeow.db"

	// MemoryDSN keeps sessions and orders in process memory.
	MemoryDSN = "memory"

	DefaultSessionMaxAge   = 24 * time.Hour
	DefaultCleanupInterval = time.Hour
)

// Messaging channels selectable with LUMOBOT_CHANNEL.
const (
	ChannelNone     = "none"
	ChannelWhatsApp = "whatsapp"
	ChannelTwilio   = "twilio"
)

func main() {
	config := loadEnvironmentConfig()
	initializeLogger(config.Debug)

	flags, err := parseCommandLineFlags(config, os.Args[1:])
	if err != nil {
		if errors.Is(err, flag.ErrHelp) {
			return
		}
		slog.Error("Failed to parse flags", "error", err)
		os.Exit(2)
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	slog.Info("Bootstrapping lumobot", "channel", flags.channel, "api_addr", flags.apiAddr)
	if err := run(ctx, flags); err != nil {
		slog.Error("lumobot failed to run", "error", err)
		os.Exit(1)
	}
	slog.Info("lumobot exited successfully")
}

// Config holds environment configuration
type Config struct {
	StateDir         string
	DatabaseURL      string
	RedisAddr        string
	RedisPassword    string
	RedisDB          int
	OpenAIKey        string
	GenAIModel       string
	GenAIBaseURL     string
	APIAddr          string
	PricingCatalog   string
	SessionMaxAge    time.Duration
	CleanupInterval  time.Duration
	CleanupSchedule  string
	Channel          string
	WhatsAppDSN      string
	TwilioAccountSID string
	TwilioAuthToken  string
	TwilioFromNumber string
	TwilioWebhookURL string
	Debug            bool
}

// Flags holds resolved settings after command line overrides.
type Flags struct {
	stateDir        string
	dbDSN           string
	redisAddr       string
	redisPassword   string
	redisDB         int
	openaiKey       string
	genaiModel      string
	genaiBaseURL    string
	apiAddr         string
	pricingCatalog  string
	sessionMaxAge   time.Duration
	cleanupInterval time.Duration
	cleanupSchedule string
	channel         string
	whatsappDSN     string
	qrOutput        string
	numeric         bool
	twilioSID       string
	twilioToken     string
	twilioFrom      string
	webhookURL      string
}

// initializeLogger installs a text slog handler on stdout.
func initializeLogger(debug bool) {
	level := slog.LevelInfo
	if debug {
		level = slog.LevelDebug
	}
	logger := slog.New(slog.NewTextHandler(os.Stdout, &slog.HandlerOptions{Level: level}))
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
		StateDir:         os.Getenv("LUMOBOT_STATE_DIR"),
		DatabaseURL:      os.Getenv("DATABASE_URL"),
		RedisAddr:        os.Getenv("REDIS_ADDR"),
		RedisPassword:    os.Getenv("REDIS_PASSWORD"),
		RedisDB:          util.ParseIntEnv("REDIS_DB", 0),
		OpenAIKey:        os.Getenv("OPENAI_API_KEY"),
		GenAIModel:       os.Getenv("GENAI_MODEL"),
		GenAIBaseURL:     os.Getenv("GENAI_BASE_URL"),
		APIAddr:          os.Getenv("API_ADDR"),
		PricingCatalog:   os.Getenv("PRICING_CATALOG"),
		SessionMaxAge:    util.ParseDurationEnv("SESSION_MAX_AGE", DefaultSessionMaxAge),
		CleanupInterval:  util.ParseDurationEnv("SESSION_CLEANUP_INTERVAL", DefaultCleanupInterval),
		CleanupSchedule:  os.Getenv("SESSION_CLEANUP_SCHEDULE"),
		Channel:          strings.ToLower(strings.TrimSpace(os.Getenv("LUMOBOT_CHANNEL"))),
		WhatsAppDSN:      os.Getenv("WHATSAPP_DB_DSN"),
		TwilioAccountSID: os.Getenv("TWILIO_ACCOUNT_SID"),
		TwilioAuthToken:  os.Getenv("TWILIO_AUTH_TOKEN"),
		TwilioFromNumber: os.Getenv("TWILIO_FROM_NUMBER"),
		TwilioWebhookURL: os.Getenv("TWILIO_WEBHOOK_URL"),
		Debug:            util.ParseBoolEnv("LUMOBOT_DEBUG", false),
	}

	if config.StateDir == "" {
		config.StateDir = DefaultStateDir
		slog.Debug("No LUMOBOT_STATE_DIR set, using default", "default_state_dir", config.StateDir)
	}
	if config.APIAddr == "" {
		config.APIAddr = api.DefaultAddr
	}
	if config.Channel == "" {
		config.Channel = ChannelNone
	}

	slog.Debug("environment variables loaded",
		"LUMOBOT_STATE_DIR", config.StateDir,
		"DATABASE_URL_SET", config.DatabaseURL != "",
		"REDIS_ADDR_SET", config.RedisAddr != "",
		"OPENAI_API_KEY_SET", config.OpenAIKey != "",
		"GENAI_MODEL", config.GenAIModel,
		"API_ADDR", config.APIAddr,
		"LUMOBOT_CHANNEL", config.Channel,
		"TWILIO_AUTH_TOKEN_SET", config.TwilioAuthToken != "")

	return config
}

// parseCommandLineFlags parses args with environment values as defaults.
// Database DSNs that were not given explicitly follow the final state directory.
func parseCommandLineFlags(config Config, args []string) (Flags, error) {
	fs := flag.NewFlagSet("lumobot", flag.ContinueOnError)
	var f Flags
	fs.StringVar(&f.stateDir, "state-dir", config.StateDir, "state directory for lumobot data (overrides $LUMOBOT_STATE_DIR)")
	fs.StringVar(&f.dbDSN, "db-dsn", config.DatabaseURL, "session and order database: PostgreSQL URL, SQLite path or \"memory\" (overrides $DATABASE_URL)")
	fs.StringVar(&f.redisAddr, "redis-addr", config.RedisAddr, "Redis address for the session store (overrides $REDIS_ADDR)")
	fs.StringVar(&f.openaiKey, "openai-api-key", config.OpenAIKey, "OpenAI-compatible API key enabling phrasing (overrides $OPENAI_API_KEY)")
	fs.StringVar(&f.genaiModel, "genai-model", config.GenAIModel, "chat model name (overrides $GENAI_MODEL)")
	fs.StringVar(&f.genaiBaseURL, "genai-base-url", config.GenAIBaseURL, "OpenAI-compatible endpoint (overrides $GENAI_BASE_URL)")
	fs.StringVar(&f.apiAddr, "api-addr", config.APIAddr, "API server address (overrides $API_ADDR)")
	fs.StringVar(&f.pricingCatalog, "pricing-catalog", config.PricingCatalog, "YAML rate catalog replacing the built-in one (overrides $PRICING_CATALOG)")
	fs.DurationVar(&f.sessionMaxAge, "session-max-age", config.SessionMaxAge, "idle time after which sessions are removed (overrides $SESSION_MAX_AGE)")
	fs.StringVar(&f.cleanupSchedule, "cleanup-schedule", config.CleanupSchedule, "cron expression for idle session cleanup (overrides $SESSION_CLEANUP_SCHEDULE)")
	fs.StringVar(&f.channel, "channel", config.Channel, "messaging channel: none, whatsapp or twilio (overrides $LUMOBOT_CHANNEL)")
	fs.StringVar(&f.whatsappDSN, "whatsapp-db-dsn", config.WhatsAppDSN, "whatsmeow device store DSN (overrides $WHATSAPP_DB_DSN)")
	fs.StringVar(&f.qrOutput, "qr-output", "", "path to write the WhatsApp login QR code")
	fs.BoolVar(&f.numeric, "numeric-code", false, "use numeric login code instead of QR code")
	if err := fs.Parse(args); err != nil {
		return Flags{}, err
	}

	f.redisPassword = config.RedisPassword
	f.redisDB = config.RedisDB
	f.cleanupInterval = config.CleanupInterval
	f.twilioSID = config.TwilioAccountSID
	f.twilioToken = config.TwilioAuthToken
	f.twilioFrom = config.TwilioFromNumber
	f.webhookURL = config.TwilioWebhookURL

	if f.dbDSN == "" && f.redisAddr == "" {
		f.dbDSN = filepath.Join(f.stateDir, DefaultDBFileName)
		slog.Debug("No database DSN provided, defaulting to SQLite", "sqlite_path", f.dbDSN)
	}
	if f.cleanupSchedule == "" {
		f.cleanupSchedule = scheduler.Every(f.cleanupInterval)
	}
	if f.whatsappDSN == "" {
		f.whatsappDSN = "file:" + filepath.Join(f.stateDir, DefaultWhatsAppDBFileName) + "?_foreign_keys=on"
	}
	switch f.channel {
	case ChannelNone, ChannelWhatsApp, ChannelTwilio:
	default:
		return Flags{}, fmt.Errorf("unknown channel %q, want none, whatsapp or twilio", f.channel)
	}

	slog.Debug("flags parsed",
		"stateDir", f.stateDir,
		"dbDSN_set", f.dbDSN != "",
		"redisAddr_set", f.redisAddr != "",
		"openaiKeySet", f.openaiKey != "",
		"apiAddr", f.apiAddr,
		"cleanupSchedule", f.cleanupSchedule,
		"channel", f.channel)
	return f, nil
}

// buildStoreOptions constructs store configuration options
func buildStoreOptions(f Flags) []store.Option {
	var opts []store.Option
	if f.redisAddr != "" {
		opts = append(opts,
			store.WithRedisAddr(f.redisAddr),
			store.WithRedisPassword(f.redisPassword),
			store.WithRedisDB(f.redisDB),
			store.WithSessionTTL(f.sessionMaxAge))
		return opts
	}
	if f.dbDSN != "" && f.dbDSN != MemoryDSN {
		if store.DetectDSNType(f.dbDSN) == "postgres" {
			slog.Debug("Detected PostgreSQL DSN, configuring PostgreSQL store", "dsn_type", "postgresql", "dsn_set", true)
			opts = append(opts, store.WithPostgresDSN(f.dbDSN))
		} else {
			slog.Debug("Detected SQLite DSN, configuring SQLite store", "dsn_type", "sqlite", "db_path", f.dbDSN)
			opts = append(opts, store.WithSQLiteDSN(f.dbDSN))
		}
	}
	return opts
}

// openStore picks Redis, then PostgreSQL or SQLite by DSN, or memory for MemoryDSN.
func openStore(f Flags) (store.Store, error) {
	opts := buildStoreOptions(f)
	switch {
	case f.redisAddr != "":
		return store.NewRedisStore(opts...)
	case f.dbDSN == "" || f.dbDSN == MemoryDSN:
		slog.Warn("No database configured, sessions are kept in memory only")
		return store.NewInMemoryStore(), nil
	case store.DetectDSNType(f.dbDSN) == "postgres":
		return store.NewPostgresStore(opts...)
	default:
		if err := os.MkdirAll(filepath.Dir(f.dbDSN), 0o755); err != nil {
			return nil, fmt.Errorf("failed to create database directory: %w", err)
		}
		return store.NewSQLiteStore(opts...)
	}
}

// buildGenAIOptions constructs GenAI configuration options
func buildGenAIOptions(f Flags) []genai.Option {
	var opts []genai.Option
	if f.openaiKey != "" {
		opts = append(opts, genai.WithAPIKey(f.openaiKey))
	}
	if f.genaiModel != "" {
		opts = append(opts, genai.WithModel(f.genaiModel))
	}
	if f.genaiBaseURL != "" {
		opts = append(opts, genai.WithBaseURL(f.genaiBaseURL))
	}
	return opts
}

// buildPricingOptions constructs pricing calculator options
func buildPricingOptions(f Flags) []pricing.Option {
	if f.pricingCatalog == "" {
		return nil
	}
	return []pricing.Option{pricing.WithCatalogFile(f.pricingCatalog)}
}

// buildWhatsAppOptions constructs WhatsApp configuration options
func buildWhatsAppOptions(f Flags) []whatsapp.Option {
	opts := []whatsapp.Option{whatsapp.WithDBDSN(f.whatsappDSN)}
	if f.qrOutput != "" {
		opts = append(opts, whatsapp.WithQRCodeOutput(f.qrOutput))
	}
	if f.numeric {
		opts = append(opts, whatsapp.WithNumericCode())
	}
	return opts
}

// buildTwilioOptions constructs Twilio configuration options
func buildTwilioOptions(f Flags) []twiliowhatsapp.Option {
	var opts []twiliowhatsapp.Option
	if f.twilioSID != "" {
		opts = append(opts, twiliowhatsapp.WithAccountSID(f.twilioSID))
	}
	if f.twilioToken != "" {
		opts = append(opts, twiliowhatsapp.WithAuthToken(f.twilioToken))
	}
	if f.twilioFrom != "" {
		opts = append(opts, twiliowhatsapp.WithFromWhats(f.twilioFrom))
	}
	return opts
}

// run wires the components and blocks until ctx is cancelled or one of them fails.
func run(ctx context.Context, f Flags) error {
	lock, err := lockfile.Acquire(f.stateDir, f.apiAddr)
	if err != nil {
		return err
	}
	defer lock.Release()

	st, err := openStore(f)
	if err != nil {
		return fmt.Errorf("failed to open store: %w", err)
	}
	defer st.Close()

	calc, err := pricing.NewCalculator(buildPricingOptions(f)...)
	if err != nil {
		return fmt.Errorf("failed to load pricing catalog: %w", err)
	}

	flowOpts := []flow.Option{flow.WithOrderSaver(st)}
	apiOpts := []api.Option{api.WithAddr(f.apiAddr), api.WithPricer(calc)}
	if f.openaiKey != "" {
		client, err := genai.NewClient(buildGenAIOptions(f)...)
		if err != nil {
			return fmt.Errorf("failed to create GenAI client: %w", err)
		}
		flowOpts = append(flowOpts, flow.WithPhraser(client))
		apiOpts = append(apiOpts, api.WithExtractor(client))
	} else {
		slog.Info("No OpenAI API key configured, replies use the built-in texts")
	}
	sessions := flow.NewSessionManager(st, flow.NewOrchestrator(calc, flowOpts...))

	svc, cleanup, err := openChannel(ctx, f)
	if err != nil {
		return err
	}
	defer cleanup()
	if tw, ok := svc.(*messaging.TwilioService); ok {
		apiOpts = append(apiOpts, api.WithTwilioWebhook(tw.TwilioWebhookHandler))
	}
	server := api.NewServer(sessions, apiOpts...)

	if svc != nil {
		if err := svc.Start(ctx); err != nil {
			return fmt.Errorf("failed to start %s channel: %w", f.channel, err)
		}
	}

	sched := scheduler.NewScheduler()
	err = sched.AddJob(f.cleanupSchedule, func() {
		if _, err := sessions.Cleanup(ctx, f.sessionMaxAge); err != nil {
			slog.Error("Session cleanup failed", "error", err)
		}
	})
	if err != nil {
		sched.Stop()
		return fmt.Errorf("invalid cleanup schedule %q: %w", f.cleanupSchedule, err)
	}

	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error { return server.Run(gctx) })
	g.Go(func() error { return sched.Run(gctx) })
	if svc != nil {
		g.Go(func() error { return messaging.NewRelay(svc, sessions).Run(gctx) })
	}
	return g.Wait()
}

// openChannel creates the messaging service for f.channel. It returns a nil service for
// ChannelNone. cleanup stops the service and closes its client.
func openChannel(ctx context.Context, f Flags) (messaging.Service, func(), error) {
	switch f.channel {
	case ChannelWhatsApp:
		client, err := whatsapp.NewClient(ctx, buildWhatsAppOptions(f)...)
		if err != nil {
			return nil, nil, fmt.Errorf("failed to create WhatsApp client: %w", err)
		}
		svc := messaging.NewWhatsAppService(client)
		return svc, func() {
			svc.Stop()
			client.Disconnect()
		}, nil
	case ChannelTwilio:
		client, err := twiliowhatsapp.NewClient(buildTwilioOptions(f)...)
		if err != nil {
			return nil, nil, fmt.Errorf("failed to create Twilio client: %w", err)
		}
		var opts []messaging.TwilioOption
		if f.webhookURL != "" {
			opts = append(opts, messaging.WithWebhookValidator(client, f.webhookURL))
		} else {
			slog.Warn("TWILIO_WEBHOOK_URL not set, webhook signatures are not checked")
		}
		svc := messaging.NewTwilioService(client, opts...)
		return svc, func() { svc.Stop() }, nil
	default:
		return nil, func() {}, nil
	}
}
