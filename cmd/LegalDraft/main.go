package main

import (
	"context"
	"flag"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/BTreeMap/LegalDraft/internal/api"
	"github.com/BTreeMap/LegalDraft/internal/blank"
	"github.com/BTreeMap/LegalDraft/internal/genai"
	"github.com/BTreeMap/LegalDraft/internal/interview"
	"github.com/BTreeMap/LegalDraft/internal/lockfile"
	"github.com/BTreeMap/LegalDraft/internal/messaging"
	"github.com/BTreeMap/LegalDraft/internal/store"
	"github.com/BTreeMap/LegalDraft/internal/twiliowhatsapp"
	"github.com/BTreeMap/LegalDraft/internal/util"
	"github.com/BTreeMap/LegalDraft/internal/whatsapp"
	"github.com/joho/godotenv"
)

const (
	// DefaultStateDir holds the delivery log, WhatsApp session, and debug dumps.
	DefaultStateDir = "/var/lib/legaldraft"
	// DefaultDBFileName is the SQLite delivery log inside the state directory.
	DefaultDBFileName = "legaldraft.db"
	// DefaultWhatsAppDBFileName is the Whatsmeow session inside the state directory.
	DefaultWhatsAppDBFileName = "whatsmeow.db"
)

// Messaging providers accepted by MESSAGING_PROVIDER.
const (
	ProviderNone     = "none"
	ProviderWhatsApp = "whatsapp"
	ProviderTwilio   = "twilio"
)

func main() {
	config := loadEnvironmentConfig()
	flags, err := parseCommandLineFlags(flag.CommandLine, os.Args[1:], config)
	if err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(2)
	}
	initializeLogger(flags.logLevel)

	if err := run(context.Background(), flags); err != nil {
		slog.Error("LegalDraft failed to run", "error", err)
		os.Exit(1)
	}
	slog.Info("LegalDraft exited successfully")
}

// Config holds environment configuration.
type Config struct {
	StateDir             string
	DatabaseURL          string
	WhatsAppDSN          string
	OpenAIKey            string
	GenAIModel           string
	GenAIBaseURL         string
	GenAIDebug           bool
	GenAITimeout         time.Duration
	APIAddr              string
	MessagingProvider    string
	TwilioAccountSID     string
	TwilioAuthToken      string
	TwilioFromNumber     string
	TwilioStatusCallback string
	ScanRadius           int
	QuestionRadius       int
	LogLevel             string
}

// Flags holds the final settings after command-line overrides.
type Flags struct {
	stateDir       string
	dbDSN          string
	waDSN          string
	qrOutput       string
	numeric        bool
	openaiKey      string
	genaiModel     string
	genaiBaseURL   string
	genaiDebug     bool
	genaiTimeout   time.Duration
	apiAddr        string
	provider       string
	twilioSID      string
	twilioToken    string
	twilioFrom     string
	twilioCallback string
	scanRadius     int
	questionRadius int
	logLevel       string
}

func initializeLogger(level string) {
	logger := slog.New(slog.NewTextHandler(os.Stdout, &slog.HandlerOptions{Level: util.ParseLogLevel(level)}))
	slog.SetDefault(logger)
}

// loadEnvironmentConfig reads .env (when present) and then the process environment.
func loadEnvironmentConfig() Config {
	if err := godotenv.Load(); err != nil {
		slog.Debug("loadEnvironmentConfig: no .env file loaded", "error", err)
	}

	config := Config{
		StateDir:             os.Getenv("LEGALDRAFT_STATE_DIR"),
		DatabaseURL:          os.Getenv("DATABASE_URL"),
		WhatsAppDSN:          os.Getenv("WHATSAPP_DB_DSN"),
		OpenAIKey:            os.Getenv("OPENAI_API_KEY"),
		GenAIModel:           os.Getenv("GENAI_MODEL"),
		GenAIBaseURL:         os.Getenv("GENAI_BASE_URL"),
		GenAIDebug:           util.ParseBoolEnv("GENAI_DEBUG", false),
		GenAITimeout:         util.ParseDurationEnv("GENAI_TIMEOUT", genai.DefaultRequestTimeout),
		APIAddr:              os.Getenv("API_ADDR"),
		MessagingProvider:    strings.ToLower(strings.TrimSpace(os.Getenv("MESSAGING_PROVIDER"))),
		TwilioAccountSID:     os.Getenv("TWILIO_ACCOUNT_SID"),
		TwilioAuthToken:      os.Getenv("TWILIO_AUTH_TOKEN"),
		TwilioFromNumber:     os.Getenv("TWILIO_FROM_NUMBER"),
		TwilioStatusCallback: os.Getenv("TWILIO_STATUS_CALLBACK_URL"),
		ScanRadius:           util.ParseIntEnv("SCAN_CONTEXT_RADIUS", blank.DefaultScanRadius),
		QuestionRadius:       util.ParseIntEnv("QUESTION_CONTEXT_RADIUS", blank.DefaultQuestionRadius),
		LogLevel:             os.Getenv("LOG_LEVEL"),
	}
	if config.StateDir == "" {
		config.StateDir = DefaultStateDir
	}
	if config.APIAddr == "" {
		config.APIAddr = api.DefaultServerAddress
	}
	if config.MessagingProvider == "" {
		config.MessagingProvider = ProviderNone
	}

	slog.Debug("loadEnvironmentConfig: environment loaded",
		"state_dir", config.StateDir,
		"database_url_set", config.DatabaseURL != "",
		"whatsapp_dsn_set", config.WhatsAppDSN != "",
		"openai_api_key_set", config.OpenAIKey != "",
		"genai_model", config.GenAIModel,
		"genai_debug", config.GenAIDebug,
		"api_addr", config.APIAddr,
		"messaging_provider", config.MessagingProvider)
	return config
}

// parseCommandLineFlags applies command-line overrides on top of config. Database paths
// not set explicitly are derived from the final state directory.
func parseCommandLineFlags(fs *flag.FlagSet, args []string, config Config) (Flags, error) {
	var f Flags
	fs.StringVar(&f.stateDir, "state-dir", config.StateDir, "state directory for LegalDraft data (overrides $LEGALDRAFT_STATE_DIR)")
	fs.StringVar(&f.dbDSN, "db-dsn", config.DatabaseURL, "delivery log DSN, Postgres URL or SQLite path (overrides $DATABASE_URL)")
	fs.StringVar(&f.waDSN, "whatsapp-db-dsn", config.WhatsAppDSN, "WhatsApp session DSN (overrides $WHATSAPP_DB_DSN)")
	fs.StringVar(&f.qrOutput, "qr-output", "", "path to write the WhatsApp login QR code")
	fs.BoolVar(&f.numeric, "numeric-code", false, "print the WhatsApp pairing code instead of a QR code")
	fs.StringVar(&f.openaiKey, "openai-api-key", config.OpenAIKey, "OpenAI API key (overrides $OPENAI_API_KEY)")
	fs.StringVar(&f.genaiModel, "genai-model", config.GenAIModel, "chat model (overrides $GENAI_MODEL)")
	fs.StringVar(&f.genaiBaseURL, "genai-base-url", config.GenAIBaseURL, "OpenAI-compatible endpoint (overrides $GENAI_BASE_URL)")
	fs.BoolVar(&f.genaiDebug, "genai-debug", config.GenAIDebug, "dump generation calls under <state-dir>/debug (overrides $GENAI_DEBUG)")
	fs.DurationVar(&f.genaiTimeout, "genai-timeout", config.GenAITimeout, "generation request timeout (overrides $GENAI_TIMEOUT)")
	fs.StringVar(&f.apiAddr, "api-addr", config.APIAddr, "API server address (overrides $API_ADDR)")
	fs.StringVar(&f.provider, "messaging-provider", config.MessagingProvider, "document delivery provider: none, whatsapp, or twilio (overrides $MESSAGING_PROVIDER)")
	fs.StringVar(&f.twilioSID, "twilio-account-sid", config.TwilioAccountSID, "Twilio account SID (overrides $TWILIO_ACCOUNT_SID)")
	fs.StringVar(&f.twilioToken, "twilio-auth-token", config.TwilioAuthToken, "Twilio auth token (overrides $TWILIO_AUTH_TOKEN)")
	fs.StringVar(&f.twilioFrom, "twilio-from", config.TwilioFromNumber, "Twilio WhatsApp sender (overrides $TWILIO_FROM_NUMBER)")
	fs.StringVar(&f.twilioCallback, "twilio-status-callback", config.TwilioStatusCallback, "public URL of /twilio/status (overrides $TWILIO_STATUS_CALLBACK_URL)")
	fs.IntVar(&f.scanRadius, "scan-radius", config.ScanRadius, "context radius for blank scanning (overrides $SCAN_CONTEXT_RADIUS)")
	fs.IntVar(&f.questionRadius, "question-radius", config.QuestionRadius, "context radius for generated questions (overrides $QUESTION_CONTEXT_RADIUS)")
	fs.StringVar(&f.logLevel, "log-level", config.LogLevel, "debug, info, warn, or error (overrides $LOG_LEVEL)")
	if err := fs.Parse(args); err != nil {
		return Flags{}, err
	}

	if f.dbDSN == "" {
		f.dbDSN = filepath.Join(f.stateDir, DefaultDBFileName)
	}
	if f.waDSN == "" {
		f.waDSN = "file:" + filepath.Join(f.stateDir, DefaultWhatsAppDBFileName) + "?_foreign_keys=on"
	}
	f.provider = strings.ToLower(f.provider)
	switch f.provider {
	case ProviderNone, ProviderWhatsApp, ProviderTwilio:
	default:
		return Flags{}, fmt.Errorf("unknown messaging provider %q", f.provider)
	}
	if f.scanRadius < 0 || f.questionRadius < 0 {
		return Flags{}, fmt.Errorf("context radii must not be negative")
	}
	return f, nil
}

// ensureDirectoriesExist creates the state directory and, for SQLite, the database
// directory.
func ensureDirectoriesExist(flags Flags) error {
	if err := os.MkdirAll(flags.stateDir, store.DefaultDirPermissions); err != nil {
		return fmt.Errorf("failed to create state directory: %w", err)
	}
	if store.DetectDSNType(flags.dbDSN) == "sqlite" {
		if err := os.MkdirAll(filepath.Dir(flags.dbDSN), store.DefaultDirPermissions); err != nil {
			return fmt.Errorf("failed to create database directory: %w", err)
		}
	}
	return nil
}

// openStore opens the delivery log named by the DSN.
func openStore(flags Flags) (store.Store, error) {
	if store.DetectDSNType(flags.dbDSN) == "postgres" {
		slog.Debug("openStore: using Postgres delivery log")
		return store.NewPostgresStore(store.WithPostgresDSN(flags.dbDSN))
	}
	slog.Debug("openStore: using SQLite delivery log", "path", flags.dbDSN)
	return store.NewSQLiteStore(store.WithSQLiteDSN(flags.dbDSN))
}

func buildGenAIOptions(flags Flags) []genai.Option {
	opts := []genai.Option{
		genai.WithTimeout(flags.genaiTimeout),
		genai.WithDebugMode(flags.genaiDebug, flags.stateDir),
	}
	if flags.openaiKey != "" {
		opts = append(opts, genai.WithAPIKey(flags.openaiKey))
	}
	if flags.genaiModel != "" {
		opts = append(opts, genai.WithModel(flags.genaiModel))
	}
	if flags.genaiBaseURL != "" {
		opts = append(opts, genai.WithBaseURL(flags.genaiBaseURL))
	}
	return opts
}

// buildGenerator returns the generation client, or nil when it cannot be created. The
// server still starts without one; only canned questions work until a key is set.
func buildGenerator(flags Flags) interview.Generator {
	client, err := genai.NewClient(buildGenAIOptions(flags)...)
	if err != nil {
		slog.Warn("buildGenerator: generation disabled", "error", err)
		return nil
	}
	return client
}

func buildWhatsAppOptions(flags Flags) []whatsapp.Option {
	opts := []whatsapp.Option{whatsapp.WithDBDSN(flags.waDSN)}
	if flags.qrOutput != "" {
		opts = append(opts, whatsapp.WithQRCodeOutput(flags.qrOutput))
	}
	if flags.numeric {
		opts = append(opts, whatsapp.WithNumericCode())
	}
	return opts
}

func buildTwilioOptions(flags Flags) []twiliowhatsapp.Option {
	var opts []twiliowhatsapp.Option
	if flags.twilioSID != "" {
		opts = append(opts, twiliowhatsapp.WithAccountSID(flags.twilioSID))
	}
	if flags.twilioToken != "" {
		opts = append(opts, twiliowhatsapp.WithAuthToken(flags.twilioToken))
	}
	if flags.twilioFrom != "" {
		opts = append(opts, twiliowhatsapp.WithFromWhats(flags.twilioFrom))
	}
	if flags.twilioCallback != "" {
		opts = append(opts, twiliowhatsapp.WithStatusCallback(flags.twilioCallback))
	}
	return opts
}

// buildMessagingService connects the configured delivery provider. It returns nil for
// ProviderNone.
func buildMessagingService(flags Flags) (messaging.Service, error) {
	switch flags.provider {
	case ProviderWhatsApp:
		client, err := whatsapp.NewClient(buildWhatsAppOptions(flags)...)
		if err != nil {
			return nil, fmt.Errorf("whatsapp: %w", err)
		}
		return messaging.NewWhatsAppService(client), nil
	case ProviderTwilio:
		client, err := twiliowhatsapp.NewClient(buildTwilioOptions(flags)...)
		if err != nil {
			return nil, fmt.Errorf("twilio: %w", err)
		}
		return messaging.NewTwilioService(client, messaging.WithSignatureValidation(flags.twilioToken, flags.twilioCallback)), nil
	default:
		return nil, nil
	}
}

func buildAPIOptions(flags Flags, svc messaging.Service) []api.Option {
	opts := []api.Option{
		api.WithAddr(flags.apiAddr),
		api.WithScanRadius(flags.scanRadius),
		api.WithQuestionRadius(flags.questionRadius),
	}
	if svc != nil {
		opts = append(opts, api.WithMessaging(svc))
	}
	return opts
}

func run(ctx context.Context, flags Flags) error {
	if err := ensureDirectoriesExist(flags); err != nil {
		return err
	}
	lock, err := lockfile.AcquireLock(flags.stateDir)
	if err != nil {
		return err
	}
	defer func() {
		if err := lock.Release(); err != nil {
			slog.Warn("run: failed to release state directory lock", "error", err)
		}
	}()
	st, err := openStore(flags)
	if err != nil {
		return fmt.Errorf("failed to open delivery log: %w", err)
	}
	svc, err := buildMessagingService(flags)
	if err != nil {
		st.Close()
		return err
	}

	slog.Info("Bootstrapping LegalDraft", "api_addr", flags.apiAddr, "messaging_provider", flags.provider,
		"state_dir", flags.stateDir, "genai_debug", flags.genaiDebug)
	server := api.NewServer(buildGenerator(flags), st, buildAPIOptions(flags, svc)...)
	return server.Run(ctx)
}
