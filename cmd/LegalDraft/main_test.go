package main

import (
	"flag"
	"io"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/BTreeMap/LegalDraft/internal/api"
	"github.com/BTreeMap/LegalDraft/internal/blank"
	"github.com/BTreeMap/LegalDraft/internal/genai"
	"github.com/BTreeMap/LegalDraft/internal/messaging"
)

var configEnv = []string{
	"LEGALDRAFT_STATE_DIR", "DATABASE_URL", "WHATSAPP_DB_DSN", "OPENAI_API_KEY", "GENAI_MODEL",
	"GENAI_BASE_URL", "GENAI_DEBUG", "GENAI_TIMEOUT", "API_ADDR", "MESSAGING_PROVIDER",
	"TWILIO_ACCOUNT_SID", "TWILIO_AUTH_TOKEN", "TWILIO_FROM_NUMBER", "TWILIO_STATUS_CALLBACK_URL",
	"SCAN_CONTEXT_RADIUS", "QUESTION_CONTEXT_RADIUS", "LOG_LEVEL",
}

func clearConfigEnv(t *testing.T) {
	t.Helper()
	for _, key := range configEnv {
		t.Setenv(key, "")
	}
}

func parse(t *testing.T, config Config, args ...string) Flags {
	t.Helper()
	flags, err := parseCommandLineFlags(flag.NewFlagSet("test", flag.ContinueOnError), args, config)
	if err != nil {
		t.Fatalf("parseCommandLineFlags: unexpected error: %v", err)
	}
	return flags
}

func TestLoadEnvironmentConfigDefaults(t *testing.T) {
	clearConfigEnv(t)
	config := loadEnvironmentConfig()

	if config.StateDir != DefaultStateDir {
		t.Errorf("expected default state dir %q, got %q", DefaultStateDir, config.StateDir)
	}
	if config.APIAddr != api.DefaultServerAddress {
		t.Errorf("expected default address, got %q", config.APIAddr)
	}
	if config.MessagingProvider != ProviderNone {
		t.Errorf("expected provider %q, got %q", ProviderNone, config.MessagingProvider)
	}
	if config.ScanRadius != blank.DefaultScanRadius || config.QuestionRadius != blank.DefaultQuestionRadius {
		t.Errorf("unexpected radii %d/%d", config.ScanRadius, config.QuestionRadius)
	}
	if config.GenAITimeout != genai.DefaultRequestTimeout || config.GenAIDebug {
		t.Errorf("unexpected genai settings %v/%v", config.GenAITimeout, config.GenAIDebug)
	}
}

func TestLoadEnvironmentConfigFromEnv(t *testing.T) {
	clearConfigEnv(t)
	t.Setenv("LEGALDRAFT_STATE_DIR", "/srv/legal")
	t.Setenv("MESSAGING_PROVIDER", " Twilio ")
	t.Setenv("GENAI_DEBUG", "yes")
	t.Setenv("GENAI_TIMEOUT", "15s")
	t.Setenv("SCAN_CONTEXT_RADIUS", "80")
	t.Setenv("QUESTION_CONTEXT_RADIUS", "bogus")

	config := loadEnvironmentConfig()
	if config.StateDir != "/srv/legal" || config.MessagingProvider != ProviderTwilio {
		t.Errorf("unexpected config %+v", config)
	}
	if !config.GenAIDebug || config.GenAITimeout != 15*time.Second {
		t.Errorf("unexpected genai settings %v/%v", config.GenAIDebug, config.GenAITimeout)
	}
	if config.ScanRadius != 80 || config.QuestionRadius != blank.DefaultQuestionRadius {
		t.Errorf("unexpected radii %d/%d", config.ScanRadius, config.QuestionRadius)
	}
}

func TestParseCommandLineFlagsDerivesDSNs(t *testing.T) {
	clearConfigEnv(t)
	flags := parse(t, loadEnvironmentConfig(), "-state-dir", "/tmp/legal")

	if want := filepath.Join("/tmp/legal", DefaultDBFileName); flags.dbDSN != want {
		t.Errorf("expected delivery log %q, got %q", want, flags.dbDSN)
	}
	if want := "file:" + filepath.Join("/tmp/legal", DefaultWhatsAppDBFileName) + "?_foreign_keys=on"; flags.waDSN != want {
		t.Errorf("expected session DSN %q, got %q", want, flags.waDSN)
	}
}

func TestParseCommandLineFlagsOverrides(t *testing.T) {
	clearConfigEnv(t)
	t.Setenv("DATABASE_URL", "postgres://env/db")
	t.Setenv("API_ADDR", ":9000")
	flags := parse(t, loadEnvironmentConfig(), "-api-addr", ":7000", "-messaging-provider", "WHATSAPP", "-question-radius", "20")

	if flags.dbDSN != "postgres://env/db" {
		t.Errorf("expected env DSN kept, got %q", flags.dbDSN)
	}
	if flags.apiAddr != ":7000" || flags.provider != ProviderWhatsApp || flags.questionRadius != 20 {
		t.Errorf("flags not applied: %+v", flags)
	}
}

func TestParseCommandLineFlagsRejectsBadValues(t *testing.T) {
	clearConfigEnv(t)
	config := loadEnvironmentConfig()
	for _, args := range [][]string{
		{"-messaging-provider", "pigeon"},
		{"-scan-radius", "-1"},
		{"-unknown-flag"},
	} {
		fs := flag.NewFlagSet("test", flag.ContinueOnError)
		fs.SetOutput(io.Discard)
		if _, err := parseCommandLineFlags(fs, args, config); err == nil {
			t.Errorf("expected error for %v", args)
		}
	}
}

func TestEnsureDirectoriesExistAndOpenStore(t *testing.T) {
	clearConfigEnv(t)
	stateDir := filepath.Join(t.TempDir(), "state")
	flags := parse(t, loadEnvironmentConfig(), "-state-dir", stateDir)

	if err := ensureDirectoriesExist(flags); err != nil {
		t.Fatalf("ensureDirectoriesExist: unexpected error: %v", err)
	}
	if info, err := os.Stat(stateDir); err != nil || !info.IsDir() {
		t.Fatalf("state directory not created: %v", err)
	}

	st, err := openStore(flags)
	if err != nil {
		t.Fatalf("openStore: unexpected error: %v", err)
	}
	defer st.Close()
	if _, err := os.Stat(filepath.Join(stateDir, DefaultDBFileName)); err != nil {
		t.Errorf("SQLite file not created: %v", err)
	}
}

func TestBuildGeneratorWithoutKey(t *testing.T) {
	clearConfigEnv(t)
	flags := parse(t, loadEnvironmentConfig())
	if gen := buildGenerator(flags); gen != nil {
		t.Errorf("expected nil generator without an API key, got %T", gen)
	}
}

func TestBuildGeneratorWithKey(t *testing.T) {
	clearConfigEnv(t)
	flags := parse(t, loadEnvironmentConfig(), "-openai-api-key", "sk-test", "-genai-model", "gpt-4o")
	gen := buildGenerator(flags)
	if _, ok := gen.(*genai.Client); !ok {
		t.Errorf("expected *genai.Client, got %T", gen)
	}
}

func TestBuildMessagingService(t *testing.T) {
	clearConfigEnv(t)
	config := loadEnvironmentConfig()

	svc, err := buildMessagingService(parse(t, config))
	if err != nil || svc != nil {
		t.Errorf("expected no service for provider none, got %v (err %v)", svc, err)
	}

	if _, err := buildMessagingService(parse(t, config, "-messaging-provider", "twilio")); err == nil || !strings.HasPrefix(err.Error(), "twilio:") {
		t.Errorf("expected twilio credential error, got %v", err)
	}

	svc, err = buildMessagingService(parse(t, config, "-messaging-provider", "twilio",
		"-twilio-account-sid", "AC123", "-twilio-auth-token", "tok", "-twilio-from", "+15550000000"))
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if _, ok := svc.(*messaging.TwilioService); !ok {
		t.Errorf("expected *messaging.TwilioService, got %T", svc)
	}
}

func TestBuildOptions(t *testing.T) {
	clearConfigEnv(t)
	flags := parse(t, loadEnvironmentConfig(), "-qr-output", "/tmp/qr.txt", "-numeric-code",
		"-twilio-status-callback", "https://example.com/twilio/status")

	if got := len(buildWhatsAppOptions(flags)); got != 3 {
		t.Errorf("expected 3 WhatsApp options, got %d", got)
	}
	if got := len(buildTwilioOptions(flags)); got != 1 {
		t.Errorf("expected 1 Twilio option, got %d", got)
	}
	if got := len(buildAPIOptions(flags, nil)); got != 3 {
		t.Errorf("expected 3 API options without messaging, got %d", got)
	}
	if got := len(buildAPIOptions(flags, messaging.NewTwilioService(nil))); got != 4 {
		t.Errorf("expected 4 API options with messaging, got %d", got)
	}
}
