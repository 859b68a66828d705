package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/panthibivek/InsightLens/api/internal/detect"
)

var envKeys = []string{
	"CONFIG_FILE", "PORT", "GEMINI_API_KEY", "GOOGLE_API_KEY", "API_KEY", "GEMINI_MODEL",
	"OPENAI_API_KEY", "OPENAI_MODEL", "OPENAI_BASE_URL", "DEFAULT_ENGINE", "BOX_ORDER",
	"REQUEST_TIMEOUT_SEC", "MAX_UPLOAD_MB", "LINE_WIDTH", "LOG_LEVEL", "LOG_FORMAT",
	"TELEGRAM_BOT_TOKEN", "WEBHOOK_URL",
}

func clearEnv(t *testing.T) {
	t.Helper()
	for _, k := range envKeys {
		t.Setenv(k, "")
	}
}

func TestLoadDefaults(t *testing.T) {
	clearEnv(t)
	cfg, err := Load("")
	require.NoError(t, err)

	assert.Equal(t, "8000", cfg.Port)
	assert.Equal(t, "gemini-2.5-flash", cfg.GeminiModel)
	assert.Equal(t, "gemini", cfg.DefaultEngine)
	assert.Equal(t, detect.YXYX, cfg.Order())
	assert.Equal(t, 60*time.Second, cfg.RequestTimeout())
	assert.Equal(t, int64(20<<20), cfg.MaxUploadBytes())

	assert.ErrorContains(t, cfg.Validate(), "missing GEMINI_API_KEY")
}

func TestLoadEnvOverridesFile(t *testing.T) {
	clearEnv(t)
	path := filepath.Join(t.TempDir(), "config.yaml")
	require.NoError(t, os.WriteFile(path, []byte(`
port: "9000"
gemini_api_key: from-file
box_order: xyxy
line_width: 5
`), 0o644))

	t.Setenv("CONFIG_FILE", path)
	t.Setenv("LINE_WIDTH", "2")
	t.Setenv("GOOGLE_API_KEY", "from-google-env")

	cfg, err := Load("")
	require.NoError(t, err)
	assert.Equal(t, "9000", cfg.Port)
	assert.Equal(t, "from-google-env", cfg.GeminiAPIKey)
	assert.Equal(t, detect.XYXY, cfg.Order())
	assert.Equal(t, 2, cfg.LineWidth)
	assert.NoError(t, cfg.Validate())
}

func TestLoadBadFile(t *testing.T) {
	clearEnv(t)
	_, err := Load(filepath.Join(t.TempDir(), "missing.yaml"))
	assert.Error(t, err)

	path := filepath.Join(t.TempDir(), "bad.yaml")
	require.NoError(t, os.WriteFile(path, []byte("port: [unclosed"), 0o644))
	_, err = Load(path)
	assert.Error(t, err)
}

func TestValidate(t *testing.T) {
	cfg := defaults()
	cfg.GeminiAPIKey = "k"
	require.NoError(t, cfg.Validate())

	cfg.DefaultEngine = "gpt"
	assert.ErrorContains(t, cfg.Validate(), "OPENAI_API_KEY")
	cfg.OpenAIAPIKey = "k"
	require.NoError(t, cfg.Validate())

	cfg.DefaultEngine = "llama"
	cfg.BoxOrder = "xy"
	cfg.MaxUploadMB = 0
	err := cfg.Validate()
	assert.ErrorContains(t, err, "unknown DEFAULT_ENGINE")
	assert.ErrorContains(t, err, "box order")
	assert.ErrorContains(t, err, "MAX_UPLOAD_MB")
}

func TestValidateBot(t *testing.T) {
	cfg := defaults()
	cfg.GeminiAPIKey = "k"
	assert.ErrorContains(t, cfg.ValidateBot(), "TELEGRAM_BOT_TOKEN")
	cfg.TelegramBotToken = "t"
	assert.NoError(t, cfg.ValidateBot())
}

func TestMalformedEnvIntsFailValidate(t *testing.T) {
	clearEnv(t)
	t.Setenv("GEMINI_API_KEY", "k")
	t.Setenv("REQUEST_TIMEOUT_SEC", "abc")
	t.Setenv("LINE_WIDTH", "2px")

	cfg, err := Load("")
	require.NoError(t, err)
	assert.Equal(t, 60, cfg.RequestTimeoutSec)

	err = cfg.Validate()
	assert.ErrorContains(t, err, `REQUEST_TIMEOUT_SEC: "abc" is not an integer`)
	assert.ErrorContains(t, err, `LINE_WIDTH: "2px" is not an integer`)
	assert.ErrorContains(t, cfg.ValidateBot(), "REQUEST_TIMEOUT_SEC")
}

func TestBadBoxOrderEnvFailsValidate(t *testing.T) {
	clearEnv(t)
	t.Setenv("GEMINI_API_KEY", "k")
	t.Setenv("BOX_ORDER", "xyx")

	cfg, err := Load("")
	require.NoError(t, err)
	assert.ErrorContains(t, cfg.Validate(), "unknown box order")
}
