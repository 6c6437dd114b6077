package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLoad_DefaultsAndCredentialsFromEnv(t *testing.T) {
	t.Chdir(t.TempDir())
	t.Setenv("TELEGRAM_TOKEN", "tg-token")
	t.Setenv("OPENAI_API_KEY", "sk-openai")
	t.Setenv("PERPLEXITY_API_KEY", "pplx-key")

	cfg, err := Load("", "")
	require.NoError(t, err)

	assert.Equal(t, "tg-token", cfg.Transports.Telegram.Token)
	assert.Equal(t, "sk-openai", cfg.OpenAI.APIKey)
	assert.Equal(t, "pplx-key", cfg.Search.APIKey)
	assert.Equal(t, "gpt-4o", cfg.OpenAI.CompletionModel)
	assert.Equal(t, "whisper-1", cfg.OpenAI.TranscriptionModel)
	assert.Equal(t, "tts-1", cfg.OpenAI.SpeechModel)
	assert.Equal(t, "nova", cfg.OpenAI.Voice)
	assert.Equal(t, "ru", cfg.OpenAI.Language)
	assert.Equal(t, "https://api.perplexity.ai/", cfg.Search.BaseURL)
	assert.Equal(t, "sonar", cfg.Search.Model)
	assert.Equal(t, time.Minute, cfg.Reminders.CheckInterval)
	assert.Equal(t, 4000, cfg.Documents.MaxChars)
	assert.Equal(t, "openai", cfg.TTS.Backend)
}

func TestLoad_MissingTelegramToken(t *testing.T) {
	t.Chdir(t.TempDir())
	t.Setenv("TELEGRAM_TOKEN", "")
	t.Setenv("COPILOT_TRANSPORTS_TELEGRAM_TOKEN", "")

	_, err := Load("", "")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "telegram token")
}

func TestLoad_ConfigFileAndEnvRef(t *testing.T) {
	dir := t.TempDir()
	t.Chdir(dir)
	t.Setenv("MY_TG_TOKEN", "from-ref")

	path := filepath.Join(dir, "copilot.yaml")
	yaml := `
transports:
  telegram:
    token: "${MY_TG_TOKEN}"
reminders:
  check_interval: 15s
documents:
  max_chars: 100
tts:
  backend: piper
`
	require.NoError(t, os.WriteFile(path, []byte(yaml), 0o600))

	cfg, err := Load(path, "")
	require.NoError(t, err)
	assert.Equal(t, "from-ref", cfg.Transports.Telegram.Token)
	assert.Equal(t, 15*time.Second, cfg.Reminders.CheckInterval)
	assert.Equal(t, 100, cfg.Documents.MaxChars)
	assert.Equal(t, "piper", cfg.TTS.Backend)
}

func TestLoad_EnvFile(t *testing.T) {
	dir := t.TempDir()
	t.Chdir(dir)
	t.Setenv("TELEGRAM_TOKEN", "")
	// godotenv never overrides variables that are already set, so clear it.
	require.NoError(t, os.Unsetenv("TELEGRAM_TOKEN"))

	envPath := filepath.Join(dir, ".env")
	require.NoError(t, os.WriteFile(envPath, []byte("TELEGRAM_TOKEN=dotenv-token\n"), 0o600))
	t.Cleanup(func() { _ = os.Unsetenv("TELEGRAM_TOKEN") })

	cfg, err := Load("", envPath)
	require.NoError(t, err)
	assert.Equal(t, "dotenv-token", cfg.Transports.Telegram.Token)
}

func TestLoad_MissingEnvFileIsIgnored(t *testing.T) {
	t.Chdir(t.TempDir())
	t.Setenv("TELEGRAM_TOKEN", "tg")

	_, err := Load("", "does-not-exist.env")
	require.NoError(t, err)
}

func TestValidate(t *testing.T) {
	valid := Config{
		Transports: TransportsConfig{Telegram: TelegramConfig{Token: "t"}},
		TTS:        TTSConfig{Backend: "openai"},
		Reminders:  RemindersConfig{CheckInterval: time.Minute},
		Documents:  DocumentsConfig{MaxChars: 10},
	}
	require.NoError(t, valid.Validate())

	badBackend := valid
	badBackend.TTS.Backend = "espeak"
	assert.Error(t, badBackend.Validate())

	badInterval := valid
	badInterval.Reminders.CheckInterval = 0
	assert.Error(t, badInterval.Validate())

	badChars := valid
	badChars.Documents.MaxChars = -1
	assert.Error(t, badChars.Validate())
}

func TestResolveEnvRef(t *testing.T) {
	t.Setenv("SOME_SECRET", "s3cr3t")
	assert.Equal(t, "s3cr3t", resolveEnvRef("${SOME_SECRET}"))
	assert.Equal(t, "${UNSET_SECRET_XYZ}", resolveEnvRef("${UNSET_SECRET_XYZ}"))
	assert.Equal(t, "plain", resolveEnvRef("plain"))
}
