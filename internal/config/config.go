// Package config handles loading and validating the copilot configuration.
package config

import (
	"errors"
	"fmt"
	"io/fs"
	"log/slog"
	"os"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"github.com/lmittmann/tint"
	"github.com/spf13/viper"
)

// Config is the root configuration for the copilot daemon.
type Config struct {
	Server     ServerConfig     `mapstructure:"server"`
	Transports TransportsConfig `mapstructure:"transports"`
	OpenAI     OpenAIConfig     `mapstructure:"openai"`
	Search     SearchConfig     `mapstructure:"search"`
	TTS        TTSConfig        `mapstructure:"tts"`
	Reminders  RemindersConfig  `mapstructure:"reminders"`
	Documents  DocumentsConfig  `mapstructure:"documents"`
	Audio      AudioConfig      `mapstructure:"audio"`
	Proxy      ProxyConfig      `mapstructure:"proxy"`
	Logging    LoggingConfig    `mapstructure:"logging"`
}

// ServerConfig holds the health check server settings.
type ServerConfig struct {
	HealthPort int `mapstructure:"health_port"`
	GRPCPort   int `mapstructure:"grpc_port"` // 0 disables the gRPC health service
}

// TransportsConfig holds the configuration for each transport layer.
type TransportsConfig struct {
	Telegram TelegramConfig `mapstructure:"telegram"`
	HTTP     HTTPConfig     `mapstructure:"http"`
}

// TelegramConfig configures the Telegram long-polling transport.
type TelegramConfig struct {
	Token          string `mapstructure:"token"`
	PollingTimeout int    `mapstructure:"polling_timeout"` // seconds
}

// HTTPConfig configures the HTTP debug transport.
type HTTPConfig struct {
	Enabled bool `mapstructure:"enabled"`
	Port    int  `mapstructure:"port"`
}

// OpenAIConfig holds OpenAI API settings.
type OpenAIConfig struct {
	APIKey             string `mapstructure:"api_key"`
	BaseURL            string `mapstructure:"base_url"` // empty uses api.openai.com
	CompletionModel    string `mapstructure:"completion_model"`
	TranscriptionModel string `mapstructure:"transcription_model"`
	SpeechModel        string `mapstructure:"speech_model"`
	Voice              string `mapstructure:"voice"`
	Language           string `mapstructure:"language"` // ISO-639-1 hint for transcription
}

// SearchConfig holds the web-search provider settings (Perplexity).
type SearchConfig struct {
	APIKey  string `mapstructure:"api_key"`
	BaseURL string `mapstructure:"base_url"` // OpenAI-compatible API root
	Model   string `mapstructure:"model"`
}

// TTSConfig selects the speech synthesis backend used for voice replies.
type TTSConfig struct {
	Backend string      `mapstructure:"backend"` // "openai" or "piper"
	Piper   PiperConfig `mapstructure:"piper"`
}

// PiperConfig holds Piper TTS settings (Wyoming protocol).
type PiperConfig struct {
	Endpoint string `mapstructure:"endpoint"` // Wyoming TCP endpoint (host:port)
	Voice    string `mapstructure:"voice"`    // Piper voice model name
}

// RemindersConfig controls the reminder scheduler.
type RemindersConfig struct {
	CheckInterval time.Duration `mapstructure:"check_interval"`
}

// DocumentsConfig controls PDF summarisation.
type DocumentsConfig struct {
	MaxChars int `mapstructure:"max_chars"` // extracted text budget, in characters
}

// AudioConfig controls the ffmpeg transcoder.
type AudioConfig struct {
	FFmpegPath string `mapstructure:"ffmpeg_path"`
	TempDir    string `mapstructure:"temp_dir"` // empty uses os.TempDir()
}

// ProxyConfig routes all outbound HTTP traffic through a SOCKS5 proxy.
type ProxyConfig struct {
	SOCKS5 string `mapstructure:"socks5"` // host:port, empty disables
}

// LoggingConfig holds structured logging settings.
type LoggingConfig struct {
	Level  string `mapstructure:"level"`  // debug, info, warn, error
	Format string `mapstructure:"format"` // json, text, tint
}

// Load reads the configuration from an optional .env file, a config file,
// environment variables, and defaults.
// If configFile is non-empty it is used directly; otherwise the standard
// search order applies: ./copilot.yaml, ./configs/copilot.yaml, /etc/copilot/copilot.yaml.
func Load(configFile, envFile string) (*Config, error) {
	if envFile != "" {
		if err := godotenv.Load(envFile); err != nil && !errors.Is(err, fs.ErrNotExist) {
			return nil, fmt.Errorf("reading env file %s: %w", envFile, err)
		}
	}

	v := viper.New()

	// Defaults
	v.SetDefault("server.health_port", 8081)
	v.SetDefault("server.grpc_port", 50051)
	v.SetDefault("transports.telegram.polling_timeout", 30)
	v.SetDefault("transports.http.enabled", false)
	v.SetDefault("transports.http.port", 8080)
	v.SetDefault("openai.completion_model", "gpt-4o")
	v.SetDefault("openai.transcription_model", "whisper-1")
	v.SetDefault("openai.speech_model", "tts-1")
	v.SetDefault("openai.voice", "nova")
	v.SetDefault("openai.language", "ru")
	v.SetDefault("search.base_url", "https://api.perplexity.ai/")
	v.SetDefault("search.model", "sonar")
	v.SetDefault("tts.backend", "openai")
	v.SetDefault("tts.piper.endpoint", "localhost:10200")
	v.SetDefault("tts.piper.voice", "ru_RU-ruslan-medium")
	v.SetDefault("reminders.check_interval", time.Minute)
	v.SetDefault("documents.max_chars", 4000)
	v.SetDefault("audio.ffmpeg_path", "ffmpeg")
	v.SetDefault("logging.level", "info")
	v.SetDefault("logging.format", "json")

	// Config file
	if configFile != "" {
		v.SetConfigFile(configFile)
	} else {
		v.SetConfigName("copilot")
		v.SetConfigType("yaml")
		v.AddConfigPath(".")
		v.AddConfigPath("./configs")
		v.AddConfigPath("/etc/copilot")
	}

	// Environment variables: COPILOT_SERVER_HEALTH_PORT, COPILOT_TTS_BACKEND, etc.
	v.SetEnvPrefix("COPILOT")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	// The three credentials keep their conventional unprefixed names.
	_ = v.BindEnv("transports.telegram.token", "COPILOT_TRANSPORTS_TELEGRAM_TOKEN", "TELEGRAM_TOKEN")
	_ = v.BindEnv("openai.api_key", "COPILOT_OPENAI_API_KEY", "OPENAI_API_KEY")
	_ = v.BindEnv("search.api_key", "COPILOT_SEARCH_API_KEY", "PERPLEXITY_API_KEY")

	// Read config file (optional, env vars and defaults are sufficient)
	if err := v.ReadInConfig(); err != nil {
		var notFound viper.ConfigFileNotFoundError
		if !errors.As(err, &notFound) {
			return nil, fmt.Errorf("reading config: %w", err)
		}
		slog.Info("no config file found, using defaults and environment variables")
	} else {
		slog.Info("loaded config file", "path", v.ConfigFileUsed())
	}

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, fmt.Errorf("unmarshalling config: %w", err)
	}

	// Resolve env var references in sensitive fields (e.g., "${OPENAI_API_KEY}")
	cfg.Transports.Telegram.Token = resolveEnvRef(cfg.Transports.Telegram.Token)
	cfg.OpenAI.APIKey = resolveEnvRef(cfg.OpenAI.APIKey)
	cfg.Search.APIKey = resolveEnvRef(cfg.Search.APIKey)

	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return &cfg, nil
}

// Validate reports configuration that would prevent the bot from starting.
func (c *Config) Validate() error {
	if c.Transports.Telegram.Token == "" {
		return errors.New("telegram token is not set (TELEGRAM_TOKEN)")
	}
	switch c.TTS.Backend {
	case "openai", "piper":
	default:
		return fmt.Errorf("unknown tts backend %q", c.TTS.Backend)
	}
	if c.Reminders.CheckInterval <= 0 {
		return fmt.Errorf("reminders.check_interval must be positive, got %s", c.Reminders.CheckInterval)
	}
	if c.Documents.MaxChars <= 0 {
		return fmt.Errorf("documents.max_chars must be positive, got %d", c.Documents.MaxChars)
	}
	return nil
}

// resolveEnvRef replaces "${VAR_NAME}" patterns with the corresponding env var value.
func resolveEnvRef(val string) string {
	if strings.HasPrefix(val, "${") && strings.HasSuffix(val, "}") {
		envKey := val[2 : len(val)-1]
		if envVal := os.Getenv(envKey); envVal != "" {
			return envVal
		}
	}
	return val
}

// SetupLogging configures the global slog logger based on config.
func SetupLogging(cfg LoggingConfig) {
	slog.SetDefault(slog.New(newHandler(cfg)))
}

func newHandler(cfg LoggingConfig) slog.Handler {
	var level slog.Level
	switch strings.ToLower(cfg.Level) {
	case "debug":
		level = slog.LevelDebug
	case "warn":
		level = slog.LevelWarn
	case "error":
		level = slog.LevelError
	default:
		level = slog.LevelInfo
	}

	switch strings.ToLower(cfg.Format) {
	case "text":
		return slog.NewTextHandler(os.Stdout, &slog.HandlerOptions{Level: level})
	case "tint":
		return tint.NewHandler(os.Stdout, &tint.Options{Level: level, TimeFormat: time.Kitchen})
	default:
		return slog.NewJSONHandler(os.Stdout, &slog.HandlerOptions{Level: level})
	}
}
