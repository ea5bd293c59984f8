package config

import (
	"fmt"
	"log/slog"
	"os"
	"strconv"
	"strings"
	"time"
)

// Config represents runtime configuration derived from environment variables.
type Config struct {
	Bot     BotConfig
	Twitter TwitterConfig
	OpenAI  OpenAIConfig
	State   StateConfig
	Logging LoggingConfig
}

// BotConfig holds the parameters of a single polling run.
type BotConfig struct {
	Handles             []string
	IDs                 []string
	FreshWindow         time.Duration
	MaxRepliesPerTarget int
	MaxReplyChars       int
	ReplyLanguages      []string
	Persona             string
	BlockedKeywords     []string
	ProfilePath         string
	DryRun              bool
	SeedMode            bool
	PostDelay           time.Duration
	ReadCooldown        time.Duration
}

// TwitterConfig holds X API v2 credentials. Reads use the bearer token,
// writes are signed with OAuth 1.0a user context.
type TwitterConfig struct {
	APIKey            string
	APISecret         string
	AccessToken       string
	AccessTokenSecret string
	BearerToken       string
}

// OpenAIConfig holds reply generation parameters.
type OpenAIConfig struct {
	APIKey      string
	Model       string
	Temperature float32
	MaxTokens   int
}

// StateConfig selects where watermarks and the identity cache are persisted.
// The postgres backend connects through DatabaseURL or, on Cloud Run, through
// the Cloud SQL unix socket named by InstanceConnectionName.
type StateConfig struct {
	Backend                string
	Dir                    string
	DatabaseURL            string
	InstanceConnectionName string
	DBUser                 string
	DBPassword             string
	DBName                 string
}

// LoggingConfig represents structured logging configuration.
type LoggingConfig struct {
	Level  slog.Level
	Format string
}

const (
	defaultFreshHours          = 24
	defaultMaxRepliesPerTarget = 1
	defaultMaxReplyChars       = 240
	defaultPostDelay           = 1500 * time.Millisecond
	defaultReadCooldown        = 10 * time.Minute

	defaultOpenAIModel       = "gpt-4o-mini"
	defaultOpenAITemperature = 0.7
	defaultOpenAIMaxTokens   = 120

	defaultStateBackend = "file"
	defaultStateDir     = ".state"

	defaultLogFormat = "json"
)

// Load reads configuration from environment variables, applying defaults when
// values are not provided.
func Load() (Config, error) {
	cfg := Config{
		Bot: BotConfig{
			Handles:             splitList(os.Getenv("TARGET_HANDLES"), true),
			IDs:                 splitList(os.Getenv("TARGET_IDS"), false),
			FreshWindow:         defaultFreshHours * time.Hour,
			MaxRepliesPerTarget: defaultMaxRepliesPerTarget,
			MaxReplyChars:       defaultMaxReplyChars,
			ReplyLanguages:      []string{"en"},
			Persona:             getEnv("REPLY_PERSONA", DefaultPersona),
			BlockedKeywords:     DefaultBlockedKeywords(),
			ProfilePath:         os.Getenv("PROMPT_PROFILE"),
			PostDelay:           defaultPostDelay,
			ReadCooldown:        defaultReadCooldown,
		},
		Twitter: TwitterConfig{
			APIKey:            os.Getenv("X_API_KEY"),
			APISecret:         os.Getenv("X_API_SECRET"),
			AccessToken:       os.Getenv("X_ACCESS_TOKEN"),
			AccessTokenSecret: os.Getenv("X_ACCESS_TOKEN_SECRET"),
			BearerToken:       os.Getenv("X_BEARER_TOKEN"),
		},
		OpenAI: OpenAIConfig{
			APIKey:      os.Getenv("OPENAI_API_KEY"),
			Model:       getEnv("OPENAI_MODEL", defaultOpenAIModel),
			Temperature: defaultOpenAITemperature,
			MaxTokens:   defaultOpenAIMaxTokens,
		},
		State: StateConfig{
			Backend:     getEnv("STATE_BACKEND", defaultStateBackend),
			Dir:         getEnv("STATE_DIR", defaultStateDir),
			DatabaseURL: os.Getenv("DATABASE_URL"),

			InstanceConnectionName: os.Getenv("INSTANCE_CONNECTION_NAME"),
			DBUser:                 os.Getenv("DB_USER"),
			DBPassword:             os.Getenv("DB_PASSWORD"),
			DBName:                 os.Getenv("DB_NAME"),
		},
		Logging: LoggingConfig{
			Level:  slog.LevelInfo,
			Format: defaultLogFormat,
		},
	}

	if v := os.Getenv("FRESH_HOURS"); v != "" {
		hours, err := parseNonNegative(v)
		if err != nil || hours == 0 {
			return Config{}, fmt.Errorf("invalid FRESH_HOURS: must be a positive integer")
		}
		cfg.Bot.FreshWindow = time.Duration(hours) * time.Hour
	}

	if v := os.Getenv("MAX_REPLIES_PER_TARGET"); v != "" {
		n, err := parseNonNegative(v)
		if err != nil || n == 0 {
			return Config{}, fmt.Errorf("invalid MAX_REPLIES_PER_TARGET: must be a positive integer")
		}
		cfg.Bot.MaxRepliesPerTarget = n
	}

	if v := os.Getenv("MAX_REPLY_CHARS"); v != "" {
		n, err := parseNonNegative(v)
		if err != nil || n == 0 {
			return Config{}, fmt.Errorf("invalid MAX_REPLY_CHARS: must be a positive integer")
		}
		cfg.Bot.MaxReplyChars = n
	}

	if v := os.Getenv("REPLY_LANGUAGES"); v != "" {
		cfg.Bot.ReplyLanguages = splitList(strings.ToLower(v), false)
	}

	if v := os.Getenv("DRY_RUN"); v != "" {
		b, err := strconv.ParseBool(v)
		if err != nil {
			return Config{}, fmt.Errorf("invalid DRY_RUN: %w", err)
		}
		cfg.Bot.DryRun = b
	}

	if v := os.Getenv("SEED_MODE"); v != "" {
		b, err := strconv.ParseBool(v)
		if err != nil {
			return Config{}, fmt.Errorf("invalid SEED_MODE: %w", err)
		}
		cfg.Bot.SeedMode = b
	}

	if v := os.Getenv("POST_DELAY_MS"); v != "" {
		ms, err := parseNonNegative(v)
		if err != nil {
			return Config{}, fmt.Errorf("invalid POST_DELAY_MS: %w", err)
		}
		cfg.Bot.PostDelay = time.Duration(ms) * time.Millisecond
	}

	if v := os.Getenv("READ_COOLDOWN_MINUTES"); v != "" {
		minutes, err := parseNonNegative(v)
		if err != nil {
			return Config{}, fmt.Errorf("invalid READ_COOLDOWN_MINUTES: %w", err)
		}
		cfg.Bot.ReadCooldown = time.Duration(minutes) * time.Minute
	}

	if v := os.Getenv("OPENAI_TEMPERATURE"); v != "" {
		temp, err := strconv.ParseFloat(v, 32)
		if err != nil || temp < 0 {
			return Config{}, fmt.Errorf("invalid OPENAI_TEMPERATURE: must be a non-negative number")
		}
		cfg.OpenAI.Temperature = float32(temp)
	}

	if v := os.Getenv("OPENAI_MAX_TOKENS"); v != "" {
		n, err := parseNonNegative(v)
		if err != nil {
			return Config{}, fmt.Errorf("invalid OPENAI_MAX_TOKENS: %w", err)
		}
		cfg.OpenAI.MaxTokens = n
	}

	switch cfg.State.Backend {
	case "file":
	case "postgres":
		if cfg.State.DatabaseURL == "" && cfg.State.InstanceConnectionName == "" {
			return Config{}, fmt.Errorf("DATABASE_URL or INSTANCE_CONNECTION_NAME is required when STATE_BACKEND=postgres")
		}
	default:
		return Config{}, fmt.Errorf("invalid STATE_BACKEND: must be 'file' or 'postgres'")
	}

	if v := os.Getenv("LOG_LEVEL"); v != "" {
		level, err := parseLogLevel(v)
		if err != nil {
			return Config{}, fmt.Errorf("invalid LOG_LEVEL: %w", err)
		}
		cfg.Logging.Level = level
	}

	if v := os.Getenv("LOG_FORMAT"); v != "" {
		switch v {
		case "json", "text":
			cfg.Logging.Format = v
		default:
			return Config{}, fmt.Errorf("invalid LOG_FORMAT: must be 'json' or 'text'")
		}
	}

	if cfg.Bot.ProfilePath != "" {
		profile, err := LoadProfile(cfg.Bot.ProfilePath)
		if err != nil {
			return Config{}, err
		}
		profile.Apply(&cfg.Bot)
	}

	return cfg, nil
}

// ExplicitIDs returns the configured id list when it pairs positionally with
// the handle list, or nil otherwise.
func (b BotConfig) ExplicitIDs() []string {
	if len(b.IDs) == 0 || len(b.IDs) != len(b.Handles) {
		return nil
	}
	return b.IDs
}

// CanPost reports whether OAuth 1.0a user credentials are configured.
func (t TwitterConfig) CanPost() bool {
	return t.APIKey != "" && t.APISecret != "" && t.AccessToken != "" && t.AccessTokenSecret != ""
}

func parseNonNegative(raw string) (int, error) {
	n, err := strconv.Atoi(strings.TrimSpace(raw))
	if err != nil || n < 0 {
		return 0, fmt.Errorf("must be a non-negative integer")
	}
	return n, nil
}

// splitList splits a comma separated value, dropping empty items. Handles
// lose a leading @.
func splitList(raw string, handles bool) []string {
	var out []string
	for _, part := range strings.Split(raw, ",") {
		part = strings.TrimSpace(part)
		if handles {
			part = strings.TrimPrefix(part, "@")
		}
		if part != "" {
			out = append(out, part)
		}
	}
	return out
}

func getEnv(key, fallback string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return fallback
}

func parseLogLevel(raw string) (slog.Level, error) {
	switch raw {
	case "debug":
		return slog.LevelDebug, nil
	case "info":
		return slog.LevelInfo, nil
	case "warn", "warning":
		return slog.LevelWarn, nil
	case "error":
		return slog.LevelError, nil
	default:
		return 0, fmt.Errorf("must be one of debug, info, warn, error")
	}
}
