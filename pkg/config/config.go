package config

import (
	"errors"
	"io/fs"
	"strings"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/joho/godotenv"
	"github.com/spf13/viper"

	appErrors "github.com/noah-isme/slack-archv/pkg/errors"
)

const (
	EnvDevelopment = "development"
	EnvProduction  = "production"

	DriverSQLite   = "sqlite"
	DriverPostgres = "postgres"
)

type Config struct {
	Env string `validate:"oneof=development production"`

	Slack    SlackConfig
	Database DatabaseConfig
	Sync     SyncConfig
	Log      LogConfig
	Metrics  MetricsConfig
	Export   ExportConfig
	HTTP     HTTPConfig
}

// SlackConfig holds credentials and transport tuning for the Web API client.
type SlackConfig struct {
	Token         string
	BaseURL       string `validate:"required,url"`
	Timeout       time.Duration
	RetryAttempts uint
	RetryDelay    time.Duration
	PageSize      int `validate:"min=1,max=1000"`
	ChannelTypes  []string
}

type DatabaseConfig struct {
	Driver       string `validate:"oneof=sqlite postgres"`
	Path         string
	Host         string
	Port         int
	User         string
	Password     string
	Name         string
	SSLMode      string
	MaxOpenConns int
	MaxIdleConns int
	MaxParams    int `validate:"min=1"`
}

// SyncConfig toggles optional collections and bounds the edit reconciliation pass.
type SyncConfig struct {
	DiffLookbackPages      int `validate:"min=0"`
	Stars                  bool
	FileComments           bool
	AllowWorkspaceOverride bool
}

type LogConfig struct {
	Level  string
	Format string
}

// MetricsConfig controls where run metrics are written.
type MetricsConfig struct {
	Textfile string
}

// ExportConfig configures transcript exports.
type ExportConfig struct {
	Dir string
}

// HTTPConfig configures the read-only browse API.
type HTTPConfig struct {
	Port           int `validate:"min=1,max=65535"`
	AllowedOrigins []string
}

// Load reads configuration from the given env file (".env" when empty) and the environment.
func Load(path string) (*Config, error) {
	if path == "" {
		path = ".env"
	}
	_ = godotenv.Load(path)

	v := viper.New()
	v.SetConfigFile(path)
	v.SetConfigType("env")
	v.AutomaticEnv()
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))

	setDefaults(v)

	if err := v.ReadInConfig(); err != nil {
		var notFound viper.ConfigFileNotFoundError
		if !errors.As(err, &notFound) && !errors.Is(err, fs.ErrNotExist) {
			return nil, err
		}
	}

	cfg := &Config{}

	cfg.Env = v.GetString("ENV")

	cfg.Slack = SlackConfig{
		Token:         v.GetString("SLACK_TOKEN"),
		BaseURL:       v.GetString("SLACK_API_URL"),
		Timeout:       parseDuration(v.GetString("SLACK_TIMEOUT"), 30*time.Second),
		RetryAttempts: v.GetUint("SLACK_RETRY_ATTEMPTS"),
		RetryDelay:    parseDuration(v.GetString("SLACK_RETRY_DELAY"), time.Second),
		PageSize:      v.GetInt("SLACK_PAGE_SIZE"),
		ChannelTypes:  splitAndTrim(v.GetString("SLACK_CHANNEL_TYPES")),
	}

	cfg.Database = DatabaseConfig{
		Driver:       strings.ToLower(v.GetString("DB_DRIVER")),
		Path:         v.GetString("DB_PATH"),
		Host:         v.GetString("DB_HOST"),
		Port:         v.GetInt("DB_PORT"),
		User:         v.GetString("DB_USER"),
		Password:     v.GetString("DB_PASSWORD"),
		Name:         v.GetString("DB_NAME"),
		SSLMode:      v.GetString("DB_SSL_MODE"),
		MaxOpenConns: v.GetInt("DB_MAX_OPEN_CONNS"),
		MaxIdleConns: v.GetInt("DB_MAX_IDLE_CONNS"),
		MaxParams:    v.GetInt("DB_MAX_PARAMS"),
	}

	cfg.Sync = SyncConfig{
		DiffLookbackPages:      v.GetInt("SYNC_DIFF_LOOKBACK_PAGES"),
		Stars:                  v.GetBool("SYNC_STARS"),
		FileComments:           v.GetBool("SYNC_FILE_COMMENTS"),
		AllowWorkspaceOverride: v.GetBool("SYNC_ALLOW_WORKSPACE_OVERRIDE"),
	}

	cfg.Log = LogConfig{
		Level:  v.GetString("LOG_LEVEL"),
		Format: v.GetString("LOG_FORMAT"),
	}

	cfg.Metrics = MetricsConfig{Textfile: v.GetString("METRICS_TEXTFILE")}
	cfg.Export = ExportConfig{Dir: v.GetString("EXPORT_DIR")}
	cfg.HTTP = HTTPConfig{
		Port:           v.GetInt("HTTP_PORT"),
		AllowedOrigins: splitAndTrim(v.GetString("HTTP_CORS_ORIGINS")),
	}

	if err := validator.New().Struct(cfg); err != nil {
		return nil, err
	}

	return cfg, nil
}

// RequireToken reports an authentication error when no API token is configured.
func (c *Config) RequireToken() error {
	if strings.TrimSpace(c.Slack.Token) == "" {
		return appErrors.Clone(appErrors.ErrAuthFailed, "SLACK_TOKEN is not set")
	}
	return nil
}

func setDefaults(v *viper.Viper) {
	v.SetDefault("ENV", EnvDevelopment)

	v.SetDefault("SLACK_TOKEN", "")
	v.SetDefault("SLACK_API_URL", "https://slack.com/api")
	v.SetDefault("SLACK_TIMEOUT", "30s")
	v.SetDefault("SLACK_RETRY_ATTEMPTS", 5)
	v.SetDefault("SLACK_RETRY_DELAY", "1s")
	v.SetDefault("SLACK_PAGE_SIZE", 1000)
	v.SetDefault("SLACK_CHANNEL_TYPES", "public_channel,private_channel")

	v.SetDefault("DB_DRIVER", DriverSQLite)
	v.SetDefault("DB_PATH", "slack-archv.sqlite")
	v.SetDefault("DB_HOST", "localhost")
	v.SetDefault("DB_PORT", 5432)
	v.SetDefault("DB_USER", "postgres")
	v.SetDefault("DB_PASSWORD", "postgres")
	v.SetDefault("DB_NAME", "slack_archv")
	v.SetDefault("DB_SSL_MODE", "disable")
	v.SetDefault("DB_MAX_OPEN_CONNS", 1)
	v.SetDefault("DB_MAX_IDLE_CONNS", 1)
	v.SetDefault("DB_MAX_PARAMS", 999)

	v.SetDefault("SYNC_DIFF_LOOKBACK_PAGES", 0)
	v.SetDefault("SYNC_STARS", false)
	v.SetDefault("SYNC_FILE_COMMENTS", false)
	v.SetDefault("SYNC_ALLOW_WORKSPACE_OVERRIDE", false)

	v.SetDefault("LOG_LEVEL", "info")
	v.SetDefault("LOG_FORMAT", "console")

	v.SetDefault("METRICS_TEXTFILE", "")
	v.SetDefault("EXPORT_DIR", "./exports")
	v.SetDefault("HTTP_PORT", 8080)
	v.SetDefault("HTTP_CORS_ORIGINS", "")
}

func parseDuration(raw string, fallback time.Duration) time.Duration {
	if raw == "" {
		return fallback
	}

	d, err := time.ParseDuration(raw)
	if err != nil {
		return fallback
	}

	return d
}

func splitAndTrim(raw string) []string {
	if raw == "" {
		return nil
	}

	parts := strings.Split(raw, ",")
	result := make([]string, 0, len(parts))
	for _, part := range parts {
		trimmed := strings.TrimSpace(part)
		if trimmed != "" {
			result = append(result, trimmed)
		}
	}

	return result
}
