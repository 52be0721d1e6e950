package config

import (
	"errors"
	"fmt"
	"io/fs"
	"os"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/joho/godotenv"
	"gopkg.in/yaml.v3"

	"github.com/tracerstudy/tracer-sync/internal/app/models"
	"github.com/tracerstudy/tracer-sync/internal/pkg/helpers"
)

// ProfileConfig holds the per-mode substitution values and status default.
type ProfileConfig struct {
	// DefaultMarker is used when free-text status matches no keyword.
	DefaultMarker string `yaml:"default_marker" validate:"required,marker"`
	// SubstituteEmail is a fmt template receiving the NIM; empty disables substitution.
	SubstituteEmail string `yaml:"substitute_email"`
	// SubstituteYear replaces a missing graduation year; 0 means the current year, -1 disables.
	SubstituteYear    int    `yaml:"substitute_year" validate:"gte=-1"`
	SubstituteFaculty string `yaml:"substitute_faculty"`
	SubstituteProgram string `yaml:"substitute_program"`
}

// Config structure represents the application configuration
type Config struct {
	Server struct {
		Port            string `yaml:"port" env:"SERVER_PORT" validate:"required"`
		Mode            string `yaml:"mode" env:"SERVER_MODE" validate:"oneof=development production test"`
		ShutdownTimeout string `yaml:"shutdown_timeout" env:"SERVER_SHUTDOWN_TIMEOUT"`
		MaxUploadMB     int    `yaml:"max_upload_mb" env:"SERVER_MAX_UPLOAD_MB" validate:"gt=0"`
	} `yaml:"server"`

	Database struct {
		Host            string `yaml:"host" env:"DB_HOST" validate:"required"`
		Port            string `yaml:"port" env:"DB_PORT" validate:"required"`
		User            string `yaml:"user" env:"DB_USER" validate:"required"`
		Password        string `yaml:"password" env:"DB_PASSWORD"`
		DBName          string `yaml:"dbname" env:"DB_NAME" validate:"required"`
		SSLMode         string `yaml:"sslmode" env:"DB_SSLMODE"`
		MaxIdleConns    int    `yaml:"max_idle_conns" env:"DB_MAX_IDLE_CONNS" validate:"gte=0"`
		MaxOpenConns    int    `yaml:"max_open_conns" env:"DB_MAX_OPEN_CONNS" validate:"gt=0"`
		ConnMaxLifetime string `yaml:"conn_max_lifetime" env:"DB_CONN_MAX_LIFETIME"`
		PassTimeout     string `yaml:"pass_timeout" env:"DB_PASS_TIMEOUT"`
		LockKey         int64  `yaml:"lock_key" env:"DB_LOCK_KEY"`
	} `yaml:"database"`

	JWT struct {
		Secret                string `yaml:"secret" env:"JWT_SECRET"`
		AccessTokenExpiration string `yaml:"access_token_expiration" env:"JWT_ACCESS_TOKEN_EXPIRATION"`
		Issuer                string `yaml:"issuer" env:"JWT_ISSUER"`
	} `yaml:"jwt"`

	Logging struct {
		Level  string `yaml:"level" env:"LOG_LEVEL"`
		Format string `yaml:"format" env:"LOG_FORMAT" validate:"oneof=json pretty"`
	} `yaml:"logging"`

	Resolver struct {
		DefaultFaculty string `yaml:"default_faculty" env:"RESOLVER_DEFAULT_FACULTY"`
		DefaultProgram string `yaml:"default_program" env:"RESOLVER_DEFAULT_PROGRAM"`
		Fuzzy          bool   `yaml:"fuzzy" env:"RESOLVER_FUZZY"`
	} `yaml:"resolver"`

	Ingest struct {
		Encodings        []string `yaml:"encodings" env:"INGEST_ENCODINGS" validate:"min=1"`
		SkipOffsets      []int    `yaml:"skip_offsets" env:"INGEST_SKIP_OFFSETS" validate:"min=1,dive,gte=0"`
		SampleRows       int      `yaml:"sample_rows" env:"INGEST_SAMPLE_ROWS" validate:"gt=0"`
		PreviewRows      int      `yaml:"preview_rows" env:"INGEST_PREVIEW_ROWS" validate:"gt=0"`
		PreviewCellLimit int      `yaml:"preview_cell_limit" env:"INGEST_PREVIEW_CELL_LIMIT" validate:"gt=0"`
	} `yaml:"ingest"`

	Profiles struct {
		Import ProfileConfig `yaml:"import"`
		Tracer ProfileConfig `yaml:"tracer"`
	} `yaml:"profiles"`

	Metrics struct {
		Enabled bool   `yaml:"enabled" env:"METRICS_ENABLED"`
		Path    string `yaml:"path" env:"METRICS_PATH"`
	} `yaml:"metrics"`

	Seed struct {
		File string `yaml:"file" env:"SEED_FILE"`
	} `yaml:"seed"`
}

// LoadConfig loads configuration from an optional .env file, a YAML file and
// environment variables, in increasing order of precedence.
func LoadConfig(configPath string) (*Config, error) {
	if err := godotenv.Load(); err != nil && !errors.Is(err, fs.ErrNotExist) {
		return nil, fmt.Errorf("failed to load .env file: %w", err)
	}

	config := &Config{}
	setDefaults(config)

	if _, err := os.Stat(configPath); err == nil {
		file, err := os.ReadFile(configPath)
		if err != nil {
			return nil, fmt.Errorf("failed to read config file: %w", err)
		}
		if err := yaml.Unmarshal(file, config); err != nil {
			return nil, fmt.Errorf("failed to parse config: %w", err)
		}
	}

	if err := loadFromEnv(config); err != nil {
		return nil, fmt.Errorf("failed to load from environment: %w", err)
	}

	if err := validateConfig(config); err != nil {
		return nil, fmt.Errorf("invalid configuration: %w", err)
	}

	return config, nil
}

// setDefaults sets default values for the configuration
func setDefaults(config *Config) {
	config.Server.Port = "8080"
	config.Server.Mode = "development"
	config.Server.ShutdownTimeout = "10s"
	config.Server.MaxUploadMB = 20

	config.Database.Host = "localhost"
	config.Database.Port = "5432"
	config.Database.User = "postgres"
	config.Database.Password = "postgres"
	config.Database.DBName = "tracer_study"
	config.Database.SSLMode = "disable"
	config.Database.MaxIdleConns = 2
	config.Database.MaxOpenConns = 10
	config.Database.ConnMaxLifetime = "1h"
	config.Database.PassTimeout = "5m"
	config.Database.LockKey = 72_001

	config.JWT.AccessTokenExpiration = "12h"
	config.JWT.Issuer = "tracer-sync"

	config.Logging.Level = "info"
	config.Logging.Format = "json"

	config.Resolver.DefaultFaculty = "Teknologi Informasi"
	config.Resolver.DefaultProgram = "Sistem Informasi"

	config.Ingest.Encodings = []string{"utf-8", "latin-1", "iso-8859-1", "cp1252"}
	config.Ingest.SkipOffsets = []int{0, 1, 2}
	config.Ingest.SampleRows = 5
	config.Ingest.PreviewRows = 20
	config.Ingest.PreviewCellLimit = 100

	config.Profiles.Import = ProfileConfig{
		DefaultMarker:     string(models.MarkerEmployed),
		SubstituteEmail:   "dummy_%s@unand.ac.id",
		SubstituteYear:    2023,
		SubstituteFaculty: "Fakultas Teknologi Informasi",
		SubstituteProgram: "Sistem Informasi",
	}
	config.Profiles.Tracer = ProfileConfig{
		DefaultMarker:  string(models.MarkerUnemployed),
		SubstituteYear: 0,
	}

	config.Metrics.Enabled = true
	config.Metrics.Path = "/metrics"
}

// loadFromEnv overrides configuration with environment variables
func loadFromEnv(config *Config) error {
	return processStructFields(config)
}

func newValidator() *validator.Validate {
	v := validator.New()
	_ = v.RegisterValidation("marker", func(fl validator.FieldLevel) bool {
		return models.StatusMarker(fl.Field().String()).IsValid()
	})
	return v
}

// validateConfig ensures that the configuration is valid
func validateConfig(config *Config) error {
	if err := newValidator().Struct(config); err != nil {
		return err
	}

	for _, d := range []struct{ name, value string }{
		{"database.conn_max_lifetime", config.Database.ConnMaxLifetime},
		{"database.pass_timeout", config.Database.PassTimeout},
		{"server.shutdown_timeout", config.Server.ShutdownTimeout},
		{"jwt.access_token_expiration", config.JWT.AccessTokenExpiration},
	} {
		if _, err := time.ParseDuration(d.value); err != nil {
			return fmt.Errorf("invalid %s format: %w", d.name, err)
		}
	}
	return nil
}

// ValidateForServer checks the settings only the HTTP surface and token minting need.
func (c *Config) ValidateForServer() error {
	if c.JWT.Secret == "" {
		return fmt.Errorf("JWT secret is required")
	}
	return nil
}

// GetPostgresConnectionString returns postgres connection string
func (c *Config) GetPostgresConnectionString() string {
	sslMode := c.Database.SSLMode
	if sslMode == "" {
		sslMode = "disable"
	}

	return fmt.Sprintf("postgres://%s:%s@%s:%s/%s?sslmode=%s",
		c.Database.User,
		c.Database.Password,
		c.Database.Host,
		c.Database.Port,
		c.Database.DBName,
		sslMode,
	)
}

// PassTimeout returns the configured timeout of one reconciliation transaction.
func (c *Config) PassTimeout() time.Duration {
	return helpers.DurationOr(c.Database.PassTimeout, 5*time.Minute)
}

// AccessTokenTTL returns the default lifetime of minted tokens.
func (c *Config) AccessTokenTTL() time.Duration {
	return helpers.DurationOr(c.JWT.AccessTokenExpiration, 12*time.Hour)
}

// ShutdownTimeout returns how long the HTTP server waits for in-flight requests.
func (c *Config) ShutdownTimeout() time.Duration {
	return helpers.DurationOr(c.Server.ShutdownTimeout, 10*time.Second)
}
