package config

import (
	"fmt"
	"os"
	"strings"
	"time"

	"github.com/spf13/viper"

	"invoicescan/internal/domain"
)

// Config holds all application configuration.
type Config struct {
	Server     ServerConfig
	DB         DBConfig
	Analyzer   AnalyzerConfig
	Extraction ExtractionConfig
	Archive    ArchiveConfig
	Log        LogConfig
	CORS       CORSConfig
}

// ServerConfig holds HTTP server settings.
type ServerConfig struct {
	Port         string        `mapstructure:"port"`
	ReadTimeout  time.Duration `mapstructure:"read_timeout"`
	WriteTimeout time.Duration `mapstructure:"write_timeout"`
	Environment  string        `mapstructure:"environment"`
}

// Database drivers.
const (
	DriverPostgres = "postgres"
	DriverSQLite   = "sqlite"
)

// DBConfig holds database connection settings.
type DBConfig struct {
	Driver     string `mapstructure:"driver"`
	Host       string `mapstructure:"host"`
	Port       int    `mapstructure:"port"`
	User       string `mapstructure:"user"`
	Password   string `mapstructure:"password"`
	Name       string `mapstructure:"name"`
	SSLMode    string `mapstructure:"sslmode"`
	SQLitePath string `mapstructure:"sqlite_path"`
	MaxOpen    int    `mapstructure:"max_open"`
	MaxIdle    int    `mapstructure:"max_idle"`
}

// DSN returns the connection string for the configured driver.
func (d *DBConfig) DSN() string {
	if d.Driver == DriverSQLite {
		return fmt.Sprintf("file:%s?_pragma=foreign_keys(1)&_pragma=busy_timeout(10000)", d.SQLitePath)
	}
	return fmt.Sprintf(
		"postgres://%s:%s@%s:%d/%s?sslmode=%s",
		d.User, d.Password, d.Host, d.Port, d.Name, d.SSLMode,
	)
}

// AnalyzerConfig holds settings for the document-analysis REST endpoint.
// Requests are signed with the API key named by the OCI config file and
// profile. An empty Endpoint is derived from the profile region.
type AnalyzerConfig struct {
	Endpoint          string `mapstructure:"endpoint"`
	ConfigFile        string `mapstructure:"config_file"`
	Profile           string `mapstructure:"profile"`
	CompartmentID     string `mapstructure:"compartment_id"`
	MaxResults        int    `mapstructure:"max_results"`
	MaxRetries        int    `mapstructure:"max_retries"`
	TimeoutSecs       int    `mapstructure:"timeout_secs"`
	RetryBackoffMilli int    `mapstructure:"retry_backoff_ms"`
}

// ExtractionConfig holds the acceptance gate and normalization settings.
type ExtractionConfig struct {
	ConfidenceThreshold float64                   `mapstructure:"confidence_threshold"`
	ConfidenceStrategy  domain.ConfidenceStrategy `mapstructure:"confidence_strategy"`
	MaxUploadSizeMB     int64                     `mapstructure:"max_upload_size_mb"`
}

// ArchiveConfig holds S3 settings for archiving accepted PDFs. An empty bucket disables archiving.
type ArchiveConfig struct {
	Region    string `mapstructure:"region"`
	Bucket    string `mapstructure:"bucket"`
	Endpoint  string `mapstructure:"endpoint"`
	AccessKey string `mapstructure:"access_key"`
	SecretKey string `mapstructure:"secret_key"`
}

// Enabled reports whether accepted documents should be archived.
func (a *ArchiveConfig) Enabled() bool {
	return a.Bucket != ""
}

// LogConfig holds logging settings.
type LogConfig struct {
	Level  string `mapstructure:"level"`
	Format string `mapstructure:"format"`
}

// CORSConfig holds CORS settings.
type CORSConfig struct {
	AllowedOrigins []string `mapstructure:"allowed_origins"`
}

// Load reads configuration from environment variables with the INVOICESCAN_ prefix.
func Load() (*Config, error) {
	v := viper.New()
	v.SetEnvPrefix("INVOICESCAN")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	// Server defaults
	v.SetDefault("server.port", ":8080")
	v.SetDefault("server.read_timeout", "30s")
	v.SetDefault("server.write_timeout", "120s")
	v.SetDefault("server.environment", "development")

	// DB defaults
	v.SetDefault("db.driver", DriverSQLite)
	v.SetDefault("db.host", "localhost")
	v.SetDefault("db.port", 5432)
	v.SetDefault("db.user", "invoicescan")
	v.SetDefault("db.password", "invoicescan_secret")
	v.SetDefault("db.name", "invoicescan")
	v.SetDefault("db.sslmode", "disable")
	v.SetDefault("db.sqlite_path", "./invoices.db")
	v.SetDefault("db.max_open", 25)
	v.SetDefault("db.max_idle", 10)

	// Analyzer defaults
	v.SetDefault("analyzer.endpoint", "")
	v.SetDefault("analyzer.config_file", "")
	v.SetDefault("analyzer.profile", "DEFAULT")
	v.SetDefault("analyzer.compartment_id", "")
	v.SetDefault("analyzer.max_results", 5)
	v.SetDefault("analyzer.max_retries", 2)
	v.SetDefault("analyzer.timeout_secs", 60)
	v.SetDefault("analyzer.retry_backoff_ms", 500)

	// Extraction defaults
	v.SetDefault("extraction.confidence_threshold", 0.9)
	v.SetDefault("extraction.confidence_strategy", string(domain.ConfidenceClassification))
	v.SetDefault("extraction.max_upload_size_mb", 20)

	// Archive defaults (disabled)
	v.SetDefault("archive.region", "us-east-1")
	v.SetDefault("archive.bucket", "")
	v.SetDefault("archive.endpoint", "")

	// Log defaults
	v.SetDefault("log.level", "debug")
	v.SetDefault("log.format", "console")

	// CORS defaults (localhost origins for development)
	v.SetDefault("cors.allowed_origins", "http://localhost:3000,http://127.0.0.1:3000")

	envBindings := map[string]string{
		"server.port":                     "INVOICESCAN_SERVER_PORT",
		"server.read_timeout":             "INVOICESCAN_SERVER_READ_TIMEOUT",
		"server.write_timeout":            "INVOICESCAN_SERVER_WRITE_TIMEOUT",
		"server.environment":              "INVOICESCAN_SERVER_ENVIRONMENT",
		"db.driver":                       "INVOICESCAN_DB_DRIVER",
		"db.host":                         "INVOICESCAN_DB_HOST",
		"db.port":                         "INVOICESCAN_DB_PORT",
		"db.user":                         "INVOICESCAN_DB_USER",
		"db.password":                     "INVOICESCAN_DB_PASSWORD",
		"db.name":                         "INVOICESCAN_DB_NAME",
		"db.sslmode":                      "INVOICESCAN_DB_SSLMODE",
		"db.sqlite_path":                  "INVOICESCAN_DB_SQLITE_PATH",
		"db.max_open":                     "INVOICESCAN_DB_MAX_OPEN",
		"db.max_idle":                     "INVOICESCAN_DB_MAX_IDLE",
		"analyzer.endpoint":               "INVOICESCAN_ANALYZER_ENDPOINT",
		"analyzer.config_file":            "INVOICESCAN_ANALYZER_CONFIG_FILE",
		"analyzer.profile":                "INVOICESCAN_ANALYZER_PROFILE",
		"analyzer.compartment_id":         "INVOICESCAN_ANALYZER_COMPARTMENT_ID",
		"analyzer.max_results":            "INVOICESCAN_ANALYZER_MAX_RESULTS",
		"analyzer.max_retries":            "INVOICESCAN_ANALYZER_MAX_RETRIES",
		"analyzer.timeout_secs":           "INVOICESCAN_ANALYZER_TIMEOUT_SECS",
		"analyzer.retry_backoff_ms":       "INVOICESCAN_ANALYZER_RETRY_BACKOFF_MS",
		"extraction.confidence_threshold": "INVOICESCAN_EXTRACTION_CONFIDENCE_THRESHOLD",
		"extraction.confidence_strategy":  "INVOICESCAN_EXTRACTION_CONFIDENCE_STRATEGY",
		"extraction.max_upload_size_mb":   "INVOICESCAN_EXTRACTION_MAX_UPLOAD_SIZE_MB",
		"archive.region":                  "INVOICESCAN_ARCHIVE_REGION",
		"archive.bucket":                  "INVOICESCAN_ARCHIVE_BUCKET",
		"archive.endpoint":                "INVOICESCAN_ARCHIVE_ENDPOINT",
		"archive.access_key":              "INVOICESCAN_ARCHIVE_ACCESS_KEY",
		"archive.secret_key":              "INVOICESCAN_ARCHIVE_SECRET_KEY",
		"log.level":                       "INVOICESCAN_LOG_LEVEL",
		"log.format":                      "INVOICESCAN_LOG_FORMAT",
		"cors.allowed_origins":            "INVOICESCAN_CORS_ALLOWED_ORIGINS",
	}
	for key, env := range envBindings {
		_ = v.BindEnv(key, env)
	}

	cfg := &Config{}

	serverPort := v.GetString("server.port")
	if port := os.Getenv("PORT"); port != "" && os.Getenv("INVOICESCAN_SERVER_PORT") == "" {
		serverPort = ":" + port
	}

	cfg.Server = ServerConfig{
		Port:         serverPort,
		ReadTimeout:  v.GetDuration("server.read_timeout"),
		WriteTimeout: v.GetDuration("server.write_timeout"),
		Environment:  v.GetString("server.environment"),
	}
	cfg.DB = DBConfig{
		Driver:     strings.ToLower(v.GetString("db.driver")),
		Host:       v.GetString("db.host"),
		Port:       v.GetInt("db.port"),
		User:       v.GetString("db.user"),
		Password:   v.GetString("db.password"),
		Name:       v.GetString("db.name"),
		SSLMode:    v.GetString("db.sslmode"),
		SQLitePath: v.GetString("db.sqlite_path"),
		MaxOpen:    v.GetInt("db.max_open"),
		MaxIdle:    v.GetInt("db.max_idle"),
	}
	cfg.Analyzer = AnalyzerConfig{
		Endpoint:          v.GetString("analyzer.endpoint"),
		ConfigFile:        v.GetString("analyzer.config_file"),
		Profile:           v.GetString("analyzer.profile"),
		CompartmentID:     v.GetString("analyzer.compartment_id"),
		MaxResults:        v.GetInt("analyzer.max_results"),
		MaxRetries:        v.GetInt("analyzer.max_retries"),
		TimeoutSecs:       v.GetInt("analyzer.timeout_secs"),
		RetryBackoffMilli: v.GetInt("analyzer.retry_backoff_ms"),
	}
	cfg.Extraction = ExtractionConfig{
		ConfidenceThreshold: v.GetFloat64("extraction.confidence_threshold"),
		ConfidenceStrategy:  domain.ConfidenceStrategy(strings.ToLower(v.GetString("extraction.confidence_strategy"))),
		MaxUploadSizeMB:     v.GetInt64("extraction.max_upload_size_mb"),
	}
	cfg.Archive = ArchiveConfig{
		Region:    v.GetString("archive.region"),
		Bucket:    v.GetString("archive.bucket"),
		Endpoint:  v.GetString("archive.endpoint"),
		AccessKey: v.GetString("archive.access_key"),
		SecretKey: v.GetString("archive.secret_key"),
	}
	cfg.Log = LogConfig{
		Level:  v.GetString("log.level"),
		Format: v.GetString("log.format"),
	}
	// Parse CORS allowed origins from comma-separated string
	var corsOrigins []string
	for _, o := range strings.Split(v.GetString("cors.allowed_origins"), ",") {
		o = strings.TrimSpace(o)
		if o != "" {
			corsOrigins = append(corsOrigins, o)
		}
	}
	cfg.CORS = CORSConfig{AllowedOrigins: corsOrigins}

	if err := cfg.validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

func (c *Config) validate() error {
	if c.DB.Driver != DriverPostgres && c.DB.Driver != DriverSQLite {
		return fmt.Errorf("unsupported db driver %q; allowed: postgres, sqlite", c.DB.Driver)
	}
	if !domain.ValidConfidenceStrategies[c.Extraction.ConfidenceStrategy] {
		return fmt.Errorf("unsupported confidence strategy %q; allowed: classification, field_average", c.Extraction.ConfidenceStrategy)
	}
	if c.Extraction.ConfidenceThreshold < 0 || c.Extraction.ConfidenceThreshold > 1 {
		return fmt.Errorf("confidence threshold %v outside [0,1]", c.Extraction.ConfidenceThreshold)
	}
	return nil
}
