package config

import (
	"fmt"
	"log"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"sync"
	"time"

	"github.com/joho/godotenv"
	"gopkg.in/yaml.v3"
)

var (
	configOnce sync.Once
	appConfig  *Config
	configErr  error
)

// Config is the full application configuration.
type Config struct {
	Server  ServerConfig  `yaml:"server"`
	Log     LogConfig     `yaml:"log"`
	Ingest  IngestConfig  `yaml:"ingest"`
	Storage StorageConfig `yaml:"storage"`
	S3      S3Config      `yaml:"s3"`
	Minio   MinioConfig   `yaml:"minio"`
	Queue   QueueConfig   `yaml:"queue"`
	LLM     LLMConfig     `yaml:"llm"`
	Metrics MetricsConfig `yaml:"metrics"`
}

// ServerConfig holds HTTP server settings.
type ServerConfig struct {
	Port            string        `yaml:"port"`
	Environment     string        `yaml:"environment"`
	ReadTimeout     time.Duration `yaml:"read_timeout"`
	WriteTimeout    time.Duration `yaml:"write_timeout"`
	ShutdownTimeout time.Duration `yaml:"shutdown_timeout"`
	AllowedOrigins  []string      `yaml:"allowed_origins"`
}

// IsProduction reports whether internal error detail must be hidden from clients.
func (s ServerConfig) IsProduction() bool {
	return strings.EqualFold(s.Environment, "production")
}

// LogConfig holds logger settings.
type LogConfig struct {
	Level       string   `yaml:"level"`
	Encoding    string   `yaml:"encoding"`
	OutputPaths []string `yaml:"output_paths"`
	Development bool     `yaml:"development"`
}

// IngestConfig bounds an upload batch.
type IngestConfig struct {
	MaxFiles     int      `yaml:"max_files"`
	MaxFileSize  int64    `yaml:"max_file_size"`
	AllowedTypes []string `yaml:"allowed_types"`
	MaxPDFPages  int      `yaml:"max_pdf_pages"`
}

// StorageConfig selects where uploads are staged while they are parsed.
type StorageConfig struct {
	Type            string        `yaml:"type"`
	TempDir         string        `yaml:"temp_dir"`
	Retention       time.Duration `yaml:"retention"`
	CleanupInterval time.Duration `yaml:"cleanup_interval"`
}

// QueueConfig holds the asynq/redis settings for async optimization jobs.
type QueueConfig struct {
	Enabled     bool          `yaml:"enabled"`
	RedisAddr   string        `yaml:"redis_addr"`
	RedisDB     int           `yaml:"redis_db"`
	Concurrency int           `yaml:"concurrency"`
	MaxRetry    int           `yaml:"max_retry"`
	Timeout     time.Duration `yaml:"timeout"`
	ResultTTL   time.Duration `yaml:"result_ttl"`
}

// ProviderConfig holds settings for a single LLM provider.
type ProviderConfig struct {
	Provider    string        `yaml:"provider"`
	APIKey      string        `yaml:"api_key"`
	Model       string        `yaml:"model"`
	Endpoint    string        `yaml:"endpoint"`
	Timeout     time.Duration `yaml:"timeout"`
	MaxTokens   int           `yaml:"max_tokens"`
	Temperature float64       `yaml:"temperature"`
}

// LLMConfig holds the primary provider and the optional fallback provider.
type LLMConfig struct {
	Primary        ProviderConfig `yaml:"primary"`
	Secondary      ProviderConfig `yaml:"secondary"`
	MaxPromptRunes int            `yaml:"max_prompt_runes"`
}

// SecondaryConfig returns the fallback provider config, or nil if none is configured.
func (l *LLMConfig) SecondaryConfig() *ProviderConfig {
	if l.Secondary.Provider == "" {
		return nil
	}
	return &l.Secondary
}

// MetricsConfig holds duration conversion policy.
type MetricsConfig struct {
	WorkdayHours          float64 `yaml:"workday_hours"`
	DefaultSavingsPercent int     `yaml:"default_savings_percent"`
}

// Default returns the configuration used when nothing else is supplied.
func Default() *Config {
	return &Config{
		Server: ServerConfig{
			Port:            ":8080",
			Environment:     "development",
			ReadTimeout:     30 * time.Second,
			WriteTimeout:    5 * time.Minute,
			ShutdownTimeout: 5 * time.Second,
			AllowedOrigins:  []string{"*"},
		},
		Log: LogConfig{
			Level:       "info",
			Encoding:    "json",
			OutputPaths: []string{"stdout", "logs/app.log"},
		},
		Ingest: IngestConfig{
			MaxFiles:    5,
			MaxFileSize: 15 * 1024 * 1024,
			AllowedTypes: []string{
				"application/pdf",
				"application/msword",
				"application/vnd.openxmlformats-officedocument.wordprocessingml.document",
				"text/plain",
				"text/csv",
				"application/vnd.ms-excel",
				"application/vnd.openxmlformats-officedocument.spreadsheetml.sheet",
			},
			MaxPDFPages: 500,
		},
		Storage: StorageConfig{
			Type:            "local",
			TempDir:         filepath.Join(os.TempDir(), "document-processor"),
			Retention:       time.Hour,
			CleanupInterval: 10 * time.Minute,
		},
		S3: S3Config{
			Region: "us-east-1",
			Prefix: "staging/",
		},
		Minio: MinioConfig{
			Endpoint:   "localhost:9000",
			BucketName: "document-processor",
			Prefix:     "staging/",
		},
		Queue: QueueConfig{
			RedisAddr:   "localhost:6379",
			Concurrency: 5,
			MaxRetry:    1,
			Timeout:     10 * time.Minute,
			ResultTTL:   24 * time.Hour,
		},
		LLM: LLMConfig{
			Primary: ProviderConfig{
				Provider:    "stub",
				Timeout:     120 * time.Second,
				MaxTokens:   4096,
				Temperature: 0.2,
			},
			MaxPromptRunes: 60000,
		},
		Metrics: MetricsConfig{
			WorkdayHours:          8,
			DefaultSavingsPercent: 30,
		},
	}
}

// Get loads the configuration once and returns it on every later call.
func Get() (*Config, error) {
	configOnce.Do(func() {
		appConfig, configErr = Load()
	})
	return appConfig, configErr
}

// Load builds a Config from defaults, an optional YAML file, an optional .env
// file and DP_* environment variables, in that order of precedence.
func Load() (*Config, error) {
	cfg := Default()

	path := os.Getenv("CONFIG_FILE")
	if path == "" {
		path = "config.yaml"
	}
	if data, err := os.ReadFile(path); err == nil {
		if err := yaml.Unmarshal(data, cfg); err != nil {
			return nil, fmt.Errorf("failed to parse config file %s: %w", path, err)
		}
	} else if !os.IsNotExist(err) {
		return nil, fmt.Errorf("failed to read config file %s: %w", path, err)
	}

	if err := godotenv.Load(); err != nil && !os.IsNotExist(err) {
		log.Printf("Warning: failed to load .env file: %v", err)
	}

	if err := applyEnv(cfg); err != nil {
		return nil, err
	}
	return cfg, nil
}

func applyEnv(cfg *Config) error {
	// Railway/Heroku style PORT wins only if DP_SERVER_PORT is unset.
	if port := os.Getenv("PORT"); port != "" && os.Getenv("DP_SERVER_PORT") == "" {
		cfg.Server.Port = ":" + port
	}

	strs := map[string]*string{
		"DP_SERVER_PORT":            &cfg.Server.Port,
		"DP_SERVER_ENVIRONMENT":     &cfg.Server.Environment,
		"DP_LOG_LEVEL":              &cfg.Log.Level,
		"DP_LOG_ENCODING":           &cfg.Log.Encoding,
		"DP_STORAGE_TYPE":           &cfg.Storage.Type,
		"DP_STORAGE_TEMP_DIR":       &cfg.Storage.TempDir,
		"DP_QUEUE_REDIS_ADDR":       &cfg.Queue.RedisAddr,
		"DP_LLM_PRIMARY_PROVIDER":   &cfg.LLM.Primary.Provider,
		"DP_LLM_PRIMARY_API_KEY":    &cfg.LLM.Primary.APIKey,
		"DP_LLM_PRIMARY_MODEL":      &cfg.LLM.Primary.Model,
		"DP_LLM_PRIMARY_ENDPOINT":   &cfg.LLM.Primary.Endpoint,
		"DP_LLM_SECONDARY_PROVIDER": &cfg.LLM.Secondary.Provider,
		"DP_LLM_SECONDARY_API_KEY":  &cfg.LLM.Secondary.APIKey,
		"DP_LLM_SECONDARY_MODEL":    &cfg.LLM.Secondary.Model,
		"DP_LLM_SECONDARY_ENDPOINT": &cfg.LLM.Secondary.Endpoint,
		"AWS_S3_BUCKET_NAME":        &cfg.S3.BucketName,
		"AWS_REGION":                &cfg.S3.Region,
		"AWS_ENDPOINT":              &cfg.S3.Endpoint,
		"AWS_ACCESS_KEY":            &cfg.S3.AccessKey,
		"AWS_SECRET_KEY":            &cfg.S3.SecretKey,
		"MINIO_ACCESS_KEY":          &cfg.Minio.AccessKey,
		"MINIO_SECRET_KEY":          &cfg.Minio.SecretKey,
		"MINIO_ENDPOINT":            &cfg.Minio.Endpoint,
		"MINIO_REGION":              &cfg.Minio.Region,
		"MINIO_BUCKET_NAME":         &cfg.Minio.BucketName,
	}
	for env, dst := range strs {
		if v, ok := os.LookupEnv(env); ok {
			*dst = v
		}
	}

	if v, ok := os.LookupEnv("DP_SERVER_ALLOWED_ORIGINS"); ok {
		cfg.Server.AllowedOrigins = splitList(v)
	}
	if v, ok := os.LookupEnv("DP_INGEST_ALLOWED_TYPES"); ok {
		cfg.Ingest.AllowedTypes = splitList(v)
	}
	if v, ok := os.LookupEnv("DP_QUEUE_ENABLED"); ok {
		b, err := strconv.ParseBool(v)
		if err != nil {
			return fmt.Errorf("invalid DP_QUEUE_ENABLED %q: %w", v, err)
		}
		cfg.Queue.Enabled = b
	}
	if v, ok := os.LookupEnv("MINIO_USE_SSL"); ok {
		b, err := strconv.ParseBool(v)
		if err != nil {
			return fmt.Errorf("invalid MINIO_USE_SSL %q: %w", v, err)
		}
		cfg.Minio.UseSSL = b
	}
	if v, ok := os.LookupEnv("DP_INGEST_MAX_FILES"); ok {
		n, err := strconv.Atoi(v)
		if err != nil {
			return fmt.Errorf("invalid DP_INGEST_MAX_FILES %q: %w", v, err)
		}
		cfg.Ingest.MaxFiles = n
	}
	if v, ok := os.LookupEnv("DP_INGEST_MAX_FILE_SIZE"); ok {
		n, err := strconv.ParseInt(v, 10, 64)
		if err != nil {
			return fmt.Errorf("invalid DP_INGEST_MAX_FILE_SIZE %q: %w", v, err)
		}
		cfg.Ingest.MaxFileSize = n
	}
	if v, ok := os.LookupEnv("DP_METRICS_WORKDAY_HOURS"); ok {
		f, err := strconv.ParseFloat(v, 64)
		if err != nil || f <= 0 {
			return fmt.Errorf("invalid DP_METRICS_WORKDAY_HOURS %q", v)
		}
		cfg.Metrics.WorkdayHours = f
	}
	return nil
}

func splitList(v string) []string {
	var out []string
	for _, s := range strings.Split(v, ",") {
		if s = strings.TrimSpace(s); s != "" {
			out = append(out, s)
		}
	}
	return out
}
