package config

import (
	"fmt"
	"os"
	"strings"
	"time"

	"github.com/spf13/viper"
)

// Config holds all application configuration.
type Config struct {
	Server     ServerConfig
	DB         DBConfig
	S3         S3Config
	Vertex     VertexConfig
	Queue      QueueConfig
	Preprocess PreprocessConfig
	CORS       CORSConfig
	Log        LogConfig
}

// ServerConfig holds HTTP server settings.
type ServerConfig struct {
	Port         string        `mapstructure:"port"`
	ReadTimeout  time.Duration `mapstructure:"read_timeout"`
	WriteTimeout time.Duration `mapstructure:"write_timeout"`
	Environment  string        `mapstructure:"environment"`
}

// DBConfig holds PostgreSQL connection settings.
type DBConfig struct {
	Host     string `mapstructure:"host"`
	Port     int    `mapstructure:"port"`
	User     string `mapstructure:"user"`
	Password string `mapstructure:"password"`
	Name     string `mapstructure:"name"`
	SSLMode  string `mapstructure:"sslmode"`
	MaxOpen  int    `mapstructure:"max_open"`
	MaxIdle  int    `mapstructure:"max_idle"`
}

// DSN returns the PostgreSQL connection string.
func (d *DBConfig) DSN() string {
	return fmt.Sprintf(
		"postgres://%s:%s@%s:%d/%s?sslmode=%s",
		d.User, d.Password, d.Host, d.Port, d.Name, d.SSLMode,
	)
}

// S3Config holds AWS S3 settings for scan storage.
type S3Config struct {
	Region        string `mapstructure:"region"`
	Bucket        string `mapstructure:"bucket"`
	Endpoint      string `mapstructure:"endpoint"`
	AccessKey     string `mapstructure:"access_key"`
	SecretKey     string `mapstructure:"secret_key"`
	MaxFileSizeMB int64  `mapstructure:"max_file_size_mb"`
	PresignExpiry int64  `mapstructure:"presign_expiry"`
}

// VertexConfig holds Vertex AI settings for the vision extraction model.
type VertexConfig struct {
	ProjectID       string `mapstructure:"project_id"`
	Location        string `mapstructure:"location"`
	KeyPath         string `mapstructure:"key_path"`
	Model           string `mapstructure:"model"`
	TimeoutSecs     int    `mapstructure:"timeout_secs"`
	MaxOutputTokens int    `mapstructure:"max_output_tokens"`
}

// QueueConfig holds extraction queue worker settings.
type QueueConfig struct {
	PollIntervalSecs int `mapstructure:"poll_interval_secs"`
	MaxRetries       int `mapstructure:"max_retries"`
	Concurrency      int `mapstructure:"concurrency"`
}

// PreprocessConfig holds image preprocessing settings.
type PreprocessConfig struct {
	TempDir string `mapstructure:"temp_dir"`
}

// CORSConfig holds CORS settings for the review frontend.
type CORSConfig struct {
	AllowedOrigins []string `mapstructure:"allowed_origins"`
}

// LogConfig holds logging settings.
type LogConfig struct {
	Level  string `mapstructure:"level"`
	Format string `mapstructure:"format"`
}

// Load reads configuration from environment variables with the ORMD_ prefix.
func Load() (*Config, error) {
	v := viper.New()
	v.SetEnvPrefix("ORMD")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	// Server defaults
	v.SetDefault("server.port", ":8080")
	v.SetDefault("server.read_timeout", "15s")
	v.SetDefault("server.write_timeout", "15s")
	v.SetDefault("server.environment", "development")

	// DB defaults
	v.SetDefault("db.host", "localhost")
	v.SetDefault("db.port", 5432)
	v.SetDefault("db.user", "ormd")
	v.SetDefault("db.password", "ormd_secret")
	v.SetDefault("db.name", "ormd_db")
	v.SetDefault("db.sslmode", "disable")
	v.SetDefault("db.max_open", 25)
	v.SetDefault("db.max_idle", 10)

	// S3 defaults
	v.SetDefault("s3.region", "us-east-1")
	v.SetDefault("s3.bucket", "ormd-scans")
	v.SetDefault("s3.endpoint", "")
	v.SetDefault("s3.max_file_size_mb", 50)
	v.SetDefault("s3.presign_expiry", 3600)

	// Vertex defaults
	v.SetDefault("vertex.project_id", "")
	v.SetDefault("vertex.location", "us-central1")
	v.SetDefault("vertex.key_path", "")
	v.SetDefault("vertex.model", "gemini-2.0-flash-001")
	v.SetDefault("vertex.timeout_secs", 120)
	v.SetDefault("vertex.max_output_tokens", 1024)

	// Queue defaults
	v.SetDefault("queue.poll_interval_secs", 10)
	v.SetDefault("queue.max_retries", 5)
	v.SetDefault("queue.concurrency", 5)

	// Preprocess defaults (empty means the OS temp dir)
	v.SetDefault("preprocess.temp_dir", "")

	// CORS defaults (localhost origins for development)
	v.SetDefault("cors.allowed_origins", "http://localhost:3000,http://127.0.0.1:3000")

	// Log defaults
	v.SetDefault("log.level", "debug")
	v.SetDefault("log.format", "console")

	// Bind environment variables explicitly for nested keys
	envBindings := map[string]string{
		"server.port":              "ORMD_SERVER_PORT",
		"server.read_timeout":      "ORMD_SERVER_READ_TIMEOUT",
		"server.write_timeout":     "ORMD_SERVER_WRITE_TIMEOUT",
		"server.environment":       "ORMD_SERVER_ENVIRONMENT",
		"db.host":                  "ORMD_DB_HOST",
		"db.port":                  "ORMD_DB_PORT",
		"db.user":                  "ORMD_DB_USER",
		"db.password":              "ORMD_DB_PASSWORD",
		"db.name":                  "ORMD_DB_NAME",
		"db.sslmode":               "ORMD_DB_SSLMODE",
		"db.max_open":              "ORMD_DB_MAX_OPEN",
		"db.max_idle":              "ORMD_DB_MAX_IDLE",
		"s3.region":                "ORMD_S3_REGION",
		"s3.bucket":                "ORMD_S3_BUCKET",
		"s3.endpoint":              "ORMD_S3_ENDPOINT",
		"s3.access_key":            "ORMD_S3_ACCESS_KEY",
		"s3.secret_key":            "ORMD_S3_SECRET_KEY",
		"s3.max_file_size_mb":      "ORMD_S3_MAX_FILE_SIZE_MB",
		"s3.presign_expiry":        "ORMD_S3_PRESIGN_EXPIRY",
		"vertex.project_id":        "ORMD_VERTEX_PROJECT_ID",
		"vertex.location":          "ORMD_VERTEX_LOCATION",
		"vertex.key_path":          "ORMD_VERTEX_KEY_PATH",
		"vertex.model":             "ORMD_VERTEX_MODEL",
		"vertex.timeout_secs":      "ORMD_VERTEX_TIMEOUT_SECS",
		"vertex.max_output_tokens": "ORMD_VERTEX_MAX_OUTPUT_TOKENS",
		"queue.poll_interval_secs": "ORMD_QUEUE_POLL_INTERVAL_SECS",
		"queue.max_retries":        "ORMD_QUEUE_MAX_RETRIES",
		"queue.concurrency":        "ORMD_QUEUE_CONCURRENCY",
		"preprocess.temp_dir":      "ORMD_PREPROCESS_TEMP_DIR",
		"cors.allowed_origins":     "ORMD_CORS_ALLOWED_ORIGINS",
		"log.level":                "ORMD_LOG_LEVEL",
		"log.format":               "ORMD_LOG_FORMAT",
	}
	for key, env := range envBindings {
		_ = v.BindEnv(key, env)
	}

	cfg := &Config{}

	// Railway/Heroku/Render set a PORT env var. Use it if ORMD_SERVER_PORT is not explicitly set.
	serverPort := v.GetString("server.port")
	if port := os.Getenv("PORT"); port != "" && os.Getenv("ORMD_SERVER_PORT") == "" {
		serverPort = ":" + port
	}

	cfg.Server = ServerConfig{
		Port:         serverPort,
		ReadTimeout:  v.GetDuration("server.read_timeout"),
		WriteTimeout: v.GetDuration("server.write_timeout"),
		Environment:  v.GetString("server.environment"),
	}
	cfg.DB = DBConfig{
		Host:     v.GetString("db.host"),
		Port:     v.GetInt("db.port"),
		User:     v.GetString("db.user"),
		Password: v.GetString("db.password"),
		Name:     v.GetString("db.name"),
		SSLMode:  v.GetString("db.sslmode"),
		MaxOpen:  v.GetInt("db.max_open"),
		MaxIdle:  v.GetInt("db.max_idle"),
	}
	cfg.S3 = S3Config{
		Region:        v.GetString("s3.region"),
		Bucket:        v.GetString("s3.bucket"),
		Endpoint:      v.GetString("s3.endpoint"),
		AccessKey:     v.GetString("s3.access_key"),
		SecretKey:     v.GetString("s3.secret_key"),
		MaxFileSizeMB: v.GetInt64("s3.max_file_size_mb"),
		PresignExpiry: v.GetInt64("s3.presign_expiry"),
	}
	cfg.Vertex = VertexConfig{
		ProjectID:       v.GetString("vertex.project_id"),
		Location:        v.GetString("vertex.location"),
		KeyPath:         v.GetString("vertex.key_path"),
		Model:           v.GetString("vertex.model"),
		TimeoutSecs:     v.GetInt("vertex.timeout_secs"),
		MaxOutputTokens: v.GetInt("vertex.max_output_tokens"),
	}
	cfg.Queue = QueueConfig{
		PollIntervalSecs: v.GetInt("queue.poll_interval_secs"),
		MaxRetries:       v.GetInt("queue.max_retries"),
		Concurrency:      v.GetInt("queue.concurrency"),
	}
	cfg.Preprocess = PreprocessConfig{
		TempDir: v.GetString("preprocess.temp_dir"),
	}

	// Parse CORS allowed origins from comma-separated string
	var corsOrigins []string
	for _, o := range strings.Split(v.GetString("cors.allowed_origins"), ",") {
		o = strings.TrimSpace(o)
		if o != "" {
			corsOrigins = append(corsOrigins, o)
		}
	}
	cfg.CORS = CORSConfig{
		AllowedOrigins: corsOrigins,
	}

	cfg.Log = LogConfig{
		Level:  v.GetString("log.level"),
		Format: v.GetString("log.format"),
	}

	return cfg, nil
}
