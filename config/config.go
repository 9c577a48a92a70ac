package config

import (
	"fmt"
	"os"

	"gopkg.in/yaml.v3"
)

type Config struct {
	Server   ServerConfig   `yaml:"server"`
	Web      WebConfig      `yaml:"web"`
	Minio    MinioConfig    `yaml:"minio"`
	Database DatabaseConfig `yaml:"database"`
	Redis    RedisConfig    `yaml:"redis"`
	Analyzer AnalyzerConfig `yaml:"analyzer"`
	Auth     AuthConfig     `yaml:"auth"`
	Log      LogConfig      `yaml:"log"`
	Store    StoreConfig    `yaml:"store"`
	Users    []User         `yaml:"users"`
}

type ServerConfig struct {
	Port int `yaml:"port"`
}

// WebConfig configures the workbench web frontend.
type WebConfig struct {
	Port       int    `yaml:"port"`
	APIBaseURL string `yaml:"api_base_url"`
	Username   string `yaml:"username"`
	Password   string `yaml:"password"`
}

type MinioConfig struct {
	Endpoint            string `yaml:"endpoint"`
	AccessKey           string `yaml:"access_key"`
	SecretKey           string `yaml:"secret_key"`
	Bucket              string `yaml:"bucket"`
	UseSSL              bool   `yaml:"use_ssl"`
	UploadExpiryMinutes int    `yaml:"upload_expiry_minutes"`
	ViewExpiryMinutes   int    `yaml:"view_expiry_minutes"`
}

type DatabaseConfig struct {
	URL                 string `yaml:"url"`
	MaxConns            int    `yaml:"max_conns"`
	MinConns            int    `yaml:"min_conns"`
	ConnLifetimeMinutes int    `yaml:"conn_lifetime_minutes"`
}

type RedisConfig struct {
	URL               string `yaml:"url"`
	RequestsPerMinute int    `yaml:"requests_per_minute"`
}

type AnalyzerConfig struct {
	APIURL         string `yaml:"api_url"`
	APIToken       string `yaml:"api_token"`
	ModelVersion   string `yaml:"model_version"`
	BatchSize      int    `yaml:"batch_size"`
	TimeoutSeconds int    `yaml:"timeout_seconds"`
}

type AuthConfig struct {
	JWTSecret        string `yaml:"jwt_secret"`
	TokenExpireHours int    `yaml:"token_expire_hours"`
}

type LogConfig struct {
	Level  string `yaml:"level"`  // debug, info, warn, error
	Format string `yaml:"format"` // json, text
}

// StoreConfig tunes the in-memory job store used when no database URL is
// configured.
type StoreConfig struct {
	MaxJobs int `yaml:"max_jobs"`
}

type User struct {
	Username string `yaml:"username"`
	Password string `yaml:"password"`
}

func Load(path string) (*Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}

	var cfg Config
	if err := yaml.Unmarshal(data, &cfg); err != nil {
		return nil, fmt.Errorf("failed to parse config: %w", err)
	}

	// Set defaults
	if cfg.Server.Port == 0 {
		cfg.Server.Port = 8080
	}
	if cfg.Web.Port == 0 {
		cfg.Web.Port = 3000
	}
	if cfg.Minio.UploadExpiryMinutes == 0 {
		cfg.Minio.UploadExpiryMinutes = 5
	}
	if cfg.Minio.ViewExpiryMinutes == 0 {
		cfg.Minio.ViewExpiryMinutes = 60
	}
	if cfg.Database.MaxConns == 0 {
		cfg.Database.MaxConns = 25
	}
	if cfg.Database.MinConns == 0 {
		cfg.Database.MinConns = 5
	}
	if cfg.Database.ConnLifetimeMinutes == 0 {
		cfg.Database.ConnLifetimeMinutes = 5
	}
	if cfg.Redis.RequestsPerMinute == 0 {
		cfg.Redis.RequestsPerMinute = 100
	}
	if cfg.Analyzer.ModelVersion == "" {
		cfg.Analyzer.ModelVersion = "v2"
	}
	if cfg.Analyzer.BatchSize == 0 {
		cfg.Analyzer.BatchSize = 1
	}
	if cfg.Analyzer.TimeoutSeconds == 0 {
		cfg.Analyzer.TimeoutSeconds = 60
	}
	if cfg.Auth.TokenExpireHours == 0 {
		cfg.Auth.TokenExpireHours = 24
	}
	if cfg.Store.MaxJobs == 0 {
		cfg.Store.MaxJobs = 1000
	}
	if cfg.Log.Level == "" {
		cfg.Log.Level = "info"
	}
	if cfg.Log.Format == "" {
		cfg.Log.Format = "text"
	}

	applyEnvOverrides(&cfg)

	return &cfg, nil
}

// applyEnvOverrides lets deployments point the binaries at their services
// without editing the config file.
func applyEnvOverrides(cfg *Config) {
	if v := os.Getenv("WORKBENCH_API_URL"); v != "" {
		cfg.Web.APIBaseURL = v
	}
	if v := os.Getenv("DATABASE_URL"); v != "" {
		cfg.Database.URL = v
	}
	if v := os.Getenv("REDIS_URL"); v != "" {
		cfg.Redis.URL = v
	}
	if v := os.Getenv("MINIO_ENDPOINT"); v != "" {
		cfg.Minio.Endpoint = v
	}
	if v := os.Getenv("ANALYZER_API_TOKEN"); v != "" {
		cfg.Analyzer.APIToken = v
	}
}

// FindUser finds a user by username
func (c *Config) FindUser(username string) *User {
	for i := range c.Users {
		if c.Users[i].Username == username {
			return &c.Users[i]
		}
	}
	return nil
}
