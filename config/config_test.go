package config

import (
	"os"
	"testing"
)

func writeTempConfig(t *testing.T, content string) string {
	t.Helper()
	tmpFile, err := os.CreateTemp("", "config-*.yaml")
	if err != nil {
		t.Fatalf("Failed to create temp file: %v", err)
	}
	t.Cleanup(func() { os.Remove(tmpFile.Name()) })

	if _, err := tmpFile.WriteString(content); err != nil {
		t.Fatalf("Failed to write config: %v", err)
	}
	tmpFile.Close()
	return tmpFile.Name()
}

func TestLoad(t *testing.T) {
	configContent := `
server:
  port: 9090
web:
  port: 4000
  api_base_url: "http://localhost:9090"
  username: "underwriter"
  password: "secret"
minio:
  endpoint: "localhost:9000"
  access_key: "minioadmin"
  secret_key: "minioadmin"
  bucket: "documents"
  use_ssl: false
  upload_expiry_minutes: 10
  view_expiry_minutes: 120
database:
  url: "postgres://localhost:5432/workbench"
  max_conns: 10
redis:
  url: "redis://localhost:6379/0"
  requests_per_minute: 50
analyzer:
  api_url: "https://api.docintel.test"
  api_token: "test-token"
  model_version: "v3"
  batch_size: 5
auth:
  jwt_secret: "test-secret"
  token_expire_hours: 48
log:
  level: "debug"
  format: "json"
store:
  max_jobs: 50
users:
  - username: "testuser"
    password: "testpass"
`
	cfg, err := Load(writeTempConfig(t, configContent))
	if err != nil {
		t.Fatalf("Failed to load config: %v", err)
	}

	if cfg.Server.Port != 9090 {
		t.Errorf("Expected port 9090, got %d", cfg.Server.Port)
	}
	if cfg.Web.APIBaseURL != "http://localhost:9090" {
		t.Errorf("Expected api_base_url http://localhost:9090, got %s", cfg.Web.APIBaseURL)
	}
	if cfg.Minio.Endpoint != "localhost:9000" {
		t.Errorf("Expected endpoint localhost:9000, got %s", cfg.Minio.Endpoint)
	}
	if cfg.Minio.UploadExpiryMinutes != 10 {
		t.Errorf("Expected upload_expiry_minutes 10, got %d", cfg.Minio.UploadExpiryMinutes)
	}
	if cfg.Database.MaxConns != 10 {
		t.Errorf("Expected max_conns 10, got %d", cfg.Database.MaxConns)
	}
	if cfg.Redis.RequestsPerMinute != 50 {
		t.Errorf("Expected requests_per_minute 50, got %d", cfg.Redis.RequestsPerMinute)
	}
	if cfg.Analyzer.ModelVersion != "v3" {
		t.Errorf("Expected model_version v3, got %s", cfg.Analyzer.ModelVersion)
	}
	if cfg.Analyzer.BatchSize != 5 {
		t.Errorf("Expected batch_size 5, got %d", cfg.Analyzer.BatchSize)
	}
	if cfg.Auth.TokenExpireHours != 48 {
		t.Errorf("Expected token_expire_hours 48, got %d", cfg.Auth.TokenExpireHours)
	}
	if cfg.Log.Level != "debug" {
		t.Errorf("Expected log level debug, got %s", cfg.Log.Level)
	}
	if cfg.Store.MaxJobs != 50 {
		t.Errorf("Expected max_jobs 50, got %d", cfg.Store.MaxJobs)
	}
	if len(cfg.Users) != 1 || cfg.Users[0].Username != "testuser" {
		t.Errorf("Expected 1 user 'testuser', got %+v", cfg.Users)
	}
}

func TestLoadDefaults(t *testing.T) {
	configContent := `
minio:
  endpoint: "localhost:9000"
  access_key: "test"
  secret_key: "test"
  bucket: "bucket"
`
	cfg, err := Load(writeTempConfig(t, configContent))
	if err != nil {
		t.Fatalf("Failed to load config: %v", err)
	}

	if cfg.Server.Port != 8080 {
		t.Errorf("Expected default port 8080, got %d", cfg.Server.Port)
	}
	if cfg.Web.Port != 3000 {
		t.Errorf("Expected default web port 3000, got %d", cfg.Web.Port)
	}
	if cfg.Minio.UploadExpiryMinutes != 5 {
		t.Errorf("Expected default upload_expiry_minutes 5, got %d", cfg.Minio.UploadExpiryMinutes)
	}
	if cfg.Minio.ViewExpiryMinutes != 60 {
		t.Errorf("Expected default view_expiry_minutes 60, got %d", cfg.Minio.ViewExpiryMinutes)
	}
	if cfg.Redis.RequestsPerMinute != 100 {
		t.Errorf("Expected default requests_per_minute 100, got %d", cfg.Redis.RequestsPerMinute)
	}
	if cfg.Analyzer.ModelVersion != "v2" {
		t.Errorf("Expected default model_version v2, got %s", cfg.Analyzer.ModelVersion)
	}
	if cfg.Analyzer.BatchSize != 1 {
		t.Errorf("Expected default batch_size 1, got %d", cfg.Analyzer.BatchSize)
	}
	if cfg.Auth.TokenExpireHours != 24 {
		t.Errorf("Expected default token_expire_hours 24, got %d", cfg.Auth.TokenExpireHours)
	}
	if cfg.Log.Level != "info" || cfg.Log.Format != "text" {
		t.Errorf("Expected default log info/text, got %s/%s", cfg.Log.Level, cfg.Log.Format)
	}
	if cfg.Store.MaxJobs != 1000 {
		t.Errorf("Expected default max_jobs 1000, got %d", cfg.Store.MaxJobs)
	}
}

func TestLoadEnvOverrides(t *testing.T) {
	configContent := `
web:
  api_base_url: "http://from-file:8080"
database:
  url: "postgres://from-file/db"
`
	t.Setenv("WORKBENCH_API_URL", "http://from-env:8080")
	t.Setenv("DATABASE_URL", "postgres://from-env/db")
	t.Setenv("REDIS_URL", "redis://from-env:6379")

	cfg, err := Load(writeTempConfig(t, configContent))
	if err != nil {
		t.Fatalf("Failed to load config: %v", err)
	}

	if cfg.Web.APIBaseURL != "http://from-env:8080" {
		t.Errorf("Expected env override for api base URL, got %s", cfg.Web.APIBaseURL)
	}
	if cfg.Database.URL != "postgres://from-env/db" {
		t.Errorf("Expected env override for database URL, got %s", cfg.Database.URL)
	}
	if cfg.Redis.URL != "redis://from-env:6379" {
		t.Errorf("Expected env override for redis URL, got %s", cfg.Redis.URL)
	}
}

func TestLoadNonExistent(t *testing.T) {
	_, err := Load("nonexistent.yaml")
	if err == nil {
		t.Error("Expected error for non-existent file")
	}
}

func TestLoadInvalidYAML(t *testing.T) {
	_, err := Load(writeTempConfig(t, "server: [not a map"))
	if err == nil {
		t.Error("Expected error for invalid YAML")
	}
}

func TestFindUser(t *testing.T) {
	cfg := &Config{
		Users: []User{
			{Username: "alice", Password: "pw1"},
			{Username: "bob", Password: "pw2"},
		},
	}

	if u := cfg.FindUser("bob"); u == nil || u.Password != "pw2" {
		t.Errorf("Expected to find bob, got %+v", u)
	}
	if u := cfg.FindUser("carol"); u != nil {
		t.Errorf("Expected nil for unknown user, got %+v", u)
	}
}
