package config

import (
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"
)

func TestNew(t *testing.T) {
	cfg := New()

	if cfg.Server.Port != DefaultPort {
		t.Errorf("Server.Port = %d, want %d", cfg.Server.Port, DefaultPort)
	}
	if cfg.Server.Host != DefaultHost {
		t.Errorf("Server.Host = %q, want %q", cfg.Server.Host, DefaultHost)
	}
	if cfg.Views.MaxStarred != DefaultMaxStarred {
		t.Errorf("Views.MaxStarred = %d, want %d", cfg.Views.MaxStarred, DefaultMaxStarred)
	}
	if cfg.Upload.Backend != UploadDisk {
		t.Errorf("Upload.Backend = %q, want %q", cfg.Upload.Backend, UploadDisk)
	}
	if !cfg.Metrics.Enabled {
		t.Error("Metrics should be enabled by default")
	}
}

func TestLoad(t *testing.T) {
	tmpDir := t.TempDir()

	if _, err := Load(tmpDir); err == nil {
		t.Error("Expected error for missing config")
	} else if !strings.Contains(err.Error(), "E101") {
		t.Errorf("Expected E101 error, got: %v", err)
	}

	configJSON := `{
  "server": {"host": "0.0.0.0", "port": 9090},
  "backend": {"url": "http://api.local", "timeout": "5s"},
  "upload": {"backend": "minio", "bucket": "avatars", "endpoint": "minio:9000"},
  "views": {"maxStarred": 5}
}
`
	if err := os.WriteFile(filepath.Join(tmpDir, ConfigFileName), []byte(configJSON), 0644); err != nil {
		t.Fatal(err)
	}

	cfg, err := Load(tmpDir)
	if err != nil {
		t.Fatalf("Load error: %v", err)
	}

	if cfg.Address() != "0.0.0.0:9090" {
		t.Errorf("Address() = %q, want %q", cfg.Address(), "0.0.0.0:9090")
	}
	if cfg.BackendTimeout() != 5*time.Second {
		t.Errorf("BackendTimeout() = %v, want 5s", cfg.BackendTimeout())
	}
	if cfg.Upload.Bucket != "avatars" {
		t.Errorf("Upload.Bucket = %q, want %q", cfg.Upload.Bucket, "avatars")
	}
	if cfg.Views.MaxStarred != 5 {
		t.Errorf("Views.MaxStarred = %d, want 5", cfg.Views.MaxStarred)
	}
	if cfg.Views.PageSize != DefaultPageSize {
		t.Errorf("Views.PageSize = %d, want default", cfg.Views.PageSize)
	}
	if cfg.Path() == "" {
		t.Error("Path() should be set after Load")
	}
}

func TestLoadFile_InvalidJSON(t *testing.T) {
	configPath := filepath.Join(t.TempDir(), ConfigFileName)
	if err := os.WriteFile(configPath, []byte("not valid json"), 0644); err != nil {
		t.Fatal(err)
	}

	_, err := LoadFile(configPath)
	if err == nil {
		t.Fatal("Expected error for invalid JSON")
	}
	if !strings.Contains(err.Error(), "E102") {
		t.Errorf("Expected E102 error, got: %v", err)
	}
}

func TestEnvOverrides(t *testing.T) {
	tmpDir := t.TempDir()
	if err := os.WriteFile(filepath.Join(tmpDir, ConfigFileName), []byte(`{"backend":{"url":"http://file"}}`), 0644); err != nil {
		t.Fatal(err)
	}

	t.Setenv("GIGMARKET_API_URL", "http://env")
	t.Setenv("GIGMARKET_PORT", "7000")
	t.Setenv("UPLOAD_BACKEND", "s3")
	t.Setenv("S3_BUCKET", "env-bucket")

	cfg, err := Load(tmpDir)
	if err != nil {
		t.Fatal(err)
	}
	if cfg.Backend.URL != "http://env" {
		t.Errorf("Backend.URL = %q, want env override", cfg.Backend.URL)
	}
	if cfg.Server.Port != 7000 {
		t.Errorf("Server.Port = %d, want 7000", cfg.Server.Port)
	}
	if cfg.Upload.Bucket != "env-bucket" {
		t.Errorf("Upload.Bucket = %q, want env-bucket", cfg.Upload.Bucket)
	}
}

func TestLoadOrDefault(t *testing.T) {
	t.Setenv("GIGMARKET_API_URL", "http://fallback")

	cfg, err := LoadOrDefault(t.TempDir())
	if err != nil {
		t.Fatal(err)
	}
	if cfg.Backend.URL != "http://fallback" {
		t.Errorf("Backend.URL = %q", cfg.Backend.URL)
	}
	if cfg.Path() != "" {
		t.Errorf("Path() = %q, want empty", cfg.Path())
	}
}

func TestSave(t *testing.T) {
	tmpDir := t.TempDir()
	configPath := filepath.Join(tmpDir, ConfigFileName)

	cfg := New()
	cfg.Server.Port = 9000

	if err := cfg.Save(); err == nil {
		t.Error("Expected error when saving without path")
	}
	if err := cfg.SaveTo(configPath); err != nil {
		t.Fatalf("SaveTo error: %v", err)
	}
	if !Exists(tmpDir) {
		t.Fatal("Exists() = false after SaveTo")
	}

	loaded, err := Load(tmpDir)
	if err != nil {
		t.Fatal(err)
	}
	if loaded.Server.Port != 9000 {
		t.Errorf("Server.Port = %d, want 9000", loaded.Server.Port)
	}

	loaded.Views.PageSize = 25
	if err := loaded.Save(); err != nil {
		t.Fatalf("Save error: %v", err)
	}
	again, _ := Load(tmpDir)
	if again.Views.PageSize != 25 {
		t.Errorf("Views.PageSize = %d, want 25", again.Views.PageSize)
	}
}

func TestValidate(t *testing.T) {
	tests := []struct {
		name    string
		mutate  func(*Config)
		wantErr string
	}{
		{"valid", func(c *Config) {}, ""},
		{"bad port", func(c *Config) { c.Server.Port = 70000 }, "E103"},
		{"missing backend", func(c *Config) { c.Backend.URL = "" }, "E104"},
		{"bad upload backend", func(c *Config) { c.Upload.Backend = "ftp" }, "E105"},
		{"bad duration", func(c *Config) { c.Backend.Timeout = "soon" }, "E102"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := New()
			cfg.Backend.URL = "http://api"
			tt.mutate(cfg)
			err := cfg.Validate()
			if tt.wantErr == "" {
				if err != nil {
					t.Errorf("Validate() = %v, want nil", err)
				}
				return
			}
			if err == nil || !strings.Contains(err.Error(), tt.wantErr) {
				t.Errorf("Validate() = %v, want %s", err, tt.wantErr)
			}
		})
	}
}

func TestDurations(t *testing.T) {
	cfg := New()
	if cfg.BackendTimeout() != 0 {
		t.Errorf("BackendTimeout() = %v, want 0 (no client timeout)", cfg.BackendTimeout())
	}
	if cfg.ShutdownTimeout() != 10*time.Second {
		t.Errorf("ShutdownTimeout() = %v", cfg.ShutdownTimeout())
	}
	cfg.Session.ResumeWindow = "garbage"
	if cfg.ResumeWindow() != 30*time.Second {
		t.Errorf("ResumeWindow() fallback = %v", cfg.ResumeWindow())
	}
	if cfg.HeartbeatInterval() != 30*time.Second {
		t.Errorf("HeartbeatInterval() = %v", cfg.HeartbeatInterval())
	}
}
