package config

import (
	"os"
	"path/filepath"
	"testing"
)

func TestLoad_MissingFileUsesDefaults(t *testing.T) {
	cfg, err := Load(filepath.Join(t.TempDir(), "missing.yaml"))
	if err != nil {
		t.Fatalf("Load() error = %v", err)
	}

	if cfg.Database.Driver != "sqlite" {
		t.Errorf("Database.Driver = %q, expected sqlite", cfg.Database.Driver)
	}
	if cfg.Storage.Driver != "local" {
		t.Errorf("Storage.Driver = %q, expected local", cfg.Storage.Driver)
	}
	if cfg.Purge.RetentionDays != 30 {
		t.Errorf("Purge.RetentionDays = %d, expected 30", cfg.Purge.RetentionDays)
	}
}

func TestLoad_PartialFileKeepsDefaults(t *testing.T) {
	path := filepath.Join(t.TempDir(), "config.yaml")
	content := "server:\n  port: \"9090\"\nstorage:\n  driver: s3\n  bucket: docs\n"
	if err := os.WriteFile(path, []byte(content), 0644); err != nil {
		t.Fatal(err)
	}

	cfg, err := Load(path)
	if err != nil {
		t.Fatalf("Load() error = %v", err)
	}

	if cfg.Server.Port != "9090" {
		t.Errorf("Server.Port = %q, expected 9090", cfg.Server.Port)
	}
	if cfg.Server.Host != "0.0.0.0" {
		t.Errorf("Server.Host = %q, default should survive", cfg.Server.Host)
	}
	if cfg.Storage.Driver != "s3" || cfg.Storage.Bucket != "docs" {
		t.Errorf("storage not loaded: %+v", cfg.Storage)
	}
	if cfg.JWT.ExpireHour != 24 {
		t.Errorf("JWT.ExpireHour = %d, expected 24", cfg.JWT.ExpireHour)
	}
}

func TestLoad_EnvOverrides(t *testing.T) {
	t.Setenv("DB_DRIVER", "postgres")
	t.Setenv("DB_DSN", "host=db user=app")
	t.Setenv("SMTP_PORT", "2525")
	t.Setenv("LOG_LEVEL", "debug")
	t.Setenv("CORS_ORIGINS", "https://a.example.com,https://b.example.com")
	t.Setenv("ADMIN_PASSWORD", "first-admin-pass")

	cfg, err := Load(filepath.Join(t.TempDir(), "none.yaml"))
	if err != nil {
		t.Fatalf("Load() error = %v", err)
	}

	if cfg.Database.Driver != "postgres" || cfg.Database.DSN != "host=db user=app" {
		t.Errorf("database override not applied: %+v", cfg.Database)
	}
	if cfg.SMTP.Port != 2525 {
		t.Errorf("SMTP.Port = %d, expected 2525", cfg.SMTP.Port)
	}
	if cfg.Log.Level != "debug" {
		t.Errorf("Log.Level = %q, expected debug", cfg.Log.Level)
	}
	if len(cfg.Server.CORSOrigins) != 2 || cfg.Server.CORSOrigins[1] != "https://b.example.com" {
		t.Errorf("CORSOrigins = %v", cfg.Server.CORSOrigins)
	}
	if cfg.Admin.Username != "admin" || cfg.Admin.Password != "first-admin-pass" {
		t.Errorf("admin override not applied: %+v", cfg.Admin)
	}
}

func TestParseRedisURL(t *testing.T) {
	tests := []struct {
		url      string
		addr     string
		password string
		db       int
	}{
		{"redis://localhost:6379", "localhost:6379", "", 0},
		{"redis://:secret@cache:6380/2", "cache:6380", "secret", 2},
		{"redis://user:pw@10.0.0.5:6379/1", "10.0.0.5:6379", "pw", 1},
	}

	for _, tt := range tests {
		cfg := DefaultConfig()
		cfg.parseRedisURL(tt.url)
		if cfg.Redis.Addr != tt.addr || cfg.Redis.Password != tt.password || cfg.Redis.DB != tt.db {
			t.Errorf("parseRedisURL(%q) = %+v", tt.url, cfg.Redis)
		}
	}
}

func TestSave_RoundTrip(t *testing.T) {
	path := filepath.Join(t.TempDir(), "nested", "config.yaml")
	cfg := DefaultConfig()
	cfg.Server.Port = "7000"

	if err := cfg.Save(path); err != nil {
		t.Fatalf("Save() error = %v", err)
	}

	loaded, err := Load(path)
	if err != nil {
		t.Fatalf("Load() error = %v", err)
	}
	if loaded.Server.Port != "7000" {
		t.Errorf("Server.Port = %q, expected 7000", loaded.Server.Port)
	}
}
