package config

import (
	"os"
	"path/filepath"
	"testing"
)

func TestLoadConfigFromYaml(t *testing.T) {
	path := filepath.Join(t.TempDir(), "config.yaml")
	content := `
server:
  ws_port: 4000
  grid_cols: 4
  grid_rows: 5
  locale: th
database:
  host: db.local
  port: 5433
  user: kitchen
  password: secret
  database: kitchen_db
`
	if err := os.WriteFile(path, []byte(content), 0o644); err != nil {
		t.Fatal(err)
	}

	cfg, err := LoadConfig(path)
	if err != nil {
		t.Fatalf("LoadConfig failed: %v", err)
	}

	if cfg.Server.WSPort != 4000 {
		t.Errorf("ws port = %d, want 4000", cfg.Server.WSPort)
	}
	if cfg.Server.GridCols != 4 || cfg.Server.GridRows != 5 {
		t.Errorf("grid = %dx%d, want 4x5", cfg.Server.GridCols, cfg.Server.GridRows)
	}
	if cfg.Server.Locale != "th" {
		t.Errorf("locale = %q, want th", cfg.Server.Locale)
	}
	if cfg.Database == nil || cfg.Database.Host != "db.local" || cfg.Database.Port != 5433 {
		t.Errorf("database = %+v", cfg.Database)
	}
	if cfg.RabbitMQ != nil {
		t.Errorf("rabbitmq = %+v, want nil when absent", cfg.RabbitMQ)
	}

	// Unset fields pick up defaults.
	if cfg.Server.ReportPort != 3002 {
		t.Errorf("report port = %d, want default 3002", cfg.Server.ReportPort)
	}
	if len(cfg.Server.RequiredLocales) != 2 {
		t.Errorf("required locales = %v, want defaults", cfg.Server.RequiredLocales)
	}
	if cfg.Storage.DataDir != "data/state" {
		t.Errorf("data dir = %q, want default", cfg.Storage.DataDir)
	}
}

func TestLoadConfigMissingFileFallsBackToEnv(t *testing.T) {
	t.Setenv("KITCHEN_WS_PORT", "5000")
	t.Setenv("KITCHEN_LOCALE", "th")

	cfg, err := LoadConfig(filepath.Join(t.TempDir(), "nope.yaml"))
	if err != nil {
		t.Fatalf("LoadConfig failed: %v", err)
	}

	if cfg.Server.WSPort != 5000 {
		t.Errorf("ws port = %d, want 5000 from env", cfg.Server.WSPort)
	}
	if cfg.Server.Locale != "th" {
		t.Errorf("locale = %q, want th from env", cfg.Server.Locale)
	}
	if cfg.Server.GridCols != 3 {
		t.Errorf("grid cols = %d, want default 3", cfg.Server.GridCols)
	}
}

func TestLoadConfigBadYaml(t *testing.T) {
	path := filepath.Join(t.TempDir(), "config.yaml")
	if err := os.WriteFile(path, []byte("server: ["), 0o644); err != nil {
		t.Fatal(err)
	}
	if _, err := LoadConfig(path); err == nil {
		t.Error("LoadConfig accepted broken yaml")
	}
}
