package migrate

import (
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/angelmondragon/posrelay/pkg/config"
)

func TestSalesQueueMigrationContainsTables(t *testing.T) {
	data, err := Embedded.ReadFile("migrations/20260301120000_create_sales_queue.sql")
	if err != nil {
		t.Fatalf("read embedded migration: %v", err)
	}
	content := string(data)

	checks := []string{
		"CREATE TABLE IF NOT EXISTS queued_sales",
		"payload JSON NOT NULL",
		"idx_queued_sales_centre_id ON queued_sales (centre, id)",
		"CREATE TABLE IF NOT EXISTS sale_audits",
		"DROP TABLE IF EXISTS sale_audits",
		"DROP TABLE IF EXISTS queued_sales",
	}
	for _, sub := range checks {
		if !strings.Contains(content, sub) {
			t.Errorf("missing expected statement %q", sub)
		}
	}
	if strings.Contains(strings.ToUpper(content), "JSONB") {
		t.Errorf("sale payloads must keep their bytes; jsonb rewrites them")
	}
}

func TestValidateDirAcceptsShippedMigrations(t *testing.T) {
	if err := ValidateDir("migrations"); err != nil {
		t.Fatalf("validate shipped migrations: %v", err)
	}
}

func TestCreateThenValidate(t *testing.T) {
	dir := t.TempDir()
	if err := ValidateDir(dir); err == nil {
		t.Fatalf("expected empty dir to fail validation")
	}

	at := time.Date(2026, 3, 2, 9, 30, 0, 0, time.UTC)
	path, err := CreateSQLMigration(dir, "Add Sale Index!", at)
	if err != nil {
		t.Fatalf("create migration: %v", err)
	}
	if filepath.Base(path) != "20260302093000_add_sale_index.sql" {
		t.Fatalf("unexpected migration name %q", path)
	}
	if _, err := CreateSQLMigration(dir, "another", at); err == nil {
		t.Fatalf("expected version clash to be refused")
	}
	if _, err := CreateSQLMigration(dir, "!!!", at.Add(time.Second)); err == nil {
		t.Fatalf("expected empty sanitized name to be refused")
	}
	if err := ValidateDir(dir); err != nil {
		t.Fatalf("validate created migration: %v", err)
	}

	if err := os.WriteFile(filepath.Join(dir, "broken.sql"), []byte("SELECT 1;"), 0o644); err != nil {
		t.Fatalf("write broken migration: %v", err)
	}
	if err := ValidateDir(dir); err == nil {
		t.Fatalf("expected invalid filename to fail validation")
	}
}

func TestShouldAutoRun(t *testing.T) {
	cfg := &config.Config{
		App:          config.AppConfig{Env: "dev"},
		Relay:        config.RelayConfig{QueueBackend: "postgres"},
		FeatureFlags: config.FeatureFlagsConfig{AutoMigrate: true},
	}
	if !ShouldAutoRun(cfg) {
		t.Fatalf("expected auto-run in dev with postgres backend")
	}
	cfg.Relay.QueueBackend = "redis"
	if ShouldAutoRun(cfg) {
		t.Fatalf("redis backend has no tables to migrate")
	}
	cfg.Relay.QueueBackend = "postgres"
	cfg.App.Env = "prod"
	if ShouldAutoRun(cfg) {
		t.Fatalf("auto-run must stay off outside dev")
	}
	if ShouldAutoRun(nil) {
		t.Fatalf("nil config must not auto-run")
	}
}
