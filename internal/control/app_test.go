package control

import (
	"context"
	"testing"
	"time"

	"github.com/idcvault/idcvault/internal/core/config"
	redisclient "github.com/idcvault/idcvault/internal/infra/redis"
	"github.com/idcvault/idcvault/internal/infra/storage/memory"
)

func testConfig() *config.AppConfig {
	cfg := &config.AppConfig{}
	cfg.AWS.Region = "us-east-1"
	cfg.AWS.IdentityStoreID = "d-123"
	cfg.AWS.InstanceArn = "arn:sso"
	cfg.Server.Port = 0
	cfg.Operation.RetentionPeriod = time.Minute
	return cfg
}

func TestNewApp_MemoryFallbacks(t *testing.T) {
	// No database or redis URL configured: both fall back to memory.
	app, err := NewApp(context.Background(), testConfig())
	if err != nil {
		t.Fatalf("NewApp failed: %v", err)
	}
	defer app.Stop(context.Background())

	if _, ok := app.store.(*memory.Store); !ok {
		t.Errorf("store = %T, want *memory.Store", app.store)
	}
	if _, ok := app.reports.(*redisclient.MemoryReportStore); !ok {
		t.Errorf("reports = %T, want *redisclient.MemoryReportStore", app.reports)
	}
	if app.registry == nil || app.server == nil {
		t.Error("registry and server must be wired")
	}
}

func TestNewApp_RequiresIdentityCenterSettings(t *testing.T) {
	cfg := testConfig()
	cfg.AWS.IdentityStoreID = ""
	if _, err := NewApp(context.Background(), cfg); err == nil {
		t.Fatal("expected config validation error")
	}
}

func TestApp_Options(t *testing.T) {
	cfg := testConfig()
	cfg.Operation.DisableRollback = true
	cfg.Retry.MaxRetries = 5

	app, err := NewApp(context.Background(), cfg)
	if err != nil {
		t.Fatalf("NewApp failed: %v", err)
	}
	defer app.Stop(context.Background())

	opts := app.options()
	if opts.RollbackOnFailure {
		t.Error("disable_rollback not honored")
	}
	if opts.Policy.MaxRetries != 5 {
		t.Errorf("MaxRetries = %d", opts.Policy.MaxRetries)
	}
	if opts.ReportTTL != time.Minute {
		t.Errorf("ReportTTL = %v", opts.ReportTTL)
	}
}
