package backend

import (
	"context"
	"io"
	"log/slog"
	"path/filepath"
	"strings"
	"testing"

	"monthly/internal/config"
	"monthly/internal/core"
	"monthly/internal/services"
	"monthly/internal/storage"
)

func testLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

func TestBackendType_IsValid(t *testing.T) {
	tests := []struct {
		bt   BackendType
		want bool
	}{
		{SQLiteBackend, true},
		{MemoryBackend, true},
		{"sheets", false},
		{"", false},
	}
	for _, tt := range tests {
		if got := tt.bt.IsValid(); got != tt.want {
			t.Errorf("BackendType(%q).IsValid() = %v, want %v", tt.bt, got, tt.want)
		}
	}
	if got := GetBackendTypeStrings(); len(got) != 2 || got[0] != "sqlite" || got[1] != "memory" {
		t.Errorf("unexpected backend types %v", got)
	}
}

func TestConfig_Validate(t *testing.T) {
	tests := []struct {
		name    string
		cfg     Config
		wantErr string
	}{
		{name: "memory", cfg: Config{Type: MemoryBackend}},
		{name: "sqlite", cfg: Config{Type: SQLiteBackend, SQLiteDBPath: "x.db"}},
		{name: "invalid type", cfg: Config{Type: "nope"}, wantErr: "invalid backend type"},
		{name: "sqlite without path", cfg: Config{Type: SQLiteBackend}, wantErr: "SQLite database path is required"},
		{name: "amqp without queue", cfg: Config{Type: MemoryBackend, AMQPURL: "amqp://x", AMQPExchange: "e"}, wantErr: "AMQP exchange and queue"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := tt.cfg.Validate()
			if tt.wantErr == "" {
				if err != nil {
					t.Fatalf("unexpected error: %v", err)
				}
				return
			}
			if err == nil || !strings.Contains(err.Error(), tt.wantErr) {
				t.Fatalf("expected error containing %q, got %v", tt.wantErr, err)
			}
		})
	}
}

func TestFromAppConfig(t *testing.T) {
	if _, err := FromAppConfig(nil); err == nil {
		t.Fatal("expected error for nil config")
	}
	if _, err := FromAppConfig(&config.Config{DataBackend: "sheets"}); err == nil {
		t.Fatal("expected error for unknown backend")
	}

	cfg, err := FromAppConfig(&config.Config{
		DataBackend:   "sqlite",
		SQLiteDBPath:  "/tmp/monthly.db",
		DataDirectory: "seed",
		AMQPURL:       "amqp://localhost/",
		AMQPExchange:  "monthly",
		AMQPQueue:     "changes",
	})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if cfg.Type != SQLiteBackend || cfg.SQLiteDBPath != "/tmp/monthly.db" || cfg.DataDirectory != "seed" {
		t.Errorf("unexpected config %+v", cfg)
	}
	if cfg.AMQPExchange != "monthly" || cfg.AMQPQueue != "changes" {
		t.Errorf("unexpected amqp settings %+v", cfg)
	}
}

func TestSheetsConfig(t *testing.T) {
	got := SheetsConfig(&config.Config{
		GoogleSpreadsheetID:   "sheet",
		GoogleSheetName:       "Payments",
		GoogleOAuthClientFile: "client.json",
		GoogleOAuthTokenFile:  "token.json",
	})
	if got.SpreadsheetID != "sheet" || got.SheetName != "Payments" {
		t.Errorf("unexpected sheet selection %+v", got)
	}
	if got.OAuthClientFile != "client.json" || got.OAuthTokenFile != "token.json" {
		t.Errorf("unexpected credentials %+v", got)
	}
}

func TestCreateBackend_Memory(t *testing.T) {
	ctx := context.Background()
	f := NewFactory(testLogger())

	res, err := f.CreateBackend(ctx, Config{Type: MemoryBackend, DataDirectory: t.TempDir()})
	if err != nil {
		t.Fatalf("create backend: %v", err)
	}
	defer res.Cleanup()

	if res.Notifying {
		t.Error("memory backend without AMQP should not notify")
	}
	if err := res.Store.SetPreference(ctx, storage.ThemeKey, "dark"); err != nil {
		t.Fatalf("set preference: %v", err)
	}
	v, ok, err := res.Store.GetPreference(ctx, storage.ThemeKey)
	if err != nil || !ok || v != "dark" {
		t.Fatalf("expected dark theme, got %q ok=%v err=%v", v, ok, err)
	}
}

func TestCreateBackend_SQLitePersistsAcrossServices(t *testing.T) {
	ctx := context.Background()
	f := NewFactory(testLogger())
	cfg := Config{Type: SQLiteBackend, SQLiteDBPath: filepath.Join(t.TempDir(), "monthly.db")}

	res, err := f.CreateBackend(ctx, cfg)
	if err != nil {
		t.Fatalf("create backend: %v", err)
	}
	svc := NewServices(ctx, res.Store, services.WithLogger(testLogger()))
	svc.Payments.Add(ctx, services.PaymentInput{
		Name:    "Rent",
		Amount:  core.Money{Cents: 95000},
		DueDate: core.NewDate(2024, 3, 1),
		Type:    core.Recurring,
	})
	svc.Preferences.ChangeTheme(ctx, "mint")
	if err := res.Cleanup(); err != nil {
		t.Fatalf("cleanup: %v", err)
	}

	res, err = f.CreateBackend(ctx, cfg)
	if err != nil {
		t.Fatalf("reopen backend: %v", err)
	}
	defer res.Cleanup()

	svc = NewServices(ctx, res.Store, services.WithLogger(testLogger()))
	payments := svc.Payments.Payments()
	if len(payments) != 1 || payments[0].Name != "Rent" || payments[0].Group != core.DefaultGroup {
		t.Fatalf("unexpected payments after reopen: %+v", payments)
	}
	if svc.Preferences.Theme() != "mint" {
		t.Errorf("expected mint theme, got %q", svc.Preferences.Theme())
	}
}

func TestCreateBackend_InvalidConfig(t *testing.T) {
	f := NewFactory(nil)
	if _, err := f.CreateBackend(context.Background(), Config{Type: "nope"}); err == nil {
		t.Fatal("expected error for invalid backend type")
	}
}
