package storage

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"

	"monthly/internal/core"

	_ "modernc.org/sqlite"
)

// SQLiteRepository stores each collection as one serialized value in a
// key/value table, mirroring the whole-collection read/write contract.
type SQLiteRepository struct {
	db *sql.DB
}

var _ Store = (*SQLiteRepository)(nil)

func NewSQLiteRepository(dbPath string) (*SQLiteRepository, error) {
	if err := os.MkdirAll(filepath.Dir(dbPath), 0755); err != nil {
		return nil, fmt.Errorf("create db directory: %w", err)
	}

	db, err := sql.Open("sqlite", dbPath)
	if err != nil {
		return nil, fmt.Errorf("open sqlite database: %w", err)
	}

	if err := db.Ping(); err != nil {
		db.Close()
		return nil, fmt.Errorf("ping database: %w", err)
	}

	if err := RunMigrations(dbPath); err != nil {
		db.Close()
		return nil, fmt.Errorf("run migrations: %w", err)
	}

	return &SQLiteRepository{db: db}, nil
}

func (r *SQLiteRepository) Close() error {
	if r.db != nil {
		return r.db.Close()
	}
	return nil
}

// LoadPayments implements PaymentStore
func (r *SQLiteRepository) LoadPayments(ctx context.Context) ([]core.Payment, error) {
	var payments []core.Payment
	if err := r.loadJSON(ctx, PaymentsKey, &payments); err != nil {
		return nil, fmt.Errorf("load payments: %w", err)
	}
	return payments, nil
}

// SavePayments implements PaymentStore
func (r *SQLiteRepository) SavePayments(ctx context.Context, payments []core.Payment) error {
	if payments == nil {
		payments = []core.Payment{}
	}
	if err := r.saveJSON(ctx, PaymentsKey, payments); err != nil {
		return fmt.Errorf("save payments: %w", err)
	}
	slog.DebugContext(ctx, "Payments saved to SQLite", "count", len(payments))
	return nil
}

// LoadProjects implements ProjectStore
func (r *SQLiteRepository) LoadProjects(ctx context.Context) ([]core.Project, error) {
	var projects []core.Project
	if err := r.loadJSON(ctx, ProjectsKey, &projects); err != nil {
		return nil, fmt.Errorf("load projects: %w", err)
	}
	return projects, nil
}

// SaveProjects implements ProjectStore
func (r *SQLiteRepository) SaveProjects(ctx context.Context, projects []core.Project) error {
	if projects == nil {
		projects = []core.Project{}
	}
	if err := r.saveJSON(ctx, ProjectsKey, projects); err != nil {
		return fmt.Errorf("save projects: %w", err)
	}
	slog.DebugContext(ctx, "Projects saved to SQLite", "count", len(projects))
	return nil
}

// GetPreference implements PreferenceStore
func (r *SQLiteRepository) GetPreference(ctx context.Context, key string) (string, bool, error) {
	value, err := r.get(ctx, key)
	if errors.Is(err, sql.ErrNoRows) {
		return "", false, nil
	}
	if err != nil {
		return "", false, fmt.Errorf("get preference %s: %w", key, err)
	}
	return value, true, nil
}

// SetPreference implements PreferenceStore
func (r *SQLiteRepository) SetPreference(ctx context.Context, key, value string) error {
	if err := r.put(ctx, key, value); err != nil {
		return fmt.Errorf("set preference %s: %w", key, err)
	}
	return nil
}

func (r *SQLiteRepository) loadJSON(ctx context.Context, key string, dst any) error {
	value, err := r.get(ctx, key)
	if errors.Is(err, sql.ErrNoRows) {
		return nil
	}
	if err != nil {
		return err
	}
	if err := json.Unmarshal([]byte(value), dst); err != nil {
		return fmt.Errorf("decode %s: %w", key, err)
	}
	return nil
}

func (r *SQLiteRepository) saveJSON(ctx context.Context, key string, v any) error {
	body, err := json.Marshal(v)
	if err != nil {
		return fmt.Errorf("encode %s: %w", key, err)
	}
	return r.put(ctx, key, string(body))
}

func (r *SQLiteRepository) get(ctx context.Context, key string) (string, error) {
	var value string
	err := r.db.QueryRowContext(ctx, `SELECT value FROM kv_store WHERE key = ?`, key).Scan(&value)
	return value, err
}

func (r *SQLiteRepository) put(ctx context.Context, key, value string) error {
	_, err := r.db.ExecContext(ctx, `
		INSERT INTO kv_store (key, value, updated_at)
		VALUES (?, ?, CURRENT_TIMESTAMP)
		ON CONFLICT(key) DO UPDATE SET value = excluded.value, updated_at = excluded.updated_at`,
		key, value)
	return err
}
