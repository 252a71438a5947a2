package storage

import (
	"context"
	"path/filepath"
	"testing"
	"time"

	"monthly/internal/core"
)

func newTestRepo(t *testing.T) *SQLiteRepository {
	t.Helper()
	repo, err := NewSQLiteRepository(filepath.Join(t.TempDir(), "data", "monthly.db"))
	if err != nil {
		t.Fatalf("new repository: %v", err)
	}
	t.Cleanup(func() { repo.Close() })
	return repo
}

func TestSQLiteRepositoryEmptyCollections(t *testing.T) {
	repo := newTestRepo(t)
	ctx := context.Background()

	payments, err := repo.LoadPayments(ctx)
	if err != nil || len(payments) != 0 {
		t.Fatalf("expected empty payments, got %v (err=%v)", payments, err)
	}
	projects, err := repo.LoadProjects(ctx)
	if err != nil || len(projects) != 0 {
		t.Fatalf("expected empty projects, got %v (err=%v)", projects, err)
	}
	if _, ok, err := repo.GetPreference(ctx, ThemeKey); ok || err != nil {
		t.Fatalf("expected missing preference, ok=%v err=%v", ok, err)
	}
}

func TestSQLiteRepositoryPaymentsRoundTrip(t *testing.T) {
	repo := newTestRepo(t)
	ctx := context.Background()
	end := core.NewDate(2025, 6, 30)
	created := time.Date(2024, 1, 2, 3, 4, 5, 0, time.UTC)

	in := []core.Payment{
		{ID: "a", Name: "Rent", Amount: core.Money{Cents: 95000}, DueDate: core.NewDate(2024, 1, 31),
			Type: core.Recurring, RecurringDuration: core.DurationCustom, CustomEndDate: &end,
			CreatedAt: created, Group: "Household"},
		{ID: "b", Name: "Shoes", Amount: core.Money{Cents: 4999}, DueDate: core.NewDate(2024, 2, 1),
			Type: core.OneOff, Note: "sale", IsCompleted: true, CreatedAt: created, Group: "Shopping"},
	}
	if err := repo.SavePayments(ctx, in); err != nil {
		t.Fatalf("save: %v", err)
	}
	out, err := repo.LoadPayments(ctx)
	if err != nil {
		t.Fatalf("load: %v", err)
	}
	if len(out) != 2 || out[0].ID != "a" || out[1].ID != "b" {
		t.Fatalf("unexpected order or length: %+v", out)
	}
	if out[0].CustomEndDate == nil || out[0].CustomEndDate.String() != "2025-06-30" {
		t.Fatalf("custom end date lost: %+v", out[0])
	}
	if out[1].Amount.Cents != 4999 || !out[1].IsCompleted || out[1].Note != "sale" {
		t.Fatalf("unexpected second payment: %+v", out[1])
	}

	// Overwrite replaces the whole collection.
	if err := repo.SavePayments(ctx, in[:1]); err != nil {
		t.Fatalf("save: %v", err)
	}
	out, _ = repo.LoadPayments(ctx)
	if len(out) != 1 {
		t.Fatalf("expected overwrite to leave 1 payment, got %d", len(out))
	}
}

func TestSQLiteRepositoryProjectsAndPreferences(t *testing.T) {
	repo := newTestRepo(t)
	ctx := context.Background()

	projects := []core.Project{{
		ID: "p1", Name: "Kitchen", TotalAmount: core.Money{Cents: 300},
		Items: []core.ProjectItem{{ID: "i1", Name: "Paint", Amount: core.Money{Cents: 300}, IsSelected: true}},
	}}
	if err := repo.SaveProjects(ctx, projects); err != nil {
		t.Fatalf("save projects: %v", err)
	}
	got, err := repo.LoadProjects(ctx)
	if err != nil || len(got) != 1 || len(got[0].Items) != 1 || !got[0].Items[0].IsSelected {
		t.Fatalf("unexpected projects %+v (err=%v)", got, err)
	}

	if err := repo.SetPreference(ctx, GroupingEnabledKey, "false"); err != nil {
		t.Fatalf("set: %v", err)
	}
	if err := repo.SetPreference(ctx, GroupingEnabledKey, "true"); err != nil {
		t.Fatalf("set again: %v", err)
	}
	v, ok, err := repo.GetPreference(ctx, GroupingEnabledKey)
	if err != nil || !ok || v != "true" {
		t.Fatalf("unexpected preference %q ok=%v err=%v", v, ok, err)
	}
}

func TestSQLiteRepositoryCorruptValue(t *testing.T) {
	repo := newTestRepo(t)
	ctx := context.Background()
	if err := repo.SetPreference(ctx, PaymentsKey, "{not json"); err != nil {
		t.Fatalf("seed: %v", err)
	}
	if _, err := repo.LoadPayments(ctx); err == nil {
		t.Fatalf("expected decode error for corrupt collection")
	}
}

func TestSQLiteRepositoryReopen(t *testing.T) {
	path := filepath.Join(t.TempDir(), "monthly.db")
	repo, err := NewSQLiteRepository(path)
	if err != nil {
		t.Fatalf("open: %v", err)
	}
	ctx := context.Background()
	if err := repo.SetPreference(ctx, ThemeKey, "dark"); err != nil {
		t.Fatalf("set: %v", err)
	}
	repo.Close()

	repo, err = NewSQLiteRepository(path)
	if err != nil {
		t.Fatalf("reopen: %v", err)
	}
	defer repo.Close()
	v, ok, err := repo.GetPreference(ctx, ThemeKey)
	if err != nil || !ok || v != "dark" {
		t.Fatalf("preference not persisted: %q ok=%v err=%v", v, ok, err)
	}
}
