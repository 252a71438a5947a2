package services

import (
	"context"
	"testing"

	"monthly/internal/storage"
	"monthly/internal/storage/memory"
)

func TestPreferencesService_Theme(t *testing.T) {
	tests := []struct {
		name   string
		stored string
		want   string
	}{
		{"missing", "", DefaultTheme},
		{"known", "midnight", "midnight"},
		{"unknown", "neon", DefaultTheme},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			store := memory.New()
			if tt.stored != "" {
				store.SetRaw(storage.ThemeKey, []byte(tt.stored))
			}
			svc := NewPreferencesService(context.Background(), store, testOptions()...)
			if got := svc.Theme(); got != tt.want {
				t.Errorf("expected %q, got %q", tt.want, got)
			}
		})
	}
}

func TestPreferencesService_ChangeTheme(t *testing.T) {
	store := memory.New()
	ctx := context.Background()
	svc := NewPreferencesService(ctx, store, testOptions()...)

	if svc.ChangeTheme(ctx, "neon") {
		t.Error("unknown theme should be ignored")
	}
	if svc.ChangeTheme(ctx, DefaultTheme) {
		t.Error("current theme should be ignored")
	}
	if store.Saves(storage.ThemeKey) != 0 {
		t.Fatalf("ignored changes should not write")
	}

	if !svc.ChangeTheme(ctx, "mint") {
		t.Fatal("expected theme change")
	}
	v, ok, _ := store.GetPreference(ctx, storage.ThemeKey)
	if !ok || v != "mint" {
		t.Errorf("expected stored mint, got %q ok=%v", v, ok)
	}
	if NewPreferencesService(ctx, store, testOptions()...).Theme() != "mint" {
		t.Error("theme should survive a reload")
	}
}

func TestPreferencesService_LoadFailure(t *testing.T) {
	store := memory.New()
	store.FailLoads(true)
	svc := NewPreferencesService(context.Background(), store, testOptions()...)
	if svc.Theme() != DefaultTheme {
		t.Errorf("expected default theme on load failure, got %q", svc.Theme())
	}
}
