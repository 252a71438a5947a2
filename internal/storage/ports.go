package storage

import (
	"context"

	"monthly/internal/core"
)

// Keys under which each collection and preference is stored.
const (
	PaymentsKey        = "little-monthly-payments"
	ProjectsKey        = "little-monthly-projects"
	ThemeKey           = "little-monthly-payments-theme"
	GroupingEnabledKey = "payments-grouping-enabled"
)

// Ports for the persistence collaborators. Every Save overwrites the whole
// collection; a missing collection loads as empty without error.
type (
	PaymentStore interface {
		LoadPayments(ctx context.Context) ([]core.Payment, error)
		SavePayments(ctx context.Context, payments []core.Payment) error
	}

	ProjectStore interface {
		LoadProjects(ctx context.Context) ([]core.Project, error)
		SaveProjects(ctx context.Context, projects []core.Project) error
	}

	// PreferenceStore keeps single scalar values keyed independently.
	PreferenceStore interface {
		GetPreference(ctx context.Context, key string) (value string, ok bool, err error)
		SetPreference(ctx context.Context, key, value string) error
	}

	Store interface {
		PaymentStore
		ProjectStore
		PreferenceStore
		Close() error
	}
)
