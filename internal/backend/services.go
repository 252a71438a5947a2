package backend

import (
	"context"

	"monthly/internal/services"
	"monthly/internal/storage"
)

// Services bundles the managers that share one store.
type Services struct {
	Payments    *services.PaymentService
	Projects    *services.ProjectService
	Preferences *services.PreferencesService
}

// NewServices loads every collection from store. Projects roll items up into
// the payment service built here.
func NewServices(ctx context.Context, store storage.Store, opts ...services.Option) *Services {
	payments := services.NewPaymentService(ctx, store, store, opts...)
	return &Services{
		Payments:    payments,
		Projects:    services.NewProjectService(ctx, store, payments, opts...),
		Preferences: services.NewPreferencesService(ctx, store, opts...),
	}
}
