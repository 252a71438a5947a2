package sheets

import (
	"context"
	"time"

	"monthly/internal/core"
)

// Snapshot is the grouped payment view handed to an exporter.
type Snapshot struct {
	Groups         []core.PaymentGroup
	TotalRemaining core.Money
	GeneratedAt    time.Time
}

// Ports for outbound adapters.
type (
	// GroupExporter replaces the exported view with the given snapshot.
	GroupExporter interface {
		Export(ctx context.Context, snap Snapshot) error
	}
)
