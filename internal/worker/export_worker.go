package worker

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strconv"
	"sync"
	"time"

	"golang.org/x/sync/errgroup"

	"monthly/internal/amqp"
	"monthly/internal/core"
	"monthly/internal/services"
	"monthly/internal/sheets"
	"monthly/internal/storage"
)

// ChangeSource delivers collection change events.
type ChangeSource interface {
	ConsumeCollectionChanged(ctx context.Context, handler func(context.Context, *amqp.CollectionChangedMessage) error) error
}

// Source is the read side of the store the worker exports from.
type Source interface {
	storage.PaymentStore
	storage.PreferenceStore
}

// ExportWorker mirrors the grouped payment view into a GroupExporter.
type ExportWorker struct {
	source   Source
	exporter sheets.GroupExporter
	interval time.Duration
	now      func() time.Time

	// serializes exports so consumer and ticker never interleave writes
	mu         sync.Mutex
	lastExport time.Time
}

func NewExportWorker(source Source, exporter sheets.GroupExporter, interval time.Duration) *ExportWorker {
	return &ExportWorker{
		source:   source,
		exporter: exporter,
		interval: interval,
		now:      time.Now,
	}
}

// HandleChange exports after the payments or the grouping preference
// changed. Other collections are acknowledged without work.
func (w *ExportWorker) HandleChange(ctx context.Context, msg *amqp.CollectionChangedMessage) error {
	switch msg.Collection {
	case storage.PaymentsKey, storage.GroupingEnabledKey:
	default:
		slog.DebugContext(ctx, "Ignoring change event", "collection", msg.Collection)
		return nil
	}

	slog.InfoContext(ctx, "Processing change event",
		"collection", msg.Collection,
		"count", msg.Count,
		"published_at", msg.Timestamp)

	if err := w.Export(ctx); err != nil {
		return fmt.Errorf("export after %s change: %w", msg.Collection, err)
	}
	return nil
}

// Export reads the current collection and pushes the grouped view.
func (w *ExportWorker) Export(ctx context.Context) error {
	w.mu.Lock()
	defer w.mu.Unlock()

	snap, err := w.snapshot(ctx)
	if err != nil {
		return err
	}
	if err := w.exporter.Export(ctx, snap); err != nil {
		return fmt.Errorf("export snapshot: %w", err)
	}
	w.lastExport = snap.GeneratedAt

	slog.InfoContext(ctx, "Exported payment groups",
		"groups", len(snap.Groups),
		"total_remaining", snap.TotalRemaining.String())
	return nil
}

// LastExport returns when the last successful export was generated.
func (w *ExportWorker) LastExport() time.Time {
	w.mu.Lock()
	defer w.mu.Unlock()
	return w.lastExport
}

func (w *ExportWorker) snapshot(ctx context.Context) (sheets.Snapshot, error) {
	payments, err := w.source.LoadPayments(ctx)
	if err != nil {
		return sheets.Snapshot{}, fmt.Errorf("load payments: %w", err)
	}
	for i := range payments {
		payments[i].Normalize()
	}

	grouping := true
	raw, ok, err := w.source.GetPreference(ctx, storage.GroupingEnabledKey)
	if err != nil {
		return sheets.Snapshot{}, fmt.Errorf("load grouping preference: %w", err)
	}
	if ok {
		if v, perr := strconv.ParseBool(raw); perr == nil {
			grouping = v
		}
	}

	groups := services.GroupPayments(payments, grouping, nil)
	var total core.Money
	for _, g := range groups {
		total = total.Add(g.Total)
	}
	return sheets.Snapshot{
		Groups:         groups,
		TotalRemaining: total,
		GeneratedAt:    w.now().UTC(),
	}, nil
}

// Run exports once, then keeps exporting on every change event from src
// and on every tick of the interval until ctx is done. src may be nil.
func (w *ExportWorker) Run(ctx context.Context, src ChangeSource) error {
	if err := w.Export(ctx); err != nil {
		slog.ErrorContext(ctx, "Startup export failed", "error", err)
	}

	g, gctx := errgroup.WithContext(ctx)

	if src != nil {
		g.Go(func() error {
			return src.ConsumeCollectionChanged(gctx, w.HandleChange)
		})
	}

	if w.interval > 0 {
		g.Go(func() error {
			ticker := time.NewTicker(w.interval)
			defer ticker.Stop()
			for {
				select {
				case <-gctx.Done():
					return gctx.Err()
				case <-ticker.C:
					if err := w.Export(gctx); err != nil {
						slog.ErrorContext(gctx, "Periodic export failed", "error", err)
					}
				}
			}
		})
	}

	err := g.Wait()
	if errors.Is(err, context.Canceled) || errors.Is(err, context.DeadlineExceeded) {
		return nil
	}
	return err
}
