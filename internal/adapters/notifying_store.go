package adapters

import (
	"context"
	"log/slog"

	"monthly/internal/core"
	"monthly/internal/storage"
)

// Publisher announces that a stored collection was rewritten.
type Publisher interface {
	PublishCollectionChanged(ctx context.Context, collection string, count int) error
}

// NotifyingStore wraps a Store and publishes a change event after every
// successful write. Publish failures are logged; the write still counts.
type NotifyingStore struct {
	storage.Store
	publisher Publisher
	logger    *slog.Logger
}

var _ storage.Store = (*NotifyingStore)(nil)

func NewNotifyingStore(store storage.Store, publisher Publisher, logger *slog.Logger) *NotifyingStore {
	if logger == nil {
		logger = slog.Default()
	}
	return &NotifyingStore{Store: store, publisher: publisher, logger: logger}
}

func (s *NotifyingStore) SavePayments(ctx context.Context, payments []core.Payment) error {
	if err := s.Store.SavePayments(ctx, payments); err != nil {
		return err
	}
	s.publish(ctx, storage.PaymentsKey, len(payments))
	return nil
}

func (s *NotifyingStore) SaveProjects(ctx context.Context, projects []core.Project) error {
	if err := s.Store.SaveProjects(ctx, projects); err != nil {
		return err
	}
	s.publish(ctx, storage.ProjectsKey, len(projects))
	return nil
}

func (s *NotifyingStore) SetPreference(ctx context.Context, key, value string) error {
	if err := s.Store.SetPreference(ctx, key, value); err != nil {
		return err
	}
	s.publish(ctx, key, 1)
	return nil
}

func (s *NotifyingStore) publish(ctx context.Context, collection string, count int) {
	if err := s.publisher.PublishCollectionChanged(ctx, collection, count); err != nil {
		s.logger.WarnContext(ctx, "Failed to publish change event",
			"collection", collection,
			"error", err)
	}
}
