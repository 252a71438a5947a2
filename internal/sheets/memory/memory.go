package memory

import (
	"context"
	"sync"

	"monthly/internal/sheets"
)

// Exporter records every snapshot it receives.
type Exporter struct {
	mu    sync.Mutex
	snaps []sheets.Snapshot
	err   error
}

var _ sheets.GroupExporter = (*Exporter)(nil)

func New() *Exporter {
	return &Exporter{}
}

// FailWith makes subsequent exports return err; nil restores success.
func (e *Exporter) FailWith(err error) {
	e.mu.Lock()
	defer e.mu.Unlock()
	e.err = err
}

func (e *Exporter) Export(_ context.Context, snap sheets.Snapshot) error {
	e.mu.Lock()
	defer e.mu.Unlock()
	if e.err != nil {
		return e.err
	}
	e.snaps = append(e.snaps, snap)
	return nil
}

// Snapshots returns the recorded exports in order.
func (e *Exporter) Snapshots() []sheets.Snapshot {
	e.mu.Lock()
	defer e.mu.Unlock()
	out := make([]sheets.Snapshot, len(e.snaps))
	copy(out, e.snaps)
	return out
}

// Last returns the most recent export.
func (e *Exporter) Last() (sheets.Snapshot, bool) {
	e.mu.Lock()
	defer e.mu.Unlock()
	if len(e.snaps) == 0 {
		return sheets.Snapshot{}, false
	}
	return e.snaps[len(e.snaps)-1], true
}
