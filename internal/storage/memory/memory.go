package memory

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"sync"

	"monthly/internal/core"
	"monthly/internal/storage"
)

// ErrUnavailable is returned while the store is switched into failure mode.
var ErrUnavailable = errors.New("memory store unavailable")

// Store keeps serialized values in a map so that callers go through the same
// encode/decode path as the SQLite repository.
type Store struct {
	mu     sync.Mutex
	values map[string][]byte
	saves  map[string]int

	failLoads bool
	failSaves bool
}

var _ storage.Store = (*Store)(nil)

func New() *Store {
	return &Store{
		values: make(map[string][]byte),
		saves:  make(map[string]int),
	}
}

// NewFromFiles seeds the store from base/seed_payments.json and
// base/seed_projects.json when present.
func NewFromFiles(base string) *Store {
	s := New()
	for key, name := range map[string]string{
		storage.PaymentsKey: "seed_payments.json",
		storage.ProjectsKey: "seed_projects.json",
	} {
		data, err := os.ReadFile(filepath.Join(base, name))
		if err != nil || !json.Valid(data) {
			continue
		}
		s.values[key] = data
	}
	return s
}

// FailLoads makes every subsequent read return ErrUnavailable.
func (s *Store) FailLoads(fail bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.failLoads = fail
}

// FailSaves makes every subsequent write return ErrUnavailable.
func (s *Store) FailSaves(fail bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.failSaves = fail
}

// Saves returns how many successful writes were made under key.
func (s *Store) Saves(key string) int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.saves[key]
}

// SetRaw stores value under key verbatim.
func (s *Store) SetRaw(key string, value []byte) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.values[key] = append([]byte(nil), value...)
}

func (s *Store) LoadPayments(_ context.Context) ([]core.Payment, error) {
	var payments []core.Payment
	if err := s.load(storage.PaymentsKey, &payments); err != nil {
		return nil, fmt.Errorf("load payments: %w", err)
	}
	return payments, nil
}

func (s *Store) SavePayments(_ context.Context, payments []core.Payment) error {
	if payments == nil {
		payments = []core.Payment{}
	}
	if err := s.save(storage.PaymentsKey, payments); err != nil {
		return fmt.Errorf("save payments: %w", err)
	}
	return nil
}

func (s *Store) LoadProjects(_ context.Context) ([]core.Project, error) {
	var projects []core.Project
	if err := s.load(storage.ProjectsKey, &projects); err != nil {
		return nil, fmt.Errorf("load projects: %w", err)
	}
	return projects, nil
}

func (s *Store) SaveProjects(_ context.Context, projects []core.Project) error {
	if projects == nil {
		projects = []core.Project{}
	}
	if err := s.save(storage.ProjectsKey, projects); err != nil {
		return fmt.Errorf("save projects: %w", err)
	}
	return nil
}

func (s *Store) GetPreference(_ context.Context, key string) (string, bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.failLoads {
		return "", false, ErrUnavailable
	}
	v, ok := s.values[key]
	return string(v), ok, nil
}

func (s *Store) SetPreference(_ context.Context, key, value string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.failSaves {
		return ErrUnavailable
	}
	s.values[key] = []byte(value)
	s.saves[key]++
	return nil
}

func (s *Store) Close() error { return nil }

func (s *Store) load(key string, dst any) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.failLoads {
		return ErrUnavailable
	}
	data, ok := s.values[key]
	if !ok {
		return nil
	}
	return json.Unmarshal(data, dst)
}

func (s *Store) save(key string, v any) error {
	data, err := json.Marshal(v)
	if err != nil {
		return err
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.failSaves {
		return ErrUnavailable
	}
	s.values[key] = data
	s.saves[key]++
	return nil
}
