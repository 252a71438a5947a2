package services

import (
	"context"
	"log/slog"
	"slices"
	"strconv"
	"sync"

	"monthly/internal/core"
	"monthly/internal/storage"
)

// InitialExpandedGroups are expanded until the user collapses them.
var InitialExpandedGroups = []string{"Household", "Subscriptions", "Shopping"}

// DefaultGroups are always offered when picking a group for a payment.
var DefaultGroups = []string{"Household", "Subscriptions", "Shopping", "Transport", "Entertainment", "Health"}

// PaymentInput carries the caller-supplied fields of a new payment.
type PaymentInput struct {
	Name              string
	Amount            core.Money
	DueDate           core.Date
	Type              core.PaymentType
	RecurringDuration string
	CustomEndDate     *core.Date
	Note              string
	Group             string
}

// PaymentPatch lists the fields to overwrite; nil fields are left alone.
// A zero CustomEndDate clears the stored end date.
type PaymentPatch struct {
	Name              *string
	Amount            *core.Money
	DueDate           *core.Date
	Type              *core.PaymentType
	RecurringDuration *string
	CustomEndDate     *core.Date
	Note              *string
	IsCompleted       *bool
	Group             *string
}

// PaymentService owns the ordered payment collection. Every mutation is
// written through to the store; store failures are logged and the in-memory
// state stays authoritative.
type PaymentService struct {
	mu sync.Mutex

	store  storage.PaymentStore
	prefs  storage.PreferenceStore
	clock  Clock
	newID  func() string
	logger *slog.Logger

	payments        []core.Payment
	expanded        map[string]bool
	groupingEnabled bool
}

// NewPaymentService loads the stored collection, migrating payments stored
// without a group, and the grouping preference.
func NewPaymentService(ctx context.Context, store storage.PaymentStore, prefs storage.PreferenceStore, opts ...Option) *PaymentService {
	o := buildOptions(opts)
	s := &PaymentService{
		store:           store,
		prefs:           prefs,
		clock:           o.clock,
		newID:           o.newID,
		logger:          o.logger,
		expanded:        make(map[string]bool),
		groupingEnabled: true,
	}
	for _, name := range InitialExpandedGroups {
		s.expanded[name] = true
	}

	s.load(ctx)
	return s
}

func (s *PaymentService) load(ctx context.Context) {
	stored, err := s.store.LoadPayments(ctx)
	if err != nil {
		s.logger.ErrorContext(ctx, "Failed to load payments, starting empty", "error", err)
		stored = nil
	}

	migrated := false
	for i := range stored {
		if stored[i].Normalize() {
			migrated = true
		}
	}
	s.payments = stored
	if migrated {
		s.logger.InfoContext(ctx, "Migrated payments without group", "default_group", core.DefaultGroup)
		s.persist(ctx)
	}

	if s.prefs == nil {
		return
	}
	raw, ok, err := s.prefs.GetPreference(ctx, storage.GroupingEnabledKey)
	if err != nil {
		s.logger.ErrorContext(ctx, "Failed to load grouping preference", "error", err)
		return
	}
	if !ok {
		return
	}
	enabled, err := strconv.ParseBool(raw)
	if err != nil {
		s.logger.WarnContext(ctx, "Ignoring malformed grouping preference", "value", raw)
		return
	}
	s.groupingEnabled = enabled
}

// Add appends a new active payment and returns it.
func (s *PaymentService) Add(ctx context.Context, in PaymentInput) core.Payment {
	p := core.Payment{
		ID:                s.newID(),
		Name:              in.Name,
		Amount:            in.Amount,
		DueDate:           in.DueDate,
		Type:              in.Type,
		RecurringDuration: in.RecurringDuration,
		CustomEndDate:     cloneDate(in.CustomEndDate),
		Note:              in.Note,
		IsCompleted:       false,
		CreatedAt:         s.clock.Now().UTC(),
		Group:             in.Group,
	}
	p.Normalize()

	s.mu.Lock()
	defer s.mu.Unlock()
	s.payments = append(s.payments, p)
	s.persist(ctx)

	s.logger.InfoContext(ctx, "Payment added",
		"id", p.ID,
		"group", p.Group,
		"type", p.Type,
		"amount_cents", p.Amount.Cents)
	return clonePayment(p)
}

// Update merges patch into the payment with the given id. It reports false
// and writes nothing when the id is unknown.
func (s *PaymentService) Update(ctx context.Context, id string, patch PaymentPatch) bool {
	return s.mutate(ctx, id, func(p *core.Payment) {
		if patch.Name != nil {
			p.Name = *patch.Name
		}
		if patch.Amount != nil {
			p.Amount = *patch.Amount
		}
		if patch.DueDate != nil {
			p.DueDate = *patch.DueDate
		}
		if patch.Type != nil {
			p.Type = *patch.Type
		}
		if patch.RecurringDuration != nil {
			p.RecurringDuration = *patch.RecurringDuration
		}
		if patch.CustomEndDate != nil {
			if patch.CustomEndDate.IsZero() {
				p.CustomEndDate = nil
			} else {
				p.CustomEndDate = cloneDate(patch.CustomEndDate)
			}
		}
		if patch.Note != nil {
			p.Note = *patch.Note
		}
		if patch.IsCompleted != nil {
			p.IsCompleted = *patch.IsCompleted
		}
		if patch.Group != nil {
			p.Group = core.NormalizeGroup(*patch.Group)
		}
	})
}

// Delete removes the payment with the given id.
func (s *PaymentService) Delete(ctx context.Context, id string) bool {
	s.mu.Lock()
	defer s.mu.Unlock()

	idx := s.indexOf(id)
	if idx < 0 {
		s.logger.DebugContext(ctx, "Delete ignored for unknown payment", "id", id)
		return false
	}
	s.payments = slices.Delete(s.payments, idx, idx+1)
	s.persist(ctx)
	return true
}

// ToggleComplete flips the completion flag of the payment with the given id.
func (s *PaymentService) ToggleComplete(ctx context.Context, id string) bool {
	return s.mutate(ctx, id, func(p *core.Payment) {
		p.IsCompleted = !p.IsCompleted
	})
}

// ResetForNextMonth rolls every recurring payment forward by one month and
// marks it active again. One-off payments are left untouched. It returns the
// number of payments rolled over.
func (s *PaymentService) ResetForNextMonth(ctx context.Context) int {
	s.mu.Lock()
	defer s.mu.Unlock()

	rolled := 0
	for i := range s.payments {
		p := &s.payments[i]
		if p.Type != core.Recurring {
			continue
		}
		p.IsCompleted = false
		p.DueDate = core.AddMonths(p.DueDate, 1)
		rolled++
	}
	s.persist(ctx)

	s.logger.InfoContext(ctx, "Recurring payments rolled over", "rolled", rolled, "total", len(s.payments))
	return rolled
}

// Reorder moves the active payment at index from to index to within the
// active members of groupName, or within all active payments when grouping
// is disabled. The collection is rebuilt as the reordered members, then the
// other active payments, then the completed ones, each keeping their
// relative order. An out-of-range from is ignored; to is clamped.
func (s *PaymentService) Reorder(ctx context.Context, groupName string, from, to int) bool {
	s.mu.Lock()
	defer s.mu.Unlock()

	var members, others, completed []core.Payment
	for _, p := range s.payments {
		switch {
		case p.IsCompleted:
			completed = append(completed, p)
		case !s.groupingEnabled || p.Group == groupName:
			members = append(members, p)
		default:
			others = append(others, p)
		}
	}

	if from < 0 || from >= len(members) {
		s.logger.DebugContext(ctx, "Reorder ignored, index out of range",
			"group", groupName, "from", from, "size", len(members))
		return false
	}

	moved := members[from]
	members = slices.Delete(members, from, from+1)
	to = max(0, min(to, len(members)))
	members = slices.Insert(members, to, moved)

	reordered := make([]core.Payment, 0, len(s.payments))
	reordered = append(reordered, members...)
	reordered = append(reordered, others...)
	reordered = append(reordered, completed...)
	s.payments = reordered
	s.persist(ctx)
	return true
}

// TotalRemaining sums the amounts of all active payments.
func (s *PaymentService) TotalRemaining() core.Money {
	s.mu.Lock()
	defer s.mu.Unlock()
	return core.SumPayments(activePayments(s.payments))
}

// PaymentGroups derives the display groups from the active payments.
func (s *PaymentService) PaymentGroups() []core.PaymentGroup {
	s.mu.Lock()
	defer s.mu.Unlock()
	return GroupPayments(s.payments, s.groupingEnabled, s.expanded)
}

// FilteredGroups narrows PaymentGroups to payments of one type, dropping
// groups left empty. Totals cover the remaining members only.
func (s *PaymentService) FilteredGroups(filter core.PaymentFilter) []core.PaymentGroup {
	groups := s.PaymentGroups()
	out := make([]core.PaymentGroup, 0, len(groups))
	for _, g := range groups {
		var kept []core.Payment
		for _, p := range g.Payments {
			if filter.Matches(p) {
				kept = append(kept, p)
			}
		}
		if len(kept) == 0 {
			continue
		}
		g.Payments = kept
		g.Total = core.SumPayments(kept)
		out = append(out, g)
	}
	return out
}

// Counts returns the number of active payments per type.
func (s *PaymentService) Counts() core.TypeCounts {
	s.mu.Lock()
	defer s.mu.Unlock()

	var c core.TypeCounts
	for _, p := range activePayments(s.payments) {
		c.All++
		switch p.Type {
		case core.Recurring:
			c.Recurring++
		case core.OneOff:
			c.OneOff++
		}
	}
	return c
}

// ToggleGroupExpansion flips whether a group is shown expanded. The state is
// kept for the lifetime of the service only.
func (s *PaymentService) ToggleGroupExpansion(groupName string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.expanded[groupName] {
		delete(s.expanded, groupName)
		return
	}
	s.expanded[groupName] = true
}

// GroupingEnabled reports whether payments are partitioned by group.
func (s *PaymentService) GroupingEnabled() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.groupingEnabled
}

// ToggleGrouping flips the grouping preference, persists it and returns the
// new value.
func (s *PaymentService) ToggleGrouping(ctx context.Context) bool {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.groupingEnabled = !s.groupingEnabled
	if s.prefs != nil {
		if err := s.prefs.SetPreference(ctx, storage.GroupingEnabledKey, strconv.FormatBool(s.groupingEnabled)); err != nil {
			s.logger.ErrorContext(ctx, "Failed to save grouping preference", "error", err)
		}
	}
	return s.groupingEnabled
}

// AvailableGroups returns the sorted distinct groups of all payments,
// completed ones included.
func (s *PaymentService) AvailableGroups() []string {
	s.mu.Lock()
	defer s.mu.Unlock()

	seen := make(map[string]struct{}, len(s.payments))
	groups := make([]string, 0, len(s.payments))
	for _, p := range s.payments {
		if _, ok := seen[p.Group]; ok {
			continue
		}
		seen[p.Group] = struct{}{}
		groups = append(groups, p.Group)
	}
	slices.Sort(groups)
	return groups
}

// GroupChoices merges DefaultGroups with AvailableGroups, sorted.
func (s *PaymentService) GroupChoices() []string {
	choices := append(slices.Clone(DefaultGroups), s.AvailableGroups()...)
	slices.Sort(choices)
	return slices.Compact(choices)
}

// Payments returns a copy of the collection in its stored order.
func (s *PaymentService) Payments() []core.Payment {
	s.mu.Lock()
	defer s.mu.Unlock()
	out := make([]core.Payment, len(s.payments))
	for i, p := range s.payments {
		out[i] = clonePayment(p)
	}
	return out
}

// Get returns the payment with the given id.
func (s *PaymentService) Get(id string) (core.Payment, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	idx := s.indexOf(id)
	if idx < 0 {
		return core.Payment{}, false
	}
	return clonePayment(s.payments[idx]), true
}

func (s *PaymentService) mutate(ctx context.Context, id string, fn func(*core.Payment)) bool {
	s.mu.Lock()
	defer s.mu.Unlock()

	idx := s.indexOf(id)
	if idx < 0 {
		s.logger.DebugContext(ctx, "Update ignored for unknown payment", "id", id)
		return false
	}
	fn(&s.payments[idx])
	s.persist(ctx)
	return true
}

func (s *PaymentService) indexOf(id string) int {
	return slices.IndexFunc(s.payments, func(p core.Payment) bool { return p.ID == id })
}

// persist must be called with s.mu held.
func (s *PaymentService) persist(ctx context.Context) {
	snapshot := make([]core.Payment, len(s.payments))
	copy(snapshot, s.payments)
	if err := s.store.SavePayments(ctx, snapshot); err != nil {
		s.logger.ErrorContext(ctx, "Failed to save payments",
			"error", err,
			"count", len(snapshot))
	}
}

// GroupPayments partitions the active payments into display groups. With
// grouping disabled everything lands in a single expanded "All Payments"
// group. Otherwise groups appear in the order their first member appears in
// the collection. Members are sorted by due date; payments due the same day
// keep their collection order.
func GroupPayments(payments []core.Payment, groupingEnabled bool, expanded map[string]bool) []core.PaymentGroup {
	active := activePayments(payments)

	if !groupingEnabled {
		sortByDueDate(active)
		return []core.PaymentGroup{{
			Name:       core.AllPaymentsGroup,
			Payments:   active,
			Total:      core.SumPayments(active),
			IsExpanded: true,
		}}
	}

	var order []string
	members := make(map[string][]core.Payment)
	for _, p := range active {
		name := core.NormalizeGroup(p.Group)
		if _, ok := members[name]; !ok {
			order = append(order, name)
		}
		members[name] = append(members[name], p)
	}

	groups := make([]core.PaymentGroup, 0, len(order))
	for _, name := range order {
		ps := members[name]
		sortByDueDate(ps)
		groups = append(groups, core.PaymentGroup{
			Name:       name,
			Payments:   ps,
			Total:      core.SumPayments(ps),
			IsExpanded: expanded[name],
		})
	}
	return groups
}

func activePayments(payments []core.Payment) []core.Payment {
	active := make([]core.Payment, 0, len(payments))
	for _, p := range payments {
		if p.IsActive() {
			active = append(active, clonePayment(p))
		}
	}
	return active
}

func sortByDueDate(payments []core.Payment) {
	slices.SortStableFunc(payments, func(a, b core.Payment) int {
		return a.DueDate.Compare(b.DueDate.Time)
	})
}

func clonePayment(p core.Payment) core.Payment {
	p.CustomEndDate = cloneDate(p.CustomEndDate)
	return p
}

func cloneDate(d *core.Date) *core.Date {
	if d == nil {
		return nil
	}
	c := *d
	return &c
}
