package services

import (
	"context"
	"log/slog"
	"slices"
	"sync"

	"monthly/internal/core"
	"monthly/internal/storage"
)

// PaymentAdder receives the payments rolled up from projects.
type PaymentAdder interface {
	Add(ctx context.Context, in PaymentInput) core.Payment
}

type ProjectItemInput struct {
	Name   string
	Amount core.Money
	Note   string
}

type ProjectInput struct {
	Name        string
	Description string
	Items       []ProjectItemInput
}

// ProjectPatch lists the project fields to overwrite. A non-nil Items
// replaces every item and recomputes the total.
type ProjectPatch struct {
	Name        *string
	Description *string
	Items       *[]ProjectItemInput
}

type ProjectItemPatch struct {
	Name   *string
	Amount *core.Money
	Note   *string
}

// ProjectSummary splits a project's items by state.
type ProjectSummary struct {
	Selected       []core.ProjectItem `json:"selected"`
	Remaining      []core.ProjectItem `json:"remaining"`
	Completed      []core.ProjectItem `json:"completed"`
	SelectedTotal  core.Money         `json:"selectedTotal"`
	RemainingTotal core.Money         `json:"remainingTotal"`
	CompletedTotal core.Money         `json:"completedTotal"`
}

// ProjectService manages planned projects and turns their items into
// one-off payments.
type ProjectService struct {
	mu sync.Mutex

	store    storage.ProjectStore
	payments PaymentAdder
	clock    Clock
	newID    func() string
	logger   *slog.Logger

	projects []core.Project
}

func NewProjectService(ctx context.Context, store storage.ProjectStore, payments PaymentAdder, opts ...Option) *ProjectService {
	o := buildOptions(opts)
	s := &ProjectService{
		store:    store,
		payments: payments,
		clock:    o.clock,
		newID:    o.newID,
		logger:   o.logger,
	}

	projects, err := store.LoadProjects(ctx)
	if err != nil {
		s.logger.ErrorContext(ctx, "Failed to load projects, starting empty", "error", err)
		projects = nil
	}
	s.projects = projects
	return s
}

// Add creates a project with fresh ids for it and its items.
func (s *ProjectService) Add(ctx context.Context, in ProjectInput) core.Project {
	p := core.Project{
		ID:          s.newID(),
		Name:        in.Name,
		Description: in.Description,
		Items:       s.newItems(in.Items),
		CreatedAt:   s.clock.Now().UTC(),
	}
	p.TotalAmount = core.SumItems(p.Items)

	s.mu.Lock()
	defer s.mu.Unlock()
	s.projects = append(s.projects, p)
	s.persist(ctx)

	s.logger.InfoContext(ctx, "Project added", "id", p.ID, "items", len(p.Items))
	return cloneProject(p)
}

func (s *ProjectService) Update(ctx context.Context, id string, patch ProjectPatch) bool {
	var items []core.ProjectItem
	if patch.Items != nil {
		items = s.newItems(*patch.Items)
	}
	return s.mutate(ctx, id, func(p *core.Project) {
		if patch.Name != nil {
			p.Name = *patch.Name
		}
		if patch.Description != nil {
			p.Description = *patch.Description
		}
		if patch.Items != nil {
			p.Items = items
		}
	})
}

func (s *ProjectService) Delete(ctx context.Context, id string) bool {
	s.mu.Lock()
	defer s.mu.Unlock()

	idx := s.indexOf(id)
	if idx < 0 {
		return false
	}
	s.projects = slices.Delete(s.projects, idx, idx+1)
	s.persist(ctx)
	return true
}

// AddItem appends an unselected item to the project.
func (s *ProjectService) AddItem(ctx context.Context, projectID string, in ProjectItemInput) (core.ProjectItem, bool) {
	item := core.ProjectItem{ID: s.newID(), Name: in.Name, Amount: in.Amount, Note: in.Note}
	ok := s.mutate(ctx, projectID, func(p *core.Project) {
		p.Items = append(p.Items, item)
	})
	return item, ok
}

func (s *ProjectService) UpdateItem(ctx context.Context, projectID, itemID string, patch ProjectItemPatch) bool {
	return s.mutateItem(ctx, projectID, itemID, func(it *core.ProjectItem) {
		if patch.Name != nil {
			it.Name = *patch.Name
		}
		if patch.Amount != nil {
			it.Amount = *patch.Amount
		}
		if patch.Note != nil {
			it.Note = *patch.Note
		}
	})
}

func (s *ProjectService) DeleteItem(ctx context.Context, projectID, itemID string) bool {
	s.mu.Lock()
	defer s.mu.Unlock()

	p, idx := s.itemIndex(projectID, itemID)
	if idx < 0 {
		return false
	}
	p.Items = slices.Delete(p.Items, idx, idx+1)
	p.TotalAmount = core.SumItems(p.Items)
	s.persist(ctx)
	return true
}

// ToggleItemSelection flips the selection of an item. Completed items
// cannot be selected.
func (s *ProjectService) ToggleItemSelection(ctx context.Context, projectID, itemID string) bool {
	s.mu.Lock()
	defer s.mu.Unlock()

	p, idx := s.itemIndex(projectID, itemID)
	if idx < 0 || p.Items[idx].IsCompleted {
		return false
	}
	p.Items[idx].IsSelected = !p.Items[idx].IsSelected
	s.persist(ctx)
	return true
}

// ToggleItemCompletion flips completion and clears the selection.
func (s *ProjectService) ToggleItemCompletion(ctx context.Context, projectID, itemID string) bool {
	return s.mutateItem(ctx, projectID, itemID, func(it *core.ProjectItem) {
		it.IsCompleted = !it.IsCompleted
		it.IsSelected = false
	})
}

// ToggleSelectAll selects every open item, or clears the selection when
// all open items are already selected.
func (s *ProjectService) ToggleSelectAll(ctx context.Context, projectID string) bool {
	return s.mutate(ctx, projectID, func(p *core.Project) {
		allSelected := true
		for _, it := range p.Items {
			if !it.IsCompleted && !it.IsSelected {
				allSelected = false
				break
			}
		}
		for i := range p.Items {
			if p.Items[i].IsCompleted {
				continue
			}
			p.Items[i].IsSelected = !allSelected
		}
	})
}

// Summary reports the selected, remaining and completed items of a project.
func (s *ProjectService) Summary(projectID string) (ProjectSummary, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()

	idx := s.indexOf(projectID)
	if idx < 0 {
		return ProjectSummary{}, false
	}
	return summarize(s.projects[idx].Items), true
}

// AddSelectedToPayments rolls the selected open items into one-off
// payments due on due.
func (s *ProjectService) AddSelectedToPayments(ctx context.Context, projectID string, due core.Date) []core.Payment {
	return s.rollItems(ctx, projectID, func(it core.ProjectItem) (core.Date, bool) {
		return due, it.IsSelected
	})
}

// AddItemsToPayments rolls the listed open items into one-off payments.
func (s *ProjectService) AddItemsToPayments(ctx context.Context, projectID string, itemIDs []string, due core.Date) []core.Payment {
	return s.rollItems(ctx, projectID, func(it core.ProjectItem) (core.Date, bool) {
		return due, slices.Contains(itemIDs, it.ID)
	})
}

// AddItemsWithDueDates rolls the open items named in dues into one-off
// payments, each due on its own date.
func (s *ProjectService) AddItemsWithDueDates(ctx context.Context, projectID string, dues map[string]core.Date) []core.Payment {
	return s.rollItems(ctx, projectID, func(it core.ProjectItem) (core.Date, bool) {
		due, ok := dues[it.ID]
		return due, ok
	})
}

// AddWholeProjectToPayments adds a single payment for everything still open
// in the project. Nothing happens when no amount remains.
func (s *ProjectService) AddWholeProjectToPayments(ctx context.Context, projectID string, due core.Date) (core.Payment, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()

	idx := s.indexOf(projectID)
	if idx < 0 {
		return core.Payment{}, false
	}
	p := &s.projects[idx]
	summary := summarize(p.Items)
	if len(summary.Remaining) == 0 || summary.RemainingTotal.Cents <= 0 {
		return core.Payment{}, false
	}

	payment := s.payments.Add(ctx, PaymentInput{
		Name:    p.Name,
		Amount:  summary.RemainingTotal,
		DueDate: due,
		Type:    core.OneOff,
		Note:    p.Description,
		Group:   core.ProjectsGroup,
	})
	for i := range p.Items {
		if !p.Items[i].IsCompleted {
			p.Items[i].IsCompleted = true
			p.Items[i].IsSelected = false
		}
	}
	s.persist(ctx)

	s.logger.InfoContext(ctx, "Project added to payments",
		"project_id", p.ID,
		"amount_cents", payment.Amount.Cents)
	return payment, true
}

// Projects returns a copy of all projects.
func (s *ProjectService) Projects() []core.Project {
	s.mu.Lock()
	defer s.mu.Unlock()
	out := make([]core.Project, len(s.projects))
	for i, p := range s.projects {
		out[i] = cloneProject(p)
	}
	return out
}

func (s *ProjectService) Get(id string) (core.Project, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	idx := s.indexOf(id)
	if idx < 0 {
		return core.Project{}, false
	}
	return cloneProject(s.projects[idx]), true
}

func (s *ProjectService) rollItems(ctx context.Context, projectID string, pick func(core.ProjectItem) (core.Date, bool)) []core.Payment {
	s.mu.Lock()
	defer s.mu.Unlock()

	idx := s.indexOf(projectID)
	if idx < 0 {
		return nil
	}
	p := &s.projects[idx]

	var added []core.Payment
	for i := range p.Items {
		it := &p.Items[i]
		if it.IsCompleted {
			continue
		}
		due, ok := pick(*it)
		if !ok {
			continue
		}
		added = append(added, s.payments.Add(ctx, PaymentInput{
			Name:    p.Name + " - " + it.Name,
			Amount:  it.Amount,
			DueDate: due,
			Type:    core.OneOff,
			Note:    it.Note,
			Group:   core.ProjectsGroup,
		}))
		it.IsCompleted = true
		it.IsSelected = false
	}
	if len(added) == 0 {
		return nil
	}
	s.persist(ctx)

	s.logger.InfoContext(ctx, "Project items added to payments",
		"project_id", p.ID,
		"count", len(added))
	return added
}

func (s *ProjectService) newItems(in []ProjectItemInput) []core.ProjectItem {
	items := make([]core.ProjectItem, 0, len(in))
	for _, it := range in {
		items = append(items, core.ProjectItem{ID: s.newID(), Name: it.Name, Amount: it.Amount, Note: it.Note})
	}
	return items
}

func (s *ProjectService) mutate(ctx context.Context, id string, fn func(*core.Project)) bool {
	s.mu.Lock()
	defer s.mu.Unlock()

	idx := s.indexOf(id)
	if idx < 0 {
		s.logger.DebugContext(ctx, "Update ignored for unknown project", "id", id)
		return false
	}
	p := &s.projects[idx]
	fn(p)
	p.TotalAmount = core.SumItems(p.Items)
	s.persist(ctx)
	return true
}

func (s *ProjectService) mutateItem(ctx context.Context, projectID, itemID string, fn func(*core.ProjectItem)) bool {
	s.mu.Lock()
	defer s.mu.Unlock()

	p, idx := s.itemIndex(projectID, itemID)
	if idx < 0 {
		return false
	}
	fn(&p.Items[idx])
	p.TotalAmount = core.SumItems(p.Items)
	s.persist(ctx)
	return true
}

func (s *ProjectService) indexOf(id string) int {
	return slices.IndexFunc(s.projects, func(p core.Project) bool { return p.ID == id })
}

// itemIndex must be called with s.mu held.
func (s *ProjectService) itemIndex(projectID, itemID string) (*core.Project, int) {
	idx := s.indexOf(projectID)
	if idx < 0 {
		return nil, -1
	}
	p := &s.projects[idx]
	return p, slices.IndexFunc(p.Items, func(it core.ProjectItem) bool { return it.ID == itemID })
}

func (s *ProjectService) persist(ctx context.Context) {
	snapshot := make([]core.Project, len(s.projects))
	for i, p := range s.projects {
		snapshot[i] = cloneProject(p)
	}
	if err := s.store.SaveProjects(ctx, snapshot); err != nil {
		s.logger.ErrorContext(ctx, "Failed to save projects", "error", err, "count", len(snapshot))
	}
}

func summarize(items []core.ProjectItem) ProjectSummary {
	var sum ProjectSummary
	for _, it := range items {
		switch {
		case it.IsCompleted:
			sum.Completed = append(sum.Completed, it)
		case it.IsSelected:
			sum.Selected = append(sum.Selected, it)
			sum.Remaining = append(sum.Remaining, it)
		default:
			sum.Remaining = append(sum.Remaining, it)
		}
	}
	sum.SelectedTotal = core.SumItems(sum.Selected)
	sum.RemainingTotal = core.SumItems(sum.Remaining)
	sum.CompletedTotal = core.SumItems(sum.Completed)
	return sum
}

func cloneProject(p core.Project) core.Project {
	p.Items = slices.Clone(p.Items)
	return p
}
