package core

import (
	"errors"
	"strings"
	"time"
)

const (
	Recurring PaymentType = "recurring"
	OneOff    PaymentType = "one-off"
)

const (
	// DefaultGroup is assigned to every payment that arrives without a group.
	DefaultGroup = "Household"

	// AllPaymentsGroup is the synthetic group used when grouping is disabled.
	AllPaymentsGroup = "All Payments"

	// ProjectsGroup receives payments rolled up from projects.
	ProjectsGroup = "Projects"
)

// Recurring duration choices offered by the payment form. Any positive month
// count is accepted as well.
const (
	DurationNoEndDate = "No end date"
	DurationCustom    = "Custom"
)

type (
	PaymentType string

	Date struct {
		time.Time
	}

	Money struct {
		Cents int64
	}

	Payment struct {
		ID                string      `json:"id"`
		Name              string      `json:"name"`
		Amount            Money       `json:"amount"`
		DueDate           Date        `json:"dueDate"`
		Type              PaymentType `json:"type"`
		RecurringDuration string      `json:"recurringDuration,omitempty"`
		CustomEndDate     *Date       `json:"customEndDate,omitempty"`
		Note              string      `json:"note"`
		IsCompleted       bool        `json:"isCompleted"`
		CreatedAt         time.Time   `json:"createdAt"`
		Group             string      `json:"group"`
	}

	Project struct {
		ID          string        `json:"id"`
		Name        string        `json:"name"`
		Description string        `json:"description"`
		Items       []ProjectItem `json:"items"`
		TotalAmount Money         `json:"totalAmount"`
		CreatedAt   time.Time     `json:"createdAt"`
	}

	ProjectItem struct {
		ID          string `json:"id"`
		Name        string `json:"name"`
		Amount      Money  `json:"amount"`
		Note        string `json:"note"`
		IsSelected  bool   `json:"isSelected"`
		IsCompleted bool   `json:"isCompleted"`
	}
)

var (
	ErrInvalidDate   = errors.New("invalid date")
	ErrInvalidAmount = errors.New("invalid amount")
	ErrEmptyName     = errors.New("empty name")
	ErrInvalidType   = errors.New("invalid payment type")
)

// NormalizeGroup returns the group a payment belongs to, falling back to
// DefaultGroup for blank labels.
func NormalizeGroup(group string) string {
	group = strings.TrimSpace(group)
	if group == "" {
		return DefaultGroup
	}
	return group
}

// Normalize fills the defaults older stored payments may be missing and
// reports whether anything changed.
func (p *Payment) Normalize() bool {
	group := NormalizeGroup(p.Group)
	if group == p.Group {
		return false
	}
	p.Group = group
	return true
}

// IsActive reports whether the payment still counts towards totals.
func (p Payment) IsActive() bool {
	return !p.IsCompleted
}

func (t PaymentType) IsValid() bool {
	switch t {
	case Recurring, OneOff:
		return true
	default:
		return false
	}
}

func (t PaymentType) String() string {
	return string(t)
}

// Validate checks the fields a caller must provide before adding a payment.
// The lifecycle manager itself does not call it.
func (p Payment) Validate() error {
	if strings.TrimSpace(p.Name) == "" {
		return ErrEmptyName
	}
	if p.Amount.Cents < 0 {
		return ErrInvalidAmount
	}
	if p.DueDate.IsZero() {
		return ErrInvalidDate
	}
	if !p.Type.IsValid() {
		return ErrInvalidType
	}
	return nil
}

func (i ProjectItem) Validate() error {
	if strings.TrimSpace(i.Name) == "" {
		return ErrEmptyName
	}
	if i.Amount.Cents < 0 {
		return ErrInvalidAmount
	}
	return nil
}

// SumItems adds up the amounts of the given project items.
func SumItems(items []ProjectItem) Money {
	var total Money
	for _, it := range items {
		total = total.Add(it.Amount)
	}
	return total
}
