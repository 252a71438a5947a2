package core

import "fmt"

const (
	FilterAll       PaymentFilter = "all"
	FilterRecurring PaymentFilter = "recurring"
	FilterOneOff    PaymentFilter = "one-off"
)

// PaymentFilter narrows a payment view by type.
type PaymentFilter string

// PaymentGroup is a derived display group of active payments.
type PaymentGroup struct {
	Name       string    `json:"name"`
	Payments   []Payment `json:"payments"`
	Total      Money     `json:"total"`
	IsExpanded bool      `json:"isExpanded"`
}

// TypeCounts counts active payments per type.
type TypeCounts struct {
	All       int `json:"all"`
	Recurring int `json:"recurring"`
	OneOff    int `json:"oneOff"`
}

// ParsePaymentFilter accepts "all", "recurring" or "one-off"; blank means all.
func ParsePaymentFilter(s string) (PaymentFilter, error) {
	switch PaymentFilter(s) {
	case "", FilterAll:
		return FilterAll, nil
	case FilterRecurring, FilterOneOff:
		return PaymentFilter(s), nil
	default:
		return "", fmt.Errorf("unknown payment filter %q", s)
	}
}

// Matches reports whether p passes the filter.
func (f PaymentFilter) Matches(p Payment) bool {
	if f == FilterAll || f == "" {
		return true
	}
	return string(p.Type) == string(f)
}

// SumPayments adds up the amounts of the given payments.
func SumPayments(payments []Payment) Money {
	var total Money
	for _, p := range payments {
		total = total.Add(p.Amount)
	}
	return total
}
