package domain

import (
	"bytes"
	"fmt"
	"sort"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

// Kind is the direction of an entry. The zero value is not a valid kind.
type Kind int

const (
	KindIncome Kind = iota + 1
	KindExpense
)

// ParseKind converts the wire form ("income" / "expense") into a Kind.
func ParseKind(s string) (Kind, error) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "income":
		return KindIncome, nil
	case "expense":
		return KindExpense, nil
	default:
		return 0, NewValidationError("kind", fmt.Sprintf("unknown kind %q", s))
	}
}

func (k Kind) String() string {
	switch k {
	case KindIncome:
		return "income"
	case KindExpense:
		return "expense"
	default:
		return fmt.Sprintf("Kind(%d)", int(k))
	}
}

// Valid reports whether k is one of the declared kinds.
func (k Kind) Valid() bool {
	switch k {
	case KindIncome, KindExpense:
		return true
	default:
		return false
	}
}

// MarshalText implements encoding.TextMarshaler.
func (k Kind) MarshalText() ([]byte, error) {
	if !k.Valid() {
		return nil, NewValidationError("kind", fmt.Sprintf("unknown kind %d", int(k)))
	}
	return []byte(k.String()), nil
}

// UnmarshalText implements encoding.TextUnmarshaler.
func (k *Kind) UnmarshalText(text []byte) error {
	parsed, err := ParseKind(string(text))
	if err != nil {
		return err
	}
	*k = parsed
	return nil
}

// Category is informational only; balances and summaries ignore it.
type Category string

const (
	CategorySalary        Category = "salary"
	CategoryFood          Category = "food"
	CategoryTransport     Category = "transport"
	CategoryEntertainment Category = "entertainment"
	CategoryUtilities     Category = "utilities"
	CategoryHealthcare    Category = "healthcare"
	CategoryShopping      Category = "shopping"
	CategoryOther         Category = "other"
)

// Categories lists every accepted category in declaration order.
var Categories = []Category{
	CategorySalary,
	CategoryFood,
	CategoryTransport,
	CategoryEntertainment,
	CategoryUtilities,
	CategoryHealthcare,
	CategoryShopping,
	CategoryOther,
}

// Valid reports whether c is one of the declared categories.
func (c Category) Valid() bool {
	for _, known := range Categories {
		if c == known {
			return true
		}
	}
	return false
}

// ParseCategory normalizes s and checks it against the closed set.
// An empty string maps to CategoryOther.
func ParseCategory(s string) (Category, error) {
	s = strings.ToLower(strings.TrimSpace(s))
	if s == "" {
		return CategoryOther, nil
	}
	c := Category(s)
	if !c.Valid() {
		return "", NewValidationError("category", fmt.Sprintf("unknown category %q", s))
	}
	return c, nil
}

// Every store keeps entries dated within these years.
const (
	MinYear = 1
	MaxYear = 9999
)

// Entry is a single ledger record.
type Entry struct {
	ID         uuid.UUID
	Amount     decimal.Decimal // magnitude, always positive
	Kind       Kind
	Category   Category
	OccurredAt time.Time
	Note       string
	Balance    decimal.Decimal // derived, written only by the ledger recomputation
	CreatedAt  time.Time
	UpdatedAt  time.Time
}

// Validate checks the fields a caller controls.
func (e *Entry) Validate() error {
	if e.Amount.LessThanOrEqual(decimal.Zero) {
		return NewValidationError("amount", "must be positive")
	}
	if !e.Kind.Valid() {
		return NewValidationError("kind", fmt.Sprintf("unknown kind %d", int(e.Kind)))
	}
	if !e.Category.Valid() {
		return NewValidationError("category", fmt.Sprintf("unknown category %q", e.Category))
	}
	if e.OccurredAt.IsZero() {
		return NewValidationError("occurred_at", "must be set")
	}
	if y := e.OccurredAt.UTC().Year(); y < MinYear || y > MaxYear {
		return NewValidationError("occurred_at", fmt.Sprintf("year %d is outside %d..%d", y, MinYear, MaxYear))
	}
	return nil
}

// SignedAmount returns the amount with the sign implied by the kind.
func (e *Entry) SignedAmount() decimal.Decimal {
	switch e.Kind {
	case KindIncome:
		return e.Amount
	case KindExpense:
		return e.Amount.Neg()
	default:
		return decimal.Zero
	}
}

// Clone returns a shallow copy safe to mutate.
func (e *Entry) Clone() *Entry {
	c := *e
	return &c
}

// Before reports whether e sorts before other in ledger order:
// OccurredAt ascending, ties broken by ID ascending.
func (e *Entry) Before(other *Entry) bool {
	if !e.OccurredAt.Equal(other.OccurredAt) {
		return e.OccurredAt.Before(other.OccurredAt)
	}
	return bytes.Compare(e.ID[:], other.ID[:]) < 0
}

// SortChronologically orders entries in place by ledger order.
func SortChronologically(entries []*Entry) {
	sort.SliceStable(entries, func(i, j int) bool {
		return entries[i].Before(entries[j])
	})
}
