package core

import (
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/shopspring/decimal"
)

const (
	KindExpense Kind = "expense"
	KindIncome  Kind = "income"
)

// IncomeCategory is the category every income record carries.
const IncomeCategory = "Income"

// TempIDPrefix marks ids assigned on the client before the store confirms a record.
const TempIDPrefix = "temp_"

type (
	Kind string

	// Record is a single income or expense entry owned by one user.
	Record struct {
		ID        string
		UserID    string
		Amount    decimal.Decimal // always 2 fractional digits
		Date      string          // YYYY-MM-DD
		Category  string
		Note      string // empty when absent
		Kind      Kind
		CreatedAt time.Time
	}

	// NewRecord is what a store needs to insert a record.
	NewRecord struct {
		UserID   string
		Amount   decimal.Decimal
		Date     string
		Kind     Kind
		Category string
		Note     string
	}

	// RecordPatch is a partial update. Nil fields are left untouched.
	RecordPatch struct {
		Amount   *decimal.Decimal
		Date     *string
		Kind     *Kind
		Category *string
		Note     *string
	}

	// FormValues is the raw input collected by the record form.
	FormValues struct {
		Kind     Kind
		Amount   string    // kept as typed by the user until submit
		Date     time.Time // zero when nothing was selected
		Category string
		Note     string
	}

	// Draft is a validated, normalized FormValues.
	Draft struct {
		Kind     Kind
		Amount   decimal.Decimal
		Date     string
		Category string
		Note     string
	}
)

var (
	ErrInvalidAmount     = errors.New("invalid amount")
	ErrAmountPrecision   = errors.New("amount has more than 2 decimal places")
	ErrAmountNotPositive = errors.New("amount must be greater than zero")
	ErrMissingDate       = errors.New("date is required")
	ErrInvalidDate       = errors.New("invalid date")
	ErrEmptyCategory     = errors.New("empty category")
	ErrInvalidKind       = errors.New("invalid kind")
)

// ValidationError reports which form field was rejected.
type ValidationError struct {
	Field string
	Err   error
}

func (e *ValidationError) Error() string {
	return e.Field + ": " + e.Err.Error()
}

func (e *ValidationError) Unwrap() error {
	return e.Err
}

func invalid(field string, err error) error {
	return &ValidationError{Field: field, Err: err}
}

func (k Kind) Valid() bool {
	return k == KindExpense || k == KindIncome
}

// ParseKind maps form input to a Kind. Empty input means expense.
func ParseKind(s string) (Kind, error) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "", string(KindExpense):
		return KindExpense, nil
	case string(KindIncome):
		return KindIncome, nil
	default:
		return "", fmt.Errorf("%w: %q", ErrInvalidKind, s)
	}
}

// IsProvisional reports whether the record still carries a client-side id.
func (r Record) IsProvisional() bool {
	return strings.HasPrefix(r.ID, TempIDPrefix)
}

// Validate checks the form and returns the normalized draft.
func (v FormValues) Validate() (Draft, error) {
	kind := v.Kind
	if kind == "" {
		kind = KindExpense
	}
	if !kind.Valid() {
		return Draft{}, invalid("type", ErrInvalidKind)
	}

	amount, err := ParseAmount(v.Amount)
	if err != nil {
		return Draft{}, invalid("amount", err)
	}

	if !IsRequiredDate(v.Date) {
		return Draft{}, invalid("date", ErrMissingDate)
	}

	category := strings.TrimSpace(v.Category)
	if kind == KindIncome {
		category = IncomeCategory
	} else if category == "" {
		return Draft{}, invalid("category", ErrEmptyCategory)
	}

	return Draft{
		Kind:     kind,
		Amount:   amount,
		Date:     ISODate(v.Date),
		Category: category,
		Note:     strings.TrimSpace(v.Note),
	}, nil
}

// NewRecord turns the draft into an insert request for userID.
func (d Draft) NewRecord(userID string) NewRecord {
	return NewRecord{
		UserID:   userID,
		Amount:   d.Amount,
		Date:     d.Date,
		Kind:     d.Kind,
		Category: d.Category,
		Note:     d.Note,
	}
}

// Patch returns a patch that overwrites every editable field.
func (d Draft) Patch() RecordPatch {
	amount, date, kind, category, note := d.Amount, d.Date, d.Kind, d.Category, d.Note
	return RecordPatch{
		Amount:   &amount,
		Date:     &date,
		Kind:     &kind,
		Category: &category,
		Note:     &note,
	}
}

// Apply returns r with the draft's fields. ID, owner and creation time are kept.
func (d Draft) Apply(r Record) Record {
	r.Amount = d.Amount
	r.Date = d.Date
	r.Kind = d.Kind
	r.Category = d.Category
	r.Note = d.Note
	return r
}

// Validate enforces the constraints a store applies to inserted rows.
func (n NewRecord) Validate() error {
	if strings.TrimSpace(n.UserID) == "" {
		return errors.New("missing user id")
	}
	return validateFields(n.Amount, n.Date, n.Kind, n.Category)
}

// Validate checks the fields present in the patch.
func (p RecordPatch) Validate() error {
	if p.Amount != nil {
		if err := validateAmount(*p.Amount); err != nil {
			return err
		}
	}
	if p.Date != nil && !IsValidISODate(*p.Date) {
		return invalid("date", ErrInvalidDate)
	}
	if p.Kind != nil && !p.Kind.Valid() {
		return invalid("type", ErrInvalidKind)
	}
	if p.Category != nil && strings.TrimSpace(*p.Category) == "" {
		return invalid("category", ErrEmptyCategory)
	}
	return nil
}

// ApplyTo merges the patch into r.
func (p RecordPatch) ApplyTo(r Record) Record {
	if p.Amount != nil {
		r.Amount = p.Amount.Round(2)
	}
	if p.Date != nil {
		r.Date = *p.Date
	}
	if p.Kind != nil {
		r.Kind = *p.Kind
	}
	if p.Category != nil {
		r.Category = *p.Category
	}
	if p.Note != nil {
		r.Note = *p.Note
	}
	if r.Kind == KindIncome {
		r.Category = IncomeCategory
	}
	return r
}

func validateFields(amount decimal.Decimal, date string, kind Kind, category string) error {
	if err := validateAmount(amount); err != nil {
		return err
	}
	if !IsValidISODate(date) {
		return invalid("date", ErrInvalidDate)
	}
	if !kind.Valid() {
		return invalid("type", ErrInvalidKind)
	}
	if kind == KindExpense && strings.TrimSpace(category) == "" {
		return invalid("category", ErrEmptyCategory)
	}
	return nil
}

func validateAmount(amount decimal.Decimal) error {
	if !amount.IsPositive() {
		return invalid("amount", ErrAmountNotPositive)
	}
	if !amount.Equal(amount.Round(2)) {
		return invalid("amount", ErrAmountPrecision)
	}
	return nil
}
