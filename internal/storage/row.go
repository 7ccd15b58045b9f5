package storage

import (
	"errors"
	"fmt"
	"time"

	"github.com/shopspring/decimal"

	"tally/internal/core"
)

// Row is the personal_expense wire shape. Amount decodes from a JSON string or number.
type Row struct {
	ID        string          `json:"id"`
	UserID    string          `json:"user_id"`
	Amount    decimal.Decimal `json:"amount"`
	Date      string          `json:"date"`
	IsIncome  bool            `json:"is_income"`
	Category  string          `json:"category"`
	Comment   *string         `json:"comment"`
	CreatedAt time.Time       `json:"created_at"`
}

var (
	errRowMissingID = errors.New("row has no id")
	errRowBadAmount = errors.New("row amount is negative")
)

// RowToRecord converts a stored row into a domain record.
func RowToRecord(r Row) (core.Record, error) {
	if r.ID == "" {
		return core.Record{}, errRowMissingID
	}
	if r.Amount.IsNegative() {
		return core.Record{}, fmt.Errorf("row %s: %w", r.ID, errRowBadAmount)
	}
	if !core.IsValidISODate(r.Date) {
		return core.Record{}, fmt.Errorf("row %s: %w: %q", r.ID, core.ErrInvalidDate, r.Date)
	}

	rec := core.Record{
		ID:        r.ID,
		UserID:    r.UserID,
		Amount:    r.Amount.Round(2),
		Date:      r.Date,
		Category:  r.Category,
		Kind:      core.KindExpense,
		CreatedAt: r.CreatedAt,
	}
	if r.Comment != nil {
		rec.Note = *r.Comment
	}
	if r.IsIncome {
		rec.Kind = core.KindIncome
		rec.Category = core.IncomeCategory
	}
	return rec, nil
}

// RecordToRow converts a domain record into its wire shape. An empty note becomes NULL.
func RecordToRow(rec core.Record) Row {
	row := Row{
		ID:        rec.ID,
		UserID:    rec.UserID,
		Amount:    rec.Amount.Round(2),
		Date:      rec.Date,
		IsIncome:  rec.Kind == core.KindIncome,
		Category:  rec.Category,
		CreatedAt: rec.CreatedAt,
	}
	if rec.Note != "" {
		note := rec.Note
		row.Comment = &note
	}
	return row
}

func rowsToRecords(rows []Row) ([]core.Record, error) {
	out := make([]core.Record, 0, len(rows))
	for _, row := range rows {
		rec, err := RowToRecord(row)
		if err != nil {
			return nil, err
		}
		out = append(out, rec)
	}
	return out, nil
}
