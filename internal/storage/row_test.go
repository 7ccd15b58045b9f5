package storage

import (
	"encoding/json"
	"testing"
	"time"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"tally/internal/core"
)

func TestRowRecordRoundTrip(t *testing.T) {
	created := time.Date(2025, 11, 14, 9, 30, 0, 0, time.UTC)
	records := []core.Record{
		{ID: "a", UserID: "u", Amount: decimal.RequireFromString("24.50"), Date: "2025-11-14", Category: "Food & Dining", Note: "lunch", Kind: core.KindExpense, CreatedAt: created},
		{ID: "b", UserID: "u", Amount: decimal.RequireFromString("1000"), Date: "2025-11-01", Category: core.IncomeCategory, Kind: core.KindIncome, CreatedAt: created},
	}
	for _, rec := range records {
		back, err := RowToRecord(RecordToRow(rec))
		require.NoError(t, err)
		assert.Equal(t, rec.ID, back.ID)
		assert.True(t, rec.Amount.Equal(back.Amount), "amount %s != %s", rec.Amount, back.Amount)
		assert.Equal(t, rec.Date, back.Date)
		assert.Equal(t, rec.Category, back.Category)
		assert.Equal(t, rec.Note, back.Note)
		assert.Equal(t, rec.Kind, back.Kind)
	}
}

func TestRecordToRowNullComment(t *testing.T) {
	row := RecordToRow(core.Record{ID: "a", Amount: decimal.NewFromInt(1), Date: "2025-01-01", Category: "x", Kind: core.KindExpense})
	assert.Nil(t, row.Comment)
}

func TestRowDecodesStringOrNumberAmount(t *testing.T) {
	for _, payload := range []string{
		`{"id":"a","user_id":"u","amount":"24.5","date":"2025-11-14","is_income":false,"category":"Groceries","comment":null,"created_at":"2025-11-14T09:30:00Z"}`,
		`{"id":"a","user_id":"u","amount":24.5,"date":"2025-11-14","is_income":false,"category":"Groceries","comment":null,"created_at":"2025-11-14T09:30:00Z"}`,
	} {
		var row Row
		require.NoError(t, json.Unmarshal([]byte(payload), &row))
		rec, err := RowToRecord(row)
		require.NoError(t, err)
		assert.Equal(t, "24.50", rec.Amount.StringFixed(2))
		assert.Equal(t, "", rec.Note)
	}
}

func TestRowToRecordRejectsMalformed(t *testing.T) {
	good := Row{ID: "a", Amount: decimal.NewFromInt(1), Date: "2025-01-01", Category: "x"}

	bad := good
	bad.ID = ""
	_, err := RowToRecord(bad)
	assert.Error(t, err)

	bad = good
	bad.Date = "01/01/2025"
	_, err = RowToRecord(bad)
	assert.ErrorIs(t, err, core.ErrInvalidDate)

	bad = good
	bad.Amount = decimal.NewFromInt(-3)
	_, err = RowToRecord(bad)
	assert.Error(t, err)
}

func TestRowToRecordForcesIncomeCategory(t *testing.T) {
	rec, err := RowToRecord(Row{ID: "a", Amount: decimal.NewFromInt(5), Date: "2025-01-01", Category: "Salary", IsIncome: true})
	require.NoError(t, err)
	assert.Equal(t, core.KindIncome, rec.Kind)
	assert.Equal(t, core.IncomeCategory, rec.Category)
}
