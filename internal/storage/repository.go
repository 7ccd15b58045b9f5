package storage

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"time"

	sq "github.com/Masterminds/squirrel"
	"github.com/google/uuid"

	"tally/internal/core"
)

const (
	recordTable  = "personal_expense"
	profileTable = "user_profile"
	auditTable   = "personal_expense_audit"
)

// Dialect captures the SQL differences between the supported databases.
type Dialect struct {
	Name        string
	Driver      string
	placeholder sq.PlaceholderFormat
	dateColumn  string
}

var (
	SQLite = Dialect{
		Name:        "sqlite",
		Driver:      "sqlite",
		placeholder: sq.Question,
		dateColumn:  "date",
	}
	Postgres = Dialect{
		Name:        "postgres",
		Driver:      "postgres",
		placeholder: sq.Dollar,
		dateColumn:  "to_char(date, 'YYYY-MM-DD')",
	}
)

// SQLRepository implements Store on top of database/sql.
type SQLRepository struct {
	db      *sql.DB
	dialect Dialect
	builder sq.StatementBuilderType
	now     func() time.Time
	newID   func() string
}

// NewSQLRepository wraps an open, migrated database.
func NewSQLRepository(db *sql.DB, dialect Dialect) *SQLRepository {
	return &SQLRepository{
		db:      db,
		dialect: dialect,
		builder: sq.StatementBuilder.PlaceholderFormat(dialect.placeholder),
		now:     func() time.Time { return time.Now().UTC() },
		newID:   uuid.NewString,
	}
}

func (r *SQLRepository) Close() error {
	if r.db != nil {
		return r.db.Close()
	}
	return nil
}

// Ping checks the connection.
func (r *SQLRepository) Ping(ctx context.Context) error {
	return r.db.PingContext(ctx)
}

func (r *SQLRepository) recordColumns() []string {
	return []string{"id", "user_id", "amount", r.dialect.dateColumn, "is_income", "category", "comment", "created_at"}
}

func scanRow(s sq.RowScanner) (Row, error) {
	var (
		row     Row
		comment sql.NullString
	)
	if err := s.Scan(&row.ID, &row.UserID, &row.Amount, &row.Date, &row.IsIncome, &row.Category, &comment, &row.CreatedAt); err != nil {
		return Row{}, err
	}
	if comment.Valid {
		row.Comment = &comment.String
	}
	return row, nil
}

func nullable(s string) any {
	if s == "" {
		return nil
	}
	return s
}

// CreateRecord implements RecordStore.
func (r *SQLRepository) CreateRecord(ctx context.Context, in core.NewRecord) (core.Record, error) {
	if err := requireUser(in.UserID); err != nil {
		return core.Record{}, err
	}
	id := r.newID()
	query := r.builder.Insert(recordTable).
		Columns("id", "user_id", "amount", "date", "is_income", "category", "comment", "created_at").
		Values(id, in.UserID, in.Amount.StringFixed(2), in.Date, in.Kind == core.KindIncome, in.Category, nullable(in.Note), r.now()).
		Suffix("RETURNING " + strings.Join(r.recordColumns(), ", "))

	row, err := scanRow(query.RunWith(r.db).QueryRowContext(ctx))
	if err != nil {
		return core.Record{}, fmt.Errorf("create record: %w", err)
	}

	slog.DebugContext(ctx, "Record saved",
		"record_id", row.ID,
		"user_id", row.UserID,
		"amount", row.Amount.StringFixed(2),
		"date", row.Date)

	return RowToRecord(row)
}

// ListRecords implements RecordStore.
func (r *SQLRepository) ListRecords(ctx context.Context, userID string, f core.Filter) ([]core.Record, error) {
	if err := requireUser(userID); err != nil {
		return nil, err
	}
	query := r.builder.Select(r.recordColumns()...).
		From(recordTable).
		Where(sq.Eq{"user_id": userID}).
		OrderBy("date DESC", "created_at DESC")

	if f.From != "" {
		query = query.Where(sq.GtOrEq{"date": f.From})
	}
	if f.To != "" {
		query = query.Where(sq.LtOrEq{"date": f.To})
	}
	if len(f.Categories) > 0 {
		lowered := make([]string, len(f.Categories))
		for i, c := range f.Categories {
			lowered[i] = strings.ToLower(c)
		}
		query = query.Where(sq.Eq{"LOWER(category)": lowered})
	}

	rows, err := query.RunWith(r.db).QueryContext(ctx)
	if err != nil {
		return nil, fmt.Errorf("list records: %w", err)
	}
	defer rows.Close()

	var out []Row
	for rows.Next() {
		row, err := scanRow(rows)
		if err != nil {
			return nil, fmt.Errorf("scan record: %w", err)
		}
		out = append(out, row)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("list records: %w", err)
	}
	return rowsToRecords(out)
}

// UpdateRecord implements RecordStore.
func (r *SQLRepository) UpdateRecord(ctx context.Context, userID, id string, patch core.RecordPatch) (core.Record, error) {
	if err := requireUser(userID); err != nil {
		return core.Record{}, err
	}

	set := map[string]any{}
	if patch.Amount != nil {
		set["amount"] = patch.Amount.StringFixed(2)
	}
	if patch.Date != nil {
		set["date"] = *patch.Date
	}
	if patch.Kind != nil {
		set["is_income"] = *patch.Kind == core.KindIncome
		if *patch.Kind == core.KindIncome {
			set["category"] = core.IncomeCategory
		}
	}
	if patch.Category != nil {
		if _, forced := set["category"]; !forced {
			set["category"] = *patch.Category
		}
	}
	if patch.Note != nil {
		set["comment"] = nullable(*patch.Note)
	}

	where := sq.Eq{"id": id, "user_id": userID}
	var scanner sq.RowScanner
	if len(set) == 0 {
		scanner = r.builder.Select(r.recordColumns()...).From(recordTable).Where(where).
			RunWith(r.db).QueryRowContext(ctx)
	} else {
		scanner = r.builder.Update(recordTable).SetMap(set).Where(where).
			Suffix("RETURNING " + strings.Join(r.recordColumns(), ", ")).
			RunWith(r.db).QueryRowContext(ctx)
	}

	row, err := scanRow(scanner)
	if errors.Is(err, sql.ErrNoRows) {
		return core.Record{}, ErrNotFound
	}
	if err != nil {
		return core.Record{}, fmt.Errorf("update record %s: %w", id, err)
	}
	return RowToRecord(row)
}

// DeleteRecord implements RecordStore.
func (r *SQLRepository) DeleteRecord(ctx context.Context, userID, id string) error {
	if err := requireUser(userID); err != nil {
		return err
	}
	res, err := r.builder.Delete(recordTable).
		Where(sq.Eq{"id": id, "user_id": userID}).
		RunWith(r.db).ExecContext(ctx)
	if err != nil {
		return fmt.Errorf("delete record %s: %w", id, err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("delete record %s: %w", id, err)
	}
	if n == 0 {
		return ErrNotFound
	}
	return nil
}

var profileColumns = []string{"user_id", "first_name", "last_name", "email", "avatar_url", "updated_at"}

func scanProfile(s sq.RowScanner) (core.Profile, error) {
	var p core.Profile
	err := s.Scan(&p.UserID, &p.FirstName, &p.LastName, &p.Email, &p.AvatarURL, &p.UpdatedAt)
	return p, err
}

// GetProfile implements ProfileStore.
func (r *SQLRepository) GetProfile(ctx context.Context, userID string) (core.Profile, error) {
	if err := requireUser(userID); err != nil {
		return core.Profile{}, err
	}
	p, err := scanProfile(r.builder.Select(profileColumns...).
		From(profileTable).
		Where(sq.Eq{"user_id": userID}).
		RunWith(r.db).QueryRowContext(ctx))
	if errors.Is(err, sql.ErrNoRows) {
		return core.Profile{}, ErrNotFound
	}
	if err != nil {
		return core.Profile{}, fmt.Errorf("get profile: %w", err)
	}
	return p, nil
}

// UpsertProfile implements ProfileStore.
func (r *SQLRepository) UpsertProfile(ctx context.Context, p core.Profile) (core.Profile, error) {
	if err := requireUser(p.UserID); err != nil {
		return core.Profile{}, err
	}
	query := r.builder.Insert(profileTable).
		Columns(profileColumns...).
		Values(p.UserID, strings.TrimSpace(p.FirstName), strings.TrimSpace(p.LastName), p.Email, p.AvatarURL, r.now()).
		Suffix(`ON CONFLICT (user_id) DO UPDATE SET
			email = excluded.email,
			avatar_url = excluded.avatar_url,
			first_name = CASE WHEN TRIM(user_profile.first_name) = '' THEN excluded.first_name ELSE user_profile.first_name END,
			last_name = CASE WHEN TRIM(user_profile.last_name) = '' THEN excluded.last_name ELSE user_profile.last_name END,
			updated_at = excluded.updated_at
			RETURNING ` + strings.Join(profileColumns, ", "))

	out, err := scanProfile(query.RunWith(r.db).QueryRowContext(ctx))
	if err != nil {
		return core.Profile{}, fmt.Errorf("upsert profile: %w", err)
	}
	return out, nil
}

// UpdateProfileNames implements ProfileStore.
func (r *SQLRepository) UpdateProfileNames(ctx context.Context, userID, first, last string) (core.Profile, error) {
	if err := requireUser(userID); err != nil {
		return core.Profile{}, err
	}
	first, last, err := core.NormalizeNames(first, last)
	if err != nil {
		return core.Profile{}, err
	}
	p, err := scanProfile(r.builder.Update(profileTable).
		Set("first_name", first).
		Set("last_name", last).
		Set("updated_at", r.now()).
		Where(sq.Eq{"user_id": userID}).
		Suffix("RETURNING " + strings.Join(profileColumns, ", ")).
		RunWith(r.db).QueryRowContext(ctx))
	if errors.Is(err, sql.ErrNoRows) {
		return core.Profile{}, ErrNotFound
	}
	if err != nil {
		return core.Profile{}, fmt.Errorf("update profile names: %w", err)
	}
	return p, nil
}

// AppendAudit implements AuditWriter.
func (r *SQLRepository) AppendAudit(ctx context.Context, e AuditEntry) error {
	_, err := r.builder.Insert(auditTable).
		Columns("record_id", "user_id", "event", "occurred_at").
		Values(e.RecordID, e.UserID, e.Event, e.OccurredAt.UTC()).
		RunWith(r.db).ExecContext(ctx)
	if err != nil {
		return fmt.Errorf("append audit: %w", err)
	}
	return nil
}

// ListAudit implements AuditWriter. Newest entries come first.
func (r *SQLRepository) ListAudit(ctx context.Context, userID string, limit int) ([]AuditEntry, error) {
	if err := requireUser(userID); err != nil {
		return nil, err
	}
	query := r.builder.Select("record_id", "user_id", "event", "occurred_at").
		From(auditTable).
		Where(sq.Eq{"user_id": userID}).
		OrderBy("occurred_at DESC", "id DESC")
	if limit > 0 {
		query = query.Limit(uint64(limit))
	}

	rows, err := query.RunWith(r.db).QueryContext(ctx)
	if err != nil {
		return nil, fmt.Errorf("list audit: %w", err)
	}
	defer rows.Close()

	var out []AuditEntry
	for rows.Next() {
		var e AuditEntry
		if err := rows.Scan(&e.RecordID, &e.UserID, &e.Event, &e.OccurredAt); err != nil {
			return nil, fmt.Errorf("scan audit: %w", err)
		}
		out = append(out, e)
	}
	return out, rows.Err()
}
