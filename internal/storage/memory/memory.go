package memory

import (
	"context"
	"encoding/json"
	"fmt"
	"os"
	"sort"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"

	"tally/internal/core"
	"tally/internal/storage"
)

// Store is an in-process storage.Store. Data is lost on restart.
type Store struct {
	mu       sync.Mutex
	records  []core.Record
	profiles map[string]core.Profile
	audit    []storage.AuditEntry
	now      func() time.Time
}

func New() *Store {
	return &Store{
		profiles: map[string]core.Profile{},
		now:      time.Now,
	}
}

// NewFromFile seeds the store with rows from a JSON array file.
// A missing file yields an empty store.
func NewFromFile(path string) (*Store, error) {
	s := New()
	data, err := os.ReadFile(path)
	if os.IsNotExist(err) {
		return s, nil
	}
	if err != nil {
		return nil, fmt.Errorf("read seed file: %w", err)
	}
	var rows []storage.Row
	if err := json.Unmarshal(data, &rows); err != nil {
		return nil, fmt.Errorf("decode seed file: %w", err)
	}
	for _, row := range rows {
		rec, err := storage.RowToRecord(row)
		if err != nil {
			return nil, fmt.Errorf("seed row: %w", err)
		}
		if rec.CreatedAt.IsZero() {
			rec.CreatedAt = s.now()
		}
		s.records = append(s.records, rec)
	}
	return s, nil
}

func (s *Store) Close() error { return nil }

// Ping always succeeds.
func (s *Store) Ping(context.Context) error { return nil }

// CreateRecord implements storage.RecordStore.
func (s *Store) CreateRecord(_ context.Context, in core.NewRecord) (core.Record, error) {
	if in.UserID == "" {
		return core.Record{}, storage.ErrUnauthenticated
	}
	if err := in.Validate(); err != nil {
		return core.Record{}, err
	}
	rec := core.Record{
		ID:        uuid.NewString(),
		UserID:    in.UserID,
		Amount:    in.Amount.Round(2),
		Date:      in.Date,
		Category:  in.Category,
		Note:      in.Note,
		Kind:      in.Kind,
		CreatedAt: s.now(),
	}
	if rec.Kind == core.KindIncome {
		rec.Category = core.IncomeCategory
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	s.records = append(s.records, rec)
	return rec, nil
}

// ListRecords implements storage.RecordStore.
func (s *Store) ListRecords(_ context.Context, userID string, f core.Filter) ([]core.Record, error) {
	if userID == "" {
		return nil, storage.ErrUnauthenticated
	}
	cats := map[string]struct{}{}
	for _, c := range f.Categories {
		cats[strings.ToLower(c)] = struct{}{}
	}

	s.mu.Lock()
	out := make([]core.Record, 0, len(s.records))
	for _, r := range s.records {
		if r.UserID != userID {
			continue
		}
		if f.From != "" && r.Date < f.From {
			continue
		}
		if f.To != "" && r.Date > f.To {
			continue
		}
		if len(cats) > 0 {
			if _, ok := cats[strings.ToLower(r.Category)]; !ok {
				continue
			}
		}
		out = append(out, r)
	}
	s.mu.Unlock()

	core.SortRecords(out)
	return out, nil
}

// UpdateRecord implements storage.RecordStore.
func (s *Store) UpdateRecord(_ context.Context, userID, id string, patch core.RecordPatch) (core.Record, error) {
	if userID == "" {
		return core.Record{}, storage.ErrUnauthenticated
	}
	if err := patch.Validate(); err != nil {
		return core.Record{}, err
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	i := s.indexOf(userID, id)
	if i < 0 {
		return core.Record{}, storage.ErrNotFound
	}
	s.records[i] = patch.ApplyTo(s.records[i])
	return s.records[i], nil
}

// DeleteRecord implements storage.RecordStore.
func (s *Store) DeleteRecord(_ context.Context, userID, id string) error {
	if userID == "" {
		return storage.ErrUnauthenticated
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	i := s.indexOf(userID, id)
	if i < 0 {
		return storage.ErrNotFound
	}
	s.records = append(s.records[:i], s.records[i+1:]...)
	return nil
}

func (s *Store) indexOf(userID, id string) int {
	for i, r := range s.records {
		if r.ID == id && r.UserID == userID {
			return i
		}
	}
	return -1
}

// GetProfile implements storage.ProfileStore.
func (s *Store) GetProfile(_ context.Context, userID string) (core.Profile, error) {
	if userID == "" {
		return core.Profile{}, storage.ErrUnauthenticated
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	p, ok := s.profiles[userID]
	if !ok {
		return core.Profile{}, storage.ErrNotFound
	}
	return p, nil
}

// UpsertProfile implements storage.ProfileStore.
func (s *Store) UpsertProfile(_ context.Context, p core.Profile) (core.Profile, error) {
	if p.UserID == "" {
		return core.Profile{}, storage.ErrUnauthenticated
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	cur, ok := s.profiles[p.UserID]
	if !ok {
		cur = core.Profile{UserID: p.UserID}
	}
	cur.Email = p.Email
	cur.AvatarURL = p.AvatarURL
	if strings.TrimSpace(cur.FirstName) == "" {
		cur.FirstName = strings.TrimSpace(p.FirstName)
	}
	if strings.TrimSpace(cur.LastName) == "" {
		cur.LastName = strings.TrimSpace(p.LastName)
	}
	cur.UpdatedAt = s.now()
	s.profiles[p.UserID] = cur
	return cur, nil
}

// UpdateProfileNames implements storage.ProfileStore.
func (s *Store) UpdateProfileNames(_ context.Context, userID, first, last string) (core.Profile, error) {
	if userID == "" {
		return core.Profile{}, storage.ErrUnauthenticated
	}
	first, last, err := core.NormalizeNames(first, last)
	if err != nil {
		return core.Profile{}, err
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	p, ok := s.profiles[userID]
	if !ok {
		return core.Profile{}, storage.ErrNotFound
	}
	p.FirstName, p.LastName, p.UpdatedAt = first, last, s.now()
	s.profiles[userID] = p
	return p, nil
}

// AppendAudit implements storage.AuditWriter.
func (s *Store) AppendAudit(_ context.Context, e storage.AuditEntry) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.audit = append(s.audit, e)
	return nil
}

// ListAudit implements storage.AuditWriter.
func (s *Store) ListAudit(_ context.Context, userID string, limit int) ([]storage.AuditEntry, error) {
	if userID == "" {
		return nil, storage.ErrUnauthenticated
	}
	s.mu.Lock()
	var out []storage.AuditEntry
	for i := len(s.audit) - 1; i >= 0; i-- {
		if s.audit[i].UserID == userID {
			out = append(out, s.audit[i])
		}
	}
	s.mu.Unlock()
	sort.SliceStable(out, func(i, j int) bool { return out[i].OccurredAt.After(out[j].OccurredAt) })
	if limit > 0 && len(out) > limit {
		out = out[:limit]
	}
	return out, nil
}
