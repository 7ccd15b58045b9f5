// Package ledger keeps one user's on-screen record list in step with the store.
//
// Writes are applied to the list before the store confirms them and are either
// reconciled with the stored copy or reverted when the store call fails. The
// coordinator lock is held while the list changes, never across a store call, so
// several writes can be in flight at once and the last one to finish wins.
package ledger

import (
	"context"
	"errors"
	"fmt"
	"slices"
	"sort"
	"strings"
	"sync"
	"time"

	"golang.org/x/sync/errgroup"

	"tally/internal/core"
	"tally/internal/log"
	"tally/internal/metrics"
	"tally/internal/storage"
)

var (
	ErrNotAuthenticated = errors.New("not authenticated")
	ErrRecordNotFound   = errors.New("record not found")
)

// UserSource reports the signed-in user id, or "" when signed out.
type UserSource interface {
	UserID() string
}

// Coordinator owns the visible record list and the active filter.
type Coordinator struct {
	store  storage.RecordStore
	users  UserSource
	logger *log.Logger
	now    func() time.Time

	mu      sync.Mutex
	items   []core.Record
	filter  core.Filter
	seen    map[string]struct{}
	seq     uint64
	loadGen uint64
}

// Option configures a Coordinator
type Option func(*Coordinator)

// WithClock replaces time.Now for provisional timestamps and ids
func WithClock(now func() time.Time) Option {
	return func(c *Coordinator) { c.now = now }
}

func WithLogger(logger *log.Logger) Option {
	return func(c *Coordinator) { c.logger = logger.WithComponent(log.ComponentLedger) }
}

func New(store storage.RecordStore, users UserSource, opts ...Option) *Coordinator {
	c := &Coordinator{
		store:  store,
		users:  users,
		logger: log.Discard(),
		now:    time.Now,
		seen:   map[string]struct{}{},
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

func (c *Coordinator) userID() (string, error) {
	id := c.users.UserID()
	if id == "" {
		return "", ErrNotAuthenticated
	}
	return id, nil
}

// Load replaces the list with the records matching f and refreshes the known
// categories from the same date range without the category restriction.
// On failure the list is left empty. A load superseded by a later one is discarded.
func (c *Coordinator) Load(ctx context.Context, f core.Filter) error {
	f = f.Clone()

	c.mu.Lock()
	c.filter = f
	c.loadGen++
	gen := c.loadGen
	c.mu.Unlock()

	userID, err := c.userID()
	if err != nil {
		c.mu.Lock()
		if gen == c.loadGen {
			c.items = nil
		}
		c.mu.Unlock()
		return err
	}

	var filtered, unfiltered []core.Record
	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		var err error
		filtered, err = c.store.ListRecords(gctx, userID, f)
		return err
	})
	g.Go(func() error {
		var err error
		unfiltered, err = c.store.ListRecords(gctx, userID, f.WithoutCategories())
		return err
	})
	err = g.Wait()

	c.mu.Lock()
	defer c.mu.Unlock()
	if gen != c.loadGen {
		return nil
	}
	if err != nil {
		c.items = nil
		c.logger.ErrorContext(ctx, "Failed to load records",
			log.FieldUserID, userID,
			log.FieldOperation, log.OpLoad,
			log.FieldError, err)
		return fmt.Errorf("load records: %w", err)
	}
	c.items = filtered
	for _, r := range unfiltered {
		c.addKnown(r.Category)
	}
	for _, r := range filtered {
		c.addKnown(r.Category)
	}
	return nil
}

// operation is one optimistic write: apply runs before the store call,
// then exactly one of commit or rollback runs after it.
type operation interface {
	name() string
	apply(c *Coordinator)
	call(ctx context.Context, store storage.RecordStore, userID string) (core.Record, error)
	commit(c *Coordinator, stored core.Record)
	rollback(c *Coordinator)
}

func (c *Coordinator) run(ctx context.Context, userID string, op operation) (core.Record, error) {
	c.mu.Lock()
	op.apply(c)
	c.mu.Unlock()

	stored, err := op.call(ctx, c.store, userID)

	c.mu.Lock()
	defer c.mu.Unlock()
	if err != nil {
		op.rollback(c)
		metrics.ObserveRollback(op.name())
		c.logger.WarnContext(ctx, "Optimistic change reverted",
			log.FieldOperation, op.name(),
			log.FieldUserID, userID,
			log.FieldError, err)
		return core.Record{}, err
	}
	op.commit(c, stored)
	return stored, nil
}

// Create validates the form, shows a provisional record when it matches the
// active filter and stores it.
func (c *Coordinator) Create(ctx context.Context, form core.FormValues) (core.Record, error) {
	draft, err := form.Validate()
	if err != nil {
		return core.Record{}, err
	}
	userID, err := c.userID()
	if err != nil {
		return core.Record{}, err
	}
	return c.run(ctx, userID, &createOp{draft: draft, userID: userID})
}

// Edit validates the form and updates record id in place, hiding it when it no
// longer matches the active filter.
func (c *Coordinator) Edit(ctx context.Context, id string, form core.FormValues) (core.Record, error) {
	draft, err := form.Validate()
	if err != nil {
		return core.Record{}, err
	}
	userID, err := c.userID()
	if err != nil {
		return core.Record{}, err
	}
	c.mu.Lock()
	found := c.indexOf(id) >= 0
	c.mu.Unlock()
	if !found {
		return core.Record{}, ErrRecordNotFound
	}
	return c.run(ctx, userID, &editOp{id: id, draft: draft})
}

// Delete removes record id at once and restores the whole list if the store refuses.
func (c *Coordinator) Delete(ctx context.Context, id string) error {
	userID, err := c.userID()
	if err != nil {
		return err
	}
	_, err = c.run(ctx, userID, &deleteOp{id: id})
	return err
}

// Items returns a copy of the visible list.
func (c *Coordinator) Items() []core.Record {
	c.mu.Lock()
	defer c.mu.Unlock()
	return slices.Clone(c.items)
}

// Record returns the visible record with id.
func (c *Coordinator) Record(id string) (core.Record, bool) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if i := c.indexOf(id); i >= 0 {
		return c.items[i], true
	}
	return core.Record{}, false
}

// Groups returns the visible list grouped by date.
func (c *Coordinator) Groups() []core.DateGroup {
	return core.GroupByDate(c.Items())
}

// Filter returns the active filter.
func (c *Coordinator) Filter() core.Filter {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.filter.Clone()
}

// Summary totals the visible records for the month containing ref.
func (c *Coordinator) Summary(ref time.Time) core.MonthSummary {
	return core.Summarize(c.Items(), ref)
}

// KnownCategories lists registry names followed by every other category seen, sorted.
func (c *Coordinator) KnownCategories() []string {
	names := core.CategoryNames()
	c.mu.Lock()
	var extra []string
	for name := range c.seen {
		if !slices.ContainsFunc(names, func(n string) bool { return strings.EqualFold(n, name) }) {
			extra = append(extra, name)
		}
	}
	c.mu.Unlock()
	sort.Strings(extra)
	return append(names, extra...)
}

func (c *Coordinator) addKnown(category string) {
	if category = strings.TrimSpace(category); category != "" {
		c.seen[category] = struct{}{}
	}
}

func (c *Coordinator) indexOf(id string) int {
	return slices.IndexFunc(c.items, func(r core.Record) bool { return r.ID == id })
}

func (c *Coordinator) tempID() string {
	c.seq++
	return fmt.Sprintf("%s%d-%d", core.TempIDPrefix, c.now().UnixMilli(), c.seq)
}
