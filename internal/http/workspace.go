package http

import (
	"context"
	"sync"
	"time"

	"tally/internal/auth"
	"tally/internal/cache"
	"tally/internal/core"
	"tally/internal/ledger"
	"tally/internal/log"
	"tally/internal/metrics"
	"tally/internal/storage"
)

// workspace is the per-session view: its auth state and its record list.
type workspace struct {
	state  *auth.State
	ledger *ledger.Coordinator

	loadMu    sync.Mutex
	loaded    bool
	loadedKey string
}

// workspaces holds one workspace per signed-in browser session in an LRU.
// Evicted or removed workspaces have their auth state closed.
type workspaces struct {
	auth    *auth.Manager
	records storage.RecordStore
	ttl     time.Duration
	logger  *log.Logger

	mu  sync.Mutex
	lru *cache.LRUCache[*workspace]
}

func newWorkspaces(manager *auth.Manager, records storage.RecordStore, max int, ttl time.Duration, logger *log.Logger) *workspaces {
	ws := &workspaces{auth: manager, records: records, ttl: ttl, logger: logger}
	ws.lru = cache.NewLRUCache[*workspace](max, ttl,
		cache.WithEvictHandler(func(_ string, w *workspace, _ cache.EvictReason) {
			w.state.Close()
		}))
	return ws
}

// get returns the workspace of sessionID, starting one when needed.
// A cached workspace re-checks its session on every call, so sessions ended by
// another process or dropped by the store stop being served. Workspaces of
// unknown or expired sessions are returned closed and are not kept.
func (ws *workspaces) get(ctx context.Context, sessionID string) *workspace {
	if w, ok := ws.lru.Get(sessionID); ok {
		if err := w.state.Refresh(ctx); err != nil {
			ws.logger.WarnContext(ctx, "Failed to refresh session", log.FieldError, err)
		}
		if w.state.Status() != auth.StatusAuthenticated {
			ws.remove(sessionID)
		}
		return w
	}

	state := auth.NewState(ws.auth.ProviderFor(sessionID))
	if err := state.Start(ctx); err != nil {
		ws.logger.WarnContext(ctx, "Failed to resolve session", log.FieldError, err)
	}
	w := &workspace{
		state:  state,
		ledger: ledger.New(ws.records, state, ledger.WithLogger(ws.logger)),
	}
	sess := state.Session()
	if state.Status() != auth.StatusAuthenticated || sess == nil {
		state.Close()
		return w
	}

	// never outlive the session itself
	ttl := ws.ttl
	if remaining := time.Until(sess.ExpiresAt); !sess.ExpiresAt.IsZero() && remaining < ttl {
		ttl = remaining
	}
	if ttl <= 0 {
		state.Close()
		return w
	}

	ws.mu.Lock()
	if existing, ok := ws.lru.Get(sessionID); ok {
		ws.mu.Unlock()
		state.Close()
		return existing
	}
	ws.lru.SetWithTTL(sessionID, w, ttl)
	ws.mu.Unlock()

	metrics.SetActiveWorkspaces(ws.lru.Size())
	return w
}

// remove closes and forgets the workspace of sessionID.
func (ws *workspaces) remove(sessionID string) {
	ws.lru.Delete(sessionID)
	metrics.SetActiveWorkspaces(ws.lru.Size())
}

func (ws *workspaces) size() int {
	return ws.lru.Size()
}

// CleanExpired lets the cache manager sweep idle workspaces.
func (ws *workspaces) CleanExpired() int {
	n := ws.lru.CleanExpired()
	metrics.SetActiveWorkspaces(ws.lru.Size())
	return n
}

// ensureLoaded loads the list once per filter. A different filter, or force, reloads.
func (w *workspace) ensureLoaded(ctx context.Context, f core.Filter, force bool) error {
	key := f.Query().Encode()

	w.loadMu.Lock()
	defer w.loadMu.Unlock()
	if !force && w.loaded && w.loadedKey == key {
		return nil
	}
	if err := w.ledger.Load(ctx, f); err != nil {
		w.loaded = false
		return err
	}
	w.loaded, w.loadedKey = true, key
	return nil
}
