package leads

import (
	"sync"
	"time"
)

type workspaceEntry struct {
	view     *ResultView
	scope    Scope
	lastSeen time.Time
}

// Workspaces keeps one ResultView per browser session. Entries idle for
// longer than ttl are evicted on access.
type Workspaces struct {
	mu      sync.Mutex
	entries map[string]*workspaceEntry
	ttl     time.Duration
	build   func(Scope) *ResultView
	clock   func() time.Time
}

// NewWorkspaces constructs a registry; build creates views for new sessions.
func NewWorkspaces(ttl time.Duration, build func(Scope) *ResultView) *Workspaces {
	return &Workspaces{
		entries: make(map[string]*workspaceEntry),
		ttl:     ttl,
		build:   build,
		clock:   time.Now,
	}
}

// Get returns the session's view, creating it when missing. A changed
// scope (another user signed in on the same session) starts a fresh view.
func (w *Workspaces) Get(sessionID string, scope Scope) *ResultView {
	w.mu.Lock()
	defer w.mu.Unlock()
	now := w.clock()
	w.evictLocked(now)
	entry, ok := w.entries[sessionID]
	if !ok || entry.scope != scope {
		entry = &workspaceEntry{view: w.build(scope), scope: scope}
		w.entries[sessionID] = entry
	}
	entry.lastSeen = now
	return entry.view
}

// Lookup returns an existing view without creating one.
func (w *Workspaces) Lookup(sessionID string) (*ResultView, error) {
	w.mu.Lock()
	defer w.mu.Unlock()
	entry, ok := w.entries[sessionID]
	if !ok {
		return nil, ErrNoView
	}
	entry.lastSeen = w.clock()
	return entry.view, nil
}

// Len returns the number of live workspaces.
func (w *Workspaces) Len() int {
	w.mu.Lock()
	defer w.mu.Unlock()
	return len(w.entries)
}

func (w *Workspaces) evictLocked(now time.Time) {
	if w.ttl <= 0 {
		return
	}
	for id, entry := range w.entries {
		if now.Sub(entry.lastSeen) > w.ttl {
			delete(w.entries, id)
		}
	}
}
