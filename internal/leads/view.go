package leads

import (
	"context"
	"errors"
	"log/slog"
	"sync"
	"time"

	"github.com/loandesk/backoffice/internal/shared"
)

// DefaultPageSize is used when no page size is configured.
const DefaultPageSize = 10

// LoadState is the lifecycle of the lead listing.
type LoadState int

const (
	StateIdle LoadState = iota
	StateLoading
	StateReady
	StateError
)

func (s LoadState) String() string {
	switch s {
	case StateIdle:
		return "idle"
	case StateLoading:
		return "loading"
	case StateReady:
		return "ready"
	case StateError:
		return "error"
	}
	return "unknown"
}

// Fetch outcomes reported to a FetchObserver.
const (
	OutcomeOK        = "ok"
	OutcomeMalformed = "malformed"
	OutcomeError     = "error"
)

// FetchObserver receives fetch instrumentation.
type FetchObserver interface {
	ObserveFetch(outcome string, elapsed time.Duration)
	ObserveStale()
}

type noopObserver struct{}

func (noopObserver) ObserveFetch(string, time.Duration) {}
func (noopObserver) ObserveStale()                      {}

// ViewConfig tunes a ResultView.
type ViewConfig struct {
	PageSize int
	Fields   FieldMap
	Baseline Baseline
	Logger   *slog.Logger
	Observer FetchObserver
}

// ResultView drives the lead listing: it mutates FilterState, issues
// fetches and reconciles results into render-ready state. Every method is
// safe for concurrent use; fetches run outside the lock and only the
// completion of the most recently issued request is applied.
type ResultView struct {
	mu       sync.Mutex
	fetcher  Fetcher
	scope    Scope
	filters  *FilterState
	fields   FieldMap
	baseline Baseline
	logger   *slog.Logger
	observer FetchObserver

	state         LoadState
	seq           uint64
	lastReq       Request
	result        ListingResult
	totalPages    int
	options       FilterOptionSet
	optionsLoaded bool
	err           error
	retryable     bool
}

// NewResultView builds an idle view for scope.
func NewResultView(fetcher Fetcher, scope Scope, cfg ViewConfig) *ResultView {
	if cfg.Logger == nil {
		cfg.Logger = slog.Default()
	}
	if cfg.Observer == nil {
		cfg.Observer = noopObserver{}
	}
	if cfg.Fields == nil {
		cfg.Fields = DefaultFieldMap
	}
	v := &ResultView{
		fetcher:    fetcher,
		scope:      scope,
		filters:    NewFilterState(cfg.PageSize),
		fields:     cfg.Fields,
		baseline:   cfg.Baseline,
		logger:     cfg.Logger,
		observer:   cfg.Observer,
		totalPages: 1,
		result:     ListingResult{Rows: []Record{}},
	}
	v.options = DeriveOptions(nil, v.fields, v.baseline)
	return v
}

// Snapshot is an immutable, render-ready copy of the view.
type Snapshot struct {
	State             LoadState
	Rows              []Record
	TotalCount        int
	Pagination        shared.Pagination
	Applied           FilterCriteria
	Draft             FilterCriteria
	Editing           bool
	Options           FilterOptionSet
	OptionsFromServer bool
	Degraded          bool
	Err               error
	Retryable         bool
}

// ErrorMessage is the banner text for the current error, if any.
func (s Snapshot) ErrorMessage() string {
	switch {
	case s.Err == nil:
		return ""
	case errors.Is(s.Err, ErrMissingIdentity):
		return "You are not logged in. Sign in again to browse leads."
	case IsTransport(s.Err):
		return "Could not load leads. Check your connection and retry."
	default:
		return "Could not load leads."
	}
}

// Snapshot copies the current state.
func (v *ResultView) Snapshot() Snapshot {
	v.mu.Lock()
	defer v.mu.Unlock()
	return v.snapshotLocked()
}

func (v *ResultView) snapshotLocked() Snapshot {
	cursor := v.filters.Cursor()
	draft, editing := v.filters.Draft()
	return Snapshot{
		State:             v.state,
		Rows:              append([]Record(nil), v.result.Rows...),
		TotalCount:        v.result.TotalCount,
		Pagination:        shared.NewPagination(cursor.Page, cursor.PageSize, v.result.TotalCount),
		Applied:           v.filters.Applied(),
		Draft:             draft,
		Editing:           editing,
		Options:           v.options.Clone(),
		OptionsFromServer: v.optionsLoaded,
		Degraded:          v.result.Malformed,
		Err:               v.err,
		Retryable:         v.retryable,
	}
}

// Mount performs the initial load. Later calls only return the snapshot.
func (v *ResultView) Mount(ctx context.Context) Snapshot {
	return v.mutate(ctx, func() bool {
		return v.state == StateIdle
	})
}

// Reload refetches the current criteria and cursor.
func (v *ResultView) Reload(ctx context.Context) Snapshot {
	return v.mutate(ctx, func() bool { return true })
}

// Next moves one page forward; past the last page it is a no-op.
func (v *ResultView) Next(ctx context.Context) Snapshot {
	return v.mutate(ctx, func() bool {
		page := v.filters.Cursor().Page
		if page >= v.totalPages {
			return false
		}
		v.filters.SetPage(page + 1)
		return true
	})
}

// Previous moves one page back; on page 1 it is a no-op.
func (v *ResultView) Previous(ctx context.Context) Snapshot {
	return v.mutate(ctx, func() bool {
		page := v.filters.Cursor().Page
		if page <= 1 {
			return false
		}
		v.filters.SetPage(page - 1)
		return true
	})
}

// GoToPage jumps to page when it lies within [1, totalPages].
func (v *ResultView) GoToPage(ctx context.Context, page int) Snapshot {
	return v.mutate(ctx, func() bool {
		if page < 1 || page > v.totalPages || page == v.filters.Cursor().Page {
			return false
		}
		v.filters.SetPage(page)
		return true
	})
}

// SetPageSize changes the page size and reloads from page 1.
func (v *ResultView) SetPageSize(ctx context.Context, size int) Snapshot {
	return v.mutate(ctx, func() bool {
		if size <= 0 || size == v.filters.Cursor().PageSize {
			return false
		}
		v.filters.SetPageSize(size)
		return true
	})
}

// Search applies quick-search text and reloads from page 1.
func (v *ResultView) Search(ctx context.Context, text string) Snapshot {
	return v.mutate(ctx, func() bool {
		v.filters.SetSearch(text)
		return true
	})
}

// ApplyEdit commits the pending draft and reloads from page 1.
func (v *ResultView) ApplyEdit(ctx context.Context) Snapshot {
	return v.mutate(ctx, v.filters.CommitEdit)
}

// Retry reissues the failed request with the same parameters. It does
// nothing unless the view is in a retryable error state.
func (v *ResultView) Retry(ctx context.Context) Snapshot {
	v.mu.Lock()
	if v.state != StateError || !v.retryable {
		defer v.mu.Unlock()
		return v.snapshotLocked()
	}
	req := v.lastReq
	seq := v.issueLocked(req)
	v.mu.Unlock()
	return v.run(ctx, seq, req)
}

// BeginEdit opens the filter draft from the applied criteria.
func (v *ResultView) BeginEdit() Snapshot {
	return v.edit(v.filters.BeginEdit)
}

// Toggle flips value in the draft's field.
func (v *ResultView) Toggle(field FilterField, value string) Snapshot {
	return v.edit(func() { v.filters.Toggle(field, value) })
}

// SetDraft replaces the whole draft.
func (v *ResultView) SetDraft(c FilterCriteria) Snapshot {
	return v.edit(func() { v.filters.ReplaceDraft(c) })
}

// ClearDraft empties the draft's selections without fetching.
func (v *ResultView) ClearDraft() Snapshot {
	return v.edit(v.filters.ClearPendingDraft)
}

// DiscardEdit drops the draft.
func (v *ResultView) DiscardEdit() Snapshot {
	return v.edit(v.filters.DiscardEdit)
}

func (v *ResultView) edit(fn func()) Snapshot {
	v.mu.Lock()
	defer v.mu.Unlock()
	fn()
	return v.snapshotLocked()
}

// mutate applies change under the lock and, when it reports a change,
// issues a fetch for the resulting state.
func (v *ResultView) mutate(ctx context.Context, change func() bool) Snapshot {
	v.mu.Lock()
	if !v.scope.Valid() {
		defer v.mu.Unlock()
		v.state = StateError
		v.err = ErrMissingIdentity
		v.retryable = false
		return v.snapshotLocked()
	}
	if !change() {
		defer v.mu.Unlock()
		return v.snapshotLocked()
	}
	req := Request{Scope: v.scope, Criteria: v.filters.Applied(), Cursor: v.filters.Cursor()}
	seq := v.issueLocked(req)
	v.mu.Unlock()
	return v.run(ctx, seq, req)
}

func (v *ResultView) issueLocked(req Request) uint64 {
	v.seq++
	v.lastReq = req
	v.state = StateLoading
	return v.seq
}

// run fetches req and applies the result. When the result shrinks the
// page count below the requested page, the clamped page is fetched too.
func (v *ResultView) run(ctx context.Context, seq uint64, req Request) Snapshot {
	for {
		start := time.Now()
		result, err := v.fetcher.Fetch(ctx, req)
		elapsed := time.Since(start)

		v.mu.Lock()
		if !v.complete(seq, req, result, err, elapsed) {
			snap := v.snapshotLocked()
			v.mu.Unlock()
			return snap
		}
		req = Request{Scope: v.scope, Criteria: v.filters.Applied(), Cursor: v.filters.Cursor()}
		seq = v.issueLocked(req)
		v.mu.Unlock()
		v.logger.Debug("refetch clamped page", slog.Int("page", req.Cursor.Page))
	}
}

// complete applies a fetch outcome and reports whether clamping moved the
// page away from the one that was fetched.
func (v *ResultView) complete(seq uint64, req Request, result ListingResult, err error, elapsed time.Duration) bool {
	if seq != v.seq {
		v.observer.ObserveStale()
		v.logger.Debug("discard stale listing result", slog.Uint64("seq", seq), slog.Uint64("latest", v.seq))
		return false
	}
	if err != nil {
		v.observer.ObserveFetch(OutcomeError, elapsed)
		v.logger.Warn("fetch leads", slog.Any("error", err), slog.String("org_id", req.Scope.OrgID), slog.Int("page", req.Cursor.Page))
		v.state = StateError
		v.err = err
		v.retryable = true
		return false
	}

	outcome := OutcomeOK
	if result.Malformed {
		outcome = OutcomeMalformed
	}
	v.observer.ObserveFetch(outcome, elapsed)

	if result.Rows == nil {
		result.Rows = []Record{}
	}
	v.result = result
	v.totalPages = shared.TotalPages(result.TotalCount, req.Cursor.PageSize)
	v.filters.ClampPage(v.totalPages)
	switch {
	case result.FilterOptions != nil:
		v.options = result.FilterOptions.Clone()
		v.optionsLoaded = true
	case !v.optionsLoaded:
		v.options = DeriveOptions(result.Rows, v.fields, v.baseline)
	}
	v.state = StateReady
	v.err = nil
	v.retryable = false
	return v.filters.Cursor().Page != req.Cursor.Page
}
