package leads

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/goleak"
)

var testScope = Scope{OrgID: "org-1", UserID: "user-1"}

type fakeFetcher struct {
	mu      sync.Mutex
	calls   []Request
	gates   map[int]chan struct{}
	started chan Request
	handler func(Request) (ListingResult, error)
}

func newFakeFetcher(handler func(Request) (ListingResult, error)) *fakeFetcher {
	return &fakeFetcher{gates: map[int]chan struct{}{}, handler: handler}
}

func (f *fakeFetcher) Fetch(ctx context.Context, req Request) (ListingResult, error) {
	f.mu.Lock()
	f.calls = append(f.calls, req)
	gate := f.gates[req.Cursor.Page]
	started := f.started
	handler := f.handler
	f.mu.Unlock()

	if started != nil {
		started <- req
	}
	if gate != nil {
		select {
		case <-gate:
		case <-ctx.Done():
			return ListingResult{}, &TransportError{Err: ctx.Err()}
		}
	}
	return handler(req)
}

func (f *fakeFetcher) setHandler(handler func(Request) (ListingResult, error)) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.handler = handler
}

func (f *fakeFetcher) callCount() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return len(f.calls)
}

func (f *fakeFetcher) lastCall() Request {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.calls[len(f.calls)-1]
}

func pageRows(page, n int) []Record {
	rows := make([]Record, n)
	for i := range rows {
		rows[i] = Record{"name": fmt.Sprintf("p%d-%d", page, i), "bank": fmt.Sprintf("Bank %d", page)}
	}
	return rows
}

// pagedListing serves total rows split into pages of the requested size.
func pagedListing(total int) func(Request) (ListingResult, error) {
	return func(req Request) (ListingResult, error) {
		start := (req.Cursor.Page - 1) * req.Cursor.PageSize
		n := total - start
		if n > req.Cursor.PageSize {
			n = req.Cursor.PageSize
		}
		if n < 0 {
			n = 0
		}
		return ListingResult{Rows: pageRows(req.Cursor.Page, n), TotalCount: total}, nil
	}
}

type countingObserver struct {
	mu       sync.Mutex
	outcomes []string
	stale    int
}

func (o *countingObserver) ObserveFetch(outcome string, _ time.Duration) {
	o.mu.Lock()
	defer o.mu.Unlock()
	o.outcomes = append(o.outcomes, outcome)
}

func (o *countingObserver) ObserveStale() {
	o.mu.Lock()
	defer o.mu.Unlock()
	o.stale++
}

func newTestView(f Fetcher, obs FetchObserver) *ResultView {
	return NewResultView(f, testScope, ViewConfig{PageSize: 10, Baseline: DefaultBaseline, Observer: obs})
}

func TestResultViewMountLoadsFirstPage(t *testing.T) {
	f := newFakeFetcher(pagedListing(45))
	v := newTestView(f, nil)

	assert.Equal(t, StateIdle, v.Snapshot().State)
	snap := v.Mount(context.Background())

	require.Equal(t, StateReady, snap.State)
	assert.Len(t, snap.Rows, 10)
	assert.Equal(t, 45, snap.TotalCount)
	assert.Equal(t, 5, snap.Pagination.TotalPages)
	assert.Equal(t, 1, snap.Pagination.Page)
	assert.Equal(t, testScope, f.lastCall().Scope)

	v.Mount(context.Background())
	assert.Equal(t, 1, f.callCount(), "mount only fetches once")
}

func TestResultViewNextStopsAtLastPage(t *testing.T) {
	f := newFakeFetcher(pagedListing(45))
	v := newTestView(f, nil)
	v.Mount(context.Background())

	var snap Snapshot
	for i := 0; i < 5; i++ {
		snap = v.Next(context.Background())
	}
	assert.Equal(t, 5, snap.Pagination.Page)
	assert.Len(t, snap.Rows, 5)
	calls := f.callCount()

	snap = v.Next(context.Background())
	assert.Equal(t, 5, snap.Pagination.Page)
	assert.Equal(t, calls, f.callCount(), "next past the last page must not fetch")
}

func TestResultViewPreviousAndGoToPageBounds(t *testing.T) {
	f := newFakeFetcher(pagedListing(45))
	v := newTestView(f, nil)
	v.Mount(context.Background())

	v.Previous(context.Background())
	v.GoToPage(context.Background(), 0)
	v.GoToPage(context.Background(), 6)
	v.GoToPage(context.Background(), 1)
	assert.Equal(t, 1, f.callCount())

	snap := v.GoToPage(context.Background(), 4)
	assert.Equal(t, 4, snap.Pagination.Page)
	assert.Equal(t, 4, f.lastCall().Cursor.Page)

	snap = v.Previous(context.Background())
	assert.Equal(t, 3, snap.Pagination.Page)
}

func TestResultViewTotalPagesNeverBelowOne(t *testing.T) {
	f := newFakeFetcher(pagedListing(0))
	v := newTestView(f, nil)
	snap := v.Mount(context.Background())
	assert.Equal(t, 1, snap.Pagination.TotalPages)
	assert.Empty(t, snap.Rows)
	assert.False(t, snap.Pagination.HasNext())
}

func TestResultViewStaleResponseDiscarded(t *testing.T) {
	defer goleak.VerifyNone(t, goleak.IgnoreCurrent())

	obs := &countingObserver{}
	f := newFakeFetcher(pagedListing(45))
	v := newTestView(f, obs)
	v.Mount(context.Background())
	v.GoToPage(context.Background(), 3)

	release := make(chan struct{})
	f.mu.Lock()
	f.gates[2] = release
	f.started = make(chan Request, 4)
	f.mu.Unlock()

	done := make(chan Snapshot)
	go func() {
		done <- v.GoToPage(context.Background(), 2)
	}()
	req := <-f.started
	require.Equal(t, 2, req.Cursor.Page)

	snap := v.GoToPage(context.Background(), 1)
	<-f.started
	require.Equal(t, StateReady, snap.State)
	assert.Equal(t, "p1-0", snap.Rows[0].Field("name"))

	close(release)
	late := <-done

	assert.Equal(t, 1, late.Pagination.Page)
	assert.Equal(t, "p1-0", late.Rows[0].Field("name"), "late page-2 response must not replace page 1")
	final := v.Snapshot()
	assert.Equal(t, "p1-0", final.Rows[0].Field("name"))
	assert.Equal(t, StateReady, final.State)
	assert.Equal(t, 1, obs.stale)
}

func TestResultViewErrorKeepsRowsAndRetries(t *testing.T) {
	obs := &countingObserver{}
	f := newFakeFetcher(pagedListing(45))
	v := newTestView(f, obs)
	v.Mount(context.Background())

	f.setHandler(func(Request) (ListingResult, error) {
		return ListingResult{}, &TransportError{StatusCode: 503}
	})
	snap := v.Next(context.Background())

	require.Equal(t, StateError, snap.State)
	assert.True(t, snap.Retryable)
	assert.True(t, IsTransport(snap.Err))
	assert.Equal(t, "p1-0", snap.Rows[0].Field("name"), "previous rows stay visible")
	assert.NotEmpty(t, snap.ErrorMessage())
	failed := f.lastCall()

	f.setHandler(pagedListing(45))
	snap = v.Retry(context.Background())
	require.Equal(t, StateReady, snap.State)
	assert.Nil(t, snap.Err)
	assert.Equal(t, failed, f.lastCall(), "retry reissues the same request")
	assert.Equal(t, "p2-0", snap.Rows[0].Field("name"))

	calls := f.callCount()
	v.Retry(context.Background())
	assert.Equal(t, calls, f.callCount(), "retry is a no-op outside the error state")
	assert.Equal(t, []string{OutcomeOK, OutcomeError, OutcomeOK}, obs.outcomes)
}

func TestResultViewMissingIdentity(t *testing.T) {
	f := newFakeFetcher(pagedListing(45))
	v := NewResultView(f, Scope{OrgID: "org-1"}, ViewConfig{})

	snap := v.Mount(context.Background())
	require.Equal(t, StateError, snap.State)
	assert.True(t, errors.Is(snap.Err, ErrMissingIdentity))
	assert.False(t, snap.Retryable)

	v.Retry(context.Background())
	v.Reload(context.Background())
	assert.Zero(t, f.callCount())
}

func TestResultViewMalformedIsDegradedEmpty(t *testing.T) {
	obs := &countingObserver{}
	f := newFakeFetcher(func(Request) (ListingResult, error) {
		return ListingResult{Rows: []Record{}, Malformed: true}, nil
	})
	v := newTestView(f, obs)
	snap := v.Mount(context.Background())

	assert.Equal(t, StateReady, snap.State)
	assert.True(t, snap.Degraded)
	assert.Nil(t, snap.Err)
	assert.Empty(t, snap.Rows)
	assert.Equal(t, []string{OutcomeMalformed}, obs.outcomes)
}

func TestResultViewServerOptionsLatch(t *testing.T) {
	server := &FilterOptionSet{Segments: []string{"Gold"}, Banks: []string{"Kotak"}}
	f := newFakeFetcher(func(req Request) (ListingResult, error) {
		return ListingResult{Rows: pageRows(1, 3), TotalCount: 30, FilterOptions: server}, nil
	})
	v := newTestView(f, nil)

	initial := v.Snapshot()
	assert.Equal(t, DefaultBaseline.Categories, initial.Options.Categories)
	assert.False(t, initial.OptionsFromServer)

	snap := v.Mount(context.Background())
	require.True(t, snap.OptionsFromServer)
	assert.Equal(t, []string{"Kotak"}, snap.Options.Banks)

	f.setHandler(func(req Request) (ListingResult, error) {
		return ListingResult{Rows: pageRows(2, 3), TotalCount: 30}, nil
	})
	snap = v.Next(context.Background())
	assert.Equal(t, []string{"Gold"}, snap.Options.Segments)
	assert.Equal(t, []string{"Kotak"}, snap.Options.Banks, "options must not be rederived once the server supplied them")
}

func TestResultViewDerivesOptionsFromRows(t *testing.T) {
	f := newFakeFetcher(pagedListing(45))
	v := newTestView(f, nil)
	snap := v.Mount(context.Background())
	assert.Equal(t, []string{"Bank 1"}, snap.Options.Banks)

	snap = v.Next(context.Background())
	assert.Equal(t, []string{"Bank 2"}, snap.Options.Banks)
	assert.False(t, snap.OptionsFromServer)
}

func TestResultViewApplyEditFetchesFromFirstPage(t *testing.T) {
	f := newFakeFetcher(pagedListing(45))
	v := newTestView(f, nil)
	v.Mount(context.Background())
	v.GoToPage(context.Background(), 3)

	calls := f.callCount()
	v.BeginEdit()
	v.Toggle(FieldBanks, "SBI")
	snap := v.SetDraft(FilterCriteria{Banks: NewStringSet("SBI"), MaxAmount: floatPtr(5000)})
	assert.True(t, snap.Editing)
	assert.Equal(t, calls, f.callCount(), "draft edits never fetch")

	snap = v.ApplyEdit(context.Background())
	assert.Equal(t, 1, snap.Pagination.Page)
	assert.False(t, snap.Editing)
	req := f.lastCall()
	assert.Equal(t, 1, req.Cursor.Page)
	assert.Equal(t, []string{"SBI"}, req.Criteria.Values(FieldBanks))
	assert.Equal(t, 2, snap.Applied.ActiveCount(), "bank and amount groups are active")

	calls = f.callCount()
	v.ApplyEdit(context.Background())
	assert.Equal(t, calls, f.callCount(), "nothing changed on page 1 without a draft")

	v.GoToPage(context.Background(), 2)
	snap = v.ApplyEdit(context.Background())
	assert.Equal(t, 1, snap.Pagination.Page, "applying always returns to page 1")
	assert.Equal(t, 1, f.lastCall().Cursor.Page)
	assert.Equal(t, []string{"SBI"}, f.lastCall().Criteria.Values(FieldBanks))
}

func TestResultViewDiscardAndClearDraft(t *testing.T) {
	f := newFakeFetcher(pagedListing(45))
	v := newTestView(f, nil)
	v.Mount(context.Background())

	v.Toggle(FieldSegments, "Salaried")
	snap := v.DiscardEdit()
	assert.False(t, snap.Editing)
	assert.True(t, snap.Applied.IsZero())

	v.Toggle(FieldSegments, "Salaried")
	snap = v.ClearDraft()
	assert.True(t, snap.Editing)
	assert.Empty(t, snap.Draft.Values(FieldSegments))
	assert.Equal(t, 1, f.callCount())
}

func TestResultViewSearchAndPageSize(t *testing.T) {
	f := newFakeFetcher(pagedListing(45))
	v := newTestView(f, nil)
	v.Mount(context.Background())
	v.GoToPage(context.Background(), 2)

	snap := v.Search(context.Background(), " asha ")
	assert.Equal(t, 1, snap.Pagination.Page)
	assert.Equal(t, "asha", f.lastCall().Criteria.Search)

	v.GoToPage(context.Background(), 3)
	snap = v.SetPageSize(context.Background(), 25)
	assert.Equal(t, 1, snap.Pagination.Page)
	assert.Equal(t, 2, snap.Pagination.TotalPages)
	assert.Equal(t, PageCursor{Page: 1, PageSize: 25}, f.lastCall().Cursor)

	calls := f.callCount()
	v.SetPageSize(context.Background(), 25)
	v.SetPageSize(context.Background(), 0)
	assert.Equal(t, calls, f.callCount())
}

func TestResultViewClampsWhenTotalShrinks(t *testing.T) {
	f := newFakeFetcher(pagedListing(45))
	v := newTestView(f, nil)
	v.Mount(context.Background())
	v.GoToPage(context.Background(), 5)

	f.setHandler(pagedListing(12))
	calls := f.callCount()
	snap := v.Reload(context.Background())

	require.Equal(t, StateReady, snap.State)
	assert.Equal(t, 2, snap.Pagination.TotalPages)
	assert.Equal(t, 2, snap.Pagination.Page)
	assert.Equal(t, 12, snap.TotalCount)
	require.Len(t, snap.Rows, 2, "rows belong to the clamped page")
	assert.Equal(t, "p2-0", snap.Rows[0].Field("name"))
	assert.Equal(t, calls+2, f.callCount())
	assert.Equal(t, 2, f.lastCall().Cursor.Page)

	calls = f.callCount()
	v.Reload(context.Background())
	assert.Equal(t, calls+1, f.callCount(), "no refetch once the page is in range")
}

func TestLoadStateString(t *testing.T) {
	assert.Equal(t, "idle", StateIdle.String())
	assert.Equal(t, "loading", StateLoading.String())
	assert.Equal(t, "ready", StateReady.String())
	assert.Equal(t, "error", StateError.String())
	assert.Equal(t, "unknown", LoadState(42).String())
}
