package leads

import (
	"context"
	"errors"
	"math"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestEncodeQueryOmitsEmptyValues(t *testing.T) {
	q := EncodeQuery(FilterCriteria{MaxAmount: floatPtr(5000)}, PageCursor{Page: 2, PageSize: 25})

	_, hasMin := q["minAmount"]
	assert.False(t, hasMin, "nil lower bound is omitted")
	assert.Equal(t, "5000", q.Get("maxAmount"))
	assert.Equal(t, "2", q.Get("page"))
	assert.Equal(t, "25", q.Get("limit"))
	for _, key := range []string{"search", "segments", "categories", "banks", "loanTypes"} {
		_, ok := q[key]
		assert.False(t, ok, key)
	}
}

func TestEncodeQueryKeepsZeroBounds(t *testing.T) {
	q := EncodeQuery(FilterCriteria{MinAmount: floatPtr(0), MaxAmount: floatPtr(0)}, PageCursor{Page: 1, PageSize: 10})

	require.Contains(t, q, "minAmount", "a zero bound is still a bound")
	assert.Equal(t, "0", q.Get("minAmount"))
	assert.Equal(t, "0", q.Get("maxAmount"))

	q = EncodeQuery(FilterCriteria{}, PageCursor{Page: 1, PageSize: 10})
	assert.NotContains(t, q, "minAmount")
	assert.NotContains(t, q, "maxAmount")
}

func TestEncodeQueryListsAreSortedAndJoined(t *testing.T) {
	c := FilterCriteria{
		Search:    "  ravi ",
		Banks:     NewStringSet("SBI", "Axis", "HDFC"),
		LoanTypes: NewStringSet("Home"),
		MinAmount: floatPtr(1500.75),
	}
	q := EncodeQuery(c, PageCursor{})

	assert.Equal(t, "ravi", q.Get("search"))
	assert.Equal(t, "Axis,HDFC,SBI", q.Get("banks"))
	assert.Equal(t, "Home", q.Get("loanTypes"))
	assert.Equal(t, "1500.75", q.Get("minAmount"))
	assert.Equal(t, "1", q.Get("page"))
	assert.Equal(t, "10", q.Get("limit"))
}

func TestNormalizeBareArray(t *testing.T) {
	got := Normalize([]byte(`[{"name":"a"},{"name":"b","amount":10},{"name":"c"}]`))

	assert.False(t, got.Malformed)
	assert.Equal(t, 3, got.TotalCount)
	assert.Nil(t, got.FilterOptions)
	require.Len(t, got.Rows, 3)
	assert.Equal(t, Record{"name": "b", "amount": float64(10)}, got.Rows[1])
}

func TestNormalizeEnvelope(t *testing.T) {
	body := `{"success":true,"data":[{"name":"a"}],"totalCount":41,
		"filterOptions":{"segments":["Salaried","Gold","Salaried"],"banks":["SBI"]}}`
	got := Normalize([]byte(body))

	assert.False(t, got.Malformed)
	assert.Equal(t, 41, got.TotalCount)
	require.NotNil(t, got.FilterOptions)
	assert.Equal(t, []string{"Gold", "Salaried"}, got.FilterOptions.Segments)
	assert.Equal(t, []string{"SBI"}, got.FilterOptions.Banks)
}

func TestNormalizeEnvelopeDefaults(t *testing.T) {
	got := Normalize([]byte(`{"success":true,"data":[{"a":1},{"a":2}],"filterOptions":null}`))
	assert.Equal(t, 2, got.TotalCount)
	assert.Nil(t, got.FilterOptions)

	got = Normalize([]byte(`{"success":true,"data":[],"totalCount":-4}`))
	assert.Equal(t, 0, got.TotalCount)
	assert.NotNil(t, got.Rows)

	got = Normalize([]byte(`{"success":true,"data":[],"totalCount":1e300}`))
	assert.Equal(t, math.MaxInt32, got.TotalCount)
	got = Normalize([]byte(`{"success":true,"data":[],"totalCount":-1e300}`))
	assert.Equal(t, 0, got.TotalCount)
}

func TestNormalizeMalformed(t *testing.T) {
	cases := map[string]string{
		"empty":         ``,
		"failure":       `{"success":false,"data":[]}`,
		"no success":    `{"data":[]}`,
		"object data":   `{"success":true,"data":{"rows":[]}}`,
		"scalar":        `42`,
		"html":          `<html>oops</html>`,
		"broken json":   `[{"name":`,
		"array scalars": `[1,2,3]`,
	}
	for name, body := range cases {
		t.Run(name, func(t *testing.T) {
			got := Normalize([]byte(body))
			assert.True(t, got.Malformed)
			assert.NotNil(t, got.Rows)
			assert.Empty(t, got.Rows)
			assert.Zero(t, got.TotalCount)
		})
	}
}

func TestClientFetchSendsScopeAndQuery(t *testing.T) {
	var captured *http.Request
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		captured = r
		w.Header().Set("Content-Type", "application/json")
		_, _ = w.Write([]byte(`{"success":true,"data":[{"name":"a"}],"totalCount":1}`))
	}))
	defer srv.Close()

	client := NewClient(srv.URL+"/api/leads", time.Second, nil)
	got, err := client.Fetch(context.Background(), Request{
		Scope:    testScope,
		Criteria: FilterCriteria{Segments: NewStringSet("Salaried")},
		Cursor:   PageCursor{Page: 3, PageSize: 10},
	})

	require.NoError(t, err)
	assert.Equal(t, 1, got.TotalCount)
	require.NotNil(t, captured)
	assert.Equal(t, "/api/leads", captured.URL.Path)
	assert.Equal(t, "org-1", captured.Header.Get("X-Org-ID"))
	assert.Equal(t, "user-1", captured.Header.Get("X-User-ID"))
	assert.NotEmpty(t, captured.Header.Get("X-Request-ID"))
	assert.Equal(t, "Salaried", captured.URL.Query().Get("segments"))
	assert.Equal(t, "3", captured.URL.Query().Get("page"))
}

func TestClientFetchMalformedIsNotAnError(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		_, _ = w.Write([]byte(`{"status":"maintenance"}`))
	}))
	defer srv.Close()

	got, err := NewClient(srv.URL, time.Second, nil).Fetch(context.Background(), Request{Scope: testScope})
	require.NoError(t, err)
	assert.True(t, got.Malformed)
}

func TestClientFetchTransportErrors(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		http.Error(w, "down", http.StatusServiceUnavailable)
	}))
	defer srv.Close()

	_, err := NewClient(srv.URL, time.Second, nil).Fetch(context.Background(), Request{Scope: testScope})
	var te *TransportError
	require.True(t, errors.As(err, &te))
	assert.Equal(t, http.StatusServiceUnavailable, te.StatusCode)
	assert.Contains(t, err.Error(), "503")

	closed := httptest.NewServer(http.NotFoundHandler())
	addr := closed.URL
	closed.Close()
	_, err = NewClient(addr, time.Second, nil).Fetch(context.Background(), Request{Scope: testScope})
	assert.True(t, IsTransport(err))
}
