package leads

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"time"

	"github.com/google/uuid"
)

const maxResponseBytes = 16 << 20

// Scope identifies whose leads are listed.
type Scope struct {
	OrgID  string
	UserID string
}

// Valid reports whether both identifiers are present.
func (s Scope) Valid() bool {
	return strings.TrimSpace(s.OrgID) != "" && strings.TrimSpace(s.UserID) != ""
}

// Request is an immutable snapshot of everything one fetch needs.
type Request struct {
	Scope    Scope
	Criteria FilterCriteria
	Cursor   PageCursor
}

// ListingResult is the normalised response of one fetch.
type ListingResult struct {
	Rows          []Record         `json:"rows"`
	TotalCount    int              `json:"totalCount"`
	FilterOptions *FilterOptionSet `json:"filterOptions,omitempty"`
	// Malformed marks an unrecognised response shape that was degraded to
	// an empty result.
	Malformed bool `json:"-"`
}

// Fetcher loads one page of leads.
type Fetcher interface {
	Fetch(ctx context.Context, req Request) (ListingResult, error)
}

// EncodeQuery serialises criteria and cursor into listing query
// parameters. Empty lists and nil bounds are omitted.
func EncodeQuery(c FilterCriteria, cursor PageCursor) url.Values {
	q := url.Values{}
	if s := strings.TrimSpace(c.Search); s != "" {
		q.Set("search", s)
	}
	for _, field := range FilterFields {
		if values := c.Values(field); len(values) > 0 {
			q.Set(string(field), strings.Join(values, ","))
		}
	}
	if c.MinAmount != nil {
		q.Set("minAmount", formatAmount(*c.MinAmount))
	}
	if c.MaxAmount != nil {
		q.Set("maxAmount", formatAmount(*c.MaxAmount))
	}
	page := cursor.Page
	if page < 1 {
		page = 1
	}
	limit := cursor.PageSize
	if limit <= 0 {
		limit = DefaultPageSize
	}
	q.Set("page", strconv.Itoa(page))
	q.Set("limit", strconv.Itoa(limit))
	return q
}

func formatAmount(v float64) string {
	return strconv.FormatFloat(v, 'f', -1, 64)
}

// Client fetches leads from the remote listing endpoint.
type Client struct {
	endpoint   string
	httpClient *http.Client
	logger     *slog.Logger
}

// NewClient constructs a listing client. Timeouts belong to the transport.
func NewClient(endpoint string, timeout time.Duration, logger *slog.Logger) *Client {
	if timeout <= 0 {
		timeout = 15 * time.Second
	}
	if logger == nil {
		logger = slog.Default()
	}
	return &Client{
		endpoint:   endpoint,
		httpClient: &http.Client{Timeout: timeout},
		logger:     logger,
	}
}

// Fetch issues a single GET. It never retries.
func (c *Client) Fetch(ctx context.Context, req Request) (ListingResult, error) {
	target, err := url.Parse(c.endpoint)
	if err != nil {
		return ListingResult{}, fmt.Errorf("leads: parse listing url: %w", err)
	}
	target.RawQuery = EncodeQuery(req.Criteria, req.Cursor).Encode()

	httpReq, err := http.NewRequestWithContext(ctx, http.MethodGet, target.String(), nil)
	if err != nil {
		return ListingResult{}, fmt.Errorf("leads: build listing request: %w", err)
	}
	requestID := uuid.NewString()
	httpReq.Header.Set("Accept", "application/json")
	httpReq.Header.Set("X-Request-ID", requestID)
	httpReq.Header.Set("X-Org-ID", req.Scope.OrgID)
	httpReq.Header.Set("X-User-ID", req.Scope.UserID)

	resp, err := c.httpClient.Do(httpReq)
	if err != nil {
		return ListingResult{}, &TransportError{Err: err}
	}
	defer func() {
		_ = resp.Body.Close()
	}()
	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return ListingResult{}, &TransportError{StatusCode: resp.StatusCode}
	}
	body, err := io.ReadAll(io.LimitReader(resp.Body, maxResponseBytes))
	if err != nil {
		return ListingResult{}, &TransportError{Err: err}
	}

	result := Normalize(body)
	if result.Malformed {
		c.logger.Warn("listing response not recognised",
			slog.String("request_id", requestID),
			slog.Int("bytes", len(body)))
	}
	return result, nil
}
