package leads

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"strconv"
	"time"

	"github.com/cespare/xxhash/v2"
	"github.com/redis/go-redis/v9"
	"golang.org/x/sync/singleflight"
)

const (
	cacheKeyPrefix = "leads"

	// sharedFetchTimeout bounds a load shared by several callers.
	sharedFetchTimeout = 30 * time.Second
)

// CachedFetcher stores normalised listing pages in Redis. Keys are
// namespaced per org with a version counter so a single INCR invalidates
// every cached page of that org.
type CachedFetcher struct {
	next   Fetcher
	client *redis.Client
	ttl    time.Duration
	group  singleflight.Group
	logger *slog.Logger
}

// NewCachedFetcher wraps next. A nil client makes it a pass-through.
func NewCachedFetcher(next Fetcher, client *redis.Client, ttl time.Duration, logger *slog.Logger) *CachedFetcher {
	if logger == nil {
		logger = slog.Default()
	}
	return &CachedFetcher{next: next, client: client, ttl: ttl, logger: logger}
}

// Fetch serves req from cache or loads it through the wrapped fetcher.
// Identical concurrent loads share one upstream call; a caller giving up
// does not cancel the load for the others.
func (f *CachedFetcher) Fetch(ctx context.Context, req Request) (ListingResult, error) {
	if f.client == nil || f.ttl <= 0 {
		return f.next.Fetch(ctx, req)
	}
	key, err := f.key(ctx, req)
	if err != nil {
		f.logger.Warn("listing cache key", slog.Any("error", err))
		return f.next.Fetch(ctx, req)
	}

	payload, err := f.client.Get(ctx, key).Bytes()
	if err == nil {
		var cached ListingResult
		if err := json.Unmarshal(payload, &cached); err == nil {
			return cached, nil
		}
	} else if !errors.Is(err, redis.Nil) {
		f.logger.Warn("listing cache read", slog.Any("error", err))
	}

	ch := f.group.DoChan(key, func() (interface{}, error) {
		loadCtx, cancel := context.WithTimeout(context.WithoutCancel(ctx), sharedFetchTimeout)
		defer cancel()
		result, err := f.next.Fetch(loadCtx, req)
		if err != nil {
			return ListingResult{}, err
		}
		if !result.Malformed {
			f.store(loadCtx, key, result)
		}
		return result, nil
	})
	select {
	case <-ctx.Done():
		return ListingResult{}, &TransportError{Err: ctx.Err()}
	case res := <-ch:
		if res.Err != nil {
			return ListingResult{}, res.Err
		}
		return res.Val.(ListingResult), nil
	}
}

// Invalidate drops every cached page for orgID.
func (f *CachedFetcher) Invalidate(ctx context.Context, orgID string) error {
	if f.client == nil {
		return nil
	}
	return f.client.Incr(ctx, versionKey(orgID)).Err()
}

func (f *CachedFetcher) store(ctx context.Context, key string, result ListingResult) {
	raw, err := json.Marshal(result)
	if err != nil {
		f.logger.Warn("listing cache encode", slog.Any("error", err))
		return
	}
	if err := f.client.Set(ctx, key, raw, f.ttl).Err(); err != nil {
		f.logger.Warn("listing cache write", slog.Any("error", err))
	}
}

func (f *CachedFetcher) version(ctx context.Context, orgID string) (int64, error) {
	ver, err := f.client.Get(ctx, versionKey(orgID)).Int64()
	if errors.Is(err, redis.Nil) {
		return 0, nil
	}
	return ver, err
}

func (f *CachedFetcher) key(ctx context.Context, req Request) (string, error) {
	ver, err := f.version(ctx, req.Scope.OrgID)
	if err != nil {
		return "", err
	}
	query := EncodeQuery(req.Criteria, req.Cursor).Encode()
	sum := xxhash.Sum64String(req.Scope.UserID + "|" + query)
	return fmt.Sprintf("%s:%s:v%d:%s", cacheKeyPrefix, req.Scope.OrgID, ver, strconv.FormatUint(sum, 16)), nil
}

func versionKey(orgID string) string {
	return cacheKeyPrefix + ":" + orgID + ":version"
}
