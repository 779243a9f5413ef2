package metadata

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"github.com/nftennis/nftennis-backend/pkg/logger"
	"github.com/nftennis/nftennis-backend/pkg/redis"
)

const ipfsScheme = "ipfs://"

// Cache stores fetched documents. Metadata is immutable once pinned, so a
// long TTL is safe.
type Cache interface {
	Get(ctx context.Context, key string) (string, error)
	Set(ctx context.Context, key string, value any, ttl time.Duration) error
	MetadataKey(uri string) string
}

type FetcherParams struct {
	HTTPClient *http.Client
	GatewayURL string
	Cache      Cache
	CacheTTL   time.Duration
	MaxBytes   int64
	Logger     *logger.Logger
}

// Fetcher loads metadata documents referenced by token URIs.
type Fetcher struct {
	http     *http.Client
	gateway  string
	cache    Cache
	ttl      time.Duration
	maxBytes int64
	logg     *logger.Logger
}

func NewFetcher(p FetcherParams) *Fetcher {
	client := p.HTTPClient
	if client == nil {
		client = &http.Client{Timeout: 10 * time.Second}
	}
	maxBytes := p.MaxBytes
	if maxBytes <= 0 {
		maxBytes = 1 << 20
	}
	return &Fetcher{
		http:     client,
		gateway:  strings.TrimRight(p.GatewayURL, "/"),
		cache:    p.Cache,
		ttl:      p.CacheTTL,
		maxBytes: maxBytes,
		logg:     p.Logger,
	}
}

// Resolve rewrites ipfs:// URIs onto the HTTP gateway.
func (f *Fetcher) Resolve(uri string) string {
	if strings.HasPrefix(uri, ipfsScheme) {
		return f.gateway + "/" + strings.TrimPrefix(strings.TrimPrefix(uri, ipfsScheme), "ipfs/")
	}
	return uri
}

// Fetch returns the document at uri, consulting the cache first.
func (f *Fetcher) Fetch(ctx context.Context, uri string) (*Document, error) {
	if strings.TrimSpace(uri) == "" {
		return nil, fmt.Errorf("empty token uri")
	}
	if doc, ok := f.cached(ctx, uri); ok {
		return doc, nil
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, f.Resolve(uri), nil)
	if err != nil {
		return nil, fmt.Errorf("build metadata request: %w", err)
	}
	req.Header.Set("Accept", "application/json")
	resp, err := f.http.Do(req)
	if err != nil {
		return nil, fmt.Errorf("fetch metadata: %w", err)
	}
	defer func() { _ = resp.Body.Close() }()
	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("fetch metadata: %s", resp.Status)
	}

	raw, err := io.ReadAll(io.LimitReader(resp.Body, f.maxBytes+1))
	if err != nil {
		return nil, fmt.Errorf("read metadata: %w", err)
	}
	if int64(len(raw)) > f.maxBytes {
		return nil, fmt.Errorf("metadata larger than %d bytes", f.maxBytes)
	}
	var doc Document
	if err := json.Unmarshal(raw, &doc); err != nil {
		return nil, fmt.Errorf("decode metadata: %w", err)
	}

	if f.cache != nil {
		if err := f.cache.Set(ctx, f.cache.MetadataKey(uri), raw, f.ttl); err != nil && f.logg != nil {
			f.logg.Warn(f.logg.WithField(ctx, "uri", uri), "metadata cache write failed")
		}
	}
	return &doc, nil
}

func (f *Fetcher) cached(ctx context.Context, uri string) (*Document, bool) {
	if f.cache == nil {
		return nil, false
	}
	raw, err := f.cache.Get(ctx, f.cache.MetadataKey(uri))
	if err != nil {
		if !redis.IsMiss(err) && f.logg != nil {
			f.logg.Warn(f.logg.WithField(ctx, "uri", uri), "metadata cache read failed")
		}
		return nil, false
	}
	var doc Document
	if err := json.Unmarshal([]byte(raw), &doc); err != nil {
		return nil, false
	}
	return &doc, true
}
