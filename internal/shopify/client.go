// Package shopify is a client for the commerce platform's Admin REST API.
// It owns authentication, pagination and the product catalog cache.
package shopify

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"net/url"
	"strings"
	"time"

	"golang.org/x/sync/singleflight"
)

const (
	// DefaultAPIVersion is the Admin API version used when none is configured.
	DefaultAPIVersion = "2024-10"
	// MaxPageSize is the largest page the platform serves.
	MaxPageSize = 250
	// DefaultMaxPages caps list traversal at 2,500 records.
	DefaultMaxPages = 10

	accessTokenHeader = "X-Shopify-Access-Token"
)

// Config describes how to reach and authenticate against a store. Exactly
// one of AccessToken or ClientID/ClientSecret must be set.
type Config struct {
	StoreDomain  string
	APIVersion   string
	AccessToken  string
	ClientID     string
	ClientSecret string

	// BaseURL overrides https://<StoreDomain>; used by tests.
	BaseURL    string
	HTTPClient *http.Client
	PageSize   int
	MaxPages   int

	Catalog  CatalogCache
	Recorder Recorder
	Logger   *slog.Logger
	Now      func() time.Time
}

// Client talks to one store. It is safe for concurrent use.
type Client struct {
	apiBase  string
	http     *http.Client
	cred     credential
	pageSize int
	maxPages int

	catalog       CatalogCache
	catalogFlight singleflight.Group

	recorder Recorder
	logger   *slog.Logger
	now      func() time.Time
}

// New validates cfg and builds a client.
func New(cfg Config) (*Client, error) {
	domain := strings.TrimSpace(cfg.StoreDomain)
	if domain == "" && cfg.BaseURL == "" {
		return nil, errors.New("shopify: store domain required")
	}
	hasToken := cfg.AccessToken != ""
	hasClient := cfg.ClientID != "" || cfg.ClientSecret != ""
	switch {
	case hasToken && hasClient:
		return nil, errors.New("shopify: configure either an access token or client credentials, not both")
	case !hasToken && !hasClient:
		return nil, errors.New("shopify: access token or client credentials required")
	case hasClient && (cfg.ClientID == "" || cfg.ClientSecret == ""):
		return nil, errors.New("shopify: client id and client secret must both be set")
	}

	root := strings.TrimRight(cfg.BaseURL, "/")
	if root == "" {
		root = "https://" + strings.TrimPrefix(strings.TrimPrefix(domain, "https://"), "http://")
		root = strings.TrimRight(root, "/")
	}
	version := cfg.APIVersion
	if version == "" {
		version = DefaultAPIVersion
	}

	c := &Client{
		apiBase:  root + "/admin/api/" + version,
		http:     cfg.HTTPClient,
		pageSize: cfg.PageSize,
		maxPages: cfg.MaxPages,
		catalog:  cfg.Catalog,
		recorder: cfg.Recorder,
		logger:   cfg.Logger,
		now:      cfg.Now,
	}
	if c.http == nil {
		c.http = &http.Client{Timeout: 30 * time.Second}
	}
	if c.pageSize <= 0 || c.pageSize > MaxPageSize {
		c.pageSize = MaxPageSize
	}
	if c.maxPages <= 0 {
		c.maxPages = DefaultMaxPages
	}
	if c.recorder == nil {
		c.recorder = nopRecorder{}
	}
	if c.logger == nil {
		c.logger = slog.New(slog.NewTextHandler(io.Discard, nil))
	}
	if c.now == nil {
		c.now = time.Now
	}
	if c.catalog == nil {
		c.catalog = NewMemoryCatalog(DefaultCatalogTTL, c.now)
	}

	if hasToken {
		c.cred = staticToken(cfg.AccessToken)
	} else {
		c.cred = newExchangedToken(root+"/admin/oauth/access_token", cfg.ClientID, cfg.ClientSecret, c.http, c.now, c.recorder)
	}
	return c, nil
}

// request describes one API call. Path is relative to the versioned API
// root unless it is already an absolute URL (a pagination link).
type request struct {
	op     string
	method string
	path   string
	query  url.Values
	body   any
}

func (r request) url(apiBase string) string {
	u := r.path
	if !strings.HasPrefix(u, "http://") && !strings.HasPrefix(u, "https://") {
		u = apiBase + u
	}
	if len(r.query) > 0 {
		sep := "?"
		if strings.Contains(u, "?") {
			sep = "&"
		}
		u += sep + r.query.Encode()
	}
	return u
}

// do sends r and decodes a successful response into out. A 401 on a
// refreshable credential invalidates the token and retries exactly once.
func (c *Client) do(ctx context.Context, r request, out any) (http.Header, error) {
	var payload []byte
	if r.body != nil {
		var err error
		payload, err = json.Marshal(r.body)
		if err != nil {
			return nil, fmt.Errorf("shopify %s: encode body: %w", r.op, err)
		}
	}

	resp, err := c.send(ctx, r, payload)
	if err != nil {
		return nil, err
	}
	if resp.StatusCode == http.StatusUnauthorized && c.cred.refreshable() {
		discard(resp)
		c.logger.Info("shopify token rejected, refreshing", slog.String("op", r.op))
		c.cred.invalidate()
		resp, err = c.send(ctx, r, payload)
		if err != nil {
			return nil, err
		}
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		body, _ := io.ReadAll(io.LimitReader(resp.Body, 64<<10))
		return nil, &RemoteAPIError{
			Op:      r.op,
			Method:  r.method,
			Path:    r.path,
			Status:  resp.StatusCode,
			Message: errorMessage(resp.StatusCode, body),
		}
	}
	if out != nil && resp.StatusCode != http.StatusNoContent {
		if err := json.NewDecoder(resp.Body).Decode(out); err != nil && !errors.Is(err, io.EOF) {
			return nil, fmt.Errorf("shopify %s: decode response: %w", r.op, err)
		}
	}
	return resp.Header, nil
}

func (c *Client) send(ctx context.Context, r request, payload []byte) (*http.Response, error) {
	token, err := c.cred.token(ctx)
	if err != nil {
		return nil, err
	}

	var body io.Reader
	if payload != nil {
		body = bytes.NewReader(payload)
	}
	req, err := http.NewRequestWithContext(ctx, r.method, r.url(c.apiBase), body)
	if err != nil {
		return nil, fmt.Errorf("shopify %s: build request: %w", r.op, err)
	}
	req.Header.Set(accessTokenHeader, token)
	req.Header.Set("Accept", "application/json")
	if payload != nil {
		req.Header.Set("Content-Type", "application/json")
	}

	start := time.Now()
	resp, err := c.http.Do(req)
	if err != nil {
		c.recorder.ObserveRequest(r.op, 0, time.Since(start))
		return nil, &RemoteAPIError{Op: r.op, Method: r.method, Path: r.path, Message: err.Error(), Err: err}
	}
	c.recorder.ObserveRequest(r.op, resp.StatusCode, time.Since(start))
	return resp, nil
}

func discard(resp *http.Response) {
	_, _ = io.Copy(io.Discard, io.LimitReader(resp.Body, 64<<10))
	_ = resp.Body.Close()
}
