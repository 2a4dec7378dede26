// Package directory is the HTTP client for an upstream spaces directory.
// It speaks two backend shapes: the custom API (/third_space, /user) and a
// PostgREST-style row store (/rest/v1/...).
package directory

import (
	"bytes"
	"context"
	crand "crypto/rand"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"time"

	"golang.org/x/time/rate"

	"thyrd_spaces/internal/adapters/observability"
	"thyrd_spaces/internal/domain"
)

type Backend string

const (
	BackendCustom   Backend = "custom"
	BackendRowStore Backend = "rowstore"
)

var (
	ErrNotFound     = fmt.Errorf("directory: %w", domain.ErrNotFound)
	ErrUnauthorized = fmt.Errorf("directory: unauthorized: %w", domain.ErrAccessDenied)
	ErrForbidden    = fmt.Errorf("directory: forbidden: %w", domain.ErrAccessDenied)
	ErrDuplicate    = fmt.Errorf("directory: %w", domain.ErrDuplicate)
	ErrUnavailable  = fmt.Errorf("directory: %w", domain.ErrUnavailable)
)

const maxAttempts = 4

type Client struct {
	base    string
	backend Backend
	hc      *http.Client
	key     string
	rl      *rate.Limiter
}

// New builds a client. backend may be empty, in which case it is detected
// from the base URL.
func New(base, backend, key string, rps int) (*Client, error) {
	base = NormalizeBase(base)
	if base == "" {
		return nil, fmt.Errorf("directory base URL is required")
	}
	b, err := ResolveBackend(base, backend)
	if err != nil {
		return nil, err
	}
	if b == BackendRowStore && key == "" {
		return nil, fmt.Errorf("row store backend requires an API key")
	}
	if rps <= 0 {
		rps = 5
	}
	return &Client{
		base:    base,
		backend: b,
		hc:      &http.Client{Timeout: 20 * time.Second},
		key:     key,
		rl:      rate.NewLimiter(rate.Limit(rps), rps),
	}, nil
}

func (c *Client) Backend() Backend { return c.backend }

// NormalizeBase prepends https:// when the scheme is missing and drops
// trailing slashes.
func NormalizeBase(base string) string {
	base = strings.TrimSpace(base)
	if base == "" {
		return ""
	}
	if !strings.HasPrefix(base, "http://") && !strings.HasPrefix(base, "https://") {
		base = "https://" + base
	}
	return strings.TrimRight(base, "/")
}

func ResolveBackend(base, name string) (Backend, error) {
	switch strings.ToLower(strings.TrimSpace(name)) {
	case "":
		if strings.Contains(base, "supabase.co") {
			return BackendRowStore, nil
		}
		return BackendCustom, nil
	case string(BackendCustom):
		return BackendCustom, nil
	case string(BackendRowStore), "supabase":
		return BackendRowStore, nil
	}
	return "", fmt.Errorf("unknown directory backend %q", name)
}

func (c *Client) shape() domain.PayloadShape {
	if c.backend == BackendRowStore {
		return domain.ShapeRowStore
	}
	return domain.ShapeCustomAPI
}

// ---- Public API ----

func (c *Client) ListSpaces(ctx context.Context) ([]domain.Payload, error) {
	var rows []map[string]any
	if c.backend == BackendRowStore {
		if err := c.do(ctx, http.MethodGet, "spaces", c.base+"/rest/v1/spaces?select=*", nil, &rows); err != nil {
			return nil, err
		}
	} else {
		var env struct {
			Spaces []map[string]any `json:"spaces"`
		}
		if err := c.do(ctx, http.MethodGet, "spaces", c.base+"/third_space/", nil, &env); err != nil {
			return nil, err
		}
		rows = env.Spaces
	}
	out := make([]domain.Payload, 0, len(rows))
	for _, r := range rows {
		if r == nil {
			continue
		}
		out = append(out, domain.Payload{Shape: c.shape(), Fields: r})
	}
	return out, nil
}

func (c *Client) GetSpace(ctx context.Context, id int64) (domain.Payload, error) {
	if c.backend == BackendRowStore {
		var rows []map[string]any
		u := fmt.Sprintf("%s/rest/v1/spaces?id=eq.%d&select=*", c.base, id)
		if err := c.do(ctx, http.MethodGet, "space", u, nil, &rows); err != nil {
			return domain.Payload{}, err
		}
		if len(rows) == 0 || rows[0] == nil {
			return domain.Payload{}, ErrNotFound
		}
		return domain.Payload{Shape: domain.ShapeRowStore, Fields: rows[0]}, nil
	}

	var env struct {
		Space map[string]any `json:"space"`
	}
	if err := c.do(ctx, http.MethodGet, "space", fmt.Sprintf("%s/third_space/%d", c.base, id), nil, &env); err != nil {
		return domain.Payload{}, err
	}
	if env.Space == nil {
		return domain.Payload{}, ErrNotFound
	}
	return domain.Payload{Shape: domain.ShapeCustomAPI, Fields: env.Space}, nil
}

func (c *Client) CreateSpace(ctx context.Context, s domain.NewSpace) (int64, error) {
	body := map[string]any{
		"name":          s.Name,
		"description":   s.Description,
		"tags":          strings.Join(s.Tags, ","),
		"photo_url":     s.ImageRef,
		"location_data": s.LocationRef,
	}
	if c.backend == BackendRowStore {
		var rows []struct {
			ID int64 `json:"id"`
		}
		if err := c.do(ctx, http.MethodPost, "space_new", c.base+"/rest/v1/spaces", body, &rows); err != nil {
			return 0, err
		}
		if len(rows) == 0 {
			return 0, fmt.Errorf("directory: create returned no rows")
		}
		return rows[0].ID, nil
	}

	var out struct {
		ID int64 `json:"id"`
	}
	if err := c.do(ctx, http.MethodPost, "space_new", c.base+"/third_space/new", body, &out); err != nil {
		return 0, err
	}
	return out.ID, nil
}

type userRow struct {
	ID       int64  `json:"id"`
	Email    string `json:"email"`
	Username string `json:"username"`
}

func (r userRow) user(email, username string) domain.User {
	u := domain.User{ID: r.ID, Email: r.Email, Username: r.Username}
	if u.Email == "" {
		u.Email = email
	}
	if u.Username == "" {
		u.Username = username
	}
	return u
}

func (c *Client) Register(ctx context.Context, email, username string) (domain.User, error) {
	body := map[string]string{"email": email, "username": username}
	if c.backend == BackendRowStore {
		var rows []userRow
		if err := c.do(ctx, http.MethodPost, "user_new", c.base+"/rest/v1/users", body, &rows); err != nil {
			return domain.User{}, err
		}
		if len(rows) == 0 {
			return domain.User{Email: email, Username: username}, nil
		}
		return rows[0].user(email, username), nil
	}

	var env struct {
		User userRow `json:"user"`
	}
	if err := c.do(ctx, http.MethodPost, "user_new", c.base+"/user/new", body, &env); err != nil {
		return domain.User{}, err
	}
	return env.User.user(email, username), nil
}

func (c *Client) Login(ctx context.Context, email string) (domain.User, error) {
	if c.backend == BackendRowStore {
		var rows []userRow
		u := fmt.Sprintf("%s/rest/v1/users?email=eq.%s&select=id,email,username&limit=1", c.base, url.QueryEscape(email))
		if err := c.do(ctx, http.MethodGet, "user_login", u, nil, &rows); err != nil {
			return domain.User{}, err
		}
		if len(rows) == 0 {
			return domain.User{}, ErrNotFound
		}
		return rows[0].user(email, ""), nil
	}

	var env struct {
		User *userRow `json:"user"`
	}
	if err := c.do(ctx, http.MethodPost, "user_login", c.base+"/user/login", map[string]string{"email": email}, &env); err != nil {
		return domain.User{}, err
	}
	if env.User == nil {
		return domain.User{}, ErrNotFound
	}
	return env.User.user(email, ""), nil
}

// ---- Internals ----

// do performs one call with client-side rate limiting, retries and JSON
// decode into out. 429 is retried for every method; transient 5xx and
// network errors only for GET so creates are never replayed.
func (c *Client) do(ctx context.Context, method, endpoint, target string, body, out any) error {
	var payload []byte
	if body != nil {
		b, err := json.Marshal(body)
		if err != nil {
			return err
		}
		payload = b
	}
	idempotent := method == http.MethodGet

	var lastErr error
	for i := 0; i < maxAttempts; i++ {
		// every attempt, retries included, spends a limiter token
		if err := c.rl.Wait(ctx); err != nil {
			return err
		}
		// build a fresh request each attempt
		var rd io.Reader
		if payload != nil {
			rd = bytes.NewReader(payload)
		}
		req, err := http.NewRequestWithContext(ctx, method, target, rd)
		if err != nil {
			return err
		}
		c.headers(req, payload != nil)

		start := time.Now()
		resp, err := c.hc.Do(req)
		if err != nil {
			observability.ObserveDirectory(string(c.backend), endpoint, 0, time.Since(start))
			if ctx.Err() != nil {
				return ctx.Err()
			}
			lastErr = err
			if idempotent && i < maxAttempts-1 && sleepCtx(ctx, backoff(i)) {
				continue
			}
			if ctx.Err() != nil {
				return ctx.Err()
			}
			return fmt.Errorf("%w: %v", ErrUnavailable, lastErr)
		}
		observability.ObserveDirectory(string(c.backend), endpoint, resp.StatusCode, time.Since(start))

		switch resp.StatusCode {
		case http.StatusOK, http.StatusCreated, http.StatusAccepted:
			err := json.NewDecoder(resp.Body).Decode(out)
			resp.Body.Close()
			if err != nil {
				return fmt.Errorf("directory: decode %s: %w", endpoint, err)
			}
			return nil

		case http.StatusNoContent:
			io.Copy(io.Discard, resp.Body)
			resp.Body.Close()
			return nil

		case http.StatusNotFound:
			resp.Body.Close()
			return ErrNotFound

		case http.StatusUnauthorized:
			resp.Body.Close()
			return ErrUnauthorized

		case http.StatusForbidden:
			resp.Body.Close()
			return ErrForbidden

		case http.StatusConflict:
			resp.Body.Close()
			return ErrDuplicate

		case http.StatusTooManyRequests, http.StatusInternalServerError,
			http.StatusBadGateway, http.StatusServiceUnavailable, http.StatusGatewayTimeout:
			// Prefer server-provided Retry-After; otherwise exponential backoff.
			wait := retryAfter(resp)
			resp.Body.Close()
			if wait == 0 {
				wait = backoff(i)
			}
			lastErr = fmt.Errorf("remote %d", resp.StatusCode)
			retry := idempotent || resp.StatusCode == http.StatusTooManyRequests
			if retry && i < maxAttempts-1 && sleepCtx(ctx, wait) {
				continue
			}
			if ctx.Err() != nil {
				return ctx.Err()
			}
			return fmt.Errorf("%w: %v", ErrUnavailable, lastErr)

		default:
			// read a small error body for diagnostics
			b, _ := io.ReadAll(io.LimitReader(resp.Body, 4096))
			resp.Body.Close()
			msg := strings.TrimSpace(string(b))
			if resp.StatusCode == http.StatusBadRequest && isDuplicate(msg) {
				return fmt.Errorf("%w: %s", ErrDuplicate, msg)
			}
			return fmt.Errorf("directory: bad status %d: %s", resp.StatusCode, msg)
		}
	}

	return fmt.Errorf("%w: %v", ErrUnavailable, lastErr)
}

func (c *Client) headers(req *http.Request, hasBody bool) {
	req.Header.Set("Accept", "application/json")
	req.Header.Set("User-Agent", "thyrd-spaces/1.0")
	if hasBody {
		req.Header.Set("Content-Type", "application/json")
	}
	if c.backend == BackendRowStore {
		req.Header.Set("apikey", c.key)
		req.Header.Set("Authorization", "Bearer "+c.key)
		if req.Method == http.MethodPost {
			req.Header.Set("Prefer", "return=representation")
		}
		return
	}
	if c.key != "" {
		req.Header.Set("X-API-Key", c.key)
	}
}

func isDuplicate(body string) bool {
	b := strings.ToLower(body)
	return strings.Contains(b, "duplicate") || strings.Contains(b, "already exists") || strings.Contains(b, "unique")
}

// sleepCtx waits for d or returns early if ctx is done.
func sleepCtx(ctx context.Context, d time.Duration) bool {
	if d <= 0 {
		return true
	}
	t := time.NewTimer(d)
	defer t.Stop()
	select {
	case <-ctx.Done():
		return false
	case <-t.C:
		return true
	}
}

// retryAfter parses Retry-After (seconds or HTTP-date). 0 if absent/invalid.
func retryAfter(resp *http.Response) time.Duration {
	h := resp.Header.Get("Retry-After")
	if h == "" {
		return 0
	}
	if secs, err := strconv.Atoi(strings.TrimSpace(h)); err == nil && secs >= 0 {
		return time.Duration(secs) * time.Second
	}
	if t, err := http.ParseTime(h); err == nil {
		if d := time.Until(t); d > 0 {
			return d
		}
	}
	return 0
}

// backoff doubles from 200ms per attempt with up to +50% jitter.
func backoff(i int) time.Duration {
	base := time.Duration(1<<i) * 200 * time.Millisecond
	var b [1]byte
	if _, err := crand.Read(b[:]); err != nil {
		return base
	}
	f := float64(b[0]) / 255.0
	return base + time.Duration(0.5*f*float64(base))
}
