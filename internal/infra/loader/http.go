package loader

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"sort"
	"strings"
	"time"

	"golang.org/x/time/rate"

	"github.com/vietddude/routefleet/internal/core/domain"
)

// Proxy modes for non-direct routes.
const (
	// ProxyModePrefix prepends the route to the target URL (CORS-style proxies).
	ProxyModePrefix = "prefix"
	// ProxyModeForward uses the route as an HTTP forward proxy.
	ProxyModeForward = "forward"
)

// DefaultMaxBodyBytes caps a response body when HTTPConfig.MaxBodyBytes is unset.
const DefaultMaxBodyBytes = 32 << 20

// RateLimitConfig paces requests per route. Zero PerSecond disables pacing.
type RateLimitConfig struct {
	PerSecond float64 `yaml:"per_second"`
	Burst     int     `yaml:"burst"`
}

// HTTPConfig holds settings for the HTTP loader.
type HTTPConfig struct {
	URLTemplate string            `yaml:"url_template"` // e.g. https://api.example.com/{source}/markets
	ProxyMode   string            `yaml:"proxy_mode"`   // prefix, forward
	UserAgent   string            `yaml:"user_agent"`
	Headers     map[string]string `yaml:"headers"`
	ItemsField  string            `yaml:"items_field"` // JSON field holding the catalog; empty = top level
	KeepRaw     bool              `yaml:"keep_raw"`
	RateLimit   RateLimitConfig   `yaml:"rate_limit"`
	// MaxBodyBytes rejects larger responses; 0 = DefaultMaxBodyBytes.
	MaxBodyBytes int64 `yaml:"max_body_bytes"`
}

// HTTPLoader loads a source catalog over HTTP.
// Clients and limiters are built per route up front; the loader is safe for concurrent use.
type HTTPLoader struct {
	cfg      HTTPConfig
	clients  map[domain.Route]*http.Client
	limiters map[domain.Route]*rate.Limiter
}

// NewHTTPLoader creates a loader for every route in routes.
func NewHTTPLoader(cfg HTTPConfig, routes domain.RouteSet, timeout time.Duration) (*HTTPLoader, error) {
	if cfg.URLTemplate == "" {
		return nil, errors.New("http loader: url_template is required")
	}
	if cfg.ProxyMode == "" {
		cfg.ProxyMode = ProxyModePrefix
	}
	if cfg.MaxBodyBytes <= 0 {
		cfg.MaxBodyBytes = DefaultMaxBodyBytes
	}
	if cfg.ProxyMode != ProxyModePrefix && cfg.ProxyMode != ProxyModeForward {
		return nil, fmt.Errorf("http loader: unknown proxy_mode %q", cfg.ProxyMode)
	}

	l := &HTTPLoader{
		cfg:      cfg,
		clients:  make(map[domain.Route]*http.Client, routes.Len()),
		limiters: make(map[domain.Route]*rate.Limiter, routes.Len()),
	}

	for _, route := range routes.Routes() {
		if _, ok := l.clients[route]; ok {
			continue
		}

		transport := &http.Transport{
			MaxIdleConns:        100,
			MaxIdleConnsPerHost: 10,
			IdleConnTimeout:     90 * time.Second,
		}

		if !route.IsDirect() {
			u, err := url.Parse(string(route))
			if err != nil || u.Scheme == "" || u.Host == "" {
				return nil, fmt.Errorf("http loader: route %q is not an absolute URL", route)
			}
			if cfg.ProxyMode == ProxyModeForward {
				transport.Proxy = http.ProxyURL(u)
			}
		}

		l.clients[route] = &http.Client{Timeout: timeout, Transport: transport}

		if cfg.RateLimit.PerSecond > 0 {
			burst := cfg.RateLimit.Burst
			if burst < 1 {
				burst = 1
			}
			l.limiters[route] = rate.NewLimiter(rate.Limit(cfg.RateLimit.PerSecond), burst)
		}
	}

	return l, nil
}

// URLFor returns the URL requested for id through route.
func (l *HTTPLoader) URLFor(id domain.SourceID, route domain.Route) string {
	target := expand(l.cfg.URLTemplate, id)
	if route.IsDirect() || l.cfg.ProxyMode == ProxyModeForward {
		return target
	}
	return string(route) + target
}

// Load fetches the catalog of id through route.
func (l *HTTPLoader) Load(ctx context.Context, id domain.SourceID, route domain.Route) (*domain.Payload, error) {
	client, ok := l.clients[route]
	if !ok {
		return nil, domain.Errorf(domain.KindUnclassified, "route %q was not configured", route)
	}

	if limiter := l.limiters[route]; limiter != nil {
		if err := limiter.Wait(ctx); err != nil {
			if errors.Is(ctx.Err(), context.Canceled) {
				return nil, domain.NewError(domain.KindUnclassified, err)
			}
			// The limiter refuses waits that would outlive the deadline.
			return nil, domain.NewError(domain.KindTimeout, fmt.Errorf("rate limiter: %w", err))
		}
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, l.URLFor(id, route), nil)
	if err != nil {
		return nil, domain.NewError(domain.KindUnclassified, fmt.Errorf("create request: %w", err))
	}
	req.Header.Set("Accept", "application/json")
	if l.cfg.UserAgent != "" {
		req.Header.Set("User-Agent", l.cfg.UserAgent)
	}
	for k, v := range l.cfg.Headers {
		req.Header.Set(k, v)
	}
	if !route.IsDirect() && l.cfg.ProxyMode == ProxyModePrefix {
		// CORS proxies refuse requests without an origin.
		req.Header.Set("X-Requested-With", "XMLHttpRequest")
	}

	resp, err := client.Do(req)
	if err != nil {
		return nil, classifyTransportError(err)
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(io.LimitReader(resp.Body, l.cfg.MaxBodyBytes+1))
	if err != nil {
		return nil, classifyTransportError(fmt.Errorf("read response: %w", err))
	}
	if int64(len(body)) > l.cfg.MaxBodyBytes {
		return nil, domain.Errorf(domain.KindUnclassified, "http %d: response exceeds %d bytes", resp.StatusCode, l.cfg.MaxBodyBytes)
	}

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		kind := ClassifyHTTPStatus(resp.StatusCode, string(body))
		return nil, domain.Errorf(kind, "http %d: %s", resp.StatusCode, truncate(string(body), 200))
	}

	items, err := extractItems(body, l.cfg.ItemsField)
	if err != nil {
		if DetectThrottlePattern(string(body)) {
			return nil, domain.Errorf(domain.KindRateLimited, "throttle page instead of catalog: %s", truncate(string(body), 200))
		}
		return nil, domain.NewError(domain.KindUnclassified, fmt.Errorf("parse response: %w", err))
	}

	payload := &domain.Payload{Items: items}
	if l.cfg.KeepRaw {
		payload.Raw = body
	}
	return payload, nil
}

// ClassifyHTTPStatus maps a non-2xx status (and its body) to a kind.
func ClassifyHTTPStatus(statusCode int, body string) domain.ErrorKind {
	switch {
	case statusCode == http.StatusTooManyRequests, statusCode == http.StatusTeapot:
		return domain.KindRateLimited
	case statusCode == http.StatusUnauthorized, statusCode == http.StatusProxyAuthRequired:
		return domain.KindUnauthenticated
	case statusCode == http.StatusForbidden:
		if DetectThrottlePattern(body) {
			return domain.KindRateLimited
		}
		return domain.KindUnauthenticated
	case statusCode == http.StatusNotFound,
		statusCode == http.StatusMethodNotAllowed,
		statusCode == http.StatusGone,
		statusCode == http.StatusNotImplemented:
		return domain.KindEndpointMissing
	case statusCode == http.StatusRequestTimeout,
		statusCode == http.StatusGatewayTimeout,
		statusCode == 524: // Cloudflare origin timeout
		return domain.KindTimeout
	case statusCode >= 500:
		if DetectThrottlePattern(body) {
			return domain.KindRateLimited
		}
		return domain.KindUnavailable
	default:
		if DetectThrottlePattern(body) {
			return domain.KindRateLimited
		}
		return domain.KindUnclassified
	}
}

func classifyTransportError(err error) *domain.ClassifiedError {
	if errors.Is(err, context.Canceled) {
		return domain.NewError(domain.KindUnclassified, err)
	}
	if errors.Is(err, context.DeadlineExceeded) {
		return domain.NewError(domain.KindTimeout, err)
	}

	var urlErr *url.Error
	if errors.As(err, &urlErr) {
		if urlErr.Timeout() {
			return domain.NewError(domain.KindTimeout, err)
		}
		// Connection refused, DNS failure, TLS handshake, proxy unreachable.
		return domain.NewError(domain.KindUnavailable, err)
	}

	return domain.NewError(domain.KindUnclassified, err)
}

// extractItems turns a JSON catalog into item names.
// Objects yield their sorted keys; arrays yield strings or the symbol/id/name field of each element.
func extractItems(body []byte, field string) ([]string, error) {
	var doc any
	if err := json.Unmarshal(body, &doc); err != nil {
		return nil, err
	}

	if field != "" {
		obj, ok := doc.(map[string]any)
		if !ok {
			return nil, fmt.Errorf("expected object with field %q, got %T", field, doc)
		}
		doc, ok = obj[field]
		if !ok {
			return nil, fmt.Errorf("field %q missing", field)
		}
	}

	switch v := doc.(type) {
	case map[string]any:
		items := make([]string, 0, len(v))
		for k := range v {
			items = append(items, k)
		}
		sort.Strings(items)
		return items, nil
	case []any:
		items := make([]string, 0, len(v))
		for i, e := range v {
			items = append(items, itemName(e, i))
		}
		return items, nil
	default:
		return nil, fmt.Errorf("unexpected catalog type %T", doc)
	}
}

func itemName(e any, index int) string {
	switch v := e.(type) {
	case string:
		return v
	case map[string]any:
		for _, key := range []string{"symbol", "id", "name"} {
			if s, ok := v[key].(string); ok && s != "" {
				return s
			}
		}
	}
	return fmt.Sprintf("#%d", index)
}

// String describes the loader for logs.
func (l *HTTPLoader) String() string {
	return fmt.Sprintf("http(%s, proxy_mode=%s)", strings.SplitN(l.cfg.URLTemplate, "?", 2)[0], l.cfg.ProxyMode)
}
