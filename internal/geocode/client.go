// Package geocode resolves free-text place names to coordinates against a
// Nominatim-compatible search endpoint.
package geocode

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"time"

	"golang.org/x/time/rate"
)

const (
	DefaultURL       = "https://nominatim.openstreetmap.org/search"
	DefaultUserAgent = "whereami-web/1.0"
	DefaultTimeout   = 10 * time.Second
	DefaultRetries   = 5
	DefaultBackoff   = 2 * time.Second

	// Nominatim's usage policy allows one request per second.
	DefaultRPS = 1.0

	maxBodyBytes = 1 << 20
)

var (
	// ErrNotFound is returned when the geocoder has no match for a query.
	ErrNotFound = errors.New("location not found")
	// ErrInvalidQuery is returned for an empty query.
	ErrInvalidQuery = errors.New("location query is required")
	// ErrUpstream is returned when the geocoder fails or answers with garbage.
	ErrUpstream = errors.New("geocoder unavailable")
)

// Place is a resolved location.
type Place struct {
	Latitude  float64 `json:"latitude"`
	Longitude float64 `json:"longitude"`
	Address   string  `json:"address"`
}

// Observer receives one call per lookup with its outcome and duration.
type Observer interface {
	ObserveGeocode(outcome string, d time.Duration)
}

// Config holds client settings. Zero values take the defaults above.
type Config struct {
	URL       string
	UserAgent string
	Timeout   time.Duration
	Retries   int
	Backoff   time.Duration
	RPS       float64
	Logger    *slog.Logger
	Observer  Observer
}

// Client is a rate-limited, retrying geocoder client. It is safe for
// concurrent use.
type Client struct {
	baseURL    string
	userAgent  string
	retries    int
	backoff    time.Duration
	limiter    *rate.Limiter
	httpClient *http.Client
	logger     *slog.Logger
	observer   Observer
}

// New creates a Client from cfg.
func New(cfg Config) *Client {
	if cfg.URL == "" {
		cfg.URL = DefaultURL
	}
	if cfg.UserAgent == "" {
		cfg.UserAgent = DefaultUserAgent
	}
	if cfg.Timeout <= 0 {
		cfg.Timeout = DefaultTimeout
	}
	if cfg.Retries <= 0 {
		cfg.Retries = DefaultRetries
	}
	if cfg.Backoff <= 0 {
		cfg.Backoff = DefaultBackoff
	}
	if cfg.RPS <= 0 {
		cfg.RPS = DefaultRPS
	}
	if cfg.Logger == nil {
		cfg.Logger = slog.Default()
	}
	return &Client{
		baseURL:    cfg.URL,
		userAgent:  cfg.UserAgent,
		retries:    cfg.Retries,
		backoff:    cfg.Backoff,
		limiter:    rate.NewLimiter(rate.Limit(cfg.RPS), 1),
		httpClient: &http.Client{Timeout: cfg.Timeout},
		logger:     cfg.Logger,
		observer:   cfg.Observer,
	}
}

// searchResult is one element of a jsonv2 search response.
type searchResult struct {
	Lat         string `json:"lat"`
	Lon         string `json:"lon"`
	DisplayName string `json:"display_name"`
}

// statusError is a non-200 answer from the geocoder.
type statusError struct {
	code int
}

func (e *statusError) Error() string {
	return fmt.Sprintf("unexpected status code %d", e.code)
}

func (e *statusError) retryable() bool {
	return e.code >= 500 || e.code == http.StatusTooManyRequests
}

// Geocode resolves query to the best-matching place. Timeouts and 5xx
// answers are retried with linear backoff; other 4xx answers are not.
func (c *Client) Geocode(ctx context.Context, query string) (Place, error) {
	query = strings.TrimSpace(query)
	if query == "" {
		return Place{}, ErrInvalidQuery
	}

	start := time.Now()
	place, err := c.geocode(ctx, query)
	if c.observer != nil {
		c.observer.ObserveGeocode(outcome(err), time.Since(start))
	}
	return place, err
}

func (c *Client) geocode(ctx context.Context, query string) (Place, error) {
	var lastErr error
	for attempt := 0; attempt < c.retries; attempt++ {
		if attempt > 0 {
			wait := c.backoff * time.Duration(attempt)
			c.logger.Warn("geocoder request failed, retrying",
				"query", query,
				"attempt", attempt,
				"max_attempts", c.retries,
				"backoff", wait,
				"error", lastErr,
			)
			if err := sleep(ctx, wait); err != nil {
				return Place{}, err
			}
		}
		if err := c.limiter.Wait(ctx); err != nil {
			return Place{}, err
		}

		place, err := c.search(ctx, query)
		if err == nil || errors.Is(err, ErrNotFound) {
			return place, err
		}
		if ctx.Err() != nil {
			return Place{}, ctx.Err()
		}
		var se *statusError
		if errors.As(err, &se) && !se.retryable() {
			return Place{}, fmt.Errorf("%w: %v", ErrUpstream, err)
		}
		lastErr = err
	}
	return Place{}, fmt.Errorf("%w: %d attempts: %v", ErrUpstream, c.retries, lastErr)
}

func (c *Client) search(ctx context.Context, query string) (Place, error) {
	u, err := url.Parse(c.baseURL)
	if err != nil {
		return Place{}, fmt.Errorf("parsing geocoder url: %w", err)
	}
	q := u.Query()
	q.Set("q", query)
	q.Set("format", "jsonv2")
	q.Set("limit", "1")
	u.RawQuery = q.Encode()

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, u.String(), nil)
	if err != nil {
		return Place{}, fmt.Errorf("creating request: %w", err)
	}
	req.Header.Set("User-Agent", c.userAgent)
	req.Header.Set("Accept", "application/json")

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return Place{}, fmt.Errorf("geocoding %q: %w", query, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return Place{}, &statusError{code: resp.StatusCode}
	}

	var results []searchResult
	if err := json.NewDecoder(io.LimitReader(resp.Body, maxBodyBytes)).Decode(&results); err != nil {
		return Place{}, fmt.Errorf("decoding geocoder response: %w", err)
	}
	if len(results) == 0 {
		return Place{}, fmt.Errorf("%w: %s", ErrNotFound, query)
	}
	return results[0].place()
}

func (r searchResult) place() (Place, error) {
	lat, err := strconv.ParseFloat(r.Lat, 64)
	if err != nil {
		return Place{}, fmt.Errorf("%w: bad latitude %q", ErrUpstream, r.Lat)
	}
	lon, err := strconv.ParseFloat(r.Lon, 64)
	if err != nil {
		return Place{}, fmt.Errorf("%w: bad longitude %q", ErrUpstream, r.Lon)
	}
	if !ValidCoordinates(lat, lon) {
		return Place{}, fmt.Errorf("%w: coordinates (%v, %v) out of range", ErrUpstream, lat, lon)
	}
	return Place{Latitude: lat, Longitude: lon, Address: r.DisplayName}, nil
}

// ValidCoordinates reports whether lat and lon are finite and in range.
func ValidCoordinates(lat, lon float64) bool {
	return lat >= -90 && lat <= 90 && lon >= -180 && lon <= 180
}

func outcome(err error) string {
	switch {
	case err == nil:
		return "ok"
	case errors.Is(err, ErrNotFound):
		return "not_found"
	case errors.Is(err, context.Canceled), errors.Is(err, context.DeadlineExceeded):
		return "canceled"
	default:
		return "error"
	}
}

func sleep(ctx context.Context, d time.Duration) error {
	t := time.NewTimer(d)
	defer t.Stop()
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-t.C:
		return nil
	}
}
