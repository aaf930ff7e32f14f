package location

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log"
	"net/http"
	"net/url"
	"strconv"

	"github.com/jonboulle/clockwork"

	"shift-tracker-backend/config"
)

// positionResponse models the body returned by the device position endpoint.
type positionResponse struct {
	Latitude  *float64        `json:"latitude"`
	Longitude *float64        `json:"longitude"`
	Accuracy  float64         `json:"accuracy"`
	Timestamp json.RawMessage `json:"timestamp"`
}

// permissionResponse models the body returned by the permission endpoint.
type permissionResponse struct {
	Granted bool `json:"granted"`
}

// HTTPLocator asks a device-side companion service for the current position.
type HTTPLocator struct {
	cfg    config.LocationConfig
	client *http.Client
	clock  clockwork.Clock
}

// NewHTTPLocator builds a locator for cfg.URL, honouring the optional proxy.
func NewHTTPLocator(cfg config.LocationConfig, clock clockwork.Clock) *HTTPLocator {
	var transport http.RoundTripper = &http.Transport{}
	if cfg.HTTPProxy != "" {
		proxyURL, err := url.Parse(cfg.HTTPProxy)
		if err != nil {
			log.Printf("Warning: Invalid proxy URL %q: %v. Locator will not use a proxy.", cfg.HTTPProxy, err)
		} else {
			transport = &http.Transport{Proxy: http.ProxyURL(proxyURL)}
		}
	}
	if clock == nil {
		clock = clockwork.NewRealClock()
	}

	return &HTTPLocator{
		cfg:    cfg,
		client: &http.Client{Transport: transport},
		clock:  clock,
	}
}

// CurrentPosition performs one position request bounded by opts.Timeout.
func (l *HTTPLocator) CurrentPosition(ctx context.Context, opts Options) (Position, error) {
	if opts.Timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, opts.Timeout)
		defer cancel()
	}

	u, err := url.Parse(l.cfg.URL)
	if err != nil {
		return Position{}, fmt.Errorf("%w: invalid locator url: %w", ErrUnavailable, err)
	}
	q := u.Query()
	q.Set("high_accuracy", strconv.FormatBool(opts.HighAccuracy))
	q.Set("timeout_ms", strconv.FormatInt(opts.Timeout.Milliseconds(), 10))
	q.Set("maximum_age_ms", strconv.FormatInt(opts.MaximumAge.Milliseconds(), 10))
	u.RawQuery = q.Encode()

	body, err := l.get(ctx, u.String())
	if err != nil {
		return Position{}, err
	}

	var resp positionResponse
	if err := json.Unmarshal(body, &resp); err != nil {
		return Position{}, fmt.Errorf("%w: failed to unmarshal position: %w", ErrUnavailable, err)
	}
	if resp.Latitude == nil || resp.Longitude == nil {
		return Position{}, fmt.Errorf("%w: response carries no fix", ErrUnavailable)
	}

	pos := Position{
		Latitude:  *resp.Latitude,
		Longitude: *resp.Longitude,
		Accuracy:  resp.Accuracy,
	}
	if len(resp.Timestamp) > 0 && string(resp.Timestamp) != "null" {
		ts, err := parseTimestamp(resp.Timestamp)
		if err != nil {
			return Position{}, fmt.Errorf("%w: %w", ErrUnavailable, err)
		}
		pos.Timestamp = ts
	} else {
		pos.Timestamp = l.clock.Now()
	}

	if err := checkFresh(pos, l.clock.Now(), opts.MaximumAge); err != nil {
		return Position{}, err
	}
	return pos, nil
}

// CheckPermission asks the permission endpoint whether positions will be
// shared. Without a configured endpoint permission is assumed.
func (l *HTTPLocator) CheckPermission(ctx context.Context) error {
	if l.cfg.PermissionURL == "" {
		return nil
	}
	body, err := l.get(ctx, l.cfg.PermissionURL)
	if err != nil {
		return err
	}
	var resp permissionResponse
	if err := json.Unmarshal(body, &resp); err != nil {
		return fmt.Errorf("%w: failed to unmarshal permission: %w", ErrUnavailable, err)
	}
	if !resp.Granted {
		return ErrPermissionDenied
	}
	return nil
}

// get issues a GET and maps transport failures and status codes onto the
// package errors.
func (l *HTTPLocator) get(ctx context.Context, rawURL string) ([]byte, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, rawURL, nil)
	if err != nil {
		return nil, fmt.Errorf("%w: failed to create request: %w", ErrUnavailable, err)
	}
	for key, value := range l.cfg.Headers {
		req.Header.Set(key, value)
	}

	resp, err := l.client.Do(req)
	if err != nil {
		if errors.Is(ctx.Err(), context.DeadlineExceeded) || errors.Is(err, context.DeadlineExceeded) {
			return nil, fmt.Errorf("%w: %w", ErrTimeout, err)
		}
		return nil, fmt.Errorf("%w: http request failed: %w", ErrUnavailable, err)
	}
	defer resp.Body.Close()

	switch resp.StatusCode {
	case http.StatusOK:
	case http.StatusUnauthorized, http.StatusForbidden:
		return nil, ErrPermissionDenied
	case http.StatusRequestTimeout, http.StatusGatewayTimeout:
		return nil, ErrTimeout
	default:
		return nil, fmt.Errorf("%w: received status code %d", ErrUnavailable, resp.StatusCode)
	}

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		if errors.Is(ctx.Err(), context.DeadlineExceeded) {
			return nil, fmt.Errorf("%w: %w", ErrTimeout, err)
		}
		return nil, fmt.Errorf("%w: failed to read response body: %w", ErrUnavailable, err)
	}
	return body, nil
}
