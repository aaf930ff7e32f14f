package cli

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"time"

	"shift-tracker-backend/internal/geofence"
	"shift-tracker-backend/internal/model"
	"shift-tracker-backend/internal/tracker"
)

// APIError is a non-2xx answer from trackerd.
type APIError struct {
	StatusCode int
	Message    string
}

func (e *APIError) Error() string {
	if e.Message == "" {
		return fmt.Sprintf("server returned %d", e.StatusCode)
	}
	return fmt.Sprintf("server returned %d: %s", e.StatusCode, e.Message)
}

// Status mirrors GET /api/tracking/status.
type Status struct {
	model.TrackingStatus
	NextFetchAt     *time.Time          `json:"nextFetchAt"`
	LastEvaluation  *tracker.Evaluation `json:"lastEvaluation"`
	BackgroundError string              `json:"backgroundError"`
}

// GeofenceCheck mirrors GET /api/geofence.
type GeofenceCheck struct {
	Position       geofence.Point `json:"position"`
	Site           geofence.Site  `json:"site"`
	InRange        bool           `json:"inRange"`
	DistanceMeters float64        `json:"distanceMeters"`
	Message        string         `json:"message"`
}

// Client talks to the trackerd HTTP API.
type Client struct {
	baseURL string
	http    *http.Client
}

// NewClient returns a client for the server at baseURL.
func NewClient(baseURL string, timeout time.Duration) *Client {
	return &Client{
		baseURL: strings.TrimRight(baseURL, "/"),
		http:    &http.Client{Timeout: timeout},
	}
}

// Start clocks in and returns the resulting status.
func (c *Client) Start(ctx context.Context) (Status, error) {
	var st Status
	err := c.do(ctx, http.MethodPost, "/api/tracking/start", nil, &st)
	return st, err
}

// Stop clocks out, purging the location history when clearHistory is set.
func (c *Client) Stop(ctx context.Context, clearHistory bool) (Status, error) {
	var st Status
	q := url.Values{"clear_history": {strconv.FormatBool(clearHistory)}}
	err := c.do(ctx, http.MethodPost, "/api/tracking/stop", q, &st)
	return st, err
}

// Status returns the current tracking status and schedule.
func (c *Client) Status(ctx context.Context) (Status, error) {
	var st Status
	err := c.do(ctx, http.MethodGet, "/api/tracking/status", nil, &st)
	return st, err
}

// History returns the recorded location fixes.
func (c *Client) History(ctx context.Context) ([]model.LocationFix, error) {
	var body struct {
		Locations []model.LocationFix `json:"locations"`
	}
	err := c.do(ctx, http.MethodGet, "/api/history", nil, &body)
	return body.Locations, err
}

// Check evaluates a "lat,lon" position against the configured site.
func (c *Client) Check(ctx context.Context, position string) (GeofenceCheck, error) {
	var check GeofenceCheck
	err := c.do(ctx, http.MethodGet, "/api/geofence", url.Values{"position": {position}}, &check)
	return check, err
}

func (c *Client) do(ctx context.Context, method, path string, query url.Values, out any) error {
	target := c.baseURL + path
	if len(query) > 0 {
		target += "?" + query.Encode()
	}
	req, err := http.NewRequestWithContext(ctx, method, target, nil)
	if err != nil {
		return fmt.Errorf("failed to build request: %w", err)
	}
	req.Header.Set("Accept", "application/json")

	resp, err := c.http.Do(req)
	if err != nil {
		return fmt.Errorf("failed to reach %s: %w", c.baseURL, err)
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return fmt.Errorf("failed to read response: %w", err)
	}
	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		apiErr := &APIError{StatusCode: resp.StatusCode}
		var e struct {
			Error string `json:"error"`
		}
		if json.Unmarshal(body, &e) == nil {
			apiErr.Message = e.Error
		}
		return apiErr
	}
	if err := json.Unmarshal(body, out); err != nil {
		return fmt.Errorf("failed to decode response: %w", err)
	}
	return nil
}

// IsConflict reports whether err is a 409 from the server.
func IsConflict(err error) bool {
	var apiErr *APIError
	return errors.As(err, &apiErr) && apiErr.StatusCode == http.StatusConflict
}
