package booking

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"time"

	"github.com/ErlanBelekov/campsite-scheduler/internal/domain"
)

const sessionHeader = "X-Queue-Session"

type AvailabilityQuery struct {
	CampgroundID  string
	ArrivalDate   time.Time
	DepartureDate time.Time
	Guests        int
}

type AvailabilityResult struct {
	Sites []domain.Site `json:"sites"`
}

type RebookResult struct {
	Success      bool   `json:"success"`
	NewReference string `json:"new_reference"`
	Message      string `json:"message"`
}

// Client is the upstream booking API. Calls are never retried here; the
// scheduler's next firing is the retry.
type Client interface {
	CheckAvailability(ctx context.Context, sessionKey string, q AvailabilityQuery) (*AvailabilityResult, error)
	Rebook(ctx context.Context, sessionKey, bookingReference string) (*RebookResult, error)
}

type HTTPClient struct {
	baseURL string
	client  *http.Client
}

func NewHTTPClient(baseURL string, timeout time.Duration) *HTTPClient {
	return &HTTPClient{
		baseURL: strings.TrimRight(baseURL, "/"),
		client:  &http.Client{Timeout: timeout},
	}
}

func (c *HTTPClient) CheckAvailability(ctx context.Context, sessionKey string, q AvailabilityQuery) (*AvailabilityResult, error) {
	v := url.Values{}
	v.Set("campground_id", q.CampgroundID)
	v.Set("arrival", q.ArrivalDate.Format(time.DateOnly))
	v.Set("departure", q.DepartureDate.Format(time.DateOnly))
	v.Set("guests", strconv.Itoa(q.Guests))

	var out AvailabilityResult
	if err := c.do(ctx, http.MethodGet, "/availability?"+v.Encode(), sessionKey, nil, &out); err != nil {
		return nil, &domain.AvailabilityCheckError{CampgroundID: q.CampgroundID, Err: err}
	}
	return &out, nil
}

func (c *HTTPClient) Rebook(ctx context.Context, sessionKey, bookingReference string) (*RebookResult, error) {
	body, err := json.Marshal(map[string]string{"booking_reference": bookingReference})
	if err != nil {
		return nil, &domain.RebookError{BookingReference: bookingReference, Err: err}
	}

	var out RebookResult
	path := "/bookings/" + url.PathEscape(bookingReference) + "/rebook"
	if err := c.do(ctx, http.MethodPost, path, sessionKey, body, &out); err != nil {
		return nil, &domain.RebookError{BookingReference: bookingReference, Err: err}
	}
	return &out, nil
}

func (c *HTTPClient) do(ctx context.Context, method, path, sessionKey string, body []byte, out any) error {
	var bodyReader io.Reader
	if body != nil {
		bodyReader = bytes.NewReader(body)
	}

	req, err := http.NewRequestWithContext(ctx, method, c.baseURL+path, bodyReader)
	if err != nil {
		return fmt.Errorf("build request: %w", err)
	}
	req.Header.Set("Accept", "application/json")
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	if sessionKey != "" {
		req.Header.Set(sessionHeader, sessionKey)
	}

	resp, err := c.client.Do(req)
	if err != nil {
		return fmt.Errorf("do request: %w", err)
	}
	defer func() { _ = resp.Body.Close() }()

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		_, _ = io.Copy(io.Discard, resp.Body)
		return fmt.Errorf("unexpected status code: %d", resp.StatusCode)
	}

	if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
		return fmt.Errorf("decode response: %w", err)
	}
	return nil
}
