package admission

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"
)

// CheckResponse is the body of GET /check-create-session.
type CheckResponse struct {
	Status        string `json:"status"`
	SessionKey    string `json:"session_key"`
	QueuePosition *int   `json:"queue_position"`
	WaitTime      *int   `json:"wait_time"`
	ExpirySeconds int    `json:"expiry_seconds"`
}

// API is the upstream admission endpoint.
type API interface {
	CheckCreateSession(ctx context.Context, sessionKey string) (*CheckResponse, error)
}

type HTTPAPI struct {
	baseURL    string
	queueGroup string
	client     *http.Client
}

func NewHTTPAPI(baseURL, queueGroup string, timeout time.Duration) *HTTPAPI {
	return &HTTPAPI{
		baseURL:    strings.TrimRight(baseURL, "/"),
		queueGroup: queueGroup,
		client:     &http.Client{Timeout: timeout},
	}
}

func (a *HTTPAPI) CheckCreateSession(ctx context.Context, sessionKey string) (*CheckResponse, error) {
	q := url.Values{}
	q.Set("session_key", sessionKey)
	q.Set("queue_group", a.queueGroup)

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, a.baseURL+"/check-create-session?"+q.Encode(), nil)
	if err != nil {
		return nil, fmt.Errorf("build request: %w", err)
	}
	req.Header.Set("Accept", "application/json")

	resp, err := a.client.Do(req)
	if err != nil {
		return nil, fmt.Errorf("do request: %w", err)
	}
	defer func() { _ = resp.Body.Close() }()

	if resp.StatusCode != http.StatusOK {
		_, _ = io.Copy(io.Discard, resp.Body)
		return nil, fmt.Errorf("unexpected status code: %d", resp.StatusCode)
	}

	var out CheckResponse
	if err := json.NewDecoder(resp.Body).Decode(&out); err != nil {
		return nil, fmt.Errorf("decode response: %w", err)
	}
	return &out, nil
}
