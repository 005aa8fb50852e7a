// Package client is the Go client for the pacelog backend. Besides
// plain API calls it provides Store, a local mirror of the user's
// activities with optimistic writes and live change feed merging.
package client

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strconv"
	"time"

	"go.opentelemetry.io/contrib/instrumentation/net/http/otelhttp"

	"github.com/pacelog/pacelog/internal/activities"
	"github.com/pacelog/pacelog/internal/auth"
	"github.com/pacelog/pacelog/internal/goals"
	"github.com/pacelog/pacelog/internal/presets"
	"github.com/pacelog/pacelog/internal/stats"
)

const defaultTimeout = 30 * time.Second

// APIError is a response the server did send: the request reached the
// backend and was rejected. Transport failures are returned as-is.
type APIError struct {
	StatusCode int
	Message    string
}

func (e *APIError) Error() string {
	return fmt.Sprintf("api error [%d]: %s", e.StatusCode, e.Message)
}

type Client struct {
	baseURL    string
	token      string
	httpClient *http.Client
}

func New(baseURL string) *Client {
	return &Client{
		baseURL: baseURL,
		httpClient: &http.Client{
			Timeout:   defaultTimeout,
			Transport: otelhttp.NewTransport(http.DefaultTransport),
		},
	}
}

// SetToken sets the session token used on subsequent requests.
func (c *Client) SetToken(token string) {
	c.token = token
}

func (c *Client) Token() string {
	return c.token
}

func (c *Client) RequestLoginCode(ctx context.Context, email string) error {
	return c.do(ctx, http.MethodPost, "/auth/code", auth.CodeRequest{Email: email}, nil)
}

// Login verifies the mailed code and stores the received session token
// on the client.
func (c *Client) Login(ctx context.Context, email, code string) (string, error) {
	var resp auth.LoginResponse
	if err := c.do(ctx, http.MethodPost, "/auth/login", auth.LoginRequest{
		Email: email,
		Code:  code,
	}, &resp); err != nil {
		return "", err
	}
	c.token = resp.Token
	return resp.Token, nil
}

func (c *Client) Logout(ctx context.Context) error {
	if err := c.do(ctx, http.MethodPost, "/auth/logout", nil, nil); err != nil {
		return err
	}
	c.token = ""
	return nil
}

func (c *Client) ListActivities(ctx context.Context) ([]activities.Activity, error) {
	var found []activities.Activity
	if err := c.do(ctx, http.MethodGet, "/activities", nil, &found); err != nil {
		return nil, err
	}
	return found, nil
}

// AddActivity returns the stored activity, with the server assigned id.
func (c *Client) AddActivity(ctx context.Context, activity activities.Activity) (*activities.Activity, error) {
	var added activities.Activity
	if err := c.do(ctx, http.MethodPost, "/activities", activity, &added); err != nil {
		return nil, err
	}
	return &added, nil
}

func (c *Client) UpdateActivity(ctx context.Context, activity activities.Activity) error {
	return c.do(ctx, http.MethodPut, "/activities", activity, nil)
}

func (c *Client) DeleteActivity(ctx context.Context, id int) error {
	return c.do(ctx, http.MethodDelete, "/activities/"+strconv.Itoa(id), nil, nil)
}

func (c *Client) ListPresets(ctx context.Context) ([]presets.Preset, error) {
	var found []presets.Preset
	if err := c.do(ctx, http.MethodGet, "/presets", nil, &found); err != nil {
		return nil, err
	}
	return found, nil
}

// RecentPresets returns the few most recently used presets of the
// given activity type, the ones shown on the quick log form.
func (c *Client) RecentPresets(ctx context.Context, activityType activities.Type) ([]presets.Preset, error) {
	var found []presets.Preset
	path := "/presets/recent?type=" + activityType.String()
	if err := c.do(ctx, http.MethodGet, path, nil, &found); err != nil {
		return nil, err
	}
	return found, nil
}

func (c *Client) AddPreset(ctx context.Context, preset presets.Preset) (*presets.Preset, error) {
	var added presets.Preset
	if err := c.do(ctx, http.MethodPost, "/presets", preset, &added); err != nil {
		return nil, err
	}
	return &added, nil
}

func (c *Client) UpdatePreset(ctx context.Context, preset presets.Preset) error {
	return c.do(ctx, http.MethodPut, "/presets", preset, nil)
}

func (c *Client) DeletePreset(ctx context.Context, id int) error {
	return c.do(ctx, http.MethodDelete, "/presets/"+strconv.Itoa(id), nil, nil)
}

func (c *Client) MarkPresetUsed(ctx context.Context, id int) error {
	return c.do(ctx, http.MethodPost, "/presets/"+strconv.Itoa(id)+"/used", nil, nil)
}

func (c *Client) Goals(ctx context.Context) ([]goals.Goal, error) {
	var found []goals.Goal
	if err := c.do(ctx, http.MethodGet, "/goals", nil, &found); err != nil {
		return nil, err
	}
	return found, nil
}

func (c *Client) SaveGoals(ctx context.Context, goalsToSave []goals.Goal) error {
	return c.do(ctx, http.MethodPut, "/goals", goalsToSave, nil)
}

func (c *Client) StatsOverview(ctx context.Context) (*stats.Overview, error) {
	var overview stats.Overview
	if err := c.do(ctx, http.MethodGet, "/stats/overview", nil, &overview); err != nil {
		return nil, err
	}
	return &overview, nil
}

func (c *Client) do(ctx context.Context, method, path string, reqBody, respBody any) error {
	var bodyReader io.Reader
	if reqBody != nil {
		reqJson, err := json.Marshal(reqBody)
		if err != nil {
			return fmt.Errorf("marshal request: %w", err)
		}
		bodyReader = bytes.NewReader(reqJson)
	}

	req, err := http.NewRequestWithContext(ctx, method, c.baseURL+path, bodyReader)
	if err != nil {
		return fmt.Errorf("create request: %w", err)
	}
	if reqBody != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	if c.token != "" {
		req.Header.Set(auth.TokenHeader, c.token)
	}
	req.Header.Set("User-Agent", "PaceLog/1")

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return fmt.Errorf("do request: %w", err)
	}
	defer func() {
		_, _ = io.Copy(io.Discard, resp.Body)
		_ = resp.Body.Close()
	}()

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		message, _ := io.ReadAll(io.LimitReader(resp.Body, 1024))
		return &APIError{
			StatusCode: resp.StatusCode,
			Message:    string(bytes.TrimSpace(message)),
		}
	}

	if respBody == nil {
		return nil
	}
	if err := json.NewDecoder(resp.Body).Decode(respBody); err != nil {
		return fmt.Errorf("decode response: %w", err)
	}
	return nil
}
