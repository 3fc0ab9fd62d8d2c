// Package client talks to a trackr server over its JSON API.
package client

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"

	"golang.org/x/sync/errgroup"

	"github.com/greaterodd/odd-trackr/internal/constants"
	"github.com/greaterodd/odd-trackr/internal/models"
	"github.com/greaterodd/odd-trackr/internal/validation"
)

type Config struct {
	BaseURL string
	Token   string
	// Timeout bounds each request, including reading the body.
	Timeout time.Duration
	// HTTPClient defaults to a plain http.Client.
	HTTPClient *http.Client
}

type Client struct {
	baseURL string
	token   string
	timeout time.Duration
	http    *http.Client
}

func New(cfg Config) *Client {
	if cfg.Timeout <= 0 {
		cfg.Timeout = constants.DefaultRequestTimeout
	}
	if cfg.HTTPClient == nil {
		cfg.HTTPClient = &http.Client{}
	}
	return &Client{
		baseURL: strings.TrimRight(cfg.BaseURL, "/"),
		token:   cfg.Token,
		timeout: cfg.Timeout,
		http:    cfg.HTTPClient,
	}
}

type envelope struct {
	Data  json.RawMessage `json:"data"`
	Error *struct {
		Status    int                     `json:"status"`
		Message   string                  `json:"message"`
		Fields    []validation.FieldError `json:"fields"`
		RequestID string                  `json:"requestId"`
	} `json:"error"`
}

// do sends body as JSON and decodes the envelope's data into out (if non-nil).
func (c *Client) do(ctx context.Context, method, path string, body, out any) error {
	ctx, cancel := context.WithTimeout(ctx, c.timeout)
	defer cancel()

	var reader io.Reader
	if body != nil {
		buf, err := json.Marshal(body)
		if err != nil {
			return fmt.Errorf("encode request: %w", err)
		}
		reader = bytes.NewReader(buf)
	}

	req, err := http.NewRequestWithContext(ctx, method, c.baseURL+path, reader)
	if err != nil {
		return err
	}
	req.Header.Set("Accept", "application/json")
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	if c.token != "" {
		req.Header.Set("Authorization", "Bearer "+c.token)
	}

	res, err := c.http.Do(req)
	if err != nil {
		return fmt.Errorf("%s %s: %w", method, path, err)
	}
	defer res.Body.Close()

	raw, err := io.ReadAll(res.Body)
	if err != nil {
		return fmt.Errorf("%s %s: read body: %w", method, path, err)
	}

	var env envelope
	if len(raw) > 0 {
		if err := json.Unmarshal(raw, &env); err != nil && res.StatusCode < 300 {
			return fmt.Errorf("%s %s: decode response: %w", method, path, err)
		}
	}

	if res.StatusCode >= 300 {
		apiErr := &APIError{Status: res.StatusCode}
		if env.Error != nil {
			apiErr.Message = env.Error.Message
			apiErr.Fields = env.Error.Fields
			apiErr.RequestID = env.Error.RequestID
		}
		return apiErr
	}

	if out != nil && len(env.Data) > 0 {
		if err := json.Unmarshal(env.Data, out); err != nil {
			return fmt.Errorf("%s %s: decode data: %w", method, path, err)
		}
	}
	return nil
}

func habitPath(id string) string {
	return "/v1/habits/" + url.PathEscape(id)
}

func completionPath(habitID, date string) string {
	return habitPath(habitID) + "/completions/" + url.PathEscape(date)
}

func (c *Client) Health(ctx context.Context) error {
	return c.do(ctx, http.MethodGet, "/healthz", nil, nil)
}

func (c *Client) Me(ctx context.Context) (models.User, error) {
	var u models.User
	err := c.do(ctx, http.MethodGet, "/v1/me", nil, &u)
	return u, err
}

func (c *Client) ListHabits(ctx context.Context) ([]models.Habit, error) {
	var habits []models.Habit
	err := c.do(ctx, http.MethodGet, "/v1/habits", nil, &habits)
	return habits, err
}

func (c *Client) GetHabit(ctx context.Context, id string) (models.Habit, error) {
	var h models.Habit
	err := c.do(ctx, http.MethodGet, habitPath(id), nil, &h)
	return h, err
}

func (c *Client) CreateHabit(ctx context.Context, req validation.CreateHabitRequest) (models.Habit, error) {
	var h models.Habit
	err := c.do(ctx, http.MethodPost, "/v1/habits", req, &h)
	return h, err
}

func (c *Client) UpdateHabit(ctx context.Context, id string, req validation.UpdateHabitRequest) (models.Habit, error) {
	var h models.Habit
	err := c.do(ctx, http.MethodPatch, habitPath(id), req, &h)
	return h, err
}

func (c *Client) DeleteHabit(ctx context.Context, id string) error {
	return c.do(ctx, http.MethodDelete, habitPath(id), nil, nil)
}

func (c *Client) HabitCompletions(ctx context.Context, habitID string) ([]models.Completion, error) {
	var out []models.Completion
	err := c.do(ctx, http.MethodGet, habitPath(habitID)+"/completions", nil, &out)
	return out, err
}

// SetCompletion upserts the (habit, date) record; resending the same value is harmless.
func (c *Client) SetCompletion(ctx context.Context, habitID, date string, completed bool) (models.Completion, error) {
	var out models.Completion
	err := c.do(ctx, http.MethodPut, completionPath(habitID, date), validation.SetCompletionRequest{Completed: &completed}, &out)
	return out, err
}

func (c *Client) DeleteCompletion(ctx context.Context, habitID, date string) error {
	return c.do(ctx, http.MethodDelete, completionPath(habitID, date), nil, nil)
}

func (c *Client) AllCompletions(ctx context.Context) ([]models.Completion, error) {
	var out []models.Completion
	err := c.do(ctx, http.MethodGet, "/v1/completions", nil, &out)
	return out, err
}

func (c *Client) CompletionsForDate(ctx context.Context, date string) ([]models.DatedCompletion, error) {
	var out []models.DatedCompletion
	err := c.do(ctx, http.MethodGet, "/v1/completions/"+url.PathEscape(date), nil, &out)
	return out, err
}

func (c *Client) HabitsWithCompletions(ctx context.Context) ([]models.HabitWithCompletions, error) {
	var out []models.HabitWithCompletions
	err := c.do(ctx, http.MethodGet, "/v1/habit-completions", nil, &out)
	return out, err
}

// Bootstrap loads habits and completions in parallel and pairs them, the way
// the client seeds its local state.
func (c *Client) Bootstrap(ctx context.Context) ([]models.HabitWithCompletions, error) {
	var (
		habits      []models.Habit
		completions []models.Completion
	)
	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		var err error
		habits, err = c.ListHabits(gctx)
		return err
	})
	g.Go(func() error {
		var err error
		completions, err = c.AllCompletions(gctx)
		return err
	})
	if err := g.Wait(); err != nil {
		return nil, err
	}

	return models.Pair(habits, completions), nil
}

// Streaks asks the server for every habit's streaks as of today, the
// caller's calendar day. An empty today leaves the server's clock in charge.
func (c *Client) Streaks(ctx context.Context, today string) ([]models.HabitWithStreaks, error) {
	path := "/v1/streaks"
	if today != "" {
		path += "?" + url.Values{"today": {today}}.Encode()
	}
	var out []models.HabitWithStreaks
	err := c.do(ctx, http.MethodGet, path, nil, &out)
	return out, err
}

func (c *Client) Import(ctx context.Context, habits []models.PortableHabit) ([]models.HabitWithCompletions, error) {
	var out []models.HabitWithCompletions
	err := c.do(ctx, http.MethodPost, "/v1/import", validation.ImportRequest{Habits: habits}, &out)
	return out, err
}

func (c *Client) Export(ctx context.Context) ([]models.PortableHabit, error) {
	var out []models.PortableHabit
	err := c.do(ctx, http.MethodGet, "/v1/export", nil, &out)
	return out, err
}
