package api

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"time"

	"github.com/annel0/tower-stacker/internal/game"
	"github.com/annel0/tower-stacker/internal/leaderboard"
)

// Client - JSON клиент REST API таблицы лидеров.
// Реализует game.ResultSubmitter для терминального клиента.
type Client struct {
	baseURL string
	http    *http.Client
}

var _ game.ResultSubmitter = (*Client)(nil)

// APIError - ответ сервера с кодом ошибки.
type APIError struct {
	Status  int
	Message string
	Field   string
}

func (e *APIError) Error() string {
	if e.Field != "" {
		return fmt.Sprintf("api: %d %s (%s)", e.Status, e.Message, e.Field)
	}
	return fmt.Sprintf("api: %d %s", e.Status, e.Message)
}

// NewClient создаёт клиент. httpClient == nil - клиент с таймаутом 10 секунд.
func NewClient(baseURL string, httpClient *http.Client) (*Client, error) {
	u, err := url.Parse(strings.TrimRight(baseURL, "/"))
	if err != nil {
		return nil, fmt.Errorf("server url: %w", err)
	}
	if u.Scheme != "http" && u.Scheme != "https" {
		return nil, fmt.Errorf("server url %q: expected http or https", baseURL)
	}
	if httpClient == nil {
		httpClient = &http.Client{Timeout: 10 * time.Second}
	}
	return &Client{baseURL: u.String(), http: httpClient}, nil
}

// SubmitResult отправляет результат победы.
func (c *Client) SubmitResult(ctx context.Context, r game.Result) error {
	_, err := c.Submit(ctx, leaderboard.FromResult(r))
	return err
}

// Submit сохраняет результат и возвращает созданную запись.
func (c *Client) Submit(ctx context.Context, s leaderboard.Submission) (*leaderboard.Record, error) {
	body, err := json.Marshal(s)
	if err != nil {
		return nil, err
	}
	var rec leaderboard.Record
	if err := c.do(ctx, http.MethodPost, "/api/scores", body, http.StatusCreated, &rec); err != nil {
		return nil, err
	}
	return &rec, nil
}

// ListTop возвращает лучшие результаты.
func (c *Client) ListTop(ctx context.Context, limit int) ([]leaderboard.Record, error) {
	path := "/api/scores"
	if limit > 0 {
		path += "?limit=" + strconv.Itoa(limit)
	}
	var out []leaderboard.Record
	if err := c.do(ctx, http.MethodGet, path, nil, http.StatusOK, &out); err != nil {
		return nil, err
	}
	return out, nil
}

// Settings возвращает пресеты сложности сервера.
func (c *Client) Settings(ctx context.Context) (*GameSettings, error) {
	var out GameSettings
	if err := c.do(ctx, http.MethodGet, "/api/settings", nil, http.StatusOK, &out); err != nil {
		return nil, err
	}
	return &out, nil
}

func (c *Client) do(ctx context.Context, method, path string, body []byte, want int, out interface{}) error {
	req, err := http.NewRequestWithContext(ctx, method, c.baseURL+path, bytes.NewReader(body))
	if err != nil {
		return err
	}
	req.Header.Set("Accept", "application/json")
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}

	resp, err := c.http.Do(req)
	if err != nil {
		return fmt.Errorf("%s %s: %w", method, path, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != want {
		apiErr := &APIError{Status: resp.StatusCode, Message: resp.Status}
		var e ErrorResponse
		if json.NewDecoder(resp.Body).Decode(&e) == nil && e.Message != "" {
			apiErr.Message = e.Message
			apiErr.Field = e.Field
		}
		return apiErr
	}
	if out == nil {
		return nil
	}
	if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
		return fmt.Errorf("%s %s: decode: %w", method, path, err)
	}
	return nil
}
