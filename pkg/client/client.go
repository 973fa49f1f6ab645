// Package client is a Go client for the papertrade HTTP API.
package client

import (
	"bytes"
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

	"github.com/uhyunpark/papertrade/pkg/api"
	"github.com/uhyunpark/papertrade/pkg/ledger"
)

// DefaultBaseURL is where the server listens by default.
const DefaultBaseURL = "http://localhost:3003"

// APIError is a non-2xx response. It unwraps to the matching ledger error
// so callers can use errors.Is.
type APIError struct {
	StatusCode int
	Code       string // "error" field of the body
	Message    string
}

func (e *APIError) Error() string {
	if e.Message != "" {
		return fmt.Sprintf("api %d: %s: %s", e.StatusCode, e.Code, e.Message)
	}
	return fmt.Sprintf("api %d: %s", e.StatusCode, e.Code)
}

func (e *APIError) Unwrap() error {
	switch {
	case e.Code == "Player not found":
		return ledger.ErrPlayerNotFound
	case e.Code == "Player already exists":
		return ledger.ErrAlreadyExists
	case e.Code == "Invalid order":
		return ledger.ErrInvalidOrder
	case e.Code == "Invalid player id":
		return ledger.ErrInvalidPlayer
	}
	return nil
}

type Client struct {
	baseURL string
	http    *http.Client
}

// New creates a client for baseURL. A nil httpClient uses a 10s timeout client.
func New(baseURL string, httpClient *http.Client) *Client {
	if httpClient == nil {
		httpClient = &http.Client{Timeout: 10 * time.Second}
	}
	return &Client{baseURL: strings.TrimRight(baseURL, "/"), http: httpClient}
}

// Trade describes one order to submit.
type Trade struct {
	Symbol   string
	Side     ledger.Side
	Quantity int64
	T        int64
}

func (c *Client) CreatePlayer(ctx context.Context, playerID string) error {
	var resp api.CreatePlayerResponse
	return c.do(ctx, http.MethodPost, "/player", api.CreatePlayerRequest{PlayerID: playerID}, &resp)
}

func (c *Client) Trade(ctx context.Context, playerID string, tr Trade) error {
	req := api.TradeRequest{
		PlayerID: playerID,
		Symbol:   tr.Symbol,
		Side:     tr.Side.String(),
		Quantity: tr.Quantity,
		T:        tr.T,
	}
	var resp api.MessageResponse
	return c.do(ctx, http.MethodPost, "/trade", req, &resp)
}

// Portfolio returns the snapshots of the window ending at t, oldest first.
func (c *Client) Portfolio(ctx context.Context, playerID string, t int64) ([]api.SnapshotResponse, error) {
	var snaps []api.SnapshotResponse
	path := "/portfolio/" + url.PathEscape(playerID) + "?T=" + strconv.FormatInt(t, 10)
	if err := c.do(ctx, http.MethodGet, path, nil, &snaps); err != nil {
		return nil, err
	}
	return snaps, nil
}

func (c *Client) PriceHistory(ctx context.Context, t int64) ([]api.PricePointResponse, error) {
	var points []api.PricePointResponse
	if err := c.do(ctx, http.MethodGet, "/price-history?T="+strconv.FormatInt(t, 10), nil, &points); err != nil {
		return nil, err
	}
	return points, nil
}

// Orders returns the journaled orders of playerID in submission order.
func (c *Client) Orders(ctx context.Context, playerID string) ([]api.JournalEntry, error) {
	var entries []api.JournalEntry
	if err := c.do(ctx, http.MethodGet, "/player/"+url.PathEscape(playerID)+"/orders", nil, &entries); err != nil {
		return nil, err
	}
	return entries, nil
}

func (c *Client) Securities(ctx context.Context) ([]api.SecurityInfo, error) {
	var securities []api.SecurityInfo
	if err := c.do(ctx, http.MethodGet, "/securities", nil, &securities); err != nil {
		return nil, err
	}
	return securities, nil
}

// Time returns the server's current simulation step.
func (c *Client) Time(ctx context.Context) (api.ClockResponse, error) {
	var clock api.ClockResponse
	err := c.do(ctx, http.MethodGet, "/time", nil, &clock)
	return clock, err
}

func (c *Client) do(ctx context.Context, method, path string, body, out interface{}) error {
	var reader io.Reader
	if body != nil {
		payload, err := json.Marshal(body)
		if err != nil {
			return fmt.Errorf("encode request: %w", err)
		}
		reader = bytes.NewReader(payload)
	}

	req, err := http.NewRequestWithContext(ctx, method, c.baseURL+path, reader)
	if err != nil {
		return fmt.Errorf("build request: %w", err)
	}
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}

	resp, err := c.http.Do(req)
	if err != nil {
		return fmt.Errorf("%s %s: %w", method, path, err)
	}
	defer resp.Body.Close()

	data, err := io.ReadAll(resp.Body)
	if err != nil {
		return fmt.Errorf("read response: %w", err)
	}

	if resp.StatusCode != http.StatusOK {
		apiErr := &APIError{StatusCode: resp.StatusCode}
		var errResp api.ErrorResponse
		if json.Unmarshal(data, &errResp) == nil && errResp.Error != "" {
			apiErr.Code = errResp.Error
			apiErr.Message = errResp.Message
		} else {
			apiErr.Code = http.StatusText(resp.StatusCode)
		}
		return apiErr
	}

	if out == nil {
		return nil
	}
	if err := json.Unmarshal(data, out); err != nil {
		return fmt.Errorf("decode response: %w", err)
	}
	return nil
}

// IsNotFound reports whether err is a 404 from the server.
func IsNotFound(err error) bool {
	var apiErr *APIError
	return errors.As(err, &apiErr) && apiErr.StatusCode == http.StatusNotFound
}
