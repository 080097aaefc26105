// Package sheets is a minimal Google Sheets v4 REST client covering
// the two calls the spreadsheet sink needs: reading one column and
// appending rows. Auth is a service-account JWT via oauth2/google.
package sheets

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"time"

	"golang.org/x/oauth2/google"

	"github.com/makerspace/printwatch/internal/pkg/httpretry"
)

const (
	defaultBaseURL    = "https://sheets.googleapis.com/v4"
	scopeSpreadsheets = "https://www.googleapis.com/auth/spreadsheets"
)

// Client is an authenticated Sheets API client bound to one
// spreadsheet.
type Client struct {
	baseURL       string
	spreadsheetID string
	httpClient    httpretry.HTTPDoer
}

// NewClient builds a client from service-account credentials JSON.
// Invalid or missing credentials are a setup error.
func NewClient(ctx context.Context, credentialsJSON []byte, spreadsheetID string, timeout time.Duration) (*Client, error) {
	conf, err := google.JWTConfigFromJSON(credentialsJSON, scopeSpreadsheets)
	if err != nil {
		return nil, fmt.Errorf("failed to parse service account credentials: %w", err)
	}
	if timeout == 0 {
		timeout = 30 * time.Second
	}

	authClient := conf.Client(ctx)
	authClient.Timeout = timeout

	return &Client{
		baseURL:       defaultBaseURL,
		spreadsheetID: spreadsheetID,
		httpClient:    httpretry.NewRetryClient(authClient, 3),
	}, nil
}

// NewClientWithHTTP builds a client on a caller-supplied HTTP client
// and base URL, used by tests against httptest servers.
func NewClientWithHTTP(httpClient httpretry.HTTPDoer, baseURL, spreadsheetID string) *Client {
	return &Client{
		baseURL:       baseURL,
		spreadsheetID: spreadsheetID,
		httpClient:    httpClient,
	}
}

// valueRange mirrors the Sheets API ValueRange body.
type valueRange struct {
	Range          string          `json:"range,omitempty"`
	MajorDimension string          `json:"majorDimension,omitempty"`
	Values         [][]interface{} `json:"values"`
}

func (c *Client) doRequest(ctx context.Context, method, requestURL string, body interface{}) ([]byte, error) {
	var reqBody io.Reader
	if body != nil {
		jsonBody, err := json.Marshal(body)
		if err != nil {
			return nil, fmt.Errorf("failed to marshal request body: %w", err)
		}
		reqBody = bytes.NewBuffer(jsonBody)
	}

	req, err := http.NewRequestWithContext(ctx, method, requestURL, reqBody)
	if err != nil {
		return nil, fmt.Errorf("failed to create request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("sheets request failed: %w", err)
	}
	defer resp.Body.Close()

	respBody, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("failed to read sheets response: %w", err)
	}

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return nil, fmt.Errorf("sheets API error (status %d): %s", resp.StatusCode, string(respBody))
	}
	return respBody, nil
}

// GetColumn returns the first cell of every row in the given column of
// the given tab, header included. Empty cells come back as "".
func (c *Client) GetColumn(ctx context.Context, sheetName, column string) ([]string, error) {
	rng := fmt.Sprintf("%s!%s:%s", sheetName, column, column)
	requestURL := fmt.Sprintf("%s/spreadsheets/%s/values/%s",
		c.baseURL, c.spreadsheetID, url.PathEscape(rng))

	body, err := c.doRequest(ctx, http.MethodGet, requestURL, nil)
	if err != nil {
		return nil, err
	}

	var vr valueRange
	if err := json.Unmarshal(body, &vr); err != nil {
		return nil, fmt.Errorf("failed to parse sheets response: %w", err)
	}

	cells := make([]string, 0, len(vr.Values))
	for _, row := range vr.Values {
		if len(row) == 0 {
			cells = append(cells, "")
			continue
		}
		cells = append(cells, fmt.Sprintf("%v", row[0]))
	}
	return cells, nil
}

// AppendRows appends all rows to the given tab in one batched
// values:append call, so a run costs a single write round-trip and rows
// never interleave with concurrent edits.
func (c *Client) AppendRows(ctx context.Context, sheetName string, rows [][]interface{}) error {
	if len(rows) == 0 {
		return nil
	}
	requestURL := fmt.Sprintf("%s/spreadsheets/%s/values/%s:append?valueInputOption=RAW&insertDataOption=INSERT_ROWS",
		c.baseURL, c.spreadsheetID, url.PathEscape(sheetName))

	_, err := c.doRequest(ctx, http.MethodPost, requestURL, valueRange{Values: rows})
	return err
}
