// Package ultimaker talks to the local HTTP API of an Ultimaker-class
// printer: job history, system info, and material profiles.
package ultimaker

import (
	"context"
	"encoding/json"
	"encoding/xml"
	"fmt"
	"io"
	"net/http"
	"time"

	"github.com/makerspace/printwatch/internal/pkg/httpretry"
)

// Client communicates with a single printer's local API.
type Client struct {
	address    string
	baseURL    string
	pageSize   int
	httpClient httpretry.HTTPDoer

	systemName    string
	materialNames map[string]string
}

// Config holds per-printer client settings.
type Config struct {
	Address    string
	Timeout    time.Duration
	PageSize   int
	MaxRetries int
}

// NewClient creates a client for one printer address.
func NewClient(cfg Config) *Client {
	timeout := cfg.Timeout
	if timeout == 0 {
		timeout = 10 * time.Second
	}
	pageSize := cfg.PageSize
	if pageSize <= 0 {
		pageSize = 50
	}
	return &Client{
		address:  cfg.Address,
		baseURL:  fmt.Sprintf("http://%s/api/v1", cfg.Address),
		pageSize: pageSize,
		httpClient: httpretry.NewRetryClient(&http.Client{
			Timeout: timeout,
		}, cfg.MaxRetries),
		materialNames: make(map[string]string),
	}
}

// SetHTTPClient sets a custom HTTP client (useful for testing).
func (c *Client) SetHTTPClient(client httpretry.HTTPDoer) {
	c.httpClient = client
}

// Address returns the printer network address this client polls.
func (c *Client) Address() string { return c.address }

func (c *Client) get(ctx context.Context, endpoint string) ([]byte, error) {
	url := fmt.Sprintf("%s/%s", c.baseURL, endpoint)
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		return nil, fmt.Errorf("failed to create request: %w", err)
	}

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("printer %s request failed: %w", c.address, err)
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("failed to read printer %s response: %w", c.address, err)
	}

	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("printer %s returned %d for %s", c.address, resp.StatusCode, endpoint)
	}
	return body, nil
}

// JobHistory fetches the full job history, paging until the printer
// returns a short page. Entries come back in device order, unfiltered.
func (c *Client) JobHistory(ctx context.Context) ([]PrintJob, error) {
	var all []PrintJob
	offset := 0
	for {
		endpoint := fmt.Sprintf("history/print_jobs?offset=%d&count=%d", offset, c.pageSize)
		body, err := c.get(ctx, endpoint)
		if err != nil {
			return nil, err
		}

		var page []PrintJob
		if err := json.Unmarshal(body, &page); err != nil {
			return nil, fmt.Errorf("printer %s returned malformed job history: %w", c.address, err)
		}

		all = append(all, page...)
		if len(page) < c.pageSize {
			return all, nil
		}
		offset += c.pageSize
	}
}

// SystemName returns the printer's display name, cached after the first
// successful lookup. Falls back to "Printer-<address>" when the system
// endpoint is unavailable; the name is informational only.
func (c *Client) SystemName(ctx context.Context) string {
	if c.systemName != "" {
		return c.systemName
	}

	body, err := c.get(ctx, "system")
	if err == nil {
		var info systemInfo
		if json.Unmarshal(body, &info) == nil && info.Name != "" {
			c.systemName = info.Name
			return c.systemName
		}
	}
	c.systemName = fmt.Sprintf("Printer-%s", c.address)
	return c.systemName
}

// Material profiles are XML documents in the Ultimaker fdmmaterial
// namespace; the display name lives under metadata/name.
type materialProfile struct {
	XMLName  xml.Name `xml:"fdmmaterial"`
	Metadata struct {
		Name struct {
			Brand    string `xml:"brand"`
			Material string `xml:"material"`
		} `xml:"name"`
	} `xml:"metadata"`
}

// MaterialName resolves a material GUID to its display name via
// /api/v1/materials/<guid>, caching per client. Returns "Unknown" for
// an empty GUID or any lookup/parse failure.
func (c *Client) MaterialName(ctx context.Context, guid string) string {
	if guid == "" {
		return "Unknown"
	}
	if name, ok := c.materialNames[guid]; ok {
		return name
	}

	name := "Unknown"
	if body, err := c.get(ctx, "materials/"+guid); err == nil {
		var profile materialProfile
		if xml.Unmarshal(body, &profile) == nil && profile.Metadata.Name.Material != "" {
			name = profile.Metadata.Name.Material
		}
	}
	c.materialNames[guid] = name
	return name
}
