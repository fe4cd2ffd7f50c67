// Package jhu fetches and tokenizes the upstream daily report CSVs.
package jhu

import (
	"bytes"
	"context"
	"encoding/csv"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"strings"
	"time"
)

// DefaultBaseURL is the canonical location of the CSSE daily report files.
const DefaultBaseURL = "https://raw.githubusercontent.com/CSSEGISandData/COVID-19/master/csse_covid_19_data/csse_covid_19_daily_reports"

// Client downloads one day's report and tokenizes it into rows.
// It implements ingest.SourceFetcher.
type Client struct {
	httpClient *http.Client
	baseURL    string
	logger     *slog.Logger
}

// NewClient creates a daily report client. An empty baseURL selects the
// canonical upstream location.
func NewClient(baseURL string, timeout time.Duration, logger *slog.Logger) *Client {
	if baseURL == "" {
		baseURL = DefaultBaseURL
	}
	return &Client{
		httpClient: &http.Client{
			Timeout: timeout,
		},
		baseURL: strings.TrimSuffix(baseURL, "/"),
		logger:  logger,
	}
}

// FetchRows retrieves the report for the given MM-DD-YYYY date and returns
// its rows, header row included; the caller decides what to do with it.
// Field order is preserved and no type inference is attempted.
func (c *Client) FetchRows(ctx context.Context, date string) ([][]string, error) {
	raw, err := c.fetch(ctx, date)
	if err != nil {
		return nil, err
	}
	return parseRows(raw)
}

// fetch downloads the raw CSV bytes for one date.
func (c *Client) fetch(ctx context.Context, date string) ([]byte, error) {
	url := fmt.Sprintf("%s/%s.csv", c.baseURL, date)

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		return nil, fmt.Errorf("create request: %w", err)
	}

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("fetch daily report %s: %w", date, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		// A 404 usually means the report for this date is not published yet.
		return nil, fmt.Errorf("daily report %s: status %d", date, resp.StatusCode)
	}

	data, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("read daily report %s: %w", date, err)
	}

	c.logger.Debug("fetched daily report", "date", date, "bytes", len(data))
	return data, nil
}

// parseRows tokenizes CSV bytes in header-less mode: every row comes back
// as data, with variable field counts allowed.
func parseRows(data []byte) ([][]string, error) {
	reader := csv.NewReader(bytes.NewReader(data))
	reader.FieldsPerRecord = -1

	rows, err := reader.ReadAll()
	if err != nil {
		return nil, fmt.Errorf("parse daily report: %w", err)
	}
	return rows, nil
}
