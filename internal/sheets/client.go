package sheets

import (
	"context"
	"encoding/csv"
	"fmt"
	"net/http"
	"net/url"
	"time"

	"github.com/dialndine/omnidesk/backend/internal/config"
	"github.com/rs/zerolog"
)

// Fetcher returns a named tab as a rectangular grid of text cells with
// the header in row 0. Implementations must treat any transport or
// format failure as an error so the caller can abort the whole pass.
type Fetcher interface {
	FetchTable(ctx context.Context, tab string) ([][]string, error)
}

// Client fetches published spreadsheet tabs via the gviz CSV export
type Client struct {
	baseURL string
	sheetID string
	client  *http.Client
	logger  zerolog.Logger
}

// NewClient creates a new spreadsheet client
func NewClient(cfg *config.Config, logger zerolog.Logger) *Client {
	return &Client{
		baseURL: cfg.SheetBaseURL,
		sheetID: cfg.SheetID,
		client:  &http.Client{Timeout: cfg.FetchTimeout},
		logger:  logger.With().Str("component", "sheets").Logger(),
	}
}

// FetchTable downloads one tab as CSV and returns its rows. Rows may have
// varying widths; the reconciler decides what is usable.
func (c *Client) FetchTable(ctx context.Context, tab string) ([][]string, error) {
	u := fmt.Sprintf("%s/%s/gviz/tq?tqx=out:csv&sheet=%s", c.baseURL, c.sheetID, url.QueryEscape(tab))

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, u, nil)
	if err != nil {
		return nil, fmt.Errorf("failed to create request for tab %q: %w", tab, err)
	}

	start := time.Now()
	resp, err := c.client.Do(req)
	if err != nil {
		return nil, fmt.Errorf("failed to fetch tab %q: %w", tab, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("fetch tab %q: unexpected status %d", tab, resp.StatusCode)
	}

	reader := csv.NewReader(resp.Body)
	reader.FieldsPerRecord = -1 // the tabs are hand-maintained, row widths vary
	rows, err := reader.ReadAll()
	if err != nil {
		return nil, fmt.Errorf("tab %q is not valid CSV: %w", tab, err)
	}

	c.logger.Debug().
		Str("tab", tab).
		Int("rows", len(rows)).
		Dur("elapsed", time.Since(start)).
		Msg("tab fetched")

	return rows, nil
}
