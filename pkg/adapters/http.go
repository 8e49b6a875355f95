package adapters

import (
	"context"
	"fmt"
	"io"
	"net/http"
	"time"

	"github.com/tidwall/gjson"

	"github.com/HatiCode/salescast/pkg/dataset"
)

// HTTPSource reads a sales panel from any REST API that returns JSON.
// The rows are located with a gjson path and each element's fields become
// one raw record, so no custom parsing code is needed per upstream system.
//
// Example configuration for a response like
//
//	{"data": {"rows": [{"agency": "A01", "sku": "S1", "date": "2017-01-01", "volume": 120.5}, ...]}}
//
// would be:
//
//	source := &adapters.HTTPSource{
//	    URL:      "https://sales-api.internal/v1/panel",
//	    RowsPath: "data.rows",
//	}
type HTTPSource struct {
	// URL is the endpoint to call (required).
	URL string

	// RowsPath is the gjson path to the array of row objects (required).
	// Use "@this" when the response body is the array itself.
	RowsPath string

	// Headers are custom HTTP headers, e.g. an Authorization token.
	Headers map[string]string

	// HTTPClient is optional; if nil a default client with timeout is used.
	// Pass a client from httpx.NewClient to enable mTLS.
	HTTPClient *http.Client
}

func (s *HTTPSource) Name() string { return "http" }

// Fetch calls the endpoint and extracts raw rows from the JSON response.
// Every scalar field of each row object is kept; the column list is the
// union of fields in first-seen order so later normalization stays
// deterministic.
func (s *HTTPSource) Fetch(ctx context.Context) (*dataset.Table, error) {
	if s.URL == "" {
		return nil, fmt.Errorf("http source: URL is required")
	}
	if s.RowsPath == "" {
		return nil, fmt.Errorf("http source: RowsPath is required")
	}

	cli := s.HTTPClient
	if cli == nil {
		cli = &http.Client{Timeout: 30 * time.Second}
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, s.URL, nil)
	if err != nil {
		return nil, fmt.Errorf("http source: create request: %w", err)
	}
	req.Header.Set("Accept", "application/json")
	for k, v := range s.Headers {
		req.Header.Set(k, v)
	}

	resp, err := cli.Do(req)
	if err != nil {
		return nil, fmt.Errorf("http source: request: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		body, _ := io.ReadAll(io.LimitReader(resp.Body, 1024))
		return nil, fmt.Errorf("http source: status %d: %s", resp.StatusCode, string(body))
	}

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("http source: read response: %w", err)
	}

	rowsResult := gjson.GetBytes(body, s.RowsPath)
	if !rowsResult.Exists() {
		return nil, fmt.Errorf("http source: rows path %q not found in response", s.RowsPath)
	}
	if !rowsResult.IsArray() {
		return nil, fmt.Errorf("http source: rows path %q is not an array", s.RowsPath)
	}

	table := &dataset.Table{}
	seen := make(map[string]bool)

	for _, elem := range rowsResult.Array() {
		if !elem.IsObject() {
			return nil, fmt.Errorf("http source: row is not an object: %s", elem.Raw)
		}

		row := make(dataset.Row)
		elem.ForEach(func(key, value gjson.Result) bool {
			col := key.String()
			if !seen[col] {
				seen[col] = true
				table.Columns = append(table.Columns, col)
			}
			switch value.Type {
			case gjson.Number:
				row[col] = value.Float()
			case gjson.String:
				row[col] = value.String()
			case gjson.Null:
				// absent: the dataset layer treats it as a null
			default:
				row[col] = value.String()
			}
			return true
		})
		table.Rows = append(table.Rows, row)
	}

	if len(table.Rows) == 0 {
		return nil, fmt.Errorf("http source: response contains no rows")
	}
	return table, nil
}
