// Package notion queries the Notion databases API through the proxy's HTTP client.
package notion

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"

	logging "github.com/ipfs/go-log/v2"
	"github.com/tidwall/gjson"

	"github.com/sayshey/clientportal/internal/client"
)

var log = logging.Logger("notion")

// Page is a Notion page object as returned by the API
type Page map[string]interface{}

// Sort orders a query by one property
type Sort struct {
	Property  string `json:"property"`
	Direction string `json:"direction"`
}

// QueryRequest is the body of a database query
type QueryRequest struct {
	PageSize    int    `json:"page_size,omitempty"`
	Filter      Filter `json:"filter,omitempty"`
	Sorts       []Sort `json:"sorts,omitempty"`
	StartCursor string `json:"start_cursor,omitempty"`
}

// QueryResult is one page of query results
type QueryResult struct {
	Results    []Page
	HasMore    bool
	NextCursor string
	// Payload is the full decoded response, for handlers that pass it through
	Payload map[string]interface{}
}

// APIError is a non-2xx reply from Notion
type APIError struct {
	Status int
	Body   string
	Page   int
}

func (e *APIError) Error() string {
	if e.Page > 0 {
		return fmt.Sprintf("Notion API error on page %d: %d", e.Page, e.Status)
	}
	return fmt.Sprintf("Notion API error: %d", e.Status)
}

// Service wraps the Notion endpoints the portal uses
type Service struct {
	c *client.Client
}

// New returns a new Service
func New(c *client.Client) *Service {
	return &Service{c: c}
}

func (s *Service) call(ctx context.Context, method, path string, body []byte) ([]byte, error) {

	req, err := s.c.NewRequest(ctx, method, path, body)
	if err != nil {
		return nil, fmt.Errorf("could not make request: %w", err)
	}

	res, err := s.c.Do(req)
	if err != nil {
		return nil, fmt.Errorf("could not call Notion: %w", err)
	}
	defer res.Body.Close()

	out, err := io.ReadAll(res.Body)
	if err != nil {
		return nil, fmt.Errorf("could not read Notion response body: %w", err)
	}

	if res.StatusCode < 200 || res.StatusCode > 299 {
		return nil, &APIError{Status: res.StatusCode, Body: string(out)}
	}
	return out, nil
}

// Database returns the raw database object, including its property schema
func (s *Service) Database(ctx context.Context, id string) ([]byte, error) {
	return s.call(ctx, http.MethodGet, "/v1/databases/"+id, nil)
}

// Query fetches a single page of results
func (s *Service) Query(ctx context.Context, id string, q QueryRequest) (*QueryResult, error) {

	b, err := json.Marshal(q)
	if err != nil {
		return nil, fmt.Errorf("could not marshal query: %w", err)
	}

	out, err := s.call(ctx, http.MethodPost, "/v1/databases/"+id+"/query", b)
	if err != nil {
		return nil, err
	}

	return parseQuery(out)
}

func parseQuery(body []byte) (*QueryResult, error) {

	if !gjson.ValidBytes(body) {
		return nil, fmt.Errorf("could not decode Notion response")
	}

	r := &QueryResult{
		HasMore:    gjson.GetBytes(body, "has_more").Bool(),
		NextCursor: gjson.GetBytes(body, "next_cursor").String(),
	}

	if results := gjson.GetBytes(body, "results"); results.IsArray() {
		err := json.Unmarshal([]byte(results.Raw), &r.Results)
		if err != nil {
			return nil, fmt.Errorf("could not decode Notion results: %w", err)
		}
	}

	err := json.Unmarshal(body, &r.Payload)
	if err != nil {
		return nil, fmt.Errorf("could not decode Notion response: %w", err)
	}

	return r, nil
}

// QueryAll follows cursors until Notion reports no more rows or maxPages pages were read
func (s *Service) QueryAll(ctx context.Context, id string, q QueryRequest, maxPages int) ([]Page, error) {

	if maxPages < 1 {
		maxPages = 1
	}

	all := make([]Page, 0)
	cursor := ""

	for page := 1; page <= maxPages; page++ {
		q.StartCursor = cursor

		r, err := s.Query(ctx, id, q)
		if err != nil {
			var apiErr *APIError
			if errors.As(err, &apiErr) {
				apiErr.Page = page
			}
			return nil, err
		}

		all = append(all, r.Results...)
		log.Debugw("fetched page", "page", page, "rows", len(r.Results), "has_more", r.HasMore)

		if !r.HasMore || r.NextCursor == "" {
			return all, nil
		}
		cursor = r.NextCursor
	}

	log.Infow("stopped paginating at page limit", "pages", maxPages, "rows", len(all))
	return all, nil
}

// PageTitle returns the first fragment of a page's title property
func (s *Service) PageTitle(ctx context.Context, id string) (string, error) {

	out, err := s.call(ctx, http.MethodGet, "/v1/pages/"+id, nil)
	if err != nil {
		return "", err
	}

	return TitleOf(out), nil
}

// TitleOf extracts the plain text title from a raw page object
func TitleOf(page []byte) string {
	var title string
	gjson.GetBytes(page, "properties").ForEach(func(_, prop gjson.Result) bool {
		if prop.Get("type").String() != "title" {
			return true
		}
		title = prop.Get("title.0.plain_text").String()
		return false
	})
	return title
}
