package client

import (
	"bytes"
	"context"
	"fmt"
	"net/http"
	"net/url"
)

// DefaultVersion is the Notion API version the proxy speaks
const DefaultVersion = "2022-06-28"

// Client is a HTTP client for the Notion API
type Client struct {
	BaseURL    *url.URL
	HTTPClient *http.Client
	Token      string
	Version    string
}

// NewRequest creates a HTTP request against a path relative to BaseURL
func (c *Client) NewRequest(ctx context.Context, method, path string, body []byte) (*http.Request, error) {

	if c.Token == "" {
		return nil, fmt.Errorf("missing credentials")
	}

	p, err := url.Parse(path)
	if err != nil {
		return nil, err
	}
	u := c.BaseURL.ResolveReference(p)

	req, err := http.NewRequestWithContext(ctx, method, u.String(), bytes.NewReader(body))
	if err != nil {
		return nil, err
	}
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	req.Header.Set("Accept", "application/json")
	req.Header.Set("Authorization", "Bearer "+c.Token)

	v := c.Version
	if v == "" {
		v = DefaultVersion
	}
	req.Header.Set("Notion-Version", v)

	return req, nil
}

// Do makes a HTTP request
func (c *Client) Do(req *http.Request) (*http.Response, error) {

	hc := c.HTTPClient
	if hc == nil {
		hc = http.DefaultClient
	}

	resp, err := hc.Do(req)
	if err != nil {
		return nil, err
	}

	return resp, nil
}
