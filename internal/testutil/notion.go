// Package testutil provides a fake Notion API for handler tests.
package testutil

import (
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/http/httptest"
	"net/url"
	"strconv"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/sayshey/clientportal/internal/client"
	"github.com/sayshey/clientportal/pkg/notion"
)

// Token is the bearer token the fake expects
const Token = "secret_test"

// FakeNotion serves a single in-memory database
type FakeNotion struct {
	Server *httptest.Server

	// Rows are returned by queries after the Client filter is applied
	Rows []map[string]interface{}
	// Titles maps related page ids to their titles
	Titles map[string]string
	// Schema is returned by the database endpoint
	Schema string
	// FailQueryAt makes the nth query call (1-based) fail with FailStatus
	FailQueryAt int
	FailStatus  int
	// IgnoreFilter returns every row regardless of the Client filter
	IgnoreFilter bool

	mu         sync.Mutex
	Queries    []map[string]interface{}
	PageGets   []string
	queryCalls int
}

// NewFakeNotion starts a fake and registers its shutdown with t
func NewFakeNotion(t *testing.T) *FakeNotion {
	t.Helper()
	f := &FakeNotion{Titles: map[string]string{}, Schema: `{"object":"database","properties":{}}`, FailStatus: http.StatusBadGateway}
	f.Server = httptest.NewServer(http.HandlerFunc(f.serve))
	t.Cleanup(f.Server.Close)
	return f
}

// Service returns a notion.Service pointed at the fake
func (f *FakeNotion) Service() *notion.Service {
	u, _ := url.Parse(f.Server.URL)
	return notion.New(&client.Client{
		BaseURL:    u,
		HTTPClient: &http.Client{Timeout: 5 * time.Second},
		Token:      Token,
	})
}

// QueryCount returns how many query calls were served
func (f *FakeNotion) QueryCount() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.queryCalls
}

// Row builds a database row for a client with extra properties
func Row(id, clientName string, props map[string]interface{}) map[string]interface{} {
	p := map[string]interface{}{
		notion.ClientProperty: map[string]interface{}{
			"type":   "select",
			"select": map[string]interface{}{"name": clientName},
		},
	}
	for k, v := range props {
		p[k] = v
	}
	return map[string]interface{}{"object": "page", "id": id, "properties": p}
}

// Select builds a select property
func Select(name string) map[string]interface{} {
	return map[string]interface{}{"type": "select", "select": map[string]interface{}{"name": name}}
}

// Relation builds a relation property
func Relation(ids ...string) map[string]interface{} {
	rel := make([]interface{}, 0, len(ids))
	for _, id := range ids {
		rel = append(rel, map[string]interface{}{"id": id})
	}
	return map[string]interface{}{"type": "relation", "relation": rel}
}

func (f *FakeNotion) serve(w http.ResponseWriter, r *http.Request) {

	if r.Header.Get("Authorization") != "Bearer "+Token {
		http.Error(w, `{"object":"error","code":"unauthorized"}`, http.StatusUnauthorized)
		return
	}

	switch {
	case r.Method == http.MethodPost && strings.HasSuffix(r.URL.Path, "/query"):
		f.query(w, r)
	case r.Method == http.MethodGet && strings.HasPrefix(r.URL.Path, "/v1/pages/"):
		f.page(w, strings.TrimPrefix(r.URL.Path, "/v1/pages/"))
	case r.Method == http.MethodGet && strings.HasPrefix(r.URL.Path, "/v1/databases/"):
		w.Header().Set("Content-Type", "application/json")
		fmt.Fprint(w, f.Schema)
	default:
		http.NotFound(w, r)
	}
}

func (f *FakeNotion) query(w http.ResponseWriter, r *http.Request) {

	body, _ := io.ReadAll(r.Body)
	var q map[string]interface{}
	_ = json.Unmarshal(body, &q)

	f.mu.Lock()
	f.queryCalls++
	call := f.queryCalls
	f.Queries = append(f.Queries, q)
	f.mu.Unlock()

	if f.FailQueryAt > 0 && call == f.FailQueryAt {
		http.Error(w, `{"object":"error","code":"rate_limited"}`, f.FailStatus)
		return
	}

	client := clientFromFilter(q["filter"])
	rows := make([]map[string]interface{}, 0)
	for _, row := range f.Rows {
		if f.IgnoreFilter || notion.Page(row).SelectName(notion.ClientProperty) == client {
			rows = append(rows, row)
		}
	}

	size := 100
	if ps, ok := q["page_size"].(float64); ok && ps > 0 {
		size = int(ps)
	}
	start := 0
	if c, ok := q["start_cursor"].(string); ok {
		start, _ = strconv.Atoi(c)
	}
	if start > len(rows) {
		start = len(rows)
	}
	end := start + size
	if end > len(rows) {
		end = len(rows)
	}

	out := map[string]interface{}{
		"object":      "list",
		"results":     rows[start:end],
		"has_more":    end < len(rows),
		"next_cursor": nil,
	}
	if end < len(rows) {
		out["next_cursor"] = strconv.Itoa(end)
	}

	w.Header().Set("Content-Type", "application/json")
	_ = json.NewEncoder(w).Encode(out)
}

func (f *FakeNotion) page(w http.ResponseWriter, id string) {

	f.mu.Lock()
	f.PageGets = append(f.PageGets, id)
	f.mu.Unlock()

	title, ok := f.Titles[id]
	if !ok {
		http.Error(w, `{"object":"error","code":"object_not_found"}`, http.StatusNotFound)
		return
	}

	out := map[string]interface{}{
		"object": "page",
		"id":     id,
		"properties": map[string]interface{}{
			"Name": map[string]interface{}{
				"type":  "title",
				"title": []interface{}{map[string]interface{}{"plain_text": title}},
			},
		},
	}
	w.Header().Set("Content-Type", "application/json")
	_ = json.NewEncoder(w).Encode(out)
}

// clientFromFilter finds the Client select value in a filter or an "and" of filters
func clientFromFilter(v interface{}) string {
	f, ok := v.(map[string]interface{})
	if !ok {
		return ""
	}
	if and, ok := f["and"].([]interface{}); ok {
		for _, sub := range and {
			if c := clientFromFilter(sub); c != "" {
				return c
			}
		}
		return ""
	}
	if f["property"] != notion.ClientProperty {
		return ""
	}
	sel, _ := f["select"].(map[string]interface{})
	s, _ := sel["equals"].(string)
	return s
}
