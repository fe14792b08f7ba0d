package notion_test

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"testing"

	"github.com/google/go-cmp/cmp"
	"github.com/stretchr/testify/require"

	"github.com/sayshey/clientportal/internal/testutil"
	"github.com/sayshey/clientportal/pkg/notion"
)

func rows(n int, client string) []map[string]interface{} {
	out := make([]map[string]interface{}, 0, n)
	for i := 0; i < n; i++ {
		out = append(out, testutil.Row(fmt.Sprintf("%s-%d", client, i), client, nil))
	}
	return out
}

func TestQueryAll(t *testing.T) {

	tt := []struct {
		name     string
		rows     int
		pageSize int
		maxPages int
		want     int
		queries  int
	}{
		{name: "single_page", rows: 3, pageSize: 50, maxPages: 10, want: 3, queries: 1},
		{name: "exact_pages", rows: 100, pageSize: 50, maxPages: 10, want: 100, queries: 2},
		{name: "partial_last_page", rows: 120, pageSize: 50, maxPages: 10, want: 120, queries: 3},
		{name: "page_limit", rows: 30, pageSize: 5, maxPages: 3, want: 15, queries: 3},
		{name: "empty", rows: 0, pageSize: 50, maxPages: 10, want: 0, queries: 1},
		{name: "zero_limit_reads_once", rows: 30, pageSize: 5, maxPages: 0, want: 5, queries: 1},
	}

	for _, tc := range tt {
		t.Run(tc.name, func(t *testing.T) {

			fake := testutil.NewFakeNotion(t)
			fake.Rows = append(rows(tc.rows, "King Ed"), rows(7, "Tiggs")...)

			q := notion.QueryRequest{PageSize: tc.pageSize, Filter: notion.ClientFilter("King Ed")}
			got, err := fake.Service().QueryAll(context.Background(), "db1", q, tc.maxPages)
			require.NoError(t, err)
			require.Len(t, got, tc.want)
			require.Equal(t, tc.queries, fake.QueryCount())

			for _, p := range got {
				require.Equal(t, "King Ed", p.SelectName(notion.ClientProperty))
			}

			// the first call carries no cursor, the rest carry the previous next_cursor
			_, hasCursor := fake.Queries[0]["start_cursor"]
			require.False(t, hasCursor)
			if tc.queries > 1 {
				require.Equal(t, fmt.Sprint(tc.pageSize), fake.Queries[1]["start_cursor"])
			}
		})
	}
}

func TestQueryAllError(t *testing.T) {

	fake := testutil.NewFakeNotion(t)
	fake.Rows = rows(20, "King Ed")
	fake.FailQueryAt = 2
	fake.FailStatus = http.StatusTooManyRequests

	q := notion.QueryRequest{PageSize: 5, Filter: notion.ClientFilter("King Ed")}
	_, err := fake.Service().QueryAll(context.Background(), "db1", q, 10)

	var apiErr *notion.APIError
	require.True(t, errors.As(err, &apiErr))
	require.Equal(t, 2, apiErr.Page)
	require.Equal(t, http.StatusTooManyRequests, apiErr.Status)
	require.Contains(t, apiErr.Body, "rate_limited")
	require.EqualError(t, err, "Notion API error on page 2: 429")
}

func TestQueryPayload(t *testing.T) {

	fake := testutil.NewFakeNotion(t)
	fake.Rows = rows(2, "Tiggs")

	r, err := fake.Service().Query(context.Background(), "db1", notion.QueryRequest{Filter: notion.ClientFilter("Tiggs")})
	require.NoError(t, err)
	require.False(t, r.HasMore)
	require.Empty(t, r.NextCursor)
	require.Len(t, r.Results, 2)
	require.Equal(t, "list", r.Payload["object"])
}

func TestDatabase(t *testing.T) {

	fake := testutil.NewFakeNotion(t)
	fake.Schema = `{"object":"database","properties":{"Client":{"type":"select"}}}`

	b, err := fake.Service().Database(context.Background(), "db1")
	require.NoError(t, err)
	require.JSONEq(t, fake.Schema, string(b))
}

func TestPageTitle(t *testing.T) {

	fake := testutil.NewFakeNotion(t)
	fake.Titles["p1"] = "Acme Records"

	title, err := fake.Service().PageTitle(context.Background(), "p1")
	require.NoError(t, err)
	require.Equal(t, "Acme Records", title)

	_, err = fake.Service().PageTitle(context.Background(), "missing")
	var apiErr *notion.APIError
	require.True(t, errors.As(err, &apiErr))
	require.Equal(t, http.StatusNotFound, apiErr.Status)
	require.EqualError(t, err, "Notion API error: 404")
}

func TestTitleOf(t *testing.T) {

	tt := []struct {
		name string
		page string
		want string
	}{
		{name: "title", page: `{"properties":{"Amount":{"type":"number"},"Name":{"type":"title","title":[{"plain_text":"Big Label"},{"plain_text":" Ltd"}]}}}`, want: "Big Label"},
		{name: "empty_title", page: `{"properties":{"Name":{"type":"title","title":[]}}}`},
		{name: "no_title", page: `{"properties":{"Amount":{"type":"number"}}}`},
		{name: "garbage", page: `nope`},
	}

	for _, tc := range tt {
		t.Run(tc.name, func(t *testing.T) {
			if got := notion.TitleOf([]byte(tc.page)); got != tc.want {
				t.Errorf("expected %q, got %q", tc.want, got)
			}
		})
	}
}

func TestBuildFilter(t *testing.T) {

	tt := []struct {
		name      string
		property  string
		condition string
		value     string
		want      notion.Filter
	}{
		{name: "text_equals", property: "Description", condition: "equals", value: "fee",
			want: notion.Filter{"property": "Description", "rich_text": map[string]interface{}{"equals": "fee"}}},
		{name: "date_equals", property: "Invoice date", condition: "equals", value: "2025-01-01",
			want: notion.Filter{"property": "Invoice date", "date": map[string]interface{}{"equals": "2025-01-01"}}},
		{name: "number_equals", property: "Unit price", condition: "equals", value: "12.5",
			want: notion.Filter{"property": "Unit price", "number": map[string]interface{}{"equals": 12.5}}},
		{name: "number_garbage", property: "Number", condition: "equals", value: "abc",
			want: notion.Filter{"property": "Number", "number": map[string]interface{}{"equals": float64(0)}}},
		{name: "number_leading", property: "Number", condition: "equals", value: " 12abc",
			want: notion.Filter{"property": "Number", "number": map[string]interface{}{"equals": float64(12)}}},
		{name: "number_nan", property: "Unit Price", condition: "equals", value: "NaN",
			want: notion.Filter{"property": "Unit Price", "number": map[string]interface{}{"equals": float64(0)}}},
		{name: "number_inf", property: "Unit Price", condition: "equals", value: "Inf",
			want: notion.Filter{"property": "Unit Price", "number": map[string]interface{}{"equals": float64(0)}}},
		{name: "number_infinity", property: "Unit Price", condition: "equals", value: "-Infinity",
			want: notion.Filter{"property": "Unit Price", "number": map[string]interface{}{"equals": float64(0)}}},
		{name: "number_overflow", property: "Unit Price", condition: "equals", value: "1e999",
			want: notion.Filter{"property": "Unit Price", "number": map[string]interface{}{"equals": float64(0)}}},
		{name: "contains", property: "Vendor1", condition: "contains", value: "acme",
			want: notion.Filter{"property": "Vendor1", "rich_text": map[string]interface{}{"contains": "acme"}}},
		{name: "checkbox", property: "Paid", condition: "checkbox",
			want: notion.Filter{"property": "Paid", "checkbox": map[string]interface{}{"equals": true}}},
		{name: "not_checkbox", property: "Paid", condition: "not_checkbox",
			want: notion.Filter{"property": "Paid", "checkbox": map[string]interface{}{"equals": false}}},
		{name: "is_empty", property: "Notes", condition: "is_empty",
			want: notion.Filter{"property": "Notes", "rich_text": map[string]interface{}{"is_empty": true}}},
		{name: "is_not_empty", property: "Notes", condition: "is_not_empty",
			want: notion.Filter{"property": "Notes", "rich_text": map[string]interface{}{"is_not_empty": true}}},
		{name: "unknown_condition", property: "Notes", condition: "fuzzy", value: "x",
			want: notion.Filter{"property": "Notes", "rich_text": map[string]interface{}{"contains": "x"}}},
		{name: "client_ignored", property: "Client", condition: "equals", value: "Tiggs"},
		{name: "client_ignored_case", property: "client", condition: "equals", value: "Tiggs"},
		{name: "no_condition", property: "Notes"},
	}

	for _, tc := range tt {
		t.Run(tc.name, func(t *testing.T) {
			got := notion.BuildFilter(tc.property, tc.condition, tc.value)
			if diff := cmp.Diff(tc.want, got); diff != "" {
				t.Errorf("filter mismatch (-want +got):\n%s", diff)
			}
			if _, err := json.Marshal(got); err != nil {
				t.Errorf("could not encode filter: %v", err)
			}
		})
	}
}

func TestAnd(t *testing.T) {

	c := notion.ClientFilter("King Ed")
	extra := notion.BuildFilter("Notes", "contains", "x")

	require.Nil(t, notion.And())
	require.Equal(t, c, notion.And(c, nil))
	require.Equal(t, notion.Filter{"and": []notion.Filter{c, extra}}, notion.And(c, extra))
}

func TestSortBy(t *testing.T) {
	require.Nil(t, notion.SortBy("", "descending"))
	require.Equal(t, []notion.Sort{{Property: "Net", Direction: "ascending"}}, notion.SortBy("Net", ""))
	require.Equal(t, []notion.Sort{{Property: "Net", Direction: "descending"}}, notion.SortBy("Net", "descending"))
}

func TestPageHelpers(t *testing.T) {

	p := notion.Page(testutil.Row("r1", "King Ed", map[string]interface{}{
		"Vendor": testutil.Relation("v1", "v2"),
		"Empty":  testutil.Relation(),
	}))

	require.Equal(t, "King Ed", p.SelectName("Client"))
	require.Equal(t, "", p.SelectName("Missing"))
	require.Equal(t, "v1", notion.FirstRelation(p.Property("Vendor")))
	require.Equal(t, "", notion.FirstRelation(p.Property("Empty")))
	require.Equal(t, "", notion.FirstRelation(p.Property("Client")))
}
