package secure

import (
	"context"
	"encoding/json"
	"net/http"
	"strings"
	"testing"
	"time"

	"github.com/aws/aws-lambda-go/events"
	"github.com/google/go-cmp/cmp"

	"github.com/sayshey/clientportal/internal/testenv"
	"github.com/sayshey/clientportal/internal/testutil"
	"github.com/sayshey/clientportal/pkg/auth"
)

func signed(email string, extra map[string]string) map[string]string {
	p := map[string]string{
		"wixUserId": "wix-1",
		"userEmail": email,
		"authHash":  auth.SignHash(testenv.Secret, "wix-1", email, testenv.Now),
	}
	for k, v := range extra {
		p[k] = v
	}
	return p
}

func request(params map[string]string) *events.APIGatewayProxyRequest {
	return &events.APIGatewayProxyRequest{
		HTTPMethod:            http.MethodGet,
		Path:                  "/api/secure-notion",
		QueryStringParameters: params,
	}
}

func seed(fake *testutil.FakeNotion) {
	fake.Rows = []map[string]interface{}{
		testutil.Row("r1", "King Ed", map[string]interface{}{
			"Net":   map[string]interface{}{"type": "number", "number": 10.0},
			"Gross": map[string]interface{}{"type": "number", "number": 12.0},
		}),
		testutil.Row("r2", "King Ed", nil),
		testutil.Row("r3", "Linden Jay", nil),
	}
}

func decode(t *testing.T, body string) map[string]interface{} {
	t.Helper()
	var out map[string]interface{}
	if err := json.Unmarshal([]byte(body), &out); err != nil {
		t.Fatalf("could not decode body %q: %v", body, err)
	}
	return out
}

func TestHandle(t *testing.T) {

	tt := []struct {
		name   string
		params map[string]string
		status int
		client string
		rows   int
		err    string
	}{
		{name: "happy", params: signed("ed@example.com", nil), status: http.StatusOK, client: "King Ed", rows: 2},
		{name: "happy_case_insensitive_lookup", params: signed("ED@example.com", nil), status: http.StatusOK, client: "King Ed", rows: 2},
		{name: "bad_hash", params: map[string]string{"wixUserId": "wix-1", "userEmail": "ed@example.com", "authHash": "deadbeef"},
			status: http.StatusUnauthorized, err: "Unauthorized access"},
		{name: "other_user_hash", params: map[string]string{"wixUserId": "wix-1", "userEmail": "linden@example.com",
			"authHash": auth.SignHash(testenv.Secret, "wix-1", "ed@example.com", testenv.Now)},
			status: http.StatusUnauthorized, err: "Unauthorized access"},
		{name: "unmapped", params: signed("stranger@example.com", nil), status: http.StatusForbidden, err: "No client access assigned to this user"},
		{name: "no_params", status: http.StatusUnauthorized, err: "Unauthorized access"},
		{name: "padded_email_signed_as_sent", params: signed(" ed@example.com ", nil), status: http.StatusOK, client: "King Ed", rows: 2},
		{name: "padded_email_signed_trimmed", params: map[string]string{"wixUserId": "wix-1", "userEmail": " ed@example.com ",
			"authHash": auth.SignHash(testenv.Secret, "wix-1", "ed@example.com", testenv.Now)},
			status: http.StatusUnauthorized, err: "Unauthorized access"},
	}

	for _, tc := range tt {
		t.Run(tc.name, func(t *testing.T) {

			env, fake := testenv.New(t)
			seed(fake)

			res, err := NewHandler(env).Handle(context.Background(), request(tc.params))
			if err != nil {
				t.Fatalf("could not call Handle: %v", err)
			}
			if res.StatusCode != tc.status {
				t.Fatalf("expected status %v, got %v: %v", tc.status, res.StatusCode, res.Body)
			}

			out := decode(t, res.Body)
			if tc.err != "" {
				if out["error"] != tc.err {
					t.Errorf("expected error %q, got %q", tc.err, out["error"])
				}
				return
			}

			if out["authorizedClient"] != tc.client {
				t.Errorf("expected client %v, got %v", tc.client, out["authorizedClient"])
			}
			if out["userEmail"] != strings.TrimSpace(tc.params["userEmail"]) {
				t.Errorf("expected user %v, got %v", tc.params["userEmail"], out["userEmail"])
			}
			if out["object"] != "list" {
				t.Errorf("expected Notion payload to pass through, got %v", out["object"])
			}
			if rows, _ := out["results"].([]interface{}); len(rows) != tc.rows {
				t.Errorf("expected %v rows, got %v", tc.rows, len(rows))
			}
			if fake.Queries[0]["page_size"] != float64(pageSize) {
				t.Errorf("expected page size %v, got %v", pageSize, fake.Queries[0]["page_size"])
			}
		})
	}
}

func TestHandleExpiredHash(t *testing.T) {

	env, fake := testenv.New(t)
	seed(fake)
	env.Now = func() time.Time { return testenv.Now.Add(2 * auth.HashWindow) }

	res, _ := NewHandler(env).Handle(context.Background(), request(signed("ed@example.com", nil)))
	if res.StatusCode != http.StatusUnauthorized {
		t.Errorf("expected 401, got %v", res.StatusCode)
	}
}

func TestHandleQueryOptions(t *testing.T) {

	env, fake := testenv.New(t)
	seed(fake)

	params := signed("ed@example.com", map[string]string{
		"filterProperty":  "Description",
		"filterCondition": "contains",
		"filterValue":     "fee",
		"sortProperty":    "Invoice date",
		"sortDirection":   "descending",
		"columns":         "Gross, Missing",
	})

	res, _ := NewHandler(env).Handle(context.Background(), request(params))
	if res.StatusCode != http.StatusOK {
		t.Fatalf("expected 200, got %v: %v", res.StatusCode, res.Body)
	}

	wantQuery := map[string]interface{}{
		"page_size": float64(100),
		"filter": map[string]interface{}{
			"and": []interface{}{
				map[string]interface{}{"property": "Client", "select": map[string]interface{}{"equals": "King Ed"}},
				map[string]interface{}{"property": "Description", "rich_text": map[string]interface{}{"contains": "fee"}},
			},
		},
		"sorts": []interface{}{
			map[string]interface{}{"property": "Invoice date", "direction": "descending"},
		},
	}
	if diff := cmp.Diff(wantQuery, fake.Queries[0]); diff != "" {
		t.Errorf("query mismatch (-want +got):\n%s", diff)
	}

	out := decode(t, res.Body)
	if diff := cmp.Diff([]interface{}{"Gross", "Missing"}, out["_columnOrder"]); diff != "" {
		t.Errorf("column order mismatch (-want +got):\n%s", diff)
	}

	rows := out["results"].([]interface{})
	first := rows[0].(map[string]interface{})
	props := first["properties"].(map[string]interface{})
	if _, ok := props["Net"]; ok {
		t.Errorf("unselected column leaked: %v", props)
	}
	if _, ok := props["Client"]; !ok {
		t.Errorf("Client column must always be kept: %v", props)
	}
	if _, ok := props["Gross"]; !ok {
		t.Errorf("selected column missing: %v", props)
	}
}

func TestHandleNumericFilterNotANumber(t *testing.T) {

	for _, v := range []string{"NaN", "Inf", "-Infinity", "12abc"} {
		t.Run(v, func(t *testing.T) {

			env, fake := testenv.New(t)
			seed(fake)

			params := signed("ed@example.com", map[string]string{
				"filterProperty":  "Unit Price",
				"filterCondition": "equals",
				"filterValue":     v,
			})

			res, _ := NewHandler(env).Handle(context.Background(), request(params))
			if res.StatusCode != http.StatusOK {
				t.Fatalf("expected 200, got %v: %v", res.StatusCode, res.Body)
			}

			want := float64(0)
			if v == "12abc" {
				want = 12
			}
			and := fake.Queries[0]["filter"].(map[string]interface{})["and"].([]interface{})
			number := and[1].(map[string]interface{})["number"].(map[string]interface{})
			if number["equals"] != want {
				t.Errorf("expected number filter %v, got %v", want, number["equals"])
			}
		})
	}
}

func TestHandleClientFilterCannotBeOverridden(t *testing.T) {

	env, fake := testenv.New(t)
	seed(fake)

	params := signed("ed@example.com", map[string]string{
		"filterProperty":  "Client",
		"filterCondition": "equals",
		"filterValue":     "Linden Jay",
	})

	res, _ := NewHandler(env).Handle(context.Background(), request(params))
	if res.StatusCode != http.StatusOK {
		t.Fatalf("expected 200, got %v", res.StatusCode)
	}

	want := map[string]interface{}{"property": "Client", "select": map[string]interface{}{"equals": "King Ed"}}
	if diff := cmp.Diff(want, fake.Queries[0]["filter"]); diff != "" {
		t.Errorf("filter mismatch (-want +got):\n%s", diff)
	}
}

func TestHandleDropsForeignRows(t *testing.T) {

	env, fake := testenv.New(t)
	seed(fake)
	fake.IgnoreFilter = true

	res, _ := NewHandler(env).Handle(context.Background(), request(signed("ed@example.com", nil)))
	out := decode(t, res.Body)
	rows := out["results"].([]interface{})
	if len(rows) != 2 {
		t.Errorf("expected 2 rows after verification, got %v", len(rows))
	}
}

func TestHandleProperties(t *testing.T) {

	env, fake := testenv.New(t)
	fake.Schema = `{"object":"database","properties":{"Client":{"type":"select"}}}`

	res, _ := NewHandler(env).Handle(context.Background(), request(signed("ed@example.com", map[string]string{"action": "properties"})))
	if res.StatusCode != http.StatusOK {
		t.Fatalf("expected 200, got %v", res.StatusCode)
	}
	if res.Body != fake.Schema {
		t.Errorf("expected schema, got %v", res.Body)
	}
	if fake.QueryCount() != 0 {
		t.Errorf("properties should not query rows")
	}
}

func TestHandleUpstreamError(t *testing.T) {

	env, fake := testenv.New(t)
	seed(fake)
	fake.FailQueryAt = 1

	res, _ := NewHandler(env).Handle(context.Background(), request(signed("ed@example.com", nil)))
	if res.StatusCode != http.StatusInternalServerError {
		t.Fatalf("expected 500, got %v", res.StatusCode)
	}
	if out := decode(t, res.Body); out["error"] != "Server error" {
		t.Errorf("expected generic error, got %v", out["error"])
	}
}

func TestHandleConfig(t *testing.T) {

	env, _ := testenv.New(t)
	env.Config.AuthSecret = ""

	res, _ := NewHandler(env).Handle(context.Background(), request(signed("ed@example.com", nil)))
	if res.StatusCode != http.StatusInternalServerError {
		t.Fatalf("expected 500, got %v", res.StatusCode)
	}
	if out := decode(t, res.Body); out["error"] != "Server configuration error" {
		t.Errorf("unexpected error %v", out["error"])
	}

	res, _ = NewHandler(env).Handle(context.Background(), &events.APIGatewayProxyRequest{HTTPMethod: http.MethodOptions})
	if res.StatusCode != http.StatusOK {
		t.Errorf("preflight should not need configuration, got %v", res.StatusCode)
	}
}
