// Package secure serves a client's rows to a page holding a time-boxed signed hash.
package secure

import (
	"context"
	"net/http"
	"strings"

	"github.com/aws/aws-lambda-go/events"
	logging "github.com/ipfs/go-log/v2"

	"github.com/sayshey/clientportal/internal/respond"
	"github.com/sayshey/clientportal/pkg/auth"
	"github.com/sayshey/clientportal/pkg/columns"
	"github.com/sayshey/clientportal/pkg/notion"
	"github.com/sayshey/clientportal/pkg/portal"
)

var log = logging.Logger("secure")

const (
	methods  = "GET, POST, OPTIONS"
	pageSize = 100
)

// Handler represents the handler type
type Handler struct {
	env *portal.Env
}

// NewHandler returns a new Handler
func NewHandler(env *portal.Env) *Handler {
	return &Handler{env: env}
}

// Handle deals with the incoming request
func (h *Handler) Handle(ctx context.Context, req *events.APIGatewayProxyRequest) (events.APIGatewayProxyResponse, error) {

	if req.HTTPMethod == http.MethodOptions {
		return respond.Preflight(methods), nil
	}

	if err := h.env.Ready(true); err != nil {
		log.Errorw("configuration error", "err", err)
		return respond.Error(methods, http.StatusInternalServerError, "Server configuration error"), nil
	}

	userID := respond.Query(req, "wixUserId")
	rawEmail := respond.Query(req, "userEmail")
	hash := respond.Query(req, "authHash")

	// the hash signs the email exactly as sent; trimming is only for the lookup
	email := strings.TrimSpace(rawEmail)
	if email == "" || !auth.VerifyHash(h.env.Config.AuthSecret, userID, rawEmail, hash, h.env.Clock()) {
		log.Infow("rejected signed hash", "user", email)
		return respond.Error(methods, http.StatusUnauthorized, "Unauthorized access"), nil
	}

	client := h.env.Directory.ClientFor(email)
	if client == "" {
		return respond.Error(methods, http.StatusForbidden, "No client access assigned to this user"), nil
	}

	if respond.Query(req, "action") == "properties" {
		schema, err := h.env.Notion.Database(ctx, h.env.Config.DatabaseID)
		if err != nil {
			log.Errorw("could not read database schema", "err", err)
			return respond.Error(methods, http.StatusInternalServerError, "Server error"), nil
		}
		return respond.Raw(methods, http.StatusOK, schema), nil
	}

	payload, err := Query(ctx, h.env, client, req)
	if err != nil {
		log.Errorw("notion query failed", "client", client, "err", err)
		return respond.Error(methods, http.StatusInternalServerError, "Server error"), nil
	}
	payload["userEmail"] = email

	return respond.JSON(methods, http.StatusOK, payload), nil
}

// Query runs one page of a client scoped query with the caller's optional
// filter, sort and column selection, and returns Notion's payload with the
// authorized client added.
func Query(ctx context.Context, env *portal.Env, client string, req *events.APIGatewayProxyRequest) (map[string]interface{}, error) {

	extra := notion.BuildFilter(
		respond.Query(req, "filterProperty"),
		respond.Query(req, "filterCondition"),
		respond.Query(req, "filterValue"),
	)

	q := notion.QueryRequest{
		PageSize: pageSize,
		Filter:   notion.And(notion.ClientFilter(client), extra),
		Sorts:    notion.SortBy(respond.Query(req, "sortProperty"), respond.Query(req, "sortDirection")),
	}

	r, err := env.Notion.Query(ctx, env.Config.DatabaseID, q)
	if err != nil {
		return nil, err
	}

	records := columns.Verify(r.Results, client)
	if len(records) != len(r.Results) {
		log.Warnw("dropped rows for other clients", "client", client, "dropped", len(r.Results)-len(records))
	}

	payload := r.Payload
	if payload == nil {
		payload = map[string]interface{}{}
	}

	if cols := columns.Parse(respond.Query(req, "columns")); len(cols) > 0 {
		records = columns.Select(records, cols)
		payload["_columnOrder"] = cols
	}

	payload["results"] = records
	payload["authorizedClient"] = client
	return payload, nil
}
