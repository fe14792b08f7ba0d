// Package clientdata serves one client's rows to a portal page holding a secure key.
package clientdata

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"strings"
	"time"

	"github.com/aws/aws-lambda-go/events"
	logging "github.com/ipfs/go-log/v2"

	"github.com/sayshey/clientportal/internal/respond"
	"github.com/sayshey/clientportal/pkg/auth"
	"github.com/sayshey/clientportal/pkg/columns"
	"github.com/sayshey/clientportal/pkg/notion"
	"github.com/sayshey/clientportal/pkg/portal"
)

var log = logging.Logger("clientdata")

const methods = "GET, OPTIONS"

// Debug carries request diagnostics back to the page
type Debug struct {
	RecordCount int    `json:"recordCount"`
	Timestamp   string `json:"timestamp"`
}

// Response is the payload a portal page renders
type Response struct {
	Results          []notion.Page     `json:"results"`
	AuthorizedClient string            `json:"authorizedClient"`
	UserEmail        string            `json:"userEmail"`
	IsAdmin          bool              `json:"isAdmin"`
	ColumnOrder      []string          `json:"columnOrder"`
	ColumnHeaders    map[string]string `json:"columnHeaders"`
	Debug            Debug             `json:"debug"`
	Metadata         columns.Metadata  `json:"metadata"`
}

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

	if err := h.env.Ready(false); err != nil {
		log.Errorw("configuration error", "err", err)
		return respond.Error(methods, http.StatusInternalServerError, "Server configuration error - missing environment variables"), nil
	}

	email := strings.TrimSpace(respond.Query(req, "userEmail"))
	key := respond.Query(req, "secureKey")
	ts := respond.Query(req, "timestamp")
	if email == "" || key == "" || ts == "" {
		return respond.Error(methods, http.StatusUnauthorized, "Missing authentication parameters"), nil
	}

	grant := h.env.Keyring.Verify(email, key, ts, h.env.Clock())
	if !grant.OK {
		log.Infow("rejected secure key", "user", email, "admin", grant.Admin)
		return respond.Error(methods, http.StatusUnauthorized, "Invalid access credentials"), nil
	}

	mapped := ""
	if !grant.Admin {
		mapped = h.env.Directory.ClientFor(email)
	}

	client, err := auth.Resolve(grant, mapped, respond.Query(req, "client"))
	if err != nil {
		log.Infow("client resolution refused", "user", email, "err", err)
		return respond.Error(methods, auth.StatusFor(err), err.Error()), nil
	}

	log.Infow("resolved client", "user", email, "admin", grant.Admin, "client", client)

	res, err := h.fetch(ctx, client)
	if err != nil {
		var apiErr *notion.APIError
		if errors.As(err, &apiErr) {
			log.Errorw("notion query failed", "client", client, "page", apiErr.Page, "status", apiErr.Status)
			return respond.JSON(methods, http.StatusInternalServerError, map[string]string{
				"error":   apiErr.Error(),
				"details": apiErr.Body,
			}), nil
		}
		log.Errorw("request failed", "client", client, "err", err)
		return respond.JSON(methods, http.StatusInternalServerError, map[string]string{
			"error":     fmt.Sprintf("Server error: %v", err),
			"timestamp": h.env.Clock().UTC().Format(time.RFC3339Nano),
		}), nil
	}

	res.UserEmail = email
	res.IsAdmin = grant.Admin

	return respond.JSON(methods, http.StatusOK, res), nil
}

// fetch reads every row for client, resolves relation titles and adds column metadata
func (h *Handler) fetch(ctx context.Context, client string) (*Response, error) {

	q := notion.QueryRequest{
		PageSize: h.env.Config.PageSize,
		Filter:   notion.ClientFilter(client),
	}

	records, err := h.env.Notion.QueryAll(ctx, h.env.Config.DatabaseID, q, h.env.Config.MaxPages)
	if err != nil {
		return nil, err
	}

	// the remote filter is trusted, but a row for another client must never leave
	if kept := columns.Verify(records, client); len(kept) != len(records) {
		log.Warnw("dropped rows for other clients", "client", client, "dropped", len(records)-len(kept))
		records = kept
	}

	if h.env.Enricher != nil && len(records) > 0 {
		if err := h.env.Enricher.Enrich(ctx, records); err != nil {
			return nil, fmt.Errorf("could not enrich relations: %w", err)
		}
	}

	return &Response{
		Results:          records,
		AuthorizedClient: client,
		ColumnOrder:      columns.Order,
		ColumnHeaders:    columns.Headers,
		Debug: Debug{
			RecordCount: len(records),
			Timestamp:   h.env.Clock().UTC().Format(time.RFC3339Nano),
		},
		Metadata: columns.Summarise(records),
	}, nil
}
