// Package simple serves a client's rows by email lookup alone. It trusts the
// caller and is only mounted when SIMPLE_ENABLED is set.
package simple

import (
	"context"
	"net/http"
	"strings"

	"github.com/aws/aws-lambda-go/events"
	logging "github.com/ipfs/go-log/v2"

	"github.com/sayshey/clientportal/internal/respond"
	"github.com/sayshey/clientportal/pkg/portal"
	"github.com/sayshey/clientportal/pkg/secure"
)

var log = logging.Logger("simple")

const methods = "GET, POST, OPTIONS"

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
		return respond.Error(methods, http.StatusInternalServerError, "Server configuration error"), nil
	}

	if !h.env.Config.SimpleEnabled {
		return respond.Error(methods, http.StatusNotFound, "Not found"), nil
	}

	email := strings.TrimSpace(respond.Query(req, "userEmail"))
	if email == "" {
		return respond.Error(methods, http.StatusBadRequest, "Missing userEmail"), nil
	}

	client := h.env.Directory.ClientFor(email)
	log.Debugw("looked up client", "user", email, "client", client)
	if client == "" {
		return respond.Error(methods, http.StatusForbidden, "No client access for user: "+email), nil
	}

	if respond.Query(req, "action") == "properties" {
		schema, err := h.env.Notion.Database(ctx, h.env.Config.DatabaseID)
		if err != nil {
			log.Errorw("could not read database schema", "err", err)
			return respond.Error(methods, http.StatusInternalServerError, err.Error()), nil
		}
		return respond.Raw(methods, http.StatusOK, schema), nil
	}

	payload, err := secure.Query(ctx, h.env, client, req)
	if err != nil {
		log.Errorw("notion query failed", "client", client, "err", err)
		return respond.Error(methods, http.StatusInternalServerError, err.Error()), nil
	}
	payload["userEmail"] = email

	return respond.JSON(methods, http.StatusOK, payload), nil
}
