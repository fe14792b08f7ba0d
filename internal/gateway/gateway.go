// Package gateway serves API Gateway proxy handlers over plain net/http, for running
// the portal functions locally.
package gateway

import (
	"context"
	"encoding/base64"
	"io"
	"net/http"
	"strings"

	"github.com/aws/aws-lambda-go/events"
	logging "github.com/ipfs/go-log/v2"
)

var log = logging.Logger("gateway")

// maxBody bounds request bodies read from local callers
const maxBody = 1 << 20

// HandlerFunc is the signature shared by the portal Lambda handlers
type HandlerFunc func(ctx context.Context, req *events.APIGatewayProxyRequest) (events.APIGatewayProxyResponse, error)

// Adapt returns an http.Handler that converts each request into a proxy event,
// calls h and writes its response
func Adapt(h HandlerFunc) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {

		req, err := Event(r)
		if err != nil {
			log.Warnw("could not read request", "path", r.URL.Path, "err", err)
			writeError(w, http.StatusBadRequest, `{"error":"could not read request"}`)
			return
		}

		res, err := h(r.Context(), req)
		if err != nil {
			// API Gateway answers 502 when the function itself fails
			log.Errorw("handler failed", "path", r.URL.Path, "err", err)
			writeError(w, http.StatusBadGateway, `{"message":"Internal server error"}`)
			return
		}

		Write(w, res)
		log.Debugw("served", "method", r.Method, "path", r.URL.Path, "status", res.StatusCode)
	})
}

// Event builds a proxy event from an HTTP request
func Event(r *http.Request) (*events.APIGatewayProxyRequest, error) {

	var body []byte
	if r.Body != nil {
		b, err := io.ReadAll(io.LimitReader(r.Body, maxBody))
		if err != nil {
			return nil, err
		}
		body = b
	}

	req := &events.APIGatewayProxyRequest{
		HTTPMethod:                      r.Method,
		Path:                            r.URL.Path,
		Headers:                         map[string]string{},
		MultiValueHeaders:               map[string][]string{},
		QueryStringParameters:           map[string]string{},
		MultiValueQueryStringParameters: map[string][]string{},
		Body:                            string(body),
	}

	for k, vs := range r.Header {
		req.Headers[k] = strings.Join(vs, ",")
		req.MultiValueHeaders[k] = vs
	}

	for k, vs := range r.URL.Query() {
		if len(vs) == 0 {
			continue
		}
		// single value map carries the last value, as API Gateway does
		req.QueryStringParameters[k] = vs[len(vs)-1]
		req.MultiValueQueryStringParameters[k] = vs
	}

	return req, nil
}

// Write copies a proxy response onto w
func Write(w http.ResponseWriter, res events.APIGatewayProxyResponse) {

	for k, v := range res.Headers {
		w.Header().Set(k, v)
	}
	for k, vs := range res.MultiValueHeaders {
		for _, v := range vs {
			w.Header().Add(k, v)
		}
	}

	body := []byte(res.Body)
	if res.IsBase64Encoded {
		b, err := base64.StdEncoding.DecodeString(res.Body)
		if err != nil {
			log.Errorw("could not decode response body", "err", err)
			writeError(w, http.StatusBadGateway, `{"message":"Internal server error"}`)
			return
		}
		body = b
	}

	status := res.StatusCode
	if status == 0 {
		status = http.StatusOK
	}
	w.WriteHeader(status)
	_, _ = w.Write(body)
}

func writeError(w http.ResponseWriter, status int, body string) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_, _ = io.WriteString(w, body)
}
