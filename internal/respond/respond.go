// Package respond builds API Gateway proxy responses for the portal handlers.
package respond

import (
	"encoding/json"
	"net/http"

	"github.com/aws/aws-lambda-go/events"
)

// Headers returns the CORS and content headers sent on every response
func Headers(methods string) map[string]string {
	return map[string]string{
		"Access-Control-Allow-Origin":  "*",
		"Access-Control-Allow-Methods": methods,
		"Access-Control-Allow-Headers": "Content-Type",
		"Content-Type":                 "application/json",
	}
}

// Preflight answers an OPTIONS request
func Preflight(methods string) events.APIGatewayProxyResponse {
	h := Headers(methods)
	delete(h, "Content-Type")
	return events.APIGatewayProxyResponse{
		StatusCode: http.StatusOK,
		Headers:    h,
	}
}

// JSON encodes v as the response body
func JSON(methods string, status int, v interface{}) events.APIGatewayProxyResponse {

	b, err := json.Marshal(v)
	if err != nil {
		status = http.StatusInternalServerError
		b = []byte(`{"error":"could not encode response"}`)
	}

	return events.APIGatewayProxyResponse{
		StatusCode: status,
		Headers:    Headers(methods),
		Body:       string(b),
	}
}

// Raw sends an already encoded JSON body
func Raw(methods string, status int, body []byte) events.APIGatewayProxyResponse {
	return events.APIGatewayProxyResponse{
		StatusCode: status,
		Headers:    Headers(methods),
		Body:       string(body),
	}
}

// Error sends {"error": msg}
func Error(methods string, status int, msg string) events.APIGatewayProxyResponse {
	return JSON(methods, status, map[string]string{"error": msg})
}

// Query returns a query string parameter, preferring the single value map
func Query(req *events.APIGatewayProxyRequest, key string) string {
	if v, ok := req.QueryStringParameters[key]; ok {
		return v
	}
	if vs := req.MultiValueQueryStringParameters[key]; len(vs) > 0 {
		return vs[0]
	}
	return ""
}
