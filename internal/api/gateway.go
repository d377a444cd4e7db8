package api

import (
	"context"
	"encoding/json"
	"log"
	"net/http"
	"strings"

	"github.com/aws/aws-lambda-go/events"
)

// CORSHeaders are sent with every response
var CORSHeaders = map[string]string{
	"Access-Control-Allow-Origin":  "*",
	"Access-Control-Allow-Headers": "Content-Type,X-Amz-Date,Authorization,X-Api-Key,X-Amz-Security-Token",
	"Access-Control-Allow-Methods": "GET,POST,OPTIONS",
}

// Route dispatches one request to the matching handler
func (h *Handler) Route(ctx context.Context, method, path string, query map[string]string, body []byte) (ResponseBody, int) {
	path = strings.TrimSuffix(path, "/")

	switch {
	case method == http.MethodGet && path == "/api/activities":
		return h.GetActivities(ctx, query["useLiveData"] == "true")

	case method == http.MethodGet && path == "/api/activities/live":
		return h.GetLiveActivities(ctx)

	case method == http.MethodGet && path == "/api/date-range":
		return h.GetDateRange()

	case method == http.MethodPost && path == "/api/subscribe":
		return h.Subscribe(ctx, body)

	case method == http.MethodPost && path == "/api/refresh":
		return h.TriggerRefresh(ctx)

	default:
		return ResponseBody{Success: false, Error: "Not found"}, http.StatusNotFound
	}
}

// HandleGatewayRequest serves an API Gateway proxy request
func (h *Handler) HandleGatewayRequest(ctx context.Context, request events.APIGatewayProxyRequest) (events.APIGatewayProxyResponse, error) {
	headers := make(map[string]string, len(CORSHeaders)+1)
	for k, v := range CORSHeaders {
		headers[k] = v
	}
	headers["Content-Type"] = "application/json"

	// Handle preflight OPTIONS request
	if request.HTTPMethod == http.MethodOptions {
		return events.APIGatewayProxyResponse{StatusCode: http.StatusOK, Headers: headers}, nil
	}

	log.Printf("[API] %s %s", request.HTTPMethod, request.Path)

	responseBody, statusCode := h.Route(ctx, request.HTTPMethod, request.Path, request.QueryStringParameters, []byte(request.Body))

	bodyJSON, err := json.Marshal(responseBody)
	if err != nil {
		log.Printf("[API] Error marshaling response body: %v", err)
		return events.APIGatewayProxyResponse{
			StatusCode: http.StatusInternalServerError,
			Headers:    headers,
			Body:       `{"success":false,"error":"Internal server error"}`,
		}, nil
	}

	return events.APIGatewayProxyResponse{
		StatusCode: statusCode,
		Headers:    headers,
		Body:       string(bodyJSON),
	}, nil
}
