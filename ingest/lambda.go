package ingest

import (
	"context"
	"encoding/json"
	"errors"
	"log/slog"
	"net/http"

	"github.com/aws/aws-lambda-go/events"

	"github.com/meridianquant/docvault/schema"
	"github.com/meridianquant/docvault/store"
)

// LambdaHandler adapts the Ingestor to an API Gateway proxy integration.
// It expects datatype, assetclass, and schemaversion as query parameters and
// the raw payload as the request body.
type LambdaHandler struct {
	ingestor *Ingestor
	logger   *slog.Logger
}

// NewLambdaHandler creates a LambdaHandler.
func NewLambdaHandler(ingestor *Ingestor, logger *slog.Logger) *LambdaHandler {
	if logger == nil {
		logger = slog.Default()
	}
	return &LambdaHandler{ingestor: ingestor, logger: logger}
}

// Handle processes one ingestion request.
func (h *LambdaHandler) Handle(ctx context.Context, event events.APIGatewayProxyRequest) (events.APIGatewayProxyResponse, error) {
	req := Request{
		DataType:      event.QueryStringParameters["datatype"],
		AssetClass:    event.QueryStringParameters["assetclass"],
		SchemaVersion: event.QueryStringParameters["schemaversion"],
		Body:          []byte(event.Body),
	}
	if req.DataType == "" || req.AssetClass == "" || req.SchemaVersion == "" {
		return respond(http.StatusBadRequest, map[string]string{
			"error": "datatype, assetclass, and schemaversion are required",
		}), nil
	}

	resp, res, err := h.ingestor.Ingest(ctx, req)
	if err != nil {
		return h.errorResponse(req, err), nil
	}
	if !res.Ok() {
		return h.resultResponse(req, res), nil
	}
	return respond(http.StatusCreated, resp), nil
}

func (h *LambdaHandler) errorResponse(req Request, err error) events.APIGatewayProxyResponse {
	var payloadErr *schema.PayloadError
	switch {
	case errors.Is(err, schema.ErrValidatorNotFound):
		return respond(http.StatusNotFound, map[string]string{"error": err.Error()})
	case errors.As(err, &payloadErr):
		return respond(http.StatusBadRequest, map[string]any{
			"error":      "payload failed schema validation",
			"violations": payloadErr.Violations,
		})
	case errors.Is(err, ErrMapperNotFound):
		return respond(http.StatusNotFound, map[string]string{"error": err.Error()})
	default:
		h.logger.Error("ingestion failed",
			"dataType", req.DataType,
			"assetClass", req.AssetClass,
			"error", err,
		)
		return respond(http.StatusBadRequest, map[string]string{"error": err.Error()})
	}
}

func (h *LambdaHandler) resultResponse(req Request, res store.WriteResult) events.APIGatewayProxyResponse {
	switch res.Outcome {
	case store.OutcomeInvalid:
		return respond(http.StatusBadRequest, map[string]any{
			"error":      "document failed domain validation",
			"violations": res.Violations,
		})
	case store.OutcomeConflict:
		return respond(http.StatusConflict, map[string]string{
			"error": "version conflict, retry the request",
		})
	case store.OutcomeTransient:
		return respond(http.StatusServiceUnavailable, map[string]string{
			"error": "store temporarily unavailable, retry the request",
		})
	default:
		h.logger.Error("ingestion write failed",
			"dataType", req.DataType,
			"assetClass", req.AssetClass,
			"outcome", res.Outcome.String(),
			"error", res.Err,
		)
		return respond(http.StatusInternalServerError, map[string]string{
			"error": "internal error",
		})
	}
}

func respond(status int, body any) events.APIGatewayProxyResponse {
	raw, err := json.Marshal(body)
	if err != nil {
		return events.APIGatewayProxyResponse{StatusCode: http.StatusInternalServerError}
	}
	return events.APIGatewayProxyResponse{
		StatusCode: status,
		Headers:    map[string]string{"Content-Type": "application/json"},
		Body:       string(raw),
	}
}
