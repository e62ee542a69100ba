// Package stream provides a DynamoDB Streams handler that republishes
// document change events from the table's change log.
package stream

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/aws/aws-lambda-go/events"
	"github.com/aws/aws-sdk-go-v2/service/dynamodb/types"

	"github.com/meridianquant/docvault/store"
)

// Handler turns DynamoDB stream records into document change events. It is
// the delivery backstop for writes whose in-process publish failed: the
// stream replays every committed change, so redelivery happens even when the
// writer crashed between the write and the publish.
type Handler struct {
	publisher store.Publisher
	logger    *slog.Logger
}

// NewHandler creates a new stream handler.
func NewHandler(publisher store.Publisher, logger *slog.Logger) *Handler {
	if logger == nil {
		logger = slog.Default()
	}
	return &Handler{
		publisher: publisher,
		logger:    logger,
	}
}

// HandleChangeEvents processes a batch of DynamoDB stream records.
// This function is designed to be used as an AWS Lambda handler.
// Consumers must deduplicate on document id and version: a record is
// redelivered whenever any earlier record in the batch fails.
func (h *Handler) HandleChangeEvents(ctx context.Context, event events.DynamoDBEvent) error {
	for _, record := range event.Records {
		if err := h.processRecord(ctx, record); err != nil {
			h.logger.Error("failed to process record",
				"eventID", record.EventID,
				"error", err,
			)
			return err // Will retry, eventually DLQ
		}
	}
	return nil
}

// processRecord maps a single stream record to a change event and publishes it.
func (h *Handler) processRecord(ctx context.Context, record events.DynamoDBEventRecord) error {
	operation, image := classifyRecord(record)
	if operation == "" {
		return nil
	}

	doc, err := store.DocumentFromItem(ConvertImage(image))
	if err != nil {
		// Records for unregistered entity types are not an error worth a
		// redelivery loop. Log and move on.
		h.logger.Warn("skipping undecodable stream record",
			"eventID", record.EventID,
			"error", err,
		)
		return nil
	}

	if err := h.publisher.Publish(ctx, operation, doc); err != nil {
		return fmt.Errorf("publish %s event: %w", operation, err)
	}

	h.logger.Info("published change event",
		"operation", operation,
		"id", doc.DocumentCore().ID(),
	)
	return nil
}

// classifyRecord decides which change event a stream record represents and
// which image carries the document state. REMOVE records are skipped: hard
// deletes publish from the writer, and purge sweeps must stay silent.
func classifyRecord(record events.DynamoDBEventRecord) (string, map[string]events.DynamoDBAttributeValue) {
	switch record.EventName {
	case "INSERT":
		return store.OpCreated, record.Change.NewImage
	case "MODIFY":
		wasDeleted := hasAttr(record.Change.OldImage, "deleted_at")
		isDeleted := hasAttr(record.Change.NewImage, "deleted_at")
		if !wasDeleted && isDeleted {
			return store.OpDeleted, record.Change.NewImage
		}
		return store.OpUpdated, record.Change.NewImage
	default:
		return "", nil
	}
}

// hasAttr reports whether an attribute is present and non-null in a stream image.
func hasAttr(image map[string]events.DynamoDBAttributeValue, key string) bool {
	v, ok := image[key]
	return ok && v.DataType() != events.DataTypeNull
}

// ConvertImage converts a DynamoDB stream image to SDK attribute values so it
// can be decoded through the same path as items read from the table.
func ConvertImage(image map[string]events.DynamoDBAttributeValue) map[string]types.AttributeValue {
	result := make(map[string]types.AttributeValue, len(image))
	for k, v := range image {
		if converted := convertValue(v); converted != nil {
			result[k] = converted
		}
	}
	return result
}

func convertValue(v events.DynamoDBAttributeValue) types.AttributeValue {
	switch v.DataType() {
	case events.DataTypeString:
		return &types.AttributeValueMemberS{Value: v.String()}
	case events.DataTypeNumber:
		return &types.AttributeValueMemberN{Value: v.Number()}
	case events.DataTypeBinary:
		return &types.AttributeValueMemberB{Value: v.Binary()}
	case events.DataTypeBoolean:
		return &types.AttributeValueMemberBOOL{Value: v.Boolean()}
	case events.DataTypeNull:
		return &types.AttributeValueMemberNULL{Value: v.IsNull()}
	case events.DataTypeStringSet:
		return &types.AttributeValueMemberSS{Value: v.StringSet()}
	case events.DataTypeNumberSet:
		return &types.AttributeValueMemberNS{Value: v.NumberSet()}
	case events.DataTypeBinarySet:
		return &types.AttributeValueMemberBS{Value: v.BinarySet()}
	case events.DataTypeList:
		list := make([]types.AttributeValue, 0, len(v.List()))
		for _, item := range v.List() {
			if converted := convertValue(item); converted != nil {
				list = append(list, converted)
			}
		}
		return &types.AttributeValueMemberL{Value: list}
	case events.DataTypeMap:
		return &types.AttributeValueMemberM{Value: ConvertImage(v.Map())}
	default:
		return nil
	}
}
