// Package notify publishes change events for committed document writes.
//
// Every successful Add/Update/Delete produces one event on a channel named
// {entityType}-{operation}. Publication has no transactional link to the
// write: a failed publish leaves the write committed and surfaces as a
// *PublishError.
package notify

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"time"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/service/sns"
	snstypes "github.com/aws/aws-sdk-go-v2/service/sns/types"
	"github.com/google/uuid"

	"github.com/meridianquant/docvault/marketdata"
)

// Event type tags carried in the published envelope.
const (
	EventCreated = "Created"
	EventUpdated = "Updated"
	EventDeleted = "Deleted"
)

// snsBatchLimit is the SNS PublishBatch entry maximum.
const snsBatchLimit = 10

// SNSAPI is the slice of the SNS client used by the Notifier.
type SNSAPI interface {
	Publish(ctx context.Context, params *sns.PublishInput, optFns ...func(*sns.Options)) (*sns.PublishOutput, error)
	PublishBatch(ctx context.Context, params *sns.PublishBatchInput, optFns ...func(*sns.Options)) (*sns.PublishBatchOutput, error)
}

var _ SNSAPI = (*sns.Client)(nil)

// Config holds configuration for the Notifier.
type Config struct {
	// TopicARNPrefix is prepended to the channel name to form the topic
	// ARN, e.g. "arn:aws:sns:eu-west-1:123456789012:marketdata-".
	TopicARNPrefix string
}

// Envelope is the published event payload: the JSON-serialized entity plus
// an event-type tag.
type Envelope struct {
	EventID    string          `json:"eventId"`
	EventType  string          `json:"eventType"`
	Channel    string          `json:"channel"`
	OccurredAt time.Time       `json:"occurredAt"`
	Entity     json.RawMessage `json:"entity"`
}

// PublishError reports a failed publish after a committed write. The write
// is not rolled back.
type PublishError struct {
	Channel string
	ID      string
	Err     error
}

func (e *PublishError) Error() string {
	return fmt.Sprintf("publish %s on %s: %v", e.ID, e.Channel, e.Err)
}

func (e *PublishError) Unwrap() error { return e.Err }

// Notifier publishes change events to SNS topics.
type Notifier struct {
	client SNSAPI
	config Config
	logger *slog.Logger
	now    func() time.Time
	newID  func() string
}

// New creates a new Notifier.
func New(client SNSAPI, config Config, logger *slog.Logger) *Notifier {
	if logger == nil {
		logger = slog.Default()
	}
	return &Notifier{
		client: client,
		config: config,
		logger: logger,
		now:    time.Now,
		newID:  uuid.NewString,
	}
}

// Channel builds the channel name for an entity type and operation.
func Channel(entityType, operation string) string {
	return entityType + "-" + operation
}

// eventType maps an operation to its envelope tag.
func eventType(operation string) string {
	switch operation {
	case "created":
		return EventCreated
	case "updated":
		return EventUpdated
	case "deleted":
		return EventDeleted
	default:
		return operation
	}
}

// Publish sends one change event. The operation is one of "created",
// "updated", "deleted".
func (n *Notifier) Publish(ctx context.Context, operation string, doc marketdata.Document) error {
	channel := Channel(doc.EntityType(), operation)
	id := doc.DocumentCore().ID()

	body, err := n.envelope(operation, channel, doc)
	if err != nil {
		return &PublishError{Channel: channel, ID: id, Err: err}
	}

	_, err = n.client.Publish(ctx, &sns.PublishInput{
		TopicArn: aws.String(n.config.TopicARNPrefix + channel),
		Message:  aws.String(string(body)),
	})
	if err != nil {
		return &PublishError{Channel: channel, ID: id, Err: err}
	}

	n.logger.Debug("change event published", "channel", channel, "id", id)
	return nil
}

// PublishBatch sends one event per document in SNS batches. All documents
// must share the operation; they may span entity types, which fan out to
// their own channels. Every failed entry is collected into the returned
// *PublishError chain's message.
func (n *Notifier) PublishBatch(ctx context.Context, operation string, docs []marketdata.Document) error {
	byChannel := make(map[string][]marketdata.Document)
	for _, doc := range docs {
		channel := Channel(doc.EntityType(), operation)
		byChannel[channel] = append(byChannel[channel], doc)
	}

	var failed []string
	var firstErr error
	for channel, channelDocs := range byChannel {
		for start := 0; start < len(channelDocs); start += snsBatchLimit {
			end := start + snsBatchLimit
			if end > len(channelDocs) {
				end = len(channelDocs)
			}

			entries := make([]snstypes.PublishBatchRequestEntry, 0, end-start)
			for _, doc := range channelDocs[start:end] {
				body, err := n.envelope(operation, channel, doc)
				if err != nil {
					failed = append(failed, doc.DocumentCore().ID())
					if firstErr == nil {
						firstErr = err
					}
					continue
				}
				entries = append(entries, snstypes.PublishBatchRequestEntry{
					Id:      aws.String(n.newID()),
					Message: aws.String(string(body)),
				})
			}
			if len(entries) == 0 {
				continue
			}

			out, err := n.client.PublishBatch(ctx, &sns.PublishBatchInput{
				TopicArn:                   aws.String(n.config.TopicARNPrefix + channel),
				PublishBatchRequestEntries: entries,
			})
			if err != nil {
				for _, doc := range channelDocs[start:end] {
					failed = append(failed, doc.DocumentCore().ID())
				}
				if firstErr == nil {
					firstErr = err
				}
				continue
			}
			for _, f := range out.Failed {
				failed = append(failed, aws.ToString(f.Id))
				if firstErr == nil {
					firstErr = fmt.Errorf("entry %s: %s", aws.ToString(f.Id), aws.ToString(f.Message))
				}
			}
		}
	}

	if len(failed) > 0 {
		return &PublishError{
			Channel: Channel("batch", operation),
			ID:      fmt.Sprintf("%d of %d events failed", len(failed), len(docs)),
			Err:     firstErr,
		}
	}
	return nil
}

// envelope builds the serialized event body.
func (n *Notifier) envelope(operation, channel string, doc marketdata.Document) ([]byte, error) {
	entity, err := json.Marshal(doc)
	if err != nil {
		return nil, fmt.Errorf("marshal entity: %w", err)
	}
	return json.Marshal(Envelope{
		EventID:    n.newID(),
		EventType:  eventType(operation),
		Channel:    channel,
		OccurredAt: n.now().UTC(),
		Entity:     entity,
	})
}
