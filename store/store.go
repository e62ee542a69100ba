package store

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/service/dynamodb"
	"github.com/aws/aws-sdk-go-v2/service/dynamodb/types"

	"github.com/meridianquant/docvault/marketdata"
	"github.com/meridianquant/docvault/metric"
)

// Store provides versioned document operations against DynamoDB.
type Store struct {
	client    DynamoAPI
	config    Config
	publisher Publisher
	logger    *slog.Logger
	metrics   *metric.Metrics

	now   func() time.Time
	sleep func(ctx context.Context, d time.Duration) error
}

// Option configures a Store.
type Option func(*Store)

// WithPublisher attaches the change notifier invoked after successful writes.
func WithPublisher(p Publisher) Option {
	return func(s *Store) { s.publisher = p }
}

// WithLogger attaches a structured logger.
func WithLogger(logger *slog.Logger) Option {
	return func(s *Store) { s.logger = logger }
}

// WithMetrics attaches Prometheus instrumentation.
func WithMetrics(m *metric.Metrics) Option {
	return func(s *Store) { s.metrics = m }
}

// New creates a new Store instance.
func New(client DynamoAPI, config Config, opts ...Option) *Store {
	config.validate()
	s := &Store{
		client: client,
		config: config,
		logger: slog.Default(),
		now:    time.Now,
		sleep:  sleepContext,
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// sleepContext waits for d, returning early with the context error when
// canceled mid-backoff.
func sleepContext(ctx context.Context, d time.Duration) error {
	timer := time.NewTimer(d)
	defer timer.Stop()
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-timer.C:
		return nil
	}
}

// GetByID retrieves a document by id, transparently filtering soft-deleted
// documents. A miss returns (nil, nil), never an error.
func (s *Store) GetByID(ctx context.Context, id string) (marketdata.Document, error) {
	item, err := s.getRawByID(ctx, id)
	if err != nil || item == nil {
		return nil, err
	}
	if isDeletedItem(item) {
		return nil, nil
	}
	return DocumentFromItem(item)
}

// GetByIDOrErr is GetByID returning ErrNotFound on a miss.
func (s *Store) GetByIDOrErr(ctx context.Context, id string) (marketdata.Document, error) {
	doc, err := s.GetByID(ctx, id)
	if err != nil {
		return nil, err
	}
	if doc == nil {
		return nil, fmt.Errorf("%w: %s", ErrNotFound, id)
	}
	return doc, nil
}

// getRawByID resolves the partition and fetches the raw item, including
// soft-deleted ones. A miss returns (nil, nil).
func (s *Store) getRawByID(ctx context.Context, id string) (item map[string]types.AttributeValue, err error) {
	if id == "" {
		return nil, nil
	}
	pk, resolved, err := s.resolvePartition(ctx, id)
	if err != nil {
		return nil, err
	}

	out, err := s.client.GetItem(ctx, &dynamodb.GetItemInput{
		TableName: aws.String(s.config.TableName),
		Key:       documentKey(pk, id),
	})
	if err != nil {
		if Classify(err) == KindNotFound {
			return nil, nil
		}
		if !resolved {
			return nil, fmt.Errorf("%w: %s: %v", ErrPartitionUnresolved, id, err)
		}
		return nil, err
	}
	if out.Item == nil {
		return nil, nil
	}
	return out.Item, nil
}

// Add persists a new version of the document's business key. It allocates
// the next version, derives the id, and conditionally creates the item;
// losing the id race restarts the whole cycle with linear backoff, up to the
// configured attempt budget. On success a "created" event is published; a
// publish failure leaves the write committed and is reported via the
// result's Err.
func (s *Store) Add(ctx context.Context, doc marketdata.Document) WriteResult {
	res := s.createDocument(ctx, doc)
	s.metrics.ObserveWrite(doc.EntityType(), OpCreated, res.Outcome.String())
	if !res.Ok() {
		return res
	}
	res.Err = s.publish(ctx, OpCreated, doc)
	return res
}

// createDocument runs the allocate-and-write cycle without publishing.
func (s *Store) createDocument(ctx context.Context, doc marketdata.Document) WriteResult {
	c := doc.DocumentCore()
	bk := c.BusinessKeyID()
	if bk == "" {
		return WriteResult{Outcome: OutcomeFatal, Err: ErrUnidentifiable}
	}
	if c.CreateTimestamp.IsZero() {
		c.CreateTimestamp = s.now().UTC()
	}

	var lastErr error
	for attempt := 1; attempt <= s.config.MaxWriteAttempts; attempt++ {
		version, err := s.nextVersion(ctx, bk)
		if err != nil {
			c.Version = nil
			if ctx.Err() != nil {
				return canceledResult(ctx.Err())
			}
			return failureResult(err)
		}
		c.Version = &version
		id := c.ID()

		item, err := itemFromDocument(doc)
		if err != nil {
			c.Version = nil
			return WriteResult{Outcome: OutcomeFatal, Err: err}
		}

		_, err = s.client.PutItem(ctx, &dynamodb.PutItemInput{
			TableName:           aws.String(s.config.TableName),
			Item:                item,
			ConditionExpression: aws.String("attribute_not_exists(" + attrSK + ")"),
		})
		if err == nil {
			s.logger.Debug("document created",
				"id", id,
				"version", version,
				"attempt", attempt,
			)
			return successResult(id, version)
		}
		if ctx.Err() != nil {
			c.Version = nil
			return canceledResult(ctx.Err())
		}

		if Classify(err) != KindConflict {
			c.Version = nil
			return failureResult(err)
		}

		// Another writer won this version. Back off linearly and rerun
		// the whole allocation cycle.
		lastErr = fmt.Errorf("%w: %s", ErrAlreadyExists, id)
		s.metrics.ObserveConflictRetry(doc.EntityType())
		s.logger.Debug("conditional create lost id race",
			"id", id,
			"attempt", attempt,
		)
		if attempt < s.config.MaxWriteAttempts {
			if serr := s.sleep(ctx, s.config.RetryBaseDelay*time.Duration(attempt)); serr != nil {
				c.Version = nil
				return canceledResult(serr)
			}
		}
	}

	c.Version = nil
	return conflictResult(bk, fmt.Errorf("%w: %v", ErrVersionConflict, lastErr))
}

// Update writes the document unconditionally (create-or-replace by id) and
// publishes an "updated" event. The document must carry an allocated version.
func (s *Store) Update(ctx context.Context, doc marketdata.Document) WriteResult {
	res := s.upsertDocument(ctx, doc)
	s.metrics.ObserveWrite(doc.EntityType(), OpUpdated, res.Outcome.String())
	if !res.Ok() {
		return res
	}
	res.Err = s.publish(ctx, OpUpdated, doc)
	return res
}

func (s *Store) upsertDocument(ctx context.Context, doc marketdata.Document) WriteResult {
	c := doc.DocumentCore()
	id := c.ID()
	if id == "" || c.Version == nil {
		return WriteResult{Outcome: OutcomeFatal, Err: ErrUnidentifiable}
	}

	item, err := itemFromDocument(doc)
	if err != nil {
		return WriteResult{Outcome: OutcomeFatal, Err: err}
	}

	if _, err := s.client.PutItem(ctx, &dynamodb.PutItemInput{
		TableName: aws.String(s.config.TableName),
		Item:      item,
	}); err != nil {
		if ctx.Err() != nil {
			return canceledResult(ctx.Err())
		}
		return failureResult(err)
	}
	return successResult(id, *c.Version)
}

// Delete removes a document by id. When soft is true the document is marked
// deleted and rewritten in place, preserving version history; types that do
// not support soft deletion report a failure. When soft is false the item is
// physically removed. A miss reports Deleted=false with a success outcome,
// never an error. Either path publishes a "deleted" event for work done.
func (s *Store) Delete(ctx context.Context, id string, soft bool) WriteResult {
	var res WriteResult
	var doc marketdata.Document
	if soft {
		res, doc = s.softDelete(ctx, id)
	} else {
		res, doc = s.hardDelete(ctx, id)
	}
	entityType := "unknown"
	if doc != nil {
		entityType = doc.EntityType()
	}
	s.metrics.ObserveWrite(entityType, OpDeleted, res.Outcome.String())
	if !res.Ok() || !res.Deleted || doc == nil {
		return res
	}
	res.Err = s.publish(ctx, OpDeleted, doc)
	return res
}

func (s *Store) softDelete(ctx context.Context, id string) (WriteResult, marketdata.Document) {
	item, err := s.getRawByID(ctx, id)
	if err != nil {
		if ctx.Err() != nil {
			return canceledResult(ctx.Err()), nil
		}
		return failureResult(err), nil
	}
	if item == nil {
		return WriteResult{Outcome: OutcomeSuccess, ID: id, Deleted: false}, nil
	}
	if isDeletedItem(item) {
		// Already soft-deleted; nothing to rewrite, no event.
		return WriteResult{Outcome: OutcomeSuccess, ID: id, Deleted: false}, nil
	}

	doc, err := DocumentFromItem(item)
	if err != nil {
		return WriteResult{Outcome: OutcomeFatal, Err: err}, nil
	}
	if !doc.SupportsSoftDelete() {
		return WriteResult{Outcome: OutcomeFatal, ID: id, Err: ErrSoftDeleteUnsupported}, nil
	}

	doc.DocumentCore().IsDeleted = true
	res := s.upsertDocument(ctx, doc)
	if !res.Ok() {
		return res, nil
	}
	res.Deleted = true
	return res, doc
}

func (s *Store) hardDelete(ctx context.Context, id string) (WriteResult, marketdata.Document) {
	pk, resolved, err := s.resolvePartition(ctx, id)
	if err != nil {
		if ctx.Err() != nil {
			return canceledResult(ctx.Err()), nil
		}
		return failureResult(err), nil
	}

	out, err := s.client.DeleteItem(ctx, &dynamodb.DeleteItemInput{
		TableName:    aws.String(s.config.TableName),
		Key:          documentKey(pk, id),
		ReturnValues: types.ReturnValueAllOld,
	})
	if err != nil {
		if ctx.Err() != nil {
			return canceledResult(ctx.Err()), nil
		}
		if Classify(err) == KindNotFound {
			return WriteResult{Outcome: OutcomeSuccess, ID: id, Deleted: false}, nil
		}
		if !resolved {
			return WriteResult{
				Outcome: OutcomeFatal,
				Err:     fmt.Errorf("%w: %s: %v", ErrPartitionUnresolved, id, err),
			}, nil
		}
		return failureResult(err), nil
	}
	if len(out.Attributes) == 0 {
		return WriteResult{Outcome: OutcomeSuccess, ID: id, Deleted: false}, nil
	}

	res := WriteResult{Outcome: OutcomeSuccess, ID: id, Deleted: true}
	doc, err := DocumentFromItem(out.Attributes)
	if err != nil {
		// The item is gone; the event is skipped rather than failing
		// the delete.
		s.logger.Warn("deleted document could not be decoded for notification",
			"id", id,
			"error", err,
		)
		return res, nil
	}
	return res, doc
}

// publish sends a change event, recording failures without rolling back.
func (s *Store) publish(ctx context.Context, operation string, doc marketdata.Document) error {
	if s.publisher == nil {
		return nil
	}
	if err := s.publisher.Publish(ctx, operation, doc); err != nil {
		channel := doc.EntityType() + "-" + operation
		s.metrics.ObservePublishFailure(channel)
		s.logger.Error("change event publish failed",
			"channel", channel,
			"id", doc.DocumentCore().ID(),
			"error", err,
		)
		return err
	}
	return nil
}

// documentKey builds the table primary key.
func documentKey(pk, id string) map[string]types.AttributeValue {
	return map[string]types.AttributeValue{
		attrPK: &types.AttributeValueMemberS{Value: pk},
		attrSK: &types.AttributeValueMemberS{Value: id},
	}
}
