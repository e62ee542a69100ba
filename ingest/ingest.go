// Package ingest accepts raw market-data payloads and persists them.
//
// The flow is: schema-validate the raw JSON, map it to a domain document via
// the mapper registered for its (dataType, assetClass), then Add it through
// the validating repository. Mapping is a registration table, not a type
// switch, so new asset classes plug in at configuration time.
package ingest

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"sync"

	"github.com/meridianquant/docvault/marketdata"
	"github.com/meridianquant/docvault/schema"
	"github.com/meridianquant/docvault/store"
	"github.com/meridianquant/docvault/validate"
)

// ErrMapperNotFound is returned when no mapper is registered for the
// payload's (dataType, assetClass).
var ErrMapperNotFound = errors.New("ingest: no mapper registered")

// MapperFunc builds a domain document from a schema-validated payload.
type MapperFunc func(req Request) (marketdata.Document, error)

type mapperKey struct {
	dataType   string
	assetClass string
}

// Mappers maps (dataType, assetClass) to payload mappers.
type Mappers struct {
	mu      sync.RWMutex
	mappers map[mapperKey]MapperFunc
}

// NewMappers creates an empty mapper registry.
func NewMappers() *Mappers {
	return &Mappers{mappers: make(map[mapperKey]MapperFunc)}
}

// Register binds a mapper to a (dataType, assetClass) pair.
func (m *Mappers) Register(dataType, assetClass string, fn MapperFunc) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.mappers[mapperKey{strings.ToLower(dataType), strings.ToLower(assetClass)}] = fn
}

// Lookup returns the mapper for a pair, or ErrMapperNotFound.
func (m *Mappers) Lookup(dataType, assetClass string) (MapperFunc, error) {
	m.mu.RLock()
	fn, ok := m.mappers[mapperKey{strings.ToLower(dataType), strings.ToLower(assetClass)}]
	m.mu.RUnlock()
	if !ok {
		return nil, fmt.Errorf("%w: %s/%s", ErrMapperNotFound, dataType, assetClass)
	}
	return fn, nil
}

// Request is one inbound payload with its schema coordinates.
type Request struct {
	DataType      string
	AssetClass    string
	SchemaVersion string
	Body          []byte
}

// Response reports a persisted document.
type Response struct {
	ID      string `json:"id"`
	Version int    `json:"version"`
}

// Ingestor wires schema validation, mapping, and persistence.
type Ingestor struct {
	schemas *schema.Registry
	mappers *Mappers
	repo    validate.Repository
	logger  *slog.Logger
}

// New creates an Ingestor.
func New(schemas *schema.Registry, mappers *Mappers, repo validate.Repository, logger *slog.Logger) *Ingestor {
	if logger == nil {
		logger = slog.Default()
	}
	return &Ingestor{
		schemas: schemas,
		mappers: mappers,
		repo:    repo,
		logger:  logger,
	}
}

// Ingest validates, maps, and persists one payload. Schema and mapper
// misses surface as their distinct error types; persistence failures carry
// the write result.
func (i *Ingestor) Ingest(ctx context.Context, req Request) (Response, store.WriteResult, error) {
	if err := i.schemas.Validate(req.DataType, req.AssetClass, req.SchemaVersion, req.Body); err != nil {
		return Response{}, store.WriteResult{}, err
	}

	mapper, err := i.mappers.Lookup(req.DataType, req.AssetClass)
	if err != nil {
		return Response{}, store.WriteResult{}, err
	}
	doc, err := mapper(req)
	if err != nil {
		return Response{}, store.WriteResult{}, fmt.Errorf("ingest: map %s/%s payload: %w", req.DataType, req.AssetClass, err)
	}

	res := i.repo.Add(ctx, doc)
	if !res.Ok() {
		i.logger.Warn("ingestion write failed",
			"dataType", req.DataType,
			"assetClass", req.AssetClass,
			"outcome", res.Outcome.String(),
		)
		return Response{}, res, nil
	}
	if res.PublishFailed() {
		i.logger.Error("ingested document committed but event publish failed",
			"id", res.ID,
			"error", res.Err,
		)
	}

	return Response{ID: res.ID, Version: res.Version}, res, nil
}
