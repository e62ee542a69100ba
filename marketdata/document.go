package marketdata

import (
	"fmt"
	"slices"
	"sync"
	"time"

	"github.com/aws/aws-sdk-go-v2/service/dynamodb/types"

	"github.com/meridianquant/docvault/internal/docid"
)

// Core holds the fields shared by every market-data document.
type Core struct {
	// Identity fields. All are case-normalized when the id is derived.
	DataType      string `json:"dataType"`
	AssetClass    string `json:"assetClass"`
	AssetID       string `json:"assetId"`
	Region        string `json:"region"`
	DocumentType  string `json:"documentType"`
	SchemaVersion string `json:"schemaVersion"`

	// AsOfDate is the business date of the data point (identity field,
	// rendered yyyy-MM-dd).
	AsOfDate time.Time `json:"asOfDate"`

	// Version is nil until allocated by the store.
	Version *int `json:"version,omitempty"`

	// DisplayAssetID preserves the original casing of AssetID for
	// presentation. It never participates in identity.
	DisplayAssetID string `json:"displayAssetId,omitempty"`

	// AsOfTime is an optional intraday timestamp (rendered HH:mm:ss).
	AsOfTime *time.Time `json:"asOfTime,omitempty"`

	// Tags is a mutable string set; it does not affect identity.
	Tags []string `json:"tags,omitempty"`

	// CreateTimestamp is set once at persistence and never changes.
	CreateTimestamp time.Time `json:"createTimestamp,omitempty"`

	// IsDeleted marks the document as soft-deleted. Soft-deleted documents
	// are filtered out of reads unless explicitly included.
	IsDeleted bool `json:"isDeleted,omitempty"`
}

// Document is the capability shared by all persistable market-data types.
// Concrete types embed [Core] so the shared fields flatten into their JSON
// form.
type Document interface {
	// DocumentCore returns the shared document fields.
	DocumentCore() *Core

	// EntityType returns the stable type name (e.g. "fx-spot-price") used
	// for event channels, paging scopes, and decode dispatch.
	EntityType() string

	// SupportsSoftDelete reports whether Delete(soft=true) is allowed for
	// this type.
	SupportsSoftDelete() bool

	// PayloadAttributes marshals the type-specific payload fields.
	// Identity and store-managed attributes are the store's responsibility.
	PayloadAttributes() (map[string]types.AttributeValue, error)
}

// IdentityFields maps the core onto the id derivation input.
func (c *Core) IdentityFields() docid.Fields {
	return docid.Fields{
		DataType:      c.DataType,
		AssetClass:    c.AssetClass,
		AssetID:       c.AssetID,
		Region:        c.Region,
		DocumentType:  c.DocumentType,
		AsOfDate:      c.AsOfDate,
		SchemaVersion: c.SchemaVersion,
		Version:       c.Version,
	}
}

// ID derives the document id, or "" if any required identity field is empty.
// The id is recomputed on every call; nothing is cached.
func (c *Core) ID() string {
	return docid.Compute(c.IdentityFields())
}

// BusinessKeyID derives the id without the version component.
func (c *Core) BusinessKeyID() string {
	return docid.BusinessKeyID(c.IdentityFields())
}

// PartitionKey derives the store sharding key from the asset id.
func (c *Core) PartitionKey() string {
	return docid.PartitionKey(c.AssetID)
}

// AddTag inserts a tag, preserving set semantics.
func (c *Core) AddTag(tag string) {
	if tag == "" || slices.Contains(c.Tags, tag) {
		return
	}
	c.Tags = append(c.Tags, tag)
	slices.Sort(c.Tags)
}

// HasTag reports whether the tag is present.
func (c *Core) HasTag(tag string) bool {
	return slices.Contains(c.Tags, tag)
}

// BusinessKey identifies a logical data point across all its versions.
type BusinessKey struct {
	DataType     string
	AssetClass   string
	AssetID      string
	Region       string
	DocumentType string
	AsOfDate     time.Time
	// SchemaVersion participates in the persisted id format even though the
	// business key proper excludes it; versions of one logical point share it.
	SchemaVersion string
}

// ID derives the business key id (the document id minus the version).
func (k BusinessKey) ID() string {
	return docid.BusinessKeyID(docid.Fields{
		DataType:      k.DataType,
		AssetClass:    k.AssetClass,
		AssetID:       k.AssetID,
		Region:        k.Region,
		DocumentType:  k.DocumentType,
		AsOfDate:      k.AsOfDate,
		SchemaVersion: k.SchemaVersion,
	})
}

// PartitionKey derives the store sharding key for the business key.
func (k BusinessKey) PartitionKey() string {
	return docid.PartitionKey(k.AssetID)
}

// Key extracts the business key from a document.
func Key(doc Document) BusinessKey {
	c := doc.DocumentCore()
	return BusinessKey{
		DataType:      c.DataType,
		AssetClass:    c.AssetClass,
		AssetID:       c.AssetID,
		Region:        c.Region,
		DocumentType:  c.DocumentType,
		AsOfDate:      c.AsOfDate,
		SchemaVersion: c.SchemaVersion,
	}
}

// DecodeFunc reconstructs a concrete document from its core fields and the
// raw stored item.
type DecodeFunc func(core Core, item map[string]types.AttributeValue) (Document, error)

var (
	decodersMu sync.RWMutex
	decoders   = make(map[string]DecodeFunc)
)

// RegisterDecoder registers the decoder for an entity type. Concrete types
// register themselves in init; registering the same type twice panics.
func RegisterDecoder(entityType string, fn DecodeFunc) {
	decodersMu.Lock()
	defer decodersMu.Unlock()
	if _, dup := decoders[entityType]; dup {
		panic(fmt.Sprintf("marketdata: decoder already registered for %q", entityType))
	}
	decoders[entityType] = fn
}

// Decode dispatches to the registered decoder for entityType.
func Decode(entityType string, core Core, item map[string]types.AttributeValue) (Document, error) {
	decodersMu.RLock()
	fn, ok := decoders[entityType]
	decodersMu.RUnlock()
	if !ok {
		return nil, fmt.Errorf("marketdata: no decoder registered for entity type %q", entityType)
	}
	return fn(core, item)
}
