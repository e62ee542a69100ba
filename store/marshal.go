package store

import (
	"fmt"
	"strings"
	"time"

	"github.com/aws/aws-sdk-go-v2/feature/dynamodb/attributevalue"
	"github.com/aws/aws-sdk-go-v2/service/dynamodb/types"

	"github.com/meridianquant/docvault/marketdata"
)

// Wire formats for date and time attributes. create_ts is fixed-width so the
// type-created index sorts lexicographically by insertion time.
const (
	dateFormat     = "2006-01-02"
	timeFormat     = "15:04:05"
	createTSFormat = "2006-01-02T15:04:05.000000Z"
)

// Attribute names shared with the table and index definitions.
const (
	attrPK        = "pk"
	attrSK        = "sk"
	attrBK        = "bk"
	attrVersion   = "version"
	attrType      = "entity_type"
	attrTypeKey   = "type_key"
	attrAssetID   = "asset_id"
	attrAsOfDate  = "as_of_date"
	attrCreateTS  = "create_ts"
	attrDeletedAt = "deleted_at"
)

// activeFilterExpr excludes soft-deleted documents from query results.
const activeFilterExpr = "attribute_not_exists(" + attrDeletedAt + ")"

// coreRecord is the stored form of the shared document fields.
type coreRecord struct {
	PK             string   `dynamodbav:"pk"`
	SK             string   `dynamodbav:"sk"`
	BK             string   `dynamodbav:"bk"`
	EntityType     string   `dynamodbav:"entity_type"`
	TypeKey        string   `dynamodbav:"type_key"`
	DataType       string   `dynamodbav:"data_type"`
	AssetClass     string   `dynamodbav:"asset_class"`
	AssetID        string   `dynamodbav:"asset_id"`
	DisplayAssetID string   `dynamodbav:"display_asset_id,omitempty"`
	Region         string   `dynamodbav:"region"`
	DocumentType   string   `dynamodbav:"document_type"`
	SchemaVersion  string   `dynamodbav:"schema_version"`
	AsOfDate       string   `dynamodbav:"as_of_date"`
	AsOfTime       string   `dynamodbav:"as_of_time,omitempty"`
	Version        int      `dynamodbav:"version"`
	Tags           []string `dynamodbav:"tags,stringset,omitempty"`
	CreateTS       string   `dynamodbav:"create_ts"`
	DeletedAt      string   `dynamodbav:"deleted_at,omitempty"`
}

// typeKey builds the range-query partition attribute from the identity pair.
func typeKey(dataType, assetClass string) string {
	return strings.ToLower(dataType) + "#" + strings.ToLower(assetClass)
}

// itemFromDocument marshals a document whose version has been allocated.
func itemFromDocument(doc marketdata.Document) (map[string]types.AttributeValue, error) {
	c := doc.DocumentCore()
	id := c.ID()
	if id == "" {
		return nil, ErrUnidentifiable
	}
	if c.Version == nil {
		return nil, fmt.Errorf("docvault: document %q has no allocated version", c.BusinessKeyID())
	}

	rec := coreRecord{
		PK:             c.PartitionKey(),
		SK:             id,
		BK:             c.BusinessKeyID(),
		EntityType:     doc.EntityType(),
		TypeKey:        typeKey(c.DataType, c.AssetClass),
		DataType:       strings.ToLower(c.DataType),
		AssetClass:     strings.ToLower(c.AssetClass),
		AssetID:        strings.ToLower(c.AssetID),
		DisplayAssetID: c.DisplayAssetID,
		Region:         strings.ToLower(c.Region),
		DocumentType:   strings.ToLower(c.DocumentType),
		SchemaVersion:  strings.ToLower(c.SchemaVersion),
		AsOfDate:       c.AsOfDate.Format(dateFormat),
		Version:        *c.Version,
		Tags:           c.Tags,
		CreateTS:       c.CreateTimestamp.UTC().Format(createTSFormat),
	}
	if c.AsOfTime != nil {
		rec.AsOfTime = c.AsOfTime.UTC().Format(timeFormat)
	}
	if c.IsDeleted {
		rec.DeletedAt = time.Now().UTC().Format(time.RFC3339Nano)
	}

	item, err := attributevalue.MarshalMap(rec)
	if err != nil {
		return nil, fmt.Errorf("marshal document core: %w", err)
	}

	payload, err := doc.PayloadAttributes()
	if err != nil {
		return nil, err
	}
	for k, v := range payload {
		item[k] = v
	}
	return item, nil
}

// DocumentFromItem reconstructs a typed document from a raw stored item.
func DocumentFromItem(item map[string]types.AttributeValue) (marketdata.Document, error) {
	var rec coreRecord
	if err := attributevalue.UnmarshalMap(item, &rec); err != nil {
		return nil, fmt.Errorf("unmarshal document core: %w", err)
	}

	asOfDate, err := time.Parse(dateFormat, rec.AsOfDate)
	if err != nil {
		return nil, fmt.Errorf("parse as_of_date %q: %w", rec.AsOfDate, err)
	}

	version := rec.Version
	core := marketdata.Core{
		DataType:       rec.DataType,
		AssetClass:     rec.AssetClass,
		AssetID:        rec.AssetID,
		Region:         rec.Region,
		DocumentType:   rec.DocumentType,
		SchemaVersion:  rec.SchemaVersion,
		AsOfDate:       asOfDate,
		Version:        &version,
		DisplayAssetID: rec.DisplayAssetID,
		Tags:           rec.Tags,
		IsDeleted:      rec.DeletedAt != "",
	}
	if rec.CreateTS != "" {
		// RFC3339Nano also parses the fixed-width stored form.
		ts, err := time.Parse(time.RFC3339Nano, rec.CreateTS)
		if err != nil {
			return nil, fmt.Errorf("parse create_ts %q: %w", rec.CreateTS, err)
		}
		core.CreateTimestamp = ts
	}
	if rec.AsOfTime != "" {
		clock, err := time.Parse(timeFormat, rec.AsOfTime)
		if err != nil {
			return nil, fmt.Errorf("parse as_of_time %q: %w", rec.AsOfTime, err)
		}
		at := time.Date(asOfDate.Year(), asOfDate.Month(), asOfDate.Day(),
			clock.Hour(), clock.Minute(), clock.Second(), 0, time.UTC)
		core.AsOfTime = &at
	}

	return marketdata.Decode(rec.EntityType, core, item)
}

// isDeletedItem reports whether a raw item is soft-deleted.
func isDeletedItem(item map[string]types.AttributeValue) bool {
	_, exists := item[attrDeletedAt]
	return exists
}
