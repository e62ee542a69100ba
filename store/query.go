package store

import (
	"context"
	"encoding/base64"
	"encoding/json"
	"fmt"
	"time"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/service/dynamodb"
	"github.com/aws/aws-sdk-go-v2/service/dynamodb/types"

	"github.com/meridianquant/docvault/internal/docid"
	"github.com/meridianquant/docvault/marketdata"
)

// RangeQuery selects documents of one (dataType, assetClass) pair within an
// as-of date window.
type RangeQuery struct {
	DataType   string
	AssetClass string

	// AssetID optionally narrows to a single asset.
	AssetID string

	// From and To bound the as-of date window (inclusive). When omitted, a
	// default window ending today and spanning Config.DefaultRangeWindow
	// applies, keeping scans bounded.
	From *time.Time
	To   *time.Time

	// IncludeDeleted includes soft-deleted documents.
	IncludeDeleted bool
}

// RangeResult is a capped range query result.
type RangeResult struct {
	Documents []marketdata.Document

	// Truncated is set when the result hit Config.MaxRangeResults.
	Truncated bool
}

// QueryByRange returns documents in the query's date window, newest window
// defaults applied, soft-deleted documents excluded unless requested, result
// count capped.
func (s *Store) QueryByRange(ctx context.Context, q RangeQuery) (RangeResult, error) {
	to := s.now().UTC()
	if q.To != nil {
		to = *q.To
	}
	from := to.Add(-s.config.DefaultRangeWindow)
	if q.From != nil {
		from = *q.From
	}

	values := map[string]types.AttributeValue{
		":tk":   &types.AttributeValueMemberS{Value: typeKey(q.DataType, q.AssetClass)},
		":from": &types.AttributeValueMemberS{Value: from.Format(dateFormat)},
		":to":   &types.AttributeValueMemberS{Value: to.Format(dateFormat)},
	}

	filter := ""
	if !q.IncludeDeleted {
		filter = activeFilterExpr
	}
	if q.AssetID != "" {
		assetFilter := attrAssetID + " = :aid"
		values[":aid"] = &types.AttributeValueMemberS{Value: docid.PartitionKey(q.AssetID)}
		if filter != "" {
			filter = fmt.Sprintf("(%s) AND (%s)", filter, assetFilter)
		} else {
			filter = assetFilter
		}
	}

	input := &dynamodb.QueryInput{
		TableName:                 aws.String(s.config.TableName),
		IndexName:                 aws.String(s.config.TypeDateIndex),
		KeyConditionExpression:    aws.String(attrTypeKey + " = :tk AND " + attrAsOfDate + " BETWEEN :from AND :to"),
		ExpressionAttributeValues: values,
	}
	if filter != "" {
		input.FilterExpression = aws.String(filter)
	}

	var result RangeResult
	paginator := dynamodb.NewQueryPaginator(s.client, input)
	for paginator.HasMorePages() {
		page, err := paginator.NextPage(ctx)
		if err != nil {
			return RangeResult{}, err
		}
		for _, raw := range page.Items {
			if len(result.Documents) >= s.config.MaxRangeResults {
				result.Truncated = true
				return result, nil
			}
			doc, err := DocumentFromItem(raw)
			if err != nil {
				return RangeResult{}, err
			}
			result.Documents = append(result.Documents, doc)
		}
	}
	return result, nil
}

// GetLatest returns the highest-version active document for a business key,
// or (nil, nil) when none exists.
func (s *Store) GetLatest(ctx context.Context, key marketdata.BusinessKey) (marketdata.Document, error) {
	bk := key.ID()
	if bk == "" {
		return nil, nil
	}

	input := &dynamodb.QueryInput{
		TableName:              aws.String(s.config.TableName),
		IndexName:              aws.String(s.config.VersionIndex),
		KeyConditionExpression: aws.String(attrBK + " = :bk"),
		ExpressionAttributeValues: map[string]types.AttributeValue{
			":bk": &types.AttributeValueMemberS{Value: bk},
		},
		ScanIndexForward: aws.Bool(false),
	}

	// Soft-deleted versions are filtered client-side so the first page
	// usually answers without a second round trip.
	paginator := dynamodb.NewQueryPaginator(s.client, input)
	for paginator.HasMorePages() {
		page, err := paginator.NextPage(ctx)
		if err != nil {
			return nil, err
		}
		for _, raw := range page.Items {
			if isDeletedItem(raw) {
				continue
			}
			return DocumentFromItem(raw)
		}
	}
	return nil, nil
}

// GetAllVersions returns every version of a business key in ascending
// version order, including soft-deleted versions when requested.
func (s *Store) GetAllVersions(ctx context.Context, businessKeyID string, includeDeleted bool) ([]marketdata.Document, error) {
	if businessKeyID == "" {
		return nil, nil
	}

	input := &dynamodb.QueryInput{
		TableName:              aws.String(s.config.TableName),
		IndexName:              aws.String(s.config.VersionIndex),
		KeyConditionExpression: aws.String(attrBK + " = :bk"),
		ExpressionAttributeValues: map[string]types.AttributeValue{
			":bk": &types.AttributeValueMemberS{Value: businessKeyID},
		},
	}

	var docs []marketdata.Document
	paginator := dynamodb.NewQueryPaginator(s.client, input)
	for paginator.HasMorePages() {
		page, err := paginator.NextPage(ctx)
		if err != nil {
			return nil, err
		}
		for _, raw := range page.Items {
			if !includeDeleted && isDeletedItem(raw) {
				continue
			}
			doc, err := DocumentFromItem(raw)
			if err != nil {
				return nil, err
			}
			docs = append(docs, doc)
		}
	}
	return docs, nil
}

// PageQuery selects one page of an entity type's documents ordered by
// insertion time descending.
type PageQuery struct {
	EntityType string
	PageSize   int32

	// Token is the opaque continuation token from the previous page, or ""
	// for the first page.
	Token string

	// IncludeDeleted includes soft-deleted documents.
	IncludeDeleted bool
}

// Page is one page of results with the continuation token for the next.
type Page struct {
	Documents []marketdata.Document

	// NextToken is "" when no further pages exist.
	NextToken string
}

// GetPaged returns one page ordered by insertion time descending. The
// type-created index gives the deterministic ordering stable paging needs.
func (s *Store) GetPaged(ctx context.Context, q PageQuery) (Page, error) {
	if q.PageSize < 1 {
		q.PageSize = 100
	}

	input := &dynamodb.QueryInput{
		TableName:              aws.String(s.config.TableName),
		IndexName:              aws.String(s.config.TypeCreatedIndex),
		KeyConditionExpression: aws.String(attrType + " = :et"),
		ExpressionAttributeValues: map[string]types.AttributeValue{
			":et": &types.AttributeValueMemberS{Value: q.EntityType},
		},
		ScanIndexForward: aws.Bool(false),
		Limit:            aws.Int32(q.PageSize),
	}
	if !q.IncludeDeleted {
		input.FilterExpression = aws.String(activeFilterExpr)
	}
	if q.Token != "" {
		startKey, err := decodeToken(q.Token)
		if err != nil {
			return Page{}, err
		}
		input.ExclusiveStartKey = startKey
	}

	out, err := s.client.Query(ctx, input)
	if err != nil {
		return Page{}, err
	}

	page := Page{}
	for _, raw := range out.Items {
		doc, err := DocumentFromItem(raw)
		if err != nil {
			return Page{}, err
		}
		page.Documents = append(page.Documents, doc)
	}
	if len(out.LastEvaluatedKey) > 0 {
		token, err := encodeToken(out.LastEvaluatedKey)
		if err != nil {
			return Page{}, err
		}
		page.NextToken = token
	}
	return page, nil
}

// CountFilter narrows Count to an entity type and/or active documents.
type CountFilter struct {
	EntityType     string
	IncludeDeleted bool
}

// Count returns the number of stored documents. With a nil filter the
// store-native count is used; otherwise counts accumulate page by page.
func (s *Store) Count(ctx context.Context, filter *CountFilter) (int, error) {
	input := &dynamodb.ScanInput{
		TableName: aws.String(s.config.TableName),
		Select:    types.SelectCount,
	}
	if filter != nil {
		expr := ""
		values := map[string]types.AttributeValue{}
		if filter.EntityType != "" {
			expr = attrType + " = :et"
			values[":et"] = &types.AttributeValueMemberS{Value: filter.EntityType}
		}
		if !filter.IncludeDeleted {
			if expr != "" {
				expr = fmt.Sprintf("(%s) AND (%s)", expr, activeFilterExpr)
			} else {
				expr = activeFilterExpr
			}
		}
		if expr != "" {
			input.FilterExpression = aws.String(expr)
		}
		if len(values) > 0 {
			input.ExpressionAttributeValues = values
		}
	}

	total := 0
	paginator := dynamodb.NewScanPaginator(s.client, input)
	for paginator.HasMorePages() {
		page, err := paginator.NextPage(ctx)
		if err != nil {
			return 0, err
		}
		total += int(page.Count)
	}
	return total, nil
}

// Continuation tokens are the base64 JSON of the page's last evaluated key.
// All key attributes involved are strings.

func encodeToken(key map[string]types.AttributeValue) (string, error) {
	flat := make(map[string]string, len(key))
	for k, v := range key {
		s, ok := v.(*types.AttributeValueMemberS)
		if !ok {
			return "", fmt.Errorf("unsupported continuation key attribute %q (%T)", k, v)
		}
		flat[k] = s.Value
	}
	raw, err := json.Marshal(flat)
	if err != nil {
		return "", err
	}
	return base64.RawURLEncoding.EncodeToString(raw), nil
}

func decodeToken(token string) (map[string]types.AttributeValue, error) {
	raw, err := base64.RawURLEncoding.DecodeString(token)
	if err != nil {
		return nil, fmt.Errorf("malformed continuation token: %w", err)
	}
	var flat map[string]string
	if err := json.Unmarshal(raw, &flat); err != nil {
		return nil, fmt.Errorf("malformed continuation token: %w", err)
	}
	key := make(map[string]types.AttributeValue, len(flat))
	for k, v := range flat {
		key[k] = &types.AttributeValueMemberS{Value: v}
	}
	return key, nil
}
