package store

import (
	"context"
	"fmt"
	"strconv"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/service/dynamodb"
	"github.com/aws/aws-sdk-go-v2/service/dynamodb/types"
)

// nextVersion proposes the next version for a business key: highest existing
// version plus one, or 1 when none exists. Soft-deleted documents stay in
// the history, so their versions are never reissued. The proposal is
// advisory; the conditional create is the real exclusion.
func (s *Store) nextVersion(ctx context.Context, businessKeyID string) (int, error) {
	out, err := s.client.Query(ctx, &dynamodb.QueryInput{
		TableName:              aws.String(s.config.TableName),
		IndexName:              aws.String(s.config.VersionIndex),
		KeyConditionExpression: aws.String(attrBK + " = :bk"),
		ExpressionAttributeValues: map[string]types.AttributeValue{
			":bk": &types.AttributeValueMemberS{Value: businessKeyID},
		},
		ScanIndexForward: aws.Bool(false),
		Limit:            aws.Int32(1),
	})
	if err != nil {
		return 0, fmt.Errorf("query latest version for %s: %w", businessKeyID, err)
	}
	if len(out.Items) == 0 {
		return 1, nil
	}

	latest, err := versionOf(out.Items[0])
	if err != nil {
		return 0, fmt.Errorf("latest version for %s: %w", businessKeyID, err)
	}
	return latest + 1, nil
}

// versionOf extracts the numeric version attribute from an item.
func versionOf(item map[string]types.AttributeValue) (int, error) {
	attr, ok := item[attrVersion].(*types.AttributeValueMemberN)
	if !ok {
		return 0, fmt.Errorf("item has no numeric %s attribute", attrVersion)
	}
	v, err := strconv.Atoi(attr.Value)
	if err != nil {
		return 0, fmt.Errorf("parse version %q: %w", attr.Value, err)
	}
	return v, nil
}
