package store

import (
	"context"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/service/dynamodb"
	"github.com/aws/aws-sdk-go-v2/service/dynamodb/types"

	"github.com/meridianquant/docvault/internal/docid"
)

// resolvePartition finds the partition key for a document id when the entity
// itself is unavailable (delete-by-id, get-by-id).
//
// The id index is authoritative and consulted first. When it misses, the
// heuristic candidates are probed in fixed order: the substring before the
// first "__", the whole id, then the substring before the first "_" or ".".
// When every probe misses, the id itself is returned with resolved=false;
// the caller's next store call may still fail and must then surface
// ErrPartitionUnresolved.
func (s *Store) resolvePartition(ctx context.Context, id string) (pk string, resolved bool, err error) {
	if pk, ok, err := s.lookupPartition(ctx, id); err != nil {
		return "", false, err
	} else if ok {
		return pk, true, nil
	}

	for _, candidate := range docid.Candidates(id) {
		out, err := s.client.GetItem(ctx, &dynamodb.GetItemInput{
			TableName: aws.String(s.config.TableName),
			Key:       documentKey(candidate, id),
		})
		if err != nil {
			if Classify(err) == KindNotFound {
				continue
			}
			return "", false, err
		}
		if out.Item == nil {
			continue
		}
		if attr, ok := out.Item[attrPK].(*types.AttributeValueMemberS); ok {
			return attr.Value, true, nil
		}
		return candidate, true, nil
	}

	return id, false, nil
}

// lookupPartition consults the id index. Index errors degrade to a miss so
// the probe chain still runs.
func (s *Store) lookupPartition(ctx context.Context, id string) (string, bool, error) {
	out, err := s.client.Query(ctx, &dynamodb.QueryInput{
		TableName:              aws.String(s.config.TableName),
		IndexName:              aws.String(s.config.IDIndex),
		KeyConditionExpression: aws.String(attrSK + " = :sk"),
		ExpressionAttributeValues: map[string]types.AttributeValue{
			":sk": &types.AttributeValueMemberS{Value: id},
		},
		Limit: aws.Int32(1),
	})
	if err != nil {
		if ctx.Err() != nil {
			return "", false, err
		}
		s.logger.Debug("id index lookup failed, falling back to probes",
			"id", id,
			"error", err,
		)
		return "", false, nil
	}
	if len(out.Items) == 0 {
		return "", false, nil
	}
	if attr, ok := out.Items[0][attrPK].(*types.AttributeValueMemberS); ok {
		return attr.Value, true, nil
	}
	return "", false, nil
}
