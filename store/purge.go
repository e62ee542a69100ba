package store

import (
	"context"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/service/dynamodb"
	"github.com/aws/aws-sdk-go-v2/service/dynamodb/types"
)

// PurgeSoftDeleted physically removes every soft-deleted document and
// returns the number purged. After a purge the documents are gone even for
// readers that include soft-deleted results. No events are published; the
// soft delete already announced the removal.
func (s *Store) PurgeSoftDeleted(ctx context.Context) (int, error) {
	input := &dynamodb.ScanInput{
		TableName:            aws.String(s.config.TableName),
		FilterExpression:     aws.String("attribute_exists(" + attrDeletedAt + ")"),
		ProjectionExpression: aws.String(attrPK + ", " + attrSK),
	}

	purged := 0
	paginator := dynamodb.NewScanPaginator(s.client, input)
	for paginator.HasMorePages() {
		page, err := paginator.NextPage(ctx)
		if err != nil {
			return purged, err
		}
		for _, item := range page.Items {
			pk, okPK := item[attrPK].(*types.AttributeValueMemberS)
			sk, okSK := item[attrSK].(*types.AttributeValueMemberS)
			if !okPK || !okSK {
				continue
			}
			if _, err := s.client.DeleteItem(ctx, &dynamodb.DeleteItemInput{
				TableName: aws.String(s.config.TableName),
				Key:       documentKey(pk.Value, sk.Value),
			}); err != nil {
				return purged, err
			}
			purged++
			s.logger.Debug("purged soft-deleted document", "id", sk.Value)
		}
	}

	s.metrics.ObservePurged(purged)
	return purged, nil
}
