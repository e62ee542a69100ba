package store_test

import (
	"errors"
	"fmt"
	"testing"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/service/dynamodb/types"
	"github.com/aws/smithy-go"

	"github.com/meridianquant/docvault/store"
)

func TestClassify(t *testing.T) {
	tests := []struct {
		name string
		err  error
		want store.FailureKind
	}{
		{
			name: "nil",
			err:  nil,
			want: store.KindUnknown,
		},
		{
			name: "conditional check failed",
			err:  &types.ConditionalCheckFailedException{},
			want: store.KindConflict,
		},
		{
			name: "wrapped conditional check failed",
			err:  fmt.Errorf("put item: %w", &types.ConditionalCheckFailedException{}),
			want: store.KindConflict,
		},
		{
			name: "transaction canceled on condition",
			err: &types.TransactionCanceledException{
				CancellationReasons: []types.CancellationReason{
					{Code: aws.String("None")},
					{Code: aws.String("ConditionalCheckFailed")},
				},
			},
			want: store.KindConflict,
		},
		{
			name: "resource not found",
			err:  &types.ResourceNotFoundException{},
			want: store.KindNotFound,
		},
		{
			name: "throughput exceeded",
			err:  &types.ProvisionedThroughputExceededException{},
			want: store.KindThrottled,
		},
		{
			name: "request limit",
			err:  &types.RequestLimitExceeded{},
			want: store.KindThrottled,
		},
		{
			name: "item collection too large",
			err:  &types.ItemCollectionSizeLimitExceededException{},
			want: store.KindPayloadTooLarge,
		},
		{
			name: "access denied api error",
			err:  &smithy.GenericAPIError{Code: "AccessDeniedException"},
			want: store.KindForbidden,
		},
		{
			name: "throttling api error",
			err:  &smithy.GenericAPIError{Code: "ThrottlingException"},
			want: store.KindThrottled,
		},
		{
			name: "service unavailable api error",
			err:  &smithy.GenericAPIError{Code: "ServiceUnavailable"},
			want: store.KindUnavailable,
		},
		{
			name: "validation api error",
			err:  &smithy.GenericAPIError{Code: "ValidationException"},
			want: store.KindPayloadTooLarge,
		},
		{
			name: "plain error",
			err:  errors.New("boom"),
			want: store.KindUnknown,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := store.Classify(tt.err); got != tt.want {
				t.Errorf("Classify(%v) = %v, want %v", tt.err, got, tt.want)
			}
		})
	}
}

func TestFailureKindTransient(t *testing.T) {
	transient := map[store.FailureKind]bool{
		store.KindUnknown:         false,
		store.KindNotFound:        false,
		store.KindConflict:        false,
		store.KindThrottled:       true,
		store.KindUnavailable:     true,
		store.KindForbidden:       false,
		store.KindPayloadTooLarge: false,
	}
	for kind, want := range transient {
		if kind.Transient() != want {
			t.Errorf("%v.Transient() = %v, want %v", kind, kind.Transient(), want)
		}
	}
}
