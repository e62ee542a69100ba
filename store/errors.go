package store

import (
	"errors"
	"net/http"

	"github.com/aws/aws-sdk-go-v2/service/dynamodb/types"
	"github.com/aws/smithy-go"
	smithyhttp "github.com/aws/smithy-go/transport/http"
)

var (
	// ErrNotFound is returned by GetByIDOrErr when the document doesn't
	// exist or is soft-deleted.
	ErrNotFound = errors.New("docvault: document not found")

	// ErrAlreadyExists is returned when a conditional create collides with
	// an existing document id.
	ErrAlreadyExists = errors.New("docvault: document already exists")

	// ErrVersionConflict is returned when the allocate-and-write cycle
	// exhausts its retry budget without winning a conditional create.
	ErrVersionConflict = errors.New("docvault: version conflict after retries")

	// ErrPartitionUnresolved is returned when neither the id index nor the
	// partition-key probes could locate a document's partition.
	ErrPartitionUnresolved = errors.New("docvault: could not resolve partition key")

	// ErrSoftDeleteUnsupported is returned when a soft delete is requested
	// for a type that does not support it.
	ErrSoftDeleteUnsupported = errors.New("docvault: type does not support soft delete")

	// ErrUnidentifiable is returned when a document is missing required
	// identity fields and no id can be derived.
	ErrUnidentifiable = errors.New("docvault: document has incomplete identity")
)

// FailureKind classifies a store call failure.
type FailureKind int

const (
	// KindUnknown is an unclassified failure.
	KindUnknown FailureKind = iota

	// KindNotFound is a read or delete miss.
	KindNotFound

	// KindConflict is a conditional-write rejection.
	KindConflict

	// KindThrottled is a rate-limit rejection; transient, caller may retry.
	KindThrottled

	// KindUnavailable is a service outage; transient, caller may retry.
	KindUnavailable

	// KindForbidden is a permission failure; non-retryable.
	KindForbidden

	// KindPayloadTooLarge is an item size rejection; non-retryable.
	KindPayloadTooLarge
)

// String returns the kind name.
func (k FailureKind) String() string {
	switch k {
	case KindNotFound:
		return "not_found"
	case KindConflict:
		return "conflict"
	case KindThrottled:
		return "throttled"
	case KindUnavailable:
		return "unavailable"
	case KindForbidden:
		return "forbidden"
	case KindPayloadTooLarge:
		return "payload_too_large"
	default:
		return "unknown"
	}
}

// Transient reports whether the caller may retry the failed call.
func (k FailureKind) Transient() bool {
	return k == KindThrottled || k == KindUnavailable
}

// Classify maps a DynamoDB call error onto the failure taxonomy.
func Classify(err error) FailureKind {
	if err == nil {
		return KindUnknown
	}

	var condErr *types.ConditionalCheckFailedException
	if errors.As(err, &condErr) {
		return KindConflict
	}
	var txErr *types.TransactionCanceledException
	if errors.As(err, &txErr) {
		for _, reason := range txErr.CancellationReasons {
			if reason.Code != nil && *reason.Code == "ConditionalCheckFailed" {
				return KindConflict
			}
		}
	}
	var notFoundErr *types.ResourceNotFoundException
	if errors.As(err, &notFoundErr) {
		return KindNotFound
	}
	var throughputErr *types.ProvisionedThroughputExceededException
	if errors.As(err, &throughputErr) {
		return KindThrottled
	}
	var limitErr *types.RequestLimitExceeded
	if errors.As(err, &limitErr) {
		return KindThrottled
	}
	var collectionErr *types.ItemCollectionSizeLimitExceededException
	if errors.As(err, &collectionErr) {
		return KindPayloadTooLarge
	}

	var apiErr smithy.APIError
	if errors.As(err, &apiErr) {
		switch apiErr.ErrorCode() {
		case "AccessDeniedException", "UnrecognizedClientException":
			return KindForbidden
		case "ThrottlingException", "TooManyRequestsException":
			return KindThrottled
		case "ServiceUnavailable", "ServiceUnavailableException", "InternalServerError":
			return KindUnavailable
		case "ValidationException":
			// DynamoDB reports oversized items as a validation failure.
			return KindPayloadTooLarge
		}
	}

	var respErr *smithyhttp.ResponseError
	if errors.As(err, &respErr) {
		switch respErr.HTTPStatusCode() {
		case http.StatusForbidden:
			return KindForbidden
		case http.StatusRequestEntityTooLarge:
			return KindPayloadTooLarge
		case http.StatusTooManyRequests:
			return KindThrottled
		case http.StatusServiceUnavailable, http.StatusInternalServerError:
			return KindUnavailable
		}
	}

	return KindUnknown
}
