// Package store persists versioned market-data documents in DynamoDB.
//
// Each document is keyed by (partition key, document id), where the partition
// key is the normalized asset id and the document id encodes the full
// identity including the allocated version. A business key (identity minus
// version) names a logical data point; versions are separate immutable items.
//
// # Concurrency control
//
// Version allocation is advisory: the allocator reads the highest existing
// version for the business key and proposes latest+1. Real exclusion comes
// from the conditional create rejecting an id that already exists. On a
// conflict the whole allocate-and-write cycle retries with linear backoff up
// to a bounded attempt count; exhaustion reports a conflict outcome rather
// than retrying indefinitely. Two racing writers may propose the same
// version; exactly one wins the conditional create.
//
// # Soft deletion
//
// A soft-deleted document keeps its item (and its version in the allocation
// history) but carries a deleted_at attribute. Reads filter soft-deleted
// documents out unless a query explicitly includes them; PurgeSoftDeleted
// physically removes them.
//
// # Results
//
// Every write operation returns a [WriteResult] with a discriminated
// [Outcome]. Reads return nil on a miss, never an error, except the explicit
// GetByIDOrErr variant which returns [ErrNotFound].
//
// # Failure classification
//
// Store call failures are classified with [Classify]:
//
//   - [KindConflict] - conditional create lost the race (retried internally)
//   - [KindThrottled], [KindUnavailable] - transient, retryable by the caller
//   - [KindForbidden], [KindPayloadTooLarge] - non-retryable
//   - [KindNotFound] - mapped to nil/false, never propagated as an error
package store
