package store

import (
	"context"
	"fmt"
	"strings"
	"sync"

	"github.com/meridianquant/docvault/marketdata"
)

// BulkFailure is one failed item of a bulk insert.
type BulkFailure struct {
	// Index is the item's position in the input slice.
	Index int

	// BusinessKeyID identifies the failed item.
	BusinessKeyID string

	Outcome Outcome
	Err     error
}

// BulkError aggregates every per-item failure of a bulk insert. A partial
// failure is expected and collected, never treated as total failure.
type BulkError struct {
	Failures []BulkFailure
}

func (e *BulkError) Error() string {
	var sb strings.Builder
	fmt.Fprintf(&sb, "bulk insert: %d item(s) failed:", len(e.Failures))
	for _, f := range e.Failures {
		fmt.Fprintf(&sb, "\n  [%d] %s: %s", f.Index, f.BusinessKeyID, f.Outcome)
		if f.Err != nil {
			fmt.Fprintf(&sb, ": %v", f.Err)
		}
	}
	return sb.String()
}

// BulkResult reports a bulk insert.
type BulkResult struct {
	// Succeeded is the number of items created.
	Succeeded int

	// Results holds the per-item write results, index-aligned with the
	// input.
	Results []WriteResult

	// PublishErr is set when the batched "created" events could not all be
	// published. The writes stay committed.
	PublishErr error
}

// BulkInsert creates the documents in parallel, each through its own
// allocate-and-write cycle. It does not stop at the first failure: every
// failed item is collected into the returned *BulkError while successes are
// counted and their "created" events published as a batch.
func (s *Store) BulkInsert(ctx context.Context, docs []marketdata.Document) (BulkResult, error) {
	result := BulkResult{Results: make([]WriteResult, len(docs))}
	if len(docs) == 0 {
		return result, nil
	}

	workers := s.config.BulkConcurrency
	if workers > len(docs) {
		workers = len(docs)
	}

	jobs := make(chan int)
	var wg sync.WaitGroup
	for w := 0; w < workers; w++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			for i := range jobs {
				result.Results[i] = s.createDocument(ctx, docs[i])
			}
		}()
	}
	for i := range docs {
		jobs <- i
	}
	close(jobs)
	wg.Wait()

	var created []marketdata.Document
	var failures []BulkFailure
	for i, res := range result.Results {
		s.metrics.ObserveWrite(docs[i].EntityType(), OpCreated, res.Outcome.String())
		if res.Ok() {
			result.Succeeded++
			created = append(created, docs[i])
			continue
		}
		failures = append(failures, BulkFailure{
			Index:         i,
			BusinessKeyID: docs[i].DocumentCore().BusinessKeyID(),
			Outcome:       res.Outcome,
			Err:           res.Err,
		})
	}
	s.metrics.ObserveBulkFailures(len(failures))

	if len(created) > 0 && s.publisher != nil {
		if err := s.publisher.PublishBatch(ctx, OpCreated, created); err != nil {
			result.PublishErr = err
			s.metrics.ObservePublishFailure("bulk-" + OpCreated)
			s.logger.Error("bulk change event publish failed",
				"created", len(created),
				"error", err,
			)
		}
	}

	if len(failures) > 0 {
		return result, &BulkError{Failures: failures}
	}
	return result, nil
}
