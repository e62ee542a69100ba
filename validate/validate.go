// Package validate enforces domain business rules on the write path.
//
// A ValidatingRepository wraps the store's write surface: every write runs
// the document type's registered validator first and reports an invalid
// outcome listing every violated rule, not just the first. Reads bypass
// validation entirely and stay on the store itself.
package validate

import (
	"context"
	"strings"
	"sync"

	"github.com/meridianquant/docvault/marketdata"
	"github.com/meridianquant/docvault/store"
)

// DocumentValidator checks one document type's business rules, returning
// every violation found.
type DocumentValidator interface {
	Validate(doc marketdata.Document) []store.Violation
}

// ValidatorFunc adapts a function to DocumentValidator.
type ValidatorFunc func(doc marketdata.Document) []store.Violation

// Validate implements DocumentValidator.
func (f ValidatorFunc) Validate(doc marketdata.Document) []store.Violation {
	return f(doc)
}

type rulesKey struct {
	dataType   string
	assetClass string
}

// Rules maps (dataType, assetClass) to a document validator. Registration
// happens at configuration time; lookups are safe for concurrent use.
type Rules struct {
	mu         sync.RWMutex
	validators map[rulesKey]DocumentValidator
}

// NewRules creates an empty rule set.
func NewRules() *Rules {
	return &Rules{validators: make(map[rulesKey]DocumentValidator)}
}

// Register binds a validator to a (dataType, assetClass) pair.
func (r *Rules) Register(dataType, assetClass string, v DocumentValidator) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.validators[rulesKey{strings.ToLower(dataType), strings.ToLower(assetClass)}] = v
}

// For returns the validator for a document, or nil when none is registered.
// Unregistered types pass validation; rules are opt-in per type.
func (r *Rules) For(doc marketdata.Document) DocumentValidator {
	c := doc.DocumentCore()
	r.mu.RLock()
	defer r.mu.RUnlock()
	return r.validators[rulesKey{strings.ToLower(c.DataType), strings.ToLower(c.AssetClass)}]
}

// Repository is the write surface being decorated. *store.Store satisfies it.
type Repository interface {
	Add(ctx context.Context, doc marketdata.Document) store.WriteResult
	Update(ctx context.Context, doc marketdata.Document) store.WriteResult
	Delete(ctx context.Context, id string, soft bool) store.WriteResult
	BulkInsert(ctx context.Context, docs []marketdata.Document) (store.BulkResult, error)
}

var _ Repository = (*store.Store)(nil)

// ValidatingRepository runs domain validation before delegating writes.
type ValidatingRepository struct {
	next  Repository
	rules *Rules
}

// Wrap decorates a repository with the rule set.
func Wrap(next Repository, rules *Rules) *ValidatingRepository {
	return &ValidatingRepository{next: next, rules: rules}
}

// Add validates then delegates.
func (v *ValidatingRepository) Add(ctx context.Context, doc marketdata.Document) store.WriteResult {
	if violations := v.check(doc); len(violations) > 0 {
		return store.WriteResult{Outcome: store.OutcomeInvalid, Violations: violations}
	}
	return v.next.Add(ctx, doc)
}

// Update validates then delegates.
func (v *ValidatingRepository) Update(ctx context.Context, doc marketdata.Document) store.WriteResult {
	if violations := v.check(doc); len(violations) > 0 {
		return store.WriteResult{Outcome: store.OutcomeInvalid, Violations: violations}
	}
	return v.next.Update(ctx, doc)
}

// Delete passes through; no document payload exists to validate.
func (v *ValidatingRepository) Delete(ctx context.Context, id string, soft bool) store.WriteResult {
	return v.next.Delete(ctx, id, soft)
}

// BulkInsert validates every item first. Invalid items are reported in the
// aggregated error alongside any store-level failures; the valid subset is
// still inserted.
func (v *ValidatingRepository) BulkInsert(ctx context.Context, docs []marketdata.Document) (store.BulkResult, error) {
	result := store.BulkResult{Results: make([]store.WriteResult, len(docs))}

	var valid []marketdata.Document
	validIndex := make([]int, 0, len(docs))
	var failures []store.BulkFailure
	for i, doc := range docs {
		violations := v.check(doc)
		if len(violations) == 0 {
			valid = append(valid, doc)
			validIndex = append(validIndex, i)
			continue
		}
		result.Results[i] = store.WriteResult{Outcome: store.OutcomeInvalid, Violations: violations}
		failures = append(failures, store.BulkFailure{
			Index:         i,
			BusinessKeyID: doc.DocumentCore().BusinessKeyID(),
			Outcome:       store.OutcomeInvalid,
		})
	}

	inner, err := v.next.BulkInsert(ctx, valid)
	for j, res := range inner.Results {
		result.Results[validIndex[j]] = res
	}
	result.Succeeded = inner.Succeeded
	result.PublishErr = inner.PublishErr

	var bulkErr *store.BulkError
	if err != nil {
		if be, ok := err.(*store.BulkError); ok {
			for _, f := range be.Failures {
				f.Index = validIndex[f.Index]
				failures = append(failures, f)
			}
		} else {
			return result, err
		}
	}
	if len(failures) > 0 {
		bulkErr = &store.BulkError{Failures: failures}
		return result, bulkErr
	}
	return result, nil
}

func (v *ValidatingRepository) check(doc marketdata.Document) []store.Violation {
	if v.rules == nil {
		return nil
	}
	validator := v.rules.For(doc)
	if validator == nil {
		return nil
	}
	return validator.Validate(doc)
}
