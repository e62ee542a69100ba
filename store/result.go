package store

import "fmt"

// Outcome discriminates the result of a write operation. All write paths
// report through the same taxonomy; callers never need to distinguish result
// objects from raised errors.
type Outcome int

const (
	// OutcomeSuccess means the write committed.
	OutcomeSuccess Outcome = iota

	// OutcomeInvalid means domain validation rejected the document before
	// persistence. Violations lists every failed rule.
	OutcomeInvalid

	// OutcomeConflict means the conditional create lost the id race and the
	// retry budget is exhausted, or an explicit duplicate was detected.
	OutcomeConflict

	// OutcomeTransient means the store throttled or was unavailable. The
	// write was not retried internally; the caller may retry.
	OutcomeTransient

	// OutcomeFatal means a non-retryable failure (permissions, payload
	// size, unexpected store error).
	OutcomeFatal

	// OutcomeCanceled means the context was canceled mid-operation. It is
	// distinct from conflict exhaustion.
	OutcomeCanceled
)

// String returns the outcome name.
func (o Outcome) String() string {
	switch o {
	case OutcomeSuccess:
		return "success"
	case OutcomeInvalid:
		return "invalid"
	case OutcomeConflict:
		return "conflict"
	case OutcomeTransient:
		return "transient"
	case OutcomeFatal:
		return "fatal"
	case OutcomeCanceled:
		return "canceled"
	default:
		return "unknown"
	}
}

// Violation is a single failed domain-validation rule.
type Violation struct {
	Field   string `json:"field"`
	Code    string `json:"code"`
	Message string `json:"message"`
}

func (v Violation) String() string {
	return fmt.Sprintf("%s [%s]: %s", v.Field, v.Code, v.Message)
}

// WriteResult is the uniform result of every write operation.
type WriteResult struct {
	Outcome Outcome

	// ID and Version are set on success (and on soft deletes, where they
	// identify the rewritten document).
	ID      string
	Version int

	// Deleted reports, for delete operations, whether a document was
	// actually removed or marked. A hard-delete miss is Deleted=false with
	// OutcomeSuccess, never an error.
	Deleted bool

	// Violations lists every failed rule when Outcome is OutcomeInvalid.
	Violations []Violation

	// Err is the underlying cause for non-success outcomes, or a
	// *notify.PublishError when the write committed but its event could
	// not be published. The write is never rolled back in that case.
	Err error
}

// Ok reports whether the write committed.
func (r WriteResult) Ok() bool { return r.Outcome == OutcomeSuccess }

// PublishFailed reports whether the write committed but the change event was
// not published.
func (r WriteResult) PublishFailed() bool {
	return r.Outcome == OutcomeSuccess && r.Err != nil
}

func successResult(id string, version int) WriteResult {
	return WriteResult{Outcome: OutcomeSuccess, ID: id, Version: version}
}

func invalidResult(violations []Violation) WriteResult {
	return WriteResult{Outcome: OutcomeInvalid, Violations: violations}
}

func conflictResult(id string, err error) WriteResult {
	return WriteResult{Outcome: OutcomeConflict, ID: id, Err: err}
}

func canceledResult(err error) WriteResult {
	return WriteResult{Outcome: OutcomeCanceled, Err: err}
}

// failureResult classifies err into a transient or fatal outcome.
func failureResult(err error) WriteResult {
	kind := Classify(err)
	switch {
	case kind.Transient():
		return WriteResult{Outcome: OutcomeTransient, Err: err}
	case kind == KindConflict:
		return WriteResult{Outcome: OutcomeConflict, Err: err}
	default:
		return WriteResult{Outcome: OutcomeFatal, Err: err}
	}
}
