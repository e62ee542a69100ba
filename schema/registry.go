// Package schema validates raw ingestion payloads against versioned JSON
// schemas.
//
// The registry maps (dataType, assetClass, schemaVersion) to a validator.
// An unregistered tuple is a distinct condition (ErrValidatorNotFound) from
// a payload failing a registered schema's rules (*PayloadError).
package schema

import (
	"errors"
	"fmt"
	"strings"
	"sync"
)

// ErrValidatorNotFound is returned when no validator is registered for the
// requested (dataType, assetClass, schemaVersion) tuple.
var ErrValidatorNotFound = errors.New("schema: no validator registered")

// Validator checks a raw payload against one schema version. The schema
// content itself is opaque to the rest of the system.
type Validator interface {
	Validate(payload []byte) error
}

// PayloadError reports a payload that failed a registered schema's rules,
// listing every violated rule.
type PayloadError struct {
	DataType      string
	AssetClass    string
	SchemaVersion string
	Violations    []string
}

func (e *PayloadError) Error() string {
	return fmt.Sprintf("schema: payload invalid for %s/%s@%s: %s",
		e.DataType, e.AssetClass, e.SchemaVersion, strings.Join(e.Violations, "; "))
}

type registryKey struct {
	dataType      string
	assetClass    string
	schemaVersion string
}

func keyOf(dataType, assetClass, schemaVersion string) registryKey {
	return registryKey{
		dataType:      strings.ToLower(dataType),
		assetClass:    strings.ToLower(assetClass),
		schemaVersion: strings.ToLower(schemaVersion),
	}
}

// Registry dispatches payload validation by schema tuple. It is safe for
// concurrent use; registration typically happens once at configuration time.
type Registry struct {
	mu         sync.RWMutex
	validators map[registryKey]Validator
}

// NewRegistry creates an empty Registry.
func NewRegistry() *Registry {
	return &Registry{validators: make(map[registryKey]Validator)}
}

// Register binds a validator to a schema tuple, replacing any previous
// binding.
func (r *Registry) Register(dataType, assetClass, schemaVersion string, v Validator) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.validators[keyOf(dataType, assetClass, schemaVersion)] = v
}

// Lookup returns the validator for a tuple, or ErrValidatorNotFound.
func (r *Registry) Lookup(dataType, assetClass, schemaVersion string) (Validator, error) {
	r.mu.RLock()
	v, ok := r.validators[keyOf(dataType, assetClass, schemaVersion)]
	r.mu.RUnlock()
	if !ok {
		return nil, fmt.Errorf("%w: %s/%s@%s", ErrValidatorNotFound, dataType, assetClass, schemaVersion)
	}
	return v, nil
}

// Validate looks up the tuple's validator and runs it against the payload.
func (r *Registry) Validate(dataType, assetClass, schemaVersion string, payload []byte) error {
	v, err := r.Lookup(dataType, assetClass, schemaVersion)
	if err != nil {
		return err
	}
	return v.Validate(payload)
}
