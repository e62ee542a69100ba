package store

import "time"

// Config holds configuration for the Store.
type Config struct {
	// TableName is the documents table.
	// Default: "marketdata_documents"
	TableName string

	// VersionIndex is the GSI keyed (bk, version) used for latest-version
	// lookups and next-version allocation. The sort key is the numeric
	// version attribute; id-string ordering would break at version 10.
	// Default: "bk-version-index"
	VersionIndex string

	// TypeDateIndex is the GSI keyed (type_key, as_of_date) used for range
	// queries. Default: "type-date-index"
	TypeDateIndex string

	// TypeCreatedIndex is the GSI keyed (entity_type, create_ts) used for
	// deterministic paging. Default: "type-created-index"
	TypeCreatedIndex string

	// IDIndex is the GSI keyed by document id, the authoritative id to
	// partition-key side index. Heuristic probing is the fallback when
	// this index misses. Default: "id-index"
	IDIndex string

	// MaxWriteAttempts bounds the allocate-and-write cycle.
	// Default: 3
	MaxWriteAttempts int

	// RetryBaseDelay is multiplied by the attempt number for linear
	// backoff between conflicting writes. Default: 50ms
	RetryBaseDelay time.Duration

	// DefaultRangeWindow bounds range queries when no dates are given.
	// Default: 30 days
	DefaultRangeWindow time.Duration

	// MaxRangeResults caps range query result counts; results beyond the
	// cap set the Truncated flag. Default: 1000
	MaxRangeResults int

	// BulkConcurrency bounds parallel item writes during BulkInsert.
	// Default: 8
	BulkConcurrency int
}

// DefaultConfig returns sensible defaults.
func DefaultConfig() Config {
	cfg := Config{}
	cfg.validate()
	return cfg
}

// validate fills defaults for zero values.
func (c *Config) validate() {
	if c.TableName == "" {
		c.TableName = "marketdata_documents"
	}
	if c.VersionIndex == "" {
		c.VersionIndex = "bk-version-index"
	}
	if c.TypeDateIndex == "" {
		c.TypeDateIndex = "type-date-index"
	}
	if c.TypeCreatedIndex == "" {
		c.TypeCreatedIndex = "type-created-index"
	}
	if c.IDIndex == "" {
		c.IDIndex = "id-index"
	}
	if c.MaxWriteAttempts < 1 {
		c.MaxWriteAttempts = 3
	}
	if c.RetryBaseDelay <= 0 {
		c.RetryBaseDelay = 50 * time.Millisecond
	}
	if c.DefaultRangeWindow <= 0 {
		c.DefaultRangeWindow = 30 * 24 * time.Hour
	}
	if c.MaxRangeResults < 1 {
		c.MaxRangeResults = 1000
	}
	if c.BulkConcurrency < 1 {
		c.BulkConcurrency = 8
	}
}
