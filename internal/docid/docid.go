// Package docid derives deterministic document identities and partition keys
// for versioned market-data documents.
package docid

import (
	"strconv"
	"strings"
	"time"
)

// Sep separates identity components within a document id.
const Sep = "__"

// Fields holds the identity components of a market-data document.
// All string fields are case-normalized during id computation; Version
// participates only when non-nil.
type Fields struct {
	DataType      string
	AssetClass    string
	AssetID       string
	Region        string
	DocumentType  string
	AsOfDate      time.Time
	SchemaVersion string
	Version       *int
}

// Compute derives the document id:
//
//	{dataType}__{assetClass}__{assetId}__{region}__{asOfDate:yyyy-MM-dd}__{documentType}__{schemaVersion}[__{version}]
//
// fully lower-cased except the version integer. Returns "" if any required
// field is empty, marking the document as unidentifiable.
func Compute(f Fields) string {
	bk := BusinessKeyID(f)
	if bk == "" {
		return ""
	}
	if f.Version == nil {
		return bk
	}
	return bk + Sep + strconv.Itoa(*f.Version)
}

// BusinessKeyID derives the id without the version component. It identifies a
// logical data point across all its versions.
func BusinessKeyID(f Fields) string {
	parts := []string{
		f.DataType,
		f.AssetClass,
		f.AssetID,
		f.Region,
		formatDate(f.AsOfDate),
		f.DocumentType,
		f.SchemaVersion,
	}
	for _, p := range parts {
		if p == "" {
			return ""
		}
	}
	return strings.ToLower(strings.Join(parts, Sep))
}

// PartitionKey derives the store partition key from an asset id.
func PartitionKey(assetID string) string {
	return strings.ToLower(assetID)
}

// Candidates returns partition-key guesses for an id whose entity is not
// available, in the fixed probe order: substring before the first "__", the
// whole id, then the substring before the first "_" or ".".
func Candidates(id string) []string {
	if id == "" {
		return nil
	}
	var out []string
	seen := make(map[string]bool)
	add := func(c string) {
		if c != "" && !seen[c] {
			seen[c] = true
			out = append(out, c)
		}
	}

	if i := strings.Index(id, Sep); i > 0 {
		add(id[:i])
	}
	add(id)
	if i := strings.IndexAny(id, "_."); i > 0 {
		add(id[:i])
	}
	return out
}

// formatDate renders the as-of date as yyyy-MM-dd, or "" for the zero time.
func formatDate(t time.Time) string {
	if t.IsZero() {
		return ""
	}
	return t.Format("2006-01-02")
}
