// Package marketdata defines the time-versioned market-data document model.
//
// Every document carries the identity fields (dataType, assetClass, assetId,
// region, documentType, asOfDate, schemaVersion) plus an allocated version.
// A business key (identity minus version) names a logical data point across
// all of its versions; each version is a separate, immutable persisted
// document. Identity strings are derived on demand with [Core.ID]; there is
// no cached id state.
//
// Concrete document types ([FxSpotPrice], [OrdinalPrice], [VolatilitySurface])
// embed [Core] and register a decoder so store reads can reconstruct them from
// raw items without type switches.
package marketdata
