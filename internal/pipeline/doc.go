// Package pipeline implements the ingestion, repair, and sync state
// machines that turn audio recordings and text notes into markdown
// knowledge documents.
//
// Ingestion runs extract, classify, enrich, optional analysis, persist,
// and sync in order. Enrichment and analysis are best-effort: when either
// fails the document is still persisted, marked incomplete, and queued in
// the retry root where the repair machine finishes it on a later pass.
// Durability lives entirely in the filesystem; a crash loses at most the
// in-memory queue, which the startup sweep and the periodic scanner
// rebuild from directory contents.
package pipeline
