// Package store implements the persistent record tables backing the fetch
// cache. Each resource kind maps to a directory under StoragePath and each
// record to a single JSON file, written with safe semantics (temp file +
// rename). Records carry the last successfully fetched payload plus its
// timestamp; they are never expired or deleted automatically, only an
// explicit ClearAll purges them. Higher layers use the requireFresh flag to
// distinguish "fresh hit" from "stale fallback candidate".
package store
