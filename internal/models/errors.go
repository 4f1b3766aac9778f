package models

import "fmt"

// RejectedRow records a malformed or unsupported input row. It is a plain
// value, not an error: rejects are counted by the ingestion pipeline and
// never abort a run.
type RejectedRow struct {
	Reason string `json:"reason"`
	Raw    string `json:"raw"`
}

// QueryError marks invalid search parameters. Callers receive it instead
// of partial results so that "bad request" stays distinguishable from
// "nothing matched".
type QueryError struct {
	Reason string
}

func (e *QueryError) Error() string {
	return "invalid query: " + e.Reason
}

// TimeoutError marks a store operation that exceeded its deadline. It is
// surfaced distinctly from IngestionError and QueryError so callers can
// tell "try again" from "fix your input".
type TimeoutError struct {
	Op  string
	Err error
}

func (e *TimeoutError) Error() string {
	return fmt.Sprintf("%s: deadline exceeded: %v", e.Op, e.Err)
}

func (e *TimeoutError) Unwrap() error { return e.Err }

// IngestionError marks a storage-layer failure that aborted an ingestion
// run. Re-running the ingest after one is always safe: upserts are
// idempotent.
type IngestionError struct {
	Op  string
	Err error
}

func (e *IngestionError) Error() string {
	return fmt.Sprintf("ingestion failed at %s: %v", e.Op, e.Err)
}

func (e *IngestionError) Unwrap() error { return e.Err }
