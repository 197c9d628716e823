package models

import "fmt"

// FetchKind classifies why a page fetch failed.
type FetchKind string

const (
	FetchTimeout       FetchKind = "timeout"
	FetchRenderFailure FetchKind = "render_failure"
	FetchBlocked       FetchKind = "blocked"
)

// FetchError means a source's listing page could not be rendered. It aborts
// the run for that source only.
type FetchError struct {
	Source string
	Kind   FetchKind
	Err    error
}

func (e *FetchError) Error() string {
	return fmt.Sprintf("fetch %s (%s): %v", e.Source, e.Kind, e.Err)
}

func (e *FetchError) Unwrap() error { return e.Err }

// ValidationError marks a record rejected before merge, typically for a
// missing natural key.
type ValidationError struct {
	Reason string
}

func (e *ValidationError) Error() string {
	return "validation: " + e.Reason
}

// PersistenceError means the store was unreachable or a write failed. The
// run aborts and no export is written.
type PersistenceError struct {
	Op  string
	Err error
}

func (e *PersistenceError) Error() string {
	return fmt.Sprintf("persistence: %s: %v", e.Op, e.Err)
}

func (e *PersistenceError) Unwrap() error { return e.Err }

// SyncError means reconciling the store with the prior export failed. The
// prior export file is left untouched.
type SyncError struct {
	Op  string
	Err error
}

func (e *SyncError) Error() string {
	return fmt.Sprintf("sync: %s: %v", e.Op, e.Err)
}

func (e *SyncError) Unwrap() error { return e.Err }
