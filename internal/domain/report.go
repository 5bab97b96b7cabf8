package domain

import "fmt"

// IndexReport summarizes one indexing run. Per-source failures are
// recorded instead of aborting the batch.
type IndexReport struct {
	Documents     int
	Chunks        int
	Embedded      int
	CacheHits     int
	RateLimitHits int
	Failures      []SourceFailure
}

// SourceFailure records one document that could not be indexed.
type SourceFailure struct {
	Source string
	Reason string
}

// AddFailure appends a per-source failure.
func (r *IndexReport) AddFailure(source string, err error) {
	r.Failures = append(r.Failures, SourceFailure{Source: source, Reason: err.Error()})
}

// Indexed reports whether the run inserted anything.
func (r IndexReport) Indexed() bool { return r.Embedded > 0 || r.CacheHits > 0 }

// String renders a one-line summary.
func (r IndexReport) String() string {
	return fmt.Sprintf("documents=%d chunks=%d embedded=%d cache_hits=%d failures=%d",
		r.Documents, r.Chunks, r.Embedded, r.CacheHits, len(r.Failures))
}
