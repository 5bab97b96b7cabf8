package corvid

import (
	"github.com/corvid-ai/corvid/internal/domain"
	orchestratoruc "github.com/corvid-ai/corvid/internal/usecase/orchestrator"
)

// Document is raw text to index under a corpus.
type Document struct {
	ID     string // stable identity; re-indexing the same ID overwrites
	Corpus string // retrieval filter tag
	Source string // human-readable origin (file name, URL)
	Text   string
}

// Answer is the outcome of one conversation turn.
type Answer struct {
	ThreadID string
	Text     string
	Sources  []Source
}

// Source is one retrieved passage backing the answer.
type Source struct {
	Source string
	Corpus string
	Index  int
	Score  float64
	Text   string
}

// Report summarizes one indexing run.
type Report struct {
	Documents     int
	Chunks        int
	Embedded      int
	CacheHits     int
	RateLimitHits int
	Failures      []Failure
}

// Failure records one document that could not be indexed.
type Failure struct {
	Source string
	Reason string
}

func answerFrom(a orchestratoruc.Answer) Answer {
	out := Answer{ThreadID: a.ThreadID, Text: a.Text}
	for _, c := range a.Chunks {
		out.Sources = append(out.Sources, Source{
			Source: c.Chunk.Source,
			Corpus: c.Chunk.Corpus,
			Index:  c.Chunk.Index,
			Score:  c.Score,
			Text:   c.Chunk.Text,
		})
	}
	return out
}

func reportFrom(r domain.IndexReport) Report {
	out := Report{
		Documents:     r.Documents,
		Chunks:        r.Chunks,
		Embedded:      r.Embedded,
		CacheHits:     r.CacheHits,
		RateLimitHits: r.RateLimitHits,
	}
	for _, f := range r.Failures {
		out.Failures = append(out.Failures, Failure{Source: f.Source, Reason: f.Reason})
	}
	return out
}
