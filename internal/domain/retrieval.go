package domain

// RetrievalResult is the output of one retrieval tool invocation:
// a serialized text block for the model plus the structured ranked
// artifact for callers.
type RetrievalResult struct {
	Serialized string
	Chunks     []RetrievedChunk
}

// Empty reports whether the retrieval produced no chunks.
func (r RetrievalResult) Empty() bool { return len(r.Chunks) == 0 }
