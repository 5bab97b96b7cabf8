package domain

import "fmt"

// Splitter cuts document text into fixed-size, overlapping chunks.
// Splitting is deterministic: identical text and parameters always
// produce identical chunks, which keeps chunk identity stable across
// re-indexing runs.
type Splitter struct {
	chunkSize int // characters per chunk
	overlap   int // trailing characters repeated at the start of the next chunk
}

// NewSplitter validates parameters and creates a Splitter.
// Overlap must be strictly less than chunk size.
func NewSplitter(chunkSize, overlap int) (Splitter, error) {
	if chunkSize <= 0 {
		return Splitter{}, fmt.Errorf("chunk size must be positive, got %d", chunkSize)
	}
	if overlap < 0 {
		return Splitter{}, fmt.Errorf("overlap must not be negative, got %d", overlap)
	}
	if overlap >= chunkSize {
		return Splitter{}, fmt.Errorf("overlap %d must be less than chunk size %d", overlap, chunkSize)
	}
	return Splitter{chunkSize: chunkSize, overlap: overlap}, nil
}

// ChunkSize returns the configured chunk size.
func (s Splitter) ChunkSize() int { return s.chunkSize }

// Overlap returns the configured overlap.
func (s Splitter) Overlap() int { return s.overlap }

// Split cuts a document's text into chunks. Consecutive chunks share
// exactly the last overlap characters of the prior chunk as the first
// overlap characters of the next. The final chunk may be shorter than
// the chunk size, never out of range. Empty text yields no chunks.
func (s Splitter) Split(doc SourceDocument) []Chunk {
	runes := []rune(doc.Text)
	if len(runes) == 0 {
		return nil
	}

	step := s.chunkSize - s.overlap
	var chunks []Chunk
	for start := 0; ; start += step {
		end := start + s.chunkSize
		if end > len(runes) {
			end = len(runes)
		}
		chunks = append(chunks, Chunk{
			Source: doc.ID,
			Index:  len(chunks),
			Corpus: doc.Corpus,
			Text:   string(runes[start:end]),
		})
		if end == len(runes) {
			return chunks
		}
	}
}
