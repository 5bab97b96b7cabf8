package vector

import (
	"encoding/binary"
	"math"
	"strconv"

	"github.com/corvid-ai/corvid/internal/db"
	"github.com/corvid-ai/corvid/internal/domain"
)

// buildChunkFields converts a VectorRecord into a flat map[string]string for HSET.
func buildChunkFields(rec domain.VectorRecord) map[string]string {
	return map[string]string{
		"source":      rec.Chunk.Source,
		"chunk_index": strconv.Itoa(rec.Chunk.Index),
		"corpus":      rec.Chunk.Corpus,
		"text":        rec.Chunk.Text,
		"vector":      vectorToBytes(rec.Embedding),
	}
}

// parseChunkEntry converts a search hit back into a ranked chunk.
func parseChunkEntry(e db.SearchEntry) domain.RetrievedChunk {
	idx, _ := strconv.Atoi(e.Fields["chunk_index"])
	return domain.RetrievedChunk{
		Chunk: domain.Chunk{
			Source: e.Fields["source"],
			Index:  idx,
			Corpus: e.Fields["corpus"],
			Text:   e.Fields["text"],
		},
		Score: e.Score,
	}
}

// vectorToBytes serializes []float32 to a binary string (4 bytes per float, little-endian).
func vectorToBytes(v []float32) string {
	buf := make([]byte, len(v)*4)
	for i, f := range v {
		binary.LittleEndian.PutUint32(buf[i*4:], math.Float32bits(f))
	}
	return string(buf)
}
