package domain

import (
	"strings"
	"testing"
)

func TestNewSplitter_Validation(t *testing.T) {
	tests := []struct {
		name      string
		size      int
		overlap   int
		wantError bool
	}{
		{"valid", 1024, 200, false},
		{"zero overlap", 10, 0, false},
		{"zero size", 0, 0, true},
		{"negative overlap", 10, -1, true},
		{"overlap equals size", 10, 10, true},
		{"overlap exceeds size", 10, 11, true},
	}
	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			_, err := NewSplitter(tc.size, tc.overlap)
			if (err != nil) != tc.wantError {
				t.Errorf("NewSplitter(%d, %d) error = %v, wantError %v", tc.size, tc.overlap, err, tc.wantError)
			}
		})
	}
}

func TestSplit_Overlap(t *testing.T) {
	s, err := NewSplitter(10, 4)
	if err != nil {
		t.Fatalf("NewSplitter failed: %v", err)
	}

	doc := SourceDocument{ID: "doc1", Corpus: "papers", Text: "abcdefghijklmnopqrstuvwxyz"}
	chunks := s.Split(doc)

	// 26 chars, size 10, step 6: [0:10] [6:16] [12:22] [18:26]
	if len(chunks) != 4 {
		t.Fatalf("expected 4 chunks, got %d", len(chunks))
	}
	for i := 1; i < len(chunks); i++ {
		prev := chunks[i-1].Text
		tail := prev[len(prev)-4:]
		if !strings.HasPrefix(chunks[i].Text, tail) {
			t.Errorf("chunk %d does not start with previous tail %q: %q", i, tail, chunks[i].Text)
		}
	}
	last := chunks[len(chunks)-1]
	if last.Text != "stuvwxyz" {
		t.Errorf("unexpected final chunk: %q", last.Text)
	}
}

func TestSplit_ChunkIdentity(t *testing.T) {
	s, _ := NewSplitter(10, 0)
	doc := SourceDocument{ID: "doc1", Corpus: "papers", Text: strings.Repeat("x", 25)}

	chunks := s.Split(doc)
	if len(chunks) != 3 {
		t.Fatalf("expected 3 chunks, got %d", len(chunks))
	}
	for i, c := range chunks {
		if c.Source != "doc1" || c.Corpus != "papers" || c.Index != i {
			t.Errorf("chunk %d identity = %+v", i, c)
		}
	}
	if chunks[2].Key() != "doc1:2" {
		t.Errorf("unexpected key: %s", chunks[2].Key())
	}
}

func TestSplit_Deterministic(t *testing.T) {
	s, _ := NewSplitter(7, 2)
	doc := SourceDocument{ID: "doc1", Text: "the quick brown fox jumps over the lazy dog"}

	first := s.Split(doc)
	second := s.Split(doc)
	if len(first) != len(second) {
		t.Fatalf("chunk counts differ: %d vs %d", len(first), len(second))
	}
	for i := range first {
		if first[i] != second[i] {
			t.Errorf("chunk %d differs: %+v vs %+v", i, first[i], second[i])
		}
	}
}

func TestSplit_ShortText(t *testing.T) {
	s, _ := NewSplitter(1024, 200)
	chunks := s.Split(SourceDocument{ID: "doc1", Text: "short"})
	if len(chunks) != 1 || chunks[0].Text != "short" {
		t.Fatalf("unexpected chunks: %+v", chunks)
	}
}

func TestSplit_Empty(t *testing.T) {
	s, _ := NewSplitter(10, 2)
	if chunks := s.Split(SourceDocument{ID: "doc1"}); chunks != nil {
		t.Errorf("expected nil, got %+v", chunks)
	}
}

func TestSplit_MultibyteRunes(t *testing.T) {
	s, _ := NewSplitter(4, 1)
	chunks := s.Split(SourceDocument{ID: "doc1", Text: "日本語のテキスト"})

	// 8 runes, size 4, step 3: [0:4] [3:7] [6:8]
	if len(chunks) != 3 {
		t.Fatalf("expected 3 chunks, got %d", len(chunks))
	}
	if chunks[0].Text != "日本語の" {
		t.Errorf("unexpected first chunk: %q", chunks[0].Text)
	}
	if chunks[2].Text != "スト" {
		t.Errorf("unexpected final chunk: %q", chunks[2].Text)
	}
}
