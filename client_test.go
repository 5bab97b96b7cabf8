package corvid

import (
	"context"
	"errors"
	"testing"

	"github.com/corvid-ai/corvid/internal/domain"
	orchestratoruc "github.com/corvid-ai/corvid/internal/usecase/orchestrator"
)

type stubOrch struct {
	answer orchestratoruc.Answer
	err    error
}

func (s *stubOrch) Ask(_ context.Context, _, _ string) (orchestratoruc.Answer, error) {
	return s.answer, s.err
}

type stubIndexer struct {
	report domain.IndexReport
	got    []domain.SourceDocument
}

func (s *stubIndexer) IndexCorpus(_ context.Context, docs []domain.SourceDocument) (domain.IndexReport, error) {
	s.got = docs
	return s.report, nil
}

func TestClient_Ask(t *testing.T) {
	c := &Client{orch: &stubOrch{answer: orchestratoruc.Answer{
		ThreadID: "t1",
		Text:     "answer",
		Chunks: []domain.RetrievedChunk{
			{Chunk: domain.Chunk{Source: "d1", Corpus: "papers", Index: 3, Text: "passage"}, Score: 0.8},
		},
	}}}

	ans, err := c.Ask(context.Background(), "t1", "question")
	if err != nil {
		t.Fatalf("Ask failed: %v", err)
	}
	if ans.ThreadID != "t1" || ans.Text != "answer" {
		t.Errorf("answer = %+v", ans)
	}
	if len(ans.Sources) != 1 || ans.Sources[0].Corpus != "papers" || ans.Sources[0].Index != 3 {
		t.Errorf("sources = %+v", ans.Sources)
	}
}

func TestClient_Ask_Error(t *testing.T) {
	c := &Client{orch: &stubOrch{err: domain.ErrConversationLocked}}

	_, err := c.Ask(context.Background(), "t1", "question")
	if !errors.Is(err, domain.ErrConversationLocked) {
		t.Fatalf("expected ErrConversationLocked, got %v", err)
	}
}

func TestClient_IndexDocuments(t *testing.T) {
	idx := &stubIndexer{report: domain.IndexReport{Documents: 1, Chunks: 2, Embedded: 2}}
	c := &Client{indexer: idx}

	report, err := c.IndexDocuments(context.Background(), []Document{
		{ID: "d1", Corpus: "papers", Source: "a.txt", Text: "some text"},
	})
	if err != nil {
		t.Fatalf("IndexDocuments failed: %v", err)
	}
	if len(idx.got) != 1 || idx.got[0].ID != "d1" || idx.got[0].Corpus != "papers" {
		t.Errorf("indexer got %+v", idx.got)
	}
	if report.Chunks != 2 || report.Embedded != 2 {
		t.Errorf("report = %+v", report)
	}
}

func TestNew_Validation(t *testing.T) {
	ctx := context.Background()

	if _, err := New(ctx); err == nil {
		t.Error("expected error without a database address")
	}
	if _, err := New(ctx, WithRedis([]string{"localhost:6379"}, "")); err == nil {
		t.Error("expected error without models")
	}
	if _, err := New(ctx,
		WithRedis([]string{"localhost:6379"}, ""),
		WithModels("emb-model", 0, "chat-model"),
	); err == nil {
		t.Error("expected error with zero dimensions")
	}
}
