// Package orchestrator runs the conversational control loop: prompt the
// chat model, serve its retrieval tool calls, and commit the finished turn
// to the thread's log.
package orchestrator

import (
	"context"
	"fmt"
	"strings"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/corvid-ai/corvid/internal/domain"
	"github.com/corvid-ai/corvid/internal/metrics"
)

// degradedToolNote is staged as a tool result when retrieval fails but the
// turn already holds context from an earlier round.
const degradedToolNote = "Retrieval failed for this query. Answer from the context already retrieved, and say so if it is insufficient."

// Answer is the outcome of one conversation turn.
type Answer struct {
	ThreadID string
	Text     string
	// Chunks is the ranked artifact of the turn's last retrieval round.
	Chunks []domain.RetrievedChunk
}

// Config holds orchestration settings.
type Config struct {
	Persona string // system prompt prefix
	MaxHops int    // retrieval rounds per turn before a forced answer
}

// Service runs conversation turns.
type Service struct {
	chat     ChatModel
	retrieve Retriever
	convs    Conversations
	persona  string
	maxHops  int
	logger   *zap.Logger
}

// New creates an orchestrator.
func New(cfg Config, chat ChatModel, retrieve Retriever, convs Conversations, logger *zap.Logger) *Service {
	maxHops := cfg.MaxHops
	if maxHops <= 0 {
		maxHops = 4
	}
	persona := cfg.Persona
	if persona == "" {
		persona = "You are a helpful assistant that answers questions about the indexed documents."
	}
	return &Service{
		chat:     chat,
		retrieve: retrieve,
		convs:    convs,
		persona:  persona,
		maxHops:  maxHops,
		logger:   logger,
	}
}

// Ask runs one turn of the conversation. An empty threadID starts a new
// thread. The turn's messages are committed atomically on success only:
// a failed or cancelled turn leaves the thread exactly as it was.
func (s *Service) Ask(ctx context.Context, threadID, query string) (Answer, error) {
	if strings.TrimSpace(query) == "" {
		return Answer{}, fmt.Errorf("empty query")
	}
	if threadID == "" {
		threadID = uuid.NewString()
	}

	token, err := s.convs.Lock(ctx, threadID)
	if err != nil {
		return Answer{}, err
	}
	// Release even when the request context is already cancelled.
	defer func() {
		if err := s.convs.Unlock(context.WithoutCancel(ctx), threadID, token); err != nil {
			s.logger.Warn("Failed to unlock thread", zap.String("thread_id", threadID), zap.Error(err))
		}
	}()

	history, err := s.convs.History(ctx, threadID)
	if err != nil {
		return Answer{}, fmt.Errorf("load history: %w", err)
	}

	turn := &turnState{staged: []domain.Message{domain.NewUserMessage(query)}}

	answer, err := s.runLoop(ctx, history, turn)
	if err != nil {
		return Answer{}, err
	}

	if err := s.convs.Append(ctx, threadID, turn.staged); err != nil {
		return Answer{}, fmt.Errorf("persist turn: %w", err)
	}

	metrics.RetrievalRoundsPerTurn.Observe(float64(turn.rounds))
	s.logger.Info("Turn completed",
		zap.String("thread_id", threadID),
		zap.Int("retrieval_rounds", turn.rounds),
		zap.Int("context_chunks", len(turn.lastChunks)))

	return Answer{ThreadID: threadID, Text: answer, Chunks: turn.lastChunks}, nil
}

// turnState accumulates one turn: the messages to persist and the latest
// retrieval round's output.
type turnState struct {
	staged     []domain.Message
	lastOutput string
	lastChunks []domain.RetrievedChunk
	rounds     int
}

// runLoop drives the model until it answers or the hop bound forces one.
func (s *Service) runLoop(ctx context.Context, history []domain.Message, turn *turnState) (string, error) {
	for hop := 0; hop < s.maxHops; hop++ {
		resp, err := s.chat.Complete(ctx, s.buildPrompt(history, turn), true)
		if err != nil {
			return "", err
		}
		turn.staged = append(turn.staged, resp)

		if !resp.RequestsTools() {
			return finalText(resp)
		}

		if err := s.serveToolCalls(ctx, resp.ToolCalls, turn); err != nil {
			return "", err
		}
		turn.rounds++
	}

	// Hop bound reached: one final completion without the tool offered.
	resp, err := s.chat.Complete(ctx, s.buildPrompt(history, turn), false)
	if err != nil {
		return "", err
	}
	turn.staged = append(turn.staged, resp)
	return finalText(resp)
}

// serveToolCalls answers every call of one round. Each call gets a tool
// message even on failure, so the staged batch always satisfies the
// call/result pairing invariant.
func (s *Service) serveToolCalls(ctx context.Context, calls []domain.ToolCall, turn *turnState) error {
	var (
		outputs []string
		chunks  []domain.RetrievedChunk
	)

	for _, call := range calls {
		result, err := s.invokeCall(ctx, call)
		if err != nil {
			// Without context from an earlier round there is nothing to
			// degrade to; the turn fails.
			if turn.lastOutput == "" {
				return fmt.Errorf("%s: %v: %w", call.Name, err, domain.ErrToolInvocation)
			}
			s.logger.Warn("Retrieval degraded", zap.String("call_id", call.ID), zap.Error(err))
			turn.staged = append(turn.staged, domain.NewToolMessage(call.ID, call.Name, degradedToolNote))
			continue
		}

		turn.staged = append(turn.staged, domain.NewToolMessage(call.ID, call.Name, result.Serialized))
		outputs = append(outputs, result.Serialized)
		chunks = append(chunks, result.Chunks...)
	}

	if len(outputs) > 0 {
		turn.lastOutput = strings.Join(outputs, "\n\n")
		turn.lastChunks = chunks
	}
	return nil
}

func (s *Service) invokeCall(ctx context.Context, call domain.ToolCall) (domain.RetrievalResult, error) {
	args, err := call.DecodeRetrieveArgs()
	if err != nil {
		return domain.RetrievalResult{}, err
	}
	return s.retrieve.Retrieve(ctx, args.Query, args.Corpora)
}

// buildPrompt assembles the model input: a system message carrying the
// persona and the latest retrieval output, then the filtered history, then
// the current turn's messages filtered the same way. Tool protocol
// messages never re-enter the prompt; retrieved context travels in the
// system message only, so stale rounds cannot leak back in.
func (s *Service) buildPrompt(history []domain.Message, turn *turnState) []domain.Message {
	system := s.persona
	if turn.lastOutput != "" {
		system += "\n\nRetrieved context:\n" + turn.lastOutput
	}

	prompt := []domain.Message{domain.NewSystemMessage(system)}
	prompt = append(prompt, filterForPrompt(history)...)
	return append(prompt, filterForPrompt(turn.staged)...)
}

// filterForPrompt keeps user and system messages and plain assistant
// answers. Assistant tool-call requests and tool results are persistence
// artifacts, not prompt material.
func filterForPrompt(msgs []domain.Message) []domain.Message {
	out := make([]domain.Message, 0, len(msgs))
	for _, m := range msgs {
		switch m.Role {
		case domain.RoleUser, domain.RoleSystem:
			out = append(out, m)
		case domain.RoleAssistant:
			if !m.RequestsTools() {
				out = append(out, m)
			}
		case domain.RoleTool:
		}
	}
	return out
}

// finalText validates a finishing completion: blank model output is an
// error, never an answer.
func finalText(m domain.Message) (string, error) {
	if strings.TrimSpace(m.Content) == "" {
		return "", domain.ErrEmptyAnswer
	}
	return m.Content, nil
}
