package pitch

import (
	"context"
	"fmt"
	"strings"

	"go.uber.org/zap"

	"github.com/jonathan/pitch-agent/internal/llm"
	"github.com/jonathan/pitch-agent/internal/logging"
	"github.com/jonathan/pitch-agent/internal/metrics"
	"github.com/jonathan/pitch-agent/internal/prompts"
	"github.com/jonathan/pitch-agent/internal/search"
	"github.com/jonathan/pitch-agent/internal/types"
	"github.com/jonathan/pitch-agent/internal/validation"
)

const (
	chatWebResults  = 5
	chatHistoryKept = 10
	chatTurnChars   = 1000
)

// Assistant answers conversational questions about a customer.
type Assistant struct {
	llm    llm.Client
	search search.Searcher
	logger *zap.Logger
}

// NewAssistant creates an assistant. searcher may be nil, which disables web
// lookups.
func NewAssistant(client llm.Client, searcher search.Searcher, logger *zap.Logger) *Assistant {
	return &Assistant{llm: client, search: searcher, logger: logging.OrNop(logger).Named("chat")}
}

// Chat answers req. With flags.web_search set, the question is first looked up
// through the search cascade and the pages consulted are returned as web_refs.
func (a *Assistant) Chat(ctx context.Context, req types.ChatRequest) (*types.ChatReply, error) {
	customer := strings.TrimSpace(req.Customer)
	if customer == "" {
		return nil, ErrEmptyCustomer
	}
	message := strings.TrimSpace(req.Message)
	if message == "" {
		return nil, ErrEmptyMessage
	}

	reply := &types.ChatReply{WebRefs: []types.WebRef{}}
	webBlock := "(web search not requested)"
	degraded := false
	if req.Flags.WebSearch && a.search != nil {
		resp := a.search.Search(ctx, customer+" "+message, chatWebResults)
		degraded = resp.Degraded
		webBlock = validation.SnippetBlock(resp.Results, 400, a.logger)
		for _, r := range resp.Results {
			reply.WebRefs = append(reply.WebRefs, types.WebRef{Title: r.Title, URL: r.URL})
		}
	}

	industries := "unknown"
	if len(req.Industries) > 0 {
		industries = strings.Join(req.Industries, ", ")
	}
	prompt, err := prompts.Render("chat.json", "answer", map[string]string{
		"Customer":   customer,
		"Industries": industries,
		"History":    historyBlock(req.History),
		"WebResults": webBlock,
		"Message":    validation.StripInjectionAttempts(message),
	})
	if err != nil {
		return nil, fmt.Errorf("failed to build chat prompt: %w", err)
	}

	text, err := a.llm.GenerateContent(ctx, prompt, llm.TierLite)
	if err == nil && strings.TrimSpace(text) == "" {
		err = errEmptyOutput
	}
	if err != nil {
		metrics.GenerationFailures.WithLabelValues(OpChat).Inc()
		a.logger.Error("chat generation failed", zap.String("customer", customer), zap.Error(err))
		return nil, &GenerationError{Operation: OpChat, Degraded: degraded, Cause: err}
	}
	reply.Reply = strings.TrimSpace(text)
	return reply, nil
}

// historyBlock renders the most recent turns, oldest first.
func historyBlock(history []types.ChatTurn) string {
	if len(history) == 0 {
		return "(none)"
	}
	if len(history) > chatHistoryKept {
		history = history[len(history)-chatHistoryKept:]
	}
	var sb strings.Builder
	for _, turn := range history {
		role := "User"
		if turn.Role == "assistant" {
			role = "Assistant"
		}
		fmt.Fprintf(&sb, "%s: %s\n", role, logging.Truncate(strings.TrimSpace(turn.Content), chatTurnChars))
	}
	return strings.TrimSpace(sb.String())
}
