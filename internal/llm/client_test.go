package llm

import (
	"context"
	"testing"
	"time"

	"github.com/google/generative-ai-go/genai"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type blockingClient struct {
	deadline time.Time
	hadDL    bool
}

func (b *blockingClient) GenerateContent(ctx context.Context, _ string, _ ModelTier) (string, error) {
	b.deadline, b.hadDL = ctx.Deadline()
	<-ctx.Done()
	return "", ctx.Err()
}

func (b *blockingClient) GenerateJSON(ctx context.Context, p string, tier ModelTier) (string, error) {
	return b.GenerateContent(ctx, p, tier)
}

func (b *blockingClient) GetModel(ModelTier) string { return "blocking" }
func (b *blockingClient) Close() error              { return nil }

func TestWithTimeout_AppliesDeadline(t *testing.T) {
	inner := &blockingClient{}
	c := WithTimeout(inner, 20*time.Millisecond)

	start := time.Now()
	_, err := c.GenerateJSON(context.Background(), "prompt", TierLite)
	require.Error(t, err)
	assert.ErrorIs(t, err, context.DeadlineExceeded)
	assert.True(t, inner.hadDL)
	assert.Less(t, time.Since(start), 2*time.Second)
	assert.Equal(t, "blocking", c.GetModel(TierLite))
}

func TestWithTimeout_NonPositiveReturnsSameClient(t *testing.T) {
	inner := &blockingClient{}
	assert.Same(t, Client(inner), WithTimeout(inner, 0))
}

func TestNewGeminiClient_RequiresAPIKey(t *testing.T) {
	_, err := NewGeminiClient(context.Background(), DefaultConfig(), "")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "API key is required")
}

func TestExtractTextFromResponse(t *testing.T) {
	_, err := extractTextFromResponse(&genai.GenerateContentResponse{})
	assert.Error(t, err)

	resp := &genai.GenerateContentResponse{Candidates: []*genai.Candidate{{
		Content: &genai.Content{Parts: []genai.Part{genai.Text("Hello, "), genai.Text("Acme")}},
	}}}
	text, err := extractTextFromResponse(resp)
	require.NoError(t, err)
	assert.Equal(t, "Hello, Acme", text)
}
