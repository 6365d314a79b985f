package embedding

import (
	"context"
	"fmt"

	"github.com/google/generative-ai-go/genai"
	"google.golang.org/api/option"
)

// DefaultGeminiModel is the Gemini embedding model used when none is configured.
const DefaultGeminiModel = "text-embedding-004"

// GeminiEngine embeds text with the Gemini embedding API.
type GeminiEngine struct {
	client *genai.Client
	model  *genai.EmbeddingModel
	name   string
}

// NewGeminiEngine creates a Gemini embedding engine.
func NewGeminiEngine(ctx context.Context, apiKey, model string, opts ...option.ClientOption) (*GeminiEngine, error) {
	if apiKey == "" {
		return nil, fmt.Errorf("API key is required")
	}
	if model == "" {
		model = DefaultGeminiModel
	}

	client, err := genai.NewClient(ctx, append([]option.ClientOption{option.WithAPIKey(apiKey)}, opts...)...)
	if err != nil {
		return nil, fmt.Errorf("failed to create Gemini client: %w", err)
	}
	em := client.EmbeddingModel(model)
	em.TaskType = genai.TaskTypeSemanticSimilarity

	return &GeminiEngine{client: client, model: em, name: "gemini:" + model}, nil
}

// Embed implements Engine.
func (e *GeminiEngine) Embed(ctx context.Context, text string) ([]float32, error) {
	resp, err := e.model.EmbedContent(ctx, genai.Text(text))
	if err != nil {
		return nil, fmt.Errorf("failed to embed content: %w", err)
	}
	if resp == nil || resp.Embedding == nil {
		return nil, fmt.Errorf("no embedding in response")
	}
	return resp.Embedding.Values, nil
}

// EmbedBatch implements Engine with a single batch request.
func (e *GeminiEngine) EmbedBatch(ctx context.Context, texts []string) ([][]float32, error) {
	if len(texts) == 0 {
		return [][]float32{}, nil
	}
	batch := e.model.NewBatch()
	for _, t := range texts {
		batch.AddContent(genai.Text(t))
	}

	resp, err := e.model.BatchEmbedContents(ctx, batch)
	if err != nil {
		return nil, fmt.Errorf("failed to batch embed %d texts: %w", len(texts), err)
	}

	out := make([][]float32, len(resp.Embeddings))
	for i, emb := range resp.Embeddings {
		if emb != nil {
			out[i] = emb.Values
		}
	}
	return out, nil
}

// Name implements Engine.
func (e *GeminiEngine) Name() string { return e.name }

// Close releases the underlying client.
func (e *GeminiEngine) Close() error {
	return e.client.Close()
}
