package gemini

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"google.golang.org/genai"

	"github.com/kirillkom/electoral-rag/internal/core/domain"
	"github.com/kirillkom/electoral-rag/internal/infrastructure/llm/prompt"
	"github.com/kirillkom/electoral-rag/internal/infrastructure/resilience"
)

const embedBatchSize = 100

// models is the subset of *genai.Models used here.
type models interface {
	GenerateContent(ctx context.Context, model string, contents []*genai.Content, config *genai.GenerateContentConfig) (*genai.GenerateContentResponse, error)
	EmbedContent(ctx context.Context, model string, contents []*genai.Content, config *genai.EmbedContentConfig) (*genai.EmbedContentResponse, error)
}

type Client struct {
	models      models
	genModel    string
	embedModel  string
	temperature float32
	executor    *resilience.Executor
}

type Options struct {
	Temperature float64
	Executor    *resilience.Executor
}

func New(ctx context.Context, apiKey, genModel, embedModel string, opts Options) (*Client, error) {
	if strings.TrimSpace(apiKey) == "" {
		return nil, domain.WrapError(domain.ErrInvalidInput, "gemini client", fmt.Errorf("api key is required"))
	}
	client, err := genai.NewClient(ctx, &genai.ClientConfig{
		APIKey:  apiKey,
		Backend: genai.BackendGeminiAPI,
	})
	if err != nil {
		return nil, fmt.Errorf("create gemini client: %w", err)
	}
	return newWithModels(client.Models, genModel, embedModel, opts), nil
}

func newWithModels(m models, genModel, embedModel string, opts Options) *Client {
	return &Client{
		models:      m,
		genModel:    genModel,
		embedModel:  embedModel,
		temperature: float32(opts.Temperature),
		executor:    opts.Executor,
	}
}

type Embedder struct {
	client *Client
}

func NewEmbedder(client *Client) *Embedder {
	return &Embedder{client: client}
}

func (e *Embedder) Embed(ctx context.Context, texts []string) ([][]float32, error) {
	out := make([][]float32, 0, len(texts))
	for start := 0; start < len(texts); start += embedBatchSize {
		end := min(start+embedBatchSize, len(texts))
		vectors, err := e.embed(ctx, texts[start:end], "RETRIEVAL_DOCUMENT")
		if err != nil {
			return nil, err
		}
		out = append(out, vectors...)
	}
	return out, nil
}

func (e *Embedder) EmbedQuery(ctx context.Context, text string) ([]float32, error) {
	vectors, err := e.embed(ctx, []string{text}, "RETRIEVAL_QUERY")
	if err != nil {
		return nil, err
	}
	return vectors[0], nil
}

func (e *Embedder) embed(ctx context.Context, texts []string, taskType string) ([][]float32, error) {
	contents := make([]*genai.Content, 0, len(texts))
	for _, text := range texts {
		contents = append(contents, genai.NewContentFromText(text, genai.RoleUser))
	}

	resp, err := resilience.Call(ctx, e.client.executor, "gemini.embed", func(ctx context.Context) (*genai.EmbedContentResponse, error) {
		return e.client.models.EmbedContent(ctx, e.client.embedModel, contents, &genai.EmbedContentConfig{TaskType: taskType})
	}, classifyGeminiError)
	if err != nil {
		return nil, resilience.WrapTemporaryIfNeeded("gemini embed", err, classifyGeminiError)
	}
	if resp == nil || len(resp.Embeddings) != len(texts) {
		got := 0
		if resp != nil {
			got = len(resp.Embeddings)
		}
		return nil, fmt.Errorf("gemini embed: expected %d vectors, got %d", len(texts), got)
	}

	vectors := make([][]float32, 0, len(resp.Embeddings))
	for _, emb := range resp.Embeddings {
		if emb == nil {
			return nil, fmt.Errorf("gemini embed: nil embedding")
		}
		vectors = append(vectors, emb.Values)
	}
	return vectors, nil
}

type Generator struct {
	client *Client
}

func NewGenerator(client *Client) *Generator {
	return &Generator{client: client}
}

func (g *Generator) GenerateAnswer(ctx context.Context, question string, docs []domain.Document) (string, error) {
	config := &genai.GenerateContentConfig{
		SystemInstruction: genai.NewContentFromText(prompt.SystemInstruction, genai.RoleUser),
		Temperature:       genai.Ptr(g.client.temperature),
	}
	contents := genai.Text(prompt.BuildAnswerPrompt(question, docs))

	resp, err := resilience.Call(ctx, g.client.executor, "gemini.generate", func(ctx context.Context) (*genai.GenerateContentResponse, error) {
		return g.client.models.GenerateContent(ctx, g.client.genModel, contents, config)
	}, classifyGeminiError)
	if err != nil {
		return "", resilience.WrapTemporaryIfNeeded("gemini generate", err, classifyGeminiError)
	}
	if resp == nil {
		return "", fmt.Errorf("gemini generate: empty response")
	}
	return strings.TrimSpace(resp.Text()), nil
}

// classifyGeminiError maps API status codes onto the shared HTTP policy.
func classifyGeminiError(err error) resilience.ErrorClassification {
	var apiErr genai.APIError
	if errors.As(err, &apiErr) {
		return classifyStatus(apiErr.Code)
	}
	var apiErrPtr *genai.APIError
	if errors.As(err, &apiErrPtr) && apiErrPtr != nil {
		return classifyStatus(apiErrPtr.Code)
	}
	return resilience.ClassifyHTTPError(err)
}

func classifyStatus(code int) resilience.ErrorClassification {
	if resilience.IsRetryableHTTPStatus(code) {
		return resilience.ErrorClassification{Retryable: true, RecordFailure: true}
	}
	return resilience.ErrorClassification{}
}
