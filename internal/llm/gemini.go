package llm

import (
	"context"
	"fmt"
	"strings"

	"github.com/Veraticus/budgetbuddy/internal/common"
	"github.com/google/generative-ai-go/genai"
	"google.golang.org/api/option"
)

// geminiClient implements the Client interface for Google's Gemini models.
type geminiClient struct {
	client *genai.Client
	model  *genai.GenerativeModel
}

// newGeminiClient creates a Gemini client. BaseURL, when set, overrides the API endpoint.
func newGeminiClient(ctx context.Context, cfg Config) (*geminiClient, error) {
	if cfg.APIKey == "" {
		return nil, fmt.Errorf("%w: gemini API key", common.ErrMissingConfig)
	}

	opts := []option.ClientOption{option.WithAPIKey(cfg.APIKey)}
	if cfg.BaseURL != "" {
		opts = append(opts, option.WithEndpoint(cfg.BaseURL))
	}

	client, err := genai.NewClient(ctx, opts...)
	if err != nil {
		return nil, fmt.Errorf("failed to create Gemini client: %w", err)
	}

	modelName := cfg.Model
	if modelName == "" {
		modelName = "gemini-1.5-flash"
	}

	model := client.GenerativeModel(modelName)
	model.SetTemperature(float32(cfg.Temperature))
	model.SetMaxOutputTokens(int32(cfg.maxTokens()))

	return &geminiClient{client: client, model: model}, nil
}

// Generate sends prompt to the model and concatenates the text parts of the first candidate.
func (c *geminiClient) Generate(ctx context.Context, prompt string) (string, error) {
	resp, err := c.model.GenerateContent(ctx, genai.Text(systemPrompt), genai.Text(prompt))
	if err != nil {
		return "", fmt.Errorf("gemini API error: %w", err)
	}

	if len(resp.Candidates) == 0 || resp.Candidates[0].Content == nil || len(resp.Candidates[0].Content.Parts) == 0 {
		return "", fmt.Errorf("no response from Gemini API")
	}

	var b strings.Builder
	for _, part := range resp.Candidates[0].Content.Parts {
		if text, ok := part.(genai.Text); ok {
			b.WriteString(string(text))
		}
	}

	if strings.TrimSpace(b.String()) == "" {
		return "", fmt.Errorf("no text in Gemini response")
	}
	return b.String(), nil
}

// Close releases the underlying connection.
func (c *geminiClient) Close() error {
	return c.client.Close()
}
