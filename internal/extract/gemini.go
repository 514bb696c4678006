package extract

import (
	"context"

	"google.golang.org/genai"

	"statement-splitter/internal/parsers"
	splittererrors "statement-splitter/pkg/errors"
	"statement-splitter/pkg/logger"
)

// DefaultGeminiModel is the model used when none is configured.
const DefaultGeminiModel = "gemini-2.0-flash"

// GeminiConfig holds the Gemini extractor settings. The API key is read
// from the environment by the genai client.
type GeminiConfig struct {
	Model      string `json:"model" mapstructure:"model"`
	APIVersion string `json:"api_version" mapstructure:"api_version"`
}

// DefaultGeminiConfig returns the default model settings.
func DefaultGeminiConfig() *GeminiConfig {
	return &GeminiConfig{Model: DefaultGeminiModel, APIVersion: "v1"}
}

// GeminiExtractor proposes line items via the Gemini API.
type GeminiExtractor struct {
	client     *genai.Client
	config     *GeminiConfig
	normalizer *Normalizer
	logger     logger.Logger
}

// NewGeminiExtractor creates a Gemini-backed extractor.
func NewGeminiExtractor(ctx context.Context, config *GeminiConfig, markers *parsers.MarkerTable) (*GeminiExtractor, error) {
	if config == nil {
		config = DefaultGeminiConfig()
	}
	if config.Model == "" {
		config.Model = DefaultGeminiModel
	}

	client, err := genai.NewClient(ctx, &genai.ClientConfig{
		HTTPOptions: genai.HTTPOptions{APIVersion: config.APIVersion},
	})
	if err != nil {
		return nil, splittererrors.Collaborator(splittererrors.CodeExtractorFailure, "gemini", err)
	}

	return &GeminiExtractor{
		client:     client,
		config:     config,
		normalizer: NewNormalizer(markers),
		logger:     logger.WithComponent("extractor"),
	}, nil
}

// Extract sends the statement text to the model and normalizes the
// response. Failures are collaborator errors; the caller decides whether
// the run can continue without AI items.
func (ge *GeminiExtractor) Extract(ctx context.Context, text, accountCurrency string) (*Result, error) {
	prompt := BuildPrompt(text, accountCurrency)

	contents := []*genai.Content{
		{
			Role:  "user",
			Parts: []*genai.Part{{Text: prompt}},
		},
	}

	resp, err := ge.client.Models.GenerateContent(ctx, ge.config.Model, contents, nil)
	if err != nil {
		return nil, splittererrors.Collaborator(splittererrors.CodeExtractorFailure, "gemini", err)
	}

	raw := resp.Text()
	if raw == "" {
		return nil, splittererrors.New(splittererrors.CategoryCollaborator,
			splittererrors.CodeExtractorFailure, "empty response from model").
			WithContext("model", ge.config.Model)
	}

	items, err := ge.normalizer.Normalize(raw)
	if err != nil {
		return nil, splittererrors.Collaborator(splittererrors.CodeExtractorFailure, "gemini", err).
			WithContext("raw", raw)
	}

	ge.logger.WithFields(logger.Fields{
		"model": ge.config.Model,
		"items": len(items),
	}).Debug("Model extraction completed")
	return &Result{Items: items, Raw: raw}, nil
}
