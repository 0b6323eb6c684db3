package provider

import (
	"context"
	"errors"

	"github.com/shoplens/shoplens/config"
	"github.com/shoplens/shoplens/models"
	openai_provider "github.com/shoplens/shoplens/provider/openai"
)

// Client represents different LLM providers
type Client string

const (
	OpenAI    Client = "openai"
	Anthropic Client = "anthropic"
	Gemini    Client = "gemini"
)

// Decision is the outcome of the chat search policy: either a direct answer
// or a request to run a web search with the given query first.
type Decision = openai_provider.Decision

// Provider is the interface that all LLM implementations must satisfy
type Provider interface {
	// AnalyzeProduct turns a merged ProductRecord into the user-facing report
	// plus structured findings.
	AnalyzeProduct(ctx context.Context, rec models.ProductRecord) (string, models.StructuredFindings, error)
	// FilterFindings keeps only the search results genuinely relevant to the
	// product for the given theme (reviews, issues, reddit, news).
	FilterFindings(ctx context.Context, theme, productName string, findings []models.Finding) ([]models.Finding, error)
	// SummarizeReputation extracts key findings, red flags and an overall
	// sentiment from the filtered external sources.
	SummarizeReputation(ctx context.Context, productName string, findings []models.Finding) (keyFindings, redFlags []string, sentiment string, err error)
	// Answer generates a conversational reply given a system prompt and history.
	Answer(ctx context.Context, system string, history []models.ChatMessage, question string) (string, error)
	// DecideSearch asks the model whether a question needs fresh web data.
	DecideSearch(ctx context.Context, question, productContext string) (Decision, error)
}

// NewProvider creates a new LLM client based on the provided configuration
func NewProvider(client Client, cfg config.LLMConfig) (Provider, error) {
	switch client {
	case OpenAI:
		if cfg.APIKey == "" {
			return nil, errors.New("llm.api_key not set")
		}
		return openai_provider.NewOpenAIClient(
			cfg.APIKey,
			cfg.Model,
			cfg.Temperature,
			cfg.MaxTokens,
			cfg.Timeout,
		), nil
	case Anthropic:
		return nil, errors.New("anthropic client not implemented yet")
	case Gemini:
		return nil, errors.New("gemini client not implemented yet")
	default:
		return nil, errors.New("unsupported LLM provider")
	}
}
