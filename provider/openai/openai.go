package openai_provider

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"strings"
	"time"

	"github.com/shoplens/shoplens/models"
)

const openaiAPIURL = "https://api.openai.com/v1/chat/completions"

// client implements the provider interface using OpenAI's API
type client struct {
	apiKey      string
	model       string
	temperature float64
	maxTokens   int
	httpClient  *http.Client
}

// Message represents a message in a conversation
type Message struct {
	Role    string `json:"role"`
	Content string `json:"content"`
}

// Decision is the outcome of the chat search policy.
type Decision struct {
	Answer      string `json:"answer,omitempty"`
	NeedsSearch bool   `json:"needs_search"`
	Query       string `json:"query,omitempty"`
}

// request represents a request to the OpenAI API
type request struct {
	Model       string    `json:"model"`
	Messages    []Message `json:"messages"`
	Temperature float64   `json:"temperature"`
	MaxTokens   int       `json:"max_tokens,omitempty"`
}

// response represents a response from the OpenAI API
type response struct {
	Choices []struct {
		Message struct {
			Content string `json:"content"`
		} `json:"message"`
	} `json:"choices"`
}

// NewOpenAIClient creates a new OpenAI client
func NewOpenAIClient(apiKey, model string, temperature float64, maxTokens int, timeout time.Duration) *client {
	return &client{
		apiKey:      apiKey,
		model:       model,
		temperature: temperature,
		maxTokens:   maxTokens,
		httpClient:  &http.Client{Timeout: timeout},
	}
}

func (c *client) complete(ctx context.Context, messages []Message) (string, error) {
	body, err := json.Marshal(request{
		Model:       c.model,
		Messages:    messages,
		Temperature: c.temperature,
		MaxTokens:   c.maxTokens,
	})
	if err != nil {
		return "", fmt.Errorf("failed to marshal request: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, "POST", openaiAPIURL, bytes.NewBuffer(body))
	if err != nil {
		return "", fmt.Errorf("failed to create request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Authorization", "Bearer "+c.apiKey)

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return "", fmt.Errorf("failed to send request: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return "", fmt.Errorf("API returned status: %d", resp.StatusCode)
	}

	var parsed response
	if err := json.NewDecoder(resp.Body).Decode(&parsed); err != nil {
		return "", fmt.Errorf("failed to parse response: %w", err)
	}
	if len(parsed.Choices) == 0 {
		return "", fmt.Errorf("empty completion response")
	}
	return parsed.Choices[0].Message.Content, nil
}

// AnalyzeProduct implements the provider interface
func (c *client) AnalyzeProduct(ctx context.Context, rec models.ProductRecord) (string, models.StructuredFindings, error) {
	data, err := json.MarshalIndent(rec, "", "  ")
	if err != nil {
		return "", models.StructuredFindings{}, fmt.Errorf("failed to marshal product record: %w", err)
	}

	system := `You are a product research analyst. Given scraped product data,
competitor prices and external web reputation, write a concise report covering
value for money, standout features, common complaints and buying advice.
After the report, on its own line, output a JSON object:
{"pros": [...], "cons": [...], "verdict": "..."}`

	content, err := c.complete(ctx, []Message{
		{Role: "system", Content: system},
		{Role: "user", Content: fmt.Sprintf("Product: %s\n\nData:\n%s", rec.Attributes.Title, string(data))},
	})
	if err != nil {
		return "", models.StructuredFindings{}, err
	}

	report, findings := splitStructuredTail(content)
	return report, findings, nil
}

// splitStructuredTail separates the prose report from the trailing JSON
// findings object. A malformed tail degrades to a report-only result.
func splitStructuredTail(content string) (string, models.StructuredFindings) {
	idx := strings.LastIndex(content, "{")
	if idx < 0 {
		return strings.TrimSpace(content), models.StructuredFindings{}
	}
	var findings models.StructuredFindings
	if err := json.Unmarshal([]byte(content[idx:]), &findings); err != nil {
		return strings.TrimSpace(content), models.StructuredFindings{}
	}
	return strings.TrimSpace(content[:idx]), findings
}

// FilterFindings implements the provider interface
func (c *client) FilterFindings(ctx context.Context, theme, productName string, findings []models.Finding) ([]models.Finding, error) {
	if len(findings) == 0 {
		return nil, nil
	}

	var sb strings.Builder
	for i, f := range findings {
		fmt.Fprintf(&sb, "%d. %s — %s\n", i, f.Title, f.Snippet)
	}
	system := fmt.Sprintf(`You filter web search results about %q (%s theme).
Reply with a JSON array of the indexes that are genuinely about this product.`, productName, theme)

	content, err := c.complete(ctx, []Message{
		{Role: "system", Content: system},
		{Role: "user", Content: sb.String()},
	})
	if err != nil {
		return nil, err
	}

	var keep []int
	if err := json.Unmarshal([]byte(extractJSON(content, '[')), &keep); err != nil {
		// keep everything rather than drop the branch on a parse hiccup
		return findings, nil
	}
	var out []models.Finding
	for _, i := range keep {
		if i >= 0 && i < len(findings) {
			out = append(out, findings[i])
		}
	}
	return out, nil
}

// SummarizeReputation implements the provider interface
func (c *client) SummarizeReputation(ctx context.Context, productName string, findings []models.Finding) ([]string, []string, string, error) {
	if len(findings) == 0 {
		return nil, nil, "", nil
	}

	var sb strings.Builder
	for _, f := range findings {
		fmt.Fprintf(&sb, "- %s: %s\n", f.Title, f.Snippet)
	}
	system := fmt.Sprintf(`You summarise external web coverage of %q. Reply with a JSON object:
{"key_findings": [...], "red_flags": [...], "sentiment": "positive|mixed|negative"}`, productName)

	content, err := c.complete(ctx, []Message{
		{Role: "system", Content: system},
		{Role: "user", Content: sb.String()},
	})
	if err != nil {
		return nil, nil, "", err
	}

	var parsed struct {
		KeyFindings []string `json:"key_findings"`
		RedFlags    []string `json:"red_flags"`
		Sentiment   string   `json:"sentiment"`
	}
	if err := json.Unmarshal([]byte(extractJSON(content, '{')), &parsed); err != nil {
		return nil, nil, "", fmt.Errorf("failed to parse summary: %w", err)
	}
	return parsed.KeyFindings, parsed.RedFlags, parsed.Sentiment, nil
}

// Answer implements the provider interface
func (c *client) Answer(ctx context.Context, system string, history []models.ChatMessage, question string) (string, error) {
	messages := make([]Message, 0, len(history)+2)
	messages = append(messages, Message{Role: "system", Content: system})
	for _, m := range history {
		messages = append(messages, Message{Role: m.Role, Content: m.Content})
	}
	messages = append(messages, Message{Role: "user", Content: question})
	return c.complete(ctx, messages)
}

// DecideSearch implements the provider interface
func (c *client) DecideSearch(ctx context.Context, question, productContext string) (Decision, error) {
	system := `You decide whether a product question can be answered from the
cached product context alone. Reply with a JSON object:
{"needs_search": bool, "query": "search query when needs_search", "answer": "answer when not"}`

	content, err := c.complete(ctx, []Message{
		{Role: "system", Content: system},
		{Role: "user", Content: fmt.Sprintf("Context:\n%s\n\nQuestion: %s", productContext, question)},
	})
	if err != nil {
		return Decision{}, err
	}

	var d Decision
	if err := json.Unmarshal([]byte(extractJSON(content, '{')), &d); err != nil {
		// treat unparseable output as a direct answer
		return Decision{Answer: strings.TrimSpace(content)}, nil
	}
	return d, nil
}

// extractJSON trims any prose around the first JSON value opening with start.
func extractJSON(content string, start byte) string {
	idx := strings.IndexByte(content, start)
	if idx < 0 {
		return content
	}
	end := strings.LastIndexByte(content, closing(start))
	if end < idx {
		return content[idx:]
	}
	return content[idx : end+1]
}

func closing(start byte) byte {
	if start == '[' {
		return ']'
	}
	return '}'
}
