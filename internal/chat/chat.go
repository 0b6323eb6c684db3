package chat

import (
	"context"
	"fmt"
	"log"
	"net/url"
	"strings"

	"github.com/google/uuid"

	"github.com/shoplens/shoplens/models"
	"github.com/shoplens/shoplens/provider"
	"github.com/shoplens/shoplens/repository"
	"github.com/shoplens/shoplens/tools/web_search"
)

const (
	maxContextReviews  = 5
	maxSearchResults   = 5
	maxHistoryMessages = 20
)

// Manager answers follow-up questions about an already analyzed product. It
// never re-runs the analysis pipeline: questions are grounded in the cached
// ProductRecord, optionally supplemented with a one-off web search when the
// policy decides the cached context cannot answer.
type Manager struct {
	cache    repository.ProductCache
	llm      provider.Provider
	searcher web_search.WebSearcher
	logger   *log.Logger
}

func New(cache repository.ProductCache, llm provider.Provider, searcher web_search.WebSearcher, logger *log.Logger) *Manager {
	if logger == nil {
		logger = log.New(log.Writer(), "[CHAT] ", log.LstdFlags)
	}
	return &Manager{cache: cache, llm: llm, searcher: searcher, logger: logger}
}

// Ask answers question in the context of the product behind key. An empty
// sessionID starts a new session; the (possibly generated) session id is
// returned so the caller can continue the conversation.
func (m *Manager) Ask(ctx context.Context, sessionID string, key models.ProductKey, question string) (string, string, error) {
	question = strings.TrimSpace(question)
	if question == "" {
		return sessionID, "", fmt.Errorf("empty question")
	}
	if sessionID == "" {
		sessionID = uuid.NewString()
	}

	rec, err := m.cache.GetProduct(ctx, key)
	if err != nil {
		return sessionID, "", fmt.Errorf("product %s not analyzed yet: %w", key, err)
	}

	history, err := m.cache.GetChatHistory(ctx, sessionID)
	if err != nil {
		m.logger.Printf("history load failed for session %s, continuing empty: %v", sessionID, err)
		history = nil
	}
	if len(history) > maxHistoryMessages {
		history = history[len(history)-maxHistoryMessages:]
	}

	system := buildContext(rec)
	system = m.maybeSearch(ctx, rec, question, system)

	answer, err := m.llm.Answer(ctx, system, history, question)
	if err != nil {
		return sessionID, "", fmt.Errorf("answer generation failed: %w", err)
	}

	if err := m.cache.AppendChatHistory(ctx, sessionID,
		models.ChatMessage{Role: models.RoleUser, Content: question},
		models.ChatMessage{Role: models.RoleAssistant, Content: answer},
	); err != nil {
		// the answer is still valid, the session just loses this turn
		m.logger.Printf("history write failed for session %s: %v", sessionID, err)
	}

	return sessionID, answer, nil
}

func (m *Manager) History(ctx context.Context, sessionID string) ([]models.ChatMessage, error) {
	return m.cache.GetChatHistory(ctx, sessionID)
}

func (m *Manager) Clear(ctx context.Context, sessionID string) error {
	return m.cache.ClearChatHistory(ctx, sessionID)
}

// maybeSearch asks the model whether the question needs fresh web data and, if
// so, appends one round of search results to the system context. Every failure
// on this path degrades to answering from the cached context alone.
func (m *Manager) maybeSearch(ctx context.Context, rec models.ProductRecord, question, system string) string {
	if m.searcher == nil {
		return system
	}
	decision, err := m.llm.DecideSearch(ctx, question, rec.Attributes.Title)
	if err != nil {
		m.logger.Printf("search decision failed, answering from context: %v", err)
		return system
	}
	if !decision.NeedsSearch || strings.TrimSpace(decision.Query) == "" {
		return system
	}

	findings, err := m.searcher.Discover(ctx, decision.Query, maxSearchResults, nil)
	if err != nil {
		m.logger.Printf("follow-up search failed for %q: %v", decision.Query, err)
		return system
	}
	if len(findings) == 0 {
		return system
	}

	var b strings.Builder
	b.WriteString(system)
	b.WriteString("\n\nFresh web results for this question:\n")
	for _, f := range findings {
		fmt.Fprintf(&b, "- %s: %s\n", f.Title, f.Snippet)
	}
	return b.String()
}

// buildContext flattens the cached record into the system prompt. Listing URLs
// are stripped of tracking parameters and reviews are capped so the prompt
// stays bounded regardless of how noisy the scrape was.
func buildContext(rec models.ProductRecord) string {
	var b strings.Builder
	b.WriteString("You are a shopping assistant. Answer questions about this product using the data below.\n\n")

	a := rec.Attributes
	fmt.Fprintf(&b, "Product: %s\n", a.Title)
	if a.Brand != "" {
		fmt.Fprintf(&b, "Brand: %s\n", a.Brand)
	}
	if a.Price != "" {
		fmt.Fprintf(&b, "Price on %s: %s\n", a.Platform, a.Price)
	}
	if a.Rating != "" {
		fmt.Fprintf(&b, "Rating: %s\n", a.Rating)
	}
	if a.Availability != "" {
		fmt.Fprintf(&b, "Availability: %s\n", a.Availability)
	}
	if len(a.Features) > 0 {
		b.WriteString("Features:\n")
		for _, f := range a.Features {
			fmt.Fprintf(&b, "- %s\n", f)
		}
	}

	if n := len(rec.PriceComparison.Listings); n > 0 {
		fmt.Fprintf(&b, "\nPrices elsewhere (%d offers found):\n", rec.PriceComparison.TotalFound)
		for _, l := range rec.PriceComparison.Listings {
			fmt.Fprintf(&b, "- %s: %.2f %s (%s)\n", l.Site, l.Price, l.Currency, stripTracking(l.URL))
		}
	}

	rep := rec.Reputation
	if rep.Sentiment != "" {
		fmt.Fprintf(&b, "\nOverall web sentiment: %s\n", rep.Sentiment)
	}
	if len(rep.KeyFindings) > 0 {
		b.WriteString("Key findings from the web:\n")
		for _, f := range rep.KeyFindings {
			fmt.Fprintf(&b, "- %s\n", f)
		}
	}
	if len(rep.RedFlags) > 0 {
		b.WriteString("Red flags:\n")
		for _, f := range rep.RedFlags {
			fmt.Fprintf(&b, "- %s\n", f)
		}
	}

	if len(a.Reviews) > 0 {
		b.WriteString("\nCustomer reviews:\n")
		for i, r := range a.Reviews {
			if i >= maxContextReviews {
				break
			}
			fmt.Fprintf(&b, "- [%s] %s: %s\n", r.Rating, r.Title, r.Text)
		}
	}

	return b.String()
}

var trackingParams = map[string]bool{
	"ref": true, "tag": true, "gclid": true, "fbclid": true,
	"utm_source": true, "utm_medium": true, "utm_campaign": true,
	"utm_term": true, "utm_content": true,
}

func stripTracking(raw string) string {
	u, err := url.Parse(raw)
	if err != nil {
		return raw
	}
	q := u.Query()
	for param := range q {
		if trackingParams[param] || strings.HasPrefix(param, "utm_") {
			q.Del(param)
		}
	}
	u.RawQuery = q.Encode()
	return u.String()
}
