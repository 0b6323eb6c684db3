package chat

import (
	"context"
	"errors"
	"io"
	"log"
	"strings"
	"testing"
	"time"

	"github.com/shoplens/shoplens/models"
	"github.com/shoplens/shoplens/provider"
)

type fakeCache struct {
	products map[string]models.ProductRecord
	history  map[string][]models.ChatMessage
}

func newFakeCache() *fakeCache {
	return &fakeCache{
		products: map[string]models.ProductRecord{},
		history:  map[string][]models.ChatMessage{},
	}
}

func (c *fakeCache) GetProduct(ctx context.Context, key models.ProductKey) (models.ProductRecord, error) {
	rec, ok := c.products[key.String()]
	if !ok {
		return models.ProductRecord{}, models.ErrNotCached
	}
	return rec, nil
}

func (c *fakeCache) SetProduct(ctx context.Context, rec models.ProductRecord, ttl time.Duration) error {
	c.products[rec.Key.String()] = rec
	return nil
}

func (c *fakeCache) GetAnalysis(ctx context.Context, key models.ProductKey) (models.AnalysisRecord, error) {
	return models.AnalysisRecord{}, models.ErrNotCached
}

func (c *fakeCache) SetAnalysis(ctx context.Context, rec models.AnalysisRecord, ttl time.Duration) error {
	return nil
}

func (c *fakeCache) GetChatHistory(ctx context.Context, sessionID string) ([]models.ChatMessage, error) {
	return c.history[sessionID], nil
}

func (c *fakeCache) AppendChatHistory(ctx context.Context, sessionID string, msgs ...models.ChatMessage) error {
	c.history[sessionID] = append(c.history[sessionID], msgs...)
	return nil
}

func (c *fakeCache) ClearChatHistory(ctx context.Context, sessionID string) error {
	delete(c.history, sessionID)
	return nil
}

type fakeLLM struct {
	decision   provider.Decision
	lastSystem string
}

func (f *fakeLLM) AnalyzeProduct(ctx context.Context, rec models.ProductRecord) (string, models.StructuredFindings, error) {
	return "", models.StructuredFindings{}, errors.New("not used")
}

func (f *fakeLLM) FilterFindings(ctx context.Context, theme, productName string, findings []models.Finding) ([]models.Finding, error) {
	return findings, nil
}

func (f *fakeLLM) SummarizeReputation(ctx context.Context, productName string, findings []models.Finding) ([]string, []string, string, error) {
	return nil, nil, "", nil
}

func (f *fakeLLM) Answer(ctx context.Context, system string, history []models.ChatMessage, question string) (string, error) {
	f.lastSystem = system
	return "answer to: " + question, nil
}

func (f *fakeLLM) DecideSearch(ctx context.Context, question, productContext string) (provider.Decision, error) {
	return f.decision, nil
}

type fakeSearcher struct {
	calls   int
	queries []string
}

func (s *fakeSearcher) Discover(ctx context.Context, q string, k int, exclude []string) ([]models.Finding, error) {
	s.calls++
	s.queries = append(s.queries, q)
	return []models.Finding{{Title: "fresh", Snippet: "result"}}, nil
}

var testKey = models.ProductKey{Platform: "amazon", ID: "B0TEST1234"}

func testRecord() models.ProductRecord {
	return models.ProductRecord{
		Key: testKey,
		Attributes: models.ProductAttributes{
			Title:  "Acme Widget Pro",
			Rating: "4.3/5",
		},
		PriceComparison: models.PriceComparison{
			Listings: []models.Listing{
				{Site: "croma", Price: 99.5, Currency: "INR", URL: "https://croma.com/p/1?utm_source=x&ref=abc&size=m"},
			},
			TotalFound: 1,
		},
	}
}

func newTestManager(cache *fakeCache, llm *fakeLLM, searcher *fakeSearcher) *Manager {
	logger := log.New(io.Discard, "", 0)
	if searcher == nil {
		return New(cache, llm, nil, logger)
	}
	return New(cache, llm, searcher, logger)
}

func TestAskCreatesSessionAndAppendsTurns(t *testing.T) {
	cache := newFakeCache()
	cache.products[testKey.String()] = testRecord()
	llm := &fakeLLM{}
	m := newTestManager(cache, llm, nil)

	session, answer, err := m.Ask(context.Background(), "", testKey, "is it waterproof?")
	if err != nil {
		t.Fatalf("ask failed: %v", err)
	}
	if session == "" {
		t.Fatalf("expected a generated session id")
	}
	if answer != "answer to: is it waterproof?" {
		t.Fatalf("unexpected answer: %q", answer)
	}

	history, _ := m.History(context.Background(), session)
	if len(history) != 2 {
		t.Fatalf("expected 2 history turns, got %d", len(history))
	}
	if history[0].Role != models.RoleUser || history[1].Role != models.RoleAssistant {
		t.Fatalf("unexpected turn roles: %+v", history)
	}

	// second turn reuses the session
	again, _, err := m.Ask(context.Background(), session, testKey, "and the battery?")
	if err != nil {
		t.Fatalf("second ask failed: %v", err)
	}
	if again != session {
		t.Fatalf("session id changed across turns: %s vs %s", again, session)
	}
	history, _ = m.History(context.Background(), session)
	if len(history) != 4 {
		t.Fatalf("expected 4 history turns, got %d", len(history))
	}
}

func TestAskRequiresAnalyzedProduct(t *testing.T) {
	m := newTestManager(newFakeCache(), &fakeLLM{}, nil)

	_, _, err := m.Ask(context.Background(), "", testKey, "any good?")
	if !errors.Is(err, models.ErrNotCached) {
		t.Fatalf("expected ErrNotCached for unknown product, got %v", err)
	}
}

func TestContextStripsTrackingParams(t *testing.T) {
	cache := newFakeCache()
	cache.products[testKey.String()] = testRecord()
	llm := &fakeLLM{}
	m := newTestManager(cache, llm, nil)

	if _, _, err := m.Ask(context.Background(), "", testKey, "where is it cheapest?"); err != nil {
		t.Fatalf("ask failed: %v", err)
	}
	if strings.Contains(llm.lastSystem, "utm_source") || strings.Contains(llm.lastSystem, "ref=abc") {
		t.Fatalf("tracking params leaked into context:\n%s", llm.lastSystem)
	}
	if !strings.Contains(llm.lastSystem, "size=m") {
		t.Fatalf("non-tracking params must survive:\n%s", llm.lastSystem)
	}
}

func TestSearchPolicyTriggersDiscovery(t *testing.T) {
	cache := newFakeCache()
	cache.products[testKey.String()] = testRecord()
	llm := &fakeLLM{decision: provider.Decision{NeedsSearch: true, Query: "acme widget pro firmware update"}}
	searcher := &fakeSearcher{}
	m := newTestManager(cache, llm, searcher)

	if _, _, err := m.Ask(context.Background(), "", testKey, "any firmware updates?"); err != nil {
		t.Fatalf("ask failed: %v", err)
	}
	if searcher.calls != 1 {
		t.Fatalf("expected one search, got %d", searcher.calls)
	}
	if !strings.Contains(llm.lastSystem, "fresh") {
		t.Fatalf("search results missing from context:\n%s", llm.lastSystem)
	}

	// direct answers must not search
	llm.decision = provider.Decision{NeedsSearch: false}
	if _, _, err := m.Ask(context.Background(), "", testKey, "what is the rating?"); err != nil {
		t.Fatalf("ask failed: %v", err)
	}
	if searcher.calls != 1 {
		t.Fatalf("search ran for a direct answer")
	}
}

func TestClearRemovesOnlyTheSession(t *testing.T) {
	cache := newFakeCache()
	cache.products[testKey.String()] = testRecord()
	m := newTestManager(cache, &fakeLLM{}, nil)

	session, _, err := m.Ask(context.Background(), "", testKey, "hello?")
	if err != nil {
		t.Fatalf("ask failed: %v", err)
	}
	if err := m.Clear(context.Background(), session); err != nil {
		t.Fatalf("clear failed: %v", err)
	}
	history, _ := m.History(context.Background(), session)
	if len(history) != 0 {
		t.Fatalf("expected empty history after clear, got %d turns", len(history))
	}
	// product data is untouched by session teardown
	if _, err := cache.GetProduct(context.Background(), testKey); err != nil {
		t.Fatalf("clear must not touch product records: %v", err)
	}
}
