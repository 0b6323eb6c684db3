package server

import (
	"context"
	"encoding/json"
	"errors"
	"io"
	"log"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/labstack/echo/v4"

	"github.com/shoplens/shoplens/internal/orchestrator"
	"github.com/shoplens/shoplens/models"
	"github.com/shoplens/shoplens/provider"
)

type memCache struct {
	products map[string]models.ProductRecord
	analyses map[string]models.AnalysisRecord
}

func newMemCache() *memCache {
	return &memCache{
		products: map[string]models.ProductRecord{},
		analyses: map[string]models.AnalysisRecord{},
	}
}

func (c *memCache) GetProduct(ctx context.Context, key models.ProductKey) (models.ProductRecord, error) {
	rec, ok := c.products[key.String()]
	if !ok {
		return models.ProductRecord{}, models.ErrNotCached
	}
	return rec, nil
}

func (c *memCache) SetProduct(ctx context.Context, rec models.ProductRecord, ttl time.Duration) error {
	c.products[rec.Key.String()] = rec
	return nil
}

func (c *memCache) GetAnalysis(ctx context.Context, key models.ProductKey) (models.AnalysisRecord, error) {
	rec, ok := c.analyses[key.String()]
	if !ok {
		return models.AnalysisRecord{}, models.ErrNotCached
	}
	return rec, nil
}

func (c *memCache) SetAnalysis(ctx context.Context, rec models.AnalysisRecord, ttl time.Duration) error {
	c.analyses[rec.Key.String()] = rec
	return nil
}

func (c *memCache) GetChatHistory(ctx context.Context, sessionID string) ([]models.ChatMessage, error) {
	return nil, nil
}

func (c *memCache) AppendChatHistory(ctx context.Context, sessionID string, msgs ...models.ChatMessage) error {
	return nil
}

func (c *memCache) ClearChatHistory(ctx context.Context, sessionID string) error { return nil }

type stubScraper struct{}

func (stubScraper) Scrape(ctx context.Context, url string, key models.ProductKey) (models.ProductAttributes, error) {
	return models.ProductAttributes{ProductID: key.ID, Platform: key.Platform, Title: "Acme Widget Pro"}, nil
}

type stubPrices struct{ err error }

func (p stubPrices) Compare(ctx context.Context, productName, sourcePlatform string) ([]models.Listing, error) {
	if p.err != nil {
		return nil, p.err
	}
	return []models.Listing{{Site: "croma", Price: 10, Currency: "INR"}}, nil
}

type stubReputation struct{}

func (stubReputation) Analyze(ctx context.Context, productName, sourcePlatform string) (models.ReputationFindings, error) {
	return models.ReputationFindings{}, nil
}

type stubLLM struct{}

func (stubLLM) AnalyzeProduct(ctx context.Context, rec models.ProductRecord) (string, models.StructuredFindings, error) {
	return "report", models.StructuredFindings{Verdict: "buy"}, nil
}

func (stubLLM) FilterFindings(ctx context.Context, theme, productName string, findings []models.Finding) ([]models.Finding, error) {
	return findings, nil
}

func (stubLLM) SummarizeReputation(ctx context.Context, productName string, findings []models.Finding) ([]string, []string, string, error) {
	return nil, nil, "", nil
}

func (stubLLM) Answer(ctx context.Context, system string, history []models.ChatMessage, question string) (string, error) {
	return "", nil
}

func (stubLLM) DecideSearch(ctx context.Context, question, productContext string) (provider.Decision, error) {
	return provider.Decision{}, nil
}

func newTestProductsHandler(pricesErr error) *ProductsHandler {
	logger := log.New(io.Discard, "", 0)
	orch := orchestrator.New(newMemCache(), stubScraper{}, stubPrices{err: pricesErr}, stubReputation{}, stubLLM{},
		logger, time.Hour, time.Hour, time.Second)
	return &ProductsHandler{Orch: orch}
}

func postAnalyze(t *testing.T, h *ProductsHandler, body string) (int, map[string]json.RawMessage) {
	t.Helper()
	e := echo.New()
	req := httptest.NewRequest(http.MethodPost, "/api/products/analyze", strings.NewReader(body))
	req.Header.Set(echo.HeaderContentType, echo.MIMEApplicationJSON)
	rec := httptest.NewRecorder()
	c := e.NewContext(req, rec)

	if err := h.analyze(c); err != nil {
		e.HTTPErrorHandler(err, c)
	}

	var envelope map[string]json.RawMessage
	if err := json.Unmarshal(rec.Body.Bytes(), &envelope); err != nil {
		t.Fatalf("invalid response body %q: %v", rec.Body.String(), err)
	}
	return rec.Code, envelope
}

func TestAnalyzeEnvelopeHidesBranchFailure(t *testing.T) {
	failed := newTestProductsHandler(errors.New("serper down"))
	code, withFailure := postAnalyze(t, failed,
		`{"url":"https://www.amazon.in/dp/B0TEST1234"}`)
	if code != http.StatusOK {
		t.Fatalf("expected 200, got %d", code)
	}

	optedOut := newTestProductsHandler(nil)
	code, withOptOut := postAnalyze(t, optedOut,
		`{"url":"https://www.amazon.in/dp/B0TEST1234","include_price_comparison":false}`)
	if code != http.StatusOK {
		t.Fatalf("expected 200, got %d", code)
	}

	// a failed branch and an opted-out branch must be indistinguishable
	for name, envelope := range map[string]map[string]json.RawMessage{
		"failure": withFailure, "opt-out": withOptOut,
	} {
		if _, ok := envelope["degraded"]; ok {
			t.Fatalf("%s envelope exposes degradation detail", name)
		}
		var product models.ProductRecord
		if err := json.Unmarshal(envelope["product"], &product); err != nil {
			t.Fatalf("%s envelope has no product record: %v", name, err)
		}
		if len(product.PriceComparison.Listings) != 0 || product.PriceComparison.TotalFound != 0 {
			t.Fatalf("%s envelope has a non-empty price block: %+v", name, product.PriceComparison)
		}
	}
}

func TestAnalyzeRejectsUnknownURL(t *testing.T) {
	h := newTestProductsHandler(nil)
	e := echo.New()
	req := httptest.NewRequest(http.MethodPost, "/api/products/analyze",
		strings.NewReader(`{"url":"https://example.com/some/page"}`))
	req.Header.Set(echo.HeaderContentType, echo.MIMEApplicationJSON)
	rec := httptest.NewRecorder()
	c := e.NewContext(req, rec)

	err := h.analyze(c)
	he, ok := err.(*echo.HTTPError)
	if !ok || he.Code != http.StatusBadRequest {
		t.Fatalf("expected 400 for unsupported url, got %v", err)
	}
}
