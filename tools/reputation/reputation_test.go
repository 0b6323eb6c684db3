package reputation

import (
	"context"
	"errors"
	"io"
	"log"
	"strings"
	"sync"
	"testing"

	"github.com/shoplens/shoplens/models"
	"github.com/shoplens/shoplens/provider"
)

type fakeSearcher struct {
	mu      sync.Mutex
	queries []string
	err     error
	results []models.Finding
}

func (f *fakeSearcher) Discover(ctx context.Context, q string, k int, exclude []string) ([]models.Finding, error) {
	f.mu.Lock()
	f.queries = append(f.queries, q)
	f.mu.Unlock()
	if f.err != nil {
		return nil, f.err
	}
	return f.results, nil
}

type fakeLLM struct {
	summarizeErr error
}

func (f *fakeLLM) AnalyzeProduct(ctx context.Context, rec models.ProductRecord) (string, models.StructuredFindings, error) {
	return "", models.StructuredFindings{}, nil
}

func (f *fakeLLM) FilterFindings(ctx context.Context, theme, productName string, findings []models.Finding) ([]models.Finding, error) {
	return findings, nil
}

func (f *fakeLLM) SummarizeReputation(ctx context.Context, productName string, findings []models.Finding) ([]string, []string, string, error) {
	if f.summarizeErr != nil {
		return nil, nil, "", f.summarizeErr
	}
	return []string{"well reviewed"}, []string{"battery complaints"}, "mixed", nil
}

func (f *fakeLLM) Answer(ctx context.Context, system string, history []models.ChatMessage, question string) (string, error) {
	return "", nil
}

func (f *fakeLLM) DecideSearch(ctx context.Context, question, productContext string) (provider.Decision, error) {
	return provider.Decision{}, nil
}

func quietLogger() *log.Logger { return log.New(io.Discard, "", 0) }

func TestAnalyzeRunsAllThemes(t *testing.T) {
	searcher := &fakeSearcher{results: []models.Finding{{Title: "review", URL: "https://x.test", Snippet: "good"}}}
	a := NewWebAnalyzer(searcher, &fakeLLM{}, quietLogger(), 5)

	findings, err := a.Analyze(context.Background(), "Test Phone", "amazon")
	if err != nil {
		t.Fatalf("analyze: %v", err)
	}
	if len(searcher.queries) != 4 {
		t.Fatalf("expected 4 themed searches, got %d", len(searcher.queries))
	}
	if findings.TotalSources != 4 {
		t.Fatalf("expected 4 total sources, got %d", findings.TotalSources)
	}
	if findings.Sentiment != "mixed" || len(findings.RedFlags) != 1 {
		t.Fatalf("summary not applied: %+v", findings)
	}
	foundReddit := false
	for _, q := range searcher.queries {
		if strings.Contains(q, "site:reddit.com") {
			foundReddit = true
		}
	}
	if !foundReddit {
		t.Fatalf("expected a reddit-scoped query, got %v", searcher.queries)
	}
}

func TestAnalyzeFailsOnlyWhenAllSearchesFail(t *testing.T) {
	searcher := &fakeSearcher{err: errors.New("rate limited")}
	a := NewWebAnalyzer(searcher, &fakeLLM{}, quietLogger(), 5)

	if _, err := a.Analyze(context.Background(), "Test Phone", "amazon"); err == nil {
		t.Fatalf("expected error when every search fails")
	}
}

func TestAnalyzeToleratesSummaryFailure(t *testing.T) {
	searcher := &fakeSearcher{results: []models.Finding{{Title: "r", URL: "u", Snippet: "s"}}}
	a := NewWebAnalyzer(searcher, &fakeLLM{summarizeErr: errors.New("model busy")}, quietLogger(), 5)

	findings, err := a.Analyze(context.Background(), "Test Phone", "amazon")
	if err != nil {
		t.Fatalf("analyze should tolerate summary failure: %v", err)
	}
	if findings.TotalSources == 0 {
		t.Fatalf("expected sources despite summary failure")
	}
	if findings.Sentiment != "" {
		t.Fatalf("expected empty sentiment, got %q", findings.Sentiment)
	}
}

func TestDisabledReturnsEmpty(t *testing.T) {
	findings, err := Disabled{}.Analyze(context.Background(), "anything", "amazon")
	if err != nil {
		t.Fatalf("disabled analyze: %v", err)
	}
	if findings.TotalSources != 0 {
		t.Fatalf("expected empty findings, got %+v", findings)
	}
}
