package reputation

import (
	"context"
	"fmt"
	"log"
	"sync"
	"time"

	"github.com/shoplens/shoplens/models"
	"github.com/shoplens/shoplens/provider"
	"github.com/shoplens/shoplens/tools/web_search"
)

// Analyzer is the reputation-search collaborator: it gathers external
// reviews, discussions and news for a product and AI-filters them for
// relevance.
type Analyzer interface {
	Analyze(ctx context.Context, productName, sourcePlatform string) (models.ReputationFindings, error)
}

// Disabled is the no-op variant used when web search is not configured.
type Disabled struct{}

func (Disabled) Analyze(ctx context.Context, productName, sourcePlatform string) (models.ReputationFindings, error) {
	return models.ReputationFindings{}, nil
}

// WebAnalyzer fans out themed web searches concurrently and filters the
// snippets through the LLM before summarising findings and red flags.
type WebAnalyzer struct {
	searcher   web_search.WebSearcher
	llm        provider.Provider
	logger     *log.Logger
	maxResults int
}

func NewWebAnalyzer(searcher web_search.WebSearcher, llm provider.Provider, logger *log.Logger, maxResults int) *WebAnalyzer {
	if logger == nil {
		logger = log.New(log.Writer(), "[REPUTATION] ", log.LstdFlags)
	}
	if maxResults <= 0 {
		maxResults = 10
	}
	return &WebAnalyzer{searcher: searcher, llm: llm, logger: logger, maxResults: maxResults}
}

type theme struct {
	name     string
	query    string
	filtered bool // whether results go through the LLM relevance filter
}

func (a *WebAnalyzer) Analyze(ctx context.Context, productName, sourcePlatform string) (models.ReputationFindings, error) {
	themes := []theme{
		{name: "reviews", query: fmt.Sprintf("Reviews of %s", productName), filtered: true},
		{name: "issues", query: fmt.Sprintf("%s problems issues complaints", productName)},
		{name: "reddit", query: fmt.Sprintf("%s site:reddit.com", productName), filtered: true},
		{name: "news", query: fmt.Sprintf("%s news launch announcement", productName), filtered: true},
	}

	// Each goroutine writes only its own slot; results are read after Wait.
	results := make([][]models.Finding, len(themes))
	errs := make([]error, len(themes))
	var wg sync.WaitGroup
	for i, th := range themes {
		wg.Add(1)
		go func(i int, th theme) {
			defer wg.Done()
			found, err := a.searcher.Discover(ctx, th.query, a.maxResults, []string{sourcePlatform})
			if err != nil {
				errs[i] = err
				return
			}
			if th.filtered {
				if kept, ferr := a.llm.FilterFindings(ctx, th.name, productName, found); ferr == nil {
					found = kept
				} else {
					a.logger.Printf("filter %s: %v", th.name, ferr)
				}
			}
			results[i] = found
		}(i, th)
	}
	wg.Wait()

	failed := 0
	for i, err := range errs {
		if err != nil {
			failed++
			a.logger.Printf("search %s: %v", themes[i].name, err)
		}
	}
	if failed == len(themes) {
		return models.ReputationFindings{}, fmt.Errorf("all reputation searches failed, last: %w", errs[len(errs)-1])
	}

	findings := models.ReputationFindings{
		ExternalReviews:   results[0],
		IssueDiscussions:  results[1],
		RedditDiscussions: results[2],
		NewsArticles:      results[3],
		FetchedAt:         time.Now().UTC(),
	}
	findings.TotalSources = len(results[0]) + len(results[1]) + len(results[2]) + len(results[3])

	all := make([]models.Finding, 0, findings.TotalSources)
	for _, r := range results {
		all = append(all, r...)
	}
	keyFindings, redFlags, sentiment, err := a.llm.SummarizeReputation(ctx, productName, all)
	if err != nil {
		// sources alone are still useful; the summary is best-effort
		a.logger.Printf("summarize reputation: %v", err)
	} else {
		findings.KeyFindings = keyFindings
		findings.RedFlags = redFlags
		findings.Sentiment = sentiment
	}
	return findings, nil
}
