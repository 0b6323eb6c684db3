package server

import (
	"context"
	"fmt"
	"log"

	"github.com/shoplens/shoplens/config"
	"github.com/shoplens/shoplens/internal/chat"
	"github.com/shoplens/shoplens/internal/orchestrator"
	"github.com/shoplens/shoplens/provider"
	"github.com/shoplens/shoplens/repository"
	"github.com/shoplens/shoplens/tools/pricesearch"
	"github.com/shoplens/shoplens/tools/reputation"
	"github.com/shoplens/shoplens/tools/scraper"
	"github.com/shoplens/shoplens/tools/web_search"
)

// Build wires the full analysis stack from config: cache, scraper, search
// collaborators, LLM, orchestrator and chat manager. It is shared between the
// HTTP server and the one-shot CLI.
func Build(ctx context.Context, cfg *config.Config) (*orchestrator.Orchestrator, *chat.Manager, error) {
	cache, err := repository.NewProductCache(ctx, repository.CacheTypeRedis, cfg.Storage.Redis)
	if err != nil {
		return nil, nil, fmt.Errorf("cache: %w", err)
	}

	sc, err := scraper.NewScraper(scraper.FetcherType(cfg.Scraper.Type), cfg.Scraper.Timeout, cfg.Scraper.MaxChars)
	if err != nil {
		return nil, nil, fmt.Errorf("scraper: %w", err)
	}

	llm, err := provider.NewProvider(provider.Client(cfg.LLM.Provider), cfg.LLM)
	if err != nil {
		return nil, nil, fmt.Errorf("llm: %w", err)
	}

	prices, err := pricesearch.NewPriceSearcher(
		pricesearch.SerperProvider, cfg.Search.SerperAPIKey, cfg.Search.Location, cfg.Search.MaxResults)
	if err != nil {
		return nil, nil, fmt.Errorf("price search: %w", err)
	}

	searcher, rep := buildReputation(cfg, llm)

	orchLogger := log.New(log.Writer(), "[ORCH] ", log.LstdFlags)
	orch := orchestrator.New(cache, sc, prices, rep, llm, orchLogger,
		cfg.Cache.ProductTTL, cfg.Cache.AnalysisTTL, cfg.General.DefaultTimeout)

	chatLogger := log.New(log.Writer(), "[CHAT] ", log.LstdFlags)
	cm := chat.New(cache, llm, searcher, chatLogger)

	return orch, cm, nil
}

// buildReputation picks the web-search backend. A missing API key disables
// the reputation branch rather than failing startup.
func buildReputation(cfg *config.Config, llm provider.Provider) (web_search.WebSearcher, reputation.Analyzer) {
	p := web_search.Provider(cfg.Search.Provider)
	key := cfg.Search.SerperAPIKey
	if p == web_search.BraveProvider {
		key = cfg.Search.BraveAPIKey
	}
	if key == "" {
		return nil, reputation.Disabled{}
	}
	searcher, err := web_search.NewWebSearcher(p, key)
	if err != nil {
		return nil, reputation.Disabled{}
	}
	repLogger := log.New(log.Writer(), "[REPUTATION] ", log.LstdFlags)
	return searcher, reputation.NewWebAnalyzer(searcher, llm, repLogger, cfg.Search.MaxResults)
}
