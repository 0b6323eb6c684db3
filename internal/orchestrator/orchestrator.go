package orchestrator

import (
	"context"
	"errors"
	"fmt"
	"log"
	"sync"
	"time"

	"golang.org/x/sync/singleflight"

	"github.com/shoplens/shoplens/internal/identity"
	"github.com/shoplens/shoplens/models"
	"github.com/shoplens/shoplens/provider"
	"github.com/shoplens/shoplens/repository"
	"github.com/shoplens/shoplens/tools/pricesearch"
	"github.com/shoplens/shoplens/tools/reputation"
	"github.com/shoplens/shoplens/tools/scraper"
)

// Tier names the cache path a request was served from.
type Tier string

const (
	TierFullyCached Tier = "fully_cached" // analysis cached, no collaborator calls
	TierDataCached  Tier = "data_cached"  // product record cached, analyzer only
	TierCold        Tier = "cold"         // full scrape + fan-out + analysis
)

// Branch names used for degradation reporting and metrics.
const (
	BranchPriceComparison = "price_comparison"
	BranchWebSearch       = "web_search"
)

// Result is the outcome of one analyze request. AnalysisErr is set (and
// ReportText empty) when the product data pipeline succeeded but the analyzer
// did not: the caller still gets the record, and the next request lands on
// the data-cached tier.
type Result struct {
	Tier        Tier
	Record      models.ProductRecord
	ReportText  string
	Findings    models.StructuredFindings
	Degraded    []string
	AnalysisErr error
}

// Orchestrator composes the scraper, the two search collaborators, the
// analyzer and the cache into the tiered analysis pipeline. It owns the only
// write path to product and analysis records.
type Orchestrator struct {
	cache      repository.ProductCache
	scraper    scraper.Scraper
	prices     pricesearch.PriceSearcher
	reputation reputation.Analyzer
	llm        provider.Provider
	logger     *log.Logger

	productTTL  time.Duration
	analysisTTL time.Duration
	callTimeout time.Duration

	// collapses concurrent cold runs for the same key
	group singleflight.Group
}

func New(cache repository.ProductCache, sc scraper.Scraper, prices pricesearch.PriceSearcher, rep reputation.Analyzer, llm provider.Provider, logger *log.Logger, productTTL, analysisTTL, callTimeout time.Duration) *Orchestrator {
	if logger == nil {
		logger = log.New(log.Writer(), "[ORCH] ", log.LstdFlags)
	}
	if productTTL <= 0 {
		productTTL = 24 * time.Hour
	}
	if analysisTTL <= 0 {
		analysisTTL = productTTL
	}
	if callTimeout <= 0 {
		callTimeout = 60 * time.Second
	}
	return &Orchestrator{
		cache:       cache,
		scraper:     sc,
		prices:      prices,
		reputation:  rep,
		llm:         llm,
		logger:      logger,
		productTTL:  productTTL,
		analysisTTL: analysisTTL,
		callTimeout: callTimeout,
	}
}

// Analyze resolves the product key for url, picks the cheapest tier that can
// serve it and returns the report plus the underlying record. Concurrent
// requests for the same key share one run; the first caller's options win
// for that shared run.
func (o *Orchestrator) Analyze(ctx context.Context, rawURL string, opts models.AnalyzeOptions) (Result, error) {
	key, err := identity.Resolve(rawURL)
	if err != nil {
		return Result{}, err
	}

	v, err, _ := o.group.Do(key.String(), func() (interface{}, error) {
		return o.analyzeKey(ctx, key, rawURL, opts)
	})
	if err != nil {
		return Result{}, err
	}
	return v.(Result), nil
}

func (o *Orchestrator) analyzeKey(ctx context.Context, key models.ProductKey, rawURL string, opts models.AnalyzeOptions) (Result, error) {
	cacheHealthy := true

	analysis, err := o.cache.GetAnalysis(ctx, key)
	switch {
	case err == nil:
		rec, rerr := o.cache.GetProduct(ctx, key)
		switch {
		case rerr == nil:
			analyzeRequests.WithLabelValues(string(TierFullyCached)).Inc()
			return Result{
				Tier:       TierFullyCached,
				Record:     rec,
				ReportText: analysis.ReportText,
				Findings:   analysis.Findings,
			}, nil
		case errors.Is(rerr, models.ErrNotCached):
			// An analysis whose source record expired is stale. Discard it
			// and rebuild from scratch rather than serving an orphan report.
			o.logger.Printf("analysis for %s has no product record, rebuilding", key)
		default:
			cacheHealthy = false
			cacheFallbacks.Inc()
			o.logger.Printf("cache unavailable, falling back to cold run for %s: %v", key, rerr)
		}
	case errors.Is(err, models.ErrNotCached):
		// fall through to the product-record lookup
	default:
		cacheHealthy = false
		cacheFallbacks.Inc()
		o.logger.Printf("cache unavailable, falling back to cold run for %s: %v", key, err)
	}

	if cacheHealthy {
		rec, err := o.cache.GetProduct(ctx, key)
		switch {
		case err == nil:
			analyzeRequests.WithLabelValues(string(TierDataCached)).Inc()
			return o.analyzeRecord(ctx, rec, TierDataCached, nil), nil
		case errors.Is(err, models.ErrNotCached):
		default:
			cacheHealthy = false
			cacheFallbacks.Inc()
			o.logger.Printf("cache unavailable, falling back to cold run for %s: %v", key, err)
		}
	}

	rec, degraded, err := o.coldRun(ctx, key, rawURL, opts)
	if err != nil {
		return Result{}, err
	}

	// Product data is written before the analyzer runs: if analysis fails,
	// the next request still lands on the data-cached tier.
	if werr := o.cache.SetProduct(ctx, rec, o.productTTL); werr != nil {
		o.logger.Printf("product write-back failed for %s: %v", key, werr)
	}

	analyzeRequests.WithLabelValues(string(TierCold)).Inc()
	return o.analyzeRecord(ctx, rec, TierCold, degraded), nil
}

// coldRun executes the full pipeline: scrape, fan out the optional searches,
// merge. Only the scrape is fatal; either search branch degrades to empty.
func (o *Orchestrator) coldRun(ctx context.Context, key models.ProductKey, rawURL string, opts models.AnalyzeOptions) (models.ProductRecord, []string, error) {
	sctx, cancel := context.WithTimeout(ctx, o.callTimeout)
	attrs, err := o.scraper.Scrape(sctx, rawURL, key)
	cancel()
	if err != nil {
		return models.ProductRecord{}, nil, fmt.Errorf("%w: %v", models.ErrScrapeFailed, err)
	}

	var (
		listings []models.Listing
		listErr  error
		rep      models.ReputationFindings
		repErr   error
		wg       sync.WaitGroup
	)
	// Fan-out of 2: each branch writes only its own variables and the reads
	// below happen after Wait, so no locking is needed.
	if opts.IncludePriceComparison {
		wg.Add(1)
		go func() {
			defer wg.Done()
			bctx, cancel := context.WithTimeout(ctx, o.callTimeout)
			defer cancel()
			listings, listErr = o.prices.Compare(bctx, attrs.Title, key.Platform)
		}()
	}
	if opts.IncludeWebSearch {
		wg.Add(1)
		go func() {
			defer wg.Done()
			bctx, cancel := context.WithTimeout(ctx, o.callTimeout)
			defer cancel()
			rep, repErr = o.reputation.Analyze(bctx, attrs.Title, key.Platform)
		}()
	}
	wg.Wait()

	var degraded []string
	if listErr != nil {
		branchFailures.WithLabelValues(BranchPriceComparison).Inc()
		o.logger.Printf("price comparison failed for %s: %v", key, listErr)
		listings = nil
		degraded = append(degraded, BranchPriceComparison)
	}
	if repErr != nil {
		branchFailures.WithLabelValues(BranchWebSearch).Inc()
		o.logger.Printf("web search failed for %s: %v", key, repErr)
		rep = models.ReputationFindings{}
		degraded = append(degraded, BranchWebSearch)
	}

	return merge(key, attrs, listings, rep, time.Now().UTC()), degraded, nil
}

// analyzeRecord runs the analyzer over a merged record and caches the result.
// Analyzer failure is a partial success: data is available, report is not.
func (o *Orchestrator) analyzeRecord(ctx context.Context, rec models.ProductRecord, tier Tier, degraded []string) Result {
	actx, cancel := context.WithTimeout(ctx, o.callTimeout)
	report, findings, err := o.llm.AnalyzeProduct(actx, rec)
	cancel()
	if err != nil {
		analysisFailures.Inc()
		o.logger.Printf("analysis failed for %s: %v", rec.Key, err)
		return Result{
			Tier:        tier,
			Record:      rec,
			Degraded:    degraded,
			AnalysisErr: fmt.Errorf("%w: %v", models.ErrAnalysisFailed, err),
		}
	}

	analysis := models.AnalysisRecord{
		Key:         rec.Key,
		ReportText:  report,
		Findings:    findings,
		GeneratedAt: time.Now().UTC(),
	}
	if werr := o.cache.SetAnalysis(ctx, analysis, o.analysisTTL); werr != nil {
		o.logger.Printf("analysis write-back failed for %s: %v", rec.Key, werr)
	}

	return Result{
		Tier:       tier,
		Record:     rec,
		ReportText: report,
		Findings:   findings,
		Degraded:   degraded,
	}
}
