package orchestrator

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	analyzeRequests = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "shoplens_analyze_requests_total",
		Help: "Analyze requests by cache tier served",
	}, []string{"tier"})

	branchFailures = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "shoplens_branch_failures_total",
		Help: "Non-fatal sub-fetch failures by branch",
	}, []string{"branch"})

	analysisFailures = promauto.NewCounter(prometheus.CounterOpts{
		Name: "shoplens_analysis_failures_total",
		Help: "LLM analysis calls that failed after a usable product record",
	})

	cacheFallbacks = promauto.NewCounter(prometheus.CounterOpts{
		Name: "shoplens_cache_fallback_total",
		Help: "Requests that bypassed the cache because the store was unreachable",
	})
)
