package telemetry

import (
	"fmt"
	"log"
	"net/http"
	"sync"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/mohammad-safakhou/deepsearch/config"
)

// Telemetry provides monitoring and cost tracking for research runs
type Telemetry struct {
	config config.TelemetryConfig
	logger *log.Logger

	registry *prometheus.Registry

	llmRequests  *prometheus.CounterVec
	llmTokens    *prometheus.CounterVec
	searches     *prometheus.CounterVec
	scrapes      *prometheus.CounterVec
	summaryCache *prometheus.CounterVec
	runSteps     prometheus.Histogram
	runs         *prometheus.CounterVec

	costTracker *CostTracker
}

// CostTracker tracks LLM costs across models and operations
type CostTracker struct {
	mu sync.RWMutex

	ModelCosts     map[string]float64 // model -> cost
	OperationCosts map[string]float64 // operation -> cost
	TotalCost      float64
	TotalTokens    int64
}

// NewTelemetry creates a new telemetry instance
func NewTelemetry(cfg config.TelemetryConfig) *Telemetry {
	reg := prometheus.NewRegistry()
	t := &Telemetry{
		config:   cfg,
		logger:   log.New(log.Writer(), "[TELEMETRY] ", log.LstdFlags),
		registry: reg,
		llmRequests: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "deepsearch_llm_requests_total",
			Help: "LLM calls by model and operation",
		}, []string{"model", "operation"}),
		llmTokens: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "deepsearch_llm_tokens_total",
			Help: "LLM tokens by model and direction",
		}, []string{"model", "direction"}),
		searches: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "deepsearch_searches_total",
			Help: "Web searches by provider and outcome",
		}, []string{"provider", "outcome"}),
		scrapes: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "deepsearch_scrapes_total",
			Help: "Page scrapes by outcome",
		}, []string{"outcome"}),
		summaryCache: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "deepsearch_summary_cache_total",
			Help: "Summary cache lookups by outcome",
		}, []string{"outcome"}),
		runSteps: prometheus.NewHistogram(prometheus.HistogramOpts{
			Name:    "deepsearch_run_steps",
			Help:    "Loop iterations taken per research run",
			Buckets: prometheus.LinearBuckets(1, 1, 10),
		}),
		runs: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "deepsearch_runs_total",
			Help: "Research runs by outcome",
		}, []string{"outcome"}),
		costTracker: &CostTracker{
			ModelCosts:     make(map[string]float64),
			OperationCosts: make(map[string]float64),
		},
	}
	reg.MustRegister(t.llmRequests, t.llmTokens, t.searches, t.scrapes, t.summaryCache, t.runSteps, t.runs)
	return t
}

// RecordLLMEvent records one model call with its token usage and cost.
func (t *Telemetry) RecordLLMEvent(model, operation string, promptTokens, completionTokens int64, cost float64) {
	t.llmRequests.WithLabelValues(model, operation).Inc()
	t.llmTokens.WithLabelValues(model, "prompt").Add(float64(promptTokens))
	t.llmTokens.WithLabelValues(model, "completion").Add(float64(completionTokens))

	if !t.config.CostTracking {
		return
	}
	t.costTracker.mu.Lock()
	t.costTracker.ModelCosts[model] += cost
	t.costTracker.OperationCosts[operation] += cost
	t.costTracker.TotalCost += cost
	t.costTracker.TotalTokens += promptTokens + completionTokens
	t.costTracker.mu.Unlock()
}

// RecordSearchEvent records one provider search.
func (t *Telemetry) RecordSearchEvent(provider string, results int, err error) {
	outcome := "ok"
	if err != nil {
		outcome = "error"
	}
	t.searches.WithLabelValues(provider, outcome).Inc()
	if err != nil {
		t.logger.Printf("search via %s failed: %v", provider, err)
	}
}

// RecordScrapeEvent records one page scrape outcome.
func (t *Telemetry) RecordScrapeEvent(ok bool) {
	outcome := "ok"
	if !ok {
		outcome = "failed"
	}
	t.scrapes.WithLabelValues(outcome).Inc()
}

// RecordCacheEvent records a summary cache lookup outcome.
func (t *Telemetry) RecordCacheEvent(hit bool) {
	outcome := "miss"
	if hit {
		outcome = "hit"
	}
	t.summaryCache.WithLabelValues(outcome).Inc()
}

// RecordRunEvent records a completed (or failed) research run.
func (t *Telemetry) RecordRunEvent(steps int, err error, elapsed time.Duration) {
	outcome := "ok"
	if err != nil {
		outcome = "error"
	}
	t.runs.WithLabelValues(outcome).Inc()
	if err == nil {
		t.runSteps.Observe(float64(steps))
	}
	t.logger.Printf("run finished: steps=%d outcome=%s elapsed=%v", steps, outcome, elapsed)
}

// TotalCost returns the accumulated LLM cost for this process.
func (t *Telemetry) TotalCost() float64 {
	t.costTracker.mu.RLock()
	defer t.costTracker.mu.RUnlock()
	return t.costTracker.TotalCost
}

// Handler exposes the prometheus metrics endpoint.
func (t *Telemetry) Handler() http.Handler {
	return promhttp.HandlerFor(t.registry, promhttp.HandlerOpts{})
}

// StartMetricsServer serves /metrics on the configured port. No-op when
// telemetry is disabled.
func (t *Telemetry) StartMetricsServer() {
	if !t.config.Enabled {
		return
	}
	mux := http.NewServeMux()
	mux.Handle("/metrics", t.Handler())
	addr := fmt.Sprintf(":%d", t.config.MetricsPort)
	go func() {
		if err := http.ListenAndServe(addr, mux); err != nil {
			t.logger.Printf("metrics server stopped: %v", err)
		}
	}()
	t.logger.Printf("metrics available on %s/metrics", addr)
}
