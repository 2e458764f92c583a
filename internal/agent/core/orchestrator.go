package core

import (
	"context"
	"fmt"
	"log"
	"strings"
	"time"

	"github.com/google/uuid"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"

	"github.com/mohammad-safakhou/deepsearch/config"
	"github.com/mohammad-safakhou/deepsearch/internal/agent/telemetry"
	"github.com/mohammad-safakhou/deepsearch/internal/cache"
	"github.com/mohammad-safakhou/deepsearch/internal/helpers"
	"github.com/mohammad-safakhou/deepsearch/provider"
	"github.com/mohammad-safakhou/deepsearch/tools/web_fetch"
	"github.com/mohammad-safakhou/deepsearch/tools/web_search"
)

var orchestratorTracer trace.Tracer = otel.Tracer("deepsearch/internal/agent/core")

// Orchestrator drives the research loop: plan queries, retrieve evidence,
// evaluate sufficiency, repeat until the evaluator answers or the step budget
// runs out. Component failures are not caught here — they propagate to the
// caller, which owns retry policy and user-visible errors. Only the
// intra-retrieval partial failures are absorbed, inside the Retriever.
type Orchestrator struct {
	logger    *log.Logger
	telemetry *telemetry.Telemetry

	planner   *QueryPlanner
	retriever *Retriever
	selector  *ActionSelector
	llm       LLM
	sink      ProgressSink

	answerModel string
	stepLimit   int
	costFn      func(promptTokens, completionTokens int64, model string) float64
}

// NewOrchestrator wires an orchestrator from configuration: LLM provider,
// search provider, fetcher and summary cache are all constructed here.
func NewOrchestrator(ctx context.Context, cfg *config.Config, tel *telemetry.Telemetry, sink ProgressSink) (*Orchestrator, error) {
	llmProvider, err := provider.NewProvider(cfg.LLM)
	if err != nil {
		return nil, fmt.Errorf("failed to create LLM provider: %w", err)
	}

	searchProvider := web_search.Provider(cfg.Search.Provider)
	apiKey := cfg.Search.SerperAPIKey
	if searchProvider == web_search.BraveProvider {
		apiKey = cfg.Search.BraveAPIKey
	}
	searcher, err := web_search.NewWebSearcher(searchProvider, apiKey, cfg.Search.Timeout)
	if err != nil {
		return nil, fmt.Errorf("failed to create web searcher: %w", err)
	}

	fetcher, err := web_fetch.NewWebFetcher(web_fetch.FetcherType(cfg.Fetch.Fetcher), cfg.Fetch.TimeoutMS, cfg.Fetch.MaxChars)
	if err != nil {
		return nil, fmt.Errorf("failed to create web fetcher: %w", err)
	}

	var summaryCache cache.SummaryCache = cache.NopCache{}
	if cfg.Cache.Enabled {
		rc, err := cache.NewRedisCache(ctx, cfg.Cache.Redis)
		if err != nil {
			return nil, fmt.Errorf("failed to connect summary cache: %w", err)
		}
		summaryCache = rc
	}

	routing := cfg.LLM.Routing
	retriever := NewRetriever(searcher, fetcher, llmProvider, summaryCache, tel, RetrieverOptions{
		SearchProvider:  cfg.Search.Provider,
		SummaryModel:    routing.ModelFor("summarize"),
		ResultsPerQuery: cfg.Research.ResultsPerQuery,
		MaxConcurrent:   cfg.Research.MaxConcurrentFetches,
		BlockedDomains:  cfg.Research.BlockedDomains,
		CacheTTL:        cfg.Cache.TTL,
	})

	return NewOrchestratorWith(
		NewQueryPlanner(llmProvider, routing.ModelFor("planning"), cfg.Research.MaxQueries),
		retriever,
		NewActionSelector(llmProvider, routing.ModelFor("decision")),
		llmProvider,
		tel,
		sink,
		routing.ModelFor("answer"),
		cfg.Research.StepLimit,
		llmProvider.CalculateCost,
	), nil
}

// NewOrchestratorWith assembles an orchestrator from prebuilt components.
func NewOrchestratorWith(planner *QueryPlanner, retriever *Retriever, selector *ActionSelector, llm LLM, tel *telemetry.Telemetry, sink ProgressSink, answerModel string, stepLimit int, costFn func(int64, int64, string) float64) *Orchestrator {
	if sink == nil {
		sink = NopSink{}
	}
	if stepLimit <= 0 {
		stepLimit = 10
	}
	return &Orchestrator{
		logger:      log.New(log.Writer(), "[ORCH] ", log.LstdFlags),
		telemetry:   tel,
		planner:     planner,
		retriever:   retriever,
		selector:    selector,
		llm:         llm,
		sink:        sink,
		answerModel: answerModel,
		stepLimit:   stepLimit,
		costFn:      costFn,
	}
}

// RunResearch runs the full loop for one question and returns the final
// answer. The step budget guarantees termination even when the evaluator
// always asks for more; exhausting it still produces a best-effort answer
// flagged as final rather than an error.
func (o *Orchestrator) RunResearch(ctx context.Context, messages []Message) (result ResearchResult, err error) {
	startTime := time.Now()
	runID := uuid.NewString()
	ctx, span := orchestratorTracer.Start(ctx, "research.run",
		trace.WithAttributes(attribute.String("run.id", runID)))
	defer span.End()

	store := NewEvidenceStore(messages, o.stepLimit)
	o.logger.Printf("starting research run %s: %q", runID, store.InitialQuestion())

	defer func() {
		if o.telemetry != nil {
			o.telemetry.RecordRunEvent(store.Step(), err, time.Since(startTime))
		}
		if err != nil {
			span.RecordError(err)
			span.SetStatus(codes.Error, err.Error())
		} else {
			span.SetAttributes(
				attribute.Int("run.steps", store.Step()),
				attribute.Bool("run.final", result.Final),
			)
			span.SetStatus(codes.Ok, "completed")
		}
	}()

	for !store.ShouldStop() {
		if cerr := ctx.Err(); cerr != nil {
			return ResearchResult{}, cerr
		}

		planCtx, planSpan := orchestratorTracer.Start(ctx, "research.plan")
		plan, perr := o.planner.Plan(planCtx, store)
		if perr != nil {
			planSpan.RecordError(perr)
			planSpan.SetStatus(codes.Error, perr.Error())
			planSpan.End()
			err = fmt.Errorf("planning failed: %w", perr)
			return ResearchResult{}, err
		}
		planSpan.SetAttributes(attribute.Int("plan.query_count", len(plan.Queries)))
		planSpan.SetStatus(codes.Ok, "completed")
		planSpan.End()

		o.emit(ProgressEvent{
			RunID:   runID,
			Kind:    ProgressPlanning,
			Plan:    plan.Plan,
			Queries: plan.Queries,
		})

		retrieveCtx, retrieveSpan := orchestratorTracer.Start(ctx, "research.retrieve")
		records, rerr := o.retriever.RetrieveBatch(retrieveCtx, store, plan.Queries)
		if rerr != nil {
			retrieveSpan.RecordError(rerr)
			retrieveSpan.SetStatus(codes.Error, rerr.Error())
			retrieveSpan.End()
			err = fmt.Errorf("retrieval failed: %w", rerr)
			return ResearchResult{}, err
		}
		retrieveSpan.SetStatus(codes.Ok, "completed")
		retrieveSpan.End()

		for _, record := range records {
			if aerr := store.AppendSearchRecord(record); aerr != nil {
				err = fmt.Errorf("recording evidence failed: %w", aerr)
				return ResearchResult{}, err
			}
		}
		o.emitSources(runID, plan.Queries, records)

		decideCtx, decideSpan := orchestratorTracer.Start(ctx, "research.decide")
		action, derr := o.selector.Decide(decideCtx, store)
		if derr != nil {
			decideSpan.RecordError(derr)
			decideSpan.SetStatus(codes.Error, derr.Error())
			decideSpan.End()
			err = fmt.Errorf("sufficiency evaluation failed: %w", derr)
			return ResearchResult{}, err
		}
		decideSpan.SetAttributes(attribute.String("decision", string(action.Type)))
		decideSpan.SetStatus(codes.Ok, "completed")
		decideSpan.End()

		if action.Type == ActionContinue {
			store.SetEvaluatorFeedback(action.Feedback)
		}
		o.emit(ProgressEvent{
			RunID:  runID,
			Kind:   ProgressDecision,
			Action: &action,
		})

		store.IncrementStep()

		if action.Type == ActionAnswer {
			answer, aerr := o.generateAnswer(ctx, store, false)
			if aerr != nil {
				err = aerr
				return ResearchResult{}, err
			}
			o.logger.Printf("run %s answered after %d steps", runID, store.Step())
			result = ResearchResult{
				RunID:   runID,
				Answer:  answer,
				Final:   false,
				Steps:   store.Step(),
				Records: store.Records(),
				Elapsed: time.Since(startTime),
			}
			return result, nil
		}
	}

	// Budget exhausted: degraded-answer path, still a success.
	answer, aerr := o.generateAnswer(ctx, store, true)
	if aerr != nil {
		err = aerr
		return ResearchResult{}, err
	}
	o.logger.Printf("run %s hit step budget after %d steps, answering best-effort", runID, store.Step())
	result = ResearchResult{
		RunID:   runID,
		Answer:  answer,
		Final:   true,
		Steps:   store.Step(),
		Records: store.Records(),
		Elapsed: time.Since(startTime),
	}
	return result, nil
}

func (o *Orchestrator) emit(event ProgressEvent) {
	event.ID = uuid.NewString()
	event.Time = time.Now()
	o.sink.Emit(event)
}

// emitSources surfaces the batch's deduplicated sources to observers.
func (o *Orchestrator) emitSources(runID string, queries []string, records []SearchRecord) {
	var refs []SourceRef
	for _, record := range records {
		for _, item := range record.Results {
			refs = append(refs, SourceRef{
				Title:   item.Title,
				URL:     item.URL,
				Snippet: item.Snippet,
				Favicon: helpers.FaviconURL(item.URL),
			})
		}
	}
	if len(refs) == 0 {
		return
	}
	o.emit(ProgressEvent{
		RunID:      runID,
		Kind:       ProgressSources,
		Query:      strings.Join(queries, ", "),
		SourceRefs: refs,
	})
}
