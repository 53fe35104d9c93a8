// Package service orchestrates the query pipeline: cache lookup, query
// rewriting, the retrieval backend call, result curation, quality gating,
// and the write-through into the result cache.
package service

import (
	"context"
	"fmt"
	"log/slog"
	"math/rand"
	"strings"
	"time"

	"github.com/ksato/raggate/internal/cache"
	"github.com/ksato/raggate/internal/curate"
	"github.com/ksato/raggate/internal/fingerprint"
	"github.com/ksato/raggate/internal/gate"
	"github.com/ksato/raggate/internal/retrieval"
	"github.com/ksato/raggate/internal/rewrite"
)

// DefaultTopK is the requested result count when the caller does not set one.
const DefaultTopK = 5

// Default TTLs for cached responses. Complex queries churn faster because
// their results are tied to a specific lexical context, so they get the
// shorter TTL.
const (
	DefaultSimpleTTL  = 600 * time.Second
	DefaultComplexTTL = 300 * time.Second

	// complexWordThreshold: queries with more whitespace-delimited words
	// than this use the complex TTL.
	complexWordThreshold = 10
)

// fallbackMessages are shown instead of a low-confidence LLM answer.
var fallbackMessages = []string{
	"I couldn't find enough relevant information to answer that confidently.",
	"The available documents don't cover this question well enough to answer it.",
	"I don't have sufficiently relevant sources to give a reliable answer here.",
}

// SearchResponse is the curated, gated answer to a search request.
type SearchResponse struct {
	Query            string          `json:"query"`
	Results          []curate.Result `json:"results"`
	TotalResults     int             `json:"total_results"`
	RetrievalGated   bool            `json:"retrieval_gated"`
	GatingReason     string          `json:"gating_reason,omitempty"`
	ScoreRange       string          `json:"similarity_score_range"`
	ProcessingTimeMS int64           `json:"processing_time_ms"`
}

// AnswerResponse is a SearchResponse plus an LLM-written answer.
type AnswerResponse struct {
	SearchResponse
	Answer string `json:"answer"`
}

// QueryEvent is the usage record handed to the metrics collaborators after
// every processed query.
type QueryEvent struct {
	Query       string
	UserID      string
	ResultCount int
	Gated       bool
	CacheHit    bool
	LatencyMS   int64
	CreatedAt   time.Time
}

// Recorder receives usage events. Implementations must not fail the
// pipeline; errors are theirs to log.
type Recorder interface {
	Record(ctx context.Context, ev QueryEvent)
}

// NopRecorder discards all events.
type NopRecorder struct{}

func (NopRecorder) Record(context.Context, QueryEvent) {}

// MultiRecorder fans an event out to several recorders.
func MultiRecorder(recorders ...Recorder) Recorder {
	return multiRecorder(recorders)
}

type multiRecorder []Recorder

func (m multiRecorder) Record(ctx context.Context, ev QueryEvent) {
	for _, r := range m {
		r.Record(ctx, ev)
	}
}

// QueryService runs the retrieval-result processing pipeline.
type QueryService struct {
	retriever retrieval.Retriever
	cache     *cache.Store
	gate      gate.Gate
	recorder  Recorder
	logger    *slog.Logger

	simpleTTL  time.Duration
	complexTTL time.Duration

	// pickIndex selects a fallback message; injectable so tests are
	// deterministic.
	pickIndex func(n int) int
}

// Option is a functional option for configuring QueryService.
type Option func(*QueryService)

// WithRecorder sets the usage event recorder.
func WithRecorder(r Recorder) Option {
	return func(s *QueryService) {
		s.recorder = r
	}
}

// WithGate overrides the default quality gate.
func WithGate(g gate.Gate) Option {
	return func(s *QueryService) {
		s.gate = g
	}
}

// WithLogger sets the service logger.
func WithLogger(l *slog.Logger) Option {
	return func(s *QueryService) {
		s.logger = l
	}
}

// WithTTLs overrides the cache TTLs for simple and complex queries.
func WithTTLs(simple, complex time.Duration) Option {
	return func(s *QueryService) {
		s.simpleTTL = simple
		s.complexTTL = complex
	}
}

// WithMessagePicker sets the fallback message selector.
func WithMessagePicker(pick func(n int) int) Option {
	return func(s *QueryService) {
		s.pickIndex = pick
	}
}

// NewQueryService creates the pipeline around a retriever and a cache.
func NewQueryService(retriever retrieval.Retriever, store *cache.Store, opts ...Option) *QueryService {
	s := &QueryService{
		retriever:  retriever,
		cache:      store,
		gate:       gate.New(),
		recorder:   NopRecorder{},
		logger:     slog.Default(),
		simpleTTL:  DefaultSimpleTTL,
		complexTTL: DefaultComplexTTL,
		pickIndex:  rand.Intn,
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// ProcessSearch answers a search request: cached response if present,
// otherwise rewrite, retrieve, curate, gate, and cache on a passing verdict.
func (s *QueryService) ProcessSearch(ctx context.Context, query, userID string, topK int) (*SearchResponse, error) {
	start := time.Now()
	if topK <= 0 {
		topK = DefaultTopK
	}

	key := fingerprint.QueryKey(query, topK)
	if v, ok := s.cache.Get(key); ok {
		if cached, ok := v.(*SearchResponse); ok {
			s.record(ctx, query, userID, cached.TotalResults, cached.RetrievalGated, true, 0)
			return cached, nil
		}
		// Unexpected payload type; fall through as a miss.
		s.logger.Warn("cache entry has unexpected type, treating as miss", "key", key)
	}

	plan := rewrite.PrepareSearch(query, topK)

	backendResp, err := s.retriever.Search(ctx, plan.SearchQuery, userID, plan.EffectiveTopK)
	if err != nil {
		return nil, fmt.Errorf("retrieval search: %w", err)
	}

	curated := curate.Curate(backendResp.Results, query)
	if len(curated) > topK {
		curated = curated[:topK]
	}

	verdict := s.gate.Evaluate(curated)
	elapsed := time.Since(start).Milliseconds()

	if !verdict.IsValid {
		s.logger.Info("query gated", "reason", verdict.Reason, "query_terms", plan.Complexity.TermCount)
		resp := &SearchResponse{
			Query:            query,
			Results:          []curate.Result{},
			TotalResults:     0,
			RetrievalGated:   true,
			GatingReason:     verdict.Reason,
			ScoreRange:       scoreRange(curated),
			ProcessingTimeMS: elapsed,
		}
		s.record(ctx, query, userID, 0, true, false, elapsed)
		return resp, nil
	}

	resp := &SearchResponse{
		Query:            query,
		Results:          curated,
		TotalResults:     len(curated),
		RetrievalGated:   false,
		ScoreRange:       scoreRange(curated),
		ProcessingTimeMS: elapsed,
	}

	s.cache.Set(key, resp, s.ttlFor(query))
	s.record(ctx, query, userID, len(curated), false, false, elapsed)
	return resp, nil
}

// ProcessLLMQuery answers a question via the backend's generate capability,
// with the same curation, gating, and caching as ProcessSearch. A gated
// request returns a fallback message instead of the generated answer.
func (s *QueryService) ProcessLLMQuery(ctx context.Context, query, userID string, topK int) (*AnswerResponse, error) {
	start := time.Now()
	if topK <= 0 {
		topK = DefaultTopK
	}

	key := "llm:" + fingerprint.QueryKey(query, topK)
	if v, ok := s.cache.Get(key); ok {
		if cached, ok := v.(*AnswerResponse); ok {
			s.record(ctx, query, userID, cached.TotalResults, cached.RetrievalGated, true, 0)
			return cached, nil
		}
		s.logger.Warn("cache entry has unexpected type, treating as miss", "key", key)
	}

	plan := rewrite.PrepareSearch(query, topK)

	backendResp, err := s.retriever.Generate(ctx, plan.SearchQuery, userID, plan.EffectiveTopK)
	if err != nil {
		return nil, fmt.Errorf("retrieval generate: %w", err)
	}

	curated := curate.Curate(backendResp.Sources, query)
	if len(curated) > topK {
		curated = curated[:topK]
	}

	verdict := s.gate.Evaluate(curated)
	elapsed := time.Since(start).Milliseconds()

	if !verdict.IsValid {
		s.logger.Info("llm query gated", "reason", verdict.Reason)
		resp := &AnswerResponse{
			SearchResponse: SearchResponse{
				Query:            query,
				Results:          []curate.Result{},
				TotalResults:     0,
				RetrievalGated:   true,
				GatingReason:     verdict.Reason,
				ScoreRange:       scoreRange(curated),
				ProcessingTimeMS: elapsed,
			},
			Answer: s.fallbackMessage(),
		}
		s.record(ctx, query, userID, 0, true, false, elapsed)
		return resp, nil
	}

	resp := &AnswerResponse{
		SearchResponse: SearchResponse{
			Query:            query,
			Results:          curated,
			TotalResults:     len(curated),
			RetrievalGated:   false,
			ScoreRange:       scoreRange(curated),
			ProcessingTimeMS: elapsed,
		},
		Answer: backendResp.Answer,
	}

	s.cache.Set(key, resp, s.ttlFor(query))
	s.record(ctx, query, userID, len(curated), false, false, elapsed)
	return resp, nil
}

// Healthy reports whether the retrieval backend is reachable.
func (s *QueryService) Healthy(ctx context.Context) bool {
	return s.retriever.Health(ctx)
}

// CacheStats exposes cache observability counters.
func (s *QueryService) CacheStats() cache.Stats {
	return s.cache.Stats()
}

// FlushCache invalidates every cached response and returns how many were
// removed.
func (s *QueryService) FlushCache() int {
	return s.cache.Flush()
}

// ttlFor picks the cache TTL from the original query's word count.
func (s *QueryService) ttlFor(query string) time.Duration {
	if len(strings.Fields(query)) > complexWordThreshold {
		return s.complexTTL
	}
	return s.simpleTTL
}

func (s *QueryService) fallbackMessage() string {
	idx := s.pickIndex(len(fallbackMessages))
	if idx < 0 || idx >= len(fallbackMessages) {
		idx = 0
	}
	return fallbackMessages[idx]
}

// scoreRange formats the span of curated scores for the response.
func scoreRange(results []curate.Result) string {
	if len(results) == 0 {
		return "n/a"
	}
	high, low := results[0].Score, results[0].Score
	for _, r := range results {
		if r.Score > high {
			high = r.Score
		}
		if r.Score < low {
			low = r.Score
		}
	}
	return fmt.Sprintf("%.3f-%.3f", high, low)
}

func (s *QueryService) record(ctx context.Context, query, userID string, count int, gated, cacheHit bool, latencyMS int64) {
	s.recorder.Record(ctx, QueryEvent{
		Query:       query,
		UserID:      userID,
		ResultCount: count,
		Gated:       gated,
		CacheHit:    cacheHit,
		LatencyMS:   latencyMS,
		CreatedAt:   time.Now(),
	})
}
