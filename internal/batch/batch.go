// Package batch runs grammar analysis for many sentences at once.
//
// A [Coordinator] splits a request into chunks of at most
// [grammar.MaxBatchSentences] sentences, sends one model call per chunk and
// runs chunks concurrently. Every sentence ends up with an analysis: a chunk
// whose call fails or whose reply cannot be parsed degrades to
// [grammar.Fallback] for each of its sentences, and a sentence the reply
// leaves out degrades on its own. The only error [Coordinator.Analyze]
// returns is cancellation of the caller's context.
package batch

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"errors"
	"fmt"
	"strings"
	"time"

	"golang.org/x/sync/errgroup"

	"github.com/MrWong99/glyphcard/internal/cache"
	"github.com/MrWong99/glyphcard/internal/grammar"
	"github.com/MrWong99/glyphcard/internal/observe"
	"github.com/MrWong99/glyphcard/pkg/provider/llm"
	"github.com/MrWong99/glyphcard/pkg/types"
)

const (
	// DefaultChunkSize is the number of sentences per model call.
	DefaultChunkSize = grammar.MaxBatchSentences

	// DefaultConcurrency is the number of chunks in flight at once.
	DefaultConcurrency = 4

	// DefaultCallTimeout bounds a single model call.
	DefaultCallTimeout = 90 * time.Second

	// DefaultMaxTokens is the completion budget of one chunk call.
	DefaultMaxTokens = 4096

	// DefaultTemperature is the sampling temperature of chunk calls.
	DefaultTemperature = 0.2

	// DefaultCacheTTL is how long successful analyses are cached.
	DefaultCacheTTL = 7 * 24 * time.Hour
)

// ErrNoProvider fails every chunk when no model is configured, so each
// sentence gets the fallback analysis.
var ErrNoProvider = errors.New("batch: no llm provider configured")

const systemPrompt = "You are a precise grammar analysis engine. You reply with a single JSON object and nothing else."

// Request describes one analysis job.
type Request struct {
	// Sentences are analysed independently; output order matches.
	Sentences []string

	// LanguageCode identifies the sentences' language in cache keys.
	LanguageCode string

	// Language is the display name used in prompts.
	Language string

	TargetWord     string
	Complexity     grammar.Complexity
	NativeLanguage string
}

// Option is a functional option for configuring a [Coordinator].
type Option func(*Coordinator)

// WithChunkSize sets the number of sentences per model call, clamped to
// [1, grammar.MaxBatchSentences]. Default: 8.
func WithChunkSize(n int) Option {
	return func(c *Coordinator) { c.chunkSize = clampChunk(n) }
}

// WithConcurrency sets the number of chunk calls in flight. Values below 1
// mean 1. Default: 4.
func WithConcurrency(n int) Option {
	return func(c *Coordinator) { c.concurrency = max(n, 1) }
}

// WithCallTimeout bounds each model call. Default: 90s.
func WithCallTimeout(d time.Duration) Option {
	return func(c *Coordinator) {
		if d > 0 {
			c.callTimeout = d
		}
	}
}

// WithMaxTokens sets the completion budget per chunk call. The budget is
// further clamped to the model's output ceiling. Default: 4096.
func WithMaxTokens(n int) Option {
	return func(c *Coordinator) {
		if n > 0 {
			c.maxTokens = n
		}
	}
}

// WithTemperature sets the sampling temperature. Default: 0.2.
func WithTemperature(t float64) Option {
	return func(c *Coordinator) { c.temperature = t }
}

// WithCache caches successful per-sentence analyses in raw for ttl.
func WithCache(raw cache.Cache, ttl time.Duration) Option {
	return func(c *Coordinator) {
		if ttl <= 0 {
			ttl = DefaultCacheTTL
		}
		c.cache = cache.NewTyped[grammar.SentenceAnalysis](raw, ttl)
	}
}

// WithMetrics sets the metrics sink. Default: [observe.DefaultMetrics].
func WithMetrics(m *observe.Metrics) Option {
	return func(c *Coordinator) { c.metrics = m }
}

// WithProviderName sets the provider label used in metrics. Default: "llm".
func WithProviderName(name string) Option {
	return func(c *Coordinator) { c.providerName = name }
}

// Coordinator schedules analysis chunks against an [llm.Provider]. It holds
// no per-job state and is safe for concurrent use.
type Coordinator struct {
	llm          llm.Provider
	chunkSize    int
	concurrency  int
	callTimeout  time.Duration
	maxTokens    int
	temperature  float64
	cache        *cache.Typed[grammar.SentenceAnalysis]
	metrics      *observe.Metrics
	providerName string
}

// New returns a [Coordinator] that sends chunk prompts to provider. A nil
// provider yields fallback analyses only.
func New(provider llm.Provider, opts ...Option) *Coordinator {
	c := &Coordinator{
		llm:          provider,
		chunkSize:    DefaultChunkSize,
		concurrency:  DefaultConcurrency,
		callTimeout:  DefaultCallTimeout,
		maxTokens:    DefaultMaxTokens,
		temperature:  DefaultTemperature,
		providerName: "llm",
	}
	for _, o := range opts {
		o(c)
	}
	if c.cache == nil {
		c.cache = cache.NewTyped[grammar.SentenceAnalysis](cache.Nop{}, 0)
	}
	if c.metrics == nil {
		c.metrics = observe.DefaultMetrics()
	}
	return c
}

func clampChunk(n int) int {
	return min(max(n, 1), grammar.MaxBatchSentences)
}

// ChunkSize returns the effective number of sentences per model call.
func (c *Coordinator) ChunkSize() int { return c.chunkSize }

// job is one chunk: the sentences of a single model call and their positions
// in the request.
type job struct {
	indices   []int
	sentences []string
}

// Analyze analyses every sentence of req with a. The result has one entry
// per sentence, in order. The only error returned is ctx's error when ctx is
// cancelled before every chunk has finished; model calls already in flight
// then complete on their own timeout and their results are discarded.
func (c *Coordinator) Analyze(ctx context.Context, req Request, a grammar.Analyzer) (_ []grammar.SentenceAnalysis, err error) {
	if err := ctx.Err(); err != nil {
		return nil, fmt.Errorf("batch: analyze: %w", err)
	}

	ctx, span := observe.StartSpan(ctx, "batch.analyze",
		observe.AttrLanguage.String(req.LanguageCode),
		observe.AttrAnalyzer.String(a.Key()),
		observe.AttrSentences.Int(len(req.Sentences)),
	)
	defer func() { observe.EndSpan(span, err) }()

	c.metrics.ActiveJobs.Add(ctx, 1)
	defer c.metrics.ActiveJobs.Add(ctx, -1)

	out := make([]grammar.SentenceAnalysis, len(req.Sentences))
	var pending []int
	for i, s := range req.Sentences {
		if strings.TrimSpace(s) == "" {
			out[i] = fallback(a, s)
			continue
		}
		if cached, ok := c.lookup(ctx, req, a, s); ok {
			out[i] = cached
			continue
		}
		pending = append(pending, i)
	}

	jobs := c.chunk(pending, req.Sentences)
	if len(jobs) == 0 {
		return out, nil
	}
	span.SetAttributes(observe.AttrChunks.Int(len(jobs)))

	// Each job writes only to its own indices of results.
	results := make([]grammar.SentenceAnalysis, len(req.Sentences))
	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(c.concurrency)

	done := make(chan error, 1)
	go func() {
		for _, j := range jobs {
			g.Go(func() error {
				if err := gctx.Err(); err != nil {
					return err
				}
				c.run(ctx, req, a, j, results)
				return nil
			})
		}
		done <- g.Wait()
	}()

	select {
	case <-ctx.Done():
		return nil, fmt.Errorf("batch: analyze: %w", ctx.Err())
	case werr := <-done:
		if werr != nil {
			return nil, fmt.Errorf("batch: analyze: %w", werr)
		}
	}

	for _, i := range pending {
		out[i] = results[i]
	}
	return out, nil
}

func (c *Coordinator) chunk(pending []int, sentences []string) []job {
	var jobs []job
	for start := 0; start < len(pending); start += c.chunkSize {
		end := min(start+c.chunkSize, len(pending))
		j := job{indices: pending[start:end]}
		for _, i := range j.indices {
			j.sentences = append(j.sentences, sentences[i])
		}
		jobs = append(jobs, j)
	}
	return jobs
}

// run executes one chunk and stores an analysis for each of its sentences.
func (c *Coordinator) run(ctx context.Context, req Request, a grammar.Analyzer, j job, results []grammar.SentenceAnalysis) {
	analyses, err := c.call(ctx, req, a, j)
	if ctx.Err() != nil {
		c.metrics.RecordChunk(ctx, "discarded")
		return
	}
	if err != nil {
		observe.Logger(ctx).Warn("batch: chunk failed, using fallback analysis",
			"analyzer", a.Key(), "sentences", len(j.sentences), "err", err)
		c.metrics.RecordChunk(ctx, "failed")
		c.metrics.RecordFallbacks(ctx, a.Key(), "chunk", len(j.sentences))
		for k, i := range j.indices {
			results[i] = fallback(a, j.sentences[k])
		}
		return
	}

	c.metrics.RecordChunk(ctx, "ok")
	failed := 0
	for k, i := range j.indices {
		r := analyses[k]
		if !r.OK() {
			failed++
			observe.Logger(ctx).Debug("batch: sentence not analysed, using fallback",
				"analyzer", a.Key(), "index", i, "err", r.Err)
			results[i] = fallback(a, j.sentences[k])
			continue
		}
		results[i] = r.Analysis
		c.store(ctx, req, a, j.sentences[k], r.Analysis)
	}
	c.metrics.RecordFallbacks(ctx, a.Key(), "sentence", failed)
}

// call sends one chunk to the model. The call runs detached from ctx's
// cancellation and is bounded by the coordinator's call timeout.
func (c *Coordinator) call(ctx context.Context, req Request, a grammar.Analyzer, j job) (_ []grammar.ParseResult, err error) {
	if c.llm == nil {
		return nil, ErrNoProvider
	}
	prompt, err := a.BuildBatchPrompt(grammar.PromptRequest{
		Sentences:      j.sentences,
		Language:       req.Language,
		TargetWord:     req.TargetWord,
		Complexity:     req.Complexity,
		NativeLanguage: req.NativeLanguage,
	})
	if err != nil {
		return nil, err
	}

	callCtx, cancel := context.WithTimeout(context.WithoutCancel(ctx), c.callTimeout)
	defer cancel()
	callCtx, span := observe.StartSpan(callCtx, "batch.chunk",
		observe.AttrAnalyzer.String(a.Key()),
		observe.AttrSentences.Int(len(j.sentences)),
	)
	defer func() { observe.EndSpan(span, err) }()

	start := time.Now()
	resp, err := c.llm.Complete(callCtx, llm.CompletionRequest{
		SystemPrompt: systemPrompt,
		Messages:     []types.Message{{Role: "user", Content: prompt}},
		Temperature:  c.temperature,
		MaxTokens:    c.llm.Capabilities().ClampMaxTokens(c.maxTokens),
		JSONMode:     true,
	})
	c.metrics.RecordLLMCall(ctx, c.providerName, time.Since(start).Seconds(), err)
	if err != nil {
		return nil, fmt.Errorf("batch: complete: %w", err)
	}
	if resp == nil {
		return nil, errors.New("batch: complete: empty response")
	}

	results, err := a.ParseBatchResponse(resp.Content, j.sentences)
	if err != nil {
		if resp.FinishReason == "length" {
			err = fmt.Errorf("%w (output budget exhausted)", err)
		}
		return nil, err
	}
	return results, nil
}

func fallback(a grammar.Analyzer, sentence string) grammar.SentenceAnalysis {
	fb := grammar.Fallback(sentence)
	fb.Analyzer = a.Key()
	return fb
}

// ─── Cache ───────────────────────────────────────────────────────────────────

func cacheKey(req Request, a grammar.Analyzer, sentence string) string {
	h := sha256.New()
	for _, part := range []string{
		req.LanguageCode,
		req.NativeLanguage,
		string(req.Complexity),
		strings.TrimSpace(req.TargetWord),
		strings.Join(strings.Fields(sentence), " "),
	} {
		h.Write([]byte(part))
		h.Write([]byte{0})
	}
	return "analysis:" + a.Key() + ":" + hex.EncodeToString(h.Sum(nil)[:16])
}

func (c *Coordinator) lookup(ctx context.Context, req Request, a grammar.Analyzer, sentence string) (grammar.SentenceAnalysis, bool) {
	v, ok, err := c.cache.Get(ctx, cacheKey(req, a, sentence))
	if err != nil {
		observe.Logger(ctx).Debug("batch: cache read failed", "err", err)
		return grammar.SentenceAnalysis{}, false
	}
	return v, ok
}

func (c *Coordinator) store(ctx context.Context, req Request, a grammar.Analyzer, sentence string, v grammar.SentenceAnalysis) {
	if err := c.cache.Set(ctx, cacheKey(req, a, sentence), v); err != nil {
		observe.Logger(ctx).Debug("batch: cache write failed", "err", err)
	}
}
