package crag

import (
	"context"
	"fmt"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"

	"craggo/src/infrastructure/retry"
	"craggo/src/log"
)

const (
	// DefaultTopK is the number of chunks requested from local retrieval.
	DefaultTopK = 3
)

// Orchestrator composes retrieval, scoring, refinement, rewriting, web
// search and generation into the corrective pipeline. One query flows
// strictly forward: retrieve, score, decide, assemble knowledge, generate.
type Orchestrator struct {
	retriever Retriever
	web       WebSearcher
	llm       LLMProvider
	scorer    *RelevanceScorer
	refiner   *KnowledgeRefiner
	rewriter  *QueryRewriter
	history   *History
	topK      int
	retryOpts []retry.Option
}

type OrchestratorOption func(o *Orchestrator)

// WithTopK sets how many chunks local retrieval is asked for.
func WithTopK(k int) OrchestratorOption {
	return func(o *Orchestrator) {
		if k >= 1 {
			o.topK = k
		}
	}
}

// WithHistory attaches a session history store to the orchestrator.
func WithHistory(h *History) OrchestratorOption {
	return func(o *Orchestrator) {
		o.history = h
	}
}

// WithRetryOptions configures the backoff policy applied to web search calls.
func WithRetryOptions(opts ...retry.Option) OrchestratorOption {
	return func(o *Orchestrator) {
		o.retryOpts = opts
	}
}

func NewOrchestrator(retriever Retriever, web WebSearcher, llm LLMProvider, opts ...OrchestratorOption) *Orchestrator {
	o := &Orchestrator{
		retriever: retriever,
		web:       web,
		llm:       llm,
		scorer:    NewRelevanceScorer(llm),
		refiner:   NewKnowledgeRefiner(llm),
		rewriter:  NewQueryRewriter(llm),
		topK:      DefaultTopK,
	}

	for _, opt := range opts {
		opt(o)
	}

	return o
}

// Answer runs the full corrective pipeline for one query and returns the
// generated answer with attributed sources. Only generation failures are
// surfaced; degraded branches still produce an answer.
func (o *Orchestrator) Answer(ctx context.Context, sessionID, query string) (*Answer, error) {
	if strings.TrimSpace(query) == "" {
		return nil, fmt.Errorf("query must be non-empty")
	}

	p := &pipeline{query: query}

	chunks, err := o.retriever.Retrieve(ctx, query, o.topK)
	if err != nil {
		return nil, fmt.Errorf("failed to retrieve chunks: %w", err)
	}
	p.chunks = chunks

	p.scored = o.scoreChunks(ctx, query, chunks)

	best, ok := MaxScore(p.scored)
	if !ok {
		// No usable relevance signal at all: treat local retrieval as wrong
		// rather than trusting unscored chunks.
		p.decision = DecisionIncorrect
	} else {
		p.decision = Decide(best.Score)
	}
	log.Debug("pipeline decision", "decision", p.decision, "scored_chunks", len(p.scored))

	switch p.decision {
	case DecisionCorrect:
		p.knowledge = []string{best.Chunk.Content}
		p.sources = []Source{{Title: LocalSourceTitle}}
	case DecisionIncorrect:
		p.knowledge, p.sources = o.webKnowledge(ctx, query)
	case DecisionAmbiguous:
		local, err := o.refiner.Refine(ctx, best.Chunk.Content)
		if err != nil {
			log.Error(err, "using raw chunk as degraded local knowledge")
			local = []string{best.Chunk.Content}
		}
		webBullets, webSources := o.webKnowledge(ctx, query)
		p.knowledge = append(local, webBullets...)
		p.sources = append([]Source{{Title: LocalSourceTitle}}, webSources...)
	}

	answer, err := o.generate(ctx, p)
	if err != nil {
		return nil, err
	}
	p.answer = answer

	result := &Answer{
		SessionID: sessionID,
		AnswerID:  uuid.New().String(),
		Query:     query,
		Decision:  p.decision,
		Text:      p.answer,
		Sources:   p.sources,
		CreatedAt: time.Now().UTC(),
	}

	if o.history != nil {
		o.history.Append(sessionID, result)
	}

	return result, nil
}

// History returns the stored answers for a session, oldest first. Without an
// attached history store it returns nil.
func (o *Orchestrator) History(sessionID string) []*Answer {
	if o.history == nil {
		return nil
	}
	return o.history.List(sessionID)
}

// scoreChunks scores all chunks concurrently and collects every result
// before returning, so the decision always sees the global maximum. Chunks
// whose scoring fails are excluded, not defaulted.
func (o *Orchestrator) scoreChunks(ctx context.Context, query string, chunks []DocumentChunk) []ScoredChunk {
	var (
		mu     sync.Mutex
		wg     sync.WaitGroup
		scored = make([]ScoredChunk, 0, len(chunks))
	)

	for _, chunk := range chunks {
		wg.Add(1)
		go func(c DocumentChunk) {
			defer wg.Done()
			score, err := o.scorer.Score(ctx, query, c.Content)
			if err != nil {
				log.Error(err, "excluding chunk from relevance decision",
					"source_id", c.SourceID, "position", c.Position)
				return
			}
			mu.Lock()
			scored = append(scored, ScoredChunk{Chunk: c, Score: score})
			mu.Unlock()
		}(chunk)
	}
	wg.Wait()

	return scored
}

// webKnowledge runs the rewrite, search and refine leg. Every failure along
// the way degrades instead of aborting: the original query stands in for a
// failed rewrite, raw snippets for a failed refinement, and an empty result
// set flows through to generation as empty knowledge.
func (o *Orchestrator) webKnowledge(ctx context.Context, query string) ([]string, []Source) {
	searchQuery := query
	if rewritten, err := o.rewriter.Rewrite(ctx, query); err != nil {
		log.Error(err, "falling back to original query for web search")
	} else {
		searchQuery = rewritten
	}

	var results []SearchResult
	err := retry.Do(ctx, func() error {
		var searchErr error
		results, searchErr = o.web.Search(ctx, searchQuery)
		return searchErr
	}, o.retryOpts...)
	if err != nil {
		log.Error(err, "web search failed, continuing without web knowledge", "query", searchQuery)
		return nil, nil
	}
	if len(results) == 0 {
		return nil, nil
	}

	snippets := make([]string, 0, len(results))
	sources := make([]Source, 0, len(results))
	for _, r := range results {
		snippets = append(snippets, r.Snippet)
		sources = append(sources, Source{Title: r.Title, Link: r.Link})
	}
	combined := strings.Join(snippets, "\n")

	knowledge, err := o.refiner.Refine(ctx, combined)
	if err != nil {
		log.Error(err, "using raw snippets as degraded web knowledge")
		knowledge = []string{combined}
	}
	return knowledge, sources
}

func (o *Orchestrator) generate(ctx context.Context, p *pipeline) (string, error) {
	system, prompt, err := executeTemplates(AnswerSystemMessageTmpl, AnswerPromptTmpl, PromptData{
		Query:     p.query,
		Knowledge: strings.Join(p.knowledge, "\n"),
		Sources:   formatSources(p.sources),
	})
	if err != nil {
		return "", fmt.Errorf("%w: %v", ErrGenerationFailure, err)
	}

	answer, err := o.llm.Generate(ctx, system, prompt)
	if err != nil {
		return "", fmt.Errorf("%w: %v", ErrGenerationFailure, err)
	}
	return answer, nil
}

func formatSources(sources []Source) string {
	if len(sources) == 0 {
		return "(none)"
	}
	lines := make([]string, 0, len(sources))
	for _, s := range sources {
		if s.Link != "" {
			lines = append(lines, fmt.Sprintf("- %s (%s)", s.Title, s.Link))
		} else {
			lines = append(lines, fmt.Sprintf("- %s", s.Title))
		}
	}
	return strings.Join(lines, "\n")
}
