package crag_test

import (
	"context"
	"errors"
	"strings"
	"sync"
	"testing"
	"time"

	"craggo/src/core/crag"
	"craggo/src/infrastructure/retry"
)

// fakeLLM dispatches on the system message so a single instance can play
// scorer, refiner, rewriter and generator in one pipeline run. Scoring
// happens from concurrent goroutines, so call tracking is locked.
type fakeLLM struct {
	scoreOut   string
	scoreErr   error
	scoreFn    func(prompt string) (string, error)
	refineOut  string
	refineErr  error
	rewriteOut string
	rewriteErr error
	answerOut  string
	answerErr  error

	mu           sync.Mutex
	scoreCalls   int
	answerPrompt string
}

func (f *fakeLLM) Generate(ctx context.Context, system, prompt string) (string, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	switch {
	case strings.Contains(system, "relevance judge"):
		f.scoreCalls++
		if f.scoreFn != nil {
			return f.scoreFn(prompt)
		}
		return f.scoreOut, f.scoreErr
	case strings.Contains(system, "bullet points"):
		return f.refineOut, f.refineErr
	case strings.Contains(system, "keyword queries"):
		return f.rewriteOut, f.rewriteErr
	default:
		f.answerPrompt = prompt
		return f.answerOut, f.answerErr
	}
}

type fakeRetriever struct {
	chunks []crag.DocumentChunk
	err    error
	gotK   int
}

func (f *fakeRetriever) Retrieve(ctx context.Context, query string, k int) ([]crag.DocumentChunk, error) {
	f.gotK = k
	return f.chunks, f.err
}

type fakeSearcher struct {
	results  []crag.SearchResult
	err      error
	called   bool
	calls    int
	gotQuery string
}

func (f *fakeSearcher) Search(ctx context.Context, query string) ([]crag.SearchResult, error) {
	f.called = true
	f.calls++
	f.gotQuery = query
	return f.results, f.err
}

func noSleep(opts ...retry.Option) crag.OrchestratorOption {
	base := []retry.Option{retry.WithSleep(func(time.Duration) {})}
	return crag.WithRetryOptions(append(base, opts...)...)
}

func TestAnswerCorrectBranch(t *testing.T) {
	llm := &fakeLLM{
		scoreOut:  "0.9",
		answerOut: "the greenhouse effect traps heat",
	}
	retriever := &fakeRetriever{chunks: []crag.DocumentChunk{
		{Content: "Greenhouse gases trap heat in the atmosphere.", SourceID: "climate.txt", Position: 0},
	}}
	searcher := &fakeSearcher{}

	o := crag.NewOrchestrator(retriever, searcher, llm, noSleep())
	answer, err := o.Answer(context.Background(), "s1", "what is the greenhouse effect?")
	if err != nil {
		t.Fatalf("Answer() error = %v", err)
	}

	if answer.Decision != crag.DecisionCorrect {
		t.Errorf("Decision = %v, want %v", answer.Decision, crag.DecisionCorrect)
	}
	if searcher.called {
		t.Error("web search was called on the correct branch")
	}
	if !strings.Contains(llm.answerPrompt, "Greenhouse gases trap heat") {
		t.Error("generation prompt does not contain the raw local chunk")
	}
	if len(answer.Sources) != 1 || answer.Sources[0].Title != crag.LocalSourceTitle {
		t.Errorf("Sources = %v, want single local source", answer.Sources)
	}
	if retriever.gotK != crag.DefaultTopK {
		t.Errorf("Retrieve called with k = %d, want %d", retriever.gotK, crag.DefaultTopK)
	}
}

func TestAnswerIncorrectBranch(t *testing.T) {
	llm := &fakeLLM{
		scoreOut:   "0.1",
		rewriteOut: "quirrell defeat harry potter",
		refineOut:  "- quirrell could not touch harry\n- lily's sacrifice protected him",
		answerOut:  "Quirrell could not touch Harry because of his mother's protection.",
	}
	retriever := &fakeRetriever{chunks: []crag.DocumentChunk{
		{Content: "Climate change is driven by greenhouse gases.", SourceID: "climate.txt", Position: 0},
	}}
	searcher := &fakeSearcher{results: []crag.SearchResult{
		{Title: "Philosopher's Stone plot", Link: "https://example.com/hp1", Snippet: "Quirrell burns when touching Harry."},
	}}

	o := crag.NewOrchestrator(retriever, searcher, llm, noSleep())
	answer, err := o.Answer(context.Background(), "s1", "how did harry beat quirrell?")
	if err != nil {
		t.Fatalf("Answer() error = %v", err)
	}

	if answer.Decision != crag.DecisionIncorrect {
		t.Errorf("Decision = %v, want %v", answer.Decision, crag.DecisionIncorrect)
	}
	if searcher.gotQuery != "quirrell defeat harry potter" {
		t.Errorf("search query = %q, want rewritten query", searcher.gotQuery)
	}
	if strings.Contains(llm.answerPrompt, "Climate change") {
		t.Error("generation prompt contains local chunk content on the incorrect branch")
	}
	if !strings.Contains(llm.answerPrompt, "quirrell could not touch harry") {
		t.Error("generation prompt missing refined web knowledge")
	}

	var hasLink bool
	for _, s := range answer.Sources {
		if s.Link == "https://example.com/hp1" {
			hasLink = true
		}
		if s.Title == crag.LocalSourceTitle {
			t.Error("local source attributed on the incorrect branch")
		}
	}
	if !hasLink {
		t.Errorf("Sources = %v, want web result link", answer.Sources)
	}
}

func TestAnswerAmbiguousBranch(t *testing.T) {
	llm := &fakeLLM{
		scoreOut:   "0.5",
		rewriteOut: "ocean warming",
		refineOut:  "- refined point",
		answerOut:  "combined answer",
	}
	retriever := &fakeRetriever{chunks: []crag.DocumentChunk{
		{Content: "Oceans absorb most excess heat.", SourceID: "ocean.txt", Position: 2},
	}}
	searcher := &fakeSearcher{results: []crag.SearchResult{
		{Title: "Ocean heat report", Link: "https://example.com/ocean", Snippet: "Sea surface temperatures are rising."},
	}}

	o := crag.NewOrchestrator(retriever, searcher, llm, noSleep())
	answer, err := o.Answer(context.Background(), "s1", "is the ocean warming?")
	if err != nil {
		t.Fatalf("Answer() error = %v", err)
	}

	if answer.Decision != crag.DecisionAmbiguous {
		t.Errorf("Decision = %v, want %v", answer.Decision, crag.DecisionAmbiguous)
	}
	if !searcher.called {
		t.Error("web search was not called on the ambiguous branch")
	}
	if len(answer.Sources) < 2 {
		t.Fatalf("Sources = %v, want local and web sources", answer.Sources)
	}
	// Local knowledge comes first in both the source list and the prompt.
	if answer.Sources[0].Title != crag.LocalSourceTitle {
		t.Errorf("Sources[0] = %v, want local source first", answer.Sources[0])
	}
	if answer.Sources[1].Link != "https://example.com/ocean" {
		t.Errorf("Sources[1] = %v, want web result", answer.Sources[1])
	}
}

func TestAnswerBoundaryScoresAreAmbiguous(t *testing.T) {
	for _, score := range []string{"0.7", "0.3"} {
		t.Run(score, func(t *testing.T) {
			llm := &fakeLLM{
				scoreOut:   score,
				rewriteOut: "q",
				refineOut:  "- point",
				answerOut:  "answer",
			}
			retriever := &fakeRetriever{chunks: []crag.DocumentChunk{{Content: "chunk", SourceID: "d", Position: 0}}}
			searcher := &fakeSearcher{}

			o := crag.NewOrchestrator(retriever, searcher, llm, noSleep())
			answer, err := o.Answer(context.Background(), "s1", "q")
			if err != nil {
				t.Fatalf("Answer() error = %v", err)
			}
			if answer.Decision != crag.DecisionAmbiguous {
				t.Errorf("Decision = %v, want %v", answer.Decision, crag.DecisionAmbiguous)
			}
		})
	}
}

func TestAnswerAllScoringFailsFallsBackToWeb(t *testing.T) {
	llm := &fakeLLM{
		scoreErr:   errors.New("model unreachable"),
		rewriteOut: "fallback query",
		refineOut:  "- web point",
		answerOut:  "answer from web",
	}
	retriever := &fakeRetriever{chunks: []crag.DocumentChunk{
		{Content: "chunk one", SourceID: "d", Position: 0},
		{Content: "chunk two", SourceID: "d", Position: 1},
	}}
	searcher := &fakeSearcher{results: []crag.SearchResult{
		{Title: "Web hit", Link: "https://example.com/w", Snippet: "snippet"},
	}}

	o := crag.NewOrchestrator(retriever, searcher, llm, noSleep())
	answer, err := o.Answer(context.Background(), "s1", "q")
	if err != nil {
		t.Fatalf("Answer() error = %v", err)
	}

	if llm.scoreCalls != 2 {
		t.Errorf("score calls = %d, want 2", llm.scoreCalls)
	}
	if answer.Decision != crag.DecisionIncorrect {
		t.Errorf("Decision = %v, want %v", answer.Decision, crag.DecisionIncorrect)
	}
	if strings.Contains(llm.answerPrompt, "chunk one") || strings.Contains(llm.answerPrompt, "chunk two") {
		t.Error("unscored chunks leaked into the generation prompt")
	}
}

func TestAnswerPartialScoringFailureExcludesChunk(t *testing.T) {
	llm := &fakeLLM{answerOut: "tides are driven by the moon"}
	llm.scoreFn = func(prompt string) (string, error) {
		if strings.Contains(prompt, "flaky chunk") {
			return "", errors.New("model unreachable")
		}
		return "0.9", nil
	}
	retriever := &fakeRetriever{chunks: []crag.DocumentChunk{
		{Content: "flaky chunk about nothing", SourceID: "d", Position: 0},
		{Content: "The moon's gravity drives the tides.", SourceID: "tides.txt", Position: 1},
	}}
	searcher := &fakeSearcher{}

	o := crag.NewOrchestrator(retriever, searcher, llm, noSleep())
	answer, err := o.Answer(context.Background(), "s1", "what causes tides?")
	if err != nil {
		t.Fatalf("Answer() error = %v", err)
	}

	if llm.scoreCalls != 2 {
		t.Errorf("score calls = %d, want 2", llm.scoreCalls)
	}
	// The surviving score alone drives the decision.
	if answer.Decision != crag.DecisionCorrect {
		t.Errorf("Decision = %v, want %v", answer.Decision, crag.DecisionCorrect)
	}
	if searcher.called {
		t.Error("web search was called although a local chunk scored high")
	}
	if !strings.Contains(llm.answerPrompt, "moon's gravity") {
		t.Error("generation prompt missing the successfully scored chunk")
	}
	if strings.Contains(llm.answerPrompt, "flaky chunk") {
		t.Error("chunk whose scoring failed leaked into the generation prompt")
	}
}

func TestAnswerEmptyWebResultsStillAnswers(t *testing.T) {
	llm := &fakeLLM{
		scoreOut:   "0.0",
		rewriteOut: "q",
		answerOut:  "I do not have enough information to answer that.",
	}
	retriever := &fakeRetriever{chunks: []crag.DocumentChunk{{Content: "chunk", SourceID: "d", Position: 0}}}
	searcher := &fakeSearcher{results: nil}

	o := crag.NewOrchestrator(retriever, searcher, llm, noSleep())
	answer, err := o.Answer(context.Background(), "s1", "q")
	if err != nil {
		t.Fatalf("Answer() error = %v", err)
	}
	if answer.Text == "" {
		t.Error("Answer() returned empty text")
	}
	if len(answer.Sources) != 0 {
		t.Errorf("Sources = %v, want none", answer.Sources)
	}
	if !strings.Contains(llm.answerPrompt, "(none)") {
		t.Error("generation prompt should mark the source list as empty")
	}
}

func TestAnswerWebFailureStillAnswers(t *testing.T) {
	llm := &fakeLLM{
		scoreOut:   "0.1",
		rewriteOut: "q",
		answerOut:  "degraded answer",
	}
	retriever := &fakeRetriever{chunks: []crag.DocumentChunk{{Content: "chunk", SourceID: "d", Position: 0}}}
	searcher := &fakeSearcher{err: errors.New("connection refused")}

	o := crag.NewOrchestrator(retriever, searcher, llm, noSleep(retry.WithMaxAttempts(3)))
	answer, err := o.Answer(context.Background(), "s1", "q")
	if err != nil {
		t.Fatalf("Answer() error = %v", err)
	}
	if searcher.calls != 3 {
		t.Errorf("search attempts = %d, want 3", searcher.calls)
	}
	if answer.Text != "degraded answer" {
		t.Errorf("Text = %q, want degraded answer", answer.Text)
	}
}

func TestAnswerGenerationFailure(t *testing.T) {
	llm := &fakeLLM{
		scoreOut:  "0.9",
		answerErr: errors.New("model crashed"),
	}
	retriever := &fakeRetriever{chunks: []crag.DocumentChunk{{Content: "chunk", SourceID: "d", Position: 0}}}

	o := crag.NewOrchestrator(retriever, &fakeSearcher{}, llm, noSleep())
	_, err := o.Answer(context.Background(), "s1", "q")
	if !errors.Is(err, crag.ErrGenerationFailure) {
		t.Fatalf("Answer() error = %v, want ErrGenerationFailure", err)
	}
}

func TestAnswerRecordsHistory(t *testing.T) {
	llm := &fakeLLM{scoreOut: "0.9", answerOut: "first"}
	retriever := &fakeRetriever{chunks: []crag.DocumentChunk{{Content: "chunk", SourceID: "d", Position: 0}}}

	o := crag.NewOrchestrator(retriever, &fakeSearcher{}, llm,
		noSleep(), crag.WithHistory(crag.NewHistory(crag.DefaultHistoryLimit)))

	if _, err := o.Answer(context.Background(), "s1", "q1"); err != nil {
		t.Fatalf("Answer() error = %v", err)
	}
	llm.answerOut = "second"
	if _, err := o.Answer(context.Background(), "s1", "q2"); err != nil {
		t.Fatalf("Answer() error = %v", err)
	}

	got := o.History("s1")
	if len(got) != 2 {
		t.Fatalf("History() returned %d answers, want 2", len(got))
	}
	if got[0].Query != "q1" || got[1].Query != "q2" {
		t.Errorf("History() order = [%s, %s], want oldest first", got[0].Query, got[1].Query)
	}
	if got[0].AnswerID == got[1].AnswerID {
		t.Error("answer IDs are not unique")
	}
	if len(o.History("other")) != 0 {
		t.Error("History() leaked answers across sessions")
	}
}

func TestAnswerEmptyQuery(t *testing.T) {
	o := crag.NewOrchestrator(&fakeRetriever{}, &fakeSearcher{}, &fakeLLM{}, noSleep())
	if _, err := o.Answer(context.Background(), "s1", "   "); err == nil {
		t.Fatal("Answer() error = nil, want error for empty query")
	}
}
