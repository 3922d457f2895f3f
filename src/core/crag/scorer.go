package crag

import (
	"context"
	"fmt"
	"regexp"
	"strconv"
	"strings"
)

// ScoreDocumentLimit bounds the document prefix sent to the judge so that
// scoring cost does not grow with chunk size.
const ScoreDocumentLimit = 1000

var scorePattern = regexp.MustCompile(`\d*\.?\d+`)

// RelevanceScorer rates how relevant a document is to a query using an
// LLM-as-judge exchange. Scores are in [0, 1] but carry no calibration
// guarantee.
type RelevanceScorer struct {
	llm LLMProvider
}

func NewRelevanceScorer(llm LLMProvider) *RelevanceScorer {
	return &RelevanceScorer{llm: llm}
}

// Score returns the judged relevance of document to query. A failed exchange
// or unparsable judgment is reported as ErrScoringFailure, never silently
// defaulted.
func (s *RelevanceScorer) Score(ctx context.Context, query, document string) (float64, error) {
	if strings.TrimSpace(query) == "" || strings.TrimSpace(document) == "" {
		return 0, fmt.Errorf("%w: query and document must be non-empty", ErrScoringFailure)
	}

	if len(document) > ScoreDocumentLimit {
		document = document[:ScoreDocumentLimit]
	}

	system, prompt, err := executeTemplates(ScoreSystemMessageTmpl, ScorePromptTmpl, PromptData{
		Query:    query,
		Document: document,
	})
	if err != nil {
		return 0, fmt.Errorf("%w: %v", ErrScoringFailure, err)
	}

	out, err := s.llm.Generate(ctx, system, prompt)
	if err != nil {
		return 0, fmt.Errorf("%w: %v", ErrScoringFailure, err)
	}

	score, err := parseScore(out)
	if err != nil {
		return 0, fmt.Errorf("%w: %v", ErrScoringFailure, err)
	}
	return score, nil
}

// parseScore extracts the first numeric token from the model output and
// clamps it to [0, 1]. Output with no numeric token at all is unparsable.
func parseScore(out string) (float64, error) {
	match := scorePattern.FindString(out)
	if match == "" {
		return 0, fmt.Errorf("no numeric score in model output %q", strings.TrimSpace(out))
	}
	score, err := strconv.ParseFloat(match, 64)
	if err != nil {
		return 0, fmt.Errorf("invalid score %q: %v", match, err)
	}
	if score < 0 {
		score = 0
	}
	if score > 1 {
		score = 1
	}
	return score, nil
}
