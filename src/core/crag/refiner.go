package crag

import (
	"context"
	"fmt"
	"strings"
)

// KnowledgeRefiner compresses a document into key-point bullets via an LLM
// call. Refinement happens once per call; results are not memoized.
type KnowledgeRefiner struct {
	llm LLMProvider
}

func NewKnowledgeRefiner(llm LLMProvider) *KnowledgeRefiner {
	return &KnowledgeRefiner{llm: llm}
}

// Refine returns the document's key points, one string per bullet, in the
// model's emission order. A failed exchange is reported as
// ErrRefinementFailure; callers may degrade to the raw document themselves.
func (r *KnowledgeRefiner) Refine(ctx context.Context, document string) ([]string, error) {
	if strings.TrimSpace(document) == "" {
		return nil, fmt.Errorf("%w: document must be non-empty", ErrRefinementFailure)
	}

	system, prompt, err := executeTemplates(RefineSystemMessageTmpl, RefinePromptTmpl, PromptData{
		Document: document,
	})
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrRefinementFailure, err)
	}

	out, err := r.llm.Generate(ctx, system, prompt)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrRefinementFailure, err)
	}

	return ParseBullets(out), nil
}

// ParseBullets splits model output into cleaned bullet strings: blank lines
// are dropped, leading bullet markers and surrounding whitespace stripped.
func ParseBullets(out string) []string {
	var bullets []string
	for _, line := range strings.Split(out, "\n") {
		line = strings.TrimSpace(line)
		line = strings.TrimLeft(line, "-*• \t")
		line = strings.TrimSpace(line)
		if line == "" {
			continue
		}
		bullets = append(bullets, line)
	}
	return bullets
}
