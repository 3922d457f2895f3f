package crag

import (
	"context"
	"fmt"
	"strings"
)

// QueryRewriter turns a conversational query into a keyword-style web search
// query. Echoing the original query back is a valid, if unhelpful, result.
type QueryRewriter struct {
	llm LLMProvider
}

func NewQueryRewriter(llm LLMProvider) *QueryRewriter {
	return &QueryRewriter{llm: llm}
}

// Rewrite returns a single non-empty search query. A failed exchange or
// empty output is reported as ErrRewriteFailure; callers may fall back to
// the original query.
func (w *QueryRewriter) Rewrite(ctx context.Context, query string) (string, error) {
	if strings.TrimSpace(query) == "" {
		return "", fmt.Errorf("%w: query must be non-empty", ErrRewriteFailure)
	}

	system, prompt, err := executeTemplates(RewriteSystemMessageTmpl, RewritePromptTmpl, PromptData{
		Query: query,
	})
	if err != nil {
		return "", fmt.Errorf("%w: %v", ErrRewriteFailure, err)
	}

	out, err := w.llm.Generate(ctx, system, prompt)
	if err != nil {
		return "", fmt.Errorf("%w: %v", ErrRewriteFailure, err)
	}

	rewritten := cleanRewrite(out)
	if rewritten == "" {
		return "", fmt.Errorf("%w: model returned empty query", ErrRewriteFailure)
	}
	return rewritten, nil
}

// cleanRewrite keeps the first non-empty line and strips surrounding quotes.
func cleanRewrite(out string) string {
	for _, line := range strings.Split(out, "\n") {
		line = strings.TrimSpace(line)
		line = strings.Trim(line, `"'`)
		line = strings.TrimSpace(line)
		if line != "" {
			return line
		}
	}
	return ""
}
