package crag

import (
	"context"

	"craggo/src/infrastructure/retry"
)

// LLMProvider defines the single prompt-completion exchange every LLM-backed
// component issues
type LLMProvider interface {
	Generate(ctx context.Context, system, prompt string) (string, error)
}

// Retriever performs nearest-neighbor lookup against a pre-built index
type Retriever interface {
	Retrieve(ctx context.Context, query string, k int) ([]DocumentChunk, error)
}

// WebSearcher runs a query against a web search backend
type WebSearcher interface {
	Search(ctx context.Context, query string) ([]SearchResult, error)
}

// retryingProvider wraps an LLMProvider with backoff retry around the remote
// exchange. Only the call itself is retried; output parsing in the components
// above it is not.
type retryingProvider struct {
	inner LLMProvider
	opts  []retry.Option
}

// NewRetryingProvider returns an LLMProvider that retries transient upstream
// failures with exponential backoff before giving up.
func NewRetryingProvider(inner LLMProvider, opts ...retry.Option) LLMProvider {
	return &retryingProvider{inner: inner, opts: opts}
}

func (p *retryingProvider) Generate(ctx context.Context, system, prompt string) (string, error) {
	var out string
	err := retry.Do(ctx, func() error {
		var genErr error
		out, genErr = p.inner.Generate(ctx, system, prompt)
		return genErr
	}, p.opts...)
	return out, err
}
