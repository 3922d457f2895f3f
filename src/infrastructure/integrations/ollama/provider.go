package ollama

import (
	"context"
)

// Provider adapts the client to the pipeline's LLM interface, pinning the
// model and generation options chosen at startup.
type Provider struct {
	client  *Client
	model   string
	options map[string]interface{}
}

type ProviderOption func(p *Provider)

// WithTemperature sets the sampling temperature for all generations.
func WithTemperature(t float64) ProviderOption {
	return func(p *Provider) {
		p.options["temperature"] = t
	}
}

func NewProvider(client *Client, model string, opts ...ProviderOption) *Provider {
	p := &Provider{
		client:  client,
		model:   model,
		options: map[string]interface{}{},
	}

	for _, opt := range opts {
		opt(p)
	}

	return p
}

func (p *Provider) Generate(ctx context.Context, system, prompt string) (string, error) {
	return p.client.Generate(ctx, p.model, system, prompt, p.options)
}
