package crag_test

import (
	"context"
	"errors"
	"testing"

	"craggo/src/core/crag"
)

func TestRewrite(t *testing.T) {
	tests := []struct {
		name     string
		modelOut string
		modelErr error
		query    string
		want     string
		wantErr  bool
	}{
		{
			name:     "plain rewrite",
			modelOut: "greenhouse effect explanation",
			query:    "can you tell me what the greenhouse effect is?",
			want:     "greenhouse effect explanation",
		},
		{
			name:     "quoted output is unwrapped",
			modelOut: `"harry potter quirrell defeat"`,
			query:    "how did harry beat quirrell?",
			want:     "harry potter quirrell defeat",
		},
		{
			name:     "first non-empty line wins",
			modelOut: "\n\nclimate change causes\nsome trailing note",
			query:    "why is the climate changing",
			want:     "climate change causes",
		},
		{
			name:     "echoed query is valid",
			modelOut: "why is the sky blue",
			query:    "why is the sky blue",
			want:     "why is the sky blue",
		},
		{
			name:     "empty output",
			modelOut: "   \n ",
			query:    "anything",
			wantErr:  true,
		},
		{
			name:     "model failure",
			modelErr: errors.New("boom"),
			query:    "anything",
			wantErr:  true,
		},
		{
			name:     "empty query",
			modelOut: "x",
			query:    " ",
			wantErr:  true,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			rewriter := crag.NewQueryRewriter(&staticLLM{out: tt.modelOut, err: tt.modelErr})
			got, err := rewriter.Rewrite(context.Background(), tt.query)

			if tt.wantErr {
				if !errors.Is(err, crag.ErrRewriteFailure) {
					t.Fatalf("Rewrite() error = %v, want ErrRewriteFailure", err)
				}
				return
			}
			if err != nil {
				t.Fatalf("Rewrite() error = %v", err)
			}
			if got != tt.want {
				t.Errorf("Rewrite() = %q, want %q", got, tt.want)
			}
		})
	}
}
