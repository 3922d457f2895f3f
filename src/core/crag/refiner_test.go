package crag_test

import (
	"context"
	"errors"
	"reflect"
	"strings"
	"testing"

	"craggo/src/core/crag"
)

func TestParseBullets(t *testing.T) {
	tests := []struct {
		name string
		out  string
		want []string
	}{
		{
			name: "dashed bullets",
			out:  "- first point\n- second point\n",
			want: []string{"first point", "second point"},
		},
		{
			name: "mixed markers and blank lines",
			out:  "* alpha\n\n• beta\n   - gamma  \n\n",
			want: []string{"alpha", "beta", "gamma"},
		},
		{
			name: "plain lines without markers",
			out:  "one\ntwo",
			want: []string{"one", "two"},
		},
		{
			name: "only whitespace",
			out:  "  \n\t\n",
			want: nil,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := crag.ParseBullets(tt.out); !reflect.DeepEqual(got, tt.want) {
				t.Errorf("ParseBullets(%q) = %v, want %v", tt.out, got, tt.want)
			}
		})
	}
}

func TestRefine(t *testing.T) {
	t.Run("model failure is surfaced", func(t *testing.T) {
		refiner := crag.NewKnowledgeRefiner(&staticLLM{err: errors.New("timeout")})
		_, err := refiner.Refine(context.Background(), "some document")
		if !errors.Is(err, crag.ErrRefinementFailure) {
			t.Fatalf("Refine() error = %v, want ErrRefinementFailure", err)
		}
	})

	t.Run("empty document is rejected", func(t *testing.T) {
		refiner := crag.NewKnowledgeRefiner(&staticLLM{out: "- a"})
		_, err := refiner.Refine(context.Background(), "  ")
		if !errors.Is(err, crag.ErrRefinementFailure) {
			t.Fatalf("Refine() error = %v, want ErrRefinementFailure", err)
		}
	})

	t.Run("bullets are cleaned", func(t *testing.T) {
		refiner := crag.NewKnowledgeRefiner(&staticLLM{out: "- CO2 traps heat\n\n-  warming is accelerating \n"})
		got, err := refiner.Refine(context.Background(), "climate text")
		if err != nil {
			t.Fatalf("Refine() error = %v", err)
		}
		want := []string{"CO2 traps heat", "warming is accelerating"}
		if !reflect.DeepEqual(got, want) {
			t.Errorf("Refine() = %v, want %v", got, want)
		}
	})
}

// echoLLM returns the document section of the prompt verbatim, standing in
// for a model that re-emits already-bulleted input unchanged.
type echoLLM struct{}

func (echoLLM) Generate(ctx context.Context, system, prompt string) (string, error) {
	const header = "Document:\n"
	start := strings.Index(prompt, header)
	if start < 0 {
		return prompt, nil
	}
	body := prompt[start+len(header):]
	if end := strings.Index(body, "\n\nKey points:"); end >= 0 {
		body = body[:end]
	}
	return body, nil
}

func TestRefineBulletedInputKeepsContent(t *testing.T) {
	refiner := crag.NewKnowledgeRefiner(echoLLM{})

	first, err := refiner.Refine(context.Background(), "- oceans absorb heat\n- ice sheets shrink")
	if err != nil {
		t.Fatalf("Refine() error = %v", err)
	}

	second, err := refiner.Refine(context.Background(), strings.Join(first, "\n"))
	if err != nil {
		t.Fatalf("Refine() error = %v", err)
	}

	for _, term := range []string{"oceans", "ice sheets"} {
		if !strings.Contains(strings.Join(second, "\n"), term) {
			t.Errorf("re-refined output lost key term %q: %v", term, second)
		}
	}
}
