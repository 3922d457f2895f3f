package crag

import "time"

// Decision is the routing outcome of the corrective retrieval pipeline.
type Decision string

const (
	// DecisionCorrect trusts local retrieval; no web search is performed.
	DecisionCorrect Decision = "correct"
	// DecisionIncorrect discards local retrieval and answers from web results.
	DecisionIncorrect Decision = "incorrect"
	// DecisionAmbiguous merges refined local and web knowledge.
	DecisionAmbiguous Decision = "ambiguous"
)

const (
	// UpperThreshold is the exclusive lower bound for the correct branch.
	UpperThreshold = 0.7
	// LowerThreshold is the exclusive upper bound for the incorrect branch.
	LowerThreshold = 0.3
)

// Decide maps the maximum relevance score to a pipeline decision. Scores of
// exactly LowerThreshold or UpperThreshold route to the ambiguous branch.
func Decide(maxScore float64) Decision {
	switch {
	case maxScore > UpperThreshold:
		return DecisionCorrect
	case maxScore < LowerThreshold:
		return DecisionIncorrect
	default:
		return DecisionAmbiguous
	}
}

// DocumentChunk is a unit of retrievable text produced at index-build time.
type DocumentChunk struct {
	Content  string `json:"content"`
	SourceID string `json:"source_id"`
	Position int    `json:"position"` // order of the chunk within its source
}

// ScoredChunk pairs a retrieved chunk with its per-query relevance score.
type ScoredChunk struct {
	Chunk DocumentChunk `json:"chunk"`
	Score float64       `json:"score"`
}

// MaxScore returns the highest-scoring chunk among the given scored chunks.
// ok is false when the slice is empty, meaning no usable relevance signal.
func MaxScore(scored []ScoredChunk) (best ScoredChunk, ok bool) {
	if len(scored) == 0 {
		return ScoredChunk{}, false
	}
	best = scored[0]
	for _, sc := range scored[1:] {
		if sc.Score > best.Score {
			best = sc
		}
	}
	return best, true
}

// SearchResult is a single parsed record from the web search backend.
type SearchResult struct {
	Title   string `json:"title"`
	Link    string `json:"link"`
	Snippet string `json:"snippet"`
}

// Source attributes a piece of knowledge used in the final answer. Local
// chunks carry no link; web results carry the page title and link.
type Source struct {
	Title string `json:"title"`
	Link  string `json:"link,omitempty"`
}

// LocalSourceTitle is the attribution used for locally retrieved chunks.
const LocalSourceTitle = "Retrieved document"

// Answer is the result of one pipeline invocation.
type Answer struct {
	SessionID string    `json:"session_id"`
	AnswerID  string    `json:"answer_id"`
	Query     string    `json:"query"`
	Decision  Decision  `json:"decision"`
	Text      string    `json:"text"`
	Sources   []Source  `json:"sources"`
	CreatedAt time.Time `json:"created_at"`
}

// pipeline holds the per-query state threaded through the orchestrator.
// Fields are filled strictly forward; no stage is revisited.
type pipeline struct {
	query     string
	chunks    []DocumentChunk
	scored    []ScoredChunk
	decision  Decision
	knowledge []string
	sources   []Source
	answer    string
}
