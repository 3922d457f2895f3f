package crag

import "errors"

var (
	ErrScoringFailure    = errors.New("relevance scoring failed")
	ErrRefinementFailure = errors.New("knowledge refinement failed")
	ErrRewriteFailure    = errors.New("query rewrite failed")
	ErrGenerationFailure = errors.New("answer generation failed")
	ErrRateLimitExceeded = errors.New("upstream rate limit exceeded")
)
