// Package compact implements the conversation compaction pipeline: token
// estimation, block summarization, and the orchestrator control loop that
// keeps long conversations inside the model's context window.
package compact

import "github.com/ForgottenHistory/Cupid-AI-sub002/internal/store"

// TokenEstimator estimates the token count of a string. Only the
// compaction stopping condition depends on it, so a cheap deterministic
// heuristic is enough; exact tokenization is out of scope.
type TokenEstimator interface {
	Estimate(text string) int
}

// CharEstimator estimates tokens using a simple characters-per-token
// ratio. A ratio of ~4 works well for English.
type CharEstimator struct {
	CharsPerToken float64
}

// NewCharEstimator creates a CharEstimator with the given ratio.
// If charsPerToken is <= 0, defaults to 4.0.
func NewCharEstimator(charsPerToken float64) *CharEstimator {
	if charsPerToken <= 0 {
		charsPerToken = 4.0
	}
	return &CharEstimator{CharsPerToken: charsPerToken}
}

// Estimate returns the estimated token count for the given text.
func (e *CharEstimator) Estimate(text string) int {
	if len(text) == 0 {
		return 0
	}
	tokens := float64(len(text)) / e.CharsPerToken
	// Always round up to avoid underestimation.
	return int(tokens) + 1
}

// perMessageOverhead approximates the role and formatting tokens each
// message adds on top of its content.
const perMessageOverhead = 4

// EstimateMessages returns the total estimated tokens for a transcript.
func EstimateMessages(estimator TokenEstimator, msgs []store.Message) int {
	total := 0
	for i := range msgs {
		total += perMessageOverhead
		total += estimator.Estimate(msgs[i].Content)
	}
	return total
}
