// Package classifier infers the direction and strength of free-text evidence.
//
// A Classifier never fails: any provider error, timeout or malformed answer
// is replaced by Fallback(), so saving evidence never depends on the model.
package classifier

import (
	"context"

	"github.com/hypograph/hypograph/internal/confidence"
)

// Request is everything a classifier may put in its prompt. CompanyContext is
// read once by the caller and passed in; classifiers hold no global state.
type Request struct {
	CompanyContext string
	Statement      string
	Evidence       string
}

// Classification is the inferred reading of one piece of evidence.
type Classification struct {
	Direction confidence.Direction `json:"direction"`
	Strength  int                  `json:"strength"`
	Reasoning string               `json:"reasoning,omitempty"`
}

// Classifier maps evidence text to a Classification.
type Classifier interface {
	Classify(ctx context.Context, req Request) Classification
}

// Fallback is the safe classification used when the real one is unavailable.
func Fallback() Classification {
	return Classification{
		Direction: confidence.Neutral,
		Strength:  3,
		Reasoning: "classification unavailable",
	}
}

// Neutral always returns Fallback(). It is used when no provider is
// configured.
type Neutral struct{}

// Classify implements Classifier.
func (Neutral) Classify(context.Context, Request) Classification {
	return Fallback()
}
