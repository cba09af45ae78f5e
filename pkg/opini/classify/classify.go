// Package classify defines the sentiment classifier contract and an offline
// lexicon-scoring implementation.
package classify

import (
	"context"
	"fmt"

	"github.com/cognicore/opini/pkg/opini/internalerr"
)

// Classifier returns a raw sentiment label for one cleaned text. Raw labels
// are canonicalized by label.Mapper. Implementations must be safe for
// concurrent use; a classifier is built once and shared by all workers.
type Classifier interface {
	Classify(ctx context.Context, text string) (string, error)
}

// Func adapts a plain function to Classifier.
type Func func(ctx context.Context, text string) (string, error)

// Classify calls f.
func (f Func) Classify(ctx context.Context, text string) (string, error) {
	return f(ctx, text)
}

// Fixed returns a classifier that always answers raw.
func Fixed(raw string) Classifier {
	return Func(func(context.Context, string) (string, error) { return raw, nil })
}

// Wrap marks err as a classifier failure.
func Wrap(err error) error {
	if err == nil {
		return nil
	}
	return fmt.Errorf("%w: %w", internalerr.ErrClassifier, err)
}
