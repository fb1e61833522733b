// Package classifier turns free-form operational requests into an intent and
// the entities mentioned in them.
package classifier

import (
	"context"

	"github.com/viant/opsagent/model"
)

// Classifier classifies request text.
type Classifier interface {
	Classify(ctx context.Context, text string) (*model.Intent, error)
}

// Func adapts a function to Classifier.
type Func func(ctx context.Context, text string) (*model.Intent, error)

// Classify implements Classifier
func (f Func) Classify(ctx context.Context, text string) (*model.Intent, error) {
	return f(ctx, text)
}
