package classifier

import (
	"context"
	"math"
	"strings"

	"github.com/viant/opsagent/internal/clock"
	"github.com/viant/opsagent/model"
)

// UnknownIntent is the type of text no pattern matches.
const UnknownIntent = "unknown"

const confidenceBoost = 0.3

// Patterns provides the intent patterns to match against.
type Patterns interface {
	Intents() []*model.IntentPattern
}

// Keyword scores every intent pattern by the share of its keywords found in
// the text and extracts entities with regular expressions.
type Keyword struct {
	patterns Patterns
}

// Classify implements Classifier
func (k *Keyword) Classify(ctx context.Context, text string) (*model.Intent, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	ret := &model.Intent{Type: UnknownIntent, Entities: ExtractEntities(text, clock.Now())}
	lower := strings.ToLower(text)
	best := 0.0
	for _, pattern := range k.patterns.Intents() {
		matched := 0
		for _, keyword := range pattern.Keywords {
			if keyword != "" && strings.Contains(lower, strings.ToLower(keyword)) {
				matched++
			}
		}
		if matched == 0 {
			continue
		}
		if score := float64(matched) / float64(len(pattern.Keywords)); score > best {
			best = score
			ret.Type = pattern.Type
			ret.RequiredAgents = model.CloneStrings(pattern.RequiredAgents)
			ret.OptionalAgents = model.CloneStrings(pattern.OptionalAgents)
		}
	}
	if best > 0 {
		ret.Confidence = math.Min(best+confidenceBoost, 1)
	}
	return ret, nil
}

// NewKeyword creates a keyword classifier.
func NewKeyword(patterns Patterns) *Keyword {
	return &Keyword{patterns: patterns}
}
