package adapters

import (
	"context"

	"github.com/iamwavecut/modbot/internal/adapters/scoring"
)

// Scorer rates text against toxicity attributes.
type Scorer interface {
	// Score returns a value in [0,1] per requested attribute it could rate.
	Score(ctx context.Context, text string, attributes []string) (scoring.Scores, error)
}
