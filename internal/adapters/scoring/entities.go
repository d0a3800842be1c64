package scoring

import (
	"errors"
	"sort"
)

const (
	SevereToxicity = "SEVERE_TOXICITY"
	Profanity      = "PROFANITY"
	IdentityAttack = "IDENTITY_ATTACK"
	Threat         = "THREAT"
	Toxicity       = "TOXICITY"
	Flirtation     = "FLIRTATION"
)

// DefaultAttributes is the attribute set forwarded to moderators.
var DefaultAttributes = []string{SevereToxicity, Profanity, IdentityAttack, Threat, Toxicity, Flirtation}

// ErrUnavailable is returned when the scorer answered with nothing usable.
var ErrUnavailable = errors.New("scores unavailable")

type Scores map[string]float64

// Sorted returns attribute names in stable order.
func (s Scores) Sorted() []string {
	keys := make([]string, 0, len(s))
	for k := range s {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys
}

// Sanitize drops values outside [0,1] and returns ErrUnavailable when nothing is left.
func Sanitize(in Scores) (Scores, error) {
	out := make(Scores, len(in))
	for k, v := range in {
		if v < 0 || v > 1 || v != v {
			continue
		}
		out[k] = v
	}
	if len(out) == 0 {
		return nil, ErrUnavailable
	}
	return out, nil
}
