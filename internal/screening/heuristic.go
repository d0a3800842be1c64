package screening

import (
	"strings"
)

// Signal is the outcome of the heuristic pass.
type Signal struct {
	Scam       bool
	Suppressed bool
	Reasons    []string
}

// Classifier flags crypto-scam shaped text. Legitimizing phrases override every positive match.
type Classifier struct {
	rules *compiledRules
}

func NewClassifier(rules Rules) (*Classifier, error) {
	compiled, err := rules.compile()
	if err != nil {
		return nil, err
	}
	return &Classifier{rules: compiled}, nil
}

// Classify expects text that already went through Normalize.
func (c *Classifier) Classify(text string) Signal {
	var reasons []string
	if c.rules.btc.MatchString(text) {
		reasons = append(reasons, "btc_address")
	}
	if c.rules.eth.MatchString(text) {
		reasons = append(reasons, "eth_address")
	}
	lower := strings.ToLower(text)
	for _, phrase := range c.rules.scamPhrases {
		if strings.Contains(lower, phrase) {
			reasons = append(reasons, "phrase:"+phrase)
		}
	}
	if len(reasons) == 0 {
		return Signal{}
	}
	for _, phrase := range c.rules.legitPhrases {
		if strings.Contains(lower, phrase) {
			return Signal{Suppressed: true, Reasons: reasons}
		}
	}
	return Signal{Scam: true, Reasons: reasons}
}
