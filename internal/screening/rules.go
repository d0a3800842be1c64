package screening

import (
	"fmt"
	"regexp"
	"strings"

	"github.com/knadh/koanf/parsers/toml/v2"
	"github.com/knadh/koanf/providers/file"
	"github.com/knadh/koanf/v2"
)

// Rules drive the heuristic classifier. They can be overridden from a TOML file:
//
//	btc_pattern = '[13][a-km-zA-HJ-NP-Z1-9]{25,34}'
//	scam_phrases = ["legit", "send me"]
//	legit_phrases = ["transferred from"]
type Rules struct {
	BTCPattern   string   `koanf:"btc_pattern"`
	ETHPattern   string   `koanf:"eth_pattern"`
	ScamPhrases  []string `koanf:"scam_phrases"`
	LegitPhrases []string `koanf:"legit_phrases"`
}

func DefaultRules() Rules {
	return Rules{
		BTCPattern:   `[13][a-km-zA-HJ-NP-Z1-9]{25,34}`,
		ETHPattern:   `(?i)0x[a-f0-9]{40}$`,
		ScamPhrases:  []string{"legit", "legitimate", "send me", "double", "whatsapp"},
		LegitPhrases: []string{"transferred from", "move from"},
	}
}

// LoadRules returns the default rules overlaid with the file at path. An empty path yields the defaults.
func LoadRules(path string) (Rules, error) {
	rules := DefaultRules()
	if path == "" {
		return rules, nil
	}
	k := koanf.New(".")
	if err := k.Load(file.Provider(path), toml.Parser()); err != nil {
		return rules, fmt.Errorf("load screening rules %s: %w", path, err)
	}
	var override Rules
	if err := k.Unmarshal("", &override); err != nil {
		return rules, fmt.Errorf("unmarshal screening rules: %w", err)
	}
	if override.BTCPattern != "" {
		rules.BTCPattern = override.BTCPattern
	}
	if override.ETHPattern != "" {
		rules.ETHPattern = override.ETHPattern
	}
	if k.Exists("scam_phrases") {
		rules.ScamPhrases = override.ScamPhrases
	}
	if k.Exists("legit_phrases") {
		rules.LegitPhrases = override.LegitPhrases
	}
	return rules, nil
}

type compiledRules struct {
	btc          *regexp.Regexp
	eth          *regexp.Regexp
	scamPhrases  []string
	legitPhrases []string
}

func (r Rules) compile() (*compiledRules, error) {
	btc, err := regexp.Compile(r.BTCPattern)
	if err != nil {
		return nil, fmt.Errorf("compile btc pattern: %w", err)
	}
	eth, err := regexp.Compile(r.ETHPattern)
	if err != nil {
		return nil, fmt.Errorf("compile eth pattern: %w", err)
	}
	return &compiledRules{
		btc:          btc,
		eth:          eth,
		scamPhrases:  lowerAll(r.ScamPhrases),
		legitPhrases: lowerAll(r.LegitPhrases),
	}, nil
}

func lowerAll(in []string) []string {
	out := make([]string, 0, len(in))
	for _, s := range in {
		s = strings.ToLower(strings.TrimSpace(s))
		if s != "" {
			out = append(out, s)
		}
	}
	return out
}
