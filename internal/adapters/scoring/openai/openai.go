package openai

import (
	"context"

	"github.com/sashabaranov/go-openai"
	log "github.com/sirupsen/logrus"

	"github.com/iamwavecut/modbot/internal/adapters"
	"github.com/iamwavecut/modbot/internal/adapters/scoring"
)

const DefaultModel = openai.ModerationTextLatest

// API scores text with the moderation endpoint and folds its categories onto toxicity attributes.
// PROFANITY has no moderation counterpart and is never returned.
type API struct {
	client *openai.Client
	model  string
	logger *log.Entry
}

func NewOpenAI(apiKey, model, baseURL string, logger *log.Entry) adapters.Scorer {
	config := openai.DefaultConfig(apiKey)
	if baseURL != "" {
		config.BaseURL = baseURL
	}
	if model == "" {
		model = DefaultModel
	}
	return &API{
		client: openai.NewClientWithConfig(config),
		model:  model,
		logger: logger,
	}
}

func (o *API) Score(ctx context.Context, text string, attributes []string) (scoring.Scores, error) {
	resp, err := o.client.Moderations(ctx, openai.ModerationRequest{
		Input: text,
		Model: o.model,
	})
	if err != nil {
		return nil, err
	}
	if len(resp.Results) == 0 {
		return nil, scoring.ErrUnavailable
	}

	all := mapCategories(resp.Results[0].CategoryScores)
	scores := make(scoring.Scores, len(attributes))
	for _, attr := range attributes {
		if v, ok := all[attr]; ok {
			scores[attr] = v
		}
	}
	return scores, nil
}

func mapCategories(c openai.ResultCategoryScores) scoring.Scores {
	return scoring.Scores{
		scoring.SevereToxicity: maxOf(c.HateThreatening, c.HarassmentThreatening, c.ViolenceGraphic, c.SexualMinors),
		scoring.IdentityAttack: float64(c.Hate),
		scoring.Threat:         maxOf(c.HateThreatening, c.HarassmentThreatening, c.Violence),
		scoring.Toxicity:       maxOf(c.Harassment, c.Hate, c.Violence, c.SelfHarm),
		scoring.Flirtation:     float64(c.Sexual),
	}
}

func maxOf(values ...float32) float64 {
	var m float32
	for _, v := range values {
		if v > m {
			m = v
		}
	}
	return float64(m)
}
