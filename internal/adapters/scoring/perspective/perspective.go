package perspective

import (
	"context"
	"fmt"

	log "github.com/sirupsen/logrus"
	commentanalyzer "google.golang.org/api/commentanalyzer/v1alpha1"
	"google.golang.org/api/option"

	"github.com/iamwavecut/modbot/internal/adapters"
	"github.com/iamwavecut/modbot/internal/adapters/scoring"
)

type API struct {
	service   *commentanalyzer.Service
	languages []string
	logger    *log.Entry
}

// NewPerspective builds a Comment Analyzer backed scorer. baseURL overrides the API endpoint when set.
func NewPerspective(ctx context.Context, apiKey, baseURL string, logger *log.Entry) (adapters.Scorer, error) {
	opts := []option.ClientOption{option.WithAPIKey(apiKey)}
	if baseURL != "" {
		opts = append(opts, option.WithEndpoint(baseURL))
	}
	service, err := commentanalyzer.NewService(ctx, opts...)
	if err != nil {
		return nil, fmt.Errorf("create comment analyzer service: %w", err)
	}
	return &API{
		service:   service,
		languages: []string{"en"},
		logger:    logger,
	}, nil
}

func (a *API) Score(ctx context.Context, text string, attributes []string) (scoring.Scores, error) {
	requested := make(map[string]commentanalyzer.AttributeParameters, len(attributes))
	for _, attr := range attributes {
		requested[attr] = commentanalyzer.AttributeParameters{}
	}

	resp, err := a.service.Comments.Analyze(&commentanalyzer.AnalyzeCommentRequest{
		Comment:             &commentanalyzer.TextEntry{Text: text},
		RequestedAttributes: requested,
		Languages:           a.languages,
		DoNotStore:          true,
	}).Context(ctx).Do()
	if err != nil {
		return nil, err
	}
	if resp == nil || len(resp.AttributeScores) == 0 {
		return nil, scoring.ErrUnavailable
	}

	scores := make(scoring.Scores, len(resp.AttributeScores))
	for name, attr := range resp.AttributeScores {
		if attr.SummaryScore == nil {
			continue
		}
		scores[name] = attr.SummaryScore.Value
	}
	a.logger.WithField("attributes", len(scores)).Trace("perspective scores received")
	return scores, nil
}
