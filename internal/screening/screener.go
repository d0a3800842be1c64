package screening

import (
	"context"
	"errors"
	"time"

	log "github.com/sirupsen/logrus"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"

	"github.com/iamwavecut/modbot/internal/adapters"
	"github.com/iamwavecut/modbot/internal/adapters/scoring"
	"github.com/iamwavecut/modbot/internal/observability"
)

type Verdict int

const (
	VerdictClean Verdict = iota
	VerdictBlacklisted
	VerdictScamSignal
)

func (v Verdict) String() string {
	switch v {
	case VerdictBlacklisted:
		return "blacklisted"
	case VerdictScamSignal:
		return "scam_signal"
	default:
		return "clean"
	}
}

type Result struct {
	Verdict    Verdict
	Matched    string
	Reasons    []string
	Normalized string
	// Scores is only meaningful when ScoresAvailable is true.
	Scores          scoring.Scores
	ScoresAvailable bool
}

func (r *Result) Flagged() bool {
	return r.Verdict != VerdictClean
}

type Screener struct {
	blacklist  Blacklist
	classifier *Classifier
	scorer     adapters.Scorer
	timeout    time.Duration
	attributes []string
	logger     *log.Entry
}

// NewScreener builds a screener. A nil scorer disables external scoring.
func NewScreener(blacklist Blacklist, classifier *Classifier, scorer adapters.Scorer, timeout time.Duration) *Screener {
	if timeout <= 0 {
		timeout = 3 * time.Second
	}
	return &Screener{
		blacklist:  blacklist,
		classifier: classifier,
		scorer:     scorer,
		timeout:    timeout,
		attributes: scoring.DefaultAttributes,
		logger:     log.WithField("object", "screener"),
	}
}

// Screen classifies text and, for flagged text, attaches external scores.
func (s *Screener) Screen(ctx context.Context, text string) *Result {
	ctx, span := otel.Tracer("screening").Start(ctx, "screen")
	defer span.End()

	res := s.Classify(text)
	span.SetAttributes(attribute.String("verdict", res.Verdict.String()))
	observability.RecordVerdict(res.Verdict.String())

	if res.Flagged() {
		res.Scores, res.ScoresAvailable = s.Score(ctx, res.Normalized)
	}
	return res
}

// Classify runs the blacklist then the heuristic pass, without calling the scorer.
func (s *Screener) Classify(text string) *Result {
	normalized := Normalize(text)
	res := &Result{Normalized: normalized}

	if entry, ok := s.CheckBlacklist(text); ok {
		res.Verdict = VerdictBlacklisted
		res.Matched = entry
		return res
	}

	signal := s.classifier.Classify(normalized)
	res.Reasons = signal.Reasons
	if signal.Scam {
		res.Verdict = VerdictScamSignal
	}
	return res
}

// CheckBlacklist matches the raw text and its normalized form. A read failure is logged and treated as no match.
func (s *Screener) CheckBlacklist(text string) (string, bool) {
	if s.blacklist == nil {
		return "", false
	}
	entry, ok, err := s.blacklist.Match(text)
	if err != nil {
		s.logger.WithError(err).Error("blacklist check failed")
		return "", false
	}
	if ok {
		return entry, true
	}
	if normalized := Normalize(text); normalized != text {
		entry, ok, err = s.blacklist.Match(normalized)
		if err == nil && ok {
			return entry, true
		}
	}
	return "", false
}

// Score asks the external scorer, bounded by the configured timeout. The bool is false when scores are unavailable.
func (s *Screener) Score(ctx context.Context, text string) (scoring.Scores, bool) {
	if s.scorer == nil || text == "" {
		return nil, false
	}
	entry := s.logger.WithField("method", "Score")
	done := observability.StartScoring()

	ctx, cancel := context.WithTimeout(ctx, s.timeout)
	defer cancel()

	raw, err := s.scorer.Score(ctx, text, s.attributes)
	if err != nil {
		status := "error"
		if errors.Is(err, context.DeadlineExceeded) {
			status = "timeout"
		}
		done(status)
		entry.WithError(err).Warn("scores unavailable")
		return nil, false
	}
	scores, err := scoring.Sanitize(raw)
	if err != nil {
		done("empty")
		entry.Debug("scorer returned no usable scores")
		return nil, false
	}
	done("ok")
	return scores, true
}
