package report

import (
	"context"
	"strings"

	log "github.com/sirupsen/logrus"

	"github.com/iamwavecut/modbot/internal/bot"
	"github.com/iamwavecut/modbot/internal/i18n"
	"github.com/iamwavecut/modbot/internal/observability"
)

// CompletedReport is what a finished session hands to the escalation side.
type CompletedReport struct {
	ReporterID   string
	ReporterName string
	Target       *bot.Message
	Outcome      Outcome
	Category     string
	Details      string
}

func (r *CompletedReport) Severe() bool {
	return r.Outcome == OutcomeSevere
}

// Escalator decides whether a completed report goes to moderators.
type Escalator interface {
	CompleteReport(ctx context.Context, report *CompletedReport) error
}

// Intake runs the report conversation over direct messages.
type Intake struct {
	s         bot.Service
	machine   *Machine
	registry  *Registry
	escalator Escalator
	lang      string
}

func NewIntake(s bot.Service, registry *Registry, machine *Machine, escalator Escalator, lang string) *Intake {
	in := &Intake{
		s:         s,
		machine:   machine,
		registry:  registry,
		escalator: escalator,
		lang:      lang,
	}
	in.getLogEntry().Debug("created new intake")
	return in
}

func (in *Intake) getLogEntry() *log.Entry {
	return log.WithField("object", "Intake")
}

func (in *Intake) Handle(ctx context.Context, ev *bot.Event) (bool, error) {
	if ev.Kind != bot.EventMessage || !ev.Message.IsDM() || ev.Message.AuthorIsBot {
		return true, nil
	}
	msg := ev.Message
	entry := in.getLogEntry().WithFields(log.Fields{"method": "Handle", "user_id": msg.AuthorID})
	text := strings.TrimSpace(msg.Content)

	unlock := in.registry.Lock(msg.AuthorID)
	defer unlock()

	if strings.EqualFold(text, KeywordHelp) {
		return false, in.send(ctx, msg.ChannelID, []string{in.machine.HelpText()})
	}

	session, ok := in.registry.Get(msg.AuthorID)
	if !ok {
		if !startsWithKeyword(text, KeywordReport) {
			entry.Trace("ignoring direct message outside of a report")
			return false, nil
		}
		session = in.registry.Start(msg.AuthorID, msg.AuthorName)
		entry.Debug("report session started")
	}

	replies, err := in.machine.HandleMessage(ctx, session, text)
	if err != nil {
		in.registry.Evict(msg.AuthorID)
		entry.WithError(err).Error("report session dropped")
		return false, in.send(ctx, msg.ChannelID, []string{
			i18n.Get("Something went wrong with your report. Please start again with `report`.", in.lang),
		})
	}

	sendErr := in.send(ctx, msg.ChannelID, replies)
	if !session.Complete() {
		return false, sendErr
	}

	in.registry.Evict(msg.AuthorID)
	observability.RecordReport(string(session.Outcome))
	entry.WithField("outcome", session.Outcome).Info("report session complete")

	switch session.Outcome {
	case OutcomeSevere, OutcomeNonSevere:
	default:
		return false, sendErr
	}
	if err := in.escalator.CompleteReport(ctx, &CompletedReport{
		ReporterID:   session.UserID,
		ReporterName: session.UserName,
		Target:       session.Target,
		Outcome:      session.Outcome,
		Category:     session.Category,
		Details:      session.Details,
	}); err != nil {
		return false, err
	}
	return false, sendErr
}

func (in *Intake) send(ctx context.Context, channelID string, replies []string) error {
	for _, reply := range replies {
		if _, err := in.s.GetPlatform().SendMessage(ctx, channelID, reply); err != nil {
			return err
		}
	}
	return nil
}

func startsWithKeyword(text, keyword string) bool {
	return len(text) >= len(keyword) && strings.EqualFold(text[:len(keyword)], keyword)
}
