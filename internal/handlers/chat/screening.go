package handlers

import (
	"context"
	"fmt"
	"strings"

	log "github.com/sirupsen/logrus"

	"github.com/iamwavecut/modbot/internal/bot"
	"github.com/iamwavecut/modbot/internal/db/dbretry"
	"github.com/iamwavecut/modbot/internal/handlers/moderation"
	"github.com/iamwavecut/modbot/internal/i18n"
	"github.com/iamwavecut/modbot/internal/screening"
)

// Forwarder puts a message in front of moderators.
type Forwarder interface {
	Forward(ctx context.Context, req moderation.ForwardRequest) (*bot.Message, error)
}

// Screening checks every main channel message, and every edit of one, for scam content.
type Screening struct {
	s         bot.Service
	screener  *screening.Screener
	forwarder Forwarder
	lang      string
}

func NewScreening(s bot.Service, screener *screening.Screener, forwarder Forwarder, lang string) *Screening {
	h := &Screening{
		s:         s,
		screener:  screener,
		forwarder: forwarder,
		lang:      lang,
	}
	h.getLogEntry().Debug("created new screening handler")
	return h
}

func (h *Screening) getLogEntry() *log.Entry {
	return log.WithField("object", "Screening")
}

func (h *Screening) Handle(ctx context.Context, ev *bot.Event) (bool, error) {
	switch ev.Kind {
	case bot.EventMessage:
		if !h.watched(ev.Message) {
			return true, nil
		}
		return true, h.screenMessage(ctx, ev.Message)
	case bot.EventEdit:
		if !h.watched(ev.Edit.After) {
			return true, nil
		}
		return true, h.screenEdit(ctx, ev.Edit)
	}
	return true, nil
}

func (h *Screening) watched(msg *bot.Message) bool {
	return msg != nil && !msg.IsDM() && !msg.AuthorIsBot && h.s.GetRoutes().IsMainChannel(msg.ChannelID)
}

func (h *Screening) screenMessage(ctx context.Context, msg *bot.Message) error {
	entry := h.getLogEntry().WithFields(log.Fields{"method": "screenMessage", "message_id": msg.ID})
	res := h.screener.Screen(ctx, msg.Content)

	req := moderation.ForwardRequest{
		Message:         msg,
		Scores:          res.Scores,
		ScoresAvailable: res.ScoresAvailable,
	}
	switch res.Verdict {
	case screening.VerdictBlacklisted:
		entry.WithField("matched", res.Matched).Info("blacklisted address posted")
		if _, err := h.s.GetPlatform().Reply(ctx, msg.ChannelID, msg.ID,
			i18n.Get("Message contains fraudulent or suspicious crypto address.", h.lang)); err != nil {
			return fmt.Errorf("warn on blacklisted message: %w", err)
		}
		req.Reason = fmt.Sprintf("blacklisted address %s", res.Matched)

	case screening.VerdictScamSignal:
		entry.WithField("reasons", res.Reasons).Info("scam signal")
		if _, err := dbretry.Write(ctx, func(ctx context.Context) (int, error) {
			return h.s.GetDB().IncrementNonSevere(ctx, msg.ID)
		}); err != nil {
			return fmt.Errorf("increment non-severe count: %w", err)
		}
		req.Reason = fmt.Sprintf("heuristic scam signal (%s)", strings.Join(res.Reasons, ", "))

	default:
		return nil
	}

	if _, err := h.forwarder.Forward(ctx, req); err != nil {
		return fmt.Errorf("forward flagged message: %w", err)
	}
	return nil
}

// screenEdit only re-runs the blacklist. An edit that adds a blacklisted address is forwarded,
// one that removes it only gets a notice. Edits that keep an already listed address are ignored.
func (h *Screening) screenEdit(ctx context.Context, edit *bot.MessageEdit) error {
	after := edit.After
	if edit.Before != nil && edit.Before.Content == after.Content {
		return nil
	}
	entry := h.getLogEntry().WithFields(log.Fields{"method": "screenEdit", "message_id": after.ID})
	platform := h.s.GetPlatform()

	beforeListed := false
	if edit.Before != nil {
		_, beforeListed = h.screener.CheckBlacklist(edit.Before.Content)
	}

	if matched, ok := h.screener.CheckBlacklist(after.Content); ok {
		if beforeListed {
			entry.Trace("blacklisted address already present before the edit")
			return nil
		}
		entry.WithField("matched", matched).Info("message edited to contain blacklisted address")
		if _, err := platform.Reply(ctx, after.ChannelID, after.ID,
			i18n.Get("Message has been edited to contain fraudulent or suspicious crypto addresses.", h.lang)); err != nil {
			return fmt.Errorf("warn on edited message: %w", err)
		}
		if _, err := h.forwarder.Forward(ctx, moderation.ForwardRequest{
			Message: after,
			Reason:  fmt.Sprintf("edited to contain blacklisted address %s", matched),
		}); err != nil {
			return fmt.Errorf("forward edited message: %w", err)
		}
		return nil
	}

	if beforeListed {
		entry.Info("blacklisted address edited out")
		if _, err := platform.Reply(ctx, after.ChannelID, after.ID,
			i18n.Get("Message previously containing fraudulent or suspicious crypto addresses has been edited.", h.lang)); err != nil {
			return fmt.Errorf("notice on edited message: %w", err)
		}
	}
	return nil
}
