package moderation

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/pborman/uuid"
	log "github.com/sirupsen/logrus"

	"github.com/iamwavecut/modbot/internal/adapters/scoring"
	"github.com/iamwavecut/modbot/internal/bot"
	"github.com/iamwavecut/modbot/internal/db"
	"github.com/iamwavecut/modbot/internal/db/dbretry"
	"github.com/iamwavecut/modbot/internal/errors"
	"github.com/iamwavecut/modbot/internal/handlers/report"
	"github.com/iamwavecut/modbot/internal/i18n"
	"github.com/iamwavecut/modbot/internal/infra"
	"github.com/iamwavecut/modbot/internal/observability"
	"github.com/iamwavecut/modbot/internal/screening"
)

type Config struct {
	ConfirmEmoji      string
	InsufficientEmoji string
	DeleteEmoji       string
	// DeleteEnabled adds the third glyph that removes the original message without a reviewer report.
	DeleteEnabled      bool
	NonSevereThreshold int
	Language           string
}

// Scorer fetches advisory scores for messages that reach moderators without them.
type Scorer interface {
	Score(ctx context.Context, text string) (scoring.Scores, bool)
}

// ForwardRequest describes a message to put in front of moderators.
type ForwardRequest struct {
	Message         *bot.Message
	Reason          string
	Scores          scoring.Scores
	ScoresAvailable bool
}

// Coordinator drives escalation of flagged messages: forwarding to the moderation
// channel, acting on moderator reactions and collecting reviewer reports.
type Coordinator struct {
	s            bot.Service
	scorer       Scorer
	config       Config
	messageLocks infra.KeyedMutex
	promptLocks  infra.KeyedMutex
	logger       *log.Entry
}

func NewCoordinator(s bot.Service, scorer Scorer, config Config) *Coordinator {
	return &Coordinator{
		s:      s,
		scorer: scorer,
		config: config,
		logger: log.WithField("object", "Coordinator"),
	}
}

// Forward posts msg to its guild's moderation channel with the reviewer report history and decision instructions.
func (c *Coordinator) Forward(ctx context.Context, req ForwardRequest) (*bot.Message, error) {
	unlock := c.messageLocks.Lock(req.Message.ID)
	defer unlock()
	return c.forward(ctx, req)
}

func (c *Coordinator) forward(ctx context.Context, req ForwardRequest) (*bot.Message, error) {
	msg := req.Message
	entry := c.logger.WithFields(log.Fields{"method": "forward", "message_id": msg.ID})

	route, ok := c.s.GetRoutes().Guild(msg.GuildID)
	if !ok || route.ModChannelID == "" {
		return nil, fmt.Errorf("no moderation channel for guild %s: %w", msg.GuildID, errors.ErrResolution)
	}

	store := c.s.GetDB()
	record := &db.FlaggedMessage{
		ID:         msg.ID,
		GuildID:    msg.GuildID,
		ChannelID:  msg.ChannelID,
		AuthorName: msg.AuthorName,
		Content:    msg.Content,
		CreatedAt:  msg.CreatedAt,
	}
	if err := dbretry.NoResult(ctx, func(ctx context.Context) error {
		return store.CreateRecord(ctx, record)
	}); err != nil {
		return nil, fmt.Errorf("create record: %w", err)
	}
	reports, err := dbretry.Operation(ctx, func(ctx context.Context) ([]*db.ReviewerReport, error) {
		return store.GetReports(ctx, msg.ID)
	})
	if err != nil {
		return nil, fmt.Errorf("get reports: %w", err)
	}

	if !req.ScoresAvailable && c.scorer != nil {
		req.Scores, req.ScoresAvailable = c.scorer.Score(ctx, screening.Normalize(msg.Content))
	}

	text := renderForward(forwardView{
		Message:         msg,
		Reason:          req.Reason,
		Scores:          req.Scores,
		ScoresAvailable: req.ScoresAvailable,
		Reports:         reports,
	}, c.instructions())

	forwarded, err := c.s.GetPlatform().SendMessage(ctx, route.ModChannelID, text)
	if err != nil {
		return nil, fmt.Errorf("send forward: %w", err)
	}
	observability.RecordEscalation("forward")
	entry.WithFields(log.Fields{"forward_id": forwarded.ID, "reports": len(reports)}).Info("message forwarded to moderators")
	return forwarded, nil
}

func (c *Coordinator) instructions() string {
	lines := []string{
		fmt.Sprintf("React with %s to confirm this is a scam and file a content reviewer report.", c.config.ConfirmEmoji),
		fmt.Sprintf("React with %s if there is not enough evidence.", c.config.InsufficientEmoji),
	}
	if c.config.DeleteEnabled {
		lines = append(lines, fmt.Sprintf("React with %s to delete the original message.", c.config.DeleteEmoji))
	}
	return strings.Join(lines, "\n")
}

// CompleteReport applies the forwarding policy to a finished report session. Severe reports are
// always forwarded. Non-severe ones are counted until the message has more than the threshold.
func (c *Coordinator) CompleteReport(ctx context.Context, r *report.CompletedReport) error {
	if r.Target == nil {
		return fmt.Errorf("completed report without target: %w", errors.ErrInvariant)
	}
	unlock := c.messageLocks.Lock(r.Target.ID)
	defer unlock()

	entry := c.logger.WithFields(log.Fields{"method": "CompleteReport", "message_id": r.Target.ID, "outcome": r.Outcome})
	reason := fmt.Sprintf("reported by %s as %s", r.ReporterName, r.Category)
	if r.Details != "" {
		reason += fmt.Sprintf(": %s", r.Details)
	}

	switch r.Outcome {
	case report.OutcomeSevere:
		_, err := c.forward(ctx, ForwardRequest{Message: r.Target, Reason: reason})
		return err
	case report.OutcomeNonSevere:
	default:
		return nil
	}

	store := c.s.GetDB()
	count, err := dbretry.Operation(ctx, func(ctx context.Context) (int, error) {
		return store.GetNonSevere(ctx, r.Target.ID)
	})
	if err != nil {
		return fmt.Errorf("get non-severe count: %w", err)
	}
	if count > c.config.NonSevereThreshold {
		entry.WithField("non_severe", count).Info("non-severe threshold exceeded")
		_, err := c.forward(ctx, ForwardRequest{
			Message: r.Target,
			Reason:  fmt.Sprintf("%s (%d earlier non-severe reports)", reason, count),
		})
		return err
	}
	if _, err := dbretry.Write(ctx, func(ctx context.Context) (int, error) {
		return store.IncrementNonSevere(ctx, r.Target.ID)
	}); err != nil {
		return fmt.Errorf("increment non-severe count: %w", err)
	}
	entry.Debug("non-severe report counted")
	return nil
}

func (c *Coordinator) decisionFor(emoji string) (db.DecisionKind, bool) {
	switch emoji {
	case c.config.ConfirmEmoji:
		return db.DecisionConfirm, true
	case c.config.InsufficientEmoji:
		return db.DecisionInsufficient, true
	case c.config.DeleteEmoji:
		if c.config.DeleteEnabled {
			return db.DecisionDelete, true
		}
	}
	return "", false
}

// HandleReaction acts on a moderator reaction to a forward. Reactions on anything else are ignored,
// and a forward whose original can no longer be fetched is abandoned without a reply.
func (c *Coordinator) HandleReaction(ctx context.Context, r *bot.Reaction) error {
	if !c.s.GetRoutes().IsModChannel(r.ChannelID) {
		return nil
	}
	kind, ok := c.decisionFor(r.Emoji)
	if !ok {
		return nil
	}
	entry := c.logger.WithFields(log.Fields{"method": "HandleReaction", "forward_id": r.MessageID, "decision": kind})
	platform := c.s.GetPlatform()

	fwd, err := platform.FetchMessage(ctx, r.ChannelID, r.MessageID)
	if err != nil {
		entry.WithError(err).Debug("cant fetch reacted message, abandoning")
		return nil
	}
	if fwd.AuthorID != platform.SelfID() || fwd.IsReply() {
		return nil
	}
	originalID, ok := ParseForwardedID(fwd.Content)
	if !ok {
		return nil
	}

	unlock := c.messageLocks.Lock(originalID)
	defer unlock()

	original, err := c.fetchOriginal(ctx, r.GuildID, originalID)
	if err != nil {
		entry.WithError(err).WithField("message_id", originalID).Debug("cant fetch original message, abandoning")
		return nil
	}

	store := c.s.GetDB()
	decision := &db.Decision{
		ID:        uuid.New(),
		ForwardID: fwd.ID,
		MessageID: original.ID,
		Kind:      kind,
		ActorID:   r.UserID,
		ActorName: r.UserName,
		DecidedAt: time.Now(),
	}
	fresh, err := dbretry.Operation(ctx, func(ctx context.Context) (bool, error) {
		return store.AppendDecision(ctx, decision)
	})
	if err != nil {
		return fmt.Errorf("append decision: %w", err)
	}
	if !fresh {
		entry.Debug("decision already recorded")
		return nil
	}

	switch kind {
	case db.DecisionConfirm:
		err = c.confirm(ctx, fwd, original)
	case db.DecisionInsufficient:
		err = c.insufficient(ctx, fwd, original, r.UserName)
	case db.DecisionDelete:
		err = c.deleteOriginal(ctx, fwd, original, r.UserName)
	}
	if err != nil {
		return err
	}
	observability.RecordEscalation(string(kind))
	entry.WithFields(log.Fields{"message_id": original.ID, "actor": r.UserName}).Info("moderator decision applied")
	return nil
}

// fetchOriginal looks in the channel the message was recorded from, falling back to the guild's main channel.
func (c *Coordinator) fetchOriginal(ctx context.Context, guildID, messageID string) (*bot.Message, error) {
	channelID := ""
	record, err := c.s.GetDB().GetRecord(ctx, messageID)
	if err != nil {
		return nil, err
	}
	if record != nil {
		channelID = record.ChannelID
	}
	if channelID == "" {
		route, ok := c.s.GetRoutes().Guild(guildID)
		if !ok {
			return nil, bot.ErrGuildNotFound
		}
		channelID = route.MainChannelID
	}
	return c.s.GetPlatform().FetchMessage(ctx, channelID, messageID)
}

func (c *Coordinator) confirm(ctx context.Context, fwd, original *bot.Message) error {
	platform := c.s.GetPlatform()
	prompt, err := platform.Reply(ctx, fwd.ChannelID, fwd.ID,
		fmt.Sprintf("Please reply to this message with a content reviewer report for the message with ID %s.", original.ID))
	if err != nil {
		return fmt.Errorf("post reviewer report prompt: %w", err)
	}
	if err := dbretry.NoResult(ctx, func(ctx context.Context) error {
		return c.s.GetDB().SetPromptMapping(ctx, prompt.ID, original.ID)
	}); err != nil {
		return fmt.Errorf("set prompt mapping: %w", err)
	}
	if _, err := platform.Reply(ctx, original.ChannelID, original.ID,
		i18n.Get("Warning: moderators have identified this message as a scam. Do not send money or share personal information with its author.", c.config.Language)); err != nil {
		return fmt.Errorf("warn on original: %w", err)
	}
	return nil
}

func (c *Coordinator) insufficient(ctx context.Context, fwd, original *bot.Message, actor string) error {
	platform := c.s.GetPlatform()
	count, err := dbretry.Write(ctx, func(ctx context.Context) (int, error) {
		return c.s.GetDB().IncrementNonSevere(ctx, original.ID)
	})
	if err != nil {
		return fmt.Errorf("increment non-severe count: %w", err)
	}
	if _, err := platform.Reply(ctx, fwd.ChannelID, fwd.ID,
		fmt.Sprintf("Marked as insufficient evidence by %s. Message with ID %s now has %d non-severe reports.", actor, original.ID, count)); err != nil {
		return fmt.Errorf("announce decision: %w", err)
	}
	if _, err := platform.Reply(ctx, original.ChannelID, original.ID,
		i18n.Get("This message has been reported by other members. Please be careful when interacting with it.", c.config.Language)); err != nil {
		return fmt.Errorf("warn on original: %w", err)
	}
	return nil
}

func (c *Coordinator) deleteOriginal(ctx context.Context, fwd, original *bot.Message, actor string) error {
	platform := c.s.GetPlatform()
	if err := platform.DeleteMessage(ctx, original.ChannelID, original.ID); err != nil {
		if errors.Is(err, bot.ErrMessageNotFound) {
			c.logger.WithField("message_id", original.ID).Debug("original already gone")
			return nil
		}
		return fmt.Errorf("delete original: %w", err)
	}
	if _, err := platform.Reply(ctx, fwd.ChannelID, fwd.ID,
		fmt.Sprintf("Deleted original message with ID %s on behalf of %s.", original.ID, actor)); err != nil {
		return fmt.Errorf("announce deletion: %w", err)
	}
	return nil
}

// HandleModeratorReply files a moderator's reply to a pending prompt as a reviewer report.
// Replies to anything that is not a pending prompt are ignored.
func (c *Coordinator) HandleModeratorReply(ctx context.Context, msg *bot.Message) error {
	if !msg.IsReply() || !c.s.GetRoutes().IsModChannel(msg.ChannelID) {
		return nil
	}
	unlock := c.promptLocks.Lock(msg.ReferenceID)
	defer unlock()

	entry := c.logger.WithFields(log.Fields{"method": "HandleModeratorReply", "prompt_id": msg.ReferenceID})
	store := c.s.GetDB()
	platform := c.s.GetPlatform()

	originalID, ok, err := store.ResolvePrompt(ctx, msg.ReferenceID)
	if err != nil {
		return fmt.Errorf("resolve prompt: %w", err)
	}
	if !ok {
		entry.Trace("reply to unknown prompt")
		return nil
	}

	reviewerReport := &db.ReviewerReport{
		Author:      msg.AuthorName,
		Timestamp:   msg.CreatedAt,
		Description: msg.Content,
	}
	seq, err := dbretry.Write(ctx, func(ctx context.Context) (int, error) {
		return store.AppendReport(ctx, originalID, reviewerReport)
	})
	if err != nil {
		entry.WithError(err).Error("cant store reviewer report")
		_, _ = platform.Reply(ctx, msg.ChannelID, msg.ID,
			fmt.Sprintf("Failed to add content reviewer report for message with ID %s. Please reply again.", originalID))
		return fmt.Errorf("append reviewer report: %w", err)
	}
	if err := dbretry.NoResult(ctx, func(ctx context.Context) error {
		return store.ClearPrompt(ctx, msg.ReferenceID)
	}); err != nil {
		entry.WithError(err).Warn("cant clear prompt")
	}

	observability.RecordEscalation("reviewer_report")
	entry.WithFields(log.Fields{"message_id": originalID, "seq": seq}).Info("reviewer report stored")
	if _, err := platform.Reply(ctx, msg.ChannelID, msg.ID,
		fmt.Sprintf("Successfully added content reviewer report #%d for report message with ID %s.", seq, originalID)); err != nil {
		return fmt.Errorf("confirm reviewer report: %w", err)
	}
	return nil
}

// Handle routes reactions and moderation channel messages; everything else continues down the chain.
func (c *Coordinator) Handle(ctx context.Context, ev *bot.Event) (bool, error) {
	switch ev.Kind {
	case bot.EventReaction:
		return false, c.HandleReaction(ctx, ev.Reaction)
	case bot.EventMessage:
		if c.s.GetRoutes().IsModChannel(ev.Message.ChannelID) {
			return false, c.HandleModeratorReply(ctx, ev.Message)
		}
	}
	return true, nil
}
