package redis

import (
	"context"
	"fmt"
	"sort"
	"strconv"
	"time"

	"github.com/bytedance/sonic"
	"github.com/redis/rueidis"
	log "github.com/sirupsen/logrus"

	"github.com/iamwavecut/modbot/internal/db"
)

const (
	fieldID             = "id"
	fieldGuildID        = "guild_id"
	fieldChannelID      = "channel_id"
	fieldAuthorName     = "author_name"
	fieldContent        = "content"
	fieldNonSevereCount = "non_severe_count"
	fieldReportCount    = "report_count"
	fieldCreatedAt      = "created_at"
)

// appendReportScript bumps the report counter and writes the report into the slot it got.
const appendReportScript = `
local n = redis.call('HINCRBY', KEYS[1], 'report_count', 1)
redis.call('HSETNX', KEYS[1], 'id', ARGV[3])
redis.call('HSETNX', KEYS[1], 'created_at', ARGV[2])
redis.call('HSET', KEYS[2], tostring(n), ARGV[1])
return n
`

// appendDecisionScript records a decision once per forward, actor and kind.
const appendDecisionScript = `
if redis.call('SADD', KEYS[1], ARGV[1]) == 1 then
	redis.call('RPUSH', KEYS[2], ARGV[2])
	return 1
end
return 0
`

type redisClient struct {
	client rueidis.Client
	prefix string
	logger *log.Entry
}

func NewRedisClient(ctx context.Context, addr, password, prefix string) (*redisClient, error) {
	client, err := rueidis.NewClient(rueidis.ClientOption{
		InitAddress:  []string{addr},
		Password:     password,
		DisableCache: true,
	})
	if err != nil {
		return nil, fmt.Errorf("failed to create redis client: %w", err)
	}
	c := NewWithClient(client, prefix)
	if err := c.Ping(ctx); err != nil {
		client.Close()
		return nil, fmt.Errorf("failed to reach redis at %s: %w", addr, err)
	}
	return c, nil
}

func NewWithClient(client rueidis.Client, prefix string) *redisClient {
	return &redisClient{
		client: client,
		prefix: prefix,
		logger: log.WithField("object", "redis"),
	}
}

func (c *redisClient) msgKey(id string) string     { return c.prefix + "msg:" + id }
func (c *redisClient) reportsKey(id string) string { return c.prefix + "msg:" + id + ":reports" }
func (c *redisClient) promptKey(id string) string  { return c.prefix + "prompt:" + id }
func (c *redisClient) decisionsKey(forwardID string) string {
	return c.prefix + "forward:" + forwardID + ":decisions"
}
func (c *redisClient) decidersKey(forwardID string) string {
	return c.prefix + "forward:" + forwardID + ":deciders"
}

func (c *redisClient) CreateRecord(ctx context.Context, msg *db.FlaggedMessage) error {
	if msg.CreatedAt.IsZero() {
		msg.CreatedAt = time.Now()
	}
	key := c.msgKey(msg.ID)
	cmds := rueidis.Commands{
		c.client.B().Hset().Key(key).FieldValue().
			FieldValue(fieldID, msg.ID).
			FieldValue(fieldGuildID, msg.GuildID).
			FieldValue(fieldChannelID, msg.ChannelID).
			FieldValue(fieldAuthorName, msg.AuthorName).
			FieldValue(fieldContent, msg.Content).
			Build(),
		c.client.B().Hsetnx().Key(key).Field(fieldCreatedAt).Value(msg.CreatedAt.UTC().Format(time.RFC3339Nano)).Build(),
	}
	for _, resp := range c.client.DoMulti(ctx, cmds...) {
		if err := resp.Error(); err != nil {
			return fmt.Errorf("failed to upsert flagged message %s: %w", msg.ID, err)
		}
	}
	return nil
}

func (c *redisClient) GetRecord(ctx context.Context, messageID string) (*db.FlaggedMessage, error) {
	fields, err := c.client.Do(ctx, c.client.B().Hgetall().Key(c.msgKey(messageID)).Build()).AsStrMap()
	if err != nil {
		return nil, fmt.Errorf("failed to get flagged message %s: %w", messageID, err)
	}
	if len(fields) == 0 {
		return nil, nil
	}
	msg := &db.FlaggedMessage{
		ID:         messageID,
		GuildID:    fields[fieldGuildID],
		ChannelID:  fields[fieldChannelID],
		AuthorName: fields[fieldAuthorName],
		Content:    fields[fieldContent],
	}
	msg.NonSevereCount, _ = strconv.Atoi(fields[fieldNonSevereCount])
	msg.ReportCount, _ = strconv.Atoi(fields[fieldReportCount])
	if ts, ok := fields[fieldCreatedAt]; ok {
		if parsed, err := time.Parse(time.RFC3339Nano, ts); err == nil {
			msg.CreatedAt = parsed
		}
	}
	return msg, nil
}

func (c *redisClient) IncrementNonSevere(ctx context.Context, messageID string) (int, error) {
	key := c.msgKey(messageID)
	resps := c.client.DoMulti(ctx,
		c.client.B().Hincrby().Key(key).Field(fieldNonSevereCount).Increment(1).Build(),
		c.client.B().Hsetnx().Key(key).Field(fieldCreatedAt).Value(time.Now().UTC().Format(time.RFC3339Nano)).Build(),
	)
	n, err := resps[0].AsInt64()
	if err != nil {
		return 0, fmt.Errorf("failed to increment non-severe count for %s: %w", messageID, err)
	}
	return int(n), nil
}

func (c *redisClient) GetNonSevere(ctx context.Context, messageID string) (int, error) {
	n, err := c.client.Do(ctx, c.client.B().Hget().Key(c.msgKey(messageID)).Field(fieldNonSevereCount).Build()).AsInt64()
	if err != nil {
		if rueidis.IsRedisNil(err) {
			return 0, nil
		}
		return 0, fmt.Errorf("failed to get non-severe count for %s: %w", messageID, err)
	}
	return int(n), nil
}

func (c *redisClient) AppendReport(ctx context.Context, messageID string, report *db.ReviewerReport) (int, error) {
	report.MessageID = messageID
	payload, err := sonic.MarshalString(report)
	if err != nil {
		return 0, fmt.Errorf("failed to encode reviewer report: %w", err)
	}
	n, err := c.client.Do(ctx, c.client.B().Eval().
		Script(appendReportScript).
		Numkeys(2).
		Key(c.msgKey(messageID)).
		Key(c.reportsKey(messageID)).
		Arg(payload).
		Arg(time.Now().UTC().Format(time.RFC3339Nano)).
		Arg(messageID).
		Build()).AsInt64()
	if err != nil {
		return 0, fmt.Errorf("failed to append reviewer report for %s: %w", messageID, err)
	}
	report.Seq = int(n)
	return int(n), nil
}

func (c *redisClient) GetReports(ctx context.Context, messageID string) ([]*db.ReviewerReport, error) {
	slots, err := c.client.Do(ctx, c.client.B().Hgetall().Key(c.reportsKey(messageID)).Build()).AsStrMap()
	if err != nil {
		return nil, fmt.Errorf("failed to get reviewer reports for %s: %w", messageID, err)
	}
	reports := make([]*db.ReviewerReport, 0, len(slots))
	for slot, payload := range slots {
		seq, err := strconv.Atoi(slot)
		if err != nil {
			c.logger.WithField("slot", slot).Warn("skipping malformed report slot")
			continue
		}
		report := &db.ReviewerReport{}
		if err := sonic.UnmarshalString(payload, report); err != nil {
			c.logger.WithError(err).WithField("slot", slot).Warn("skipping undecodable report")
			continue
		}
		report.MessageID = messageID
		report.Seq = seq
		reports = append(reports, report)
	}
	sort.Slice(reports, func(i, j int) bool { return reports[i].Seq < reports[j].Seq })
	return reports, nil
}

func (c *redisClient) SetPromptMapping(ctx context.Context, promptID, messageID string) error {
	if err := c.client.Do(ctx, c.client.B().Set().Key(c.promptKey(promptID)).Value(messageID).Build()).Error(); err != nil {
		return fmt.Errorf("failed to map prompt %s: %w", promptID, err)
	}
	return nil
}

func (c *redisClient) ResolvePrompt(ctx context.Context, promptID string) (string, bool, error) {
	messageID, err := c.client.Do(ctx, c.client.B().Get().Key(c.promptKey(promptID)).Build()).ToString()
	if err != nil {
		if rueidis.IsRedisNil(err) {
			return "", false, nil
		}
		return "", false, fmt.Errorf("failed to resolve prompt %s: %w", promptID, err)
	}
	return messageID, true, nil
}

func (c *redisClient) ClearPrompt(ctx context.Context, promptID string) error {
	if err := c.client.Do(ctx, c.client.B().Del().Key(c.promptKey(promptID)).Build()).Error(); err != nil {
		return fmt.Errorf("failed to clear prompt %s: %w", promptID, err)
	}
	return nil
}

func (c *redisClient) AppendDecision(ctx context.Context, decision *db.Decision) (bool, error) {
	payload, err := sonic.MarshalString(decision)
	if err != nil {
		return false, fmt.Errorf("failed to encode decision: %w", err)
	}
	n, err := c.client.Do(ctx, c.client.B().Eval().
		Script(appendDecisionScript).
		Numkeys(2).
		Key(c.decidersKey(decision.ForwardID)).
		Key(c.decisionsKey(decision.ForwardID)).
		Arg(decision.ActorID+":"+string(decision.Kind)).
		Arg(payload).
		Build()).AsInt64()
	if err != nil {
		return false, fmt.Errorf("failed to append decision on %s: %w", decision.ForwardID, err)
	}
	return n == 1, nil
}

func (c *redisClient) GetDecisions(ctx context.Context, forwardID string) ([]*db.Decision, error) {
	payloads, err := c.client.Do(ctx, c.client.B().Lrange().Key(c.decisionsKey(forwardID)).Start(0).Stop(-1).Build()).AsStrSlice()
	if err != nil {
		return nil, fmt.Errorf("failed to get decisions for %s: %w", forwardID, err)
	}
	decisions := make([]*db.Decision, 0, len(payloads))
	for _, payload := range payloads {
		d := &db.Decision{}
		if err := sonic.UnmarshalString(payload, d); err != nil {
			c.logger.WithError(err).Warn("skipping undecodable decision")
			continue
		}
		decisions = append(decisions, d)
	}
	return decisions, nil
}

func (c *redisClient) Ping(ctx context.Context) error {
	return c.client.Do(ctx, c.client.B().Ping().Build()).Error()
}

func (c *redisClient) Close() error {
	c.client.Close()
	return nil
}
