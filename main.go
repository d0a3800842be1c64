package main

import (
	"context"
	"fmt"
	"io"
	"os"
	"os/signal"
	"strings"
	"syscall"
	"time"

	log "github.com/sirupsen/logrus"
	"github.com/urfave/cli/v3"
	"golang.org/x/sync/errgroup"

	"github.com/iamwavecut/modbot/internal/adapters"
	"github.com/iamwavecut/modbot/internal/adapters/scoring/openai"
	"github.com/iamwavecut/modbot/internal/adapters/scoring/perspective"
	"github.com/iamwavecut/modbot/internal/bot"
	"github.com/iamwavecut/modbot/internal/config"
	"github.com/iamwavecut/modbot/internal/db"
	"github.com/iamwavecut/modbot/internal/db/redis"
	"github.com/iamwavecut/modbot/internal/db/sqlite"
	handlers "github.com/iamwavecut/modbot/internal/handlers/chat"
	"github.com/iamwavecut/modbot/internal/handlers/moderation"
	"github.com/iamwavecut/modbot/internal/handlers/report"
	"github.com/iamwavecut/modbot/internal/i18n"
	"github.com/iamwavecut/modbot/internal/infra"
	"github.com/iamwavecut/modbot/internal/infrastructure/discord"
	"github.com/iamwavecut/modbot/internal/lifecycle"
	"github.com/iamwavecut/modbot/internal/observability"
	"github.com/iamwavecut/modbot/internal/screening"
)

const shutdownTimeout = 15 * time.Second

func main() {
	app := &cli.Command{
		Name:   "modbot",
		Usage:  "Discord moderation bot",
		Action: runBot,
		Commands: []*cli.Command{
			{
				Name:   "run",
				Usage:  "Connect to Discord and moderate the configured group channels",
				Action: runBot,
			},
			{
				Name:      "screen",
				Usage:     "Screen texts the way channel messages are screened",
				ArgsUsage: "TEXT...",
				Action:    screenTexts,
			},
			{
				Name:      "reports",
				Usage:     "Print the stored record of a flagged message",
				ArgsUsage: "MESSAGE_ID",
				Action:    showReports,
			},
			{
				Name:      "decisions",
				Usage:     "Print the moderator decisions taken on a forward",
				ArgsUsage: "FORWARD_ID",
				Action:    showDecisions,
			},
		},
	}
	if err := app.Run(context.Background(), os.Args); err != nil {
		log.WithError(err).Fatalln("exiting")
	}
}

func loadConfig() (config.Config, error) {
	cfg, err := config.Load()
	if err != nil {
		return cfg, err
	}
	log.SetFormatter(&config.NbFormatter{})
	log.SetOutput(os.Stdout)
	log.SetLevel(log.Level(cfg.LogLevel))
	return cfg, nil
}

func runBot(ctx context.Context, _ *cli.Command) error {
	cfg, err := loadConfig()
	if err != nil {
		return err
	}
	if cfg.DiscordToken == "" {
		return fmt.Errorf("MB_TOKEN is required")
	}
	ctx, stop := signal.NotifyContext(ctx, os.Interrupt, syscall.SIGTERM)
	defer stop()

	shutdownTracing, err := observability.Init(ctx)
	if err != nil {
		return fmt.Errorf("init observability: %w", err)
	}

	store, err := openStore(ctx, cfg)
	if err != nil {
		return err
	}
	screener, err := newScreener(ctx, cfg)
	if err != nil {
		_ = store.Close()
		return err
	}

	routes := bot.NewRoutes()
	client, err := discord.NewClient(cfg.DiscordToken, cfg.Group, routes)
	if err != nil {
		_ = store.Close()
		return err
	}
	service := bot.NewService(client, store, routes)

	coordinator := moderation.NewCoordinator(service, screener, moderation.Config{
		ConfirmEmoji:       cfg.Escalation.ConfirmEmoji,
		InsufficientEmoji:  cfg.Escalation.InsufficientEmoji,
		DeleteEmoji:        cfg.Escalation.DeleteEmoji,
		DeleteEnabled:      cfg.Escalation.DeleteEnabled,
		NonSevereThreshold: cfg.Escalation.NonSevereThreshold,
		Language:           cfg.DefaultLanguage,
	})
	machine := report.NewMachine(client, cfg.Report.Flow, cfg.DefaultLanguage)

	updateProcessor := bot.NewUpdateProcessor(service, cfg.EnabledHandlers)
	updateProcessor.RegisterUpdateHandler("moderation", coordinator)
	updateProcessor.RegisterUpdateHandler("intake", report.NewIntake(service, report.NewRegistry(), machine, coordinator, cfg.DefaultLanguage))
	updateProcessor.RegisterUpdateHandler("screening", handlers.NewScreening(service, screener, coordinator, cfg.DefaultLanguage))
	client.SetDispatcher(updateProcessor)

	log.WithFields(log.Fields{
		"handlers": strings.Join(updateProcessor.Handlers(), ","),
		"language": i18n.GetLanguageName(cfg.DefaultLanguage),
		"store":    cfg.Store.Type,
		"scorer":   cfg.Scorer.Type,
		"flow":     cfg.Report.Flow,
	}).Info("starting")

	runtime := lifecycle.NewRuntime()
	runtime.Register("store", lifecycle.Funcs{
		StopFunc: func(context.Context) error { return store.Close() },
	})
	runtime.Register("ops_server", observability.NewServer(cfg.MetricsAddr, map[string]observability.HealthCheck{
		"store": store.Ping,
	}))
	runtime.Register("dispatcher", lifecycle.Funcs{
		StopFunc: func(context.Context) error {
			updateProcessor.Wait()
			return nil
		},
	})
	runtime.Register("gateway", client)

	if err := runtime.Start(ctx); err != nil {
		return err
	}
	<-ctx.Done()
	log.Info("shutting down")

	stopCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
	defer cancel()
	err = runtime.Stop(stopCtx)
	if tracingErr := shutdownTracing(stopCtx); tracingErr != nil {
		log.WithError(tracingErr).Warn("cant flush tracer provider")
	}
	return err
}

func openStore(ctx context.Context, cfg config.Config) (db.Client, error) {
	switch cfg.Store.Type {
	case "redis":
		return redis.NewRedisClient(ctx, cfg.Store.RedisAddr, cfg.Store.RedisPassword, cfg.Store.RedisPrefix)
	default:
		return sqlite.NewSQLiteClient(ctx, infra.GetWorkDir(cfg.DotPath), cfg.Store.SQLiteFile)
	}
}

func newScorer(ctx context.Context, cfg config.Config) (adapters.Scorer, error) {
	logger := log.WithField("object", "scorer")
	switch cfg.Scorer.Type {
	case "perspective":
		return perspective.NewPerspective(ctx, cfg.Scorer.APIKey, cfg.Scorer.BaseURL, logger)
	case "openai":
		return openai.NewOpenAI(cfg.Scorer.APIKey, cfg.Scorer.Model, cfg.Scorer.BaseURL, logger), nil
	default:
		return nil, nil
	}
}

func newScreener(ctx context.Context, cfg config.Config) (*screening.Screener, error) {
	rules, err := screening.LoadRules(cfg.Screening.RulesPath)
	if err != nil {
		return nil, err
	}
	classifier, err := screening.NewClassifier(rules)
	if err != nil {
		return nil, err
	}
	scorer, err := newScorer(ctx, cfg)
	if err != nil {
		return nil, fmt.Errorf("create %s scorer: %w", cfg.Scorer.Type, err)
	}
	return screening.NewScreener(screening.NewFileBlacklist(cfg.Screening.BlacklistPath), classifier, scorer, cfg.Scorer.Timeout), nil
}

func screenTexts(ctx context.Context, cmd *cli.Command) error {
	cfg, err := loadConfig()
	if err != nil {
		return err
	}
	texts := cmd.Args().Slice()
	if len(texts) == 0 {
		return fmt.Errorf("at least one TEXT is required")
	}
	screener, err := newScreener(ctx, cfg)
	if err != nil {
		return err
	}

	results := make([]*screening.Result, len(texts))
	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(4)
	for i, text := range texts {
		g.Go(func() error {
			results[i] = screener.Screen(gctx, text)
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return err
	}

	for i, res := range results {
		fmt.Printf("%q\n  verdict: %s\n", texts[i], res.Verdict)
		if res.Matched != "" {
			fmt.Printf("  matched: %s\n", res.Matched)
		}
		if len(res.Reasons) > 0 {
			fmt.Printf("  reasons: %s\n", strings.Join(res.Reasons, ", "))
		}
		if res.ScoresAvailable {
			for _, name := range res.Scores.Sorted() {
				fmt.Printf("  %s: %.2f\n", name, res.Scores[name])
			}
		}
	}
	return nil
}

func showReports(ctx context.Context, cmd *cli.Command) error {
	if cmd.Args().Len() != 1 {
		return fmt.Errorf("exactly one MESSAGE_ID is required")
	}
	return withStore(ctx, func(store db.Client) error {
		return writeRecord(ctx, store, cmd.Args().First(), os.Stdout)
	})
}

func showDecisions(ctx context.Context, cmd *cli.Command) error {
	if cmd.Args().Len() != 1 {
		return fmt.Errorf("exactly one FORWARD_ID is required")
	}
	return withStore(ctx, func(store db.Client) error {
		return writeDecisions(ctx, store, cmd.Args().First(), os.Stdout)
	})
}

func withStore(ctx context.Context, f func(store db.Client) error) error {
	cfg, err := loadConfig()
	if err != nil {
		return err
	}
	store, err := openStore(ctx, cfg)
	if err != nil {
		return err
	}
	defer func() { _ = store.Close() }()
	return f(store)
}

func writeRecord(ctx context.Context, store db.Client, messageID string, w io.Writer) error {
	record, err := store.GetRecord(ctx, messageID)
	if err != nil {
		return err
	}
	if record == nil {
		fmt.Fprintf(w, "message %s was never flagged\n", messageID)
		return nil
	}
	fmt.Fprintf(w, "%s: %q\n  guild: %s channel: %s\n  non-severe reports: %d\n", record.AuthorName, record.Content, record.GuildID, record.ChannelID, record.NonSevereCount)

	reports, err := store.GetReports(ctx, messageID)
	if err != nil {
		return err
	}
	for _, r := range reports {
		fmt.Fprintf(w, "  #%d by %s at %s: %q\n", r.Seq, r.Author, r.Timestamp.UTC().Format(db.ReviewerTimeLayout), r.Description)
	}
	return nil
}

func writeDecisions(ctx context.Context, store db.Client, forwardID string, w io.Writer) error {
	decisions, err := store.GetDecisions(ctx, forwardID)
	if err != nil {
		return err
	}
	if len(decisions) == 0 {
		fmt.Fprintf(w, "no decisions on forward %s\n", forwardID)
		return nil
	}
	for _, d := range decisions {
		fmt.Fprintf(w, "%s by %s (%s) at %s on message %s\n", d.Kind, d.ActorName, d.ActorID, d.DecidedAt.UTC().Format(db.ReviewerTimeLayout), d.MessageID)
	}
	return nil
}
