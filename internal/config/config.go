package config

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/mitchellh/go-homedir"
	"github.com/sethvargo/go-envconfig"
	log "github.com/sirupsen/logrus"
)

type (
	Config struct {
		DiscordToken    string   `env:"TOKEN"`
		DefaultLanguage string   `env:"LANG,default=en"`
		EnabledHandlers []string `env:"HANDLERS,default=moderation,intake,screening"`
		LogLevel        int      `env:"LOG_LEVEL,default=4"`
		DotPath         string   `env:"DOT_PATH,default=~/.modbot"`

		// Group selects the group-{n} / group-{n}-mod channel pair; derived from the bot name when empty.
		Group       string `env:"GROUP"`
		MetricsAddr string `env:"METRICS_ADDR,default=:2112"`

		Store      Store
		Scorer     Scorer
		Screening  Screening
		Escalation Escalation
		Report     Report
	}

	Store struct {
		Type          string `env:"STORE_TYPE,default=sqlite"`
		SQLiteFile    string `env:"STORE_SQLITE_FILE,default=modbot.db"`
		RedisAddr     string `env:"STORE_REDIS_ADDR,default=127.0.0.1:6379"`
		RedisPassword string `env:"STORE_REDIS_PASSWORD"`
		RedisPrefix   string `env:"STORE_REDIS_PREFIX,default=modbot:"`
	}

	Scorer struct {
		Type    string        `env:"SCORER_TYPE,default=none"`
		APIKey  string        `env:"SCORER_API_KEY"`
		BaseURL string        `env:"SCORER_API_URL"`
		Model   string        `env:"SCORER_MODEL"`
		Timeout time.Duration `env:"SCORER_TIMEOUT,default=3s"`
	}

	Screening struct {
		BlacklistPath string `env:"BLACKLIST_PATH,default=blacklist.txt"`
		RulesPath     string `env:"SCREENING_RULES_PATH"`
	}

	Escalation struct {
		ConfirmEmoji      string `env:"CONFIRM_EMOJI,default=👍"`
		InsufficientEmoji string `env:"INSUFFICIENT_EMOJI,default=👎"`
		DeleteEmoji       string `env:"DELETE_EMOJI,default=❌"`

		// DeleteEnabled switches between the three-glyph variant and the reviewer-report-only variant.
		DeleteEnabled      bool `env:"DELETE_ENABLED,default=true"`
		NonSevereThreshold int  `env:"NON_SEVERE_THRESHOLD,default=2"`
	}

	Report struct {
		Flow string `env:"REPORT_FLOW,default=menu"`
	}
)

var (
	once         sync.Once
	globalConfig = &Config{}
	globalErr    error
)

func Load() (Config, error) {
	once.Do(func() {
		cfg, err := Process(context.Background(), envconfig.OsLookuper())
		if err != nil {
			globalErr = err
			return
		}
		log.Traceln("loaded config")
		globalConfig = cfg
	})
	return *globalConfig, globalErr
}

// Process reads MB_ prefixed variables from lookuper.
func Process(ctx context.Context, lookuper envconfig.Lookuper) (*Config, error) {
	cfg := &Config{}
	envcfg := envconfig.Config{
		Lookuper: envconfig.PrefixLookuper("MB_", lookuper),
		Target:   cfg,
	}
	if err := envconfig.ProcessWith(ctx, &envcfg); err != nil {
		return nil, fmt.Errorf("process env config: %w", err)
	}
	dotPath, err := homedir.Expand(cfg.DotPath)
	if err != nil {
		return nil, fmt.Errorf("expand dot path: %w", err)
	}
	cfg.DotPath = dotPath
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

func (c *Config) Validate() error {
	switch c.Store.Type {
	case "sqlite", "redis":
	default:
		return fmt.Errorf("unsupported store type %q", c.Store.Type)
	}
	switch c.Scorer.Type {
	case "none", "perspective", "openai":
	default:
		return fmt.Errorf("unsupported scorer type %q", c.Scorer.Type)
	}
	if c.Scorer.Type != "none" && c.Scorer.APIKey == "" {
		return fmt.Errorf("scorer %q requires MB_SCORER_API_KEY", c.Scorer.Type)
	}
	switch c.Report.Flow {
	case "menu", "basic":
	default:
		return fmt.Errorf("unsupported report flow %q", c.Report.Flow)
	}
	if c.Escalation.NonSevereThreshold < 0 {
		return fmt.Errorf("non-severe threshold must not be negative")
	}
	return nil
}

