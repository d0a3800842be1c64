package config

import (
	"context"
	"strings"
	"testing"
	"time"

	"github.com/sethvargo/go-envconfig"
)

func TestProcessAppliesDefaults(t *testing.T) {
	t.Parallel()

	cfg, err := Process(context.Background(), envconfig.MapLookuper(map[string]string{}))
	if err != nil {
		t.Fatalf("process: %v", err)
	}
	if cfg.Store.Type != "sqlite" || cfg.Scorer.Type != "none" || cfg.Report.Flow != "menu" {
		t.Fatalf("unexpected defaults: %+v", cfg)
	}
	if cfg.Scorer.Timeout != 3*time.Second {
		t.Fatalf("unexpected scorer timeout %v", cfg.Scorer.Timeout)
	}
	if cfg.Escalation.NonSevereThreshold != 2 || !cfg.Escalation.DeleteEnabled {
		t.Fatalf("unexpected escalation defaults: %+v", cfg.Escalation)
	}
	if strings.HasPrefix(cfg.DotPath, "~") {
		t.Fatalf("dot path was not expanded: %s", cfg.DotPath)
	}
	if len(cfg.EnabledHandlers) != 3 {
		t.Fatalf("unexpected handlers: %v", cfg.EnabledHandlers)
	}
}

func TestProcessReadsPrefixedVariables(t *testing.T) {
	t.Parallel()

	cfg, err := Process(context.Background(), envconfig.MapLookuper(map[string]string{
		"MB_TOKEN":                           "abc",
		"MB_STORE_TYPE":                      "redis",
		"MB_SCORER_TYPE":                     "perspective",
		"MB_SCORER_API_KEY":                  "key",
		"MB_ESCALATION_NON_SEVERE_THRESHOLD": "9",
		"MB_NON_SEVERE_THRESHOLD":            "5",
		"MB_DELETE_ENABLED":                  "false",
		"TOKEN":                              "ignored",
	}))
	if err != nil {
		t.Fatalf("process: %v", err)
	}
	if cfg.DiscordToken != "abc" || cfg.Store.Type != "redis" || cfg.Scorer.Type != "perspective" {
		t.Fatalf("unexpected config: %+v", cfg)
	}
	if cfg.Escalation.NonSevereThreshold != 5 || cfg.Escalation.DeleteEnabled {
		t.Fatalf("unexpected escalation config: %+v", cfg.Escalation)
	}
}

func TestValidateRejectsUnknownValues(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name string
		env  map[string]string
	}{
		{name: "store", env: map[string]string{"MB_STORE_TYPE": "postgres"}},
		{name: "scorer", env: map[string]string{"MB_SCORER_TYPE": "llama"}},
		{name: "scorer without key", env: map[string]string{"MB_SCORER_TYPE": "openai"}},
		{name: "flow", env: map[string]string{"MB_REPORT_FLOW": "wizard"}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()
			if _, err := Process(context.Background(), envconfig.MapLookuper(tt.env)); err == nil {
				t.Fatalf("expected validation error")
			}
		})
	}
}
