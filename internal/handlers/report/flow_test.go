package report

import (
	"context"
	"strings"
	"testing"

	"github.com/iamwavecut/modbot/internal/bot"
	"github.com/iamwavecut/modbot/internal/bot/bottest"
	"github.com/iamwavecut/modbot/internal/errors"
)

func newTestMachine(t *testing.T, flow string) (*Machine, *bottest.Platform) {
	t.Helper()
	p := bottest.NewPlatform("self")
	p.AddChannel("100", "200")
	p.AddMessage(&bot.Message{ID: "300", ChannelID: "200", GuildID: "100", AuthorID: "7", AuthorName: "mallory", Content: "send me 1 BTC"})
	return NewMachine(p, flow, "en"), p
}

func identified(t *testing.T, m *Machine) *Session {
	t.Helper()
	ctx := context.Background()
	s := NewSession("42", "alice")
	if _, err := m.HandleMessage(ctx, s, "report"); err != nil {
		t.Fatalf("start: %v", err)
	}
	replies, err := m.HandleMessage(ctx, s, "https://discord.com/channels/100/200/300")
	if err != nil {
		t.Fatalf("link: %v", err)
	}
	if s.State != StateMessageIdentified || s.Target == nil || s.Target.ID != "300" {
		t.Fatalf("message was not identified: %+v", s)
	}
	if len(replies) != 3 || replies[1] != "```mallory: send me 1 BTC```" {
		t.Fatalf("unexpected echo %q", replies)
	}
	return s
}

func TestParseMessageLink(t *testing.T) {
	t.Parallel()

	tests := []struct {
		in   string
		want MessageLink
		ok   bool
	}{
		{in: "https://discord.com/channels/1/2/3", want: MessageLink{"1", "2", "3"}, ok: true},
		{in: "1/2/3", want: MessageLink{"1", "2", "3"}, ok: true},
		{in: "https://discord.com/channels/1/2/3/", want: MessageLink{"1", "2", "3"}, ok: true},
		{in: "https://discord.com/channels/1/2", ok: false},
		{in: "1/a/3", ok: false},
		{in: "hello", ok: false},
	}
	for _, tt := range tests {
		got, err := ParseMessageLink(tt.in)
		if tt.ok != (err == nil) {
			t.Fatalf("%q: unexpected error state %v", tt.in, err)
		}
		if !tt.ok {
			if !errors.Is(err, errors.ErrUserInput) {
				t.Fatalf("%q: expected user input error, got %v", tt.in, err)
			}
			continue
		}
		if got != tt.want {
			t.Fatalf("%q: got %+v want %+v", tt.in, got, tt.want)
		}
	}
}

func TestLinkFailuresKeepDistinctPrompts(t *testing.T) {
	t.Parallel()

	m, _ := newTestMachine(t, FlowMenu)
	ctx := context.Background()
	tests := []struct {
		link string
		want string
	}{
		{link: "not a link", want: "couldn't read that link"},
		{link: "999/200/300", want: "guilds that I'm not in"},
		{link: "100/999/300", want: "channel was deleted"},
		{link: "100/200/999", want: "message was deleted"},
	}
	for _, tt := range tests {
		s := &Session{UserID: "1", State: StateAwaitingMessageLink}
		replies, err := m.HandleMessage(ctx, s, tt.link)
		if err != nil {
			t.Fatalf("%q: %v", tt.link, err)
		}
		if len(replies) != 1 || !strings.Contains(replies[0], tt.want) {
			t.Fatalf("%q: unexpected replies %q", tt.link, replies)
		}
		if s.State != StateAwaitingMessageLink || s.Target != nil {
			t.Fatalf("%q: state advanced to %s", tt.link, s.State)
		}
	}
}

func TestUnrecognizedInputNeverAdvances(t *testing.T) {
	t.Parallel()

	states := map[string][]State{
		FlowBasic: {StateMessageIdentified, StateScamIdentified, StateAbuseDetails},
		FlowMenu:  {StateMessageIdentified, StateScamIdentified, StateAbuseTypeIdentified, StateMisleadingIdentified},
	}
	inputs := []string{"maybe", "7", "0", "yes please", "12", "?"}
	for flow, list := range states {
		m, _ := newTestMachine(t, flow)
		for _, state := range list {
			for _, in := range inputs {
				s := &Session{UserID: "1", State: state, Target: &bot.Message{ID: "300"}}
				replies, err := m.HandleMessage(context.Background(), s, in)
				if err != nil {
					t.Fatalf("%s/%s/%q: %v", flow, state, in, err)
				}
				if s.State != state {
					t.Fatalf("%s/%s/%q: advanced to %s", flow, state, in, s.State)
				}
				if len(replies) != 1 || !(strings.Contains(replies[0], "choose a number") || strings.Contains(replies[0], "yes or no")) {
					t.Fatalf("%s/%s/%q: expected a re-prompt, got %q", flow, state, in, replies)
				}
			}
		}
	}
}

func TestCancelFromAnyState(t *testing.T) {
	t.Parallel()

	m, _ := newTestMachine(t, FlowMenu)
	for _, state := range []State{
		StateStart, StateAwaitingMessageLink, StateMessageIdentified, StateScamIdentified,
		StateAbuseTypeIdentified, StateMisleadingIdentified, StateAdditionalInfo,
	} {
		s := &Session{UserID: "1", State: state}
		replies, err := m.HandleMessage(context.Background(), s, " Cancel ")
		if err != nil {
			t.Fatalf("%s: %v", state, err)
		}
		if !s.Complete() || s.Outcome != OutcomeCancelled || s.ShouldForward {
			t.Fatalf("%s: cancel did not complete the session: %+v", state, s)
		}
		if len(replies) != 1 || replies[0] != "Report cancelled." {
			t.Fatalf("%s: unexpected replies %q", state, replies)
		}
	}
}

func TestBasicFlowSevere(t *testing.T) {
	t.Parallel()

	m, _ := newTestMachine(t, FlowBasic)
	s := identified(t, m)
	ctx := context.Background()
	for _, step := range []struct {
		in    string
		state State
	}{
		{"yes", StateScamIdentified},
		{"YES", StateAbuseTypeIdentified},
		{"asked me to send crypto", StateAbuseDetails},
	} {
		if _, err := m.HandleMessage(ctx, s, step.in); err != nil {
			t.Fatalf("%q: %v", step.in, err)
		}
		if s.State != step.state || s.Complete() {
			t.Fatalf("%q: got state %s want %s", step.in, s.State, step.state)
		}
	}
	replies, err := m.HandleMessage(ctx, s, "yes")
	if err != nil {
		t.Fatalf("final: %v", err)
	}
	if !s.Complete() || s.Outcome != OutcomeSevere || !s.ShouldForward {
		t.Fatalf("unexpected final session %+v", s)
	}
	if s.Details != "asked me to send crypto" {
		t.Fatalf("details were not kept: %q", s.Details)
	}
	if len(replies) != 1 || !strings.Contains(replies[0], "get back to you soon") {
		t.Fatalf("unexpected acknowledgement %q", replies)
	}
}

func TestBasicFlowNoIsUnsupportedTerminal(t *testing.T) {
	t.Parallel()

	m, _ := newTestMachine(t, FlowBasic)
	s := identified(t, m)
	replies, err := m.HandleMessage(context.Background(), s, "no")
	if err != nil {
		t.Fatalf("no: %v", err)
	}
	if !s.Complete() || s.Outcome != OutcomeUnsupported {
		t.Fatalf("unexpected session %+v", s)
	}
	if len(replies) != 1 || !strings.Contains(replies[0], "not supported yet") {
		t.Fatalf("unexpected replies %q", replies)
	}
}

func TestMenuFlowBranches(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name     string
		inputs   []string
		outcome  Outcome
		category string
		details  string
	}{
		{name: "dismiss", inputs: []string{"1"}, outcome: OutcomeDismissed, category: "dislike"},
		{name: "scam lost money", inputs: []string{"2", "yes", "no"}, outcome: OutcomeSevere, category: "scam"},
		{name: "scam with details", inputs: []string{"2", "no", "yes", "they dm'd me first"}, outcome: OutcomeNonSevere, category: "scam", details: "they dm'd me first"},
		{name: "harassment", inputs: []string{"3", "1", "no"}, outcome: OutcomeNonSevere, category: "harassment"},
		{name: "threat", inputs: []string{"3", "3", "no"}, outcome: OutcomeSevere, category: "threat"},
		{name: "misleading", inputs: []string{"4", "2.", "no", "no"}, outcome: OutcomeNonSevere, category: "fake offer"},
		{name: "self-harm", inputs: []string{"5"}, outcome: OutcomeSevere, category: "self-harm"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()
			m, _ := newTestMachine(t, FlowMenu)
			s := identified(t, m)
			for i, in := range tt.inputs {
				if s.Complete() {
					t.Fatalf("completed early before input %d", i)
				}
				if _, err := m.HandleMessage(context.Background(), s, in); err != nil {
					t.Fatalf("input %q: %v", in, err)
				}
			}
			if !s.Complete() {
				t.Fatalf("session not complete, state %s", s.State)
			}
			if s.Outcome != tt.outcome || s.Category != tt.category || s.Details != tt.details {
				t.Fatalf("unexpected session %+v", s)
			}
			if s.ShouldForward != (tt.outcome == OutcomeSevere) {
				t.Fatalf("unexpected forward flag %+v", s)
			}
		})
	}
}

func TestUnknownStateIsInvariantViolation(t *testing.T) {
	t.Parallel()

	for _, flow := range []string{FlowBasic, FlowMenu} {
		m, _ := newTestMachine(t, flow)
		s := &Session{UserID: "1", State: "bogus"}
		if _, err := m.HandleMessage(context.Background(), s, "yes"); !errors.Is(err, errors.ErrInvariant) {
			t.Fatalf("%s: expected invariant error, got %v", flow, err)
		}
	}
}
