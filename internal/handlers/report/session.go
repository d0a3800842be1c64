package report

import (
	"github.com/iamwavecut/modbot/internal/bot"
)

type State string

const (
	StateStart                State = "start"
	StateAwaitingMessageLink  State = "awaiting_message_link"
	StateMessageIdentified    State = "message_identified"
	StateScamIdentified       State = "scam_identified"
	StateAbuseTypeIdentified  State = "abuse_type_identified"
	StateAbuseDetails         State = "abuse_details"
	StateMisleadingIdentified State = "misleading_identified"
	StateAdditionalInfo       State = "additional_info"
	StateComplete             State = "complete"
)

// Outcome is how a completed session ended.
type Outcome string

const (
	OutcomeNone        Outcome = ""
	OutcomeCancelled   Outcome = "cancelled"
	OutcomeDismissed   Outcome = "dismissed"
	OutcomeUnsupported Outcome = "unsupported"
	OutcomeNonSevere   Outcome = "non_severe"
	OutcomeSevere      Outcome = "severe"
)

// Session is one reporter's walk through the intake flow. It is owned by the
// Registry and only mutated under the reporter's lock.
type Session struct {
	UserID   string
	UserName string
	State    State
	Target   *bot.Message
	Outcome  Outcome
	Category string
	Details  string
	// ShouldForward is set when the reporter's answers alone justify escalation.
	ShouldForward bool
}

func NewSession(userID, userName string) *Session {
	return &Session{
		UserID:   userID,
		UserName: userName,
		State:    StateStart,
	}
}

func (s *Session) Complete() bool {
	return s.State == StateComplete
}

func (s *Session) finish(outcome Outcome) {
	s.State = StateComplete
	s.Outcome = outcome
	s.ShouldForward = outcome == OutcomeSevere
}
