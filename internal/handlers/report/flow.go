package report

import (
	"context"
	"fmt"
	"strings"

	log "github.com/sirupsen/logrus"

	"github.com/iamwavecut/modbot/internal/bot"
	"github.com/iamwavecut/modbot/internal/errors"
	"github.com/iamwavecut/modbot/internal/i18n"
)

const (
	FlowBasic = "basic"
	FlowMenu  = "menu"

	KeywordReport = "report"
	KeywordCancel = "cancel"
	KeywordHelp   = "help"
)

// Resolver locates the message a reporter links to.
type Resolver interface {
	ResolveMessage(ctx context.Context, guildID, channelID, messageID string) (*bot.Message, error)
}

// Machine advances report sessions. It holds no per-session state and is safe for concurrent use
// as long as each session is only handled by one goroutine at a time.
type Machine struct {
	resolver Resolver
	flow     string
	lang     string
}

func NewMachine(resolver Resolver, flow, lang string) *Machine {
	if flow != FlowBasic {
		flow = FlowMenu
	}
	return &Machine{resolver: resolver, flow: flow, lang: lang}
}

func (m *Machine) getLogEntry() *log.Entry {
	return log.WithField("object", "ReportMachine")
}

func (m *Machine) t(key string) string {
	return i18n.Get(key, m.lang)
}

// HelpText is the usage reply for the help keyword.
func (m *Machine) HelpText() string {
	return m.t("Use the `report` command to begin the reporting process.\nUse the `cancel` command to cancel the report process.")
}

// HandleMessage feeds one reporter message into the session and returns the replies in order.
// Unrecognized input leaves the state untouched and yields a re-prompt. An error is only
// returned for a state the machine does not know, and the session must be dropped then.
func (m *Machine) HandleMessage(ctx context.Context, s *Session, text string) ([]string, error) {
	text = strings.TrimSpace(text)
	if strings.EqualFold(text, KeywordCancel) {
		s.finish(OutcomeCancelled)
		return []string{m.t("Report cancelled.")}, nil
	}

	switch s.State {
	case StateStart:
		s.State = StateAwaitingMessageLink
		return []string{
			m.t("Thank you for starting the reporting process. Say `help` at any time for more information."),
			m.t("Please copy paste the link to the message you want to report.\nYou can obtain this link by right-clicking the message and clicking `Copy Message Link`."),
		}, nil
	case StateAwaitingMessageLink:
		return m.identifyMessage(ctx, s, text), nil
	}

	if m.flow == FlowBasic {
		return m.basicStep(s, text)
	}
	return m.menuStep(s, text)
}

func (m *Machine) identifyMessage(ctx context.Context, s *Session, text string) []string {
	link, err := ParseMessageLink(text)
	if err != nil {
		return []string{m.t("I'm sorry, I couldn't read that link. Please try again or say `cancel` to cancel.")}
	}
	msg, err := m.resolver.ResolveMessage(ctx, link.GuildID, link.ChannelID, link.MessageID)
	switch {
	case err == nil:
	case errors.Is(err, bot.ErrGuildNotFound):
		return []string{m.t("I cannot accept reports of messages from guilds that I'm not in. Please have the guild owner add me to the guild and try again.")}
	case errors.Is(err, bot.ErrChannelNotFound):
		return []string{m.t("It seems this channel was deleted or never existed. Please try again or say `cancel` to cancel.")}
	case errors.Is(err, bot.ErrMessageNotFound):
		return []string{m.t("It seems this message was deleted or never existed. Please try again or say `cancel` to cancel.")}
	default:
		m.getLogEntry().WithError(err).WithField("link", text).Warn("cant resolve reported message")
		return []string{m.t("I could not look up that message right now. Please try again or say `cancel` to cancel.")}
	}

	s.Target = msg
	s.State = StateMessageIdentified
	echo := fmt.Sprintf("```%s: %s```", msg.AuthorName, msg.Content)
	if m.flow == FlowBasic {
		return []string{m.t("I found this message:"), echo, m.t("Is this message trying to scam or defraud someone? Please answer yes or no.")}
	}
	return []string{m.t("I found this message:"), echo, m.reasonMenu()}
}

func (m *Machine) reasonMenu() string {
	return m.t("Why are you reporting this message? Reply with a number:\n1. I just don't like it\n2. Scam or fraud\n3. Abuse or harassment\n4. Misleading or false information\n5. Self-harm or suicide")
}

func (m *Machine) lostMoneyPrompt() string {
	return m.t("Have you lost money due to interaction with this account? Please answer yes or no.")
}

func (m *Machine) acknowledge() string {
	return m.t("Thank you for your report. We will investigate this message and get back to you soon.")
}

func (m *Machine) unsupported(s *Session) []string {
	s.finish(OutcomeUnsupported)
	return []string{m.t("This kind of report is not supported yet. Please contact a moderator directly.")}
}

func (m *Machine) askYesNo() []string {
	return []string{m.t("Please answer yes or no.")}
}

func (m *Machine) askNumber() []string {
	return []string{m.t("Please choose a number from the list.")}
}

func (m *Machine) basicStep(s *Session, text string) ([]string, error) {
	switch s.State {
	case StateMessageIdentified:
		yes, ok := parseYesNo(text)
		if !ok {
			return m.askYesNo(), nil
		}
		if !yes {
			return m.unsupported(s), nil
		}
		s.Category = "scam"
		s.State = StateScamIdentified
		return []string{m.t("Is this message related to finance (investment, buying cryptocurrencies etc.)? Please answer yes or no.")}, nil

	case StateScamIdentified:
		yes, ok := parseYesNo(text)
		if !ok {
			return m.askYesNo(), nil
		}
		if !yes {
			return m.unsupported(s), nil
		}
		s.Category = "financial scam"
		s.State = StateAbuseTypeIdentified
		return []string{m.t("What is wrong with this message or account?")}, nil

	case StateAbuseTypeIdentified:
		if text == "" {
			return []string{m.t("What is wrong with this message or account?")}, nil
		}
		s.Details = text
		s.State = StateAbuseDetails
		return []string{m.lostMoneyPrompt()}, nil

	case StateAbuseDetails:
		yes, ok := parseYesNo(text)
		if !ok {
			return m.askYesNo(), nil
		}
		if yes {
			s.finish(OutcomeSevere)
		} else {
			s.finish(OutcomeNonSevere)
		}
		return []string{m.acknowledge()}, nil
	}
	return nil, fmt.Errorf("basic flow in state %q: %w", s.State, errors.ErrInvariant)
}

func (m *Machine) menuStep(s *Session, text string) ([]string, error) {
	switch s.State {
	case StateMessageIdentified:
		switch parseChoice(text, 5) {
		case 1:
			s.Category = "dislike"
			s.finish(OutcomeDismissed)
			return []string{m.t("Thank you for letting us know. Messages that do not break the rules will not be acted on.")}, nil
		case 2:
			s.Category = "scam"
			s.State = StateScamIdentified
			return []string{m.lostMoneyPrompt()}, nil
		case 3:
			s.Category = "abuse"
			s.State = StateAbuseTypeIdentified
			return []string{m.t("What kind of abuse is it? Reply with a number:\n1. Bullying or harassment\n2. Hate speech\n3. Threats of violence")}, nil
		case 4:
			s.Category = "misleading"
			s.State = StateMisleadingIdentified
			return []string{m.t("What kind of misleading content is it? Reply with a number:\n1. Impersonation\n2. Fake giveaway or investment offer\n3. Other false information")}, nil
		case 5:
			s.Category = "self-harm"
			s.finish(OutcomeSevere)
			return []string{m.t("A moderator will review this message right away. If someone is in immediate danger, please contact local emergency services.")}, nil
		}
		return m.askNumber(), nil

	case StateAbuseTypeIdentified:
		choice := parseChoice(text, 3)
		if choice == 0 {
			return m.askNumber(), nil
		}
		s.Category = []string{"", "harassment", "hate speech", "threat"}[choice]
		s.Outcome = OutcomeNonSevere
		if choice == 3 {
			s.Outcome = OutcomeSevere
		}
		s.State = StateAdditionalInfo
		return []string{m.additionalInfoPrompt()}, nil

	case StateMisleadingIdentified:
		choice := parseChoice(text, 3)
		if choice == 0 {
			return m.askNumber(), nil
		}
		s.Category = []string{"", "impersonation", "fake offer", "false information"}[choice]
		s.State = StateScamIdentified
		return []string{m.lostMoneyPrompt()}, nil

	case StateScamIdentified:
		yes, ok := parseYesNo(text)
		if !ok {
			return m.askYesNo(), nil
		}
		s.Outcome = OutcomeNonSevere
		if yes {
			s.Outcome = OutcomeSevere
		}
		s.State = StateAdditionalInfo
		return []string{m.additionalInfoPrompt()}, nil

	case StateAdditionalInfo:
		if text == "" {
			return []string{m.additionalInfoPrompt()}, nil
		}
		switch yes, ok := parseYesNo(text); {
		case ok && yes:
			return []string{m.t("Please type the details you would like to add.")}, nil
		case !ok:
			s.Details = text
		}
		s.finish(s.Outcome)
		return []string{m.acknowledge()}, nil
	}
	return nil, fmt.Errorf("menu flow in state %q: %w", s.State, errors.ErrInvariant)
}

func (m *Machine) additionalInfoPrompt() string {
	return m.t("Is there anything else you would like to tell us? Reply with the details or say `no` to finish.")
}

func parseYesNo(text string) (yes bool, ok bool) {
	switch strings.ToLower(strings.TrimSpace(text)) {
	case "yes", "y":
		return true, true
	case "no", "n":
		return false, true
	}
	return false, false
}

// parseChoice returns the picked menu item or 0 when text is not a number in [1, options].
func parseChoice(text string, options int) int {
	text = strings.TrimSuffix(strings.TrimSpace(text), ".")
	if len(text) != 1 || text[0] < '1' || int(text[0]-'0') > options {
		return 0
	}
	return int(text[0] - '0')
}
