package moderation

import (
	"fmt"
	"regexp"
	"strings"
	"unicode/utf8"

	"github.com/iamwavecut/tool"

	"github.com/iamwavecut/modbot/internal/adapters/scoring"
	"github.com/iamwavecut/modbot/internal/bot"
	"github.com/iamwavecut/modbot/internal/db"
)

const forwardHeader = "Forwarded message with ID "

var forwardedIDPattern = regexp.MustCompile(`^` + forwardHeader + `(\d+)`)

const forwardTemplate = `Forwarded message with ID {{ .id }}
{{ .author }}: "{{ .content }}"
Reason: {{ .reason }}
Scores: {{ .scores }}
Previous content reviewer reports include the following:
{{ .reports }}

{{ .instructions }}`

type forwardView struct {
	Message         *bot.Message
	Reason          string
	Scores          scoring.Scores
	ScoresAvailable bool
	Reports         []*db.ReviewerReport
}

const (
	maxForwardLength     = 2000
	maxForwardedContent  = 800
	maxForwardReason     = 400
	maxReportDescription = 300
)

// renderForward keeps the forward within a single Discord message. The content and
// each report description are clipped, and the oldest reports give way first.
func renderForward(v forwardView, instructions string) string {
	fields := map[string]any{
		"id":           v.Message.ID,
		"author":       v.Message.AuthorName,
		"content":      clip(v.Message.Content, maxForwardedContent),
		"reason":       clip(v.Reason, maxForwardReason),
		"scores":       renderScores(v.Scores, v.ScoresAvailable),
		"reports":      "",
		"instructions": instructions,
	}
	budget := maxForwardLength - utf8.RuneCountInString(tool.ExecTemplate(forwardTemplate, fields))
	fields["reports"] = renderReports(v.Reports, budget)
	return tool.ExecTemplate(forwardTemplate, fields)
}

func renderScores(scores scoring.Scores, available bool) string {
	if !available || len(scores) == 0 {
		return "unavailable"
	}
	parts := make([]string, 0, len(scores))
	for _, name := range scores.Sorted() {
		parts = append(parts, fmt.Sprintf("%s %.2f", name, scores[name]))
	}
	return strings.Join(parts, ", ")
}

func renderReports(reports []*db.ReviewerReport, budget int) string {
	if len(reports) == 0 {
		return "No reports found."
	}
	lines := make([]string, len(reports))
	for i, r := range reports {
		lines[i] = fmt.Sprintf(`By %s at %s: "%s"`, r.Author, r.Timestamp.UTC().Format(db.ReviewerTimeLayout), clip(r.Description, maxReportDescription))
	}

	omitted := func(n int) string { return fmt.Sprintf("(%d earlier reports omitted)", n) }
	reserve := utf8.RuneCountInString(omitted(len(lines))) + 1
	first, used := len(lines), 0
	for first > 0 {
		n := utf8.RuneCountInString(lines[first-1])
		if first < len(lines) {
			n++
		}
		if first > 1 && used+n+reserve > budget || first == 1 && used+n > budget {
			break
		}
		used += n
		first--
	}
	if first == 0 {
		return strings.Join(lines, "\n")
	}
	kept := append([]string{omitted(first)}, lines[first:]...)
	return strings.Join(kept, "\n")
}

func clip(text string, limit int) string {
	if utf8.RuneCountInString(text) <= limit {
		return text
	}
	runes := []rune(text)
	return string(runes[:limit-1]) + "…"
}

// ParseForwardedID recovers the original message ID from a forward's text.
func ParseForwardedID(text string) (string, bool) {
	m := forwardedIDPattern.FindStringSubmatch(strings.TrimSpace(text))
	if m == nil {
		return "", false
	}
	return m[1], true
}
