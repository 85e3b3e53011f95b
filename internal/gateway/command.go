package gateway

import (
	"strings"
	"time"
	"unicode"

	"github.com/abutispinach/agroplan/internal/agent"
)

const (
	CommandPlan = "plan"
	CommandHelp = "help"
)

const helpText = `🌱 Agroplan plans a crop season for you.

Send:
/plan <location> | <crop> | <start date>

Example:
/plan Nairobi | maize | 2024-04-01

The start date is YYYY-MM-DD, "today" or "tomorrow" and cannot be in the past.
You will get the current weather, advice from each expert, a voice note for
every answer and a calendar file.`

// Command is a parsed chat command.
type Command struct {
	Name string
	Form agent.Form
}

// ParseCommand reads "/plan <location> | <crop> | <date>" and "/help".
// A message that is not a command yields ok == false.
func ParseCommand(text string, now time.Time) (cmd Command, ok bool, err error) {
	text = strings.TrimSpace(text)
	if !strings.HasPrefix(text, "/") {
		return Command{}, false, nil
	}

	head, rest := text, ""
	if i := strings.IndexFunc(text, unicode.IsSpace); i >= 0 {
		head, rest = text[:i], text[i+1:]
	}
	name := strings.ToLower(strings.TrimPrefix(head, "/"))
	// Telegram appends the bot name in groups: /plan@agroplan_bot
	name, _, _ = strings.Cut(name, "@")

	switch name {
	case "start", CommandHelp:
		return Command{Name: CommandHelp}, true, nil
	case CommandPlan:
	default:
		return Command{}, false, nil
	}

	parts := strings.Split(rest, "|")
	if len(parts) != 3 {
		return Command{}, true, &agent.ValidationError{
			Field:   "command",
			Message: "expected /plan <location> | <crop> | <start date>",
		}
	}
	for i := range parts {
		parts[i] = strings.TrimSpace(parts[i])
	}
	if parts[0] == "" {
		return Command{}, true, &agent.ValidationError{Field: "location", Message: "location is required"}
	}
	if parts[1] == "" {
		return Command{}, true, &agent.ValidationError{Field: "crop", Message: "crop is required"}
	}
	start, err := agent.ParseDate(parts[2], now)
	if err != nil {
		return Command{}, true, err
	}

	return Command{
		Name: CommandPlan,
		Form: agent.Form{Location: parts[0], Crop: parts[1], StartDate: start},
	}, true, nil
}
