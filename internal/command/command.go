// Package command parses the bot's comment command grammar. A comment is a
// command when its first whitespace token is one of the bot's mention
// aliases and its second token is a known verb; everything after that is
// arguments or free text.
package command

import (
	"fmt"
	"strings"
)

// Verbs understood by the bot.
const (
	VerbAssign      = "assign"
	VerbUnassign    = "unassign"
	VerbContributor = "contributor"
)

// triggers are the mention aliases that address the bot.
var triggers = map[string]bool{
	"@any":     true,
	"@anybot":  true,
	"@any-bot": true,
}

// InvalidCommandError reports an unrecognized verb after a bot mention.
type InvalidCommandError struct {
	Token string
}

func (e *InvalidCommandError) Error() string {
	return fmt.Sprintf("invalid command: %q", e.Token)
}

// Command is a parsed bot command.
type Command struct {
	// Verb is one of the Verb constants.
	Verb string

	// Target is the resolved assignee login for assign/unassign ("me"
	// resolves to the comment author), or the contributor login for the
	// contributor verb.
	Target string

	// ContributionType is set for the contributor verb.
	ContributionType string

	// AdditionalInfo is the free text following the contributor arguments.
	AdditionalInfo string

	// Author is the comment author's login.
	Author string
}

// Parse interprets a comment body written by author. Comments that do not
// address the bot return (nil, nil); an addressed comment with an unknown
// verb returns an InvalidCommandError naming the offending token.
func Parse(body, author string) (*Command, error) {
	words := strings.Fields(strings.TrimSpace(body))
	if len(words) < 2 || !triggers[words[0]] {
		return nil, nil
	}

	cmd := &Command{Verb: words[1], Author: author}

	switch words[1] {
	case VerbAssign:
		if len(words) < 3 {
			return nil, &InvalidCommandError{Token: words[1]}
		}
		if words[2] == "me" {
			cmd.Target = author
		} else {
			cmd.Target = strings.TrimPrefix(words[2], "@")
		}
		return cmd, nil

	case VerbUnassign:
		if len(words) < 3 || words[2] != "me" {
			return nil, &InvalidCommandError{Token: strings.Join(words[1:], " ")}
		}
		cmd.Target = author
		return cmd, nil

	case VerbContributor:
		// format: @any contributor @login <type> [additional info...]
		if len(words) < 4 || !strings.HasPrefix(words[2], "@") {
			return nil, &InvalidCommandError{Token: strings.Join(words[1:], " ")}
		}
		cmd.Target = strings.TrimPrefix(words[2], "@")
		cmd.ContributionType = strings.ToLower(words[3])
		if len(words) > 4 {
			cmd.AdditionalInfo = strings.Join(words[4:], " ")
		}
		return cmd, nil

	default:
		return nil, &InvalidCommandError{Token: words[1]}
	}
}
