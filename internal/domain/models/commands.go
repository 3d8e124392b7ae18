package models

import "strings"

// CommandType enumerates the owner commands understood over WhatsApp.
type CommandType string

const (
	CommandSummary CommandType = "summary"
	CommandDrafts  CommandType = "drafts"
	CommandStock   CommandType = "stock"
	CommandHelp    CommandType = "help"
	CommandUnknown CommandType = "unknown"
	// CommandOrder marks free text that should be treated as an order message.
	CommandOrder CommandType = "order"
)

// Command represents an owner instruction extracted from WhatsApp text.
type Command struct {
	Type CommandType
	Raw  string
	Args []string
}

// ParseCommand derives a Command from a message. Only slash-prefixed messages
// are commands; anything else is an order message.
func ParseCommand(message string) Command {
	normalized := strings.TrimSpace(strings.ToLower(message))
	cmd := Command{Raw: message}

	if !strings.HasPrefix(normalized, "/") {
		cmd.Type = CommandOrder
		return cmd
	}

	tokens := strings.Fields(normalized)
	head := strings.TrimPrefix(tokens[0], "/")
	switch head {
	case string(CommandSummary):
		cmd.Type = CommandSummary
	case string(CommandDrafts):
		cmd.Type = CommandDrafts
	case string(CommandStock):
		cmd.Type = CommandStock
	case string(CommandHelp):
		cmd.Type = CommandHelp
	default:
		cmd.Type = CommandUnknown
	}

	if len(tokens) > 1 {
		cmd.Args = tokens[1:]
	}

	return cmd
}
