// Package gateway adapts the conversation engine to a chat transport. It turns
// chat text into events, renders replies back to text with optional keyboard
// choices, and serves both over a JSON WebSocket endpoint.
package gateway

import (
	"strings"

	"github.com/diogoviieira/register-track-bot/internal/conversation"
)

const cancelCommand = "cancel"

// Classify turns one chat message into an engine event. Messages starting
// with "/" are commands, "/cancel" is the cancel event, anything else is text.
func Classify(owner, text string) conversation.Event {
	trimmed := strings.TrimSpace(text)
	if !strings.HasPrefix(trimmed, "/") {
		return conversation.Event{Owner: owner, Type: conversation.EventText, Text: text}
	}

	fields := strings.Fields(trimmed[1:])
	if len(fields) == 0 {
		return conversation.Event{Owner: owner, Type: conversation.EventText, Text: text}
	}
	// chat clients address commands as /name@bot in group chats
	name, _, _ := strings.Cut(fields[0], "@")
	name = strings.ToLower(name)

	if name == cancelCommand {
		return conversation.Event{Owner: owner, Type: conversation.EventCancel}
	}
	return conversation.Event{
		Owner:   owner,
		Type:    conversation.EventCommand,
		Command: name,
		Args:    fields[1:],
	}
}
