// Package domain contains pure, dependency-free types for the chat and
// comparison session: transcript messages, catalogs, comparison requests
// and the normalized metric views produced from backend payloads.
package domain

// Message is a single transcript entry. Messages are append-only and are
// never edited after creation; insertion order is conversation order.
type Message struct {
	// Text is the message body. For failed assistant turns it carries the
	// user-facing error message.
	Text string `json:"text"`

	// IsUser is true for messages typed by the user and false for
	// assistant responses.
	IsUser bool `json:"isUser"`
}

// UserMessage builds a transcript entry authored by the user.
func UserMessage(text string) Message { return Message{Text: text, IsUser: true} }

// AssistantMessage builds a transcript entry authored by the assistant.
func AssistantMessage(text string) Message { return Message{Text: text} }
