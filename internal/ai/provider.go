// Package ai wraps the hosted generative model behind a small provider
// interface. The service treats the model as an external collaborator: text
// in, text out, no prompt logic beyond assembling the conversation.
package ai

import "context"

// Message is one turn of a conversation.
type Message struct {
	Role    string `json:"role"` // "system", "user", "assistant"
	Content string `json:"content"`
}

// Provider is the interface the rest of the service consumes.
type Provider interface {
	// Complete returns the full assistant reply for the conversation.
	Complete(ctx context.Context, messages []Message) (string, error)

	// StreamChat streams the assistant reply token by token through fn.
	// A non-nil error from fn stops the stream.
	StreamChat(ctx context.Context, messages []Message, fn func(token string) error) error

	// Models lists the model identifiers the backend offers; doubles as a
	// connectivity probe for health reporting.
	Models(ctx context.Context) ([]string, error)
}

// SuggestionPrompt frames a code-suggestion request around the current
// buffers. Prompt engineering is not this service's concern, so the frame
// stays minimal.
func SuggestionPrompt(html, css, js, request string) []Message {
	return []Message{
		{Role: "system", Content: "You are a code assistant embedded in an HTML/CSS/JavaScript playground. Answer with code and brief explanations."},
		{Role: "user", Content: "Current HTML:\n" + html + "\n\nCurrent CSS:\n" + css + "\n\nCurrent JavaScript:\n" + js + "\n\nRequest: " + request},
	}
}
