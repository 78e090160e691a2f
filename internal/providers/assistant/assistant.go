package assistant

import "context"

type EventType string

const (
	EventSessionStarted           EventType = "session-started"
	EventAssistantSpeakingStarted EventType = "assistant-speaking-started"
	EventAssistantSpeakingEnded   EventType = "assistant-speaking-ended"
	EventSessionEnded             EventType = "session-ended"
	EventSessionError             EventType = "session-error"
)

// Event is one asynchronous notification from the remote voice-assistant service.
type Event struct {
	Type EventType
	Err  error // set for EventSessionError
}

// StartRequest is the session-start payload understood by the remote assistant.
type StartRequest struct {
	Name         string      `json:"name"`
	FirstMessage string      `json:"firstMessage"`
	Model        ModelConfig `json:"model"`
}

type ModelConfig struct {
	Provider string    `json:"provider"`
	Model    string    `json:"model"`
	Messages []Message `json:"messages"`
}

type Message struct {
	Role    string `json:"role"`
	Content string `json:"content"`
}

type Provider interface {
	// Start submits a session-start request. Confirmation arrives later as EventSessionStarted.
	Start(ctx context.Context, req StartRequest) error
	Stop(ctx context.Context) error
	Events() <-chan Event
	Close() error
}
