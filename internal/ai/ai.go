// Package ai declares the contracts of the speech and language collaborators
// an interview talks to.
package ai

import "context"

// Role is the author of a conversation turn.
type Role string

const (
	RoleSystem    Role = "system"
	RoleUser      Role = "user"
	RoleAssistant Role = "assistant"
)

// Turn is one message of the interview conversation.
type Turn struct {
	Role    Role   `json:"role"`
	Content string `json:"content"`
}

// Audio is synthesized or recorded speech.
type Audio struct {
	Data     []byte `json:"data"`
	MIMEType string `json:"mimeType"`
}

// Generator produces the next message given a system instruction and the
// conversation so far.
type Generator interface {
	Complete(ctx context.Context, instruction string, history []Turn) (string, error)
}

// Transcriber turns recorded speech into text.
type Transcriber interface {
	Transcribe(ctx context.Context, audio []byte, mimeType string) (string, error)
}

// Synthesizer turns text into speech.
type Synthesizer interface {
	Synthesize(ctx context.Context, text string) (*Audio, error)
}
