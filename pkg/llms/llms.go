// Package llms defines the provider-neutral chat abstraction the
// orchestration core consumes: a model that starts chat sessions with a set
// of function declarations, and turns made of typed parts.
package llms

import (
	"context"
)

// ProviderType is the type of provider.
type ProviderType string

const (
	// ProviderGoogleAI is the type of provider.
	ProviderGoogleAI ProviderType = "GOOGLEAI"
)

// FunctionDeclaration advertises a tool to the model: its name, description
// and normalized parameter schema.
type FunctionDeclaration struct {
	Name        string
	Description string
	Parameters  map[string]any
}

// Part is one unit of a model turn: plain text or a function-call request.
// The union is constructed once at the provider-adapter boundary; consumers
// switch on the concrete type and never probe capabilities.
type Part interface {
	isPart()
}

// TextPart is plain text content.
type TextPart struct {
	Text string
}

func (TextPart) isPart() {}

// FunctionCallPart is a structured request to invoke a declared function.
type FunctionCallPart struct {
	Name string
	Args map[string]any
}

func (FunctionCallPart) isPart() {}

// Turn is one model response, composed of ordered parts. A turn may contain
// zero or more parts of either kind.
type Turn struct {
	Parts []Part
}

// FirstText returns the text of the first part if it is a TextPart.
func (t *Turn) FirstText() (string, bool) {
	if t == nil || len(t.Parts) == 0 {
		return "", false
	}
	if tp, ok := t.Parts[0].(*TextPart); ok {
		return tp.Text, true
	}
	return "", false
}

// Chat is one live chat session; SendMessage appends to its history and
// blocks until the model responds.
type Chat interface {
	SendMessage(ctx context.Context, text string) (*Turn, error)
}

// ChatModel is a chat-session factory bound to one provider and model.
type ChatModel interface {
	// GetName returns the model name.
	GetName() string
	// GetProviderType returns the type of provider.
	GetProviderType() ProviderType
	// StartChat opens a fresh chat session with empty history, advertising
	// the given function declarations.
	StartChat(ctx context.Context, decls []*FunctionDeclaration) (Chat, error)
}
