package agent

import (
	"encoding/json"
	"fmt"
	"strings"
)

// Event is one observable step of a query: model text, a tool dispatch
// announcement, its result, the signature line, follow-up text, or an error.
// Each event renders to its transcript representation.
type Event interface {
	Render() string
}

// ModelText is plain text produced by the model.
type ModelText struct {
	Text string
}

func (e *ModelText) Render() string {
	return e.Text
}

// ToolInvocationNotice announces a tool dispatch with its arguments.
type ToolInvocationNotice struct {
	Name string
	Args map[string]any
}

func (e *ToolInvocationNotice) Render() string {
	args, _ := json.Marshal(e.Args)
	return fmt.Sprintf("[Calling tool %s with args %s]", e.Name, string(args))
}

// ToolResultNotice carries the payload a tool returned.
type ToolResultNotice struct {
	Payload string
}

func (e *ToolResultNotice) Render() string {
	return fmt.Sprintf("[Tool result: %s]", e.Payload)
}

// SignatureLine is the fixed branding marker emitted after a tool dispatch.
type SignatureLine struct {
	Line string
}

func (e *SignatureLine) Render() string {
	return e.Line
}

// FollowUpText is the model's text after a tool result was reinjected.
type FollowUpText struct {
	Text string
}

func (e *FollowUpText) Render() string {
	return e.Text
}

// ErrorNotice renders a failure inside the orchestration loop: the message
// followed by the diagnostic trace.
type ErrorNotice struct {
	Err error
}

func (e *ErrorNotice) Render() string {
	return fmt.Sprintf("Error in processing with Gemini: %s\n%+v", e.Err.Error(), e.Err)
}

// Assemble joins the rendered events with newline separators.
func Assemble(events []Event) string {
	lines := make([]string, len(events))
	for i, ev := range events {
		lines[i] = ev.Render()
	}
	return strings.Join(lines, "\n")
}
