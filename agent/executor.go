package agent

import (
	"context"
	"strings"

	"github.com/cockroachdb/errors"
	"github.com/effective-security/mcpchat/mcp"
)

// ToolCaller is the invocation half of the MCP client.
type ToolCaller interface {
	CallTool(ctx context.Context, name string, args map[string]any) (*mcp.ToolResponse, error)
}

// Executor dispatches one tool call to the server and flattens the result
// payload to text. Timeout and retry policy belongs to the transport; none is
// applied here.
type Executor struct {
	caller ToolCaller
}

// NewExecutor creates an executor over the given caller.
func NewExecutor(caller ToolCaller) *Executor {
	return &Executor{caller: caller}
}

// Invoke calls the named tool and returns its text payload.
func (e *Executor) Invoke(ctx context.Context, name string, args map[string]any) (string, error) {
	res, err := e.caller.CallTool(ctx, name, args)
	if err != nil {
		return "", errors.WithMessagef(err, "failed to call tool %s", name)
	}

	var parts []string
	for _, content := range res.Content {
		if content.Text != "" {
			parts = append(parts, content.Text)
		}
	}
	payload := strings.Join(parts, "\n")

	if res.IsError {
		return "", errors.Errorf("tool %s reported an error: %s", name, payload)
	}
	return payload, nil
}
