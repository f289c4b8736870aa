// Package agent implements the query-processing orchestration loop: tool
// discovery, prompt composition, the multi-turn exchange with the model,
// tool dispatch with result reinjection, and transcript assembly.
package agent

import (
	"bufio"
	"context"
	"fmt"
	"io"
	"strings"

	"github.com/cockroachdb/errors"
	"github.com/effective-security/mcpchat/mcp"
	"github.com/effective-security/mcpchat/mcp/transport"
	"github.com/effective-security/mcpchat/mcp/transport/stdio"
	"github.com/effective-security/mcpchat/pkg/llms"
	"github.com/effective-security/xlog"
	"github.com/fatih/color"
)

var logger = xlog.NewPackageLogger("github.com/effective-security/mcpchat", "agent")

// Agent owns the session pair for the process's lifetime: the MCP client
// connection and the chat model. One query is processed at a time; the
// interactive loop accepts no input while a query is in flight.
type Agent struct {
	cfg      *Config
	model    llms.ChatModel
	catalog  *Catalog
	executor *Executor

	client    *mcp.Client
	transport transport.Transport
	toolNames []string
}

// New creates an agent over already-connected collaborators.
func New(model llms.ChatModel, catalog *Catalog, executor *Executor, cfg *Config) *Agent {
	return &Agent{
		cfg:      cfg.WithDefaults(),
		model:    model,
		catalog:  catalog,
		executor: executor,
	}
}

// Connect validates and spawns the tool-server script, performs the MCP
// handshake, and discovers the advertised tools. A failure here is fatal to
// the process; the caller must Close the agent on success.
func Connect(ctx context.Context, scriptPath string, model llms.ChatModel, cfg *Config) (*Agent, error) {
	tr, err := stdio.New(scriptPath)
	if err != nil {
		return nil, err
	}

	client, err := mcp.NewClient(tr, mcp.Implementation{
		Name:    "mcpchat",
		Version: "1.0.0",
	})
	if err != nil {
		return nil, err
	}

	a := New(model, NewCatalog(client, cfg.CatalogRefresh), NewExecutor(client), cfg)
	a.client = client
	a.transport = tr

	if _, err := client.Initialize(ctx); err != nil {
		_ = a.Close()
		return nil, errors.WithMessage(err, "failed to connect to server")
	}

	decls, _, err := a.catalog.Discover(ctx)
	if err != nil {
		_ = a.Close()
		return nil, err
	}
	for _, decl := range decls {
		a.toolNames = append(a.toolNames, decl.Name)
	}

	return a, nil
}

// ToolNames returns the names of the tools discovered at connect time.
func (a *Agent) ToolNames() []string {
	return a.toolNames
}

// Close releases the session and then the transport, in reverse acquisition
// order. It is safe to call on every exit path.
func (a *Agent) Close() error {
	var err error
	if a.client != nil {
		err = a.client.Close()
	}
	if a.transport != nil {
		if cerr := a.transport.Close(); cerr != nil && err == nil {
			err = cerr
		}
	}
	return err
}

// ProcessQuery runs one query start to finish and returns the assembled
// transcript. Discovery and session-setup failures are returned as errors;
// failures inside the conversation loop are rendered into the transcript and
// the partial transcript is returned.
func (a *Agent) ProcessQuery(ctx context.Context, query string) (string, error) {
	decls, lines, err := a.catalog.Discover(ctx)
	if err != nil {
		return "", err
	}

	chat, err := a.model.StartChat(ctx, decls)
	if err != nil {
		return "", errors.WithMessage(err, "failed to start chat session")
	}

	prompt := ComposePrompt(query, lines)
	return a.drive(ctx, chat, prompt), nil
}

// drive is the conversation state machine. It sends the composed prompt,
// walks the turn's parts in order, dispatches at most one tool call per turn
// while under the per-query limit, reinjects each tool result as a follow-up
// message, and stops when a turn produces no dispatch or the limit is
// reached.
func (a *Agent) drive(ctx context.Context, chat llms.Chat, prompt string) string {
	var events []Event

	fail := func(err error) string {
		logger.KV(xlog.DEBUG, "status", "query_failed", "err", err.Error())
		events = append(events, &ErrorNotice{Err: err})
		return Assemble(events)
	}

	turn, err := chat.SendMessage(ctx, prompt)
	if err != nil {
		return fail(err)
	}
	if len(turn.Parts) == 0 {
		return NoResponseText
	}

	dispatched := 0
	for {
		var followUp *llms.Turn

		for _, part := range turn.Parts {
			switch p := part.(type) {
			case *llms.TextPart:
				events = append(events, &ModelText{Text: p.Text})

			case *llms.FunctionCallPart:
				// one dispatch per turn; further calls in the same turn are
				// not re-scanned
				if followUp != nil || dispatched >= a.cfg.MaxToolCallsPerQuery {
					logger.KV(xlog.DEBUG, "status", "tool_call_skipped", "tool", p.Name)
					continue
				}

				events = append(events, &ToolInvocationNotice{Name: p.Name, Args: p.Args})
				payload, err := a.executor.Invoke(ctx, p.Name, p.Args)
				if err != nil {
					return fail(err)
				}
				events = append(events, &ToolResultNotice{Payload: payload})
				dispatched++

				sentence := fmt.Sprintf("The tool %s returned the following result: %s",
					p.Name, truncate(payload, a.cfg.MaxInlineResultSize))
				followUp, err = chat.SendMessage(ctx, sentence)
				if err != nil {
					return fail(err)
				}
				events = append(events, &SignatureLine{Line: a.cfg.SignatureLine})
			}
		}

		if followUp == nil {
			break
		}
		if dispatched >= a.cfg.MaxToolCallsPerQuery {
			if text, ok := followUp.FirstText(); ok {
				events = append(events, &FollowUpText{Text: text})
			}
			break
		}
		turn = followUp
	}

	return Assemble(events)
}

// truncate caps the payload reinjected into the chat; the transcript always
// carries the full payload.
func truncate(s string, limit int) string {
	if limit <= 0 || len(s) <= limit {
		return s
	}
	return s[:limit] + "... (truncated)"
}

// ChatLoop runs the interactive read-eval-print loop until EOF or the quit
// command. Errors from a single query are printed and the loop continues.
func (a *Agent) ChatLoop(ctx context.Context, in io.Reader, out io.Writer) error {
	fmt.Fprintln(out, "\nMCP Client Started!")
	fmt.Fprintf(out, "Connected to server with tools: %v\n", a.toolNames)
	fmt.Fprintln(out, "Type your queries or 'quit' to exit.")

	prompt := color.New(color.FgCyan, color.Bold)
	errLine := color.New(color.FgRed)

	scanner := bufio.NewScanner(in)
	for {
		_, _ = prompt.Fprint(out, "\nQuery: ")
		if !scanner.Scan() {
			break
		}
		query := strings.TrimSpace(scanner.Text())
		if query == "" {
			continue
		}
		if strings.EqualFold(query, "quit") {
			break
		}

		response, err := a.ProcessQuery(ctx, query)
		if err != nil {
			_, _ = errLine.Fprintf(out, "\nError: %s\n", err.Error())
			logger.KV(xlog.DEBUG, "status", "query_error", "err", fmt.Sprintf("%+v", err))
			continue
		}
		fmt.Fprintln(out, "\n"+response)
	}
	return scanner.Err()
}
