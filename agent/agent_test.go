package agent_test

import (
	"context"
	"strings"
	"testing"

	"github.com/cockroachdb/errors"
	"github.com/effective-security/mcpchat/agent"
	"github.com/effective-security/mcpchat/mcp"
	"github.com/effective-security/mcpchat/pkg/llms"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// fakeChat replays scripted turns, one per SendMessage, and records what was
// sent.
type fakeChat struct {
	turns []*llms.Turn
	errs  []error
	sent  []string
}

func (c *fakeChat) SendMessage(ctx context.Context, text string) (*llms.Turn, error) {
	c.sent = append(c.sent, text)
	i := len(c.sent) - 1
	if i < len(c.errs) && c.errs[i] != nil {
		return nil, c.errs[i]
	}
	if i >= len(c.turns) {
		return &llms.Turn{}, nil
	}
	return c.turns[i], nil
}

type fakeModel struct {
	chat     *fakeChat
	startErr error
	decls    []*llms.FunctionDeclaration
}

func (m *fakeModel) GetName() string { return "fake-model" }

func (m *fakeModel) GetProviderType() llms.ProviderType { return llms.ProviderGoogleAI }

func (m *fakeModel) StartChat(ctx context.Context, decls []*llms.FunctionDeclaration) (llms.Chat, error) {
	m.decls = decls
	if m.startErr != nil {
		return nil, m.startErr
	}
	return m.chat, nil
}

type fakeCaller struct {
	res   *mcp.ToolResponse
	err   error
	calls []string
}

func (f *fakeCaller) CallTool(ctx context.Context, name string, args map[string]any) (*mcp.ToolResponse, error) {
	f.calls = append(f.calls, name)
	return f.res, f.err
}

func textResult(text string) *mcp.ToolResponse {
	return &mcp.ToolResponse{
		Content: []mcp.Content{{Type: "text", Text: text}},
	}
}

func newAgent(model llms.ChatModel, caller agent.ToolCaller, cfg *agent.Config) *agent.Agent {
	lister := &fakeLister{res: weatherTools()}
	return agent.New(model, agent.NewCatalog(lister, agent.RefreshPerQuery), agent.NewExecutor(caller), cfg)
}

func TestProcessQueryTextOnly(t *testing.T) {
	chat := &fakeChat{turns: []*llms.Turn{
		{Parts: []llms.Part{&llms.TextPart{Text: "Sunny, 28C"}}},
	}}
	a := newAgent(&fakeModel{chat: chat}, &fakeCaller{}, &agent.Config{})

	out, err := a.ProcessQuery(context.Background(), "weather in Miami?")
	require.NoError(t, err)
	assert.Equal(t, "Sunny, 28C", out)
	require.Len(t, chat.sent, 1)
	assert.Contains(t, chat.sent[0], `weather query: "weather in Miami?"`)
}

func TestProcessQueryEmptyTurn(t *testing.T) {
	chat := &fakeChat{turns: []*llms.Turn{{}}}
	a := newAgent(&fakeModel{chat: chat}, &fakeCaller{}, &agent.Config{})

	out, err := a.ProcessQuery(context.Background(), "anything")
	require.NoError(t, err)
	assert.Equal(t, "No response from Gemini", out)
}

func TestProcessQueryToolCall(t *testing.T) {
	chat := &fakeChat{turns: []*llms.Turn{
		{Parts: []llms.Part{
			&llms.TextPart{Text: "I'll check the forecast."},
			&llms.FunctionCallPart{
				Name: "getWeather",
				Args: map[string]any{"lat": 25.7617, "lon": -80.1918},
			},
		}},
		{Parts: []llms.Part{&llms.TextPart{Text: "It is 28C and sunny in Miami."}}},
	}}
	caller := &fakeCaller{res: textResult(`{"temp": 301.2, "conditions": "clear"}`)}
	a := newAgent(&fakeModel{chat: chat}, caller, &agent.Config{})

	out, err := a.ProcessQuery(context.Background(), "weather in Miami?")
	require.NoError(t, err)

	require.Equal(t, []string{
		"I'll check the forecast.",
		`[Calling tool getWeather with args {"lat":25.7617,"lon":-80.1918}]`,
		`[Tool result: {"temp": 301.2, "conditions": "clear"}]`,
		"this is Ujjwal's weather agent :)",
		"It is 28C and sunny in Miami.",
	}, strings.Split(out, "\n"))

	require.Equal(t, []string{"getWeather"}, caller.calls)
	require.Len(t, chat.sent, 2)
	assert.Equal(t,
		`The tool getWeather returned the following result: {"temp": 301.2, "conditions": "clear"}`,
		chat.sent[1])
}

func TestProcessQuerySingleDispatchPerTurn(t *testing.T) {
	chat := &fakeChat{turns: []*llms.Turn{
		{Parts: []llms.Part{
			&llms.FunctionCallPart{Name: "getWeather", Args: map[string]any{"lat": 1.0, "lon": 2.0}},
			&llms.FunctionCallPart{Name: "getAlerts", Args: map[string]any{"state": "FL"}},
		}},
		{Parts: []llms.Part{&llms.TextPart{Text: "Done."}}},
	}}
	caller := &fakeCaller{res: textResult("ok")}
	a := newAgent(&fakeModel{chat: chat}, caller, &agent.Config{})

	out, err := a.ProcessQuery(context.Background(), "two calls")
	require.NoError(t, err)

	// second call in the same turn is dropped, not dispatched
	assert.Equal(t, []string{"getWeather"}, caller.calls)
	assert.NotContains(t, out, "getAlerts")
	assert.Contains(t, out, "Done.")
}

func TestProcessQueryMultiRound(t *testing.T) {
	chat := &fakeChat{turns: []*llms.Turn{
		{Parts: []llms.Part{
			&llms.FunctionCallPart{Name: "getWeather", Args: map[string]any{"lat": 1.0, "lon": 2.0}},
		}},
		{Parts: []llms.Part{
			&llms.FunctionCallPart{Name: "getAlerts", Args: map[string]any{"state": "FL"}},
		}},
		{Parts: []llms.Part{&llms.TextPart{Text: "No active alerts, 28C."}}},
	}}
	caller := &fakeCaller{res: textResult("ok")}
	a := newAgent(&fakeModel{chat: chat}, caller, &agent.Config{MaxToolCallsPerQuery: 2})

	out, err := a.ProcessQuery(context.Background(), "weather and alerts")
	require.NoError(t, err)

	assert.Equal(t, []string{"getWeather", "getAlerts"}, caller.calls)
	assert.Contains(t, out, "[Calling tool getWeather")
	assert.Contains(t, out, "[Calling tool getAlerts")
	assert.Contains(t, out, "No active alerts, 28C.")
}

func TestProcessQueryToolFailure(t *testing.T) {
	chat := &fakeChat{turns: []*llms.Turn{
		{Parts: []llms.Part{
			&llms.TextPart{Text: "Checking."},
			&llms.FunctionCallPart{Name: "getWeather", Args: map[string]any{"lat": 1.0, "lon": 2.0}},
		}},
	}}
	caller := &fakeCaller{err: errors.New("server exploded")}
	a := newAgent(&fakeModel{chat: chat}, caller, &agent.Config{})

	out, err := a.ProcessQuery(context.Background(), "weather?")
	require.NoError(t, err)

	lines := strings.Split(out, "\n")
	assert.Equal(t, "Checking.", lines[0])
	assert.Contains(t, lines[1], "[Calling tool getWeather")
	assert.Contains(t, out, "Error in processing with Gemini: failed to call tool getWeather: server exploded")
}

func TestProcessQuerySendFailure(t *testing.T) {
	chat := &fakeChat{errs: []error{errors.New("quota exceeded")}}
	a := newAgent(&fakeModel{chat: chat}, &fakeCaller{}, &agent.Config{})

	out, err := a.ProcessQuery(context.Background(), "weather?")
	require.NoError(t, err)
	assert.Contains(t, out, "Error in processing with Gemini: quota exceeded")
}

func TestProcessQueryStartChatFailure(t *testing.T) {
	model := &fakeModel{startErr: errors.New("bad credentials")}
	a := newAgent(model, &fakeCaller{}, &agent.Config{})

	_, err := a.ProcessQuery(context.Background(), "weather?")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "failed to start chat session")
}

func TestProcessQueryDiscoveryFailure(t *testing.T) {
	lister := &fakeLister{err: errors.New("listing failed")}
	a := agent.New(&fakeModel{chat: &fakeChat{}},
		agent.NewCatalog(lister, agent.RefreshPerQuery),
		agent.NewExecutor(&fakeCaller{}), &agent.Config{})

	_, err := a.ProcessQuery(context.Background(), "weather?")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "failed to discover tools")
}

func TestProcessQueryDeclarationsPassed(t *testing.T) {
	model := &fakeModel{chat: &fakeChat{turns: []*llms.Turn{
		{Parts: []llms.Part{&llms.TextPart{Text: "hi"}}},
	}}}
	a := newAgent(model, &fakeCaller{}, &agent.Config{})

	_, err := a.ProcessQuery(context.Background(), "hello")
	require.NoError(t, err)
	require.Len(t, model.decls, 2)
	assert.Equal(t, "getWeather", model.decls[0].Name)
}

func TestInlineResultTruncation(t *testing.T) {
	big := strings.Repeat("x", 100)
	chat := &fakeChat{turns: []*llms.Turn{
		{Parts: []llms.Part{
			&llms.FunctionCallPart{Name: "getWeather", Args: map[string]any{"lat": 1.0}},
		}},
		{Parts: []llms.Part{&llms.TextPart{Text: "summary"}}},
	}}
	caller := &fakeCaller{res: textResult(big)}
	a := newAgent(&fakeModel{chat: chat}, caller, &agent.Config{MaxInlineResultSize: 10})

	out, err := a.ProcessQuery(context.Background(), "big payload")
	require.NoError(t, err)

	// the reinjected sentence is capped, the transcript is not
	require.Len(t, chat.sent, 2)
	assert.Contains(t, chat.sent[1], strings.Repeat("x", 10)+"... (truncated)")
	assert.NotContains(t, chat.sent[1], strings.Repeat("x", 11))
	assert.Contains(t, out, "[Tool result: "+big+"]")
}

func TestChatLoop(t *testing.T) {
	chat := &fakeChat{turns: []*llms.Turn{
		{Parts: []llms.Part{&llms.TextPart{Text: "Sunny."}}},
	}}
	a := newAgent(&fakeModel{chat: chat}, &fakeCaller{}, &agent.Config{})

	in := strings.NewReader("\nweather in Miami?\nquit\n")
	var out strings.Builder
	err := a.ChatLoop(context.Background(), in, &out)
	require.NoError(t, err)

	assert.Contains(t, out.String(), "MCP Client Started!")
	assert.Contains(t, out.String(), "Sunny.")
	// blank line is skipped, quit stops before another query is sent
	require.Len(t, chat.sent, 1)
}
