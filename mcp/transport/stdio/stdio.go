// Package stdio implements the MCP client transport over the standard
// input/output of a spawned tool-server process. Messages are framed as
// newline-delimited JSON.
package stdio

import (
	"bufio"
	"context"
	"encoding/json"
	"io"
	"os/exec"
	"path/filepath"
	"strings"
	"sync"
	"time"

	"github.com/cockroachdb/errors"
	"github.com/effective-security/mcpchat/mcp/transport"
	"github.com/effective-security/xlog"
)

var logger = xlog.NewPackageLogger("github.com/effective-security/mcpchat/mcp/transport", "stdio")

// ErrUnsupportedScript is returned when the server script extension maps to
// no known interpreter. It is reported before any process is spawned.
var ErrUnsupportedScript = errors.New("server script must be a .py or .js file")

// max size of a single framed message
const maxLineSize = 4 * 1024 * 1024

// how long Close waits for the child to exit before killing it
const shutdownGrace = 2 * time.Second

// Transport spawns the tool-server script and exchanges newline-delimited
// JSON-RPC messages over its stdin/stdout.
type Transport struct {
	cmd    *exec.Cmd
	stdin  io.WriteCloser
	stdout io.ReadCloser

	messageHandler func(ctx context.Context, message *transport.BaseJsonRpcMessage)
	errorHandler   func(error)
	closeHandler   func()
	mu             sync.RWMutex
	writeMu        sync.Mutex

	done      chan struct{}
	closeOnce sync.Once
}

// InterpreterFor selects the interpreter command for the given server script
// path by its extension.
func InterpreterFor(scriptPath string) (string, error) {
	switch strings.ToLower(filepath.Ext(scriptPath)) {
	case ".py":
		return "python", nil
	case ".js":
		return "node", nil
	default:
		return "", errors.WithStack(ErrUnsupportedScript)
	}
}

// New validates the script path and prepares a transport for it.
// The subprocess is not spawned until Start.
func New(scriptPath string) (*Transport, error) {
	interp, err := InterpreterFor(scriptPath)
	if err != nil {
		return nil, err
	}
	return &Transport{
		cmd:  exec.Command(interp, scriptPath),
		done: make(chan struct{}),
	}, nil
}

// Start spawns the subprocess and begins reading messages from its stdout.
func (t *Transport) Start(ctx context.Context) error {
	stdin, err := t.cmd.StdinPipe()
	if err != nil {
		return errors.Wrap(err, "failed to open stdin pipe")
	}
	stdout, err := t.cmd.StdoutPipe()
	if err != nil {
		return errors.Wrap(err, "failed to open stdout pipe")
	}
	t.stdin = stdin
	t.stdout = stdout

	if err := t.cmd.Start(); err != nil {
		return errors.Wrapf(err, "failed to start server script %q", t.cmd.Args[1])
	}

	logger.KV(xlog.DEBUG,
		"status", "started",
		"command", t.cmd.Args[0],
		"script", t.cmd.Args[1],
		"pid", t.cmd.Process.Pid,
	)

	go t.readLoop(ctx)
	return nil
}

func (t *Transport) readLoop(ctx context.Context) {
	scanner := bufio.NewScanner(t.stdout)
	scanner.Buffer(make([]byte, 0, 64*1024), maxLineSize)

	for scanner.Scan() {
		line := scanner.Bytes()
		if len(line) == 0 {
			continue
		}
		msg, err := classifyMessage(line)
		if err != nil {
			t.handleError(err)
			continue
		}

		t.mu.RLock()
		handler := t.messageHandler
		t.mu.RUnlock()

		if handler != nil {
			handler(ctx, msg)
		}
	}
	if err := scanner.Err(); err != nil {
		t.handleError(errors.Wrap(err, "failed to read from server"))
	}

	t.mu.RLock()
	closeHandler := t.closeHandler
	t.mu.RUnlock()

	if closeHandler != nil {
		closeHandler()
	}
}

// classifyMessage decodes one framed line into the matching JSON-RPC variant.
// An id with a result or error marks a response; a method with an id marks a
// request; a method alone marks a notification.
func classifyMessage(line []byte) (*transport.BaseJsonRpcMessage, error) {
	var probe struct {
		Id     *transport.RequestId             `json:"id"`
		Method string                           `json:"method"`
		Result json.RawMessage                  `json:"result"`
		Error  *transport.BaseJSONRPCErrorInner `json:"error"`
	}
	if err := json.Unmarshal(line, &probe); err != nil {
		return nil, errors.Wrap(err, "received invalid message")
	}

	switch {
	case probe.Id != nil && probe.Error != nil:
		var errResp transport.BaseJSONRPCError
		if err := json.Unmarshal(line, &errResp); err != nil {
			return nil, errors.Wrap(err, "received invalid error response")
		}
		return transport.NewBaseMessageError(&errResp), nil
	case probe.Id != nil && probe.Method == "":
		var response transport.BaseJSONRPCResponse
		if err := json.Unmarshal(line, &response); err != nil {
			return nil, errors.Wrap(err, "received invalid response")
		}
		return transport.NewBaseMessageResponse(&response), nil
	case probe.Id != nil:
		var request transport.BaseJSONRPCRequest
		if err := json.Unmarshal(line, &request); err != nil {
			return nil, errors.Wrap(err, "received invalid request")
		}
		return transport.NewBaseMessageRequest(&request), nil
	case probe.Method != "":
		var notification transport.BaseJSONRPCNotification
		if err := json.Unmarshal(line, &notification); err != nil {
			return nil, errors.Wrap(err, "received invalid notification")
		}
		return transport.NewBaseMessageNotification(&notification), nil
	}
	return nil, errors.Errorf("received message of unknown kind")
}

// Send implements Transport.Send.
func (t *Transport) Send(ctx context.Context, message *transport.BaseJsonRpcMessage) error {
	data, err := json.Marshal(message)
	if err != nil {
		return errors.Wrap(err, "failed to marshal message")
	}
	data = append(data, '\n')

	t.writeMu.Lock()
	defer t.writeMu.Unlock()

	if t.stdin == nil {
		return errors.Errorf("transport not started")
	}
	if _, err := t.stdin.Write(data); err != nil {
		return errors.Wrap(err, "failed to write to server")
	}
	return nil
}

// Close closes the child's stdin and waits for it to exit, killing it after
// a grace period.
func (t *Transport) Close() error {
	var err error
	t.closeOnce.Do(func() {
		if t.stdin != nil {
			_ = t.stdin.Close()
		}
		if t.cmd.Process != nil {
			waited := make(chan error, 1)
			go func() {
				waited <- t.cmd.Wait()
			}()
			select {
			case <-waited:
			case <-time.After(shutdownGrace):
				logger.KV(xlog.WARNING, "status", "killing_server", "pid", t.cmd.Process.Pid)
				_ = t.cmd.Process.Kill()
				<-waited
			}
		}
		close(t.done)
	})
	return err
}

func (t *Transport) handleError(err error) {
	t.mu.RLock()
	handler := t.errorHandler
	t.mu.RUnlock()

	if handler != nil {
		handler(err)
	} else {
		logger.KV(xlog.WARNING, "status", "transport_error", "err", err.Error())
	}
}

// SetCloseHandler implements Transport.SetCloseHandler.
func (t *Transport) SetCloseHandler(handler func()) {
	t.mu.Lock()
	defer t.mu.Unlock()
	t.closeHandler = handler
}

// SetErrorHandler implements Transport.SetErrorHandler.
func (t *Transport) SetErrorHandler(handler func(error)) {
	t.mu.Lock()
	defer t.mu.Unlock()
	t.errorHandler = handler
}

// SetMessageHandler implements Transport.SetMessageHandler.
func (t *Transport) SetMessageHandler(handler func(ctx context.Context, message *transport.BaseJsonRpcMessage)) {
	t.mu.Lock()
	defer t.mu.Unlock()
	t.messageHandler = handler
}
