// Package testingutils provides a mock MCP transport for protocol and client
// tests.
package testingutils

import (
	"context"
	"sync"

	"github.com/effective-security/mcpchat/mcp/transport"
)

// MockTransport records every sent message and lets tests inject incoming
// messages through the registered message handler.
type MockTransport struct {
	mu             sync.RWMutex
	messages       []*transport.BaseJsonRpcMessage
	messageHandler func(ctx context.Context, message *transport.BaseJsonRpcMessage)
	errorHandler   func(error)
	closeHandler   func()
	started        bool
	closed         bool

	// OnSend, when set, is invoked synchronously for each sent message,
	// allowing tests to script responses.
	OnSend func(message *transport.BaseJsonRpcMessage)
}

func NewMockTransport() *MockTransport {
	return &MockTransport{}
}

func (t *MockTransport) Start(ctx context.Context) error {
	t.mu.Lock()
	t.started = true
	t.mu.Unlock()
	return nil
}

func (t *MockTransport) Send(ctx context.Context, message *transport.BaseJsonRpcMessage) error {
	t.mu.Lock()
	t.messages = append(t.messages, message)
	onSend := t.OnSend
	t.mu.Unlock()

	if onSend != nil {
		onSend(message)
	}
	return nil
}

func (t *MockTransport) Close() error {
	t.mu.Lock()
	t.closed = true
	closeHandler := t.closeHandler
	t.mu.Unlock()

	if closeHandler != nil {
		closeHandler()
	}
	return nil
}

func (t *MockTransport) SetCloseHandler(handler func()) {
	t.mu.Lock()
	defer t.mu.Unlock()
	t.closeHandler = handler
}

func (t *MockTransport) SetErrorHandler(handler func(error)) {
	t.mu.Lock()
	defer t.mu.Unlock()
	t.errorHandler = handler
}

func (t *MockTransport) SetMessageHandler(handler func(ctx context.Context, message *transport.BaseJsonRpcMessage)) {
	t.mu.Lock()
	defer t.mu.Unlock()
	t.messageHandler = handler
}

// GetMessages returns the messages sent so far.
func (t *MockTransport) GetMessages() []*transport.BaseJsonRpcMessage {
	t.mu.RLock()
	defer t.mu.RUnlock()
	return append([]*transport.BaseJsonRpcMessage{}, t.messages...)
}

// Started reports whether Start was called.
func (t *MockTransport) Started() bool {
	t.mu.RLock()
	defer t.mu.RUnlock()
	return t.started
}

// Closed reports whether Close was called.
func (t *MockTransport) Closed() bool {
	t.mu.RLock()
	defer t.mu.RUnlock()
	return t.closed
}

// Deliver injects an incoming message as if received from the peer.
func (t *MockTransport) Deliver(ctx context.Context, message *transport.BaseJsonRpcMessage) {
	t.mu.RLock()
	handler := t.messageHandler
	t.mu.RUnlock()

	if handler != nil {
		handler(ctx, message)
	}
}
