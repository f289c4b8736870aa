// Package protocol implements the client side of MCP JSON-RPC framing on top
// of a pluggable transport: request/response correlation by id, per-request
// timeouts, and one-way notifications.
package protocol

import (
	"context"
	"encoding/json"
	"sync"
	"time"

	"github.com/cockroachdb/errors"
	"github.com/effective-security/mcpchat/mcp/transport"
	"github.com/effective-security/xlog"
)

var logger = xlog.NewPackageLogger("github.com/effective-security/mcpchat/mcp/internal", "protocol")

const DefaultRequestTimeoutMsec = 60000

// RequestOptions contains options that can be given per request
type RequestOptions struct {
	// Context can be used to cancel an in-flight request
	Context context.Context
	// Timeout specifies a timeout for this request. If not specified,
	// DefaultRequestTimeoutMsec will be used
	Timeout time.Duration
}

// Protocol correlates JSON-RPC requests with their responses over a
// transport. Timeout and retry policy beyond the per-request timeout belongs
// to the transport's peer; none is applied here.
type Protocol struct {
	transport transport.Transport

	requestMessageID transport.RequestId
	mu               sync.RWMutex

	// Maps message ID to response handler
	responseHandlers map[transport.RequestId]chan *responseEnvelope

	// Callback for when the connection is closed for any reason
	OnClose func()
	// Callback for when an error occurs
	OnError func(error)
	// Handler to invoke for incoming notifications
	NotificationHandler func(notification *transport.BaseJSONRPCNotification)
}

type responseEnvelope struct {
	response json.RawMessage
	err      error
}

// NewProtocol creates a new Protocol instance
func NewProtocol() *Protocol {
	return &Protocol{
		responseHandlers: make(map[transport.RequestId]chan *responseEnvelope),
	}
}

// Connect attaches to the given transport, starts it, and starts listening for messages
func (p *Protocol) Connect(tr transport.Transport) error {
	p.transport = tr

	tr.SetCloseHandler(func() {
		p.handleClose()
	})

	tr.SetErrorHandler(func(err error) {
		p.handleError(err)
	})

	tr.SetMessageHandler(func(ctx context.Context, message *transport.BaseJsonRpcMessage) {
		switch message.Type {
		case transport.BaseMessageTypeJSONRPCResponseType:
			p.handleResponse(message.JsonRpcResponse, nil)
		case transport.BaseMessageTypeJSONRPCErrorType:
			p.handleResponse(nil, message.JsonRpcError)
		case transport.BaseMessageTypeJSONRPCNotificationType:
			p.handleNotification(message.JsonRpcNotification)
		case transport.BaseMessageTypeJSONRPCRequestType:
			// a pure client does not serve requests
			logger.KV(xlog.DEBUG,
				"status", "unsupported_request",
				"method", message.JsonRpcRequest.Method,
			)
		}
	})

	return tr.Start(context.Background())
}

func (p *Protocol) handleClose() {
	p.mu.Lock()
	for id, ch := range p.responseHandlers {
		ch <- &responseEnvelope{err: errors.Errorf("connection closed")}
		close(ch)
		delete(p.responseHandlers, id)
	}
	p.mu.Unlock()

	if p.OnClose != nil {
		p.OnClose()
	}
}

func (p *Protocol) handleError(err error) {
	if p.OnError != nil {
		p.OnError(err)
	}
}

func (p *Protocol) handleNotification(notification *transport.BaseJSONRPCNotification) {
	logger.KV(xlog.DEBUG, "method", notification.Method)

	if p.NotificationHandler != nil {
		p.NotificationHandler(notification)
	}
}

func (p *Protocol) handleResponse(response *transport.BaseJSONRPCResponse, errResp *transport.BaseJSONRPCError) {
	var id transport.RequestId
	var result json.RawMessage
	var err error

	if errResp != nil {
		id = errResp.Id
		err = errors.Errorf("RPC error %d: %s", errResp.Error.Code, errResp.Error.Message)
	} else {
		result = response.Result
		id = response.Id
	}

	p.mu.RLock()
	ch := p.responseHandlers[id]
	p.mu.RUnlock()

	if ch != nil {
		ch <- &responseEnvelope{
			response: result,
			err:      err,
		}
	}
}

// Close closes the connection
func (p *Protocol) Close() error {
	if p.transport != nil {
		return p.transport.Close()
	}
	return nil
}

// Request sends a request and waits for a response
func (p *Protocol) Request(ctx context.Context, method string, params any, opts *RequestOptions) (json.RawMessage, error) {
	if p.transport == nil {
		return nil, errors.Errorf("not connected")
	}

	if opts == nil {
		opts = &RequestOptions{}
	}
	if opts.Context == nil {
		opts.Context = ctx
	}
	if opts.Timeout == 0 {
		opts.Timeout = time.Duration(DefaultRequestTimeoutMsec) * time.Millisecond
	}

	p.mu.Lock()
	id := p.requestMessageID
	p.requestMessageID++
	ch := make(chan *responseEnvelope, 1)
	p.responseHandlers[id] = ch
	p.mu.Unlock()

	defer func() {
		p.mu.Lock()
		delete(p.responseHandlers, id)
		p.mu.Unlock()
	}()

	marshalledParams, err := json.Marshal(params)
	if err != nil {
		return nil, errors.Wrap(err, "failed to marshal params")
	}

	request := &transport.BaseJSONRPCRequest{
		Jsonrpc: "2.0",
		Method:  method,
		Params:  marshalledParams,
		Id:      id,
	}

	logger.KV(xlog.DEBUG, "method", method, "id", id)

	if err := p.transport.Send(ctx, transport.NewBaseMessageRequest(request)); err != nil {
		return nil, errors.Wrap(err, "failed to send request")
	}

	select {
	case envelope := <-ch:
		if envelope.err != nil {
			return nil, envelope.err
		}
		return envelope.response, nil
	case <-opts.Context.Done():
		return nil, opts.Context.Err()
	case <-time.After(opts.Timeout):
		return nil, errors.Errorf("request timeout after %v", opts.Timeout)
	}
}

// Notification emits a notification, which is a one-way message that does not expect a response
func (p *Protocol) Notification(method string, params any) error {
	if p.transport == nil {
		return errors.Errorf("not connected")
	}

	marshalled, err := json.Marshal(params)
	if err != nil {
		return errors.Wrap(err, "failed to marshal notification params")
	}

	notification := &transport.BaseJSONRPCNotification{
		Jsonrpc: "2.0",
		Method:  method,
		Params:  marshalled,
	}
	ctx := context.Background()

	return p.transport.Send(ctx, transport.NewBaseMessageNotification(notification))
}
