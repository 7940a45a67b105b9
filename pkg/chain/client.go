// Package chain is the JSON-RPC-over-WebSocket gateway to a Substrate
// node: a single long-lived connection per chain, a request-id
// multiplexer for ordinary calls, and a subscription registry for the
// node's push notifications (new heads, finalized heads).
package chain

import (
	"context"
	"encoding/json"
	"fmt"
	"log"
	"net/url"
	"sync"
	"sync/atomic"
	"time"

	"github.com/gorilla/websocket"
)

// Client is a connected Substrate JSON-RPC 2.0 client. One Client
// serves one chain node for the lifetime of one connection (the
// service supervisors dial a fresh Client on every reconnect); callers
// share it across goroutines.
type Client struct {
	conn   *websocket.Conn
	logger *log.Logger

	writeMu sync.Mutex
	nextID  uint64

	pendingMu sync.Mutex
	pending   map[uint64]chan rpcResponse

	subsMu sync.Mutex
	subs   map[string]chan json.RawMessage // keyed by node-assigned subscription id

	closed    atomic.Bool
	closeOnce sync.Once
	done      chan struct{}
}

type rpcRequest struct {
	JSONRPC string `json:"jsonrpc"`
	ID      uint64 `json:"id"`
	Method  string `json:"method"`
	Params  []any  `json:"params"`
}

type rpcResponse struct {
	ID     uint64          `json:"id"`
	Result json.RawMessage `json:"result"`
	Error  *rpcError       `json:"error"`
}

type rpcError struct {
	Code    int    `json:"code"`
	Message string `json:"message"`
}

func (e *rpcError) Error() string {
	return fmt.Sprintf("chain: rpc error %d: %s", e.Code, e.Message)
}

// subscriptionNotification is the unsolicited message shape the node
// sends for every push update on an active subscription: no id, a
// method name ending in the node's "_newHead"/"_finalizedHead"
// convention, and params carrying the subscription id plus payload.
type subscriptionNotification struct {
	Method string `json:"method"`
	Params struct {
		Subscription string          `json:"subscription"`
		Result       json.RawMessage `json:"result"`
	} `json:"params"`
}

// Dial opens the WebSocket connection and starts the background read
// loop. connectTimeout bounds the handshake only; requestTimeout is
// applied per-call via the context passed to Call/Subscribe.
func Dial(ctx context.Context, rpcURL string, connectTimeout time.Duration) (*Client, error) {
	u, err := url.Parse(rpcURL)
	if err != nil {
		return nil, fmt.Errorf("chain: parsing RPC URL: %w", err)
	}
	dialCtx, cancel := context.WithTimeout(ctx, connectTimeout)
	defer cancel()
	dialer := websocket.Dialer{
		HandshakeTimeout:  connectTimeout,
		EnableCompression: true,
	}
	conn, _, err := dialer.DialContext(dialCtx, u.String(), nil)
	if err != nil {
		return nil, fmt.Errorf("chain: dialing %s: %w", rpcURL, err)
	}
	c := &Client{
		conn:    conn,
		logger:  log.New(log.Writer(), "[Chain] ", log.LstdFlags),
		pending: make(map[uint64]chan rpcResponse),
		subs:    make(map[string]chan json.RawMessage),
		done:    make(chan struct{}),
	}
	go c.readLoop()
	return c, nil
}

// Close shuts the connection down cleanly and unblocks every pending
// call and subscription.
func (c *Client) Close() error {
	var err error
	c.closeOnce.Do(func() {
		c.closed.Store(true)
		deadline := time.Now().Add(time.Second)
		_ = c.conn.WriteControl(websocket.CloseMessage,
			websocket.FormatCloseMessage(websocket.CloseNormalClosure, ""), deadline)
		err = c.conn.Close()
		close(c.done)
	})
	return err
}

func (c *Client) readLoop() {
	defer func() {
		c.pendingMu.Lock()
		for id, ch := range c.pending {
			close(ch)
			delete(c.pending, id)
		}
		c.pendingMu.Unlock()
		c.subsMu.Lock()
		for id, ch := range c.subs {
			close(ch)
			delete(c.subs, id)
		}
		c.subsMu.Unlock()
	}()
	for {
		_, msg, err := c.conn.ReadMessage()
		if err != nil {
			return
		}
		c.dispatch(msg)
	}
}

func (c *Client) dispatch(msg []byte) {
	var probe struct {
		ID     *uint64 `json:"id"`
		Method string  `json:"method"`
	}
	if err := json.Unmarshal(msg, &probe); err != nil {
		return
	}
	if probe.ID != nil {
		var resp rpcResponse
		if err := json.Unmarshal(msg, &resp); err != nil {
			return
		}
		c.pendingMu.Lock()
		ch, ok := c.pending[resp.ID]
		if ok {
			delete(c.pending, resp.ID)
		}
		c.pendingMu.Unlock()
		if ok {
			ch <- resp
			close(ch)
		}
		return
	}
	if probe.Method == "" {
		return
	}
	var notif subscriptionNotification
	if err := json.Unmarshal(msg, &notif); err != nil {
		return
	}
	c.subsMu.Lock()
	ch, ok := c.subs[notif.Params.Subscription]
	c.subsMu.Unlock()
	if ok {
		select {
		case ch <- notif.Params.Result:
		default:
			// slow consumer: drop rather than block the read loop
		}
	}
}

// Call issues a JSON-RPC request and unmarshals its result into out
// (which may be nil to discard the result). It blocks until a response
// arrives, the context is cancelled, or the connection closes.
func (c *Client) Call(ctx context.Context, method string, params []any, out any) error {
	if c.closed.Load() {
		return fmt.Errorf("chain: client closed")
	}
	id := atomic.AddUint64(&c.nextID, 1)
	respCh := make(chan rpcResponse, 1)
	c.pendingMu.Lock()
	c.pending[id] = respCh
	c.pendingMu.Unlock()

	req := rpcRequest{JSONRPC: "2.0", ID: id, Method: method, Params: params}
	payload, err := json.Marshal(req)
	if err != nil {
		c.pendingMu.Lock()
		delete(c.pending, id)
		c.pendingMu.Unlock()
		return fmt.Errorf("chain: marshaling %s request: %w", method, err)
	}

	c.writeMu.Lock()
	writeErr := c.conn.WriteMessage(websocket.TextMessage, payload)
	c.writeMu.Unlock()
	if writeErr != nil {
		c.pendingMu.Lock()
		delete(c.pending, id)
		c.pendingMu.Unlock()
		return fmt.Errorf("chain: writing %s request: %w", method, writeErr)
	}

	select {
	case resp, ok := <-respCh:
		if !ok {
			return fmt.Errorf("chain: connection closed while awaiting %s response", method)
		}
		if resp.Error != nil {
			return resp.Error
		}
		if out == nil || len(resp.Result) == 0 {
			return nil
		}
		if err := json.Unmarshal(resp.Result, out); err != nil {
			return fmt.Errorf("chain: decoding %s response: %w", method, err)
		}
		return nil
	case <-ctx.Done():
		c.pendingMu.Lock()
		delete(c.pending, id)
		c.pendingMu.Unlock()
		return ctx.Err()
	case <-c.done:
		return fmt.Errorf("chain: connection closed while awaiting %s response", method)
	}
}
