package subserver

import (
	"context"
	"encoding/json"
	"fmt"
	"log"
	"net/http"
	"sync"
	"time"

	"github.com/gorilla/websocket"
)

// SubscriptionHandler serves one client subscription for the lifetime
// of its WebSocket connection. params carries the subscribe request's
// positional parameters; send pushes one subscription notification to
// the client. Serve returns when the subscription ends: nil for a
// clean unsubscribe/shutdown, an error to terminate the subscription
// with a text error message.
type SubscriptionHandler func(ctx context.Context, params []json.RawMessage, send func(payload any) error) error

// Server is a single-method JSON-RPC 2.0 subscription endpoint over
// WebSocket: a client connects, issues the subscribe method, and
// receives push notifications until it unsubscribes or disconnects.
type Server struct {
	addr              string
	subscribeMethod   string
	unsubscribeMethod string
	handler           SubscriptionHandler
	logger            *log.Logger

	upgrader websocket.Upgrader
}

// NewServer builds a Server for one subscribe/unsubscribe method pair.
func NewServer(addr, subscribeMethod, unsubscribeMethod string, handler SubscriptionHandler, logger *log.Logger) *Server {
	if logger == nil {
		logger = log.New(log.Writer(), "[SubscriptionServer] ", log.LstdFlags)
	}
	return &Server{
		addr:              addr,
		subscribeMethod:   subscribeMethod,
		unsubscribeMethod: unsubscribeMethod,
		handler:           handler,
		logger:            logger,
		upgrader: websocket.Upgrader{
			ReadBufferSize:  4096,
			WriteBufferSize: 4096,
			// The endpoints are public read-only streams.
			CheckOrigin: func(*http.Request) bool { return true },
		},
	}
}

// ListenAndServe runs the HTTP listener until ctx is cancelled.
func (s *Server) ListenAndServe(ctx context.Context) error {
	mux := http.NewServeMux()
	mux.HandleFunc("/", s.handleConnection)
	httpServer := &http.Server{Addr: s.addr, Handler: mux}

	errCh := make(chan error, 1)
	go func() {
		s.logger.Printf("listening on %s", s.addr)
		errCh <- httpServer.ListenAndServe()
	}()

	select {
	case <-ctx.Done():
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		_ = httpServer.Shutdown(shutdownCtx)
		return ctx.Err()
	case err := <-errCh:
		return fmt.Errorf("subserver: listener on %s: %w", s.addr, err)
	}
}

type wireRequest struct {
	JSONRPC string            `json:"jsonrpc"`
	ID      json.RawMessage   `json:"id"`
	Method  string            `json:"method"`
	Params  []json.RawMessage `json:"params"`
}

type wireResponse struct {
	JSONRPC string    `json:"jsonrpc"`
	ID      json.RawMessage `json:"id"`
	Result  any       `json:"result,omitempty"`
	Error   *wireError `json:"error,omitempty"`
}

type wireError struct {
	Code    int    `json:"code"`
	Message string `json:"message"`
}

type wireNotification struct {
	JSONRPC string `json:"jsonrpc"`
	Method  string `json:"method"`
	Params  struct {
		Subscription uint64 `json:"subscription"`
		Result       any    `json:"result"`
	} `json:"params"`
}

func (s *Server) handleConnection(w http.ResponseWriter, r *http.Request) {
	conn, err := s.upgrader.Upgrade(w, r, nil)
	if err != nil {
		s.logger.Printf("upgrade failed from %s: %v", r.RemoteAddr, err)
		return
	}
	defer conn.Close()

	ctx, cancel := context.WithCancel(r.Context())
	defer cancel()

	var writeMu sync.Mutex
	writeJSON := func(v any) error {
		writeMu.Lock()
		defer writeMu.Unlock()
		return conn.WriteJSON(v)
	}

	var subscriptionID uint64
	var handlerDone chan error

	for {
		var req wireRequest
		if err := conn.ReadJSON(&req); err != nil {
			cancel()
			if handlerDone != nil {
				<-handlerDone
			}
			return
		}
		switch req.Method {
		case s.subscribeMethod:
			if handlerDone != nil {
				_ = writeJSON(wireResponse{JSONRPC: "2.0", ID: req.ID,
					Error: &wireError{Code: -32000, Message: "already subscribed"}})
				continue
			}
			subscriptionID = 1
			if err := writeJSON(wireResponse{JSONRPC: "2.0", ID: req.ID, Result: subscriptionID}); err != nil {
				return
			}
			handlerDone = make(chan error, 1)
			go func(params []json.RawMessage) {
				send := func(payload any) error {
					n := wireNotification{JSONRPC: "2.0", Method: s.subscribeMethod}
					n.Params.Subscription = subscriptionID
					n.Params.Result = payload
					return writeJSON(n)
				}
				err := s.handler(ctx, params, send)
				if err != nil && ctx.Err() == nil {
					s.logger.Printf("subscription for %s ended: %v", r.RemoteAddr, err)
					writeMu.Lock()
					_ = conn.WriteMessage(websocket.TextMessage, []byte(err.Error()))
					writeMu.Unlock()
					_ = conn.Close()
				}
				handlerDone <- err
			}(req.Params)
		case s.unsubscribeMethod:
			cancel()
			if handlerDone != nil {
				<-handlerDone
			}
			_ = writeJSON(wireResponse{JSONRPC: "2.0", ID: req.ID, Result: true})
			return
		default:
			_ = writeJSON(wireResponse{JSONRPC: "2.0", ID: req.ID,
				Error: &wireError{Code: -32601, Message: fmt.Sprintf("unknown method %q", req.Method)}})
		}
	}
}
