package solana

import (
	"context"
	"encoding/json"
	"fmt"
	"sync"
	"sync/atomic"
	"time"

	"github.com/gorilla/websocket"
)

// WSConfig configures WebSocket client behavior.
type WSConfig struct {
	// PingInterval is interval for sending ping frames.
	PingInterval time.Duration
	// WriteTimeout is timeout for writing messages.
	WriteTimeout time.Duration
}

// DefaultWSConfig returns default WebSocket configuration.
func DefaultWSConfig() WSConfig {
	return WSConfig{
		PingInterval: 30 * time.Second,
		WriteTimeout: 10 * time.Second,
	}
}

// SignatureResult is the payload of a signature notification.
type SignatureResult struct {
	Slot uint64
	Err  interface{}
}

// WSClient is a Solana WebSocket client for one-shot signature
// confirmation waits. The cluster cancels a signature subscription
// automatically after the first notification, so subscriptions here
// are fire-once: each delivers at most one SignatureResult.
type WSClient struct {
	endpoint string
	config   WSConfig

	conn    *websocket.Conn
	writeMu sync.Mutex
	closed  atomic.Bool

	requestID atomic.Uint64

	// subs maps subscription ID to the waiting channel
	subs   map[int64]chan SignatureResult
	subsMu sync.Mutex

	// pendingSubs maps request ID to channel waiting for subscription ID
	pendingSubs   map[uint64]chan int64
	pendingSubsMu sync.Mutex

	done chan struct{}
	wg   sync.WaitGroup
}

// NewWSClient creates a new WebSocket client and connects to the endpoint.
func NewWSClient(ctx context.Context, endpoint string, config *WSConfig) (*WSClient, error) {
	cfg := DefaultWSConfig()
	if config != nil {
		cfg = *config
	}

	c := &WSClient{
		endpoint:    endpoint,
		config:      cfg,
		subs:        make(map[int64]chan SignatureResult),
		pendingSubs: make(map[uint64]chan int64),
		done:        make(chan struct{}),
	}

	dialer := websocket.Dialer{HandshakeTimeout: 10 * time.Second}
	conn, _, err := dialer.DialContext(ctx, endpoint, nil)
	if err != nil {
		return nil, fmt.Errorf("websocket dial: %w", err)
	}
	c.conn = conn

	c.wg.Add(1)
	go c.readLoop()

	c.wg.Add(1)
	go c.pingLoop()

	return c, nil
}

// SubscribeSignature subscribes to the confirmation notification for a
// transaction signature. The returned channel receives exactly one result
// and is closed when the client shuts down.
func (c *WSClient) SubscribeSignature(ctx context.Context, signature string) (<-chan SignatureResult, error) {
	if c.closed.Load() {
		return nil, fmt.Errorf("client closed")
	}

	reqID := c.requestID.Add(1)

	req := wsRequest{
		JSONRPC: "2.0",
		ID:      reqID,
		Method:  "signatureSubscribe",
		Params: []interface{}{
			signature,
			map[string]string{"commitment": "confirmed"},
		},
	}

	subIDCh := make(chan int64, 1)
	c.pendingSubsMu.Lock()
	c.pendingSubs[reqID] = subIDCh
	c.pendingSubsMu.Unlock()

	defer func() {
		c.pendingSubsMu.Lock()
		delete(c.pendingSubs, reqID)
		c.pendingSubsMu.Unlock()
	}()

	if err := c.writeJSON(req); err != nil {
		return nil, fmt.Errorf("send signatureSubscribe: %w", err)
	}

	select {
	case <-ctx.Done():
		return nil, ctx.Err()
	case <-c.done:
		return nil, fmt.Errorf("client closed")
	case subID := <-subIDCh:
		ch := make(chan SignatureResult, 1)
		c.subsMu.Lock()
		c.subs[subID] = ch
		c.subsMu.Unlock()
		return ch, nil
	}
}

// Close shuts down the client and releases all subscriptions.
func (c *WSClient) Close() error {
	if !c.closed.CompareAndSwap(false, true) {
		return nil
	}
	close(c.done)

	err := c.conn.Close()
	c.wg.Wait()

	c.subsMu.Lock()
	for id, ch := range c.subs {
		close(ch)
		delete(c.subs, id)
	}
	c.subsMu.Unlock()

	return err
}

// writeJSON writes a JSON message with the configured write timeout.
func (c *WSClient) writeJSON(v interface{}) error {
	c.writeMu.Lock()
	defer c.writeMu.Unlock()

	c.conn.SetWriteDeadline(time.Now().Add(c.config.WriteTimeout))
	return c.conn.WriteJSON(v)
}

// readLoop reads messages until the connection closes.
func (c *WSClient) readLoop() {
	defer c.wg.Done()

	for {
		_, message, err := c.conn.ReadMessage()
		if err != nil {
			return
		}
		c.handleMessage(message)
	}
}

// handleMessage dispatches subscription confirmations and notifications.
func (c *WSClient) handleMessage(message []byte) {
	var resp wsSubscribeResponse
	if err := json.Unmarshal(message, &resp); err == nil && resp.ID != 0 && resp.Result != 0 {
		c.pendingSubsMu.Lock()
		ch, ok := c.pendingSubs[resp.ID]
		c.pendingSubsMu.Unlock()
		if ok {
			ch <- resp.Result
		}
		return
	}

	var notif wsNotification
	if err := json.Unmarshal(message, &notif); err != nil {
		return
	}
	if notif.Method != "signatureNotification" {
		return
	}

	c.subsMu.Lock()
	ch, ok := c.subs[notif.Params.Subscription]
	if ok {
		// Subscription is one-shot; the cluster has already cancelled it
		delete(c.subs, notif.Params.Subscription)
	}
	c.subsMu.Unlock()
	if !ok {
		return
	}

	ch <- SignatureResult{
		Slot: notif.Params.Result.Context.Slot,
		Err:  notif.Params.Result.Value.Err,
	}
	close(ch)
}

// pingLoop sends periodic ping frames to keep the connection alive.
func (c *WSClient) pingLoop() {
	defer c.wg.Done()

	ticker := time.NewTicker(c.config.PingInterval)
	defer ticker.Stop()

	for {
		select {
		case <-c.done:
			return
		case <-ticker.C:
			c.writeMu.Lock()
			c.conn.SetWriteDeadline(time.Now().Add(c.config.WriteTimeout))
			c.conn.WriteMessage(websocket.PingMessage, nil)
			c.writeMu.Unlock()
		}
	}
}

type wsRequest struct {
	JSONRPC string        `json:"jsonrpc"`
	ID      uint64        `json:"id"`
	Method  string        `json:"method"`
	Params  []interface{} `json:"params"`
}

type wsSubscribeResponse struct {
	JSONRPC string `json:"jsonrpc"`
	ID      uint64 `json:"id"`
	Result  int64  `json:"result"`
}

type wsNotification struct {
	JSONRPC string `json:"jsonrpc"`
	Method  string `json:"method"`
	Params  struct {
		Subscription int64 `json:"subscription"`
		Result       struct {
			Context struct {
				Slot uint64 `json:"slot"`
			} `json:"context"`
			Value struct {
				Err interface{} `json:"err"`
			} `json:"value"`
		} `json:"result"`
	} `json:"params"`
}
