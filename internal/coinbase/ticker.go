/**
 * @description
 * WebSocket client for the Coinbase Exchange ticker feed.
 * Manages the persistent connection, the subscription, and keep-alive logic.
 *
 * Key features:
 * - Connects to `wss://ws-feed.exchange.coinbase.com`.
 * - Handles automatic reconnection with exponential backoff.
 * - Thread-safe writing.
 *
 * @dependencies
 * - github.com/gorilla/websocket
 */

package coinbase

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/gorilla/websocket"
	"github.com/lakbychance/guess-btc/internal/logger"
)

const (
	WriteWait         = 10 * time.Second
	PongWait          = 60 * time.Second
	PingPeriod        = (PongWait * 9) / 10
	MaxConnectRetries = 5
)

// TickerHandler consumes raw ticker messages from the feed
type TickerHandler interface {
	HandleTicker(ctx context.Context, message []byte) error
}

// TickerMessage is the subset of the ticker channel payload we care about
type TickerMessage struct {
	Type      string `json:"type"` // "ticker", "subscriptions", "error"
	ProductID string `json:"product_id"`
	Price     string `json:"price"`
	Time      string `json:"time"`
	Message   string `json:"message"` // set on type "error"
}

type subscribeMessage struct {
	Type       string   `json:"type"` // "subscribe"
	ProductIDs []string `json:"product_ids"`
	Channels   []string `json:"channels"`
}

type TickerClient struct {
	url       string
	productID string
	conn      *websocket.Conn
	mu        sync.Mutex
	done      chan struct{}
	handler   TickerHandler

	// reconnecting prevents multiple simultaneous reconnection attempts
	reconnecting bool
	reconnectMu  sync.Mutex
}

func NewTickerClient(feedURL, productID string, handler TickerHandler) *TickerClient {
	return &TickerClient{
		url:       feedURL,
		productID: productID,
		handler:   handler,
		done:      make(chan struct{}),
	}
}

// Connect establishes the WebSocket connection and starts the read loop
func (c *TickerClient) Connect(ctx context.Context) error {
	return c.connectWithRetry(ctx)
}

func (c *TickerClient) connectWithRetry(ctx context.Context) error {
	var err error
	backoff := 1 * time.Second

	for i := 0; i < MaxConnectRetries; i++ {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-c.done:
			return fmt.Errorf("client closed")
		default:
		}

		logger.Info("Connecting to Coinbase feed: %s (Attempt %d)", c.url, i+1)
		c.conn, _, err = websocket.DefaultDialer.Dial(c.url, nil)
		if err == nil {
			logger.Info("✅ Connected to Coinbase feed")

			if err := c.sendSubscribe(); err != nil {
				logger.Error("Failed to subscribe to ticker channel: %v", err)
			}

			go c.readLoop(ctx)
			go c.pingLoop(ctx)
			return nil
		}

		logger.Error("Failed to connect: %v. Retrying in %v...", err, backoff)
		time.Sleep(backoff)
		backoff *= 2
	}

	return fmt.Errorf("failed to connect after %d attempts: %w", MaxConnectRetries, err)
}

func (c *TickerClient) sendSubscribe() error {
	msg := subscribeMessage{
		Type:       "subscribe",
		ProductIDs: []string{c.productID},
		Channels:   []string{"ticker"},
	}
	return c.writeJSON(msg)
}

// writeJSON sends a JSON message to the websocket thread-safely
func (c *TickerClient) writeJSON(v interface{}) error {
	c.mu.Lock()
	defer c.mu.Unlock()

	if c.conn == nil {
		return fmt.Errorf("connection is nil")
	}

	c.conn.SetWriteDeadline(time.Now().Add(WriteWait))
	return c.conn.WriteJSON(v)
}

// Close gracefully closes the connection
func (c *TickerClient) Close() error {
	close(c.done)
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.conn != nil {
		return c.conn.Close()
	}
	return nil
}

func (c *TickerClient) readLoop(ctx context.Context) {
	defer func() {
		c.mu.Lock()
		if c.conn != nil {
			c.conn.Close()
			c.conn = nil
		}
		c.mu.Unlock()

		// Trigger reconnection if context is not done and client is not closed
		select {
		case <-c.done:
			return
		case <-ctx.Done():
			return
		default:
			c.reconnectMu.Lock()
			if !c.reconnecting {
				c.reconnecting = true
				c.reconnectMu.Unlock()
				logger.Info("Feed connection lost, reconnecting...")
				go func() {
					defer func() {
						c.reconnectMu.Lock()
						c.reconnecting = false
						c.reconnectMu.Unlock()
					}()
					if err := c.connectWithRetry(ctx); err != nil {
						logger.Error("Reconnection failed: %v", err)
					}
				}()
			} else {
				c.reconnectMu.Unlock()
			}
		}
	}()

	c.mu.Lock()
	conn := c.conn
	c.mu.Unlock()

	if conn == nil {
		return
	}

	conn.SetReadLimit(1024 * 1024)
	conn.SetReadDeadline(time.Now().Add(PongWait))
	conn.SetPongHandler(func(string) error {
		conn.SetReadDeadline(time.Now().Add(PongWait))
		return nil
	})

	for {
		select {
		case <-ctx.Done():
			return
		case <-c.done:
			return
		default:
			_, message, err := conn.ReadMessage()
			if err != nil {
				if websocket.IsUnexpectedCloseError(err, websocket.CloseGoingAway, websocket.CloseAbnormalClosure) {
					logger.Error("Feed read error: %v", err)
				}
				return
			}

			// Async process to not block the reader
			go func(msg []byte) {
				if err := c.handler.HandleTicker(ctx, msg); err != nil {
					logger.Error("Error handling ticker message: %v", err)
				}
			}(message)
		}
	}
}

func (c *TickerClient) pingLoop(ctx context.Context) {
	ticker := time.NewTicker(PingPeriod)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-c.done:
			return
		case <-ticker.C:
			c.mu.Lock()
			if c.conn == nil {
				c.mu.Unlock()
				return
			}
			c.conn.SetWriteDeadline(time.Now().Add(WriteWait))
			if err := c.conn.WriteMessage(websocket.PingMessage, nil); err != nil {
				c.mu.Unlock()
				return
			}
			c.mu.Unlock()
		}
	}
}
