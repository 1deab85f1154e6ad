package server

import (
	"context"
	"encoding/json"
	"log/slog"
	"net/http"
	"sync"
	"time"

	"github.com/coder/websocket"
	"github.com/coder/websocket/wsjson"

	"github.com/Psikuvit/cashclash/internal/auth"
)

// Role aliases so transport callers don't import auth directly.
const (
	RolePlayer = auth.RolePlayer
	RoleHost   = auth.RoleHost
	RoleAdmin  = auth.RoleAdmin
)

// WSMessage is the envelope for all WebSocket communication.
type WSMessage struct {
	Type    string          `json:"type"`
	Payload json.RawMessage `json:"payload,omitempty"`
}

// Client represents a connected participant (or world host / admin).
type Client struct {
	ID      int64
	Role    string
	MatchID string
	conn    *websocket.Conn
	send    chan WSMessage
}

// MessageHandler processes inbound messages and connection lifecycle.
type MessageHandler interface {
	HandleMessage(ctx context.Context, client *Client, msg WSMessage)
	HandleDisconnect(client *Client)
	HandleReconnect(client *Client)
}

// Hub manages all WebSocket clients and match-level broadcasting.
type Hub struct {
	mu      sync.RWMutex
	clients map[int64]*Client
	matches map[string]map[int64]*Client
	handler MessageHandler
	secret  string
	logger  *slog.Logger
	metrics *Metrics
}

func NewHub(ticketSecret string, handler MessageHandler, metrics *Metrics, logger *slog.Logger) *Hub {
	return &Hub{
		clients: make(map[int64]*Client),
		matches: make(map[string]map[int64]*Client),
		handler: handler,
		secret:  ticketSecret,
		logger:  logger,
		metrics: metrics,
	}
}

func (h *Hub) SetHandler(handler MessageHandler) { h.handler = handler }

func (h *Hub) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	claims, err := auth.ValidateTicket(r.URL.Query().Get("ticket"), h.secret)
	if err != nil {
		http.Error(w, "unauthorized", http.StatusUnauthorized)
		return
	}

	conn, err := websocket.Accept(w, r, &websocket.AcceptOptions{
		InsecureSkipVerify: true,
	})
	if err != nil {
		h.logger.Error("ws accept", "err", err)
		return
	}

	client := &Client{
		ID:   claims.PlayerID,
		Role: claims.Role,
		conn: conn,
		send: make(chan WSMessage, 64),
	}

	rejoined := h.register(client)
	if h.metrics != nil {
		h.metrics.IncrWSConn()
	}
	if rejoined && h.handler != nil {
		h.handler.HandleReconnect(client)
	}
	defer h.unregister(client)

	ctx, cancel := context.WithCancel(r.Context())
	defer cancel()

	go h.writePump(ctx, client)
	h.readPump(ctx, client)
}

// register returns true when this player ID was already known (reconnect).
func (h *Hub) register(c *Client) bool {
	h.mu.Lock()
	defer h.mu.Unlock()
	old, existed := h.clients[c.ID]
	if existed {
		close(old.send)
		c.MatchID = old.MatchID
		if c.MatchID != "" {
			if group, ok := h.matches[c.MatchID]; ok {
				group[c.ID] = c
			}
		}
	}
	h.clients[c.ID] = c
	return existed
}

func (h *Hub) unregister(c *Client) {
	h.mu.Lock()
	current, ok := h.clients[c.ID]
	stillCurrent := ok && current == c
	if stillCurrent {
		delete(h.clients, c.ID)
		close(c.send)
		if c.MatchID != "" {
			if group, ok := h.matches[c.MatchID]; ok {
				delete(group, c.ID)
				if len(group) == 0 {
					delete(h.matches, c.MatchID)
				}
			}
		}
	}
	h.mu.Unlock()

	if h.metrics != nil {
		h.metrics.DecrWSConn()
	}
	if stillCurrent && h.handler != nil {
		h.handler.HandleDisconnect(c)
	}
}

// JoinMatch adds a client to a match broadcast group.
func (h *Hub) JoinMatch(clientID int64, matchID string) {
	h.mu.Lock()
	defer h.mu.Unlock()
	c, ok := h.clients[clientID]
	if !ok {
		return
	}
	if c.MatchID != "" && c.MatchID != matchID {
		if group, ok := h.matches[c.MatchID]; ok {
			delete(group, c.ID)
		}
	}
	c.MatchID = matchID
	if _, ok := h.matches[matchID]; !ok {
		h.matches[matchID] = make(map[int64]*Client)
	}
	h.matches[matchID][c.ID] = c
}

// BroadcastMatch sends a message to every client in a match group.
func (h *Hub) BroadcastMatch(matchID string, msg WSMessage) {
	h.mu.RLock()
	defer h.mu.RUnlock()
	group, ok := h.matches[matchID]
	if !ok {
		return
	}
	for _, c := range group {
		select {
		case c.send <- msg:
		default:
			h.logger.Warn("client send buffer full", "client", c.ID)
		}
	}
}

// SendTo sends a message to a specific client.
func (h *Hub) SendTo(clientID int64, msg WSMessage) {
	h.mu.RLock()
	defer h.mu.RUnlock()
	c, ok := h.clients[clientID]
	if !ok {
		return
	}
	select {
	case c.send <- msg:
	default:
	}
}

// SendJSON marshals payload and sends it as a typed envelope.
func (h *Hub) SendJSON(clientID int64, msgType string, payload any) {
	raw, err := json.Marshal(payload)
	if err != nil {
		h.logger.Error("marshal send", "err", err)
		return
	}
	h.SendTo(clientID, WSMessage{Type: msgType, Payload: raw})
}

func (h *Hub) readPump(ctx context.Context, c *Client) {
	defer func() {
		if err := c.conn.CloseNow(); err != nil {
			h.logger.Debug("close conn", "err", err)
		}
	}()
	for {
		var msg WSMessage
		if err := wsjson.Read(ctx, c.conn, &msg); err != nil {
			return
		}
		if h.handler != nil {
			h.handler.HandleMessage(ctx, c, msg)
		}
	}
}

func (h *Hub) writePump(ctx context.Context, c *Client) {
	ticker := time.NewTicker(30 * time.Second)
	defer ticker.Stop()
	for {
		select {
		case msg, ok := <-c.send:
			if !ok {
				c.conn.Close(websocket.StatusNormalClosure, "")
				return
			}
			if err := wsjson.Write(ctx, c.conn, msg); err != nil {
				return
			}
		case <-ticker.C:
			if err := c.conn.Ping(ctx); err != nil {
				return
			}
		case <-ctx.Done():
			return
		}
	}
}
