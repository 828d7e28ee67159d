// Package stream implements a push channel that streams newly committed
// transactions to subscribers, an enrichment beyond spec.md's pull-only
// read methods. Grounded on the teacher's internal/rpc/websocket.go and
// publisher.go: a per-connection send channel plus ping/pong keep-alive,
// generalized from rippled-style "streams" (ledger, transactions) to a
// single transaction stream, optionally filtered by token.
package stream

import (
	"encoding/hex"
	"encoding/json"
	"log"
	"net/http"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/gorilla/websocket"

	"github.com/icrc151/ledgerd/internal/ledger/keys"
	"github.com/icrc151/ledgerd/internal/ledger/record"
	"github.com/icrc151/ledgerd/internal/ledger/txlog"
)

const (
	sendBuffer   = 256
	maxReadBytes = 64 * 1024
	pongWait     = 90 * time.Second
	pingPeriod   = 30 * time.Second
	writeWait    = 10 * time.Second
)

// Event is the wire shape of a committed transaction, pushed to every
// subscriber whose token filter matches (or who subscribed to all tokens).
type Event struct {
	Index     uint64 `json:"index"`
	Op        string `json:"op"`
	Token     string `json:"token"`
	From      string `json:"from,omitempty"`
	To        string `json:"to,omitempty"`
	Spender   string `json:"spender,omitempty"`
	Amount    string `json:"amount"`
	Fee       string `json:"fee,omitempty"`
	Timestamp uint64 `json:"timestamp_ns"`
}

// EventFromEntry builds the wire event for a just-appended log entry.
func EventFromEntry(e txlog.Entry) Event {
	r := e.Record
	ev := Event{
		Index:     e.Index,
		Op:        r.Op.String(),
		Token:     hex.EncodeToString(r.TokenID[:]),
		Amount:    r.Amount.String(),
		Timestamp: r.TimestampNs,
	}
	if r.FromKey != (keys.AccountKey{}) {
		ev.From = hex.EncodeToString(r.FromKey[:])
	}
	if r.ToKey != (keys.AccountKey{}) {
		ev.To = hex.EncodeToString(r.ToKey[:])
	}
	if r.HasSpender() {
		ev.Spender = hex.EncodeToString(r.SpenderKey[:])
	}
	if r.HasFee() {
		ev.Fee = r.Fee.String()
	}
	return ev
}

// subscriber is a single WebSocket connection and its token filter.
type subscriber struct {
	id     string
	conn   *websocket.Conn
	send   chan []byte
	done   chan struct{}
	mu     sync.RWMutex
	tokens map[string]struct{} // empty set means "all tokens"
}

func (s *subscriber) wants(token string) bool {
	s.mu.RLock()
	defer s.mu.RUnlock()
	if len(s.tokens) == 0 {
		return true
	}
	_, ok := s.tokens[token]
	return ok
}

func (s *subscriber) setTokens(tokens []string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.tokens = make(map[string]struct{}, len(tokens))
	for _, t := range tokens {
		s.tokens[t] = struct{}{}
	}
}

// Hub fans out committed-transaction events to every subscribed
// connection. One Hub is shared by the whole server.
type Hub struct {
	upgrader websocket.Upgrader

	mu   sync.RWMutex
	subs map[string]*subscriber
}

// NewHub builds an empty Hub.
func NewHub() *Hub {
	return &Hub{
		upgrader: websocket.Upgrader{
			CheckOrigin: func(r *http.Request) bool { return true },
		},
		subs: make(map[string]*subscriber),
	}
}

// subscribeRequest is the client-sent command for choosing which tokens'
// transactions a connection wants to receive.
type subscribeRequest struct {
	Tokens []string `json:"tokens"`
}

// ServeHTTP upgrades the connection and starts its read/write pumps.
func (h *Hub) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	conn, err := h.upgrader.Upgrade(w, r, nil)
	if err != nil {
		log.Printf("stream: upgrade failed: %v", err)
		return
	}

	sub := &subscriber{
		id:   uuid.NewString(),
		conn: conn,
		send: make(chan []byte, sendBuffer),
		done: make(chan struct{}),
	}

	h.mu.Lock()
	h.subs[sub.id] = sub
	h.mu.Unlock()

	go h.writePump(sub)
	go h.readPump(sub)
}

func (h *Hub) readPump(sub *subscriber) {
	defer h.remove(sub)

	sub.conn.SetReadLimit(maxReadBytes)
	sub.conn.SetPongHandler(func(string) error {
		sub.conn.SetReadDeadline(time.Now().Add(pongWait))
		return nil
	})

	for {
		sub.conn.SetReadDeadline(time.Now().Add(pongWait))
		_, msg, err := sub.conn.ReadMessage()
		if err != nil {
			if websocket.IsUnexpectedCloseError(err, websocket.CloseGoingAway, websocket.CloseAbnormalClosure, websocket.CloseNormalClosure) {
				log.Printf("stream: read error from %s: %v", sub.id, err)
			}
			return
		}
		var req subscribeRequest
		if err := json.Unmarshal(msg, &req); err != nil {
			continue
		}
		sub.setTokens(req.Tokens)
	}
}

func (h *Hub) writePump(sub *subscriber) {
	ticker := time.NewTicker(pingPeriod)
	defer ticker.Stop()

	for {
		select {
		case <-sub.done:
			return
		case msg := <-sub.send:
			sub.conn.SetWriteDeadline(time.Now().Add(writeWait))
			if err := sub.conn.WriteMessage(websocket.TextMessage, msg); err != nil {
				return
			}
		case <-ticker.C:
			sub.conn.SetWriteDeadline(time.Now().Add(writeWait))
			if err := sub.conn.WriteMessage(websocket.PingMessage, nil); err != nil {
				return
			}
		}
	}
}

func (h *Hub) remove(sub *subscriber) {
	h.mu.Lock()
	delete(h.subs, sub.id)
	h.mu.Unlock()
	close(sub.done)
	sub.conn.Close()
}

// Publish broadcasts ev to every subscriber whose token filter matches it.
// Called by the RPC server after each transfer, approve, transfer_from,
// mint_tokens and burn_tokens commit; create_token's initial-supply mint
// record is not published.
func (h *Hub) Publish(ev Event) {
	data, err := json.Marshal(ev)
	if err != nil {
		log.Printf("stream: failed to marshal event: %v", err)
		return
	}

	h.mu.RLock()
	defer h.mu.RUnlock()
	for _, sub := range h.subs {
		if !sub.wants(ev.Token) {
			continue
		}
		select {
		case sub.send <- data:
		default:
			log.Printf("stream: dropping slow subscriber %s", sub.id)
		}
	}
}
