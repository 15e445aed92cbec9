package handlers

import (
	"fmt"
	"net/http"
	"sync"
	"time"

	"trace-crm-sync/pkg/crm"
	"trace-crm-sync/pkg/middleware"
	"trace-crm-sync/pkg/store"
	"trace-crm-sync/pkg/utils"

	"github.com/gorilla/websocket"
)

// ticketTTL is how long an issued websocket ticket stays redeemable.
const ticketTTL = 30 * time.Second

type wsTicket struct {
	uid     string
	expires time.Time
}

// inboundOp is a client frame on the realtime socket.
type inboundOp struct {
	Op         string `json:"op"` // "subscribe", "unsubscribe", "ping"
	Collection string `json:"collection,omitempty"`
}

// snapshotFrame is pushed on every change of a subscribed collection.
type snapshotFrame struct {
	Type       string        `json:"type"` // "snapshot"
	Collection string        `json:"collection"`
	Records    []recordFrame `json:"records"`
}

type recordFrame struct {
	ID     string       `json:"id"`
	Fields store.Record `json:"fields"`
}

// RealtimeHandler bridges the store's subscription fan-out onto websockets.
// Browsers cannot set an Authorization header on a websocket handshake, so
// an authenticated client first posts for a one-shot short-lived ticket and
// then redeems it as a query parameter on the upgrade request.
type RealtimeHandler struct {
	crm      *crm.Service
	upgrader websocket.Upgrader

	mu      sync.Mutex
	tickets map[string]wsTicket
}

func NewRealtimeHandler(crmService *crm.Service) *RealtimeHandler {
	return &RealtimeHandler{
		crm: crmService,
		upgrader: websocket.Upgrader{
			ReadBufferSize:  4096,
			WriteBufferSize: 4096,
			// Origin enforcement happens in the CORS layer for the ticket
			// request; the ticket itself gates the upgrade.
			CheckOrigin: func(r *http.Request) bool { return true },
		},
		tickets: map[string]wsTicket{},
	}
}

// POST /api/realtime/ticket
func (h *RealtimeHandler) IssueTicket(w http.ResponseWriter, r *http.Request) {
	user, err := middleware.RequireUser(r.Context())
	if err != nil { utils.WriteUnauthorizedResponse(w, "Authentication required"); return }

	token, err := utils.GenerateURLToken(24)
	if err != nil { utils.WriteInternalServerErrorResponse(w, "Failed to issue ticket"); return }

	h.mu.Lock()
	now := time.Now()
	for t, ticket := range h.tickets {
		if ticket.expires.Before(now) {
			delete(h.tickets, t)
		}
	}
	h.tickets[token] = wsTicket{uid: user.ID, expires: now.Add(ticketTTL)}
	h.mu.Unlock()

	utils.WriteSuccessResponse(w, map[string]interface{}{
		"ticket":     token,
		"expires_in": int(ticketTTL.Seconds()),
	})
}

// redeemTicket consumes a ticket. Each ticket works exactly once.
func (h *RealtimeHandler) redeemTicket(token string) (uid string, ok bool) {
	h.mu.Lock()
	defer h.mu.Unlock()
	ticket, found := h.tickets[token]
	if !found {
		return "", false
	}
	delete(h.tickets, token)
	if ticket.expires.Before(time.Now()) {
		return "", false
	}
	return ticket.uid, true
}

// GET /api/realtime/ws?ticket=
func (h *RealtimeHandler) ServeWS(w http.ResponseWriter, r *http.Request) {
	uid, ok := h.redeemTicket(r.URL.Query().Get("ticket"))
	if !ok {
		utils.WriteUnauthorizedResponse(w, "Invalid or expired ticket")
		return
	}

	conn, err := h.upgrader.Upgrade(w, r, nil)
	if err != nil {
		fmt.Printf("❌ Websocket upgrade failed: %v\n", err)
		return
	}

	session := &wsSession{
		handler: h,
		conn:    conn,
		uid:     uid,
		unsubs:  map[string]store.UnsubscribeFunc{},
	}
	fmt.Printf("🔌 Realtime session opened for %s\n", uid)
	session.readLoop()
}

// wsSession is one realtime connection. Store callbacks arrive on mutator
// goroutines, so every write to the socket goes through writeMu.
type wsSession struct {
	handler *RealtimeHandler
	conn    *websocket.Conn
	uid     string

	writeMu sync.Mutex

	mu     sync.Mutex
	unsubs map[string]store.UnsubscribeFunc
}

func (s *wsSession) readLoop() {
	defer s.close()
	for {
		var op inboundOp
		if err := s.conn.ReadJSON(&op); err != nil {
			return
		}
		switch op.Op {
		case "subscribe":
			s.subscribe(op.Collection)
		case "unsubscribe":
			s.unsubscribe(op.Collection)
		case "ping":
			s.send(map[string]interface{}{"type": "pong"})
		default:
			s.send(map[string]interface{}{"type": "error", "message": "unknown op: " + op.Op})
		}
	}
}

func (s *wsSession) subscribe(collection string) {
	if collection == "" {
		s.send(map[string]interface{}{"type": "error", "message": "collection required"})
		return
	}

	s.mu.Lock()
	_, already := s.unsubs[collection]
	s.mu.Unlock()
	if already {
		// Resubscribing is a no-op; the client already gets every change.
		return
	}

	unsub, err := s.handler.crm.Store().Subscribe(
		store.CollectionPath(s.uid, collection),
		func(snap store.Snapshot) {
			records := make([]recordFrame, len(snap))
			for i, entry := range snap {
				records[i] = recordFrame{ID: entry.ID, Fields: entry.Fields}
			}
			s.send(snapshotFrame{Type: "snapshot", Collection: collection, Records: records})
		},
	)
	if err != nil {
		s.send(map[string]interface{}{"type": "error", "message": err.Error()})
		return
	}

	s.mu.Lock()
	s.unsubs[collection] = unsub
	s.mu.Unlock()
}

func (s *wsSession) unsubscribe(collection string) {
	s.mu.Lock()
	unsub, ok := s.unsubs[collection]
	if ok {
		delete(s.unsubs, collection)
	}
	s.mu.Unlock()
	if ok {
		unsub()
	}
}

func (s *wsSession) send(v interface{}) {
	s.writeMu.Lock()
	defer s.writeMu.Unlock()
	s.conn.SetWriteDeadline(time.Now().Add(10 * time.Second))
	if err := s.conn.WriteJSON(v); err != nil {
		// The read loop will notice the broken connection and tear down.
		fmt.Printf("⚠️ Realtime write failed for %s: %v\n", s.uid, err)
	}
}

func (s *wsSession) close() {
	s.mu.Lock()
	unsubs := s.unsubs
	s.unsubs = map[string]store.UnsubscribeFunc{}
	s.mu.Unlock()
	for _, unsub := range unsubs {
		unsub()
	}
	s.conn.Close()
	fmt.Printf("🔌 Realtime session closed for %s\n", s.uid)
}
