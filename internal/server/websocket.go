package server

import (
	"encoding/json"
	"log"
	"net/http"
	"sync"

	"github.com/google/uuid"
	"github.com/gorilla/websocket"

	"github.com/michaelbrown/coderoom/internal/protocol"
)

var upgrader = websocket.Upgrader{
	CheckOrigin: func(r *http.Request) bool {
		return true // room tokens are the only access control
	},
}

// wsConn adapts a gorilla connection to relay.Conn. The id is server
// assigned and never reused; writes are serialized with a mutex because the
// relay sends from multiple goroutines.
type wsConn struct {
	id   string
	conn *websocket.Conn
	mu   sync.Mutex
}

func (c *wsConn) ID() string { return c.id }

func (c *wsConn) Send(event string, payload any) error {
	data, err := json.Marshal(payload)
	if err != nil {
		return err
	}
	env := protocol.Envelope{Event: event, Payload: data}
	msg, err := json.Marshal(env)
	if err != nil {
		return err
	}
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.conn.WriteMessage(websocket.TextMessage, msg)
}

func (s *Server) handleWebSocket(w http.ResponseWriter, r *http.Request) {
	conn, err := upgrader.Upgrade(w, r, nil)
	if err != nil {
		log.Printf("websocket upgrade error: %v", err)
		return
	}
	defer conn.Close()

	wc := &wsConn{id: uuid.New().String(), conn: conn}
	s.relay.Attach(wc)
	log.Printf("websocket connected: %s", wc.id)

	// Teardown broadcasts disconnected to each of the connection's rooms
	// before the registry entry goes away.
	defer s.relay.HandleDisconnect(wc)

	for {
		_, data, err := conn.ReadMessage()
		if err != nil {
			if websocket.IsCloseError(err, websocket.CloseNormalClosure, websocket.CloseGoingAway) {
				return
			}
			log.Printf("websocket read error: %v", err)
			return
		}

		var env protocol.Envelope
		if err := json.Unmarshal(data, &env); err != nil {
			log.Printf("websocket: conn %s: bad envelope: %v", wc.id, err)
			continue
		}

		s.relay.Dispatch(wc, env)
	}
}
