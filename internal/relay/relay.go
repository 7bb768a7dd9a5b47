package relay

import (
	"context"
	"encoding/json"
	"log"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/michaelbrown/coderoom/internal/completion"
	"github.com/michaelbrown/coderoom/internal/protocol"
	"github.com/michaelbrown/coderoom/internal/room"
	"github.com/michaelbrown/coderoom/internal/runner"
	"github.com/michaelbrown/coderoom/internal/storage"
)

// Conn is one live transport session. Send must be safe for concurrent use.
type Conn interface {
	ID() string
	Send(event string, payload any) error
}

// Executor runs source text under the sandbox. Satisfied by *runner.Runner.
type Executor interface {
	Execute(ctx context.Context, source string, lang runner.Language) runner.Result
}

// Completer asks an external provider for code suggestions. Satisfied by
// *completion.Service. May be nil, in which case only the local fallback
// suggestions are served.
type Completer interface {
	Complete(ctx context.Context, code, languageID string, cursor protocol.Cursor) ([]string, error)
}

type connState int

const (
	stateUnjoined connState = iota
	stateJoined
	stateDisconnected
)

type session struct {
	conn  Conn
	state connState
}

// Relay forwards events between the connections of a room. It owns no
// document content: edits and cursors are fanned out with the sender
// excluded, execution results go to the whole room, and a newcomer's
// snapshot travels peer to peer via sync-code.
type Relay struct {
	registry       *room.Registry
	executor       Executor
	completer      Completer
	store          storage.Store
	correlator     *completion.Correlator
	completionWait time.Duration

	mu       sync.RWMutex
	sessions map[string]*session

	background sync.WaitGroup
}

// New creates a relay. completer and store may be nil to disable AI
// completions and run history respectively.
func New(registry *room.Registry, executor Executor, completer Completer, store storage.Store) *Relay {
	return &Relay{
		registry:       registry,
		executor:       executor,
		completer:      completer,
		store:          store,
		correlator:     completion.NewCorrelator(),
		completionWait: 5 * time.Second,
		sessions:       make(map[string]*session),
	}
}

// Attach registers a freshly connected, not yet joined connection.
func (r *Relay) Attach(conn Conn) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if _, ok := r.sessions[conn.ID()]; !ok {
		r.sessions[conn.ID()] = &session{conn: conn, state: stateUnjoined}
	}
}

// Dispatch routes one incoming event for a connection. Events for a given
// connection are dispatched serially by the transport's read loop; events
// across connections interleave freely. Malformed events are dropped with a
// diagnostic and never fail the server.
func (r *Relay) Dispatch(conn Conn, env protocol.Envelope) {
	r.Attach(conn)

	switch env.Event {
	case protocol.EventJoin:
		var p protocol.JoinPayload
		if !r.decode(conn, env, &p) || p.RoomToken == "" {
			r.drop(conn, env.Event, "missing room token")
			return
		}
		r.handleJoin(conn, p)
	case protocol.EventCodeChange:
		var p protocol.CodeChangePayload
		if !r.decode(conn, env, &p) || p.RoomToken == "" {
			r.drop(conn, env.Event, "missing room token")
			return
		}
		r.handleCodeChange(conn, p)
	case protocol.EventSyncCode:
		var p protocol.SyncCodePayload
		if !r.decode(conn, env, &p) || p.TargetConnectionID == "" {
			r.drop(conn, env.Event, "missing target connection")
			return
		}
		r.handleSyncCode(conn, p)
	case protocol.EventCursorChange:
		var p protocol.CursorChangePayload
		if !r.decode(conn, env, &p) || p.RoomToken == "" {
			r.drop(conn, env.Event, "missing room token")
			return
		}
		r.handleCursorChange(conn, p)
	case protocol.EventRunCode:
		var p protocol.RunCodePayload
		if !r.decode(conn, env, &p) || p.RoomToken == "" {
			r.drop(conn, env.Event, "missing room token")
			return
		}
		r.handleRunCode(conn, p)
	case protocol.EventCodeCompletion:
		var p protocol.CompletionRequestPayload
		if !r.decode(conn, env, &p) || p.RoomToken == "" {
			r.drop(conn, env.Event, "missing room token")
			return
		}
		r.handleCompletion(conn, p)
	default:
		r.drop(conn, env.Event, "unknown event")
	}
}

func (r *Relay) decode(conn Conn, env protocol.Envelope, v any) bool {
	if err := json.Unmarshal(env.Payload, v); err != nil {
		log.Printf("relay: conn %s: bad %s payload: %v", conn.ID(), env.Event, err)
		return false
	}
	return true
}

func (r *Relay) drop(conn Conn, event, reason string) {
	log.Printf("relay: conn %s: dropping %s: %s", conn.ID(), event, reason)
}

// joined reports whether a connection has completed a join.
func (r *Relay) joined(connectionID string) bool {
	r.mu.RLock()
	defer r.mu.RUnlock()
	s, ok := r.sessions[connectionID]
	return ok && s.state == stateJoined
}

func (r *Relay) setState(connectionID string, st connState) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if s, ok := r.sessions[connectionID]; ok {
		s.state = st
	}
}

func (r *Relay) handleJoin(conn Conn, p protocol.JoinPayload) {
	r.registry.RecordJoin(conn.ID(), p.DisplayName)
	r.registry.Subscribe(p.RoomToken, conn.ID())
	r.setState(conn.ID(), stateJoined)

	// Membership snapshot taken after the newcomer was added. Every member,
	// the newcomer included, learns the full list; an existing member reacts
	// by pushing the current document to the newcomer via sync-code.
	members := r.registry.MembersOf(p.RoomToken)
	notification := protocol.JoinedPayload{
		Members:      members,
		DisplayName:  p.DisplayName,
		ConnectionID: conn.ID(),
	}
	for _, m := range members {
		r.unicast(m.ConnectionID, protocol.EventJoined, notification)
	}
}

func (r *Relay) handleCodeChange(conn Conn, p protocol.CodeChangePayload) {
	if !r.joined(conn.ID()) {
		r.drop(conn, protocol.EventCodeChange, "not joined")
		return
	}
	r.broadcast(p.RoomToken, conn.ID(), protocol.EventCodeChange,
		protocol.CodeChangePayload{Code: p.Code})
}

func (r *Relay) handleSyncCode(conn Conn, p protocol.SyncCodePayload) {
	if !r.joined(conn.ID()) {
		r.drop(conn, protocol.EventSyncCode, "not joined")
		return
	}
	// Unicast bootstrap: the newcomer receives the snapshot as a plain
	// code-change, exactly as if the sender had typed it.
	r.unicast(p.TargetConnectionID, protocol.EventCodeChange,
		protocol.CodeChangePayload{Code: p.Code})
}

func (r *Relay) handleCursorChange(conn Conn, p protocol.CursorChangePayload) {
	if !r.joined(conn.ID()) {
		r.drop(conn, protocol.EventCursorChange, "not joined")
		return
	}
	r.broadcast(p.RoomToken, conn.ID(), protocol.EventCursorChange,
		protocol.CursorChangePayload{Cursor: p.Cursor, DisplayName: p.DisplayName})
}

func (r *Relay) handleRunCode(conn Conn, p protocol.RunCodePayload) {
	if !r.joined(conn.ID()) {
		r.drop(conn, protocol.EventRunCode, "not joined")
		return
	}

	lang := runner.ParseLanguage(p.LanguageID)

	// Execution outlives the triggering connection: a disconnect must not
	// cancel a run already dispatched, so the sandbox gets a fresh context.
	r.background.Add(1)
	go func() {
		defer r.background.Done()

		result := r.executor.Execute(context.Background(), p.Code, lang)

		if r.store != nil {
			rec := &storage.RunRecord{
				ID:         uuid.New().String(),
				RoomToken:  p.RoomToken,
				LanguageID: lang.String(),
				Succeeded:  result.Succeeded,
				Stdout:     result.StandardOutput,
				Stderr:     result.StandardError,
				CreatedAt:  result.ProducedAt,
			}
			if err := r.store.SaveRun(context.Background(), rec); err != nil {
				log.Printf("relay: saving run for room %s: %v", p.RoomToken, err)
			}
		}

		// The whole room sees the result, requester included.
		r.broadcast(p.RoomToken, "", protocol.EventCodeOutput,
			protocol.CodeOutputPayload{Result: result})
	}()
}

func (r *Relay) handleCompletion(conn Conn, p protocol.CompletionRequestPayload) {
	if !r.joined(conn.ID()) {
		r.drop(conn, protocol.EventCodeCompletion, "not joined")
		return
	}
	if !r.correlator.Track(conn.ID(), p.RequestID) {
		r.drop(conn, protocol.EventCodeCompletion, "stale request id")
		return
	}

	connectionID := conn.ID()
	r.background.Add(1)
	go func() {
		defer r.background.Done()

		ctx, cancel := context.WithTimeout(context.Background(), r.completionWait)
		defer cancel()

		var suggestions []string
		var err error
		if r.completer != nil {
			suggestions, err = r.completer.Complete(ctx, p.Code, p.LanguageID, p.Cursor)
		}
		if err != nil {
			log.Printf("relay: completion provider for conn %s: %v", connectionID, err)
		}
		if len(suggestions) == 0 {
			suggestions = completion.Fallback(p.Code, p.Cursor)
		}
		if suggestions == nil {
			suggestions = []string{}
		}

		// A newer request from the same connection invalidates this one.
		if !r.correlator.Current(connectionID, p.RequestID) {
			return
		}
		r.unicast(connectionID, protocol.EventCompletionResponse,
			protocol.CompletionResponsePayload{
				RequestID:   p.RequestID,
				Suggestions: suggestions,
				Succeeded:   true,
			})
	}()
}

// HandleDisconnect runs the teardown sequence for a connection: remaining
// members of each of its rooms are notified first, while group membership is
// still intact, and only then is the registry entry forgotten.
func (r *Relay) HandleDisconnect(conn Conn) {
	id := conn.ID()
	r.setState(id, stateDisconnected)

	name, _ := r.registry.DisplayName(id)
	for _, token := range r.registry.RoomsOf(id) {
		r.broadcast(token, id, protocol.EventDisconnected,
			protocol.DisconnectedPayload{ConnectionID: id, DisplayName: name})
	}

	r.registry.Forget(id)
	r.correlator.Forget(id)

	r.mu.Lock()
	delete(r.sessions, id)
	r.mu.Unlock()
}

// Drain blocks until all background work (runs, completion requests) has
// finished. Called during server shutdown and by tests.
func (r *Relay) Drain() {
	r.background.Wait()
}

// broadcast fans an event out to every member of a room except the excluded
// connection. Pass except == "" to include everyone.
func (r *Relay) broadcast(roomToken, except, event string, payload any) {
	for _, m := range r.registry.MembersOf(roomToken) {
		if m.ConnectionID == except {
			continue
		}
		r.unicast(m.ConnectionID, event, payload)
	}
}

func (r *Relay) unicast(connectionID, event string, payload any) {
	r.mu.RLock()
	s, ok := r.sessions[connectionID]
	r.mu.RUnlock()
	if !ok {
		return
	}
	if err := s.conn.Send(event, payload); err != nil {
		log.Printf("relay: send %s to conn %s: %v", event, connectionID, err)
	}
}
