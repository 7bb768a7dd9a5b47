package protocol

import (
	"encoding/json"

	"github.com/michaelbrown/coderoom/internal/runner"
)

// Event names for the room wire protocol. Clients send join, code-change,
// sync-code, cursor-change, run-code and ai-code-completion; the server emits
// joined, code-change, code-output, disconnected and ai-completion-response.
const (
	EventJoin               = "join"
	EventJoined             = "joined"
	EventCodeChange         = "code-change"
	EventSyncCode           = "sync-code"
	EventCursorChange       = "cursor-change"
	EventRunCode            = "run-code"
	EventCodeOutput         = "code-output"
	EventDisconnected       = "disconnected"
	EventCodeCompletion     = "ai-code-completion"
	EventCompletionResponse = "ai-completion-response"
)

// Envelope wraps every message on the wire.
type Envelope struct {
	Event   string          `json:"event"`
	Payload json.RawMessage `json:"payload,omitempty"`
}

// Member identifies one participant in a room.
type Member struct {
	ConnectionID string `json:"connectionId"`
	DisplayName  string `json:"displayName"`
}

// Cursor is an ephemeral caret position. Relayed, never stored.
type Cursor struct {
	Line   int `json:"line"`
	Column int `json:"column"`
}

// JoinPayload is sent by a client to enter a room.
type JoinPayload struct {
	RoomToken   string `json:"roomToken"`
	DisplayName string `json:"displayName"`
}

// JoinedPayload notifies every room member about a join. Members is the full
// membership snapshot taken after the new connection was added.
type JoinedPayload struct {
	Members      []Member `json:"members"`
	DisplayName  string   `json:"displayName"`
	ConnectionID string   `json:"connectionId"`
}

// CodeChangePayload carries the latest document text for a room.
type CodeChangePayload struct {
	RoomToken string `json:"roomToken,omitempty"`
	Code      string `json:"code"`
}

// SyncCodePayload pushes the current document directly to one connection,
// used to bootstrap a newcomer.
type SyncCodePayload struct {
	TargetConnectionID string `json:"targetConnectionId"`
	Code               string `json:"code"`
}

// CursorChangePayload advertises a participant's caret position.
type CursorChangePayload struct {
	RoomToken   string `json:"roomToken,omitempty"`
	Cursor      Cursor `json:"cursor"`
	DisplayName string `json:"displayName"`
}

// RunCodePayload asks the server to execute the room's document.
type RunCodePayload struct {
	RoomToken  string `json:"roomToken"`
	Code       string `json:"code"`
	LanguageID string `json:"languageId"`
}

// CodeOutputPayload broadcasts an execution result to the whole room,
// including the requester.
type CodeOutputPayload struct {
	Result runner.Result `json:"result"`
}

// DisconnectedPayload announces that a connection left a room.
type DisconnectedPayload struct {
	ConnectionID string `json:"connectionId"`
	DisplayName  string `json:"displayName"`
}

// CompletionRequestPayload asks for AI completion suggestions at a cursor.
type CompletionRequestPayload struct {
	RoomToken  string `json:"roomToken"`
	Code       string `json:"code"`
	LanguageID string `json:"languageId"`
	Cursor     Cursor `json:"cursor"`
	RequestID  uint64 `json:"requestId"`
}

// CompletionResponsePayload is delivered to the requesting connection only.
type CompletionResponsePayload struct {
	RequestID   uint64   `json:"requestId"`
	Suggestions []string `json:"suggestions"`
	Succeeded   bool     `json:"succeeded"`
	Error       string   `json:"error,omitempty"`
}
