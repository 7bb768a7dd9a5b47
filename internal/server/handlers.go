package server

import (
	"encoding/json"
	"net/http"
	"sort"
	"strconv"

	"github.com/go-chi/chi/v5"

	"github.com/michaelbrown/coderoom/internal/protocol"
	"github.com/michaelbrown/coderoom/internal/storage"
)

// --- JSON helpers ---

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(v)
}

func writeError(w http.ResponseWriter, status int, msg string) {
	writeJSON(w, status, map[string]string{"error": msg})
}

// --- Room handlers ---

type roomInfo struct {
	Token       string `json:"token"`
	MemberCount int    `json:"memberCount"`
}

func (s *Server) handleListRooms(w http.ResponseWriter, r *http.Request) {
	tokens := s.registry.Rooms()
	sort.Strings(tokens)

	rooms := make([]roomInfo, 0, len(tokens))
	for _, token := range tokens {
		rooms = append(rooms, roomInfo{
			Token:       token,
			MemberCount: len(s.registry.MembersOf(token)),
		})
	}
	writeJSON(w, http.StatusOK, rooms)
}

func (s *Server) handleRoomMembers(w http.ResponseWriter, r *http.Request) {
	token := chi.URLParam(r, "token")

	members := s.registry.MembersOf(token)
	if members == nil {
		members = []protocol.Member{}
	}
	writeJSON(w, http.StatusOK, members)
}

func (s *Server) handleRoomRuns(w http.ResponseWriter, r *http.Request) {
	if s.store == nil {
		writeError(w, http.StatusNotFound, "run history disabled")
		return
	}

	opts := storage.RunListOptions{RoomToken: chi.URLParam(r, "token")}
	if limit := r.URL.Query().Get("limit"); limit != "" {
		if n, err := strconv.Atoi(limit); err == nil {
			opts.Limit = n
		}
	}
	if offset := r.URL.Query().Get("offset"); offset != "" {
		if n, err := strconv.Atoi(offset); err == nil {
			opts.Offset = n
		}
	}

	runs, err := s.store.ListRuns(r.Context(), opts)
	if err != nil {
		writeError(w, http.StatusInternalServerError, err.Error())
		return
	}

	if runs == nil {
		runs = []storage.RunRecord{}
	}
	writeJSON(w, http.StatusOK, runs)
}
