// Package api is the HTTP surface: the websocket upgrade plus a few JSON
// endpoints for health, load and reading a board without joining it.
package api

import (
	"context"
	"encoding/json"
	"errors"
	"log/slog"
	"net/http"
	"time"

	"github.com/google/uuid"
	"github.com/gorilla/mux"
	"github.com/gorilla/websocket"

	"liveboard-sync-server/domain"
	ws "liveboard-sync-server/websocket"
)

var upgrader = websocket.Upgrader{
	ReadBufferSize:  1024,
	WriteBufferSize: 1024,
	CheckOrigin:     func(r *http.Request) bool { return true },
}

type BoardReader interface {
	Snapshot(ctx context.Context, roomCode string) (domain.Snapshot, time.Time, error)
}

type Deps struct {
	Handler domain.MessageHandler
	Boards  BoardReader
	// Members reports joined rooms and connections.
	Members interface{ Stats() (rooms, clients int) }
	// Actors reports running room workers.
	Actors  interface{ Active() int }
}

func NewRouter(d Deps) *mux.Router {
	r := mux.NewRouter()
	r.HandleFunc("/ws", wsHandler(d.Handler)).Methods(http.MethodGet)
	r.HandleFunc("/health", healthHandler).Methods(http.MethodGet)
	r.HandleFunc("/stats", statsHandler(d)).Methods(http.MethodGet)
	r.HandleFunc("/api/board/{roomCode}", boardHandler(d.Boards)).Methods(http.MethodGet)
	return r
}

func wsHandler(handler domain.MessageHandler) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		conn, err := upgrader.Upgrade(w, r, nil)
		if err != nil {
			slog.Error("upgrade error", "error", err)
			return
		}

		id := uuid.New().String()
		slog.Debug("client connected", "clientId", id, "remote", r.RemoteAddr)
		ws.NewConn(id, conn, handler).Start()
	}
}

func healthHandler(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}

func statsHandler(d Deps) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		rooms, clients := d.Members.Stats()
		writeJSON(w, http.StatusOK, map[string]int{"rooms": rooms, "clients": clients, "actors": d.Actors.Active()})
	}
}

type boardData struct {
	Drawings    []domain.Element            `json:"drawings"`
	Texts       map[string]domain.TextLabel `json:"texts"`
	LastUpdated time.Time                   `json:"lastUpdated"`
}

type boardResponse struct {
	Success bool       `json:"success"`
	Data    *boardData `json:"data,omitempty"`
	Message string     `json:"message,omitempty"`
}

func boardHandler(boards BoardReader) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		roomCode := mux.Vars(r)["roomCode"]

		snap, updated, err := boards.Snapshot(r.Context(), roomCode)
		switch {
		case errors.Is(err, domain.ErrRoomNotFound):
			writeJSON(w, http.StatusNotFound, boardResponse{Message: "Board state not found"})
			return
		case errors.Is(err, domain.ErrMissingRoomCode):
			writeJSON(w, http.StatusBadRequest, boardResponse{Message: "Room code is required"})
			return
		case err != nil:
			slog.Error("board read failed", "room", roomCode, "error", err)
			writeJSON(w, http.StatusInternalServerError, boardResponse{Message: "Server error while fetching board state"})
			return
		}

		snap = snap.Clone()
		writeJSON(w, http.StatusOK, boardResponse{
			Success: true,
			Data:    &boardData{Drawings: snap.Drawings, Texts: snap.Texts, LastUpdated: updated},
		})
	}
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(v)
}
