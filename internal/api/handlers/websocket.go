package handlers

import (
	"log/slog"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"
	"github.com/gorilla/websocket"
	"github.com/samber/lo"

	"github.com/irgordon/laraprov/internal/telemetry"
)

// ==============================================================================
// 1. WebSocket Configuration & Constants
// ==============================================================================

const (
	// Time allowed to write a message to the peer.
	writeWait = 10 * time.Second

	// Time allowed to read the next pong message from the peer.
	pongWait = 60 * time.Second

	// Send pings to peer with this period. Must be less than pongWait.
	pingPeriod = (pongWait * 9) / 10

	// We only stream out; inbound frames are control messages.
	maxMessageSize = 512
)

// ==============================================================================
// 2. Handler
// ==============================================================================

type WebSocketHandler struct {
	Hub      *telemetry.Hub
	Runs     RunController
	Logger   *slog.Logger
	upgrader websocket.Upgrader
}

// NewWebSocketHandler accepts upgrades from allowedOrigins, or from clients
// that send no Origin header at all (CLI tools).
func NewWebSocketHandler(hub *telemetry.Hub, runs RunController, allowedOrigins []string, logger *slog.Logger) *WebSocketHandler {
	return &WebSocketHandler{
		Hub:    hub,
		Runs:   runs,
		Logger: logger,
		upgrader: websocket.Upgrader{
			ReadBufferSize:  1024,
			WriteBufferSize: 1024,
			CheckOrigin: func(r *http.Request) bool {
				origin := r.Header.Get("Origin")
				return origin == "" || lo.Contains(allowedOrigins, origin)
			},
		},
	}
}

// StreamRunLogs handles GET /api/v1/ws/runs/{id}
func (h *WebSocketHandler) StreamRunLogs(w http.ResponseWriter, r *http.Request) {
	runID, err := uuid.Parse(chi.URLParam(r, "id"))
	if err != nil {
		http.Error(w, `{"message": "Invalid run ID format"}`, http.StatusBadRequest)
		return
	}
	if cur := h.Runs.Current(); cur == nil || cur.ID != runID {
		http.Error(w, `{"message": "Unknown run"}`, http.StatusNotFound)
		return
	}

	id := runID.String()
	// Subscribe before re-checking completion so no closing line slips between.
	logs := h.Hub.Subscribe(id)
	finished := h.Runs.Current().FinishedAt != nil

	ws, err := h.upgrader.Upgrade(w, r, nil)
	if err != nil {
		h.Hub.Unsubscribe(id, logs)
		h.Logger.Error("Failed to upgrade WebSocket connection",
			slog.String("run_id", id),
			slog.String("error", err.Error()),
		)
		return
	}

	if finished {
		h.Hub.Unsubscribe(id, logs)
		ws.WriteMessage(websocket.CloseMessage, websocket.FormatCloseMessage(websocket.CloseNormalClosure, "Run already finished"))
		ws.Close()
		return
	}

	go h.readPump(ws, id)
	h.writePump(ws, logs, id)
	h.Hub.Unsubscribe(id, logs)
}

// ==============================================================================
// 3. Pumps
// ==============================================================================

func (h *WebSocketHandler) writePump(ws *websocket.Conn, logs <-chan telemetry.LogLine, runID string) {
	defer func() {
		ws.Close()
		h.Logger.Debug("WebSocket write pump closed", slog.String("run_id", runID))
	}()

	ticker := time.NewTicker(pingPeriod)
	defer ticker.Stop()

	for {
		select {
		case line, ok := <-logs:
			ws.SetWriteDeadline(time.Now().Add(writeWait))
			if !ok {
				// The hub closes run listeners once the run is over.
				ws.WriteMessage(websocket.CloseMessage, websocket.FormatCloseMessage(websocket.CloseNormalClosure, "Run completed"))
				return
			}
			if err := ws.WriteJSON(line); err != nil {
				h.Logger.Warn("Failed to write JSON to WebSocket",
					slog.String("run_id", runID),
					slog.String("error", err.Error()),
				)
				return
			}

		case <-ticker.C:
			ws.SetWriteDeadline(time.Now().Add(writeWait))
			if err := ws.WriteMessage(websocket.PingMessage, nil); err != nil {
				return
			}
		}
	}
}

func (h *WebSocketHandler) readPump(ws *websocket.Conn, runID string) {
	defer ws.Close()

	ws.SetReadLimit(maxMessageSize)
	ws.SetReadDeadline(time.Now().Add(pongWait))
	ws.SetPongHandler(func(string) error {
		ws.SetReadDeadline(time.Now().Add(pongWait))
		return nil
	})

	for {
		if _, _, err := ws.ReadMessage(); err != nil {
			if websocket.IsUnexpectedCloseError(err, websocket.CloseGoingAway, websocket.CloseAbnormalClosure) {
				h.Logger.Warn("WebSocket closed unexpectedly",
					slog.String("run_id", runID),
					slog.String("error", err.Error()),
				)
			}
			return
		}
	}
}
