package handlers

import (
	"net/http"
	"time"

	"github.com/gorilla/websocket"

	"github.com/openquant/screener/internal/refresh"
)

var upgrader = websocket.Upgrader{
	ReadBufferSize:  1024,
	WriteBufferSize: 1024,
	// The UI is served from a different origin in development.
	CheckOrigin: func(r *http.Request) bool { return true },
}

// statusPollInterval is how often the stream re-reads the job record.
const statusPollInterval = 500 * time.Millisecond

// StatusStream pushes job snapshots over a websocket while a refresh
// runs, so clients can show live progress without polling.
// GET /api/refresh/ws
func (h *RefreshHandler) StatusStream(w http.ResponseWriter, r *http.Request) {
	conn, err := upgrader.Upgrade(w, r, nil)
	if err != nil {
		h.logger.WithError(err).Warn("websocket upgrade failed")
		return
	}
	defer conn.Close()

	// Consume control frames so pings and close messages are handled.
	go func() {
		for {
			if _, _, err := conn.ReadMessage(); err != nil {
				return
			}
		}
	}()

	var last refresh.Snapshot
	ticker := time.NewTicker(statusPollInterval)
	defer ticker.Stop()

	for {
		select {
		case <-r.Context().Done():
			return
		case <-ticker.C:
		}

		snap := h.orchestrator.Status()
		if snapshotsEqual(snap, last) {
			continue
		}
		last = snap

		conn.SetWriteDeadline(time.Now().Add(5 * time.Second))
		if err := conn.WriteJSON(snap); err != nil {
			return
		}

		// One final frame after reaching a terminal state, then close.
		if snap.State.Terminal() {
			conn.WriteMessage(websocket.CloseMessage,
				websocket.FormatCloseMessage(websocket.CloseNormalClosure, string(snap.State)))
			return
		}
	}
}

func snapshotsEqual(a, b refresh.Snapshot) bool {
	return a.State == b.State &&
		a.Progress.Fetched == b.Progress.Fetched &&
		a.Progress.Processed == b.Progress.Processed &&
		len(a.Progress.Skipped) == len(b.Progress.Skipped) &&
		a.Progress.Message == b.Progress.Message
}
