package broadcast

import (
	"log/slog"
	"net/http"
	"sync"
	"time"

	"github.com/gorilla/websocket"
)

const (
	writeTimeout = 10 * time.Second
	pongTimeout  = 60 * time.Second
	pingInterval = 30 * time.Second
)

// wsObserver adapts a gorilla connection to the Observer interface. Writes
// are serialized; gorilla connections allow at most one concurrent writer.
type wsObserver struct {
	mu   sync.Mutex
	conn *websocket.Conn
}

func (o *wsObserver) Send(payload []byte) error {
	o.mu.Lock()
	defer o.mu.Unlock()

	err := o.conn.SetWriteDeadline(time.Now().Add(writeTimeout))
	if err != nil {
		return err
	}

	return o.conn.WriteMessage(websocket.TextMessage, payload)
}

func (o *wsObserver) ping() error {
	o.mu.Lock()
	defer o.mu.Unlock()

	return o.conn.WriteControl(websocket.PingMessage, nil, time.Now().Add(writeTimeout))
}

func (o *wsObserver) Close() error {
	return o.conn.Close()
}

// Handler upgrades HTTP requests to websocket connections and keeps them in
// the sheet's room until they disconnect. Register it with a route pattern
// that names a "sheet_id" path value.
type Handler struct {
	upgrader websocket.Upgrader
	rooms    *RoomManager
	logger   *slog.Logger
}

func NewHandler(rooms *RoomManager, logger *slog.Logger) *Handler {
	return &Handler{
		upgrader: websocket.Upgrader{
			ReadBufferSize:  1024,
			WriteBufferSize: 1024,
			CheckOrigin: func(_ *http.Request) bool {
				return true
			},
		},
		rooms:  rooms,
		logger: logger.With("module", "broadcast_handler"),
	}
}

func (h *Handler) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	sheetID := r.PathValue("sheet_id")
	if sheetID == "" {
		http.Error(w, "missing sheet id", http.StatusBadRequest)

		return
	}

	conn, err := h.upgrader.Upgrade(w, r, nil)
	if err != nil {
		h.logger.Warn("Websocket upgrade failed", "sheet_id", sheetID, "error", err)

		return
	}

	observer := &wsObserver{conn: conn}
	h.rooms.Join(sheetID, observer)

	h.logger.Info("Observer connected", "sheet_id", sheetID, "remote_addr", r.RemoteAddr)

	go h.pingLoop(sheetID, observer)
	h.readLoop(sheetID, observer)
}

// readLoop drains incoming frames until the connection errors. Clients only
// listen; anything they send is discarded, but the read pump is what notices
// a dropped connection.
func (h *Handler) readLoop(sheetID string, observer *wsObserver) {
	defer func() {
		h.rooms.Leave(sheetID, observer)
		_ = observer.Close()
		h.logger.Info("Observer disconnected", "sheet_id", sheetID)
	}()

	_ = observer.conn.SetReadDeadline(time.Now().Add(pongTimeout))
	observer.conn.SetPongHandler(func(string) error {
		return observer.conn.SetReadDeadline(time.Now().Add(pongTimeout))
	})

	for {
		_, _, err := observer.conn.ReadMessage()
		if err != nil {
			return
		}
	}
}

func (h *Handler) pingLoop(sheetID string, observer *wsObserver) {
	ticker := time.NewTicker(pingInterval)
	defer ticker.Stop()

	for range ticker.C {
		err := observer.ping()
		if err != nil {
			h.rooms.Leave(sheetID, observer)
			_ = observer.Close()

			return
		}
	}
}
