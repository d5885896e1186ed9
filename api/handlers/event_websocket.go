package handlers

import (
	"net/http"
	"strings"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/gorilla/websocket"
	"go.uber.org/zap"

	"github.com/yourusername/freesound-sampler-go/internal/domain"
	"github.com/yourusername/freesound-sampler-go/internal/events"
)

const (
	writeWait    = 10 * time.Second
	pingInterval = 30 * time.Second
	streamBuffer = 64
)

// MessageKindSnapshot is sent once when a client connects and a batch exists
const MessageKindSnapshot = "snapshot"

var upgrader = websocket.Upgrader{
	CheckOrigin: func(r *http.Request) bool {
		return true // local tool, any origin
	},
}

// SnapshotMessage carries the current batch to a freshly connected client
type SnapshotMessage struct {
	Kind     string               `json:"kind"`
	BatchID  string               `json:"batch_id"`
	Snapshot domain.BatchSnapshot `json:"snapshot"`
}

// EventWebSocketHandler streams fabric events to WebSocket clients
type EventWebSocketHandler struct {
	fabric  *events.Fabric
	batches BatchController
	logger  *zap.Logger
}

// NewEventWebSocketHandler creates a new WebSocket handler
func NewEventWebSocketHandler(fabric *events.Fabric, batches BatchController, log *zap.Logger) *EventWebSocketHandler {
	if log == nil {
		log = zap.NewNop()
	}
	return &EventWebSocketHandler{
		fabric:  fabric,
		batches: batches,
		logger:  log,
	}
}

// parseKinds reads ?kinds=batch_started,batch_completed
func parseKinds(raw string) []domain.EventKind {
	var kinds []domain.EventKind
	for _, k := range strings.Split(raw, ",") {
		if k = strings.TrimSpace(k); k != "" {
			kinds = append(kinds, domain.EventKind(k))
		}
	}
	return kinds
}

// HandleWebSocket handles GET /api/v1/events
func (h *EventWebSocketHandler) HandleWebSocket(c *gin.Context) {
	conn, err := upgrader.Upgrade(c.Writer, c.Request, nil)
	if err != nil {
		h.logger.Error("Failed to upgrade WebSocket", zap.Error(err))
		return
	}
	defer conn.Close()

	// Subscribe before reading the snapshot so no event falls in between
	listener := events.NewChannelListener(streamBuffer)
	var opts []events.Option
	if kinds := parseKinds(c.Query("kinds")); len(kinds) > 0 {
		opts = append(opts, events.WithFilter(kinds...))
	}
	sub := h.fabric.Subscribe(listener, opts...)
	defer func() {
		done := sub.Unsubscribe()
		// release a delivery blocked on the channel
		for {
			select {
			case <-listener.C:
			case <-done:
				return
			}
		}
	}()

	h.logger.Info("Event stream client connected", zap.String("remote_addr", c.Request.RemoteAddr))

	if snap, err := h.batches.Snapshot(); err == nil {
		msg := SnapshotMessage{Kind: MessageKindSnapshot, BatchID: snap.ID, Snapshot: snap}
		if err := h.write(conn, msg); err != nil {
			return
		}
	}

	// Read messages from client so close frames and pongs are processed
	closed := make(chan struct{})
	go func() {
		defer close(closed)
		for {
			if _, _, err := conn.ReadMessage(); err != nil {
				return
			}
		}
	}()

	ticker := time.NewTicker(pingInterval)
	defer ticker.Stop()

	for {
		select {
		case event := <-listener.C:
			if err := h.write(conn, domain.Envelope(event)); err != nil {
				h.logger.Debug("Failed to send event", zap.Error(err))
				return
			}

		case <-ticker.C:
			conn.SetWriteDeadline(time.Now().Add(writeWait))
			if err := conn.WriteMessage(websocket.PingMessage, nil); err != nil {
				return
			}

		case <-sub.Done():
			// fabric closed on shutdown; every delivery is already buffered
			for drained := false; !drained; {
				select {
				case event := <-listener.C:
					if err := h.write(conn, domain.Envelope(event)); err != nil {
						return
					}
				default:
					drained = true
				}
			}
			conn.SetWriteDeadline(time.Now().Add(writeWait))
			conn.WriteMessage(websocket.CloseMessage,
				websocket.FormatCloseMessage(websocket.CloseGoingAway, "server shutting down"))
			return

		case <-closed:
			h.logger.Info("Event stream client disconnected", zap.String("remote_addr", c.Request.RemoteAddr))
			return
		}
	}
}

func (h *EventWebSocketHandler) write(conn *websocket.Conn, v interface{}) error {
	conn.SetWriteDeadline(time.Now().Add(writeWait))
	return conn.WriteJSON(v)
}
