package tui

import (
	"context"
	"encoding/json"
	"fmt"
	"net/url"
	"strings"

	"github.com/gorilla/websocket"

	"github.com/yourusername/freesound-sampler-go/internal/domain"
)

// KindSnapshot is the kind of the first frame sent to a new client
const KindSnapshot = "snapshot"

// StreamMessage is one frame of the server's event stream. Events carry a
// Payload; the initial frame carries a Snapshot instead.
type StreamMessage struct {
	Kind     string                `json:"kind"`
	BatchID  string                `json:"batch_id"`
	Payload  json.RawMessage       `json:"payload,omitempty"`
	Snapshot *domain.BatchSnapshot `json:"snapshot,omitempty"`
}

// Stream is a client connection to /api/v1/events
type Stream struct {
	conn *websocket.Conn
}

// EventsURL converts a server base URL into the event stream endpoint
func EventsURL(serverURL string) (string, error) {
	u, err := url.Parse(strings.TrimRight(serverURL, "/"))
	if err != nil {
		return "", fmt.Errorf("invalid server url: %w", err)
	}
	switch u.Scheme {
	case "http", "":
		u.Scheme = "ws"
	case "https":
		u.Scheme = "wss"
	case "ws", "wss":
	default:
		return "", fmt.Errorf("unsupported scheme %q", u.Scheme)
	}
	u.Path += "/api/v1/events"
	return u.String(), nil
}

// Dial connects to the event stream of the server at serverURL
func Dial(ctx context.Context, serverURL string) (*Stream, error) {
	endpoint, err := EventsURL(serverURL)
	if err != nil {
		return nil, err
	}
	conn, _, err := websocket.DefaultDialer.DialContext(ctx, endpoint, nil)
	if err != nil {
		return nil, fmt.Errorf("failed to connect to event stream: %w", err)
	}
	return &Stream{conn: conn}, nil
}

// Next blocks until the next frame arrives
func (s *Stream) Next() (StreamMessage, error) {
	var msg StreamMessage
	err := s.conn.ReadJSON(&msg)
	return msg, err
}

// Close closes the connection
func (s *Stream) Close() error {
	s.conn.WriteMessage(websocket.CloseMessage,
		websocket.FormatCloseMessage(websocket.CloseNormalClosure, ""))
	return s.conn.Close()
}
