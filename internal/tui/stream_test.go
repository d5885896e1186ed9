package tui

import (
	"context"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/gorilla/websocket"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/yourusername/freesound-sampler-go/internal/domain"
)

func TestEventsURL(t *testing.T) {
	tests := []struct {
		in      string
		want    string
		wantErr bool
	}{
		{in: "http://localhost:8090", want: "ws://localhost:8090/api/v1/events"},
		{in: "https://sampler.example/", want: "wss://sampler.example/api/v1/events"},
		{in: "ws://10.0.0.2:9000", want: "ws://10.0.0.2:9000/api/v1/events"},
		{in: "ftp://host", wantErr: true},
	}

	for _, tt := range tests {
		t.Run(tt.in, func(t *testing.T) {
			got, err := EventsURL(tt.in)
			if tt.wantErr {
				assert.Error(t, err)
				return
			}
			require.NoError(t, err)
			assert.Equal(t, tt.want, got)
		})
	}
}

func TestStream_ReadsEnvelopes(t *testing.T) {
	upgrader := websocket.Upgrader{}
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/api/v1/events" {
			http.NotFound(w, r)
			return
		}
		conn, err := upgrader.Upgrade(w, r, nil)
		if err != nil {
			return
		}
		defer conn.Close()
		conn.WriteJSON(domain.Envelope(domain.BatchStarted{BatchID: "b1", Total: 16}))
		conn.ReadMessage() // wait for the client to close
	}))
	defer srv.Close()

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	stream, err := Dial(ctx, srv.URL)
	require.NoError(t, err)
	defer stream.Close()

	msg, err := stream.Next()
	require.NoError(t, err)
	assert.Equal(t, string(domain.EventBatchStarted), msg.Kind)
	assert.Equal(t, "b1", msg.BatchID)

	m := NewModel(stream, Options{}).Apply(msg)
	assert.Equal(t, 16, m.progress.TotalCount)
}
