package handlers

import (
	"context"
	"encoding/json"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/gorilla/websocket"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/yourusername/freesound-sampler-go/internal/domain"
	"github.com/yourusername/freesound-sampler-go/internal/events"
)

type idleBatches struct{}

func (idleBatches) CancelBatch(ctx context.Context) (domain.BatchSnapshot, error) {
	return domain.BatchSnapshot{}, domain.ErrNoActiveBatch
}

func (idleBatches) Snapshot() (domain.BatchSnapshot, error) {
	return domain.BatchSnapshot{}, domain.ErrNoActiveBatch
}

func TestEventWebSocket_FlushesBufferedEventsOnShutdown(t *testing.T) {
	gin.SetMode(gin.TestMode)
	fabric := events.NewFabric(nil)
	router := gin.New()
	router.GET("/events", NewEventWebSocketHandler(fabric, idleBatches{}, nil).HandleWebSocket)
	server := httptest.NewServer(router)
	defer server.Close()

	conn, _, err := websocket.DefaultDialer.Dial("ws"+strings.TrimPrefix(server.URL, "http")+"/events", nil)
	require.NoError(t, err)
	defer conn.Close()

	require.Eventually(t, func() bool { return fabric.Len() == 1 }, 2*time.Second, 5*time.Millisecond)

	const progressEvents = 20
	for i := 1; i <= progressEvents; i++ {
		fabric.Publish(domain.ProgressChanged{Progress: domain.Progress{BatchID: "b1", CompletedCount: i, TotalCount: progressEvents}})
	}
	fabric.Publish(domain.BatchCancelled{BatchID: "b1"})
	fabric.Close()

	var kinds []string
	conn.SetReadDeadline(time.Now().Add(5 * time.Second))
	for {
		_, data, err := conn.ReadMessage()
		if err != nil {
			assert.True(t, websocket.IsCloseError(err, websocket.CloseGoingAway), "unexpected error: %v", err)
			break
		}
		var msg struct {
			Kind string `json:"kind"`
		}
		require.NoError(t, json.Unmarshal(data, &msg))
		kinds = append(kinds, msg.Kind)
	}

	require.Len(t, kinds, progressEvents+1)
	assert.Equal(t, string(domain.EventBatchCancelled), kinds[len(kinds)-1])
}
