// server/internal/socket/hub_test.go
package socket

import (
	"net/http"
	"net/http/httptest"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/gorilla/websocket"
	"github.com/sirupsen/logrus"
	"github.com/stretchr/testify/require"
)

func testLogger() *logrus.Logger {
	log := logrus.New()
	log.SetLevel(logrus.PanicLevel)
	return log
}

// dialTestClient upgrades a real connection pair and registers the
// server side in the hub.
func dialTestClient(t *testing.T, hub *Hub, connID string) *websocket.Conn {
	t.Helper()
	upgrader := websocket.Upgrader{}
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		conn, err := upgrader.Upgrade(w, r, nil)
		require.NoError(t, err)
		hub.Register(connID, conn)
	}))
	t.Cleanup(server.Close)

	url := "ws" + strings.TrimPrefix(server.URL, "http")
	client, _, err := websocket.DefaultDialer.Dial(url, nil)
	require.NoError(t, err)
	t.Cleanup(func() { client.Close() })
	return client
}

func TestBroadcastReachesEveryClient(t *testing.T) {
	hub := NewHub(testLogger())
	client := dialTestClient(t, hub, "c1")

	hub.Broadcast([]byte(`{"type":"intake"}`))

	client.SetReadDeadline(time.Now().Add(time.Second))
	_, message, err := client.ReadMessage()
	require.NoError(t, err)
	require.JSONEq(t, `{"type":"intake"}`, string(message))
}

func TestConcurrentBroadcastsAreSerialized(t *testing.T) {
	hub := NewHub(testLogger())
	client := dialTestClient(t, hub, "c1")

	const senders, perSender = 8, 50
	var wg sync.WaitGroup
	for i := 0; i < senders; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			for j := 0; j < perSender; j++ {
				hub.Broadcast([]byte("event"))
			}
		}()
	}
	wg.Wait()

	// Every frame arrives intact.
	client.SetReadDeadline(time.Now().Add(5 * time.Second))
	for i := 0; i < senders*perSender; i++ {
		_, message, err := client.ReadMessage()
		require.NoError(t, err)
		require.Equal(t, "event", string(message))
	}
}

func TestUnregisterStopsDelivery(t *testing.T) {
	hub := NewHub(testLogger())
	client := dialTestClient(t, hub, "c1")

	hub.Unregister("c1")
	hub.Broadcast([]byte("event"))

	client.SetReadDeadline(time.Now().Add(100 * time.Millisecond))
	_, _, err := client.ReadMessage()
	require.Error(t, err)
}
