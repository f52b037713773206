package status

import (
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/gorilla/websocket"
	"github.com/para-dev/para/internal/common/logger"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestHub_PublishDeliversToSubscriber(t *testing.T) {
	hub := NewHub(logger.Default())
	stop := make(chan struct{})
	go hub.Run(stop)
	defer close(stop)

	srv := httptest.NewServer(hub)
	defer srv.Close()

	url := "ws" + strings.TrimPrefix(srv.URL, "http") + "?session=my-session"
	conn, _, err := websocket.DefaultDialer.Dial(url, nil)
	require.NoError(t, err)
	defer conn.Close()

	// Give the hub a moment to process the registration before publishing.
	time.Sleep(20 * time.Millisecond)

	hub.Publish("my-session", &Document{Task: "writing tests", Blocked: false})

	require.NoError(t, conn.SetReadDeadline(time.Now().Add(2*time.Second)))
	_, data, err := conn.ReadMessage()
	require.NoError(t, err)
	assert.Contains(t, string(data), "writing tests")
}

func TestHub_PublishIgnoresOtherSessions(t *testing.T) {
	hub := NewHub(logger.Default())
	stop := make(chan struct{})
	go hub.Run(stop)
	defer close(stop)

	srv := httptest.NewServer(hub)
	defer srv.Close()

	url := "ws" + strings.TrimPrefix(srv.URL, "http") + "?session=session-a"
	conn, _, err := websocket.DefaultDialer.Dial(url, nil)
	require.NoError(t, err)
	defer conn.Close()

	time.Sleep(20 * time.Millisecond)
	hub.Publish("session-b", &Document{Task: "unrelated"})

	require.NoError(t, conn.SetReadDeadline(time.Now().Add(200*time.Millisecond)))
	_, _, err = conn.ReadMessage()
	assert.Error(t, err) // expect a deadline timeout, not a delivered message
}
