package services

import (
	"context"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/gorilla/websocket"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func startHub(t *testing.T) (*ActivityHub, context.CancelFunc) {
	t.Helper()
	hub := NewActivityHub(nil)
	ctx, cancel := context.WithCancel(context.Background())
	go hub.Run(ctx)
	t.Cleanup(func() {
		cancel()
		<-hub.done
	})
	return hub, cancel
}

func newTestActivityClient(hub *ActivityHub, id, accountID string, buf int) *ActivityClient {
	return &ActivityClient{ID: id, AccountID: accountID, Send: make(chan ActivityMessage, buf), Hub: hub}
}

func TestActivityHub_ClientManagement(t *testing.T) {
	hub, _ := startHub(t)

	c1 := newTestActivityClient(hub, "c1", "", 4)
	c2 := newTestActivityClient(hub, "c2", "ig1", 4)
	require.True(t, hub.Register(c1))
	require.True(t, hub.Register(c2))
	assert.Eventually(t, func() bool { return hub.ClientCount() == 2 }, time.Second, 10*time.Millisecond)

	hub.Unregister(c1)
	assert.Eventually(t, func() bool { return hub.ClientCount() == 1 }, time.Second, 10*time.Millisecond)

	_, ok := <-c1.Send
	assert.False(t, ok, "send channel closed on unregister")
}

func TestActivityHub_FiltersByAccount(t *testing.T) {
	hub, _ := startHub(t)

	all := newTestActivityClient(hub, "all", "", 4)
	ig := newTestActivityClient(hub, "ig", "ig1", 4)
	fb := newTestActivityClient(hub, "fb", "fb1", 4)
	for _, c := range []*ActivityClient{all, ig, fb} {
		require.True(t, hub.Register(c))
	}

	hub.Publish(ActivityRuleTriggered, "ig1", map[string]string{"rule_id": "auto1"})

	for _, c := range []*ActivityClient{all, ig} {
		select {
		case msg := <-c.Send:
			assert.Equal(t, ActivityRuleTriggered, msg.Type)
			assert.Equal(t, "ig1", msg.AccountID)
			assert.False(t, msg.Timestamp.IsZero())
		case <-time.After(time.Second):
			t.Fatalf("client %s should have received the message", c.ID)
		}
	}

	select {
	case msg := <-fb.Send:
		t.Fatalf("fb client should not receive %+v", msg)
	case <-time.After(100 * time.Millisecond):
	}
}

func TestActivityHub_DropsSlowClient(t *testing.T) {
	hub, _ := startHub(t)

	slow := newTestActivityClient(hub, "slow", "", 1)
	require.True(t, hub.Register(slow))

	hub.Publish(ActivityRuleCreated, "", nil)
	hub.Publish(ActivityRuleUpdated, "", nil)

	assert.Eventually(t, func() bool { return hub.ClientCount() == 0 }, time.Second, 10*time.Millisecond)
}

func TestActivityHub_StopClosesClients(t *testing.T) {
	hub, cancel := startHub(t)

	c := newTestActivityClient(hub, "c", "", 1)
	require.True(t, hub.Register(c))
	cancel()
	<-hub.done

	_, ok := <-c.Send
	assert.False(t, ok)
	assert.False(t, hub.Register(newTestActivityClient(hub, "late", "", 1)))

	hub.Publish(ActivityRuleDeleted, "", nil)
	hub.Unregister(c)
}

func TestActivityHub_ServeWS(t *testing.T) {
	hub, _ := startHub(t)
	srv := httptest.NewServer(http.HandlerFunc(hub.ServeWS))
	defer srv.Close()

	url := "ws" + strings.TrimPrefix(srv.URL, "http") + "?account_id=fb1"
	conn, _, err := websocket.DefaultDialer.Dial(url, nil)
	require.NoError(t, err)
	defer conn.Close()

	require.Eventually(t, func() bool { return hub.ClientCount() == 1 }, time.Second, 10*time.Millisecond)
	hub.Publish(ActivityRuleSkipped, "ig1", nil)
	hub.Publish(ActivityRuleFailed, "fb1", map[string]string{"rule_id": "auto2"})

	var msg ActivityMessage
	require.NoError(t, conn.SetReadDeadline(time.Now().Add(2*time.Second)))
	require.NoError(t, conn.ReadJSON(&msg))
	assert.Equal(t, ActivityRuleFailed, msg.Type)
	assert.Equal(t, "fb1", msg.AccountID)
}
