package push

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync"
	"testing"

	"github.com/gorilla/websocket"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestTopic(t *testing.T) {
	assert.Equal(t, "realtime:public:messages:conversation_id=eq.conv-1", Topic("conv-1"))
}

func TestDecodeFrameJoinReply(t *testing.T) {
	topic := Topic("conv-1")
	st, ev, ok := decodeFrame(frame{Topic: topic, Event: "phx_reply", Payload: json.RawMessage(`{"status":"ok"}`)}, topic)
	require.True(t, ok)
	assert.Equal(t, StatusSubscribed, st)
	assert.Nil(t, ev)
}

func TestDecodeFrameJoinRejected(t *testing.T) {
	topic := Topic("conv-1")
	st, _, ok := decodeFrame(frame{Topic: topic, Event: "phx_reply", Payload: json.RawMessage(`{"status":"error"}`)}, topic)
	require.True(t, ok)
	assert.Equal(t, StatusError, st)
}

func TestDecodeFrameInsert(t *testing.T) {
	topic := Topic("conv-1")
	payload := json.RawMessage(`{"new":{"id":"m9","conversation_id":"conv-1","direction":"inbound","content":"Hi","created_at":"2025-03-01T09:00:00Z"}}`)
	st, ev, ok := decodeFrame(frame{Topic: topic, Event: "INSERT", Payload: payload}, topic)
	require.True(t, ok)
	assert.Empty(t, st)
	require.NotNil(t, ev)
	assert.Equal(t, "m9", ev.New.ID)
	assert.Equal(t, "conv-1", ev.New.ConversationID)
}

func TestDecodeFrameInsertWithoutIDIgnored(t *testing.T) {
	topic := Topic("conv-1")
	_, ev, ok := decodeFrame(frame{Topic: topic, Event: "INSERT", Payload: json.RawMessage(`{"new":{}}`)}, topic)
	assert.False(t, ok)
	assert.Nil(t, ev)
}

func TestDecodeFrameOtherTopicIgnored(t *testing.T) {
	_, _, ok := decodeFrame(frame{Topic: Topic("other"), Event: "INSERT", Payload: json.RawMessage(`{"new":{"id":"m1"}}`)}, Topic("conv-1"))
	assert.False(t, ok)
}

func TestDecodeFrameErrorAndClose(t *testing.T) {
	topic := Topic("conv-1")

	st, _, ok := decodeFrame(frame{Topic: topic, Event: "phx_error"}, topic)
	require.True(t, ok)
	assert.Equal(t, StatusError, st)

	st, _, ok = decodeFrame(frame{Topic: topic, Event: "phx_close"}, topic)
	require.True(t, ok)
	assert.Equal(t, StatusDisconnected, st)
}

func TestDecodeFrameHeartbeatAckIgnored(t *testing.T) {
	_, _, ok := decodeFrame(frame{Topic: "phoenix", Event: "phx_reply", Payload: json.RawMessage(`{"status":"ok"}`)}, Topic("conv-1"))
	assert.False(t, ok)
}

// The connection tolerates a single writer only, so heartbeats and an
// Unsubscribe racing each other must serialize instead of panicking.
func TestSubscriptionWritesSerialize(t *testing.T) {
	upgrader := websocket.Upgrader{}
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		conn, err := upgrader.Upgrade(w, r, nil)
		if err != nil {
			return
		}
		defer conn.Close()
		for {
			if _, _, err := conn.ReadMessage(); err != nil {
				return
			}
		}
	}))
	defer srv.Close()

	client := NewRealtimeClient("ws"+strings.TrimPrefix(srv.URL, "http"), "", nil)
	sub, err := client.Subscribe(context.Background(), "conv-1")
	require.NoError(t, err)
	rt := sub.(*realtimeSubscription)

	var wg sync.WaitGroup
	for i := 0; i < 8; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			hb := frame{Topic: "phoenix", Event: heartbeatEvent, Payload: json.RawMessage(`{}`)}
			for j := 0; j < 50; j++ {
				// Errors are fine once Unsubscribe closes the socket.
				_ = rt.write(hb)
			}
		}()
	}
	wg.Add(1)
	go func() {
		defer wg.Done()
		sub.Unsubscribe()
	}()
	wg.Wait()
}
