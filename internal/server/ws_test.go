package server

import (
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/gorilla/websocket"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/Shivay00001/RemotePilot/pkg/types"
)

type wireEvent struct {
	TaskID string          `json:"task_id"`
	Type   string          `json:"type"`
	Data   json.RawMessage `json:"data"`
}

func TestServer_LogStream(t *testing.T) {
	f := newTestServer(t)
	ts := httptest.NewServer(f.srv.Router())
	defer ts.Close()

	wsURL := "ws" + strings.TrimPrefix(ts.URL, "http") + "/ws/logs"
	conn, _, err := websocket.DefaultDialer.Dial(wsURL, nil)
	require.NoError(t, err)
	defer conn.Close()

	// Give the stream handler a beat to attach its subscriber before
	// the task starts emitting.
	time.Sleep(50 * time.Millisecond)

	resp, err := http.Post(ts.URL+"/task/submit", "application/json", strings.NewReader(`{"goal": "stream me"}`))
	require.NoError(t, err)
	defer resp.Body.Close()
	require.Equal(t, http.StatusOK, resp.StatusCode)

	var submitted struct {
		TaskID string `json:"task_id"`
	}
	require.NoError(t, json.NewDecoder(resp.Body).Decode(&submitted))

	var events []wireEvent
	sawLog := false
	for {
		require.NoError(t, conn.SetReadDeadline(time.Now().Add(5*time.Second)))

		var ev wireEvent
		require.NoError(t, conn.ReadJSON(&ev), "stream ended after %d events", len(events))
		events = append(events, ev)
		assert.Equal(t, submitted.TaskID, ev.TaskID)

		if ev.Type == string(types.EventLog) {
			sawLog = true
			continue
		}

		var state struct {
			Status types.TaskStatus `json:"status"`
		}
		require.NoError(t, json.Unmarshal(ev.Data, &state))
		if state.Status.Terminal() {
			assert.Equal(t, types.StatusDone, state.Status)
			break
		}
	}

	assert.True(t, sawLog, "expected at least one log frame on the stream")
	assert.GreaterOrEqual(t, len(events), 2)
}

func TestServer_LogStream_ClientDisconnect(t *testing.T) {
	f := newTestServer(t)
	ts := httptest.NewServer(f.srv.Router())
	defer ts.Close()

	wsURL := "ws" + strings.TrimPrefix(ts.URL, "http") + "/ws/logs"
	conn, _, err := websocket.DefaultDialer.Dial(wsURL, nil)
	require.NoError(t, err)

	// Closing the client side must not disturb later task processing.
	require.NoError(t, conn.Close())
	time.Sleep(50 * time.Millisecond)

	id := f.eng.Submit("after disconnect")
	require.Eventually(t, func() bool {
		snap, err := f.eng.Get(id)
		return err == nil && snap.Status == types.StatusDone
	}, 3*time.Second, 10*time.Millisecond)
}
