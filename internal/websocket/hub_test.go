package websocket

import (
	"encoding/json"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/gorilla/websocket"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"statementcheck/internal/config"
	"statementcheck/internal/shared/testutil"
	"statementcheck/pkg/contracts/events"
)

// fakeConn records writes and serves reads from a channel.
type fakeConn struct {
	mu     sync.Mutex
	writes []fakeFrame
	reads  chan error
	closed bool
}

type fakeFrame struct {
	kind int
	data []byte
}

func newFakeConn() *fakeConn {
	return &fakeConn{reads: make(chan error, 1)}
}

func (f *fakeConn) WriteMessage(kind int, data []byte) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.closed {
		return errors.New("use of closed connection")
	}
	f.writes = append(f.writes, fakeFrame{kind: kind, data: append([]byte(nil), data...)})
	return nil
}

func (f *fakeConn) ReadMessage() (int, []byte, error) {
	err := <-f.reads
	return 0, nil, err
}

func (f *fakeConn) Close() error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.closed = true
	return nil
}

func (f *fakeConn) SetReadDeadline(time.Time) error   { return nil }
func (f *fakeConn) SetWriteDeadline(time.Time) error  { return nil }
func (f *fakeConn) SetReadLimit(int64)                {}
func (f *fakeConn) SetPongHandler(func(string) error) {}
func (f *fakeConn) RemoteAddr() string                { return "127.0.0.1:5555" }

func (f *fakeConn) frames() []fakeFrame {
	f.mu.Lock()
	defer f.mu.Unlock()
	return append([]fakeFrame(nil), f.writes...)
}

func newTestHub(t *testing.T) *Hub {
	t.Helper()
	logger, _ := testutil.NewTestLogger(t)
	hub := NewHub(logger, config.Default().WebSocket, nil)
	hub.Start()
	t.Cleanup(hub.Stop)
	return hub
}

func decode(t *testing.T, data []byte) events.WebSocketMessage {
	t.Helper()
	var msg events.WebSocketMessage
	require.NoError(t, json.Unmarshal(data, &msg))
	return msg
}

func receive(t *testing.T, c *Client) []byte {
	t.Helper()
	select {
	case data, ok := <-c.send:
		require.True(t, ok, "send channel closed")
		return data
	case <-time.After(time.Second):
		t.Fatal("no message received")
		return nil
	}
}

func TestHub_RegisterSendsConnectMessage(t *testing.T) {
	hub := newTestHub(t)
	client := NewClient(hub, newFakeConn(), "trace-1")

	hub.Register(client)

	msg := decode(t, receive(t, client))
	assert.Equal(t, events.MessageTypeConnect, msg.Type)
	assert.Equal(t, "trace-1", msg.TraceID)
	data := msg.Data.(map[string]interface{})
	assert.Equal(t, client.ID(), data["client_id"])
	assert.Equal(t, events.ProtocolVersion, data["protocol_version"])
	assert.Equal(t, 1, hub.ClientCount())
}

func TestHub_BroadcastReachesEveryClient(t *testing.T) {
	hub := newTestHub(t)
	a := NewClient(hub, newFakeConn(), "")
	b := NewClient(hub, newFakeConn(), "")
	hub.Register(a)
	hub.Register(b)
	receive(t, a)
	receive(t, b)

	hub.Broadcast(events.NewMessage(events.MessageTypeFileAnalyzed, "batch-trace", events.FileAnalyzed{
		BatchID:  "b1",
		Index:    0,
		Total:    2,
		FileName: "ReportHistory.xlsx",
	}))

	for _, c := range []*Client{a, b} {
		msg := decode(t, receive(t, c))
		assert.Equal(t, events.MessageTypeFileAnalyzed, msg.Type)
		assert.Equal(t, "ReportHistory.xlsx", msg.Data.(map[string]interface{})["file_name"])
	}
	assert.Eventually(t, func() bool { return hub.Stats()["messages_sent"] == 2 }, time.Second, 5*time.Millisecond)
}

func TestHub_UnregisterClosesSend(t *testing.T) {
	hub := newTestHub(t)
	client := NewClient(hub, newFakeConn(), "")
	hub.Register(client)
	receive(t, client)

	hub.Unregister(client)

	assert.Eventually(t, func() bool { return hub.ClientCount() == 0 }, time.Second, 5*time.Millisecond)
	_, ok := <-client.send
	assert.False(t, ok)

	// unknown clients are ignored
	hub.Unregister(client)
}

func TestHub_SlowClientIsDisconnected(t *testing.T) {
	logger, handler := testutil.NewTestLogger(t)
	cfg := config.Default().WebSocket
	cfg.SendBuffer = 1
	hub := NewHub(logger, cfg, nil)
	hub.Start()
	defer hub.Stop()

	client := NewClient(hub, newFakeConn(), "")
	hub.Register(client)
	// the connect message fills the single slot

	hub.Broadcast(events.NewMessage(events.MessageTypeBatchCompleted, "", events.BatchCompleted{BatchID: "b"}))

	assert.Eventually(t, func() bool { return hub.ClientCount() == 0 }, time.Second, 5*time.Millisecond)
	assert.True(t, handler.ContainsAttr("reason", "send buffer full"))
}

func TestHub_RegisterBeforeStart(t *testing.T) {
	hub := NewHub(nil, config.Default().WebSocket, nil)
	client := NewClient(hub, newFakeConn(), "")

	registered := make(chan bool, 1)
	go func() { registered <- hub.Register(client) }()

	select {
	case ok := <-registered:
		assert.False(t, ok)
	case <-time.After(time.Second):
		t.Fatal("Register blocked on a hub that was never started")
	}
	_, open := <-client.send
	assert.False(t, open)
	assert.Equal(t, 0, hub.ClientCount())

	done := make(chan struct{})
	go func() {
		hub.Unregister(client)
		close(done)
	}()
	select {
	case <-done:
	case <-time.After(time.Second):
		t.Fatal("Unregister blocked on a hub that was never started")
	}
}

func TestHub_StopIsIdempotent(t *testing.T) {
	hub := NewHub(nil, config.Default().WebSocket, nil)
	hub.Stop()

	hub.Start()
	hub.Start()
	client := NewClient(hub, newFakeConn(), "")
	hub.Register(client)
	receive(t, client)

	hub.Stop()
	hub.Stop()

	_, ok := <-client.send
	assert.False(t, ok)
	assert.Equal(t, 0, hub.ClientCount())

	// no panic and no block once stopped
	hub.Broadcast(events.NewMessage(events.MessageTypeError, "", events.ErrorPayload{Code: "x"}))
	assert.False(t, hub.Register(NewClient(hub, newFakeConn(), "")))
}

func TestClient_WritePump(t *testing.T) {
	hub := newTestHub(t)
	conn := newFakeConn()
	client := NewClient(hub, conn, "")
	hub.Register(client)

	done := make(chan struct{})
	go func() {
		client.WritePump()
		close(done)
	}()

	hub.Broadcast(events.NewMessage(events.MessageTypeBatchCompleted, "", events.BatchCompleted{BatchID: "b", Total: 1}))
	assert.Eventually(t, func() bool { return len(conn.frames()) == 2 }, time.Second, 5*time.Millisecond)

	hub.Unregister(client)
	<-done

	frames := conn.frames()
	require.Len(t, frames, 3)
	assert.Equal(t, events.MessageTypeConnect, decode(t, frames[0].data).Type)
	assert.Equal(t, events.MessageTypeBatchCompleted, decode(t, frames[1].data).Type)
	assert.Equal(t, websocket.CloseMessage, frames[2].kind)
}

func TestClient_ReadPumpUnregistersOnError(t *testing.T) {
	hub := newTestHub(t)
	conn := newFakeConn()
	client := NewClient(hub, conn, "")
	hub.Register(client)
	receive(t, client)

	done := make(chan struct{})
	go func() {
		client.ReadPump()
		close(done)
	}()
	conn.reads <- &websocket.CloseError{Code: websocket.CloseGoingAway}
	<-done

	assert.Eventually(t, func() bool { return hub.ClientCount() == 0 }, time.Second, 5*time.Millisecond)
	conn.mu.Lock()
	assert.True(t, conn.closed)
	conn.mu.Unlock()
}

func TestOptionsFrom(t *testing.T) {
	opts := OptionsFrom(config.WebSocketConfig{PingPeriod: time.Second})

	def := config.Default().WebSocket
	assert.Equal(t, time.Second, opts.PingPeriod)
	assert.Equal(t, def.PongWait, opts.PongWait)
	assert.Equal(t, def.WriteWait, opts.WriteWait)
	assert.Equal(t, def.MaxMessageSize, opts.MaxMessageSize)
	assert.Equal(t, def.SendBuffer, opts.SendBuffer)
}
