package controllers

import (
	"context"
	"fmt"
	"net/http"
	"net/http/httptest"
	"path/filepath"
	"roverchat/internal/models"
	"roverchat/internal/poll"
	pollIfaces "roverchat/internal/poll/interfaces"
	"roverchat/internal/realtime"
	"roverchat/internal/services"
	"roverchat/internal/storage"
	"roverchat/internal/structures"
	"roverchat/internal/testutil"
	"strings"
	"testing"
	"time"

	json "github.com/goccy/go-json"
	"github.com/gorilla/websocket"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type socketFixture struct {
	server   *httptest.Server
	store    *storage.Store
	registry *realtime.Registry
	engine   pollIfaces.EngineInterface
}

func socketConfig() *structures.Config {
	return &structures.Config{
		Chat: structures.ChatConfig{ReplayWindow: time.Hour},
		Poll: structures.PollConfig{Duration: time.Minute, Idle: time.Minute, TallyColumn: "rover"},
		Socket: structures.SocketConfig{
			SendBuffer:     64,
			WriteTimeout:   time.Second,
			PingInterval:   time.Second,
			RecoveryWindow: time.Minute,
			RecoveryBuffer: 64,
		},
	}
}

func newSocketFixture(t *testing.T) *socketFixture {
	t.Helper()
	conf := socketConfig()
	logger := &testutil.MockLogger{}
	metrics := testutil.NewMockMetrics()

	store, err := storage.Open("sqlite", filepath.Join(t.TempDir(), "chat.db"))
	require.NoError(t, err)

	registry := realtime.NewRegistry(conf, logger, metrics)
	dispatcher := services.NewDispatcher(store, registry, logger)
	chat := services.NewChatService(dispatcher, testutil.NewMockCache(), metrics, logger)
	replay := services.NewReplayService(conf, store, metrics, logger)
	engine := poll.NewEngine(conf, store, dispatcher, poll.NewArchive(conf, &testutil.MockCompressor{}, logger), metrics, logger)

	sc := NewSocketController(conf, registry, replay, chat, engine, logger)
	server := httptest.NewServer(http.HandlerFunc(sc.Serve))

	t.Cleanup(func() {
		registry.Close()
		server.Close()
		_ = store.Close()
	})
	return &socketFixture{server: server, store: store, registry: registry, engine: engine}
}

func (f *socketFixture) dial(t *testing.T, query string) *websocket.Conn {
	t.Helper()
	url := "ws" + strings.TrimPrefix(f.server.URL, "http") + "/socket" + query
	conn, _, err := websocket.DefaultDialer.Dial(url, nil)
	require.NoError(t, err)
	t.Cleanup(func() { _ = conn.Close() })
	return conn
}

func read(t *testing.T, conn *websocket.Conn) realtime.Envelope {
	t.Helper()
	require.NoError(t, conn.SetReadDeadline(time.Now().Add(3*time.Second)))
	_, raw, err := conn.ReadMessage()
	require.NoError(t, err)
	env, err := realtime.DecodeEnvelope(raw)
	require.NoError(t, err)
	return env
}

// readUntil reads frames until match returns true and returns the frames read.
func readUntil(t *testing.T, conn *websocket.Conn, match func(realtime.Envelope) bool) []realtime.Envelope {
	t.Helper()
	var seen []realtime.Envelope
	for i := 0; i < 50; i++ {
		env := read(t, conn)
		seen = append(seen, env)
		if match(env) {
			return seen
		}
	}
	t.Fatalf("no matching frame in %d frames", len(seen))
	return nil
}

func isAck(id uint64) func(realtime.Envelope) bool {
	return func(env realtime.Envelope) bool { return env.Event == realtime.EventAck && env.AckID == id }
}

func send(t *testing.T, conn *websocket.Conn, event string, ackID uint64, data interface{}) {
	t.Helper()
	raw, err := json.Marshal(data)
	require.NoError(t, err)
	frame, err := json.Marshal(realtime.Envelope{Event: event, AckID: ackID, Data: raw})
	require.NoError(t, err)
	require.NoError(t, conn.WriteMessage(websocket.TextMessage, frame))
}

func decodeAck(t *testing.T, env realtime.Envelope) models.Ack {
	t.Helper()
	var ack models.Ack
	require.NoError(t, json.Unmarshal(env.Data, &ack))
	return ack
}

type chatData struct {
	Username     string `json:"username"`
	Content      string `json:"content"`
	ServerOffset int64  `json:"serverOffset"`
}

func chatMessages(t *testing.T, frames []realtime.Envelope) []chatData {
	t.Helper()
	var out []chatData
	for _, env := range frames {
		if env.Event != realtime.EventChatMessage {
			continue
		}
		var d chatData
		require.NoError(t, json.Unmarshal(env.Data, &d))
		out = append(out, d)
	}
	return out
}

func sessionInfo(t *testing.T, env realtime.Envelope) (string, bool) {
	t.Helper()
	require.Equal(t, realtime.EventSession, env.Event)
	var d struct {
		SessionID string `json:"sessionId"`
		Recovered bool   `json:"recovered"`
	}
	require.NoError(t, json.Unmarshal(env.Data, &d))
	return d.SessionID, d.Recovered
}

func TestSocket_FirstFrameIsSession(t *testing.T) {
	f := newSocketFixture(t)
	conn := f.dial(t, "")

	id, recovered := sessionInfo(t, read(t, conn))
	assert.NotEmpty(t, id)
	assert.False(t, recovered)
}

func TestSocket_ChatMessageAckedAndBroadcast(t *testing.T) {
	f := newSocketFixture(t)
	alice := f.dial(t, "")
	bob := f.dial(t, "")
	read(t, alice)
	read(t, bob)

	send(t, alice, realtime.EventChatMessage, 1, models.ChatInput{Username: "alice", Content: "hello", ClientOffset: "a-1"})

	frames := readUntil(t, alice, isAck(1))
	assert.True(t, decodeAck(t, frames[len(frames)-1]).Success)

	got := chatMessages(t, readUntil(t, bob, func(env realtime.Envelope) bool { return env.Event == realtime.EventChatMessage }))
	assert.Equal(t, []chatData{{Username: "alice", Content: "hello", ServerOffset: 1}}, got)
}

func TestSocket_IncompleteMessage(t *testing.T) {
	f := newSocketFixture(t)
	conn := f.dial(t, "")
	read(t, conn)

	send(t, conn, realtime.EventChatMessage, 2, models.ChatInput{Username: "alice", ClientOffset: "a-1"})

	frames := readUntil(t, conn, isAck(2))
	assert.Equal(t, models.AckError("Incomplete message"), decodeAck(t, frames[len(frames)-1]))
}

func TestSocket_DuplicateMessageStoredOnce(t *testing.T) {
	f := newSocketFixture(t)
	conn := f.dial(t, "")
	read(t, conn)

	msg := models.ChatInput{Username: "alice", Content: "hi", ClientOffset: "c1"}
	send(t, conn, realtime.EventChatMessage, 1, msg)
	first := readUntil(t, conn, isAck(1))
	send(t, conn, realtime.EventChatMessage, 2, msg)
	second := readUntil(t, conn, isAck(2))

	assert.True(t, decodeAck(t, first[len(first)-1]).Success)
	assert.True(t, decodeAck(t, second[len(second)-1]).Success)

	msgs, err := f.store.ReadSince(context.Background(), 0, time.Time{})
	require.NoError(t, err)
	assert.Len(t, msgs, 1)
	assert.Len(t, chatMessages(t, append(first, second...)), 1)
}

func TestSocket_ReplaysFromServerOffset(t *testing.T) {
	f := newSocketFixture(t)
	for i := 1; i <= 3; i++ {
		_, err := f.store.AppendMessage(context.Background(), "alice", fmt.Sprintf("m%d", i), fmt.Sprintf("c%d", i), time.Now())
		require.NoError(t, err)
	}

	conn := f.dial(t, "?serverOffset=1")
	read(t, conn)

	frames := readUntil(t, conn, func(env realtime.Envelope) bool {
		msgs := chatMessages(t, []realtime.Envelope{env})
		return len(msgs) == 1 && msgs[0].ServerOffset == 3
	})
	got := chatMessages(t, frames)
	require.Len(t, got, 2)
	assert.Equal(t, int64(2), got[0].ServerOffset)
	assert.Equal(t, "m3", got[1].Content)
}

func TestSocket_VoteFlow(t *testing.T) {
	f := newSocketFixture(t)
	require.NoError(t, f.engine.Open(context.Background()))

	conn := f.dial(t, "")
	read(t, conn)
	assert.Equal(t, realtime.EventPollOpen, read(t, conn).Event)

	vote := models.VoteInput{UserID: "u1", DayValue: "1000", RoverValue: "curiosity", CameraValue: "NAVCAM"}
	send(t, conn, realtime.EventUserVote, 1, vote)
	first := readUntil(t, conn, isAck(1))
	assert.Equal(t, models.AckOK(), decodeAck(t, first[len(first)-1]))

	vote.RoverValue = "opportunity"
	send(t, conn, realtime.EventUserVote, 2, vote)
	second := readUntil(t, conn, isAck(2))
	assert.Equal(t, models.AckError("User has already voted"), decodeAck(t, second[len(second)-1]))

	result, err := f.engine.Close(context.Background())
	require.NoError(t, err)
	assert.Equal(t, "curiosity", result.Winner.Value)
	readUntil(t, conn, func(env realtime.Envelope) bool { return env.Event == realtime.EventPollClosed })
}

func TestSocket_IgnoredVoteGetsNoAck(t *testing.T) {
	f := newSocketFixture(t)
	conn := f.dial(t, "")
	read(t, conn)

	// no session open: dropped without an ack
	send(t, conn, realtime.EventUserVote, 1, models.VoteInput{UserID: "u1", DayValue: "1", RoverValue: "spirit", CameraValue: "PANCAM"})
	send(t, conn, realtime.EventChatMessage, 2, models.ChatInput{Username: "alice", Content: "still here", ClientOffset: "a-2"})

	frames := readUntil(t, conn, isAck(2))
	for _, env := range frames {
		assert.NotEqual(t, uint64(1), env.AckID)
	}
}

func TestSocket_RecoverSkipsReplayAndDeliversMissed(t *testing.T) {
	f := newSocketFixture(t)
	first := f.dial(t, "")
	id, _ := sessionInfo(t, read(t, first))
	require.Eventually(t, func() bool { return f.registry.Count() == 1 }, 2*time.Second, 10*time.Millisecond)
	require.NoError(t, first.Close())
	require.Eventually(t, func() bool { return f.registry.Count() == 0 }, 2*time.Second, 10*time.Millisecond)

	other := f.dial(t, "")
	read(t, other)
	send(t, other, realtime.EventChatMessage, 1, models.ChatInput{Username: "bob", Content: "while away", ClientOffset: "b-1"})
	readUntil(t, other, isAck(1))

	back := f.dial(t, "?recover="+id)
	gotID, recovered := sessionInfo(t, read(t, back))
	assert.Equal(t, id, gotID)
	assert.True(t, recovered)

	msgs := chatMessages(t, readUntil(t, back, func(env realtime.Envelope) bool { return env.Event == realtime.EventChatMessage }))
	assert.Equal(t, "while away", msgs[0].Content)
}

func TestHandshakeOffset(t *testing.T) {
	tests := []struct {
		query    string
		expected int64
	}{
		{"", 0},
		{"?serverOffset=12", 12},
		{"?serverOffset=-4", 0},
		{"?serverOffset=abc", 0},
	}
	for _, tt := range tests {
		req := httptest.NewRequest("GET", "/socket"+tt.query, nil)
		assert.Equal(t, tt.expected, handshakeOffset(req), tt.query)
	}
}
