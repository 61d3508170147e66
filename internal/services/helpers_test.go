package services

import (
	"path/filepath"
	"roverchat/internal/realtime"
	"roverchat/internal/storage"
	"roverchat/internal/structures"
	"roverchat/internal/testutil"
	"testing"
	"time"

	"github.com/goccy/go-json"
	"github.com/stretchr/testify/require"
)

func testConfig() *structures.Config {
	return &structures.Config{
		Chat: structures.ChatConfig{ReplayWindow: 24 * time.Hour},
		Socket: structures.SocketConfig{
			SendBuffer:     256,
			WriteTimeout:   time.Second,
			PingInterval:   time.Second,
			RecoveryBuffer: 256,
		},
	}
}

func openStore(t *testing.T) *storage.Store {
	t.Helper()
	store, err := storage.Open("sqlite", filepath.Join(t.TempDir(), "chat.db"))
	require.NoError(t, err)
	t.Cleanup(func() { _ = store.Close() })
	return store
}

func newRegistry() *realtime.Registry {
	return realtime.NewRegistry(testConfig(), &testutil.MockLogger{}, testutil.NewMockMetrics())
}

type chatPayload struct {
	Username     string `json:"username"`
	Content      string `json:"content"`
	ServerOffset int64  `json:"serverOffset"`
}

// drainChat decodes the chat message frames queued for s.
func drainChat(t *testing.T, s *realtime.Session) []chatPayload {
	t.Helper()
	var out []chatPayload
	for _, f := range s.Drain() {
		env, err := realtime.DecodeEnvelope(f.Payload)
		require.NoError(t, err)
		if env.Event != realtime.EventChatMessage {
			continue
		}
		var p chatPayload
		require.NoError(t, json.Unmarshal(env.Data, &p))
		out = append(out, p)
	}
	return out
}

func serverOffsets(msgs []chatPayload) []int64 {
	out := make([]int64, 0, len(msgs))
	for _, m := range msgs {
		out = append(out, m.ServerOffset)
	}
	return out
}

// drainEvents returns the event names queued for s.
func drainEvents(t *testing.T, s *realtime.Session) []string {
	t.Helper()
	var out []string
	for _, f := range s.Drain() {
		env, err := realtime.DecodeEnvelope(f.Payload)
		require.NoError(t, err)
		out = append(out, env.Event)
	}
	return out
}

func newRegistryWith(conf *structures.Config) *realtime.Registry {
	return realtime.NewRegistry(conf, &testutil.MockLogger{}, testutil.NewMockMetrics())
}
