package poll

import (
	"path/filepath"
	"roverchat/internal/storage"
	"roverchat/internal/structures"
	"roverchat/internal/testutil"
	"testing"
	"time"

	"github.com/stretchr/testify/require"
)

func testConfig() *structures.Config {
	return &structures.Config{
		Poll: structures.PollConfig{
			Duration:    30 * time.Second,
			Idle:        30 * time.Second,
			TallyColumn: "rover",
			HistorySize: 3,
		},
	}
}

type fixture struct {
	engine     *Engine
	eventLog   *testutil.MockEventLog
	dispatcher *testutil.MockDispatcher
	metrics    *testutil.MockMetrics
	logger     *testutil.MockLogger
	clock      *time.Time
}

func newFixture(t *testing.T, conf *structures.Config) *fixture {
	t.Helper()
	f := &fixture{
		eventLog:   &testutil.MockEventLog{},
		dispatcher: &testutil.MockDispatcher{},
		metrics:    testutil.NewMockMetrics(),
		logger:     &testutil.MockLogger{},
	}
	now := time.Date(2026, 10, 14, 12, 0, 0, 0, time.UTC)
	f.clock = &now
	archive := NewArchive(conf, &testutil.MockCompressor{}, f.logger)
	f.engine = NewEngine(conf, f.eventLog, f.dispatcher, archive, f.metrics, f.logger).(*Engine)
	f.engine.now = func() time.Time { return *f.clock }
	return f
}

func (f *fixture) advance(d time.Duration) {
	*f.clock = f.clock.Add(d)
}

func openStore(t *testing.T) *storage.Store {
	t.Helper()
	store, err := storage.Open("sqlite", filepath.Join(t.TempDir(), "chat.db"))
	require.NoError(t, err)
	t.Cleanup(func() { _ = store.Close() })
	return store
}
