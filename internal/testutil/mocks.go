package testutil

import (
	"context"
	"database/sql"
	"fmt"
	"roverchat/internal/models"
	"roverchat/internal/providers"
	"sort"
	"sync"
	"time"
)

// MockLogger implements providers.Logger and records calls.
type MockLogger struct {
	mu   sync.Mutex
	Logs []LogEntry
}

type LogEntry struct {
	Level  string
	Type   providers.TypeEnum
	Format string
	Args   []interface{}
}

func (m *MockLogger) record(level string, t providers.TypeEnum, format string, args ...interface{}) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.Logs = append(m.Logs, LogEntry{Level: level, Type: t, Format: format, Args: args})
}

func (m *MockLogger) Errorf(t providers.TypeEnum, format string, args ...interface{}) {
	m.record("error", t, format, args...)
}
func (m *MockLogger) Warnf(t providers.TypeEnum, format string, args ...interface{}) {
	m.record("warn", t, format, args...)
}
func (m *MockLogger) Debugf(t providers.TypeEnum, format string, args ...interface{}) {
	m.record("debug", t, format, args...)
}
func (m *MockLogger) Infof(t providers.TypeEnum, format string, args ...interface{}) {
	m.record("info", t, format, args...)
}
func (m *MockLogger) Fatalf(t providers.TypeEnum, format string, args ...interface{}) {
	m.record("fatal", t, format, args...)
}
func (m *MockLogger) Close() {}

// Count returns how many entries were logged at level.
func (m *MockLogger) Count(level string) int {
	m.mu.Lock()
	defer m.mu.Unlock()
	n := 0
	for _, e := range m.Logs {
		if e.Level == level {
			n++
		}
	}
	return n
}

// MockMetrics implements providers.MetricsProviderInterface with plain counters.
type MockMetrics struct {
	mu           sync.Mutex
	Requests     int
	CacheHits    map[string]int
	CacheMisses  map[string]int
	Connections  int
	Messages     map[string]int
	Dropped      int
	Votes        map[string]int
	PollSessions int
	PollActive   bool
	Replayed     []int
}

func NewMockMetrics() *MockMetrics {
	return &MockMetrics{
		CacheHits:   make(map[string]int),
		CacheMisses: make(map[string]int),
		Messages:    make(map[string]int),
		Votes:       make(map[string]int),
	}
}

func (m *MockMetrics) IncRequestsTotal(_ string, _ int) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.Requests++
}
func (m *MockMetrics) ObserveRequestDuration(_ string, _ time.Duration) {}
func (m *MockMetrics) IncCacheHits(ns string) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.CacheHits[ns]++
}
func (m *MockMetrics) IncCacheMisses(ns string) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.CacheMisses[ns]++
}
func (m *MockMetrics) SetConnections(count int) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.Connections = count
}
func (m *MockMetrics) IncMessages(result string) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.Messages[result]++
}
func (m *MockMetrics) IncBroadcastDropped() {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.Dropped++
}
func (m *MockMetrics) IncVotes(result string) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.Votes[result]++
}
func (m *MockMetrics) IncPollSessions() {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.PollSessions++
}
func (m *MockMetrics) SetPollActive(active bool) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.PollActive = active
}
func (m *MockMetrics) ObserveReplayed(count int) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.Replayed = append(m.Replayed, count)
}

// Message returns the message counter for result.
func (m *MockMetrics) Message(result string) int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.Messages[result]
}

// Vote returns the vote counter for result.
func (m *MockMetrics) Vote(result string) int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.Votes[result]
}

func (m *MockMetrics) RequestCount() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.Requests
}

func (m *MockMetrics) ConnectionCount() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.Connections
}

func (m *MockMetrics) DroppedCount() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.Dropped
}

// MockCache implements providers.CacheProviderInterface.
type MockCache struct {
	mu   sync.Mutex
	Data map[string][]byte
}

func NewMockCache() *MockCache {
	return &MockCache{Data: make(map[string][]byte)}
}

func (m *MockCache) Get(key string) ([]byte, bool) {
	m.mu.Lock()
	defer m.mu.Unlock()
	val, ok := m.Data[key]
	return val, ok
}

func (m *MockCache) Set(key string, value []byte) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.Data[key] = value
}

func (m *MockCache) Del(key string) {
	m.mu.Lock()
	defer m.mu.Unlock()
	delete(m.Data, key)
}

// MockCompressor implements interfaces.CompressorInterface with injectable behavior.
type MockCompressor struct {
	CompressFn   func([]byte) ([]byte, error)
	DecompressFn func([]byte) ([]byte, error)
}

func (m *MockCompressor) Compress(val []byte) ([]byte, error) {
	if m.CompressFn != nil {
		return m.CompressFn(val)
	}
	out := make([]byte, len(val))
	copy(out, val)
	return out, nil
}

func (m *MockCompressor) Decompress(val []byte) ([]byte, error) {
	if m.DecompressFn != nil {
		return m.DecompressFn(val)
	}
	out := make([]byte, len(val))
	copy(out, val)
	return out, nil
}

func (m *MockCompressor) Close() {}

// MockEventLog is an in-memory storage.EventLogInterface. Setting one of the
// Err fields makes the matching operation fail with it.
type MockEventLog struct {
	mu       sync.Mutex
	Messages []models.ChatMessage
	Votes    []models.Vote

	AppendErr error
	ReadErr   error
	VoteErr   error
	ClearErr  error
	TallyErr  error
	PingErr   error

	AppendCalls int
	ClearCalls  int
	ReadCalls   int
}

func (m *MockEventLog) AppendMessage(_ context.Context, username, content, clientOffset string, ts time.Time) (int64, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.AppendCalls++
	if m.AppendErr != nil {
		return 0, m.AppendErr
	}
	for _, msg := range m.Messages {
		if msg.ClientOffset == clientOffset {
			return 0, models.ErrDuplicateKey
		}
	}
	id := int64(len(m.Messages) + 1)
	m.Messages = append(m.Messages, models.ChatMessage{
		ID:           id,
		Username:     username,
		Content:      content,
		ClientOffset: clientOffset,
		Timestamp:    ts,
	})
	return id, nil
}

func (m *MockEventLog) MessageByClientOffset(_ context.Context, clientOffset string) (models.ChatMessage, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	for _, msg := range m.Messages {
		if msg.ClientOffset == clientOffset {
			return msg, nil
		}
	}
	return models.ChatMessage{}, sql.ErrNoRows
}

func (m *MockEventLog) ReadSince(_ context.Context, offset int64, cutoff time.Time) ([]models.ChatMessage, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.ReadCalls++
	if m.ReadErr != nil {
		return nil, m.ReadErr
	}
	out := []models.ChatMessage{}
	for _, msg := range m.Messages {
		if msg.ID > offset && !msg.Timestamp.Before(cutoff) {
			out = append(out, msg)
		}
	}
	return out, nil
}

func (m *MockEventLog) RecordVote(_ context.Context, vote models.Vote) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.VoteErr != nil {
		return m.VoteErr
	}
	for _, v := range m.Votes {
		if v.UserID == vote.UserID && v.Session == vote.Session {
			return models.ErrAlreadyVoted
		}
	}
	vote.ID = int64(len(m.Votes) + 1)
	m.Votes = append(m.Votes, vote)
	return nil
}

func (m *MockEventLog) ClearVotes(_ context.Context) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.ClearCalls++
	if m.ClearErr != nil {
		return m.ClearErr
	}
	m.Votes = nil
	return nil
}

func (m *MockEventLog) CountVotes(_ context.Context, session int64) (int, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	n := 0
	for _, v := range m.Votes {
		if v.Session == session {
			n++
		}
	}
	return n, nil
}

func (m *MockEventLog) Tally(_ context.Context, column string, session int64) (*models.TallyResult, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.TallyErr != nil {
		return nil, m.TallyErr
	}
	counts := make(map[string]int)
	for _, v := range m.Votes {
		if v.Session != session {
			continue
		}
		switch column {
		case "day":
			counts[v.Day]++
		case "rover":
			counts[v.Rover]++
		case "camera":
			counts[v.Camera]++
		default:
			return nil, fmt.Errorf("%w: %s", models.ErrUnknownColumn, column)
		}
	}
	if len(counts) == 0 {
		return nil, nil
	}
	values := make([]string, 0, len(counts))
	for v := range counts {
		values = append(values, v)
	}
	sort.Strings(values)
	best := &models.TallyResult{}
	for _, v := range values {
		if counts[v] > best.Count {
			best = &models.TallyResult{Value: v, Count: counts[v]}
		}
	}
	return best, nil
}

func (m *MockEventLog) Ping(_ context.Context) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.PingErr
}
func (m *MockEventLog) Close() error                 { return nil }

// VoteCount returns the number of stored votes.
func (m *MockEventLog) VoteCount() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return len(m.Votes)
}

// MockDispatcher implements services.DispatcherInterface and records calls.
type MockDispatcher struct {
	mu         sync.Mutex
	PublishErr error
	// Original is returned alongside PublishErr, as a duplicate lookup would.
	Original   models.ChatMessage
	Published  []models.ChatMessage
	Broadcasts []models.ChatMessage
	Opened     []models.PollState
	Closed     []models.PollResult
	nextID     int64
}

func (m *MockDispatcher) Publish(_ context.Context, msg models.ChatMessage) (models.ChatMessage, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.PublishErr != nil {
		return m.Original, m.PublishErr
	}
	m.nextID++
	msg.ID = m.nextID
	m.Published = append(m.Published, msg)
	return msg, nil
}

func (m *MockDispatcher) BroadcastMessage(msg models.ChatMessage) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.Broadcasts = append(m.Broadcasts, msg)
}

func (m *MockDispatcher) BroadcastPollOpen(state models.PollState) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.Opened = append(m.Opened, state)
}

func (m *MockDispatcher) BroadcastPollClosed(result models.PollResult) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.Closed = append(m.Closed, result)
}

// Counts returns how many times each poll broadcast ran.
func (m *MockDispatcher) Counts() (opened, closed int) {
	m.mu.Lock()
	defer m.mu.Unlock()
	return len(m.Opened), len(m.Closed)
}
