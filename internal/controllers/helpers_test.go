package controllers

import (
	"context"
	"roverchat/internal/models"
	"sync"
	"time"
)

// mockEngine implements interfaces.EngineInterface with fixed state.
type mockEngine struct {
	mu           sync.Mutex
	state        models.PollState
	last         *models.PollResult
	history      []models.PollResult
	votes        []models.VoteInput
	ack          models.Ack
	reply        bool
	historyCalls int
}

func (m *mockEngine) Run(_ context.Context)        {}
func (m *mockEngine) Open(_ context.Context) error { return nil }
func (m *mockEngine) Close(_ context.Context) (models.PollResult, error) {
	return models.PollResult{}, nil
}
func (m *mockEngine) State() models.PollState {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.state
}
func (m *mockEngine) LastResult() (models.PollResult, bool) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.last == nil {
		return models.PollResult{}, false
	}
	return *m.last, true
}
func (m *mockEngine) History() []models.PollResult {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.historyCalls++
	return m.history
}
func (m *mockEngine) SubmitVote(_ context.Context, in models.VoteInput) (models.Ack, bool) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.votes = append(m.votes, in)
	return m.ack, m.reply
}

var fixedNow = time.Date(2026, 10, 14, 12, 0, 0, 0, time.UTC)
