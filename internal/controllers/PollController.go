package controllers

import (
	"net/http"
	"roverchat/internal/models"
	"roverchat/internal/poll/interfaces"
	"roverchat/internal/providers"
	"strconv"
	"sync"
	"time"

	json "github.com/goccy/go-json"
)

const historyCachePrefix = "poll:history:"

type PollController struct {
	engine interfaces.EngineInterface
	cache  providers.CacheProviderInterface
	logger providers.Logger
	now    func() time.Time

	mu        sync.Mutex
	cachedKey string
}

type pollStateResponse struct {
	Active      bool               `json:"active"`
	Session     int64              `json:"session"`
	StartedAt   *time.Time         `json:"started_at,omitempty"`
	RemainingMs int64              `json:"remaining_ms"`
	LastResult  *models.PollResult `json:"last_result"`
	History     json.RawMessage    `json:"history"`
}

func NewPollController(engine interfaces.EngineInterface, cache providers.CacheProviderInterface, logger providers.Logger) *PollController {
	return &PollController{
		engine: engine,
		cache:  cache,
		logger: logger,
		now:    time.Now,
	}
}

// State serves the running session and the closed-session history. Closed
// results never change, so the encoded history is cached per latest session
// and the entry for the previous session is evicted.
func (pc *PollController) State(w http.ResponseWriter, r *http.Request) {
	state := pc.engine.State()
	resp := pollStateResponse{
		Active:      state.Active,
		Session:     state.Session,
		RemainingMs: state.Remaining(pc.now()).Milliseconds(),
	}
	if state.Active {
		started := state.StartedAt
		resp.StartedAt = &started
	}

	latest := int64(0)
	if last, ok := pc.engine.LastResult(); ok {
		resp.LastResult = &last
		latest = last.Session
	}

	history, err := pc.history(latest)
	if err != nil {
		pc.logger.Errorf(providers.TypePoll, "Failed to encode poll history: %v", err)
		http.Error(w, "Internal Server Error", http.StatusInternalServerError)
		return
	}
	resp.History = history

	gson, err := json.Marshal(resp)
	if err != nil {
		http.Error(w, "Internal Server Error", http.StatusInternalServerError)
		return
	}

	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(http.StatusOK)
	_, _ = w.Write(gson)
}

func (pc *PollController) history(latest int64) ([]byte, error) {
	key := historyCachePrefix + strconv.FormatInt(latest, 10)
	if data, ok := pc.cache.Get(key); ok {
		return data, nil
	}

	results := pc.engine.History()
	if results == nil {
		results = []models.PollResult{}
	}
	data, err := json.Marshal(results)
	if err != nil {
		return nil, err
	}
	pc.cache.Set(key, data)

	pc.mu.Lock()
	stale := pc.cachedKey
	pc.cachedKey = key
	pc.mu.Unlock()
	if stale != "" && stale != key {
		pc.cache.Del(stale)
	}
	return data, nil
}
