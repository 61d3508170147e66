package realtime

import (
	"roverchat/internal/providers"
	"roverchat/internal/structures"
	"sync"
	"time"

	"github.com/google/uuid"
)

type RegistryInterface interface {
	Register(clientOffset int64, recoverID string) *Session
	Unregister(s *Session)
	ForEachConnected(fn func(s *Session))
	Broadcast(f Frame) int
	Count() int
	Close()
}

type detachedSession struct {
	offset     int64
	missed     []Frame
	detachedAt time.Time
}

// Registry tracks live sessions and, for socket.recoveryWindow, the sessions
// that dropped off so a reconnect can resume without replay.
type Registry struct {
	conf    structures.SocketConfig
	logger  providers.Logger
	metrics providers.MetricsProviderInterface
	now     func() time.Time

	mu       sync.Mutex
	live     map[string]*Session
	detached map[string]*detachedSession
}

func NewRegistry(conf *structures.Config, logger providers.Logger, metrics providers.MetricsProviderInterface) *Registry {
	return &Registry{
		conf:     conf.Socket,
		logger:   logger,
		metrics:  metrics,
		now:      time.Now,
		live:     make(map[string]*Session),
		detached: make(map[string]*detachedSession),
	}
}

// Register creates a live session in catch-up mode. A recoverID naming a session
// detached within the recovery window restores it with Recovered set; its missed
// frames are released by MarkReady.
func (r *Registry) Register(clientOffset int64, recoverID string) *Session {
	r.mu.Lock()
	defer r.mu.Unlock()

	r.sweepLocked()

	if recoverID != "" {
		if d, ok := r.detached[recoverID]; ok {
			delete(r.detached, recoverID)
			// room for the missed frames plus whatever arrives before MarkReady
			s := newSession(recoverID, max(clientOffset, d.offset), true, r.conf.SendBuffer, len(d.missed)+r.conf.SendBuffer)
			s.pending = d.missed
			r.live[s.ID] = s
			r.metrics.SetConnections(len(r.live))
			r.logger.Debugf(providers.TypeSocket, "Session %s recovered with %d missed frames", s.ID, len(d.missed))
			return s
		}
	}

	pendingBuffer := max(r.conf.RecoveryBuffer, r.conf.SendBuffer)
	s := newSession(uuid.NewString(), clientOffset, false, r.conf.SendBuffer, pendingBuffer)
	r.live[s.ID] = s
	r.metrics.SetConnections(len(r.live))
	return s
}

// Unregister removes a live session. Its unsent frames seed the missed buffer
// when recovery is enabled.
func (r *Registry) Unregister(s *Session) {
	r.mu.Lock()
	defer r.mu.Unlock()

	current, ok := r.live[s.ID]
	if !ok || current != s {
		s.close()
		return
	}
	delete(r.live, s.ID)
	unsent := s.close()
	r.metrics.SetConnections(len(r.live))

	if r.conf.RecoveryWindow <= 0 || len(unsent) > r.conf.RecoveryBuffer {
		return
	}
	r.detached[s.ID] = &detachedSession{
		offset:     s.LastKnownOffset,
		missed:     unsent,
		detachedAt: r.now(),
	}
}

// ForEachConnected calls fn for a snapshot of live sessions, outside the registry lock.
func (r *Registry) ForEachConnected(fn func(s *Session)) {
	for _, s := range r.snapshot() {
		fn(s)
	}
}

// Broadcast enqueues f to every live session without blocking and records it
// for detached sessions. It returns the number of live sessions that accepted it.
func (r *Registry) Broadcast(f Frame) int {
	r.mu.Lock()
	sessions := r.snapshotLocked()
	r.sweepLocked()
	for id, d := range r.detached {
		if len(d.missed) >= r.conf.RecoveryBuffer {
			// too far behind to resume; the client falls back to replay
			delete(r.detached, id)
			continue
		}
		d.missed = append(d.missed, f)
	}
	r.mu.Unlock()

	delivered := 0
	for _, s := range sessions {
		if s.deliver(f) {
			delivered++
			continue
		}
		r.metrics.IncBroadcastDropped()
		r.logger.Warnf(providers.TypeSocket, "Dropped frame for session %s: send buffer full", s.ID)
	}
	return delivered
}

func (r *Registry) Count() int {
	r.mu.Lock()
	defer r.mu.Unlock()
	return len(r.live)
}

// Close stops every session and forgets detached ones. Frames already queued
// are still flushed by each transport before it sends the close frame.
func (r *Registry) Close() {
	r.mu.Lock()
	defer r.mu.Unlock()
	for id, s := range r.live {
		s.shutdown()
		delete(r.live, id)
	}
	r.detached = make(map[string]*detachedSession)
	r.metrics.SetConnections(0)
}

func (r *Registry) snapshot() []*Session {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.snapshotLocked()
}

func (r *Registry) snapshotLocked() []*Session {
	sessions := make([]*Session, 0, len(r.live))
	for _, s := range r.live {
		sessions = append(sessions, s)
	}
	return sessions
}

func (r *Registry) sweepLocked() {
	cutoff := r.now().Add(-r.conf.RecoveryWindow)
	for id, d := range r.detached {
		if d.detachedAt.Before(cutoff) {
			delete(r.detached, id)
		}
	}
}
