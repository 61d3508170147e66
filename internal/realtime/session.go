package realtime

import (
	"errors"
	"sync"
)

var ErrSessionClosed = errors.New("session closed")

// Session is one live client connection as seen by the registry.
//
// Outbound frames sit in an in-memory queue drained by the transport writer.
// Frames queued with Send are never dropped; broadcast frames are dropped once
// the queue holds sendBuffer frames. Until MarkReady is called, broadcast
// frames are parked so replay can run first.
type Session struct {
	ID              string
	LastKnownOffset int64
	Recovered       bool

	sendBuffer    int
	pendingBuffer int

	mu       sync.Mutex
	queue    []Frame
	pending  []Frame
	replayed map[int64]struct{}
	ready    bool
	closed   bool

	notify chan struct{}
	done   chan struct{}
}

func newSession(id string, offset int64, recovered bool, sendBuffer, pendingBuffer int) *Session {
	return &Session{
		ID:              id,
		LastKnownOffset: offset,
		Recovered:       recovered,
		sendBuffer:      sendBuffer,
		pendingBuffer:   pendingBuffer,
		notify:          make(chan struct{}, 1),
		done:            make(chan struct{}),
	}
}

// Send queues a frame addressed to this session alone. Chat frames sent
// during catch-up are remembered so MarkReady does not deliver them twice.
func (s *Session) Send(f Frame) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.closed {
		return ErrSessionClosed
	}
	if !s.ready && f.Offset > 0 {
		if s.replayed == nil {
			s.replayed = make(map[int64]struct{})
		}
		s.replayed[f.Offset] = struct{}{}
	}
	s.queue = append(s.queue, f)
	s.wake()
	return nil
}

// deliver is the broadcast path. It never blocks and reports false when the frame was dropped.
func (s *Session) deliver(f Frame) bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.closed {
		return false
	}
	if !s.ready {
		if len(s.pending) >= s.pendingBuffer {
			return false
		}
		s.pending = append(s.pending, f)
		return true
	}
	if len(s.queue) >= s.sendBuffer {
		return false
	}
	s.queue = append(s.queue, f)
	s.wake()
	return true
}

// MarkReady ends catch-up. Parked chat frames whose offset was already sent
// directly are discarded; every other parked frame follows the replay.
func (s *Session) MarkReady() {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.ready {
		return
	}
	for _, f := range s.pending {
		if _, ok := s.replayed[f.Offset]; ok && f.Offset > 0 {
			continue
		}
		s.queue = append(s.queue, f)
	}
	s.pending = nil
	s.replayed = nil
	s.ready = true
	s.wake()
}

func (s *Session) Ready() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.ready
}

// Drain hands every queued frame to the caller.
func (s *Session) Drain() []Frame {
	s.mu.Lock()
	defer s.mu.Unlock()
	frames := s.queue
	s.queue = nil
	return frames
}

// Notify fires after frames were queued.
func (s *Session) Notify() <-chan struct{} {
	return s.notify
}

// Done is closed once the session is unregistered.
func (s *Session) Done() <-chan struct{} {
	return s.done
}

func (s *Session) wake() {
	select {
	case s.notify <- struct{}{}:
	default:
	}
}

// close stops the session and returns the frames it never wrote.
func (s *Session) close() []Frame {
	s.mu.Lock()
	defer s.mu.Unlock()
	if !s.markClosedLocked() {
		return nil
	}
	unsent := append(s.queue, s.pending...)
	s.queue, s.pending = nil, nil
	return unsent
}

// shutdown stops the session but leaves the queue for the writer's last flush.
func (s *Session) shutdown() {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.markClosedLocked() {
		s.pending = nil
	}
}

func (s *Session) markClosedLocked() bool {
	if s.closed {
		return false
	}
	s.closed = true
	close(s.done)
	return true
}
