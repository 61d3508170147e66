package services

import (
	"context"
	"roverchat/internal/providers"
	"roverchat/internal/realtime"
	"roverchat/internal/storage"
	"roverchat/internal/structures"
	"time"
)

type ReplayServiceInterface interface {
	Replay(ctx context.Context, s *realtime.Session) int
}

type ReplayService struct {
	eventLog storage.EventLogInterface
	window   time.Duration
	metrics  providers.MetricsProviderInterface
	logger   providers.Logger
	now      func() time.Time
}

func NewReplayService(
	conf *structures.Config,
	eventLog storage.EventLogInterface,
	metrics providers.MetricsProviderInterface,
	logger providers.Logger,
) ReplayServiceInterface {
	return &ReplayService{
		eventLog: eventLog,
		window:   conf.Chat.ReplayWindow,
		metrics:  metrics,
		logger:   logger,
		now:      time.Now,
	}
}

// Replay sends the messages a fresh session missed, oldest first, then ends
// its catch-up. A recovered session skips the read: the registry already holds
// its missed frames. It returns the number of messages sent.
func (rs *ReplayService) Replay(ctx context.Context, s *realtime.Session) int {
	defer s.MarkReady()
	if s.Recovered {
		return 0
	}

	messages, err := rs.eventLog.ReadSince(ctx, s.LastKnownOffset, rs.now().Add(-rs.window))
	if err != nil {
		rs.logger.Errorf(providers.TypeChat, "Replay for session %s failed: %v", s.ID, err)
		return 0
	}

	sent := 0
	for _, msg := range messages {
		frame, err := realtime.ChatFrame(msg)
		if err != nil {
			rs.logger.Errorf(providers.TypeChat, "Failed to encode message %d: %v", msg.ID, err)
			continue
		}
		if err := s.Send(frame); err != nil {
			// session went away mid-replay
			break
		}
		sent++
	}

	rs.metrics.ObserveReplayed(sent)
	rs.logger.Debugf(providers.TypeChat, "Replayed %d messages to session %s", sent, s.ID)
	return sent
}
