package services

import (
	"context"
	"errors"
	"roverchat/internal/models"
	"roverchat/internal/providers"
	"roverchat/internal/realtime"
	"roverchat/internal/storage"
	"sync"
	"time"
)

type DispatcherInterface interface {
	Publish(ctx context.Context, msg models.ChatMessage) (models.ChatMessage, error)
	BroadcastMessage(msg models.ChatMessage)
	BroadcastPollOpen(state models.PollState)
	BroadcastPollClosed(result models.PollResult)
}

// Dispatcher fans frames out to every connected session. Publish holds one
// lock across append and broadcast, so recipients see server offsets in
// increasing order.
type Dispatcher struct {
	mu       sync.Mutex
	eventLog storage.EventLogInterface
	registry realtime.RegistryInterface
	logger   providers.Logger
	now      func() time.Time
}

func NewDispatcher(eventLog storage.EventLogInterface, registry realtime.RegistryInterface, logger providers.Logger) DispatcherInterface {
	return &Dispatcher{
		eventLog: eventLog,
		registry: registry,
		logger:   logger,
		now:      time.Now,
	}
}

// Publish appends msg to the event log and broadcasts it with its assigned id.
// On a duplicate client offset it returns the stored original together with
// models.ErrDuplicateKey. Nothing is broadcast when an error is returned.
func (d *Dispatcher) Publish(ctx context.Context, msg models.ChatMessage) (models.ChatMessage, error) {
	d.mu.Lock()
	defer d.mu.Unlock()

	id, err := d.eventLog.AppendMessage(ctx, msg.Username, msg.Content, msg.ClientOffset, msg.Timestamp)
	if errors.Is(err, models.ErrDuplicateKey) {
		original, lookupErr := d.eventLog.MessageByClientOffset(ctx, msg.ClientOffset)
		if lookupErr != nil {
			d.logger.Warnf(providers.TypeChat, "Failed to look up original for offset %s: %v", msg.ClientOffset, lookupErr)
			return models.ChatMessage{}, err
		}
		return original, err
	}
	if err != nil {
		return models.ChatMessage{}, err
	}
	msg.ID = id
	d.broadcastMessage(msg)
	return msg, nil
}

func (d *Dispatcher) BroadcastMessage(msg models.ChatMessage) {
	d.mu.Lock()
	defer d.mu.Unlock()
	d.broadcastMessage(msg)
}

func (d *Dispatcher) broadcastMessage(msg models.ChatMessage) {
	frame, err := realtime.ChatFrame(msg)
	if err != nil {
		d.logger.Errorf(providers.TypeChat, "Failed to encode message %d: %v", msg.ID, err)
		return
	}
	n := d.registry.Broadcast(frame)
	d.logger.Debugf(providers.TypeChat, "Message %d delivered to %d sessions", msg.ID, n)
}

func (d *Dispatcher) BroadcastPollOpen(state models.PollState) {
	frame, err := realtime.PollOpenFrame(state, d.now())
	if err != nil {
		d.logger.Errorf(providers.TypePoll, "Failed to encode pollOpen: %v", err)
		return
	}
	d.registry.Broadcast(frame)
}

func (d *Dispatcher) BroadcastPollClosed(result models.PollResult) {
	frame, err := realtime.PollClosedFrame(result.Session, result.Winner)
	if err != nil {
		d.logger.Errorf(providers.TypePoll, "Failed to encode pollClosed: %v", err)
		return
	}
	d.registry.Broadcast(frame)
}
