package services

import (
	"context"
	"errors"
	"roverchat/internal/models"
	"roverchat/internal/providers"
	"strconv"
	"time"
)

const offsetCachePrefix = "offset:"

type ChatServiceInterface interface {
	Submit(ctx context.Context, in models.ChatInput) models.Ack
}

type ChatService struct {
	dispatcher DispatcherInterface
	cache      providers.CacheProviderInterface
	metrics    providers.MetricsProviderInterface
	logger     providers.Logger
	now        func() time.Time
}

func NewChatService(
	dispatcher DispatcherInterface,
	cache providers.CacheProviderInterface,
	metrics providers.MetricsProviderInterface,
	logger providers.Logger,
) ChatServiceInterface {
	return &ChatService{
		dispatcher: dispatcher,
		cache:      cache,
		metrics:    metrics,
		logger:     logger,
		now:        time.Now,
	}
}

// Submit stores and broadcasts one inbound chat message and returns the ack for the sender.
// A client offset seen before is acknowledged as success without a second broadcast.
func (cs *ChatService) Submit(ctx context.Context, in models.ChatInput) models.Ack {
	if err := in.Validate(); err != nil {
		cs.metrics.IncMessages(providers.ResultRejected)
		cs.logger.Debugf(providers.TypeChat, "Rejected message from %q: %v", in.Username, err)
		return models.AckError(models.AckMsgIncompleteMessage)
	}

	key := offsetCachePrefix + in.ClientOffset
	if _, ok := cs.cache.Get(key); ok {
		cs.metrics.IncMessages(providers.ResultDuplicate)
		return models.AckOK()
	}

	msg, err := cs.dispatcher.Publish(ctx, models.ChatMessage{
		Username:     in.Username,
		Content:      in.Content,
		ClientOffset: in.ClientOffset,
		Timestamp:    in.SentAt(cs.now()),
	})
	switch {
	case errors.Is(err, models.ErrDuplicateKey):
		cs.metrics.IncMessages(providers.ResultDuplicate)
		cs.logger.Debugf(providers.TypeChat, "Duplicate client offset %s, original message %d", in.ClientOffset, msg.ID)
		if msg.ID > 0 {
			cs.cache.Set(key, []byte(strconv.FormatInt(msg.ID, 10)))
		}
		return models.AckOK()
	case err != nil:
		cs.metrics.IncMessages(providers.ResultFailed)
		cs.logger.Errorf(providers.TypeChat, "Failed to store message from %s: %v", in.Username, err)
		return models.AckError(models.AckMsgStoreFailure)
	}

	cs.cache.Set(key, []byte(strconv.FormatInt(msg.ID, 10)))
	cs.metrics.IncMessages(providers.ResultAccepted)
	return models.AckOK()
}
