package storage

import (
	"context"
	"time"

	"roverchat/internal/models"
)

// EventLogInterface is the durable store of chat messages and votes.
type EventLogInterface interface {
	AppendMessage(ctx context.Context, username, content, clientOffset string, ts time.Time) (int64, error)
	MessageByClientOffset(ctx context.Context, clientOffset string) (models.ChatMessage, error)
	ReadSince(ctx context.Context, offset int64, cutoff time.Time) ([]models.ChatMessage, error)
	RecordVote(ctx context.Context, vote models.Vote) error
	ClearVotes(ctx context.Context) error
	CountVotes(ctx context.Context, session int64) (int, error)
	Tally(ctx context.Context, column string, session int64) (*models.TallyResult, error)
	Ping(ctx context.Context) error
	Close() error
}
