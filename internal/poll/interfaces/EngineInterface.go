package interfaces

import (
	"context"
	"roverchat/internal/models"
)

type EngineInterface interface {
	Run(ctx context.Context)
	Open(ctx context.Context) error
	Close(ctx context.Context) (models.PollResult, error)
	State() models.PollState
	LastResult() (models.PollResult, bool)
	History() []models.PollResult
	SubmitVote(ctx context.Context, in models.VoteInput) (models.Ack, bool)
}
