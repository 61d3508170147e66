package poll

import (
	"context"
	"errors"
	"fmt"
	"roverchat/internal/models"
	"roverchat/internal/poll/interfaces"
	"roverchat/internal/providers"
	"roverchat/internal/services"
	"roverchat/internal/storage"
	"roverchat/internal/structures"
	"sync"
	"time"
)

var (
	ErrAlreadyOpen = errors.New("poll session already open")
	ErrNotOpen     = errors.New("no poll session open")
)

const shutdownCloseTimeout = 5 * time.Second

// Engine runs the poll lifecycle Idle -> Open -> Closed -> Idle and records votes.
//
// Votes hold the state read lock while they are written, so Close only tallies
// once every in-flight vote for the session has landed.
type Engine struct {
	conf       structures.PollConfig
	eventLog   storage.EventLogInterface
	dispatcher services.DispatcherInterface
	archive    *Archive
	metrics    providers.MetricsProviderInterface
	logger     providers.Logger
	now        func() time.Time

	opsMu sync.Mutex

	mu    sync.RWMutex
	state models.PollState
}

func NewEngine(
	conf *structures.Config,
	eventLog storage.EventLogInterface,
	dispatcher services.DispatcherInterface,
	archive *Archive,
	metrics providers.MetricsProviderInterface,
	logger providers.Logger,
) interfaces.EngineInterface {
	e := &Engine{
		conf:       conf.Poll,
		eventLog:   eventLog,
		dispatcher: dispatcher,
		archive:    archive,
		metrics:    metrics,
		logger:     logger,
		now:        time.Now,
	}
	if last, ok := archive.Latest(); ok {
		e.state.Session = last.Session
	}
	return e
}

func (e *Engine) State() models.PollState {
	e.mu.RLock()
	defer e.mu.RUnlock()
	return e.state
}

func (e *Engine) LastResult() (models.PollResult, bool) {
	return e.archive.Latest()
}

func (e *Engine) History() []models.PollResult {
	return e.archive.Results()
}

// Open starts a new session: votes are cleared, the generation is bumped and
// pollOpen is broadcast. Nothing changes when the votes cannot be cleared.
func (e *Engine) Open(ctx context.Context) error {
	e.opsMu.Lock()
	defer e.opsMu.Unlock()

	if e.State().Active {
		return ErrAlreadyOpen
	}
	if err := e.eventLog.ClearVotes(ctx); err != nil {
		return fmt.Errorf("open poll: %w", err)
	}

	e.mu.Lock()
	e.state = models.PollState{
		Active:    true,
		Session:   e.state.Session + 1,
		StartedAt: e.now(),
		Duration:  e.conf.Duration,
	}
	state := e.state
	e.mu.Unlock()

	e.metrics.IncPollSessions()
	e.metrics.SetPollActive(true)
	e.dispatcher.BroadcastPollOpen(state)
	e.logger.Infof(providers.TypePoll, "Poll session %d opened for %s", state.Session, state.Duration)
	return nil
}

// Close ends the open session, tallies it and broadcasts pollClosed. A tally
// failure still closes the session; the result then has no winner and the
// error is returned.
func (e *Engine) Close(ctx context.Context) (models.PollResult, error) {
	e.opsMu.Lock()
	defer e.opsMu.Unlock()

	e.mu.Lock()
	if !e.state.Active {
		e.mu.Unlock()
		return models.PollResult{}, ErrNotOpen
	}
	e.state.Active = false
	state := e.state
	e.mu.Unlock()
	e.metrics.SetPollActive(false)

	result := models.PollResult{
		Session:  state.Session,
		Column:   e.conf.TallyColumn,
		OpenedAt: state.StartedAt,
		ClosedAt: e.now(),
	}

	winner, tallyErr := e.eventLog.Tally(ctx, e.conf.TallyColumn, state.Session)
	if tallyErr == nil {
		result.Winner = winner
		votes, err := e.eventLog.CountVotes(ctx, state.Session)
		if err != nil {
			e.logger.Warnf(providers.TypePoll, "Failed to count votes for session %d: %v", state.Session, err)
		}
		result.Votes = votes
	}

	e.dispatcher.BroadcastPollClosed(result)

	if result.Winner != nil {
		e.logger.Infof(providers.TypePoll, "Poll session %d closed: %s wins with %d of %d votes",
			state.Session, result.Winner.Value, result.Winner.Count, result.Votes)
	} else {
		e.logger.Infof(providers.TypePoll, "Poll session %d closed without votes", state.Session)
	}

	if err := e.archive.Append(result); err != nil {
		e.logger.Errorf(providers.TypePoll, "Failed to archive poll session %d: %v", state.Session, err)
	}

	if tallyErr != nil {
		return result, fmt.Errorf("close poll: %w", tallyErr)
	}
	return result, nil
}

// SubmitVote records a vote for the open session. The bool reports whether
// the returned ack should be sent; incomplete votes and votes outside an open
// session are dropped silently.
func (e *Engine) SubmitVote(ctx context.Context, in models.VoteInput) (models.Ack, bool) {
	if err := in.Validate(); err != nil {
		e.ignoreVote(in, err)
		return models.Ack{}, false
	}

	e.mu.RLock()
	defer e.mu.RUnlock()

	now := e.now()
	if err := e.state.CheckVote(now); err != nil {
		e.ignoreVote(in, err)
		return models.Ack{}, false
	}

	err := e.eventLog.RecordVote(ctx, models.Vote{
		UserID:    in.UserID,
		Day:       in.DayValue,
		Rover:     in.RoverValue,
		Camera:    in.CameraValue,
		Session:   e.state.Session,
		Timestamp: now,
	})
	switch {
	case errors.Is(err, models.ErrAlreadyVoted):
		e.metrics.IncVotes(providers.ResultAlreadyVoted)
		return models.AckError(models.AckMsgAlreadyVoted), true
	case err != nil:
		e.metrics.IncVotes(providers.ResultFailed)
		e.logger.Errorf(providers.TypePoll, "Failed to record vote from %s: %v", in.UserID, err)
		return models.AckError(models.AckMsgDatabaseError), true
	}

	e.metrics.IncVotes(providers.ResultAccepted)
	return models.AckOK(), true
}

func (e *Engine) ignoreVote(in models.VoteInput, err error) {
	e.metrics.IncVotes(providers.ResultIgnored)
	e.logger.Debugf(providers.TypePoll, "Vote from %q ignored: %v", in.UserID, err)
}

// Run cycles sessions until ctx is cancelled. A session still open at
// cancellation is closed before Run returns.
func (e *Engine) Run(ctx context.Context) {
	e.logger.Infof(providers.TypePoll, "Poll engine started: duration=%s idle=%s column=%s",
		e.conf.Duration, e.conf.Idle, e.conf.TallyColumn)

	for {
		if err := e.Open(ctx); err != nil {
			if ctx.Err() != nil {
				return
			}
			e.logger.Errorf(providers.TypePoll, "Poll cycle skipped: %v", err)
		} else {
			if !wait(ctx, e.conf.Duration) {
				e.closeOnShutdown(ctx)
				return
			}
			if _, err := e.Close(ctx); err != nil {
				e.logger.Errorf(providers.TypePoll, "%v", err)
			}
		}

		if !wait(ctx, e.conf.Idle) {
			return
		}
	}
}

func (e *Engine) closeOnShutdown(ctx context.Context) {
	closeCtx, cancel := context.WithTimeout(context.WithoutCancel(ctx), shutdownCloseTimeout)
	defer cancel()
	if _, err := e.Close(closeCtx); err != nil && !errors.Is(err, ErrNotOpen) {
		e.logger.Errorf(providers.TypePoll, "Failed to close poll on shutdown: %v", err)
	}
}

func wait(ctx context.Context, d time.Duration) bool {
	timer := time.NewTimer(d)
	defer timer.Stop()
	select {
	case <-ctx.Done():
		return false
	case <-timer.C:
		return true
	}
}
