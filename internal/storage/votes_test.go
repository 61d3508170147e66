package storage

import (
	"context"
	"fmt"
	"sync"
	"sync/atomic"
	"testing"

	"roverchat/internal/models"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func vote(user, day, rover, camera string, session int64) models.Vote {
	return models.Vote{UserID: user, Day: day, Rover: rover, Camera: camera, Session: session, Timestamp: fixedNow}
}

func TestRecordVote_Scenario(t *testing.T) {
	s := openTestStore(t)
	ctx := context.Background()

	require.NoError(t, s.RecordVote(ctx, vote("u1", "5", "curiosity", "navcam", 1)))

	err := s.RecordVote(ctx, vote("u1", "6", "opportunity", "navcam", 1))
	assert.ErrorIs(t, err, models.ErrAlreadyVoted)

	var rover string
	require.NoError(t, s.db.QueryRow("SELECT rover FROM votes WHERE user_id = 'u1'").Scan(&rover))
	assert.Equal(t, "curiosity", rover)
	assert.Equal(t, 1, countRows(t, s, "votes"))
}

func TestRecordVote_SameUserNewSession(t *testing.T) {
	s := openTestStore(t)
	ctx := context.Background()

	require.NoError(t, s.RecordVote(ctx, vote("u1", "5", "curiosity", "navcam", 1)))
	assert.NoError(t, s.RecordVote(ctx, vote("u1", "5", "spirit", "navcam", 2)))
}

func TestRecordVote_ConcurrentSameUser(t *testing.T) {
	s := openTestStore(t)
	ctx := context.Background()

	const attempts = 8
	var ok, rejected atomic.Int32
	var wg sync.WaitGroup
	for i := 0; i < attempts; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			err := s.RecordVote(ctx, vote("racer", fmt.Sprint(i), "perseverance", "mastcam", 1))
			switch err {
			case nil:
				ok.Add(1)
			case models.ErrAlreadyVoted:
				rejected.Add(1)
			default:
				t.Errorf("unexpected error: %v", err)
			}
		}(i)
	}
	wg.Wait()

	assert.Equal(t, int32(1), ok.Load())
	assert.Equal(t, int32(attempts-1), rejected.Load())
	assert.Equal(t, 1, countRows(t, s, "votes"))
}

func TestClearVotes(t *testing.T) {
	s := openTestStore(t)
	ctx := context.Background()

	require.NoError(t, s.RecordVote(ctx, vote("u1", "5", "curiosity", "navcam", 1)))
	require.NoError(t, s.RecordVote(ctx, vote("u2", "5", "spirit", "navcam", 1)))

	require.NoError(t, s.ClearVotes(ctx))
	assert.Equal(t, 0, countRows(t, s, "votes"))

	n, err := s.CountVotes(ctx, 1)
	require.NoError(t, err)
	assert.Equal(t, 0, n)
}

func TestTally_Winner(t *testing.T) {
	s := openTestStore(t)
	ctx := context.Background()

	require.NoError(t, s.RecordVote(ctx, vote("u1", "5", "curiosity", "navcam", 1)))
	require.NoError(t, s.RecordVote(ctx, vote("u2", "5", "spirit", "navcam", 1)))
	require.NoError(t, s.RecordVote(ctx, vote("u3", "6", "curiosity", "fhaz", 1)))
	// other session does not count
	require.NoError(t, s.RecordVote(ctx, vote("u4", "6", "spirit", "fhaz", 2)))
	require.NoError(t, s.RecordVote(ctx, vote("u5", "6", "spirit", "fhaz", 2)))

	res, err := s.Tally(ctx, "rover", 1)
	require.NoError(t, err)
	require.NotNil(t, res)
	assert.Equal(t, models.TallyResult{Value: "curiosity", Count: 2}, *res)

	res, err = s.Tally(ctx, "camera", 1)
	require.NoError(t, err)
	assert.Equal(t, "navcam", res.Value)

	n, err := s.CountVotes(ctx, 1)
	require.NoError(t, err)
	assert.Equal(t, 3, n)
}

func TestTally_Empty(t *testing.T) {
	s := openTestStore(t)

	res, err := s.Tally(context.Background(), "rover", 1)
	require.NoError(t, err)
	assert.Nil(t, res)
}

func TestTally_UnknownColumn(t *testing.T) {
	s := openTestStore(t)

	_, err := s.Tally(context.Background(), "user_id; DROP TABLE votes", 1)
	assert.ErrorIs(t, err, models.ErrUnknownColumn)
}
