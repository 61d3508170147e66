package storage

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"roverchat/internal/models"
)

// tallyColumns is the set of vote columns that may be grouped on.
var tallyColumns = map[string]struct{}{
	"day":    {},
	"rover":  {},
	"camera": {},
}

// RecordVote inserts a vote for vote.Session. The existence check and the insert share a
// transaction, and the (user_id, session) unique index rejects a racing insert, so exactly
// one of two concurrent votes from the same user succeeds.
func (s *Store) RecordVote(ctx context.Context, vote models.Vote) error {
	if vote.Timestamp.IsZero() {
		vote.Timestamp = time.Now()
	}

	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return models.NewStoreError("record vote: begin tx", err)
	}
	defer tx.Rollback()

	var exists int
	err = tx.QueryRowContext(ctx, s.q(`
		SELECT 1 FROM votes WHERE user_id = ? AND session = ?
	`), vote.UserID, vote.Session).Scan(&exists)
	switch {
	case err == nil:
		return models.ErrAlreadyVoted
	case !errors.Is(err, sql.ErrNoRows):
		return models.NewStoreError("record vote: check existing", err)
	}

	_, err = tx.ExecContext(ctx, s.q(`
		INSERT INTO votes (user_id, day, rover, camera, session, timestamp)
		VALUES (?, ?, ?, ?, ?, ?)
	`), vote.UserID, vote.Day, vote.Rover, vote.Camera, vote.Session, toMillis(vote.Timestamp))
	if err != nil {
		if s.dialect.isUniqueViolation(err) {
			return models.ErrAlreadyVoted
		}
		return models.NewStoreError("record vote: insert", err)
	}

	if err := tx.Commit(); err != nil {
		if s.dialect.isUniqueViolation(err) {
			return models.ErrAlreadyVoted
		}
		return models.NewStoreError("record vote: commit", err)
	}
	return nil
}

// ClearVotes deletes every vote row. Called once per poll session start.
func (s *Store) ClearVotes(ctx context.Context) error {
	if _, err := s.db.ExecContext(ctx, `DELETE FROM votes`); err != nil {
		return models.NewStoreError("clear votes", err)
	}
	return nil
}

func (s *Store) CountVotes(ctx context.Context, session int64) (int, error) {
	var n int
	err := s.db.QueryRowContext(ctx, s.q(`SELECT COUNT(*) FROM votes WHERE session = ?`), session).Scan(&n)
	if err != nil {
		return 0, models.NewStoreError("count votes", err)
	}
	return n, nil
}

// Tally returns the most voted value of column within session, or nil when there are no votes.
// Ties are resolved by the database's row order.
func (s *Store) Tally(ctx context.Context, column string, session int64) (*models.TallyResult, error) {
	if _, ok := tallyColumns[column]; !ok {
		return nil, fmt.Errorf("tally %q: %w", column, models.ErrUnknownColumn)
	}

	var res models.TallyResult
	err := s.db.QueryRowContext(ctx, s.q(fmt.Sprintf(`
		SELECT %[1]s AS value, COUNT(*) AS total
		FROM votes
		WHERE session = ?
		GROUP BY %[1]s
		ORDER BY total DESC
		LIMIT 1
	`, column)), session).Scan(&res.Value, &res.Count)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, models.NewStoreError("tally", err)
	}
	return &res, nil
}
