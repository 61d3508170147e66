package models

import (
	"fmt"
	"time"
)

// PollState is a snapshot of the voting session. The poll engine owns the live value.
type PollState struct {
	Active    bool          `json:"active"`
	Session   int64         `json:"session"`
	StartedAt time.Time     `json:"started_at"`
	Duration  time.Duration `json:"duration"`
}

// Remaining is max(0, Duration - elapsed). Zero when inactive.
func (s PollState) Remaining(now time.Time) time.Duration {
	if !s.Active {
		return 0
	}
	left := s.Duration - now.Sub(s.StartedAt)
	if left < 0 {
		return 0
	}
	return left
}

// AcceptsVotes reports whether a vote submitted at now belongs to the session.
func (s PollState) AcceptsVotes(now time.Time) bool {
	return s.Remaining(now) > 0
}

// CheckVote is AcceptsVotes as an error: ErrNoActivePoll outside an open session.
func (s PollState) CheckVote(now time.Time) error {
	if !s.AcceptsVotes(now) {
		return fmt.Errorf("session %d: %w", s.Session, ErrNoActivePoll)
	}
	return nil
}

// PollResult records a closed session. Winner is nil when nobody voted.
type PollResult struct {
	Session  int64        `json:"session"`
	Column   string       `json:"column"`
	Winner   *TallyResult `json:"winner"`
	Votes    int          `json:"votes"`
	OpenedAt time.Time    `json:"opened_at"`
	ClosedAt time.Time    `json:"closed_at"`
}
