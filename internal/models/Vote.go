package models

import (
	"fmt"
	"time"
)

type Vote struct {
	ID        int64     `json:"id"`
	UserID    string    `json:"user_id"`
	Day       string    `json:"day"`
	Rover     string    `json:"rover"`
	Camera    string    `json:"camera"`
	Session   int64     `json:"session"`
	Timestamp time.Time `json:"timestamp"`
}

// VoteInput is the payload of an inbound "userVote" event.
type VoteInput struct {
	UserID      string `json:"userId"`
	DayValue    string `json:"dayValue"`
	RoverValue  string `json:"roverValue"`
	CameraValue string `json:"cameraValue"`
}

func (in *VoteInput) Complete() bool {
	return in.UserID != "" && in.DayValue != "" && in.RoverValue != "" && in.CameraValue != ""
}

func (in *VoteInput) Validate() error {
	if !in.Complete() {
		return fmt.Errorf("vote: %w", ErrIncompleteInput)
	}
	return nil
}

type TallyResult struct {
	Value string `json:"value"`
	Count int    `json:"count"`
}
