package models

import (
	"fmt"
	"strings"
	"time"
)

// ChatMessage is a persisted chat event. ID is the server offset.
type ChatMessage struct {
	ID           int64     `json:"id"`
	Username     string    `json:"username"`
	Content      string    `json:"content"`
	ClientOffset string    `json:"client_offset"`
	Timestamp    time.Time `json:"timestamp"`
}

// ChatInput is the payload of an inbound "chat message" event.
type ChatInput struct {
	Username     string `json:"username"`
	Content      string `json:"content"`
	ClientOffset string `json:"clientOffset"`
	Timestamp    string `json:"timestamp"`
}

func (in *ChatInput) Complete() bool {
	return in.Username != "" && strings.TrimSpace(in.Content) != "" && in.ClientOffset != ""
}

// Validate returns ErrIncompleteInput when a required field is missing.
func (in *ChatInput) Validate() error {
	if !in.Complete() {
		return fmt.Errorf("chat message: %w", ErrIncompleteInput)
	}
	return nil
}

// SentAt parses the client timestamp, falling back to now when it is absent or malformed.
func (in *ChatInput) SentAt(now time.Time) time.Time {
	if in.Timestamp == "" {
		return now
	}
	ts, err := time.Parse(time.RFC3339Nano, in.Timestamp)
	if err != nil {
		return now
	}
	return ts
}
