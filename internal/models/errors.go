package models

import (
	"errors"
	"fmt"
)

var (
	// ErrDuplicateKey means the client offset was already recorded. Callers treat it as delivered.
	ErrDuplicateKey    = errors.New("duplicate client offset")
	ErrAlreadyVoted    = errors.New("user has already voted")
	ErrIncompleteInput = errors.New("incomplete input")
	ErrNoActivePoll    = errors.New("no active poll session")
	ErrUnknownColumn   = errors.New("unknown vote column")
)

// StoreError wraps an unexpected storage failure.
type StoreError struct {
	Op  string
	Err error
}

func (e *StoreError) Error() string {
	return fmt.Sprintf("store: %s: %v", e.Op, e.Err)
}

func (e *StoreError) Unwrap() error {
	return e.Err
}

func NewStoreError(op string, err error) error {
	return &StoreError{Op: op, Err: err}
}
