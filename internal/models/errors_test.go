package models

import (
	"database/sql"
	"errors"
	"fmt"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestStoreError_Unwraps(t *testing.T) {
	err := fmt.Errorf("append: %w", NewStoreError("insert message", sql.ErrConnDone))

	var se *StoreError
	assert.True(t, errors.As(err, &se))
	assert.Equal(t, "insert message", se.Op)
	assert.ErrorIs(t, err, sql.ErrConnDone)
	assert.Contains(t, err.Error(), "store: insert message")
}

func TestSentinels_AreDistinct(t *testing.T) {
	assert.NotErrorIs(t, ErrDuplicateKey, ErrAlreadyVoted)
	assert.NotErrorIs(t, NewStoreError("x", ErrDuplicateKey), ErrAlreadyVoted)
}
