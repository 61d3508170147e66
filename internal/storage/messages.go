package storage

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"roverchat/internal/models"
)

// AppendMessage inserts a chat message and returns its server offset.
// A second insert with the same clientOffset returns models.ErrDuplicateKey and writes nothing.
func (s *Store) AppendMessage(ctx context.Context, username, content, clientOffset string, ts time.Time) (int64, error) {
	var id int64
	err := s.db.QueryRowContext(ctx, s.q(`
		INSERT INTO messages (username, content, client_offset, timestamp)
		VALUES (?, ?, ?, ?)
		ON CONFLICT (client_offset) DO NOTHING
		RETURNING id
	`), username, content, clientOffset, toMillis(ts)).Scan(&id)

	if errors.Is(err, sql.ErrNoRows) {
		return 0, models.ErrDuplicateKey
	}
	if err != nil {
		if s.dialect.isUniqueViolation(err) {
			return 0, models.ErrDuplicateKey
		}
		return 0, models.NewStoreError("append message", err)
	}
	return id, nil
}

// MessageByClientOffset returns the message recorded under clientOffset.
// Returns sql.ErrNoRows if there is none.
func (s *Store) MessageByClientOffset(ctx context.Context, clientOffset string) (models.ChatMessage, error) {
	row := s.db.QueryRowContext(ctx, s.q(`
		SELECT id, username, content, client_offset, timestamp
		FROM messages
		WHERE client_offset = ?
	`), clientOffset)

	msg, err := scanMessage(row)
	if errors.Is(err, sql.ErrNoRows) {
		return models.ChatMessage{}, err
	}
	if err != nil {
		return models.ChatMessage{}, models.NewStoreError("read message", err)
	}
	return msg, nil
}

// ReadSince returns messages with id > offset and timestamp >= cutoff in ascending id order.
// Returns an empty slice (not nil) when nothing matches.
func (s *Store) ReadSince(ctx context.Context, offset int64, cutoff time.Time) ([]models.ChatMessage, error) {
	rows, err := s.db.QueryContext(ctx, s.q(`
		SELECT id, username, content, client_offset, timestamp
		FROM messages
		WHERE id > ? AND timestamp >= ?
		ORDER BY id ASC
	`), offset, toMillis(cutoff))
	if err != nil {
		return nil, models.NewStoreError("read since", err)
	}
	defer rows.Close()

	messages := []models.ChatMessage{}
	for rows.Next() {
		msg, err := scanMessage(rows)
		if err != nil {
			return nil, models.NewStoreError("read since", err)
		}
		messages = append(messages, msg)
	}
	if err := rows.Err(); err != nil {
		return nil, models.NewStoreError("read since", fmt.Errorf("iterate messages: %w", err))
	}

	return messages, nil
}

type scanner interface {
	Scan(dest ...any) error
}

func scanMessage(row scanner) (models.ChatMessage, error) {
	var msg models.ChatMessage
	var ts int64
	if err := row.Scan(&msg.ID, &msg.Username, &msg.Content, &msg.ClientOffset, &ts); err != nil {
		return models.ChatMessage{}, err
	}
	msg.Timestamp = fromMillis(ts)
	return msg, nil
}
