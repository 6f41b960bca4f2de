// Assist Move - Real-time Messaging Service
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/assistmove

package store

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5"

	"github.com/tomtom215/assistmove/internal/models"
)

const privateColumns = `id, autor_id, destinatario_id, conteudo, lida, data_publicacao`

const groupColumns = `id, autor_id, grupo_id, conteudo, data_publicacao`

func scanPrivate(row pgx.Row) (*models.Message, error) {
	var (
		m         models.Message
		recipient int64
	)
	if err := row.Scan(&m.ID, &m.SenderID, &recipient, &m.Content, &m.Read, &m.CreatedAt); err != nil {
		return nil, err
	}
	m.RecipientID = &recipient
	m.Kind = models.MessageKindText
	m.Attachments = []string{}
	return &m, nil
}

func scanGroup(row pgx.Row) (*models.Message, error) {
	var (
		m       models.Message
		groupID int64
	)
	if err := row.Scan(&m.ID, &m.SenderID, &groupID, &m.Content, &m.CreatedAt); err != nil {
		return nil, err
	}
	m.GroupID = &groupID
	m.Kind = models.MessageKindText
	m.Attachments = []string{}
	return &m, nil
}

func collect(rows pgx.Rows, scan func(pgx.Row) (*models.Message, error)) ([]models.Message, error) {
	defer rows.Close()

	out := make([]models.Message, 0)
	for rows.Next() {
		m, err := scan(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, *m)
	}
	return out, rows.Err()
}

// InsertPrivateMessage persists a direct message and returns it with its
// assigned id and timestamp.
func (s *Store) InsertPrivateMessage(ctx context.Context, senderID, recipientID int64, content string) (msg *models.Message, err error) {
	defer func(start time.Time) { observe("insert_private_message", start, err) }(time.Now())

	msg, err = scanPrivate(s.pool.QueryRow(ctx, `
		INSERT INTO mensagens_usuario (autor_id, destinatario_id, conteudo)
		VALUES ($1, $2, $3)
		RETURNING `+privateColumns,
		senderID, recipientID, content))
	if err != nil {
		return nil, fmt.Errorf("insert private message: %w", err)
	}
	return msg, nil
}

// InsertGroupMessage persists a group message.
func (s *Store) InsertGroupMessage(ctx context.Context, senderID, groupID int64, content string) (msg *models.Message, err error) {
	defer func(start time.Time) { observe("insert_group_message", start, err) }(time.Now())

	msg, err = scanGroup(s.pool.QueryRow(ctx, `
		INSERT INTO mensagens_grupo (grupo_id, autor_id, conteudo)
		VALUES ($1, $2, $3)
		RETURNING `+groupColumns,
		groupID, senderID, content))
	if err != nil {
		return nil, fmt.Errorf("insert group message: %w", err)
	}
	return msg, nil
}

// Conversation returns the private messages exchanged by two users, oldest
// first.
func (s *Store) Conversation(ctx context.Context, userID, otherID int64, limit, offset int) (msgs []models.Message, err error) {
	defer func(start time.Time) { observe("conversation", start, err) }(time.Now())

	rows, err := s.pool.Query(ctx, `
		SELECT `+privateColumns+`
		FROM mensagens_usuario
		WHERE ativo = TRUE
		  AND ((autor_id = $1 AND destinatario_id = $2) OR (autor_id = $2 AND destinatario_id = $1))
		ORDER BY data_publicacao ASC, id ASC
		LIMIT $3 OFFSET $4`,
		userID, otherID, limit, offset)
	if err != nil {
		return nil, fmt.Errorf("query conversation: %w", err)
	}
	return collect(rows, scanPrivate)
}

// RecentPrivateMessages returns the newest private messages sent or received
// by userID, newest first.
func (s *Store) RecentPrivateMessages(ctx context.Context, userID int64, limit int) (msgs []models.Message, err error) {
	defer func(start time.Time) { observe("recent_private_messages", start, err) }(time.Now())

	rows, err := s.pool.Query(ctx, `
		SELECT `+privateColumns+`
		FROM mensagens_usuario
		WHERE ativo = TRUE AND (autor_id = $1 OR destinatario_id = $1)
		ORDER BY data_publicacao DESC, id DESC
		LIMIT $2`,
		userID, limit)
	if err != nil {
		return nil, fmt.Errorf("query recent messages: %w", err)
	}
	return collect(rows, scanPrivate)
}

// GroupMessages returns a group's messages, newest first.
func (s *Store) GroupMessages(ctx context.Context, groupID int64, limit, offset int) (msgs []models.Message, err error) {
	defer func(start time.Time) { observe("group_messages", start, err) }(time.Now())

	rows, err := s.pool.Query(ctx, `
		SELECT `+groupColumns+`
		FROM mensagens_grupo
		WHERE grupo_id = $1 AND ativo = TRUE
		ORDER BY data_publicacao DESC, id DESC
		LIMIT $2 OFFSET $3`,
		groupID, limit, offset)
	if err != nil {
		return nil, fmt.Errorf("query group messages: %w", err)
	}
	return collect(rows, scanGroup)
}

// PrivateMessage loads one private message.
func (s *Store) PrivateMessage(ctx context.Context, id int64) (msg *models.Message, err error) {
	defer func(start time.Time) { observe("private_message", start, err) }(time.Now())

	msg, err = scanPrivate(s.pool.QueryRow(ctx, `
		SELECT `+privateColumns+` FROM mensagens_usuario WHERE id = $1 AND ativo = TRUE`, id))
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("load message %d: %w", id, err)
	}
	return msg, nil
}

// MarkPrivateRead flags a message read when readerID is its recipient and it
// is still unread. It reports whether a row changed.
func (s *Store) MarkPrivateRead(ctx context.Context, id, readerID int64) (changed bool, err error) {
	defer func(start time.Time) { observe("mark_private_read", start, err) }(time.Now())

	tag, err := s.pool.Exec(ctx, `
		UPDATE mensagens_usuario SET lida = TRUE
		WHERE id = $1 AND destinatario_id = $2 AND lida = FALSE`,
		id, readerID)
	if err != nil {
		return false, fmt.Errorf("mark message %d read: %w", id, err)
	}
	return tag.RowsAffected() > 0, nil
}

// MarkPrivateReadBatch flags every listed message addressed to recipientID
// as read. Ids of other users' messages are ignored.
func (s *Store) MarkPrivateReadBatch(ctx context.Context, ids []int64, recipientID int64) (n int64, err error) {
	if len(ids) == 0 {
		return 0, nil
	}
	defer func(start time.Time) { observe("mark_private_read_batch", start, err) }(time.Now())

	tag, err := s.pool.Exec(ctx, `
		UPDATE mensagens_usuario SET lida = TRUE
		WHERE id = ANY($1) AND destinatario_id = $2`,
		ids, recipientID)
	if err != nil {
		return 0, fmt.Errorf("mark drained messages read: %w", err)
	}
	return tag.RowsAffected(), nil
}
