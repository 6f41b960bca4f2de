// Assist Move - Real-time Messaging Service
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/assistmove

package store

import (
	"context"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5"

	"github.com/tomtom215/assistmove/internal/models"
)

// ActiveUsers lists every active user ordered by name.
func (s *Store) ActiveUsers(ctx context.Context) (users []models.User, err error) {
	defer func(start time.Time) { observe("active_users", start, err) }(time.Now())

	rows, err := s.pool.Query(ctx, `
		SELECT id, nome, email, papel FROM usuarios WHERE ativo = TRUE ORDER BY nome`)
	if err != nil {
		return nil, fmt.Errorf("query users: %w", err)
	}
	return pgx.CollectRows(rows, func(row pgx.CollectableRow) (models.User, error) {
		var u models.User
		err := row.Scan(&u.ID, &u.Nome, &u.Email, &u.Role)
		return u, err
	})
}

// CreateUser inserts a user. The account subsystem owns users; this exists
// for seeding and tests.
func (s *Store) CreateUser(ctx context.Context, nome, email, papel string) (user *models.User, err error) {
	defer func(start time.Time) { observe("create_user", start, err) }(time.Now())

	var u models.User
	err = s.pool.QueryRow(ctx, `
		INSERT INTO usuarios (nome, email, papel) VALUES ($1, $2, $3)
		RETURNING id, nome, email, papel`,
		nome, email, papel).Scan(&u.ID, &u.Nome, &u.Email, &u.Role)
	if err != nil {
		return nil, fmt.Errorf("insert user: %w", err)
	}
	return &u, nil
}
