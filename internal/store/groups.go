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
	"github.com/jackc/pgx/v5/pgconn"

	"github.com/tomtom215/assistmove/internal/models"
)

// foreign_key_violation
const pgForeignKeyViolation = "23503"

// GroupIDsForUser lists the groups userID belongs to.
func (s *Store) GroupIDsForUser(ctx context.Context, userID int64) (ids []int64, err error) {
	defer func(start time.Time) { observe("group_ids_for_user", start, err) }(time.Now())

	rows, err := s.pool.Query(ctx, `SELECT grupo_id FROM grupo_membros WHERE usuario_id = $1 ORDER BY grupo_id`, userID)
	if err != nil {
		return nil, fmt.Errorf("query memberships: %w", err)
	}
	return pgx.CollectRows(rows, pgx.RowTo[int64])
}

// GroupMemberIDs lists every member of a group.
func (s *Store) GroupMemberIDs(ctx context.Context, groupID int64) (ids []int64, err error) {
	defer func(start time.Time) { observe("group_member_ids", start, err) }(time.Now())

	rows, err := s.pool.Query(ctx, `SELECT usuario_id FROM grupo_membros WHERE grupo_id = $1 ORDER BY usuario_id`, groupID)
	if err != nil {
		return nil, fmt.Errorf("query group members: %w", err)
	}
	return pgx.CollectRows(rows, pgx.RowTo[int64])
}

// MemberRole returns userID's papel in the group, or ErrNotFound when the
// user is not a member.
func (s *Store) MemberRole(ctx context.Context, groupID, userID int64) (role string, err error) {
	defer func(start time.Time) { observe("member_role", start, err) }(time.Now())

	err = s.pool.QueryRow(ctx, `
		SELECT papel FROM grupo_membros WHERE grupo_id = $1 AND usuario_id = $2`,
		groupID, userID).Scan(&role)
	if errors.Is(err, pgx.ErrNoRows) {
		return "", ErrNotFound
	}
	if err != nil {
		return "", fmt.Errorf("query member role: %w", err)
	}
	return role, nil
}

// IsGroupMember reports whether userID belongs to the group.
func (s *Store) IsGroupMember(ctx context.Context, groupID, userID int64) (bool, error) {
	_, err := s.MemberRole(ctx, groupID, userID)
	if errors.Is(err, ErrNotFound) {
		return false, nil
	}
	return err == nil, err
}

// CreateGroup inserts a group and makes creatorID its admin in one
// transaction.
func (s *Store) CreateGroup(ctx context.Context, creatorID int64, nome string, descricao *string) (group *models.Group, err error) {
	defer func(start time.Time) { observe("create_group", start, err) }(time.Now())

	tx, err := s.pool.Begin(ctx)
	if err != nil {
		return nil, fmt.Errorf("begin transaction: %w", err)
	}
	defer tx.Rollback(ctx) //nolint:errcheck // no-op after commit

	var g models.Group
	err = tx.QueryRow(ctx, `
		INSERT INTO grupos (nome, descricao) VALUES ($1, $2)
		RETURNING id, nome, descricao, ativo, data_criacao`,
		nome, descricao).Scan(&g.ID, &g.Nome, &g.Descricao, &g.Ativo, &g.DataCriacao)
	if err != nil {
		return nil, fmt.Errorf("insert group: %w", err)
	}

	if _, err = tx.Exec(ctx, `
		INSERT INTO grupo_membros (grupo_id, usuario_id, papel) VALUES ($1, $2, $3)`,
		g.ID, creatorID, models.RoleAdmin); err != nil {
		return nil, fmt.Errorf("insert creator membership: %w", translate(err))
	}

	if err = tx.Commit(ctx); err != nil {
		return nil, fmt.Errorf("commit group: %w", err)
	}
	return &g, nil
}

// AddGroupMember adds userID to the group or updates the papel of an
// existing member.
func (s *Store) AddGroupMember(ctx context.Context, groupID, userID int64, papel string) (m *models.Membership, err error) {
	defer func(start time.Time) { observe("add_group_member", start, err) }(time.Now())

	var out models.Membership
	err = s.pool.QueryRow(ctx, `
		INSERT INTO grupo_membros (grupo_id, usuario_id, papel)
		VALUES ($1, $2, $3)
		ON CONFLICT (grupo_id, usuario_id) DO UPDATE SET papel = EXCLUDED.papel
		RETURNING grupo_id, usuario_id, papel`,
		groupID, userID, papel).Scan(&out.GrupoID, &out.UsuarioID, &out.Papel)
	if err != nil {
		return nil, fmt.Errorf("add member: %w", translate(err))
	}
	return &out, nil
}

// GroupsForUser lists the active groups userID belongs to, by name.
func (s *Store) GroupsForUser(ctx context.Context, userID int64) (groups []models.Group, err error) {
	defer func(start time.Time) { observe("groups_for_user", start, err) }(time.Now())

	rows, err := s.pool.Query(ctx, `
		SELECT g.id, g.nome, g.descricao, g.ativo, g.data_criacao
		FROM grupos g
		JOIN grupo_membros gm ON gm.grupo_id = g.id
		WHERE gm.usuario_id = $1 AND g.ativo = TRUE
		ORDER BY g.nome ASC`, userID)
	if err != nil {
		return nil, fmt.Errorf("query groups: %w", err)
	}
	return pgx.CollectRows(rows, func(row pgx.CollectableRow) (models.Group, error) {
		var g models.Group
		err := row.Scan(&g.ID, &g.Nome, &g.Descricao, &g.Ativo, &g.DataCriacao)
		return g, err
	})
}

// GroupMembers lists a group's members joined with their profile.
func (s *Store) GroupMembers(ctx context.Context, groupID int64) (members []models.GroupMember, err error) {
	defer func(start time.Time) { observe("group_members", start, err) }(time.Now())

	rows, err := s.pool.Query(ctx, `
		SELECT gm.usuario_id, gm.papel, u.nome, u.email
		FROM grupo_membros gm
		JOIN usuarios u ON u.id = gm.usuario_id
		WHERE gm.grupo_id = $1
		ORDER BY u.nome ASC`, groupID)
	if err != nil {
		return nil, fmt.Errorf("query members: %w", err)
	}
	return pgx.CollectRows(rows, func(row pgx.CollectableRow) (models.GroupMember, error) {
		var m models.GroupMember
		err := row.Scan(&m.UsuarioID, &m.Papel, &m.Nome, &m.Email)
		return m, err
	})
}

// translate maps constraint violations on unknown users or groups to
// ErrNotFound.
func translate(err error) error {
	var pgErr *pgconn.PgError
	if errors.As(err, &pgErr) && pgErr.Code == pgForeignKeyViolation {
		return ErrNotFound
	}
	return err
}
