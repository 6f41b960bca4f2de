// Assist Move - Real-time Messaging Service
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/assistmove

// Package authz decides what a group member may do, using Casbin.
//
// Subjects are member roles (grupo_membros.papel), objects are fixed
// resource names and actions are verbs:
//
//	p, membro, group, read
//	p, membro, group, send
//	p, admin, group, add_member
//	g, owner, admin
//	g, admin, membro
//
// Role inheritance means owner and admin may do everything a membro may.
// Whether a user belongs to the group at all is decided by the caller from
// the store; the enforcer only answers for a known role.
//
// # Usage
//
//	e, err := authz.NewEnforcer(nil)
//	if err != nil {
//	    return err
//	}
//	ok, err := e.Can(models.RoleMember, authz.ActionAddMember) // false
package authz
