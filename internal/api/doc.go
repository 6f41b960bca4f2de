// Assist Move - Real-time Messaging Service
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/assistmove

// Package api exposes the messaging service over HTTP.
//
// Routes (chi):
//
//	GET   /health                         liveness and dependency status
//	GET   /metrics                        Prometheus exposition
//	GET   /ws                             WebSocket upgrade (path configurable)
//	GET   /api/mensagens/usuarios         user directory
//	GET   /api/mensagens/conversas        latest private messages of the caller
//	GET   /api/mensagens/conversa/{id}    private history with a user, oldest first
//	PATCH /api/mensagens/{id}/lida        mark a received message read
//	GET   /api/grupos                     caller's groups
//	POST  /api/grupos                     create a group
//	GET   /api/grupos/{id}/membros        members of a group
//	POST  /api/grupos/{id}/membros        add or update a member
//	GET   /api/grupos/{id}/mensagens      group history, newest first
//
// Every /api route requires a bearer token. Responses use the
// models.APIResponse envelope.
//
// The WebSocket endpoint runs the connection gate before upgrading. A
// rejected handshake gets a JSON body shaped like a socket frame:
//
//	{"type":"connect_error","data":{"message":"CORS: Origin not allowed"}}
//
// Accepted sockets are served by socketHandler, which routes client events
// to presence, the dispatcher and the conversation service.
package api
