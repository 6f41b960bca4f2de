// Assist Move - Real-time Messaging Service
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/assistmove

/*
Package websocket carries chat events between the server and browser sockets.

Every frame is a JSON object with an event name and a payload:

	{"type": "new_message", "data": {"id": 10, "remetente_id": 1, "conteudo": "oi"}}

Key Components:

  - Hub: owns the connected clients and routes events to one socket, every
    socket of a user, every socket in a room, or everyone
  - Client: one socket with its read and write goroutines
  - Handler: the application callbacks for connect, inbound events and
    disconnect

The hub keeps the presence registry in step with its client set: a client is
registered in presence when the hub accepts it and removed when it leaves.

Client events: join_groups, send_message, read_message, typing, ping.

Server events: message_sent, new_message, message_error, joined_groups,
message_read, user_status, user_typing, notification, pong.

Each client processes its inbound frames sequentially, so messages sent from
one socket are dispatched in the order they were written.
*/
package websocket
