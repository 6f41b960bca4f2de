// Assist Move - Real-time Messaging Service
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/assistmove

package dispatcher

import (
	"strings"

	"github.com/goccy/go-json"

	"github.com/tomtom215/assistmove/internal/auth"
	"github.com/tomtom215/assistmove/internal/validation"
)

// MaxContentLength bounds conteudo in characters.
const MaxContentLength = 4000

// Client-facing validation messages.
const (
	msgRequiredFields  = "destinatario_id e conteudo são obrigatórios"
	msgAmbiguousTarget = "informe destinatario_id ou grupo_id, não ambos"
	msgContentTooLong  = "conteudo excede o tamanho máximo"
	msgInvalidPayload  = "Formato de mensagem inválido"
)

// SendRequest is either a PrivateSend or a GroupSend.
type SendRequest interface {
	isSendRequest()
}

// PrivateSend addresses one user.
type PrivateSend struct {
	RecipientID int64
	Content     string
	Attachments []string
}

// GroupSend addresses every member of a group.
type GroupSend struct {
	GroupID     int64
	Content     string
	Attachments []string
}

func (PrivateSend) isSendRequest() {}
func (GroupSend) isSendRequest() {}

// ValidationError rejects a malformed send request. Message is shown to the
// sender as-is.
type ValidationError struct {
	Field   string
	Message string
}

func (e *ValidationError) Error() string {
	if e.Field == "" {
		return e.Message
	}
	return e.Field + ": " + e.Message
}

// sendPayload is the send_message wire shape. Ids accept numbers or numeric
// strings.
type sendPayload struct {
	DestinatarioID *auth.UserID `json:"destinatario_id"`
	GrupoID        *auth.UserID `json:"grupo_id"`
	Conteudo       string       `json:"conteudo" validate:"notblank"`
	Anexos         []string     `json:"anexos" validate:"omitempty,max=10,dive,max=2048"`
}

// ParseSendPayload decodes and validates a send_message payload.
func ParseSendPayload(raw json.RawMessage) (SendRequest, error) {
	var p sendPayload
	if len(raw) == 0 || json.Unmarshal(raw, &p) != nil {
		return nil, &ValidationError{Message: msgInvalidPayload}
	}
	p.Conteudo = strings.TrimSpace(p.Conteudo)

	hasRecipient := p.DestinatarioID != nil && *p.DestinatarioID > 0
	hasGroup := p.GrupoID != nil && *p.GrupoID > 0

	switch {
	case hasRecipient && hasGroup:
		return nil, &ValidationError{Field: "grupo_id", Message: msgAmbiguousTarget}
	case !hasRecipient && !hasGroup:
		return nil, &ValidationError{Field: "destinatario_id", Message: msgRequiredFields}
	}

	if verr := validation.ValidateStruct(&p); verr != nil {
		fe := verr.Errors()[0]
		if fe.Field() == "conteudo" {
			return nil, &ValidationError{Field: "conteudo", Message: msgRequiredFields}
		}
		return nil, &ValidationError{Field: fe.Field(), Message: fe.Error()}
	}
	if len([]rune(p.Conteudo)) > MaxContentLength {
		return nil, &ValidationError{Field: "conteudo", Message: msgContentTooLong}
	}

	if hasGroup {
		return GroupSend{GroupID: int64(*p.GrupoID), Content: p.Conteudo, Attachments: p.Anexos}, nil
	}
	return PrivateSend{RecipientID: int64(*p.DestinatarioID), Content: p.Conteudo, Attachments: p.Anexos}, nil
}
