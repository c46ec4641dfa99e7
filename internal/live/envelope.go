package live

import (
	"bytes"
	"encoding/json"

	"github.com/Friiyous/reseau-social/internal/apperr"
)

// Inbound envelope types.
const (
	TypeMessage     = "message"
	TypeTyping      = "typing"
	TypeReadReceipt = "read_receipt"
)

// Envelope is one inbound frame from a client. Fields are pointers so a
// missing field can be told apart from a zero value.
type Envelope struct {
	Type        string          `json:"type"`
	RecipientID *int64          `json:"recipient_id,omitempty"`
	SenderID    *int64          `json:"sender_id,omitempty"`
	MessageID   *int64          `json:"message_id,omitempty"`
	IsTyping    *bool           `json:"is_typing,omitempty"`
	Data        json.RawMessage `json:"data,omitempty"`
}

// Known reports whether the envelope type is one the hub dispatches.
func (e *Envelope) Known() bool {
	switch e.Type {
	case TypeMessage, TypeTyping, TypeReadReceipt:
		return true
	}
	return false
}

// DecodeEnvelope parses and validates one frame. It returns a Malformed
// error when the frame is not JSON or a known type lacks a required field.
// Unknown types decode without error.
func DecodeEnvelope(raw []byte) (*Envelope, error) {
	var env Envelope
	if err := json.Unmarshal(raw, &env); err != nil {
		return nil, apperr.Wrap(apperr.CodeMalformed, "envelope is not valid JSON", err)
	}
	if env.Type == "" {
		return nil, apperr.Malformed("envelope type is required")
	}

	switch env.Type {
	case TypeMessage:
		if env.RecipientID == nil {
			return nil, apperr.Malformed("message requires recipient_id")
		}
		if isAbsent(env.Data) {
			return nil, apperr.Malformed("message requires data")
		}
	case TypeTyping:
		if env.RecipientID == nil {
			return nil, apperr.Malformed("typing requires recipient_id")
		}
		if env.IsTyping == nil {
			return nil, apperr.Malformed("typing requires is_typing")
		}
	case TypeReadReceipt:
		if env.SenderID == nil {
			return nil, apperr.Malformed("read_receipt requires sender_id")
		}
		if env.MessageID == nil {
			return nil, apperr.Malformed("read_receipt requires message_id")
		}
	}
	return &env, nil
}

func isAbsent(raw json.RawMessage) bool {
	trimmed := bytes.TrimSpace(raw)
	return len(trimmed) == 0 || bytes.Equal(trimmed, []byte("null"))
}
