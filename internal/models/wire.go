// Package models: wire envelope types for the remote conversation protocol.
//
// Every outbound request is an Envelope; every inbound message is a
// ServerMessage. Fields are identified by name on the wire.
package models

import "encoding/json"

// ClientMessageType enumerates outbound request types.
type ClientMessageType string

const (
	// ClientSetupForm transfers the form definition at session start.
	ClientSetupForm ClientMessageType = "setup-form"
	// ClientValidationRequest asks the remote service to validate free-form
	// input against the current field.
	ClientValidationRequest ClientMessageType = "validation-request"
	// ClientIntentRequest asks the remote service to detect navigation
	// intents in free-form input.
	ClientIntentRequest ClientMessageType = "intent-request"
)

// ServerMessageType enumerates inbound message types.
type ServerMessageType string

const (
	ServerSessionID       ServerMessageType = "session-id"
	ServerSessionNotFound ServerMessageType = "session-not-found"
	ServerReplyStart      ServerMessageType = "reply-start"
	ServerReplyChunk      ServerMessageType = "reply-chunk"
	ServerReplyEnd        ServerMessageType = "reply-end"
	ServerIntentSkip      ServerMessageType = "intent-skip"
	ServerIntentLast      ServerMessageType = "intent-last"
	ServerIntentEnd       ServerMessageType = "intent-end"
	ServerIntentMoveTo    ServerMessageType = "intent-move-to"
	ServerInterrupt       ServerMessageType = "interrupt"
	ServerError           ServerMessageType = "error"
)

// Envelope is the outbound request frame.
type Envelope struct {
	Type      ClientMessageType `json:"type"`
	SessionID string            `json:"sessionId,omitempty"`
	Data      json.RawMessage   `json:"data,omitempty"`
}

// ServerMessage is the inbound message frame. reply-chunk and intent-chunk
// class messages carry streamable text in Data; reply-end class messages
// carry the terminal verdict fields.
type ServerMessage struct {
	Type          ServerMessageType `json:"type"`
	FieldName     string            `json:"fieldName,omitempty"`
	Data          string            `json:"data,omitempty"`
	Valid         *bool             `json:"valid,omitempty"`
	Skip          *bool             `json:"skip,omitempty"`
	Last          *bool             `json:"last,omitempty"`
	End           *bool             `json:"end,omitempty"`
	MoveToName    string            `json:"moveToName,omitempty"`
	ValidYes      *bool             `json:"validYes,omitempty"`
	ValidNo       *bool             `json:"validNo,omitempty"`
	Number        *float64          `json:"number,omitempty"`
	SelectOption  string            `json:"selectOption,omitempty"`
	SelectOptions []string          `json:"selectOptions,omitempty"`
}

// FieldHistoryEntry is one {field, answer, remote-reply} tuple sent with
// validation requests to supply conversational context.
type FieldHistoryEntry struct {
	Name   string    `json:"name"`
	Kind   FieldKind `json:"type"`
	Valid  bool      `json:"valid"`
	Answer string    `json:"answer,omitempty"`
	Reply  string    `json:"reply,omitempty"`
}

// ValidationRequest is the payload of a validation-request envelope.
type ValidationRequest struct {
	FieldName string              `json:"fieldName"`
	Question  string              `json:"question"`
	Input     string              `json:"input"`
	History   []FieldHistoryEntry `json:"history,omitempty"`
}

// IntentRequest is the payload of an intent-request envelope.
type IntentRequest struct {
	FieldName string `json:"fieldName"`
	Question  string `json:"question"`
	Input     string `json:"input"`
}
