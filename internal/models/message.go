package models

import (
	"bytes"
	"encoding/json"
	"fmt"
	"strconv"
)

// ConversationMessageType is the type tag of plain text chat messages.
// Media, reactions and protocol events carry other tags.
const ConversationMessageType = "conversation"

// AnonymousUser is the name given to messages whose sender has no display name
const AnonymousUser = "Anônimo"

// RawMessageRecord represents one message entry as returned by the messaging backend
type RawMessageRecord struct {
	MessageType string          `json:"messageType"`
	PushName    string          `json:"pushName,omitempty"`
	Message     *MessageContent `json:"message,omitempty"`
	Timestamp   UnixTimestamp   `json:"messageTimestamp"`
}

// MessageContent holds the body of a raw message record.
// Only the plain text body is tracked.
type MessageContent struct {
	Conversation string `json:"conversation,omitempty"`
}

// UnixTimestamp is a number of seconds since the epoch.
// The backend encodes it as a JSON number, a quoted decimal string or a {low, high} pair.
type UnixTimestamp int64

// longTimestamp is the {low, high} split of a 64-bit integer some backends emit
type longTimestamp struct {
	Low  int64 `json:"low"`
	High int64 `json:"high"`
}

// UnmarshalJSON implements custom JSON unmarshalling for UnixTimestamp.
// Accepts 1700000000, "1700000000", {"low":1700000000,"high":0} and null (zero).
func (ts *UnixTimestamp) UnmarshalJSON(data []byte) error {
	data = bytes.TrimSpace(data)

	if bytes.Equal(data, []byte("null")) {
		*ts = 0
		return nil
	}

	if len(data) > 0 && data[0] == '{' {
		var long longTimestamp
		if err := json.Unmarshal(data, &long); err != nil {
			return fmt.Errorf("invalid timestamp format: %w", err)
		}
		*ts = UnixTimestamp(long.High<<32 | int64(uint32(long.Low)))
		return nil
	}

	// Strip quotes of string-encoded values
	if len(data) >= 2 && data[0] == '"' && data[len(data)-1] == '"' {
		data = data[1 : len(data)-1]
	}

	// When Unmarshal is done into an interface value, numbers become float64.
	// Parse the raw literal instead to keep full int64 precision.
	tsUnix, err := strconv.ParseInt(string(data), 10, 64)
	if err != nil {
		tsFloat, floatErr := strconv.ParseFloat(string(data), 64)
		if floatErr != nil {
			return fmt.Errorf("invalid timestamp format: %w", err)
		}
		tsUnix = int64(tsFloat)
	}

	*ts = UnixTimestamp(tsUnix)

	return nil
}

// Text returns the plain text body of the record, or an empty string when absent
func (r *RawMessageRecord) Text() string {
	if r.Message == nil {
		return ""
	}
	return r.Message.Conversation
}

// SenderName returns the display name of the sender, or AnonymousUser when absent
func (r *RawMessageRecord) SenderName() string {
	if r.PushName == "" {
		return AnonymousUser
	}
	return r.PushName
}

// IsConversation reports whether the record is a plain text chat message
func (r *RawMessageRecord) IsConversation() bool {
	return r.MessageType == ConversationMessageType
}

// NormalizedMessage is a conversation message reduced to the fields used for analysis
type NormalizedMessage struct {
	UserName  string `json:"name_user"`
	Text      string `json:"text"`
	Timestamp int64  `json:"timestamp"`
}

// FindMessagesRequest is the body of a message query sent to the backend
type FindMessagesRequest struct {
	Where FindMessagesWhere `json:"where"`
}

type FindMessagesWhere struct {
	Key FindMessagesKey `json:"key"`
}

type FindMessagesKey struct {
	RemoteJID string `json:"remoteJid"`
}

// NewFindMessagesRequest builds a message query for a single conversation
func NewFindMessagesRequest(remoteJID string) FindMessagesRequest {
	return FindMessagesRequest{
		Where: FindMessagesWhere{
			Key: FindMessagesKey{RemoteJID: remoteJID},
		},
	}
}

// FindMessagesResponse is the envelope returned by the backend.
// Records are kept raw so one odd record cannot fail the whole envelope.
type FindMessagesResponse struct {
	Messages *struct {
		Records []json.RawMessage `json:"records"`
	} `json:"messages"`
}

// GetRecords returns the raw message records of the envelope, or nil when absent
func (r *FindMessagesResponse) GetRecords() []json.RawMessage {
	if r.Messages == nil {
		return nil
	}
	return r.Messages.Records
}

// DecodeRecords decodes raw records, reading only the type of non-conversation ones.
// Records that cannot be decoded are skipped and counted.
func DecodeRecords(raws []json.RawMessage) ([]RawMessageRecord, int) {
	records := make([]RawMessageRecord, 0, len(raws))
	skipped := 0

	for _, raw := range raws {
		var header struct {
			MessageType string `json:"messageType"`
		}
		if err := json.Unmarshal(raw, &header); err != nil {
			skipped++
			continue
		}

		if header.MessageType != ConversationMessageType {
			records = append(records, RawMessageRecord{MessageType: header.MessageType})
			continue
		}

		var record RawMessageRecord
		if err := json.Unmarshal(raw, &record); err != nil {
			skipped++
			continue
		}
		records = append(records, record)
	}

	return records, skipped
}

// BackendErrorBody is the error payload returned by the backend on failure.
// The message field is either a string or a list of strings.
// Some deployments nest it under "response".
type BackendErrorBody struct {
	Message  json.RawMessage `json:"message"`
	Response *struct {
		Message json.RawMessage `json:"message"`
	} `json:"response"`
}
