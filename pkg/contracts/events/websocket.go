// Package events contains the WebSocket message contracts used to report the
// progress of statement analysis batches.
package events

import (
	"time"

	"github.com/google/uuid"
)

// ProtocolVersion of the progress stream
const ProtocolVersion = "1.0"

// MessageType defines the type of WebSocket message
type MessageType string

const (
	// One statement of a batch finished, successfully or not
	MessageTypeFileAnalyzed MessageType = "analysis:file"
	// Every statement of a batch finished
	MessageTypeBatchCompleted MessageType = "analysis:batch"

	// Connection messages
	MessageTypeConnect MessageType = "connect"
	MessageTypeError   MessageType = "error"
)

// BaseMessage represents the base structure for all WebSocket messages
type BaseMessage struct {
	ID        string      `json:"id,omitempty"`
	Type      MessageType `json:"type"`
	Timestamp time.Time   `json:"timestamp"`
	TraceID   string      `json:"trace_id,omitempty"`
}

// WebSocketMessage represents a complete WebSocket message
type WebSocketMessage struct {
	BaseMessage
	Data interface{} `json:"data,omitempty"`
}

// NewMessage stamps a message with a fresh id and the current time.
func NewMessage(msgType MessageType, traceID string, data interface{}) WebSocketMessage {
	return WebSocketMessage{
		BaseMessage: BaseMessage{
			ID:        uuid.NewString(),
			Type:      msgType,
			Timestamp: time.Now().UTC(),
			TraceID:   traceID,
		},
		Data: data,
	}
}

// FileAnalyzed is the payload of MessageTypeFileAnalyzed.
type FileAnalyzed struct {
	BatchID   string `json:"batch_id"`
	Index     int    `json:"index"`
	Total     int    `json:"total"`
	FileName  string `json:"file_name"`
	Succeeded bool   `json:"succeeded"`
	// Set for successful files
	Status          string `json:"status,omitempty"`
	ContributionPct string `json:"contribution_pct,omitempty"`
	TradingDays     int    `json:"trading_days,omitempty"`
	// Set for failed files
	ErrorKind  string `json:"error_kind,omitempty"`
	Error      string `json:"error,omitempty"`
	DurationMS int64  `json:"duration_ms"`
}

// BatchCompleted is the payload of MessageTypeBatchCompleted.
type BatchCompleted struct {
	BatchID    string `json:"batch_id"`
	Total      int    `json:"total"`
	Succeeded  int    `json:"succeeded"`
	Failed     int    `json:"failed"`
	DurationMS int64  `json:"duration_ms"`
}

// Connected is sent to a client right after the upgrade.
type Connected struct {
	ClientID        string `json:"client_id"`
	ProtocolVersion string `json:"protocol_version"`
}

// ErrorPayload describes a stream-level error.
type ErrorPayload struct {
	Code    string `json:"code"`
	Message string `json:"message"`
}
