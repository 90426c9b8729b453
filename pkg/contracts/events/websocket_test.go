package events

import (
	"encoding/json"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNewMessage(t *testing.T) {
	msg := NewMessage(MessageTypeFileAnalyzed, "trace-1", FileAnalyzed{
		BatchID:   "b1",
		Index:     0,
		Total:     2,
		FileName:  "a.csv",
		Succeeded: false,
		ErrorKind: "NO_TRANSACTION_HEADER",
	})

	assert.NotEmpty(t, msg.ID)
	assert.False(t, msg.Timestamp.IsZero())

	data, err := json.Marshal(msg)
	require.NoError(t, err)

	var decoded map[string]interface{}
	require.NoError(t, json.Unmarshal(data, &decoded))
	assert.Equal(t, "analysis:file", decoded["type"])
	assert.Equal(t, "trace-1", decoded["trace_id"])

	payload := decoded["data"].(map[string]interface{})
	assert.Equal(t, "a.csv", payload["file_name"])
	assert.Equal(t, "NO_TRANSACTION_HEADER", payload["error_kind"])
	assert.NotContains(t, payload, "status")
}
