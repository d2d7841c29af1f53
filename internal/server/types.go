// Package server defines shared wire helpers that are reused across client
// and hub logic.
package server

import (
	"encoding/json"
	"strings"

	"github.com/spindle-chat/spindle/internal/chat"
)

// encodeFrame wraps an event payload in the JSON envelope clients consume.
func encodeFrame(event string, payload any) ([]byte, error) {
	data, err := json.Marshal(payload)
	if err != nil {
		return nil, err
	}
	return json.Marshal(chat.Frame{Event: event, Data: data})
}

// isExpectedCloseError checks if an error is expected during connection closure.
func isExpectedCloseError(err error) bool {
	if err == nil {
		return true
	}
	errStr := err.Error()
	return strings.Contains(errStr, "use of closed network connection") ||
		strings.Contains(errStr, "websocket: close sent") ||
		strings.Contains(errStr, "broken pipe")
}
