package api

import (
	"encoding/json"
	"errors"
	"fmt"
	"strings"
)

// StatusError is returned for any non-2xx collaborator response.
type StatusError struct {
	Collaborator string
	Operation    string
	Status       int
	// Message is the collaborator's error payload, reduced to a display string.
	Message string
}

func (e *StatusError) Error() string {
	if e.Message == "" {
		return fmt.Sprintf("%s %s: http %d", e.Collaborator, e.Operation, e.Status)
	}
	return fmt.Sprintf("%s %s: http %d: %s", e.Collaborator, e.Operation, e.Status, e.Message)
}

// Payload returns the collaborator's error text, if any, for err.
func Payload(err error) string {
	var se *StatusError
	if errors.As(err, &se) {
		return se.Message
	}
	return ""
}

const maxPayload = 512

func payloadMessage(body []byte) string {
	text := strings.TrimSpace(string(body))
	if text == "" {
		return ""
	}

	var obj map[string]any
	if err := json.Unmarshal(body, &obj); err == nil {
		for _, key := range []string{"message", "error", "detail"} {
			if s, ok := obj[key].(string); ok && s != "" {
				return s
			}
		}
	}
	var s string
	if err := json.Unmarshal(body, &s); err == nil {
		text = s
	}

	if len(text) > maxPayload {
		text = text[:maxPayload]
	}
	return text
}
