package httpx

import (
	"encoding/json"
	"fmt"
	"strings"
)

// TransportError signals that a request never reached the server: dial
// failure, reset connection, timeout on connect. It is the only error class
// allowed to trigger a provider fallback.
type TransportError struct {
	URL string
	Err error
}

func (e *TransportError) Error() string {
	return fmt.Sprintf("request to %s failed: %v", e.URL, e.Err)
}

func (e *TransportError) Unwrap() error {
	return e.Err
}

// APIError signals that the server answered with a non-success status, or
// with a success status whose body could not be decoded where JSON was
// required. It is always terminal for authentication flows.
type APIError struct {
	Status int
	Body   []byte
}

func (e *APIError) Error() string {
	return e.Message()
}

// Message extracts a human-readable description from the response body.
// It understands `{"error": "..."}`, `{"detail": "..."}` and the structured
// `{"detail": [{"field": ..., "msg": ...}]}` validation shape, whose entries
// are joined into a single string. Anything else degrades to "status N".
func (e *APIError) Message() string {
	var body struct {
		Error  string          `json:"error"`
		Detail json.RawMessage `json:"detail"`
	}
	if err := json.Unmarshal(e.Body, &body); err == nil {
		if len(body.Detail) > 0 {
			if msg := decodeDetail(body.Detail); msg != "" {
				return msg
			}
		}
		if body.Error != "" {
			return body.Error
		}
	}
	return fmt.Sprintf("status %d", e.Status)
}

func decodeDetail(raw json.RawMessage) string {
	var s string
	if err := json.Unmarshal(raw, &s); err == nil {
		return s
	}

	var items []struct {
		Field string   `json:"field"`
		Loc   []string `json:"loc"`
		Msg   string   `json:"msg"`
	}
	if err := json.Unmarshal(raw, &items); err != nil {
		return ""
	}
	parts := make([]string, 0, len(items))
	for _, item := range items {
		field := item.Field
		if field == "" && len(item.Loc) > 0 {
			field = item.Loc[len(item.Loc)-1]
		}
		switch {
		case field != "" && item.Msg != "":
			parts = append(parts, field+": "+item.Msg)
		case item.Msg != "":
			parts = append(parts, item.Msg)
		}
	}
	return strings.Join(parts, "; ")
}
