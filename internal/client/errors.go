package client

import (
	"encoding/json"
	"fmt"
	"strings"
)

// Error is a failed remote call. Message is the server-provided reason when
// there is one, otherwise "HTTP <status>" or the transport error text.
type Error struct {
	Status   int
	Message  string
	Attempts int
	Err      error
}

func (e *Error) Error() string {
	return e.Message
}

func (e *Error) Unwrap() error { return e.Err }

// failure inspects a response body. A JSON object with "ok": false is a
// failure even on a 2xx status.
func failure(status int, body []byte) (*Error, bool) {
	var env struct {
		OK     *bool `json:"ok"`
		Error  any   `json:"error"`
		Detail any   `json:"detail"`
	}
	isJSON := json.Unmarshal(body, &env) == nil
	if status < 400 && !(isJSON && env.OK != nil && !*env.OK) {
		return nil, false
	}
	msg := ""
	if isJSON {
		if m, ok := errorText(env.Error); ok {
			msg = m
		} else if m, ok := errorText(env.Detail); ok {
			msg = m
		}
	}
	if msg == "" {
		msg = fmt.Sprintf("HTTP %d", status)
	}
	return &Error{Status: status, Message: msg}, true
}

func errorText(raw any) (string, bool) {
	switch v := raw.(type) {
	case string:
		v = strings.TrimSpace(v)
		return v, v != ""
	case map[string]any:
		if nested, ok := errorText(v["error"]); ok {
			return nested, true
		}
		msg, _ := v["message"].(string)
		msg = strings.TrimSpace(msg)
		return msg, msg != ""
	}
	return "", false
}
