package scribe

import (
	"strings"

	"github.com/tidwall/gjson"
)

// ExtractMessage pulls a human readable message out of a server error
// payload. Shapes are tried in order and the first match wins:
//
//	{"detail": "text"}
//	{"detail": {"message": "text"}}
//	{"detail": [{"msg": "a"}, {"msg": "b"}]}  -> "a. b"
//	{"message": "text"}
func ExtractMessage(body []byte) (string, bool) {
	if len(body) == 0 || !gjson.ValidBytes(body) {
		return "", false
	}

	detail := gjson.GetBytes(body, "detail")
	if detail.Type == gjson.String && strings.TrimSpace(detail.Str) != "" {
		return detail.Str, true
	}

	if detail.IsObject() {
		if msg := detail.Get("message"); msg.Type == gjson.String && msg.Str != "" {
			return msg.Str, true
		}
	}

	if detail.IsArray() {
		parts := make([]string, 0, len(detail.Array()))
		for _, item := range detail.Array() {
			if msg := item.Get("msg"); msg.Type == gjson.String && msg.Str != "" {
				parts = append(parts, msg.Str)
			}
		}
		if len(parts) > 0 {
			return strings.Join(parts, ". "), true
		}
	}

	if msg := gjson.GetBytes(body, "message"); msg.Type == gjson.String && msg.Str != "" {
		return msg.Str, true
	}

	return "", false
}
