package scribe_test

import (
	"testing"

	scribe "github.com/goliatone/go-scribe"
	"github.com/stretchr/testify/assert"
)

func TestExtractMessage(t *testing.T) {
	tests := []struct {
		name   string
		body   string
		want   string
		wantOK bool
	}{
		{name: "detail string", body: `{"detail": "Incorrect email or password"}`, want: "Incorrect email or password", wantOK: true},
		{name: "detail object", body: `{"detail": {"message": "Account locked"}}`, want: "Account locked", wantOK: true},
		{name: "top level message", body: `{"message": "Try again later"}`, want: "Try again later", wantOK: true},
		{
			name:   "detail string wins over message",
			body:   `{"detail": "first", "message": "second"}`,
			want:   "first",
			wantOK: true,
		},
		{
			name:   "validation list",
			body:   `{"detail": [{"loc": ["body", "email"], "msg": "field required"}, {"msg": "too short"}]}`,
			want:   "field required. too short",
			wantOK: true,
		},
		{
			name:   "detail list wins over message",
			body:   `{"message": "Validation error", "detail": [{"msg": "field required"}]}`,
			want:   "field required",
			wantOK: true,
		},
		{
			name:   "message used when list has no msg",
			body:   `{"message": "Validation error", "detail": [{"loc": ["body"]}]}`,
			want:   "Validation error",
			wantOK: true,
		},
		{name: "blank detail", body: `{"detail": "   "}`, wantOK: false},
		{name: "list without msg", body: `{"detail": [{"loc": ["body"]}]}`, wantOK: false},
		{name: "unrelated payload", body: `{"error": true}`, wantOK: false},
		{name: "not json", body: `<html>Bad Gateway</html>`, wantOK: false},
		{name: "empty", body: ``, wantOK: false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, ok := scribe.ExtractMessage([]byte(tt.body))
			assert.Equal(t, tt.wantOK, ok)
			assert.Equal(t, tt.want, got)
		})
	}
}
