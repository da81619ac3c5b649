package scribe_test

import (
	"context"
	"net/http"
	"net/http/httptest"
	"sync/atomic"
	"testing"

	scribe "github.com/goliatone/go-scribe"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLoginForm_Validate(t *testing.T) {
	tests := []struct {
		name       string
		form       scribe.LoginForm
		wantFields []string
	}{
		{name: "valid", form: scribe.LoginForm{Email: "a@b.com", Password: "secret1"}},
		{name: "empty", form: scribe.LoginForm{}, wantFields: []string{"email", "password"}},
		{name: "bad email", form: scribe.LoginForm{Email: "ab.com", Password: "secret1"}, wantFields: []string{"email"}},
		{name: "short password", form: scribe.LoginForm{Email: "a@b.com", Password: "12345"}, wantFields: []string{"password"}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := tt.form.Validate()
			if len(tt.wantFields) == 0 {
				assert.NoError(t, err)
				return
			}
			require.Error(t, err)
			fields := scribe.FieldErrors(err)
			assert.Len(t, fields, len(tt.wantFields))
			for _, f := range tt.wantFields {
				assert.Contains(t, fields, f)
			}
		})
	}
}

func TestRegisterForm_Validate(t *testing.T) {
	valid := scribe.RegisterForm{
		FullName:        "Ada Lovelace",
		Username:        "ada",
		Email:           "a@b.com",
		Password:        "secret1",
		ConfirmPassword: "secret1",
	}
	assert.NoError(t, valid.Validate())

	mismatch := valid
	mismatch.ConfirmPassword = "secret2"
	fields := scribe.FieldErrors(mismatch.Validate())
	assert.Equal(t, map[string]string{"confirm_password": scribe.PasswordMismatchMessage}, fields)

	short := valid
	short.Username = "ad"
	fields = scribe.FieldErrors(short.Validate())
	assert.Contains(t, fields, "username")

	req := valid.Request()
	assert.Equal(t, scribe.RegisterRequest{
		Username: "ada",
		Email:    "a@b.com",
		Password: "secret1",
		FullName: "Ada Lovelace",
	}, req)
}

func TestExtractForm_Validate(t *testing.T) {
	tests := []struct {
		url  string
		want string
	}{
		{url: "https://www.youtube.com/watch?v=dQw4w9WgXcQ"},
		{url: "youtube.com/watch?v=dQw4w9WgXcQ"},
		{url: "https://youtu.be/dQw4w9WgXcQ"},
		{url: "", want: "Please enter a YouTube URL"},
		{url: "https://vimeo.com/1234", want: "Please enter a valid YouTube URL"},
	}

	for _, tt := range tests {
		t.Run(tt.url, func(t *testing.T) {
			err := scribe.ExtractForm{YoutubeURL: tt.url}.Validate()
			if tt.want == "" {
				assert.NoError(t, err)
				assert.True(t, scribe.IsYouTubeURL(tt.url))
				return
			}
			assert.Equal(t, tt.want, scribe.FieldErrors(err)["youtube_url"])
		})
	}
}

func TestFieldErrors(t *testing.T) {
	assert.Nil(t, scribe.FieldErrors(nil))
	assert.Equal(t, map[string]string{"form": assert.AnError.Error()}, scribe.FieldErrors(assert.AnError))
}

func TestSubmitForms_InvalidNeverReachesNetwork(t *testing.T) {
	var calls atomic.Int32
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		calls.Add(1)
		w.WriteHeader(http.StatusInternalServerError)
	}))
	defer srv.Close()

	m, _ := newManager(t, srv.URL, nil)
	ctx := context.Background()

	_, err := scribe.SubmitRegister(ctx, m, scribe.RegisterForm{
		FullName:        "Ada Lovelace",
		Username:        "ada",
		Email:           "a@b.com",
		Password:        "secret1",
		ConfirmPassword: "different",
	})
	require.Error(t, err)
	assert.Equal(t, scribe.PasswordMismatchMessage, scribe.FieldErrors(err)["confirm_password"])

	_, err = scribe.SubmitLogin(ctx, m, scribe.LoginForm{Email: "nope"})
	require.Error(t, err)

	assert.Equal(t, int32(0), calls.Load())
	assert.Equal(t, scribe.StateLoading, m.State())
}

func TestSubmitLogin(t *testing.T) {
	backend := newFakeBackend(t)
	m, _ := newManager(t, backend.srv.URL, nil)

	session, err := scribe.SubmitLogin(context.Background(), m, scribe.LoginForm{
		Email:    "a@b.com",
		Password: "secret1",
	})
	require.NoError(t, err)
	assert.Equal(t, "a@b.com", session.Email)
}
