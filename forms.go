package scribe

import (
	"context"
	"errors"
	"regexp"
	"strings"

	validation "github.com/go-ozzo/ozzo-validation"
)

const PasswordMismatchMessage = "The passwords do not match"

var (
	emailPattern   = regexp.MustCompile(`^[^\s@]+@[^\s@]+\.[^\s@]+$`)
	youtubePattern = regexp.MustCompile(`^(https?://)?(www\.)?(youtube\.com|youtu\.?be)/.+`)
)

// LoginForm is the sign in payload as entered by a user
type LoginForm struct {
	Email    string `json:"email"`
	Password string `json:"password"`
}

// Validate will validate the payload
func (f LoginForm) Validate() error {
	return validation.ValidateStruct(&f,
		validation.Field(
			&f.Email,
			validation.Required.Error("Email is required"),
			validation.Match(emailPattern).Error("Email is invalid"),
		),
		validation.Field(
			&f.Password,
			validation.Required.Error("Password is required"),
			validation.RuneLength(6, 0).Error("Password must be at least 6 characters"),
		),
	)
}

// Request returns the payload for Manager.Login
func (f LoginForm) Request() LoginRequest {
	return LoginRequest{
		Email:    strings.TrimSpace(f.Email),
		Password: f.Password,
	}
}

// RegisterForm is the sign up payload as entered by a user
type RegisterForm struct {
	FullName        string `json:"full_name"`
	Username        string `json:"username"`
	Email           string `json:"email"`
	Password        string `json:"password"`
	ConfirmPassword string `json:"confirm_password"`
}

// Validate will validate the payload
func (f RegisterForm) Validate() error {
	return validation.ValidateStruct(&f,
		validation.Field(&f.FullName, validation.Required.Error("Full name is required")),
		validation.Field(
			&f.Username,
			validation.Required.Error("Username is required"),
			validation.RuneLength(3, 0).Error("Username must be at least 3 characters"),
		),
		validation.Field(
			&f.Email,
			validation.Required.Error("Email is required"),
			validation.Match(emailPattern).Error("Email is invalid"),
		),
		validation.Field(
			&f.Password,
			validation.Required.Error("Password is required"),
			validation.RuneLength(6, 0).Error("Password must be at least 6 characters"),
		),
		validation.Field(
			&f.ConfirmPassword,
			validation.Required.Error("Please confirm your password"),
			validation.By(ValidateStringEquals(f.Password)),
		),
	)
}

// Request returns the payload for Manager.Register. The confirmation
// field is never sent.
func (f RegisterForm) Request() RegisterRequest {
	return RegisterRequest{
		Username: strings.TrimSpace(f.Username),
		Email:    strings.TrimSpace(f.Email),
		Password: f.Password,
		FullName: strings.TrimSpace(f.FullName),
	}
}

// ExtractForm holds the video link submitted for transcription
type ExtractForm struct {
	YoutubeURL string `json:"youtube_url"`
}

// Validate will validate the payload
func (f ExtractForm) Validate() error {
	return validation.ValidateStruct(&f,
		validation.Field(
			&f.YoutubeURL,
			validation.Required.Error("Please enter a YouTube URL"),
			validation.Match(youtubePattern).Error("Please enter a valid YouTube URL"),
		),
	)
}

// IsYouTubeURL reports whether raw looks like a YouTube video link
func IsYouTubeURL(raw string) bool {
	return youtubePattern.MatchString(strings.TrimSpace(raw))
}

// ValidateStringEquals returns a rule that requires the value to equal str
func ValidateStringEquals(str string) validation.RuleFunc {
	return func(value any) error {
		s, _ := value.(string)
		if s != str {
			return errors.New(PasswordMismatchMessage)
		}
		return nil
	}
}

// FieldErrors flattens a validation error into field/message pairs.
// Errors that are not per field are returned under "form".
func FieldErrors(err error) map[string]string {
	if err == nil {
		return nil
	}

	out := map[string]string{}

	var verrs validation.Errors
	if !errors.As(err, &verrs) {
		out["form"] = err.Error()
		return out
	}

	for field, ferr := range verrs {
		if ferr != nil {
			out[field] = ferr.Error()
		}
	}
	return out
}

// SubmitLogin validates form and signs in. Invalid forms never reach the
// network.
func SubmitLogin(ctx context.Context, m *Manager, form LoginForm) (*Session, error) {
	if err := form.Validate(); err != nil {
		return nil, err
	}
	return m.Login(ctx, form.Request())
}

// SubmitRegister validates form and creates the account. A mismatched
// confirmation is reported locally.
func SubmitRegister(ctx context.Context, m *Manager, form RegisterForm) (*Session, error) {
	if err := form.Validate(); err != nil {
		return nil, err
	}
	return m.Register(ctx, form.Request())
}
