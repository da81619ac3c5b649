// Package users wraps the account endpoints.
package users

import (
	"context"
	"fmt"
	"time"

	validation "github.com/go-ozzo/ozzo-validation"
	"github.com/go-ozzo/ozzo-validation/is"
	scribe "github.com/goliatone/go-scribe"
	"github.com/tidwall/gjson"
)

// Profile is the account as returned by the backend
type Profile struct {
	ID           ID        `json:"id"`
	Username     string    `json:"username"`
	Email        string    `json:"email"`
	FullName     string    `json:"full_name,omitempty"`
	ProfilePhoto string    `json:"profile_photo,omitempty"`
	CreatedAt    time.Time `json:"created_at,omitempty"`
	UpdatedAt    time.Time `json:"updated_at,omitempty"`
}

// ID is an account identifier. Backends send either an integer or a
// uuid string.
type ID string

// UnmarshalJSON accepts numeric and string identifiers
func (id *ID) UnmarshalJSON(data []byte) error {
	res := gjson.ParseBytes(data)
	switch res.Type {
	case gjson.Null:
		*id = ""
	case gjson.Number, gjson.String:
		*id = ID(res.String())
	default:
		return fmt.Errorf("users: invalid id %s", data)
	}
	return nil
}

// ProfileUpdate changes profile fields. Empty fields are left untouched.
type ProfileUpdate struct {
	FullName string `json:"full_name,omitempty"`
	Email    string `json:"email,omitempty"`
}

// Validate will validate the payload
func (p ProfileUpdate) Validate() error {
	return validation.ValidateStruct(&p,
		validation.Field(&p.Email, is.Email),
	)
}

// PasswordChange replaces the account password
type PasswordChange struct {
	CurrentPassword string `json:"current_password"`
	NewPassword     string `json:"new_password"`
}

// Validate will validate the payload
func (p PasswordChange) Validate() error {
	return validation.ValidateStruct(&p,
		validation.Field(&p.CurrentPassword, validation.Required),
		validation.Field(&p.NewPassword, validation.Required, validation.RuneLength(6, 0)),
	)
}

// Client calls the account endpoints
type Client struct {
	api *scribe.Client
}

// NewClient returns a users client sharing api's session
func NewClient(api *scribe.Client) *Client {
	return &Client{api: api}
}

// Me returns the account behind the current credential
func (c *Client) Me(ctx context.Context) (*Profile, error) {
	out := new(Profile)
	if err := c.api.Get(ctx, "/api/auth/me", nil, out); err != nil {
		return nil, err
	}
	return out, nil
}

// Profile returns the profile of the signed in user
func (c *Client) Profile(ctx context.Context) (*Profile, error) {
	out := new(Profile)
	if err := c.api.Get(ctx, "/api/users/profile", nil, out); err != nil {
		return nil, err
	}
	return out, nil
}

// UpdateProfile changes the profile and returns the stored result
func (c *Client) UpdateProfile(ctx context.Context, update ProfileUpdate) (*Profile, error) {
	if err := update.Validate(); err != nil {
		return nil, err
	}
	out := new(Profile)
	if err := c.api.Put(ctx, "/api/users/profile", update, out); err != nil {
		return nil, err
	}
	return out, nil
}

// ChangePassword replaces the account password
func (c *Client) ChangePassword(ctx context.Context, change PasswordChange) error {
	if err := change.Validate(); err != nil {
		return err
	}
	return c.api.Put(ctx, "/api/users/password", change, nil)
}
