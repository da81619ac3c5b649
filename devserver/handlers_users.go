package devserver

import (
	"strings"

	validation "github.com/go-ozzo/ozzo-validation"
	"github.com/go-ozzo/ozzo-validation/is"
	"github.com/gofiber/fiber/v2"
)

// ProfilePayload updates profile fields
type ProfilePayload struct {
	FullName *string `json:"full_name"`
	Email    *string `json:"email"`
}

// Validate will validate the payload
func (p ProfilePayload) Validate() error {
	return validation.ValidateStruct(&p,
		validation.Field(&p.Email, validation.NilOrNotEmpty, is.Email),
		validation.Field(&p.FullName, validation.RuneLength(0, 200)),
	)
}

// PasswordPayload replaces the password
type PasswordPayload struct {
	CurrentPassword string `json:"current_password"`
	NewPassword     string `json:"new_password"`
}

// Validate will validate the payload
func (p PasswordPayload) Validate() error {
	return validation.ValidateStruct(&p,
		validation.Field(&p.CurrentPassword, validation.Required),
		validation.Field(&p.NewPassword, validation.Required, validation.RuneLength(6, 100)),
	)
}

func (s *Server) updateProfile(c *fiber.Ctx) error {
	payload := new(ProfilePayload)
	if err := c.BodyParser(payload); err != nil {
		return validationDetail(c, err)
	}
	if err := payload.Validate(); err != nil {
		return validationDetail(c, err)
	}

	user, err := s.repo.GetUserByID(c.UserContext(), currentUserID(c))
	if err != nil {
		return err
	}

	changed := false
	if payload.FullName != nil {
		user.FullName = strings.TrimSpace(*payload.FullName)
		changed = true
	}
	if payload.Email != nil {
		user.Email = strings.ToLower(strings.TrimSpace(*payload.Email))
		changed = true
	}

	if changed {
		if user, err = s.repo.UpdateUser(c.UserContext(), user); err != nil {
			return err
		}
	}
	return c.JSON(user)
}

func (s *Server) changePassword(c *fiber.Ctx) error {
	payload := new(PasswordPayload)
	if err := c.BodyParser(payload); err != nil {
		return validationDetail(c, err)
	}
	if err := payload.Validate(); err != nil {
		return validationDetail(c, err)
	}

	user, err := s.repo.GetUserByID(c.UserContext(), currentUserID(c))
	if err != nil {
		return err
	}

	if err := ComparePasswordAndHash(payload.CurrentPassword, user.PasswordHash); err != nil {
		return detail(c, fiber.StatusBadRequest, "Current password is incorrect")
	}

	hash, err := HashPassword(payload.NewPassword, s.cfg.BcryptCost)
	if err != nil {
		return err
	}
	user.PasswordHash = hash
	if _, err := s.repo.UpdateUser(c.UserContext(), user); err != nil {
		return err
	}

	return c.JSON(fiber.Map{"message": "Password updated successfully"})
}
