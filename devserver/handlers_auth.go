package devserver

import (
	"strings"

	validation "github.com/go-ozzo/ozzo-validation"
	"github.com/go-ozzo/ozzo-validation/is"
	"github.com/gofiber/fiber/v2"
	"github.com/goliatone/go-errors"
	scribe "github.com/goliatone/go-scribe"
)

// LoginPayload is the sign in body
type LoginPayload struct {
	Email    string `json:"email"`
	Password string `json:"password"`
}

// Validate will validate the payload
func (p LoginPayload) Validate() error {
	return validation.ValidateStruct(&p,
		validation.Field(&p.Email, validation.Required),
		validation.Field(&p.Password, validation.Required),
	)
}

// RegisterPayload is the sign up body
type RegisterPayload struct {
	Username string `json:"username"`
	Email    string `json:"email"`
	Password string `json:"password"`
	FullName string `json:"full_name"`
}

// Validate will validate the payload
func (p RegisterPayload) Validate() error {
	return validation.ValidateStruct(&p,
		validation.Field(&p.Username, validation.Required, validation.RuneLength(3, 50)),
		validation.Field(&p.Email, validation.Required, is.Email),
		validation.Field(&p.Password, validation.Required, validation.RuneLength(6, 100)),
		validation.Field(&p.FullName, validation.RuneLength(0, 200)),
	)
}

func (s *Server) login(c *fiber.Ctx) error {
	payload := new(LoginPayload)
	if err := c.BodyParser(payload); err != nil {
		return validationDetail(c, err)
	}
	if err := payload.Validate(); err != nil {
		return validationDetail(c, err)
	}

	user, err := s.repo.GetUserByEmail(c.UserContext(), payload.Email)
	if err != nil {
		if errors.Is(err, ErrUserNotFound) {
			return detail(c, fiber.StatusUnauthorized, "Incorrect email or password")
		}
		return err
	}

	if err := ComparePasswordAndHash(payload.Password, user.PasswordHash); err != nil {
		s.logger.Info("Login rejected", "email", payload.Email)
		return detail(c, fiber.StatusUnauthorized, "Incorrect email or password")
	}

	if err := s.repo.TrackLogin(c.UserContext(), user); err != nil {
		s.logger.Warn("Unable to track login", "user_id", user.ID, "error", err)
	}

	return s.issue(c, fiber.StatusOK, user)
}

func (s *Server) register(c *fiber.Ctx) error {
	payload := new(RegisterPayload)
	if err := c.BodyParser(payload); err != nil {
		return validationDetail(c, err)
	}
	if err := payload.Validate(); err != nil {
		return validationDetail(c, err)
	}

	hash, err := HashPassword(payload.Password, s.cfg.BcryptCost)
	if err != nil {
		return err
	}

	user, err := s.repo.CreateUser(c.UserContext(), &User{
		Username:     strings.TrimSpace(payload.Username),
		Email:        strings.ToLower(strings.TrimSpace(payload.Email)),
		FullName:     strings.TrimSpace(payload.FullName),
		PasswordHash: hash,
	})
	if err != nil {
		if errors.Is(err, ErrIdentityConflicts) {
			return detail(c, fiber.StatusBadRequest, "Email or username already registered")
		}
		return err
	}

	s.logger.Info("User registered", "user_id", user.ID, "username", user.Username)
	return s.issue(c, fiber.StatusCreated, user)
}

func (s *Server) refresh(c *fiber.Ctx) error {
	user, err := s.repo.GetUserByID(c.UserContext(), currentUserID(c))
	if err != nil {
		if errors.Is(err, ErrUserNotFound) {
			return detail(c, fiber.StatusUnauthorized, "Could not validate credentials")
		}
		return err
	}
	return s.issue(c, fiber.StatusOK, user)
}

func (s *Server) logout(c *fiber.Ctx) error {
	return c.JSON(fiber.Map{"message": "Successfully logged out"})
}

func (s *Server) me(c *fiber.Ctx) error {
	user, err := s.repo.GetUserByID(c.UserContext(), currentUserID(c))
	if err != nil {
		if errors.Is(err, ErrUserNotFound) {
			return detail(c, fiber.StatusUnauthorized, "Could not validate credentials")
		}
		return err
	}
	return c.JSON(user)
}

func (s *Server) issue(c *fiber.Ctx, status int, user *User) error {
	token, err := s.tokens.Generate(user)
	if err != nil {
		return err
	}
	return c.Status(status).JSON(scribe.TokenResponse{
		AccessToken: token,
		TokenType:   "bearer",
	})
}
