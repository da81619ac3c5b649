package devserver

import (
	"strconv"
	"strings"

	"github.com/gofiber/fiber/v2"
	scribe "github.com/goliatone/go-scribe"
	"github.com/google/uuid"
)

const (
	localsUserID = "user_id"
	localsClaims = "claims"
)

// protected rejects requests without a valid bearer token
func (s *Server) protected() fiber.Handler {
	return func(c *fiber.Ctx) error {
		auth := c.Get(fiber.HeaderAuthorization)
		scheme, token, found := strings.Cut(auth, " ")
		if !found || !strings.EqualFold(scheme, "Bearer") || strings.TrimSpace(token) == "" {
			c.Set(fiber.HeaderWWWAuthenticate, "Bearer")
			return detail(c, fiber.StatusUnauthorized, "Not authenticated")
		}

		claims, err := s.tokens.Validate(strings.TrimSpace(token))
		if err != nil {
			s.logger.Debug("Rejected bearer token", "path", c.Path(), "error", err)
			c.Set(fiber.HeaderWWWAuthenticate, "Bearer")
			message := "Could not validate credentials"
			if scribe.IsExpiredCredential(err) {
				message = "Token has expired"
			}
			return detail(c, fiber.StatusUnauthorized, message)
		}

		userID, err := uuid.Parse(claims.UserID)
		if err != nil {
			c.Set(fiber.HeaderWWWAuthenticate, "Bearer")
			return detail(c, fiber.StatusUnauthorized, "Could not validate credentials")
		}

		c.Locals(localsUserID, userID)
		c.Locals(localsClaims, claims)
		return c.Next()
	}
}

func currentUserID(c *fiber.Ctx) uuid.UUID {
	id, _ := c.Locals(localsUserID).(uuid.UUID)
	return id
}

func paramID(c *fiber.Ctx, name string) (int64, bool) {
	id, err := strconv.ParseInt(c.Params(name), 10, 64)
	return id, err == nil && id > 0
}
