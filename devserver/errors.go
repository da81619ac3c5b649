package devserver

import (
	"fmt"
	"sort"

	validation "github.com/go-ozzo/ozzo-validation"
	"github.com/gofiber/fiber/v2"
	"github.com/goliatone/go-errors"
)

// FieldIssue is one entry of a validation failure detail list
type FieldIssue struct {
	Loc  []string `json:"loc"`
	Msg  string   `json:"msg"`
	Type string   `json:"type"`
}

// detail renders {"detail": "..."}
func detail(c *fiber.Ctx, status int, message string) error {
	return c.Status(status).JSON(fiber.Map{"detail": message})
}

// validationDetail renders {"detail": [{"loc": [...], "msg": "..."}]}
func validationDetail(c *fiber.Ctx, err error) error {
	issues := []FieldIssue{}

	var verrs validation.Errors
	if errors.As(err, &verrs) {
		fields := make([]string, 0, len(verrs))
		for field := range verrs {
			fields = append(fields, field)
		}
		sort.Strings(fields)
		for _, field := range fields {
			issues = append(issues, FieldIssue{
				Loc:  []string{"body", field},
				Msg:  verrs[field].Error(),
				Type: "value_error",
			})
		}
	} else {
		issues = append(issues, FieldIssue{
			Loc:  []string{"body"},
			Msg:  err.Error(),
			Type: "value_error",
		})
	}

	return c.Status(fiber.StatusUnprocessableEntity).JSON(fiber.Map{"detail": issues})
}

// errorHandler maps unhandled errors to detail payloads
func (s *Server) errorHandler(c *fiber.Ctx, err error) error {
	var fe *fiber.Error
	if errors.As(err, &fe) {
		return detail(c, fe.Code, fe.Message)
	}

	var richErr *errors.Error
	if errors.As(err, &richErr) && richErr.Code >= 400 && richErr.Code < 500 {
		return detail(c, richErr.Code, richErr.Message)
	}

	s.logger.Error("Unhandled request error", "method", c.Method(), "path", c.Path(), "error", err)
	return detail(c, fiber.StatusInternalServerError, fmt.Sprintf("Internal server error (%s)", c.Method()))
}
