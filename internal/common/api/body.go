package api

import (
	"errors"
	"fmt"
	"strings"

	"go-bpm/internal/common/apperr"

	"github.com/go-playground/validator/v10"
	"github.com/gofiber/fiber/v2"
	"go.mongodb.org/mongo-driver/bson/primitive"
)

var validate = validator.New(validator.WithRequiredStructEnabled())

// ParseBody decodes the request body into dst and runs its validate tags.
func ParseBody(c *fiber.Ctx, dst any) error {
	if err := c.BodyParser(dst); err != nil {
		return apperr.Invalid("Invalid request body")
	}
	return Validate(dst)
}

// Validate runs struct validation and flattens the first failures into one message.
func Validate(s any) error {
	err := validate.Struct(s)
	if err == nil {
		return nil
	}

	var verrs validator.ValidationErrors
	if !errors.As(err, &verrs) {
		return apperr.Invalid("Invalid request body")
	}
	msgs := make([]string, 0, len(verrs))
	for _, fe := range verrs {
		msgs = append(msgs, fmt.Sprintf("%s failed on '%s'", fe.Field(), fe.Tag()))
	}
	return apperr.Invalid("%s", strings.Join(msgs, "; "))
}

// ParamID reads a hex ObjectID route parameter.
func ParamID(c *fiber.Ctx, name, what string) (primitive.ObjectID, error) {
	id, err := primitive.ObjectIDFromHex(c.Params(name))
	if err != nil {
		return primitive.NilObjectID, apperr.Invalid("Invalid %s ID", what)
	}
	return id, nil
}
