package middleware

import (
	"context"
	"slices"
	"strings"

	"go-bpm/internal/common/apperr"
	"go-bpm/internal/common/models"
	"go-bpm/pkg/utils"

	"github.com/gofiber/fiber/v2"
)

// ActorResolver loads the record behind verified token claims.
type ActorResolver interface {
	ResolveActor(ctx context.Context, claims *utils.ActorClaims) (*models.Actor, error)
}

// AuthMiddleware verifies the bearer token, resolves it to exactly one actor
// and injects the actor into Locals and the user context.
func AuthMiddleware(signer *utils.TokenSigner, resolver ActorResolver) fiber.Handler {
	return func(c *fiber.Ctx) error {
		authHeader := c.Get("Authorization")
		if authHeader == "" {
			return c.Status(fiber.StatusUnauthorized).JSON(fiber.Map{
				"error": "Authorization header required",
			})
		}

		token, ok := strings.CutPrefix(authHeader, "Bearer ")
		if !ok || strings.TrimSpace(token) == "" {
			return c.Status(fiber.StatusUnauthorized).JSON(fiber.Map{
				"error": "Invalid authorization header format",
			})
		}

		actor, err := Authenticate(c.UserContext(), signer, resolver, strings.TrimSpace(token))
		if err != nil {
			return apperr.Respond(c, err)
		}

		c.Locals(models.ActorKey, actor)
		c.SetUserContext(models.WithActor(c.UserContext(), actor))
		return c.Next()
	}
}

// Authenticate turns a raw token into an actor. Every failure is an AuthFailure
// except persistence errors, which stay unexpected.
func Authenticate(ctx context.Context, signer *utils.TokenSigner, resolver ActorResolver, token string) (*models.Actor, error) {
	claims, err := signer.ValidateToken(token)
	if err != nil {
		return nil, apperr.AuthFailure("Invalid token")
	}
	return resolver.ResolveActor(ctx, claims)
}

// GetActor returns the actor set by AuthMiddleware, or nil.
func GetActor(c *fiber.Ctx) *models.Actor {
	actor, _ := c.Locals(models.ActorKey).(*models.Actor)
	return actor
}

// RequireKinds rejects actors whose kind is not listed.
func RequireKinds(kinds ...models.ActorKind) fiber.Handler {
	return func(c *fiber.Ctx) error {
		actor := GetActor(c)
		if actor == nil {
			return c.Status(fiber.StatusUnauthorized).JSON(fiber.Map{
				"error": "Unauthorized",
			})
		}
		if !slices.Contains(kinds, actor.Kind) {
			return c.Status(fiber.StatusForbidden).JSON(fiber.Map{
				"error": "Access denied for " + string(actor.Kind) + " accounts",
			})
		}
		return c.Next()
	}
}
