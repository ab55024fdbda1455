package events

import (
	"go-bpm/internal/common/api"
	"go-bpm/internal/common/apperr"
	"go-bpm/internal/common/models"
	"go-bpm/internal/middleware"
	"go-bpm/pkg/utils"

	"github.com/gofiber/contrib/websocket"
	"github.com/gofiber/fiber/v2"
)

// expiresLocal carries the token expiry into the websocket handler.
const expiresLocal = "events.expires"

type EventsApi struct {
	Controller *EventsController
	signer     *utils.TokenSigner
	resolver   middleware.ActorResolver
}

func NewEventsApi(controller *EventsController, signer *utils.TokenSigner, resolver middleware.ActorResolver) api.Route {
	return &EventsApi{
		Controller: controller,
		signer:     signer,
		resolver:   resolver,
	}
}

// Setup registers the websocket stream. Browsers cannot set headers on a
// websocket handshake, so the token travels in the query string.
func (h *EventsApi) Setup(app *fiber.App) {
	app.Get("/ws/events", h.upgrade, websocket.New(h.Controller.Stream))
}

func (h *EventsApi) upgrade(c *fiber.Ctx) error {
	if !websocket.IsWebSocketUpgrade(c) {
		return fiber.ErrUpgradeRequired
	}

	token := c.Query("token")
	if token == "" {
		return apperr.Respond(c, apperr.AuthFailure("token query parameter required"))
	}
	claims, err := h.signer.ValidateToken(token)
	if err != nil {
		return apperr.Respond(c, apperr.AuthFailure("Invalid token"))
	}
	actor, err := h.resolver.ResolveActor(c.UserContext(), claims)
	if err != nil {
		return apperr.Respond(c, err)
	}

	c.Locals(string(models.ActorKey), actor)
	if claims.ExpiresAt != nil {
		c.Locals(expiresLocal, claims.ExpiresAt.Time)
	}
	return c.Next()
}
