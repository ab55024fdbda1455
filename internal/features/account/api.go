package account

import (
	"go-bpm/internal/common/api"
	"go-bpm/internal/common/models"
	"go-bpm/internal/middleware"
	"go-bpm/pkg/utils"

	"github.com/gofiber/fiber/v2"
)

type AccountApi struct {
	controller *AccountController
	signer     *utils.TokenSigner
	resolver   middleware.ActorResolver
}

func NewAccountApi(controller *AccountController, signer *utils.TokenSigner, resolver middleware.ActorResolver) api.Route {
	return &AccountApi{
		controller: controller,
		signer:     signer,
		resolver:   resolver,
	}
}

// Setup registers auth and employee routes
func (h *AccountApi) Setup(app *fiber.App) {
	auth := app.Group("/auth")
	auth.Post("/business/register", h.controller.Register)
	auth.Post("/business/login", h.controller.Login(models.ActorOwner))
	auth.Post("/employee/login", h.controller.Login(models.ActorEmployee))
	auth.Post("/admin/login", h.controller.Login(models.ActorAdmin))
	auth.Post("/support/login", h.controller.Login(models.ActorSupport))

	authn := middleware.AuthMiddleware(h.signer, h.resolver)
	auth.Get("/me", authn, h.controller.Me)

	employees := app.Group("/employees", authn, middleware.RequireKinds(models.ActorOwner))
	employees.Post("/", h.controller.CreateEmployee)
	employees.Get("/", h.controller.ListEmployees)
	employees.Put("/:id", h.controller.UpdatePlacement)
}
