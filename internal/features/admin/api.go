package admin

import (
	"go-bpm/internal/common/api"
	"go-bpm/internal/common/models"
	"go-bpm/internal/middleware"
	"go-bpm/pkg/utils"

	"github.com/gofiber/fiber/v2"
)

type AdminApi struct {
	Controller *AdminController
	signer     *utils.TokenSigner
	resolver   middleware.ActorResolver
}

func NewAdminApi(controller *AdminController, signer *utils.TokenSigner, resolver middleware.ActorResolver) api.Route {
	return &AdminApi{
		Controller: controller,
		signer:     signer,
		resolver:   resolver,
	}
}

// Setup registers admin-related routes
func (h *AdminApi) Setup(app *fiber.App) {
	group := app.Group("/admin",
		middleware.AuthMiddleware(h.signer, h.resolver),
		middleware.RequireKinds(models.ActorAdmin, models.ActorSupport),
	)

	group.Get("/companies", h.Controller.ListCompanies)
	group.Put("/companies/:id/status", h.Controller.SetCompanyStatus)
	group.Put("/companies/:id/reset-password", h.Controller.ResetOwnerPassword)
	group.Put("/employees/:id/reset-password", h.Controller.ResetEmployeePassword)

	adminOnly := middleware.RequireKinds(models.ActorAdmin)
	group.Get("/supports", adminOnly, h.Controller.ListSupports)
	group.Post("/supports", adminOnly, h.Controller.CreateSupport)
	group.Put("/supports/:id/companies", adminOnly, h.Controller.AssignCompanies)
	group.Post("/reconcile", adminOnly, h.Controller.Reconcile)
}
