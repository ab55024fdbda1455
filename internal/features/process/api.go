package process

import (
	"go-bpm/internal/common/api"
	"go-bpm/internal/middleware"
	"go-bpm/pkg/utils"

	"github.com/gofiber/fiber/v2"
)

type ProcessApi struct {
	controller *ProcessController
	signer     *utils.TokenSigner
	resolver   middleware.ActorResolver
}

func NewProcessApi(controller *ProcessController, signer *utils.TokenSigner, resolver middleware.ActorResolver) api.Route {
	return &ProcessApi{
		controller: controller,
		signer:     signer,
		resolver:   resolver,
	}
}

// Setup registers process routes. Every actor kind authenticates here;
// the per-process policy decides the rest.
func (h *ProcessApi) Setup(app *fiber.App) {
	processes := app.Group("/processes", middleware.AuthMiddleware(h.signer, h.resolver))
	processes.Post("/", h.controller.Create)
	processes.Get("/", h.controller.List)
	processes.Get("/:id", h.controller.Get)
	processes.Put("/:id", h.controller.Update)
	processes.Delete("/:id", h.controller.Delete)
	processes.Put("/:id/verify", h.controller.ToggleVerify)
	processes.Get("/:id/logs", h.controller.Logs)
	processes.Get("/:id/logs/export", h.controller.ExportLogs)
}
