package structure

import (
	"go-bpm/internal/common/api"
	"go-bpm/internal/common/models"
	"go-bpm/internal/middleware"
	"go-bpm/pkg/utils"

	"github.com/gofiber/fiber/v2"
)

type StructureApi struct {
	roles       *StructureController
	departments *StructureController
	signer      *utils.TokenSigner
	resolver    middleware.ActorResolver
}

func NewStructureApi(structures *Structures, signer *utils.TokenSigner, resolver middleware.ActorResolver) api.Route {
	return &StructureApi{
		roles:       NewStructureController(structures.Roles),
		departments: NewStructureController(structures.Departments),
		signer:      signer,
		resolver:    resolver,
	}
}

// Setup registers both hierarchies under their own prefixes.
func (h *StructureApi) Setup(app *fiber.App) {
	h.register(app, "/structure", h.roles)
	h.register(app, "/department-structure", h.departments)
}

func (h *StructureApi) register(app *fiber.App, prefix string, ctrl *StructureController) {
	group := app.Group(prefix, middleware.AuthMiddleware(h.signer, h.resolver))

	// employees read their company's tree; admin and support pass ?companyId
	group.Get("/", ctrl.GetTree)

	write := middleware.RequireKinds(models.ActorOwner)
	group.Post("/add-node", write, ctrl.AddNode)
	group.Put("/assign-processes", write, ctrl.AssignProcesses)
	group.Put("/remove-assignment", write, ctrl.RemoveAssignment)
	group.Put("/edit-node", write, ctrl.EditNode)
	group.Delete("/delete-node", write, ctrl.DeleteNode)
}
