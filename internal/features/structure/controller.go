package structure

import (
	"go-bpm/internal/common/api"
	"go-bpm/internal/common/apperr"
	"go-bpm/internal/common/models"
	"go-bpm/internal/middleware"

	"github.com/gofiber/fiber/v2"
	"go.mongodb.org/mongo-driver/bson/primitive"
)

type StructureController struct {
	Service Service
}

func NewStructureController(service Service) *StructureController {
	return &StructureController{Service: service}
}

// tenantFor picks the tenant a request acts on. Owners and employees act on
// their own company; admin and support name it with ?companyId.
func tenantFor(c *fiber.Ctx, actor *models.Actor) (primitive.ObjectID, error) {
	if tenantID, ok := actor.TenantID(); ok {
		return tenantID, nil
	}
	tenantID, err := primitive.ObjectIDFromHex(c.Query("companyId"))
	if err != nil {
		return primitive.NilObjectID, apperr.Invalid("companyId query parameter is required")
	}
	if !actor.CanAccessTenant(tenantID) {
		return primitive.NilObjectID, apperr.Forbidden("Company is not assigned to this account")
	}
	return tenantID, nil
}

// AddNode godoc
// @Summary      Add a role or department
// @Tags         structure
// @Accept       json
// @Produce      json
// @Param        input body AddNodeRequest true "parentId is optional"
// @Success      201  {object} map[string]Node
// @Failure      404  {object} map[string]string
// @Router       /structure/add-node [post]
func (ctrl *StructureController) AddNode(c *fiber.Ctx) error {
	var req AddNodeRequest
	if err := api.ParseBody(c, &req); err != nil {
		return apperr.Respond(c, err)
	}

	tenantID, err := tenantFor(c, middleware.GetActor(c))
	if err != nil {
		return apperr.Respond(c, err)
	}

	node, err := ctrl.Service.AddNode(c.UserContext(), tenantID, req.ParentID, req.Name)
	if err != nil {
		return apperr.Respond(c, err)
	}

	return c.Status(fiber.StatusCreated).JSON(fiber.Map{
		"newNode": node,
	})
}

// AssignProcesses godoc
// @Summary      Assign processes to a node
// @Tags         structure
// @Accept       json
// @Produce      json
// @Param        input body AssignProcessesRequest true "Assignment"
// @Success      200  {object} Node
// @Failure      404  {object} map[string]string
// @Router       /structure/assign-processes [put]
func (ctrl *StructureController) AssignProcesses(c *fiber.Ctx) error {
	var req AssignProcessesRequest
	if err := api.ParseBody(c, &req); err != nil {
		return apperr.Respond(c, err)
	}

	tenantID, err := tenantFor(c, middleware.GetActor(c))
	if err != nil {
		return apperr.Respond(c, err)
	}

	node, err := ctrl.Service.AssignProcesses(c.UserContext(), tenantID, req.NodeID, req.ProcessIDs)
	if err != nil {
		return apperr.Respond(c, err)
	}
	return c.JSON(node)
}

// RemoveAssignment godoc
// @Summary      Remove one process from a node
// @Tags         structure
// @Router       /structure/remove-assignment [put]
func (ctrl *StructureController) RemoveAssignment(c *fiber.Ctx) error {
	var req RemoveAssignmentRequest
	if err := api.ParseBody(c, &req); err != nil {
		return apperr.Respond(c, err)
	}

	tenantID, err := tenantFor(c, middleware.GetActor(c))
	if err != nil {
		return apperr.Respond(c, err)
	}

	if err := ctrl.Service.UnassignProcess(c.UserContext(), tenantID, req.NodeID, req.ProcessID); err != nil {
		return apperr.Respond(c, err)
	}
	return c.JSON(fiber.Map{
		"message": "Process unassigned successfully",
	})
}

// EditNode godoc
// @Summary      Rename a node
// @Tags         structure
// @Router       /structure/edit-node [put]
func (ctrl *StructureController) EditNode(c *fiber.Ctx) error {
	var req EditNodeRequest
	if err := api.ParseBody(c, &req); err != nil {
		return apperr.Respond(c, err)
	}

	tenantID, err := tenantFor(c, middleware.GetActor(c))
	if err != nil {
		return apperr.Respond(c, err)
	}

	if err := ctrl.Service.EditNode(c.UserContext(), tenantID, req.NodeID, req.Name); err != nil {
		return apperr.Respond(c, err)
	}
	return c.JSON(fiber.Map{
		"message": ctrl.Service.Kind().Label + " updated successfully",
	})
}

// DeleteNode godoc
// @Summary      Delete a leaf node
// @Tags         structure
// @Failure      400  {object} map[string]string "node has children"
// @Router       /structure/delete-node [delete]
func (ctrl *StructureController) DeleteNode(c *fiber.Ctx) error {
	var req DeleteNodeRequest
	if err := api.ParseBody(c, &req); err != nil {
		return apperr.Respond(c, err)
	}

	tenantID, err := tenantFor(c, middleware.GetActor(c))
	if err != nil {
		return apperr.Respond(c, err)
	}

	if err := ctrl.Service.DeleteNode(c.UserContext(), tenantID, req.NodeID); err != nil {
		return apperr.Respond(c, err)
	}
	return c.JSON(fiber.Map{
		"message": ctrl.Service.Kind().Label + " deleted successfully",
	})
}

// GetTree godoc
// @Summary      Get the populated structure
// @Tags         structure
// @Produce      json
// @Success      200  {object} Tree
// @Router       /structure [get]
func (ctrl *StructureController) GetTree(c *fiber.Ctx) error {
	tenantID, err := tenantFor(c, middleware.GetActor(c))
	if err != nil {
		return apperr.Respond(c, err)
	}

	tree, err := ctrl.Service.GetTree(c.UserContext(), tenantID)
	if err != nil {
		return apperr.Respond(c, err)
	}
	return c.JSON(tree)
}
