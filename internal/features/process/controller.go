package process

import (
	"fmt"

	"go-bpm/internal/common/api"
	"go-bpm/internal/common/apperr"
	"go-bpm/internal/middleware"

	"github.com/gofiber/fiber/v2"
)

type ProcessController struct {
	Service Service
}

func NewProcessController(service Service) *ProcessController {
	return &ProcessController{Service: service}
}

// Create godoc
// @Summary      Create or overwrite a process by name
// @Tags         processes
// @Accept       json
// @Produce      json
// @Param        input body CreateProcessRequest true "Process"
// @Success      201  {object} Process "created"
// @Success      200  {object} Process "existing process of the same name updated"
// @Failure      403  {object} map[string]string
// @Router       /processes [post]
func (ctrl *ProcessController) Create(c *fiber.Ctx) error {
	var req CreateProcessRequest
	if err := api.ParseBody(c, &req); err != nil {
		return apperr.Respond(c, err)
	}

	p, created, err := ctrl.Service.Create(c.UserContext(), middleware.GetActor(c), req)
	if err != nil {
		return apperr.Respond(c, err)
	}
	if created {
		return c.Status(fiber.StatusCreated).JSON(p)
	}
	return c.JSON(p)
}

// List godoc
// @Summary      List visible processes
// @Tags         processes
// @Produce      json
// @Success      200  {array} Summary
// @Router       /processes [get]
func (ctrl *ProcessController) List(c *fiber.Ctx) error {
	list, err := ctrl.Service.List(c.UserContext(), middleware.GetActor(c))
	if err != nil {
		return apperr.Respond(c, err)
	}
	return c.JSON(list)
}

// Get godoc
// @Summary      Get a process
// @Tags         processes
// @Produce      json
// @Param        id path string true "Process ID"
// @Success      200  {object} Process
// @Failure      404  {object} map[string]string
// @Router       /processes/{id} [get]
func (ctrl *ProcessController) Get(c *fiber.Ctx) error {
	id, err := api.ParamID(c, "id", "process")
	if err != nil {
		return apperr.Respond(c, err)
	}

	p, err := ctrl.Service.Get(c.UserContext(), middleware.GetActor(c), id)
	if err != nil {
		return apperr.Respond(c, err)
	}
	return c.JSON(p)
}

// Update godoc
// @Summary      Edit a process
// @Description  Owners and employees cannot edit a verified process. Admin and support can.
// @Tags         processes
// @Accept       json
// @Produce      json
// @Param        id path string true "Process ID"
// @Param        input body UpdateProcessRequest true "Patch"
// @Success      200  {object} Process
// @Failure      403  {object} map[string]string
// @Failure      404  {object} map[string]string
// @Router       /processes/{id} [put]
func (ctrl *ProcessController) Update(c *fiber.Ctx) error {
	id, err := api.ParamID(c, "id", "process")
	if err != nil {
		return apperr.Respond(c, err)
	}

	var patch UpdateProcessRequest
	if err := api.ParseBody(c, &patch); err != nil {
		return apperr.Respond(c, err)
	}

	p, err := ctrl.Service.Update(c.UserContext(), middleware.GetActor(c), id, patch)
	if err != nil {
		return apperr.Respond(c, err)
	}
	return c.JSON(p)
}

// Delete godoc
// @Summary      Delete a process
// @Tags         processes
// @Param        id path string true "Process ID"
// @Success      200  {object} map[string]string
// @Router       /processes/{id} [delete]
func (ctrl *ProcessController) Delete(c *fiber.Ctx) error {
	id, err := api.ParamID(c, "id", "process")
	if err != nil {
		return apperr.Respond(c, err)
	}

	if err := ctrl.Service.Delete(c.UserContext(), middleware.GetActor(c), id); err != nil {
		return apperr.Respond(c, err)
	}
	return c.JSON(fiber.Map{
		"message": "Process deleted successfully",
	})
}

// ToggleVerify godoc
// @Summary      Toggle process verification
// @Description  Verifying bumps the version tag. Unverifying leaves it.
// @Tags         processes
// @Param        id path string true "Process ID"
// @Success      200  {object} Process
// @Router       /processes/{id}/verify [put]
func (ctrl *ProcessController) ToggleVerify(c *fiber.Ctx) error {
	id, err := api.ParamID(c, "id", "process")
	if err != nil {
		return apperr.Respond(c, err)
	}

	p, err := ctrl.Service.ToggleVerify(c.UserContext(), middleware.GetActor(c), id)
	if err != nil {
		return apperr.Respond(c, err)
	}
	return c.JSON(p)
}

// Logs godoc
// @Summary      Process audit log
// @Tags         processes
// @Param        id path string true "Process ID"
// @Success      200  {array} LogEntry
// @Router       /processes/{id}/logs [get]
func (ctrl *ProcessController) Logs(c *fiber.Ctx) error {
	id, err := api.ParamID(c, "id", "process")
	if err != nil {
		return apperr.Respond(c, err)
	}

	logs, err := ctrl.Service.Logs(c.UserContext(), middleware.GetActor(c), id)
	if err != nil {
		return apperr.Respond(c, err)
	}
	return c.JSON(logs)
}

// ExportLogs godoc
// @Summary      Download the audit log as xlsx
// @Tags         processes
// @Produce      application/vnd.openxmlformats-officedocument.spreadsheetml.sheet
// @Param        id path string true "Process ID"
// @Router       /processes/{id}/logs/export [get]
func (ctrl *ProcessController) ExportLogs(c *fiber.Ctx) error {
	id, err := api.ParamID(c, "id", "process")
	if err != nil {
		return apperr.Respond(c, err)
	}

	data, filename, err := ctrl.Service.ExportLogs(c.UserContext(), middleware.GetActor(c), id)
	if err != nil {
		return apperr.Respond(c, err)
	}

	c.Set("Content-Type", "application/vnd.openxmlformats-officedocument.spreadsheetml.sheet")
	c.Set("Content-Disposition", fmt.Sprintf("attachment; filename=%s", filename))
	return c.Send(data)
}
