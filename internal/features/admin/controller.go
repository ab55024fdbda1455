package admin

import (
	"context"

	"go-bpm/internal/common/api"
	"go-bpm/internal/common/apperr"
	"go-bpm/internal/features/reconcile"
	"go-bpm/internal/middleware"

	"github.com/gofiber/fiber/v2"
	"go.mongodb.org/mongo-driver/bson/primitive"
)

// Reconciler runs one assignment reconcile pass.
type Reconciler interface {
	Run(ctx context.Context) (*reconcile.Report, error)
}

// AdminController serves the cross-tenant console
type AdminController struct {
	Service    AdminService
	Reconciler Reconciler
}

func NewAdminController(service AdminService, reconciler Reconciler) *AdminController {
	return &AdminController{Service: service, Reconciler: reconciler}
}

type StatusRequest struct {
	IsActive *bool `json:"isActive" validate:"required"`
}

type PasswordRequest struct {
	Password string `json:"password" validate:"required,min=6"`
}

type CompaniesRequest struct {
	CompanyIDs []primitive.ObjectID `json:"companyIds" validate:"required"`
}

// ListCompanies godoc
// @Summary      List companies in scope
// @Tags         admin
// @Produce      json
// @Success      200  {array} models.Business
// @Router       /admin/companies [get]
func (ctrl *AdminController) ListCompanies(c *fiber.Ctx) error {
	companies, err := ctrl.Service.ListCompanies(c.UserContext(), middleware.GetActor(c))
	if err != nil {
		return apperr.Respond(c, err)
	}
	return c.JSON(companies)
}

// SetCompanyStatus godoc
// @Summary      Activate or deactivate a company
// @Tags         admin
// @Accept       json
// @Param        id path string true "Company ID"
// @Param        input body StatusRequest true "Status"
// @Router       /admin/companies/{id}/status [put]
func (ctrl *AdminController) SetCompanyStatus(c *fiber.Ctx) error {
	id, err := api.ParamID(c, "id", "company")
	if err != nil {
		return apperr.Respond(c, err)
	}
	var req StatusRequest
	if err := api.ParseBody(c, &req); err != nil {
		return apperr.Respond(c, err)
	}

	if err := ctrl.Service.SetCompanyStatus(c.UserContext(), middleware.GetActor(c), id, *req.IsActive); err != nil {
		return apperr.Respond(c, err)
	}
	return c.JSON(fiber.Map{
		"message": "Company status updated",
	})
}

// ResetOwnerPassword godoc
// @Summary      Reset a company owner's password
// @Tags         admin
// @Router       /admin/companies/{id}/reset-password [put]
func (ctrl *AdminController) ResetOwnerPassword(c *fiber.Ctx) error {
	id, err := api.ParamID(c, "id", "company")
	if err != nil {
		return apperr.Respond(c, err)
	}
	var req PasswordRequest
	if err := api.ParseBody(c, &req); err != nil {
		return apperr.Respond(c, err)
	}

	if err := ctrl.Service.ResetOwnerPassword(c.UserContext(), middleware.GetActor(c), id, req.Password); err != nil {
		return apperr.Respond(c, err)
	}
	return c.JSON(fiber.Map{
		"message": "Password reset successfully",
	})
}

// ResetEmployeePassword godoc
// @Summary      Reset an employee's password
// @Tags         admin
// @Router       /admin/employees/{id}/reset-password [put]
func (ctrl *AdminController) ResetEmployeePassword(c *fiber.Ctx) error {
	id, err := api.ParamID(c, "id", "employee")
	if err != nil {
		return apperr.Respond(c, err)
	}
	var req PasswordRequest
	if err := api.ParseBody(c, &req); err != nil {
		return apperr.Respond(c, err)
	}

	if err := ctrl.Service.ResetEmployeePassword(c.UserContext(), middleware.GetActor(c), id, req.Password); err != nil {
		return apperr.Respond(c, err)
	}
	return c.JSON(fiber.Map{
		"message": "Password reset successfully",
	})
}

// CreateSupport godoc
// @Summary      Create a support account
// @Tags         admin
// @Accept       json
// @Produce      json
// @Param        input body CreateSupportRequest true "Support"
// @Success      201  {object} models.Support
// @Router       /admin/supports [post]
func (ctrl *AdminController) CreateSupport(c *fiber.Ctx) error {
	var req CreateSupportRequest
	if err := api.ParseBody(c, &req); err != nil {
		return apperr.Respond(c, err)
	}

	sp, err := ctrl.Service.CreateSupport(c.UserContext(), req)
	if err != nil {
		return apperr.Respond(c, err)
	}
	return c.Status(fiber.StatusCreated).JSON(sp)
}

// ListSupports godoc
// @Summary      List support accounts
// @Tags         admin
// @Router       /admin/supports [get]
func (ctrl *AdminController) ListSupports(c *fiber.Ctx) error {
	list, err := ctrl.Service.ListSupports(c.UserContext())
	if err != nil {
		return apperr.Respond(c, err)
	}
	return c.JSON(list)
}

// AssignCompanies godoc
// @Summary      Replace a support account's assigned companies
// @Tags         admin
// @Router       /admin/supports/{id}/companies [put]
func (ctrl *AdminController) AssignCompanies(c *fiber.Ctx) error {
	id, err := api.ParamID(c, "id", "support")
	if err != nil {
		return apperr.Respond(c, err)
	}
	var req CompaniesRequest
	if err := api.ParseBody(c, &req); err != nil {
		return apperr.Respond(c, err)
	}

	sp, err := ctrl.Service.AssignCompanies(c.UserContext(), id, req.CompanyIDs)
	if err != nil {
		return apperr.Respond(c, err)
	}
	return c.JSON(sp)
}

// Reconcile godoc
// @Summary      Run an assignment reconcile pass now
// @Tags         admin
// @Produce      json
// @Success      200  {object} reconcile.Report
// @Router       /admin/reconcile [post]
func (ctrl *AdminController) Reconcile(c *fiber.Ctx) error {
	report, err := ctrl.Reconciler.Run(c.UserContext())
	if err != nil {
		return apperr.Respond(c, err)
	}
	return c.JSON(report)
}
