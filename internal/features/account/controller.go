package account

import (
	"go-bpm/internal/common/api"
	"go-bpm/internal/common/apperr"
	"go-bpm/internal/common/models"
	"go-bpm/internal/middleware"

	"github.com/gofiber/fiber/v2"
	"go.mongodb.org/mongo-driver/bson/primitive"
)

type AccountController struct {
	AuthService     AuthService
	EmployeeService EmployeeService
}

func NewAccountController(authService AuthService, employeeService EmployeeService) *AccountController {
	return &AccountController{
		AuthService:     authService,
		EmployeeService: employeeService,
	}
}

type RegisterRequest struct {
	Name     string `json:"name" validate:"required,max=120"`
	Email    string `json:"email" validate:"required,email"`
	Password string `json:"password" validate:"required,min=6"`
}

type LoginRequest struct {
	Email    string `json:"email" validate:"required,email"`
	Password string `json:"password" validate:"required"`
}

type AuthResponse struct {
	Token string `json:"token"`
	Kind  string `json:"kind"`
	ID    string `json:"id"`
}

type PlacementRequest struct {
	RoleID       *primitive.ObjectID `json:"roleId"`
	DepartmentID *primitive.ObjectID `json:"departmentId"`
}

// Register godoc
// @Summary      Register a business
// @Tags         auth
// @Accept       json
// @Produce      json
// @Param        input body RegisterRequest true "Register Input"
// @Success      201  {object} AuthResponse
// @Failure      400  {object} map[string]string
// @Router       /auth/business/register [post]
func (ctrl *AccountController) Register(c *fiber.Ctx) error {
	var req RegisterRequest
	if err := api.ParseBody(c, &req); err != nil {
		return apperr.Respond(c, err)
	}

	b, token, err := ctrl.AuthService.RegisterBusiness(c.UserContext(), req.Name, req.Email, req.Password)
	if err != nil {
		return apperr.Respond(c, err)
	}

	return c.Status(fiber.StatusCreated).JSON(AuthResponse{
		Token: token,
		Kind:  string(models.ActorOwner),
		ID:    b.ID.Hex(),
	})
}

// Login returns a handler for the given account kind.
// @Summary      Login
// @Tags         auth
// @Accept       json
// @Produce      json
// @Param        kind path string true "business | employee | admin | support"
// @Param        input body LoginRequest true "Login Input"
// @Success      200  {object} AuthResponse
// @Failure      401  {object} map[string]string
// @Router       /auth/{kind}/login [post]
func (ctrl *AccountController) Login(kind models.ActorKind) fiber.Handler {
	return func(c *fiber.Ctx) error {
		var req LoginRequest
		if err := api.ParseBody(c, &req); err != nil {
			return apperr.Respond(c, err)
		}

		token, actor, err := ctrl.AuthService.Login(c.UserContext(), kind, req.Email, req.Password)
		if err != nil {
			return apperr.Respond(c, err)
		}

		return c.JSON(AuthResponse{Token: token, Kind: string(kind), ID: actor.ID().Hex()})
	}
}

// Me returns the resolved actor.
func (ctrl *AccountController) Me(c *fiber.Ctx) error {
	actor := middleware.GetActor(c)
	resp := fiber.Map{
		"kind":  actor.Kind,
		"id":    actor.ID().Hex(),
		"email": actor.Email(),
	}
	if tenantID, ok := actor.TenantID(); ok {
		resp["companyId"] = tenantID.Hex()
	}
	if actor.Kind == models.ActorSupport {
		resp["assignedCompanies"] = actor.Support.AssignedCompanies
	}
	return c.JSON(resp)
}

func (ctrl *AccountController) CreateEmployee(c *fiber.Ctx) error {
	var req CreateEmployeeRequest
	if err := api.ParseBody(c, &req); err != nil {
		return apperr.Respond(c, err)
	}

	tenantID, _ := middleware.GetActor(c).TenantID()
	e, err := ctrl.EmployeeService.CreateEmployee(c.UserContext(), tenantID, req)
	if err != nil {
		return apperr.Respond(c, err)
	}
	return c.Status(fiber.StatusCreated).JSON(e)
}

func (ctrl *AccountController) ListEmployees(c *fiber.Ctx) error {
	tenantID, _ := middleware.GetActor(c).TenantID()
	employees, err := ctrl.EmployeeService.ListEmployees(c.UserContext(), tenantID)
	if err != nil {
		return apperr.Respond(c, err)
	}
	return c.JSON(employees)
}

func (ctrl *AccountController) UpdatePlacement(c *fiber.Ctx) error {
	id, err := api.ParamID(c, "id", "employee")
	if err != nil {
		return apperr.Respond(c, err)
	}

	var req PlacementRequest
	if err := api.ParseBody(c, &req); err != nil {
		return apperr.Respond(c, err)
	}

	tenantID, _ := middleware.GetActor(c).TenantID()
	e, err := ctrl.EmployeeService.UpdatePlacement(c.UserContext(), tenantID, id, req.RoleID, req.DepartmentID)
	if err != nil {
		return apperr.Respond(c, err)
	}
	return c.JSON(e)
}
