package account

import (
	"context"
	"strings"

	"go-bpm/internal/common/apperr"
	"go-bpm/internal/common/models"
	"go-bpm/pkg/utils"

	"go.mongodb.org/mongo-driver/bson/primitive"
)

// NodeChecker confirms a role or department exists in a tenant's structure.
type NodeChecker interface {
	NodeExists(ctx context.Context, kind models.StructureKind, tenantID, nodeID primitive.ObjectID) error
}

type EmployeeService interface {
	CreateEmployee(ctx context.Context, tenantID primitive.ObjectID, req CreateEmployeeRequest) (*models.Employee, error)
	ListEmployees(ctx context.Context, tenantID primitive.ObjectID) ([]models.Employee, error)
	UpdatePlacement(ctx context.Context, tenantID, employeeID primitive.ObjectID, roleID, departmentID *primitive.ObjectID) (*models.Employee, error)
	// VerifyMembers fails with NotFound unless every id is an employee of tenantID.
	VerifyMembers(ctx context.Context, tenantID primitive.ObjectID, ids []primitive.ObjectID) error
}

type CreateEmployeeRequest struct {
	Name         string              `json:"name" validate:"required,max=120"`
	Email        string              `json:"email" validate:"required,email"`
	Password     string              `json:"password" validate:"required,min=6"`
	RoleID       *primitive.ObjectID `json:"roleId"`
	DepartmentID *primitive.ObjectID `json:"departmentId"`
}

type EmployeeServiceImpl struct {
	Repo  EmployeeRepository
	Nodes NodeChecker
}

func NewEmployeeService(repo EmployeeRepository, nodes NodeChecker) EmployeeService {
	return &EmployeeServiceImpl{Repo: repo, Nodes: nodes}
}

func (s *EmployeeServiceImpl) checkPlacement(ctx context.Context, tenantID primitive.ObjectID, roleID, departmentID *primitive.ObjectID) error {
	if roleID != nil {
		if err := s.Nodes.NodeExists(ctx, models.StructureRoles, tenantID, *roleID); err != nil {
			return err
		}
	}
	if departmentID != nil {
		if err := s.Nodes.NodeExists(ctx, models.StructureDepartments, tenantID, *departmentID); err != nil {
			return err
		}
	}
	return nil
}

func (s *EmployeeServiceImpl) CreateEmployee(ctx context.Context, tenantID primitive.ObjectID, req CreateEmployeeRequest) (*models.Employee, error) {
	if err := s.checkPlacement(ctx, tenantID, req.RoleID, req.DepartmentID); err != nil {
		return nil, err
	}

	hash, err := utils.HashPassword(req.Password)
	if err != nil {
		return nil, apperr.Invalid("%s", err.Error())
	}

	e := &models.Employee{
		BusinessID:   tenantID,
		Name:         strings.TrimSpace(req.Name),
		Email:        normalizeEmail(req.Email),
		Password:     hash,
		RoleID:       req.RoleID,
		DepartmentID: req.DepartmentID,
		IsActive:     true,
	}
	if err := s.Repo.Create(ctx, e); err != nil {
		return nil, err
	}
	return e, nil
}

func (s *EmployeeServiceImpl) ListEmployees(ctx context.Context, tenantID primitive.ObjectID) ([]models.Employee, error) {
	return s.Repo.FindByBusiness(ctx, tenantID)
}

func (s *EmployeeServiceImpl) UpdatePlacement(ctx context.Context, tenantID, employeeID primitive.ObjectID, roleID, departmentID *primitive.ObjectID) (*models.Employee, error) {
	e, err := s.Repo.FindByID(ctx, employeeID)
	if err != nil {
		return nil, err
	}
	if e.BusinessID != tenantID {
		return nil, apperr.NotFound("Employee not found")
	}
	if err := s.checkPlacement(ctx, tenantID, roleID, departmentID); err != nil {
		return nil, err
	}
	if err := s.Repo.UpdatePlacement(ctx, employeeID, roleID, departmentID); err != nil {
		return nil, err
	}
	e.RoleID, e.DepartmentID = roleID, departmentID
	return e, nil
}

func (s *EmployeeServiceImpl) VerifyMembers(ctx context.Context, tenantID primitive.ObjectID, ids []primitive.ObjectID) error {
	unique := make([]primitive.ObjectID, 0, len(ids))
	seen := make(map[primitive.ObjectID]struct{}, len(ids))
	for _, id := range ids {
		if _, ok := seen[id]; !ok {
			seen[id] = struct{}{}
			unique = append(unique, id)
		}
	}
	if len(unique) == 0 {
		return nil
	}
	n, err := s.Repo.CountInBusiness(ctx, tenantID, unique)
	if err != nil {
		return err
	}
	if n != int64(len(unique)) {
		return apperr.NotFound("One or more employees not found")
	}
	return nil
}
