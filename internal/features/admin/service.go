package admin

import (
	"context"
	"errors"
	"strings"

	"go-bpm/internal/common/apperr"
	"go-bpm/internal/common/models"
	"go-bpm/internal/features/account"
	"go-bpm/pkg/utils"

	"go.mongodb.org/mongo-driver/bson/primitive"
	"go.uber.org/zap"
)

type Companies interface {
	FindByID(ctx context.Context, id primitive.ObjectID) (*models.Business, error)
	FindAll(ctx context.Context) ([]models.Business, error)
	FindByIDs(ctx context.Context, ids []primitive.ObjectID) ([]models.Business, error)
	SetActive(ctx context.Context, id primitive.ObjectID, active bool) error
	SetPassword(ctx context.Context, id primitive.ObjectID, hash string) error
}

type Employees interface {
	FindByID(ctx context.Context, id primitive.ObjectID) (*models.Employee, error)
	SetPassword(ctx context.Context, id primitive.ObjectID, hash string) error
}

type Admins interface {
	Create(ctx context.Context, a *models.Admin) error
	FindByEmail(ctx context.Context, email string) (*models.Admin, error)
}

type Supports interface {
	Create(ctx context.Context, s *models.Support) error
	FindByID(ctx context.Context, id primitive.ObjectID) (*models.Support, error)
	FindAll(ctx context.Context) ([]models.Support, error)
	SetCompanies(ctx context.Context, id primitive.ObjectID, companies []primitive.ObjectID) error
}

// AdminService holds the cross-tenant operations of Admin and Support
// accounts. Support calls are limited to assigned companies.
type AdminService interface {
	ListCompanies(ctx context.Context, actor *models.Actor) ([]models.Business, error)
	SetCompanyStatus(ctx context.Context, actor *models.Actor, companyID primitive.ObjectID, active bool) error
	ResetOwnerPassword(ctx context.Context, actor *models.Actor, companyID primitive.ObjectID, password string) error
	ResetEmployeePassword(ctx context.Context, actor *models.Actor, employeeID primitive.ObjectID, password string) error
	CreateSupport(ctx context.Context, req CreateSupportRequest) (*models.Support, error)
	ListSupports(ctx context.Context) ([]models.Support, error)
	AssignCompanies(ctx context.Context, supportID primitive.ObjectID, companyIDs []primitive.ObjectID) (*models.Support, error)
	// BootstrapAdmin creates the admin account, or returns it when the email exists.
	BootstrapAdmin(ctx context.Context, name, email, password string) (*models.Admin, bool, error)
}

type CreateSupportRequest struct {
	Name       string               `json:"name" validate:"required,max=120"`
	Email      string               `json:"email" validate:"required,email"`
	Password   string               `json:"password" validate:"required,min=6"`
	CompanyIDs []primitive.ObjectID `json:"companyIds"`
}

type AdminServiceImpl struct {
	Companies Companies
	Employees Employees
	Admins    Admins
	Supports  Supports
	Logger    *zap.Logger
}

func NewAdminService(
	businesses account.BusinessRepository,
	employees account.EmployeeRepository,
	admins account.AdminRepository,
	supports account.SupportRepository,
	logger *zap.Logger,
) AdminService {
	return &AdminServiceImpl{
		Companies: businesses,
		Employees: employees,
		Admins:    admins,
		Supports:  supports,
		Logger:    logger,
	}
}

func checkScope(actor *models.Actor, companyID primitive.ObjectID) error {
	if !actor.CanAccessTenant(companyID) {
		return apperr.Forbidden("Company is not assigned to this account")
	}
	return nil
}

func (s *AdminServiceImpl) ListCompanies(ctx context.Context, actor *models.Actor) ([]models.Business, error) {
	if actor.Kind == models.ActorAdmin {
		return s.Companies.FindAll(ctx)
	}
	if len(actor.Support.AssignedCompanies) == 0 {
		return []models.Business{}, nil
	}
	return s.Companies.FindByIDs(ctx, actor.Support.AssignedCompanies)
}

func (s *AdminServiceImpl) SetCompanyStatus(ctx context.Context, actor *models.Actor, companyID primitive.ObjectID, active bool) error {
	if err := checkScope(actor, companyID); err != nil {
		return err
	}
	if err := s.Companies.SetActive(ctx, companyID, active); err != nil {
		return err
	}
	s.Logger.Info("company status changed",
		zap.String("tenantId", companyID.Hex()),
		zap.Bool("active", active),
		zap.String("by", actor.Email()),
	)
	return nil
}

func hash(password string) (string, error) {
	if len(password) < 6 {
		return "", apperr.Invalid("Password must be at least 6 characters")
	}
	return utils.HashPassword(password)
}

func (s *AdminServiceImpl) ResetOwnerPassword(ctx context.Context, actor *models.Actor, companyID primitive.ObjectID, password string) error {
	if err := checkScope(actor, companyID); err != nil {
		return err
	}
	h, err := hash(password)
	if err != nil {
		return err
	}
	if err := s.Companies.SetPassword(ctx, companyID, h); err != nil {
		return err
	}
	s.Logger.Info("owner password reset", zap.String("tenantId", companyID.Hex()), zap.String("by", actor.Email()))
	return nil
}

func (s *AdminServiceImpl) ResetEmployeePassword(ctx context.Context, actor *models.Actor, employeeID primitive.ObjectID, password string) error {
	e, err := s.Employees.FindByID(ctx, employeeID)
	if err != nil {
		return err
	}
	if err := checkScope(actor, e.BusinessID); err != nil {
		return err
	}
	h, err := hash(password)
	if err != nil {
		return err
	}
	if err := s.Employees.SetPassword(ctx, employeeID, h); err != nil {
		return err
	}
	s.Logger.Info("employee password reset", zap.String("employeeId", employeeID.Hex()), zap.String("by", actor.Email()))
	return nil
}

func (s *AdminServiceImpl) verifyCompanies(ctx context.Context, ids []primitive.ObjectID) ([]primitive.ObjectID, error) {
	unique := make([]primitive.ObjectID, 0, len(ids))
	seen := map[primitive.ObjectID]bool{}
	for _, id := range ids {
		if !seen[id] {
			seen[id] = true
			unique = append(unique, id)
		}
	}
	if len(unique) == 0 {
		return unique, nil
	}
	found, err := s.Companies.FindByIDs(ctx, unique)
	if err != nil {
		return nil, err
	}
	if len(found) != len(unique) {
		return nil, apperr.NotFound("One or more companies not found")
	}
	return unique, nil
}

func (s *AdminServiceImpl) CreateSupport(ctx context.Context, req CreateSupportRequest) (*models.Support, error) {
	companies, err := s.verifyCompanies(ctx, req.CompanyIDs)
	if err != nil {
		return nil, err
	}
	h, err := hash(req.Password)
	if err != nil {
		return nil, err
	}

	sp := &models.Support{
		Name:              strings.TrimSpace(req.Name),
		Email:             strings.ToLower(strings.TrimSpace(req.Email)),
		Password:          h,
		AssignedCompanies: companies,
		IsActive:          true,
	}
	if err := s.Supports.Create(ctx, sp); err != nil {
		return nil, err
	}
	s.Logger.Info("support account created", zap.String("supportId", sp.ID.Hex()))
	return sp, nil
}

func (s *AdminServiceImpl) ListSupports(ctx context.Context) ([]models.Support, error) {
	return s.Supports.FindAll(ctx)
}

func (s *AdminServiceImpl) AssignCompanies(ctx context.Context, supportID primitive.ObjectID, companyIDs []primitive.ObjectID) (*models.Support, error) {
	companies, err := s.verifyCompanies(ctx, companyIDs)
	if err != nil {
		return nil, err
	}
	if err := s.Supports.SetCompanies(ctx, supportID, companies); err != nil {
		return nil, err
	}
	return s.Supports.FindByID(ctx, supportID)
}

func (s *AdminServiceImpl) BootstrapAdmin(ctx context.Context, name, email, password string) (*models.Admin, bool, error) {
	email = strings.ToLower(strings.TrimSpace(email))
	existing, err := s.Admins.FindByEmail(ctx, email)
	if err == nil {
		return existing, false, nil
	}
	if !errors.Is(err, apperr.ErrNotFound) {
		return nil, false, err
	}

	h, err := hash(password)
	if err != nil {
		return nil, false, err
	}
	a := &models.Admin{Name: strings.TrimSpace(name), Email: email, Password: h}
	if err := s.Admins.Create(ctx, a); err != nil {
		return nil, false, err
	}
	return a, true, nil
}
