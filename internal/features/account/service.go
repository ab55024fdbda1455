package account

import (
	"context"
	"errors"
	"strings"

	"go-bpm/internal/common/apperr"
	"go-bpm/internal/common/models"
	"go-bpm/pkg/utils"

	"go.mongodb.org/mongo-driver/bson/primitive"
	"go.uber.org/zap"
)

type AuthService interface {
	RegisterBusiness(ctx context.Context, name, email, password string) (*models.Business, string, error)
	Login(ctx context.Context, kind models.ActorKind, email, password string) (string, *models.Actor, error)
	ResolveActor(ctx context.Context, claims *utils.ActorClaims) (*models.Actor, error)
}

type AuthServiceImpl struct {
	Businesses BusinessRepository
	Employees  EmployeeRepository
	Admins     AdminRepository
	Supports   SupportRepository
	Signer     *utils.TokenSigner
	Logger     *zap.Logger
}

func NewAuthService(
	businesses BusinessRepository,
	employees EmployeeRepository,
	admins AdminRepository,
	supports SupportRepository,
	signer *utils.TokenSigner,
	logger *zap.Logger,
) AuthService {
	return &AuthServiceImpl{
		Businesses: businesses,
		Employees:  employees,
		Admins:     admins,
		Supports:   supports,
		Signer:     signer,
		Logger:     logger,
	}
}

func normalizeEmail(email string) string {
	return strings.ToLower(strings.TrimSpace(email))
}

func (s *AuthServiceImpl) RegisterBusiness(ctx context.Context, name, email, password string) (*models.Business, string, error) {
	hash, err := utils.HashPassword(password)
	if err != nil {
		return nil, "", apperr.Invalid("%s", err.Error())
	}

	b := &models.Business{
		Name:     strings.TrimSpace(name),
		Email:    normalizeEmail(email),
		Password: hash,
		IsActive: true,
	}
	if err := s.Businesses.Create(ctx, b); err != nil {
		return nil, "", err
	}

	token, err := s.Signer.GenerateToken(models.ActorOwner, b.ID.Hex())
	if err != nil {
		return nil, "", err
	}

	s.Logger.Info("business registered", zap.String("tenantId", b.ID.Hex()), zap.String("email", b.Email))
	return b, token, nil
}

var errBadCredentials = apperr.AuthFailure("Invalid credentials")

func (s *AuthServiceImpl) Login(ctx context.Context, kind models.ActorKind, email, password string) (string, *models.Actor, error) {
	email = normalizeEmail(email)

	var (
		actor *models.Actor
		hash  string
		err   error
	)
	switch kind {
	case models.ActorOwner:
		var b *models.Business
		if b, err = s.Businesses.FindByEmail(ctx, email); err == nil {
			actor, hash = models.OwnerActor(b), b.Password
		}
	case models.ActorEmployee:
		var e *models.Employee
		if e, err = s.Employees.FindByEmail(ctx, email); err == nil {
			actor, hash = models.EmployeeActor(e), e.Password
		}
	case models.ActorAdmin:
		var a *models.Admin
		if a, err = s.Admins.FindByEmail(ctx, email); err == nil {
			actor, hash = models.AdminActor(a), a.Password
		}
	case models.ActorSupport:
		var sp *models.Support
		if sp, err = s.Supports.FindByEmail(ctx, email); err == nil {
			actor, hash = models.SupportActor(sp), sp.Password
		}
	default:
		return "", nil, apperr.Invalid("unknown account kind %q", kind)
	}
	if err != nil {
		if errors.Is(err, apperr.ErrNotFound) {
			return "", nil, errBadCredentials
		}
		return "", nil, err
	}

	if err := utils.VerifyPassword(hash, password); err != nil {
		return "", nil, errBadCredentials
	}
	if err := s.checkActive(ctx, actor); err != nil {
		return "", nil, err
	}

	token, err := s.Signer.GenerateToken(kind, actor.ID().Hex())
	if err != nil {
		return "", nil, err
	}
	return token, actor, nil
}

// ResolveActor loads the record named by verified claims from the collection
// selected by the kind claim. Unknown ids and inactive accounts are AuthFailures.
func (s *AuthServiceImpl) ResolveActor(ctx context.Context, claims *utils.ActorClaims) (*models.Actor, error) {
	id, err := primitive.ObjectIDFromHex(claims.Subject)
	if err != nil {
		return nil, apperr.AuthFailure("Invalid token")
	}

	var actor *models.Actor
	switch claims.Kind {
	case models.ActorOwner:
		var b *models.Business
		if b, err = s.Businesses.FindByID(ctx, id); err == nil {
			actor = models.OwnerActor(b)
		}
	case models.ActorEmployee:
		var e *models.Employee
		if e, err = s.Employees.FindByID(ctx, id); err == nil {
			actor = models.EmployeeActor(e)
		}
	case models.ActorAdmin:
		var a *models.Admin
		if a, err = s.Admins.FindByID(ctx, id); err == nil {
			actor = models.AdminActor(a)
		}
	case models.ActorSupport:
		var sp *models.Support
		if sp, err = s.Supports.FindByID(ctx, id); err == nil {
			actor = models.SupportActor(sp)
		}
	default:
		return nil, apperr.AuthFailure("Invalid token")
	}
	if err != nil {
		if errors.Is(err, apperr.ErrNotFound) {
			return nil, apperr.AuthFailure("Account not found")
		}
		return nil, err
	}

	if err := s.checkActive(ctx, actor); err != nil {
		return nil, err
	}
	return actor, nil
}

// checkActive denies deactivated accounts. A deactivated business also
// locks out its employees.
func (s *AuthServiceImpl) checkActive(ctx context.Context, actor *models.Actor) error {
	switch actor.Kind {
	case models.ActorOwner:
		if !actor.Owner.IsActive {
			return apperr.AuthFailure("Account is deactivated")
		}
	case models.ActorEmployee:
		if !actor.Employee.IsActive {
			return apperr.AuthFailure("Account is deactivated")
		}
		b, err := s.Businesses.FindByID(ctx, actor.Employee.BusinessID)
		if err != nil {
			if errors.Is(err, apperr.ErrNotFound) {
				return apperr.AuthFailure("Company not found")
			}
			return err
		}
		if !b.IsActive {
			return apperr.AuthFailure("Company account is deactivated")
		}
	case models.ActorSupport:
		if !actor.Support.IsActive {
			return apperr.AuthFailure("Account is deactivated")
		}
	}
	return nil
}
