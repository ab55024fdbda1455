package account

import (
	"context"

	"go-bpm/internal/common/apperr"
	"go-bpm/internal/common/models"

	"go.mongodb.org/mongo-driver/bson/primitive"
)

type memBusinesses struct{ byID map[primitive.ObjectID]*models.Business }

func (m *memBusinesses) Create(ctx context.Context, b *models.Business) error {
	for _, x := range m.byID {
		if x.Email == b.Email {
			return apperr.Conflict("email already registered")
		}
	}
	b.ID = primitive.NewObjectID()
	cp := *b
	m.byID[b.ID] = &cp
	return nil
}

func (m *memBusinesses) FindByID(ctx context.Context, id primitive.ObjectID) (*models.Business, error) {
	if b, ok := m.byID[id]; ok {
		cp := *b
		return &cp, nil
	}
	return nil, apperr.NotFound("Business not found")
}

func (m *memBusinesses) FindByEmail(ctx context.Context, email string) (*models.Business, error) {
	for _, b := range m.byID {
		if b.Email == email {
			cp := *b
			return &cp, nil
		}
	}
	return nil, apperr.NotFound("Business not found")
}

func (m *memBusinesses) FindAll(ctx context.Context) ([]models.Business, error) {
	out := []models.Business{}
	for _, b := range m.byID {
		out = append(out, *b)
	}
	return out, nil
}

func (m *memBusinesses) FindByIDs(ctx context.Context, ids []primitive.ObjectID) ([]models.Business, error) {
	out := []models.Business{}
	for _, id := range ids {
		if b, ok := m.byID[id]; ok {
			out = append(out, *b)
		}
	}
	return out, nil
}

func (m *memBusinesses) SetActive(ctx context.Context, id primitive.ObjectID, active bool) error {
	b, ok := m.byID[id]
	if !ok {
		return apperr.NotFound("Business not found")
	}
	b.IsActive = active
	return nil
}

func (m *memBusinesses) SetPassword(ctx context.Context, id primitive.ObjectID, hash string) error {
	b, ok := m.byID[id]
	if !ok {
		return apperr.NotFound("Business not found")
	}
	b.Password = hash
	return nil
}

func (m *memBusinesses) EnsureIndexes(ctx context.Context) error { return nil }

type memEmployees struct{ byID map[primitive.ObjectID]*models.Employee }

func (m *memEmployees) Create(ctx context.Context, e *models.Employee) error {
	e.ID = primitive.NewObjectID()
	cp := *e
	m.byID[e.ID] = &cp
	return nil
}

func (m *memEmployees) FindByID(ctx context.Context, id primitive.ObjectID) (*models.Employee, error) {
	if e, ok := m.byID[id]; ok {
		cp := *e
		return &cp, nil
	}
	return nil, apperr.NotFound("Employee not found")
}

func (m *memEmployees) FindByEmail(ctx context.Context, email string) (*models.Employee, error) {
	for _, e := range m.byID {
		if e.Email == email {
			cp := *e
			return &cp, nil
		}
	}
	return nil, apperr.NotFound("Employee not found")
}

func (m *memEmployees) FindByBusiness(ctx context.Context, businessID primitive.ObjectID) ([]models.Employee, error) {
	out := []models.Employee{}
	for _, e := range m.byID {
		if e.BusinessID == businessID {
			out = append(out, *e)
		}
	}
	return out, nil
}

func (m *memEmployees) CountInBusiness(ctx context.Context, businessID primitive.ObjectID, ids []primitive.ObjectID) (int64, error) {
	var n int64
	for _, id := range ids {
		if e, ok := m.byID[id]; ok && e.BusinessID == businessID {
			n++
		}
	}
	return n, nil
}

func (m *memEmployees) UpdatePlacement(ctx context.Context, id primitive.ObjectID, roleID, departmentID *primitive.ObjectID) error {
	e, ok := m.byID[id]
	if !ok {
		return apperr.NotFound("Employee not found")
	}
	e.RoleID, e.DepartmentID = roleID, departmentID
	return nil
}

func (m *memEmployees) SetActive(ctx context.Context, id primitive.ObjectID, active bool) error {
	e, ok := m.byID[id]
	if !ok {
		return apperr.NotFound("Employee not found")
	}
	e.IsActive = active
	return nil
}

func (m *memEmployees) SetPassword(ctx context.Context, id primitive.ObjectID, hash string) error {
	e, ok := m.byID[id]
	if !ok {
		return apperr.NotFound("Employee not found")
	}
	e.Password = hash
	return nil
}

func (m *memEmployees) EnsureIndexes(ctx context.Context) error { return nil }

type memAdmins struct{ byID map[primitive.ObjectID]*models.Admin }

func (m *memAdmins) Create(ctx context.Context, a *models.Admin) error {
	a.ID = primitive.NewObjectID()
	cp := *a
	m.byID[a.ID] = &cp
	return nil
}

func (m *memAdmins) FindByID(ctx context.Context, id primitive.ObjectID) (*models.Admin, error) {
	if a, ok := m.byID[id]; ok {
		return a, nil
	}
	return nil, apperr.NotFound("Admin not found")
}

func (m *memAdmins) FindByEmail(ctx context.Context, email string) (*models.Admin, error) {
	for _, a := range m.byID {
		if a.Email == email {
			return a, nil
		}
	}
	return nil, apperr.NotFound("Admin not found")
}

type memSupports struct{ byID map[primitive.ObjectID]*models.Support }

func (m *memSupports) Create(ctx context.Context, s *models.Support) error {
	s.ID = primitive.NewObjectID()
	cp := *s
	m.byID[s.ID] = &cp
	return nil
}

func (m *memSupports) FindByID(ctx context.Context, id primitive.ObjectID) (*models.Support, error) {
	if s, ok := m.byID[id]; ok {
		return s, nil
	}
	return nil, apperr.NotFound("Support not found")
}

func (m *memSupports) FindByEmail(ctx context.Context, email string) (*models.Support, error) {
	for _, s := range m.byID {
		if s.Email == email {
			return s, nil
		}
	}
	return nil, apperr.NotFound("Support not found")
}

func (m *memSupports) FindAll(ctx context.Context) ([]models.Support, error) {
	out := []models.Support{}
	for _, s := range m.byID {
		out = append(out, *s)
	}
	return out, nil
}

func (m *memSupports) SetCompanies(ctx context.Context, id primitive.ObjectID, companies []primitive.ObjectID) error {
	s, ok := m.byID[id]
	if !ok {
		return apperr.NotFound("Support not found")
	}
	s.AssignedCompanies = companies
	return nil
}

type stubNodes struct{ known map[primitive.ObjectID]models.StructureKind }

func (s *stubNodes) NodeExists(ctx context.Context, kind models.StructureKind, tenantID, nodeID primitive.ObjectID) error {
	if k, ok := s.known[nodeID]; ok && k == kind {
		return nil
	}
	return apperr.NotFound("node not found")
}
