package account

import (
	"context"
	"time"

	"go-bpm/internal/common/apperr"
	"go-bpm/internal/common/models"
	"go-bpm/internal/database"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/bson/primitive"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"
)

type BusinessRepository interface {
	Create(ctx context.Context, b *models.Business) error
	FindByID(ctx context.Context, id primitive.ObjectID) (*models.Business, error)
	FindByEmail(ctx context.Context, email string) (*models.Business, error)
	FindAll(ctx context.Context) ([]models.Business, error)
	FindByIDs(ctx context.Context, ids []primitive.ObjectID) ([]models.Business, error)
	SetActive(ctx context.Context, id primitive.ObjectID, active bool) error
	SetPassword(ctx context.Context, id primitive.ObjectID, hash string) error
	EnsureIndexes(ctx context.Context) error
}

type EmployeeRepository interface {
	Create(ctx context.Context, e *models.Employee) error
	FindByID(ctx context.Context, id primitive.ObjectID) (*models.Employee, error)
	FindByEmail(ctx context.Context, email string) (*models.Employee, error)
	FindByBusiness(ctx context.Context, businessID primitive.ObjectID) ([]models.Employee, error)
	CountInBusiness(ctx context.Context, businessID primitive.ObjectID, ids []primitive.ObjectID) (int64, error)
	UpdatePlacement(ctx context.Context, id primitive.ObjectID, roleID, departmentID *primitive.ObjectID) error
	SetActive(ctx context.Context, id primitive.ObjectID, active bool) error
	SetPassword(ctx context.Context, id primitive.ObjectID, hash string) error
	EnsureIndexes(ctx context.Context) error
}

type AdminRepository interface {
	Create(ctx context.Context, a *models.Admin) error
	FindByID(ctx context.Context, id primitive.ObjectID) (*models.Admin, error)
	FindByEmail(ctx context.Context, email string) (*models.Admin, error)
}

type SupportRepository interface {
	Create(ctx context.Context, s *models.Support) error
	FindByID(ctx context.Context, id primitive.ObjectID) (*models.Support, error)
	FindByEmail(ctx context.Context, email string) (*models.Support, error)
	FindAll(ctx context.Context) ([]models.Support, error)
	SetCompanies(ctx context.Context, id primitive.ObjectID, companies []primitive.ObjectID) error
}

// findOne decodes a single document, turning a miss into NotFound.
func findOne[T any](ctx context.Context, coll *mongo.Collection, filter bson.M, what string) (*T, error) {
	var out T
	if err := coll.FindOne(ctx, filter).Decode(&out); err != nil {
		return nil, apperr.FromMongo(err, what)
	}
	return &out, nil
}

func findMany[T any](ctx context.Context, coll *mongo.Collection, filter bson.M, opts ...*options.FindOptions) ([]T, error) {
	cursor, err := coll.Find(ctx, filter, opts...)
	if err != nil {
		return nil, err
	}
	defer cursor.Close(ctx)

	out := []T{}
	if err := cursor.All(ctx, &out); err != nil {
		return nil, err
	}
	return out, nil
}

// updateByID applies update and reports NotFound when nothing matched.
func updateByID(ctx context.Context, coll *mongo.Collection, id primitive.ObjectID, set bson.M, what string) error {
	set["updated_at"] = time.Now()
	res, err := coll.UpdateOne(ctx, bson.M{"_id": id}, bson.M{"$set": set})
	if err != nil {
		return err
	}
	if res.MatchedCount == 0 {
		return apperr.NotFound("%s not found", what)
	}
	return nil
}

func uniqueEmailIndex() mongo.IndexModel {
	return mongo.IndexModel{
		Keys:    bson.D{{Key: "email", Value: 1}},
		Options: options.Index().SetUnique(true),
	}
}

type BusinessRepositoryImpl struct {
	Collection *mongo.Collection
}

func NewBusinessRepository(mongodb *database.MongodbDB) BusinessRepository {
	return &BusinessRepositoryImpl{Collection: mongodb.DB.Collection("businesses")}
}

func (r *BusinessRepositoryImpl) Create(ctx context.Context, b *models.Business) error {
	now := time.Now()
	b.CreatedAt, b.UpdatedAt = now, now
	res, err := r.Collection.InsertOne(ctx, b)
	if err != nil {
		if mongo.IsDuplicateKeyError(err) {
			return apperr.Conflict("email already registered")
		}
		return err
	}
	b.ID = res.InsertedID.(primitive.ObjectID)
	return nil
}

func (r *BusinessRepositoryImpl) FindByID(ctx context.Context, id primitive.ObjectID) (*models.Business, error) {
	return findOne[models.Business](ctx, r.Collection, bson.M{"_id": id}, "Business")
}

func (r *BusinessRepositoryImpl) FindByEmail(ctx context.Context, email string) (*models.Business, error) {
	return findOne[models.Business](ctx, r.Collection, bson.M{"email": email}, "Business")
}

func (r *BusinessRepositoryImpl) FindAll(ctx context.Context) ([]models.Business, error) {
	return findMany[models.Business](ctx, r.Collection, bson.M{}, options.Find().SetSort(bson.M{"created_at": -1}))
}

func (r *BusinessRepositoryImpl) FindByIDs(ctx context.Context, ids []primitive.ObjectID) ([]models.Business, error) {
	if len(ids) == 0 {
		return []models.Business{}, nil
	}
	return findMany[models.Business](ctx, r.Collection, bson.M{"_id": bson.M{"$in": ids}})
}

func (r *BusinessRepositoryImpl) SetActive(ctx context.Context, id primitive.ObjectID, active bool) error {
	return updateByID(ctx, r.Collection, id, bson.M{"is_active": active}, "Business")
}

func (r *BusinessRepositoryImpl) SetPassword(ctx context.Context, id primitive.ObjectID, hash string) error {
	return updateByID(ctx, r.Collection, id, bson.M{"password": hash}, "Business")
}

func (r *BusinessRepositoryImpl) EnsureIndexes(ctx context.Context) error {
	_, err := r.Collection.Indexes().CreateOne(ctx, uniqueEmailIndex())
	return err
}

type EmployeeRepositoryImpl struct {
	Collection *mongo.Collection
}

func NewEmployeeRepository(mongodb *database.MongodbDB) EmployeeRepository {
	return &EmployeeRepositoryImpl{Collection: mongodb.DB.Collection("employees")}
}

func (r *EmployeeRepositoryImpl) Create(ctx context.Context, e *models.Employee) error {
	now := time.Now()
	e.CreatedAt, e.UpdatedAt = now, now
	res, err := r.Collection.InsertOne(ctx, e)
	if err != nil {
		if mongo.IsDuplicateKeyError(err) {
			return apperr.Conflict("email already registered")
		}
		return err
	}
	e.ID = res.InsertedID.(primitive.ObjectID)
	return nil
}

func (r *EmployeeRepositoryImpl) FindByID(ctx context.Context, id primitive.ObjectID) (*models.Employee, error) {
	return findOne[models.Employee](ctx, r.Collection, bson.M{"_id": id}, "Employee")
}

func (r *EmployeeRepositoryImpl) FindByEmail(ctx context.Context, email string) (*models.Employee, error) {
	return findOne[models.Employee](ctx, r.Collection, bson.M{"email": email}, "Employee")
}

func (r *EmployeeRepositoryImpl) FindByBusiness(ctx context.Context, businessID primitive.ObjectID) ([]models.Employee, error) {
	return findMany[models.Employee](ctx, r.Collection, bson.M{"business_id": businessID}, options.Find().SetSort(bson.M{"name": 1}))
}

func (r *EmployeeRepositoryImpl) CountInBusiness(ctx context.Context, businessID primitive.ObjectID, ids []primitive.ObjectID) (int64, error) {
	if len(ids) == 0 {
		return 0, nil
	}
	return r.Collection.CountDocuments(ctx, bson.M{"_id": bson.M{"$in": ids}, "business_id": businessID})
}

func (r *EmployeeRepositoryImpl) UpdatePlacement(ctx context.Context, id primitive.ObjectID, roleID, departmentID *primitive.ObjectID) error {
	return updateByID(ctx, r.Collection, id, bson.M{"role_id": roleID, "department_id": departmentID}, "Employee")
}

func (r *EmployeeRepositoryImpl) SetActive(ctx context.Context, id primitive.ObjectID, active bool) error {
	return updateByID(ctx, r.Collection, id, bson.M{"is_active": active}, "Employee")
}

func (r *EmployeeRepositoryImpl) SetPassword(ctx context.Context, id primitive.ObjectID, hash string) error {
	return updateByID(ctx, r.Collection, id, bson.M{"password": hash}, "Employee")
}

func (r *EmployeeRepositoryImpl) EnsureIndexes(ctx context.Context) error {
	_, err := r.Collection.Indexes().CreateMany(ctx, []mongo.IndexModel{
		uniqueEmailIndex(),
		{Keys: bson.D{{Key: "business_id", Value: 1}}},
	})
	return err
}

type AdminRepositoryImpl struct {
	Collection *mongo.Collection
}

func NewAdminRepository(mongodb *database.MongodbDB) AdminRepository {
	return &AdminRepositoryImpl{Collection: mongodb.DB.Collection("admins")}
}

func (r *AdminRepositoryImpl) Create(ctx context.Context, a *models.Admin) error {
	a.CreatedAt = time.Now()
	res, err := r.Collection.InsertOne(ctx, a)
	if err != nil {
		if mongo.IsDuplicateKeyError(err) {
			return apperr.Conflict("email already registered")
		}
		return err
	}
	a.ID = res.InsertedID.(primitive.ObjectID)
	return nil
}

func (r *AdminRepositoryImpl) FindByID(ctx context.Context, id primitive.ObjectID) (*models.Admin, error) {
	return findOne[models.Admin](ctx, r.Collection, bson.M{"_id": id}, "Admin")
}

func (r *AdminRepositoryImpl) FindByEmail(ctx context.Context, email string) (*models.Admin, error) {
	return findOne[models.Admin](ctx, r.Collection, bson.M{"email": email}, "Admin")
}

type SupportRepositoryImpl struct {
	Collection *mongo.Collection
}

func NewSupportRepository(mongodb *database.MongodbDB) SupportRepository {
	return &SupportRepositoryImpl{Collection: mongodb.DB.Collection("supports")}
}

func (r *SupportRepositoryImpl) Create(ctx context.Context, s *models.Support) error {
	now := time.Now()
	s.CreatedAt, s.UpdatedAt = now, now
	if s.AssignedCompanies == nil {
		s.AssignedCompanies = []primitive.ObjectID{}
	}
	res, err := r.Collection.InsertOne(ctx, s)
	if err != nil {
		if mongo.IsDuplicateKeyError(err) {
			return apperr.Conflict("email already registered")
		}
		return err
	}
	s.ID = res.InsertedID.(primitive.ObjectID)
	return nil
}

func (r *SupportRepositoryImpl) FindByID(ctx context.Context, id primitive.ObjectID) (*models.Support, error) {
	return findOne[models.Support](ctx, r.Collection, bson.M{"_id": id}, "Support")
}

func (r *SupportRepositoryImpl) FindByEmail(ctx context.Context, email string) (*models.Support, error) {
	return findOne[models.Support](ctx, r.Collection, bson.M{"email": email}, "Support")
}

func (r *SupportRepositoryImpl) FindAll(ctx context.Context) ([]models.Support, error) {
	return findMany[models.Support](ctx, r.Collection, bson.M{})
}

func (r *SupportRepositoryImpl) SetCompanies(ctx context.Context, id primitive.ObjectID, companies []primitive.ObjectID) error {
	if companies == nil {
		companies = []primitive.ObjectID{}
	}
	return updateByID(ctx, r.Collection, id, bson.M{"assigned_companies": companies}, "Support")
}
