package process

import (
	"context"
	"errors"
	"time"

	"go-bpm/internal/common/apperr"
	"go-bpm/internal/common/models"
	"go-bpm/internal/database"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/bson/primitive"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"
)

// ErrStaleVerification is returned by SetVerified when the flag changed
// between read and write.
var ErrStaleVerification = errors.New("verification state changed")

type Repository interface {
	Create(ctx context.Context, p *Process) error
	FindByID(ctx context.Context, id primitive.ObjectID) (*Process, error)
	FindByCreatorAndName(ctx context.Context, creator primitive.ObjectID, name string) (*Process, error)
	List(ctx context.Context, filter ListFilter) ([]Summary, error)
	FindAll(ctx context.Context) ([]Process, error)
	// Update applies set and unset and, when entry is non-nil, appends it to the log.
	Update(ctx context.Context, id primitive.ObjectID, set bson.M, unset []string, entry *LogEntry) (*Process, error)
	// SetVerified flips is_verified only if it still equals !verified.
	SetVerified(ctx context.Context, id primitive.ObjectID, verified bool, version string, entry LogEntry) (*Process, error)
	Delete(ctx context.Context, id primitive.ObjectID) error

	CountOwned(ctx context.Context, tenantID primitive.ObjectID, ids []primitive.ObjectID) (int64, error)
	Link(ctx context.Context, kind models.StructureKind, nodeID primitive.ObjectID, processIDs []primitive.ObjectID) (map[primitive.ObjectID][]primitive.ObjectID, error)
	Unlink(ctx context.Context, kind models.StructureKind, nodeID primitive.ObjectID, processIDs []primitive.ObjectID) error

	EnsureIndexes(ctx context.Context) error
}

type RepositoryImpl struct {
	Collection *mongo.Collection
}

func NewRepository(mongodb *database.MongodbDB) Repository {
	return &RepositoryImpl{
		Collection: mongodb.DB.Collection("processes"),
	}
}

func (r *RepositoryImpl) Create(ctx context.Context, p *Process) error {
	now := time.Now()
	p.CreatedAt, p.UpdatedAt = now, now
	if p.Owners == nil {
		p.Owners = []primitive.ObjectID{}
	}
	if p.AssignedRoles == nil {
		p.AssignedRoles = []primitive.ObjectID{}
	}
	if p.Logs == nil {
		p.Logs = []LogEntry{}
	}

	result, err := r.Collection.InsertOne(ctx, p)
	if err != nil {
		return err
	}
	p.ID = result.InsertedID.(primitive.ObjectID)
	return nil
}

func (r *RepositoryImpl) findOne(ctx context.Context, filter bson.M) (*Process, error) {
	var p Process
	if err := r.Collection.FindOne(ctx, filter).Decode(&p); err != nil {
		return nil, apperr.FromMongo(err, "Process")
	}
	return &p, nil
}

func (r *RepositoryImpl) FindByID(ctx context.Context, id primitive.ObjectID) (*Process, error) {
	return r.findOne(ctx, bson.M{"_id": id})
}

func (r *RepositoryImpl) FindByCreatorAndName(ctx context.Context, creator primitive.ObjectID, name string) (*Process, error) {
	return r.findOne(ctx, bson.M{"creator": creator, "name": name})
}

func (r *RepositoryImpl) List(ctx context.Context, filter ListFilter) ([]Summary, error) {
	query := bson.M{}
	switch {
	case filter.All:
	case filter.Owner != nil:
		query["owners"] = *filter.Owner
		if len(filter.Creators) > 0 {
			query["creator"] = bson.M{"$in": filter.Creators}
		}
	case len(filter.Creators) > 0:
		query["creator"] = bson.M{"$in": filter.Creators}
	default:
		return []Summary{}, nil
	}

	opts := options.Find().
		SetSort(bson.D{{Key: "updated_at", Value: -1}}).
		SetProjection(bson.M{"xml": 0, "logs": 0})
	cursor, err := r.Collection.Find(ctx, query, opts)
	if err != nil {
		return nil, err
	}
	defer cursor.Close(ctx)

	out := []Summary{}
	if err := cursor.All(ctx, &out); err != nil {
		return nil, err
	}
	return out, nil
}

func (r *RepositoryImpl) FindAll(ctx context.Context) ([]Process, error) {
	cursor, err := r.Collection.Find(ctx, bson.M{}, options.Find().SetProjection(bson.M{"xml": 0, "logs": 0}))
	if err != nil {
		return nil, err
	}
	defer cursor.Close(ctx)

	out := []Process{}
	if err := cursor.All(ctx, &out); err != nil {
		return nil, err
	}
	return out, nil
}

func (r *RepositoryImpl) Update(ctx context.Context, id primitive.ObjectID, set bson.M, unset []string, entry *LogEntry) (*Process, error) {
	fields := bson.M{"updated_at": time.Now()}
	for k, v := range set {
		fields[k] = v
	}
	update := bson.M{"$set": fields}
	if len(unset) > 0 {
		cleared := bson.M{}
		for _, k := range unset {
			cleared[k] = ""
		}
		update["$unset"] = cleared
	}
	if entry != nil {
		update["$push"] = bson.M{"logs": entry}
	}

	var p Process
	err := r.Collection.FindOneAndUpdate(ctx, bson.M{"_id": id}, update,
		options.FindOneAndUpdate().SetReturnDocument(options.After),
	).Decode(&p)
	if err != nil {
		return nil, apperr.FromMongo(err, "Process")
	}
	return &p, nil
}

func (r *RepositoryImpl) SetVerified(ctx context.Context, id primitive.ObjectID, verified bool, version string, entry LogEntry) (*Process, error) {
	var p Process
	err := r.Collection.FindOneAndUpdate(ctx,
		bson.M{"_id": id, "is_verified": !verified},
		bson.M{
			"$set": bson.M{
				"is_verified": verified,
				"version":     version,
				"updated_at":  time.Now(),
			},
			"$push": bson.M{"logs": entry},
		},
		options.FindOneAndUpdate().SetReturnDocument(options.After),
	).Decode(&p)
	if err != nil {
		if errors.Is(err, mongo.ErrNoDocuments) {
			return nil, ErrStaleVerification
		}
		return nil, err
	}
	return &p, nil
}

func (r *RepositoryImpl) Delete(ctx context.Context, id primitive.ObjectID) error {
	res, err := r.Collection.DeleteOne(ctx, bson.M{"_id": id})
	if err != nil {
		return err
	}
	if res.DeletedCount == 0 {
		return apperr.NotFound("Process not found")
	}
	return nil
}

func (r *RepositoryImpl) CountOwned(ctx context.Context, tenantID primitive.ObjectID, ids []primitive.ObjectID) (int64, error) {
	if len(ids) == 0 {
		return 0, nil
	}
	return r.Collection.CountDocuments(ctx, bson.M{"_id": bson.M{"$in": ids}, "creator": tenantID})
}

func (r *RepositoryImpl) Link(ctx context.Context, kind models.StructureKind, nodeID primitive.ObjectID, processIDs []primitive.ObjectID) (map[primitive.ObjectID][]primitive.ObjectID, error) {
	displaced := map[primitive.ObjectID][]primitive.ObjectID{}
	if len(processIDs) == 0 {
		return displaced, nil
	}
	filter := bson.M{"_id": bson.M{"$in": processIDs}}

	if kind == models.StructureRoles {
		_, err := r.Collection.UpdateMany(ctx, filter, bson.M{
			"$addToSet": bson.M{"assigned_roles": nodeID},
			"$set":      bson.M{"updated_at": time.Now()},
		})
		return displaced, err
	}

	// department is single-valued; report where each process moves from
	cursor, err := r.Collection.Find(ctx,
		bson.M{"_id": bson.M{"$in": processIDs}, "department": bson.M{"$exists": true, "$ne": nodeID}},
		options.Find().SetProjection(bson.M{"department": 1}),
	)
	if err != nil {
		return nil, err
	}
	var moved []Process
	if err := cursor.All(ctx, &moved); err != nil {
		return nil, err
	}
	for _, p := range moved {
		if p.Department != nil {
			displaced[*p.Department] = append(displaced[*p.Department], p.ID)
		}
	}

	_, err = r.Collection.UpdateMany(ctx, filter, bson.M{
		"$set": bson.M{"department": nodeID, "updated_at": time.Now()},
	})
	return displaced, err
}

func (r *RepositoryImpl) Unlink(ctx context.Context, kind models.StructureKind, nodeID primitive.ObjectID, processIDs []primitive.ObjectID) error {
	filter := bson.M{}
	if processIDs != nil {
		if len(processIDs) == 0 {
			return nil
		}
		filter["_id"] = bson.M{"$in": processIDs}
	}

	var update bson.M
	if kind == models.StructureRoles {
		filter["assigned_roles"] = nodeID
		update = bson.M{"$pull": bson.M{"assigned_roles": nodeID}}
	} else {
		filter["department"] = nodeID
		update = bson.M{"$unset": bson.M{"department": ""}}
	}
	_, err := r.Collection.UpdateMany(ctx, filter, update)
	return err
}

func (r *RepositoryImpl) EnsureIndexes(ctx context.Context) error {
	_, err := r.Collection.Indexes().CreateMany(ctx, []mongo.IndexModel{
		{Keys: bson.D{{Key: "creator", Value: 1}, {Key: "name", Value: 1}}},
		{Keys: bson.D{{Key: "owners", Value: 1}}},
		{Keys: bson.D{{Key: "assigned_roles", Value: 1}}},
		{Keys: bson.D{{Key: "department", Value: 1}}},
	})
	return err
}
