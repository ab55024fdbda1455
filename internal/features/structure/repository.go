package structure

import (
	"context"
	"time"

	"go-bpm/internal/common/apperr"
	"go-bpm/internal/database"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/bson/primitive"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"
)

type Repository interface {
	CreateNode(ctx context.Context, node *Node) error
	FindNode(ctx context.Context, tenantID, id primitive.ObjectID) (*Node, error)
	FindNodesByOwner(ctx context.Context, tenantID primitive.ObjectID) ([]Node, error)
	FindAllNodes(ctx context.Context) ([]Node, error)
	CountNodes(ctx context.Context, tenantID primitive.ObjectID, ids []primitive.ObjectID) (int64, error)
	RenameNode(ctx context.Context, tenantID, id primitive.ObjectID, name string) error
	// DeleteLeaf removes the node only while it has no children.
	DeleteLeaf(ctx context.Context, tenantID, id primitive.ObjectID) error
	AppendChild(ctx context.Context, tenantID, parentID, childID primitive.ObjectID) error
	// PullChild removes childID from every node's children.
	PullChild(ctx context.Context, childID primitive.ObjectID) error
	AddProcesses(ctx context.Context, nodeIDs, processIDs []primitive.ObjectID) error
	// PullProcesses removes processIDs from nodeIDs, or from every node when nodeIDs is nil.
	PullProcesses(ctx context.Context, nodeIDs, processIDs []primitive.ObjectID) error

	FindRoot(ctx context.Context, tenantID primitive.ObjectID) (*Root, error)
	FindOrCreateRoot(ctx context.Context, tenantID primitive.ObjectID) (*Root, error)
	AppendTopLevel(ctx context.Context, rootID, nodeID primitive.ObjectID) error
	// PullTopLevel removes nodeID from every root.
	PullTopLevel(ctx context.Context, nodeID primitive.ObjectID) error

	EnsureIndexes(ctx context.Context) error
}

type RepositoryImpl struct {
	kind  Kind
	Roots *mongo.Collection
	Nodes *mongo.Collection
}

func NewRepository(mongodb *database.MongodbDB, kind Kind) Repository {
	return &RepositoryImpl{
		kind:  kind,
		Roots: mongodb.DB.Collection(kind.RootCollection),
		Nodes: mongodb.DB.Collection(kind.NodeCollection),
	}
}

func (r *RepositoryImpl) notFound() error {
	return apperr.NotFound("%s not found", r.kind.Label)
}

func (r *RepositoryImpl) CreateNode(ctx context.Context, node *Node) error {
	now := time.Now()
	node.CreatedAt, node.UpdatedAt = now, now
	if node.Children == nil {
		node.Children = []primitive.ObjectID{}
	}
	if node.AssignedProcesses == nil {
		node.AssignedProcesses = []primitive.ObjectID{}
	}

	result, err := r.Nodes.InsertOne(ctx, node)
	if err != nil {
		return err
	}
	node.ID = result.InsertedID.(primitive.ObjectID)
	return nil
}

func (r *RepositoryImpl) FindNode(ctx context.Context, tenantID, id primitive.ObjectID) (*Node, error) {
	var node Node
	err := r.Nodes.FindOne(ctx, bson.M{"_id": id, "owner": tenantID}).Decode(&node)
	if err != nil {
		if err == mongo.ErrNoDocuments {
			return nil, r.notFound()
		}
		return nil, err
	}
	return &node, nil
}

func (r *RepositoryImpl) findNodes(ctx context.Context, filter bson.M) ([]Node, error) {
	cursor, err := r.Nodes.Find(ctx, filter, options.Find().SetSort(bson.M{"_id": 1}))
	if err != nil {
		return nil, err
	}
	defer cursor.Close(ctx)

	nodes := []Node{}
	if err := cursor.All(ctx, &nodes); err != nil {
		return nil, err
	}
	return nodes, nil
}

func (r *RepositoryImpl) FindNodesByOwner(ctx context.Context, tenantID primitive.ObjectID) ([]Node, error) {
	return r.findNodes(ctx, bson.M{"owner": tenantID})
}

func (r *RepositoryImpl) FindAllNodes(ctx context.Context) ([]Node, error) {
	return r.findNodes(ctx, bson.M{})
}

func (r *RepositoryImpl) CountNodes(ctx context.Context, tenantID primitive.ObjectID, ids []primitive.ObjectID) (int64, error) {
	if len(ids) == 0 {
		return 0, nil
	}
	return r.Nodes.CountDocuments(ctx, bson.M{"_id": bson.M{"$in": ids}, "owner": tenantID})
}

func (r *RepositoryImpl) RenameNode(ctx context.Context, tenantID, id primitive.ObjectID, name string) error {
	res, err := r.Nodes.UpdateOne(ctx,
		bson.M{"_id": id, "owner": tenantID},
		bson.M{"$set": bson.M{"name": name, "updated_at": time.Now()}},
	)
	if err != nil {
		return err
	}
	if res.MatchedCount == 0 {
		return r.notFound()
	}
	return nil
}

func (r *RepositoryImpl) DeleteLeaf(ctx context.Context, tenantID, id primitive.ObjectID) error {
	res, err := r.Nodes.DeleteOne(ctx, bson.M{
		"_id":        id,
		"owner":      tenantID,
		"children.0": bson.M{"$exists": false},
	})
	if err != nil {
		return err
	}
	if res.DeletedCount == 0 {
		return apperr.Conflict("Cannot delete %s: it has %s", r.kind.Label, r.kind.ChildLabel)
	}
	return nil
}

func (r *RepositoryImpl) AppendChild(ctx context.Context, tenantID, parentID, childID primitive.ObjectID) error {
	res, err := r.Nodes.UpdateOne(ctx,
		bson.M{"_id": parentID, "owner": tenantID},
		bson.M{
			"$push": bson.M{"children": childID},
			"$set":  bson.M{"updated_at": time.Now()},
		},
	)
	if err != nil {
		return err
	}
	if res.MatchedCount == 0 {
		return apperr.NotFound("Parent %s not found", r.kind.Label)
	}
	return nil
}

func (r *RepositoryImpl) PullChild(ctx context.Context, childID primitive.ObjectID) error {
	_, err := r.Nodes.UpdateMany(ctx,
		bson.M{"children": childID},
		bson.M{"$pull": bson.M{"children": childID}},
	)
	return err
}

func (r *RepositoryImpl) AddProcesses(ctx context.Context, nodeIDs, processIDs []primitive.ObjectID) error {
	if len(nodeIDs) == 0 || len(processIDs) == 0 {
		return nil
	}
	_, err := r.Nodes.UpdateMany(ctx,
		bson.M{"_id": bson.M{"$in": nodeIDs}},
		bson.M{
			"$addToSet": bson.M{"assigned_processes": bson.M{"$each": processIDs}},
			"$set":      bson.M{"updated_at": time.Now()},
		},
	)
	return err
}

func (r *RepositoryImpl) PullProcesses(ctx context.Context, nodeIDs, processIDs []primitive.ObjectID) error {
	if len(processIDs) == 0 {
		return nil
	}
	filter := bson.M{"assigned_processes": bson.M{"$in": processIDs}}
	if nodeIDs != nil {
		if len(nodeIDs) == 0 {
			return nil
		}
		filter["_id"] = bson.M{"$in": nodeIDs}
	}
	_, err := r.Nodes.UpdateMany(ctx, filter, bson.M{
		"$pull": bson.M{"assigned_processes": bson.M{"$in": processIDs}},
		"$set":  bson.M{"updated_at": time.Now()},
	})
	return err
}

func (r *RepositoryImpl) FindRoot(ctx context.Context, tenantID primitive.ObjectID) (*Root, error) {
	var root Root
	if err := r.Roots.FindOne(ctx, bson.M{"owner": tenantID}).Decode(&root); err != nil {
		if err == mongo.ErrNoDocuments {
			return nil, apperr.NotFound("%s structure not found", r.kind.Label)
		}
		return nil, err
	}
	return &root, nil
}

func (r *RepositoryImpl) FindOrCreateRoot(ctx context.Context, tenantID primitive.ObjectID) (*Root, error) {
	opts := options.FindOneAndUpdate().
		SetUpsert(true).
		SetReturnDocument(options.After)

	var root Root
	err := r.Roots.FindOneAndUpdate(ctx,
		bson.M{"owner": tenantID},
		bson.M{"$setOnInsert": bson.M{
			"owner":           tenantID,
			"top_level_nodes": []primitive.ObjectID{},
			"created_at":      time.Now(),
		}},
		opts,
	).Decode(&root)
	if err != nil {
		return nil, err
	}
	return &root, nil
}

func (r *RepositoryImpl) AppendTopLevel(ctx context.Context, rootID, nodeID primitive.ObjectID) error {
	res, err := r.Roots.UpdateOne(ctx,
		bson.M{"_id": rootID},
		bson.M{"$push": bson.M{"top_level_nodes": nodeID}},
	)
	if err != nil {
		return err
	}
	if res.MatchedCount == 0 {
		return apperr.NotFound("%s structure not found", r.kind.Label)
	}
	return nil
}

func (r *RepositoryImpl) PullTopLevel(ctx context.Context, nodeID primitive.ObjectID) error {
	_, err := r.Roots.UpdateMany(ctx,
		bson.M{"top_level_nodes": nodeID},
		bson.M{"$pull": bson.M{"top_level_nodes": nodeID}},
	)
	return err
}

func (r *RepositoryImpl) EnsureIndexes(ctx context.Context) error {
	if _, err := r.Roots.Indexes().CreateOne(ctx, mongo.IndexModel{
		Keys:    bson.D{{Key: "owner", Value: 1}},
		Options: options.Index().SetUnique(true),
	}); err != nil {
		return err
	}
	_, err := r.Nodes.Indexes().CreateMany(ctx, []mongo.IndexModel{
		{Keys: bson.D{{Key: "owner", Value: 1}}},
		{Keys: bson.D{{Key: "children", Value: 1}}},
		{Keys: bson.D{{Key: "assigned_processes", Value: 1}}},
	})
	return err
}
