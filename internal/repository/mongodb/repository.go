package mongodb

import (
	"context"
	"fmt"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"
	"go.uber.org/zap"
)

const (
	farmsCollection        = "farms"
	productsCollection     = "products"
	buyRequestsCollection  = "buy_requests"
	cultivationsCollection = "cultivations"
	routesCollection       = "transport_routes"
	requestsCollection     = "transport_requests"
	participantsCollection = "transport_route_participants"
)

// MongoDBRepository implements the repository contracts on MongoDB. Route
// transactions need a replica set or sharded cluster.
type MongoDBRepository struct {
	client *mongo.Client
	db     *mongo.Database
	logger *zap.Logger
}

// NewMongoDBRepository connects, pings and ensures indexes.
func NewMongoDBRepository(ctx context.Context, uri string, dbName string, logger *zap.Logger) (*MongoDBRepository, error) {
	if logger == nil {
		logger = zap.NewNop()
	}

	clientOptions := options.Client().ApplyURI(uri)
	client, err := mongo.Connect(ctx, clientOptions)
	if err != nil {
		return nil, fmt.Errorf("failed to connect to mongodb: %w", err)
	}

	// Ping the database to verify connection
	if err := client.Ping(ctx, nil); err != nil {
		_ = client.Disconnect(ctx)
		return nil, fmt.Errorf("failed to ping mongodb: %w", err)
	}

	repo := &MongoDBRepository{
		client: client,
		db:     client.Database(dbName),
		logger: logger,
	}
	if err := repo.ensureIndexes(ctx); err != nil {
		_ = client.Disconnect(ctx)
		return nil, err
	}
	return repo, nil
}

func (r *MongoDBRepository) ensureIndexes(ctx context.Context) error {
	indexes := map[string][]mongo.IndexModel{
		participantsCollection: {
			{
				Keys:    bson.D{{Key: "route_id", Value: 1}, {Key: "request_id", Value: 1}},
				Options: options.Index().SetUnique(true).SetName("uniq_route_request"),
			},
		},
		buyRequestsCollection: {
			{Keys: bson.D{{Key: "status", Value: 1}, {Key: "product_id", Value: 1}, {Key: "expires_at", Value: 1}}},
		},
		cultivationsCollection: {
			{Keys: bson.D{{Key: "status", Value: 1}, {Key: "farm_id", Value: 1}}},
		},
		routesCollection: {
			{Keys: bson.D{{Key: "status", Value: 1}, {Key: "date", Value: 1}}},
		},
	}

	for coll, specs := range indexes {
		if _, err := r.db.Collection(coll).Indexes().CreateMany(ctx, specs); err != nil {
			return fmt.Errorf("create indexes on %s: %w", coll, err)
		}
	}
	r.logger.Debug("mongodb indexes ensured")
	return nil
}

// Close closes the MongoDB connection.
func (r *MongoDBRepository) Close(ctx context.Context) error {
	return r.client.Disconnect(ctx)
}
