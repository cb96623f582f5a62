package mongodb

import (
	"context"
	"errors"
	"fmt"
	"time"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"

	"github.com/mamadbah2/agromarket/internal/domain/models"
	"github.com/mamadbah2/agromarket/internal/repository"
)

// FarmByID loads a farm profile.
func (r *MongoDBRepository) FarmByID(ctx context.Context, farmID string) (models.Farm, error) {
	var doc farmDoc
	err := r.db.Collection(farmsCollection).FindOne(ctx, bson.M{"_id": farmID}).Decode(&doc)
	if err != nil {
		if errors.Is(err, mongo.ErrNoDocuments) {
			return models.Farm{}, repository.ErrNotFound
		}
		return models.Farm{}, fmt.Errorf("find farm %s: %w", farmID, err)
	}
	return doc.toModel()
}

// ListProducts returns the catalog ordered by id.
func (r *MongoDBRepository) ListProducts(ctx context.Context) ([]models.Product, error) {
	opts := options.Find().SetSort(bson.D{{Key: "_id", Value: 1}})
	cursor, err := r.db.Collection(productsCollection).Find(ctx, bson.M{}, opts)
	if err != nil {
		return nil, fmt.Errorf("find products: %w", err)
	}

	var docs []productDoc
	if err := cursor.All(ctx, &docs); err != nil {
		return nil, fmt.Errorf("decode products: %w", err)
	}

	out := make([]models.Product, 0, len(docs))
	for _, d := range docs {
		out = append(out, d.toModel())
	}
	return out, nil
}

// OpenBuyRequests returns open buy requests expiring after now.
func (r *MongoDBRepository) OpenBuyRequests(ctx context.Context, productID string, now time.Time) ([]models.BuyRequest, error) {
	filter := bson.M{
		"status":     string(models.BuyRequestOpen),
		"expires_at": bson.M{"$gt": now},
	}
	if productID != "" {
		filter["product_id"] = productID
	}

	cursor, err := r.db.Collection(buyRequestsCollection).Find(ctx, filter)
	if err != nil {
		return nil, fmt.Errorf("find open buy requests: %w", err)
	}

	var docs []buyRequestDoc
	if err := cursor.All(ctx, &docs); err != nil {
		return nil, fmt.Errorf("decode buy requests: %w", err)
	}

	out := make([]models.BuyRequest, 0, len(docs))
	for _, d := range docs {
		out = append(out, d.toModel())
	}
	return out, nil
}

// ActiveCultivationsExcluding returns planning/growing cultivations of other farms.
func (r *MongoDBRepository) ActiveCultivationsExcluding(ctx context.Context, excludeFarmID string) ([]models.Cultivation, error) {
	statuses := make([]string, 0, len(models.ActiveCultivationStatuses))
	for _, s := range models.ActiveCultivationStatuses {
		statuses = append(statuses, string(s))
	}
	filter := bson.M{
		"status":  bson.M{"$in": statuses},
		"farm_id": bson.M{"$ne": excludeFarmID},
	}

	cursor, err := r.db.Collection(cultivationsCollection).Find(ctx, filter)
	if err != nil {
		return nil, fmt.Errorf("find active cultivations: %w", err)
	}

	var docs []cultivationDoc
	if err := cursor.All(ctx, &docs); err != nil {
		return nil, fmt.Errorf("decode cultivations: %w", err)
	}

	out := make([]models.Cultivation, 0, len(docs))
	for _, d := range docs {
		out = append(out, d.toModel())
	}
	return out, nil
}
