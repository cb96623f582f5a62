package mongodb

import (
	"context"
	"errors"
	"fmt"
	"time"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"
	"go.mongodb.org/mongo-driver/mongo/readconcern"
	"go.mongodb.org/mongo-driver/mongo/writeconcern"

	"github.com/mamadbah2/agromarket/internal/domain/models"
	"github.com/mamadbah2/agromarket/internal/repository"
)

// WithinRoute runs fn in a multi-document transaction. Its first write bumps
// the route's lock_version, so two transactions on the same route write-conflict
// and the driver retries the loser against the winner's committed state.
func (r *MongoDBRepository) WithinRoute(ctx context.Context, routeID string, fn func(tx repository.RouteTx) error) error {
	session, err := r.client.StartSession()
	if err != nil {
		return fmt.Errorf("start session: %w", err)
	}
	defer session.EndSession(ctx)

	txOpts := options.Transaction().
		SetReadConcern(readconcern.Snapshot()).
		SetWriteConcern(writeconcern.Majority())

	_, err = session.WithTransaction(ctx, func(sc mongo.SessionContext) (interface{}, error) {
		res, err := r.db.Collection(routesCollection).UpdateOne(sc,
			bson.M{"_id": routeID},
			bson.M{"$inc": bson.M{"lock_version": 1}})
		if err != nil {
			return nil, fmt.Errorf("lock route %s: %w", routeID, err)
		}
		tx := &routeTx{db: r.db, sc: sc, routeID: routeID, missing: res.MatchedCount == 0}
		return nil, fn(tx)
	}, txOpts)
	return err
}

// TransportRequest loads a transport request outside any route transaction.
func (r *MongoDBRepository) TransportRequest(ctx context.Context, requestID string) (models.TransportRequest, error) {
	return findRequest(ctx, r.db, requestID)
}

// CompareAndSetRequestStatus moves a request from one status to another atomically.
func (r *MongoDBRepository) CompareAndSetRequestStatus(ctx context.Context, requestID string, from, to models.TransportRequestStatus) error {
	return compareAndSetRequest(ctx, r.db, requestID, from, to)
}

// OpenRoutesBefore lists open routes dated before cutoff.
func (r *MongoDBRepository) OpenRoutesBefore(ctx context.Context, cutoff time.Time) ([]string, error) {
	filter := bson.M{"status": string(models.RouteOpen), "date": bson.M{"$lt": cutoff}}
	opts := options.Find().SetProjection(bson.M{"_id": 1}).SetSort(bson.D{{Key: "_id", Value: 1}})

	cursor, err := r.db.Collection(routesCollection).Find(ctx, filter, opts)
	if err != nil {
		return nil, fmt.Errorf("find expired routes: %w", err)
	}

	var docs []struct {
		ID string `bson:"_id"`
	}
	if err := cursor.All(ctx, &docs); err != nil {
		return nil, fmt.Errorf("decode expired routes: %w", err)
	}

	ids := make([]string, 0, len(docs))
	for _, d := range docs {
		ids = append(ids, d.ID)
	}
	return ids, nil
}

// routeTx reads and writes through the session context; the ctx arguments of
// the RouteTx methods are ignored in favour of it.
type routeTx struct {
	db      *mongo.Database
	sc      mongo.SessionContext
	routeID string
	missing bool
}

func (tx *routeTx) Route(_ context.Context) (models.TransportRoute, error) {
	if tx.missing {
		return models.TransportRoute{}, repository.ErrNotFound
	}
	var doc routeDoc
	if err := tx.db.Collection(routesCollection).FindOne(tx.sc, bson.M{"_id": tx.routeID}).Decode(&doc); err != nil {
		if errors.Is(err, mongo.ErrNoDocuments) {
			return models.TransportRoute{}, repository.ErrNotFound
		}
		return models.TransportRoute{}, fmt.Errorf("find route %s: %w", tx.routeID, err)
	}
	return doc.toModel()
}

func (tx *routeTx) ParticipantsOf(_ context.Context) ([]models.TransportRouteParticipant, error) {
	cursor, err := tx.db.Collection(participantsCollection).Find(tx.sc, bson.M{"route_id": tx.routeID})
	if err != nil {
		return nil, fmt.Errorf("find participants of %s: %w", tx.routeID, err)
	}

	var docs []participantDoc
	if err := cursor.All(tx.sc, &docs); err != nil {
		return nil, fmt.Errorf("decode participants: %w", err)
	}

	out := make([]models.TransportRouteParticipant, 0, len(docs))
	for _, d := range docs {
		p, err := d.toModel()
		if err != nil {
			return nil, err
		}
		out = append(out, p)
	}
	return out, nil
}

func (tx *routeTx) Request(_ context.Context, requestID string) (models.TransportRequest, error) {
	return findRequest(tx.sc, tx.db, requestID)
}

func (tx *routeTx) InsertParticipant(_ context.Context, p models.TransportRouteParticipant) error {
	doc, err := newParticipantDoc(p)
	if err != nil {
		return err
	}
	if _, err := tx.db.Collection(participantsCollection).InsertOne(tx.sc, doc); err != nil {
		if mongo.IsDuplicateKeyError(err) {
			return repository.ErrConflict
		}
		return fmt.Errorf("insert participant: %w", err)
	}
	return nil
}

func (tx *routeTx) CompareAndSetRequestStatus(_ context.Context, requestID string, from, to models.TransportRequestStatus) error {
	return compareAndSetRequest(tx.sc, tx.db, requestID, from, to)
}

func (tx *routeTx) SetRouteStatus(_ context.Context, status models.RouteStatus) error {
	res, err := tx.db.Collection(routesCollection).UpdateOne(tx.sc,
		bson.M{"_id": tx.routeID},
		bson.M{"$set": bson.M{"status": string(status)}})
	if err != nil {
		return fmt.Errorf("update route %s status: %w", tx.routeID, err)
	}
	if res.MatchedCount == 0 {
		return repository.ErrNotFound
	}
	return nil
}

func findRequest(ctx context.Context, db *mongo.Database, requestID string) (models.TransportRequest, error) {
	var doc requestDoc
	if err := db.Collection(requestsCollection).FindOne(ctx, bson.M{"_id": requestID}).Decode(&doc); err != nil {
		if errors.Is(err, mongo.ErrNoDocuments) {
			return models.TransportRequest{}, repository.ErrNotFound
		}
		return models.TransportRequest{}, fmt.Errorf("find transport request %s: %w", requestID, err)
	}
	return doc.toModel()
}

func compareAndSetRequest(ctx context.Context, db *mongo.Database, requestID string, from, to models.TransportRequestStatus) error {
	coll := db.Collection(requestsCollection)
	res, err := coll.UpdateOne(ctx,
		bson.M{"_id": requestID, "status": string(from)},
		bson.M{"$set": bson.M{"status": string(to)}})
	if err != nil {
		return fmt.Errorf("update transport request %s: %w", requestID, err)
	}
	if res.MatchedCount > 0 {
		return nil
	}

	n, err := coll.CountDocuments(ctx, bson.M{"_id": requestID})
	if err != nil {
		return fmt.Errorf("count transport request %s: %w", requestID, err)
	}
	if n == 0 {
		return repository.ErrNotFound
	}
	return repository.ErrConflict
}
