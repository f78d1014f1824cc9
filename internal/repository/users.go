package repository

import (
	"context"
	"time"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/bson/primitive"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"

	"shop-orders-service/internal/model"
)

type MongoUserRepository struct {
	users   *mongo.Collection
	entries *mongo.Collection
}

func NewMongoUserRepository(db *mongo.Database) *MongoUserRepository {
	return &MongoUserRepository{
		users:   db.Collection("users"),
		entries: db.Collection("balance_entries"),
	}
}

func (m *MongoUserRepository) FindByID(ctx context.Context, userID string) (*model.User, error) {
	var res model.User
	err := m.users.FindOne(ctx, bson.M{"_id": userID}).Decode(&res)
	if err == mongo.ErrNoDocuments {
		return nil, ErrNotFound
	}
	return &res, err
}

func (m *MongoUserRepository) Insert(ctx context.Context, u *model.User) error {
	now := time.Now().UTC()
	u.CreatedAt = now
	u.UpdatedAt = now
	_, err := m.users.InsertOne(ctx, u)
	return err
}

// UpdateTransportFees pisa el monto pendiente de transporte. A diferencia del
// balance, este campo sí es un valor simple editable por admin.
func (m *MongoUserRepository) UpdateTransportFees(ctx context.Context, userID string, feesMinor int64) error {
	res, err := m.users.UpdateOne(ctx,
		bson.M{"_id": userID},
		bson.M{"$set": bson.M{
			"pending_transport_minor": feesMinor,
			"updated_at":              time.Now().UTC(),
		}})
	if err != nil {
		return err
	}
	if res.MatchedCount == 0 {
		return ErrNotFound
	}
	return nil
}

// InsertBalanceEntry agrega un asiento al libro. Los asientos nunca se editan
// ni se borran: el saldo es siempre la suma de todos.
func (m *MongoUserRepository) InsertBalanceEntry(ctx context.Context, e *model.BalanceEntry) error {
	if e.ID == "" {
		e.ID = primitive.NewObjectID().Hex()
	}
	e.CreatedAt = time.Now().UTC()
	_, err := m.entries.InsertOne(ctx, e)
	return err
}

// SumBalance pliega los asientos del usuario al saldo almacenado.
func (m *MongoUserRepository) SumBalance(ctx context.Context, userID string) (int64, error) {
	pipeline := mongo.Pipeline{
		bson.D{{Key: "$match", Value: bson.M{"user_id": userID}}},
		bson.D{{Key: "$group", Value: bson.M{
			"_id":   nil,
			"total": bson.M{"$sum": "$amount_minor"},
		}}},
	}

	cur, err := m.entries.Aggregate(ctx, pipeline)
	if err != nil {
		return 0, err
	}
	defer cur.Close(ctx)

	var res struct {
		Total int64 `bson:"total"`
	}
	if cur.Next(ctx) {
		if err := cur.Decode(&res); err != nil {
			return 0, err
		}
	}
	return res.Total, cur.Err()
}

func (m *MongoUserRepository) ListBalanceEntries(ctx context.Context, userID string) ([]*model.BalanceEntry, error) {
	opts := options.Find().SetSort(bson.D{{Key: "created_at", Value: -1}})
	cur, err := m.entries.Find(ctx, bson.M{"user_id": userID}, opts)
	if err != nil {
		return nil, err
	}
	defer cur.Close(ctx)

	var out []*model.BalanceEntry
	for cur.Next(ctx) {
		var v model.BalanceEntry
		if err := cur.Decode(&v); err != nil {
			return nil, err
		}
		out = append(out, &v)
	}
	return out, cur.Err()
}
