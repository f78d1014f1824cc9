package repository

import (
	"context"
	"time"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"

	"shop-orders-service/internal/model"
)

type MongoTrackingRepository struct {
	col *mongo.Collection
}

func NewMongoTrackingRepository(db *mongo.Database) *MongoTrackingRepository {
	return &MongoTrackingRepository{col: db.Collection("delivery_trackings")}
}

func (m *MongoTrackingRepository) FindByOrderID(ctx context.Context, orderID string) (*model.DeliveryTracking, error) {
	var res model.DeliveryTracking
	err := m.col.FindOne(ctx, bson.M{"_id": orderID}).Decode(&res)
	if err == mongo.ErrNoDocuments {
		return nil, ErrNotFound
	}
	return &res, err
}

func (m *MongoTrackingRepository) Insert(ctx context.Context, t *model.DeliveryTracking) error {
	now := time.Now().UTC()
	t.CreatedAt = now
	t.UpdatedAt = now
	t.Version = 1
	_, err := m.col.InsertOne(ctx, t)
	if mongo.IsDuplicateKeyError(err) {
		// Alguien creó el registro entre la lectura y la escritura
		return ErrConflict
	}
	return err
}

// Replace reemplaza el documento completo ya validado por el servicio, en una
// sola escritura atómica con guarda de versión. Si la guarda falla, el
// registro previo queda intacto.
func (m *MongoTrackingRepository) Replace(ctx context.Context, t *model.DeliveryTracking, expectedVersion int64) error {
	t.UpdatedAt = time.Now().UTC()
	t.Version = expectedVersion + 1

	filter := bson.M{"_id": t.OrderID, "version": expectedVersion}
	res, err := m.col.ReplaceOne(ctx, filter, t)
	if err != nil {
		return err
	}
	if res.MatchedCount == 0 {
		if _, err := m.FindByOrderID(ctx, t.OrderID); err != nil {
			return err
		}
		return ErrConflict
	}
	return nil
}

// Delete borra el tracking del pedido. No es error que no exista: el borrado
// en cascada debe ser idempotente.
func (m *MongoTrackingRepository) Delete(ctx context.Context, orderID string) error {
	_, err := m.col.DeleteOne(ctx, bson.M{"_id": orderID})
	return err
}

// FindLatestForUser devuelve el tracking actualizado más recientemente entre
// los pedidos del usuario. Empates se resuelven por orderId más alto.
func (m *MongoTrackingRepository) FindLatestForUser(ctx context.Context, userID string) (*model.DeliveryTracking, error) {
	opts := options.FindOne().SetSort(bson.D{
		{Key: "updated_at", Value: -1},
		{Key: "_id", Value: -1},
	})

	var res model.DeliveryTracking
	err := m.col.FindOne(ctx, bson.M{"user_id": userID}, opts).Decode(&res)
	if err == mongo.ErrNoDocuments {
		return nil, ErrNotFound
	}
	return &res, err
}
