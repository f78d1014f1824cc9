package repository

import (
	"context"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"

	"shop-orders-service/internal/model"
)

// Tabla externa de métodos de entrega: la única que lee el estimador.
type MongoDeliveryMethodRepository struct {
	col *mongo.Collection
}

func NewMongoDeliveryMethodRepository(db *mongo.Database) *MongoDeliveryMethodRepository {
	return &MongoDeliveryMethodRepository{col: db.Collection("delivery_methods")}
}

func (m *MongoDeliveryMethodRepository) FindByCode(ctx context.Context, code string) (*model.DeliveryMethod, error) {
	var res model.DeliveryMethod
	err := m.col.FindOne(ctx, bson.M{"_id": code}).Decode(&res)
	if err == mongo.ErrNoDocuments {
		return nil, ErrNotFound
	}
	return &res, err
}

func (m *MongoDeliveryMethodRepository) List(ctx context.Context) ([]*model.DeliveryMethod, error) {
	opts := options.Find().SetSort(bson.D{{Key: "position", Value: 1}})
	cur, err := m.col.Find(ctx, bson.M{}, opts)
	if err != nil {
		return nil, err
	}
	defer cur.Close(ctx)

	var out []*model.DeliveryMethod
	for cur.Next(ctx) {
		var v model.DeliveryMethod
		if err := cur.Decode(&v); err != nil {
			return nil, err
		}
		out = append(out, &v)
	}
	return out, cur.Err()
}

func (m *MongoDeliveryMethodRepository) Upsert(ctx context.Context, dm *model.DeliveryMethod) error {
	filter := bson.M{"_id": dm.Code}
	update := bson.M{"$set": dm}
	opts := options.Update().SetUpsert(true)
	_, err := m.col.UpdateOne(ctx, filter, update, opts)
	return err
}

// Seed carga los tres métodos por defecto si la colección está vacía.
func (m *MongoDeliveryMethodRepository) Seed(ctx context.Context) error {
	count, err := m.col.CountDocuments(ctx, bson.M{})
	if err != nil {
		return err
	}
	if count > 0 {
		return nil
	}

	defaults := []*model.DeliveryMethod{
		{Code: model.MethodAir, DisplayName: "Air freight", PricePerKgMinor: 950, EstimatedDaysMin: 7, EstimatedDaysMax: 12, Position: 1},
		{Code: model.MethodGround, DisplayName: "Ground freight", PricePerKgMinor: 450, EstimatedDaysMin: 18, EstimatedDaysMax: 25, Position: 2},
		{Code: model.MethodSea, DisplayName: "Sea freight", PricePerKgMinor: 250, EstimatedDaysMin: 35, EstimatedDaysMax: 50, Position: 3},
	}
	for _, dm := range defaults {
		if err := m.Upsert(ctx, dm); err != nil {
			return err
		}
	}
	return nil
}
