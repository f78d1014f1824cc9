package rabbit

import (
	"context"
	"encoding/json"

	"go.uber.org/zap"

	"shop-orders-service/internal/dto"
	"shop-orders-service/internal/service"
)

type PlaceOrderConsumer struct {
	Service *service.OrderService
	Log     *zap.Logger
}

func NewPlaceOrderConsumer(s *service.OrderService, log *zap.Logger) *PlaceOrderConsumer {
	return &PlaceOrderConsumer{Service: s, Log: log}
}

// Mensaje que publica el checkout al confirmar el carrito. Los precios
// unitarios vienen en el evento: son el snapshot que congela el total.
type PlacedOrderMessage struct {
	CorrelationID string `json:"correlation_id"`
	Exchange      string `json:"exchange"`
	RoutingKey    string `json:"routing_key"`
	Message       struct {
		UserID           string             `json:"userId"`
		CartID           string             `json:"cartId"`
		OrderNumber      string             `json:"orderNumber"`
		DeliveryMethod   string             `json:"deliveryMethod"`
		DeclaredWeightKg float64            `json:"declaredWeightKg"`
		Items            []dto.OrderItemDTO `json:"items"`
	} `json:"message"`
}

func (c *PlaceOrderConsumer) Handle(msg []byte) error {
	c.Log.Info("evento recibido: order_placed")

	var event PlacedOrderMessage
	if err := json.Unmarshal(msg, &event); err != nil {
		c.Log.Error("error parseando mensaje", zap.Error(err))
		return err
	}

	order, err := c.Service.Create(context.Background(), dto.InitOrderRequest{
		UserID:           event.Message.UserID,
		Items:            event.Message.Items,
		DeliveryMethod:   event.Message.DeliveryMethod,
		DeclaredWeightKg: event.Message.DeclaredWeightKg,
		OrderNumber:      event.Message.OrderNumber,
	})
	if err != nil {
		c.Log.Error("error creando pedido desde checkout", zap.Error(err))
		return err
	}

	c.Log.Info("pedido creado desde checkout",
		zap.String("orderId", order.ID),
		zap.String("orderNumber", order.OrderNumber))
	return nil
}
