// dto.go
package dto

import "time"

// InitOrderRequest usado por la API y Rabbit para crear el pedido al checkout
type InitOrderRequest struct {
	UserID           string         `json:"userId" binding:"required"`
	Items            []OrderItemDTO `json:"items" binding:"required,min=1,dive"`
	DeliveryMethod   string         `json:"deliveryMethod" binding:"required"`
	DeclaredWeightKg float64        `json:"declaredWeightKg"`
	OrderNumber      string         `json:"orderNumber"`
}

type OrderItemDTO struct {
	ProductID      string `json:"productId" binding:"required"`
	Name           string `json:"name"`
	UnitPriceMinor int64  `json:"unitPriceMinorUnits" binding:"required,gt=0"`
	Quantity       int    `json:"quantity" binding:"required,gte=1"`
	ImageURL       string `json:"imageUrl"`
}

type UpdateStatusRequest struct {
	Status string `json:"status" binding:"required"`
	Reason string `json:"reason"`
}

// UpsertTrackingRequest es una actualización parcial: los campos ausentes
// (punteros nil) conservan el valor previo del registro.
type UpsertTrackingRequest struct {
	DeliveryStatus *string `json:"deliveryStatus,omitempty"`

	OrderedAt          *time.Time `json:"orderedAt,omitempty"`
	ReceivedChinaAt    *time.Time `json:"receivedChinaAt,omitempty"`
	SentTbilisiAt      *time.Time `json:"sentTbilisiAt,omitempty"`
	DeliveredTbilisiAt *time.Time `json:"deliveredTbilisiAt,omitempty"`

	ProductWeightKg          *float64 `json:"productWeightKg,omitempty"`
	TransportationPriceMinor *int64   `json:"transportationPriceMinorUnits,omitempty"`
	TrackingNumber           *string  `json:"trackingNumber,omitempty"`
}

// AdjustBalanceRequest crea un asiento en el libro de balance (nunca pisa el saldo)
type AdjustBalanceRequest struct {
	AmountMinor int64  `json:"amountMinorUnits" binding:"required"`
	Reason      string `json:"reason" binding:"required"`
}

type UpdateTransportFeesRequest struct {
	PendingTransportMinor *int64 `json:"pendingTransportationFeesMinorUnits" binding:"required,gte=0"`
}

type UpsertDeliveryMethodRequest struct {
	DisplayName      string `json:"displayName" binding:"required"`
	PricePerKgMinor  int64  `json:"pricePerKgMinorUnits" binding:"required,gte=0"`
	EstimatedDaysMin int    `json:"estimatedDaysMin" binding:"gte=0"`
	EstimatedDaysMax int    `json:"estimatedDaysMax" binding:"gte=0"`
	Position         int    `json:"position"`
}

// BalanceResponse expone el balance efectivo derivado, nunca persistido
type BalanceResponse struct {
	BalanceCode           string `json:"balanceCode"`
	BalanceMinor          int64  `json:"balanceMinorUnits"`
	PendingTransportMinor int64  `json:"pendingTransportationFeesMinorUnits"`
	PendingOrdersMinor    int64  `json:"pendingOrdersTotalMinorUnits"`
	EffectiveBalanceMinor int64  `json:"effectiveBalanceMinorUnits"`
}

// EstimateRequest cotiza envío y aduana sin crear el pedido
type EstimateRequest struct {
	DeliveryMethod string  `json:"deliveryMethod" binding:"required"`
	WeightKg       float64 `json:"weightKg" binding:"gte=0"`
	SubtotalMinor  int64   `json:"subtotalMinorUnits" binding:"gte=0"`
}

type EstimateResponse struct {
	ShippingCostMinor     int64     `json:"shippingCostMinorUnits"`
	CustomsTariffMinor    int64     `json:"customsTariffMinorUnits"`
	EstimatedDeliveryDate time.Time `json:"estimatedDeliveryDate"`
}
