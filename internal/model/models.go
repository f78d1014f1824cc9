// models.go
package model

import "time"

// Estado grueso del pedido. Conjunto cerrado: cualquier otro valor se rechaza.
type OrderStatus string

const (
	StatusPending    OrderStatus = "PENDING"
	StatusProcessing OrderStatus = "PROCESSING"
	StatusPaid       OrderStatus = "PAID"
	StatusShipped    OrderStatus = "SHIPPED"
	StatusDelivered  OrderStatus = "DELIVERED"
	StatusCancelled  OrderStatus = "CANCELLED"
	StatusRefunded   OrderStatus = "REFUNDED"
)

var validOrderStatuses = map[OrderStatus]bool{
	StatusPending:    true,
	StatusProcessing: true,
	StatusPaid:       true,
	StatusShipped:    true,
	StatusDelivered:  true,
	StatusCancelled:  true,
	StatusRefunded:   true,
}

func (s OrderStatus) Valid() bool {
	return validOrderStatuses[s]
}

// Estados finales documentados: no deberían recibir más escrituras.
var terminalOrderStatuses = map[OrderStatus]bool{
	StatusDelivered: true,
	StatusCancelled: true,
	StatusRefunded:  true,
}

func (s OrderStatus) Terminal() bool {
	return terminalOrderStatuses[s]
}

// Fases del envío, independientes del estado grueso del pedido.
// El orden es fijo: ORDERED < RECEIVED_CHINA < SENT_TBILISI < DELIVERED_TBILISI.
type DeliveryStatus string

const (
	DeliveryOrdered          DeliveryStatus = "ORDERED"
	DeliveryReceivedChina    DeliveryStatus = "RECEIVED_CHINA"
	DeliverySentTbilisi      DeliveryStatus = "SENT_TBILISI"
	DeliveryDeliveredTbilisi DeliveryStatus = "DELIVERED_TBILISI"
)

// DeliveryPhases en orden. El índice dentro del slice es el índice de fase.
var DeliveryPhases = []DeliveryStatus{
	DeliveryOrdered,
	DeliveryReceivedChina,
	DeliverySentTbilisi,
	DeliveryDeliveredTbilisi,
}

// PhaseIndex devuelve la posición de la fase, o -1 si el valor no existe.
func (s DeliveryStatus) PhaseIndex() int {
	for i, p := range DeliveryPhases {
		if p == s {
			return i
		}
	}
	return -1
}

func (s DeliveryStatus) Valid() bool {
	return s.PhaseIndex() >= 0
}

// Métodos de entrega conocidos (los registros viven en la tabla externa).
const (
	MethodAir    = "AIR"
	MethodGround = "GROUND"
	MethodSea    = "SEA"
)

type Order struct {
	ID                    string      `bson:"_id" json:"id"`
	OrderNumber           string      `bson:"order_number" json:"orderNumber"`
	UserID                string      `bson:"user_id" json:"userId"`
	Status                OrderStatus `bson:"status" json:"status"`
	Items                 []OrderItem `bson:"items" json:"items"`
	TotalAmountMinor      int64       `bson:"total_amount_minor" json:"totalAmountMinorUnits"`
	ShippingCostMinor     int64       `bson:"shipping_cost_minor" json:"shippingCostMinorUnits"`
	DeliveryMethod        string      `bson:"delivery_method" json:"deliveryMethod"`
	EstimatedDeliveryDate time.Time   `bson:"estimated_delivery_date" json:"estimatedDeliveryDate"`
	CreatedAt             time.Time   `bson:"created_at" json:"createdAt"`
	UpdatedAt             time.Time   `bson:"updated_at" json:"updatedAt"`

	// Guarda optimista contra ediciones concurrentes de admin.
	Version int64 `bson:"version" json:"-"`
}

type OrderItem struct {
	ProductID      string `bson:"product_id" json:"productId"`
	Name           string `bson:"name" json:"name"`
	UnitPriceMinor int64  `bson:"unit_price_minor" json:"unitPriceMinorUnits"`
	Quantity       int    `bson:"quantity" json:"quantity"`
	ImageURL       string `bson:"image_url" json:"imageUrl"`
}

// ItemsTotalMinor suma unitPrice * quantity. El valor se congela en
// TotalAmountMinor al crear el pedido y no se recalcula nunca después.
func (o *Order) ItemsTotalMinor() int64 {
	var total int64
	for _, it := range o.Items {
		total += it.UnitPriceMinor * int64(it.Quantity)
	}
	return total
}

// Registro de seguimiento: 0 o 1 por pedido, creado de forma lazy por admin.
// Un timestamp de fase está seteado si y solo si el envío alcanzó esa fase.
type DeliveryTracking struct {
	OrderID        string         `bson:"_id" json:"orderId"`
	UserID         string         `bson:"user_id" json:"userId"`
	DeliveryStatus DeliveryStatus `bson:"delivery_status" json:"deliveryStatus"`

	OrderedAt          *time.Time `bson:"ordered_at,omitempty" json:"orderedAt,omitempty"`
	ReceivedChinaAt    *time.Time `bson:"received_china_at,omitempty" json:"receivedChinaAt,omitempty"`
	SentTbilisiAt      *time.Time `bson:"sent_tbilisi_at,omitempty" json:"sentTbilisiAt,omitempty"`
	DeliveredTbilisiAt *time.Time `bson:"delivered_tbilisi_at,omitempty" json:"deliveredTbilisiAt,omitempty"`

	ProductWeightKg          *float64 `bson:"product_weight_kg,omitempty" json:"productWeightKg,omitempty"`
	TransportationPriceMinor *int64   `bson:"transportation_price_minor,omitempty" json:"transportationPriceMinorUnits,omitempty"`
	TrackingNumber           string   `bson:"tracking_number,omitempty" json:"trackingNumber,omitempty"`

	CreatedAt time.Time `bson:"created_at" json:"createdAt"`
	UpdatedAt time.Time `bson:"updated_at" json:"updatedAt"`
	Version   int64     `bson:"version" json:"-"`
}

// PhaseTimestamps devuelve los cuatro timestamps como array ordenado por fase,
// para validar escrituras monótonas por índice.
func (t *DeliveryTracking) PhaseTimestamps() [4]*time.Time {
	return [4]*time.Time{t.OrderedAt, t.ReceivedChinaAt, t.SentTbilisiAt, t.DeliveredTbilisiAt}
}

// PhaseReached: una fase se considera alcanzada si su timestamp está seteado
// o si deliveryStatus es igual o posterior a esa fase.
func (t *DeliveryTracking) PhaseReached(phase DeliveryStatus) bool {
	idx := phase.PhaseIndex()
	if idx < 0 {
		return false
	}
	if ts := t.PhaseTimestamps()[idx]; ts != nil {
		return true
	}
	return t.DeliveryStatus.PhaseIndex() >= idx
}

type User struct {
	ID                    string    `bson:"_id" json:"id"`
	Name                  string    `bson:"name" json:"name"`
	BalanceCode           string    `bson:"balance_code" json:"balanceCode"`
	PendingTransportMinor int64     `bson:"pending_transport_minor" json:"pendingTransportationFeesMinorUnits"`
	CreatedAt             time.Time `bson:"created_at" json:"createdAt"`
	UpdatedAt             time.Time `bson:"updated_at" json:"updatedAt"`
}

// Asiento del libro de balance. Solo se agregan registros, nunca se editan:
// el balance del usuario es la suma de sus asientos.
type BalanceEntry struct {
	ID          string    `bson:"_id" json:"id"`
	UserID      string    `bson:"user_id" json:"userId"`
	AmountMinor int64     `bson:"amount_minor" json:"amountMinorUnits"`
	Reason      string    `bson:"reason" json:"reason"`
	Actor       string    `bson:"actor" json:"actor"`
	CreatedAt   time.Time `bson:"created_at" json:"createdAt"`
}

// Registro de la tabla externa de métodos de entrega.
type DeliveryMethod struct {
	Code             string `bson:"_id" json:"code"`
	DisplayName      string `bson:"display_name" json:"displayName"`
	PricePerKgMinor  int64  `bson:"price_per_kg_minor" json:"pricePerKgMinorUnits"`
	EstimatedDaysMin int    `bson:"estimated_days_min" json:"estimatedDaysMin"`
	EstimatedDaysMax int    `bson:"estimated_days_max" json:"estimatedDaysMax"`
	Position         int    `bson:"position" json:"-"`
}
