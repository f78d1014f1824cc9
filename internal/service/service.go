package service

import (
	"context"
	"errors"
	"fmt"
	"time"

	"go.mongodb.org/mongo-driver/bson/primitive"
	"go.uber.org/zap"

	"shop-orders-service/internal/dto"
	"shop-orders-service/internal/model"
	"shop-orders-service/internal/repository"
)

// Interfaz que debe implementar repository
type OrderRepository interface {
	Insert(ctx context.Context, o *model.Order) error
	FindByID(ctx context.Context, orderID string) (*model.Order, error)
	UpdateStatus(ctx context.Context, orderID string, status model.OrderStatus, expectedVersion int64) error
	TouchUpdatedAt(ctx context.Context, orderID string) error
	Delete(ctx context.Context, orderID string) error
	FindAll(ctx context.Context) ([]*model.Order, error)
	FindByStatus(ctx context.Context, status model.OrderStatus) ([]*model.Order, error)
	FindByUserID(ctx context.Context, userID string) ([]*model.Order, error)
	SumTotalsByStatuses(ctx context.Context, userID string, statuses []model.OrderStatus) (int64, error)
}

type DeliveryMethodRepository interface {
	FindByCode(ctx context.Context, code string) (*model.DeliveryMethod, error)
	List(ctx context.Context) ([]*model.DeliveryMethod, error)
	Upsert(ctx context.Context, dm *model.DeliveryMethod) error
}

// Errores de negocio exportados (los usa el controller)
var (
	ErrInvalidStatus   = errors.New("estado de pedido inválido")
	ErrOutOfOrderPhase = errors.New("las fases del envío no pueden retroceder")
	ErrValidation      = errors.New("datos de la petición inválidos")
	ErrForbidden       = errors.New("forbidden")
)

type OrderService struct {
	orders    OrderRepository
	trackings TrackingRepository
	methods   DeliveryMethodRepository
	ledger    *LedgerService
	log       *zap.Logger
}

func NewOrderService(orders OrderRepository, trackings TrackingRepository, methods DeliveryMethodRepository, ledger *LedgerService, log *zap.Logger) *OrderService {
	return &OrderService{
		orders:    orders,
		trackings: trackings,
		methods:   methods,
		ledger:    ledger,
		log:       log,
	}
}

// Create crea el pedido al momento del checkout. El total es un snapshot de
// los precios de ese momento: cambios de catálogo posteriores no lo alteran.
// Se invoca desde el consumer de Rabbit (primario) o vía API.
func (s *OrderService) Create(ctx context.Context, req dto.InitOrderRequest) (*model.Order, error) {
	if req.UserID == "" || len(req.Items) == 0 {
		return nil, fmt.Errorf("%w: userId e items son obligatorios", ErrValidation)
	}

	items := make([]model.OrderItem, 0, len(req.Items))
	for _, it := range req.Items {
		// El consumer de Rabbit no pasa por el binding de gin, así que
		// validamos acá también.
		if it.Quantity < 1 || it.UnitPriceMinor <= 0 {
			return nil, fmt.Errorf("%w: item con cantidad o precio inválido", ErrValidation)
		}
		items = append(items, model.OrderItem{
			ProductID:      it.ProductID,
			Name:           it.Name,
			UnitPriceMinor: it.UnitPriceMinor,
			Quantity:       it.Quantity,
			ImageURL:       it.ImageURL,
		})
	}

	method, err := s.methods.FindByCode(ctx, req.DeliveryMethod)
	if err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			return nil, fmt.Errorf("%w: método de entrega desconocido %q", ErrValidation, req.DeliveryMethod)
		}
		return nil, err
	}

	order := &model.Order{
		ID:             primitive.NewObjectID().Hex(),
		OrderNumber:    req.OrderNumber,
		UserID:         req.UserID,
		Status:         model.StatusPending,
		Items:          items,
		DeliveryMethod: method.Code,
	}
	order.TotalAmountMinor = order.ItemsTotalMinor()
	if order.OrderNumber == "" {
		order.OrderNumber = generateOrderNumber()
	}

	est, err := Estimate(method, req.DeclaredWeightKg, order.TotalAmountMinor, time.Now().UTC())
	if err != nil {
		return nil, err
	}
	order.ShippingCostMinor = est.ShippingCostMinor
	order.EstimatedDeliveryDate = est.EstimatedDeliveryDate

	// El perfil del usuario se crea en la primera compra si no existe todavía
	if err := s.ledger.EnsureUser(ctx, req.UserID); err != nil {
		return nil, err
	}

	if err := s.orders.Insert(ctx, order); err != nil {
		return nil, err
	}

	s.log.Info("pedido creado",
		zap.String("orderId", order.ID),
		zap.String("orderNumber", order.OrderNumber),
		zap.Int64("totalMinor", order.TotalAmountMinor))

	return order, nil
}

func generateOrderNumber() string {
	return fmt.Sprintf("ORD-%d", time.Now().UnixNano())
}

// EstimateShipping resuelve el método contra la tabla externa y corre el
// estimador puro. Lo usa el checkout como preview y el admin para re-aplicar
// la estimación cuando se conoce el peso real.
func (s *OrderService) EstimateShipping(ctx context.Context, methodCode string, weightKg float64, subtotalMinor int64) (EstimateResult, error) {
	method, err := s.methods.FindByCode(ctx, methodCode)
	if err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			return EstimateResult{}, fmt.Errorf("%w: método de entrega desconocido %q", ErrValidation, methodCode)
		}
		return EstimateResult{}, err
	}
	return Estimate(method, weightKg, subtotalMinor, time.Now().UTC())
}

// SetStatus escribe el nuevo estado del pedido. No hay grafo formal de
// transiciones: cualquier estado válido puede setearse por un actor
// autorizado. CANCELLED, REFUNDED y DELIVERED son finales documentados;
// inventario, devoluciones de dinero y notificaciones las dispara el caller.
func (s *OrderService) SetStatus(ctx context.Context, orderID string, newStatus string, reason string) (*model.Order, error) {
	status := model.OrderStatus(newStatus)
	if !status.Valid() {
		return nil, fmt.Errorf("%w: %q", ErrInvalidStatus, newStatus)
	}

	ord, err := s.orders.FindByID(ctx, orderID)
	if err != nil {
		return nil, err
	}

	// Reenviar el mismo estado es idempotente: no tocamos nada
	if ord.Status == status {
		return ord, nil
	}

	if ord.Status.Terminal() {
		s.log.Warn("escritura sobre pedido en estado final",
			zap.String("orderId", orderID),
			zap.String("from", string(ord.Status)),
			zap.String("to", string(status)))
	}

	if err := s.orders.UpdateStatus(ctx, orderID, status, ord.Version); err != nil {
		return nil, err
	}

	s.log.Info("estado de pedido actualizado",
		zap.String("orderId", orderID),
		zap.String("from", string(ord.Status)),
		zap.String("to", string(status)),
		zap.String("reason", reason))

	return s.orders.FindByID(ctx, orderID)
}

// Delete es destructivo e irreversible: borra el pedido y su tracking para
// no dejar registros huérfanos.
func (s *OrderService) Delete(ctx context.Context, orderID string) error {
	if err := s.orders.Delete(ctx, orderID); err != nil {
		return err
	}
	if err := s.trackings.Delete(ctx, orderID); err != nil {
		return err
	}
	s.log.Info("pedido eliminado", zap.String("orderId", orderID))
	return nil
}

// Getters
func (s *OrderService) GetByID(ctx context.Context, orderID string) (*model.Order, error) {
	return s.orders.FindByID(ctx, orderID)
}

func (s *OrderService) GetAll(ctx context.Context) ([]*model.Order, error) {
	return s.orders.FindAll(ctx)
}

func (s *OrderService) GetByStatus(ctx context.Context, status string) ([]*model.Order, error) {
	st := model.OrderStatus(status)
	if !st.Valid() {
		return nil, fmt.Errorf("%w: %q", ErrInvalidStatus, status)
	}
	return s.orders.FindByStatus(ctx, st)
}

func (s *OrderService) GetByUserID(ctx context.Context, userID string) ([]*model.Order, error) {
	return s.orders.FindByUserID(ctx, userID)
}

func (s *OrderService) ListDeliveryMethods(ctx context.Context) ([]*model.DeliveryMethod, error) {
	return s.methods.List(ctx)
}

func (s *OrderService) UpsertDeliveryMethod(ctx context.Context, dm *model.DeliveryMethod) error {
	if dm.Code == "" || dm.PricePerKgMinor < 0 {
		return fmt.Errorf("%w: método de entrega inválido", ErrValidation)
	}
	return s.methods.Upsert(ctx, dm)
}
