package service

import (
	"context"
	"errors"
	"fmt"

	"go.uber.org/zap"

	"shop-orders-service/internal/dto"
	"shop-orders-service/internal/model"
	"shop-orders-service/internal/repository"
)

type TrackingRepository interface {
	FindByOrderID(ctx context.Context, orderID string) (*model.DeliveryTracking, error)
	Insert(ctx context.Context, t *model.DeliveryTracking) error
	Replace(ctx context.Context, t *model.DeliveryTracking, expectedVersion int64) error
	Delete(ctx context.Context, orderID string) error
	FindLatestForUser(ctx context.Context, userID string) (*model.DeliveryTracking, error)
}

type TrackingService struct {
	trackings TrackingRepository
	orders    OrderRepository
	log       *zap.Logger
}

func NewTrackingService(trackings TrackingRepository, orders OrderRepository, log *zap.Logger) *TrackingService {
	return &TrackingService{trackings: trackings, orders: orders, log: log}
}

// Upsert aplica una actualización parcial sobre el tracking del pedido.
// Los campos ausentes conservan su valor previo; en un alta los campos
// ausentes quedan sin setear. El documento fusionado se valida completo
// antes de la única escritura: si algo falla, el registro previo queda
// intacto.
func (s *TrackingService) Upsert(ctx context.Context, orderID string, req dto.UpsertTrackingRequest) (*model.DeliveryTracking, error) {
	// El tracking referencia al pedido, no al revés: el pedido tiene que existir
	ord, err := s.orders.FindByID(ctx, orderID)
	if err != nil {
		return nil, err
	}

	existing, err := s.trackings.FindByOrderID(ctx, orderID)
	creating := false
	if err != nil {
		if !errors.Is(err, repository.ErrNotFound) {
			return nil, err
		}
		// Alta lazy: el registro no existe hasta la primera escritura de admin
		creating = true
		existing = &model.DeliveryTracking{
			OrderID:        orderID,
			UserID:         ord.UserID,
			DeliveryStatus: model.DeliveryOrdered,
		}
	}

	merged := *existing
	applyPartial(&merged, req)

	if err := validateTracking(&merged); err != nil {
		return nil, err
	}

	if creating {
		err = s.trackings.Insert(ctx, &merged)
	} else {
		err = s.trackings.Replace(ctx, &merged, existing.Version)
	}
	if err != nil {
		return nil, err
	}

	// Una mutación de tracking también refresca updated_at del pedido
	if err := s.orders.TouchUpdatedAt(ctx, orderID); err != nil {
		s.log.Warn("no se pudo refrescar updated_at del pedido",
			zap.String("orderId", orderID), zap.Error(err))
	}

	return &merged, nil
}

func applyPartial(t *model.DeliveryTracking, req dto.UpsertTrackingRequest) {
	if req.DeliveryStatus != nil {
		t.DeliveryStatus = model.DeliveryStatus(*req.DeliveryStatus)
	}
	if req.OrderedAt != nil {
		t.OrderedAt = req.OrderedAt
	}
	if req.ReceivedChinaAt != nil {
		t.ReceivedChinaAt = req.ReceivedChinaAt
	}
	if req.SentTbilisiAt != nil {
		t.SentTbilisiAt = req.SentTbilisiAt
	}
	if req.DeliveredTbilisiAt != nil {
		t.DeliveredTbilisiAt = req.DeliveredTbilisiAt
	}
	if req.ProductWeightKg != nil {
		t.ProductWeightKg = req.ProductWeightKg
	}
	if req.TransportationPriceMinor != nil {
		t.TransportationPriceMinor = req.TransportationPriceMinor
	}
	if req.TrackingNumber != nil {
		t.TrackingNumber = *req.TrackingNumber
	}
}

// validateTracking valida el documento fusionado completo.
// Invariantes de fase (los timestamps son un array fijo ordenado por fase):
//  1. Los timestamps seteados forman un prefijo del orden de fases: no puede
//     haber deliveredTbilisiAt sin sentTbilisiAt.
//  2. Los timestamps son monótonos no decrecientes en orden de fase.
//  3. deliveryStatus en la fase k exige los timestamps de todas las fases
//     anteriores a k.
func validateTracking(t *model.DeliveryTracking) error {
	if !t.DeliveryStatus.Valid() {
		return fmt.Errorf("%w: %q", ErrInvalidStatus, t.DeliveryStatus)
	}
	if t.ProductWeightKg != nil && *t.ProductWeightKg < 0 {
		return fmt.Errorf("%w: el peso no puede ser negativo", ErrValidation)
	}
	if t.TransportationPriceMinor != nil && *t.TransportationPriceMinor < 0 {
		return fmt.Errorf("%w: el precio de transporte no puede ser negativo", ErrValidation)
	}

	ts := t.PhaseTimestamps()

	// PASO 1: prefijo — un timestamp seteado no puede tener huecos antes
	for i := 1; i < len(ts); i++ {
		if ts[i] != nil && ts[i-1] == nil {
			return fmt.Errorf("%w: falta el timestamp de la fase %s",
				ErrOutOfOrderPhase, model.DeliveryPhases[i-1])
		}
	}

	// PASO 2: monótono — el historial no se reordena
	for i := 1; i < len(ts); i++ {
		if ts[i] != nil && ts[i-1] != nil && ts[i].Before(*ts[i-1]) {
			return fmt.Errorf("%w: el timestamp de %s es anterior al de %s",
				ErrOutOfOrderPhase, model.DeliveryPhases[i], model.DeliveryPhases[i-1])
		}
	}

	// PASO 3: el estado no puede adelantarse a los timestamps
	for j := 0; j < t.DeliveryStatus.PhaseIndex(); j++ {
		if ts[j] == nil {
			return fmt.Errorf("%w: el estado %s exige el timestamp de %s",
				ErrOutOfOrderPhase, t.DeliveryStatus, model.DeliveryPhases[j])
		}
	}

	return nil
}

func (s *TrackingService) GetByOrderID(ctx context.Context, orderID string) (*model.DeliveryTracking, error) {
	return s.trackings.FindByOrderID(ctx, orderID)
}

// LatestForUser devuelve el tracking actualizado más recientemente entre los
// pedidos del usuario (lo usa el resumen del dashboard). NotFound si no hay.
func (s *TrackingService) LatestForUser(ctx context.Context, userID string) (*model.DeliveryTracking, error) {
	return s.trackings.FindLatestForUser(ctx, userID)
}
