package service

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"shop-orders-service/internal/dto"
	"shop-orders-service/internal/model"
	"shop-orders-service/internal/repository"
)

func strPtr(s string) *string        { return &s }
func f64Ptr(f float64) *float64      { return &f }
func i64Ptr(i int64) *int64          { return &i }
func timePtr(t time.Time) *time.Time { return &t }

func TestTrackingLazyCreateAndPartialUpdate(t *testing.T) {
	svc, trackingSvc, _, _, _, _ := newTestServices()
	ctx := context.Background()

	order, err := svc.Create(ctx, initReq("user-1"))
	require.NoError(t, err)

	// El registro no existe hasta la primera escritura de admin
	_, err = trackingSvc.GetByOrderID(ctx, order.ID)
	require.ErrorIs(t, err, repository.ErrNotFound)

	ordered := time.Date(2026, 8, 1, 10, 0, 0, 0, time.UTC)
	tr, err := trackingSvc.Upsert(ctx, order.ID, dto.UpsertTrackingRequest{
		OrderedAt:      timePtr(ordered),
		TrackingNumber: strPtr("CN-123456"),
	})
	require.NoError(t, err)
	require.Equal(t, model.DeliveryOrdered, tr.DeliveryStatus)
	require.Equal(t, "CN-123456", tr.TrackingNumber)
	require.Nil(t, tr.ProductWeightKg)

	// Actualización parcial: los campos no enviados conservan su valor
	tr, err = trackingSvc.Upsert(ctx, order.ID, dto.UpsertTrackingRequest{
		ProductWeightKg:          f64Ptr(2.4),
		TransportationPriceMinor: i64Ptr(2280),
	})
	require.NoError(t, err)
	require.Equal(t, "CN-123456", tr.TrackingNumber)
	require.Equal(t, ordered, tr.OrderedAt.UTC())
	require.Equal(t, 2.4, *tr.ProductWeightKg)
	require.Equal(t, int64(2280), *tr.TransportationPriceMinor)
}

func TestTrackingRejectsOutOfOrderTimestamps(t *testing.T) {
	svc, trackingSvc, _, _, _, _ := newTestServices()
	ctx := context.Background()

	order, err := svc.Create(ctx, initReq("user-1"))
	require.NoError(t, err)

	now := time.Now().UTC()
	_, err = trackingSvc.Upsert(ctx, order.ID, dto.UpsertTrackingRequest{OrderedAt: &now})
	require.NoError(t, err)

	// deliveredTbilisiAt sin sentTbilisiAt: hueco en el prefijo de fases
	_, err = trackingSvc.Upsert(ctx, order.ID, dto.UpsertTrackingRequest{
		DeliveredTbilisiAt: &now,
	})
	require.ErrorIs(t, err, ErrOutOfOrderPhase)

	// El rechazo deja el registro previo intacto
	tr, err := trackingSvc.GetByOrderID(ctx, order.ID)
	require.NoError(t, err)
	require.Nil(t, tr.DeliveredTbilisiAt)
	require.Nil(t, tr.SentTbilisiAt)
}

func TestTrackingRejectsStatusAheadOfTimestamps(t *testing.T) {
	svc, trackingSvc, _, _, _, _ := newTestServices()
	ctx := context.Background()

	order, err := svc.Create(ctx, initReq("user-1"))
	require.NoError(t, err)

	now := time.Now().UTC()
	_, err = trackingSvc.Upsert(ctx, order.ID, dto.UpsertTrackingRequest{OrderedAt: &now})
	require.NoError(t, err)

	// DELIVERED_TBILISI exige los timestamps de las fases anteriores:
	// nunca se backfillea sentTbilisiAt en silencio, se rechaza
	_, err = trackingSvc.Upsert(ctx, order.ID, dto.UpsertTrackingRequest{
		DeliveryStatus: strPtr(string(model.DeliveryDeliveredTbilisi)),
	})
	require.ErrorIs(t, err, ErrOutOfOrderPhase)

	tr, err := trackingSvc.GetByOrderID(ctx, order.ID)
	require.NoError(t, err)
	require.Equal(t, model.DeliveryOrdered, tr.DeliveryStatus)
	require.Nil(t, tr.SentTbilisiAt)
}

func TestTrackingRejectsNonMonotonicTimestamps(t *testing.T) {
	svc, trackingSvc, _, _, _, _ := newTestServices()
	ctx := context.Background()

	order, err := svc.Create(ctx, initReq("user-1"))
	require.NoError(t, err)

	ordered := time.Date(2026, 8, 10, 0, 0, 0, 0, time.UTC)
	received := ordered.AddDate(0, 0, -3) // anterior a ORDERED

	_, err = trackingSvc.Upsert(ctx, order.ID, dto.UpsertTrackingRequest{
		OrderedAt:       &ordered,
		ReceivedChinaAt: &received,
	})
	require.ErrorIs(t, err, ErrOutOfOrderPhase)
}

func TestTrackingFullHappyPath(t *testing.T) {
	svc, trackingSvc, _, _, _, _ := newTestServices()
	ctx := context.Background()

	order, err := svc.Create(ctx, initReq("user-1"))
	require.NoError(t, err)

	t0 := time.Date(2026, 8, 1, 0, 0, 0, 0, time.UTC)
	tr, err := trackingSvc.Upsert(ctx, order.ID, dto.UpsertTrackingRequest{
		DeliveryStatus:     strPtr(string(model.DeliveryDeliveredTbilisi)),
		OrderedAt:          timePtr(t0),
		ReceivedChinaAt:    timePtr(t0.AddDate(0, 0, 2)),
		SentTbilisiAt:      timePtr(t0.AddDate(0, 0, 5)),
		DeliveredTbilisiAt: timePtr(t0.AddDate(0, 0, 12)),
	})
	require.NoError(t, err)
	require.Equal(t, model.DeliveryDeliveredTbilisi, tr.DeliveryStatus)
	require.True(t, tr.PhaseReached(model.DeliverySentTbilisi))
	require.True(t, tr.PhaseReached(model.DeliveryDeliveredTbilisi))
}

func TestTrackingInvalidValues(t *testing.T) {
	svc, trackingSvc, _, _, _, _ := newTestServices()
	ctx := context.Background()

	order, err := svc.Create(ctx, initReq("user-1"))
	require.NoError(t, err)

	_, err = trackingSvc.Upsert(ctx, order.ID, dto.UpsertTrackingRequest{
		DeliveryStatus: strPtr("LOST_AT_SEA"),
	})
	require.ErrorIs(t, err, ErrInvalidStatus)

	_, err = trackingSvc.Upsert(ctx, order.ID, dto.UpsertTrackingRequest{
		ProductWeightKg: f64Ptr(-1),
	})
	require.ErrorIs(t, err, ErrValidation)

	// Tracking sobre un pedido inexistente
	_, err = trackingSvc.Upsert(ctx, "nope", dto.UpsertTrackingRequest{})
	require.ErrorIs(t, err, repository.ErrNotFound)
}

func TestTrackingLatestForUser(t *testing.T) {
	svc, trackingSvc, _, _, trackings, _ := newTestServices()
	ctx := context.Background()

	o1, err := svc.Create(ctx, initReq("user-1"))
	require.NoError(t, err)
	o2, err := svc.Create(ctx, initReq("user-1"))
	require.NoError(t, err)
	o3, err := svc.Create(ctx, initReq("user-2"))
	require.NoError(t, err)

	now := time.Now().UTC()
	for _, id := range []string{o1.ID, o2.ID, o3.ID} {
		_, err = trackingSvc.Upsert(ctx, id, dto.UpsertTrackingRequest{OrderedAt: &now})
		require.NoError(t, err)
	}

	// Forzamos updated_at iguales para probar el desempate por orderId
	ts := time.Date(2020, 8, 20, 12, 0, 0, 0, time.UTC)
	trackings.m[o1.ID].UpdatedAt = ts
	trackings.m[o2.ID].UpdatedAt = ts

	latest, err := trackingSvc.LatestForUser(ctx, "user-1")
	require.NoError(t, err)
	want := o1.ID
	if o2.ID > o1.ID {
		want = o2.ID
	}
	require.Equal(t, want, latest.OrderID)

	// Una actualización posterior gana sin importar el orderId
	time.Sleep(2 * time.Millisecond)
	_, err = trackingSvc.Upsert(ctx, o1.ID, dto.UpsertTrackingRequest{TrackingNumber: strPtr("X")})
	require.NoError(t, err)
	latest, err = trackingSvc.LatestForUser(ctx, "user-1")
	require.NoError(t, err)
	require.Equal(t, o1.ID, latest.OrderID)

	// Usuario sin trackings
	_, err = trackingSvc.LatestForUser(ctx, "user-3")
	require.ErrorIs(t, err, repository.ErrNotFound)
}
