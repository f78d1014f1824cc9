package service

import (
	"context"
	"sort"
	"testing"
	"time"

	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"shop-orders-service/internal/dto"
	"shop-orders-service/internal/model"
	"shop-orders-service/internal/repository"
)

// Fakes en memoria con la misma semántica que los repos de Mongo

type fakeOrderRepo struct {
	m map[string]*model.Order
}

func newFakeOrderRepo() *fakeOrderRepo {
	return &fakeOrderRepo{m: map[string]*model.Order{}}
}

func (r *fakeOrderRepo) Insert(_ context.Context, o *model.Order) error {
	now := time.Now().UTC()
	if o.CreatedAt.IsZero() {
		o.CreatedAt = now
	}
	o.UpdatedAt = now
	o.Version = 1
	cp := *o
	r.m[o.ID] = &cp
	return nil
}

func (r *fakeOrderRepo) FindByID(_ context.Context, orderID string) (*model.Order, error) {
	o, ok := r.m[orderID]
	if !ok {
		return nil, repository.ErrNotFound
	}
	cp := *o
	return &cp, nil
}

func (r *fakeOrderRepo) UpdateStatus(_ context.Context, orderID string, status model.OrderStatus, expectedVersion int64) error {
	o, ok := r.m[orderID]
	if !ok {
		return repository.ErrNotFound
	}
	if o.Version != expectedVersion {
		return repository.ErrConflict
	}
	o.Status = status
	o.UpdatedAt = time.Now().UTC()
	o.Version++
	return nil
}

func (r *fakeOrderRepo) TouchUpdatedAt(_ context.Context, orderID string) error {
	o, ok := r.m[orderID]
	if !ok {
		return repository.ErrNotFound
	}
	o.UpdatedAt = time.Now().UTC()
	return nil
}

func (r *fakeOrderRepo) Delete(_ context.Context, orderID string) error {
	if _, ok := r.m[orderID]; !ok {
		return repository.ErrNotFound
	}
	delete(r.m, orderID)
	return nil
}

func (r *fakeOrderRepo) FindAll(_ context.Context) ([]*model.Order, error) {
	var out []*model.Order
	for _, o := range r.m {
		cp := *o
		out = append(out, &cp)
	}
	return out, nil
}

func (r *fakeOrderRepo) FindByStatus(_ context.Context, status model.OrderStatus) ([]*model.Order, error) {
	var out []*model.Order
	for _, o := range r.m {
		if o.Status == status {
			cp := *o
			out = append(out, &cp)
		}
	}
	return out, nil
}

func (r *fakeOrderRepo) FindByUserID(_ context.Context, userID string) ([]*model.Order, error) {
	var out []*model.Order
	for _, o := range r.m {
		if o.UserID == userID {
			cp := *o
			out = append(out, &cp)
		}
	}
	return out, nil
}

func (r *fakeOrderRepo) SumTotalsByStatuses(_ context.Context, userID string, statuses []model.OrderStatus) (int64, error) {
	var total int64
	for _, o := range r.m {
		if o.UserID != userID {
			continue
		}
		for _, s := range statuses {
			if o.Status == s {
				total += o.TotalAmountMinor
				break
			}
		}
	}
	return total, nil
}

type fakeTrackingRepo struct {
	m map[string]*model.DeliveryTracking
}

func newFakeTrackingRepo() *fakeTrackingRepo {
	return &fakeTrackingRepo{m: map[string]*model.DeliveryTracking{}}
}

func (r *fakeTrackingRepo) FindByOrderID(_ context.Context, orderID string) (*model.DeliveryTracking, error) {
	t, ok := r.m[orderID]
	if !ok {
		return nil, repository.ErrNotFound
	}
	cp := *t
	return &cp, nil
}

func (r *fakeTrackingRepo) Insert(_ context.Context, t *model.DeliveryTracking) error {
	if _, ok := r.m[t.OrderID]; ok {
		return repository.ErrConflict
	}
	now := time.Now().UTC()
	t.CreatedAt = now
	t.UpdatedAt = now
	t.Version = 1
	cp := *t
	r.m[t.OrderID] = &cp
	return nil
}

func (r *fakeTrackingRepo) Replace(_ context.Context, t *model.DeliveryTracking, expectedVersion int64) error {
	old, ok := r.m[t.OrderID]
	if !ok {
		return repository.ErrNotFound
	}
	if old.Version != expectedVersion {
		return repository.ErrConflict
	}
	t.UpdatedAt = time.Now().UTC()
	t.Version = expectedVersion + 1
	cp := *t
	r.m[t.OrderID] = &cp
	return nil
}

func (r *fakeTrackingRepo) Delete(_ context.Context, orderID string) error {
	delete(r.m, orderID)
	return nil
}

func (r *fakeTrackingRepo) FindLatestForUser(_ context.Context, userID string) (*model.DeliveryTracking, error) {
	var all []*model.DeliveryTracking
	for _, t := range r.m {
		if t.UserID == userID {
			all = append(all, t)
		}
	}
	if len(all) == 0 {
		return nil, repository.ErrNotFound
	}
	sort.Slice(all, func(i, j int) bool {
		if !all[i].UpdatedAt.Equal(all[j].UpdatedAt) {
			return all[i].UpdatedAt.After(all[j].UpdatedAt)
		}
		return all[i].OrderID > all[j].OrderID
	})
	cp := *all[0]
	return &cp, nil
}

type fakeUserRepo struct {
	users   map[string]*model.User
	entries []*model.BalanceEntry
}

func newFakeUserRepo() *fakeUserRepo {
	return &fakeUserRepo{users: map[string]*model.User{}}
}

func (r *fakeUserRepo) FindByID(_ context.Context, userID string) (*model.User, error) {
	u, ok := r.users[userID]
	if !ok {
		return nil, repository.ErrNotFound
	}
	cp := *u
	return &cp, nil
}

func (r *fakeUserRepo) Insert(_ context.Context, u *model.User) error {
	cp := *u
	r.users[u.ID] = &cp
	return nil
}

func (r *fakeUserRepo) UpdateTransportFees(_ context.Context, userID string, feesMinor int64) error {
	u, ok := r.users[userID]
	if !ok {
		return repository.ErrNotFound
	}
	u.PendingTransportMinor = feesMinor
	return nil
}

func (r *fakeUserRepo) InsertBalanceEntry(_ context.Context, e *model.BalanceEntry) error {
	e.CreatedAt = time.Now().UTC()
	cp := *e
	r.entries = append(r.entries, &cp)
	return nil
}

func (r *fakeUserRepo) SumBalance(_ context.Context, userID string) (int64, error) {
	var total int64
	for _, e := range r.entries {
		if e.UserID == userID {
			total += e.AmountMinor
		}
	}
	return total, nil
}

func (r *fakeUserRepo) ListBalanceEntries(_ context.Context, userID string) ([]*model.BalanceEntry, error) {
	var out []*model.BalanceEntry
	for _, e := range r.entries {
		if e.UserID == userID {
			out = append(out, e)
		}
	}
	return out, nil
}

type fakeMethodRepo struct {
	m map[string]*model.DeliveryMethod
}

func newFakeMethodRepo() *fakeMethodRepo {
	return &fakeMethodRepo{m: map[string]*model.DeliveryMethod{
		model.MethodAir:    {Code: model.MethodAir, DisplayName: "Air freight", PricePerKgMinor: 950, EstimatedDaysMin: 7, EstimatedDaysMax: 12, Position: 1},
		model.MethodGround: {Code: model.MethodGround, DisplayName: "Ground freight", PricePerKgMinor: 450, EstimatedDaysMin: 18, EstimatedDaysMax: 25, Position: 2},
		model.MethodSea:    {Code: model.MethodSea, DisplayName: "Sea freight", PricePerKgMinor: 250, EstimatedDaysMin: 35, EstimatedDaysMax: 50, Position: 3},
	}}
}

func (r *fakeMethodRepo) FindByCode(_ context.Context, code string) (*model.DeliveryMethod, error) {
	dm, ok := r.m[code]
	if !ok {
		return nil, repository.ErrNotFound
	}
	cp := *dm
	return &cp, nil
}

func (r *fakeMethodRepo) List(_ context.Context) ([]*model.DeliveryMethod, error) {
	var out []*model.DeliveryMethod
	for _, dm := range r.m {
		cp := *dm
		out = append(out, &cp)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Position < out[j].Position })
	return out, nil
}

func (r *fakeMethodRepo) Upsert(_ context.Context, dm *model.DeliveryMethod) error {
	cp := *dm
	r.m[dm.Code] = &cp
	return nil
}

func newTestServices() (*OrderService, *TrackingService, *LedgerService, *fakeOrderRepo, *fakeTrackingRepo, *fakeUserRepo) {
	orders := newFakeOrderRepo()
	trackings := newFakeTrackingRepo()
	users := newFakeUserRepo()
	methods := newFakeMethodRepo()
	log := zap.NewNop()

	unsettled := []model.OrderStatus{model.StatusPending, model.StatusProcessing}
	ledger := NewLedgerService(users, orders, unsettled, log)
	orderSvc := NewOrderService(orders, trackings, methods, ledger, log)
	trackingSvc := NewTrackingService(trackings, orders, log)
	return orderSvc, trackingSvc, ledger, orders, trackings, users
}

func initReq(userID string) dto.InitOrderRequest {
	return dto.InitOrderRequest{
		UserID:         userID,
		DeliveryMethod: model.MethodAir,
		Items: []dto.OrderItemDTO{
			{ProductID: "p-1", Name: "Lámpara", UnitPriceMinor: 2500, Quantity: 2},
			{ProductID: "p-2", Name: "Funda", UnitPriceMinor: 990, Quantity: 1},
		},
	}
}

func TestOrderCreateSnapshotsTotal(t *testing.T) {
	svc, _, _, orders, _, _ := newTestServices()
	ctx := context.Background()

	order, err := svc.Create(ctx, initReq("user-1"))
	require.NoError(t, err)
	require.Equal(t, int64(2500*2+990), order.TotalAmountMinor)
	require.Equal(t, model.StatusPending, order.Status)
	require.NotEmpty(t, order.OrderNumber)
	require.False(t, order.EstimatedDeliveryDate.IsZero())

	// El total es un snapshot: cambiar el "catálogo" (los items en el fake)
	// no altera el pedido ya creado
	stored := orders.m[order.ID]
	require.Equal(t, order.TotalAmountMinor, stored.TotalAmountMinor)
}

func TestOrderCreateValidations(t *testing.T) {
	svc, _, _, _, _, _ := newTestServices()
	ctx := context.Background()

	req := initReq("user-1")
	req.DeliveryMethod = "DRONE"
	_, err := svc.Create(ctx, req)
	require.ErrorIs(t, err, ErrValidation)

	req = initReq("user-1")
	req.Items[0].Quantity = 0
	_, err = svc.Create(ctx, req)
	require.ErrorIs(t, err, ErrValidation)

	req = initReq("user-1")
	req.Items = nil
	_, err = svc.Create(ctx, req)
	require.ErrorIs(t, err, ErrValidation)
}

func TestSetStatus(t *testing.T) {
	svc, _, _, orders, _, _ := newTestServices()
	ctx := context.Background()

	order, err := svc.Create(ctx, initReq("user-1"))
	require.NoError(t, err)

	// Estado desconocido se rechaza en el borde
	_, err = svc.SetStatus(ctx, order.ID, "ON_FIRE", "")
	require.ErrorIs(t, err, ErrInvalidStatus)

	// Escritura válida refresca updated_at
	before := orders.m[order.ID].UpdatedAt
	time.Sleep(2 * time.Millisecond)
	updated, err := svc.SetStatus(ctx, order.ID, string(model.StatusPaid), "pago confirmado")
	require.NoError(t, err)
	require.Equal(t, model.StatusPaid, updated.Status)
	require.True(t, updated.UpdatedAt.After(before))

	// Reenviar el mismo estado es idempotente: ni error ni nueva versión
	v := orders.m[order.ID].Version
	again, err := svc.SetStatus(ctx, order.ID, string(model.StatusPaid), "")
	require.NoError(t, err)
	require.Equal(t, model.StatusPaid, again.Status)
	require.Equal(t, v, orders.m[order.ID].Version)

	// Pedido inexistente
	_, err = svc.SetStatus(ctx, "nope", string(model.StatusPaid), "")
	require.ErrorIs(t, err, repository.ErrNotFound)
}

func TestDeleteCascadesToTracking(t *testing.T) {
	svc, trackingSvc, _, _, _, _ := newTestServices()
	ctx := context.Background()

	order, err := svc.Create(ctx, initReq("user-1"))
	require.NoError(t, err)

	now := time.Now().UTC()
	_, err = trackingSvc.Upsert(ctx, order.ID, dto.UpsertTrackingRequest{OrderedAt: &now})
	require.NoError(t, err)

	require.NoError(t, svc.Delete(ctx, order.ID))

	// Después del borrado el tracking tiene que ser NotFound, nunca stale
	_, err = trackingSvc.GetByOrderID(ctx, order.ID)
	require.ErrorIs(t, err, repository.ErrNotFound)

	_, err = svc.GetByID(ctx, order.ID)
	require.ErrorIs(t, err, repository.ErrNotFound)

	require.ErrorIs(t, svc.Delete(ctx, order.ID), repository.ErrNotFound)
}

func TestStatusConflictOnConcurrentWrite(t *testing.T) {
	svc, _, _, orders, _, _ := newTestServices()
	ctx := context.Background()

	order, err := svc.Create(ctx, initReq("user-1"))
	require.NoError(t, err)

	// Simula otro admin escribiendo entre la lectura y la escritura
	ord, err := orders.FindByID(ctx, order.ID)
	require.NoError(t, err)
	require.NoError(t, orders.UpdateStatus(ctx, order.ID, model.StatusProcessing, ord.Version))

	err = orders.UpdateStatus(ctx, order.ID, model.StatusPaid, ord.Version)
	require.ErrorIs(t, err, repository.ErrConflict)
}
