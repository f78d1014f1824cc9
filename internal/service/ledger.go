package service

import (
	"context"
	"errors"
	"fmt"
	"math/rand"

	"go.uber.org/zap"

	"shop-orders-service/internal/dto"
	"shop-orders-service/internal/model"
	"shop-orders-service/internal/repository"
)

type UserRepository interface {
	FindByID(ctx context.Context, userID string) (*model.User, error)
	Insert(ctx context.Context, u *model.User) error
	UpdateTransportFees(ctx context.Context, userID string, feesMinor int64) error
	InsertBalanceEntry(ctx context.Context, e *model.BalanceEntry) error
	SumBalance(ctx context.Context, userID string) (int64, error)
	ListBalanceEntries(ctx context.Context, userID string) ([]*model.BalanceEntry, error)
}

// EffectiveBalance es el saldo gastable: lo almacenado menos las obligaciones
// conocidas todavía no liquidadas. Puede ser negativo y eso no es un error:
// significa que el usuario debe plata. Nunca se persiste ni se cachea.
func EffectiveBalance(balanceMinor, pendingFeesMinor, pendingOrdersMinor int64) int64 {
	return balanceMinor - pendingFeesMinor - pendingOrdersMinor
}

type LedgerService struct {
	users  UserRepository
	orders OrderRepository

	// Qué estados cuentan como pedido "no liquidado" viene por configuración
	unsettled []model.OrderStatus

	log *zap.Logger
}

func NewLedgerService(users UserRepository, orders OrderRepository, unsettled []model.OrderStatus, log *zap.Logger) *LedgerService {
	return &LedgerService{users: users, orders: orders, unsettled: unsettled, log: log}
}

func (s *LedgerService) GetUser(ctx context.Context, userID string) (*model.User, error) {
	return s.users.FindByID(ctx, userID)
}

// EnsureUser crea el perfil del usuario en su primera compra. El balanceCode
// se asigna una sola vez y no cambia más.
func (s *LedgerService) EnsureUser(ctx context.Context, userID string) error {
	_, err := s.users.FindByID(ctx, userID)
	if err == nil {
		return nil
	}
	if !errors.Is(err, repository.ErrNotFound) {
		return err
	}

	u := &model.User{
		ID:          userID,
		BalanceCode: newBalanceCode(),
	}
	if err := s.users.Insert(ctx, u); err != nil {
		return err
	}
	s.log.Info("usuario creado", zap.String("userId", userID), zap.String("balanceCode", u.BalanceCode))
	return nil
}

// Código opaco de 6 dígitos para recargas. No es secreto, solo identificador.
func newBalanceCode() string {
	return fmt.Sprintf("%06d", rand.Intn(1000000))
}

// BalanceSummary arma el balance efectivo recalculando todo desde los inputs
// actuales: saldo plegado del libro, fees pendientes y la suma de pedidos no
// liquidados. Dos lecturas snapshot independientes, sin transacción cruzada.
func (s *LedgerService) BalanceSummary(ctx context.Context, userID string) (*dto.BalanceResponse, error) {
	user, err := s.users.FindByID(ctx, userID)
	if err != nil {
		return nil, err
	}

	balance, err := s.users.SumBalance(ctx, userID)
	if err != nil {
		return nil, err
	}

	pendingOrders, err := s.orders.SumTotalsByStatuses(ctx, userID, s.unsettled)
	if err != nil {
		return nil, err
	}

	return &dto.BalanceResponse{
		BalanceCode:           user.BalanceCode,
		BalanceMinor:          balance,
		PendingTransportMinor: user.PendingTransportMinor,
		PendingOrdersMinor:    pendingOrders,
		EffectiveBalanceMinor: EffectiveBalance(balance, user.PendingTransportMinor, pendingOrders),
	}, nil
}

// Adjust agrega un asiento al libro. El saldo nunca se pisa directamente:
// dos admins concurrentes generan dos asientos, no una escritura perdida,
// y queda el rastro de auditoría (monto, motivo, actor).
func (s *LedgerService) Adjust(ctx context.Context, userID string, amountMinor int64, reason, actor string) (*model.BalanceEntry, error) {
	if amountMinor == 0 {
		return nil, fmt.Errorf("%w: el monto del ajuste no puede ser cero", ErrValidation)
	}
	if reason == "" {
		return nil, fmt.Errorf("%w: el ajuste necesita un motivo", ErrValidation)
	}

	if _, err := s.users.FindByID(ctx, userID); err != nil {
		return nil, err
	}

	entry := &model.BalanceEntry{
		UserID:      userID,
		AmountMinor: amountMinor,
		Reason:      reason,
		Actor:       actor,
	}
	if err := s.users.InsertBalanceEntry(ctx, entry); err != nil {
		return nil, err
	}

	s.log.Info("ajuste de balance",
		zap.String("userId", userID),
		zap.Int64("amountMinor", amountMinor),
		zap.String("actor", actor))

	return entry, nil
}

func (s *LedgerService) SetTransportFees(ctx context.Context, userID string, feesMinor int64) error {
	if feesMinor < 0 {
		return fmt.Errorf("%w: los fees pendientes no pueden ser negativos", ErrValidation)
	}
	return s.users.UpdateTransportFees(ctx, userID, feesMinor)
}

func (s *LedgerService) History(ctx context.Context, userID string) ([]*model.BalanceEntry, error) {
	if _, err := s.users.FindByID(ctx, userID); err != nil {
		return nil, err
	}
	return s.users.ListBalanceEntries(ctx, userID)
}
