package controller

import (
	"errors"
	"net/http"
	"slices"

	"github.com/gin-gonic/gin"

	"shop-orders-service/internal/dto"
	"shop-orders-service/internal/model"
	"shop-orders-service/internal/repository"
	"shop-orders-service/internal/service"
)

type OrderController struct {
	Orders    *service.OrderService
	Trackings *service.TrackingService
	Ledger    *service.LedgerService
}

func NewOrderController(orders *service.OrderService, trackings *service.TrackingService, ledger *service.LedgerService) *OrderController {
	return &OrderController{Orders: orders, Trackings: trackings, Ledger: ledger}
}

// Mapeo de errores de negocio a códigos HTTP (el mismo switch en todos los handlers)
func respondError(c *gin.Context, err error) {
	switch {
	case errors.Is(err, repository.ErrNotFound):
		c.JSON(http.StatusNotFound, gin.H{"error": err.Error()})
	case errors.Is(err, service.ErrInvalidStatus), errors.Is(err, service.ErrValidation):
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
	case errors.Is(err, service.ErrOutOfOrderPhase):
		c.JSON(http.StatusUnprocessableEntity, gin.H{"error": err.Error()})
	case errors.Is(err, repository.ErrConflict):
		c.JSON(http.StatusConflict, gin.H{"error": err.Error()})
	case errors.Is(err, service.ErrForbidden):
		c.JSON(http.StatusForbidden, gin.H{"error": err.Error()})
	default:
		c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
	}
}

func isAdmin(c *gin.Context) bool {
	return slices.Contains(c.GetStringSlice("userPermissions"), "admin")
}

// POST /orders/init — crea el pedido al checkout (también llega por Rabbit)
func (ctl *OrderController) InitOrder(c *gin.Context) {
	var req dto.InitOrderRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	order, err := ctl.Orders.Create(c.Request.Context(), req)
	if err != nil {
		respondError(c, err)
		return
	}

	c.JSON(http.StatusCreated, order)
}

// GET /orders/mine — pedidos del usuario autenticado
func (ctl *OrderController) GetMyOrders(c *gin.Context) {
	userID := c.GetString("userID")
	orders, err := ctl.Orders.GetByUserID(c.Request.Context(), userID)
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, orders)
}

// GET /orders/:orderId — dueño o admin
func (ctl *OrderController) GetOrder(c *gin.Context) {
	orderID := c.Param("orderId")

	o, err := ctl.Orders.GetByID(c.Request.Context(), orderID)
	if err != nil {
		respondError(c, err)
		return
	}

	// Validación de acceso: un pedido pertenece a un solo usuario
	if !isAdmin(c) && o.UserID != c.GetString("userID") {
		c.JSON(http.StatusForbidden, gin.H{"error": "you cannot view another user's order"})
		return
	}

	c.JSON(http.StatusOK, o)
}

// PATCH /orders/:orderId/status — admin
func (ctl *OrderController) UpdateStatus(c *gin.Context) {
	orderID := c.Param("orderId")

	var req dto.UpdateStatusRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	order, err := ctl.Orders.SetStatus(c.Request.Context(), orderID, req.Status, req.Reason)
	if err != nil {
		respondError(c, err)
		return
	}

	c.JSON(http.StatusOK, order)
}

// DELETE /orders/:orderId — admin. Borra también el tracking (sin huérfanos).
func (ctl *OrderController) DeleteOrder(c *gin.Context) {
	orderID := c.Param("orderId")

	if err := ctl.Orders.Delete(c.Request.Context(), orderID); err != nil {
		respondError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{"message": "order deleted"})
}

// GET /admin/orders — admin only
func (ctl *OrderController) GetAllOrders(c *gin.Context) {
	orders, err := ctl.Orders.GetAll(c.Request.Context())
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, orders)
}

// GET /admin/orders/status/:status — admin only
func (ctl *OrderController) GetOrdersByStatus(c *gin.Context) {
	orders, err := ctl.Orders.GetByStatus(c.Request.Context(), c.Param("status"))
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, orders)
}

// POST /estimate — pública: cotiza envío y aduana antes de confirmar el checkout
func (ctl *OrderController) EstimateShipping(c *gin.Context) {
	var req dto.EstimateRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	est, err := ctl.Orders.EstimateShipping(c.Request.Context(), req.DeliveryMethod, req.WeightKg, req.SubtotalMinor)
	if err != nil {
		respondError(c, err)
		return
	}

	c.JSON(http.StatusOK, dto.EstimateResponse{
		ShippingCostMinor:     est.ShippingCostMinor,
		CustomsTariffMinor:    est.CustomsTariffMinor,
		EstimatedDeliveryDate: est.EstimatedDeliveryDate,
	})
}

// GET /delivery-methods — pública: la lee el checkout del storefront
func (ctl *OrderController) ListDeliveryMethods(c *gin.Context) {
	methods, err := ctl.Orders.ListDeliveryMethods(c.Request.Context())
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, methods)
}

// PUT /admin/delivery-methods/:code — admin only
func (ctl *OrderController) UpsertDeliveryMethod(c *gin.Context) {
	var req dto.UpsertDeliveryMethodRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	dm := &model.DeliveryMethod{
		Code:             c.Param("code"),
		DisplayName:      req.DisplayName,
		PricePerKgMinor:  req.PricePerKgMinor,
		EstimatedDaysMin: req.EstimatedDaysMin,
		EstimatedDaysMax: req.EstimatedDaysMax,
		Position:         req.Position,
	}
	if err := ctl.Orders.UpsertDeliveryMethod(c.Request.Context(), dm); err != nil {
		respondError(c, err)
		return
	}

	c.JSON(http.StatusOK, dm)
}
