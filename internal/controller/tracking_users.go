package controller

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"shop-orders-service/internal/dto"
)

// GET /orders/:orderId/tracking — dueño o admin
func (ctl *OrderController) GetTracking(c *gin.Context) {
	orderID := c.Param("orderId")

	t, err := ctl.Trackings.GetByOrderID(c.Request.Context(), orderID)
	if err != nil {
		respondError(c, err)
		return
	}

	if !isAdmin(c) && t.UserID != c.GetString("userID") {
		c.JSON(http.StatusForbidden, gin.H{"error": "you cannot view another user's tracking"})
		return
	}

	c.JSON(http.StatusOK, t)
}

// PUT /admin/orders/:orderId/tracking — admin. Actualización parcial:
// los campos ausentes del body conservan el valor previo.
func (ctl *OrderController) UpsertTracking(c *gin.Context) {
	orderID := c.Param("orderId")

	var req dto.UpsertTrackingRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	t, err := ctl.Trackings.Upsert(c.Request.Context(), orderID, req)
	if err != nil {
		respondError(c, err)
		return
	}

	c.JSON(http.StatusOK, t)
}

// GET /users/me/tracking/latest — resumen del dashboard del usuario
func (ctl *OrderController) GetMyLatestTracking(c *gin.Context) {
	t, err := ctl.Trackings.LatestForUser(c.Request.Context(), c.GetString("userID"))
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, t)
}

// GET /users/me — perfil financiero propio
func (ctl *OrderController) GetMe(c *gin.Context) {
	u, err := ctl.Ledger.GetUser(c.Request.Context(), c.GetString("userID"))
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, u)
}

// GET /users/me/balance — balance efectivo, recalculado siempre
func (ctl *OrderController) GetMyBalance(c *gin.Context) {
	res, err := ctl.Ledger.BalanceSummary(c.Request.Context(), c.GetString("userID"))
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, res)
}

// GET /admin/users/:userId — admin only
func (ctl *OrderController) GetUser(c *gin.Context) {
	u, err := ctl.Ledger.GetUser(c.Request.Context(), c.Param("userId"))
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, u)
}

// GET /admin/users/:userId/balance — admin only
func (ctl *OrderController) GetUserBalance(c *gin.Context) {
	res, err := ctl.Ledger.BalanceSummary(c.Request.Context(), c.Param("userId"))
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, res)
}

// POST /admin/users/:userId/balance/adjust — agrega un asiento al libro
func (ctl *OrderController) AdjustBalance(c *gin.Context) {
	var req dto.AdjustBalanceRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	// El actor queda registrado en el asiento para la auditoría
	entry, err := ctl.Ledger.Adjust(c.Request.Context(), c.Param("userId"), req.AmountMinor, req.Reason, c.GetString("userID"))
	if err != nil {
		respondError(c, err)
		return
	}

	c.JSON(http.StatusCreated, entry)
}

// GET /admin/users/:userId/balance/history — asientos del libro
func (ctl *OrderController) GetBalanceHistory(c *gin.Context) {
	entries, err := ctl.Ledger.History(c.Request.Context(), c.Param("userId"))
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, entries)
}

// PATCH /admin/users/:userId/transport-fees — admin only
func (ctl *OrderController) UpdateTransportFees(c *gin.Context) {
	var req dto.UpdateTransportFeesRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	if err := ctl.Ledger.SetTransportFees(c.Request.Context(), c.Param("userId"), *req.PendingTransportMinor); err != nil {
		respondError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{"message": "transport fees updated"})
}

// GET /admin/users/:userId/tracking/latest — admin only
func (ctl *OrderController) GetUserLatestTracking(c *gin.Context) {
	t, err := ctl.Trackings.LatestForUser(c.Request.Context(), c.Param("userId"))
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, t)
}
