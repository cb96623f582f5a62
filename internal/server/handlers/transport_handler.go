package handlers

import (
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/shopspring/decimal"
	"go.uber.org/zap"

	"github.com/mamadbah2/agromarket/internal/domain/models"
	"github.com/mamadbah2/agromarket/internal/service/transport"
)

// TransportHandler exposes route capacity and joins over HTTP.
type TransportHandler struct {
	svc    transport.Coordinator
	logger *zap.Logger
}

// NewTransportHandler constructs the HTTP handler adapter.
func NewTransportHandler(svc transport.Coordinator, logger *zap.Logger) *TransportHandler {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &TransportHandler{svc: svc, logger: logger}
}

// Capacity reports capacity, allocated and remaining space of a route.
func (h *TransportHandler) Capacity(c *gin.Context) {
	ledger, err := h.svc.Capacity(c.Request.Context(), c.Param("routeId"))
	if err != nil {
		writeError(c, err)
		return
	}
	c.JSON(http.StatusOK, ledger)
}

type joinRequest struct {
	RequestID      string          `json:"requestId" binding:"required"`
	AllocatedSpace decimal.Decimal `json:"allocatedSpace"`
	AgreedPrice    decimal.Decimal `json:"agreedPrice"`
}

// Join adds the caller's transport request to a route.
func (h *TransportHandler) Join(c *gin.Context) {
	caller, ok := callerID(c)
	if !ok {
		return
	}

	var req joinRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		h.logger.Warn("invalid join payload", zap.Error(err))
		badRequest(c, "invalid request body")
		return
	}

	participant, err := h.svc.Join(c.Request.Context(), transport.JoinInput{
		CallerID:       caller,
		RouteID:        c.Param("routeId"),
		RequestID:      req.RequestID,
		AllocatedSpace: req.AllocatedSpace,
		AgreedPrice:    req.AgreedPrice,
	})
	if err != nil {
		writeError(c, err)
		return
	}
	c.JSON(http.StatusCreated, participant)
}

// Close stops a route from accepting participants.
func (h *TransportHandler) Close(c *gin.Context) {
	caller, ok := callerID(c)
	if !ok {
		return
	}

	routeID := c.Param("routeId")
	if err := h.svc.CloseRoute(c.Request.Context(), caller, routeID); err != nil {
		writeError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"routeId": routeID, "status": models.RouteClosed})
}

type statusRequest struct {
	Status string `json:"status" binding:"required"`
}

// UpdateRequestStatus moves a transport request along its lifecycle.
func (h *TransportHandler) UpdateRequestStatus(c *gin.Context) {
	caller, ok := callerID(c)
	if !ok {
		return
	}

	var req statusRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		h.logger.Warn("invalid status payload", zap.Error(err))
		badRequest(c, "invalid request body")
		return
	}
	next, err := models.ParseTransportRequestStatus(req.Status)
	if err != nil {
		badRequest(c, err.Error())
		return
	}

	updated, err := h.svc.TransitionRequest(c.Request.Context(), caller, c.Param("requestId"), next)
	if err != nil {
		writeError(c, err)
		return
	}
	c.JSON(http.StatusOK, updated)
}
