package handlers

import (
	"fmt"
	"io"
	"net/http"

	"smartdalali_backend/internal/dto"
	"smartdalali_backend/internal/logger"
	"smartdalali_backend/internal/middleware"
	"smartdalali_backend/internal/models"
	"smartdalali_backend/internal/services"
	"smartdalali_backend/internal/validator"

	"github.com/gin-gonic/gin"
)

// maxCallbackBody bounds the gateway callback body read.
const maxCallbackBody = 1 << 20

type PaymentHandler struct {
	*BaseHandler
	payments  services.PaymentService
	reconcile services.ReconcileService
	receipts  services.ReceiptService
}

func NewPaymentHandler(
	v *validator.Validator,
	payments services.PaymentService,
	reconcile services.ReconcileService,
	receipts services.ReceiptService,
) *PaymentHandler {
	return &PaymentHandler{
		BaseHandler: NewBaseHandler(v),
		payments:    payments,
		reconcile:   reconcile,
		receipts:    receipts,
	}
}

// RegisterRoutes mounts the payment endpoints. The gateway callback is the
// only unauthenticated route; administrative actions require the admin role.
func (h *PaymentHandler) RegisterRoutes(api *gin.RouterGroup) {
	payments := api.Group("/payments")

	payments.POST("/mpesa/callback", h.Callback)

	authed := payments.Group("", middleware.AuthMiddleware())
	{
		authed.POST("/mpesa/stk/:propertyId", h.InitiateSTKPush)
		authed.GET("", h.ListPayments)
		authed.GET("/plans", h.Plans)
		authed.GET("/status/:paymentId", h.GetStatus)

		admin := authed.Group("", middleware.RoleMiddleware(models.UserRoleAdmin))
		{
			admin.GET("/admin", h.AdminListPayments)
			admin.POST("/:paymentId/retry", h.Retry)
			admin.POST("/:paymentId/review", h.Review)
			admin.POST("/:paymentId/flag", h.Flag)
			admin.GET("/:paymentId/receipt", h.Receipt)
		}
	}
}

// InitiateSTKPush starts an M-Pesa STK push for a property payment and
// relays the gateway acknowledgement verbatim.
func (h *PaymentHandler) InitiateSTKPush(c *gin.Context) {
	userID, ok := h.GetAndAuthorizeUserID(c)
	if !ok {
		return
	}

	propertyID, ok := h.GetParamID(c, "propertyId")
	if !ok {
		return
	}

	var req dto.StkPushRequest
	if !h.BindAndValidate_JSON(c, &req) {
		return
	}

	raw, err := h.payments.InitiateSTKPush(c.Request.Context(), userID, propertyID, &req)
	if err != nil {
		h.HandleServiceError(c, err)
		return
	}

	c.Data(http.StatusOK, "application/json", raw)
}

// Callback receives the asynchronous gateway result. The gateway is always
// acknowledged with 200 regardless of what the body contained; processing
// failures are logged, never surfaced.
func (h *PaymentHandler) Callback(c *gin.Context) {
	raw, err := io.ReadAll(io.LimitReader(c.Request.Body, maxCallbackBody))
	if err != nil {
		logger.CtxWarn(c.Request.Context(), "failed to read callback body", "error", err.Error())
		c.JSON(http.StatusOK, gin.H{"status": "received"})
		return
	}

	h.reconcile.ProcessCallback(c.Request.Context(), raw)

	c.JSON(http.StatusOK, gin.H{"status": "received"})
}

func (h *PaymentHandler) GetStatus(c *gin.Context) {
	userID, ok := h.GetAndAuthorizeUserID(c)
	if !ok {
		return
	}

	paymentID, ok := h.GetParamID(c, "paymentId")
	if !ok {
		return
	}

	resp, err := h.payments.GetStatus(userID, middleware.GetRole(c), paymentID)
	if err != nil {
		h.HandleServiceError(c, err)
		return
	}

	c.JSON(http.StatusOK, resp)
}

func (h *PaymentHandler) ListPayments(c *gin.Context) {
	userID, ok := h.GetAndAuthorizeUserID(c)
	if !ok {
		return
	}

	items, err := h.payments.ListPayments(userID, middleware.GetRole(c))
	if err != nil {
		h.HandleServiceError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{"payments": items})
}

func (h *PaymentHandler) AdminListPayments(c *gin.Context) {
	items, err := h.payments.AdminListPayments()
	if err != nil {
		h.HandleServiceError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{"payments": items})
}

func (h *PaymentHandler) Plans(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{"plans": h.payments.Plans()})
}

func (h *PaymentHandler) Retry(c *gin.Context) {
	paymentID, ok := h.GetParamID(c, "paymentId")
	if !ok {
		return
	}

	if err := h.payments.Retry(paymentID); err != nil {
		h.HandleServiceError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{"status": "pending"})
}

func (h *PaymentHandler) Review(c *gin.Context) {
	paymentID, ok := h.GetParamID(c, "paymentId")
	if !ok {
		return
	}

	if err := h.payments.Review(paymentID); err != nil {
		h.HandleServiceError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{"status": "reviewed"})
}

func (h *PaymentHandler) Flag(c *gin.Context) {
	paymentID, ok := h.GetParamID(c, "paymentId")
	if !ok {
		return
	}

	if err := h.payments.Flag(paymentID); err != nil {
		h.HandleServiceError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{"status": "flagged"})
}

// Receipt streams the PDF receipt of a completed payment as an attachment.
func (h *PaymentHandler) Receipt(c *gin.Context) {
	paymentID, ok := h.GetParamID(c, "paymentId")
	if !ok {
		return
	}

	pdfBytes, filename, err := h.receipts.GenerateReceipt(paymentID)
	if err != nil {
		h.HandleServiceError(c, err)
		return
	}

	c.Header("Content-Disposition", fmt.Sprintf("attachment; filename=%q", filename))
	c.Data(http.StatusOK, "application/pdf", pdfBytes)
}
