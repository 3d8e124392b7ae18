package handlers

import (
	"errors"
	"net/http"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"

	"github.com/mamadbah2/packwrap/internal/domain/models"
	"github.com/mamadbah2/packwrap/internal/service/courier"
)

// CourierHandler serves the Steadfast proxy and the credential vault.
type CourierHandler struct {
	svc    *courier.Service
	logger *zap.Logger
}

// NewCourierHandler constructs the courier handler.
func NewCourierHandler(svc *courier.Service, logger *zap.Logger) *CourierHandler {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &CourierHandler{svc: svc, logger: logger}
}

// Balance proxies a balance check with caller-supplied keys.
func (h *CourierHandler) Balance(c *gin.Context) {
	var req models.CourierProxyRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		h.proxyError(c, http.StatusBadRequest, "invalid request body")
		return
	}

	out, err := h.svc.Balance(c.Request.Context(), req.Credentials())
	h.proxyReply(c, out, err, "apiKey and secretKey are required")
}

// PlaceOrder proxies an order with caller-supplied keys.
func (h *CourierHandler) PlaceOrder(c *gin.Context) {
	var req models.CourierProxyRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		h.proxyError(c, http.StatusBadRequest, "invalid request body")
		return
	}

	out, err := h.svc.PlaceOrder(c.Request.Context(), req.Credentials(), req.Order)
	h.proxyReply(c, out, err, "apiKey, secretKey and order are required")
}

func (h *CourierHandler) proxyReply(c *gin.Context, out map[string]any, err error, missing string) {
	switch {
	case err == nil:
		c.JSON(http.StatusOK, out)
	case errors.Is(err, courier.ErrMissingCredentials), errors.Is(err, courier.ErrMissingOrder):
		h.proxyError(c, http.StatusBadRequest, missing)
	default:
		h.logger.Warn("courier call failed", zap.String("path", c.FullPath()), zap.Error(err))
		h.proxyError(c, http.StatusBadGateway, err.Error())
	}
}

func (h *CourierHandler) proxyError(c *gin.Context, status int, message string) {
	c.JSON(status, models.ProxyError{OK: false, Message: message})
}

type vaultRequest struct {
	Passphrase string `json:"passphrase"`
	APIKey     string `json:"apiKey"`
	SecretKey  string `json:"secretKey"`
}

// VaultStatus reports whether sealed keys are stored.
func (h *CourierHandler) VaultStatus(c *gin.Context) {
	status, err := h.svc.Status(c.Request.Context(), namespace(c))
	if err != nil {
		respondError(c, h.logger, err)
		return
	}
	c.JSON(http.StatusOK, status)
}

// SaveVault verifies and seals the account's courier keys.
func (h *CourierHandler) SaveVault(c *gin.Context) {
	var req vaultRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		badRequest(c, h.logger, err)
		return
	}

	creds := models.CourierCredentials{APIKey: req.APIKey, SecretKey: req.SecretKey}
	status, err := h.svc.SaveCredentials(c.Request.Context(), namespace(c), req.Passphrase, creds)
	if err != nil {
		respondError(c, h.logger, err)
		return
	}
	c.JSON(http.StatusOK, status)
}

// UnlockVault checks the passphrase and returns the stored keys.
func (h *CourierHandler) UnlockVault(c *gin.Context) {
	var req vaultRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		badRequest(c, h.logger, err)
		return
	}

	creds, err := h.svc.Unlock(c.Request.Context(), namespace(c), req.Passphrase)
	if err != nil {
		respondError(c, h.logger, err)
		return
	}
	c.JSON(http.StatusOK, creds)
}

// DeleteVault forgets the stored keys.
func (h *CourierHandler) DeleteVault(c *gin.Context) {
	if err := h.svc.DeleteCredentials(c.Request.Context(), namespace(c)); err != nil {
		respondError(c, h.logger, err)
		return
	}
	c.Status(http.StatusNoContent)
}
