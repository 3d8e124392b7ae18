package handlers

import (
	"errors"
	"net/http"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"

	"github.com/mamadbah2/packwrap/internal/service/auth"
	"github.com/mamadbah2/packwrap/internal/service/bookkeeping"
	"github.com/mamadbah2/packwrap/internal/service/courier"
	"github.com/mamadbah2/packwrap/internal/service/orders"
	"github.com/mamadbah2/packwrap/pkg/clients/steadfast"
	"github.com/mamadbah2/packwrap/pkg/vault"
)

// statusFor maps service errors onto HTTP status codes.
func statusFor(err error) int {
	var upstream *steadfast.UpstreamError

	switch {
	case errors.Is(err, bookkeeping.ErrInvalidArguments),
		errors.Is(err, bookkeeping.ErrInvalidRange),
		errors.Is(err, auth.ErrInvalidArguments),
		errors.Is(err, orders.ErrEmptyMessage),
		errors.Is(err, courier.ErrMissingCredentials),
		errors.Is(err, courier.ErrMissingOrder),
		errors.Is(err, vault.ErrEmptyPassphrase):
		return http.StatusBadRequest
	case errors.Is(err, auth.ErrInvalidCredentials),
		errors.Is(err, auth.ErrInvalidToken),
		errors.Is(err, vault.ErrDecrypt):
		return http.StatusUnauthorized
	case errors.Is(err, bookkeeping.ErrNotFound),
		errors.Is(err, orders.ErrNotFound),
		errors.Is(err, courier.ErrVaultEmpty):
		return http.StatusNotFound
	case errors.Is(err, bookkeeping.ErrAttributeInUse),
		errors.Is(err, auth.ErrUserExists),
		errors.Is(err, orders.ErrAlreadyDispatched),
		errors.Is(err, orders.ErrDispatchInProgress):
		return http.StatusConflict
	case errors.Is(err, orders.ErrIncomplete):
		return http.StatusUnprocessableEntity
	case errors.Is(err, courier.ErrVerification), errors.As(err, &upstream):
		return http.StatusBadGateway
	}
	return http.StatusInternalServerError
}

// respondError writes the error body, hiding internal failures from clients.
func respondError(c *gin.Context, logger *zap.Logger, err error) {
	status := statusFor(err)
	if status == http.StatusInternalServerError {
		logger.Error("request failed",
			zap.String("path", c.FullPath()),
			zap.Error(err))
		c.JSON(status, gin.H{"error": "internal error"})
		return
	}

	logger.Debug("request rejected",
		zap.String("path", c.FullPath()),
		zap.Int("status", status),
		zap.Error(err))
	c.JSON(status, gin.H{"error": err.Error()})
}

func badRequest(c *gin.Context, logger *zap.Logger, err error) {
	logger.Warn("invalid request body", zap.String("path", c.FullPath()), zap.Error(err))
	c.JSON(http.StatusBadRequest, gin.H{"error": "invalid request body"})
}
