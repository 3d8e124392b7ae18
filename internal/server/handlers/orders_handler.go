package handlers

import (
	"net/http"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"

	"github.com/mamadbah2/packwrap/internal/domain/models"
	"github.com/mamadbah2/packwrap/internal/service/orders"
)

// OrdersHandler manages order drafts of the signed-in account.
type OrdersHandler struct {
	svc    *orders.Service
	logger *zap.Logger
}

// NewOrdersHandler constructs the order draft handler.
func NewOrdersHandler(svc *orders.Service, logger *zap.Logger) *OrdersHandler {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &OrdersHandler{svc: svc, logger: logger}
}

type parseRequest struct {
	Text   string `json:"text"`
	Assist bool   `json:"assist"`
}

// Parse extracts order fields without saving anything.
func (h *OrdersHandler) Parse(c *gin.Context) {
	var req parseRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		badRequest(c, h.logger, err)
		return
	}

	order := h.svc.Parse(c.Request.Context(), req.Text, req.Assist)
	c.JSON(http.StatusOK, gin.H{"order": order, "missing": order.Missing(), "text": order.Text()})
}

// Create parses the text and stores it as a draft.
func (h *OrdersHandler) Create(c *gin.Context) {
	var req parseRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		badRequest(c, h.logger, err)
		return
	}

	draft, err := h.svc.CreateDraft(c.Request.Context(), namespace(c), "manual", req.Text, req.Assist)
	if err != nil {
		respondError(c, h.logger, err)
		return
	}
	c.JSON(http.StatusCreated, draft)
}

// List returns drafts, optionally filtered by ?status=.
func (h *OrdersHandler) List(c *gin.Context) {
	drafts, err := h.svc.ListDrafts(c.Request.Context(), namespace(c), models.DraftStatus(c.Query("status")))
	if err != nil {
		respondError(c, h.logger, err)
		return
	}
	c.JSON(http.StatusOK, drafts)
}

func (h *OrdersHandler) Get(c *gin.Context) {
	draft, err := h.svc.GetDraft(c.Request.Context(), namespace(c), c.Param("id"))
	if err != nil {
		respondError(c, h.logger, err)
		return
	}
	c.JSON(http.StatusOK, draft)
}

// Correct replaces the parsed fields with the reviewed ones.
func (h *OrdersHandler) Correct(c *gin.Context) {
	var order models.ParsedOrder
	if err := c.ShouldBindJSON(&order); err != nil {
		badRequest(c, h.logger, err)
		return
	}

	draft, err := h.svc.CorrectDraft(c.Request.Context(), namespace(c), c.Param("id"), order)
	if err != nil {
		respondError(c, h.logger, err)
		return
	}
	c.JSON(http.StatusOK, draft)
}

func (h *OrdersHandler) Delete(c *gin.Context) {
	if err := h.svc.DeleteDraft(c.Request.Context(), namespace(c), c.Param("id")); err != nil {
		respondError(c, h.logger, err)
		return
	}
	c.Status(http.StatusNoContent)
}

type dispatchRequest struct {
	Passphrase string `json:"passphrase"`
}

// Dispatch sends the draft to the courier using the vaulted keys.
func (h *OrdersHandler) Dispatch(c *gin.Context) {
	var req dispatchRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		badRequest(c, h.logger, err)
		return
	}

	draft, err := h.svc.Dispatch(c.Request.Context(), namespace(c), c.Param("id"), req.Passphrase)
	if err != nil {
		respondError(c, h.logger, err)
		return
	}
	c.JSON(http.StatusOK, draft)
}
