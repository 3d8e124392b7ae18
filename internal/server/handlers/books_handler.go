package handlers

import (
	"net/http"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"

	"github.com/mamadbah2/packwrap/internal/domain/models"
	"github.com/mamadbah2/packwrap/internal/service/bookkeeping"
)

// BooksHandler exposes the bookkeeping operations of the signed-in account.
type BooksHandler struct {
	svc    *bookkeeping.Service
	logger *zap.Logger
}

// NewBooksHandler constructs the bookkeeping handler.
func NewBooksHandler(svc *bookkeeping.Service, logger *zap.Logger) *BooksHandler {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &BooksHandler{svc: svc, logger: logger}
}

// Register mounts the bookkeeping routes on an authenticated group.
func (h *BooksHandler) Register(r gin.IRoutes) {
	r.GET("/products", h.ListProducts)
	r.PUT("/products", h.SaveProduct)
	r.DELETE("/products", h.DeleteProduct)

	r.GET("/attributes/:kind", h.ListAttributes)
	r.POST("/attributes/:kind", h.AddAttribute)
	r.PUT("/attributes/:kind", h.RenameAttribute)
	r.DELETE("/attributes/:kind", h.DeleteAttribute)

	r.GET("/collapse", h.GetCollapse)
	r.POST("/collapse/types", h.ToggleType)
	r.POST("/collapse/colors", h.ToggleColor)

	r.GET("/investments", h.ListInvestments)
	r.POST("/investments", h.AddInvestment)
	r.DELETE("/investments/:id", h.DeleteInvestment)
	r.GET("/inventory", h.Inventory)

	r.GET("/sales", h.ListSales)
	r.GET("/sales/recent", h.RecentSales)
	r.POST("/sales", h.AddSale)
	r.DELETE("/sales/:id", h.DeleteSale)

	r.GET("/expenses", h.ListExpenses)
	r.POST("/expenses", h.AddExpense)
	r.POST("/expenses/boost", h.AddBoostRange)
	r.DELETE("/expenses/:id", h.DeleteExpense)

	r.GET("/overview", h.Overview)
	r.GET("/charts", h.Charts)
	r.GET("/customers", h.Customers)

	r.GET("/backup", h.Export)
	r.PUT("/backup", h.Import)
	r.POST("/import/:kind", h.ImportCSV)
}

func (h *BooksHandler) ListProducts(c *gin.Context) {
	products, err := h.svc.ListProducts(c.Request.Context(), namespace(c))
	h.reply(c, http.StatusOK, products, err)
}

type saveProductRequest struct {
	OldKey  string         `json:"oldKey"`
	Product models.Product `json:"product"`
}

func (h *BooksHandler) SaveProduct(c *gin.Context) {
	var req saveProductRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		badRequest(c, h.logger, err)
		return
	}
	product, err := h.svc.SaveProduct(c.Request.Context(), namespace(c), req.OldKey, req.Product)
	h.reply(c, http.StatusOK, product, err)
}

// DeleteProduct takes the unique key as a query parameter since it contains separators.
func (h *BooksHandler) DeleteProduct(c *gin.Context) {
	err := h.svc.DeleteProduct(c.Request.Context(), namespace(c), c.Query("key"))
	h.noContent(c, err)
}

func (h *BooksHandler) ListAttributes(c *gin.Context) {
	values, err := h.svc.ListAttributes(c.Request.Context(), namespace(c), attributeKind(c))
	h.reply(c, http.StatusOK, values, err)
}

type attributeRequest struct {
	Value string `json:"value"`
	From  string `json:"from"`
	To    string `json:"to"`
}

func (h *BooksHandler) AddAttribute(c *gin.Context) {
	var req attributeRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		badRequest(c, h.logger, err)
		return
	}
	values, err := h.svc.AddAttribute(c.Request.Context(), namespace(c), attributeKind(c), req.Value)
	h.reply(c, http.StatusOK, values, err)
}

func (h *BooksHandler) RenameAttribute(c *gin.Context) {
	var req attributeRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		badRequest(c, h.logger, err)
		return
	}
	values, err := h.svc.RenameAttribute(c.Request.Context(), namespace(c), attributeKind(c), req.From, req.To)
	h.reply(c, http.StatusOK, values, err)
}

func (h *BooksHandler) DeleteAttribute(c *gin.Context) {
	err := h.svc.DeleteAttribute(c.Request.Context(), namespace(c), attributeKind(c), c.Query("value"))
	h.noContent(c, err)
}

func (h *BooksHandler) GetCollapse(c *gin.Context) {
	state, err := h.svc.GetCollapseState(c.Request.Context(), namespace(c))
	h.reply(c, http.StatusOK, state, err)
}

type collapseRequest struct {
	Type  string `json:"type"`
	Color string `json:"color"`
}

func (h *BooksHandler) ToggleType(c *gin.Context) {
	var req collapseRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		badRequest(c, h.logger, err)
		return
	}
	state, err := h.svc.ToggleType(c.Request.Context(), namespace(c), req.Type)
	h.reply(c, http.StatusOK, state, err)
}

func (h *BooksHandler) ToggleColor(c *gin.Context) {
	var req collapseRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		badRequest(c, h.logger, err)
		return
	}
	state, err := h.svc.ToggleColor(c.Request.Context(), namespace(c), req.Type, req.Color)
	h.reply(c, http.StatusOK, state, err)
}

func (h *BooksHandler) ListInvestments(c *gin.Context) {
	entries, err := h.svc.ListInvestments(c.Request.Context(), namespace(c))
	h.reply(c, http.StatusOK, entries, err)
}

func (h *BooksHandler) AddInvestment(c *gin.Context) {
	var in bookkeeping.InvestmentInput
	if err := c.ShouldBindJSON(&in); err != nil {
		badRequest(c, h.logger, err)
		return
	}
	entry, err := h.svc.AddInvestment(c.Request.Context(), namespace(c), in)
	h.reply(c, http.StatusCreated, entry, err)
}

func (h *BooksHandler) DeleteInvestment(c *gin.Context) {
	h.noContent(c, h.svc.DeleteInvestment(c.Request.Context(), namespace(c), c.Param("id")))
}

func (h *BooksHandler) Inventory(c *gin.Context) {
	levels, err := h.svc.Inventory(c.Request.Context(), namespace(c))
	h.reply(c, http.StatusOK, levels, err)
}

func (h *BooksHandler) ListSales(c *gin.Context) {
	sales, err := h.svc.ListSales(c.Request.Context(), namespace(c), c.Query("month"))
	h.reply(c, http.StatusOK, sales, err)
}

func (h *BooksHandler) RecentSales(c *gin.Context) {
	sales, err := h.svc.RecentSales(c.Request.Context(), namespace(c))
	h.reply(c, http.StatusOK, sales, err)
}

func (h *BooksHandler) AddSale(c *gin.Context) {
	var in bookkeeping.SaleInput
	if err := c.ShouldBindJSON(&in); err != nil {
		badRequest(c, h.logger, err)
		return
	}
	sale, err := h.svc.AddSale(c.Request.Context(), namespace(c), in)
	h.reply(c, http.StatusCreated, sale, err)
}

func (h *BooksHandler) DeleteSale(c *gin.Context) {
	h.noContent(c, h.svc.DeleteSale(c.Request.Context(), namespace(c), c.Param("id")))
}

func (h *BooksHandler) ListExpenses(c *gin.Context) {
	expenses, err := h.svc.ListExpenses(c.Request.Context(), namespace(c))
	h.reply(c, http.StatusOK, expenses, err)
}

func (h *BooksHandler) AddExpense(c *gin.Context) {
	var in bookkeeping.ExpenseInput
	if err := c.ShouldBindJSON(&in); err != nil {
		badRequest(c, h.logger, err)
		return
	}
	expense, err := h.svc.AddExpense(c.Request.Context(), namespace(c), in)
	h.reply(c, http.StatusCreated, expense, err)
}

type boostRequest struct {
	From   string  `json:"from"`
	To     string  `json:"to"`
	PerDay float64 `json:"perDay"`
}

func (h *BooksHandler) AddBoostRange(c *gin.Context) {
	var req boostRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		badRequest(c, h.logger, err)
		return
	}
	expenses, err := h.svc.AddBoostRange(c.Request.Context(), namespace(c), req.From, req.To, req.PerDay)
	h.reply(c, http.StatusCreated, expenses, err)
}

func (h *BooksHandler) DeleteExpense(c *gin.Context) {
	h.noContent(c, h.svc.DeleteExpense(c.Request.Context(), namespace(c), c.Param("id")))
}

func (h *BooksHandler) Overview(c *gin.Context) {
	overview, err := h.svc.Overview(c.Request.Context(), namespace(c))
	h.reply(c, http.StatusOK, overview, err)
}

func (h *BooksHandler) Charts(c *gin.Context) {
	charts, err := h.svc.Charts(c.Request.Context(), namespace(c))
	h.reply(c, http.StatusOK, charts, err)
}

func (h *BooksHandler) Customers(c *gin.Context) {
	summary, err := h.svc.Customers(c.Request.Context(), namespace(c), c.Query("month"))
	h.reply(c, http.StatusOK, summary, err)
}

func (h *BooksHandler) Export(c *gin.Context) {
	snap, err := h.svc.Export(c.Request.Context(), namespace(c))
	if err == nil {
		c.Header("Content-Disposition", `attachment; filename="packwrap-backup.json"`)
	}
	h.reply(c, http.StatusOK, snap, err)
}

func (h *BooksHandler) Import(c *gin.Context) {
	var snap models.Snapshot
	if err := c.ShouldBindJSON(&snap); err != nil {
		badRequest(c, h.logger, err)
		return
	}
	h.noContent(c, h.svc.Import(c.Request.Context(), namespace(c), snap))
}

// ImportCSV reads a CSV export from the request body.
func (h *BooksHandler) ImportCSV(c *gin.Context) {
	kind := bookkeeping.CSVKind(c.Param("kind"))
	n, err := h.svc.ImportCSV(c.Request.Context(), namespace(c), kind, c.Request.Body)
	h.reply(c, http.StatusOK, gin.H{"imported": n}, err)
}

func (h *BooksHandler) reply(c *gin.Context, status int, body any, err error) {
	if err != nil {
		respondError(c, h.logger, err)
		return
	}
	c.JSON(status, body)
}

func (h *BooksHandler) noContent(c *gin.Context, err error) {
	if err != nil {
		respondError(c, h.logger, err)
		return
	}
	c.Status(http.StatusNoContent)
}

func attributeKind(c *gin.Context) models.AttributeKind {
	return models.AttributeKind(c.Param("kind"))
}
