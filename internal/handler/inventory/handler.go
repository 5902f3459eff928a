package inventory

import (
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"

	"github.com/tcmflow/clinic-api/internal/handler"
	"github.com/tcmflow/clinic-api/internal/model"
	"github.com/tcmflow/clinic-api/internal/service/inventory"
)

type Handler struct {
	svc *inventory.Service
}

func NewHandler(svc *inventory.Service) *Handler {
	return &Handler{svc: svc}
}

func (h *Handler) RegisterRoutes(r *gin.RouterGroup) {
	root := r.Group("/inventory")
	{
		root.GET("/low-stock", h.LowStock)
		root.GET("/transactions", h.ListTransactions)

		categories := root.Group("/categories")
		{
			categories.POST("", h.CreateCategory)
			categories.GET("", h.ListCategories)
			categories.GET("/:id", h.GetCategory)
			categories.PUT("/:id", h.UpdateCategory)
			categories.DELETE("/:id", h.DeleteCategory)
		}

		suppliers := root.Group("/suppliers")
		{
			suppliers.POST("", h.CreateSupplier)
			suppliers.GET("", h.ListSuppliers)
			suppliers.GET("/:id", h.GetSupplier)
			suppliers.PUT("/:id", h.UpdateSupplier)
			suppliers.DELETE("/:id", h.DeleteSupplier)
		}

		medicines := root.Group("/medicines")
		{
			medicines.POST("", h.CreateMedicine)
			medicines.GET("", h.ListMedicines)
			medicines.GET("/search", h.SearchMedicines)
			medicines.GET("/:id", h.GetMedicine)
			medicines.PUT("/:id", h.UpdateMedicine)
			medicines.GET("/:id/transactions", h.MedicineTransactions)
		}

		stock := root.Group("/stock")
		{
			stock.GET("", h.ListStockLevels)
			stock.POST("/:id/adjust", h.AdjustStock)
		}

		orders := root.Group("/purchase-orders")
		{
			orders.POST("", h.CreatePurchaseOrder)
			orders.GET("", h.ListPurchaseOrders)
			orders.GET("/:id", h.GetPurchaseOrder)
			orders.PUT("/:id", h.UpdatePurchaseOrder)
			orders.POST("/:id/submit", h.SubmitPurchaseOrder)
			orders.POST("/:id/receive", h.ReceivePurchaseOrder)
			orders.POST("/:id/cancel", h.CancelPurchaseOrder)
		}

		compounds := root.Group("/compound-formulas")
		{
			compounds.POST("", h.CreateCompoundFormula)
			compounds.GET("", h.ListCompoundFormulas)
			compounds.GET("/:id", h.GetCompoundFormula)
			compounds.DELETE("/:id", h.DeleteCompoundFormula)
		}
	}
}

func (h *Handler) CreateCategory(c *gin.Context) {
	var req model.CreateCategoryRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, handler.NewErrorResponse(err.Error()))
		return
	}

	cat, err := h.svc.CreateCategory(c.Request.Context(), &req)
	if err != nil {
		handler.Error(c, err)
		return
	}
	c.JSON(http.StatusCreated, handler.NewSuccessResponse(cat))
}

func (h *Handler) ListCategories(c *gin.Context) {
	items, err := h.svc.ListCategories(c.Request.Context())
	if err != nil {
		handler.Error(c, err)
		return
	}
	c.JSON(http.StatusOK, handler.NewSuccessResponse(items))
}

func (h *Handler) GetCategory(c *gin.Context) {
	id, ok := handler.ParseUUID(c, "id")
	if !ok {
		return
	}

	cat, err := h.svc.GetCategory(c.Request.Context(), id)
	if err != nil {
		handler.Error(c, err)
		return
	}
	c.JSON(http.StatusOK, handler.NewSuccessResponse(cat))
}

func (h *Handler) UpdateCategory(c *gin.Context) {
	id, ok := handler.ParseUUID(c, "id")
	if !ok {
		return
	}

	var req model.UpdateCategoryRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, handler.NewErrorResponse(err.Error()))
		return
	}

	cat, err := h.svc.UpdateCategory(c.Request.Context(), id, &req)
	if err != nil {
		handler.Error(c, err)
		return
	}
	c.JSON(http.StatusOK, handler.NewSuccessResponse(cat))
}

func (h *Handler) DeleteCategory(c *gin.Context) {
	id, ok := handler.ParseUUID(c, "id")
	if !ok {
		return
	}

	if err := h.svc.DeleteCategory(c.Request.Context(), id); err != nil {
		handler.Error(c, err)
		return
	}
	c.JSON(http.StatusOK, handler.NewSuccessResponse(nil))
}

func (h *Handler) CreateSupplier(c *gin.Context) {
	var req model.CreateSupplierRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, handler.NewErrorResponse(err.Error()))
		return
	}

	sup, err := h.svc.CreateSupplier(c.Request.Context(), &req)
	if err != nil {
		handler.Error(c, err)
		return
	}
	c.JSON(http.StatusCreated, handler.NewSuccessResponse(sup))
}

func (h *Handler) ListSuppliers(c *gin.Context) {
	activeOnly := c.Query("active") == "true"
	items, err := h.svc.ListSuppliers(c.Request.Context(), activeOnly)
	if err != nil {
		handler.Error(c, err)
		return
	}
	c.JSON(http.StatusOK, handler.NewSuccessResponse(items))
}

func (h *Handler) GetSupplier(c *gin.Context) {
	id, ok := handler.ParseUUID(c, "id")
	if !ok {
		return
	}

	sup, err := h.svc.GetSupplier(c.Request.Context(), id)
	if err != nil {
		handler.Error(c, err)
		return
	}
	c.JSON(http.StatusOK, handler.NewSuccessResponse(sup))
}

func (h *Handler) UpdateSupplier(c *gin.Context) {
	id, ok := handler.ParseUUID(c, "id")
	if !ok {
		return
	}

	var req model.UpdateSupplierRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, handler.NewErrorResponse(err.Error()))
		return
	}

	sup, err := h.svc.UpdateSupplier(c.Request.Context(), id, &req)
	if err != nil {
		handler.Error(c, err)
		return
	}
	c.JSON(http.StatusOK, handler.NewSuccessResponse(sup))
}

func (h *Handler) DeleteSupplier(c *gin.Context) {
	id, ok := handler.ParseUUID(c, "id")
	if !ok {
		return
	}

	if err := h.svc.DeleteSupplier(c.Request.Context(), id); err != nil {
		handler.Error(c, err)
		return
	}
	c.JSON(http.StatusOK, handler.NewSuccessResponse(nil))
}

func (h *Handler) CreateMedicine(c *gin.Context) {
	var req model.CreateMedicineRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, handler.NewErrorResponse(err.Error()))
		return
	}

	med, err := h.svc.CreateMedicine(c.Request.Context(), handler.CurrentUserID(c), &req)
	if err != nil {
		handler.Error(c, err)
		return
	}
	c.JSON(http.StatusCreated, handler.NewSuccessResponse(med))
}

func (h *Handler) ListMedicines(c *gin.Context) {
	var filter model.MedicineFilter
	if err := c.ShouldBindQuery(&filter); err != nil {
		c.JSON(http.StatusBadRequest, handler.NewErrorResponse(err.Error()))
		return
	}

	meds, total, err := h.svc.ListMedicines(c.Request.Context(), &filter)
	if err != nil {
		handler.Error(c, err)
		return
	}
	c.JSON(http.StatusOK, handler.NewListResponse(meds, filter.Page, filter.PageSize, total))
}

func (h *Handler) SearchMedicines(c *gin.Context) {
	meds, err := h.svc.SearchMedicines(c.Request.Context(), c.Query("q"))
	if err != nil {
		handler.Error(c, err)
		return
	}
	c.JSON(http.StatusOK, handler.NewSuccessResponse(meds))
}

func (h *Handler) GetMedicine(c *gin.Context) {
	id, ok := handler.ParseUUID(c, "id")
	if !ok {
		return
	}

	med, err := h.svc.GetMedicine(c.Request.Context(), id)
	if err != nil {
		handler.Error(c, err)
		return
	}
	c.JSON(http.StatusOK, handler.NewSuccessResponse(med))
}

func (h *Handler) UpdateMedicine(c *gin.Context) {
	id, ok := handler.ParseUUID(c, "id")
	if !ok {
		return
	}

	var req model.UpdateMedicineRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, handler.NewErrorResponse(err.Error()))
		return
	}

	med, err := h.svc.UpdateMedicine(c.Request.Context(), handler.CurrentUserID(c), id, &req)
	if err != nil {
		handler.Error(c, err)
		return
	}
	c.JSON(http.StatusOK, handler.NewSuccessResponse(med))
}

func (h *Handler) MedicineTransactions(c *gin.Context) {
	id, ok := handler.ParseUUID(c, "id")
	if !ok {
		return
	}

	txns, err := h.svc.MedicineTransactions(c.Request.Context(), id)
	if err != nil {
		handler.Error(c, err)
		return
	}
	c.JSON(http.StatusOK, handler.NewSuccessResponse(txns))
}

func (h *Handler) ListStockLevels(c *gin.Context) {
	var p model.Pagination
	if err := c.ShouldBindQuery(&p); err != nil {
		c.JSON(http.StatusBadRequest, handler.NewErrorResponse(err.Error()))
		return
	}

	levels, total, err := h.svc.ListStockLevels(c.Request.Context(), &p)
	if err != nil {
		handler.Error(c, err)
		return
	}
	c.JSON(http.StatusOK, handler.NewListResponse(levels, p.Page, p.PageSize, total))
}

// AdjustStock sets the absolute quantity for a medicine. The id path
// segment is the medicine, not the stock row.
func (h *Handler) AdjustStock(c *gin.Context) {
	id, ok := handler.ParseUUID(c, "id")
	if !ok {
		return
	}

	var req model.AdjustStockRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, handler.NewErrorResponse(err.Error()))
		return
	}

	level, err := h.svc.AdjustStock(c.Request.Context(), handler.CurrentUserID(c), id, &req)
	if err != nil {
		handler.Error(c, err)
		return
	}
	c.JSON(http.StatusOK, handler.NewSuccessResponse(level))
}

func (h *Handler) ListTransactions(c *gin.Context) {
	var filter model.StockTransactionFilter
	if err := c.ShouldBindQuery(&filter); err != nil {
		c.JSON(http.StatusBadRequest, handler.NewErrorResponse(err.Error()))
		return
	}

	txns, total, err := h.svc.ListTransactions(c.Request.Context(), &filter)
	if err != nil {
		handler.Error(c, err)
		return
	}
	c.JSON(http.StatusOK, handler.NewListResponse(txns, filter.Page, filter.PageSize, total))
}

func (h *Handler) LowStock(c *gin.Context) {
	report, err := h.svc.LowStock(c.Request.Context())
	if err != nil {
		handler.Error(c, err)
		return
	}
	c.JSON(http.StatusOK, handler.NewSuccessResponse(report))
}

func (h *Handler) CreatePurchaseOrder(c *gin.Context) {
	var req model.CreatePurchaseOrderRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, handler.NewErrorResponse(err.Error()))
		return
	}

	order, err := h.svc.CreatePurchaseOrder(c.Request.Context(), handler.CurrentUserID(c), &req)
	if err != nil {
		handler.Error(c, err)
		return
	}
	c.JSON(http.StatusCreated, handler.NewSuccessResponse(order))
}

func (h *Handler) ListPurchaseOrders(c *gin.Context) {
	var p model.Pagination
	if err := c.ShouldBindQuery(&p); err != nil {
		c.JSON(http.StatusBadRequest, handler.NewErrorResponse(err.Error()))
		return
	}

	orders, total, err := h.svc.ListPurchaseOrders(c.Request.Context(), c.Query("status"), &p)
	if err != nil {
		handler.Error(c, err)
		return
	}
	c.JSON(http.StatusOK, handler.NewListResponse(orders, p.Page, p.PageSize, total))
}

func (h *Handler) GetPurchaseOrder(c *gin.Context) {
	id, ok := handler.ParseUUID(c, "id")
	if !ok {
		return
	}

	order, err := h.svc.GetPurchaseOrder(c.Request.Context(), id)
	if err != nil {
		handler.Error(c, err)
		return
	}
	c.JSON(http.StatusOK, handler.NewSuccessResponse(order))
}

func (h *Handler) UpdatePurchaseOrder(c *gin.Context) {
	id, ok := handler.ParseUUID(c, "id")
	if !ok {
		return
	}

	var req model.UpdatePurchaseOrderRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, handler.NewErrorResponse(err.Error()))
		return
	}

	order, err := h.svc.UpdatePurchaseOrder(c.Request.Context(), handler.CurrentUserID(c), id, &req)
	if err != nil {
		handler.Error(c, err)
		return
	}
	c.JSON(http.StatusOK, handler.NewSuccessResponse(order))
}

func (h *Handler) SubmitPurchaseOrder(c *gin.Context) {
	id, ok := handler.ParseUUID(c, "id")
	if !ok {
		return
	}

	order, err := h.svc.SubmitPurchaseOrder(c.Request.Context(), handler.CurrentUserID(c), id)
	if err != nil {
		handler.Error(c, err)
		return
	}
	c.JSON(http.StatusOK, handler.NewSuccessResponse(order))
}

func (h *Handler) ReceivePurchaseOrder(c *gin.Context) {
	id, ok := handler.ParseUUID(c, "id")
	if !ok {
		return
	}

	order, err := h.svc.ReceivePurchaseOrder(c.Request.Context(), handler.CurrentUserID(c), id)
	if err != nil {
		handler.Error(c, err)
		return
	}
	c.JSON(http.StatusOK, handler.NewSuccessResponse(order))
}

func (h *Handler) CancelPurchaseOrder(c *gin.Context) {
	id, ok := handler.ParseUUID(c, "id")
	if !ok {
		return
	}

	order, err := h.svc.CancelPurchaseOrder(c.Request.Context(), handler.CurrentUserID(c), id)
	if err != nil {
		handler.Error(c, err)
		return
	}
	c.JSON(http.StatusOK, handler.NewSuccessResponse(order))
}

func (h *Handler) CreateCompoundFormula(c *gin.Context) {
	var req model.CreateCompoundFormulaRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, handler.NewErrorResponse(err.Error()))
		return
	}

	cf, err := h.svc.CreateCompoundFormula(c.Request.Context(), &req)
	if err != nil {
		handler.Error(c, err)
		return
	}
	c.JSON(http.StatusCreated, handler.NewSuccessResponse(cf))
}

func (h *Handler) ListCompoundFormulas(c *gin.Context) {
	var compoundID *uuid.UUID
	if raw := c.Query("compound_id"); raw != "" {
		id, err := uuid.Parse(raw)
		if err != nil {
			c.JSON(http.StatusBadRequest, handler.NewErrorResponse("invalid compound_id"))
			return
		}
		compoundID = &id
	}

	items, err := h.svc.ListCompoundFormulas(c.Request.Context(), compoundID)
	if err != nil {
		handler.Error(c, err)
		return
	}
	c.JSON(http.StatusOK, handler.NewSuccessResponse(items))
}

func (h *Handler) GetCompoundFormula(c *gin.Context) {
	id, ok := handler.ParseUUID(c, "id")
	if !ok {
		return
	}

	cf, err := h.svc.GetCompoundFormula(c.Request.Context(), id)
	if err != nil {
		handler.Error(c, err)
		return
	}
	c.JSON(http.StatusOK, handler.NewSuccessResponse(cf))
}

func (h *Handler) DeleteCompoundFormula(c *gin.Context) {
	id, ok := handler.ParseUUID(c, "id")
	if !ok {
		return
	}

	if err := h.svc.DeleteCompoundFormula(c.Request.Context(), id); err != nil {
		handler.Error(c, err)
		return
	}
	c.JSON(http.StatusOK, handler.NewSuccessResponse(nil))
}
