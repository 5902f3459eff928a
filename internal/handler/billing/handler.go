package billing

import (
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"

	"github.com/tcmflow/clinic-api/internal/handler"
	"github.com/tcmflow/clinic-api/internal/model"
	"github.com/tcmflow/clinic-api/internal/service/billing"
	"github.com/tcmflow/clinic-api/internal/service/pharmacy"
)

type Handler struct {
	svc      *billing.Service
	pharmacy *pharmacy.Service
}

func NewHandler(svc *billing.Service, pharmacySvc *pharmacy.Service) *Handler {
	return &Handler{svc: svc, pharmacy: pharmacySvc}
}

func (h *Handler) RegisterRoutes(r *gin.RouterGroup) {
	root := r.Group("/billing")
	{
		root.GET("/daily-summary", h.DailySummary)

		items := root.Group("/charge-items")
		{
			items.POST("", h.CreateChargeItem)
			items.GET("", h.ListChargeItems)
			items.GET("/:id", h.GetChargeItem)
			items.PUT("/:id", h.UpdateChargeItem)
			items.DELETE("/:id", h.DeleteChargeItem)
		}

		bills := root.Group("/bills")
		{
			bills.POST("", h.CreateBill)
			bills.GET("", h.ListBills)
			bills.GET("/by-registration", h.BillByRegistration)
			bills.GET("/:id", h.GetBill)
			bills.PUT("/:id", h.UpdateBill)
			bills.GET("/:id/payments", h.PaymentsByBill)
			bills.POST("/:id/pay", h.PayBill)
			bills.POST("/:id/refund", h.RefundBill)
			bills.POST("/:id/credit-to-account", h.CreditToAccount)
			bills.POST("/:id/cancel", h.CancelBill)
		}

		root.GET("/payments", h.ListPayments)

		debts := root.Group("/debts")
		{
			debts.GET("", h.ListDebts)
			debts.GET("/by-patient", h.DebtsByPatient)
			debts.GET("/:id", h.GetDebt)
			debts.POST("/:id/pay", h.PayDebt)
		}

		pharmacies := root.Group("/pharmacies")
		{
			pharmacies.POST("", h.CreatePharmacy)
			pharmacies.GET("", h.ListPharmacies)
			pharmacies.GET("/:id", h.GetPharmacy)
			pharmacies.PUT("/:id", h.UpdatePharmacy)
			pharmacies.DELETE("/:id", h.DeletePharmacy)
		}

		orders := root.Group("/dispensing-orders")
		{
			orders.POST("", h.CreateOrder)
			orders.GET("", h.ListOrders)
			orders.GET("/:id", h.GetOrder)
			orders.PUT("/:id", h.UpdateOrder)
			orders.POST("/:id/send", h.SendOrder)
			orders.POST("/:id/cancel", h.CancelOrder)
		}
	}
}

// RegisterWebhookRoutes mounts the partner callback outside the JWT
// chain. Callers authenticate with the pharmacy webhook key instead.
func (h *Handler) RegisterWebhookRoutes(r *gin.RouterGroup) {
	r.POST("/billing/dispensing-orders/webhook", h.Webhook)
}

func (h *Handler) CreateChargeItem(c *gin.Context) {
	var req model.CreateChargeItemRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, handler.NewErrorResponse(err.Error()))
		return
	}

	item, err := h.svc.CreateChargeItem(c.Request.Context(), &req)
	if err != nil {
		handler.Error(c, err)
		return
	}
	c.JSON(http.StatusCreated, handler.NewSuccessResponse(item))
}

func (h *Handler) ListChargeItems(c *gin.Context) {
	activeOnly := c.Query("active") == "true"
	items, err := h.svc.ListChargeItems(c.Request.Context(), activeOnly)
	if err != nil {
		handler.Error(c, err)
		return
	}
	c.JSON(http.StatusOK, handler.NewSuccessResponse(items))
}

func (h *Handler) GetChargeItem(c *gin.Context) {
	id, ok := handler.ParseUUID(c, "id")
	if !ok {
		return
	}

	item, err := h.svc.GetChargeItem(c.Request.Context(), id)
	if err != nil {
		handler.Error(c, err)
		return
	}
	c.JSON(http.StatusOK, handler.NewSuccessResponse(item))
}

func (h *Handler) UpdateChargeItem(c *gin.Context) {
	id, ok := handler.ParseUUID(c, "id")
	if !ok {
		return
	}

	var req model.UpdateChargeItemRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, handler.NewErrorResponse(err.Error()))
		return
	}

	item, err := h.svc.UpdateChargeItem(c.Request.Context(), id, &req)
	if err != nil {
		handler.Error(c, err)
		return
	}
	c.JSON(http.StatusOK, handler.NewSuccessResponse(item))
}

func (h *Handler) DeleteChargeItem(c *gin.Context) {
	id, ok := handler.ParseUUID(c, "id")
	if !ok {
		return
	}

	if err := h.svc.DeleteChargeItem(c.Request.Context(), id); err != nil {
		handler.Error(c, err)
		return
	}
	c.JSON(http.StatusOK, handler.NewSuccessResponse(nil))
}

func (h *Handler) CreateBill(c *gin.Context) {
	var req model.CreateBillRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, handler.NewErrorResponse(err.Error()))
		return
	}

	bill, err := h.svc.CreateBill(c.Request.Context(), handler.CurrentUserID(c), &req)
	if err != nil {
		handler.Error(c, err)
		return
	}
	c.JSON(http.StatusCreated, handler.NewSuccessResponse(bill))
}

func (h *Handler) ListBills(c *gin.Context) {
	var filter model.BillFilter
	if err := c.ShouldBindQuery(&filter); err != nil {
		c.JSON(http.StatusBadRequest, handler.NewErrorResponse(err.Error()))
		return
	}

	bills, total, err := h.svc.ListBills(c.Request.Context(), &filter)
	if err != nil {
		handler.Error(c, err)
		return
	}
	c.JSON(http.StatusOK, handler.NewListResponse(bills, filter.Page, filter.PageSize, total))
}

func (h *Handler) BillByRegistration(c *gin.Context) {
	registrationID, err := uuid.Parse(c.Query("registration_id"))
	if err != nil {
		c.JSON(http.StatusBadRequest, handler.NewErrorResponse("invalid registration_id"))
		return
	}

	bill, err := h.svc.GetBillByRegistration(c.Request.Context(), registrationID)
	if err != nil {
		handler.Error(c, err)
		return
	}
	c.JSON(http.StatusOK, handler.NewSuccessResponse(bill))
}

func (h *Handler) GetBill(c *gin.Context) {
	id, ok := handler.ParseUUID(c, "id")
	if !ok {
		return
	}

	bill, err := h.svc.GetBill(c.Request.Context(), id)
	if err != nil {
		handler.Error(c, err)
		return
	}
	c.JSON(http.StatusOK, handler.NewSuccessResponse(bill))
}

func (h *Handler) UpdateBill(c *gin.Context) {
	id, ok := handler.ParseUUID(c, "id")
	if !ok {
		return
	}

	var req model.UpdateBillRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, handler.NewErrorResponse(err.Error()))
		return
	}

	bill, err := h.svc.UpdateBill(c.Request.Context(), handler.CurrentUserID(c), id, &req)
	if err != nil {
		handler.Error(c, err)
		return
	}
	c.JSON(http.StatusOK, handler.NewSuccessResponse(bill))
}

func (h *Handler) PaymentsByBill(c *gin.Context) {
	id, ok := handler.ParseUUID(c, "id")
	if !ok {
		return
	}

	payments, err := h.svc.ListPaymentsByBill(c.Request.Context(), id)
	if err != nil {
		handler.Error(c, err)
		return
	}
	c.JSON(http.StatusOK, handler.NewSuccessResponse(payments))
}

func (h *Handler) PayBill(c *gin.Context) {
	id, ok := handler.ParseUUID(c, "id")
	if !ok {
		return
	}

	var req model.PayBillRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, handler.NewErrorResponse(err.Error()))
		return
	}

	bill, err := h.svc.PayBill(c.Request.Context(), handler.CurrentUserID(c), id, &req)
	if err != nil {
		handler.Error(c, err)
		return
	}
	c.JSON(http.StatusOK, handler.NewSuccessResponse(bill))
}

func (h *Handler) RefundBill(c *gin.Context) {
	id, ok := handler.ParseUUID(c, "id")
	if !ok {
		return
	}

	var req model.RefundBillRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, handler.NewErrorResponse(err.Error()))
		return
	}

	bill, err := h.svc.RefundBill(c.Request.Context(), handler.CurrentUserID(c), id, &req)
	if err != nil {
		handler.Error(c, err)
		return
	}
	c.JSON(http.StatusOK, handler.NewSuccessResponse(bill))
}

func (h *Handler) CreditToAccount(c *gin.Context) {
	id, ok := handler.ParseUUID(c, "id")
	if !ok {
		return
	}

	var req model.CreditToAccountRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, handler.NewErrorResponse(err.Error()))
		return
	}

	bill, err := h.svc.CreditToAccount(c.Request.Context(), handler.CurrentUserID(c), id, &req)
	if err != nil {
		handler.Error(c, err)
		return
	}
	c.JSON(http.StatusOK, handler.NewSuccessResponse(bill))
}

func (h *Handler) CancelBill(c *gin.Context) {
	id, ok := handler.ParseUUID(c, "id")
	if !ok {
		return
	}

	bill, err := h.svc.CancelBill(c.Request.Context(), handler.CurrentUserID(c), id)
	if err != nil {
		handler.Error(c, err)
		return
	}
	c.JSON(http.StatusOK, handler.NewSuccessResponse(bill))
}

func (h *Handler) ListPayments(c *gin.Context) {
	var filter model.PaymentFilter
	if err := c.ShouldBindQuery(&filter); err != nil {
		c.JSON(http.StatusBadRequest, handler.NewErrorResponse(err.Error()))
		return
	}

	payments, total, err := h.svc.ListPayments(c.Request.Context(), &filter)
	if err != nil {
		handler.Error(c, err)
		return
	}
	c.JSON(http.StatusOK, handler.NewListResponse(payments, filter.Page, filter.PageSize, total))
}

func (h *Handler) ListDebts(c *gin.Context) {
	var p model.Pagination
	if err := c.ShouldBindQuery(&p); err != nil {
		c.JSON(http.StatusBadRequest, handler.NewErrorResponse(err.Error()))
		return
	}

	debts, total, err := h.svc.ListDebts(c.Request.Context(), c.Query("status"), &p)
	if err != nil {
		handler.Error(c, err)
		return
	}
	c.JSON(http.StatusOK, handler.NewListResponse(debts, p.Page, p.PageSize, total))
}

func (h *Handler) DebtsByPatient(c *gin.Context) {
	patientID, err := uuid.Parse(c.Query("patient_id"))
	if err != nil {
		c.JSON(http.StatusBadRequest, handler.NewErrorResponse("invalid patient_id"))
		return
	}

	summary, err := h.svc.DebtsByPatient(c.Request.Context(), patientID)
	if err != nil {
		handler.Error(c, err)
		return
	}
	c.JSON(http.StatusOK, handler.NewSuccessResponse(summary))
}

func (h *Handler) GetDebt(c *gin.Context) {
	id, ok := handler.ParseUUID(c, "id")
	if !ok {
		return
	}

	debt, err := h.svc.GetDebt(c.Request.Context(), id)
	if err != nil {
		handler.Error(c, err)
		return
	}
	c.JSON(http.StatusOK, handler.NewSuccessResponse(debt))
}

func (h *Handler) PayDebt(c *gin.Context) {
	id, ok := handler.ParseUUID(c, "id")
	if !ok {
		return
	}

	var req model.PayDebtRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, handler.NewErrorResponse(err.Error()))
		return
	}

	debt, err := h.svc.PayDebt(c.Request.Context(), handler.CurrentUserID(c), id, &req)
	if err != nil {
		handler.Error(c, err)
		return
	}
	c.JSON(http.StatusOK, handler.NewSuccessResponse(debt))
}

func (h *Handler) DailySummary(c *gin.Context) {
	date := time.Now()
	if raw := c.Query("date"); raw != "" {
		parsed, err := time.Parse(model.DateOnly, raw)
		if err != nil {
			c.JSON(http.StatusBadRequest, handler.NewErrorResponse("invalid date, expected YYYY-MM-DD"))
			return
		}
		date = parsed
	}

	summary, err := h.svc.DailySummary(c.Request.Context(), date)
	if err != nil {
		handler.Error(c, err)
		return
	}
	c.JSON(http.StatusOK, handler.NewSuccessResponse(summary))
}

func (h *Handler) CreatePharmacy(c *gin.Context) {
	var req model.CreatePharmacyRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, handler.NewErrorResponse(err.Error()))
		return
	}

	p, err := h.pharmacy.CreatePharmacy(c.Request.Context(), &req)
	if err != nil {
		handler.Error(c, err)
		return
	}
	c.JSON(http.StatusCreated, handler.NewSuccessResponse(p))
}

func (h *Handler) ListPharmacies(c *gin.Context) {
	activeOnly := c.Query("active") == "true"
	items, err := h.pharmacy.ListPharmacies(c.Request.Context(), activeOnly)
	if err != nil {
		handler.Error(c, err)
		return
	}
	c.JSON(http.StatusOK, handler.NewSuccessResponse(items))
}

func (h *Handler) GetPharmacy(c *gin.Context) {
	id, ok := handler.ParseUUID(c, "id")
	if !ok {
		return
	}

	p, err := h.pharmacy.GetPharmacy(c.Request.Context(), id)
	if err != nil {
		handler.Error(c, err)
		return
	}
	c.JSON(http.StatusOK, handler.NewSuccessResponse(p))
}

func (h *Handler) UpdatePharmacy(c *gin.Context) {
	id, ok := handler.ParseUUID(c, "id")
	if !ok {
		return
	}

	var req model.UpdatePharmacyRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, handler.NewErrorResponse(err.Error()))
		return
	}

	p, err := h.pharmacy.UpdatePharmacy(c.Request.Context(), id, &req)
	if err != nil {
		handler.Error(c, err)
		return
	}
	c.JSON(http.StatusOK, handler.NewSuccessResponse(p))
}

func (h *Handler) DeletePharmacy(c *gin.Context) {
	id, ok := handler.ParseUUID(c, "id")
	if !ok {
		return
	}

	if err := h.pharmacy.DeletePharmacy(c.Request.Context(), id); err != nil {
		handler.Error(c, err)
		return
	}
	c.JSON(http.StatusOK, handler.NewSuccessResponse(nil))
}

func (h *Handler) CreateOrder(c *gin.Context) {
	var req model.CreateDispensingOrderRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, handler.NewErrorResponse(err.Error()))
		return
	}

	order, err := h.pharmacy.CreateOrder(c.Request.Context(), handler.CurrentUserID(c), &req)
	if err != nil {
		handler.Error(c, err)
		return
	}
	c.JSON(http.StatusCreated, handler.NewSuccessResponse(order))
}

func (h *Handler) ListOrders(c *gin.Context) {
	var filter model.DispensingOrderFilter
	if err := c.ShouldBindQuery(&filter); err != nil {
		c.JSON(http.StatusBadRequest, handler.NewErrorResponse(err.Error()))
		return
	}

	orders, total, err := h.pharmacy.ListOrders(c.Request.Context(), &filter)
	if err != nil {
		handler.Error(c, err)
		return
	}
	c.JSON(http.StatusOK, handler.NewListResponse(orders, filter.Page, filter.PageSize, total))
}

func (h *Handler) GetOrder(c *gin.Context) {
	id, ok := handler.ParseUUID(c, "id")
	if !ok {
		return
	}

	order, err := h.pharmacy.GetOrder(c.Request.Context(), id)
	if err != nil {
		handler.Error(c, err)
		return
	}
	c.JSON(http.StatusOK, handler.NewSuccessResponse(order))
}

func (h *Handler) UpdateOrder(c *gin.Context) {
	id, ok := handler.ParseUUID(c, "id")
	if !ok {
		return
	}

	var req model.UpdateDispensingOrderRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, handler.NewErrorResponse(err.Error()))
		return
	}

	order, err := h.pharmacy.UpdateOrder(c.Request.Context(), id, &req)
	if err != nil {
		handler.Error(c, err)
		return
	}
	c.JSON(http.StatusOK, handler.NewSuccessResponse(order))
}

func (h *Handler) SendOrder(c *gin.Context) {
	id, ok := handler.ParseUUID(c, "id")
	if !ok {
		return
	}

	order, err := h.pharmacy.SendOrder(c.Request.Context(), handler.CurrentUserID(c), id)
	if err != nil {
		handler.Error(c, err)
		return
	}
	c.JSON(http.StatusOK, handler.NewSuccessResponse(order))
}

func (h *Handler) CancelOrder(c *gin.Context) {
	id, ok := handler.ParseUUID(c, "id")
	if !ok {
		return
	}

	order, err := h.pharmacy.CancelOrder(c.Request.Context(), handler.CurrentUserID(c), id)
	if err != nil {
		handler.Error(c, err)
		return
	}
	c.JSON(http.StatusOK, handler.NewSuccessResponse(order))
}

// Webhook receives dispensing status callbacks from partner pharmacies.
// The key check happens after the order lookup so an unknown
// client_order_id reads as 404 rather than leaking key validity.
func (h *Handler) Webhook(c *gin.Context) {
	var req model.PharmacyWebhookRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, handler.NewErrorResponse(err.Error()))
		return
	}

	order, err := h.pharmacy.ProcessWebhook(c.Request.Context(), c.GetHeader("X-API-Key"), &req)
	if err != nil {
		handler.Error(c, err)
		return
	}
	c.JSON(http.StatusOK, handler.NewSuccessResponse(order))
}
