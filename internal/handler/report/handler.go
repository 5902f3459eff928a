package report

import (
	"net/http"
	"strconv"
	"time"

	"github.com/gin-gonic/gin"

	"github.com/tcmflow/clinic-api/internal/handler"
	"github.com/tcmflow/clinic-api/internal/model"
	"github.com/tcmflow/clinic-api/internal/service/report"
)

type Handler struct {
	svc *report.Service
}

func NewHandler(svc *report.Service) *Handler {
	return &Handler{svc: svc}
}

func (h *Handler) RegisterRoutes(r *gin.RouterGroup) {
	root := r.Group("/reports")
	{
		root.GET("/daily-summary", h.DailySummary)
		root.GET("/monthly-summary", h.MonthlySummary)
		root.GET("/doctor-workload", h.DoctorWorkload)
		root.GET("/medicine-usage", h.MedicineUsage)
		root.GET("/external-pharmacy-reconciliation", h.PharmacyReconciliation)

		templates := root.Group("/templates")
		{
			templates.POST("", h.CreateTemplate)
			templates.GET("", h.ListTemplates)
			templates.GET("/:id", h.GetTemplate)
			templates.PUT("/:id", h.UpdateTemplate)
			templates.DELETE("/:id", h.DeleteTemplate)
		}

		generated := root.Group("/generated")
		{
			generated.GET("", h.ListGenerated)
			generated.GET("/:id", h.GetGenerated)
		}
	}
}

func (h *Handler) DailySummary(c *gin.Context) {
	result, err := h.svc.DailySummary(c.Request.Context(), handler.CurrentUserID(c), c.Query("date"))
	if err != nil {
		handler.Error(c, err)
		return
	}
	c.JSON(http.StatusOK, handler.NewSuccessResponse(result))
}

// MonthlySummary defaults to the current month when year/month are
// absent.
func (h *Handler) MonthlySummary(c *gin.Context) {
	now := time.Now()
	year, month := now.Year(), int(now.Month())

	if raw := c.Query("year"); raw != "" {
		parsed, err := strconv.Atoi(raw)
		if err != nil {
			c.JSON(http.StatusBadRequest, handler.NewErrorResponse("invalid year"))
			return
		}
		year = parsed
	}
	if raw := c.Query("month"); raw != "" {
		parsed, err := strconv.Atoi(raw)
		if err != nil || parsed < 1 || parsed > 12 {
			c.JSON(http.StatusBadRequest, handler.NewErrorResponse("invalid month"))
			return
		}
		month = parsed
	}

	result, err := h.svc.MonthlySummary(c.Request.Context(), handler.CurrentUserID(c), year, month)
	if err != nil {
		handler.Error(c, err)
		return
	}
	c.JSON(http.StatusOK, handler.NewSuccessResponse(result))
}

func (h *Handler) DoctorWorkload(c *gin.Context) {
	result, err := h.svc.DoctorWorkload(c.Request.Context(), handler.CurrentUserID(c),
		c.Query("start_date"), c.Query("end_date"))
	if err != nil {
		handler.Error(c, err)
		return
	}
	c.JSON(http.StatusOK, handler.NewSuccessResponse(result))
}

func (h *Handler) MedicineUsage(c *gin.Context) {
	result, err := h.svc.MedicineUsage(c.Request.Context(), handler.CurrentUserID(c),
		c.Query("start_date"), c.Query("end_date"))
	if err != nil {
		handler.Error(c, err)
		return
	}
	c.JSON(http.StatusOK, handler.NewSuccessResponse(result))
}

func (h *Handler) PharmacyReconciliation(c *gin.Context) {
	result, err := h.svc.PharmacyReconciliation(c.Request.Context(), handler.CurrentUserID(c),
		c.Query("start_date"), c.Query("end_date"), c.Query("pharmacy_id"))
	if err != nil {
		handler.Error(c, err)
		return
	}
	c.JSON(http.StatusOK, handler.NewSuccessResponse(result))
}

func (h *Handler) CreateTemplate(c *gin.Context) {
	var req model.CreateReportTemplateRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, handler.NewErrorResponse(err.Error()))
		return
	}

	tpl, err := h.svc.CreateTemplate(c.Request.Context(), &req)
	if err != nil {
		handler.Error(c, err)
		return
	}
	c.JSON(http.StatusCreated, handler.NewSuccessResponse(tpl))
}

func (h *Handler) ListTemplates(c *gin.Context) {
	items, err := h.svc.ListTemplates(c.Request.Context())
	if err != nil {
		handler.Error(c, err)
		return
	}
	c.JSON(http.StatusOK, handler.NewSuccessResponse(items))
}

func (h *Handler) GetTemplate(c *gin.Context) {
	id, ok := handler.ParseUUID(c, "id")
	if !ok {
		return
	}

	tpl, err := h.svc.GetTemplate(c.Request.Context(), id)
	if err != nil {
		handler.Error(c, err)
		return
	}
	c.JSON(http.StatusOK, handler.NewSuccessResponse(tpl))
}

func (h *Handler) UpdateTemplate(c *gin.Context) {
	id, ok := handler.ParseUUID(c, "id")
	if !ok {
		return
	}

	var req model.UpdateReportTemplateRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, handler.NewErrorResponse(err.Error()))
		return
	}

	tpl, err := h.svc.UpdateTemplate(c.Request.Context(), id, &req)
	if err != nil {
		handler.Error(c, err)
		return
	}
	c.JSON(http.StatusOK, handler.NewSuccessResponse(tpl))
}

func (h *Handler) DeleteTemplate(c *gin.Context) {
	id, ok := handler.ParseUUID(c, "id")
	if !ok {
		return
	}

	if err := h.svc.DeleteTemplate(c.Request.Context(), id); err != nil {
		handler.Error(c, err)
		return
	}
	c.JSON(http.StatusOK, handler.NewSuccessResponse(nil))
}

func (h *Handler) ListGenerated(c *gin.Context) {
	var p model.Pagination
	if err := c.ShouldBindQuery(&p); err != nil {
		c.JSON(http.StatusBadRequest, handler.NewErrorResponse(err.Error()))
		return
	}

	items, total, err := h.svc.ListGenerated(c.Request.Context(), &p)
	if err != nil {
		handler.Error(c, err)
		return
	}
	c.JSON(http.StatusOK, handler.NewListResponse(items, p.Page, p.PageSize, total))
}

func (h *Handler) GetGenerated(c *gin.Context) {
	id, ok := handler.ParseUUID(c, "id")
	if !ok {
		return
	}

	rep, err := h.svc.GetGenerated(c.Request.Context(), id)
	if err != nil {
		handler.Error(c, err)
		return
	}
	c.JSON(http.StatusOK, handler.NewSuccessResponse(rep))
}
