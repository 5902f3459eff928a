package consultation

import (
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"

	"github.com/tcmflow/clinic-api/internal/handler"
	"github.com/tcmflow/clinic-api/internal/model"
	"github.com/tcmflow/clinic-api/internal/service/consultation"
	"github.com/tcmflow/clinic-api/internal/service/prescription"
)

type Handler struct {
	svc          *consultation.Service
	prescription *prescription.Service
}

func NewHandler(svc *consultation.Service, prescriptionSvc *prescription.Service) *Handler {
	return &Handler{svc: svc, prescription: prescriptionSvc}
}

func (h *Handler) RegisterRoutes(r *gin.RouterGroup) {
	root := r.Group("/consultations")
	{
		root.POST("", h.Create)
		root.GET("", h.List)
		root.GET("/by-patient", h.ByPatient)
		root.GET("/by-registration", h.ByRegistration)
		root.GET("/:id", h.Get)
		root.PUT("/:id", h.Update)
		root.DELETE("/:id", h.Delete)
		root.POST("/:id/copy-from-previous", h.CopyFromPrevious)

		rx := root.Group("/prescriptions")
		{
			rx.POST("", h.CreatePrescription)
			rx.GET("", h.ListPrescriptions)
			rx.POST("/check-stock", h.CheckStock)
			rx.GET("/:id", h.GetPrescription)
			rx.PUT("/:id", h.UpdatePrescription)
			rx.DELETE("/:id", h.DeletePrescription)
			rx.POST("/:id/dispense", h.Dispense)
			rx.POST("/:id/apply-formula", h.ApplyFormula)
		}

		formulas := root.Group("/experience-formulas")
		{
			formulas.POST("", h.CreateFormula)
			formulas.GET("", h.ListFormulas)
			formulas.POST("/save-from-prescription", h.SaveFromPrescription)
			formulas.GET("/:id", h.GetFormula)
			formulas.PUT("/:id", h.UpdateFormula)
			formulas.DELETE("/:id", h.DeleteFormula)
		}

		certs := root.Group("/certificates")
		{
			certs.POST("", h.CreateCertificate)
			certs.GET("", h.ListCertificates)
			certs.GET("/:id", h.GetCertificate)
			certs.PUT("/:id", h.UpdateCertificate)
			certs.DELETE("/:id", h.DeleteCertificate)
			certs.POST("/:id/print", h.PrintCertificate)
		}

		terms := root.Group("/diagnostic-terms")
		{
			terms.POST("", h.CreateTerm)
			terms.GET("", h.ListTerms)
			terms.GET("/by-category", h.TermsByCategory)
			terms.GET("/:id", h.GetTerm)
			terms.PUT("/:id", h.UpdateTerm)
			terms.DELETE("/:id", h.DeleteTerm)
		}
	}
}

// Create records a consultation authored by the signed-in doctor.
func (h *Handler) Create(c *gin.Context) {
	user := handler.CurrentUser(c)
	if user == nil {
		c.JSON(http.StatusUnauthorized, handler.NewErrorResponse("authentication required"))
		return
	}

	var req model.CreateConsultationRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, handler.NewErrorResponse(err.Error()))
		return
	}

	cons, err := h.svc.CreateConsultation(c.Request.Context(), user.ID, &req)
	if err != nil {
		handler.Error(c, err)
		return
	}
	c.JSON(http.StatusCreated, handler.NewSuccessResponse(cons))
}

func (h *Handler) List(c *gin.Context) {
	var p model.Pagination
	if err := c.ShouldBindQuery(&p); err != nil {
		c.JSON(http.StatusBadRequest, handler.NewErrorResponse(err.Error()))
		return
	}

	items, total, err := h.svc.ListConsultations(c.Request.Context(), &p)
	if err != nil {
		handler.Error(c, err)
		return
	}
	c.JSON(http.StatusOK, handler.NewListResponse(items, p.Page, p.PageSize, total))
}

func (h *Handler) ByPatient(c *gin.Context) {
	patientID, err := uuid.Parse(c.Query("patient_id"))
	if err != nil {
		c.JSON(http.StatusBadRequest, handler.NewErrorResponse("invalid patient_id"))
		return
	}

	items, err := h.svc.ListByPatient(c.Request.Context(), patientID)
	if err != nil {
		handler.Error(c, err)
		return
	}
	c.JSON(http.StatusOK, handler.NewSuccessResponse(items))
}

func (h *Handler) ByRegistration(c *gin.Context) {
	registrationID, err := uuid.Parse(c.Query("registration_id"))
	if err != nil {
		c.JSON(http.StatusBadRequest, handler.NewErrorResponse("invalid registration_id"))
		return
	}

	cons, err := h.svc.GetByRegistration(c.Request.Context(), registrationID)
	if err != nil {
		handler.Error(c, err)
		return
	}
	c.JSON(http.StatusOK, handler.NewSuccessResponse(cons))
}

func (h *Handler) Get(c *gin.Context) {
	id, ok := handler.ParseUUID(c, "id")
	if !ok {
		return
	}

	cons, err := h.svc.GetConsultation(c.Request.Context(), id)
	if err != nil {
		handler.Error(c, err)
		return
	}
	c.JSON(http.StatusOK, handler.NewSuccessResponse(cons))
}

func (h *Handler) Update(c *gin.Context) {
	id, ok := handler.ParseUUID(c, "id")
	if !ok {
		return
	}

	var req model.UpdateConsultationRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, handler.NewErrorResponse(err.Error()))
		return
	}

	cons, err := h.svc.UpdateConsultation(c.Request.Context(), handler.CurrentUserID(c), id, &req)
	if err != nil {
		handler.Error(c, err)
		return
	}
	c.JSON(http.StatusOK, handler.NewSuccessResponse(cons))
}

func (h *Handler) Delete(c *gin.Context) {
	id, ok := handler.ParseUUID(c, "id")
	if !ok {
		return
	}

	if err := h.svc.DeleteConsultation(c.Request.Context(), handler.CurrentUserID(c), id); err != nil {
		handler.Error(c, err)
		return
	}
	c.JSON(http.StatusOK, handler.NewSuccessResponse(nil))
}

func (h *Handler) CopyFromPrevious(c *gin.Context) {
	id, ok := handler.ParseUUID(c, "id")
	if !ok {
		return
	}

	cons, err := h.svc.CopyFromPrevious(c.Request.Context(), handler.CurrentUserID(c), id)
	if err != nil {
		handler.Error(c, err)
		return
	}
	c.JSON(http.StatusOK, handler.NewSuccessResponse(cons))
}

func (h *Handler) CreatePrescription(c *gin.Context) {
	var req model.CreatePrescriptionRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, handler.NewErrorResponse(err.Error()))
		return
	}

	p, err := h.prescription.CreatePrescription(c.Request.Context(), handler.CurrentUserID(c), &req)
	if err != nil {
		handler.Error(c, err)
		return
	}
	c.JSON(http.StatusCreated, handler.NewSuccessResponse(p))
}

func (h *Handler) ListPrescriptions(c *gin.Context) {
	consultationID, err := uuid.Parse(c.Query("consultation_id"))
	if err != nil {
		c.JSON(http.StatusBadRequest, handler.NewErrorResponse("invalid consultation_id"))
		return
	}

	items, err := h.prescription.ListByConsultation(c.Request.Context(), consultationID)
	if err != nil {
		handler.Error(c, err)
		return
	}
	c.JSON(http.StatusOK, handler.NewSuccessResponse(items))
}

func (h *Handler) GetPrescription(c *gin.Context) {
	id, ok := handler.ParseUUID(c, "id")
	if !ok {
		return
	}

	p, err := h.prescription.GetPrescription(c.Request.Context(), id)
	if err != nil {
		handler.Error(c, err)
		return
	}
	c.JSON(http.StatusOK, handler.NewSuccessResponse(p))
}

func (h *Handler) UpdatePrescription(c *gin.Context) {
	user := handler.CurrentUser(c)
	if user == nil {
		c.JSON(http.StatusUnauthorized, handler.NewErrorResponse("authentication required"))
		return
	}

	id, ok := handler.ParseUUID(c, "id")
	if !ok {
		return
	}

	var req model.UpdatePrescriptionRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, handler.NewErrorResponse(err.Error()))
		return
	}

	p, err := h.prescription.UpdatePrescription(c.Request.Context(), user, id, &req)
	if err != nil {
		handler.Error(c, err)
		return
	}
	c.JSON(http.StatusOK, handler.NewSuccessResponse(p))
}

func (h *Handler) DeletePrescription(c *gin.Context) {
	id, ok := handler.ParseUUID(c, "id")
	if !ok {
		return
	}

	if err := h.prescription.DeletePrescription(c.Request.Context(), handler.CurrentUserID(c), id); err != nil {
		handler.Error(c, err)
		return
	}
	c.JSON(http.StatusOK, handler.NewSuccessResponse(nil))
}

func (h *Handler) Dispense(c *gin.Context) {
	id, ok := handler.ParseUUID(c, "id")
	if !ok {
		return
	}

	p, err := h.prescription.Dispense(c.Request.Context(), handler.CurrentUserID(c), id)
	if err != nil {
		handler.Error(c, err)
		return
	}
	c.JSON(http.StatusOK, handler.NewSuccessResponse(p))
}

func (h *Handler) CheckStock(c *gin.Context) {
	var req model.CheckStockRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, handler.NewErrorResponse(err.Error()))
		return
	}

	result, err := h.prescription.CheckStock(c.Request.Context(), &req)
	if err != nil {
		handler.Error(c, err)
		return
	}
	c.JSON(http.StatusOK, handler.NewSuccessResponse(result))
}

func (h *Handler) ApplyFormula(c *gin.Context) {
	user := handler.CurrentUser(c)
	if user == nil {
		c.JSON(http.StatusUnauthorized, handler.NewErrorResponse("authentication required"))
		return
	}

	id, ok := handler.ParseUUID(c, "id")
	if !ok {
		return
	}

	var req model.ApplyFormulaRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, handler.NewErrorResponse(err.Error()))
		return
	}

	p, err := h.prescription.ApplyFormula(c.Request.Context(), user.ID, id, &req)
	if err != nil {
		handler.Error(c, err)
		return
	}
	c.JSON(http.StatusOK, handler.NewSuccessResponse(p))
}

func (h *Handler) CreateFormula(c *gin.Context) {
	user := handler.CurrentUser(c)
	if user == nil {
		c.JSON(http.StatusUnauthorized, handler.NewErrorResponse("authentication required"))
		return
	}

	var req model.CreateFormulaRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, handler.NewErrorResponse(err.Error()))
		return
	}

	f, err := h.prescription.CreateFormula(c.Request.Context(), user.ID, &req)
	if err != nil {
		handler.Error(c, err)
		return
	}
	c.JSON(http.StatusCreated, handler.NewSuccessResponse(f))
}

// ListFormulas returns the caller's own formulas plus public ones.
func (h *Handler) ListFormulas(c *gin.Context) {
	user := handler.CurrentUser(c)
	if user == nil {
		c.JSON(http.StatusUnauthorized, handler.NewErrorResponse("authentication required"))
		return
	}

	items, err := h.prescription.ListFormulas(c.Request.Context(), user.ID)
	if err != nil {
		handler.Error(c, err)
		return
	}
	c.JSON(http.StatusOK, handler.NewSuccessResponse(items))
}

func (h *Handler) SaveFromPrescription(c *gin.Context) {
	user := handler.CurrentUser(c)
	if user == nil {
		c.JSON(http.StatusUnauthorized, handler.NewErrorResponse("authentication required"))
		return
	}

	var req model.SaveFromPrescriptionRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, handler.NewErrorResponse(err.Error()))
		return
	}

	f, err := h.prescription.SaveFromPrescription(c.Request.Context(), user.ID, &req)
	if err != nil {
		handler.Error(c, err)
		return
	}
	c.JSON(http.StatusCreated, handler.NewSuccessResponse(f))
}

func (h *Handler) GetFormula(c *gin.Context) {
	user := handler.CurrentUser(c)
	if user == nil {
		c.JSON(http.StatusUnauthorized, handler.NewErrorResponse("authentication required"))
		return
	}

	id, ok := handler.ParseUUID(c, "id")
	if !ok {
		return
	}

	f, err := h.prescription.GetFormula(c.Request.Context(), user.ID, id)
	if err != nil {
		handler.Error(c, err)
		return
	}
	c.JSON(http.StatusOK, handler.NewSuccessResponse(f))
}

func (h *Handler) UpdateFormula(c *gin.Context) {
	user := handler.CurrentUser(c)
	if user == nil {
		c.JSON(http.StatusUnauthorized, handler.NewErrorResponse("authentication required"))
		return
	}

	id, ok := handler.ParseUUID(c, "id")
	if !ok {
		return
	}

	var req model.UpdateFormulaRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, handler.NewErrorResponse(err.Error()))
		return
	}

	f, err := h.prescription.UpdateFormula(c.Request.Context(), user.ID, id, &req)
	if err != nil {
		handler.Error(c, err)
		return
	}
	c.JSON(http.StatusOK, handler.NewSuccessResponse(f))
}

func (h *Handler) DeleteFormula(c *gin.Context) {
	user := handler.CurrentUser(c)
	if user == nil {
		c.JSON(http.StatusUnauthorized, handler.NewErrorResponse("authentication required"))
		return
	}

	id, ok := handler.ParseUUID(c, "id")
	if !ok {
		return
	}

	if err := h.prescription.DeleteFormula(c.Request.Context(), user.ID, id); err != nil {
		handler.Error(c, err)
		return
	}
	c.JSON(http.StatusOK, handler.NewSuccessResponse(nil))
}

func (h *Handler) CreateCertificate(c *gin.Context) {
	var req model.CreateCertificateRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, handler.NewErrorResponse(err.Error()))
		return
	}

	cert, err := h.svc.CreateCertificate(c.Request.Context(), handler.CurrentUserID(c), &req)
	if err != nil {
		handler.Error(c, err)
		return
	}
	c.JSON(http.StatusCreated, handler.NewSuccessResponse(cert))
}

func (h *Handler) ListCertificates(c *gin.Context) {
	if raw := c.Query("consultation_id"); raw != "" {
		consultationID, err := uuid.Parse(raw)
		if err != nil {
			c.JSON(http.StatusBadRequest, handler.NewErrorResponse("invalid consultation_id"))
			return
		}
		items, err := h.svc.ListCertificatesByConsultation(c.Request.Context(), consultationID)
		if err != nil {
			handler.Error(c, err)
			return
		}
		c.JSON(http.StatusOK, handler.NewSuccessResponse(items))
		return
	}

	var p model.Pagination
	if err := c.ShouldBindQuery(&p); err != nil {
		c.JSON(http.StatusBadRequest, handler.NewErrorResponse(err.Error()))
		return
	}

	items, total, err := h.svc.ListCertificates(c.Request.Context(), &p)
	if err != nil {
		handler.Error(c, err)
		return
	}
	c.JSON(http.StatusOK, handler.NewListResponse(items, p.Page, p.PageSize, total))
}

func (h *Handler) GetCertificate(c *gin.Context) {
	id, ok := handler.ParseUUID(c, "id")
	if !ok {
		return
	}

	cert, err := h.svc.GetCertificate(c.Request.Context(), id)
	if err != nil {
		handler.Error(c, err)
		return
	}
	c.JSON(http.StatusOK, handler.NewSuccessResponse(cert))
}

func (h *Handler) UpdateCertificate(c *gin.Context) {
	id, ok := handler.ParseUUID(c, "id")
	if !ok {
		return
	}

	var req model.UpdateCertificateRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, handler.NewErrorResponse(err.Error()))
		return
	}

	cert, err := h.svc.UpdateCertificate(c.Request.Context(), handler.CurrentUserID(c), id, &req)
	if err != nil {
		handler.Error(c, err)
		return
	}
	c.JSON(http.StatusOK, handler.NewSuccessResponse(cert))
}

func (h *Handler) DeleteCertificate(c *gin.Context) {
	id, ok := handler.ParseUUID(c, "id")
	if !ok {
		return
	}

	if err := h.svc.DeleteCertificate(c.Request.Context(), handler.CurrentUserID(c), id); err != nil {
		handler.Error(c, err)
		return
	}
	c.JSON(http.StatusOK, handler.NewSuccessResponse(nil))
}

func (h *Handler) PrintCertificate(c *gin.Context) {
	id, ok := handler.ParseUUID(c, "id")
	if !ok {
		return
	}

	cert, err := h.svc.RecordPrint(c.Request.Context(), id)
	if err != nil {
		handler.Error(c, err)
		return
	}
	c.JSON(http.StatusOK, handler.NewSuccessResponse(cert))
}

func (h *Handler) CreateTerm(c *gin.Context) {
	var req model.CreateDiagnosticTermRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, handler.NewErrorResponse(err.Error()))
		return
	}

	term, err := h.svc.CreateTerm(c.Request.Context(), &req)
	if err != nil {
		handler.Error(c, err)
		return
	}
	c.JSON(http.StatusCreated, handler.NewSuccessResponse(term))
}

func (h *Handler) ListTerms(c *gin.Context) {
	items, err := h.svc.ListTerms(c.Request.Context(), c.Query("category"))
	if err != nil {
		handler.Error(c, err)
		return
	}
	c.JSON(http.StatusOK, handler.NewSuccessResponse(items))
}

func (h *Handler) TermsByCategory(c *gin.Context) {
	grouped, err := h.svc.TermsByCategory(c.Request.Context())
	if err != nil {
		handler.Error(c, err)
		return
	}
	c.JSON(http.StatusOK, handler.NewSuccessResponse(grouped))
}

func (h *Handler) GetTerm(c *gin.Context) {
	id, ok := handler.ParseUUID(c, "id")
	if !ok {
		return
	}

	term, err := h.svc.GetTerm(c.Request.Context(), id)
	if err != nil {
		handler.Error(c, err)
		return
	}
	c.JSON(http.StatusOK, handler.NewSuccessResponse(term))
}

func (h *Handler) UpdateTerm(c *gin.Context) {
	id, ok := handler.ParseUUID(c, "id")
	if !ok {
		return
	}

	var req model.UpdateDiagnosticTermRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, handler.NewErrorResponse(err.Error()))
		return
	}

	term, err := h.svc.UpdateTerm(c.Request.Context(), id, &req)
	if err != nil {
		handler.Error(c, err)
		return
	}
	c.JSON(http.StatusOK, handler.NewSuccessResponse(term))
}

func (h *Handler) DeleteTerm(c *gin.Context) {
	id, ok := handler.ParseUUID(c, "id")
	if !ok {
		return
	}

	if err := h.svc.DeleteTerm(c.Request.Context(), id); err != nil {
		handler.Error(c, err)
		return
	}
	c.JSON(http.StatusOK, handler.NewSuccessResponse(nil))
}
