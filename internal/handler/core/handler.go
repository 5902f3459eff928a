package core

import (
	"net/http"
	"strconv"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"

	"github.com/tcmflow/clinic-api/internal/handler"
	"github.com/tcmflow/clinic-api/internal/middleware"
	"github.com/tcmflow/clinic-api/internal/model"
	"github.com/tcmflow/clinic-api/internal/service/audit"
	"github.com/tcmflow/clinic-api/internal/service/clinic"
	"github.com/tcmflow/clinic-api/internal/service/user"
)

type Handler struct {
	userSvc   *user.Service
	clinicSvc *clinic.Service
	auditSvc  *audit.Service
}

func NewHandler(userSvc *user.Service, clinicSvc *clinic.Service, auditSvc *audit.Service) *Handler {
	return &Handler{
		userSvc:   userSvc,
		clinicSvc: clinicSvc,
		auditSvc:  auditSvc,
	}
}

func (h *Handler) RegisterRoutes(r *gin.RouterGroup) {
	core := r.Group("/core")
	{
		core.GET("/me", h.Me)
		core.PATCH("/me", h.UpdateMe)

		users := core.Group("/users")
		{
			users.POST("", middleware.RequireRole(), h.CreateUser)
			users.GET("", h.ListUsers)
			users.GET("/doctors", h.ListDoctors)
			users.GET("/:id", h.GetUser)
			users.PUT("/:id", middleware.RequireRole(), h.UpdateUser)
		}

		rooms := core.Group("/rooms")
		{
			rooms.POST("", middleware.RequireRole(), h.CreateRoom)
			rooms.GET("", h.ListRooms)
			rooms.GET("/:id", h.GetRoom)
			rooms.PUT("/:id", middleware.RequireRole(), h.UpdateRoom)
			rooms.DELETE("/:id", middleware.RequireRole(), h.DeleteRoom)
		}

		schedules := core.Group("/schedules")
		{
			schedules.POST("", middleware.RequireRole(), h.CreateSchedule)
			schedules.GET("", h.ListSchedules)
			schedules.GET("/:id", h.GetSchedule)
			schedules.PUT("/:id", middleware.RequireRole(), h.UpdateSchedule)
			schedules.DELETE("/:id", middleware.RequireRole(), h.DeleteSchedule)
		}

		core.GET("/clinic-settings", h.GetSettings)
		core.PUT("/clinic-settings", middleware.RequireRole(), h.UpdateSettings)

		core.GET("/audit-logs", middleware.RequireRole(), h.ListAuditLogs)
	}
}

func (h *Handler) Me(c *gin.Context) {
	c.JSON(http.StatusOK, handler.NewSuccessResponse(handler.CurrentUser(c)))
}

// UpdateMe lets a user edit their own profile. Role and active status
// stay admin-only even here.
func (h *Handler) UpdateMe(c *gin.Context) {
	current := handler.CurrentUser(c)

	var req model.UpdateUserRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, handler.NewErrorResponse(err.Error()))
		return
	}
	if !current.IsAdmin() {
		req.Role = nil
		req.IsActive = nil
	}

	updated, err := h.userSvc.UpdateUser(c.Request.Context(), handler.CurrentUserID(c), current.ID, &req)
	if err != nil {
		handler.Error(c, err)
		return
	}
	c.JSON(http.StatusOK, handler.NewSuccessResponse(updated))
}

func (h *Handler) CreateUser(c *gin.Context) {
	var req model.CreateUserRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, handler.NewErrorResponse(err.Error()))
		return
	}

	created, err := h.userSvc.CreateUser(c.Request.Context(), handler.CurrentUserID(c), &req)
	if err != nil {
		handler.Error(c, err)
		return
	}
	c.JSON(http.StatusCreated, handler.NewSuccessResponse(created))
}

// ListUsers returns all users for admins; everyone else sees only
// themselves.
func (h *Handler) ListUsers(c *gin.Context) {
	current := handler.CurrentUser(c)
	if !current.IsAdmin() {
		c.JSON(http.StatusOK, handler.NewSuccessResponse([]*model.User{current}))
		return
	}

	users, err := h.userSvc.ListUsers(c.Request.Context())
	if err != nil {
		handler.Error(c, err)
		return
	}
	c.JSON(http.StatusOK, handler.NewSuccessResponse(users))
}

func (h *Handler) ListDoctors(c *gin.Context) {
	doctors, err := h.userSvc.ListDoctors(c.Request.Context())
	if err != nil {
		handler.Error(c, err)
		return
	}
	c.JSON(http.StatusOK, handler.NewSuccessResponse(doctors))
}

func (h *Handler) GetUser(c *gin.Context) {
	id, ok := handler.ParseUUID(c, "id")
	if !ok {
		return
	}

	current := handler.CurrentUser(c)
	if !current.IsAdmin() && current.ID != id {
		c.JSON(http.StatusForbidden, handler.NewErrorResponse("permission denied"))
		return
	}

	u, err := h.userSvc.GetUser(c.Request.Context(), id)
	if err != nil {
		handler.Error(c, err)
		return
	}
	c.JSON(http.StatusOK, handler.NewSuccessResponse(u))
}

func (h *Handler) UpdateUser(c *gin.Context) {
	id, ok := handler.ParseUUID(c, "id")
	if !ok {
		return
	}

	var req model.UpdateUserRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, handler.NewErrorResponse(err.Error()))
		return
	}

	updated, err := h.userSvc.UpdateUser(c.Request.Context(), handler.CurrentUserID(c), id, &req)
	if err != nil {
		handler.Error(c, err)
		return
	}
	c.JSON(http.StatusOK, handler.NewSuccessResponse(updated))
}

func (h *Handler) CreateRoom(c *gin.Context) {
	var req model.CreateRoomRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, handler.NewErrorResponse(err.Error()))
		return
	}

	room, err := h.clinicSvc.CreateRoom(c.Request.Context(), &req)
	if err != nil {
		handler.Error(c, err)
		return
	}
	c.JSON(http.StatusCreated, handler.NewSuccessResponse(room))
}

func (h *Handler) ListRooms(c *gin.Context) {
	rooms, err := h.clinicSvc.ListRooms(c.Request.Context())
	if err != nil {
		handler.Error(c, err)
		return
	}
	c.JSON(http.StatusOK, handler.NewSuccessResponse(rooms))
}

func (h *Handler) GetRoom(c *gin.Context) {
	id, ok := handler.ParseUUID(c, "id")
	if !ok {
		return
	}

	room, err := h.clinicSvc.GetRoom(c.Request.Context(), id)
	if err != nil {
		handler.Error(c, err)
		return
	}
	c.JSON(http.StatusOK, handler.NewSuccessResponse(room))
}

func (h *Handler) UpdateRoom(c *gin.Context) {
	id, ok := handler.ParseUUID(c, "id")
	if !ok {
		return
	}

	var req model.UpdateRoomRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, handler.NewErrorResponse(err.Error()))
		return
	}

	room, err := h.clinicSvc.UpdateRoom(c.Request.Context(), id, &req)
	if err != nil {
		handler.Error(c, err)
		return
	}
	c.JSON(http.StatusOK, handler.NewSuccessResponse(room))
}

func (h *Handler) DeleteRoom(c *gin.Context) {
	id, ok := handler.ParseUUID(c, "id")
	if !ok {
		return
	}

	if err := h.clinicSvc.DeleteRoom(c.Request.Context(), id); err != nil {
		handler.Error(c, err)
		return
	}
	c.JSON(http.StatusOK, handler.NewSuccessResponse(gin.H{"detail": "room deleted"}))
}

func (h *Handler) CreateSchedule(c *gin.Context) {
	var req model.CreateScheduleRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, handler.NewErrorResponse(err.Error()))
		return
	}

	schedule, err := h.clinicSvc.CreateSchedule(c.Request.Context(), &req)
	if err != nil {
		handler.Error(c, err)
		return
	}
	c.JSON(http.StatusCreated, handler.NewSuccessResponse(schedule))
}

func (h *Handler) ListSchedules(c *gin.Context) {
	var doctorID *uuid.UUID
	if raw := c.Query("doctor_id"); raw != "" {
		id, err := uuid.Parse(raw)
		if err != nil {
			c.JSON(http.StatusBadRequest, handler.NewErrorResponse("invalid doctor_id"))
			return
		}
		doctorID = &id
	}

	schedules, err := h.clinicSvc.ListSchedules(c.Request.Context(), doctorID)
	if err != nil {
		handler.Error(c, err)
		return
	}
	c.JSON(http.StatusOK, handler.NewSuccessResponse(schedules))
}

func (h *Handler) GetSchedule(c *gin.Context) {
	id, ok := handler.ParseUUID(c, "id")
	if !ok {
		return
	}

	schedule, err := h.clinicSvc.GetSchedule(c.Request.Context(), id)
	if err != nil {
		handler.Error(c, err)
		return
	}
	c.JSON(http.StatusOK, handler.NewSuccessResponse(schedule))
}

func (h *Handler) UpdateSchedule(c *gin.Context) {
	id, ok := handler.ParseUUID(c, "id")
	if !ok {
		return
	}

	var req model.UpdateScheduleRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, handler.NewErrorResponse(err.Error()))
		return
	}

	schedule, err := h.clinicSvc.UpdateSchedule(c.Request.Context(), id, &req)
	if err != nil {
		handler.Error(c, err)
		return
	}
	c.JSON(http.StatusOK, handler.NewSuccessResponse(schedule))
}

func (h *Handler) DeleteSchedule(c *gin.Context) {
	id, ok := handler.ParseUUID(c, "id")
	if !ok {
		return
	}

	if err := h.clinicSvc.DeleteSchedule(c.Request.Context(), id); err != nil {
		handler.Error(c, err)
		return
	}
	c.JSON(http.StatusOK, handler.NewSuccessResponse(gin.H{"detail": "schedule deleted"}))
}

func (h *Handler) GetSettings(c *gin.Context) {
	settings, err := h.clinicSvc.GetSettings(c.Request.Context())
	if err != nil {
		handler.Error(c, err)
		return
	}
	c.JSON(http.StatusOK, handler.NewSuccessResponse(settings))
}

func (h *Handler) UpdateSettings(c *gin.Context) {
	var req model.UpdateClinicSettingsRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, handler.NewErrorResponse(err.Error()))
		return
	}

	settings, err := h.clinicSvc.UpdateSettings(c.Request.Context(), handler.CurrentUserID(c), &req)
	if err != nil {
		handler.Error(c, err)
		return
	}
	c.JSON(http.StatusOK, handler.NewSuccessResponse(settings))
}

func (h *Handler) ListAuditLogs(c *gin.Context) {
	var entityID *uuid.UUID
	if raw := c.Query("entity_id"); raw != "" {
		id, err := uuid.Parse(raw)
		if err != nil {
			c.JSON(http.StatusBadRequest, handler.NewErrorResponse("invalid entity_id"))
			return
		}
		entityID = &id
	}
	limit, _ := strconv.Atoi(c.Query("limit"))

	entries, err := h.auditSvc.List(c.Request.Context(), c.Query("entity_type"), entityID, limit)
	if err != nil {
		handler.Error(c, err)
		return
	}
	c.JSON(http.StatusOK, handler.NewSuccessResponse(entries))
}
