package booking

import (
	"errors"
	"net/http"

	"travelapp/internal/domain"
	"travelapp/internal/middleware"
	"travelapp/internal/permission"
	"travelapp/internal/pkg/logger"
	"travelapp/internal/pkg/params"
	"travelapp/internal/pkg/response"
	"travelapp/internal/pkg/validator"
	"travelapp/internal/repository"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"
)

const (
	cancelledMessage      = "Booking cancelled"
	notCancellableMessage = "Booking cannot be cancelled"
)

var guestOnly = permission.All(permission.IsAuthenticated, permission.IsOwnerOrReadOnly)

var Rules = permission.Table[*domain.Booking]{
	permission.ActionList:          {Render: ToResponse, Allow: guestOnly},
	permission.ActionRetrieve:      {Render: ToResponse, Allow: guestOnly},
	permission.ActionCreate:        {Render: ToResponse, Allow: guestOnly},
	permission.ActionUpdate:        {Render: ToResponse, Allow: guestOnly},
	permission.ActionPartialUpdate: {Render: ToResponse, Allow: guestOnly},
	permission.ActionDestroy:       {Render: ToResponse, Allow: guestOnly},
	permission.ActionCancel:        {Render: ToResponse, Allow: guestOnly},
}.MustCover(permission.CRUD...).MustCover(permission.ActionCancel)

type Handler struct {
	service *Service
}

func NewHandler(service *Service) *Handler {
	return &Handler{service: service}
}

func (h *Handler) RegisterRoutes(rg *gin.RouterGroup) {
	bookings := rg.Group("/bookings")
	{
		bookings.GET("/", h.List)
		bookings.POST("/", h.Create)
		bookings.GET("/:id/", h.Retrieve)
		bookings.PUT("/:id/", h.Update)
		bookings.PATCH("/:id/", h.PartialUpdate)
		bookings.DELETE("/:id/", h.Destroy)
		bookings.POST("/:id/cancel/", h.Cancel)
	}
}

// List returns the caller's bookings only, optionally filtered by ?status=.
func (h *Handler) List(c *gin.Context) {
	if !middleware.Authorize(c, Rules.For(permission.ActionList).Allow, nil) {
		return
	}

	limit, offset, err := params.Page(c)
	if err != nil {
		response.Error(c, http.StatusBadRequest, response.CodeValidation, err.Error())
		return
	}
	f := repository.BookingFilters{
		Status: domain.BookingStatus(c.Query("status")),
		Page:   repository.Page{Limit: limit, Offset: offset}.Normalize(),
	}
	if f.Status != "" && !f.Status.Valid() {
		response.Error(c, http.StatusBadRequest, response.CodeValidation, "status must be one of pending, confirmed, cancelled")
		return
	}

	items, total, err := h.service.List(c.Request.Context(), middleware.CurrentPrincipal(c).UserID, f)
	if err != nil {
		h.fail(c, err)
		return
	}
	ptrs := make([]*domain.Booking, 0, len(items))
	for i := range items {
		ptrs = append(ptrs, &items[i])
	}
	response.List(c, Rules.RenderAll(permission.ActionList, ptrs), total, f.Limit, f.Offset)
}

func (h *Handler) Retrieve(c *gin.Context) {
	rule := Rules.For(permission.ActionRetrieve)
	b, ok := h.load(c, rule.Allow)
	if !ok {
		return
	}
	response.Success(c, http.StatusOK, rule.Render(b))
}

func (h *Handler) Create(c *gin.Context) {
	rule := Rules.For(permission.ActionCreate)
	if !middleware.Authorize(c, rule.Allow, nil) {
		return
	}
	var req CreateBookingRequest
	if !bind(c, &req) {
		return
	}

	b, err := h.service.Create(c.Request.Context(), middleware.CurrentPrincipal(c).UserID, req)
	if err != nil {
		h.fail(c, err)
		return
	}
	response.Success(c, http.StatusCreated, rule.Render(b))
}

func (h *Handler) Update(c *gin.Context) {
	var req UpdateBookingRequest
	h.update(c, permission.ActionUpdate, &req, func() PatchBookingRequest { return req.patch() })
}

func (h *Handler) PartialUpdate(c *gin.Context) {
	var req PatchBookingRequest
	h.update(c, permission.ActionPartialUpdate, &req, func() PatchBookingRequest { return req })
}

func (h *Handler) update(c *gin.Context, action permission.Action, req any, patch func() PatchBookingRequest) {
	rule := Rules.For(action)
	b, ok := h.load(c, rule.Allow)
	if !ok {
		return
	}
	if !bind(c, req) {
		return
	}

	updated, err := h.service.Update(c.Request.Context(), b, patch())
	if err != nil {
		h.fail(c, err)
		return
	}
	response.Success(c, http.StatusOK, rule.Render(updated))
}

func (h *Handler) Destroy(c *gin.Context) {
	b, ok := h.load(c, Rules.For(permission.ActionDestroy).Allow)
	if !ok {
		return
	}
	if err := h.service.Delete(c.Request.Context(), b.GuestID, b.ID); err != nil {
		h.fail(c, err)
		return
	}
	c.Status(http.StatusNoContent)
}

// Cancel moves a confirmed booking to cancelled.
// @Summary  Cancel booking
// @Success  200 {object} map[string]string
// @Failure  400 {object} map[string]string
// @Failure  404 {object} map[string]interface{}
// @Router   /bookings/{id}/cancel/ [POST]
func (h *Handler) Cancel(c *gin.Context) {
	b, ok := h.load(c, Rules.For(permission.ActionCancel).Allow)
	if !ok {
		return
	}

	if _, err := h.service.Cancel(c.Request.Context(), b.GuestID, b.ID); err != nil {
		if errors.Is(err, ErrNotCancellable) {
			c.JSON(http.StatusBadRequest, gin.H{"error": notCancellableMessage})
			return
		}
		h.fail(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"status": cancelledMessage})
}

// load resolves the path id inside the caller's own bookings, so another
// guest's booking is a 404 rather than a 403.
func (h *Handler) load(c *gin.Context, allow permission.Predicate) (*domain.Booking, bool) {
	if !middleware.Authorize(c, allow, nil) {
		return nil, false
	}
	id, err := params.ID(c, "id")
	if err != nil {
		response.Error(c, http.StatusNotFound, response.CodeNotFound, "Booking not found")
		return nil, false
	}
	b, err := h.service.Get(c.Request.Context(), middleware.CurrentPrincipal(c).UserID, id)
	if err != nil {
		h.fail(c, err)
		return nil, false
	}
	if !middleware.Authorize(c, allow, b) {
		return nil, false
	}
	return b, true
}

func bind(c *gin.Context, req any) bool {
	if err := c.ShouldBindJSON(req); err != nil {
		response.Error(c, http.StatusBadRequest, response.CodeValidation, "Invalid request body")
		return false
	}
	if errs := validator.Validate(req); errs != nil {
		response.ErrorWithDetails(c, http.StatusBadRequest, response.CodeValidation, "Invalid booking data", errs)
		return false
	}
	return true
}

func (h *Handler) fail(c *gin.Context, err error) {
	switch {
	case errors.Is(err, ErrNotFound):
		response.Error(c, http.StatusNotFound, response.CodeNotFound, "Booking not found")
	case errors.Is(err, ErrListingNotFound):
		response.ErrorWithDetails(c, http.StatusBadRequest, response.CodeValidation, "Invalid booking data",
			map[string]string{"listing": "does_not_exist"})
	case errors.Is(err, ErrInvalidDates):
		response.ErrorWithDetails(c, http.StatusBadRequest, response.CodeValidation, "Invalid booking data",
			map[string]string{"check_out": "after_check_in"})
	case errors.Is(err, ErrTooManyGuests):
		response.ErrorWithDetails(c, http.StatusBadRequest, response.CodeValidation, "Invalid booking data",
			map[string]string{"guests": "max_guests"})
	case errors.Is(err, ErrStatusChange):
		response.ErrorWithDetails(c, http.StatusBadRequest, response.CodeValidation, "Invalid booking data",
			map[string]string{"status": "use_cancel_action"})
	case errors.Is(err, ErrOverlap):
		response.Error(c, http.StatusConflict, response.CodeConflict, "The listing is already booked for these dates")
	default:
		logger.FromContext(c.Request.Context()).Error("booking request failed", zap.Error(err))
		response.Error(c, http.StatusInternalServerError, response.CodeInternal, "Internal server error")
	}
}
