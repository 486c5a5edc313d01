package review

import (
	"errors"
	"net/http"

	"travelapp/internal/domain"
	"travelapp/internal/middleware"
	"travelapp/internal/modules/listing"
	"travelapp/internal/permission"
	"travelapp/internal/pkg/logger"
	"travelapp/internal/pkg/params"
	"travelapp/internal/pkg/response"
	"travelapp/internal/pkg/validator"
	"travelapp/internal/repository"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"
)

// ListingSlugKey is the context key under which the parent listing slug is
// handed to every review action.
const ListingSlugKey = "listing_slug"

// Anyone may read; only signed-in authors may write their own reviews.
var readOrAuthor = permission.All(permission.IsAuthenticatedOrReadOnly, permission.IsOwnerOrReadOnly)

var Rules = permission.Table[*domain.Review]{
	permission.ActionList:          {Render: ToResponse, Allow: readOrAuthor},
	permission.ActionRetrieve:      {Render: ToResponse, Allow: readOrAuthor},
	permission.ActionCreate:        {Render: ToResponse, Allow: readOrAuthor},
	permission.ActionUpdate:        {Render: ToResponse, Allow: readOrAuthor},
	permission.ActionPartialUpdate: {Render: ToResponse, Allow: readOrAuthor},
	permission.ActionDestroy:       {Render: ToResponse, Allow: readOrAuthor},
}.MustCover(permission.CRUD...)

type Handler struct {
	service *Service
}

func NewHandler(service *Service) *Handler {
	return &Handler{service: service}
}

// RegisterRoutes mounts reviews under /listings/:slug/reviews. The parent
// wildcard shares its name with the listing routes, as the router requires.
func (h *Handler) RegisterRoutes(rg *gin.RouterGroup) {
	reviews := rg.Group("/listings/:"+listing.KeyParam+"/reviews", ScopeListing(listing.KeyParam))
	{
		reviews.GET("/", h.List)
		reviews.POST("/", h.Create)
		reviews.GET("/:id/", h.Retrieve)
		reviews.PUT("/:id/", h.Update)
		reviews.PATCH("/:id/", h.PartialUpdate)
		reviews.DELETE("/:id/", h.Destroy)
	}
}

// ScopeListing copies the parent slug from the path into ListingSlugKey.
func ScopeListing(param string) gin.HandlerFunc {
	return func(c *gin.Context) {
		c.Set(ListingSlugKey, c.Param(param))
		c.Next()
	}
}

func (h *Handler) List(c *gin.Context) {
	if !middleware.Authorize(c, Rules.For(permission.ActionList).Allow, nil) {
		return
	}
	parent, ok := h.parent(c)
	if !ok {
		return
	}
	limit, offset, err := params.Page(c)
	if err != nil {
		response.Error(c, http.StatusBadRequest, response.CodeValidation, err.Error())
		return
	}

	page := repository.Page{Limit: limit, Offset: offset}.Normalize()
	items, total, err := h.service.List(c.Request.Context(), parent, page)
	if err != nil {
		h.fail(c, err)
		return
	}
	ptrs := make([]*domain.Review, 0, len(items))
	for i := range items {
		ptrs = append(ptrs, &items[i])
	}
	response.List(c, Rules.RenderAll(permission.ActionList, ptrs), total, page.Limit, page.Offset)
}

func (h *Handler) Retrieve(c *gin.Context) {
	rule := Rules.For(permission.ActionRetrieve)
	r, ok := h.load(c, rule.Allow)
	if !ok {
		return
	}
	response.Success(c, http.StatusOK, rule.Render(r))
}

func (h *Handler) Create(c *gin.Context) {
	rule := Rules.For(permission.ActionCreate)
	if !middleware.Authorize(c, rule.Allow, nil) {
		return
	}
	parent, ok := h.parent(c)
	if !ok {
		return
	}
	var req CreateReviewRequest
	if !bind(c, &req) {
		return
	}

	r, err := h.service.Create(c.Request.Context(), parent, middleware.CurrentPrincipal(c).UserID, req)
	if err != nil {
		h.fail(c, err)
		return
	}
	response.Success(c, http.StatusCreated, rule.Render(r))
}

func (h *Handler) Update(c *gin.Context) {
	var req UpdateReviewRequest
	h.update(c, permission.ActionUpdate, &req, func() PatchReviewRequest { return req.patch() })
}

func (h *Handler) PartialUpdate(c *gin.Context) {
	var req PatchReviewRequest
	h.update(c, permission.ActionPartialUpdate, &req, func() PatchReviewRequest { return req })
}

func (h *Handler) update(c *gin.Context, action permission.Action, req any, patch func() PatchReviewRequest) {
	rule := Rules.For(action)
	r, ok := h.load(c, rule.Allow)
	if !ok {
		return
	}
	if !bind(c, req) {
		return
	}

	updated, err := h.service.Update(c.Request.Context(), r, patch())
	if err != nil {
		h.fail(c, err)
		return
	}
	response.Success(c, http.StatusOK, rule.Render(updated))
}

func (h *Handler) Destroy(c *gin.Context) {
	r, ok := h.load(c, Rules.For(permission.ActionDestroy).Allow)
	if !ok {
		return
	}
	if err := h.service.Delete(c.Request.Context(), r); err != nil {
		h.fail(c, err)
		return
	}
	c.Status(http.StatusNoContent)
}

func (h *Handler) parent(c *gin.Context) (*domain.Listing, bool) {
	l, err := h.service.Listing(c.Request.Context(), c.GetString(ListingSlugKey))
	if err != nil {
		h.fail(c, err)
		return nil, false
	}
	return l, true
}

func (h *Handler) load(c *gin.Context, allow permission.Predicate) (*domain.Review, bool) {
	if !middleware.Authorize(c, allow, nil) {
		return nil, false
	}
	parent, ok := h.parent(c)
	if !ok {
		return nil, false
	}
	id, err := params.ID(c, "id")
	if err != nil {
		response.Error(c, http.StatusNotFound, response.CodeNotFound, "Review not found")
		return nil, false
	}
	r, err := h.service.Get(c.Request.Context(), parent, id)
	if err != nil {
		h.fail(c, err)
		return nil, false
	}
	if !middleware.Authorize(c, allow, r) {
		return nil, false
	}
	return r, true
}

func bind(c *gin.Context, req any) bool {
	if err := c.ShouldBindJSON(req); err != nil {
		response.Error(c, http.StatusBadRequest, response.CodeValidation, "Invalid request body")
		return false
	}
	if errs := validator.Validate(req); errs != nil {
		response.ErrorWithDetails(c, http.StatusBadRequest, response.CodeValidation, "Invalid review data", errs)
		return false
	}
	return true
}

func (h *Handler) fail(c *gin.Context, err error) {
	switch {
	case errors.Is(err, ErrNotFound):
		response.Error(c, http.StatusNotFound, response.CodeNotFound, "Review not found")
	case errors.Is(err, ErrListingNotFound):
		response.Error(c, http.StatusNotFound, response.CodeNotFound, "Listing not found")
	case errors.Is(err, ErrAlreadyReviewed):
		response.Error(c, http.StatusConflict, response.CodeConflict, "You have already reviewed this listing")
	default:
		logger.FromContext(c.Request.Context()).Error("review request failed", zap.Error(err))
		response.Error(c, http.StatusInternalServerError, response.CodeInternal, "Internal server error")
	}
}
