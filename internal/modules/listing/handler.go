package listing

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

// KeyParam is the path parameter naming a listing. Nested routes reuse it.
const KeyParam = "slug"

var ownerWrites = permission.All(permission.IsAuthenticated, permission.IsOwnerOrReadOnly)

// Rules picks the representation and permission for each action. Retrieve
// is the only action rendered in detail.
var Rules = permission.Table[View]{
	permission.ActionList:          {Render: Summary, Allow: permission.AllowAny},
	permission.ActionRetrieve:      {Render: Detail, Allow: permission.AllowAny},
	permission.ActionCreate:        {Render: Summary, Allow: ownerWrites},
	permission.ActionUpdate:        {Render: Summary, Allow: ownerWrites},
	permission.ActionPartialUpdate: {Render: Summary, Allow: ownerWrites},
	permission.ActionDestroy:       {Render: Summary, Allow: ownerWrites},
}.MustCover(permission.CRUD...)

type Handler struct {
	service *Service
}

func NewHandler(service *Service) *Handler {
	return &Handler{service: service}
}

func (h *Handler) RegisterRoutes(rg *gin.RouterGroup) {
	listings := rg.Group("/listings")
	{
		listings.GET("/", h.List)
		listings.POST("/", h.Create)
		listings.GET("/:"+KeyParam+"/", h.Retrieve)
		listings.PUT("/:"+KeyParam+"/", h.Update)
		listings.PATCH("/:"+KeyParam+"/", h.PartialUpdate)
		listings.DELETE("/:"+KeyParam+"/", h.Destroy)
	}
}

// List returns listings, optionally filtered by ?location=, ?max_price= and ?owner=.
// @Summary  List listings
// @Param    location  query string false "case-insensitive substring"
// @Param    max_price query number false "upper bound on price per night"
// @Param    owner     query int    false "owner user id"
// @Router   /listings/ [GET]
func (h *Handler) List(c *gin.Context) {
	if !middleware.Authorize(c, Rules.For(permission.ActionList).Allow, nil) {
		return
	}

	f, err := filtersFromQuery(c)
	if err != nil {
		response.Error(c, http.StatusBadRequest, response.CodeValidation, err.Error())
		return
	}
	items, total, err := h.service.List(c.Request.Context(), f)
	if err != nil {
		h.fail(c, err)
		return
	}

	views := make([]View, 0, len(items))
	for i := range items {
		views = append(views, View{Listing: &items[i]})
	}
	response.List(c, Rules.RenderAll(permission.ActionList, views), total, f.Limit, f.Offset)
}

func (h *Handler) Retrieve(c *gin.Context) {
	rule := Rules.For(permission.ActionRetrieve)
	l, ok := h.load(c, rule.Allow)
	if !ok {
		return
	}
	v, err := h.service.Describe(c.Request.Context(), l)
	if err != nil {
		h.fail(c, err)
		return
	}
	response.Success(c, http.StatusOK, rule.Render(v))
}

// Create stores a listing owned by the caller; any owner in the body is ignored.
// @Summary  Create listing
// @Param    request body CreateListingRequest true "listing"
// @Router   /listings/ [POST]
func (h *Handler) Create(c *gin.Context) {
	rule := Rules.For(permission.ActionCreate)
	if !middleware.Authorize(c, rule.Allow, nil) {
		return
	}
	var req CreateListingRequest
	if !bind(c, &req) {
		return
	}

	l, err := h.service.Create(c.Request.Context(), middleware.CurrentPrincipal(c).UserID, req)
	if err != nil {
		h.fail(c, err)
		return
	}
	response.Success(c, http.StatusCreated, rule.Render(View{Listing: l}))
}

func (h *Handler) Update(c *gin.Context) {
	var req UpdateListingRequest
	h.update(c, permission.ActionUpdate, &req, func() PatchListingRequest { return req.patch() })
}

func (h *Handler) PartialUpdate(c *gin.Context) {
	var req PatchListingRequest
	h.update(c, permission.ActionPartialUpdate, &req, func() PatchListingRequest { return req })
}

func (h *Handler) update(c *gin.Context, action permission.Action, req any, patch func() PatchListingRequest) {
	rule := Rules.For(action)
	l, ok := h.load(c, rule.Allow)
	if !ok {
		return
	}
	if !bind(c, req) {
		return
	}

	updated, err := h.service.Update(c.Request.Context(), l, patch())
	if err != nil {
		h.fail(c, err)
		return
	}
	response.Success(c, http.StatusOK, rule.Render(View{Listing: updated}))
}

func (h *Handler) Destroy(c *gin.Context) {
	l, ok := h.load(c, Rules.For(permission.ActionDestroy).Allow)
	if !ok {
		return
	}
	if err := h.service.Delete(c.Request.Context(), l.ID); err != nil {
		h.fail(c, err)
		return
	}
	c.Status(http.StatusNoContent)
}

func (h *Handler) load(c *gin.Context, allow permission.Predicate) (*domain.Listing, bool) {
	if !middleware.Authorize(c, allow, nil) {
		return nil, false
	}
	l, err := h.service.Lookup(c.Request.Context(), c.Param(KeyParam))
	if err != nil {
		h.fail(c, err)
		return nil, false
	}
	if !middleware.Authorize(c, allow, l) {
		return nil, false
	}
	return l, true
}

func filtersFromQuery(c *gin.Context) (repository.ListingFilters, error) {
	limit, offset, err := params.Page(c)
	if err != nil {
		return repository.ListingFilters{}, err
	}
	maxPrice, err := params.Float(c, "max_price")
	if err != nil {
		return repository.ListingFilters{}, err
	}
	owner, err := params.Int64(c, "owner")
	if err != nil {
		return repository.ListingFilters{}, err
	}
	return repository.ListingFilters{
		Location: c.Query("location"),
		MaxPrice: maxPrice,
		OwnerID:  owner,
		Page:     repository.Page{Limit: limit, Offset: offset}.Normalize(),
	}, nil
}

func bind(c *gin.Context, req any) bool {
	if err := c.ShouldBindJSON(req); err != nil {
		response.Error(c, http.StatusBadRequest, response.CodeValidation, "Invalid request body")
		return false
	}
	if errs := validator.Validate(req); errs != nil {
		response.ErrorWithDetails(c, http.StatusBadRequest, response.CodeValidation, "Invalid listing data", errs)
		return false
	}
	return true
}

func (h *Handler) fail(c *gin.Context, err error) {
	switch {
	case errors.Is(err, ErrNotFound):
		response.Error(c, http.StatusNotFound, response.CodeNotFound, "Listing not found")
	case errors.Is(err, ErrSlugTaken):
		response.Error(c, http.StatusConflict, response.CodeConflict, "A listing with that slug already exists")
	case errors.Is(err, ErrInvalidSlug):
		response.ErrorWithDetails(c, http.StatusBadRequest, response.CodeValidation, "Invalid listing data",
			map[string]string{"slug": "slug"})
	default:
		logger.FromContext(c.Request.Context()).Error("listing request failed", zap.Error(err))
		response.Error(c, http.StatusInternalServerError, response.CodeInternal, "Internal server error")
	}
}
