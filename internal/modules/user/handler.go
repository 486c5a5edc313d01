package user

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

func render(u *domain.User) any { return ToResponse(u) }

// Rules: every action requires a signed-in caller, with no ownership check.
var Rules = permission.Table[*domain.User]{
	permission.ActionList:          {Render: render, Allow: permission.IsAuthenticated},
	permission.ActionRetrieve:      {Render: render, Allow: permission.IsAuthenticated},
	permission.ActionCreate:        {Render: render, Allow: permission.IsAuthenticated},
	permission.ActionUpdate:        {Render: render, Allow: permission.IsAuthenticated},
	permission.ActionPartialUpdate: {Render: render, Allow: permission.IsAuthenticated},
	permission.ActionDestroy:       {Render: render, Allow: permission.IsAuthenticated},
}.MustCover(permission.CRUD...)

type Handler struct {
	service *Service
}

func NewHandler(service *Service) *Handler {
	return &Handler{service: service}
}

func (h *Handler) RegisterRoutes(rg *gin.RouterGroup) {
	users := rg.Group("/users")
	{
		users.GET("/", h.List)
		users.POST("/", h.Create)
		users.GET("/:id/", h.Retrieve)
		users.PUT("/:id/", h.Update)
		users.PATCH("/:id/", h.PartialUpdate)
		users.DELETE("/:id/", h.Destroy)
	}
}

func (h *Handler) List(c *gin.Context) {
	rule := Rules.For(permission.ActionList)
	if !middleware.Authorize(c, rule.Allow, nil) {
		return
	}
	limit, offset, err := params.Page(c)
	if err != nil {
		response.Error(c, http.StatusBadRequest, response.CodeValidation, err.Error())
		return
	}

	page := repository.Page{Limit: limit, Offset: offset}.Normalize()
	users, total, err := h.service.List(c.Request.Context(), page)
	if err != nil {
		h.fail(c, err)
		return
	}
	items := make([]*domain.User, 0, len(users))
	for i := range users {
		items = append(items, &users[i])
	}
	response.List(c, Rules.RenderAll(permission.ActionList, items), total, page.Limit, page.Offset)
}

func (h *Handler) Retrieve(c *gin.Context) {
	rule := Rules.For(permission.ActionRetrieve)
	u, ok := h.load(c, rule.Allow)
	if !ok {
		return
	}
	response.Success(c, http.StatusOK, rule.Render(u))
}

func (h *Handler) Create(c *gin.Context) {
	rule := Rules.For(permission.ActionCreate)
	if !middleware.Authorize(c, rule.Allow, nil) {
		return
	}
	var req CreateUserRequest
	if !bind(c, &req) {
		return
	}

	u, err := h.service.Create(c.Request.Context(), req)
	if err != nil {
		h.fail(c, err)
		return
	}
	response.Success(c, http.StatusCreated, rule.Render(u))
}

func (h *Handler) Update(c *gin.Context) {
	var req UpdateUserRequest
	h.update(c, permission.ActionUpdate, &req, func() PatchUserRequest { return req.patch() })
}

func (h *Handler) PartialUpdate(c *gin.Context) {
	var req PatchUserRequest
	h.update(c, permission.ActionPartialUpdate, &req, func() PatchUserRequest { return req })
}

func (h *Handler) update(c *gin.Context, action permission.Action, req any, patch func() PatchUserRequest) {
	rule := Rules.For(action)
	u, ok := h.load(c, rule.Allow)
	if !ok {
		return
	}
	if !bind(c, req) {
		return
	}

	updated, err := h.service.Update(c.Request.Context(), u.ID, patch())
	if err != nil {
		h.fail(c, err)
		return
	}
	response.Success(c, http.StatusOK, rule.Render(updated))
}

func (h *Handler) Destroy(c *gin.Context) {
	u, ok := h.load(c, Rules.For(permission.ActionDestroy).Allow)
	if !ok {
		return
	}
	if err := h.service.Delete(c.Request.Context(), u.ID); err != nil {
		h.fail(c, err)
		return
	}
	c.Status(http.StatusNoContent)
}

// load runs the collection check, fetches the user named in the path and
// runs the object check.
func (h *Handler) load(c *gin.Context, allow permission.Predicate) (*domain.User, bool) {
	if !middleware.Authorize(c, allow, nil) {
		return nil, false
	}
	id, err := params.ID(c, "id")
	if err != nil {
		response.Error(c, http.StatusNotFound, response.CodeNotFound, "User not found")
		return nil, false
	}
	u, err := h.service.Get(c.Request.Context(), id)
	if err != nil {
		h.fail(c, err)
		return nil, false
	}
	if !middleware.Authorize(c, allow, u) {
		return nil, false
	}
	return u, true
}

func bind(c *gin.Context, req any) bool {
	if err := c.ShouldBindJSON(req); err != nil {
		response.Error(c, http.StatusBadRequest, response.CodeValidation, "Invalid request body")
		return false
	}
	if errs := validator.Validate(req); errs != nil {
		response.ErrorWithDetails(c, http.StatusBadRequest, response.CodeValidation, "Invalid user data", errs)
		return false
	}
	return true
}

func (h *Handler) fail(c *gin.Context, err error) {
	switch {
	case errors.Is(err, ErrNotFound):
		response.Error(c, http.StatusNotFound, response.CodeNotFound, "User not found")
	case errors.Is(err, ErrUsernameTaken):
		response.Error(c, http.StatusConflict, response.CodeConflict, "A user with that username already exists")
	default:
		logger.FromContext(c.Request.Context()).Error("user request failed", zap.Error(err))
		response.Error(c, http.StatusInternalServerError, response.CodeInternal, "Internal server error")
	}
}
