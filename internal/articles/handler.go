package articles

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"content-dumper/internal/shared/apperr"
	"content-dumper/internal/shared/auth"
	"content-dumper/internal/shared/pagination"
	"content-dumper/internal/shared/server/middleware"
	"content-dumper/internal/shared/server/respond"
)

type Handler struct {
	Svc *Service
}

func NewHandler(svc *Service) *Handler {
	return &Handler{Svc: svc}
}

// RegisterDumperRoutes expects rg to already require the dump permission.
func (h *Handler) RegisterDumperRoutes(rg *gin.RouterGroup) {
	rg.GET("/articles", h.listPending)
	rg.POST("/articles", h.create)
	rg.PUT("/articles/:id", h.update)
	rg.DELETE("/articles/:id", middleware.Require(auth.PermissionDelete), h.delete)
	rg.POST("/articles/:id/revert", h.revert)
}

// RegisterViewerRoutes expects rg to already require the view permission.
func (h *Handler) RegisterViewerRoutes(rg *gin.RouterGroup) {
	rg.GET("/articles", h.listExported)
}

func (h *Handler) create(c *gin.Context) {
	var in Input
	if err := c.ShouldBind(&in); err != nil {
		respond.Failure(c, apperr.Invalid("body", "invalid request body"))
		return
	}
	a, err := h.Svc.Create(c.Request.Context(), middleware.UserIDFromContext(c), in)
	if err != nil {
		respond.Failure(c, err)
		return
	}
	c.Set("contentDomain", string(domain))
	c.Set("contentId", a.ID)
	respond.Success(c, http.StatusCreated, "article saved", a)
}

func (h *Handler) update(c *gin.Context) {
	var in Input
	if err := c.ShouldBind(&in); err != nil {
		respond.Failure(c, apperr.Invalid("body", "invalid request body"))
		return
	}
	c.Set("contentDomain", string(domain))
	c.Set("contentId", c.Param("id"))
	a, err := h.Svc.Update(c.Request.Context(), middleware.UserIDFromContext(c), c.Param("id"), in)
	if err != nil {
		respond.Failure(c, err)
		return
	}
	respond.Success(c, http.StatusOK, "article updated", a)
}

func (h *Handler) delete(c *gin.Context) {
	c.Set("contentDomain", string(domain))
	c.Set("contentId", c.Param("id"))
	if err := h.Svc.Delete(c.Request.Context(), middleware.UserIDFromContext(c), c.Param("id")); err != nil {
		respond.Failure(c, err)
		return
	}
	respond.Success(c, http.StatusOK, "article deleted", nil)
}

func (h *Handler) revert(c *gin.Context) {
	c.Set("contentDomain", string(domain))
	c.Set("contentId", c.Param("id"))
	c.Set("statusTransition", "exported->reverted")
	if err := h.Svc.Revert(c.Request.Context(), middleware.UserIDFromContext(c), c.Param("id")); err != nil {
		respond.Failure(c, err)
		return
	}
	respond.Success(c, http.StatusOK, "article reverted", nil)
}

func (h *Handler) listPending(c *gin.Context) {
	p, err := pagination.Parse(c)
	if err != nil {
		respond.Failure(c, err)
		return
	}
	page, err := h.Svc.ListPending(c.Request.Context(), middleware.UserIDFromContext(c), p)
	if err != nil {
		respond.Failure(c, err)
		return
	}
	respond.OK(c, pagination.NewResponse(page.Items, p, page.Total))
}

func (h *Handler) listExported(c *gin.Context) {
	p, err := pagination.Parse(c)
	if err != nil {
		respond.Failure(c, err)
		return
	}
	page, err := h.Svc.ListExported(c.Request.Context(), middleware.UserIDFromContext(c), p)
	if err != nil {
		respond.Failure(c, err)
		return
	}
	respond.OK(c, pagination.NewResponse(page.Items, p, page.Total))
}
