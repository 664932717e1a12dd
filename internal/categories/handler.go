package categories

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"content-dumper/internal/shared/apperr"
	"content-dumper/internal/shared/auth"
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
	rg.POST("/categories", h.create)
	rg.GET("/categories", h.list)
	rg.DELETE("/categories/:id", middleware.Require(auth.PermissionDelete), h.delete)
}

func (h *Handler) create(c *gin.Context) {
	var in Input
	if err := c.ShouldBind(&in); err != nil {
		respond.Failure(c, apperr.Invalid("body", "invalid request body"))
		return
	}
	cat, err := h.Svc.Create(c.Request.Context(), middleware.UserIDFromContext(c), in)
	if err != nil {
		respond.Failure(c, err)
		return
	}
	respond.Success(c, http.StatusCreated, "category created", cat)
}

func (h *Handler) list(c *gin.Context) {
	out, err := h.Svc.List(c.Request.Context(), middleware.UserIDFromContext(c))
	if err != nil {
		respond.Failure(c, err)
		return
	}
	respond.OK(c, gin.H{"data": out})
}

func (h *Handler) delete(c *gin.Context) {
	c.Set("contentDomain", "categories")
	c.Set("contentId", c.Param("id"))
	if err := h.Svc.Delete(c.Request.Context(), middleware.UserIDFromContext(c), c.Param("id")); err != nil {
		respond.Failure(c, err)
		return
	}
	respond.Success(c, http.StatusOK, "category deleted", nil)
}
