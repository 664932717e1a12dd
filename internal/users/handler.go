package users

import (
	"errors"
	"net/http"

	"github.com/gin-gonic/gin"

	"content-dumper/internal/shared/server/middleware"
	"content-dumper/internal/shared/server/respond"
)

type Handler struct {
	Svc *Service
}

func NewHandler(svc *Service) *Handler {
	return &Handler{Svc: svc}
}

func (h *Handler) RegisterRoutes(rg *gin.RouterGroup) {
	rg.GET("/me", h.me)
}

// me answers from the session claims and enriches with the stored profile
// when one exists.
func (h *Handler) me(c *gin.Context) {
	userID := middleware.UserIDFromContext(c)
	if userID == "" {
		respond.Error(c, http.StatusUnauthorized, "unauthorized", "missing or invalid token")
		return
	}

	perms := middleware.PermissionsFromContext(c)
	if perms == nil {
		perms = []string{}
	}
	response := gin.H{
		"userId":      userID,
		"email":       middleware.UserEmailFromContext(c),
		"name":        middleware.UserNameFromContext(c),
		"picture":     middleware.UserPictureFromContext(c),
		"permissions": perms,
	}
	if h.Svc != nil {
		user, err := h.Svc.GetByID(c.Request.Context(), userID)
		switch {
		case err == nil:
			response["createdAt"] = user.CreatedAt
			response["lastSeenAt"] = user.LastSeenAt
		case errors.Is(err, ErrNotFound):
		default:
			respond.Error(c, http.StatusInternalServerError, "internal_error", "failed to load user")
			return
		}
	}
	respond.OK(c, response)
}
