package images

import (
	"net/http"
	"strconv"

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
	rg.GET("/images", h.listPending)
	rg.POST("/images", h.upload)
	rg.DELETE("/images/:id", middleware.Require(auth.PermissionDelete), h.delete)
	rg.POST("/images/:id/revert", h.revert)
}

// RegisterViewerRoutes expects rg to already require the view permission.
func (h *Handler) RegisterViewerRoutes(rg *gin.RouterGroup) {
	rg.GET("/images", h.listExported)
}

// RegisterStreamRoutes serves image bytes by row id or by storage key.
func (h *Handler) RegisterStreamRoutes(rg *gin.RouterGroup) {
	rg.GET("/:kind/:id", h.streamByID)
	rg.GET("/:kind/path/*key", h.streamByKey)
}

func (h *Handler) upload(c *gin.Context) {
	c.Request.Body = http.MaxBytesReader(c.Writer, c.Request.Body, 4*MaxUploadBytes)
	form, err := c.MultipartForm()
	if err != nil {
		respond.Failure(c, apperr.Invalid("file", "multipart form with a file field is required"))
		return
	}
	files := form.File["file"]
	if len(files) == 0 {
		respond.Failure(c, apperr.Invalid("file", "at least one file is required"))
		return
	}

	userID := middleware.UserIDFromContext(c)
	c.Set("contentDomain", string(domain))
	saved := make([]Image, 0, len(files))
	for _, fh := range files {
		f, err := fh.Open()
		if err != nil {
			respond.Failure(c, apperr.Invalid("file", "could not read upload"))
			return
		}
		img, err := h.Svc.Upload(c.Request.Context(), userID, fh.Filename, f)
		f.Close()
		if err != nil {
			respond.Failure(c, err)
			return
		}
		saved = append(saved, img)
	}
	if len(saved) == 1 {
		c.Set("contentId", saved[0].ID)
	}
	respond.Success(c, http.StatusCreated, "image saved", saved)
}

func (h *Handler) delete(c *gin.Context) {
	c.Set("contentDomain", string(domain))
	c.Set("contentId", c.Param("id"))
	if err := h.Svc.Delete(c.Request.Context(), middleware.UserIDFromContext(c), c.Param("id")); err != nil {
		respond.Failure(c, err)
		return
	}
	respond.Success(c, http.StatusOK, "image deleted", nil)
}

func (h *Handler) revert(c *gin.Context) {
	c.Set("contentDomain", string(domain))
	c.Set("contentId", c.Param("id"))
	c.Set("statusTransition", "exported->reverted")
	if err := h.Svc.Revert(c.Request.Context(), middleware.UserIDFromContext(c), c.Param("id")); err != nil {
		respond.Failure(c, err)
		return
	}
	respond.Success(c, http.StatusOK, "image reverted", nil)
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

func (h *Handler) streamByID(c *gin.Context) {
	b, err := h.Svc.Open(c.Request.Context(), middleware.UserIDFromContext(c), c.Param("kind"), c.Param("id"))
	if err != nil {
		respond.Failure(c, err)
		return
	}
	stream(c, b)
}

func (h *Handler) streamByKey(c *gin.Context) {
	b, err := h.Svc.OpenByKey(c.Request.Context(), middleware.UserIDFromContext(c), c.Param("kind"), c.Param("key"))
	if err != nil {
		respond.Failure(c, err)
		return
	}
	stream(c, b)
}

func stream(c *gin.Context, b Blob) {
	defer b.Body.Close()
	headers := map[string]string{
		"Cache-Control":          "private, max-age=3600",
		"X-Content-Type-Options": "nosniff",
		"Content-Disposition":    "inline; filename=" + strconv.Quote(b.FileName),
	}
	c.DataFromReader(http.StatusOK, b.Size, b.ContentType, b.Body, headers)
}
