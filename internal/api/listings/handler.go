package listings

import (
	"encoding/json"
	"errors"
	"io"
	"net/http"
	"strconv"

	"realestate-app/internal/api/respond"
	"realestate-app/internal/apperr"
	"realestate-app/internal/listings"

	"github.com/gin-gonic/gin"
)

// Handler serves the public, read-only listing endpoints.
type Handler struct {
	Engine      *listings.Engine
	MaxPageSize int
}

func NewHandler(engine *listings.Engine, maxPageSize int) *Handler {
	return &Handler{Engine: engine, MaxPageSize: maxPageSize}
}

// POST /api/objects
func (h *Handler) ListObjects(c *gin.Context) {
	var req listings.FilterRequest
	if err := c.ShouldBindJSON(&req); err != nil && !errors.Is(err, io.EOF) {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Malformed JSON"})
		return
	}

	plan, err := listings.Compile(req, h.MaxPageSize)
	if err != nil {
		respond.Error(c, err)
		return
	}

	page, err := h.Engine.ListPage(c.Request.Context(), plan)
	if err != nil {
		respond.Error(c, err)
		return
	}
	c.JSON(http.StatusOK, page)
}

// GET /api/objects/:id
func (h *Handler) GetObject(c *gin.Context) {
	id, ok := parseID(c, "Object not found")
	if !ok {
		return
	}

	detail, err := h.Engine.GetByID(c.Request.Context(), id)
	if err != nil {
		respond.Error(c, err)
		return
	}
	c.JSON(http.StatusOK, detail)
}

// POST /api/objects/favorites
func (h *Handler) ShortInfo(c *gin.Context) {
	var body struct {
		ObjectIDs json.RawMessage `json:"object_ids"`
	}
	if err := c.ShouldBindJSON(&body); err != nil && !errors.Is(err, io.EOF) {
		respond.Error(c, apperr.Invalid("Invalid object_ids. It should be a list of integers."))
		return
	}

	ids, err := listings.ParseObjectIDs(body.ObjectIDs)
	if err != nil {
		respond.Error(c, err)
		return
	}

	objects, err := h.Engine.ShortInfoBatch(c.Request.Context(), ids)
	if err != nil {
		respond.Error(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"objects": objects})
}

// GET /api/photos/:id
func (h *Handler) GetPhoto(c *gin.Context) {
	id, ok := parseID(c, "Photo not found")
	if !ok {
		return
	}

	photo, payload, err := h.Engine.GetPhoto(c.Request.Context(), id)
	if err != nil {
		respond.Error(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{
		"photo_id":     photo.ID,
		"file_path":    photo.FilePath,
		"image_base64": payload.ImageBase64,
	})
}

// parseID answers 404 for ids that are not positive integers, as an
// unmatched route would.
func parseID(c *gin.Context, notFound string) (uint, bool) {
	id, err := strconv.ParseUint(c.Param("id"), 10, 32)
	if err != nil || id == 0 {
		c.JSON(http.StatusNotFound, gin.H{"error": notFound})
		return 0, false
	}
	return uint(id), true
}
