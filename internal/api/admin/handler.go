package admin

import (
	"fmt"
	"mime/multipart"
	"net/http"
	"net/url"
	"strconv"

	"realestate-app/internal/api/respond"
	"realestate-app/internal/listings"
	"realestate-app/internal/logging"

	"github.com/gin-gonic/gin"
)

// Handler serves the admin-only listing mutations. Routes using it must sit
// behind AuthMiddleware and RequireRole("admin").
type Handler struct {
	Engine *listings.Engine
}

func NewHandler(engine *listings.Engine) *Handler {
	return &Handler{Engine: engine}
}

// POST /admin/add-object-with-photos
func (h *Handler) AddObjectWithPhotos(c *gin.Context) {
	form, err := c.MultipartForm()
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Request must be multipart/form-data"})
		return
	}

	uploads, closeAll, err := openUploads(form.File["photos"])
	defer closeAll()
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	created, err := h.Engine.Create(c.Request.Context(), url.Values(form.Value), uploads)
	if err != nil {
		respond.Error(c, err)
		return
	}

	logging.FromContext(c.Request.Context()).Info("object created",
		"object_id", created.ObjectID,
		"photos", len(created.PhotoIDs),
		"admin_id", c.GetUint("admin_id"),
	)
	c.JSON(http.StatusCreated, gin.H{
		"message":   "Object and photos added successfully",
		"object_id": created.ObjectID,
		"photo_ids": created.PhotoIDs,
	})
}

// POST /admin/objects/:id/photos
func (h *Handler) AddPhoto(c *gin.Context) {
	id, ok := objectID(c)
	if !ok {
		return
	}

	fh, err := c.FormFile("photo")
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "No photo in the request"})
		return
	}
	uploads, closeAll, err := openUploads([]*multipart.FileHeader{fh})
	defer closeAll()
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}
	if len(uploads) == 0 {
		c.JSON(http.StatusBadRequest, gin.H{"error": "No photo in the request"})
		return
	}

	photo, err := h.Engine.AppendPhoto(c.Request.Context(), id, uploads[0])
	if err != nil {
		respond.Error(c, err)
		return
	}

	c.JSON(http.StatusCreated, gin.H{
		"message":   "Photo added successfully",
		"photo_id":  photo.ID,
		"file_path": photo.FilePath,
	})
}

// PATCH /admin/change-status/:id
func (h *Handler) ChangeStatus(c *gin.Context) {
	id, ok := objectID(c)
	if !ok {
		return
	}

	alreadySold, err := h.Engine.MarkSold(c.Request.Context(), id)
	if err != nil {
		respond.Error(c, err)
		return
	}
	if alreadySold {
		c.JSON(http.StatusOK, gin.H{"message": "Object is already sold"})
		return
	}

	logging.FromContext(c.Request.Context()).Info("object sold", "object_id", id, "admin_id", c.GetUint("admin_id"))
	c.JSON(http.StatusOK, gin.H{"message": fmt.Sprintf("Object %d status changed to 'sold'", id)})
}

func objectID(c *gin.Context) (uint, bool) {
	id, err := strconv.ParseUint(c.Param("id"), 10, 32)
	if err != nil || id == 0 {
		c.JSON(http.StatusNotFound, gin.H{"error": "Object not found"})
		return 0, false
	}
	return uint(id), true
}

// openUploads opens every file header. The returned func closes whatever was
// opened and is safe to call even when err is non-nil.
func openUploads(headers []*multipart.FileHeader) ([]listings.Upload, func(), error) {
	var files []multipart.File
	closeAll := func() {
		for _, f := range files {
			f.Close()
		}
	}

	uploads := make([]listings.Upload, 0, len(headers))
	for _, fh := range headers {
		if fh.Filename == "" {
			continue
		}
		f, err := fh.Open()
		if err != nil {
			return nil, closeAll, fmt.Errorf("cannot open file %s", fh.Filename)
		}
		files = append(files, f)
		uploads = append(uploads, listings.Upload{
			Filename:    fh.Filename,
			ContentType: fh.Header.Get("Content-Type"),
			Body:        f,
		})
	}
	return uploads, closeAll, nil
}
