package handlers

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/execdash/execdash/db"
	"github.com/execdash/execdash/services"
)

// FileHandler handles uploads and downloads.
type FileHandler struct {
	Files         *services.FileService
	MaxUploadSize int64
}

func NewFileHandler(files *services.FileService, maxUploadSize int64) *FileHandler {
	return &FileHandler{Files: files, MaxUploadSize: maxUploadSize}
}

// Upload handles POST /api/files (multipart: file, workspace_kind or
// workspace_id, optional visibility and title)
func (h *FileHandler) Upload(c *gin.Context) {
	if h.MaxUploadSize > 0 {
		c.Request.Body = http.MaxBytesReader(c.Writer, c.Request.Body, h.MaxUploadSize)
	}

	header, err := c.FormFile("file")
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "file is required"})
		return
	}

	input := services.UploadInput{
		WorkspaceKind: db.WorkspaceKind(c.PostForm("workspace_kind")),
		WorkspaceID:   c.PostForm("workspace_id"),
		Filename:      header.Filename,
		MIME:          header.Header.Get("Content-Type"),
		Size:          header.Size,
		Visibility:    db.Visibility(c.PostForm("visibility")),
		Title:         c.PostForm("title"),
	}

	f, err := header.Open()
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "failed to read file"})
		return
	}
	defer f.Close()
	input.Body = f

	result, err := h.Files.Upload(c.Request.Context(), sessionFrom(c), input)
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusCreated, result)
}

// Download handles GET /api/resources/:id/download
func (h *FileHandler) Download(c *gin.Context) {
	url, err := h.Files.SignedDownloadURL(c.Request.Context(), sessionFrom(c), c.Param("id"))
	if err != nil {
		respondError(c, err)
		return
	}

	if c.Query("redirect") == "true" {
		c.Redirect(http.StatusFound, url)
		return
	}
	c.JSON(http.StatusOK, gin.H{"url": url})
}
