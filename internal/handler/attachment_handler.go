package handler

import (
	"fmt"
	"net/http"

	"cuentas/internal/middleware"
	"cuentas/internal/service"
	"cuentas/pkg/response"

	"github.com/gin-gonic/gin"
)

type AttachmentHandler struct {
	attachmentService service.AttachmentService
}

func NewAttachmentHandler(attachmentService service.AttachmentService) *AttachmentHandler {
	return &AttachmentHandler{attachmentService: attachmentService}
}

func (h *AttachmentHandler) RegisterRoutes(router *gin.RouterGroup) {
	entries := router.Group("/api/entries")
	{
		entries.POST("/:id/attachment", middleware.RequireAuth(), h.UploadAttachment)
		entries.GET("/:id/attachment", middleware.OptionalAuth(), h.DownloadAttachment)
		entries.GET("/:id/attachment/session", middleware.OptionalAuth(), h.GetUploadSession)
	}
}

// UploadAttachment stores a supplier-invoice document for a payable entry
// @Summary      Upload invoice attachment
// @Description  Accepts a PDF, JPEG or PNG up to 10 MiB as multipart form field "file"; progress is broadcast over /ws
// @Tags         attachments
// @Security     BearerAuth
// @Accept       multipart/form-data
// @Produce      json
// @Param        id    path      string  true  "Entry ID"
// @Param        file  formData  file    true  "Invoice document"
// @Success      201   {object}  response.Response{data=object}
// @Failure      413   {object}  response.Response
// @Failure      415   {object}  response.Response
// @Router       /api/entries/{id}/attachment [post]
func (h *AttachmentHandler) UploadAttachment(c *gin.Context) {
	fileHeader, err := c.FormFile("file")
	if err != nil {
		c.JSON(http.StatusBadRequest, response.Error(http.StatusBadRequest, "missing file field: "+err.Error()))
		return
	}

	file, err := fileHeader.Open()
	if err != nil {
		c.JSON(http.StatusBadRequest, response.Error(http.StatusBadRequest, "failed to open file: "+err.Error()))
		return
	}
	defer file.Close()

	attachmentURL, err := h.attachmentService.Upload(
		c.Request.Context(),
		c.Param("id"),
		userIDFromContext(c),
		fileHeader.Filename,
		fileHeader.Size,
		file,
	)
	if err != nil {
		status := statusForError(err)
		c.JSON(status, response.Error(status, err.Error()))
		return
	}

	c.JSON(http.StatusCreated, response.Success(http.StatusCreated, map[string]interface{}{
		"attachment_url": attachmentURL,
	}))
}

// DownloadAttachment streams the stored invoice document
// @Summary      Download invoice attachment
// @Description  Returns the raw bytes with a file name derived from the entry id and the stored extension
// @Tags         attachments
// @Produce      application/octet-stream
// @Param        id   path      string  true  "Entry ID"
// @Success      200  {file}    binary
// @Failure      404  {object}  response.Response
// @Router       /api/entries/{id}/attachment [get]
func (h *AttachmentHandler) DownloadAttachment(c *gin.Context) {
	file, err := h.attachmentService.Download(c.Request.Context(), c.Param("id"))
	if err != nil {
		status := statusForError(err)
		c.JSON(status, response.Error(status, err.Error()))
		return
	}
	defer file.Reader.Close()

	c.Header("Content-Disposition", fmt.Sprintf("attachment; filename=%q", file.Name))
	c.DataFromReader(http.StatusOK, file.Size, file.ContentType, file.Reader, nil)
}

// GetUploadSession reports the progress of an in-flight upload
// @Summary      Get upload session
// @Tags         attachments
// @Produce      json
// @Param        id   path      string  true  "Entry ID"
// @Success      200  {object}  response.Response{data=service.UploadSession}
// @Failure      404  {object}  response.Response
// @Router       /api/entries/{id}/attachment/session [get]
func (h *AttachmentHandler) GetUploadSession(c *gin.Context) {
	session, ok := h.attachmentService.Session(c.Param("id"))
	if !ok {
		c.JSON(http.StatusNotFound, response.Error(http.StatusNotFound, "no active upload session"))
		return
	}

	c.JSON(http.StatusOK, response.Success(http.StatusOK, session))
}
