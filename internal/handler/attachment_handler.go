package handler

import (
	"encoding/json"
	"errors"
	"net/http"
	"strconv"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"

	"attachr/internal/attachment"
	"attachr/internal/domain"
	"attachr/internal/service"
)

// AttachmentHandler handles attachment endpoints.
type AttachmentHandler struct {
	attachmentService service.AttachmentService
}

// NewAttachmentHandler creates a new AttachmentHandler.
func NewAttachmentHandler(attachmentService service.AttachmentService) *AttachmentHandler {
	return &AttachmentHandler{attachmentService: attachmentService}
}

// Upload handles POST /api/v1/attachments/:definition
// Form fields: file (required), scope (optional JSON object).
func (h *AttachmentHandler) Upload(c *gin.Context) {
	file, header, err := c.Request.FormFile("file")
	if err != nil {
		var tooLarge *http.MaxBytesError
		if errors.As(err, &tooLarge) {
			RespondError(c, http.StatusRequestEntityTooLarge, "FILE_TOO_LARGE", "file exceeds maximum allowed size")
			return
		}
		RespondError(c, http.StatusBadRequest, "MISSING_FILE", "file field is required")
		return
	}
	defer func() { _ = file.Close() }()

	var scope domain.Scope
	if raw := c.PostForm("scope"); raw != "" {
		if err := json.Unmarshal([]byte(raw), &scope); err != nil {
			RespondError(c, http.StatusBadRequest, "INVALID_SCOPE", "scope must be a JSON object")
			return
		}
	}

	rec, err := h.attachmentService.Upload(c.Request.Context(), service.UploadInput{
		Definition: c.Param("definition"),
		Filename:   header.Filename,
		Body:       file,
		Scope:      scope,
	})
	if err != nil {
		if rec != nil {
			// The failed record exists and must be deleted by id.
			HandleErrorWithData(c, err, gin.H{"attachment": rec})
			return
		}
		HandleError(c, err)
		return
	}

	urls, err := h.attachmentService.GetURLs(c.Request.Context(), rec.ID, false)
	if err != nil {
		HandleError(c, err)
		return
	}

	RespondCreated(c, gin.H{
		"attachment": rec,
		"urls":       urls,
	})
}

// GetByID handles GET /api/v1/attachments/:id
func (h *AttachmentHandler) GetByID(c *gin.Context) {
	id, ok := parseID(c)
	if !ok {
		return
	}

	rec, err := h.attachmentService.GetByID(c.Request.Context(), id)
	if err != nil {
		HandleError(c, err)
		return
	}

	urls, err := h.attachmentService.GetURLs(c.Request.Context(), id, false)
	if err != nil {
		HandleError(c, err)
		return
	}

	RespondOK(c, gin.H{
		"attachment": rec,
		"urls":       urls,
	})
}

// GetURL handles GET /api/v1/attachments/:id/url?version=&signed=
// A skipped version yields a null url.
func (h *AttachmentHandler) GetURL(c *gin.Context) {
	id, ok := parseID(c)
	if !ok {
		return
	}

	signed, err := strconv.ParseBool(c.DefaultQuery("signed", "false"))
	if err != nil {
		RespondError(c, http.StatusBadRequest, "INVALID_SIGNED", "signed must be a boolean")
		return
	}
	version := c.Query("version")

	u, err := h.attachmentService.GetURL(c.Request.Context(), id, version, signed)
	if err != nil {
		HandleError(c, err)
		return
	}

	RespondOK(c, gin.H{
		"version": version,
		"signed":  signed,
		"url":     u,
	})
}

// Delete handles DELETE /api/v1/attachments/:id
func (h *AttachmentHandler) Delete(c *gin.Context) {
	id, ok := parseID(c)
	if !ok {
		return
	}

	report, err := h.attachmentService.Delete(c.Request.Context(), id)
	if err != nil {
		if report != nil {
			HandleErrorWithData(c, err, deleteReportBody(report))
			return
		}
		HandleError(c, err)
		return
	}

	RespondOK(c, gin.H{
		"deleted": report.Deleted,
		"skipped": report.Skipped,
	})
}

// List handles GET /api/v1/definitions/:definition/attachments
func (h *AttachmentHandler) List(c *gin.Context) {
	offset, limit := parsePagination(c)

	items, total, err := h.attachmentService.List(c.Request.Context(), c.Param("definition"), offset, limit)
	if err != nil {
		HandleError(c, err)
		return
	}

	RespondPaginated(c, items, PagMeta{Total: total, Offset: offset, Limit: limit})
}

// Definitions handles GET /api/v1/definitions
func (h *AttachmentHandler) Definitions(c *gin.Context) {
	RespondOK(c, h.attachmentService.Definitions())
}

func deleteReportBody(report *attachment.DeleteReport) gin.H {
	failed := make(map[string]string, len(report.Failed))
	for version, err := range report.Failed {
		failed[version] = err.Error()
	}
	return gin.H{
		"deleted": report.Deleted,
		"skipped": report.Skipped,
		"failed":  failed,
	}
}

func parseID(c *gin.Context) (uuid.UUID, bool) {
	id, err := uuid.Parse(c.Param("id"))
	if err != nil {
		RespondError(c, http.StatusBadRequest, "INVALID_ID", "invalid attachment ID")
		return uuid.Nil, false
	}
	return id, true
}
