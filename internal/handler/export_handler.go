package handler

import (
	"fmt"
	"net/http"
	"path"

	"github.com/gin-gonic/gin"

	"github.com/noah-isme/civreg-api/internal/service"
	appErrors "github.com/noah-isme/civreg-api/pkg/errors"
	"github.com/noah-isme/civreg-api/pkg/response"
)

// Import uploads are capped to keep a bad batch from exhausting memory.
const maxImportBytes = 20 << 20

// ExportHandler exposes record export and import endpoints.
type ExportHandler struct {
	exports *service.ExportService
	imports *service.ImportService
}

// NewExportHandler constructs ExportHandler.
func NewExportHandler(exports *service.ExportService, imports *service.ImportService) *ExportHandler {
	return &ExportHandler{exports: exports, imports: imports}
}

// Generate godoc
// @Summary Generate a record export with a signed download link
// @Tags Exports
// @Accept json
// @Produce json
// @Param payload body service.ExportRequest true "Export parameters"
// @Success 201 {object} response.Envelope
// @Router /exports [post]
func (h *ExportHandler) Generate(c *gin.Context) {
	actor, ok := actorFromContext(c)
	if !ok {
		response.Error(c, appErrors.ErrUnauthorized)
		return
	}
	var req service.ExportRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.Error(c, appErrors.Wrap(err, appErrors.ErrValidation.Code, http.StatusBadRequest, "invalid payload"))
		return
	}
	result, err := h.exports.Generate(c.Request.Context(), actor, req)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.Created(c, result)
}

// Download godoc
// @Summary Download a generated export via signed token
// @Tags Exports
// @Produce octet-stream
// @Param token path string true "Signed token"
// @Success 200 {file} binary
// @Router /exports/{token} [get]
func (h *ExportHandler) Download(c *gin.Context) {
	_, relPath, _, err := h.exports.ParseToken(c.Param("token"), false)
	if err != nil {
		response.Error(c, err)
		return
	}
	file, err := h.exports.Open(relPath)
	if err != nil {
		response.Error(c, err)
		return
	}
	defer file.Close() //nolint:errcheck

	info, err := file.Stat()
	if err != nil {
		response.Error(c, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to stat export file"))
		return
	}
	c.Header("Content-Disposition", fmt.Sprintf("attachment; filename=%q", path.Base(relPath)))
	c.Header("Cache-Control", "no-store")
	c.DataFromReader(http.StatusOK, info.Size(), "application/octet-stream", file, nil)
}

// Import godoc
// @Summary Import records from an uploaded CSV or JSON file
// @Tags Exports
// @Accept multipart/form-data
// @Produce json
// @Param file formData file true "Records file"
// @Param type formData string true "Record type (birth, marriage, death)"
// @Param format formData string true "File format (csv or json)"
// @Param validateOnly formData bool false "Validate without creating"
// @Param atomic formData bool false "Reject the whole batch on any validation failure"
// @Success 200 {object} response.Envelope
// @Router /imports [post]
func (h *ExportHandler) Import(c *gin.Context) {
	actor, ok := actorFromContext(c)
	if !ok {
		response.Error(c, appErrors.ErrUnauthorized)
		return
	}

	fileHeader, err := c.FormFile("file")
	if err != nil {
		response.Error(c, appErrors.Clone(appErrors.ErrValidation, "file is required"))
		return
	}
	if fileHeader.Size > maxImportBytes {
		response.Error(c, appErrors.Clone(appErrors.ErrValidation, "file exceeds the 20MB import limit"))
		return
	}
	src, err := fileHeader.Open()
	if err != nil {
		response.Error(c, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to read upload"))
		return
	}
	defer src.Close() //nolint:errcheck

	req := service.ImportRequest{
		Type:         service.ExportType(c.PostForm("type")),
		Format:       service.ExportFormat(c.PostForm("format")),
		ValidateOnly: c.PostForm("validateOnly") == "true",
		Atomic:       c.PostForm("atomic") == "true",
	}
	report, err := h.imports.Run(c.Request.Context(), actor, req, src)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, report, nil)
}
