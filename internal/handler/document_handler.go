package handler

import (
	"fmt"
	"io"
	"mime/multipart"
	"strings"

	"github.com/gin-gonic/gin"

	appErr "github.com/docsage/docsage/internal/pkg/errors"
	"github.com/docsage/docsage/internal/pkg/response"
	"github.com/docsage/docsage/internal/service"
)

type DocumentHandler struct {
	ingest *service.IngestService
}

func NewDocumentHandler(ingest *service.IngestService) *DocumentHandler {
	return &DocumentHandler{ingest: ingest}
}

// Upload accepts one multipart file under the "file" field. The MIME type
// comes from the part header, with a filename-extension fallback for
// clients that send application/octet-stream.
func (h *DocumentHandler) Upload(c *gin.Context) {
	fileHeader, err := c.FormFile("file")
	if err != nil {
		handleError(c, fmt.Errorf("%w: file field is required", appErr.ErrInvalid))
		return
	}
	data, err := readUpload(fileHeader)
	if err != nil {
		handleError(c, err)
		return
	}
	contentType := fileHeader.Header.Get("Content-Type")
	if contentType == "" || contentType == "application/octet-stream" {
		contentType = typeFromFilename(fileHeader.Filename)
	}
	doc, err := h.ingest.Ingest(c.Request.Context(), fileHeader.Filename, contentType, data)
	if err != nil {
		handleError(c, err)
		return
	}
	response.Success(c, doc)
}

func readUpload(fileHeader *multipart.FileHeader) ([]byte, error) {
	file, err := fileHeader.Open()
	if err != nil {
		return nil, err
	}
	defer file.Close()
	return io.ReadAll(file)
}

func typeFromFilename(filename string) string {
	lower := strings.ToLower(filename)
	switch {
	case strings.HasSuffix(lower, ".md"), strings.HasSuffix(lower, ".markdown"):
		return "text/markdown"
	case strings.HasSuffix(lower, ".csv"):
		return "text/csv"
	default:
		return "text/plain"
	}
}

func (h *DocumentHandler) List(c *gin.Context) {
	docs, err := h.ingest.List(c.Request.Context())
	if err != nil {
		handleError(c, err)
		return
	}
	response.Success(c, gin.H{"documents": docs})
}

func (h *DocumentHandler) Get(c *gin.Context) {
	doc, err := h.ingest.Get(c.Request.Context(), c.Param("id"))
	if err != nil {
		handleError(c, err)
		return
	}
	response.Success(c, doc)
}

func (h *DocumentHandler) Chunks(c *gin.Context) {
	chunks, err := h.ingest.Chunks(c.Request.Context(), c.Param("id"))
	if err != nil {
		handleError(c, err)
		return
	}
	response.Success(c, gin.H{"chunks": chunks})
}

func (h *DocumentHandler) Delete(c *gin.Context) {
	if err := h.ingest.Delete(c.Request.Context(), c.Param("id")); err != nil {
		handleError(c, err)
		return
	}
	response.Success(c, gin.H{"deleted": true})
}
