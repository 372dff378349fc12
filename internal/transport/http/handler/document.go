package handler

import (
	"errors"
	"fmt"
	"net/http"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/gin-gonic/gin"

	"smartdocs/internal/app"
	"smartdocs/internal/transport/http/response"
)

const maxPDFSize = 10 << 20 // 10 MB

// DocumentHandler covers document upload, ingest history and collection
// management for the authenticated user.
type DocumentHandler struct {
	ingestService *app.IngestService
	uploadDir     string
}

func NewDocumentHandler(ingestService *app.IngestService, uploadDir string) *DocumentHandler {
	return &DocumentHandler{ingestService: ingestService, uploadDir: uploadDir}
}

// Upload accepts a multipart form with one or more "files" entries, all
// PDFs, stages them on disk and runs the ingestion batch.
func (h *DocumentHandler) Upload(c *gin.Context) {
	userID, ok := getUserIDFromContext(c)
	if !ok {
		response.Error(c, http.StatusUnauthorized, response.CodeUnauthorized, "invalid token payload")
		return
	}

	form, err := c.MultipartForm()
	if err != nil {
		response.Error(c, http.StatusBadRequest, response.CodeBadRequest, "invalid multipart form")
		return
	}
	files := form.File["files"]
	if len(files) == 0 {
		response.Error(c, http.StatusBadRequest, response.CodeBadRequest, "missing files")
		return
	}

	dir := filepath.Join(h.uploadDir, fmt.Sprintf("user_%d", userID))
	if err := os.MkdirAll(dir, 0o755); err != nil {
		response.Error(c, http.StatusInternalServerError, response.CodeInternalServer, "prepare upload dir failed")
		return
	}

	paths := make([]string, 0, len(files))
	for _, file := range files {
		if file.Size > maxPDFSize {
			response.Error(c, http.StatusBadRequest, response.CodeBadRequest,
				fmt.Sprintf("%s too large (max 10MB)", file.Filename))
			return
		}
		if strings.ToLower(filepath.Ext(file.Filename)) != ".pdf" {
			response.Error(c, http.StatusBadRequest, response.CodeBadRequest, "only PDF files are allowed")
			return
		}

		dest := filepath.Join(dir, fmt.Sprintf("%d_%s", time.Now().UnixNano(), filepath.Base(file.Filename)))
		if err := c.SaveUploadedFile(file, dest); err != nil {
			response.Error(c, http.StatusInternalServerError, response.CodeInternalServer, "save uploaded file failed")
			return
		}
		paths = append(paths, dest)
	}

	outcomes, err := h.ingestService.ProcessUploads(c.Request.Context(), userID, paths, nil)
	if err != nil {
		if errors.Is(err, app.ErrInvalidInput) {
			response.Error(c, http.StatusBadRequest, response.CodeBadRequest, err.Error())
		} else {
			response.Error(c, http.StatusInternalServerError, response.CodeInternalServer, "ingest failed")
		}
		return
	}

	response.OK(c, gin.H{"outcomes": outcomes})
}

func (h *DocumentHandler) ListRecords(c *gin.Context) {
	userID, ok := getUserIDFromContext(c)
	if !ok {
		response.Error(c, http.StatusUnauthorized, response.CodeUnauthorized, "invalid token payload")
		return
	}

	records, err := h.ingestService.ListRecords(userID)
	if err != nil {
		response.Error(c, http.StatusInternalServerError, response.CodeInternalServer, "list ingest records failed")
		return
	}
	response.OK(c, records)
}

func (h *DocumentHandler) CollectionStats(c *gin.Context) {
	userID, ok := getUserIDFromContext(c)
	if !ok {
		response.Error(c, http.StatusUnauthorized, response.CodeUnauthorized, "invalid token payload")
		return
	}

	stats, err := h.ingestService.CollectionStats(c.Request.Context(), userID)
	if err != nil {
		response.Error(c, http.StatusInternalServerError, response.CodeInternalServer, "collection stats failed")
		return
	}
	response.OK(c, stats)
}

func (h *DocumentHandler) DeleteCollection(c *gin.Context) {
	userID, ok := getUserIDFromContext(c)
	if !ok {
		response.Error(c, http.StatusUnauthorized, response.CodeUnauthorized, "invalid token payload")
		return
	}

	if err := h.ingestService.DeleteCollection(c.Request.Context(), userID); err != nil {
		response.Error(c, http.StatusInternalServerError, response.CodeInternalServer, "delete collection failed")
		return
	}
	response.OK(c, gin.H{"deleted_collection": fmt.Sprintf("user_%d", userID)})
}
