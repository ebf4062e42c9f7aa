package controller

import (
	"errors"
	"log/slog"
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/gin-gonic/gin"

	"github.com/Itish41/DocIntel/apperrors"
	"github.com/Itish41/DocIntel/middleware"
	"github.com/Itish41/DocIntel/models"
	"github.com/Itish41/DocIntel/repository"
	services "github.com/Itish41/DocIntel/service"
)

// AnonymousUser owns uploads made without a caller identity.
const AnonymousUser = "anonymous"

// DocumentController manages HTTP requests for document uploads and metadata.
type DocumentController struct {
	service *services.DocumentService
}

// NewDocumentController initializes the controller with the service
func NewDocumentController(service *services.DocumentService) *DocumentController {
	return &DocumentController{service: service}
}

// UploadDocument stores the multipart file and queues it for processing. It
// returns as soon as the document is queued.
func (dc *DocumentController) UploadDocument(c *gin.Context) {
	file, header, err := c.Request.FormFile("file")
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Failed to get file from request"})
		return
	}
	defer file.Close()

	contentType := header.Header.Get("Content-Type")
	if contentType == "" {
		contentType = "application/octet-stream"
	}
	uploadedBy := middleware.UserID(c)
	if uploadedBy == "" {
		uploadedBy = AnonymousUser
	}

	doc, err := dc.service.Upload(c.Request.Context(), models.NewDocument{
		Title:       strings.TrimSpace(c.PostForm("title")),
		Author:      strings.TrimSpace(c.PostForm("author")),
		FileName:    header.Filename,
		ContentType: contentType,
		FileSize:    header.Size,
		UploadedBy:  uploadedBy,
	}, file)
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, doc)
}

func (dc *DocumentController) GetDocument(c *gin.Context) {
	doc, err := dc.service.GetDocument(c.Request.Context(), c.Param("id"))
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, doc)
}

// DeleteDocument removes the document for its uploader.
func (dc *DocumentController) DeleteDocument(c *gin.Context) {
	if err := dc.service.DeleteDocument(c.Request.Context(), c.Param("id"), middleware.UserID(c)); err != nil {
		respondError(c, err)
		return
	}
	c.Status(http.StatusOK)
}

// SearchDocuments filters metadata by any of title, author and documentType.
func (dc *DocumentController) SearchDocuments(c *gin.Context) {
	page, ok := pageRequest(c, 10)
	if !ok {
		return
	}
	criteria := repository.Criteria{
		Title:        c.Query("title"),
		Author:       c.Query("author"),
		DocumentType: models.DocumentType(strings.ToUpper(c.Query("documentType"))),
	}
	result, err := dc.service.SearchDocuments(c.Request.Context(), criteria, page)
	respondPage(c, result, err)
}

func (dc *DocumentController) FindByAuthor(c *gin.Context) {
	author, ok := requiredQuery(c, "author")
	if !ok {
		return
	}
	page, ok := pageRequest(c, 10)
	if !ok {
		return
	}
	result, err := dc.service.FindByAuthor(c.Request.Context(), author, page)
	respondPage(c, result, err)
}

func (dc *DocumentController) FindByTitle(c *gin.Context) {
	title, ok := requiredQuery(c, "title")
	if !ok {
		return
	}
	page, ok := pageRequest(c, 10)
	if !ok {
		return
	}
	result, err := dc.service.FindByTitle(c.Request.Context(), title, page)
	respondPage(c, result, err)
}

func (dc *DocumentController) FindByDocumentType(c *gin.Context) {
	t, ok := requiredQuery(c, "documentType")
	if !ok {
		return
	}
	page, ok := pageRequest(c, 10)
	if !ok {
		return
	}
	result, err := dc.service.FindByDocumentType(c.Request.Context(), models.DocumentType(strings.ToUpper(t)), page)
	respondPage(c, result, err)
}

func (dc *DocumentController) FindByUploadDateBetween(c *gin.Context) {
	start, ok := timeQuery(c, "startDate")
	if !ok {
		return
	}
	end, ok := timeQuery(c, "endDate")
	if !ok {
		return
	}
	page, ok := pageRequest(c, 10)
	if !ok {
		return
	}
	result, err := dc.service.FindByUploadDateBetween(c.Request.Context(), start, end, page)
	respondPage(c, result, err)
}

// respondError writes err with the status its kind maps to.
func respondError(c *gin.Context, err error) {
	status := apperrors.HTTPStatus(err)
	_ = c.Error(err)
	if status >= http.StatusInternalServerError {
		slog.ErrorContext(c.Request.Context(), "request failed", "path", c.FullPath(), "error", err)
	}
	c.JSON(status, gin.H{"error": err.Error()})
}

func respondPage[T any](c *gin.Context, page models.Page[T], err error) {
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, page)
}

func requiredQuery(c *gin.Context, name string) (string, bool) {
	v := strings.TrimSpace(c.Query(name))
	if v == "" {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Query parameter '" + name + "' is required"})
		return "", false
	}
	return v, true
}

// pageRequest reads the zero-based page and size query parameters.
func pageRequest(c *gin.Context, defaultSize int) (models.PageRequest, bool) {
	page, err := intQuery(c, "page", 0)
	if err != nil {
		respondError(c, err)
		return models.PageRequest{}, false
	}
	size, err := intQuery(c, "size", defaultSize)
	if err != nil {
		respondError(c, err)
		return models.PageRequest{}, false
	}
	return models.PageRequest{Page: page, Size: size}, true
}

func intQuery(c *gin.Context, name string, def int) (int, error) {
	raw := c.Query(name)
	if raw == "" {
		return def, nil
	}
	v, err := strconv.Atoi(raw)
	if err != nil || v < 0 {
		return 0, apperrors.New(apperrors.ErrInvalidInput, "parse "+name, errors.New("must be a non-negative integer"))
	}
	return v, nil
}

// timeLayouts are the accepted ISO date-time forms. Values without a zone are UTC.
var timeLayouts = []string{time.RFC3339Nano, "2006-01-02T15:04:05", "2006-01-02"}

func timeQuery(c *gin.Context, name string) (time.Time, bool) {
	raw, ok := requiredQuery(c, name)
	if !ok {
		return time.Time{}, false
	}
	for _, layout := range timeLayouts {
		if t, err := time.Parse(layout, raw); err == nil {
			return t.UTC(), true
		}
	}
	respondError(c, apperrors.New(apperrors.ErrInvalidInput, "parse "+name, errors.New("expected an ISO-8601 date-time")))
	return time.Time{}, false
}
