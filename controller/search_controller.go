package controller

import (
	"context"
	"strings"

	"github.com/gin-gonic/gin"

	"github.com/Itish41/DocIntel/models"
	services "github.com/Itish41/DocIntel/service"
)

// SearchController exposes field searches over the search index.
type SearchController struct {
	search *services.SearchService
}

func NewSearchController(search *services.SearchService) *SearchController {
	return &SearchController{search: search}
}

type indexSearch func(ctx context.Context, value string, page models.PageRequest) (models.Page[models.IndexRecord], error)

// handler binds the required query parameter param to fn.
func (sc *SearchController) handler(param string, fn indexSearch) gin.HandlerFunc {
	return func(c *gin.Context) {
		value, ok := requiredQuery(c, param)
		if !ok {
			return
		}
		page, ok := pageRequest(c, 10)
		if !ok {
			return
		}
		result, err := fn(c.Request.Context(), value, page)
		respondPage(c, result, err)
	}
}

func (sc *SearchController) ByTitle() gin.HandlerFunc {
	return sc.handler("title", sc.search.SearchByTitle)
}

func (sc *SearchController) ByAuthor() gin.HandlerFunc {
	return sc.handler("author", sc.search.SearchByAuthor)
}

func (sc *SearchController) ByContent() gin.HandlerFunc {
	return sc.handler("content", sc.search.SearchByContent)
}

func (sc *SearchController) ByDocumentType() gin.HandlerFunc {
	return sc.handler("documentType", func(ctx context.Context, v string, page models.PageRequest) (models.Page[models.IndexRecord], error) {
		return sc.search.SearchByDocumentType(ctx, models.DocumentType(strings.ToUpper(v)), page)
	})
}

func (sc *SearchController) ByUploader() gin.HandlerFunc {
	return sc.handler("uploadedBy", sc.search.SearchByUploadedBy)
}
