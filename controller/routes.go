package controller

import (
	"log/slog"
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/Itish41/DocIntel/middleware"
)

// RouterConfig carries the handlers and HTTP policies for NewRouter.
type RouterConfig struct {
	Documents *DocumentController
	QA        *QAController
	Search    *SearchController

	Logger      *slog.Logger
	CORSOrigins []string

	// GlobalLimiter applies to every route, StrictLimiter to uploads and deletes.
	GlobalLimiter *middleware.RateLimiter
	StrictLimiter *middleware.RateLimiter
}

// NewRouter registers every route on a new gin engine.
func NewRouter(cfg RouterConfig) *gin.Engine {
	router := gin.New()
	router.Use(gin.Recovery())
	if cfg.Logger != nil {
		router.Use(middleware.RequestLogger(cfg.Logger))
	}
	router.Use(middleware.CORS(cfg.CORSOrigins), middleware.User())
	if cfg.GlobalLimiter != nil {
		router.Use(cfg.GlobalLimiter.Limit())
	}
	strict := func(h gin.HandlerFunc) []gin.HandlerFunc {
		if cfg.StrictLimiter == nil {
			return []gin.HandlerFunc{h}
		}
		return []gin.HandlerFunc{cfg.StrictLimiter.Limit(), h}
	}

	router.GET("/health", func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{"status": "healthy"})
	})

	api := router.Group("/api")

	docs := api.Group("/documents")
	docs.POST("/upload", strict(cfg.Documents.UploadDocument)...)
	docs.GET("/search", cfg.Documents.SearchDocuments)
	docs.GET("/by-author", cfg.Documents.FindByAuthor)
	docs.GET("/by-title", cfg.Documents.FindByTitle)
	docs.GET("/by-type", cfg.Documents.FindByDocumentType)
	docs.GET("/by-date-range", cfg.Documents.FindByUploadDateBetween)
	docs.GET("/:id", cfg.Documents.GetDocument)
	docs.DELETE("/:id", strict(cfg.Documents.DeleteDocument)...)

	qa := api.Group("/qa")
	qa.POST("/ask", cfg.QA.Ask)
	qa.GET("/search", cfg.QA.SearchByKeyword)
	qa.GET("/snippets/:documentId", cfg.QA.ExtractSnippets)

	search := api.Group("/search")
	search.GET("/title", cfg.Search.ByTitle())
	search.GET("/author", cfg.Search.ByAuthor())
	search.GET("/content", cfg.Search.ByContent())
	search.GET("/type", cfg.Search.ByDocumentType())
	search.GET("/uploader", cfg.Search.ByUploader())

	return router
}
