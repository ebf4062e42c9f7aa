package controller

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/Itish41/DocIntel/models"
	services "github.com/Itish41/DocIntel/service"
)

// QAController serves keyword questions and snippet extraction.
type QAController struct {
	qa     *services.QAService
	search *services.SearchService
}

func NewQAController(qa *services.QAService, search *services.SearchService) *QAController {
	return &QAController{qa: qa, search: search}
}

// Ask answers the JSON question body. The page and size query parameters
// page through candidate documents.
func (qc *QAController) Ask(c *gin.Context) {
	var req models.QuestionRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid question", "details": err.Error()})
		return
	}
	page, ok := pageRequest(c, services.DefaultQAPageSize)
	if !ok {
		return
	}
	if c.Query("page") != "" {
		req.Page = page.Page
	}
	if c.Query("size") != "" {
		req.PageSize = page.Size
	}

	resp, err := qc.qa.Ask(c.Request.Context(), req)
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, resp)
}

// SearchByKeyword lists indexed documents matching keyword in any field.
func (qc *QAController) SearchByKeyword(c *gin.Context) {
	keyword, ok := requiredQuery(c, "keyword")
	if !ok {
		return
	}
	page, ok := pageRequest(c, 10)
	if !ok {
		return
	}
	result, err := qc.search.SearchByKeyword(c.Request.Context(), keyword, page)
	respondPage(c, result, err)
}

func (qc *QAController) ExtractSnippets(c *gin.Context) {
	keyword, ok := requiredQuery(c, "keyword")
	if !ok {
		return
	}
	resp, err := qc.qa.ExtractSnippets(c.Request.Context(), c.Param("documentId"), keyword)
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, resp)
}
