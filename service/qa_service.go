package services

import (
	"context"
	"fmt"
	"log/slog"
	"strings"

	"github.com/Itish41/DocIntel/models"
	"github.com/Itish41/DocIntel/repository"
	"github.com/Itish41/DocIntel/searchindex"
	"github.com/Itish41/DocIntel/snippet"
)

// QAVariant selects where candidate documents come from.
type QAVariant string

const (
	// QAVariantIndex asks the search index for candidates.
	QAVariantIndex QAVariant = "index"
	// QAVariantScan scans the extracted text of COMPLETED documents.
	QAVariantScan QAVariant = "scan"
)

// DefaultQAPageSize is the number of candidate documents per page for the index variant.
const DefaultQAPageSize = 5

// QAService answers keyword questions with ranked snippets. Ranking always
// uses the local snippet score; index scores only pick candidates.
type QAService struct {
	index         searchindex.Index
	repo          repository.DocumentRepository
	variant       QAVariant
	snippetLength int
	logger        *slog.Logger
}

func NewQAService(index searchindex.Index, repo repository.DocumentRepository, variant QAVariant, defaultSnippetLength int) *QAService {
	if variant == "" {
		variant = QAVariantIndex
	}
	if defaultSnippetLength == 0 {
		defaultSnippetLength = models.DefaultSnippetLength
	}
	return &QAService{
		index:         index,
		repo:          repo,
		variant:       variant,
		snippetLength: defaultSnippetLength,
		logger:        slog.Default().With("component", "qa_service"),
	}
}

// Ask treats the whole question as one keyword. A blank question yields an
// empty response.
func (s *QAService) Ask(ctx context.Context, req models.QuestionRequest) (models.QuestionResponse, error) {
	resp := models.QuestionResponse{Question: req.Question, Snippets: []models.Snippet{}}
	keyword := strings.TrimSpace(req.Question)
	if keyword == "" {
		return resp, nil
	}

	length := s.snippetLength
	if req.SnippetLength != nil {
		length = *req.SnippetLength
	}

	var (
		found []models.Snippet
		total int
		err   error
	)
	switch s.variant {
	case QAVariantScan:
		found, total, err = s.scanCandidates(ctx, keyword, length)
	default:
		found, total, err = s.indexCandidates(ctx, keyword, length, req)
	}
	if err != nil {
		return resp, err
	}

	if len(found) > 0 {
		resp.Snippets = snippet.Rank(found, req.MaxResults)
	}
	resp.TotalResults = total
	s.logger.DebugContext(ctx, "answered question", "keyword", keyword, "variant", s.variant, "snippets", len(resp.Snippets), "total", total)
	return resp, nil
}

// indexCandidates returns snippets from one page of index hits. The total is
// the index's hit count.
func (s *QAService) indexCandidates(ctx context.Context, keyword string, length int, req models.QuestionRequest) ([]models.Snippet, int, error) {
	size := req.PageSize
	if size <= 0 {
		size = DefaultQAPageSize
	}
	page := models.PageRequest{Page: req.Page, Size: size}

	res, err := s.index.Query(ctx, searchindex.Query{
		Text:   keyword,
		Fields: searchindex.DefaultFields,
		From:   page.Offset(),
		Size:   page.Limit(),
	})
	if err != nil {
		return nil, 0, err
	}

	var out []models.Snippet
	for _, hit := range res.Hits {
		rec := hit.Record
		out = append(out, snippet.ForDocument(rec.DatabaseID, rec.Title, rec.Author, rec.Content, keyword, length)...)
	}
	return out, res.Total, nil
}

// scanCandidates returns snippets from every COMPLETED document containing
// keyword. The total is the number of documents that produced a snippet.
func (s *QAService) scanCandidates(ctx context.Context, keyword string, length int) ([]models.Snippet, int, error) {
	var out []models.Snippet
	matched := 0
	err := s.repo.ScanCompletedContaining(ctx, keyword, func(doc *models.Document) error {
		found := snippet.ForDocument(doc.ID, doc.Title, doc.Author, doc.ExtractedText, keyword, length)
		if len(found) > 0 {
			matched++
			out = append(out, found...)
		}
		return nil
	})
	if err != nil {
		return nil, 0, fmt.Errorf("failed to scan documents: %w", err)
	}
	return out, matched, nil
}

// ExtractSnippets returns the ranked snippets for keyword within one
// document. Documents that are not COMPLETED yield no snippets.
func (s *QAService) ExtractSnippets(ctx context.Context, documentID, keyword string) (models.QuestionResponse, error) {
	resp := models.QuestionResponse{Question: keyword, Snippets: []models.Snippet{}}

	doc, err := s.repo.FindByID(ctx, documentID)
	if err != nil {
		return resp, err
	}
	keyword = strings.TrimSpace(keyword)
	if keyword == "" || doc.ProcessingStatus != models.StatusCompleted {
		return resp, nil
	}

	found := snippet.ForDocument(doc.ID, doc.Title, doc.Author, doc.ExtractedText, keyword, s.snippetLength)
	resp.Snippets = snippet.Rank(found, nil)
	if len(found) > 0 {
		resp.TotalResults = 1
	}
	return resp, nil
}
