package services

import (
	"context"
	"errors"
	"strings"

	"github.com/Itish41/DocIntel/apperrors"
	"github.com/Itish41/DocIntel/models"
	"github.com/Itish41/DocIntel/searchindex"
)

// SearchService runs field searches against the search index.
type SearchService struct {
	index searchindex.Index
}

func NewSearchService(index searchindex.Index) *SearchService {
	return &SearchService{index: index}
}

func (s *SearchService) SearchByTitle(ctx context.Context, title string, page models.PageRequest) (models.Page[models.IndexRecord], error) {
	return s.text(ctx, "search by title", title, []string{"title"}, page)
}

func (s *SearchService) SearchByAuthor(ctx context.Context, author string, page models.PageRequest) (models.Page[models.IndexRecord], error) {
	return s.text(ctx, "search by author", author, []string{"author"}, page)
}

func (s *SearchService) SearchByContent(ctx context.Context, content string, page models.PageRequest) (models.Page[models.IndexRecord], error) {
	return s.text(ctx, "search by content", content, []string{"content"}, page)
}

// SearchByKeyword matches title, author and content.
func (s *SearchService) SearchByKeyword(ctx context.Context, keyword string, page models.PageRequest) (models.Page[models.IndexRecord], error) {
	return s.text(ctx, "search by keyword", keyword, searchindex.DefaultFields, page)
}

func (s *SearchService) SearchByDocumentType(ctx context.Context, t models.DocumentType, page models.PageRequest) (models.Page[models.IndexRecord], error) {
	return s.filter(ctx, "search by document type", "documentType", string(t), page)
}

func (s *SearchService) SearchByUploadedBy(ctx context.Context, uploadedBy string, page models.PageRequest) (models.Page[models.IndexRecord], error) {
	return s.filter(ctx, "search by uploader", "uploadedBy", uploadedBy, page)
}

func (s *SearchService) text(ctx context.Context, op, text string, fields []string, page models.PageRequest) (models.Page[models.IndexRecord], error) {
	text = strings.TrimSpace(text)
	if text == "" {
		return models.Page[models.IndexRecord]{}, apperrors.New(apperrors.ErrInvalidInput, op, errors.New("empty search text"))
	}
	return s.run(ctx, searchindex.Query{Text: text, Fields: fields}, page)
}

func (s *SearchService) filter(ctx context.Context, op, field, value string, page models.PageRequest) (models.Page[models.IndexRecord], error) {
	if value == "" {
		return models.Page[models.IndexRecord]{}, apperrors.New(apperrors.ErrInvalidInput, op, errors.New("empty "+field))
	}
	return s.run(ctx, searchindex.Query{Filters: map[string]string{field: value}}, page)
}

func (s *SearchService) run(ctx context.Context, q searchindex.Query, page models.PageRequest) (models.Page[models.IndexRecord], error) {
	q.From = page.Offset()
	q.Size = page.Limit()

	res, err := s.index.Query(ctx, q)
	if err != nil {
		return models.Page[models.IndexRecord]{}, err
	}

	out := models.Page[models.IndexRecord]{
		Items: make([]models.IndexRecord, 0, len(res.Hits)),
		Total: int64(res.Total),
		Page:  page.Page,
		Size:  page.Limit(),
	}
	for _, h := range res.Hits {
		out.Items = append(out.Items, h.Record)
	}
	return out, nil
}
