// Package repository holds the explicit persistence contract for Documents.
package repository

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/Itish41/DocIntel/apperrors"
	"github.com/Itish41/DocIntel/models"
	"gorm.io/gorm"
)

// StatusUpdate is the full set of columns written by one guarded status transition.
// Nil pointers for ProcessingError and SearchIndexID clear the column.
type StatusUpdate struct {
	To              models.ProcessingStatus
	ProcessingError *string
	SearchIndexID   *string
	ExtractedText   *string // nil leaves the stored text unchanged
	ProcessedDate   *time.Time
	At              time.Time
}

// Criteria combines optional metadata filters. Zero fields are ignored.
type Criteria struct {
	Title        string
	Author       string
	DocumentType models.DocumentType
}

// DocumentRepository persists Document metadata.
type DocumentRepository interface {
	Create(ctx context.Context, doc *models.Document) error
	FindByID(ctx context.Context, id string) (*models.Document, error)
	SetStoragePath(ctx context.Context, id, path string, at time.Time) (*models.Document, error)
	// UpdateStatus applies u only if the current status is one of from. It always
	// returns the row as it is after the attempt, and whether u was applied.
	UpdateStatus(ctx context.Context, id string, from []models.ProcessingStatus, u StatusUpdate) (*models.Document, bool, error)
	Delete(ctx context.Context, id string) error

	FindByTitle(ctx context.Context, title string, page models.PageRequest) (models.Page[models.Document], error)
	FindByAuthor(ctx context.Context, author string, page models.PageRequest) (models.Page[models.Document], error)
	FindByDocumentType(ctx context.Context, t models.DocumentType, page models.PageRequest) (models.Page[models.Document], error)
	FindByUploadDateBetween(ctx context.Context, start, end time.Time, page models.PageRequest) (models.Page[models.Document], error)
	FindByCriteria(ctx context.Context, c Criteria, page models.PageRequest) (models.Page[models.Document], error)

	// ScanCompletedContaining streams COMPLETED documents whose text contains
	// keyword, case-insensitively, in upload order.
	ScanCompletedContaining(ctx context.Context, keyword string, fn func(*models.Document) error) error
}

// GormDocumentRepository is the DocumentRepository backed by GORM.
type GormDocumentRepository struct {
	db *gorm.DB
}

// NewGormDocumentRepository wraps db.
func NewGormDocumentRepository(db *gorm.DB) *GormDocumentRepository {
	return &GormDocumentRepository{db: db}
}

const scanBatchSize = 50

func (r *GormDocumentRepository) Create(ctx context.Context, doc *models.Document) error {
	if err := r.db.WithContext(ctx).Create(doc).Error; err != nil {
		return fmt.Errorf("failed to create document: %w", err)
	}
	return nil
}

func (r *GormDocumentRepository) FindByID(ctx context.Context, id string) (*models.Document, error) {
	var doc models.Document
	if err := r.db.WithContext(ctx).First(&doc, "id = ?", id).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, apperrors.NotFound("document", id)
		}
		return nil, fmt.Errorf("failed to fetch document %s: %w", id, err)
	}
	return &doc, nil
}

func (r *GormDocumentRepository) SetStoragePath(ctx context.Context, id, path string, at time.Time) (*models.Document, error) {
	var doc models.Document
	err := r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		res := tx.Model(&models.Document{}).Where("id = ?", id).Updates(map[string]interface{}{
			"storage_path":       path,
			"last_modified_date": at,
			"version":            gorm.Expr("version + 1"),
		})
		if res.Error != nil {
			return res.Error
		}
		if res.RowsAffected == 0 {
			return gorm.ErrRecordNotFound
		}
		return tx.First(&doc, "id = ?", id).Error
	})
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, apperrors.NotFound("document", id)
		}
		return nil, fmt.Errorf("failed to set storage path for %s: %w", id, err)
	}
	return &doc, nil
}

func (r *GormDocumentRepository) UpdateStatus(ctx context.Context, id string, from []models.ProcessingStatus, u StatusUpdate) (*models.Document, bool, error) {
	fields := map[string]interface{}{
		"processing_status":  u.To,
		"processing_error":   u.ProcessingError,
		"search_index_id":    u.SearchIndexID,
		"processed_date":     u.ProcessedDate,
		"last_modified_date": u.At,
		"version":            gorm.Expr("version + 1"),
	}
	if u.ExtractedText != nil {
		fields["extracted_text"] = *u.ExtractedText
	}

	var (
		doc     models.Document
		applied bool
	)
	err := r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		res := tx.Model(&models.Document{}).
			Where("id = ? AND processing_status IN ?", id, from).
			Updates(fields)
		if res.Error != nil {
			return res.Error
		}
		applied = res.RowsAffected > 0
		return tx.First(&doc, "id = ?", id).Error
	})
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, false, apperrors.NotFound("document", id)
		}
		return nil, false, fmt.Errorf("failed to update status of %s: %w", id, err)
	}
	return &doc, applied, nil
}

func (r *GormDocumentRepository) Delete(ctx context.Context, id string) error {
	res := r.db.WithContext(ctx).Delete(&models.Document{}, "id = ?", id)
	if res.Error != nil {
		return fmt.Errorf("failed to delete document %s: %w", id, res.Error)
	}
	if res.RowsAffected == 0 {
		return apperrors.NotFound("document", id)
	}
	return nil
}

func (r *GormDocumentRepository) FindByTitle(ctx context.Context, title string, page models.PageRequest) (models.Page[models.Document], error) {
	return r.findPage(ctx, page, "LOWER(title) LIKE ? ESCAPE '\\'", containsPattern(title))
}

func (r *GormDocumentRepository) FindByAuthor(ctx context.Context, author string, page models.PageRequest) (models.Page[models.Document], error) {
	return r.findPage(ctx, page, "LOWER(author) LIKE ? ESCAPE '\\'", containsPattern(author))
}

func (r *GormDocumentRepository) FindByDocumentType(ctx context.Context, t models.DocumentType, page models.PageRequest) (models.Page[models.Document], error) {
	return r.findPage(ctx, page, "document_type = ?", t)
}

func (r *GormDocumentRepository) FindByUploadDateBetween(ctx context.Context, start, end time.Time, page models.PageRequest) (models.Page[models.Document], error) {
	return r.findPage(ctx, page, "upload_date BETWEEN ? AND ?", start, end)
}

func (r *GormDocumentRepository) FindByCriteria(ctx context.Context, c Criteria, page models.PageRequest) (models.Page[models.Document], error) {
	clauses := []string{"1 = 1"}
	var args []interface{}
	if c.Title != "" {
		clauses = append(clauses, "LOWER(title) LIKE ? ESCAPE '\\'")
		args = append(args, containsPattern(c.Title))
	}
	if c.Author != "" {
		clauses = append(clauses, "LOWER(author) LIKE ? ESCAPE '\\'")
		args = append(args, containsPattern(c.Author))
	}
	if c.DocumentType != "" {
		clauses = append(clauses, "document_type = ?")
		args = append(args, c.DocumentType)
	}
	return r.findPage(ctx, page, strings.Join(clauses, " AND "), args...)
}

func (r *GormDocumentRepository) findPage(ctx context.Context, page models.PageRequest, query string, args ...interface{}) (models.Page[models.Document], error) {
	result := models.Page[models.Document]{Page: page.Page, Size: page.Limit(), Items: []models.Document{}}

	q := r.db.WithContext(ctx).Model(&models.Document{}).Where(query, args...).Session(&gorm.Session{})
	if err := q.Count(&result.Total).Error; err != nil {
		return result, fmt.Errorf("failed to count documents: %w", err)
	}
	if err := q.Omit("extracted_text").
		Order("upload_date DESC").Order("id").
		Offset(page.Offset()).Limit(page.Limit()).
		Find(&result.Items).Error; err != nil {
		return result, fmt.Errorf("failed to fetch documents: %w", err)
	}
	return result, nil
}

func (r *GormDocumentRepository) ScanCompletedContaining(ctx context.Context, keyword string, fn func(*models.Document) error) error {
	q := r.db.WithContext(ctx).
		Where("processing_status = ? AND LOWER(extracted_text) LIKE ? ESCAPE '\\'", models.StatusCompleted, containsPattern(keyword)).
		Order("upload_date").Order("id").
		Session(&gorm.Session{})

	for offset := 0; ; offset += scanBatchSize {
		var batch []models.Document
		if err := q.Offset(offset).Limit(scanBatchSize).Find(&batch).Error; err != nil {
			return fmt.Errorf("failed to scan documents: %w", err)
		}
		for i := range batch {
			if err := fn(&batch[i]); err != nil {
				return err
			}
		}
		if len(batch) < scanBatchSize {
			return nil
		}
	}
}

var likeEscaper = strings.NewReplacer(`\`, `\\`, `%`, `\%`, `_`, `\_`)

func containsPattern(s string) string {
	return "%" + likeEscaper.Replace(strings.ToLower(s)) + "%"
}
