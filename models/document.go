package models

import (
	"path/filepath"
	"strings"
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"
)

// DocumentType is the coarse file format of an uploaded document.
type DocumentType string

const (
	DocumentTypePDF   DocumentType = "PDF"
	DocumentTypeDOCX  DocumentType = "DOCX"
	DocumentTypeTXT   DocumentType = "TXT"
	DocumentTypeRTF   DocumentType = "RTF"
	DocumentTypeOther DocumentType = "OTHER"
)

// ProcessingStatus is the lifecycle state of a Document.
type ProcessingStatus string

const (
	StatusPending    ProcessingStatus = "PENDING"
	StatusProcessing ProcessingStatus = "PROCESSING"
	StatusCompleted  ProcessingStatus = "COMPLETED"
	StatusFailed     ProcessingStatus = "FAILED"
)

// IsTerminal reports whether no automatic transition leaves s.
func (s ProcessingStatus) IsTerminal() bool {
	return s == StatusCompleted || s == StatusFailed
}

// Document represents one uploaded file and its processing lifecycle.
type Document struct {
	// ID is an opaque identifier assigned on creation and never changed.
	ID string `gorm:"type:varchar(36);primaryKey" json:"id"`

	// Title and Author are user supplied descriptive fields.
	Title  string `gorm:"not null" json:"title"`
	Author string `gorm:"not null" json:"author"`

	// FileName, ContentType and FileSize describe the uploaded file as received.
	FileName    string `gorm:"not null" json:"fileName"`
	ContentType string `gorm:"not null" json:"contentType"`
	FileSize    int64  `gorm:"not null" json:"fileSize"`

	// DocumentType is derived from the file extension at creation time.
	DocumentType DocumentType `gorm:"type:varchar(16);not null;index" json:"documentType"`

	// StoragePath is the blob store handle. Nil until the blob store accepts the file.
	StoragePath *string `json:"storagePath,omitempty"`

	// ProcessingStatus is only ever mutated through the lifecycle manager.
	ProcessingStatus ProcessingStatus `gorm:"type:varchar(16);not null;index" json:"processingStatus"`

	// ProcessingError is set only when the document is FAILED.
	ProcessingError *string `json:"processingError,omitempty"`

	UploadDate       time.Time  `gorm:"not null;index" json:"uploadDate"`
	ProcessedDate    *time.Time `json:"processedDate,omitempty"`
	LastModifiedDate *time.Time `json:"lastModifiedDate,omitempty"`

	// UploadedBy references the owning user identity.
	UploadedBy string `gorm:"not null;index" json:"uploadedBy"`

	// SearchIndexID is set once the index upsert has succeeded and the document is COMPLETED.
	SearchIndexID *string `json:"searchIndexId,omitempty"`

	// ExtractedText holds the full extracted text for keyword scans. Never sent to clients.
	ExtractedText string `gorm:"type:text" json:"-"`

	// Version is bumped by every guarded status update.
	Version int64 `gorm:"not null;default:0" json:"version"`
}

// BeforeCreate is a GORM hook assigning an id when the caller did not.
func (d *Document) BeforeCreate(tx *gorm.DB) error {
	if d.ID == "" {
		d.ID = uuid.NewString()
	}
	if d.ProcessingStatus == "" {
		d.ProcessingStatus = StatusPending
	}
	return nil
}

// DetermineDocumentType maps a file name to its DocumentType using the
// lowercase text after the last dot. Unknown or missing extensions are OTHER.
func DetermineDocumentType(fileName string) DocumentType {
	ext := strings.TrimPrefix(strings.ToLower(filepath.Ext(fileName)), ".")
	switch ext {
	case "pdf":
		return DocumentTypePDF
	case "docx", "doc":
		return DocumentTypeDOCX
	case "txt":
		return DocumentTypeTXT
	case "rtf":
		return DocumentTypeRTF
	default:
		return DocumentTypeOther
	}
}

// NewDocument carries the caller supplied fields for a new Document.
type NewDocument struct {
	Title       string
	Author      string
	FileName    string
	ContentType string
	FileSize    int64
	UploadedBy  string
}

// PageRequest selects a zero-based page of results.
type PageRequest struct {
	Page int
	Size int
}

// Offset returns the number of rows to skip.
func (p PageRequest) Offset() int {
	if p.Page < 0 {
		return 0
	}
	return p.Page * p.Limit()
}

// Limit returns the page size, defaulting to 10.
func (p PageRequest) Limit() int {
	if p.Size <= 0 {
		return 10
	}
	return p.Size
}

// Page is one page of results plus the total number of matches.
type Page[T any] struct {
	Items []T   `json:"items"`
	Total int64 `json:"total"`
	Page  int   `json:"page"`
	Size  int   `json:"size"`
}
