package models

// IndexRecord is the denormalized, search-engine resident copy of a Document's
// searchable fields plus its extracted text. It is a rebuildable cache and never
// the source of truth for metadata.
type IndexRecord struct {
	// ID is deterministic from DatabaseID so that re-indexing replaces instead of duplicating.
	ID string `json:"id" elastic:"type:keyword"`

	// Title, Author and Content are full-text searchable.
	Title   string `json:"title" elastic:"type:text,analyzer:standard"`
	Author  string `json:"author" elastic:"type:text,analyzer:standard"`
	Content string `json:"content" elastic:"type:text,analyzer:standard"`

	// FileName, DocumentType and UploadedBy are exact-match filters.
	FileName     string       `json:"fileName" elastic:"type:keyword"`
	DocumentType DocumentType `json:"documentType" elastic:"type:keyword"`
	UploadedBy   string       `json:"uploadedBy" elastic:"type:keyword"`

	// DatabaseID is the one-directional back-reference to Document.ID.
	DatabaseID string `json:"databaseId" elastic:"type:keyword"`
}

// IndexRecordID returns the deterministic index id for a document id.
func IndexRecordID(documentID string) string {
	return "doc-" + documentID
}

// NewIndexRecord builds the IndexRecord for a processed message and its text.
func NewIndexRecord(msg ProcessingMessage, documentType DocumentType, content string) IndexRecord {
	return IndexRecord{
		ID:           IndexRecordID(msg.DocumentID),
		Title:        msg.Title,
		Author:       msg.Author,
		Content:      content,
		FileName:     msg.FileName,
		DocumentType: documentType,
		UploadedBy:   msg.UploadedBy,
		DatabaseID:   msg.DocumentID,
	}
}
