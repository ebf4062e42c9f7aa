package models

import "time"

// ProcessingMessage is the queue payload linking an uploaded Document to
// everything the worker needs to extract and index it.
type ProcessingMessage struct {
	DocumentID  string    `json:"documentId"`
	FileName    string    `json:"fileName"`
	ContentType string    `json:"contentType"`
	StoragePath string    `json:"storagePath"`
	Title       string    `json:"title"`
	Author      string    `json:"author"`
	UploadedBy  string    `json:"uploadedBy"`
	UploadDate  time.Time `json:"uploadDate"`
}

// NewProcessingMessage snapshots the fields of doc. doc must already have a storage path.
func NewProcessingMessage(doc *Document) ProcessingMessage {
	msg := ProcessingMessage{
		DocumentID:  doc.ID,
		FileName:    doc.FileName,
		ContentType: doc.ContentType,
		Title:       doc.Title,
		Author:      doc.Author,
		UploadedBy:  doc.UploadedBy,
		UploadDate:  doc.UploadDate,
	}
	if doc.StoragePath != nil {
		msg.StoragePath = *doc.StoragePath
	}
	return msg
}
