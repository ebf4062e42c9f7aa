package models

// DefaultSnippetLength is used when a question does not specify one.
const DefaultSnippetLength = 200

// Snippet is a bounded text window around a keyword match. Never persisted.
type Snippet struct {
	DocumentID     string  `json:"documentId"`
	DocumentTitle  string  `json:"documentTitle"`
	Author         string  `json:"author"`
	SnippetText    string  `json:"snippet"`
	RelevanceScore float64 `json:"relevanceScore"`
}

// QuestionRequest is a keyword question. A nil MaxResults means no limit.
type QuestionRequest struct {
	Question      string `json:"question"`
	MaxResults    *int   `json:"maxResults,omitempty"`
	SnippetLength *int   `json:"snippetLength,omitempty"`

	// Page and PageSize page through candidate documents when backed by the search index.
	Page     int `json:"page,omitempty"`
	PageSize int `json:"pageSize,omitempty"`
}

// EffectiveSnippetLength returns SnippetLength or the default when unset.
func (q QuestionRequest) EffectiveSnippetLength() int {
	if q.SnippetLength == nil {
		return DefaultSnippetLength
	}
	return *q.SnippetLength
}

// QuestionResponse carries ranked snippets for a question.
type QuestionResponse struct {
	Question     string    `json:"question"`
	Snippets     []Snippet `json:"snippets"`
	TotalResults int       `json:"totalResults"`
}
