// Package search provides full-text page search using Bleve. Pages are
// indexed on create and update and removed on delete, so the index tracks
// the entity store without a separate sync job.
package search

import (
	"github.com/emperorapp/emperor/internal/domain"
)

// PageDocument is the Bleve document for a saved page.
type PageDocument struct {
	ID          string   `json:"id"`
	BookID      string   `json:"book_id,omitempty"`
	Title       string   `json:"title"`
	URL         string   `json:"url"`
	Description string   `json:"description,omitempty"`
	Content     string   `json:"content,omitempty"`
	Notes       string   `json:"notes,omitempty"`
	Tags        []string `json:"tags,omitempty"`
	Status      string   `json:"status"`
	UpdatedAt   int64    `json:"updated_at"` // Unix millis, for sorting
}

// FromPage builds the search document for a page.
func FromPage(p *domain.Page) *PageDocument {
	tags := make([]string, 0, len(p.Tags))
	for _, tag := range p.Tags {
		tags = append(tags, tag.Label)
	}
	return &PageDocument{
		ID:          p.ID,
		BookID:      p.BookID,
		Title:       p.Title,
		URL:         p.URL,
		Description: p.Description,
		Content:     p.Content,
		Notes:       p.Notes,
		Tags:        tags,
		Status:      string(p.Status),
		UpdatedAt:   p.UpdatedAt.UnixMilli(),
	}
}

// ToMap converts the document to a map with lowercase field names.
// Bleve by default uses Go struct field names (capitalized), but our
// mapping uses lowercase names, so we convert explicitly.
func (d *PageDocument) ToMap() map[string]interface{} {
	m := map[string]interface{}{
		"id":         d.ID,
		"title":      d.Title,
		"url":        d.URL,
		"status":     d.Status,
		"updated_at": d.UpdatedAt,
	}
	if d.BookID != "" {
		m["book_id"] = d.BookID
	}
	if d.Description != "" {
		m["description"] = d.Description
	}
	if d.Content != "" {
		m["content"] = d.Content
	}
	if d.Notes != "" {
		m["notes"] = d.Notes
	}
	if len(d.Tags) > 0 {
		m["tags"] = d.Tags
	}
	return m
}
