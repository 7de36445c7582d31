package domain

import "slices"

// PageStatus is the lifecycle state of a saved page.
type PageStatus string

// Valid page statuses.
const (
	StatusActive    PageStatus = "active"
	StatusFavorite  PageStatus = "favorite"
	StatusArchive   PageStatus = "archive"
	StatusReadLater PageStatus = "read_later"
	StatusReview    PageStatus = "review"
	StatusBroken    PageStatus = "broken"
)

// Valid reports whether s is one of the known statuses.
func (s PageStatus) Valid() bool {
	switch s {
	case StatusActive, StatusFavorite, StatusArchive, StatusReadLater, StatusReview, StatusBroken:
		return true
	}
	return false
}

// Page is a single saved link. BookID is empty for unfiled pages, which
// appear in the library's root ordering instead of a book's.
type Page struct {
	Syncable
	BookID      string     `json:"book_id,omitempty"`
	Title       string     `json:"title"`
	URL         string     `json:"url"`
	Description string     `json:"description,omitempty"`
	Content     string     `json:"content,omitempty"`
	Notes       string     `json:"notes,omitempty"`
	Tags        []Tag      `json:"tags,omitempty"`
	Pinned      bool       `json:"pinned,omitempty"`
	Status      PageStatus `json:"status"`
}

// AddTag adds a tag, keeping labels unique within the set. If a tag with
// the same label already exists its type is left as-is, except that a user
// tag always wins over an auto tag. Returns true if the set changed.
func (p *Page) AddTag(tag Tag) bool {
	for i, existing := range p.Tags {
		if existing.Label == tag.Label {
			if existing.Type == TagTypeAuto && tag.Type == TagTypeUser {
				p.Tags[i].Type = TagTypeUser
				return true
			}
			return false
		}
	}
	p.Tags = append(p.Tags, tag)
	return true
}

// RemoveTag removes the tag with the given label.
// Returns false if no such tag exists.
func (p *Page) RemoveTag(label string) bool {
	for i, tag := range p.Tags {
		if tag.Label == label {
			p.Tags = append(p.Tags[:i], p.Tags[i+1:]...)
			return true
		}
	}
	return false
}

// HasTag checks whether a tag with the given label is present.
func (p *Page) HasTag(label string) bool {
	return slices.ContainsFunc(p.Tags, func(t Tag) bool { return t.Label == label })
}

// Clone returns a deep copy of the page.
func (p *Page) Clone() *Page {
	dup := *p
	dup.Tags = slices.Clone(p.Tags)
	return &dup
}
