package domain

import "github.com/emperorapp/emperor/internal/normalize"

// TagType distinguishes user-applied tags from automatically suggested ones.
type TagType string

// Tag origins.
const (
	TagTypeUser TagType = "user"
	TagTypeAuto TagType = "auto"
)

// Tag is a label attached to a page. Labels are canonical (see
// normalize.TagLabel) and unique within a page's tag set.
type Tag struct {
	Label string  `json:"label"`
	Type  TagType `json:"type"`
}

// NewUserTag creates a user tag with a canonicalized label.
// Returns the zero Tag if the label normalizes to nothing.
func NewUserTag(label string) Tag {
	return Tag{Label: normalize.TagLabel(label), Type: TagTypeUser}
}

// NewAutoTag creates an auto-suggested tag with a canonicalized label.
func NewAutoTag(label string) Tag {
	return Tag{Label: normalize.TagLabel(label), Type: TagTypeAuto}
}
