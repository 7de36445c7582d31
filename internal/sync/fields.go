package sync

import "github.com/emperorapp/emperor/internal/domain"

// Field conflict policy for entities that were edited locally while a
// remote change to the same entity arrived. User-editable fields keep the
// local value; server-controlled fields adopt the remote value. Same-field
// edits on two devices resolve with the other device losing silently - an
// accepted limitation of the local-wins heuristic.
//
//	Book  user-editable:     Name, ParentID, Order, Icon, PageIDs
//	Page  user-editable:     Title, URL, Description, Content, Notes,
//	                         Tags, Pinned, Status, BookID
//	Both  server-controlled: CreatedAt, UpdatedAt

// mergeDirtyBook merges a remote book into a locally edited one. The
// result stays flagged dirty so the pending edits go out on the next push.
func mergeDirtyBook(local, remote *domain.Book) *domain.Book {
	merged := remote.Clone()
	merged.Name = local.Name
	merged.ParentID = local.ParentID
	merged.Order = local.Order
	merged.Icon = local.Icon
	merged.PageIDs = append([]string(nil), local.PageIDs...)
	merged.LocalOnly = local.LocalOnly
	merged.LocalChanges = true
	return merged
}

// mergeDirtyPage merges a remote page into a locally edited one.
func mergeDirtyPage(local, remote *domain.Page) *domain.Page {
	merged := remote.Clone()
	merged.Title = local.Title
	merged.URL = local.URL
	merged.Description = local.Description
	merged.Content = local.Content
	merged.Notes = local.Notes
	merged.Tags = append([]domain.Tag(nil), local.Tags...)
	merged.Pinned = local.Pinned
	merged.Status = local.Status
	merged.BookID = local.BookID
	merged.LocalOnly = local.LocalOnly
	merged.LocalChanges = true
	return merged
}
