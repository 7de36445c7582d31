package domain

import "time"

// Syncable provides common fields for entities that participate in
// synchronization. It gets embedded in any type that syncs to the server.
//
// LocalOnly is true from local creation until the first acknowledged push;
// LocalChanges is true whenever the entity has been mutated since the last
// acknowledged push. LocalChanges must never be cleared speculatively -
// only MarkSynced, called after a confirmed server acknowledgment for this
// entity version, clears it.
type Syncable struct {
	CreatedAt    time.Time `json:"created_at"`
	UpdatedAt    time.Time `json:"updated_at"`
	ID           string    `json:"id"`
	LocalOnly    bool      `json:"is_local_only,omitempty"`
	LocalChanges bool      `json:"has_local_changes,omitempty"`
}

// InitTimestamps sets both CreatedAt and UpdatedAt to now.
// Call this when creating a new entity.
func (s *Syncable) InitTimestamps() {
	now := time.Now()
	s.CreatedAt = now
	s.UpdatedAt = now
}

// Touch bumps UpdatedAt and marks the entity as locally changed.
// Call this whenever the underlying entity changes.
func (s *Syncable) Touch() {
	s.UpdatedAt = time.Now()
	s.LocalChanges = true
}

// MarkSynced records a confirmed server acknowledgment: the entity is no
// longer local-only and carries no pending local changes.
func (s *Syncable) MarkSynced() {
	s.LocalOnly = false
	s.LocalChanges = false
}

// IsDirty reports whether the entity must be included in the next push.
func (s *Syncable) IsDirty() bool {
	return s.LocalOnly || s.LocalChanges
}
