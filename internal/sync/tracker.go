package sync

import (
	"log/slog"
	"time"

	"github.com/emperorapp/emperor/internal/domain"
	"github.com/emperorapp/emperor/internal/library"
	"github.com/emperorapp/emperor/internal/local"
)

// maxClockSkew bounds how far in the future a persisted watermark may sit
// before it is treated as garbage. A device whose clock jumped backwards
// would otherwise pull nothing forever.
const maxClockSkew = time.Hour

// Changes is one change-tracker pass: what must be pushed and which
// previously synced entities have disappeared locally.
type Changes struct {
	DirtyBooks     []*domain.Book
	DirtyPages     []*domain.Page
	DeletedBookIDs []string
	DeletedPageIDs []string
}

// Empty reports whether there is nothing to push or delete.
func (c Changes) Empty() bool {
	return len(c.DirtyBooks) == 0 && len(c.DirtyPages) == 0 &&
		len(c.DeletedBookIDs) == 0 && len(c.DeletedPageIDs) == 0
}

// TrackChanges collects the dirty entities from the library and diffs the
// current id sets against the sets recorded at the last acknowledged sync:
// an id that was synced before but no longer exists locally was deleted on
// this device and must be deleted on the server.
func TrackChanges(lib *library.Library, synced local.SyncedIDs) Changes {
	bookIDs, pageIDs := lib.IDs()
	return Changes{
		DirtyBooks:     lib.DirtyBooks(),
		DirtyPages:     lib.DirtyPages(),
		DeletedBookIDs: missingFrom(synced.Books, bookIDs),
		DeletedPageIDs: missingFrom(synced.Pages, pageIDs),
	}
}

// EffectiveSince applies the clock-skew guard to a persisted watermark.
// A nil or far-future watermark yields nil, forcing a full-snapshot pull.
func EffectiveSince(lastSyncAt *time.Time, logger *slog.Logger) *time.Time {
	if lastSyncAt == nil {
		return nil
	}
	if lastSyncAt.After(time.Now().Add(maxClockSkew)) {
		if logger != nil {
			logger.Warn("sync watermark is in the future, forcing full resync",
				"last_sync_at", lastSyncAt)
		}
		return nil
	}
	return lastSyncAt
}

// missingFrom returns the ids in synced that are absent from current.
func missingFrom(synced, current []string) []string {
	present := make(map[string]bool, len(current))
	for _, id := range current {
		present[id] = true
	}
	var missing []string
	for _, id := range synced {
		if !present[id] {
			missing = append(missing, id)
		}
	}
	return missing
}
