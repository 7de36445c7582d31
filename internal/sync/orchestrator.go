package sync

import (
	"context"
	"log/slog"
	stdsync "sync"
	"sync/atomic"
	"time"

	"github.com/emperorapp/emperor/internal/domain"
	"github.com/emperorapp/emperor/internal/library"
	"github.com/emperorapp/emperor/internal/local"
)

// State is the orchestrator's observable sync state.
type State string

// Orchestrator states.
const (
	StateIdle    State = "idle"
	StateSyncing State = "syncing"
	StateError   State = "error"
)

// Status is a point-in-time view of the orchestrator for the front-end's
// status indicator. A failed sync is observable state, never a panic or an
// error thrown at the UI.
type Status struct {
	State      State
	LastSyncAt *time.Time
	LastError  string
	Pushed     int
	Pulled     int
	Deleted    int
}

// Orchestrator drives the sync sequence: tombstone deletes, push, pull,
// merge, persist. At most one sequence is in flight; triggers while
// syncing are no-ops. Retry is trigger-driven only - a down server gets a
// new attempt when the user or the app fires the next trigger, not from a
// timer loop.
type Orchestrator struct {
	lib    *library.Library
	store  *local.Store
	client *Client
	rec    *Reconciler
	logger *slog.Logger

	inFlight atomic.Bool

	mu     stdsync.Mutex
	status Status
}

// NewOrchestrator creates a sync orchestrator.
func NewOrchestrator(lib *library.Library, store *local.Store, client *Client, logger *slog.Logger) *Orchestrator {
	if logger == nil {
		logger = slog.New(slog.DiscardHandler)
	}
	o := &Orchestrator{
		lib:    lib,
		store:  store,
		client: client,
		rec:    NewReconciler(logger),
		logger: logger,
	}
	o.status.State = StateIdle
	o.status.LastSyncAt = store.LastSyncAt()
	return o
}

// Status returns the current sync status.
func (o *Orchestrator) Status() Status {
	o.mu.Lock()
	defer o.mu.Unlock()
	return o.status
}

// TrySync fires a sync trigger. If a sync is already in flight the trigger
// is a no-op and TrySync returns nil immediately. Otherwise it runs the
// full sequence and returns the recorded error, if any; local state is
// never left partially synced on failure.
func (o *Orchestrator) TrySync(ctx context.Context) error {
	if !o.inFlight.CompareAndSwap(false, true) {
		o.logger.Debug("sync already in flight, ignoring trigger")
		return nil
	}
	defer o.inFlight.Store(false)

	o.setState(StateSyncing)
	started := time.Now()

	pushed, pulled, deleted, err := o.run(ctx)
	if err != nil {
		o.logger.Warn("sync failed", "error", err)
		o.mu.Lock()
		o.status.State = StateError
		o.status.LastError = err.Error()
		o.mu.Unlock()
		return err
	}

	at := time.Now()
	o.mu.Lock()
	o.status = Status{
		State:      StateIdle,
		LastSyncAt: &at,
		Pushed:     pushed,
		Pulled:     pulled,
		Deleted:    deleted,
	}
	o.mu.Unlock()
	o.logger.Info("sync completed",
		"pushed", pushed,
		"pulled", pulled,
		"deleted", deleted,
		"took", time.Since(started),
	)
	return nil
}

// run executes one sync sequence. Push always completes before pull
// begins: pulling first risks re-merging a remote version that the push
// is about to supersede.
func (o *Orchestrator) run(ctx context.Context) (pushed, pulled, deleted int, err error) {
	since := EffectiveSince(o.store.LastSyncAt(), o.logger)
	synced := o.store.LoadSyncedIDs()
	changes := TrackChanges(o.lib, synced)

	// Tombstones first, one call per deleted entity. A deletion that went
	// through stays deleted even if the rest of the sequence fails.
	for _, id := range changes.DeletedBookIDs {
		if err := o.client.DeleteEntity(ctx, "book", id); err != nil {
			return 0, 0, deleted, err
		}
		deleted++
	}
	for _, id := range changes.DeletedPageIDs {
		if err := o.client.DeleteEntity(ctx, "page", id); err != nil {
			return 0, 0, deleted, err
		}
		deleted++
	}

	if err := o.push(ctx, changes); err != nil {
		return 0, 0, deleted, err
	}
	pushed = len(changes.DirtyBooks) + len(changes.DirtyPages)

	pull, err := o.client.Pull(ctx, since)
	if err != nil {
		return pushed, 0, deleted, err
	}
	pulled = len(pull.Books) + len(pull.Pages)

	o.lib.ApplyMerge(func(snap *domain.Snapshot) *domain.Snapshot {
		return o.rec.Merge(snap, pull, since == nil)
	})

	// The watermark is the server's clock, not ours: a fast local clock
	// would otherwise make the next incremental pull skip remote changes.
	watermark := pull.ServerTime
	if watermark.IsZero() {
		watermark = time.Now()
	}

	bookIDs, pageIDs := o.lib.IDs()
	err = o.store.SaveSyncState(o.lib.Snapshot(), watermark, local.SyncedIDs{
		Books: bookIDs,
		Pages: pageIDs,
	})
	if err != nil {
		return pushed, pulled, deleted, err
	}
	return pushed, pulled, deleted, nil
}

// push sends the dirty entities and applies the server's acknowledgment:
// provisional ids are rewritten to canonical ones, then the pushed
// versions are marked clean. An entity edited while the push was in flight
// keeps its dirty flag.
func (o *Orchestrator) push(ctx context.Context, changes Changes) error {
	if len(changes.DirtyBooks) == 0 && len(changes.DirtyPages) == 0 {
		return nil
	}

	payload := &PushPayload{
		Books: changes.DirtyBooks,
		Pages: changes.DirtyPages,
	}
	result, err := o.client.Push(ctx, payload)
	if err != nil {
		return err
	}

	remap := func(id string) string {
		if canonical, ok := result.IDMap[id]; ok {
			return canonical
		}
		return id
	}
	o.lib.ApplyIDMap(result.IDMap)

	bookVersions := make(map[string]time.Time, len(changes.DirtyBooks))
	for _, b := range changes.DirtyBooks {
		bookVersions[remap(b.ID)] = b.UpdatedAt
	}
	pageVersions := make(map[string]time.Time, len(changes.DirtyPages))
	for _, p := range changes.DirtyPages {
		pageVersions[remap(p.ID)] = p.UpdatedAt
	}
	o.lib.MarkSynced(bookVersions, pageVersions)
	return nil
}

func (o *Orchestrator) setState(s State) {
	o.mu.Lock()
	o.status.State = s
	o.mu.Unlock()
}
