package staging

import (
	"sync"
	"time"

	"github.com/opsdesk/attachkit/internal/attachment"
)

// Store is an in-memory container for per-scope attachment state. It
// is instantiated per app (or per test), never a package singleton,
// and is safe for use from multiple goroutines.
//
// No operation here touches the network. Remote effects (uploading,
// deleting) belong to the uploader and the API client; the store only
// tracks what the user has staged.
type Store struct {
	mu         sync.Mutex
	existing   map[Scope][]attachment.Record
	toDelete   map[Scope][]attachment.Record
	queue      map[Scope][]attachment.QueueItem
	selections map[Scope][]attachment.Record

	// cancel funcs for in-flight transfers, keyed by local item id.
	cancels map[string]func()
}

func NewStore() *Store {
	return &Store{
		existing:   make(map[Scope][]attachment.Record),
		toDelete:   make(map[Scope][]attachment.Record),
		queue:      make(map[Scope][]attachment.QueueItem),
		selections: make(map[Scope][]attachment.Record),
		cancels:    make(map[string]func()),
	}
}

// --- existing attachments -------------------------------------------------

// SetExisting replaces the existing-attachment list wholesale, as after
// a fresh fetch. The caller guarantees the records belong to the scope.
func (s *Store) SetExisting(scope Scope, records []attachment.Record) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.existing[scope] = append([]attachment.Record(nil), records...)
}

// AddExisting appends a record. No de-duplication by id; calling twice
// with the same record yields a duplicate, which is on the caller.
func (s *Store) AddExisting(scope Scope, record attachment.Record) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.existing[scope] = append(s.existing[scope], record)
}

// UpsertExisting replaces a record by id if present, else appends.
func (s *Store) UpsertExisting(scope Scope, record attachment.Record) {
	s.mu.Lock()
	defer s.mu.Unlock()
	list := s.existing[scope]
	for i, r := range list {
		if r.ID == record.ID {
			list[i] = record
			return
		}
	}
	s.existing[scope] = append(list, record)
}

// Existing returns a copy of the existing-attachment list.
func (s *Store) Existing(scope Scope) []attachment.Record {
	s.mu.Lock()
	defer s.mu.Unlock()
	return append([]attachment.Record(nil), s.existing[scope]...)
}

// --- staged deletions -----------------------------------------------------

// MoveExistingToDelete stages a record for deletion: removes it from
// the existing list and appends it to the pending-delete list in one
// step. If the id is not present, nothing happens. Nothing is deleted
// remotely; this is reversible until ConfirmDeletion.
func (s *Store) MoveExistingToDelete(scope Scope, attachmentID string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	list := s.existing[scope]
	for i, r := range list {
		if r.ID == attachmentID {
			s.existing[scope] = append(list[:i:i], list[i+1:]...)
			s.toDelete[scope] = append(s.toDelete[scope], r)
			return
		}
	}
}

// RestoreFromDelete is the inverse move. If the id is not staged for
// deletion, nothing happens.
func (s *Store) RestoreFromDelete(scope Scope, attachmentID string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	list := s.toDelete[scope]
	for i, r := range list {
		if r.ID == attachmentID {
			s.toDelete[scope] = append(list[:i:i], list[i+1:]...)
			s.existing[scope] = append(s.existing[scope], r)
			return
		}
	}
}

// ConfirmDeletion finalizes staged deletions after the owning entity's
// save succeeded. The caller has already issued the remote deletes; we
// scrub the ids from the existing list (defensive, they should already
// be gone) and drop the pending-delete list entirely.
func (s *Store) ConfirmDeletion(scope Scope) {
	s.mu.Lock()
	defer s.mu.Unlock()
	staged := s.toDelete[scope]
	if len(staged) == 0 {
		return
	}
	ids := make(map[string]struct{}, len(staged))
	for _, r := range staged {
		ids[r.ID] = struct{}{}
	}
	kept := s.existing[scope][:0]
	for _, r := range s.existing[scope] {
		if _, gone := ids[r.ID]; !gone {
			kept = append(kept, r)
		}
	}
	s.existing[scope] = kept
	delete(s.toDelete, scope)
}

// PendingDelete returns a copy of the records staged for deletion.
func (s *Store) PendingDelete(scope Scope) []attachment.Record {
	s.mu.Lock()
	defer s.mu.Unlock()
	return append([]attachment.Record(nil), s.toDelete[scope]...)
}

// --- upload queue ---------------------------------------------------------

// EnqueueInput describes a file being staged for upload.
type EnqueueInput struct {
	Filename       string
	SizeBytes      int64
	IsGlobal       bool
	ExpirationDate *time.Time
	PreviewURL     string
	Open           attachment.Opener
}

// Enqueue stages a file for upload and returns its client-scoped id.
// The item starts queued; nothing is transferred until the uploader
// runs a batch for the scope.
func (s *Store) Enqueue(scope Scope, in EnqueueInput) string {
	item := attachment.QueueItem{
		ID:             attachment.NewLocalID(),
		Filename:       in.Filename,
		SizeBytes:      in.SizeBytes,
		IsGlobal:       in.IsGlobal,
		ExpirationDate: in.ExpirationDate,
		PreviewURL:     in.PreviewURL,
		Status:         attachment.StatusQueued,
		Open:           in.Open,
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	s.queue[scope] = append(s.queue[scope], item)
	return item.ID
}

// UpdateItem applies a partial update to a queued item. Missing ids
// are ignored.
func (s *Store) UpdateItem(scope Scope, localID string, update func(*attachment.QueueItem)) {
	s.mu.Lock()
	defer s.mu.Unlock()
	list := s.queue[scope]
	for i := range list {
		if list[i].ID == localID {
			update(&list[i])
			return
		}
	}
}

// SetStatus flips a queued item's status. Missing ids are ignored.
func (s *Store) SetStatus(scope Scope, localID string, status attachment.Status) {
	s.UpdateItem(scope, localID, func(it *attachment.QueueItem) {
		it.Status = status
	})
}

// Remove drops an item regardless of status. If the item's transfer is
// in flight, its context is cancelled so the request actually stops.
func (s *Store) Remove(scope Scope, localID string) {
	s.mu.Lock()
	cancel := s.cancels[localID]
	delete(s.cancels, localID)
	list := s.queue[scope]
	for i := range list {
		if list[i].ID == localID {
			s.queue[scope] = append(list[:i:i], list[i+1:]...)
			break
		}
	}
	s.mu.Unlock()
	if cancel != nil {
		cancel()
	}
}

// Retry puts a failed item back to queued so the next batch picks it
// up. Items in any other status are left alone.
func (s *Store) Retry(scope Scope, localID string) {
	s.UpdateItem(scope, localID, func(it *attachment.QueueItem) {
		if it.Status == attachment.StatusFailed {
			it.Status = attachment.StatusQueued
		}
	})
}

// ClearFailed drops every failed item for the scope.
func (s *Store) ClearFailed(scope Scope) {
	s.mu.Lock()
	defer s.mu.Unlock()
	kept := s.queue[scope][:0]
	for _, it := range s.queue[scope] {
		if it.Status != attachment.StatusFailed {
			kept = append(kept, it)
		}
	}
	s.queue[scope] = kept
}

// Flush clears the whole queue for the scope, success and failure
// alike. The uploader calls this after every batch; callers who want
// to retry failures must collect them before flushing.
func (s *Store) Flush(scope Scope) {
	s.mu.Lock()
	defer s.mu.Unlock()
	for _, it := range s.queue[scope] {
		delete(s.cancels, it.ID)
	}
	delete(s.queue, scope)
}

// Queue returns a copy of the scope's upload queue in insertion order.
func (s *Store) Queue(scope Scope) []attachment.QueueItem {
	s.mu.Lock()
	defer s.mu.Unlock()
	return append([]attachment.QueueItem(nil), s.queue[scope]...)
}

// Pending returns the items a batch upload would send, in order.
func (s *Store) Pending(scope Scope) []attachment.QueueItem {
	s.mu.Lock()
	defer s.mu.Unlock()
	var out []attachment.QueueItem
	for _, it := range s.queue[scope] {
		if it.Status.Pending() {
			out = append(out, it)
		}
	}
	return out
}

// Failed returns the failed items for the scope.
func (s *Store) Failed(scope Scope) []attachment.QueueItem {
	s.mu.Lock()
	defer s.mu.Unlock()
	var out []attachment.QueueItem
	for _, it := range s.queue[scope] {
		if it.Status == attachment.StatusFailed {
			out = append(out, it)
		}
	}
	return out
}

// SetCancel registers the cancel func for an in-flight transfer.
func (s *Store) SetCancel(localID string, cancel func()) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.cancels[localID] = cancel
}

// ClearCancel unregisters an in-flight transfer.
func (s *Store) ClearCancel(localID string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	delete(s.cancels, localID)
}

// --- library selections ---------------------------------------------------

// Select stages a record chosen from the user's file library. Not yet
// attached; that happens when the owning form saves.
func (s *Store) Select(scope Scope, record attachment.Record) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.selections[scope] = append(s.selections[scope], record)
}

// Deselect drops a staged library selection. Missing ids are ignored.
func (s *Store) Deselect(scope Scope, attachmentID string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	list := s.selections[scope]
	for i, r := range list {
		if r.ID == attachmentID {
			s.selections[scope] = append(list[:i:i], list[i+1:]...)
			return
		}
	}
}

// Selections returns a copy of the staged library selections.
func (s *Store) Selections(scope Scope) []attachment.Record {
	s.mu.Lock()
	defer s.mu.Unlock()
	return append([]attachment.Record(nil), s.selections[scope]...)
}

// ClearSelections drops all staged selections for the scope.
func (s *Store) ClearSelections(scope Scope) {
	s.mu.Lock()
	defer s.mu.Unlock()
	delete(s.selections, scope)
}

// --- unassigned -> assigned -----------------------------------------------

// AdoptUnassigned moves everything buffered under the unassigned scope
// into the named target's collections, preserving order, then clears
// the unassigned buffers. This fires once a create call returns a real
// id. The transition is one-directional; there is no inverse.
func (s *Store) AdoptUnassigned(targetID string) {
	src := Unassigned()
	dst := ForTarget(targetID)
	s.mu.Lock()
	defer s.mu.Unlock()

	s.existing[dst] = append(s.existing[dst], s.existing[src]...)
	s.toDelete[dst] = append(s.toDelete[dst], s.toDelete[src]...)
	s.queue[dst] = append(s.queue[dst], s.queue[src]...)
	s.selections[dst] = append(s.selections[dst], s.selections[src]...)

	delete(s.existing, src)
	delete(s.toDelete, src)
	delete(s.queue, src)
	delete(s.selections, src)
}
