package staging

import (
	"github.com/opsdesk/attachkit/internal/attachment"
)

// View is the per-target facade handed to calling code. It binds a
// scope once at construction, so one view instance never mixes
// targeted and untargeted operations: create it with the target id
// when the entity exists, or with an empty id while composing a new
// entity, and call Adopt when the create call returns the real id.
type View struct {
	store *Store
	scope Scope
}

// NewView binds a view to a store. An empty targetID binds the
// unassigned scope.
func NewView(store *Store, targetID string) *View {
	scope := Unassigned()
	if targetID != "" {
		scope = ForTarget(targetID)
	}
	return &View{store: store, scope: scope}
}

// Scope returns the scope the view was bound to.
func (v *View) Scope() Scope { return v.scope }

func (v *View) SetExisting(records []attachment.Record)  { v.store.SetExisting(v.scope, records) }
func (v *View) AddExisting(record attachment.Record)     { v.store.AddExisting(v.scope, record) }
func (v *View) UpsertExisting(record attachment.Record)  { v.store.UpsertExisting(v.scope, record) }
func (v *View) Existing() []attachment.Record            { return v.store.Existing(v.scope) }
func (v *View) MoveExistingToDelete(attachmentID string) { v.store.MoveExistingToDelete(v.scope, attachmentID) }
func (v *View) RestoreFromDelete(attachmentID string)    { v.store.RestoreFromDelete(v.scope, attachmentID) }
func (v *View) ConfirmDeletion()                         { v.store.ConfirmDeletion(v.scope) }
func (v *View) PendingDelete() []attachment.Record       { return v.store.PendingDelete(v.scope) }

func (v *View) Enqueue(in EnqueueInput) string     { return v.store.Enqueue(v.scope, in) }
func (v *View) Remove(localID string)              { v.store.Remove(v.scope, localID) }
func (v *View) Retry(localID string)               { v.store.Retry(v.scope, localID) }
func (v *View) ClearFailed()                       { v.store.ClearFailed(v.scope) }
func (v *View) Queue() []attachment.QueueItem      { return v.store.Queue(v.scope) }
func (v *View) Failed() []attachment.QueueItem     { return v.store.Failed(v.scope) }

func (v *View) Select(record attachment.Record)  { v.store.Select(v.scope, record) }
func (v *View) Deselect(attachmentID string)     { v.store.Deselect(v.scope, attachmentID) }
func (v *View) Selections() []attachment.Record  { return v.store.Selections(v.scope) }
func (v *View) ClearSelections()                 { v.store.ClearSelections(v.scope) }

// Adopt moves the unassigned buffers into the named target and rebinds
// the view to it. Only meaningful on a view bound to the unassigned
// scope; on a keyed view it just rebinds.
func (v *View) Adopt(targetID string) {
	if _, keyed := v.scope.TargetID(); !keyed {
		v.store.AdoptUnassigned(targetID)
	}
	v.scope = ForTarget(targetID)
}
