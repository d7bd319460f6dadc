// Package staging holds the client-side attachment state for every
// target the app is editing: attachments that already exist on the
// server, attachments staged for deletion, files queued for upload,
// and files picked from the user's library. A "target" is whatever
// entity the attachments hang off (a task, a FAQ entry, a vehicle).
//
// A brand-new entity has no id yet, so its state lives under the
// unassigned scope until the create call returns and the buffers are
// adopted into the real target.
package staging

// Scope addresses one target's collections. It is either keyed by a
// target id or the single unassigned scope. Scopes are comparable and
// used directly as map keys.
type Scope struct {
	targetID string
	keyed    bool
}

// ForTarget returns the scope for a known target id.
func ForTarget(targetID string) Scope {
	return Scope{targetID: targetID, keyed: true}
}

// Unassigned returns the scope for an entity that has no id yet.
func Unassigned() Scope {
	return Scope{}
}

// TargetID returns the target id and whether the scope is keyed.
func (s Scope) TargetID() (string, bool) {
	return s.targetID, s.keyed
}

func (s Scope) String() string {
	if s.keyed {
		return "target:" + s.targetID
	}
	return "unassigned"
}
