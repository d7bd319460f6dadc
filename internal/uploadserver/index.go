package uploadserver

import (
	"sync"
	"time"
)

// Session tracks one in-progress resumable upload.
type Session struct {
	ID          string
	TargetKey   string
	Filename    string
	ContentType string
	SizeBytes   int64
	Received    int64
	Metadata    map[string]string
	CreatedAt   time.Time
	Completed   bool
}

// StoredAttachment is a finalized upload as the attachment services
// expose it.
type StoredAttachment struct {
	Token        string     `json:"id"`
	TargetKey    string     `json:"targetId"`
	OriginalName string     `json:"originalName"`
	FileType     string     `json:"fileType"`
	SizeInBytes  int64      `json:"sizeInBytes"`
	IsGlobal     bool       `json:"isGlobal"`
	ExpiryDate   *time.Time `json:"expiryDate,omitempty"`
	UploadedAt   time.Time  `json:"createdAt"`
}

// Index is the dev server's in-memory metadata store. It keeps the
// same method surface a real database layer would have.
type Index struct {
	mu          sync.Mutex
	sessions    map[string]*Session
	attachments map[string]StoredAttachment
	order       []string
}

func NewIndex() *Index {
	return &Index{
		sessions:    make(map[string]*Session),
		attachments: make(map[string]StoredAttachment),
	}
}

func (ix *Index) PutSession(sess Session) {
	ix.mu.Lock()
	defer ix.mu.Unlock()
	ix.sessions[sess.ID] = &sess
}

func (ix *Index) Session(id string) (Session, bool) {
	ix.mu.Lock()
	defer ix.mu.Unlock()
	sess, ok := ix.sessions[id]
	if !ok {
		return Session{}, false
	}
	return *sess, true
}

func (ix *Index) SetReceived(id string, received int64) {
	ix.mu.Lock()
	defer ix.mu.Unlock()
	if sess, ok := ix.sessions[id]; ok {
		sess.Received = received
	}
}

// Complete finalizes a session into a stored attachment.
func (ix *Index) Complete(id string, att StoredAttachment) {
	ix.mu.Lock()
	defer ix.mu.Unlock()
	if sess, ok := ix.sessions[id]; ok {
		sess.Completed = true
	}
	ix.attachments[att.Token] = att
	ix.order = append(ix.order, att.Token)
}

func (ix *Index) DropSession(id string) {
	ix.mu.Lock()
	defer ix.mu.Unlock()
	delete(ix.sessions, id)
}

func (ix *Index) Attachment(token string) (StoredAttachment, bool) {
	ix.mu.Lock()
	defer ix.mu.Unlock()
	att, ok := ix.attachments[token]
	return att, ok
}

// ListAttachments returns the stored attachments for a target key in
// upload order.
func (ix *Index) ListAttachments(targetKey string) []StoredAttachment {
	ix.mu.Lock()
	defer ix.mu.Unlock()
	var out []StoredAttachment
	for _, token := range ix.order {
		att, ok := ix.attachments[token]
		if ok && att.TargetKey == targetKey {
			out = append(out, att)
		}
	}
	return out
}

func (ix *Index) DeleteAttachment(token string) bool {
	ix.mu.Lock()
	defer ix.mu.Unlock()
	if _, ok := ix.attachments[token]; !ok {
		return false
	}
	delete(ix.attachments, token)
	for i, tok := range ix.order {
		if tok == token {
			ix.order = append(ix.order[:i:i], ix.order[i+1:]...)
			break
		}
	}
	return true
}
