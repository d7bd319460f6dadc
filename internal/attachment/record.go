package attachment

import (
	"strings"
	"time"
)

// Record describes a file that already exists in backend storage.
// Records are immutable once fetched; client state only adds or drops
// them, it never edits them in place.
type Record struct {
	ID             string
	OriginalName   string
	FileType       string
	SizeBytes      int64
	IsGlobal       bool
	ExpirationDate *time.Time
	CreatedAt      time.Time
	SignedURL      string
	TargetID       string
	OwnerID        string
}

type Kind string

const (
	KindImage    Kind = "image"
	KindVideo    Kind = "video"
	KindAudio    Kind = "audio"
	KindDocument Kind = "document"
	KindOther    Kind = "other"
)

// DeriveKind maps a MIME content type onto a coarse attachment kind.
func DeriveKind(contentType string) Kind {
	if strings.HasPrefix(contentType, "image/") {
		return KindImage
	}
	if strings.HasPrefix(contentType, "video/") {
		return KindVideo
	}
	if strings.HasPrefix(contentType, "audio/") {
		return KindAudio
	}
	if strings.Contains(contentType, "pdf") {
		return KindDocument
	}
	return KindOther
}
