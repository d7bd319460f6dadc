package attachment

import (
	"bytes"
	"io"
	"os"
	"time"
)

// Status is the upload lifecycle of a staged item. The machine is
// strictly forward: queued -> uploading -> uploaded | failed. A failed
// item may be retried, which puts it back to queued.
type Status string

const (
	StatusQueued    Status = "queued"
	StatusUploading Status = "uploading"
	StatusUploaded  Status = "uploaded"
	StatusFailed    Status = "failed"
)

// Pending reports whether the item still needs to be sent.
func (s Status) Pending() bool {
	return s == StatusQueued || s == StatusUploading
}

// Opener hands out a fresh reader over the staged content. Retries
// re-open rather than rewind, so the source must be re-readable.
type Opener func() (io.ReadCloser, error)

// FileOpener stages content from a path on disk.
func FileOpener(path string) Opener {
	return func() (io.ReadCloser, error) {
		return os.Open(path)
	}
}

// BytesOpener stages in-memory content.
func BytesOpener(data []byte) Opener {
	return func() (io.ReadCloser, error) {
		return io.NopCloser(bytes.NewReader(data)), nil
	}
}

// QueueItem is a file staged for upload. The ID is client-scoped and
// never collides with server-assigned Record ids.
type QueueItem struct {
	ID             string
	Filename       string
	SizeBytes      int64
	IsGlobal       bool
	ExpirationDate *time.Time
	PreviewURL     string
	Status         Status
	Open           Opener
}
