package storage

import (
	"fmt"
	"io"
	"os"
	"path/filepath"
)

// SessionStorage defines how upload session content is stored.
type SessionStorage interface {
	Create(sessionID string) error
	Append(sessionID string, offset int64, data []byte) (int64, error)
	Size(sessionID string) (int64, error)
	Open(sessionID string) (io.ReadCloser, error)
	Delete(sessionID string) error
}

// FilesystemStorage keeps session content on local disk, one file per
// session.
type FilesystemStorage struct {
	basePath string // e.g., "./data/uploads"
}

func NewFilesystemStorage(basePath string) (*FilesystemStorage, error) {
	if err := os.MkdirAll(basePath, 0755); err != nil {
		return nil, err
	}
	return &FilesystemStorage{basePath: basePath}, nil
}

func (fs *FilesystemStorage) path(sessionID string) string {
	return filepath.Join(fs.basePath, sessionID)
}

func (fs *FilesystemStorage) Create(sessionID string) error {
	f, err := os.Create(fs.path(sessionID))
	if err != nil {
		return err
	}
	return f.Close()
}

// Append writes a chunk at the given offset. The offset must match the
// bytes already stored; a mismatch means the client and server have
// diverged and the chunk is refused.
func (fs *FilesystemStorage) Append(sessionID string, offset int64, data []byte) (int64, error) {
	f, err := os.OpenFile(fs.path(sessionID), os.O_WRONLY, 0644)
	if err != nil {
		return 0, err
	}
	defer f.Close()

	info, err := f.Stat()
	if err != nil {
		return 0, err
	}
	if info.Size() != offset {
		return info.Size(), fmt.Errorf("offset mismatch: have %d, got chunk at %d", info.Size(), offset)
	}

	n, err := f.WriteAt(data, offset)
	if err != nil {
		return offset + int64(n), err
	}
	return offset + int64(n), nil
}

func (fs *FilesystemStorage) Size(sessionID string) (int64, error) {
	info, err := os.Stat(fs.path(sessionID))
	if err != nil {
		return 0, err
	}
	return info.Size(), nil
}

func (fs *FilesystemStorage) Open(sessionID string) (io.ReadCloser, error) {
	return os.Open(fs.path(sessionID))
}

func (fs *FilesystemStorage) Delete(sessionID string) error {
	return os.Remove(fs.path(sessionID))
}
