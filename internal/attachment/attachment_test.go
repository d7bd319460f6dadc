package attachment_test

import (
	"io"
	"testing"

	"github.com/opsdesk/attachkit/internal/attachment"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNewLocalIDShape(t *testing.T) {
	id := attachment.NewLocalID()
	assert.Len(t, id, 10)
	for _, r := range id {
		assert.True(t, r >= '0' && r <= '9', "id must be all digits: %s", id)
	}
}

func TestNewLocalIDUniqueWithinSession(t *testing.T) {
	const n = 5000
	seen := make(map[string]struct{}, n)
	for i := 0; i < n; i++ {
		id := attachment.NewLocalID()
		_, dup := seen[id]
		require.False(t, dup, "duplicate id %s after %d calls", id, i)
		seen[id] = struct{}{}
	}
}

func TestStatusPending(t *testing.T) {
	assert.True(t, attachment.StatusQueued.Pending())
	assert.True(t, attachment.StatusUploading.Pending())
	assert.False(t, attachment.StatusUploaded.Pending())
	assert.False(t, attachment.StatusFailed.Pending())
}

func TestDeriveKind(t *testing.T) {
	tests := []struct {
		contentType string
		want        attachment.Kind
	}{
		{"image/jpeg", attachment.KindImage},
		{"image/png", attachment.KindImage},
		{"video/mp4", attachment.KindVideo},
		{"audio/mpeg", attachment.KindAudio},
		{"application/pdf", attachment.KindDocument},
		{"text/plain", attachment.KindOther},
		{"", attachment.KindOther},
	}
	for _, tt := range tests {
		assert.Equal(t, tt.want, attachment.DeriveKind(tt.contentType), tt.contentType)
	}
}

func TestBytesOpenerReReadable(t *testing.T) {
	open := attachment.BytesOpener([]byte("hello"))

	for i := 0; i < 2; i++ {
		rc, err := open()
		require.NoError(t, err)
		data, err := io.ReadAll(rc)
		require.NoError(t, err)
		require.NoError(t, rc.Close())
		assert.Equal(t, "hello", string(data))
	}
}
