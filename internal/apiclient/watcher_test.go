package apiclient_test

import (
	"context"
	"sync"
	"testing"
	"time"

	"github.com/opsdesk/attachkit/internal/apiclient"
	"github.com/opsdesk/attachkit/internal/attachment"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestWatcherNotifiesOnChange(t *testing.T) {
	client, index := setupAPI(t)
	seedAttachment(index, "tok-1", "task-1", "manual.pdf")

	watcher := apiclient.NewWatcher(client, 5*time.Millisecond, nil)

	var mu sync.Mutex
	var updates [][]attachment.Record
	stop := watcher.Watch(context.Background(), "task-1", func(records []attachment.Record) {
		mu.Lock()
		defer mu.Unlock()
		updates = append(updates, records)
	})
	defer stop()

	// Initial snapshot.
	require.Eventually(t, func() bool {
		mu.Lock()
		defer mu.Unlock()
		return len(updates) == 1
	}, time.Second, time.Millisecond)

	seedAttachment(index, "tok-2", "task-1", "notes.pdf")

	require.Eventually(t, func() bool {
		mu.Lock()
		defer mu.Unlock()
		return len(updates) == 2
	}, time.Second, time.Millisecond)

	mu.Lock()
	defer mu.Unlock()
	assert.Len(t, updates[0], 1)
	assert.Len(t, updates[1], 2)
}

func TestWatcherStopIsIdempotent(t *testing.T) {
	client, index := setupAPI(t)
	seedAttachment(index, "tok-1", "task-1", "manual.pdf")

	watcher := apiclient.NewWatcher(client, 5*time.Millisecond, nil)
	stop := watcher.Watch(context.Background(), "task-1", func([]attachment.Record) {})

	stop()
	stop() // must not panic
}

func TestWatcherStopsWithContext(t *testing.T) {
	client, index := setupAPI(t)
	seedAttachment(index, "tok-1", "task-1", "manual.pdf")

	ctx, cancel := context.WithCancel(context.Background())
	watcher := apiclient.NewWatcher(client, 5*time.Millisecond, nil)

	var mu sync.Mutex
	count := 0
	watcher.Watch(ctx, "task-1", func([]attachment.Record) {
		mu.Lock()
		count++
		mu.Unlock()
	})

	require.Eventually(t, func() bool {
		mu.Lock()
		defer mu.Unlock()
		return count >= 1
	}, time.Second, time.Millisecond)

	cancel()
	time.Sleep(20 * time.Millisecond)

	mu.Lock()
	before := count
	mu.Unlock()

	seedAttachment(index, "tok-2", "task-1", "notes.pdf")
	time.Sleep(30 * time.Millisecond)

	mu.Lock()
	defer mu.Unlock()
	assert.Equal(t, before, count, "no callbacks after the context is cancelled")
}
