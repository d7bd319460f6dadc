package apiclient

import (
	"context"
	"strings"
	"sync"
	"time"

	"go.uber.org/zap"

	"github.com/opsdesk/attachkit/internal/attachment"
)

// Watcher notifies a callback when a target's attachment list changes,
// by polling the list endpoint. Display surfaces (the TV viewer)
// subscribe through this.
type Watcher struct {
	client   *Client
	interval time.Duration
	logger   *zap.Logger
}

func NewWatcher(client *Client, interval time.Duration, logger *zap.Logger) *Watcher {
	if interval <= 0 {
		interval = 2 * time.Second
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Watcher{client: client, interval: interval, logger: logger}
}

// Watch polls the target's attachment list and invokes fn whenever the
// set of ids changes, including once for the initial list. The
// returned func stops the subscription; cancelling ctx stops it too.
func (w *Watcher) Watch(ctx context.Context, targetID string, fn func([]attachment.Record)) func() {
	done := make(chan struct{})

	go func() {
		ticker := time.NewTicker(w.interval)
		defer ticker.Stop()

		lastSeen := "\x00unseen"
		poll := func() {
			records, err := w.client.List(ctx, targetID)
			if err != nil {
				w.logger.Warn("attachment poll failed",
					zap.String("target_id", targetID),
					zap.Error(err),
				)
				return
			}
			fp := fingerprint(records)
			if fp == lastSeen {
				return
			}
			lastSeen = fp
			fn(records)
		}

		poll()
		for {
			select {
			case <-done:
				return
			case <-ctx.Done():
				return
			case <-ticker.C:
				poll()
			}
		}
	}()

	var once sync.Once
	return func() {
		once.Do(func() { close(done) })
	}
}

func fingerprint(records []attachment.Record) string {
	ids := make([]string, 0, len(records))
	for _, r := range records {
		ids = append(ids, r.ID)
	}
	return strings.Join(ids, "\x00")
}
