// Package uploader drives batch uploads of staged attachment queue
// items against a resumable upload endpoint. Items within one batch
// are sent strictly one at a time in insertion order; a failure stops
// the batch so every item after it stays untouched. Whatever happens,
// the queue for the scope is flushed when the batch settles.
package uploader

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"
	"go.uber.org/zap"
	"golang.org/x/sync/semaphore"

	"github.com/opsdesk/attachkit/internal/attachment"
	"github.com/opsdesk/attachkit/internal/observability"
	"github.com/opsdesk/attachkit/internal/staging"
)

// ErrUploadInFlight is returned when a batch is already running for
// the same scope.
var ErrUploadInFlight = errors.New("upload batch already in flight for this target")

// Transport performs a single resumable upload. Metadata values are
// strings per the endpoint contract. The progress callback receives
// cumulative bytes sent and the total size after every chunk.
type Transport interface {
	Upload(ctx context.Context, uploadKey string, item attachment.QueueItem, metadata map[string]string, progress func(sent, total int64)) (token string, err error)
}

// Result reports the terminal state of one queue item after a batch.
// Items past the failure boundary keep their pre-batch status.
type Result struct {
	LocalID  string
	Filename string
	Status   attachment.Status
	Token    string
	Err      error
}

// Config wires a Driver. Store and Transport are required; Logger and
// Metrics default to no-ops.
type Config struct {
	Store     *staging.Store
	Transport Transport
	Logger    *zap.Logger
	Metrics   *observability.UploadMetrics
}

// Driver owns the in-flight guard and the ephemeral per-item progress
// map. Progress lives here, not in the store, so byte-level updates
// do not churn the staged state.
type Driver struct {
	store     *staging.Store
	transport Transport
	logger    *zap.Logger
	metrics   *observability.UploadMetrics
	tracer    trace.Tracer

	mu       sync.Mutex
	inflight map[staging.Scope]*semaphore.Weighted

	pmu      sync.RWMutex
	progress map[string]float64
}

func New(cfg Config) *Driver {
	logger := cfg.Logger
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Driver{
		store:     cfg.Store,
		transport: cfg.Transport,
		logger:    logger,
		metrics:   cfg.Metrics,
		tracer:    otel.Tracer("attachkit/uploader"),
		inflight:  make(map[staging.Scope]*semaphore.Weighted),
		progress:  make(map[string]float64),
	}
}

// UploadAll sends every pending item for the scope, one at a time, in
// insertion order. The first failure marks that item failed and aborts
// the batch; items after it are never attempted. The queue is flushed
// unconditionally once the batch settles, so callers who care about
// failures must read the returned results.
//
// A second call for the same scope while a batch is running returns
// ErrUploadInFlight.
func (d *Driver) UploadAll(ctx context.Context, scope staging.Scope, uploadKey string) (results []Result, err error) {
	sem := d.scopeSem(scope)
	if !sem.TryAcquire(1) {
		d.countBatch("rejected")
		return nil, ErrUploadInFlight
	}

	start := time.Now()
	defer func() {
		d.store.Flush(scope)
		sem.Release(1)
		if d.metrics != nil {
			d.metrics.BatchDuration.Observe(time.Since(start).Seconds())
		}
		outcome := "ok"
		if err != nil {
			outcome = "failed"
		}
		d.countBatch(outcome)
	}()

	ctx, span := d.tracer.Start(ctx, "uploader.UploadAll",
		trace.WithAttributes(attribute.String("upload.scope", scope.String())))
	defer span.End()

	items := d.store.Pending(scope)
	results = make([]Result, 0, len(items))

	for _, it := range items {
		if err != nil {
			// Past the failure boundary: untouched.
			results = append(results, Result{LocalID: it.ID, Filename: it.Filename, Status: it.Status})
			continue
		}

		token, itemErr := d.uploadOne(ctx, scope, uploadKey, it)
		if itemErr != nil {
			err = itemErr
			span.RecordError(itemErr)
			span.SetStatus(codes.Error, "batch aborted")
			results = append(results, Result{LocalID: it.ID, Filename: it.Filename, Status: attachment.StatusFailed, Err: itemErr})
			continue
		}
		results = append(results, Result{LocalID: it.ID, Filename: it.Filename, Status: attachment.StatusUploaded, Token: token})
	}

	return results, err
}

func (d *Driver) uploadOne(ctx context.Context, scope staging.Scope, uploadKey string, it attachment.QueueItem) (string, error) {
	// Per-item context so removing the item mid-transfer aborts the
	// request instead of leaking it.
	itemCtx, cancel := context.WithCancel(ctx)
	defer cancel()
	d.store.SetCancel(it.ID, cancel)
	defer d.store.ClearCancel(it.ID)

	itemCtx, span := d.tracer.Start(itemCtx, "uploader.uploadItem",
		trace.WithAttributes(
			attribute.String("upload.item_id", it.ID),
			attribute.String("upload.filename", it.Filename),
			attribute.Int64("upload.size_bytes", it.SizeBytes),
		))
	defer span.End()

	d.store.SetStatus(scope, it.ID, attachment.StatusUploading)
	d.setProgress(it.ID, 0)

	metadata := map[string]string{"isGlobal": "0"}
	if it.IsGlobal {
		metadata["isGlobal"] = "1"
	}
	if it.ExpirationDate != nil {
		metadata["expirationDate"] = it.ExpirationDate.UTC().Format(time.RFC3339)
	}

	token, err := d.transport.Upload(itemCtx, uploadKey, it, metadata, func(sent, total int64) {
		if total > 0 {
			d.setProgress(it.ID, float64(sent)/float64(total)*100)
		}
	})
	if err != nil {
		d.store.SetStatus(scope, it.ID, attachment.StatusFailed)
		d.setProgress(it.ID, 0)
		span.RecordError(err)
		span.SetStatus(codes.Error, "upload failed")
		d.countItem("failed")
		d.logger.Warn("item upload failed",
			zap.String("item_id", it.ID),
			zap.String("filename", it.Filename),
			zap.Error(err),
		)
		return "", fmt.Errorf("upload %s: %w", it.Filename, err)
	}

	d.store.SetStatus(scope, it.ID, attachment.StatusUploaded)
	d.countItem("uploaded")
	if d.metrics != nil {
		d.metrics.BytesTotal.Add(float64(it.SizeBytes))
	}
	d.logger.Info("item uploaded",
		zap.String("item_id", it.ID),
		zap.String("filename", it.Filename),
		zap.Int64("size_bytes", it.SizeBytes),
		zap.String("token", token),
	)
	return token, nil
}

// Progress returns the last reported percent for an item. Percentages
// are unclamped floats exactly as computed from sent/total; display
// code clamps them.
func (d *Driver) Progress(localID string) float64 {
	d.pmu.RLock()
	defer d.pmu.RUnlock()
	return d.progress[localID]
}

func (d *Driver) setProgress(localID string, pct float64) {
	d.pmu.Lock()
	defer d.pmu.Unlock()
	d.progress[localID] = pct
}

func (d *Driver) scopeSem(scope staging.Scope) *semaphore.Weighted {
	d.mu.Lock()
	defer d.mu.Unlock()
	sem, ok := d.inflight[scope]
	if !ok {
		sem = semaphore.NewWeighted(1)
		d.inflight[scope] = sem
	}
	return sem
}

func (d *Driver) countBatch(outcome string) {
	if d.metrics != nil {
		d.metrics.BatchesTotal.WithLabelValues(outcome).Inc()
	}
}

func (d *Driver) countItem(outcome string) {
	if d.metrics != nil {
		d.metrics.ItemsTotal.WithLabelValues(outcome).Inc()
	}
}
