package screening

import (
	"context"
	"fmt"
	"sync"

	"github.com/haukened/rr-callguard/internal/callguard/common/log"
	"github.com/haukened/rr-callguard/internal/callguard/common/metrics"
	"github.com/haukened/rr-callguard/internal/callguard/domain"
)

const (
	defaultQueueSize = 256
	defaultWorkers   = 1
)

// AsyncRecorder persists blocked-call records on background workers.
// Failures are logged and counted, never returned to the submitter.
type AsyncRecorder struct {
	writer  RecordWriter
	logger  log.Logger
	metrics *metrics.Metrics

	mu     sync.RWMutex // guards closed and sends on queue
	closed bool
	queue  chan domain.BlockedCallRecord
	wg     sync.WaitGroup
}

// RecorderOptions configures NewAsyncRecorder. Zero sizes select defaults.
type RecorderOptions struct {
	Writer    RecordWriter
	Logger    log.Logger
	Metrics   *metrics.Metrics
	QueueSize int
	Workers   int
}

// NewAsyncRecorder starts the worker goroutines. Call Close to drain and stop them.
func NewAsyncRecorder(opts RecorderOptions) *AsyncRecorder {
	if opts.QueueSize <= 0 {
		opts.QueueSize = defaultQueueSize
	}
	if opts.Workers <= 0 {
		opts.Workers = defaultWorkers
	}
	if opts.Logger == nil {
		opts.Logger = log.NewNoopLogger()
	}
	r := &AsyncRecorder{
		writer:  opts.Writer,
		logger:  opts.Logger,
		metrics: opts.Metrics,
		queue:   make(chan domain.BlockedCallRecord, opts.QueueSize),
	}
	for i := 0; i < opts.Workers; i++ {
		r.wg.Add(1)
		go r.work(i)
	}
	return r
}

// Submit enqueues rec without blocking. It returns false when the recorder is
// closed or the queue is full; the record is then dropped.
func (r *AsyncRecorder) Submit(rec domain.BlockedCallRecord) bool {
	r.mu.RLock()
	defer r.mu.RUnlock()
	if r.closed {
		r.logger.Warn(map[string]any{"number": rec.Number}, "recorder closed, dropping blocked-call record")
		r.metrics.RecordDropped()
		return false
	}
	select {
	case r.queue <- rec:
		return true
	default:
		r.logger.Warn(map[string]any{"number": rec.Number, "queue": cap(r.queue)}, "record queue full, dropping blocked-call record")
		r.metrics.RecordDropped()
		return false
	}
}

// Close stops accepting records and waits for queued ones to be written,
// or for ctx to end.
func (r *AsyncRecorder) Close(ctx context.Context) error {
	r.mu.Lock()
	if !r.closed {
		r.closed = true
		close(r.queue)
	}
	r.mu.Unlock()

	done := make(chan struct{})
	go func() {
		r.wg.Wait()
		close(done)
	}()
	select {
	case <-done:
		return nil
	case <-ctx.Done():
		return fmt.Errorf("recorder drain: %w", ctx.Err())
	}
}

func (r *AsyncRecorder) work(id int) {
	defer r.wg.Done()
	for rec := range r.queue {
		if err := r.write(rec); err != nil {
			r.logger.Error(map[string]any{
				"worker":  id,
				"number":  rec.Number,
				"pattern": rec.MatchedPattern,
				"error":   err,
			}, "failed to persist blocked-call record")
			r.metrics.RecordFailed()
			continue
		}
		r.metrics.RecordWritten()
	}
}

func (r *AsyncRecorder) write(rec domain.BlockedCallRecord) (err error) {
	defer func() {
		if p := recover(); p != nil {
			err = fmt.Errorf("writer panicked: %v", p)
		}
	}()
	if r.writer == nil {
		return fmt.Errorf("no record writer configured")
	}
	_, err = r.writer.Insert(rec)
	return err
}

var _ Recorder = (*AsyncRecorder)(nil)
