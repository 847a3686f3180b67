package workers

import (
	"context"
	"sync"
	"time"

	"github.com/sirupsen/logrus"

	"github.com/execdash/execdash/db"
	"github.com/execdash/execdash/internal/metrics"
	"github.com/execdash/execdash/store"
)

// AuditWorker writes audit rows off the request path. Submit never blocks:
// when the buffer is full the row is dropped and counted.
type AuditWorker struct {
	Repo         store.AuditRepository
	WriteTimeout time.Duration

	queue  chan db.AuditLog
	log    logrus.FieldLogger
	wg     sync.WaitGroup
	mu     sync.RWMutex
	closed bool
}

func NewAuditWorker(repo store.AuditRepository, bufferSize int, log logrus.FieldLogger) *AuditWorker {
	if bufferSize <= 0 {
		bufferSize = 256
	}
	if log == nil {
		log = logrus.StandardLogger()
	}
	return &AuditWorker{
		Repo:         repo,
		WriteTimeout: 5 * time.Second,
		queue:        make(chan db.AuditLog, bufferSize),
		log:          log.WithField("component", "audit_worker"),
	}
}

// Start launches the writer goroutine.
func (w *AuditWorker) Start() {
	w.log.Info("Audit worker started")
	w.wg.Add(1)
	go w.run()
}

// Submit queues a row. The caller's context is not used for the write.
func (w *AuditWorker) Submit(_ context.Context, entry db.AuditLog) {
	w.mu.RLock()
	defer w.mu.RUnlock()
	if w.closed {
		metrics.AuditWrites.WithLabelValues("dropped").Inc()
		return
	}

	if entry.CreatedAt.IsZero() {
		entry.CreatedAt = time.Now()
	}
	select {
	case w.queue <- entry:
	default:
		metrics.AuditWrites.WithLabelValues("dropped").Inc()
		w.log.WithField("action", entry.Action).Warn("Audit buffer full, dropping entry")
	}
}

func (w *AuditWorker) run() {
	defer w.wg.Done()
	for entry := range w.queue {
		w.write(entry)
	}
}

func (w *AuditWorker) write(entry db.AuditLog) {
	ctx, cancel := context.WithTimeout(context.Background(), w.WriteTimeout)
	defer cancel()

	if err := w.Repo.Insert(ctx, &entry); err != nil {
		metrics.AuditWrites.WithLabelValues("failed").Inc()
		w.log.WithError(err).WithFields(logrus.Fields{
			"action":      entry.Action,
			"resource_id": entry.ResourceID,
		}).Error("Failed to write audit log")
		return
	}
	metrics.AuditWrites.WithLabelValues("written").Inc()
}

// Close stops accepting rows and waits until the queued ones are written.
func (w *AuditWorker) Close() {
	w.mu.Lock()
	if w.closed {
		w.mu.Unlock()
		return
	}
	w.closed = true
	close(w.queue)
	w.mu.Unlock()

	w.wg.Wait()
	w.log.Info("Audit worker stopped")
}
