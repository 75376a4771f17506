// Package services orchestrates draft commits: submit, log, notify.
package services

import (
	"context"
	"errors"
	"sync"
	"sync/atomic"
	"time"

	"catatan/internal/core"
	"catatan/internal/editor"
	applog "catatan/internal/log"
)

// Notifier announces committed transactions. *amqp.Client implements it.
type Notifier interface {
	PublishTransactionCommitted(ctx context.Context, tx core.Transaction) error
}

// Stats are cumulative counters since process start.
type Stats struct {
	Committed      int64
	Rejected       int64
	NotifyFailures int64
}

const (
	// DefaultNotifyTimeout bounds a single publish, independent of the
	// request that produced the transaction.
	DefaultNotifyTimeout = 5 * time.Second
	// DefaultNotifyQueue is how many notifications may wait for the
	// broker before new ones are dropped.
	DefaultNotifyQueue = 64
)

type CommitService struct {
	notifier Notifier
	logger   *applog.StructuredLogger
	timeout  time.Duration

	mu     sync.Mutex
	closed bool
	queue  chan core.Transaction
	done   chan struct{}

	committed      atomic.Int64
	rejected       atomic.Int64
	notifyFailures atomic.Int64
}

// NewCommitService wires the optional notifier; a nil notifier skips
// notifications. A non-nil notifier is driven by a background worker that
// runs until Shutdown.
func NewCommitService(notifier Notifier, logger *applog.Logger) *CommitService {
	return newCommitService(notifier, logger, DefaultNotifyTimeout, DefaultNotifyQueue)
}

func newCommitService(notifier Notifier, logger *applog.Logger, timeout time.Duration, queue int) *CommitService {
	if logger == nil {
		logger = applog.New(applog.DefaultConfig())
	}
	s := &CommitService{
		notifier: notifier,
		logger:   applog.NewStructuredLogger(logger.WithComponent(applog.ComponentEditor)),
		timeout:  timeout,
		done:     make(chan struct{}),
	}
	if notifier == nil {
		close(s.done)
		return s
	}
	s.queue = make(chan core.Transaction, queue)
	go s.publishLoop()
	return s
}

// Commit submits the editor's draft. Validation failures are returned as-is
// (*editor.ValidationError). The notification is queued and published in the
// background, so a slow or failing broker never delays or fails the commit.
// The caller must hold exclusive access to e.
func (s *CommitService) Commit(ctx context.Context, sessionID string, e *editor.Editor) (core.Transaction, error) {
	tx, err := e.Submit()
	if err != nil {
		var ve *editor.ValidationError
		if errors.As(err, &ve) {
			s.rejected.Add(1)
			s.logger.LogValidationFailed(ctx, sessionID, ve.Field, ve.Err)
		} else {
			s.logger.LogError(ctx, "Commit failed", err, applog.ComponentEditor, applog.OpCommit,
				applog.NewFields().WithSessionID(sessionID))
		}
		return core.Transaction{}, err
	}

	s.committed.Add(1)
	s.logger.LogTransactionCommitted(ctx, sessionID, tx, e.Len())
	s.enqueue(ctx, tx)
	return tx, nil
}

func (s *CommitService) enqueue(ctx context.Context, tx core.Transaction) {
	if s.notifier == nil {
		return
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.closed {
		s.dropped(ctx, tx, errNotifierClosed)
		return
	}
	select {
	case s.queue <- tx:
	default:
		s.dropped(ctx, tx, errNotifyQueueFull)
	}
}

var (
	errNotifyQueueFull = errors.New("notification queue full")
	errNotifierClosed  = errors.New("notifier shut down")
)

func (s *CommitService) dropped(ctx context.Context, tx core.Transaction, err error) {
	s.notifyFailures.Add(1)
	s.logger.LogError(ctx, "Dropped commit notification", err, applog.ComponentAMQP, applog.OpNotify,
		applog.NewFields().WithTransaction(tx))
}

func (s *CommitService) publishLoop() {
	defer close(s.done)
	for tx := range s.queue {
		s.publish(tx)
	}
}

func (s *CommitService) publish(tx core.Transaction) {
	ctx, cancel := context.WithTimeout(context.Background(), s.timeout)
	defer cancel()
	if err := s.notifier.PublishTransactionCommitted(ctx, tx); err != nil {
		s.notifyFailures.Add(1)
		s.logger.LogError(ctx, "Failed to publish commit notification", err, applog.ComponentAMQP, applog.OpNotify,
			applog.NewFields().WithTransaction(tx))
	}
}

// Shutdown stops accepting notifications and waits for the queued ones to be
// published, or for ctx to expire. It is safe to call more than once.
func (s *CommitService) Shutdown(ctx context.Context) error {
	s.mu.Lock()
	if !s.closed && s.queue != nil {
		close(s.queue)
	}
	s.closed = true
	s.mu.Unlock()

	select {
	case <-s.done:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}

func (s *CommitService) Stats() Stats {
	return Stats{
		Committed:      s.committed.Load(),
		Rejected:       s.rejected.Load(),
		NotifyFailures: s.notifyFailures.Load(),
	}
}
