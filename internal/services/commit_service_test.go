package services

import (
	"bytes"
	"context"
	"errors"
	"log/slog"
	"testing"
	"time"

	"catatan/internal/core"
	"catatan/internal/editor"
	applog "catatan/internal/log"
	"catatan/internal/reference"
)

type recordingNotifier struct {
	got []core.Transaction
	err error
}

func (n *recordingNotifier) PublishTransactionCommitted(_ context.Context, tx core.Transaction) error {
	n.got = append(n.got, tx)
	return n.err
}

func newEditor(t *testing.T) *editor.Editor {
	t.Helper()
	e, err := editor.New(editor.Options{
		Accounts:   core.MustReferenceList(reference.DefaultAccounts()...),
		Categories: core.MustReferenceList(reference.DefaultCategories()...),
		Seed:       reference.DefaultOpening(),
		Clock:      func() time.Time { return time.Date(2026, 10, 19, 0, 0, 0, 0, time.UTC) },
	})
	if err != nil {
		t.Fatalf("editor.New: %v", err)
	}
	return e
}

func quietLogger() *applog.Logger {
	return applog.NewText(&bytes.Buffer{}, slog.LevelDebug, applog.ComponentApp)
}

func shutdown(t *testing.T, svc *CommitService) {
	t.Helper()
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if err := svc.Shutdown(ctx); err != nil {
		t.Fatalf("Shutdown: %v", err)
	}
}

// blockingNotifier holds every publish until release is closed or the
// publish context expires.
type blockingNotifier struct {
	release  chan struct{}
	started  chan struct{}
	deadline chan bool
}

func newBlockingNotifier() *blockingNotifier {
	return &blockingNotifier{
		release:  make(chan struct{}),
		started:  make(chan struct{}, 16),
		deadline: make(chan bool, 16),
	}
}

func (n *blockingNotifier) PublishTransactionCommitted(ctx context.Context, _ core.Transaction) error {
	_, ok := ctx.Deadline()
	n.deadline <- ok
	n.started <- struct{}{}
	select {
	case <-n.release:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}

func fillDraft(e *editor.Editor) {
	e.SetDescription("Coffee")
	e.SetAmount("15000")
	e.SelectAccount(3)
	e.SelectCategory(2)
}

func TestCommitService_Success(t *testing.T) {
	n := &recordingNotifier{}
	svc := NewCommitService(n, quietLogger())
	e := newEditor(t)
	fillDraft(e)

	tx, err := svc.Commit(context.Background(), "s1", e)
	if err != nil {
		t.Fatalf("Commit: %v", err)
	}
	if tx.Account != "Cash" || tx.Category != "Expense" {
		t.Fatalf("unexpected tx %+v", tx)
	}
	shutdown(t, svc)
	if len(n.got) != 1 || n.got[0].ID != tx.ID {
		t.Fatalf("notifier got %+v", n.got)
	}
	if s := svc.Stats(); s.Committed != 1 || s.Rejected != 0 {
		t.Fatalf("stats = %+v", s)
	}
}

func TestCommitService_ValidationFailure(t *testing.T) {
	n := &recordingNotifier{}
	svc := NewCommitService(n, quietLogger())
	e := newEditor(t)

	_, err := svc.Commit(context.Background(), "s1", e)
	if !errors.Is(err, editor.ErrMissingDescription) {
		t.Fatalf("expected missing description, got %v", err)
	}
	shutdown(t, svc)
	if len(n.got) != 0 {
		t.Fatal("rejected drafts must not be announced")
	}
	if s := svc.Stats(); s.Rejected != 1 || s.Committed != 0 {
		t.Fatalf("stats = %+v", s)
	}
	if e.Len() != 4 {
		t.Fatalf("editor mutated on failure: %d rows", e.Len())
	}
}

func TestCommitService_NotifierFailureDoesNotFailCommit(t *testing.T) {
	n := &recordingNotifier{err: errors.New("broker down")}
	svc := NewCommitService(n, quietLogger())
	e := newEditor(t)
	fillDraft(e)

	if _, err := svc.Commit(context.Background(), "s1", e); err != nil {
		t.Fatalf("Commit: %v", err)
	}
	shutdown(t, svc)
	if s := svc.Stats(); s.Committed != 1 || s.NotifyFailures != 1 {
		t.Fatalf("stats = %+v", s)
	}
	if e.Len() != 5 {
		t.Fatalf("rows = %d", e.Len())
	}
}

func TestCommitService_NilNotifier(t *testing.T) {
	svc := NewCommitService(nil, nil)
	e := newEditor(t)
	fillDraft(e)
	if _, err := svc.Commit(context.Background(), "s1", e); err != nil {
		t.Fatalf("Commit: %v", err)
	}
}

func TestCommitService_SlowNotifierDoesNotBlockCommit(t *testing.T) {
	n := newBlockingNotifier()
	svc := NewCommitService(n, quietLogger())
	e := newEditor(t)
	fillDraft(e)

	done := make(chan error, 1)
	go func() {
		_, err := svc.Commit(context.Background(), "s1", e)
		done <- err
	}()
	select {
	case err := <-done:
		if err != nil {
			t.Fatalf("Commit: %v", err)
		}
	case <-time.After(time.Second):
		t.Fatal("Commit waited for the notifier")
	}

	<-n.started
	if !<-n.deadline {
		t.Error("publish context has no deadline")
	}
	close(n.release)
	shutdown(t, svc)
	if s := svc.Stats(); s.Committed != 1 || s.NotifyFailures != 0 {
		t.Fatalf("stats = %+v", s)
	}
}

func TestCommitService_PublishTimeout(t *testing.T) {
	n := newBlockingNotifier()
	svc := newCommitService(n, quietLogger(), 20*time.Millisecond, 4)
	e := newEditor(t)
	fillDraft(e)

	if _, err := svc.Commit(context.Background(), "s1", e); err != nil {
		t.Fatalf("Commit: %v", err)
	}
	shutdown(t, svc)
	if s := svc.Stats(); s.NotifyFailures != 1 {
		t.Fatalf("expected timed out publish to count as failure, stats = %+v", s)
	}
}

func TestCommitService_FullQueueDropsNotification(t *testing.T) {
	n := newBlockingNotifier()
	svc := newCommitService(n, quietLogger(), time.Minute, 1)
	e := newEditor(t)

	commit := func() {
		t.Helper()
		fillDraft(e)
		if _, err := svc.Commit(context.Background(), "s1", e); err != nil {
			t.Fatalf("Commit: %v", err)
		}
	}
	commit()
	<-n.started // the worker holds the first one
	commit()    // queued
	commit()    // dropped

	if s := svc.Stats(); s.Committed != 3 || s.NotifyFailures != 1 {
		t.Fatalf("stats = %+v", s)
	}
	close(n.release)
	shutdown(t, svc)
	if s := svc.Stats(); s.NotifyFailures != 1 {
		t.Fatalf("stats after drain = %+v", s)
	}
}

func TestCommitService_CommitAfterShutdown(t *testing.T) {
	n := &recordingNotifier{}
	svc := NewCommitService(n, quietLogger())
	shutdown(t, svc)
	shutdown(t, svc)

	e := newEditor(t)
	fillDraft(e)
	if _, err := svc.Commit(context.Background(), "s1", e); err != nil {
		t.Fatalf("Commit: %v", err)
	}
	if len(n.got) != 0 {
		t.Fatalf("notifier got %+v after shutdown", n.got)
	}
	if s := svc.Stats(); s.Committed != 1 || s.NotifyFailures != 1 {
		t.Fatalf("stats = %+v", s)
	}
}
