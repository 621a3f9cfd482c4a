package queue

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/rolegate/authd/internal/core/domain"
)

type recordingService struct {
	mu     sync.Mutex
	events []domain.AuditEvent
	err    error
	block  chan struct{}
}

func (s *recordingService) Process(_ context.Context, e domain.AuditEvent) error {
	if s.block != nil {
		<-s.block
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	s.events = append(s.events, e)
	return s.err
}

func (s *recordingService) snapshot() []domain.AuditEvent {
	s.mu.Lock()
	defer s.mu.Unlock()
	return append([]domain.AuditEvent(nil), s.events...)
}

func TestDispatcher_PreservesPerSubjectOrder(t *testing.T) {
	svc := &recordingService{}
	d := NewDispatcher(4, svc, zerolog.Nop())
	ctx, cancel := context.WithCancel(context.Background())
	d.Start(ctx)

	actions := []domain.AuditAction{
		domain.AuditUserRegistered,
		domain.AuditLoginSucceeded,
		domain.AuditPasswordReset,
		domain.AuditPermissionsUpdated,
		domain.AuditUserDeleted,
	}
	for _, a := range actions {
		d.Enqueue(domain.AuditEvent{Action: a, Subject: "a@x.com"})
		d.Enqueue(domain.AuditEvent{Action: a, Subject: "b@x.com"})
	}

	require.Eventually(t, func() bool { return len(svc.snapshot()) == 2*len(actions) }, time.Second, 5*time.Millisecond)
	cancel()
	d.Wait()

	var forA []domain.AuditAction
	for _, e := range svc.snapshot() {
		if e.Subject == "a@x.com" {
			forA = append(forA, e.Action)
		}
	}
	assert.Equal(t, actions, forA)
}

func TestDispatcher_ShardIndexIsStable(t *testing.T) {
	d := NewDispatcher(8, &recordingService{}, zerolog.Nop())

	assert.Equal(t, d.shardIndex("a@x.com"), d.shardIndex("A@X.com"))
	for _, s := range []string{"", "a", "someone@example.org"} {
		idx := d.shardIndex(s)
		assert.GreaterOrEqual(t, idx, 0)
		assert.Less(t, idx, 8)
	}
}

func TestDispatcher_DropsWhenFull(t *testing.T) {
	svc := &recordingService{block: make(chan struct{})}
	d := NewDispatcher(1, svc, zerolog.Nop())

	for i := 0; i < channelBuffer+10; i++ {
		d.Enqueue(domain.AuditEvent{Action: domain.AuditLoginFailed, Subject: "a@x.com"})
	}
	assert.Len(t, d.workers[0], channelBuffer)
	close(svc.block)
}

func TestDispatcher_ProcessErrorsDoNotStopWorker(t *testing.T) {
	svc := &recordingService{err: errors.New("mongo down")}
	d := NewDispatcher(1, svc, zerolog.Nop())
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	d.Start(ctx)

	d.Enqueue(domain.AuditEvent{Action: domain.AuditLoginFailed, Subject: "a@x.com"})
	d.Enqueue(domain.AuditEvent{Action: domain.AuditLoginFailed, Subject: "a@x.com"})

	assert.Eventually(t, func() bool { return len(svc.snapshot()) == 2 }, time.Second, 5*time.Millisecond)
}

func TestNewDispatcher_DefaultWorkers(t *testing.T) {
	d := NewDispatcher(0, &recordingService{}, zerolog.Nop())
	assert.Len(t, d.workers, defaultWorkers)
}
