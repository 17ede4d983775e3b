package realtime

import (
	"context"
	"errors"
	"io"
	"sync"
	"testing"
	"time"

	"github.com/sirupsen/logrus"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"locova/internal/domain/realtime"
)

type fakeSubscriber struct {
	mu       sync.Mutex
	handlers map[string]func(realtime.Change)
	failOn   string
}

func newFakeSubscriber() *fakeSubscriber {
	return &fakeSubscriber{handlers: make(map[string]func(realtime.Change))}
}

func (s *fakeSubscriber) Subscribe(table string, onChange func(realtime.Change)) (func(), error) {
	if table == s.failOn {
		return nil, errors.New("channel error")
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	s.handlers[table] = onChange

	return func() {
		s.mu.Lock()
		defer s.mu.Unlock()
		delete(s.handlers, table)
	}, nil
}

func (s *fakeSubscriber) emit(change realtime.Change) {
	s.mu.Lock()
	handler := s.handlers[change.Table]
	s.mu.Unlock()

	if handler != nil {
		handler(change)
	}
}

func (s *fakeSubscriber) count() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.handlers)
}

type fakeView struct {
	mu        sync.Mutex
	thread    string
	snapshots int
	threads   []string
}

func (v *fakeView) RefreshSnapshot(ctx context.Context) error {
	v.mu.Lock()
	defer v.mu.Unlock()
	v.snapshots++
	return nil
}

func (v *fakeView) OpenThread() (string, bool) {
	v.mu.Lock()
	defer v.mu.Unlock()
	return v.thread, v.thread != ""
}

func (v *fakeView) RefreshThread(ctx context.Context, trendID string) error {
	v.mu.Lock()
	defer v.mu.Unlock()
	v.threads = append(v.threads, trendID)
	return nil
}

func (v *fakeView) counts() (int, []string) {
	v.mu.Lock()
	defer v.mu.Unlock()
	return v.snapshots, append([]string(nil), v.threads...)
}

func quietLogger() *logrus.Logger {
	logger := logrus.New()
	logger.SetOutput(io.Discard)
	return logger
}

func TestTrigger_AttachSubscribesEveryTable(t *testing.T) {
	subscriber := newFakeSubscriber()
	attachment, err := NewTrigger(subscriber, 10*time.Millisecond, quietLogger()).Attach(context.Background(), &fakeView{})
	require.NoError(t, err)
	assert.Equal(t, len(Tables), subscriber.count())

	attachment.Detach()
	assert.Equal(t, 0, subscriber.count())

	// Second detach is a no-op
	attachment.Detach()
}

func TestTrigger_AttachFailureReleasesSubscriptions(t *testing.T) {
	subscriber := newFakeSubscriber()
	subscriber.failOn = realtime.TableTrendSaves

	_, err := NewTrigger(subscriber, time.Millisecond, quietLogger()).Attach(context.Background(), &fakeView{})
	assert.Error(t, err)
	assert.Equal(t, 0, subscriber.count())
}

func TestTrigger_CoalescesBurstIntoOneRefresh(t *testing.T) {
	subscriber := newFakeSubscriber()
	view := &fakeView{}
	attachment, err := NewTrigger(subscriber, 50*time.Millisecond, quietLogger()).Attach(context.Background(), view)
	require.NoError(t, err)
	defer attachment.Detach()

	for i := 0; i < 5; i++ {
		subscriber.emit(realtime.Change{Table: realtime.TableTrendLikes, Op: realtime.OpInsert, EntityID: "t1"})
	}

	assert.Eventually(t, func() bool {
		snapshots, _ := view.counts()
		return snapshots == 1
	}, time.Second, 5*time.Millisecond)

	time.Sleep(100 * time.Millisecond)
	snapshots, threads := view.counts()
	assert.Equal(t, 1, snapshots)
	assert.Empty(t, threads)
}

func TestTrigger_RefetchesOpenThreadForAffectedTrend(t *testing.T) {
	subscriber := newFakeSubscriber()
	view := &fakeView{thread: "t1"}
	attachment, err := NewTrigger(subscriber, 10*time.Millisecond, quietLogger()).Attach(context.Background(), view)
	require.NoError(t, err)
	defer attachment.Detach()

	subscriber.emit(realtime.Change{Table: realtime.TableTrendComments, Op: realtime.OpInsert, EntityID: "other"})
	assert.Eventually(t, func() bool {
		snapshots, _ := view.counts()
		return snapshots == 1
	}, time.Second, 5*time.Millisecond)
	_, threads := view.counts()
	assert.Empty(t, threads)

	subscriber.emit(realtime.Change{Table: realtime.TableTrendComments, Op: realtime.OpInsert, EntityID: "t1"})
	assert.Eventually(t, func() bool {
		_, threads := view.counts()
		return len(threads) == 1 && threads[0] == "t1"
	}, time.Second, 5*time.Millisecond)
}

func TestTrigger_DetachDropsPendingRefresh(t *testing.T) {
	subscriber := newFakeSubscriber()
	view := &fakeView{}
	attachment, err := NewTrigger(subscriber, 30*time.Millisecond, quietLogger()).Attach(context.Background(), view)
	require.NoError(t, err)

	subscriber.emit(realtime.Change{Table: realtime.TableTrends, Op: realtime.OpInsert, EntityID: "t1"})
	attachment.Detach()

	time.Sleep(80 * time.Millisecond)
	snapshots, _ := view.counts()
	assert.Equal(t, 0, snapshots)
}

func TestTrigger_ContextCancellationDetaches(t *testing.T) {
	subscriber := newFakeSubscriber()
	ctx, cancel := context.WithCancel(context.Background())

	_, err := NewTrigger(subscriber, time.Millisecond, quietLogger()).Attach(ctx, &fakeView{})
	require.NoError(t, err)

	cancel()
	assert.Eventually(t, func() bool { return subscriber.count() == 0 }, time.Second, 5*time.Millisecond)
}
