package worker

import (
	"context"
	"encoding/json"
	"errors"
	"hackathon_portal/internal/platform/mail"
	"sync"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type recordingMailer struct {
	mu   sync.Mutex
	sent []mail.Message
	err  error
}

func (m *recordingMailer) Send(_ context.Context, msg mail.Message) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.err != nil {
		return m.err
	}
	m.sent = append(m.sent, msg)
	return nil
}

func (m *recordingMailer) count() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return len(m.sent)
}

func setupRedis(t *testing.T) (*miniredis.Miniredis, *redis.Client) {
	t.Helper()
	mr := miniredis.RunT(t)
	rdb := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	t.Cleanup(func() { rdb.Close() })
	return mr, rdb
}

func TestDispatchWithoutRedisSendsInline(t *testing.T) {
	mailer := &recordingMailer{}
	q := NewMailQueue(nil, "mail", mailer)

	require.NoError(t, q.Dispatch(context.Background(), mail.Message{To: "a@example.com", Subject: "hi"}))
	assert.Equal(t, 1, mailer.count())
}

func TestDispatchEnqueues(t *testing.T) {
	mr, rdb := setupRedis(t)
	mailer := &recordingMailer{}
	q := NewMailQueue(rdb, "mail", mailer)

	require.NoError(t, q.Dispatch(context.Background(), mail.Message{To: "a@example.com", Subject: "hi"}))
	assert.Equal(t, 0, mailer.count())

	items, err := mr.List("mail")
	require.NoError(t, err)
	require.Len(t, items, 1)
	var job mailJob
	require.NoError(t, json.Unmarshal([]byte(items[0]), &job))
	assert.Equal(t, "a@example.com", job.Message.To)
	assert.Equal(t, 0, job.Attempts)
}

func TestDispatchFallsBackWhenPushFails(t *testing.T) {
	mr, err := miniredis.Run()
	require.NoError(t, err)
	rdb := redis.NewClient(&redis.Options{Addr: mr.Addr(), MaxRetries: -1})
	defer rdb.Close()
	mr.Close()
	mailer := &recordingMailer{}

	require.NoError(t, NewMailQueue(rdb, "mail", mailer).Dispatch(context.Background(), mail.Message{To: "a@example.com"}))
	assert.Equal(t, 1, mailer.count())
}

func TestWorkerDeliversQueuedMail(t *testing.T) {
	_, rdb := setupRedis(t)
	mailer := &recordingMailer{}
	q := NewMailQueue(rdb, "mail", mailer)
	w := NewMailWorker(rdb, "mail", mailer)
	w.pollTimeout = 100 * time.Millisecond

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan struct{})
	go func() {
		w.Start(ctx)
		close(done)
	}()

	require.NoError(t, q.Dispatch(ctx, mail.Message{To: "a@example.com", Subject: "one"}))
	require.NoError(t, q.Dispatch(ctx, mail.Message{To: "b@example.com", Subject: "two"}))
	assert.Eventually(t, func() bool { return mailer.count() == 2 }, 3*time.Second, 20*time.Millisecond)

	cancel()
	select {
	case <-done:
	case <-time.After(3 * time.Second):
		t.Fatal("worker did not stop after cancel")
	}
}

func TestWorkerRequeuesFailedMailUntilLimit(t *testing.T) {
	mr, rdb := setupRedis(t)
	mailer := &recordingMailer{err: errors.New("smtp down")}
	w := NewMailWorker(rdb, "mail", mailer)

	payload, _ := json.Marshal(mailJob{Message: mail.Message{To: "a@example.com"}})
	w.handle(context.Background(), string(payload))

	items, err := mr.List("mail")
	require.NoError(t, err)
	require.Len(t, items, 1)
	var job mailJob
	require.NoError(t, json.Unmarshal([]byte(items[0]), &job))
	assert.Equal(t, 1, job.Attempts)

	mr.Del("mail")
	payload, _ = json.Marshal(mailJob{Message: mail.Message{To: "a@example.com"}, Attempts: maxMailAttempts - 1})
	w.handle(context.Background(), string(payload))
	assert.False(t, mr.Exists("mail"))
}

func TestWorkerDropsUndecodableJob(t *testing.T) {
	mr, rdb := setupRedis(t)
	mailer := &recordingMailer{}
	NewMailWorker(rdb, "mail", mailer).handle(context.Background(), "not json")
	assert.Equal(t, 0, mailer.count())
	assert.False(t, mr.Exists("mail"))
}
