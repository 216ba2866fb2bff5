package worker

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"hackathon_portal/internal/platform/mail"
	"log"
	"time"

	"github.com/redis/go-redis/v9"
)

const maxMailAttempts = 3

type mailJob struct {
	Message  mail.Message `json:"message"`
	Attempts int          `json:"attempts"`
}

// MailQueue pushes outgoing mail onto a Redis list for MailWorker. Without
// Redis, or when the push fails, the message is sent inline.
type MailQueue struct {
	rdb       *redis.Client
	queueName string
	mailer    mail.Mailer
}

func NewMailQueue(rdb *redis.Client, queueName string, mailer mail.Mailer) *MailQueue {
	return &MailQueue{rdb: rdb, queueName: queueName, mailer: mailer}
}

func (q *MailQueue) Dispatch(ctx context.Context, msg mail.Message) error {
	if q.rdb == nil {
		return q.mailer.Send(ctx, msg)
	}
	payload, err := json.Marshal(mailJob{Message: msg})
	if err != nil {
		return fmt.Errorf("failed to encode mail job: %w", err)
	}
	if err := q.rdb.LPush(ctx, q.queueName, payload).Err(); err != nil {
		log.Printf("WARN: Failed to enqueue mail for %s, sending inline: %v", msg.To, err)
		return q.mailer.Send(ctx, msg)
	}
	return nil
}

type MailWorker struct {
	rdb         *redis.Client
	queueName   string
	mailer      mail.Mailer
	pollTimeout time.Duration
}

func NewMailWorker(rdb *redis.Client, queueName string, mailer mail.Mailer) *MailWorker {
	return &MailWorker{rdb: rdb, queueName: queueName, mailer: mailer, pollTimeout: 5 * time.Second}
}

// Start blocks until ctx is cancelled.
func (w *MailWorker) Start(ctx context.Context) {
	log.Println("Mail worker started, listening to queue:", w.queueName)
	for {
		select {
		case <-ctx.Done():
			log.Println("Mail worker stopping...")
			return
		default:
		}

		res, err := w.rdb.BRPop(ctx, w.pollTimeout, w.queueName).Result()
		if err != nil {
			if errors.Is(err, redis.Nil) {
				continue
			}
			if errors.Is(err, context.Canceled) || errors.Is(err, context.DeadlineExceeded) {
				continue
			}
			log.Printf("ERROR: Failed to BRPop from Redis queue '%s': %v", w.queueName, err)
			select {
			case <-ctx.Done():
			case <-time.After(5 * time.Second):
			}
			continue
		}

		// res is [queueName, value]
		if len(res) < 2 || res[1] == "" {
			log.Println("WARN: BRPop returned an empty mail job.")
			continue
		}
		w.handle(ctx, res[1])
	}
}

func (w *MailWorker) handle(ctx context.Context, payload string) {
	var job mailJob
	if err := json.Unmarshal([]byte(payload), &job); err != nil {
		log.Printf("ERROR: Dropping undecodable mail job: %v", err)
		return
	}

	if err := w.mailer.Send(ctx, job.Message); err != nil {
		job.Attempts++
		if job.Attempts >= maxMailAttempts {
			log.Printf("ERROR: Giving up on mail to %s after %d attempts: %v", job.Message.To, job.Attempts, err)
			return
		}
		log.Printf("WARN: Mail to %s failed (attempt %d), re-queueing: %v", job.Message.To, job.Attempts, err)
		w.requeue(ctx, job)
		return
	}
	log.Printf("INFO: Mail %q delivered to %s", job.Message.Subject, job.Message.To)
}

func (w *MailWorker) requeue(ctx context.Context, job mailJob) {
	payload, err := json.Marshal(job)
	if err != nil {
		log.Printf("ERROR: Failed to encode mail job for re-queue: %v", err)
		return
	}
	// BRPOP consumes from the tail, so LPUSH puts the job behind queued mail.
	if err := w.rdb.LPush(ctx, w.queueName, payload).Err(); err != nil {
		log.Printf("ERROR: Failed to re-queue mail to %s: %v", job.Message.To, err)
	}
}
