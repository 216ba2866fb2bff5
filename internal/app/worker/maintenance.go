package worker

import (
	"context"
	"fmt"
	"log"
	"time"

	"github.com/go-co-op/gocron/v2"
)

// Purger deletes rows that expired before the given time.
type Purger interface {
	DeleteExpired(ctx context.Context, before time.Time) (int64, error)
}

// Maintenance periodically removes expired OTPs and sessions.
type Maintenance struct {
	purgers map[string]Purger
	timeout time.Duration
	now     func() time.Time
}

func NewMaintenance(purgers map[string]Purger) *Maintenance {
	return &Maintenance{purgers: purgers, timeout: 30 * time.Second, now: time.Now}
}

// RunOnce purges every table and returns the number of deleted rows per
// table. A failing purger does not stop the others.
func (m *Maintenance) RunOnce(ctx context.Context) map[string]int64 {
	ctx, cancel := context.WithTimeout(ctx, m.timeout)
	defer cancel()

	now := m.now()
	removed := make(map[string]int64, len(m.purgers))
	for name, p := range m.purgers {
		n, err := p.DeleteExpired(ctx, now)
		if err != nil {
			log.Printf("ERROR: Maintenance purge of %s failed: %v", name, err)
			continue
		}
		removed[name] = n
		if n > 0 {
			log.Printf("INFO: Maintenance purged %d expired %s", n, name)
		}
	}
	return removed
}

// Start schedules RunOnce every interval. The caller shuts the scheduler
// down.
func (m *Maintenance) Start(ctx context.Context, interval time.Duration) (gocron.Scheduler, error) {
	s, err := gocron.NewScheduler()
	if err != nil {
		return nil, fmt.Errorf("failed to create maintenance scheduler: %w", err)
	}
	_, err = s.NewJob(
		gocron.DurationJob(interval),
		gocron.NewTask(func() { m.RunOnce(ctx) }),
		gocron.WithSingletonMode(gocron.LimitModeReschedule),
	)
	if err != nil {
		_ = s.Shutdown()
		return nil, fmt.Errorf("failed to schedule maintenance job: %w", err)
	}
	s.Start()
	return s, nil
}
