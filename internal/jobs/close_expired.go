package jobs

import (
	"fmt"
	"log"
	"time"

	"github.com/robfig/cron/v3"
)

// ExpiryCloser is the part of services.Engine the sweep needs.
type ExpiryCloser interface {
	CloseExpired(now time.Time) int
}

// Start runs the survey auto-close sweep on a cron schedule (standard syntax or
// descriptors such as "@every 1m"). Stop the returned scheduler on shutdown.
func Start(target ExpiryCloser, schedule string) (*cron.Cron, error) {
	c := cron.New(cron.WithChain(cron.SkipIfStillRunning(cron.DefaultLogger)))
	if _, err := c.AddFunc(schedule, closeExpired(target, func() time.Time { return time.Now().UTC() })); err != nil {
		return nil, fmt.Errorf("schedule close sweep %q: %w", schedule, err)
	}
	c.Start()
	log.Printf("jobs: close sweep scheduled %q", schedule)
	return c, nil
}

func closeExpired(target ExpiryCloser, now func() time.Time) func() {
	return func() {
		if n := target.CloseExpired(now()); n > 0 {
			log.Printf("jobs: closed %d expired surveys", n)
		}
	}
}
