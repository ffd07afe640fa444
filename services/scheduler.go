// services/scheduler.go
package services

import (
	"log"
	"time"

	"github.com/go-co-op/gocron/v2"
)

// StartExpirySweeper runs the deadline sweep once a minute. Reads already
// exclude past-deadline bounties, so the sweep's job is persistence: flip
// the status, emit the expiry event, keep listings honest after restarts.
func (s *BountyService) StartExpirySweeper() {
	sched, _ := gocron.NewScheduler()
	sched.Start()

	_, _ = sched.NewJob(
		gocron.DurationJob(1*time.Minute),
		gocron.NewTask(func() {
			expired, err := s.ExpireDueBounties()
			if err != nil {
				log.Printf("[Sweep] DB error: %v", err)
				return
			}
			if expired > 0 {
				log.Printf("⌛ Auto-expired %d bounty(ies)", expired)
			}
		}),
	)
}
