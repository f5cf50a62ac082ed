package init

import (
	"fmt"

	"github.com/zettagrid/geocontrol/contexts/geo/internal/application"
	"github.com/zettagrid/geocontrol/jobs"
)

// registerJobs initialises all jobs to be run by this Context.
func (c *GeoContext) registerJobs(scheduler jobs.Scheduler, purgeSchedule string) error {
	if err := scheduler.RegisterJobFunc(c.app.PurgeExpiredCountries.H); err != nil {
		return fmt.Errorf("could not register purge job: %w", err)
	}

	if err := scheduler.Schedule(purgeSchedule, application.PurgeExpiredCountries{}); err != nil {
		return fmt.Errorf("could not schedule purge job: %w", err)
	}

	return nil
}
