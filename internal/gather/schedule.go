package gather

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/robfig/cron/v3"
)

// Schedule runs g on every activation of the cron spec, evaluated in loc,
// until ctx is done. An activation that fires while the previous run is
// still going is skipped. Run errors are logged and do not stop the
// schedule.
func Schedule(ctx context.Context, spec string, loc *time.Location, g Gatherer, log *slog.Logger) error {
	if loc == nil {
		loc = time.UTC
	}
	log = logger(log).With("gatherer", g.Name())

	c := cron.New(
		cron.WithLocation(loc),
		cron.WithChain(cron.SkipIfStillRunning(cron.DiscardLogger)),
	)
	if _, err := c.AddFunc(spec, func() {
		start := time.Now()
		log.Info("scheduled run starting")
		if err := g.Run(ctx); err != nil {
			log.Error("scheduled run failed", "error", err, "elapsed", time.Since(start))
			return
		}
		log.Info("scheduled run finished", "elapsed", time.Since(start))
	}); err != nil {
		return fmt.Errorf("register %s schedule %q: %w", g.Name(), spec, err)
	}

	c.Start()
	log.Info("scheduler started", "cron", spec, "location", loc.String())
	<-ctx.Done()
	<-c.Stop().Done()
	log.Info("scheduler stopped")
	return nil
}
