package refresh

import (
	"context"
	"time"

	"github.com/rs/xid"

	"github.com/pennyfx/penny/rate"
	"github.com/pennyfx/penny/resolver"
)

// scheduledRefresh is a single scheduled pair refresh job
type scheduledRefresh struct {
	at    time.Time
	job   Job
	jobID xid.ID
}

// Less is utilized to sort scheduled refreshes by their due-time (latest == first)
func (a scheduledRefresh) Less(b scheduledRefresh) bool {
	return a.at.Before(b.at)
}

// workerInfo is the work context for the refresh routine
type workerInfo struct {
	resolver RateResolver
	resCh    chan<- *workerResponse
	job      Job
	jobID    xid.ID
}

// workerResponse is the refresh routine response
type workerResponse struct {
	error  error        // encountered error, if any
	record *rate.Record // the refreshed rate
	jobID  xid.ID       // the job ID
}

// handleJob refreshes the pair through the live strategy
func handleJob(
	ctx context.Context,
	info *workerInfo,
) {
	rec, err := info.resolver.Resolve(
		ctx,
		info.job.Pair.Base,
		info.job.Pair.Quote,
		resolver.StrategyLive,
	)

	response := &workerResponse{
		error:  err,
		record: rec,
		jobID:  info.jobID,
	}

	select {
	case <-ctx.Done():
	case info.resCh <- response:
	}
}
