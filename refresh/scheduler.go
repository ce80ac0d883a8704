package refresh

import (
	"context"
	"errors"
	"io"
	"log/slog"
	"sync"
	"time"

	"github.com/rs/xid"
	"github.com/sig-0/iq"

	"github.com/pennyfx/penny/archive"
	"github.com/pennyfx/penny/currency"
	"github.com/pennyfx/penny/rate"
	"github.com/pennyfx/penny/resolver"
)

var (
	errInvalidPair     = errors.New("invalid pair")
	errInvalidInterval = errors.New("invalid interval")
)

// RateResolver obtains a rate for a currency pair under a strategy
type RateResolver interface {
	// Resolve obtains a rate for the given pair
	Resolve(
		ctx context.Context,
		base currency.Code,
		quote currency.Code,
		strategy resolver.Strategy,
	) (*rate.Record, error)
}

// Job is a single registered pair refresh
type Job struct {
	Pair     rate.Pair
	Interval time.Duration
}

// Scheduler is the background refresh loop for registered pairs.
// Each refresh goes through the live strategy, so successful fetches
// land in the cache; an archive, when configured, keeps the full history
type Scheduler struct {
	resolver RateResolver
	archive  archive.Archive
	logger   *slog.Logger

	registeredJobs sync.Map

	q             iq.Queue[scheduledRefresh]
	queryInterval time.Duration
	retryDelay    time.Duration
	qMux          sync.Mutex
}

// New creates a new Scheduler instance
func New(resolver RateResolver, opts ...Option) *Scheduler {
	s := &Scheduler{
		logger:        slog.New(slog.NewTextHandler(io.Discard, nil)),
		resolver:      resolver,
		q:             iq.NewQueue[scheduledRefresh](),
		queryInterval: time.Second, // every second
		retryDelay:    time.Second * 10,
	}

	// Apply the options
	for _, opt := range opts {
		opt(s)
	}

	return s
}

// Register registers a new pair refresh job with the scheduler.
// The job is immediately queued up for execution
func (s *Scheduler) Register(job Job) error {
	if job.Pair.Base == "" || job.Pair.Quote == "" || job.Pair.Base == job.Pair.Quote {
		return errInvalidPair
	}

	if job.Interval <= 0 {
		return errInvalidInterval
	}

	// Register the job
	id := xid.New()
	s.registeredJobs.Store(id, job)

	s.logger.Info(
		"registered refresh job",
		"pair", job.Pair.String(),
		"interval", job.Interval.String(),
	)

	// Schedule the refresh
	s.scheduleRefresh(
		time.Now().UTC(),
		id,
		job,
	)

	return nil
}

// Start starts the pair refresh service loop [BLOCKING]
func (s *Scheduler) Start(ctx context.Context) error {
	collectorCh := make(chan *workerResponse, 100)

	// Start a listener for monitoring jobs
	ticker := time.NewTicker(s.queryInterval)
	defer ticker.Stop()

	// handleRefresh initializes all jobs that are executable (due)
	handleRefresh := func() {
		for {
			select {
			case <-ctx.Done():
				return
			default:
				nextSR := s.nextRefresh()
				if nextSR == nil {
					return // nothing to schedule anymore
				}

				s.logger.Info(
					"scheduling refresh",
					"pair", nextSR.job.Pair.String(),
				)

				// Spawn worker
				info := &workerInfo{
					resolver: s.resolver,
					job:      nextSR.job,
					jobID:    nextSR.jobID,
					resCh:    collectorCh,
				}

				go handleJob(ctx, info)
			}
		}
	}

	// Initialize the first set of due jobs (on boot)
	handleRefresh()

	for {
		select {
		case <-ctx.Done():
			s.logger.Info("refresh scheduler shut down")
			close(collectorCh)

			return nil
		case <-ticker.C:
			handleRefresh()
		case response := <-collectorCh:
			now := time.Now().UTC()

			jobRaw, ok := s.registeredJobs.Load(response.jobID)
			if !ok {
				s.logger.Error(
					"unable to load registered job",
					"id", response.jobID.String(),
				)

				continue
			}

			job, _ := jobRaw.(Job)

			if response.error != nil {
				s.logger.Error(
					"error encountered during rate refresh",
					"pair", job.Pair.String(),
					"err", response.error.Error(),
				)

				// Retry the refresh soon
				s.scheduleRefresh(
					now.Add(s.retryDelay),
					response.jobID,
					job,
				)

				continue
			}

			s.archiveRecord(ctx, response.record)

			// Schedule the next refresh for this pair
			s.scheduleRefresh(
				now.Add(job.Interval),
				response.jobID,
				job,
			)
		}
	}
}

// archiveRecord persists the refreshed rate to the archive, if one
// is configured. The cache write already happened inside the resolver
func (s *Scheduler) archiveRecord(ctx context.Context, rec *rate.Record) {
	if s.archive == nil || rec == nil {
		return
	}

	saveCtx, cancelFn := context.WithTimeout(ctx, time.Second*10)
	defer cancelFn()

	if err := s.archive.SaveRate(saveCtx, rec); err != nil {
		s.logger.Error(
			"unable to archive rate",
			"base", rec.Base,
			"quote", rec.Quote,
			"err", err,
		)

		return
	}

	s.logger.Info(
		"archived rate",
		"base", rec.Base,
		"quote", rec.Quote,
		"rate", rec.Rate.String(),
		"observed_at", rec.ObservedAt.String(),
	)
}

// scheduleRefresh schedules a new pair refresh
func (s *Scheduler) scheduleRefresh(
	at time.Time,
	jobID xid.ID,
	job Job,
) {
	s.qMux.Lock()
	defer s.qMux.Unlock()

	futureSR := scheduledRefresh{
		at:    at,
		jobID: jobID,
		job:   job,
	}

	s.q.Push(futureSR)
}

// nextRefresh fetches the next due refresh job, as of the moment of calling
func (s *Scheduler) nextRefresh() *scheduledRefresh {
	s.qMux.Lock()
	defer s.qMux.Unlock()

	now := time.Now().UTC()

	// Check if anything needs to be scheduled
	if s.q.Len() == 0 {
		return nil // nothing to schedule, all jobs are running
	}

	// Check if the top element is due
	if s.q.Index(0).at.After(now) {
		return nil // nothing to schedule, latest job is in the future
	}

	// Grab the next job
	nextSR := s.q.PopFront()

	return nextSR
}
