package scheduler

import (
	"context"
	"fmt"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/conjurecontent/backend/internal/assembler"
	"github.com/conjurecontent/backend/pkg/db/models"
	"github.com/conjurecontent/backend/pkg/logger"
	"github.com/conjurecontent/backend/pkg/metrics"
)

const defaultPollInterval = 10 * time.Minute

type jobStore interface {
	ListDue(ctx context.Context, now time.Time) ([]models.Job, error)
	MarkAssessed(ctx context.Context, jobID uuid.UUID, at time.Time) error
	ExecutionContext(ctx context.Context, job models.Job) (*models.MediaPreset, *models.PlatformSession, error)
}

type mediaAssembler interface {
	Assemble(ctx context.Context, job models.Job, preset models.MediaPreset) (assembler.Result, error)
}

type videoUploader interface {
	Upload(ctx context.Context, accessToken, filePath, title string) error
}

// ServiceParams configure the polling scheduler.
type ServiceParams struct {
	Logger       *logger.Logger
	Store        jobStore
	Assembler    mediaAssembler
	Uploader     videoUploader
	Lock         Lock
	Metrics      *metrics.PipelineMetrics
	PollInterval time.Duration
}

// Service polls for due jobs on a fixed cadence and runs each one's media
// pipeline. One instance processes a cycle at a time; the cycle lock keeps
// horizontally scaled workers from double-dispatching.
type Service struct {
	logg      *logger.Logger
	store     jobStore
	assembler mediaAssembler
	uploader  videoUploader
	lock      Lock
	metrics   *metrics.PipelineMetrics
	interval  time.Duration
	now       func() time.Time
}

// NewService builds a scheduler service.
func NewService(params ServiceParams) (*Service, error) {
	if params.Logger == nil {
		return nil, fmt.Errorf("logger required")
	}
	if params.Store == nil {
		return nil, fmt.Errorf("job store required")
	}
	if params.Assembler == nil {
		return nil, fmt.Errorf("assembler required")
	}
	if params.Uploader == nil {
		return nil, fmt.Errorf("uploader required")
	}
	if params.Lock == nil {
		return nil, fmt.Errorf("lock required")
	}
	interval := params.PollInterval
	if interval <= 0 {
		interval = defaultPollInterval
	}
	return &Service{
		logg:      params.Logger,
		store:     params.Store,
		assembler: params.Assembler,
		uploader:  params.Uploader,
		lock:      params.Lock,
		metrics:   params.Metrics,
		interval:  interval,
		now:       time.Now,
	}, nil
}

// Run starts the poll loop until the context is canceled.
func (s *Service) Run(ctx context.Context) error {
	if ctx == nil {
		ctx = context.Background()
	}
	if err := s.runCycle(ctx); err != nil {
		s.logg.Error(ctx, "poll cycle failed", err)
	}
	ticker := time.NewTicker(s.interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			s.logg.Info(ctx, "scheduler context canceled")
			return ctx.Err()
		case <-ticker.C:
			if err := s.runCycle(ctx); err != nil {
				s.logg.Error(ctx, "poll cycle failed", err)
			}
		}
	}
}

func (s *Service) runCycle(ctx context.Context) error {
	locked, err := s.lock.Acquire(ctx)
	if err != nil {
		return fmt.Errorf("lock acquire: %w", err)
	}
	if !locked {
		s.logg.Info(ctx, "another worker owns this cycle; skipping")
		return nil
	}
	defer func() {
		if relErr := s.lock.Release(ctx); relErr != nil {
			s.logg.Error(ctx, "failed to release cycle lock", relErr)
		}
	}()

	now := s.now()
	due, err := s.store.ListDue(ctx, now)
	if err != nil {
		return fmt.Errorf("list due jobs: %w", err)
	}
	if s.metrics != nil {
		s.metrics.SetDueJobs(len(due))
	}
	if len(due) == 0 {
		s.logg.Info(ctx, "no jobs due this cycle")
		return nil
	}

	cycleCtx := s.logg.WithField(ctx, "due_jobs", len(due))
	s.logg.Info(cycleCtx, "poll cycle starting")

	var wg sync.WaitGroup
	for _, job := range due {
		// Marking first narrows the window for duplicate dispatch if the
		// worker restarts mid-cycle; a failed run still waits for tomorrow.
		if err := s.store.MarkAssessed(ctx, job.ID, now); err != nil {
			jobCtx := s.logg.WithJobID(ctx, job.ID.String())
			s.logg.Error(jobCtx, "failed to mark job assessed; skipping dispatch", err)
			continue
		}
		wg.Add(1)
		go func(job models.Job) {
			defer wg.Done()
			s.runJob(ctx, job)
		}(job)
	}
	wg.Wait()

	s.logg.Info(cycleCtx, "poll cycle complete")
	return nil
}

func (s *Service) runJob(ctx context.Context, job models.Job) {
	jobCtx := s.logg.WithJobID(ctx, job.ID.String())
	jobCtx = s.logg.WithField(jobCtx, "category", job.Category.String())

	preset, session, err := s.store.ExecutionContext(jobCtx, job)
	if err != nil {
		s.logg.Error(jobCtx, "job execution context unavailable", err)
		s.recordFailure(job)
		return
	}

	for repetition := 1; repetition <= job.RunsPerCycle; repetition++ {
		repCtx := s.logg.WithField(jobCtx, "repetition", repetition)
		s.logg.Info(repCtx, "job repetition starting")
		start := s.now()
		err := s.runRepetition(repCtx, job, *preset, session.AccessToken)
		s.observeDuration(job, s.now().Sub(start))
		if err != nil {
			s.logg.Error(repCtx, "job repetition failed", err)
			s.recordFailure(job)
			continue
		}
		s.logg.Info(repCtx, "job repetition complete")
		s.recordSuccess(job)
	}
}

// runRepetition isolates one end-to-end execution, panics included, so a bad
// job cannot take down the cycle or its sibling goroutines.
func (s *Service) runRepetition(ctx context.Context, job models.Job, preset models.MediaPreset, accessToken string) (err error) {
	defer func() {
		if r := recover(); r != nil {
			err = fmt.Errorf("panic during job execution: %v", r)
		}
	}()

	result, err := s.assembler.Assemble(ctx, job, preset)
	if err != nil {
		return err
	}
	defer func() {
		if cleanErr := result.Cleanup(); cleanErr != nil {
			s.logg.Warn(ctx, "failed to clean execution workspace")
		}
	}()

	return s.uploader.Upload(ctx, accessToken, result.VideoPath, caption(result.Title, result.Tags))
}

func caption(title string, tags []string) string {
	if len(tags) == 0 {
		return title
	}
	return title + " " + strings.Join(tags, " ")
}

func (s *Service) observeDuration(job models.Job, duration time.Duration) {
	if s.metrics == nil {
		return
	}
	s.metrics.ObserveDuration(job.Category.String(), duration)
}

func (s *Service) recordSuccess(job models.Job) {
	if s.metrics == nil {
		return
	}
	s.metrics.IncSuccess(job.Category.String())
}

func (s *Service) recordFailure(job models.Job) {
	if s.metrics == nil {
		return
	}
	s.metrics.IncFailure(job.Category.String())
}
