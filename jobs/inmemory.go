package jobs

import (
	"context"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"github.com/oklog/ulid/v2"
	"github.com/robfig/cron/v3"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"
	"go.opentelemetry.io/otel/trace/noop"
)

// NewMemoryScheduler returns a Scheduler that keeps its schedules in memory only.
// Every instance of the application runs its own schedules.
// Call Start to begin processing.
func NewMemoryScheduler(logger *slog.Logger, opts ...SchedulerOpt) *MemoryScheduler {
	s := &MemoryScheduler{
		logger: logger.With(slog.String("component", "jobs")),
		tracer: noop.NewTracerProvider().Tracer(""),

		mu:        sync.Mutex{},
		workerMap: map[string]JobFunc{},

		cron: cron.New(cron.WithParser(
			cron.NewParser(cron.SecondOptional | cron.Minute | cron.Hour | cron.Dom | cron.Month | cron.Dow | cron.Descriptor),
		)),
	}

	for _, opt := range opts {
		opt(s)
	}

	return s
}

type SchedulerOpt func(s *MemoryScheduler)

// WithTracerProvider creates a span for every job run.
func WithTracerProvider(tp trace.TracerProvider) SchedulerOpt {
	return func(s *MemoryScheduler) {
		s.tracer = tp.Tracer("geocontrol.jobs")
	}
}

type MemoryScheduler struct { //nolint:govet // alignment less important than grouping of mutex
	logger *slog.Logger
	tracer trace.Tracer

	mu        sync.Mutex
	workerMap map[string]JobFunc

	cron *cron.Cron
}

var _ Scheduler = (*MemoryScheduler)(nil)

func (s *MemoryScheduler) RegisterJobFunc(jf JobFunc) error {
	name, err := jobFuncType(jf)
	if err != nil {
		return err
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	s.workerMap[name] = jf

	return nil
}

// Schedule runs job every time the cron schedule fires.
// The JobFunc for job has to be registered before.
func (s *MemoryScheduler) Schedule(schedule string, job Job) error {
	name, err := jobType(job)
	if err != nil {
		return err
	}

	s.mu.Lock()
	_, registered := s.workerMap[name]
	s.mu.Unlock()

	if !registered {
		return fmt.Errorf("%w: %w: %s", ErrScheduleFailed, ErrNotRegistered, name)
	}

	_, err = s.cron.AddFunc(schedule, func() {
		_ = s.Run(context.Background(), job)
	})
	if err != nil {
		return fmt.Errorf("%w: %v", ErrScheduleFailed, err) //nolint:errorlint // prevent err in api
	}

	return nil
}

// Run executes job once, right now.
func (s *MemoryScheduler) Run(ctx context.Context, job Job) error {
	name, err := jobType(job)
	if err != nil {
		return err
	}

	s.mu.Lock()
	jf, registered := s.workerMap[name]
	s.mu.Unlock()

	if !registered {
		return fmt.Errorf("%w: %s", ErrNotRegistered, name)
	}

	runID := ulid.Make().String()

	ctx, span := s.tracer.Start(ctx, "job", trace.WithAttributes(
		attribute.String("job_type", name),
		attribute.String("run_id", runID),
	))
	defer span.End()

	start := time.Now()

	err = callJobFunc(ctx, jf, job)
	if err != nil {
		span.SetStatus(codes.Error, err.Error())
		s.logger.ErrorContext(ctx, "job failed",
			slog.String("job", jobName(job)),
			slog.String("run_id", runID),
			slog.Any("err", err),
		)

		return fmt.Errorf("%w", err)
	}

	s.logger.DebugContext(ctx, "job done",
		slog.String("job", jobName(job)),
		slog.String("run_id", runID),
		slog.Duration("duration", time.Since(start)),
	)

	return nil
}

func (s *MemoryScheduler) Start() {
	s.cron.Start()
}

func (s *MemoryScheduler) Shutdown(ctx context.Context) error {
	wait := s.cron.Stop()

	select {
	case <-wait.Done():
		return nil
	case <-ctx.Done():
		return fmt.Errorf("could not wait for running jobs: %w", ctx.Err())
	}
}
