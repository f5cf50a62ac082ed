package jobs_test

import (
	"context"
	"errors"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/zettagrid/geocontrol/alog"
	"github.com/zettagrid/geocontrol/jobs"
)

var ctx = context.Background()

type purgeJob struct {
	Reason string
}

type otherJob struct{}

var errJobFailed = errors.New("job failed")

func TestMemoryScheduler_RegisterJobFunc(t *testing.T) {
	t.Parallel()

	tests := map[string]struct {
		jf  jobs.JobFunc
		err error
	}{
		"valid":          {func(context.Context, purgeJob) error { return nil }, nil},
		"not a func":     {"purge", jobs.ErrInvalidJobFunc},
		"nil":            {nil, jobs.ErrInvalidJobFunc},
		"missing ctx":    {func(purgeJob) error { return nil }, jobs.ErrInvalidJobFunc},
		"no error":       {func(context.Context, purgeJob) {}, jobs.ErrInvalidJobFunc},
		"job not struct": {func(context.Context, string) error { return nil }, jobs.ErrInvalidJobFunc},
	}

	for name, tt := range tests {
		t.Run(name, func(t *testing.T) {
			t.Parallel()

			s := jobs.NewMemoryScheduler(alog.NewNoop())

			err := s.RegisterJobFunc(tt.jf)
			assert.ErrorIs(t, err, tt.err)
		})
	}
}

func TestMemoryScheduler_Run(t *testing.T) {
	t.Parallel()

	t.Run("run registered job", func(t *testing.T) {
		t.Parallel()

		logger := alog.Test(t)
		s := jobs.NewMemoryScheduler(logger.Logger)

		var reason string

		err := s.RegisterJobFunc(func(_ context.Context, job purgeJob) error {
			reason = job.Reason

			return nil
		})
		require.NoError(t, err)

		err = s.Run(ctx, purgeJob{Reason: "manual"})
		assert.NoError(t, err)
		assert.Equal(t, "manual", reason)
		logger.Contains("job done")
		logger.Contains("job=purge_job")
		logger.Contains("run_id=")
	})

	t.Run("failing job", func(t *testing.T) {
		t.Parallel()

		logger := alog.Test(t)
		s := jobs.NewMemoryScheduler(logger.Logger)

		_ = s.RegisterJobFunc(func(context.Context, purgeJob) error { return errJobFailed })

		err := s.Run(ctx, purgeJob{})
		assert.ErrorIs(t, err, errJobFailed)
		logger.Contains("job failed")
	})

	t.Run("unregistered job", func(t *testing.T) {
		t.Parallel()

		s := jobs.NewMemoryScheduler(alog.NewNoop())

		err := s.Run(ctx, otherJob{})
		assert.ErrorIs(t, err, jobs.ErrNotRegistered)

		err = s.Run(ctx, "not a struct")
		assert.ErrorIs(t, err, jobs.ErrInvalidJobType)
	})
}

func TestMemoryScheduler_Schedule(t *testing.T) {
	t.Parallel()

	t.Run("invalid schedule", func(t *testing.T) {
		t.Parallel()

		s := jobs.NewMemoryScheduler(alog.NewNoop())
		_ = s.RegisterJobFunc(func(context.Context, purgeJob) error { return nil })

		err := s.Schedule("every now and then", purgeJob{})
		assert.ErrorIs(t, err, jobs.ErrScheduleFailed)
	})

	t.Run("unregistered job", func(t *testing.T) {
		t.Parallel()

		s := jobs.NewMemoryScheduler(alog.NewNoop())

		err := s.Schedule("@hourly", otherJob{})
		assert.ErrorIs(t, err, jobs.ErrScheduleFailed)
		assert.ErrorIs(t, err, jobs.ErrNotRegistered)
	})

	t.Run("run on schedule", func(t *testing.T) {
		t.Parallel()

		s := jobs.NewMemoryScheduler(alog.NewNoop())

		var runs atomic.Int32

		_ = s.RegisterJobFunc(func(context.Context, purgeJob) error {
			runs.Add(1)

			return nil
		})

		err := s.Schedule("@every 1s", purgeJob{})
		require.NoError(t, err)

		s.Start()

		// cron ticks at the second mark
		assert.Eventually(t, func() bool { return runs.Load() > 0 }, 3*time.Second, 50*time.Millisecond)

		err = s.Shutdown(ctx)
		assert.NoError(t, err)
	})
}
