package syncer

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/sourcegraph/conc"
	"github.com/vgarvardt/gue/v5"
	adapter "github.com/vgarvardt/gue/v5/adapter/zap"
	"go.uber.org/zap"

	timeutils "github.com/eqtlab/ledger-syncer/pkg/time"
)

const importJobType = "import"

type jobArgs struct {
	ScheduleID string    `json:"scheduleId"`
	EnqueuedAt time.Time `json:"enqueuedAt"`
}

// Serve enqueues an import run every ServeInterval, the first one right away, and executes them
// with a single worker so runs never overlap. It returns when ctx is done or either side stops.
func (s *Syncer) Serve(ctx context.Context) error {
	if s.q == nil {
		return fmt.Errorf("%w: serve needs a job queue", ErrConfiguration)
	}

	newCtx, cancel := context.WithCancel(ctx)
	defer cancel()

	workers, err := gue.NewWorkerPool(
		s.q,
		gue.WorkMap{importJobType: s.importJob},
		1,
		gue.WithPoolLogger(adapter.New(s.logger)),
	)
	if err != nil {
		return fmt.Errorf("gue new worker pool: %w", err)
	}

	s.logger.Info("serving scheduled imports", zap.Duration("interval", s.cfg.ServeInterval))

	// run scheduler and worker concurrently and cancel ctx as soon one of them exits so the other exits too
	var (
		wg     conc.WaitGroup
		runErr error
	)
	wg.Go(func() {
		defer cancel()
		s.schedule(newCtx)
	})
	wg.Go(func() {
		defer cancel()
		if err := workers.Run(newCtx); err != nil && !errors.Is(err, context.Canceled) {
			runErr = fmt.Errorf("workers run: %w", err)
		}
	})
	wg.Wait()

	return runErr
}

func (s *Syncer) schedule(ctx context.Context) {
	scheduleID := uuid.NewString()

	if err := s.enqueue(ctx, scheduleID); err != nil {
		s.logger.Error("scheduler: enqueue failed", zap.Error(err))
	}
	for range timeutils.TickWithCtx(ctx, s.cfg.ServeInterval) {
		if err := s.enqueue(ctx, scheduleID); err != nil {
			s.logger.Error("scheduler: enqueue failed", zap.Error(err)) // next tick tries again
		}
	}
}

func (s *Syncer) enqueue(ctx context.Context, scheduleID string) error {
	bb, err := json.Marshal(&jobArgs{ScheduleID: scheduleID, EnqueuedAt: s.now()})
	if err != nil {
		return fmt.Errorf("json marshal: %w", err)
	}

	if err := s.q.Enqueue(ctx, &gue.Job{Type: importJobType, Args: bb}); err != nil {
		return fmt.Errorf("gue enqueue: %w", err)
	}

	return nil
}

// importJob never fails the job: a failed run is logged and the next scheduled run resumes from
// the checkpoints, so gue retries would only pile up runs.
func (s *Syncer) importJob(ctx context.Context, job *gue.Job) error {
	var args jobArgs
	if err := json.Unmarshal(job.Args, &args); err != nil {
		s.logger.Error("import job: bad args", zap.Error(err), zap.String("job_id", job.ID.String()))
		return nil
	}

	report, err := s.Import(ctx, Options{})
	if err != nil {
		s.logger.Error(
			"import job failed, next run resumes from checkpoints",
			zap.Error(err),
			zap.String("schedule_id", args.ScheduleID),
			zap.Time("enqueued_at", args.EnqueuedAt),
		)
		return nil
	}

	s.logger.Info(
		"import job done",
		zap.String("run_id", report.RunID),
		zap.String("schedule_id", args.ScheduleID),
		zap.Int("checkpointed", report.Checkpointed()),
	)
	return nil
}
