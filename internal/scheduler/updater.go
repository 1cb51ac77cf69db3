package scheduler

import (
	"context"
	"time"

	"go.uber.org/zap"
)

// Task is one unit of periodic work.
type Task struct {
	Name string
	Run  func(ctx context.Context) error
}

// Updater runs its tasks once at start and then every Interval until the
// context is cancelled. A failing task is logged and retried on the next tick.
type Updater struct {
	Interval time.Duration
	Timeout  time.Duration // per task; zero means Interval
	Tasks    []Task
	Logger   *zap.Logger
}

// Start launches the update loop and returns a channel closed when it exits.
func (u *Updater) Start(ctx context.Context) <-chan struct{} {
	done := make(chan struct{})
	go func() {
		defer close(done)

		// Run immediately once at startup
		u.runOnce(ctx)

		ticker := time.NewTicker(u.Interval)
		defer ticker.Stop()

		for {
			select {
			case <-ctx.Done():
				return
			case <-ticker.C:
				u.runOnce(ctx)
			}
		}
	}()
	return done
}

func (u *Updater) runOnce(ctx context.Context) {
	timeout := u.Timeout
	if timeout <= 0 {
		timeout = u.Interval
	}

	for _, task := range u.Tasks {
		if ctx.Err() != nil {
			return
		}
		start := time.Now()
		taskCtx, cancel := context.WithTimeout(ctx, timeout)
		err := task.Run(taskCtx)
		cancel()

		if err != nil {
			u.Logger.Warn("scheduled task failed", zap.String("task", task.Name), zap.Error(err))
			continue
		}
		u.Logger.Info("scheduled task completed", zap.String("task", task.Name), zap.Duration("took", time.Since(start)))
	}
}
