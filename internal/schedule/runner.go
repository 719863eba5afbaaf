package schedule

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/sourcegraph/conc"
)

type entry struct {
	task     Task
	interval time.Duration
}

// Runner 按固定间隔执行任务, 每次执行都有独立的超时
type Runner struct {
	entries    []entry
	runTimeout time.Duration
}

func NewRunner(runTimeout time.Duration) *Runner {
	return &Runner{
		runTimeout: runTimeout,
	}
}

// Add interval <= 0 的任务不会被调度
func (r *Runner) Add(task Task, interval time.Duration) *Runner {
	if interval <= 0 {
		slog.Warn("skip task without interval", "task", task.Name())
		return r
	}
	r.entries = append(r.entries, entry{task: task, interval: interval})
	return r
}

// Run 启动时先执行一次, 之后按间隔执行, 阻塞直到 ctx 取消
func (r *Runner) Run(ctx context.Context) {
	var wg conc.WaitGroup
	for _, e := range r.entries {
		e := e
		wg.Go(func() {
			r.loop(ctx, e)
		})
	}
	wg.Wait()
}

func (r *Runner) loop(ctx context.Context, e entry) {
	ticker := time.NewTicker(e.interval)
	defer ticker.Stop()

	r.RunOnce(ctx, e.task)
	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			r.RunOnce(ctx, e.task)
		}
	}
}

// RunOnce 单次执行, panic 和错误都只记录日志
func (r *Runner) RunOnce(ctx context.Context, task Task) (err error) {
	if r.runTimeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, r.runTimeout)
		defer cancel()
	}
	start := time.Now()
	defer func() {
		if p := recover(); p != nil {
			err = fmt.Errorf("task panic: %v", p)
		}
		if err != nil {
			slog.Error("task run failed", "task", task.Name(), "elapsed", time.Since(start), "error", err)
			return
		}
		slog.Info("task run finished", "task", task.Name(), "elapsed", time.Since(start))
	}()
	return task.Run(ctx)
}
