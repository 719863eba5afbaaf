package schedule

import "context"

// Task 由 Runner 周期执行, Run 收到的 ctx 带有单次执行的超时
type Task interface {
	Run(ctx context.Context) error
	Name() string
}

type funcTask struct {
	name string
	fn   func(ctx context.Context) error
}

// NewFuncTask 把普通函数包装成 Task
func NewFuncTask(name string, fn func(ctx context.Context) error) Task {
	return &funcTask{name: name, fn: fn}
}

func (t *funcTask) Run(ctx context.Context) error {
	return t.fn(ctx)
}

func (t *funcTask) Name() string {
	return t.name
}
