package aggregate

import (
	"context"

	"github.com/Snack-JPG/nft-pulse/internal/schedule"
)

type AggregateTask struct {
	svc Service
}

func NewAggregateTask(svc Service) schedule.Task {
	return &AggregateTask{
		svc: svc,
	}
}

func (t *AggregateTask) Run(ctx context.Context) error {
	_, err := t.svc.Run(ctx)
	return err
}

func (t *AggregateTask) Name() string {
	return "collection snapshot aggregate task"
}
