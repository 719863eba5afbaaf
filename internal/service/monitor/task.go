package monitor

import (
	"context"

	"github.com/Snack-JPG/nft-pulse/internal/schedule"
)

type SpikeMonitorTask struct {
	svc SpikeService
}

func NewSpikeMonitorTask(svc SpikeService) schedule.Task {
	return &SpikeMonitorTask{
		svc: svc,
	}
}

func (t *SpikeMonitorTask) Run(ctx context.Context) error {
	_, err := t.svc.Run(ctx)
	return err
}

func (t *SpikeMonitorTask) Name() string {
	return "volume spike monitor task"
}
