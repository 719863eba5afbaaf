package leaderboard

import (
	"context"
	"errors"
	"log/slog"

	"github.com/Snack-JPG/nft-pulse/internal/schedule"
)

const DefaultSize = 10

// Publisher 排行榜的发布渠道
type Publisher interface {
	PublishTopMovers(ctx context.Context, movers []Mover) error
}

// Publishers 依次发布到所有渠道, 单个渠道失败不影响其他渠道
type Publishers []Publisher

func (ps Publishers) PublishTopMovers(ctx context.Context, movers []Mover) error {
	var errs []error
	for _, p := range ps {
		if err := p.PublishTopMovers(ctx, movers); err != nil {
			errs = append(errs, err)
		}
	}
	return errors.Join(errs...)
}

type PublishTask struct {
	board     *Board
	publisher Publisher
	size      int
}

func NewPublishTask(board *Board, publisher Publisher) *PublishTask {
	return &PublishTask{
		board:     board,
		publisher: publisher,
		size:      DefaultSize,
	}
}

var _ schedule.Task = (*PublishTask)(nil)

// Publish 没有数据时不发送, 返回是否发送
func (t *PublishTask) Publish(ctx context.Context) (bool, error) {
	movers, err := t.board.Top(ctx, t.size)
	if err != nil {
		return false, err
	}
	if len(movers) == 0 {
		slog.Info("skip top movers, no recent volume")
		return false, nil
	}
	if err = t.publisher.PublishTopMovers(ctx, movers); err != nil {
		return false, err
	}
	return true, nil
}

func (t *PublishTask) Run(ctx context.Context) error {
	_, err := t.Publish(ctx)
	return err
}

func (t *PublishTask) Name() string {
	return "top movers leaderboard task"
}
