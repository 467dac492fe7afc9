package pipeline

import (
	"context"
	"time"

	"github.com/rs/zerolog"

	"github.com/cinerank/cinerank/core"
)

// Pipeline 是引擎的核心抽象：把推荐逻辑拆成可组合的 Node 链
// （聚合 → 过滤 → 排序 → 重排 → 后处理）。
type Pipeline struct {
	Nodes  []Node
	Logger zerolog.Logger // 零值为 no-op，不强制注入
}

func (p *Pipeline) Run(
	ctx context.Context,
	rctx *core.RecommendContext,
	items []*core.Item,
) ([]*core.Item, error) {
	cur := items
	for _, node := range p.Nodes {
		if err := ctx.Err(); err != nil {
			return nil, err
		}
		in := len(cur)
		start := time.Now()

		next, err := node.Process(ctx, rctx, cur)
		if err != nil {
			p.Logger.Error().
				Str("node", node.Name()).
				Str("kind", string(node.Kind())).
				Err(err).
				Msg("pipeline node failed")
			return nil, err
		}

		p.Logger.Debug().
			Str("node", node.Name()).
			Str("kind", string(node.Kind())).
			Int("in", in).
			Int("out", len(next)).
			Dur("took", time.Since(start)).
			Msg("pipeline node done")
		cur = next
	}
	return cur, nil
}
