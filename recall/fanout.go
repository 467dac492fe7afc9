package recall

import (
	"context"
	"sort"
	"sync"
	"time"

	"github.com/rs/zerolog"
	"github.com/sony/gobreaker/v2"
	"golang.org/x/sync/errgroup"

	"github.com/cinerank/cinerank/core"
	"github.com/cinerank/cinerank/pipeline"
	"github.com/cinerank/cinerank/pkg/utils"
)

// Fanout 是多来源聚合 Node：并发调用所有来源适配器，按影片合并信号，
// 计算共识分与共识等级。
//
// 失败语义：
//   - 每个来源的成功/失败独立捕获；单个来源慢或挂不阻塞其他来源，
//     也不让整个请求失败——聚合在全部调用 settle 后用成功的子集继续
//   - 限流/鉴权类错误让该来源进入熔断冷却（Cooldown），冷却内直接跳过，
//     冷却后自动半开重试；熔断状态由本 Node 持有，不是包级全局
//   - 整体超时（Timeout）约束整次 fan-out 的最坏延迟，而非逐个来源
type Fanout struct {
	Sources []Source
	Configs map[string]SourceConfig // 按来源名；缺省 Weight=1, Quality=false

	// MaxConcurrent 并发上限（固定 worker 数，外部来源各自限流，
	// 不做无界并发）；<=0 时取默认值 4
	MaxConcurrent int

	// Timeout 整次 fan-out 的全局超时；<=0 表示不限制
	Timeout time.Duration

	// Limit 结果截断数量；<=0 表示不截断
	Limit int

	// ConsensusBonus 共识加分系数（min(n/active,1) × ConsensusBonus），默认 0.3
	ConsensusBonus float64

	// QualityBonus 高可信来源的固定加分，默认 0.05
	QualityBonus float64

	// Cooldown 限流来源的熔断冷却窗口，默认 5 分钟
	Cooldown time.Duration

	Logger zerolog.Logger

	mu       sync.Mutex
	breakers map[string]*gobreaker.CircuitBreaker[[]core.SourceSignal]
}

func (n *Fanout) Name() string        { return "recall.fanout" }
func (n *Fanout) Kind() pipeline.Kind { return pipeline.KindRecall }

// breakerFor 返回（按需创建）来源的熔断器。只有限流/不可用类错误计入熔断，
// 普通失败在 Execute 闭包里就地吞掉。
func (n *Fanout) breakerFor(name string) *gobreaker.CircuitBreaker[[]core.SourceSignal] {
	n.mu.Lock()
	defer n.mu.Unlock()
	if n.breakers == nil {
		n.breakers = make(map[string]*gobreaker.CircuitBreaker[[]core.SourceSignal])
	}
	if cb, ok := n.breakers[name]; ok {
		return cb
	}
	cooldown := n.Cooldown
	if cooldown <= 0 {
		cooldown = 5 * time.Minute
	}
	cb := gobreaker.NewCircuitBreaker[[]core.SourceSignal](gobreaker.Settings{
		Name:    "source:" + name,
		Timeout: cooldown,
		ReadyToTrip: func(counts gobreaker.Counts) bool {
			// 限流类错误一次即熔断：继续打只会延长封禁
			return counts.ConsecutiveFailures >= 1
		},
	})
	n.breakers[name] = cb
	return cb
}

// ActiveSources 返回当前未处于熔断打开状态的来源数。
func (n *Fanout) ActiveSources() int {
	active := 0
	for _, src := range n.Sources {
		if n.breakerFor(src.Name()).State() != gobreaker.StateOpen {
			active++
		}
	}
	return active
}

func (n *Fanout) Process(
	ctx context.Context,
	rctx *core.RecommendContext,
	_ []*core.Item,
) ([]*core.Item, error) {
	if len(n.Sources) == 0 {
		return nil, nil
	}

	// 全局超时：约束整次 fan-out，而非逐来源
	fanCtx := ctx
	if n.Timeout > 0 {
		var cancel context.CancelFunc
		fanCtx, cancel = context.WithTimeout(ctx, n.Timeout)
		defer cancel()
	}

	active := n.ActiveSources()
	if active == 0 {
		n.Logger.Warn().Msg("all sources in cooldown")
		return nil, nil
	}

	maxConcurrent := n.MaxConcurrent
	if maxConcurrent <= 0 {
		maxConcurrent = 4
	}
	sem := make(chan struct{}, maxConcurrent)

	var (
		mu  sync.Mutex
		all []core.SourceSignal
	)
	eg, egCtx := errgroup.WithContext(fanCtx)

	for _, src := range n.Sources {
		s := src
		cb := n.breakerFor(s.Name())

		eg.Go(func() error {
			sem <- struct{}{}
			defer func() { <-sem }()

			signals, err := cb.Execute(func() ([]core.SourceSignal, error) {
				sigs, err := s.Fetch(egCtx, rctx)
				if err != nil {
					if core.IsRateLimited(err) || core.IsUnavailable(err) {
						// 让熔断计数，进入冷却
						return nil, err
					}
					// 普通失败：隔离并吞掉，不触发冷却
					n.Logger.Warn().Str("source", s.Name()).Err(err).Msg("source failed")
					return nil, nil
				}
				return sigs, nil
			})
			if err != nil {
				// 熔断打开或限流类失败：该来源本轮缺席
				n.Logger.Warn().Str("source", s.Name()).Err(err).Msg("source unavailable, cooling down")
				return nil
			}

			normalized := make([]core.SourceSignal, 0, len(signals))
			for _, sig := range signals {
				if sig.ItemID == "" {
					// 缺身份标识的信号无法合并，丢弃
					continue
				}
				sig.Source = s.Name()
				sig.Confidence = n.confidenceFor(rctx, s.Name(), sig)
				normalized = append(normalized, sig)
			}

			mu.Lock()
			all = append(all, normalized...)
			mu.Unlock()
			return nil
		})
	}

	// 内部已吞掉所有来源错误，Wait 只会因 ctx 取消失败
	if err := eg.Wait(); err != nil {
		return nil, err
	}

	return n.merge(all, active), nil
}

// confidenceFor 解析一条信号的最终置信度：
// 适配器自带值 < SourceConfig.Confidence[reason] < 实验变体参数。
func (n *Fanout) confidenceFor(rctx *core.RecommendContext, source string, sig core.SourceSignal) float64 {
	conf := sig.Confidence
	if cfg, ok := n.Configs[source]; ok {
		if v, ok := cfg.Confidence[sig.Reason]; ok {
			conf = v
		}
	}
	if rctx != nil {
		conf = rctx.ParamFloat("confidence:"+source+":"+sig.Reason, conf)
	}
	if conf < 0 {
		conf = 0
	}
	if conf > 1 {
		conf = 1
	}
	return conf
}

func (n *Fanout) weightFor(source string) float64 {
	if cfg, ok := n.Configs[source]; ok && cfg.Weight > 0 {
		return cfg.Weight
	}
	return 1
}

// merge 按影片合并信号、计算共识分并排序截断。
func (n *Fanout) merge(all []core.SourceSignal, active int) []*core.Item {
	if len(all) == 0 {
		return nil
	}

	consensusBonus := n.ConsensusBonus
	if consensusBonus <= 0 {
		consensusBonus = 0.3
	}
	qualityBonus := n.QualityBonus
	if qualityBonus <= 0 {
		qualityBonus = 0.05
	}

	byID := make(map[string]*core.Item, len(all))
	order := make([]*core.Item, 0, len(all))
	for _, sig := range all {
		it, ok := byID[sig.ItemID]
		if !ok {
			it = core.NewItem(sig.ItemID)
			it.Title = sig.Title
			byID[sig.ItemID] = it
			order = append(order, it)
		}
		if it.Title == "" {
			it.Title = sig.Title
		}
		it.AddSource(sig)
	}

	for _, it := range order {
		var wsum, csum float64
		quality := 0.0
		for _, s := range it.Sources {
			w := n.weightFor(s.Source)
			wsum += w
			csum += s.Confidence * w
			if cfg, ok := n.Configs[s.Source]; ok && cfg.Quality {
				quality += qualityBonus
			}
			it.PutLabel("recall_source", utils.Label{Value: s.Source, Source: "aggregate"})
			if s.Reason != "" {
				it.PutLabel("reason", utils.Label{Value: s.Reason, Source: "aggregate"})
			}
		}

		ratio := float64(it.SourceCount()) / float64(active)
		if ratio > 1 {
			ratio = 1
		}
		it.Score = csum/wsum + ratio*consensusBonus + quality
		it.Features["consensus_score"] = it.Score

		level := ConsensusFor(it.SourceCount(), active)
		it.PutLabel("consensus", utils.Label{Value: level, Source: "aggregate"})
	}

	sort.SliceStable(order, func(i, j int) bool {
		if order[i].Score != order[j].Score {
			return order[i].Score > order[j].Score
		}
		return order[i].ID < order[j].ID
	})

	if n.Limit > 0 && len(order) > n.Limit {
		order = order[:n.Limit]
	}
	return order
}
