// Package engine 是推荐引擎的装配层：把来源聚合、画像构建、过滤、
// 口味排序与多样性重排接成一条 Pipeline，并暴露反馈与实验入口。
package engine

import (
	"context"
	"sync"
	"time"

	"github.com/rs/zerolog"
	"golang.org/x/time/rate"

	"github.com/cinerank/cinerank/core"
	"github.com/cinerank/cinerank/experiment"
	"github.com/cinerank/cinerank/feedback"
	"github.com/cinerank/cinerank/filter"
	"github.com/cinerank/cinerank/pattern"
	"github.com/cinerank/cinerank/pipeline"
	"github.com/cinerank/cinerank/profile"
	"github.com/cinerank/cinerank/rank"
	"github.com/cinerank/cinerank/recall"
	"github.com/cinerank/cinerank/rerank"
)

// 发现度到 MMR λ 的线性映射区间：discovery=0 → λ=0.15，discovery=1 → λ=0.5。
const (
	lambdaBase  = 0.15
	lambdaSlope = 0.35
)

// 候选池中没有任何来源信号的条目的中性分。
const neutralScore = 0.5

// Options 是一次推荐请求的调优选项。
type Options struct {
	// Discovery 探索度 [0,1]，线性映射到 MMR 的 λ
	Discovery float64

	// ResultCount 最终返回数量；<=0 取 10
	ResultCount int

	// ExcludeIDs 本次请求显式排除的影片
	ExcludeIDs []string

	// RuleExpr 可选的 CEL 过滤表达式（返回 true 剔除）
	RuleExpr string
}

// Request 是一次推荐请求。
type Request struct {
	UserID      string
	SeedHistory []core.WatchedMovie

	// Watchlist 用户片单（未看条目贡献意向权重）
	Watchlist []string

	// CandidatePool 非空时限定候选域：聚合结果与之求交，
	// 池内没有任何来源信号的条目按中性分参战
	CandidatePool []string

	Options Options
}

// Response 是一次推荐的结果。
type Response struct {
	Items []*core.Item

	// NoCandidates 为 true 表示聚合与候选池都一无所获。
	// 这是一个显式状态而非错误：调用方应降级到非个性化兜底。
	NoCandidates bool
}

// Engine 是推荐引擎入口。字段注入后只读，可被并发请求共享。
type Engine struct {
	Sources       []recall.Source
	SourceConfigs map[string]recall.SourceConfig

	Metadata core.MetadataProvider
	Feedback core.FeedbackStore

	// Bus 反馈事件总线；为 nil 时 Submit* 返回不支持错误
	Bus *feedback.Bus

	// Assigner / Recorder / Evaluator 实验三件套，均可为 nil（不开实验）
	Assigner  *experiment.Assigner
	Recorder  *experiment.Recorder
	Evaluator *experiment.Evaluator

	// Detector 子类型归类器；为 nil 时使用内置分类法
	Detector *pattern.Detector

	// FanoutTimeout 整次来源聚合的全局超时；<=0 取 10s
	FanoutTimeout time.Duration

	// HydrateWorkers 元数据水合并发；<=0 取 4
	HydrateWorkers int

	// HydratePace 两次元数据调用间的节拍，画像构建与候选水合共用；
	// <=0 表示不限速（本地或自带限流的 Provider）
	HydratePace time.Duration

	Logger zerolog.Logger

	// 熔断冷却状态跨请求存活，聚合 Node 只建一次
	fanoutOnce sync.Once
	fanout     *recall.Fanout
}

// Rank 执行一次端到端推荐。
func (e *Engine) Rank(ctx context.Context, req Request) (*Response, error) {
	if req.UserID == "" {
		return nil, core.NewDomainError(core.ModuleEngine, core.ErrorCodeInvalidInput,
			"engine: user id required")
	}

	rctx := &core.RecommendContext{
		UserID:      req.UserID,
		Scene:       "recommend",
		SeedHistory: req.SeedHistory,
	}

	// 实验变体参数先注入，后续所有阶段都能读到
	if e.Assigner != nil {
		params, err := e.Assigner.VariantParams(ctx, req.UserID)
		if err != nil {
			// 实验系统故障不该挡住推荐：退化为无实验
			e.Logger.Warn().Str("user", req.UserID).Err(err).Msg("variant params unavailable")
		} else if len(params) > 0 {
			rctx.Params = params
		}
	}

	// 画像构建：冷启动（无历史）时 Profile 为空画像，排序退化为共识分
	builder := &profile.Builder{
		Metadata: e.Metadata,
		Feedback: e.Feedback,
		Detector: e.Detector,
		Workers:  e.HydrateWorkers,
		Pace:     e.HydratePace,
		Logger:   e.Logger,
	}
	prof, err := builder.Build(ctx, req.UserID, req.SeedHistory, req.Watchlist)
	if err != nil {
		return nil, err
	}
	rctx.Profile = prof

	// 来源聚合
	e.fanoutOnce.Do(func() {
		timeout := e.FanoutTimeout
		if timeout <= 0 {
			timeout = 10 * time.Second
		}
		e.fanout = &recall.Fanout{
			Sources: e.Sources,
			Configs: e.SourceConfigs,
			Timeout: timeout,
			Logger:  e.Logger,
		}
	})
	candidates, err := e.fanout.Process(ctx, rctx, nil)
	if err != nil {
		return nil, err
	}

	candidates = applyPool(candidates, req.CandidatePool)
	if len(candidates) == 0 {
		return &Response{NoCandidates: true}, nil
	}

	e.hydrate(ctx, candidates)

	resultCount := req.Options.ResultCount
	if resultCount <= 0 {
		resultCount = 10
	}
	lambda := lambdaFor(rctx, req.Options.Discovery)

	filters := []filter.Filter{
		filter.NewExcludeFilter(req.Options.ExcludeIDs),
		&filter.AvoidanceFilter{Detector: e.Detector},
	}
	if req.Options.RuleExpr != "" {
		filters = append(filters, &filter.RuleFilter{Expr: req.Options.RuleExpr})
	}

	pipe := &pipeline.Pipeline{
		Logger: e.Logger,
		Nodes: []pipeline.Node{
			&filter.FilterNode{Filters: filters},
			&rank.TasteNode{Detector: e.Detector},
			&rerank.MMRNode{Lambda: lambda, K: resultCount},
			&rerank.TopNNode{N: resultCount},
		},
	}

	items, err := pipe.Run(ctx, rctx, candidates)
	if err != nil {
		return nil, err
	}
	if len(items) == 0 {
		return &Response{NoCandidates: true}, nil
	}
	return &Response{Items: items}, nil
}

// SubmitThumb 提交点赞/点踩反馈（fire-and-forget 进学习环）。
func (e *Engine) SubmitThumb(ev feedback.ThumbEvent) error {
	if e.Bus == nil {
		return core.NewDomainError(core.ModuleFeedback, core.ErrorCodeNotSupported,
			"feedback bus not configured")
	}
	return e.Bus.SubmitThumb(ev)
}

// SubmitQuiz 提交口味问答作答。
func (e *Engine) SubmitQuiz(ev feedback.QuizEvent) error {
	if e.Bus == nil {
		return core.NewDomainError(core.ModuleFeedback, core.ErrorCodeNotSupported,
			"feedback bus not configured")
	}
	return e.Bus.SubmitQuiz(ev)
}

// SubmitPairwise 提交二选一比较结果。
func (e *Engine) SubmitPairwise(ev feedback.PairwiseEvent) error {
	if e.Bus == nil {
		return core.NewDomainError(core.ModuleFeedback, core.ErrorCodeNotSupported,
			"feedback bus not configured")
	}
	return e.Bus.SubmitPairwise(ev)
}

// lambdaFor 由贴合度得出 MMR λ；实验变体可直接覆盖 lambda。
func lambdaFor(rctx *core.RecommendContext, discovery float64) float64 {
	if discovery < 0 {
		discovery = 0
	}
	if discovery > 1 {
		discovery = 1
	}
	lambda := lambdaBase + lambdaSlope*discovery
	return rctx.ParamFloat("lambda", lambda)
}

// applyPool 用候选池约束聚合结果：
//   - 池为空：聚合结果原样返回
//   - 池非空：只保留池内条目；池内没有任何来源信号的条目按中性分补入
func applyPool(candidates []*core.Item, pool []string) []*core.Item {
	if len(pool) == 0 {
		return candidates
	}
	inPool := make(map[string]bool, len(pool))
	for _, id := range pool {
		inPool[id] = true
	}

	seen := make(map[string]bool, len(candidates))
	out := make([]*core.Item, 0, len(pool))
	for _, it := range candidates {
		if it == nil || !inPool[it.ID] {
			continue
		}
		seen[it.ID] = true
		out = append(out, it)
	}
	for _, id := range pool {
		if id == "" || seen[id] {
			continue
		}
		seen[id] = true
		it := core.NewItem(id)
		it.Score = neutralScore
		out = append(out, it)
	}
	return out
}

// hydrate 给候选挂上元数据；miss 跳过，候选退化为按共识分参战。
func (e *Engine) hydrate(ctx context.Context, items []*core.Item) {
	ids := make([]string, 0, len(items))
	for _, it := range items {
		if it != nil {
			ids = append(ids, it.ID)
		}
	}
	var limiter *rate.Limiter
	if e.HydratePace > 0 {
		limiter = rate.NewLimiter(rate.Every(e.HydratePace), 1)
	}
	details := profile.HydrateDetails(ctx, e.Metadata, ids, e.HydrateWorkers, limiter, e.Logger)
	for _, it := range items {
		if it == nil {
			continue
		}
		if d, ok := details[it.ID]; ok {
			it.SetDetails(d)
			if it.Title == "" {
				it.Title = d.Title
			}
		}
	}
}
