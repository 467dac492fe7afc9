package profile

import (
	"context"
	"sync"

	"github.com/rs/zerolog"
	"golang.org/x/time/rate"

	"github.com/cinerank/cinerank/core"
)

// HydrateDetails 用固定数量的 worker 并发拉取影片元数据。
//
// 并发模型：N 个 worker 从共享队列取 ID，每次调用前等待 limiter 的节拍
// （外部元数据源有速率限制，worker 数是唯一的调用方可调并发旋钮）。
// 单部影片 miss / 失败只是跳过，返回成功的子集。
func HydrateDetails(
	ctx context.Context,
	md core.MetadataProvider,
	ids []string,
	workers int,
	limiter *rate.Limiter,
	logger zerolog.Logger,
) map[string]*core.MovieDetails {
	if md == nil || len(ids) == 0 {
		return map[string]*core.MovieDetails{}
	}
	if workers <= 0 {
		workers = 4
	}

	// 去重，保持入队顺序
	seen := make(map[string]bool, len(ids))
	queue := make(chan string, len(ids))
	for _, id := range ids {
		if id == "" || seen[id] {
			continue
		}
		seen[id] = true
		queue <- id
	}
	close(queue)

	var (
		mu  sync.Mutex
		out = make(map[string]*core.MovieDetails, len(seen))
		wg  sync.WaitGroup
	)
	for i := 0; i < workers; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			for id := range queue {
				if limiter != nil {
					if err := limiter.Wait(ctx); err != nil {
						return
					}
				}
				details, err := md.GetItemDetails(ctx, id)
				if err != nil {
					if !core.IsNotFound(err) {
						logger.Warn().Str("item", id).Err(err).Msg("metadata fetch failed")
					}
					continue
				}
				mu.Lock()
				out[id] = details
				mu.Unlock()
			}
		}()
	}
	wg.Wait()
	return out
}
