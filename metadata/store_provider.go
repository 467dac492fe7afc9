// Package metadata 提供 core.MetadataProvider 的具体实现。
//
// 引擎只消费归一化的 MovieDetails；元数据从哪里来（抓取任务 / 批量导入 /
// 外部 API）由接线方决定。这里提供两种实现：KV 读穿缓存与内存静态表。
package metadata

import (
	"context"
	"encoding/json"
	"time"

	"github.com/rs/zerolog"

	"github.com/cinerank/cinerank/core"
)

const defaultKeyPrefix = "movie:details:"

// StoreProvider 是基于 KeyValueStore 的元数据提供者，采用适配器模式。
//
// 读穿语义：缓存命中直接返回；miss 且配置了 Fallback 时回源并写回缓存。
// 没有 Fallback 时 miss 返回 ErrMetadataNotFound，由调用方跳过。
type StoreProvider struct {
	kv        core.KeyValueStore
	fallback  core.MetadataProvider
	keyPrefix string
	ttl       time.Duration
	logger    zerolog.Logger
}

// NewStoreProvider 创建基于 KV 的元数据提供者。
func NewStoreProvider(kv core.KeyValueStore) *StoreProvider {
	return &StoreProvider{
		kv:        kv,
		keyPrefix: defaultKeyPrefix,
	}
}

// WithFallback 设置回源提供者（如外部 API 适配器）。
func (p *StoreProvider) WithFallback(fallback core.MetadataProvider) *StoreProvider {
	p.fallback = fallback
	return p
}

// WithTTL 设置写回缓存的过期时间（秒粒度）；0 表示不过期。
func (p *StoreProvider) WithTTL(ttl time.Duration) *StoreProvider {
	p.ttl = ttl
	return p
}

// WithLogger 设置日志器。
func (p *StoreProvider) WithLogger(logger zerolog.Logger) *StoreProvider {
	p.logger = logger
	return p
}

func (p *StoreProvider) key(itemID string) string { return p.keyPrefix + itemID }

// GetItemDetails 实现 core.MetadataProvider。
func (p *StoreProvider) GetItemDetails(ctx context.Context, itemID string) (*core.MovieDetails, error) {
	raw, err := p.kv.Get(ctx, p.key(itemID))
	if err == nil {
		var d core.MovieDetails
		if jsonErr := json.Unmarshal(raw, &d); jsonErr == nil {
			return &d, nil
		}
		// 缓存里的坏数据按 miss 处理，走回源覆盖
		p.logger.Warn().Str("item", itemID).Msg("corrupt cached metadata, refetching")
	} else if !core.IsNotFound(err) {
		return nil, err
	}

	if p.fallback == nil {
		return nil, core.ErrMetadataNotFound
	}

	d, err := p.fallback.GetItemDetails(ctx, itemID)
	if err != nil {
		return nil, err
	}
	if err := p.Put(ctx, d); err != nil {
		// 写回失败不影响本次读取
		p.logger.Warn().Str("item", itemID).Err(err).Msg("metadata cache write failed")
	}
	return d, nil
}

// Put 把一条元数据写入缓存（批量导入任务使用）。
func (p *StoreProvider) Put(ctx context.Context, d *core.MovieDetails) error {
	if d == nil || d.ID == "" {
		return core.NewDomainError(core.ModuleMetadata, core.ErrorCodeInvalidInput,
			"metadata: details id required")
	}
	raw, err := json.Marshal(d)
	if err != nil {
		return err
	}
	if p.ttl > 0 {
		return p.kv.Set(ctx, p.key(d.ID), raw, int(p.ttl.Seconds()))
	}
	return p.kv.Set(ctx, p.key(d.ID), raw)
}

// StaticProvider 是内存静态表实现，便于接线与测试。
type StaticProvider struct {
	byID map[string]*core.MovieDetails
}

// NewStaticProvider 以给定的元数据集合创建提供者。
func NewStaticProvider(all ...*core.MovieDetails) *StaticProvider {
	byID := make(map[string]*core.MovieDetails, len(all))
	for _, d := range all {
		if d != nil && d.ID != "" {
			byID[d.ID] = d
		}
	}
	return &StaticProvider{byID: byID}
}

// GetItemDetails 实现 core.MetadataProvider。
func (p *StaticProvider) GetItemDetails(_ context.Context, itemID string) (*core.MovieDetails, error) {
	d, ok := p.byID[itemID]
	if !ok {
		return nil, core.ErrMetadataNotFound
	}
	return d, nil
}
