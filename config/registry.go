// Package config 提供配置驱动的 Pipeline 装配：
// Node 构建器注册表 + 内置 Node 的默认工厂。
package config

import (
	"fmt"
	"sort"
	"sync"

	"github.com/cinerank/cinerank/pipeline"
	"github.com/cinerank/cinerank/recall"
)

// NodeBuilder 与 pipeline.NodeBuilder 一致：根据 config 构建 Node。
type NodeBuilder = pipeline.NodeBuilder

var (
	defaultBuilders   = make(map[string]NodeBuilder)
	defaultBuildersMu sync.RWMutex

	namedSources   = make(map[string]recall.Source)
	namedSourcesMu sync.RWMutex
)

// Register 注册一种 Node 的构建逻辑，供 DefaultFactory 与配置驱动使用。
func Register(typeName string, builder NodeBuilder) {
	if typeName == "" || builder == nil {
		return
	}
	defaultBuildersMu.Lock()
	defer defaultBuildersMu.Unlock()
	defaultBuilders[typeName] = builder
}

// RegisterSource 按名注册来源适配器。来源适配器是代码而非配置，
// 配置里的 fanout 节点用名字引用这里注册的适配器。
func RegisterSource(src recall.Source) {
	if src == nil || src.Name() == "" {
		return
	}
	namedSourcesMu.Lock()
	defer namedSourcesMu.Unlock()
	namedSources[src.Name()] = src
}

// SourceByName 返回已注册的来源适配器。
func SourceByName(name string) (recall.Source, bool) {
	namedSourcesMu.RLock()
	defer namedSourcesMu.RUnlock()
	src, ok := namedSources[name]
	return src, ok
}

// SupportedTypes 返回当前已注册的 Node 类型列表（排序），用于错误提示与校验。
func SupportedTypes() []string {
	defaultBuildersMu.RLock()
	defer defaultBuildersMu.RUnlock()
	types := make([]string, 0, len(defaultBuilders))
	for t := range defaultBuilders {
		types = append(types, t)
	}
	sort.Strings(types)
	return types
}

// ValidatePipelineConfig 校验 pipeline 配置中所有 node 类型均已注册；
// 若有未支持类型则返回包含已支持列表的错误。
func ValidatePipelineConfig(cfg *pipeline.Config) error {
	if cfg == nil {
		return nil
	}
	supported := SupportedTypes()
	for _, nc := range cfg.Pipeline.Nodes {
		if nc.Type == "" {
			continue
		}
		defaultBuildersMu.RLock()
		_, ok := defaultBuilders[nc.Type]
		defaultBuildersMu.RUnlock()
		if !ok {
			return fmt.Errorf("unsupported node type %q (supported: %v)", nc.Type, supported)
		}
	}
	return nil
}
