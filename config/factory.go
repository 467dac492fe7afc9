package config

import (
	"fmt"
	"time"

	"github.com/cinerank/cinerank/filter"
	"github.com/cinerank/cinerank/pipeline"
	"github.com/cinerank/cinerank/pkg/conv"
	"github.com/cinerank/cinerank/rank"
	"github.com/cinerank/cinerank/recall"
	"github.com/cinerank/cinerank/rerank"
)

// 内置 Node 走同一个注册表，SupportedTypes / ValidatePipelineConfig 才能看到它们。
func init() {
	Register("recall.fanout", buildFanoutNode)
	Register("filter", buildFilterNode)
	Register("rank.taste", buildTasteNode)
	Register("rerank.mmr", buildMMRNode)
	Register("rerank.topn", buildTopNNode)
}

// DefaultFactory 返回一个包含所有已注册 Node（内置与扩展）的工厂。
func DefaultFactory() *pipeline.NodeFactory {
	factory := pipeline.NewNodeFactory()

	defaultBuildersMu.RLock()
	for typeName, builder := range defaultBuilders {
		factory.Register(typeName, builder)
	}
	defaultBuildersMu.RUnlock()

	return factory
}

func buildFanoutNode(config map[string]any) (pipeline.Node, error) {
	names := conv.SliceAnyToString(config["sources"])
	if len(names) == 0 {
		return nil, fmt.Errorf("sources not found or invalid")
	}

	sources := make([]recall.Source, 0, len(names))
	configs := make(map[string]recall.SourceConfig, len(names))
	for _, name := range names {
		src, ok := SourceByName(name)
		if !ok {
			return nil, fmt.Errorf("source %q not registered", name)
		}
		sources = append(sources, src)
		configs[name] = sourceConfigOf(config, name)
	}

	fanout := &recall.Fanout{
		Sources: sources,
		Configs: configs,
	}
	if sec := conv.ConfigGetInt(config, "timeout", 0); sec > 0 {
		fanout.Timeout = time.Duration(sec) * time.Second
	}
	if n := conv.ConfigGetInt(config, "max_concurrent", 0); n > 0 {
		fanout.MaxConcurrent = n
	}
	if limit := conv.ConfigGetInt(config, "limit", 0); limit > 0 {
		fanout.Limit = limit
	}
	if sec := conv.ConfigGetInt(config, "cooldown", 0); sec > 0 {
		fanout.Cooldown = time.Duration(sec) * time.Second
	}
	fanout.ConsensusBonus = conv.ConfigGetFloat(config, "consensus_bonus", 0)
	fanout.QualityBonus = conv.ConfigGetFloat(config, "quality_bonus", 0)

	return fanout, nil
}

// sourceConfigOf 读取 source_configs.<name> 小节：
//
//	source_configs:
//	  trakt:
//	    weight: 1.2
//	    quality: true
//	    confidence: {recommended_by: 0.9, similar_to: 0.7}
func sourceConfigOf(config map[string]any, name string) recall.SourceConfig {
	all, ok := config["source_configs"].(map[string]any)
	if !ok {
		return recall.SourceConfig{}
	}
	raw, ok := all[name].(map[string]any)
	if !ok {
		return recall.SourceConfig{}
	}
	sc := recall.SourceConfig{
		Weight:  conv.ConfigGetFloat(raw, "weight", 0),
		Quality: conv.ConfigGet[bool](raw, "quality", false),
	}
	if confRaw, ok := raw["confidence"].(map[string]any); ok {
		sc.Confidence = make(map[string]float64, len(confRaw))
		for reason, v := range confRaw {
			if f, ok := conv.ToFloat64(v); ok {
				sc.Confidence[reason] = f
			}
		}
	}
	return sc
}

func buildFilterNode(config map[string]any) (pipeline.Node, error) {
	filtersConfig, ok := config["filters"].([]any)
	if !ok {
		return nil, fmt.Errorf("filters not found or invalid")
	}

	filters := make([]filter.Filter, 0, len(filtersConfig))
	for _, fc := range filtersConfig {
		filterMap, ok := fc.(map[string]any)
		if !ok {
			continue
		}
		filterType := conv.ConfigGet[string](filterMap, "type", "")
		switch filterType {
		case "avoidance":
			filters = append(filters, &filter.AvoidanceFilter{})
		case "exclude":
			ids := conv.SliceAnyToString(filterMap["item_ids"])
			filters = append(filters, filter.NewExcludeFilter(ids))
		case "rule":
			expr := conv.ConfigGet[string](filterMap, "expr", "")
			if expr == "" {
				return nil, fmt.Errorf("rule filter requires expr")
			}
			filters = append(filters, &filter.RuleFilter{Expr: expr})
		default:
			return nil, fmt.Errorf("unknown filter type: %s", filterType)
		}
	}

	return &filter.FilterNode{Filters: filters}, nil
}

func buildTasteNode(_ map[string]any) (pipeline.Node, error) {
	return &rank.TasteNode{}, nil
}

func buildMMRNode(config map[string]any) (pipeline.Node, error) {
	return &rerank.MMRNode{
		Lambda:     conv.ConfigGetFloat(config, "lambda", 0),
		K:          conv.ConfigGetInt(config, "k", 0),
		TopKFactor: conv.ConfigGetInt(config, "top_k_factor", 0),
	}, nil
}

func buildTopNNode(config map[string]any) (pipeline.Node, error) {
	n := conv.ConfigGetInt(config, "n", 0)
	if n <= 0 {
		return nil, fmt.Errorf("topn requires n > 0")
	}
	return &rerank.TopNNode{N: n}, nil
}
