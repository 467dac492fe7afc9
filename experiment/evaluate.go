package experiment

import (
	"context"
	"sort"

	"github.com/cinerank/cinerank/core"
	"github.com/cinerank/cinerank/pkg/stat"
)

// Comparison 是一个变体相对对照组在某个指标上的比较结果。
type Comparison struct {
	Variant       string
	Metric        string
	ControlN      int
	VariantN      int
	ControlMean   float64
	VariantMean   float64
	PercentChange float64 // (variant-control)/control × 100；control 均值为 0 时为 0
	TValue        float64
	DF            float64
	PValue        float64
	IsSignificant bool // 双侧 p < 0.05
	CILow         float64
	CIHigh        float64
}

// Report 是一个实验的完整评估报告。
type Report struct {
	TestID      string
	Control     string
	Comparisons []Comparison

	// Suppressed 列出被抑制的比较及原因（样本不足 / 零方差 / 缺对照组）。
	// 抑制是显式的：宁可不给结论，也不给一个会被误读的数字。
	Suppressed map[string]string
}

// Evaluator 用 Welch t 检验评估实验。
type Evaluator struct {
	Store core.ExperimentStore
}

// Evaluate 聚合一个实验的全部观测并逐变体、逐指标与对照组比较。
//
// 抑制规则：任一侧样本数 <2、两侧方差同时为 0、或对照组没有该指标
// 的观测时，该比较进入 Suppressed 而不产出统计量。
func (e *Evaluator) Evaluate(ctx context.Context, cfg *core.ExperimentConfig) (*Report, error) {
	obs, err := e.Store.ListMetrics(ctx, cfg.ID)
	if err != nil {
		return nil, err
	}

	// variant -> metric -> values
	byVariant := make(map[string]map[string][]float64)
	for _, o := range obs {
		m, ok := byVariant[o.Variant]
		if !ok {
			m = make(map[string][]float64)
			byVariant[o.Variant] = m
		}
		m[o.Metric] = append(m[o.Metric], o.Value)
	}

	report := &Report{
		TestID:     cfg.ID,
		Control:    cfg.Control,
		Suppressed: make(map[string]string),
	}

	control, hasControl := byVariant[cfg.Control]

	for _, v := range cfg.Variants {
		if v.Name == cfg.Control {
			continue
		}
		variant := byVariant[v.Name]
		for _, metric := range metricsOf(variant) {
			key := v.Name + "/" + metric
			if !hasControl || len(control[metric]) == 0 {
				report.Suppressed[key] = "no control observations"
				continue
			}

			a, b := control[metric], variant[metric]
			res, ok := stat.Welch(a, b)
			if !ok {
				if len(a) < 2 || len(b) < 2 {
					report.Suppressed[key] = "insufficient samples"
				} else {
					report.Suppressed[key] = "zero variance in both groups"
				}
				continue
			}

			pct := 0.0
			if res.MeanA != 0 {
				pct = (res.MeanB - res.MeanA) / res.MeanA * 100
			}

			report.Comparisons = append(report.Comparisons, Comparison{
				Variant:       v.Name,
				Metric:        metric,
				ControlN:      len(a),
				VariantN:      len(b),
				ControlMean:   res.MeanA,
				VariantMean:   res.MeanB,
				PercentChange: pct,
				TValue:        res.T,
				DF:            res.DF,
				PValue:        res.PValue,
				IsSignificant: res.PValue < 0.05,
				CILow:         res.CILow,
				CIHigh:        res.CIHigh,
			})
		}
	}

	sort.Slice(report.Comparisons, func(i, j int) bool {
		if report.Comparisons[i].Variant != report.Comparisons[j].Variant {
			return report.Comparisons[i].Variant < report.Comparisons[j].Variant
		}
		return report.Comparisons[i].Metric < report.Comparisons[j].Metric
	})
	return report, nil
}

// PrimaryComparison 返回主指标上的全部比较（评估结论通常只看主指标）。
func (r *Report) PrimaryComparison(primaryMetric string) []Comparison {
	out := make([]Comparison, 0, 2)
	for _, c := range r.Comparisons {
		if c.Metric == primaryMetric {
			out = append(out, c)
		}
	}
	return out
}

func metricsOf(byMetric map[string][]float64) []string {
	out := make([]string, 0, len(byMetric))
	for m := range byMetric {
		out = append(out, m)
	}
	sort.Strings(out)
	return out
}
