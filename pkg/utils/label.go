package utils

// Label 是推荐链路中的一等公民：可解释、可追踪、可透传。
// 聚合来源、画像命中、过滤原因都以 Label 形式挂在 Item 上，
// 最终结果可以完整回答"这部片为什么被推/被滤"。
type Label struct {
	Value  string `json:"value"`
	Source string `json:"source"` // aggregate / profile / pattern / filter / rerank ...
}

// MergeLabel 用于合并同名 Label，遵循"保留历史、可追踪"的默认策略。
// - Value: 以 '|' 累积
// - Source: 以 ',' 累积
func MergeLabel(existing Label, incoming Label) Label {
	if existing.Value == "" {
		return incoming
	}
	if incoming.Value == "" {
		return existing
	}

	merged := existing
	merged.Value = existing.Value + "|" + incoming.Value
	switch {
	case existing.Source == "":
		merged.Source = incoming.Source
	case incoming.Source == "":
		merged.Source = existing.Source
	default:
		merged.Source = existing.Source + "," + incoming.Source
	}
	return merged
}

// SplitValues 把累积后的 Label.Value 还原为列表。
func SplitValues(lbl Label) []string {
	if lbl.Value == "" {
		return nil
	}
	out := []string{}
	start := 0
	for i := 0; i <= len(lbl.Value); i++ {
		if i == len(lbl.Value) || lbl.Value[i] == '|' {
			if i > start {
				out = append(out, lbl.Value[start:i])
			}
			start = i + 1
		}
	}
	return out
}
