package core

// SourceSignal 是单个外部来源对单部影片的一次推荐信号。
// 每个推荐周期内，同一 (Source, ItemID) 至多产生一条信号；信号是短暂的，
// 聚合后只保留在 Item.Sources 中。
type SourceSignal struct {
	Source     string  // 来源名（适配器 Name()）
	ItemID     string  // 影片标识
	Title      string  // 来源给出的标题（可为空，聚合时择一保留）
	Confidence float64 // 置信度 [0,1]，由来源可靠性常量决定
	Reason     string  // 推荐理由，如 "recommended_by" / "similar_to"
}
