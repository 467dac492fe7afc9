package core

// FeatureType 是特征类型的封闭枚举。
//
// 原则：核心特征记录不使用开放式 key 集合（"bag of any"），每种类型有固定
// 的属性语义；唯一的 map[string]any 逃生舱留给实验变体参数（Variant.Params）。
type FeatureType string

const (
	FeatureGenre    FeatureType = "genre"
	FeatureKeyword  FeatureType = "keyword"
	FeatureActor    FeatureType = "actor"
	FeatureDirector FeatureType = "director"
	FeatureDecade   FeatureType = "decade"
	FeatureLanguage FeatureType = "language"
	FeatureSubgenre FeatureType = "subgenre"
)

// FeatureRef 是对一个具体特征的引用：画像构建与反馈学习共用同一套
// 特征词汇（同一部影片抽出的 FeatureRef 集合一致），避免两边各自为政。
type FeatureRef struct {
	Type FeatureType
	ID   string // 权威标识；缺失时退化为小写名称
	Name string
}

// FeatureWeight 是画像中一个特征的累计权重。
// 单次画像构建内按加法累计；除反馈来源的权重外不直接持久化（每次由历史重建）。
type FeatureWeight struct {
	Type   FeatureType
	ID     string
	Name   string
	Weight float64
}
