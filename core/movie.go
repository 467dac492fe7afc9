package core

import (
	"fmt"
	"time"
)

// Genre 是影片的粗粒度类型（Action / Horror / Comedy ...）。
type Genre struct {
	ID   string
	Name string
}

// Keyword 是影片的细粒度标签。ID 为权威标识（可为空），Name 为展示文本。
type Keyword struct {
	ID   string
	Name string
}

// Person 是演职员（演员 / 导演）。
type Person struct {
	ID   string
	Name string
}

// MovieDetails 是引擎消费的影片元数据的归一化形态。
// 元数据的来源（抓取 / 缓存 / 批量导入）不在引擎范围内，见 MetadataProvider。
type MovieDetails struct {
	ID          string
	Title       string
	Genres      []Genre
	Keywords    []Keyword
	Cast        []Person // 按出演顺序排列，权重计算只取前 10
	Directors   []Person
	Runtime     int    // 分钟
	Language    string // 原始语言，ISO-639-1
	ReleaseDate time.Time
}

// Decade 返回发行年代（如 "1990s"）；发行日期缺失时返回空串。
func (d *MovieDetails) Decade() string {
	if d == nil || d.ReleaseDate.IsZero() {
		return ""
	}
	year := d.ReleaseDate.Year()
	return fmt.Sprintf("%ds", year-year%10)
}

// GenreNames 返回类型名列表（保持元数据顺序）。
func (d *MovieDetails) GenreNames() []string {
	if d == nil {
		return nil
	}
	names := make([]string, 0, len(d.Genres))
	for _, g := range d.Genres {
		names = append(names, g.Name)
	}
	return names
}

// KeywordNames 返回标签名列表。
func (d *MovieDetails) KeywordNames() []string {
	if d == nil {
		return nil
	}
	names := make([]string, 0, len(d.Keywords))
	for _, k := range d.Keywords {
		names = append(names, k.Name)
	}
	return names
}

// WatchedMovie 是用户观影历史中的一条记录。
// Rating 为 0 表示未评分；Rating 为 0 且 Liked 为 false 的记录是零信号，
// 画像构建时会被整条跳过。
type WatchedMovie struct {
	ItemID  string
	Title   string
	Rating  float64 // 0.5–5 星，0 表示未评分
	Liked   bool
	Rewatch bool
}

// HasSignal 报告该记录是否携带任何偏好信号。
func (w WatchedMovie) HasSignal() bool {
	return w.Rating > 0 || w.Liked
}

// IsNegative 报告该记录是否为明确负反馈（低分且未点喜欢）。
func (w WatchedMovie) IsNegative() bool {
	return w.Rating > 0 && w.Rating <= 2 && !w.Liked
}
