package profile

import "github.com/cinerank/cinerank/core"

// 权重常量：演员按类型/导演乘数的一半计权，重看小幅上调。
const (
	castMultiplier    = 0.5
	likedMultiplier   = 1.6
	rewatchMultiplier = 1.2
	topCastCount      = 10
)

// FilmWeight 返回单片对画像的贡献权重。
//
// 评分分档 + liked 乘数的分段函数：同一评分档下，liked 严格大于未 liked
// （乘数恒大于 1）。零信号影片（未评分且未点喜欢）权重为 0，
// 由调用方整条跳过——它们不参与累计，也就不会把权重稀释向零。
func FilmWeight(w core.WatchedMovie) float64 {
	if !w.HasSignal() {
		return 0
	}

	var base float64
	switch {
	case w.Rating >= 4.5:
		base = 3.0
	case w.Rating >= 4:
		base = 2.5
	case w.Rating >= 3.5:
		base = 2.0
	case w.Rating >= 3:
		base = 1.5
	case w.Rating >= 2.5:
		base = 1.0
	case w.Rating > 0:
		base = 0.5
	default:
		// 只点了喜欢、没有评分
		base = 1.5
	}

	if w.Liked {
		base *= likedMultiplier
	}
	if w.Rewatch {
		base *= rewatchMultiplier
	}
	return base
}
