package recall

// 共识等级：按多少个独立来源推荐了同一部影片分桶。
const (
	ConsensusLow    = "low"
	ConsensusMedium = "medium"
	ConsensusHigh   = "high"
)

// ConsensusFor 返回 (来源数, 当前活跃来源数) 对应的共识等级。
//
// high 的阈值是活跃来源数的函数（夹在 [3,4]），而不是写死的常量：
// 增删一个来源适配器不会悄悄改变 "high" 的含义。
// 活跃来源 >= 4 时严格满足 high ⇔ sourceCount >= 4。
func ConsensusFor(sourceCount, activeSources int) string {
	if sourceCount <= 1 {
		return ConsensusLow
	}
	high := activeSources
	if high > 4 {
		high = 4
	}
	if high < 3 {
		high = 3
	}
	if sourceCount >= high {
		return ConsensusHigh
	}
	return ConsensusMedium
}
