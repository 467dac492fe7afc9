package core

import "context"

// Store 是存储的领域接口。
//
// 设计原则：
//   - 定义在领域层（core），由基础设施层（store）实现
//   - 遵循依赖倒置原则：领域层定义接口，基础设施层实现接口
//
// 使用场景：
//   - 特征反馈计数（FeatureFeedback）的持久化
//   - 实验分配与指标观测的持久化
//   - 画像 / 元数据缓存
type Store interface {
	// Name 返回存储后端名称（用于日志/监控）
	Name() string

	// Get 读取单个 key 的值
	Get(ctx context.Context, key string) ([]byte, error)

	// Set 写入单个 key-value
	Set(ctx context.Context, key string, value []byte, ttl ...int) error

	// SetNX 仅当 key 不存在时写入，返回是否写入成功。
	// 用于实验分配的粘性插入：并发首次插入时，后到者读回先到者的结果。
	SetNX(ctx context.Context, key string, value []byte, ttl ...int) (bool, error)

	// Delete 删除单个 key
	Delete(ctx context.Context, key string) error

	// BatchGet 批量读取（减少网络往返）
	BatchGet(ctx context.Context, keys []string) (map[string][]byte, error)

	// Close 关闭连接/释放资源
	Close() error
}

// KeyValueStore 是 Store 的扩展接口，支持反馈学习与实验评估需要的结构化操作。
//
// 扩展功能：
//   - 哈希表 + 原子自增：特征计数的 read-modify-write 必须原子（或可安全重试）
//   - 列表追加：pairwise 原始观测与指标观测都是 append-only 日志
//
// 如果后端不支持某些操作，可返回 ErrStoreNotSupported。
type KeyValueStore interface {
	Store

	// HGet 读取 Hash 字段
	HGet(ctx context.Context, key, field string) ([]byte, error)

	// HSet 写入 Hash 字段
	HSet(ctx context.Context, key, field string, value []byte) error

	// HGetAll 读取整个 Hash
	HGetAll(ctx context.Context, key string) (map[string][]byte, error)

	// HIncrBy 对 Hash 字段做原子自增，返回自增后的值。
	// 并发对同一 (key, field) 的自增不得丢失。
	HIncrBy(ctx context.Context, key, field string, delta int64) (int64, error)

	// RPush 向列表尾部追加（append-only 日志）
	RPush(ctx context.Context, key string, values ...[]byte) error

	// LRange 读取列表区间；stop 为 -1 表示到末尾
	LRange(ctx context.Context, key string, start, stop int64) ([][]byte, error)
}
