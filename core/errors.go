package core

// DomainError 是领域层的统一错误类型。
//
// 设计原则：
//   - 所有领域层错误都使用此类型，携带错误代码（Code）与模块名（Module）
//   - 调用方通过 IsXXX 检查函数分支，不做字符串匹配
//
// 使用场景：
//   - Store 错误：NOT_FOUND, NOT_SUPPORTED
//   - Metadata 错误：NOT_FOUND（单部影片元数据缺失，调用方跳过而非失败）
//   - 来源适配器错误：RATE_LIMITED / UNAVAILABLE（触发熔断冷却）
type DomainError struct {
	Code    string // 错误代码（如 "NOT_FOUND", "RATE_LIMITED"）
	Message string // 错误消息
	Module  string // 模块名称（如 "store", "metadata", "recall"）
}

func (e *DomainError) Error() string {
	return e.Message
}

// GetDomainError 获取 DomainError，如果不是则返回 nil。
func GetDomainError(err error) *DomainError {
	if err == nil {
		return nil
	}
	if domainErr, ok := err.(*DomainError); ok {
		return domainErr
	}
	return nil
}

// NewDomainError 创建新的领域错误。
func NewDomainError(module, code, message string) *DomainError {
	return &DomainError{
		Module:  module,
		Code:    code,
		Message: message,
	}
}

// 错误代码常量
const (
	ErrorCodeNotFound      = "NOT_FOUND"      // 资源不存在
	ErrorCodeNotSupported  = "NOT_SUPPORTED"  // 操作不支持
	ErrorCodeUnavailable   = "UNAVAILABLE"    // 服务不可用
	ErrorCodeRateLimited   = "RATE_LIMITED"   // 被外部来源限流 / 鉴权拒绝
	ErrorCodeInvalidInput  = "INVALID_INPUT"  // 输入无效
	ErrorCodeInternalError = "INTERNAL_ERROR" // 内部错误
)

// 模块名称常量
const (
	ModuleStore      = "store"      // 存储模块
	ModuleMetadata   = "metadata"   // 影片元数据模块
	ModuleRecall     = "recall"     // 来源聚合模块
	ModuleFeedback   = "feedback"   // 反馈学习模块
	ModuleExperiment = "experiment" // 实验评估模块
	ModuleEngine     = "engine"     // 引擎入口模块
)

// IsNotFound 检查错误是否为 NOT_FOUND。
func IsNotFound(err error) bool {
	if domainErr := GetDomainError(err); domainErr != nil {
		return domainErr.Code == ErrorCodeNotFound
	}
	return false
}

// IsUnavailable 检查错误是否为 UNAVAILABLE。
func IsUnavailable(err error) bool {
	if domainErr := GetDomainError(err); domainErr != nil {
		return domainErr.Code == ErrorCodeUnavailable
	}
	return false
}

// IsRateLimited 检查错误是否为限流 / 鉴权类错误。
// 该类错误会让来源进入熔断冷却，而非每次请求都重试。
func IsRateLimited(err error) bool {
	if domainErr := GetDomainError(err); domainErr != nil {
		return domainErr.Code == ErrorCodeRateLimited
	}
	return false
}

// 常用哨兵错误
var (
	// ErrStoreNotFound 表示 key 不存在
	ErrStoreNotFound = NewDomainError(ModuleStore, ErrorCodeNotFound, "store: key not found")

	// ErrStoreNotSupported 表示操作不支持
	ErrStoreNotSupported = NewDomainError(ModuleStore, ErrorCodeNotSupported, "store: operation not supported")

	// ErrMetadataNotFound 表示单部影片的元数据缺失（miss）。
	// 画像构建与候选打分都把它当作可跳过的局部失败。
	ErrMetadataNotFound = NewDomainError(ModuleMetadata, ErrorCodeNotFound, "metadata: item not found")
)
