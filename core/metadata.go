package core

import "context"

// MetadataProvider 是影片元数据的领域接口。
//
// 设计原则：
//   - 定义在领域层（core），由外部协作方实现（元数据缓存 / 批量导入任务）
//   - 元数据如何被抓取与缓存不在引擎范围内，引擎只消费归一化形态
//
// 失败语义：
//   - 单部影片 miss 返回 ErrMetadataNotFound（或任何 IsNotFound 为真的错误）
//   - 调用方把 miss 当作可跳过的局部失败：画像构建跳过该片，
//     候选打分退化为按部分特征打分，绝不因缺元数据整体失败
type MetadataProvider interface {
	// GetItemDetails 按影片 ID 获取归一化元数据
	GetItemDetails(ctx context.Context, itemID string) (*MovieDetails, error)
}
