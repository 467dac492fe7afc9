// Package cinerank 是一个电影推荐引擎（CineRank）。
//
// 设计要点：
// - Pipeline-first: 推荐逻辑通过 Node 串联（聚合 → 过滤 → 排序 → 重排）
// - 共识优先: 多来源信号按影片合并，来源重叠度直接进分数与标签
// - 画像即上下文: 口味画像每次由历史+反馈计数从头推导，贯穿整条 Pipeline
// - Labels-first: labels 全链路透传与标准化 merge，支持 explain / 观测
package cinerank

import "github.com/cinerank/cinerank/pipeline"

// 轻量 facade：便于用户直接 import 使用核心抽象。
type Pipeline = pipeline.Pipeline
type Node = pipeline.Node
type Kind = pipeline.Kind

const (
	KindRecall      = pipeline.KindRecall
	KindFilter      = pipeline.KindFilter
	KindRank        = pipeline.KindRank
	KindReRank      = pipeline.KindReRank
	KindPostProcess = pipeline.KindPostProcess
)
