// Package dsl 提供基于 CEL (Common Expression Language) 的候选过滤表达式。
// 运营规则（如 "低共识且低分的候选直接滤掉"）以表达式下发，不用改代码。
package dsl

import (
	"fmt"
	"sync"

	"github.com/google/cel-go/cel"

	"github.com/cinerank/cinerank/core"
)

var (
	// celEnv 是全局的 CEL 环境，线程安全，可复用
	celEnv     *cel.Env
	celEnvOnce sync.Once
	celEnvErr  error

	// prgCache 缓存已编译的表达式，避免每个候选都重新编译
	prgCache   = make(map[string]cel.Program)
	prgCacheMu sync.RWMutex
)

func getCELEnv() (*cel.Env, error) {
	celEnvOnce.Do(func() {
		celEnv, celEnvErr = cel.NewEnv(
			cel.Variable("item", cel.DynType),
			cel.Variable("label", cel.DynType),
			cel.Variable("rctx", cel.DynType),
		)
	})
	return celEnv, celEnvErr
}

func compile(expr string) (cel.Program, error) {
	prgCacheMu.RLock()
	prg, ok := prgCache[expr]
	prgCacheMu.RUnlock()
	if ok {
		return prg, nil
	}

	env, err := getCELEnv()
	if err != nil {
		return nil, fmt.Errorf("cel env: %w", err)
	}
	ast, issues := env.Compile(expr)
	if issues != nil && issues.Err() != nil {
		return nil, fmt.Errorf("compile error: %v", issues.Err())
	}
	prg, err = env.Program(ast)
	if err != nil {
		return nil, fmt.Errorf("program error: %v", err)
	}

	prgCacheMu.Lock()
	prgCache[expr] = prg
	prgCacheMu.Unlock()
	return prg, nil
}

// Evaluate 对单个候选执行表达式，返回布尔结果。空表达式恒为 true。
//
// 表达式语法（CEL 标准语法）：
//   - label.consensus == "low"
//   - item.score > 0.7 && item.runtime > 180
//   - label.recall_source.contains("trakt") && item.score < 0.4
//   - label.reason != null（存在性检查）
func Evaluate(expr string, item *core.Item, rctx *core.RecommendContext) (bool, error) {
	if expr == "" {
		return true, nil
	}
	prg, err := compile(expr)
	if err != nil {
		return false, err
	}

	out, _, err := prg.Eval(buildInput(item, rctx))
	if err != nil {
		// 访问不存在的 key 时 CEL 返回错误；存在性应写 label.key != null
		return false, fmt.Errorf("eval error: %v", err)
	}
	result, ok := out.Value().(bool)
	if !ok {
		return false, fmt.Errorf("expression must return boolean, got %T", out.Value())
	}
	return result, nil
}

// buildInput 构建 CEL 表达式的输入数据。
// label.xxx 直接取 Label.Value，方便写短表达式。
func buildInput(it *core.Item, rctx *core.RecommendContext) map[string]any {
	labelAccessor := make(map[string]any, len(it.Labels))
	for k, v := range it.Labels {
		labelAccessor[k] = v.Value
	}

	itemMap := map[string]any{
		"id":       it.ID,
		"title":    it.Title,
		"score":    it.Score,
		"features": it.Features,
		"sources":  len(it.Sources),
		// 元数据字段始终存在（未水合时为零值），表达式不用做存在性检查
		"runtime":  0,
		"language": "",
		"decade":   "",
		"genres":   []string{},
	}
	if d := it.Details(); d != nil {
		itemMap["runtime"] = d.Runtime
		itemMap["language"] = d.Language
		itemMap["decade"] = d.Decade()
		itemMap["genres"] = d.GenreNames()
	}

	rctxMap := map[string]any{}
	if rctx != nil {
		rctxMap["user_id"] = rctx.UserID
		rctxMap["scene"] = rctx.Scene
		rctxMap["params"] = rctx.Params
	}

	return map[string]any{
		"item":  itemMap,
		"label": labelAccessor,
		"rctx":  rctxMap,
	}
}
