package feedback

import (
	"strings"

	"github.com/cinerank/cinerank/core"
)

// 演员只取前十位主演，和画像构建的口径一致。
const topCastCount = 10

// ExtractFeatures 从影片元数据抽取反馈落点的特征集合。
//
// 这是反馈学习与画像构建共享的特征词汇：同一部影片在两边抽出的
// 特征一致，反馈计数折回画像时才能对得上号。
func ExtractFeatures(d *core.MovieDetails) []core.FeatureRef {
	if d == nil {
		return nil
	}
	refs := make([]core.FeatureRef, 0, 16)

	for _, g := range d.Genres {
		refs = appendRef(refs, core.FeatureGenre, g.ID, g.Name)
	}
	for _, kw := range d.Keywords {
		refs = appendRef(refs, core.FeatureKeyword, kw.ID, kw.Name)
	}
	for _, dir := range d.Directors {
		refs = appendRef(refs, core.FeatureDirector, dir.ID, dir.Name)
	}
	cast := d.Cast
	if len(cast) > topCastCount {
		cast = cast[:topCastCount]
	}
	for _, actor := range cast {
		refs = appendRef(refs, core.FeatureActor, actor.ID, actor.Name)
	}
	if decade := d.Decade(); decade != "" {
		refs = appendRef(refs, core.FeatureDecade, decade, decade)
	}
	if d.Language != "" {
		refs = appendRef(refs, core.FeatureLanguage, d.Language, d.Language)
	}
	return refs
}

// MatchReason 在特征集合里找 "type:name" 形式的反馈落点。
// 名称按小写比较；没有匹配返回 false。
func MatchReason(refs []core.FeatureRef, reason string) (core.FeatureRef, bool) {
	typ, name, found := strings.Cut(reason, ":")
	if !found {
		return core.FeatureRef{}, false
	}
	name = strings.ToLower(strings.TrimSpace(name))
	for _, ref := range refs {
		if string(ref.Type) == typ && strings.ToLower(ref.Name) == name {
			return ref, true
		}
	}
	return core.FeatureRef{}, false
}

func appendRef(refs []core.FeatureRef, ft core.FeatureType, id, name string) []core.FeatureRef {
	name = strings.TrimSpace(name)
	if name == "" {
		return refs
	}
	if id == "" {
		// 权威 ID 缺失时退化为小写名称
		id = strings.ToLower(name)
	}
	return append(refs, core.FeatureRef{Type: ft, ID: id, Name: name})
}
