package experiment

import (
	"context"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog"

	"github.com/cinerank/cinerank/core"
)

// Recorder 记录原始指标观测。
//
// 观测 append-only 落库，不做预聚合：评估时重新聚合，
// 这样换主指标或换统计口径不需要回放事件。
type Recorder struct {
	Store  core.ExperimentStore
	Logger zerolog.Logger
}

// Record 追加一条观测。记录失败只打日志：
// 指标丢点影响评估精度，但不值得让业务请求失败。
func (r *Recorder) Record(ctx context.Context, testID, userID, variant, metric string, value float64) {
	obs := &core.MetricObservation{
		ID:      uuid.NewString(),
		TestID:  testID,
		UserID:  userID,
		Variant: variant,
		Metric:  metric,
		Value:   value,
		At:      time.Now(),
	}
	if err := r.Store.AppendMetric(ctx, obs); err != nil {
		r.Logger.Warn().Str("test", testID).Str("metric", metric).Err(err).
			Msg("metric record failed")
	}
}
