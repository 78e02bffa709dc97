package run

import (
	"time"

	"github.com/John-Robertt/respimg/internal/config"
	"github.com/John-Robertt/respimg/internal/domain"
)

// Observer 用于把“运行进度/阶段/产物结果”从核心执行流程中解耦出来。
//
// 约束：
// - run 包只负责发事件，不做任何输出（避免污染 stdout 的 JSON 契约）。
// - 事件全部来自调用 Execute 的 goroutine（run 本身是严格串行的）。
type Observer interface {
	// OnStart 在 Execute 开始时调用。
	OnStart(eff config.EffectiveConfig)
	// OnPhaseDone 在阶段结束时调用（scan/exec）。
	OnPhaseDone(name string, fields map[string]any, dur time.Duration)
	// OnSource 在某个源图解码（dry-run 时为读取头部）完成后调用。
	OnSource(idx, total int, src domain.SourceImage)
	// OnArtifact 在每个产物写入（dry-run 时为规划）完成后调用。
	OnArtifact(res domain.ArtifactResult, dur time.Duration)
}
