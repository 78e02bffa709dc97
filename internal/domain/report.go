package domain

import (
	"encoding/json"
	"time"
)

const (
	ArtifactStatusWritten = "written"
	ArtifactStatusPlanned = "planned"
)

const (
	ModeResize = "resize"
	ModeCopy   = "copy"
)

// RunReport 是一次 run 的对外输出（stdout JSON / 终端摘要）。
// 只描述本次运行，不落盘，也不与历史运行做任何比对。
type RunReport struct {
	Base      string `json:"base"`
	SourceDir string `json:"source_dir"`
	OutputDir string `json:"output_dir"`
	DryRun    bool   `json:"dry_run"`

	Widths  []int `json:"widths"`
	Quality int   `json:"quality"`

	StartedAt  time.Time `json:"started_at"`
	FinishedAt time.Time `json:"finished_at"`

	Summary   ReportSummary    `json:"summary"`
	Artifacts []ArtifactResult `json:"artifacts"`
}

type ReportSummary struct {
	Sources   int `json:"sources"`
	Artifacts int `json:"artifacts"`
	Resized   int `json:"resized"`
	Copied    int `json:"copied"`
}

type ArtifactResult struct {
	Source string `json:"source"`
	Dst    string `json:"dst"`
	Width  int    `json:"width"`

	OutWidth  int `json:"out_width"`
	OutHeight int `json:"out_height"`

	Mode   string `json:"mode"`
	Status string `json:"status"`
	Bytes  int64  `json:"bytes"`
}

// Finalize 做两件事：
// 1) 时间统一为 UTC（确保 JSON 为 RFC3339 且后缀 Z）
// 2) summary 由 artifacts 计算得出（sources 按不同 Source 去重计数）
//
// artifacts 保持写入顺序（源文件名字典序 + widths 声明顺序），不再二次排序。
func (r *RunReport) Finalize() {
	r.StartedAt = r.StartedAt.UTC()
	r.FinishedAt = r.FinishedAt.UTC()

	if r.Widths == nil {
		r.Widths = []int{}
	}
	if r.Artifacts == nil {
		r.Artifacts = []ArtifactResult{}
	}

	var s ReportSummary
	seen := make(map[string]struct{}, len(r.Artifacts))
	for _, a := range r.Artifacts {
		if _, ok := seen[a.Source]; !ok {
			seen[a.Source] = struct{}{}
			s.Sources++
		}
		s.Artifacts++
		switch a.Mode {
		case ModeResize:
			s.Resized++
		case ModeCopy:
			s.Copied++
		}
	}
	// 没有 widths 时源文件不会产生 artifact；保留调用方预先统计的 sources。
	if s.Sources < r.Summary.Sources {
		s.Sources = r.Summary.Sources
	}
	r.Summary = s
}

// MarshalJSON 仅用于集中约束输出的稳定性（避免未来不小心引入非确定字段）。
// 当前只是透传 encoding/json 的默认行为。
func (r RunReport) MarshalJSON() ([]byte, error) {
	type Alias RunReport
	return json.Marshal(Alias(r))
}
