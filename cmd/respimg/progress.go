package main

import (
	"fmt"
	"time"

	"github.com/rs/zerolog"

	"github.com/John-Robertt/respimg/internal/app/run"
	"github.com/John-Robertt/respimg/internal/config"
	"github.com/John-Robertt/respimg/internal/domain"
)

var _ run.Observer = (*progressLogger)(nil)

// progressLogger 把 run 的事件转成结构化日志。
//
// - 所有过程信息写到 logger（stderr），不污染 stdout 的 JSON 输出契约
// - 事件驱动：run 层只发事件，CLI 决定如何展示
// - 每个产物一行，dry-run 时状态为 planned
type progressLogger struct {
	log zerolog.Logger
}

func newProgressLogger(log zerolog.Logger) *progressLogger {
	return &progressLogger{log: log}
}

func (p *progressLogger) OnStart(eff config.EffectiveConfig) {
	mode := "write"
	if eff.DryRun {
		mode = "dry-run"
	}
	cfg := "<default>"
	if eff.ConfigFound {
		cfg = eff.ConfigPath
	}
	p.log.Info().
		Str("mode", mode).
		Str("source", eff.SourceDir).
		Str("out", eff.OutputDir).
		Str("pattern", eff.Pattern).
		Str("config", cfg).
		Ints("widths", eff.Widths).
		Int("quality", eff.Quality).
		Msg("respimg run")
}

func (p *progressLogger) OnPhaseDone(name string, fields map[string]any, dur time.Duration) {
	ev := p.log.Info().Str("phase", name)
	if len(fields) > 0 {
		ev = ev.Fields(fields)
	}
	ev.Str("took", formatShortDuration(dur)).Msg(phaseTitle(name))
}

func (p *progressLogger) OnSource(idx, total int, src domain.SourceImage) {
	p.log.Info().
		Str("progress", fmt.Sprintf("%d/%d", idx+1, total)).
		Str("source", src.File.Name).
		Str("size", fmt.Sprintf("%dx%d", src.Width, src.Height)).
		Msg("源图")
}

func (p *progressLogger) OnArtifact(res domain.ArtifactResult, dur time.Duration) {
	ev := p.log.Info().
		Str("dst", res.Dst).
		Int("width", res.Width).
		Str("size", fmt.Sprintf("%dx%d", res.OutWidth, res.OutHeight)).
		Str("mode", res.Mode)
	if res.Status == domain.ArtifactStatusWritten {
		ev = ev.Int64("bytes", res.Bytes).Str("took", formatShortDuration(dur))
	}
	ev.Msg(res.Status)
}

func phaseTitle(name string) string {
	switch name {
	case "scan":
		return "扫描完成"
	case "exec":
		return "处理完成"
	default:
		return name
	}
}

func formatShortDuration(d time.Duration) string {
	if d < 0 {
		d = 0
	}
	return fmt.Sprintf("%.1fs", d.Seconds())
}
