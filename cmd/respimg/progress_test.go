package main

import (
	"bytes"
	"encoding/json"
	"strings"
	"testing"
	"time"

	"github.com/John-Robertt/respimg/internal/config"
	"github.com/John-Robertt/respimg/internal/domain"
	"github.com/John-Robertt/respimg/internal/infra/logx"
)

func TestProgressLogger_OneLinePerArtifact(t *testing.T) {
	var buf bytes.Buffer
	p := newProgressLogger(logx.New(&buf, false))

	p.OnStart(config.EffectiveConfig{SourceDir: "/s", OutputDir: "/o", Widths: []int{480}, Quality: 80})
	p.OnPhaseDone("scan", map[string]any{"sources": 1}, time.Second)
	p.OnSource(0, 1, domain.SourceImage{File: domain.SourceFile{Name: "photo-a.jpg"}, Width: 3000, Height: 300})
	p.OnArtifact(domain.ArtifactResult{
		Source: "photo-a.jpg", Dst: "images/optimized/photo-a-480.webp",
		Width: 480, OutWidth: 480, OutHeight: 48,
		Mode: domain.ModeResize, Status: domain.ArtifactStatusWritten, Bytes: 1234,
	}, 10*time.Millisecond)
	p.OnPhaseDone("exec", nil, 2*time.Second)

	lines := strings.Split(strings.TrimSpace(buf.String()), "\n")
	if len(lines) != 5 {
		t.Fatalf("期望 5 行日志，实际 %d：\n%s", len(lines), buf.String())
	}

	var art map[string]any
	if err := json.Unmarshal([]byte(lines[3]), &art); err != nil {
		t.Fatalf("产物日志不是 JSON：%v", err)
	}
	if art["message"] != "written" || art["dst"] != "images/optimized/photo-a-480.webp" || art["size"] != "480x48" {
		t.Fatalf("产物日志字段不符合预期：%v", art)
	}
	if art["bytes"] != float64(1234) {
		t.Fatalf("期望 bytes=1234，实际 %v", art["bytes"])
	}

	var scan map[string]any
	if err := json.Unmarshal([]byte(lines[1]), &scan); err != nil {
		t.Fatalf("阶段日志不是 JSON：%v", err)
	}
	if scan["phase"] != "scan" || scan["sources"] != float64(1) || scan["took"] != "1.0s" {
		t.Fatalf("阶段日志字段不符合预期：%v", scan)
	}
}

func TestProgressLogger_PlannedOmitsBytes(t *testing.T) {
	var buf bytes.Buffer
	p := newProgressLogger(logx.New(&buf, false))
	p.OnArtifact(domain.ArtifactResult{Dst: "x-480.webp", Status: domain.ArtifactStatusPlanned}, 0)

	var m map[string]any
	if err := json.Unmarshal(bytes.TrimSpace(buf.Bytes()), &m); err != nil {
		t.Fatalf("日志不是 JSON：%v", err)
	}
	if m["message"] != "planned" {
		t.Fatalf("期望 planned，实际 %v", m["message"])
	}
	if _, ok := m["bytes"]; ok {
		t.Fatalf("planned 不应包含 bytes：%v", m)
	}
}

func TestSummaryLine(t *testing.T) {
	rr := domain.RunReport{Summary: domain.ReportSummary{Sources: 2, Artifacts: 5, Resized: 4, Copied: 1}}
	if got := summaryLine(rr); got != "完成：sources=2 written=5 resized=4 copied=1" {
		t.Fatalf("摘要不符合预期：%q", got)
	}
	rr.DryRun = true
	if got := summaryLine(rr); !strings.Contains(got, "planned=5") {
		t.Fatalf("dry-run 摘要应使用 planned：%q", got)
	}
}
