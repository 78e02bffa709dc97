package run

import (
	"context"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/John-Robertt/respimg/internal/app/planner"
	"github.com/John-Robertt/respimg/internal/config"
	"github.com/John-Robertt/respimg/internal/domain"
	"github.com/John-Robertt/respimg/internal/infra/fsx"
	"github.com/John-Robertt/respimg/internal/infra/imgx"
	"github.com/John-Robertt/respimg/internal/scan"
)

// Execute 执行一次 run，并返回本次运行的 RunReport。
//
// 语义（硬约束）：
// - 严格串行：一个源图的全部宽度写完，才加载下一个源图
// - 任何加载/编码/写入失败都会立即终止整批处理，返回的 error 非 nil；
//   此时 RunReport 仍包含失败前已写入的产物（它们保留在磁盘上）
// - ctx 只在源图之间检查，单个源图内部不可中断
func Execute(ctx context.Context, eff config.EffectiveConfig) (domain.RunReport, error) {
	return ExecuteWithObserver(ctx, eff, nil)
}

// ExecuteWithObserver 与 Execute 相同，但允许传入 Observer 以输出进度/阶段信息（由上层决定是否启用）。
func ExecuteWithObserver(ctx context.Context, eff config.EffectiveConfig, obs Observer) (domain.RunReport, error) {
	if obs != nil {
		obs.OnStart(eff)
	}

	rr := domain.RunReport{
		Base:      eff.Base,
		SourceDir: eff.SourceDir,
		OutputDir: eff.OutputDir,
		DryRun:    eff.DryRun,
		Widths:    append([]int{}, eff.Widths...),
		Quality:   eff.Quality,
		StartedAt: time.Now().UTC(),
		Artifacts: make([]domain.ArtifactResult, 0, 16),
	}
	finish := func(err error) (domain.RunReport, error) {
		rr.FinishedAt = time.Now().UTC()
		rr.Finalize()
		return rr, err
	}

	scanStarted := time.Now()
	files, err := scan.ScanSources(eff.SourceDir, eff.Pattern)
	if err != nil {
		return finish(fmt.Errorf("扫描源目录 %q 失败：%w", eff.SourceDir, err))
	}
	rr.Summary.Sources = len(files)
	if obs != nil {
		obs.OnPhaseDone("scan", map[string]any{
			"sources": len(files),
			"widths":  len(eff.Widths),
		}, time.Since(scanStarted))
	}

	if !eff.DryRun {
		if err := os.MkdirAll(eff.OutputDir, 0o755); err != nil {
			return finish(fmt.Errorf("创建输出目录 %q 失败：%w", eff.OutputDir, err))
		}
	}

	execStarted := time.Now()
	for i, f := range files {
		if err := ctx.Err(); err != nil {
			return finish(err)
		}

		var arts []domain.ArtifactResult
		if eff.DryRun {
			arts, err = planOne(eff, f, i, len(files), obs)
		} else {
			arts, err = execOne(eff, f, i, len(files), obs)
		}
		rr.Artifacts = append(rr.Artifacts, arts...)
		if err != nil {
			return finish(err)
		}
	}

	if obs != nil {
		obs.OnPhaseDone("exec", map[string]any{
			"sources":   len(files),
			"artifacts": len(rr.Artifacts),
		}, time.Since(execStarted))
	}
	return finish(nil)
}

// execOne 处理单个源图：解码一次，然后按 widths 顺序逐个渲染/编码/写入。
// 解码后的像素只在本函数内存活；返回后即可被回收。
func execOne(eff config.EffectiveConfig, f domain.SourceFile, idx, total int, obs Observer) ([]domain.ArtifactResult, error) {
	img, err := imgx.Load(f.AbsPath)
	if err != nil {
		return nil, fmt.Errorf("加载源图 %q 失败：%w", f.AbsPath, err)
	}

	b := img.Bounds()
	src := domain.SourceImage{File: f, Width: b.Dx(), Height: b.Dy()}
	if obs != nil {
		obs.OnSource(idx, total, src)
	}

	plan := planner.PlanVariants(src, eff.Widths, eff.OutputDir)
	out := make([]domain.ArtifactResult, 0, len(plan.Variants))
	for _, v := range plan.Variants {
		started := time.Now()

		n, err := fsx.ReplaceFile(v.DstAbs, func(w io.Writer) error {
			return imgx.EncodeVariant(w, img, v, eff.Quality)
		})
		if err != nil {
			return out, fmt.Errorf("生成 %q 失败：%w", v.DstAbs, err)
		}

		res := artifactResult(eff.Base, f, v, domain.ArtifactStatusWritten, n)
		out = append(out, res)
		if obs != nil {
			obs.OnArtifact(res, time.Since(started))
		}
	}
	return out, nil
}

// planOne 是 dry-run 版本：只读图片头部拿尺寸，不解码像素、不写盘。
func planOne(eff config.EffectiveConfig, f domain.SourceFile, idx, total int, obs Observer) ([]domain.ArtifactResult, error) {
	w, h, err := imgx.DecodeSize(f.AbsPath)
	if err != nil {
		return nil, fmt.Errorf("读取源图尺寸 %q 失败：%w", f.AbsPath, err)
	}

	src := domain.SourceImage{File: f, Width: w, Height: h}
	if obs != nil {
		obs.OnSource(idx, total, src)
	}

	plan := planner.PlanVariants(src, eff.Widths, eff.OutputDir)
	out := make([]domain.ArtifactResult, 0, len(plan.Variants))
	for _, v := range plan.Variants {
		res := artifactResult(eff.Base, f, v, domain.ArtifactStatusPlanned, 0)
		out = append(out, res)
		if obs != nil {
			obs.OnArtifact(res, 0)
		}
	}
	return out, nil
}

func artifactResult(base string, f domain.SourceFile, v domain.VariantPlan, status string, size int64) domain.ArtifactResult {
	mode := domain.ModeCopy
	if v.Resize {
		mode = domain.ModeResize
	}
	return domain.ArtifactResult{
		Source:    f.Name,
		Dst:       relOrAbs(base, v.DstAbs),
		Width:     v.Width,
		OutWidth:  v.OutWidth,
		OutHeight: v.OutHeight,
		Mode:      mode,
		Status:    status,
		Bytes:     size,
	}
}

// relOrAbs 尽量输出相对 base 的路径（更短，便于阅读）；不在 base 之下时保留绝对路径。
func relOrAbs(base, p string) string {
	rel, err := filepath.Rel(base, p)
	if err != nil || rel == ".." || strings.HasPrefix(rel, ".."+string(filepath.Separator)) {
		return p
	}
	return filepath.ToSlash(rel)
}
