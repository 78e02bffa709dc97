package planner

import (
	"fmt"
	"path/filepath"

	"github.com/John-Robertt/respimg/internal/domain"
)

// ArtifactExt 是产物的扩展名（编码格式固定为 WebP）。
const ArtifactExt = ".webp"

// ArtifactName 返回 <base>-<w>.webp。文件名里的宽度永远是配置槽位，而不是产物的真实宽度。
func ArtifactName(base string, width int) string {
	return fmt.Sprintf("%s-%d%s", base, width, ArtifactExt)
}

// TargetSize 计算某个宽度槽位上的产物尺寸。
//
// 规则（固定）：
// - srcW <= w：不放大，产物就是原尺寸（resize=false）
// - srcW > w：宽度取 w，高度 = floor(srcH * w / srcW)，最小为 1
func TargetSize(srcW, srcH, w int) (outW, outH int, resize bool) {
	if srcW <= w {
		return srcW, srcH, false
	}
	// 整数运算得到精确的 floor，避免浮点误差导致差 1。
	h := int(int64(srcH) * int64(w) / int64(srcW))
	if h < 1 {
		h = 1
	}
	return w, h, true
}

// PlanVariants 为单个源图生成确定性的产物计划（不做任何写入）。
// Variants 顺序与 widths 一致；widths 中的重复值会产生指向同一路径的重复计划（后写覆盖先写）。
func PlanVariants(src domain.SourceImage, widths []int, outDir string) domain.SourcePlan {
	plan := domain.SourcePlan{
		Source:   src,
		Variants: make([]domain.VariantPlan, 0, len(widths)),
	}
	for _, w := range widths {
		outW, outH, resize := TargetSize(src.Width, src.Height, w)
		plan.Variants = append(plan.Variants, domain.VariantPlan{
			Width:     w,
			OutWidth:  outW,
			OutHeight: outH,
			Resize:    resize,
			DstAbs:    filepath.Join(outDir, ArtifactName(src.File.Base, w)),
		})
	}
	return plan
}
