package planner

import (
	"path/filepath"
	"testing"

	"github.com/John-Robertt/respimg/internal/domain"
)

func TestTargetSize_NoUpscale(t *testing.T) {
	w, h, resize := TargetSize(300, 200, 480)
	if resize || w != 300 || h != 200 {
		t.Fatalf("不应放大：got=%dx%d resize=%v", w, h, resize)
	}

	// 相等也不缩放。
	w, h, resize = TargetSize(480, 320, 480)
	if resize || w != 480 || h != 320 {
		t.Fatalf("等宽时应原样输出：got=%dx%d resize=%v", w, h, resize)
	}
}

func TestTargetSize_FloorHeight(t *testing.T) {
	cases := []struct {
		srcW, srcH, w int
		wantH         int
	}{
		{3000, 2000, 480, 320},
		{3000, 2001, 480, 320},  // 320.16 -> 320
		{1000, 667, 100, 66},    // 66.7 -> 66
		{1000, 667, 500, 333},   // 333.5 -> 333
		{4000, 3, 480, 1},       // 0.36 -> 最小 1
		{1001, 1000, 1000, 999}, // 999.000999 -> 999
	}
	for _, c := range cases {
		w, h, resize := TargetSize(c.srcW, c.srcH, c.w)
		if !resize || w != c.w || h != c.wantH {
			t.Fatalf("%dx%d@%d：got=%dx%d resize=%v want=%dx%d", c.srcW, c.srcH, c.w, w, h, resize, c.w, c.wantH)
		}
	}
}

func TestArtifactName(t *testing.T) {
	if got := ArtifactName("photo-sala", 960); got != "photo-sala-960.webp" {
		t.Fatalf("文件名不符合预期：%q", got)
	}
}

func TestPlanVariants_OrderAndPaths(t *testing.T) {
	out := filepath.Join(t.TempDir(), "optimized")
	src := domain.SourceImage{
		File:   domain.SourceFile{Base: "photo-a", Name: "photo-a.jpg"},
		Width:  1000,
		Height: 500,
	}

	plan := PlanVariants(src, []int{2560, 100, 500, 100}, out)
	if len(plan.Variants) != 4 {
		t.Fatalf("期望 4 个计划（重复宽度也保留），实际 %d", len(plan.Variants))
	}

	v := plan.Variants
	if v[0].Width != 2560 || v[0].Resize || v[0].OutWidth != 1000 || v[0].OutHeight != 500 {
		t.Fatalf("2560 槽位应直接复制原图：%+v", v[0])
	}
	if v[1].Width != 100 || !v[1].Resize || v[1].OutWidth != 100 || v[1].OutHeight != 50 {
		t.Fatalf("100 槽位不符合预期：%+v", v[1])
	}
	if v[2].OutWidth != 500 || v[2].OutHeight != 250 {
		t.Fatalf("500 槽位不符合预期：%+v", v[2])
	}
	if v[1].DstAbs != v[3].DstAbs {
		t.Fatalf("重复宽度应指向同一路径：%q vs %q", v[1].DstAbs, v[3].DstAbs)
	}
	if want := filepath.Join(out, "photo-a-2560.webp"); v[0].DstAbs != want {
		t.Fatalf("路径不符合预期：got=%q want=%q", v[0].DstAbs, want)
	}
}

func TestPlanVariants_EmptyWidths(t *testing.T) {
	plan := PlanVariants(domain.SourceImage{Width: 10, Height: 10}, nil, "/out")
	if len(plan.Variants) != 0 {
		t.Fatalf("widths 为空时不应产生计划：%+v", plan.Variants)
	}
}
