package domain

// VariantPlan 描述某个源图在某个目标宽度槽位上的产物（只描述，不做任何写入）。
type VariantPlan struct {
	// Width 是配置中的目标宽度（也是产物文件名里的宽度）。
	Width int

	// OutWidth/OutHeight 是产物的真实像素尺寸。
	// 源图宽度 <= Width 时不放大：OutWidth/OutHeight 等于源图尺寸。
	OutWidth  int
	OutHeight int

	// Resize=false 表示直接按原分辨率重新编码（不缩放）。
	Resize bool

	DstAbs string
}

// SourcePlan 是单个源图的全部产物计划，Variants 顺序与配置的 widths 顺序一致。
type SourcePlan struct {
	Source   SourceImage
	Variants []VariantPlan
}
