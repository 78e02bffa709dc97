package imgx

import (
	"errors"
	"fmt"
	"image"
	_ "image/jpeg" // 注册 JPEG 解码器（DecodeConfig 只读头部时也需要）
	_ "image/png"  // 注册 PNG 解码器（pattern 可被改成 *.png）
	"io"
	"os"

	"github.com/chai2010/webp"
	"github.com/disintegration/imaging"

	"github.com/John-Robertt/respimg/internal/domain"
)

// Load 读取并解码源图，然后归一化为不透明 RGB（见 ToRGB）。
//
// 约束：
// - 不做 EXIF 自动旋转：产物尺寸必须与源图像素尺寸一致
// - 文件句柄在返回前关闭（成功/失败路径都一样）
func Load(path string) (*image.NRGBA, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, err
	}
	defer f.Close()

	img, err := imaging.Decode(f)
	if err != nil {
		return nil, err
	}
	b := img.Bounds()
	if b.Dx() <= 0 || b.Dy() <= 0 {
		return nil, errors.New("图片尺寸无效")
	}
	return ToRGB(img), nil
}

// DecodeSize 只读图片头部得到像素尺寸（dry-run 使用，不解码像素）。
func DecodeSize(path string) (width, height int, err error) {
	f, err := os.Open(path)
	if err != nil {
		return 0, 0, err
	}
	defer f.Close()

	cfg, _, err := image.DecodeConfig(f)
	if err != nil {
		return 0, 0, err
	}
	if cfg.Width <= 0 || cfg.Height <= 0 {
		return 0, 0, errors.New("图片尺寸无效")
	}
	return cfg.Width, cfg.Height, nil
}

// ToRGB 把任意颜色模型归一化为 NRGBA，并丢弃 alpha（A 统一置为 255，颜色分量保持不变）。
// 返回的是新图，不修改输入。
func ToRGB(img image.Image) *image.NRGBA {
	dst := imaging.Clone(img)
	for i := 3; i < len(dst.Pix); i += 4 {
		dst.Pix[i] = 0xff
	}
	return dst
}

// Render 按计划得到某个宽度槽位的图像。
// Resize=false 时直接返回 src（原分辨率重新编码，不放大）；否则用 Lanczos 缩放得到新图。
func Render(src *image.NRGBA, v domain.VariantPlan) (*image.NRGBA, error) {
	if !v.Resize {
		return src, nil
	}
	if v.OutWidth <= 0 || v.OutHeight <= 0 {
		return nil, fmt.Errorf("目标尺寸无效：%dx%d", v.OutWidth, v.OutHeight)
	}
	dst := imaging.Resize(src, v.OutWidth, v.OutHeight, imaging.Lanczos)
	if b := dst.Bounds(); b.Dx() != v.OutWidth || b.Dy() != v.OutHeight {
		return nil, fmt.Errorf("缩放结果尺寸不符：got=%dx%d want=%dx%d", b.Dx(), b.Dy(), v.OutWidth, v.OutHeight)
	}
	return dst, nil
}

// EncodeWebP 以有损模式编码为 WebP。quality 取值 [0, 100]。
// chai2010/webp 不提供 method/effort 选项，压缩力度使用 libwebp 默认值。
func EncodeWebP(w io.Writer, img image.Image, quality int) error {
	if quality < 0 || quality > 100 {
		return fmt.Errorf("quality 超出范围：%d", quality)
	}
	return webp.Encode(w, img, &webp.Options{
		Lossless: false,
		Quality:  float32(quality),
	})
}

// EncodeVariant = Render + EncodeWebP，直接写入 w（调用方通常传入 fsx.ReplaceFile 的临时文件）。
func EncodeVariant(w io.Writer, src *image.NRGBA, v domain.VariantPlan, quality int) error {
	img, err := Render(src, v)
	if err != nil {
		return err
	}
	return EncodeWebP(w, img, quality)
}
