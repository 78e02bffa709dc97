package config

import (
	"bytes"
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strconv"
	"strings"
)

const (
	// ErrCodeNotFound 表示显式指定的 --config 文件不存在。
	ErrCodeNotFound = "config_not_found"
	// ErrCodeInvalid 表示配置文件无法读取/解析，或字段不合法。
	ErrCodeInvalid = "config_invalid"
)

const (
	// DefaultQuality 是 WebP 编码质量的内置默认值。
	DefaultQuality = 80
	// DefaultPattern 是源图匹配规则（只匹配文件名，不递归）。
	DefaultPattern = "photo-*.jpg"

	// 以下相对路径均相对 base 目录。
	DefaultSourceRel = "images/Images"
	DefaultOutputRel = "images/optimized"
	DefaultConfigRel = "images/optimized-sources.json"
)

// DefaultWidths 返回内置默认宽度列表（每次返回新切片，调用方可以随意修改）。
func DefaultWidths() []int {
	return []int{480, 720, 960, 1440, 1920, 2560}
}

var utf8BOM = []byte{0xEF, 0xBB, 0xBF}

// CLIArgs 是 CLI 暴露的入口参数，并保留“是否显式指定”的信息。
// 这能保证覆盖优先级可实现：例如 --quality 必须能覆盖配置文件里的 quality。
type CLIArgs struct {
	Base string

	SourceDir  string
	OutputDir  string
	ConfigPath string
	Pattern    string

	Widths    []int
	WidthsSet bool

	Quality    int
	QualitySet bool

	DryRun bool
}

// FileConfig 对应 optimized-sources.json 的解析结构。
// 字段用指针/nil 区分“缺失”与“显式给值”：缺失（或 null）走默认值，显式的空列表则原样保留。
type FileConfig struct {
	Widths  []int `json:"widths"`
	Quality *int  `json:"quality"`
}

// EffectiveConfig 是合并并做最小规范化后的最终配置（实现层直接消费，不再做二次默认/优先级判断）。
// 所有路径均为 clean + absolute。
type EffectiveConfig struct {
	Base string

	SourceDir  string
	OutputDir  string
	ConfigPath string
	// ConfigFound 表示 ConfigPath 指向的文件确实存在并被读取。
	ConfigFound bool
	Pattern     string

	Widths  []int
	Quality int

	DryRun bool
}

// Error 是配置阶段的结构化错误（带 error_code）。
type Error struct {
	Code string
	Path string
	Err  error
}

func (e *Error) Error() string {
	switch e.Code {
	case ErrCodeNotFound:
		return fmt.Sprintf("%s：未找到配置文件 %q", e.Code, e.Path)
	case ErrCodeInvalid:
		if e.Err != nil {
			return fmt.Sprintf("%s：配置文件 %q 无效：%v", e.Code, e.Path, e.Err)
		}
		return fmt.Sprintf("%s：配置文件 %q 无效", e.Code, e.Path)
	default:
		if e.Err != nil {
			return fmt.Sprintf("%s：%v", e.Code, e.Err)
		}
		return e.Code
	}
}

func (e *Error) Unwrap() error { return e.Err }

// Code 从 error 中提取 error_code；若不是 *Error 则返回空串。
func Code(err error) string {
	var e *Error
	if errors.As(err, &e) {
		return e.Code
	}
	return ""
}

// LoadEffective 解析目录布局、读取尺寸配置文件，然后与 CLI 参数合并为最终配置。
//
// 目录规则（固定）：
// - base：CLI 提供则用之（相对 cwd），否则就是 cwd
// - source/out/config：CLI 提供则相对 cwd 解析；否则取 base 下的默认相对路径
//
// 配置文件：
// - 默认位置不存在：静默使用内置默认值
// - 显式 --config 不存在：config_not_found
// - 存在但无法解析/字段非法：config_invalid（绝不回退到默认值）
//
// 覆盖优先级（固定）：
// - widths/quality：CLI > 配置文件 > 内置默认
func LoadEffective(cwd string, cli CLIArgs) (EffectiveConfig, error) {
	cwdAbs, err := filepath.Abs(cwd)
	if err != nil {
		return EffectiveConfig{}, &Error{Code: ErrCodeInvalid, Path: cwd, Err: err}
	}

	base := cwdAbs
	if strings.TrimSpace(cli.Base) != "" {
		base = absCleanFrom(cwdAbs, cli.Base)
	}

	eff := EffectiveConfig{
		Base:       base,
		SourceDir:  pick(cwdAbs, cli.SourceDir, base, DefaultSourceRel),
		OutputDir:  pick(cwdAbs, cli.OutputDir, base, DefaultOutputRel),
		ConfigPath: pick(cwdAbs, cli.ConfigPath, base, DefaultConfigRel),
		Pattern:    DefaultPattern,
		DryRun:     cli.DryRun,
	}
	if p := strings.TrimSpace(cli.Pattern); p != "" {
		if _, err := filepath.Match(p, ""); err != nil {
			return EffectiveConfig{}, &Error{Code: ErrCodeInvalid, Path: eff.ConfigPath, Err: fmt.Errorf("pattern 无效：%q", p)}
		}
		eff.Pattern = p
	}

	fc, exists, err := ReadFileConfig(eff.ConfigPath)
	if err != nil {
		return EffectiveConfig{}, &Error{Code: ErrCodeInvalid, Path: eff.ConfigPath, Err: err}
	}
	if !exists && strings.TrimSpace(cli.ConfigPath) != "" {
		return EffectiveConfig{}, &Error{Code: ErrCodeNotFound, Path: eff.ConfigPath, Err: os.ErrNotExist}
	}
	eff.ConfigFound = exists

	// widths：CLI > config > 默认
	eff.Widths = DefaultWidths()
	if cli.WidthsSet {
		eff.Widths = append([]int{}, cli.Widths...)
	} else if fc.Widths != nil {
		eff.Widths = append([]int{}, fc.Widths...)
	}

	// quality：CLI > config > 默认
	eff.Quality = DefaultQuality
	if cli.QualitySet {
		eff.Quality = cli.Quality
	} else if fc.Quality != nil {
		eff.Quality = *fc.Quality
	}

	if err := validate(eff.Widths, eff.Quality); err != nil {
		return EffectiveConfig{}, &Error{Code: ErrCodeInvalid, Path: eff.ConfigPath, Err: err}
	}
	return eff, nil
}

func validate(widths []int, quality int) error {
	for i, w := range widths {
		if w <= 0 {
			return fmt.Errorf("widths[%d] 必须是正整数，实际是 %d", i, w)
		}
	}
	if quality < 0 || quality > 100 {
		return fmt.Errorf("quality 必须在 [0, 100] 内，实际是 %d", quality)
	}
	return nil
}

// ParseWidthList 解析 CLI 的逗号分隔宽度列表（例如 "480,720,960"）。
// 空白会被忽略；空串得到空列表。
func ParseWidthList(s string) ([]int, error) {
	out := []int{}
	for _, part := range strings.Split(s, ",") {
		part = strings.TrimSpace(part)
		if part == "" {
			continue
		}
		n, err := strconv.Atoi(part)
		if err != nil {
			return nil, fmt.Errorf("宽度 %q 不是整数", part)
		}
		if n <= 0 {
			return nil, fmt.Errorf("宽度必须是正整数，实际是 %d", n)
		}
		out = append(out, n)
	}
	return out, nil
}

func pick(cwdAbs, cliValue, base, defaultRel string) string {
	if strings.TrimSpace(cliValue) != "" {
		return absCleanFrom(cwdAbs, cliValue)
	}
	return filepath.Join(base, filepath.FromSlash(defaultRel))
}

// absCleanFrom 以 base 为基准，把 p 变为 clean + absolute。
// - p 若已是绝对路径：直接 Clean
// - p 若是相对路径：Join(base, p) 后 Clean
func absCleanFrom(base, p string) string {
	p = filepath.Clean(strings.TrimSpace(p))
	if p == "" {
		return ""
	}
	if filepath.IsAbs(p) {
		return p
	}
	return filepath.Clean(filepath.Join(base, p))
}

// ReadFileConfig 读取并解析 JSON 配置文件（允许 UTF-8 BOM）。
// 返回值 exists 表示该文件是否存在（不存在不算错误）。
func ReadFileConfig(path string) (fc FileConfig, exists bool, err error) {
	b, err := os.ReadFile(path)
	if err != nil {
		if os.IsNotExist(err) {
			return FileConfig{}, false, nil
		}
		return FileConfig{}, false, err
	}
	b = bytes.TrimSpace(bytes.TrimPrefix(b, utf8BOM))
	// 顶层必须是对象：null / 数组 / 空文件都不能静默变成默认值。
	if len(b) == 0 || b[0] != '{' {
		return FileConfig{}, true, errors.New("顶层必须是 JSON 对象")
	}
	if err := json.Unmarshal(b, &fc); err != nil {
		return FileConfig{}, true, err
	}
	return fc, true, nil
}
