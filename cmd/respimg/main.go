package main

import (
	"context"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"strconv"
	"strings"

	"github.com/mattn/go-isatty"
	"github.com/rs/zerolog"

	"github.com/John-Robertt/respimg/internal/app/run"
	"github.com/John-Robertt/respimg/internal/config"
	"github.com/John-Robertt/respimg/internal/domain"
	"github.com/John-Robertt/respimg/internal/infra/fsx"
	"github.com/John-Robertt/respimg/internal/infra/logx"
	"github.com/John-Robertt/respimg/internal/srcset"
)

func main() {
	args := os.Args[1:]
	if len(args) == 0 || isHelp(args[0]) {
		printUsage()
		return
	}

	switch args[0] {
	case "run":
		if code := runCmd(args[1:]); code != 0 {
			os.Exit(code)
		}
	case "srcset":
		if code := srcsetCmd(args[1:]); code != 0 {
			os.Exit(code)
		}
	default:
		fmt.Fprintf(os.Stderr, "未知命令：%q\n\n", args[0])
		printUsage()
		os.Exit(2)
	}
}

func runCmd(args []string) int {
	for _, a := range args {
		if isHelp(a) {
			printRunUsage()
			return 0
		}
	}

	ra, err := parseRunArgs(args)
	if err != nil {
		fmt.Fprintf(os.Stderr, "参数错误：%v\n\n", err)
		printRunUsage()
		return 2
	}

	log := newLogger()

	cwd, err := os.Getwd()
	if err != nil {
		log.Error().Err(err).Msg("读取当前目录失败")
		return 1
	}

	eff, err := config.LoadEffective(cwd, ra.cli)
	if err != nil {
		log.Error().Err(err).Str("error_code", config.Code(err)).Msg("加载配置失败")
		return 1
	}

	rr, err := run.ExecuteWithObserver(context.Background(), eff, newProgressLogger(log))
	if err != nil {
		// 失败即终止：已写入的产物保留在磁盘上，摘要仍然输出，便于定位。
		log.Error().Err(err).Int("written", rr.Summary.Artifacts).Msg("运行中止")
		emitReport(rr)
		return 1
	}

	emitReport(rr)
	return 0
}

func srcsetCmd(args []string) int {
	for _, a := range args {
		if isHelp(a) {
			printSrcsetUsage()
			return 0
		}
	}

	sa, err := parseSrcsetArgs(args)
	if err != nil {
		fmt.Fprintf(os.Stderr, "参数错误：%v\n\n", err)
		printSrcsetUsage()
		return 2
	}

	log := newLogger()

	cwd, err := os.Getwd()
	if err != nil {
		log.Error().Err(err).Msg("读取当前目录失败")
		return 1
	}

	// srcset 只需要产物的尺寸：走 dry-run（只读图片头部），不重新编码。
	sa.cli.DryRun = true
	eff, err := config.LoadEffective(cwd, sa.cli)
	if err != nil {
		log.Error().Err(err).Str("error_code", config.Code(err)).Msg("加载配置失败")
		return 1
	}

	rr, err := run.Execute(context.Background(), eff)
	if err != nil {
		log.Error().Err(err).Msg("读取源图失败")
		return 1
	}

	page := sa.page
	if !filepath.IsAbs(page) {
		page = filepath.Join(cwd, page)
	}
	html, err := os.ReadFile(page)
	if err != nil {
		log.Error().Err(err).Str("page", page).Msg("读取页面失败")
		return 1
	}

	prefix := sa.prefix
	if !sa.prefixSet {
		rel, err := filepath.Rel(filepath.Dir(page), eff.OutputDir)
		if err != nil {
			log.Error().Err(err).Msg("无法推导产物 URL 前缀，请使用 --prefix")
			return 1
		}
		prefix = filepath.ToSlash(rel)
	}

	out, n, err := srcset.Annotate(html, srcset.FromReport(rr), srcset.Options{Prefix: prefix, Sizes: sa.sizes})
	if err != nil {
		log.Error().Err(err).Str("page", page).Msg("解析页面失败")
		return 1
	}
	if n == 0 {
		log.Info().Str("page", page).Msg("没有引用源图的 <img>，页面未改动")
		return 0
	}
	if err := fsx.WriteFile(page, out); err != nil {
		log.Error().Err(err).Str("page", page).Msg("写回页面失败")
		return 1
	}
	log.Info().Str("page", page).Int("images", n).Str("prefix", prefix).Msg("srcset 已写回")
	return 0
}

type runArgs struct {
	cli config.CLIArgs
}

type srcsetArgs struct {
	cli config.CLIArgs

	page      string
	prefix    string
	prefixSet bool
	sizes     string
}

func parseRunArgs(args []string) (runArgs, error) {
	ra := runArgs{}
	var positional []string

	for i := 0; i < len(args); i++ {
		a := args[i]
		if a == "--dry-run" {
			ra.cli.DryRun = true
			continue
		}
		ok, err := parseCommonFlag(args, &i, &ra.cli)
		if err != nil {
			return runArgs{}, err
		}
		if ok {
			continue
		}
		if strings.HasPrefix(a, "-") {
			return runArgs{}, fmt.Errorf("未知参数 %q", a)
		}
		positional = append(positional, a)
	}

	switch len(positional) {
	case 0:
	case 1:
		ra.cli.Base = positional[0]
	default:
		return runArgs{}, fmt.Errorf("重复的 base：%q 与 %q", positional[0], positional[1])
	}
	return ra, nil
}

func parseSrcsetArgs(args []string) (srcsetArgs, error) {
	sa := srcsetArgs{}
	var positional []string

	for i := 0; i < len(args); i++ {
		a := args[i]
		if v, ok, err := flagValue(args, &i, "--prefix"); err != nil {
			return srcsetArgs{}, err
		} else if ok {
			sa.prefix = v
			sa.prefixSet = true
			continue
		}
		if v, ok, err := flagValue(args, &i, "--sizes"); err != nil {
			return srcsetArgs{}, err
		} else if ok {
			sa.sizes = v
			continue
		}
		ok, err := parseCommonFlag(args, &i, &sa.cli)
		if err != nil {
			return srcsetArgs{}, err
		}
		if ok {
			continue
		}
		if strings.HasPrefix(a, "-") {
			return srcsetArgs{}, fmt.Errorf("未知参数 %q", a)
		}
		positional = append(positional, a)
	}

	switch len(positional) {
	case 0:
		return srcsetArgs{}, fmt.Errorf("缺少页面路径")
	case 1:
		sa.page = positional[0]
	case 2:
		sa.page = positional[0]
		sa.cli.Base = positional[1]
	default:
		return srcsetArgs{}, fmt.Errorf("多余的参数：%q", positional[2:])
	}
	return sa, nil
}

// parseCommonFlag 解析 run/srcset 共用的目录与尺寸参数。返回 true 表示 args[*i] 已被消费。
func parseCommonFlag(args []string, i *int, cli *config.CLIArgs) (bool, error) {
	if v, ok, err := flagValue(args, i, "--source"); ok || err != nil {
		cli.SourceDir = v
		return ok, err
	}
	if v, ok, err := flagValue(args, i, "--out"); ok || err != nil {
		cli.OutputDir = v
		return ok, err
	}
	if v, ok, err := flagValue(args, i, "--config"); ok || err != nil {
		cli.ConfigPath = v
		return ok, err
	}
	if v, ok, err := flagValue(args, i, "--pattern"); ok || err != nil {
		cli.Pattern = v
		return ok, err
	}
	if v, ok, err := flagValue(args, i, "--widths"); ok || err != nil {
		if err != nil {
			return false, err
		}
		ws, err := config.ParseWidthList(v)
		if err != nil {
			return false, fmt.Errorf("--widths 无效：%w", err)
		}
		cli.Widths = ws
		cli.WidthsSet = true
		return true, nil
	}
	if v, ok, err := flagValue(args, i, "--quality"); ok || err != nil {
		if err != nil {
			return false, err
		}
		q, err := strconv.Atoi(v)
		if err != nil || q < 0 || q > 100 {
			return false, fmt.Errorf("--quality 必须是 [0, 100] 内的整数，实际是 %q", v)
		}
		cli.Quality = q
		cli.QualitySet = true
		return true, nil
	}
	return false, nil
}

// flagValue 识别 "--name value" 与 "--name=value" 两种写法。
func flagValue(args []string, i *int, name string) (string, bool, error) {
	a := args[*i]
	switch {
	case a == name:
		if *i+1 >= len(args) {
			return "", false, fmt.Errorf("%s 需要一个值", name)
		}
		*i++
		v := args[*i]
		if strings.TrimSpace(v) == "" {
			return "", false, fmt.Errorf("%s 不能为空", name)
		}
		return v, true, nil
	case strings.HasPrefix(a, name+"="):
		v := strings.TrimPrefix(a, name+"=")
		if strings.TrimSpace(v) == "" {
			return "", false, fmt.Errorf("%s 不能为空", name)
		}
		return v, true, nil
	}
	return "", false, nil
}

func isHelp(s string) bool {
	return s == "-h" || s == "--help" || s == "help"
}

func printUsage() {
	fmt.Fprint(os.Stdout, `用法：
  respimg run [base] [选项]
  respimg srcset <page.html> [base] [选项]

命令：
  run     为 <base>/images/Images/photo-*.jpg 生成 WebP 响应式变体
  srcset  为页面中引用源图的 <img> 写入 srcset

使用 "respimg run --help" 查看详细说明。
`)
}

func printRunUsage() {
	fmt.Fprint(os.Stdout, `用法：
  respimg run [base] [--source dir] [--out dir] [--config file] [--pattern glob]
              [--widths 480,720] [--quality 80] [--dry-run]

参数：
  base        站点根目录（默认当前目录）
  --source    源图目录（默认 <base>/images/Images）
  --out       输出目录（默认 <base>/images/optimized）
  --config    尺寸配置文件（默认 <base>/images/optimized-sources.json，不存在则用内置默认值）
  --pattern   源图文件名匹配规则（默认 photo-*.jpg）
  --widths    覆盖配置中的 widths（逗号分隔）
  --quality   覆盖配置中的 quality（0-100）
  --dry-run   只读取源图尺寸并输出计划，不写任何文件
  -h, --help  显示帮助
`)
}

func printSrcsetUsage() {
	fmt.Fprint(os.Stdout, `用法：
  respimg srcset <page.html> [base] [--prefix url] [--sizes value]
                 [--source dir] [--out dir] [--config file] [--pattern glob] [--widths 480,720]

参数：
  --prefix    产物目录的 URL 前缀（默认：输出目录相对页面所在目录的路径）
  --sizes     为没有 sizes 属性的 <img> 补上 sizes
  -h, --help  显示帮助
`)
}

func newLogger() zerolog.Logger {
	return logx.New(os.Stderr, isTTY(os.Stderr))
}

func emitReport(rr domain.RunReport) {
	if isTTY(os.Stdout) {
		fmt.Fprintln(os.Stdout, summaryLine(rr))
		fmt.Fprintf(os.Stdout, "out: %s\n", rr.OutputDir)
		return
	}

	// stdout 非 TTY：stdout 必须且仅输出一个 RunReport JSON（日志/摘要走 stderr）。
	enc := json.NewEncoder(os.Stdout)
	_ = enc.Encode(rr)
	fmt.Fprintln(os.Stderr, summaryLine(rr))
}

func summaryLine(rr domain.RunReport) string {
	verb := "written"
	if rr.DryRun {
		verb = "planned"
	}
	return fmt.Sprintf("完成：sources=%d %s=%d resized=%d copied=%d",
		rr.Summary.Sources, verb, rr.Summary.Artifacts, rr.Summary.Resized, rr.Summary.Copied,
	)
}

func isTTY(f *os.File) bool {
	return isatty.IsTerminal(f.Fd()) || isatty.IsCygwinTerminal(f.Fd())
}
