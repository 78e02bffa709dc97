package scan

import (
	"errors"
	"io/fs"
	"os"
	"path/filepath"
	"sort"
	"strings"

	"github.com/John-Robertt/respimg/internal/domain"
)

// ScanSources 列出 dir 下文件名匹配 pattern 的源图（不递归）。
//
// 规则（硬约束）：
// - dir 不存在或不是目录：视为 0 个源图，不报错
// - 只收普通文件；符号链接按目标判断（指向普通文件则收，指向目录或悬空则跳过）
// - 输出按文件名字典序排序（产物可复现）
//
// 注意：扫描阶段只做 stat（DirEntry.Info，链接再 Stat 一次），不读文件内容。
func ScanSources(dir, pattern string) ([]domain.SourceFile, error) {
	dir = filepath.Clean(dir)

	if fi, err := os.Stat(dir); errors.Is(err, fs.ErrNotExist) || (err == nil && !fi.IsDir()) {
		return []domain.SourceFile{}, nil
	}
	entries, err := os.ReadDir(dir)
	if err != nil {
		return nil, err
	}

	files := make([]domain.SourceFile, 0, len(entries))
	for _, e := range entries {
		name := e.Name()
		ok, err := filepath.Match(pattern, name)
		if err != nil {
			return nil, err
		}
		if !ok {
			continue
		}

		info, err := e.Info()
		if err != nil {
			return nil, err
		}
		if info.Mode()&fs.ModeSymlink != 0 {
			info, err = os.Stat(filepath.Join(dir, name))
			if errors.Is(err, fs.ErrNotExist) {
				continue
			}
			if err != nil {
				return nil, err
			}
		}
		if !info.Mode().IsRegular() {
			continue
		}

		ext := filepath.Ext(name)
		files = append(files, domain.SourceFile{
			AbsPath: filepath.Join(dir, name),
			Name:    name,
			Base:    strings.TrimSuffix(name, ext),
			Ext:     ext,
			Size:    info.Size(),
		})
	}

	// os.ReadDir 已按文件名排序；这里仍显式排序，避免依赖实现细节。
	sort.Slice(files, func(i, j int) bool { return files[i].Name < files[j].Name })
	return files, nil
}
