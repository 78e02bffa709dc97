package fsx

import (
	"bufio"
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"runtime"
)

// 测试里替换它来模拟 EXDEV / 权限错误。
var renameFunc = os.Rename

// PathTypeConflictError 表示目标已存在但不是普通文件（目录、设备、符号链接等），不能被覆盖。
type PathTypeConflictError struct {
	Path string
	Got  string
}

func (e *PathTypeConflictError) Error() string {
	return fmt.Sprintf("目标路径已存在且不是普通文件：%q（%s）", e.Path, e.Got)
}

func IsPathTypeConflict(err error) bool {
	var e *PathTypeConflictError
	return errors.As(err, &e)
}

// CrossDeviceError 表示 rename 遇到 EXDEV。
// 临时文件与目标同目录时不应出现；出现即说明目录被挂载点切开，直接失败。
type CrossDeviceError struct {
	Src string
	Dst string
	Err error
}

func (e *CrossDeviceError) Error() string {
	return fmt.Sprintf("跨盘重命名失败（EXDEV）：%q -> %q：%v", e.Src, e.Dst, e.Err)
}

func (e *CrossDeviceError) Unwrap() error { return e.Err }

func IsCrossDevice(err error) bool {
	var e *CrossDeviceError
	return errors.As(err, &e)
}

// Rename 同 os.Rename，EXDEV 包装成 CrossDeviceError。
func Rename(src, dst string) error {
	err := renameFunc(src, dst)
	if err != nil && isEXDEV(err) {
		return &CrossDeviceError{Src: src, Dst: dst, Err: err}
	}
	return err
}

// ReplaceFile 用 fill 生成 dst 的新内容，并原子地覆盖旧文件，返回写入的字节数。
//
// - fill 写入的是 dst 同目录下的隐藏临时文件（".<name>.tmp-*"），写完 fsync 再 rename
// - dst 的父目录必须已存在（由调用方创建）
// - dst 存在但不是普通文件：返回 PathTypeConflictError，fill 不会被调用
// - 任一步失败：临时文件被删除，旧的 dst 保持原样
func ReplaceFile(dst string, fill func(w io.Writer) error) (int64, error) {
	dst = filepath.Clean(dst)
	if err := checkReplaceable(dst); err != nil {
		return 0, err
	}

	dir, name := filepath.Split(dst)
	if dir == "" {
		dir = "."
	}
	tmp, err := os.CreateTemp(dir, "."+name+".tmp-*")
	if err != nil {
		return 0, err
	}
	committed := false
	defer func() {
		if !committed {
			_ = tmp.Close()
			_ = os.Remove(tmp.Name())
		}
	}()

	bw := bufio.NewWriterSize(tmp, 64<<10)
	cw := &countingWriter{w: bw}
	if err := fill(cw); err != nil {
		return 0, err
	}
	if err := bw.Flush(); err != nil {
		return 0, err
	}
	if err := tmp.Chmod(0o644); err != nil {
		return 0, err
	}
	if err := tmp.Sync(); err != nil {
		return 0, err
	}
	if err := tmp.Close(); err != nil {
		return 0, err
	}
	if err := Rename(tmp.Name(), dst); err != nil {
		return 0, err
	}
	committed = true

	syncDir(dir)
	return cw.n, nil
}

// WriteFile 是 ReplaceFile 的字节版本。
func WriteFile(dst string, data []byte) error {
	_, err := ReplaceFile(dst, func(w io.Writer) error {
		_, err := w.Write(data)
		return err
	})
	return err
}

func checkReplaceable(dst string) error {
	fi, err := os.Lstat(dst)
	if errors.Is(err, os.ErrNotExist) {
		return nil
	}
	if err != nil {
		return err
	}
	switch {
	case fi.Mode().IsRegular():
		return nil
	case fi.IsDir():
		return &PathTypeConflictError{Path: dst, Got: "dir"}
	default:
		return &PathTypeConflictError{Path: dst, Got: fi.Mode().Type().String()}
	}
}

type countingWriter struct {
	w io.Writer
	n int64
}

func (c *countingWriter) Write(p []byte) (int, error) {
	n, err := c.w.Write(p)
	c.n += int64(n)
	return n, err
}

// syncDir 让 rename 本身落盘；失败不影响结果（部分平台/文件系统不支持目录 fsync）。
func syncDir(dir string) {
	if runtime.GOOS == "windows" {
		return
	}
	f, err := os.Open(dir)
	if err != nil {
		return
	}
	_ = f.Sync()
	_ = f.Close()
}
