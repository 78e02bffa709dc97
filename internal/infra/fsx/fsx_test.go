package fsx

import (
	"errors"
	"io"
	"os"
	"path/filepath"
	"strings"
	"testing"
)

func TestReplaceFile_StreamsAndCountsBytes(t *testing.T) {
	dir := t.TempDir()
	dst := filepath.Join(dir, "photo-a-480.webp")

	n, err := ReplaceFile(dst, func(w io.Writer) error {
		if _, err := io.WriteString(w, "RIFF"); err != nil {
			return err
		}
		_, err := io.WriteString(w, "....WEBP")
		return err
	})
	if err != nil {
		t.Fatalf("不期望错误：%v", err)
	}
	if n != 12 {
		t.Fatalf("期望写入 12 字节，实际 %d", n)
	}

	b, err := os.ReadFile(dst)
	if err != nil {
		t.Fatalf("读取文件失败：%v", err)
	}
	if string(b) != "RIFF....WEBP" {
		t.Fatalf("内容不一致：%q", string(b))
	}
	fi, err := os.Stat(dst)
	if err != nil {
		t.Fatalf("stat 失败：%v", err)
	}
	if fi.Mode().Perm() != 0o644 {
		t.Fatalf("期望权限 0644，实际 %v", fi.Mode().Perm())
	}
	assertNoTemp(t, dir, "photo-a-480.webp")
}

func TestWriteFile_OverwritesExisting(t *testing.T) {
	dir := t.TempDir()
	dst := filepath.Join(dir, "a.webp")
	if err := os.WriteFile(dst, []byte("old-content"), 0o644); err != nil {
		t.Fatalf("写入文件失败：%v", err)
	}

	if err := WriteFile(dst, []byte("new")); err != nil {
		t.Fatalf("不期望错误：%v", err)
	}
	b, err := os.ReadFile(dst)
	if err != nil {
		t.Fatalf("读取文件失败：%v", err)
	}
	if string(b) != "new" {
		t.Fatalf("期望覆盖为新内容，实际：%q", string(b))
	}
}

func TestReplaceFile_FillError_KeepsOldFile(t *testing.T) {
	dir := t.TempDir()
	dst := filepath.Join(dir, "a.webp")
	if err := os.WriteFile(dst, []byte("old"), 0o644); err != nil {
		t.Fatalf("写入文件失败：%v", err)
	}

	boom := errors.New("encode failed")
	_, err := ReplaceFile(dst, func(w io.Writer) error {
		_, _ = io.WriteString(w, "partial")
		return boom
	})
	if !errors.Is(err, boom) {
		t.Fatalf("期望返回 fill 的错误，实际：%v", err)
	}

	b, err := os.ReadFile(dst)
	if err != nil {
		t.Fatalf("读取文件失败：%v", err)
	}
	if string(b) != "old" {
		t.Fatalf("旧文件不应被改动，实际：%q", string(b))
	}
	assertNoTemp(t, dir, "a.webp")
}

func TestReplaceFile_RenameFail_CleanupTemp(t *testing.T) {
	dir := t.TempDir()

	old := renameFunc
	renameFunc = func(oldpath, newpath string) error {
		return os.ErrPermission
	}
	defer func() { renameFunc = old }()

	if err := WriteFile(filepath.Join(dir, "a.webp"), []byte("hello")); err == nil {
		t.Fatalf("期望失败，但得到 nil")
	}

	if _, err := os.Stat(filepath.Join(dir, "a.webp")); !os.IsNotExist(err) {
		t.Fatalf("不应写出最终文件：%v", err)
	}
	assertNoTemp(t, dir, "a.webp")
}

func TestReplaceFile_TargetIsDir(t *testing.T) {
	dir := t.TempDir()
	dst := filepath.Join(dir, "a.webp")
	if err := os.Mkdir(dst, 0o755); err != nil {
		t.Fatalf("创建目录失败：%v", err)
	}

	called := false
	_, err := ReplaceFile(dst, func(w io.Writer) error {
		called = true
		return nil
	})
	if !IsPathTypeConflict(err) {
		t.Fatalf("期望 PathTypeConflictError，实际：%T %v", err, err)
	}
	if called {
		t.Fatalf("冲突时不应调用 fill")
	}
}

func TestReplaceFile_MissingParentDir(t *testing.T) {
	dst := filepath.Join(t.TempDir(), "missing", "a.webp")
	if err := WriteFile(dst, []byte("x")); err == nil {
		t.Fatalf("父目录不存在时期望报错")
	}
}

func assertNoTemp(t *testing.T, dir, name string) {
	t.Helper()
	entries, err := os.ReadDir(dir)
	if err != nil {
		t.Fatalf("ReadDir 失败：%v", err)
	}
	for _, e := range entries {
		if strings.HasPrefix(e.Name(), "."+name+".tmp-") {
			t.Fatalf("临时文件未清理：%q", e.Name())
		}
	}
}
