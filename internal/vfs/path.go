package vfs

import (
	"path"
	"strings"
)

// NormalizePath 规范化虚拟路径
// 虚拟文件系统统一使用正斜杠，相对路径基于 cwd 解析
func NormalizePath(cwd, p string) string {
	p = strings.ReplaceAll(p, "\\", "/")
	if !strings.HasPrefix(p, "/") {
		if cwd == "" {
			cwd = "/"
		}
		p = cwd + "/" + p
	}
	cleaned := path.Clean(p)
	if cleaned == "." {
		return "/"
	}
	return cleaned
}

// SplitPath 拆分为父目录与基础名
func SplitPath(p string) (dir, base string) {
	dir, base = path.Split(p)
	if dir != "/" {
		dir = strings.TrimSuffix(dir, "/")
	}
	if dir == "" {
		dir = "/"
	}
	return dir, base
}
