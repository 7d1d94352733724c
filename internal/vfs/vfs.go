// Package vfs 提供虚拟文件系统能力
// 解释器只依赖这里的抽象接口，不假设任何具体的存储后端
package vfs

import (
	"errors"
	"io/fs"
	"time"
)

// 可区分的错误条件，调用方用 errors.Is 判断
var (
	ErrNotFound = errors.New("no such file or directory")
	ErrIsDir    = errors.New("is a directory")
	ErrNotDir   = errors.New("not a directory")
	ErrExists   = errors.New("file exists")
	ErrQuota    = errors.New("disk quota exceeded")
)

// FileInfo 文件元信息
type FileInfo struct {
	Name      string      // 基础文件名
	Size      int64       // 字节大小
	Mode      fs.FileMode // 权限位
	ModTime   time.Time   // 修改时间
	IsDir     bool        // 是否为目录
	IsSymlink bool        // 是否为符号链接
}

// FileSystem 文件系统能力接口
// 实现可以在多个解释器实例之间共享，必须自行保证并发安全
type FileSystem interface {
	ReadFile(path string) ([]byte, error)
	WriteFile(path string, data []byte) error
	AppendFile(path string, data []byte) error
	Mkdir(path string, recursive bool) error
	Remove(path string, recursive bool) error
	Stat(path string) (*FileInfo, error)
	ReadDir(path string) ([]*FileInfo, error)
	Exists(path string) bool
	Rename(oldPath, newPath string) error
	Copy(src, dst string) error
	Symlink(target, link string) error
	ReadLink(path string) (string, error)
	Chmod(path string, mode fs.FileMode) error
	// Usage 返回已用字节数和容量上限（0表示不限）
	Usage() (used int64, limit int64)
}
