package vfs

import (
	"io/fs"
	"sort"
	"strings"
	"sync"
	"time"
)

// memNode 内存文件系统中的一个节点
type memNode struct {
	isDir   bool
	data    []byte
	mode    fs.FileMode
	modTime time.Time
	symlink string // 非空表示符号链接，值为目标路径
}

// MemFS 内存文件系统
// 所有路径以规范化的绝对路径为键，根目录恒存在
type MemFS struct {
	mu    sync.RWMutex
	nodes map[string]*memNode
	used  int64
	limit int64
}

// NewMemFS 创建内存文件系统
func NewMemFS() *MemFS {
	return &MemFS{
		nodes: map[string]*memNode{
			"/": {isDir: true, mode: 0755, modTime: time.Now()},
		},
	}
}

// NewMemFSWithLimit 创建带容量上限的内存文件系统
func NewMemFSWithLimit(limit int64) *MemFS {
	m := NewMemFS()
	m.limit = limit
	return m
}

// resolve 解析符号链接（不加锁，调用方负责）
func (m *MemFS) resolve(p string) string {
	for i := 0; i < 16; i++ {
		n, ok := m.nodes[p]
		if !ok || n.symlink == "" {
			return p
		}
		p = NormalizePath("/", n.symlink)
	}
	return p
}

// ReadFile 读取文件内容
func (m *MemFS) ReadFile(p string) ([]byte, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	n, ok := m.nodes[m.resolve(NormalizePath("/", p))]
	if !ok {
		return nil, ErrNotFound
	}
	if n.isDir {
		return nil, ErrIsDir
	}
	out := make([]byte, len(n.data))
	copy(out, n.data)
	return out, nil
}

// WriteFile 写入（覆盖）文件
func (m *MemFS) WriteFile(p string, data []byte) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.writeLocked(NormalizePath("/", p), data, false)
}

// AppendFile 追加写入文件
func (m *MemFS) AppendFile(p string, data []byte) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.writeLocked(NormalizePath("/", p), data, true)
}

func (m *MemFS) writeLocked(p string, data []byte, appendTo bool) error {
	p = m.resolve(p)
	dir, _ := SplitPath(p)
	parent, ok := m.nodes[m.resolve(dir)]
	if !ok {
		return ErrNotFound
	}
	if !parent.isDir {
		return ErrNotDir
	}
	old, exists := m.nodes[p]
	if exists && old.isDir {
		return ErrIsDir
	}
	var next []byte
	delta := int64(len(data))
	if appendTo && exists {
		next = append(append([]byte{}, old.data...), data...)
	} else {
		next = append([]byte{}, data...)
		if exists {
			delta -= int64(len(old.data))
		}
	}
	if m.limit > 0 && m.used+delta > m.limit {
		return ErrQuota
	}
	mode := fs.FileMode(0644)
	if exists {
		mode = old.mode
	}
	m.nodes[p] = &memNode{data: next, mode: mode, modTime: time.Now()}
	m.used += delta
	return nil
}

// Mkdir 创建目录
func (m *MemFS) Mkdir(p string, recursive bool) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	p = NormalizePath("/", p)
	if n, ok := m.nodes[p]; ok {
		if n.isDir && recursive {
			return nil
		}
		return ErrExists
	}
	dir, _ := SplitPath(p)
	if _, ok := m.nodes[dir]; !ok {
		if !recursive {
			return ErrNotFound
		}
		// 自底向上补齐父目录
		parts := strings.Split(strings.Trim(p, "/"), "/")
		cur := ""
		for _, part := range parts[:len(parts)-1] {
			cur += "/" + part
			if n, ok := m.nodes[cur]; ok {
				if !n.isDir {
					return ErrNotDir
				}
				continue
			}
			m.nodes[cur] = &memNode{isDir: true, mode: 0755, modTime: time.Now()}
		}
	} else if !m.nodes[dir].isDir {
		return ErrNotDir
	}
	m.nodes[p] = &memNode{isDir: true, mode: 0755, modTime: time.Now()}
	return nil
}

// Remove 删除文件或目录
func (m *MemFS) Remove(p string, recursive bool) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	p = NormalizePath("/", p)
	if p == "/" {
		return ErrIsDir
	}
	n, ok := m.nodes[p]
	if !ok {
		return ErrNotFound
	}
	if n.isDir {
		prefix := p + "/"
		var children []string
		for k := range m.nodes {
			if strings.HasPrefix(k, prefix) {
				children = append(children, k)
			}
		}
		if len(children) > 0 && !recursive {
			return ErrIsDir
		}
		for _, k := range children {
			m.used -= int64(len(m.nodes[k].data))
			delete(m.nodes, k)
		}
	}
	m.used -= int64(len(n.data))
	delete(m.nodes, p)
	return nil
}

// Stat 获取文件元信息
func (m *MemFS) Stat(p string) (*FileInfo, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	norm := NormalizePath("/", p)
	raw, rawOK := m.nodes[norm]
	n, ok := m.nodes[m.resolve(norm)]
	if !ok {
		return nil, ErrNotFound
	}
	_, base := SplitPath(norm)
	return &FileInfo{
		Name:      base,
		Size:      int64(len(n.data)),
		Mode:      n.mode,
		ModTime:   n.modTime,
		IsDir:     n.isDir,
		IsSymlink: rawOK && raw.symlink != "",
	}, nil
}

// ReadDir 读取目录项
func (m *MemFS) ReadDir(p string) ([]*FileInfo, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	p = m.resolve(NormalizePath("/", p))
	n, ok := m.nodes[p]
	if !ok {
		return nil, ErrNotFound
	}
	if !n.isDir {
		return nil, ErrNotDir
	}
	prefix := p + "/"
	if p == "/" {
		prefix = "/"
	}
	var out []*FileInfo
	for k, v := range m.nodes {
		if k == p || !strings.HasPrefix(k, prefix) {
			continue
		}
		rest := strings.TrimPrefix(k, prefix)
		if strings.Contains(rest, "/") {
			continue // 只列出直接子项
		}
		out = append(out, &FileInfo{
			Name:      rest,
			Size:      int64(len(v.data)),
			Mode:      v.mode,
			ModTime:   v.modTime,
			IsDir:     v.isDir,
			IsSymlink: v.symlink != "",
		})
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Name < out[j].Name })
	return out, nil
}

// Exists 判断路径是否存在
func (m *MemFS) Exists(p string) bool {
	m.mu.RLock()
	defer m.mu.RUnlock()
	_, ok := m.nodes[m.resolve(NormalizePath("/", p))]
	return ok
}

// Rename 重命名
func (m *MemFS) Rename(oldPath, newPath string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	oldPath = NormalizePath("/", oldPath)
	newPath = NormalizePath("/", newPath)
	n, ok := m.nodes[oldPath]
	if !ok {
		return ErrNotFound
	}
	dir, _ := SplitPath(newPath)
	if parent, ok := m.nodes[dir]; !ok || !parent.isDir {
		return ErrNotFound
	}
	if n.isDir {
		prefix := oldPath + "/"
		moves := map[string]string{}
		for k := range m.nodes {
			if strings.HasPrefix(k, prefix) {
				moves[k] = newPath + "/" + strings.TrimPrefix(k, prefix)
			}
		}
		for from, to := range moves {
			m.nodes[to] = m.nodes[from]
			delete(m.nodes, from)
		}
	}
	if dst, ok := m.nodes[newPath]; ok {
		m.used -= int64(len(dst.data))
	}
	m.nodes[newPath] = n
	delete(m.nodes, oldPath)
	return nil
}

// Copy 复制文件
func (m *MemFS) Copy(src, dst string) error {
	data, err := m.ReadFile(src)
	if err != nil {
		return err
	}
	return m.WriteFile(dst, data)
}

// Symlink 创建符号链接
func (m *MemFS) Symlink(target, link string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	link = NormalizePath("/", link)
	if _, ok := m.nodes[link]; ok {
		return ErrExists
	}
	m.nodes[link] = &memNode{symlink: target, mode: 0777, modTime: time.Now()}
	return nil
}

// ReadLink 读取符号链接目标
func (m *MemFS) ReadLink(p string) (string, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	n, ok := m.nodes[NormalizePath("/", p)]
	if !ok {
		return "", ErrNotFound
	}
	if n.symlink == "" {
		return "", ErrNotFound
	}
	return n.symlink, nil
}

// Chmod 修改权限位
func (m *MemFS) Chmod(p string, mode fs.FileMode) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	n, ok := m.nodes[m.resolve(NormalizePath("/", p))]
	if !ok {
		return ErrNotFound
	}
	n.mode = mode
	return nil
}

// Usage 返回已用字节数和容量上限
func (m *MemFS) Usage() (int64, int64) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return m.used, m.limit
}
