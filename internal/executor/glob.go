package executor

import (
	"sort"
	"strings"

	"sandbash/internal/vfs"
)

// matchPattern shell glob匹配：* ? [...]
func matchPattern(pattern, s string) bool {
	return matchRunes([]rune(pattern), []rune(s))
}

func matchRunes(pat, s []rune) bool {
	for len(pat) > 0 {
		switch pat[0] {
		case '*':
			// 折叠连续*
			for len(pat) > 0 && pat[0] == '*' {
				pat = pat[1:]
			}
			if len(pat) == 0 {
				return true
			}
			for i := 0; i <= len(s); i++ {
				if matchRunes(pat, s[i:]) {
					return true
				}
			}
			return false
		case '?':
			if len(s) == 0 {
				return false
			}
			pat, s = pat[1:], s[1:]
		case '[':
			matched, rest, valid := matchClass(pat, s)
			if !valid {
				// 未闭合的[按字面处理
				if len(s) == 0 || s[0] != '[' {
					return false
				}
				pat, s = pat[1:], s[1:]
				continue
			}
			if !matched {
				return false
			}
			pat, s = rest, s[1:]
		case '\\':
			if len(pat) > 1 {
				pat = pat[1:]
			}
			if len(s) == 0 || s[0] != pat[0] {
				return false
			}
			pat, s = pat[1:], s[1:]
		default:
			if len(s) == 0 || s[0] != pat[0] {
				return false
			}
			pat, s = pat[1:], s[1:]
		}
	}
	return len(s) == 0
}

// matchClass 匹配字符类，返回剩余模式
func matchClass(pat, s []rune) (matched bool, rest []rune, valid bool) {
	i := 1
	negate := false
	if i < len(pat) && (pat[i] == '!' || pat[i] == '^') {
		negate = true
		i++
	}
	start := i
	for i < len(pat) && (pat[i] != ']' || i == start) {
		i++
	}
	if i >= len(pat) {
		return false, nil, false
	}
	if len(s) == 0 {
		return false, pat[i+1:], true
	}

	c := s[0]
	hit := false
	for j := start; j < i; j++ {
		if j+2 < i && pat[j+1] == '-' {
			if c >= pat[j] && c <= pat[j+2] {
				hit = true
			}
			j += 2
			continue
		}
		if c == pat[j] {
			hit = true
		}
	}
	return hit != negate, pat[i+1:], true
}

// globExpand 文件名展开，无匹配时返回空让调用方保留字面量
func (ex *Executor) globExpand(pattern string) []string {
	var prefix, base string
	if strings.HasPrefix(pattern, "/") {
		prefix, base = "/", "/"
		pattern = strings.TrimPrefix(pattern, "/")
	} else {
		prefix, base = "", ex.cwd
	}

	segments := strings.Split(pattern, "/")
	results := ex.globWalk(base, prefix, segments)
	sort.Strings(results)
	return results
}

// globWalk 逐段匹配路径
func (ex *Executor) globWalk(dir, prefix string, segments []string) []string {
	if len(segments) == 0 {
		return nil
	}
	seg := segments[0]
	rest := segments[1:]

	// 非模式段直接下钻
	if !strings.ContainsAny(seg, "*?[") {
		next := vfs.NormalizePath(dir, seg)
		if !ex.fs.Exists(next) {
			return nil
		}
		joined := joinGlob(prefix, seg)
		if len(rest) == 0 {
			return []string{joined}
		}
		return ex.globWalk(next, joined, rest)
	}

	entries, err := ex.fs.ReadDir(dir)
	if err != nil {
		return nil
	}
	var out []string
	for _, entry := range entries {
		if strings.HasPrefix(entry.Name, ".") && !strings.HasPrefix(seg, ".") {
			continue
		}
		if !matchPattern(seg, entry.Name) {
			continue
		}
		joined := joinGlob(prefix, entry.Name)
		if len(rest) == 0 {
			out = append(out, joined)
			continue
		}
		if entry.IsDir {
			out = append(out, ex.globWalk(vfs.NormalizePath(dir, entry.Name), joined, rest)...)
		}
	}
	return out
}

func joinGlob(prefix, name string) string {
	if prefix == "" {
		return name
	}
	if prefix == "/" {
		return "/" + name
	}
	return prefix + "/" + name
}
