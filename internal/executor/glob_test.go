package executor

import (
	"reflect"
	"testing"

	"sandbash/internal/limits"
	"sandbash/internal/vfs"
)

func TestMatchPattern(t *testing.T) {
	tests := []struct {
		pattern string
		s       string
		want    bool
	}{
		{"*", "anything", true},
		{"*", "", true},
		{"a*", "abc", true},
		{"a*", "ba", false},
		{"*.txt", "note.txt", true},
		{"*.txt", "note.txt.bak", false},
		{"a*c", "abc", true},
		{"a*c", "ac", true},
		{"a**c", "abbbc", true},
		{"?", "x", true},
		{"?", "", false},
		{"?", "xy", false},
		{"a?c", "abc", true},
		{"a?c", "ac", false},
		{"[abc]", "b", true},
		{"[abc]", "d", false},
		{"[a-z]", "m", true},
		{"[a-z]", "M", false},
		{"[!abc]", "d", true},
		{"[!abc]", "a", false},
		{"[^0-9]", "x", true},
		{"file[0-9].log", "file3.log", true},
		{"file[0-9].log", "fileX.log", false},
		{`a\*b`, "a*b", true},
		{`a\*b`, "axb", false},
		{"[", "[", true},
		{"plain", "plain", true},
		{"plain", "plainer", false},
	}
	for _, tt := range tests {
		if got := matchPattern(tt.pattern, tt.s); got != tt.want {
			t.Errorf("matchPattern(%q, %q) = %v, 期望 %v", tt.pattern, tt.s, got, tt.want)
		}
	}
}

func newTestExecutor() *Executor {
	return New(vfs.NewMemFS(), nil, "/", limits.Default(), nil, "")
}

func TestGlobExpand(t *testing.T) {
	ex := newTestExecutor()
	ex.fs.WriteFile("/b.txt", []byte("b"))
	ex.fs.WriteFile("/a.txt", []byte("a"))
	ex.fs.WriteFile("/c.log", []byte("c"))
	ex.fs.WriteFile("/.secret.txt", []byte("s"))
	ex.fs.Mkdir("/sub", false)
	ex.fs.WriteFile("/sub/d.txt", []byte("d"))

	tests := []struct {
		name    string
		pattern string
		want    []string
	}{
		{"排序匹配", "/*.txt", []string{"/a.txt", "/b.txt"}},
		{"无匹配为空", "/*.xyz", nil},
		{"问号", "/?.log", []string{"/c.log"}},
		{"多段路径", "/sub/*.txt", []string{"/sub/d.txt"}},
		{"通配目录段", "/*/d.txt", []string{"/sub/d.txt"}},
		{"隐藏文件默认排除", "/*txt", []string{"/a.txt", "/b.txt"}},
		{"点前缀显式匹配", "/.*.txt", []string{"/.secret.txt"}},
		{"字面段不存在", "/nope/*.txt", nil},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := ex.globExpand(tt.pattern)
			if !reflect.DeepEqual(got, tt.want) {
				t.Errorf("globExpand(%q) = %v, 期望 %v", tt.pattern, got, tt.want)
			}
		})
	}
}

func TestGlobExpandRelative(t *testing.T) {
	ex := newTestExecutor()
	ex.fs.Mkdir("/work", false)
	ex.fs.WriteFile("/work/x.txt", []byte("x"))
	ex.fs.WriteFile("/work/y.txt", []byte("y"))
	ex.cwd = "/work"

	got := ex.globExpand("*.txt")
	want := []string{"x.txt", "y.txt"}
	if !reflect.DeepEqual(got, want) {
		t.Errorf("相对路径 globExpand = %v, 期望 %v", got, want)
	}
}
