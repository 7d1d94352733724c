// Package builtin 实现沙箱shell的内置命令
// 所有命令只访问虚拟文件系统，输出经Result捕获后由执行器汇总
package builtin

import (
	"fmt"
	"strings"

	"github.com/ahrtr/gocontainer/stack"

	"sandbash/internal/vfs"
)

// Context 内置命令的执行上下文
type Context struct {
	Args     []string
	Env      map[string]string
	Cwd      *string // 指针，cd等命令可修改
	FS       vfs.FileSystem
	Stdin    string
	HasStdin bool
	DirStack stack.Interface // pushd/popd共享的目录栈
}

// Result 内置命令的执行结果
type Result struct {
	Stdout   string
	Stderr   string
	ExitCode int
}

// BuiltinFunc 内置命令函数类型
type BuiltinFunc func(ctx *Context) *Result

var builtins map[string]BuiltinFunc

func init() {
	builtins = make(map[string]BuiltinFunc)
	builtins["echo"] = echo
	builtins["printf"] = printfCmd
	builtins["true"] = trueCmd
	builtins["false"] = falseCmd
	builtins[":"] = trueCmd
	builtins["pwd"] = pwd
	builtins["cd"] = cd
	builtins["cat"] = cat
	builtins["ls"] = ls
	builtins["mkdir"] = mkdir
	builtins["rmdir"] = rmdir
	builtins["rm"] = rm
	builtins["touch"] = touch
	builtins["cp"] = cp
	builtins["mv"] = mv
	builtins["head"] = head
	builtins["tail"] = tail
	builtins["wc"] = wc
	builtins["grep"] = grep
	builtins["sort"] = sortCmd
	builtins["uniq"] = uniq
	builtins["tr"] = tr
	builtins["cut"] = cut
	builtins["seq"] = seq
	builtins["basename"] = basename
	builtins["dirname"] = dirname
	builtins["test"] = testCmd
	builtins["["] = bracketCmd
	builtins["base64"] = base64Cmd
	builtins["sha256sum"] = sha256sum
	builtins["b2sum"] = b2sum
	builtins["b3sum"] = b3sum
	builtins["awk"] = awkCmd
	builtins["pushd"] = pushd
	builtins["popd"] = popd
	builtins["dirs"] = dirs
}

// Get 按名称查找内置命令
func Get(name string) (BuiltinFunc, bool) {
	fn, ok := builtins[name]
	return fn, ok
}

// Names 返回全部内置命令名
func Names() []string {
	out := make([]string, 0, len(builtins))
	for name := range builtins {
		out = append(out, name)
	}
	return out
}

// ok 构造成功结果
func ok(stdout string) *Result {
	return &Result{Stdout: stdout}
}

// fail 构造失败结果，stderr按惯例带命令名前缀
func fail(name string, code int, format string, args ...interface{}) *Result {
	return &Result{
		Stderr:   fmt.Sprintf("%s: %s\n", name, fmt.Sprintf(format, args...)),
		ExitCode: code,
	}
}

// resolve 将参数路径规范化为绝对路径
func (ctx *Context) resolve(p string) string {
	return vfs.NormalizePath(*ctx.Cwd, p)
}

// inputLines 取输入的行序列：优先使用文件参数，否则读stdin
func inputText(ctx *Context, args []string, name string) (string, *Result) {
	if len(args) == 0 {
		return ctx.Stdin, nil
	}
	var sb strings.Builder
	for _, arg := range args {
		if arg == "-" {
			sb.WriteString(ctx.Stdin)
			continue
		}
		data, err := ctx.FS.ReadFile(ctx.resolve(arg))
		if err != nil {
			return "", fsError(name, arg, err)
		}
		sb.Write(data)
	}
	return sb.String(), nil
}

// fsError 将虚拟文件系统错误转为bash风格的stderr消息
func fsError(name, path string, err error) *Result {
	switch err {
	case vfs.ErrNotFound:
		return fail(name, 1, "%s: No such file or directory", path)
	case vfs.ErrIsDir:
		return fail(name, 1, "%s: Is a directory", path)
	case vfs.ErrNotDir:
		return fail(name, 1, "%s: Not a directory", path)
	case vfs.ErrExists:
		return fail(name, 1, "%s: File exists", path)
	case vfs.ErrQuota:
		return fail(name, 1, "%s: Disk quota exceeded", path)
	}
	return fail(name, 1, "%s: %v", path, err)
}

// splitLines 按换行拆分，忽略末尾空行
func splitLines(s string) []string {
	if s == "" {
		return nil
	}
	s = strings.TrimSuffix(s, "\n")
	return strings.Split(s, "\n")
}
