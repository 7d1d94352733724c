// Package sandbash 提供一个完全沙箱化的bash风格脚本引擎
// 脚本在虚拟环境中解释执行：文件落在内存文件系统，命令输出被捕获返回，
// 不触碰宿主进程、文件系统与网络
package sandbash

import (
	"time"

	"github.com/tevino/abool/v2"

	"sandbash/internal/executor"
	"sandbash/internal/limits"
	"sandbash/internal/parser"
	"sandbash/internal/vfs"
)

// ExecResult 一次脚本执行的结果
type ExecResult struct {
	Stdout   string
	Stderr   string
	ExitCode int
}

// Bash 沙箱shell实例
// 变量、函数、工作目录与文件系统状态在多次Exec之间保持
type Bash struct {
	fs  vfs.FileSystem
	lim limits.ExecutionLimits
	ex  *executor.Executor
}

// Builder 构造Bash实例
type Builder struct {
	fs    vfs.FileSystem
	env   map[string]string
	cwd   string
	lim   limits.ExecutionLimits
	args  []string
	name0 string
}

// NewBuilder 创建使用默认配置的Builder
func NewBuilder() *Builder {
	return &Builder{
		env: make(map[string]string),
		cwd: "/",
		lim: limits.Default(),
	}
}

// FS 指定虚拟文件系统
func (b *Builder) FS(fs vfs.FileSystem) *Builder {
	b.fs = fs
	return b
}

// Env 设置环境变量
func (b *Builder) Env(name, value string) *Builder {
	b.env[name] = value
	return b
}

// Cwd 设置初始工作目录
func (b *Builder) Cwd(cwd string) *Builder {
	b.cwd = cwd
	return b
}

// Limits 设置执行限制，超出硬上限的值会被收拢
func (b *Builder) Limits(lim limits.ExecutionLimits) *Builder {
	b.lim = lim
	return b
}

// Args 设置位置参数（$1起）
func (b *Builder) Args(args ...string) *Builder {
	b.args = args
	return b
}

// Name 设置$0
func (b *Builder) Name(name string) *Builder {
	b.name0 = name
	return b
}

// Build 创建Bash实例
func (b *Builder) Build() *Bash {
	fs := b.fs
	if fs == nil {
		fs = vfs.NewMemFS()
	}
	lim := b.lim.Clamp()
	if b.cwd != "/" && !fs.Exists(b.cwd) {
		fs.Mkdir(b.cwd, true)
	}
	return &Bash{
		fs:  fs,
		lim: lim,
		ex:  executor.New(fs, b.env, b.cwd, lim, b.args, b.name0),
	}
}

// New 创建默认配置的Bash实例
func New() *Bash {
	return NewBuilder().Build()
}

// FS 返回底层虚拟文件系统，可用于预置或读取文件
func (sh *Bash) FS() vfs.FileSystem {
	return sh.fs
}

// Cwd 当前工作目录
func (sh *Bash) Cwd() string {
	return sh.ex.Cwd()
}

// Exec 解析并执行一段脚本
// 解析受燃料、深度与超时三重预算约束，执行受命令数等限制约束；
// 任何限制触发都会终止执行并在stderr给出原因
func (sh *Bash) Exec(src string) *ExecResult {
	if sh.lim.MaxInputSize > 0 && len(src) > sh.lim.MaxInputSize {
		err := &limits.LimitError{
			Kind:  limits.LimitInputSize,
			Used:  len(src),
			Limit: sh.lim.MaxInputSize,
		}
		return &ExecResult{Stderr: "sandbash: " + err.Error() + "\n", ExitCode: 2}
	}

	// 解析超时看门狗：超时置位后解析在下一次tick中止
	cancel := abool.New()
	var timer *time.Timer
	if sh.lim.ParseTimeout > 0 {
		timer = time.AfterFunc(sh.lim.ParseTimeout, func() { cancel.Set() })
	}
	script, err := parser.NewWithLimits(src, sh.lim, cancel).Parse()
	if timer != nil {
		timer.Stop()
	}
	if err != nil {
		return &ExecResult{Stderr: "sandbash: " + err.Error() + "\n", ExitCode: 2}
	}

	sh.ex.ResetCounters()
	res := sh.ex.Run(script)
	return &ExecResult{Stdout: res.Stdout, Stderr: res.Stderr, ExitCode: res.ExitCode}
}
