package executor

import (
	"fmt"
	"sort"
	"strconv"
	"strings"

	"sandbash/internal/arith"
	"sandbash/internal/builtin"
	"sandbash/internal/parser"
	"sandbash/internal/vfs"
)

// arithScope 算术求值的变量作用域适配
type arithScope struct {
	ex *Executor
}

func (s *arithScope) Get(name string) string { return s.ex.specialOrVar(name) }
func (s *arithScope) Set(name, value string) { s.ex.setVar(name, value) }

func arithEval(expr string, ex *Executor) (int64, error) {
	return arith.EvalDepth(expr, &arithScope{ex: ex}, ex.lim.MaxParseDepth)
}

// execSpecial 处理需要直通执行器状态的内置命令
// 返回false表示该名称不是特殊命令
func (ex *Executor) execSpecial(name string, args []string, _ []*parser.Assignment) (bool, *Result) {
	switch name {
	case "export":
		return true, ex.specialExport(args)
	case "unset":
		return true, ex.specialUnset(args)
	case "set":
		return true, ex.specialSet(args)
	case "shift":
		return true, ex.specialShift(args)
	case "local":
		return true, ex.specialLocal(args)
	case "return":
		return true, ex.flowResult(FlowReturn, args)
	case "break":
		return true, ex.flowResult(FlowBreak, args)
	case "continue":
		return true, ex.flowResult(FlowContinue, args)
	case "exit":
		return true, ex.specialExit(args)
	case "eval":
		return true, ex.specialEval(args)
	case "read":
		return true, ex.specialRead(args)
	case "jobs":
		return true, &Result{Stdout: ex.jobs.list()}
	case "wait":
		// 作业同步执行，wait恒成功
		return true, &Result{}
	case "source", ".":
		return true, ex.specialSource(args)
	case "type":
		return true, ex.specialType(args)
	case "unalias", "alias":
		return true, &Result{}
	}
	return false, nil
}

// specialExport 导出变量到环境
func (ex *Executor) specialExport(args []string) *Result {
	if len(args) == 0 {
		var lines []string
		for name, v := range ex.env {
			lines = append(lines, fmt.Sprintf("declare -x %s=%q", name, v))
		}
		sort.Strings(lines)
		return &Result{Stdout: strings.Join(lines, "\n") + lineIfAny(lines)}
	}
	for _, arg := range args {
		if i := strings.IndexByte(arg, '='); i >= 0 {
			ex.env[arg[:i]] = arg[i+1:]
			delete(ex.vars, arg[:i])
			continue
		}
		// 已有shell变量提升为环境变量
		ex.env[arg] = ex.getVar(arg)
		delete(ex.vars, arg)
	}
	return &Result{}
}

// specialUnset 删除变量或函数
func (ex *Executor) specialUnset(args []string) *Result {
	funcsOnly := false
	for _, arg := range args {
		if arg == "-f" {
			funcsOnly = true
			continue
		}
		if arg == "-v" {
			funcsOnly = false
			continue
		}
		if funcsOnly {
			delete(ex.funcs, arg)
			continue
		}
		ex.unsetVar(arg)
	}
	return &Result{}
}

// specialSet 设置位置参数；无参数时列出变量
func (ex *Executor) specialSet(args []string) *Result {
	if len(args) == 0 {
		merged := make(map[string]string, len(ex.vars)+len(ex.env))
		for name, v := range ex.env {
			merged[name] = v
		}
		for name, v := range ex.vars {
			merged[name] = v
		}
		names := make([]string, 0, len(merged))
		for name := range merged {
			names = append(names, name)
		}
		sort.Strings(names)
		var sb strings.Builder
		for _, name := range names {
			fmt.Fprintf(&sb, "%s=%s\n", name, merged[name])
		}
		return &Result{Stdout: sb.String()}
	}
	if args[0] == "--" {
		ex.setPositional(append([]string(nil), args[1:]...))
		return &Result{}
	}
	if strings.HasPrefix(args[0], "-") || strings.HasPrefix(args[0], "+") {
		// 选项开关在沙箱内无实际效果
		return &Result{}
	}
	ex.setPositional(append([]string(nil), args...))
	return &Result{}
}

// specialShift 左移位置参数
func (ex *Executor) specialShift(args []string) *Result {
	n := 1
	if len(args) > 0 {
		v, err := strconv.Atoi(args[0])
		if err != nil || v < 0 {
			return &Result{
				Stderr:   fmt.Sprintf("sandbash: shift: %s: numeric argument required\n", args[0]),
				ExitCode: 1,
			}
		}
		n = v
	}
	params := ex.positional()
	if n > len(params) {
		return &Result{ExitCode: 1}
	}
	ex.setPositional(params[n:])
	return &Result{}
}

// specialLocal 在当前函数帧声明局部变量
func (ex *Executor) specialLocal(args []string) *Result {
	if len(ex.frames) == 0 {
		return &Result{
			Stderr:   "sandbash: local: can only be used in a function\n",
			ExitCode: 1,
		}
	}
	top := ex.frames[len(ex.frames)-1]
	for _, arg := range args {
		if i := strings.IndexByte(arg, '='); i >= 0 {
			top.locals[arg[:i]] = arg[i+1:]
			continue
		}
		top.locals[arg] = ""
	}
	return &Result{}
}

// flowResult 构造break/continue/return的控制流结果
func (ex *Executor) flowResult(flow ControlFlow, args []string) *Result {
	n := 1
	if flow == FlowReturn {
		n = ex.lastExit
	}
	if len(args) > 0 {
		v, err := strconv.Atoi(args[0])
		if err != nil {
			return &Result{
				Stderr:   fmt.Sprintf("sandbash: %s: numeric argument required\n", args[0]),
				ExitCode: 1,
			}
		}
		n = v
	}
	if flow != FlowReturn && n < 1 {
		n = 1
	}
	return &Result{Flow: flow, FlowN: n, ExitCode: ex.lastExit}
}

// specialExit 终止脚本
func (ex *Executor) specialExit(args []string) *Result {
	code := ex.lastExit
	if len(args) > 0 {
		v, err := strconv.Atoi(args[0])
		if err != nil {
			return &Result{
				Stderr:   fmt.Sprintf("sandbash: exit: %s: numeric argument required\n", args[0]),
				ExitCode: 2,
				Flow:     FlowExit,
			}
		}
		code = v & 0xff
	}
	return &Result{Flow: FlowExit, ExitCode: code}
}

// specialEval 拼接参数后重新解析执行
func (ex *Executor) specialEval(args []string) *Result {
	src := strings.Join(args, " ")
	if strings.TrimSpace(src) == "" {
		return &Result{}
	}
	script, err := parser.NewWithLimits(src, ex.lim, nil).Parse()
	if err != nil {
		return &Result{
			Stderr:   "sandbash: eval: " + err.Error() + "\n",
			ExitCode: 2,
		}
	}
	return ex.execCommands(script.Commands)
}

// specialRead 从标准输入读一行并按IFS拆分到变量
func (ex *Executor) specialRead(args []string) *Result {
	var names []string
	for _, arg := range args {
		if strings.HasPrefix(arg, "-") {
			// -r等选项在缓冲模型下无须区分
			continue
		}
		names = append(names, arg)
	}
	if len(names) == 0 {
		names = []string{"REPLY"}
	}

	buf, exists := ex.currentStdin()
	if !exists {
		return &Result{ExitCode: 1}
	}
	line, okRead := buf.readLine()
	if !okRead {
		return &Result{ExitCode: 1}
	}

	ifs := ex.ifs()
	if ifs == "" {
		ifs = " \t\n"
	}
	fields := strings.FieldsFunc(line, func(r rune) bool {
		return strings.ContainsRune(ifs, r)
	})
	for i, name := range names {
		switch {
		case i < len(names)-1 && i < len(fields):
			ex.setVar(name, fields[i])
		case i == len(names)-1 && i < len(fields):
			// 末变量吃下剩余字段
			ex.setVar(name, strings.Join(fields[i:], " "))
		default:
			ex.setVar(name, "")
		}
	}
	return &Result{}
}

// specialSource 读取并执行虚拟文件系统中的脚本
func (ex *Executor) specialSource(args []string) *Result {
	if len(args) == 0 {
		return &Result{
			Stderr:   "sandbash: source: filename argument required\n",
			ExitCode: 2,
		}
	}
	data, err := ex.fs.ReadFile(vfs.NormalizePath(ex.cwd, args[0]))
	if err != nil {
		return &Result{
			Stderr:   fmt.Sprintf("sandbash: source: %s: %s\n", args[0], fsErrMessage(err)),
			ExitCode: 1,
		}
	}
	script, perr := parser.NewWithLimits(string(data), ex.lim, nil).Parse()
	if perr != nil {
		return &Result{
			Stderr:   "sandbash: source: " + perr.Error() + "\n",
			ExitCode: 2,
		}
	}
	res := ex.execCommands(script.Commands)
	if res.Flow == FlowReturn {
		// source中的return结束被source的脚本
		res.Flow = FlowNone
		res.ExitCode = res.FlowN
	}
	return res
}

// specialType 报告命令类别
func (ex *Executor) specialType(args []string) *Result {
	var sb strings.Builder
	code := 0
	for _, arg := range args {
		switch {
		case ex.funcs[arg] != nil:
			fmt.Fprintf(&sb, "%s is a function\n", arg)
		case isSpecialCommand(arg):
			fmt.Fprintf(&sb, "%s is a shell builtin\n", arg)
		default:
			if _, isBuiltin := builtin.Get(arg); isBuiltin {
				fmt.Fprintf(&sb, "%s is a shell builtin\n", arg)
			} else {
				code = 1
				fmt.Fprintf(&sb, "sandbash: type: %s: not found\n", arg)
			}
		}
	}
	return &Result{Stdout: sb.String(), ExitCode: code}
}

func isSpecialCommand(name string) bool {
	switch name {
	case "export", "unset", "set", "shift", "local", "return", "break",
		"continue", "exit", "eval", "read", "jobs", "wait", "source", ".", "type":
		return true
	}
	return false
}

func lineIfAny(lines []string) string {
	if len(lines) == 0 {
		return ""
	}
	return "\n"
}
