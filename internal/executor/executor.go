// Package executor 实现脚本的树遍历求值
// 所有副作用都落在虚拟环境中：虚拟文件系统、进程内变量表与捕获的输出缓冲
package executor

import (
	"fmt"
	"strconv"
	"strings"
	"time"

	"github.com/ahrtr/gocontainer/stack"

	"sandbash/internal/builtin"
	"sandbash/internal/limits"
	"sandbash/internal/parser"
	"sandbash/internal/vfs"
)

// ControlFlow 命令执行后待传播的控制流
type ControlFlow int

const (
	FlowNone     ControlFlow = iota
	FlowBreak                // break [n]
	FlowContinue             // continue [n]
	FlowReturn               // return [n]
	FlowExit                 // exit [n]，传播到顶层
)

// Result 命令执行结果
type Result struct {
	Stdout   string
	Stderr   string
	ExitCode int
	Flow     ControlFlow
	FlowN    int // break/continue的层数
}

// frame 函数调用帧
// 局部变量采用动态作用域：被调函数可见调用方的local
type frame struct {
	fnName      string
	params      []string
	locals      map[string]string
	localArrays map[string]map[int]string
}

// stdinBuf 可消费的标准输入缓冲
type stdinBuf struct {
	data string
}

// readAll 消费全部剩余内容
func (b *stdinBuf) readAll() string {
	s := b.data
	b.data = ""
	return s
}

// readLine 消费一行，无内容时返回false
func (b *stdinBuf) readLine() (string, bool) {
	if b.data == "" {
		return "", false
	}
	if i := strings.IndexByte(b.data, '\n'); i >= 0 {
		line := b.data[:i]
		b.data = b.data[i+1:]
		return line, true
	}
	line := b.data
	b.data = ""
	return line, true
}

// Executor 脚本执行器
type Executor struct {
	fs  vfs.FileSystem
	env map[string]string

	vars   map[string]string
	arrays map[string]map[int]string
	funcs  map[string]*parser.FunctionDef
	frames []*frame

	cwd      string
	params   []string // 位置参数
	name0    string   // $0
	lastExit int
	lastJob  int

	lim      limits.ExecutionLimits
	counters *limits.Counters

	jobs       *jobTable
	dirStack   stack.Interface
	stdinStack []*stdinBuf

	// 命令替换与进程替换产生的stderr，由最近的简单命令汇入
	pendingStderr   strings.Builder
	pendingProcSubs []pendingProcSub
	procsubSeq      int
}

// pendingProcSub 输出型进程替换 >(cmd)，宿主命令完成后以文件内容作stdin执行
type pendingProcSub struct {
	path     string
	commands []parser.Command
}

// New 创建执行器
func New(fs vfs.FileSystem, env map[string]string, cwd string, lim limits.ExecutionLimits, args []string, name0 string) *Executor {
	if env == nil {
		env = make(map[string]string)
	}
	if cwd == "" {
		cwd = "/"
	}
	if name0 == "" {
		name0 = "sandbash"
	}
	env["PWD"] = cwd
	return &Executor{
		fs:       fs,
		env:      env,
		vars:     make(map[string]string),
		arrays:   make(map[string]map[int]string),
		funcs:    make(map[string]*parser.FunctionDef),
		cwd:      cwd,
		params:   args,
		name0:    name0,
		lim:      lim,
		counters: &limits.Counters{},
		jobs:     newJobTable(),
		dirStack: stack.New(),
	}
}

// Cwd 当前工作目录
func (ex *Executor) Cwd() string {
	return ex.cwd
}

// ResetCounters 重置单次执行的资源计数
// 同一实例多次执行时，命令预算按次计，不跨脚本累计
func (ex *Executor) ResetCounters() {
	*ex.counters = limits.Counters{}
}

// Run 执行整个脚本
func (ex *Executor) Run(script *parser.Script) *Result {
	res := ex.execCommands(script.Commands)
	if res.Flow == FlowBreak || res.Flow == FlowContinue || res.Flow == FlowReturn {
		// 循环外的break/continue与函数外的return不再传播
		res.Flow = FlowNone
	}
	return res
}

// limitFailure 将资源限制错误转为终止整个脚本的结果
func limitFailure(err error) *Result {
	return &Result{
		Stderr:   "sandbash: " + err.Error() + "\n",
		ExitCode: 2,
		Flow:     FlowExit,
	}
}

// execCommands 顺序执行命令序列，遇到控制流时中断
func (ex *Executor) execCommands(cmds []parser.Command) *Result {
	acc := &Result{ExitCode: ex.lastExit}
	for _, cmd := range cmds {
		res := ex.execCommand(cmd)
		acc.Stdout += res.Stdout
		acc.Stderr += res.Stderr
		acc.ExitCode = res.ExitCode
		if res.Flow != FlowNone {
			acc.Flow = res.Flow
			acc.FlowN = res.FlowN
			return acc
		}
	}
	return acc
}

// execCommand 单条命令分发
func (ex *Executor) execCommand(cmd parser.Command) *Result {
	switch c := cmd.(type) {
	case *parser.SimpleCommand:
		return ex.execSimple(c)
	case *parser.Pipeline:
		return ex.execPipeline(c)
	case *parser.CommandList:
		return ex.execList(c)
	case *parser.Compound:
		return ex.execCompound(c)
	case *parser.FunctionDef:
		ex.funcs[c.Name] = c
		ex.lastExit = 0
		return &Result{}
	}
	return &Result{}
}

// execList 执行 && || ; & 连接的命令列表
func (ex *Executor) execList(list *parser.CommandList) *Result {
	acc := &Result{}
	res := ex.execCommand(list.First)
	acc.Stdout += res.Stdout
	acc.Stderr += res.Stderr
	acc.ExitCode = res.ExitCode
	if res.Flow != FlowNone {
		acc.Flow, acc.FlowN = res.Flow, res.FlowN
		return acc
	}

	prev := list.First
	for _, entry := range list.Rest {
		run := true
		switch entry.Op {
		case parser.OpAnd:
			run = acc.ExitCode == 0
		case parser.OpOr:
			run = acc.ExitCode != 0
		case parser.OpBackground:
			// 前一条命令视为后台作业登记
			ex.lastJob = ex.jobs.add(describeCommand(prev), acc.ExitCode)
		}
		if !run {
			// 跳过的命令不改变$?
			prev = entry.Cmd
			continue
		}
		res = ex.execCommand(entry.Cmd)
		acc.Stdout += res.Stdout
		acc.Stderr += res.Stderr
		acc.ExitCode = res.ExitCode
		if res.Flow != FlowNone {
			acc.Flow, acc.FlowN = res.Flow, res.FlowN
			return acc
		}
		prev = entry.Cmd
	}
	if list.TrailingAmp {
		ex.lastJob = ex.jobs.add(describeCommand(prev), acc.ExitCode)
		acc.ExitCode = 0
		ex.lastExit = 0
	}
	return acc
}

// execPipeline 执行管道：各阶段顺序求值，前一阶段stdout成为后一阶段stdin
func (ex *Executor) execPipeline(pipe *parser.Pipeline) *Result {
	acc := &Result{}
	var carry string
	for i, stage := range pipe.Commands {
		if i > 0 {
			ex.pushStdin(carry)
		}
		res := ex.execCommand(stage)
		if i > 0 {
			ex.popStdin()
		}
		carry = res.Stdout
		acc.Stderr += res.Stderr
		acc.ExitCode = res.ExitCode
		if res.Flow != FlowNone {
			acc.Flow, acc.FlowN = res.Flow, res.FlowN
			acc.Stdout += carry
			return acc
		}
	}
	acc.Stdout += carry
	if pipe.Negated {
		if acc.ExitCode == 0 {
			acc.ExitCode = 1
		} else {
			acc.ExitCode = 0
		}
		ex.lastExit = acc.ExitCode
	}
	return acc
}

// describeCommand 生成作业表中展示的命令描述
func describeCommand(cmd parser.Command) string {
	switch c := cmd.(type) {
	case *parser.SimpleCommand:
		if c.Name != nil {
			var parts []string
			for _, p := range c.Name.Parts {
				if lit, isLit := p.(*parser.LiteralPart); isLit {
					parts = append(parts, lit.Text)
				}
			}
			if len(parts) > 0 {
				return strings.Join(parts, "")
			}
		}
		return "command"
	case *parser.Pipeline:
		return describeCommand(c.Commands[0]) + " | ..."
	case *parser.CommandList:
		return describeCommand(c.First)
	case *parser.Compound:
		switch c.Node.(type) {
		case *parser.Subshell:
			return "( ... )"
		case *parser.BraceGroup:
			return "{ ... }"
		}
		return "compound"
	}
	return "command"
}

// pushStdin 压入一层标准输入缓冲
func (ex *Executor) pushStdin(data string) {
	ex.stdinStack = append(ex.stdinStack, &stdinBuf{data: data})
}

func (ex *Executor) popStdin() {
	ex.stdinStack = ex.stdinStack[:len(ex.stdinStack)-1]
}

// currentStdin 取栈顶标准输入缓冲
func (ex *Executor) currentStdin() (*stdinBuf, bool) {
	if len(ex.stdinStack) == 0 {
		return nil, false
	}
	return ex.stdinStack[len(ex.stdinStack)-1], true
}

// 无文件参数时会读取stdin的内置命令，执行后消费缓冲
var stdinConsumers = map[string]bool{
	"cat": true, "head": true, "tail": true, "wc": true, "grep": true,
	"sort": true, "uniq": true, "tr": true, "cut": true, "awk": true,
	"base64": true, "sha256sum": true, "b2sum": true, "b3sum": true,
}

// execSimple 执行简单命令
func (ex *Executor) execSimple(cmd *parser.SimpleCommand) *Result {
	if err := ex.counters.TickCommand(ex.lim); err != nil {
		return limitFailure(err)
	}

	// 纯赋值命令：作用于当前shell
	if cmd.Name == nil && len(cmd.Assignments) > 0 {
		for _, assign := range cmd.Assignments {
			if res := ex.applyAssignment(assign, false); res != nil {
				return res
			}
		}
		ex.lastExit = 0
		return ex.drainPending(&Result{})
	}

	// 展开命令名与参数
	var fields []string
	if cmd.Name != nil {
		f, eres := ex.expandWord(cmd.Name)
		if eres != nil {
			return eres
		}
		fields = append(fields, f...)
	}
	for _, arg := range cmd.Args {
		f, eres := ex.expandWord(arg)
		if eres != nil {
			return eres
		}
		fields = append(fields, f...)
	}

	// 解析重定向：输入先行，输出记录待命令完成后套用
	redir, rres := ex.prepareRedirects(cmd.Redirects)
	if rres != nil {
		return rres
	}
	if cmd.Name == nil && len(cmd.Redirects) > 0 {
		// 仅重定向：创建/截断目标文件
		res := &Result{}
		if ares := ex.applyOutputRedirects(redir, res); ares != nil {
			return ares
		}
		ex.lastExit = 0
		return ex.drainPending(res)
	}

	if len(fields) == 0 {
		ex.lastExit = 0
		return ex.drainPending(&Result{})
	}
	name := fields[0]
	args := fields[1:]

	var res *Result
	switch {
	case ex.funcs[name] != nil:
		res = ex.callFunction(name, args, cmd.Assignments, redir)
	default:
		if handled, sres := ex.execSpecial(name, args, cmd.Assignments); handled {
			res = sres
		} else if fn, isBuiltin := builtin.Get(name); isBuiltin {
			res = ex.runBuiltin(name, fn, args, cmd.Assignments, redir)
		} else {
			res = &Result{
				Stderr:   fmt.Sprintf("sandbash: %s: command not found\n", name),
				ExitCode: 127,
			}
		}
	}

	if res.Flow == FlowNone || res.Flow == FlowExit {
		if ares := ex.applyOutputRedirects(redir, res); ares != nil {
			return ares
		}
	}
	if res.Flow == FlowNone {
		ex.lastExit = res.ExitCode
	}
	ex.runPendingProcSubs(res)
	return ex.drainPending(res)
}

// runPendingProcSubs 执行积压的输出型进程替换读取方
func (ex *Executor) runPendingProcSubs(res *Result) {
	pending := ex.pendingProcSubs
	ex.pendingProcSubs = nil
	for _, ps := range pending {
		data, err := ex.fs.ReadFile(ps.path)
		if err != nil {
			continue
		}
		ex.pushStdin(string(data))
		sub := ex.execCommands(ps.commands)
		ex.popStdin()
		res.Stdout += sub.Stdout
		res.Stderr += sub.Stderr
	}
}

// drainPending 汇入命令替换积累的stderr
func (ex *Executor) drainPending(res *Result) *Result {
	if ex.pendingStderr.Len() > 0 {
		res.Stderr = ex.pendingStderr.String() + res.Stderr
		ex.pendingStderr.Reset()
	}
	return res
}

// runBuiltin 以内置命令上下文运行注册的内置命令
func (ex *Executor) runBuiltin(name string, fn builtin.BuiltinFunc, args []string, assigns []*parser.Assignment, redir *preparedRedirects) *Result {
	// 命令前缀赋值只影响本次调用的环境
	saved := ex.tempAssignments(assigns)
	defer ex.restoreTemp(saved)

	ctx := &builtin.Context{
		Args:     args,
		Env:      ex.env,
		Cwd:      &ex.cwd,
		FS:       ex.fs,
		DirStack: ex.dirStack,
	}
	if redir.hasStdin {
		ctx.Stdin = redir.stdin
		ctx.HasStdin = true
	} else if buf, exists := ex.currentStdin(); exists {
		ctx.Stdin = buf.data
		ctx.HasStdin = true
		if stdinConsumers[name] && !hasFileArgs(args) {
			buf.readAll()
		}
	}

	out := fn(ctx)
	return &Result{Stdout: out.Stdout, Stderr: out.Stderr, ExitCode: out.ExitCode}
}

// hasFileArgs 判断参数中是否含文件操作数（排除选项与"-"）
func hasFileArgs(args []string) bool {
	skipNext := false
	for _, a := range args {
		if skipNext {
			skipNext = false
			continue
		}
		switch {
		case a == "-":
			continue
		case a == "-n" || a == "-d" || a == "-f" || a == "-F" || a == "-v":
			skipNext = true
		case strings.HasPrefix(a, "-"):
			continue
		default:
			return true
		}
	}
	return false
}

// callFunction 调用shell函数
func (ex *Executor) callFunction(name string, args []string, assigns []*parser.Assignment, redir *preparedRedirects) *Result {
	if err := ex.counters.PushFunction(ex.lim); err != nil {
		return limitFailure(err)
	}
	defer ex.counters.PopFunction()

	saved := ex.tempAssignments(assigns)
	defer ex.restoreTemp(saved)

	ex.frames = append(ex.frames, &frame{
		fnName:      name,
		params:      args,
		locals:      make(map[string]string),
		localArrays: make(map[string]map[int]string),
	})
	defer func() { ex.frames = ex.frames[:len(ex.frames)-1] }()

	if redir.hasStdin {
		ex.pushStdin(redir.stdin)
		defer ex.popStdin()
	}

	res := ex.execCommand(ex.funcs[name].Body)
	if res.Flow == FlowReturn {
		res.Flow = FlowNone
		res.ExitCode = res.FlowN
		ex.lastExit = res.ExitCode
	}
	return res
}

// tempAssignments 应用命令前缀赋值，返回恢复信息
type savedVar struct {
	name    string
	value   string
	existed bool
}

func (ex *Executor) tempAssignments(assigns []*parser.Assignment) []savedVar {
	var saved []savedVar
	for _, assign := range assigns {
		old, existed := ex.env[assign.Name]
		saved = append(saved, savedVar{assign.Name, old, existed})
		value := ""
		if assign.Value != nil {
			value, _ = ex.expandWordSingle(assign.Value)
		}
		ex.env[assign.Name] = value
	}
	return saved
}

func (ex *Executor) restoreTemp(saved []savedVar) {
	for i := len(saved) - 1; i >= 0; i-- {
		s := saved[i]
		if s.existed {
			ex.env[s.name] = s.value
		} else {
			delete(ex.env, s.name)
		}
	}
}

// applyAssignment 执行变量赋值，local为真时写入当前函数帧
func (ex *Executor) applyAssignment(assign *parser.Assignment, local bool) *Result {
	// 数组字面量赋值
	if assign.IsArray {
		arr := make(map[int]string, len(assign.ArrayValues))
		idx := 0
		for _, w := range assign.ArrayValues {
			fields, eres := ex.expandWord(w)
			if eres != nil {
				return eres
			}
			for _, f := range fields {
				arr[idx] = f
				idx++
			}
		}
		if assign.Append {
			existing := ex.lookupArray(assign.Name)
			merged := make(map[int]string, len(existing)+len(arr))
			next := 0
			for i := range existing {
				if i >= next {
					next = i + 1
				}
			}
			for i, v := range existing {
				merged[i] = v
			}
			for i := 0; i < idx; i++ {
				merged[next+i] = arr[i]
			}
			arr = merged
		}
		ex.setArray(assign.Name, arr, local)
		return nil
	}

	value := ""
	if assign.Value != nil {
		v, eres := ex.expandWordSingle(assign.Value)
		if eres != nil {
			return eres
		}
		value = v
	}

	// 数组下标赋值 arr[i]=v
	if assign.HasIndex {
		idx, ires := ex.evalArrayIndex(assign.Index)
		if ires != nil {
			return ires
		}
		arr := ex.lookupArray(assign.Name)
		updated := make(map[int]string, len(arr)+1)
		for i, v := range arr {
			updated[i] = v
		}
		if assign.Append {
			updated[idx] = appendValue(updated[idx], value)
		} else {
			updated[idx] = value
		}
		ex.setArray(assign.Name, updated, local)
		return nil
	}

	if assign.Append {
		value = appendValue(ex.getVar(assign.Name), value)
	}
	if local {
		ex.setLocal(assign.Name, value)
	} else {
		ex.setVar(assign.Name, value)
	}
	return nil
}

// appendValue 实现+=：两侧均为整数时做数值相加，否则字符串拼接
func appendValue(old, add string) string {
	l, lerr := strconv.ParseInt(strings.TrimSpace(old), 10, 64)
	r, rerr := strconv.ParseInt(strings.TrimSpace(add), 10, 64)
	if lerr == nil && rerr == nil && old != "" && add != "" {
		return strconv.FormatInt(l+r, 10)
	}
	return old + add
}

// evalArrayIndex 求值数组下标（算术上下文）
func (ex *Executor) evalArrayIndex(expr string) (int, *Result) {
	expr = strings.TrimSpace(expr)
	// $i 形式先剥除$
	if strings.HasPrefix(expr, "$") {
		expr = expr[1:]
	}
	v, err := ex.evalArith(expr)
	if err != nil {
		return 0, &Result{
			Stderr:   "sandbash: " + err.Error() + "\n",
			ExitCode: 1,
		}
	}
	return int(v), nil
}

// ===== 变量作用域 =====

// getVar 变量查找：函数局部（内层优先）→ 全局shell变量 → 环境变量
func (ex *Executor) getVar(name string) string {
	for i := len(ex.frames) - 1; i >= 0; i-- {
		if v, exists := ex.frames[i].locals[name]; exists {
			return v
		}
	}
	if v, exists := ex.vars[name]; exists {
		return v
	}
	return ex.env[name]
}

// varSet 判断变量是否已设置
func (ex *Executor) varSet(name string) bool {
	for i := len(ex.frames) - 1; i >= 0; i-- {
		if _, exists := ex.frames[i].locals[name]; exists {
			return true
		}
	}
	if _, exists := ex.vars[name]; exists {
		return true
	}
	if _, exists := ex.env[name]; exists {
		return true
	}
	if arr := ex.lookupArray(name); len(arr) > 0 {
		return true
	}
	return false
}

// setVar 变量赋值：已声明local的写入对应帧，否则写全局
func (ex *Executor) setVar(name, value string) {
	for i := len(ex.frames) - 1; i >= 0; i-- {
		if _, exists := ex.frames[i].locals[name]; exists {
			ex.frames[i].locals[name] = value
			return
		}
	}
	if _, exists := ex.env[name]; exists {
		ex.env[name] = value
		return
	}
	ex.vars[name] = value
}

// setLocal 在当前函数帧声明局部变量
func (ex *Executor) setLocal(name, value string) {
	if len(ex.frames) == 0 {
		ex.vars[name] = value
		return
	}
	ex.frames[len(ex.frames)-1].locals[name] = value
}

// unsetVar 删除变量
func (ex *Executor) unsetVar(name string) {
	for i := len(ex.frames) - 1; i >= 0; i-- {
		if _, exists := ex.frames[i].locals[name]; exists {
			delete(ex.frames[i].locals, name)
			return
		}
	}
	delete(ex.vars, name)
	delete(ex.env, name)
	delete(ex.arrays, name)
}

// lookupArray 数组查找：函数局部优先
func (ex *Executor) lookupArray(name string) map[int]string {
	for i := len(ex.frames) - 1; i >= 0; i-- {
		if arr, exists := ex.frames[i].localArrays[name]; exists {
			return arr
		}
	}
	return ex.arrays[name]
}

func (ex *Executor) setArray(name string, arr map[int]string, local bool) {
	if local && len(ex.frames) > 0 {
		ex.frames[len(ex.frames)-1].localArrays[name] = arr
		return
	}
	for i := len(ex.frames) - 1; i >= 0; i-- {
		if _, exists := ex.frames[i].localArrays[name]; exists {
			ex.frames[i].localArrays[name] = arr
			return
		}
	}
	ex.arrays[name] = arr
}

// positional 取位置参数：函数内为调用实参，顶层为脚本参数
func (ex *Executor) positional() []string {
	if len(ex.frames) > 0 {
		return ex.frames[len(ex.frames)-1].params
	}
	return ex.params
}

func (ex *Executor) setPositional(params []string) {
	if len(ex.frames) > 0 {
		ex.frames[len(ex.frames)-1].params = params
		return
	}
	ex.params = params
}

// clone 构造子shell执行器：状态快照，副作用不回传
// 虚拟文件系统与命令预算计数器共享
func (ex *Executor) clone() *Executor {
	sub := &Executor{
		fs:       ex.fs,
		env:      copyStrMap(ex.env),
		vars:     copyStrMap(ex.vars),
		arrays:   make(map[string]map[int]string, len(ex.arrays)),
		funcs:    make(map[string]*parser.FunctionDef, len(ex.funcs)),
		cwd:      ex.cwd,
		params:   append([]string(nil), ex.positional()...),
		name0:    ex.name0,
		lastExit: ex.lastExit,
		lastJob:  ex.lastJob,
		lim:      ex.lim,
		counters: ex.counters,
		jobs:     ex.jobs,
		dirStack: ex.dirStack,
	}
	for name, arr := range ex.arrays {
		sub.arrays[name] = copyIntMap(arr)
	}
	for name, fn := range ex.funcs {
		sub.funcs[name] = fn
	}
	// 函数局部变量在子shell里摊平为普通变量
	for _, fr := range ex.frames {
		for name, v := range fr.locals {
			sub.vars[name] = v
		}
		for name, arr := range fr.localArrays {
			sub.arrays[name] = copyIntMap(arr)
		}
	}
	if buf, exists := ex.currentStdin(); exists {
		sub.pushStdin(buf.data)
	}
	return sub
}

func copyStrMap(m map[string]string) map[string]string {
	out := make(map[string]string, len(m))
	for k, v := range m {
		out[k] = v
	}
	return out
}

func copyIntMap(m map[int]string) map[int]string {
	out := make(map[int]string, len(m))
	for k, v := range m {
		out[k] = v
	}
	return out
}

// evalArith 在当前作用域中求值算术表达式
func (ex *Executor) evalArith(expr string) (int64, error) {
	// 表达式文本先经历 $var、${...}、$(...) 替换，与bash一致
	if strings.ContainsAny(expr, "$`") {
		w, err := parser.ParseExpansionText(expr, ex.lim)
		if err != nil {
			return 0, err
		}
		text, eres := ex.expandWordSingle(w)
		if eres != nil {
			return 0, fmt.Errorf("%s", strings.TrimSuffix(strings.TrimPrefix(eres.Stderr, "sandbash: "), "\n"))
		}
		expr = text
	}
	return arithEval(expr, ex)
}

// timeReport 生成time命令的计时输出
func timeReport(elapsed time.Duration, posix bool) string {
	secs := elapsed.Seconds()
	if posix {
		return fmt.Sprintf("real %.2f\nuser %.2f\nsys %.2f\n", secs, secs, 0.0)
	}
	mins := int(secs) / 60
	rem := secs - float64(mins*60)
	return fmt.Sprintf("\nreal\t%dm%.3fs\nuser\t%dm%.3fs\nsys\t0m0.000s\n", mins, rem, mins, rem)
}
