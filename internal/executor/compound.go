package executor

import (
	"errors"
	"regexp"
	"strconv"
	"time"

	"sandbash/internal/limits"
	"sandbash/internal/parser"
	"sandbash/internal/vfs"
)

// execCompound 执行复合命令并套用其重定向
func (ex *Executor) execCompound(cmd *parser.Compound) *Result {
	prep, rres := ex.prepareRedirects(cmd.Redirects)
	if rres != nil {
		return rres
	}
	if prep.hasStdin {
		ex.pushStdin(prep.stdin)
		defer ex.popStdin()
	}

	res := ex.execCompoundNode(cmd.Node)
	if res.Flow == FlowNone || res.Flow == FlowExit {
		if ares := ex.applyOutputRedirects(prep, res); ares != nil {
			return ares
		}
	}
	return res
}

func (ex *Executor) execCompoundNode(node parser.CompoundNode) *Result {
	switch n := node.(type) {
	case *parser.IfCommand:
		return ex.execIf(n)
	case *parser.ForCommand:
		return ex.execFor(n)
	case *parser.ArithForCommand:
		return ex.execArithFor(n)
	case *parser.WhileCommand:
		return ex.execLoop(n.Condition, n.Body, false)
	case *parser.UntilCommand:
		return ex.execLoop(n.Condition, n.Body, true)
	case *parser.CaseCommand:
		return ex.execCase(n)
	case *parser.Subshell:
		return ex.execSubshell(n)
	case *parser.BraceGroup:
		return ex.execCommands(n.Commands)
	case *parser.ArithmeticCommand:
		return ex.execArithCommand(n.Expr)
	case *parser.Conditional:
		return ex.execConditional(n)
	case *parser.TimeCommand:
		return ex.execTime(n)
	}
	return &Result{}
}

// execIf 执行if分支
func (ex *Executor) execIf(n *parser.IfCommand) *Result {
	acc := &Result{}
	cond := ex.execCommands(n.Condition)
	acc.Stdout += cond.Stdout
	acc.Stderr += cond.Stderr
	if cond.Flow != FlowNone {
		acc.Flow, acc.FlowN, acc.ExitCode = cond.Flow, cond.FlowN, cond.ExitCode
		return acc
	}

	branch := n.Else
	if cond.ExitCode == 0 {
		branch = n.Then
	} else {
		for _, elif := range n.Elifs {
			econd := ex.execCommands(elif.Condition)
			acc.Stdout += econd.Stdout
			acc.Stderr += econd.Stderr
			if econd.Flow != FlowNone {
				acc.Flow, acc.FlowN, acc.ExitCode = econd.Flow, econd.FlowN, econd.ExitCode
				return acc
			}
			if econd.ExitCode == 0 {
				branch = elif.Body
				break
			}
		}
	}

	if len(branch) == 0 {
		// 没有命中的分支，if整体退出码为0
		acc.ExitCode = 0
		ex.lastExit = 0
		return acc
	}
	body := ex.execCommands(branch)
	acc.Stdout += body.Stdout
	acc.Stderr += body.Stderr
	acc.ExitCode = body.ExitCode
	acc.Flow, acc.FlowN = body.Flow, body.FlowN
	return acc
}

// loopStep 处理循环体执行后的控制流，返回是否继续循环
func loopStep(acc, body *Result) (continueLoop bool, done bool) {
	acc.Stdout += body.Stdout
	acc.Stderr += body.Stderr
	acc.ExitCode = body.ExitCode
	switch body.Flow {
	case FlowBreak:
		if body.FlowN > 1 {
			acc.Flow, acc.FlowN = FlowBreak, body.FlowN-1
		}
		return false, true
	case FlowContinue:
		if body.FlowN > 1 {
			acc.Flow, acc.FlowN = FlowContinue, body.FlowN-1
			return false, true
		}
		return true, false
	case FlowReturn, FlowExit:
		acc.Flow, acc.FlowN = body.Flow, body.FlowN
		return false, true
	}
	return true, false
}

// execFor 执行for循环
func (ex *Executor) execFor(n *parser.ForCommand) *Result {
	acc := &Result{}

	var items []string
	if n.HasWords {
		for _, w := range n.Words {
			fields, eres := ex.expandWord(w)
			if eres != nil {
				return eres
			}
			items = append(items, fields...)
		}
	} else {
		items = append(items, ex.positional()...)
	}

	iterations := 0
	for _, item := range items {
		iterations++
		if iterations > ex.lim.MaxLoopIter {
			return limitFailure(&limits.LimitError{
				Kind: limits.LimitLoopIter, Used: iterations, Limit: ex.lim.MaxLoopIter,
			})
		}
		ex.setVar(n.Variable, item)
		body := ex.execCommands(n.Body)
		cont, done := loopStep(acc, body)
		if done {
			return acc
		}
		if !cont {
			break
		}
	}
	return acc
}

// execArithFor 执行C风格for循环
func (ex *Executor) execArithFor(n *parser.ArithForCommand) *Result {
	acc := &Result{}
	if n.Init != "" {
		if _, err := ex.evalArith(n.Init); err != nil {
			return arithFailure(err)
		}
	}

	iterations := 0
	for {
		cond := int64(1)
		if n.Cond != "" {
			v, err := ex.evalArith(n.Cond)
			if err != nil {
				return arithFailure(err)
			}
			cond = v
		}
		if cond == 0 {
			break
		}
		iterations++
		if iterations > ex.lim.MaxLoopIter {
			return limitFailure(&limits.LimitError{
				Kind: limits.LimitLoopIter, Used: iterations, Limit: ex.lim.MaxLoopIter,
			})
		}

		body := ex.execCommands(n.Body)
		cont, done := loopStep(acc, body)
		if done {
			return acc
		}
		if !cont {
			break
		}

		if n.Step != "" {
			if _, err := ex.evalArith(n.Step); err != nil {
				return arithFailure(err)
			}
		}
	}
	return acc
}

// execLoop 执行while/until循环
func (ex *Executor) execLoop(condition, body []parser.Command, until bool) *Result {
	acc := &Result{}
	iterations := 0
	for {
		cond := ex.execCommands(condition)
		acc.Stdout += cond.Stdout
		acc.Stderr += cond.Stderr
		if cond.Flow != FlowNone {
			acc.Flow, acc.FlowN, acc.ExitCode = cond.Flow, cond.FlowN, cond.ExitCode
			return acc
		}
		met := cond.ExitCode == 0
		if until {
			met = !met
		}
		if !met {
			break
		}

		iterations++
		if iterations > ex.lim.MaxLoopIter {
			return limitFailure(&limits.LimitError{
				Kind: limits.LimitLoopIter, Used: iterations, Limit: ex.lim.MaxLoopIter,
			})
		}

		bres := ex.execCommands(body)
		cont, done := loopStep(acc, bres)
		if done {
			return acc
		}
		if !cont {
			break
		}
	}
	return acc
}

// execCase 执行case分支匹配
func (ex *Executor) execCase(n *parser.CaseCommand) *Result {
	acc := &Result{}
	subject, eres := ex.expandWordSingle(n.Word)
	if eres != nil {
		return eres
	}

	fallthroughNext := false
	for _, item := range n.Items {
		matched := fallthroughNext
		if !matched {
			for _, pat := range item.Patterns {
				text, eres := ex.expandWordSingle(pat)
				if eres != nil {
					return eres
				}
				if matchPattern(text, subject) {
					matched = true
					break
				}
			}
		}
		if !matched {
			continue
		}

		body := ex.execCommands(item.Commands)
		acc.Stdout += body.Stdout
		acc.Stderr += body.Stderr
		acc.ExitCode = body.ExitCode
		if body.Flow != FlowNone {
			acc.Flow, acc.FlowN = body.Flow, body.FlowN
			return acc
		}

		switch item.Terminator {
		case parser.CaseBreak:
			return acc
		case parser.CaseFallThrough:
			fallthroughNext = true
		case parser.CaseContinue:
			fallthroughNext = false
		}
	}
	return acc
}

// execSubshell 在克隆的执行器中运行，状态变更不回传
func (ex *Executor) execSubshell(n *parser.Subshell) *Result {
	sub := ex.clone()
	res := sub.execCommands(n.Commands)
	ex.lastExit = res.ExitCode
	// 子shell的exit只终止子shell
	if res.Flow == FlowExit {
		res.Flow = FlowNone
	}
	return res
}

// execArithCommand 执行 ((expr))，非零为真
func (ex *Executor) execArithCommand(expr string) *Result {
	v, err := ex.evalArith(expr)
	if err != nil {
		return arithFailure(err)
	}
	code := 1
	if v != 0 {
		code = 0
	}
	ex.lastExit = code
	return &Result{ExitCode: code}
}

func arithFailure(err error) *Result {
	var le *limits.LimitError
	if errors.As(err, &le) {
		return limitFailure(err)
	}
	return &Result{Stderr: "sandbash: " + err.Error() + "\n", ExitCode: 1}
}

// execTime 执行time并附加计时报告到stderr
func (ex *Executor) execTime(n *parser.TimeCommand) *Result {
	start := time.Now()
	res := &Result{}
	if n.Command != nil {
		res = ex.execCommand(n.Command)
	}
	res.Stderr += timeReport(time.Since(start), n.Posix)
	return res
}

// execConditional 求值 [[ ... ]]
func (ex *Executor) execConditional(n *parser.Conditional) *Result {
	// 展开为(文本, 是否引号)序列，引号决定模式匹配还是字面比较
	type condWord struct {
		text   string
		quoted bool
	}
	words := make([]condWord, 0, len(n.Words))
	for _, w := range n.Words {
		text, eres := ex.expandWordSingle(w)
		if eres != nil {
			return eres
		}
		words = append(words, condWord{text: text, quoted: w.Quoted})
	}

	texts := make([]string, len(words))
	quoted := make([]bool, len(words))
	for i, w := range words {
		texts[i] = w.text
		quoted[i] = w.quoted
	}

	v, err := ex.evalCondExpr(texts, quoted)
	if err != nil {
		return &Result{Stderr: "sandbash: [[: " + err.Error() + "\n", ExitCode: 2}
	}
	code := 1
	if v {
		code = 0
	}
	ex.lastExit = code
	return &Result{ExitCode: code}
}

// evalCondExpr 递归求值条件表达式：! ( ) && || 与test原语
func (ex *Executor) evalCondExpr(words []string, quoted []bool) (bool, error) {
	if len(words) == 0 {
		return false, nil
	}

	// 顶层 || 优先级最低
	if i := findCondOp(words, quoted, "||"); i >= 0 {
		l, err := ex.evalCondExpr(words[:i], quoted[:i])
		if err != nil {
			return false, err
		}
		if l {
			return true, nil
		}
		return ex.evalCondExpr(words[i+1:], quoted[i+1:])
	}
	if i := findCondOp(words, quoted, "&&"); i >= 0 {
		l, err := ex.evalCondExpr(words[:i], quoted[:i])
		if err != nil {
			return false, err
		}
		if !l {
			return false, nil
		}
		return ex.evalCondExpr(words[i+1:], quoted[i+1:])
	}

	if words[0] == "!" && !quoted[0] {
		v, err := ex.evalCondExpr(words[1:], quoted[1:])
		return !v, err
	}
	if words[0] == "(" && !quoted[0] && words[len(words)-1] == ")" {
		return ex.evalCondExpr(words[1:len(words)-1], quoted[1:len(words)-1])
	}

	switch len(words) {
	case 1:
		return words[0] != "", nil
	case 2:
		return ex.condUnary(words[0], words[1])
	case 3:
		return ex.condBinary(words[0], words[1], quoted[2], words[2])
	}
	return false, runtimeErrorf("too many arguments")
}

// findCondOp 在括号深度0处查找未引号的运算符
// 引号包裹的 "&&" / "||" 是普通操作数，不参与运算符匹配
func findCondOp(words []string, quoted []bool, op string) int {
	depth := 0
	for i, w := range words {
		if quoted[i] {
			continue
		}
		switch w {
		case "(":
			depth++
		case ")":
			depth--
		case op:
			if depth == 0 {
				return i
			}
		}
	}
	return -1
}

// condUnary [[ ]] 一元判断
func (ex *Executor) condUnary(op, operand string) (bool, error) {
	switch op {
	case "-z":
		return operand == "", nil
	case "-n":
		return operand != "", nil
	case "-e":
		return ex.fs.Exists(vfs.NormalizePath(ex.cwd, operand)), nil
	case "-f":
		info, err := ex.fs.Stat(vfs.NormalizePath(ex.cwd, operand))
		return err == nil && !info.IsDir, nil
	case "-d":
		info, err := ex.fs.Stat(vfs.NormalizePath(ex.cwd, operand))
		return err == nil && info.IsDir, nil
	case "-s":
		info, err := ex.fs.Stat(vfs.NormalizePath(ex.cwd, operand))
		return err == nil && info.Size > 0, nil
	case "-L", "-h":
		info, err := ex.fs.Stat(vfs.NormalizePath(ex.cwd, operand))
		return err == nil && info.IsSymlink, nil
	case "-v":
		return ex.varSet(operand), nil
	}
	return false, runtimeErrorf("unknown unary operator %s", op)
}

// condBinary [[ ]] 二元判断
// == / != 的右操作数未引号时按glob模式匹配，=~ 按正则匹配
func (ex *Executor) condBinary(left, op string, rightQuoted bool, right string) (bool, error) {
	switch op {
	case "=", "==":
		if rightQuoted {
			return left == right, nil
		}
		return matchPattern(right, left), nil
	case "!=":
		if rightQuoted {
			return left != right, nil
		}
		return !matchPattern(right, left), nil
	case "=~":
		re, err := regexp.Compile(right)
		if err != nil {
			return false, runtimeErrorf("invalid regex: %v", err)
		}
		return re.MatchString(left), nil
	case "<":
		return left < right, nil
	case ">":
		return left > right, nil
	}

	l, lerr := strconv.ParseInt(left, 10, 64)
	r, rerr := strconv.ParseInt(right, 10, 64)
	switch op {
	case "-eq", "-ne", "-lt", "-le", "-gt", "-ge":
		if lerr != nil || rerr != nil {
			return false, runtimeErrorf("integer expression expected")
		}
	default:
		return false, runtimeErrorf("unknown binary operator %s", op)
	}
	switch op {
	case "-eq":
		return l == r, nil
	case "-ne":
		return l != r, nil
	case "-lt":
		return l < r, nil
	case "-le":
		return l <= r, nil
	case "-gt":
		return l > r, nil
	default:
		return l >= r, nil
	}
}
