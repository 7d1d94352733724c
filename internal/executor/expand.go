package executor

import (
	"fmt"
	"sort"
	"strconv"
	"strings"

	"sandbash/internal/parser"
	"sandbash/internal/vfs"
)

// expandedField 展开后的单词字段
// glob为真表示字段含未引号的模式元字符，参与文件名展开
type expandedField struct {
	text string
	glob bool
}

// fieldBuilder 字段构造器，实现IFS单词分割
type fieldBuilder struct {
	fields  []expandedField
	cur     strings.Builder
	curGlob bool
	started bool
}

// literal 追加不参与分割的文本
func (fb *fieldBuilder) literal(s string, glob bool) {
	fb.cur.WriteString(s)
	fb.started = true
	if glob && strings.ContainsAny(s, "*?[") {
		fb.curGlob = true
	}
}

// splitAppend 追加展开结果，按IFS分割
func (fb *fieldBuilder) splitAppend(s, ifs string) {
	if s == "" {
		return
	}
	inField := fb.started || fb.cur.Len() > 0
	for _, r := range s {
		if strings.ContainsRune(ifs, r) {
			if inField || fb.cur.Len() > 0 {
				fb.flush()
				inField = false
			}
			continue
		}
		fb.cur.WriteRune(r)
		fb.started = true
		inField = true
		if r == '*' || r == '?' || r == '[' {
			fb.curGlob = true
		}
	}
}

// flush 结束当前字段
func (fb *fieldBuilder) flush() {
	fb.fields = append(fb.fields, expandedField{text: fb.cur.String(), glob: fb.curGlob})
	fb.cur.Reset()
	fb.curGlob = false
	fb.started = false
}

// finish 收尾，返回全部字段
func (fb *fieldBuilder) finish() []expandedField {
	if fb.started || fb.cur.Len() > 0 {
		fb.flush()
	}
	return fb.fields
}

// ifs 取当前分割字符集
func (ex *Executor) ifs() string {
	for i := len(ex.frames) - 1; i >= 0; i-- {
		if v, exists := ex.frames[i].locals["IFS"]; exists {
			return v
		}
	}
	if v, exists := ex.vars["IFS"]; exists {
		return v
	}
	if v, exists := ex.env["IFS"]; exists {
		return v
	}
	return " \t\n"
}

// expandWord 完整展开：参数/命令/算术展开、单词分割、文件名展开
func (ex *Executor) expandWord(w *parser.Word) ([]string, *Result) {
	fields, eres := ex.expandFields(w)
	if eres != nil {
		return nil, eres
	}
	var out []string
	for _, f := range fields {
		if f.glob && !w.Quoted {
			matches := ex.globExpand(f.text)
			if len(matches) > 0 {
				out = append(out, matches...)
				continue
			}
		}
		out = append(out, f.text)
	}
	return out, nil
}

// expandWordSingle 展开为单个字符串：不做单词分割与glob
func (ex *Executor) expandWordSingle(w *parser.Word) (string, *Result) {
	var sb strings.Builder
	for _, part := range w.Parts {
		values, isList, eres := ex.expandPart(part, w.Quoted)
		if eres != nil {
			return "", eres
		}
		if isList {
			sb.WriteString(strings.Join(values, " "))
			continue
		}
		for _, v := range values {
			sb.WriteString(v)
		}
	}
	return sb.String(), nil
}

// expandFields 展开单词的各部分并分割
func (ex *Executor) expandFields(w *parser.Word) ([]expandedField, *Result) {
	fb := &fieldBuilder{}
	ifs := ex.ifs()
	for _, part := range w.Parts {
		if lit, isLit := part.(*parser.LiteralPart); isLit {
			fb.literal(lit.Text, !w.Quoted)
			continue
		}
		if grp, isGrp := part.(*parser.QuotedGroupPart); isGrp {
			if eres := ex.expandQuotedGroup(grp, fb); eres != nil {
				return nil, eres
			}
			continue
		}
		values, isList, eres := ex.expandPart(part, w.Quoted)
		if eres != nil {
			return nil, eres
		}
		if isList {
			// "$@"与"${a[@]}"：元素各成一字段，首尾与相邻文本粘连
			for i, v := range values {
				if i > 0 {
					fb.flush()
				}
				if w.Quoted {
					fb.literal(v, false)
				} else {
					fb.splitAppend(v, ifs)
				}
			}
			continue
		}
		for _, v := range values {
			if w.Quoted {
				fb.literal(v, false)
			} else {
				fb.splitAppend(v, ifs)
			}
		}
	}
	return fb.finish(), nil
}

// expandQuotedGroup 展开引号段：不分割、不glob，"$@"仍逐元素成字段
func (ex *Executor) expandQuotedGroup(grp *parser.QuotedGroupPart, fb *fieldBuilder) *Result {
	for _, part := range grp.Parts {
		if lit, isLit := part.(*parser.LiteralPart); isLit {
			fb.literal(lit.Text, false)
			continue
		}
		values, isList, eres := ex.expandPart(part, true)
		if eres != nil {
			return eres
		}
		if isList {
			for i, v := range values {
				if i > 0 {
					fb.flush()
				}
				fb.literal(v, false)
			}
			continue
		}
		for _, v := range values {
			fb.literal(v, false)
		}
	}
	return nil
}

// expandPart 展开单个词部分
// isList为真表示结果按元素成为独立字段（$@与数组[@]）
func (ex *Executor) expandPart(part parser.WordPart, quoted bool) (values []string, isList bool, eres *Result) {
	switch p := part.(type) {
	case *parser.LiteralPart:
		return []string{p.Text}, false, nil

	case *parser.QuotedGroupPart:
		var sb strings.Builder
		for _, inner := range p.Parts {
			values, isList, eres := ex.expandPart(inner, true)
			if eres != nil {
				return nil, false, eres
			}
			if isList {
				sb.WriteString(strings.Join(values, " "))
				continue
			}
			for _, v := range values {
				sb.WriteString(v)
			}
		}
		return []string{sb.String()}, false, nil

	case *parser.VariablePart:
		if p.Name == "@" {
			return append([]string(nil), ex.positional()...), true, nil
		}
		if p.Name == "*" {
			return []string{strings.Join(ex.positional(), " ")}, false, nil
		}
		return []string{ex.specialOrVar(p.Name)}, false, nil

	case *parser.CommandSubPart:
		return []string{ex.commandSubst(p.Commands)}, false, nil

	case *parser.ArithPart:
		v, err := ex.evalArith(p.Expr)
		if err != nil {
			return nil, false, arithFailure(err)
		}
		return []string{strconv.FormatInt(v, 10)}, false, nil

	case *parser.LengthPart:
		if p.Name == "@" || p.Name == "*" {
			return []string{strconv.Itoa(len(ex.positional()))}, false, nil
		}
		return []string{strconv.Itoa(len([]rune(ex.specialOrVar(p.Name))))}, false, nil

	case *parser.ParamExpPart:
		return ex.expandParamOp(p)

	case *parser.SubstringPart:
		v, eres := ex.expandSubstring(p)
		return []string{v}, false, eres

	case *parser.ArrayAccessPart:
		return ex.expandArrayAccess(p)

	case *parser.ArraySlicePart:
		return ex.expandArraySlice(p)

	case *parser.ArrayLengthPart:
		return []string{strconv.Itoa(len(ex.lookupArray(p.Name)))}, false, nil

	case *parser.ArrayIndicesPart:
		arr := ex.lookupArray(p.Name)
		indices := make([]int, 0, len(arr))
		for i := range arr {
			indices = append(indices, i)
		}
		sort.Ints(indices)
		out := make([]string, len(indices))
		for i, idx := range indices {
			out[i] = strconv.Itoa(idx)
		}
		return out, true, nil

	case *parser.IndirectPart:
		target := ex.specialOrVar(p.Name)
		return []string{ex.specialOrVar(target)}, false, nil

	case *parser.PrefixMatchPart:
		return ex.expandPrefixMatch(p.Prefix), true, nil

	case *parser.ProcSubPart:
		path, sres := ex.materializeProcSub(p)
		if sres != nil {
			return nil, false, sres
		}
		return []string{path}, false, nil
	}
	return []string{""}, false, nil
}

// specialOrVar 取特殊参数或普通变量的值
func (ex *Executor) specialOrVar(name string) string {
	switch name {
	case "?":
		return strconv.Itoa(ex.lastExit)
	case "#":
		return strconv.Itoa(len(ex.positional()))
	case "$":
		// 沙箱内无真实进程，进程号固定
		return "1"
	case "!":
		if ex.lastJob == 0 {
			return ""
		}
		return strconv.Itoa(ex.lastJob)
	case "-":
		return "hB"
	case "0":
		return ex.name0
	case "*", "@":
		return strings.Join(ex.positional(), " ")
	}
	if len(name) >= 1 && name[0] >= '1' && name[0] <= '9' {
		if n, err := strconv.Atoi(name); err == nil {
			params := ex.positional()
			if n <= len(params) {
				return params[n-1]
			}
			return ""
		}
	}
	v := ex.getVar(name)
	if v == "" {
		// 标量访问数组名得到下标0的元素
		if arr := ex.lookupArray(name); len(arr) > 0 {
			return arr[0]
		}
	}
	return v
}

// commandSubst 命令替换：捕获stdout并去除尾部换行
// stderr暂存，汇入外层命令的stderr；$?更新为替换命令的退出码
func (ex *Executor) commandSubst(cmds []parser.Command) string {
	res := ex.execCommands(cmds)
	if res.Stderr != "" {
		ex.pendingStderr.WriteString(res.Stderr)
	}
	ex.lastExit = res.ExitCode
	return strings.TrimRight(res.Stdout, "\n")
}

// materializeProcSub 进程替换：命令输出落入虚拟的/dev/fd文件
func (ex *Executor) materializeProcSub(p *parser.ProcSubPart) (string, *Result) {
	ex.procsubSeq++
	path := fmt.Sprintf("/dev/fd/%d", 62+ex.procsubSeq)
	if err := ex.fs.Mkdir("/dev/fd", true); err != nil && err != vfs.ErrExists {
		return "", &Result{Stderr: "sandbash: /dev/fd: " + fsErrMessage(err) + "\n", ExitCode: 1}
	}
	if p.IsInput {
		res := ex.execCommands(p.Commands)
		if res.Stderr != "" {
			ex.pendingStderr.WriteString(res.Stderr)
		}
		if err := ex.fs.WriteFile(path, []byte(res.Stdout)); err != nil {
			return "", &Result{Stderr: "sandbash: " + path + ": " + fsErrMessage(err) + "\n", ExitCode: 1}
		}
		return path, nil
	}
	// >(cmd)：先建空文件，命令完成后由调用方写入；延后执行读取方
	if err := ex.fs.WriteFile(path, nil); err != nil {
		return "", &Result{Stderr: "sandbash: " + path + ": " + fsErrMessage(err) + "\n", ExitCode: 1}
	}
	ex.pendingProcSubs = append(ex.pendingProcSubs, pendingProcSub{path: path, commands: p.Commands})
	return path, nil
}

// expandParamOp ${var:-...}族操作
func (ex *Executor) expandParamOp(p *parser.ParamExpPart) ([]string, bool, *Result) {
	value := ex.specialOrVar(p.Name)
	isSet := ex.varSet(p.Name) || isSpecialName(p.Name)

	// Colon为真时空值视同未设置
	missing := !isSet
	if p.Colon && value == "" {
		missing = true
	}

	switch p.Op {
	case parser.ParamUseDefault:
		if missing {
			v, eres := ex.operandText(p.Operand)
			return []string{v}, false, eres
		}
		return []string{value}, false, nil
	case parser.ParamAssignDefault:
		if missing {
			v, eres := ex.operandText(p.Operand)
			if eres != nil {
				return nil, false, eres
			}
			ex.setVar(p.Name, v)
			return []string{v}, false, nil
		}
		return []string{value}, false, nil
	case parser.ParamUseAlternate:
		if missing {
			return []string{""}, false, nil
		}
		v, eres := ex.operandText(p.Operand)
		return []string{v}, false, eres
	case parser.ParamError:
		if missing {
			msg, eres := ex.operandText(p.Operand)
			if eres != nil {
				return nil, false, eres
			}
			if msg == "" {
				msg = "parameter null or not set"
			}
			return nil, false, &Result{
				Stderr:   fmt.Sprintf("sandbash: %s: %s\n", p.Name, msg),
				ExitCode: 1,
				Flow:     FlowExit,
			}
		}
		return []string{value}, false, nil
	case parser.ParamTrimPrefixShort:
		return []string{trimPatternPrefix(value, p.Pattern, false)}, false, nil
	case parser.ParamTrimPrefixLong:
		return []string{trimPatternPrefix(value, p.Pattern, true)}, false, nil
	case parser.ParamTrimSuffixShort:
		return []string{trimPatternSuffix(value, p.Pattern, false)}, false, nil
	case parser.ParamTrimSuffixLong:
		return []string{trimPatternSuffix(value, p.Pattern, true)}, false, nil
	case parser.ParamReplaceFirst:
		return []string{replacePattern(value, p.Pattern, p.Replacement, false)}, false, nil
	case parser.ParamReplaceAll:
		return []string{replacePattern(value, p.Pattern, p.Replacement, true)}, false, nil
	case parser.ParamUpperFirst:
		return []string{caseFirst(value, true)}, false, nil
	case parser.ParamUpperAll:
		return []string{strings.ToUpper(value)}, false, nil
	case parser.ParamLowerFirst:
		return []string{caseFirst(value, false)}, false, nil
	case parser.ParamLowerAll:
		return []string{strings.ToLower(value)}, false, nil
	}
	return []string{value}, false, nil
}

func isSpecialName(name string) bool {
	switch name {
	case "?", "#", "$", "!", "-", "0", "*", "@":
		return true
	}
	return len(name) > 0 && name[0] >= '1' && name[0] <= '9'
}

// operandText 展开默认值/替代值操作数
func (ex *Executor) operandText(w *parser.Word) (string, *Result) {
	if w == nil {
		return "", nil
	}
	return ex.expandWordSingle(w)
}

// expandSubstring ${v:off:len}，偏移按算术上下文求值，支持负值
func (ex *Executor) expandSubstring(p *parser.SubstringPart) (string, *Result) {
	value := []rune(ex.specialOrVar(p.Name))

	off, err := ex.evalArith(p.Offset)
	if err != nil {
		return "", arithFailure(err)
	}
	start := int(off)
	if start < 0 {
		start += len(value)
	}
	if start < 0 || start > len(value) {
		return "", nil
	}

	end := len(value)
	if p.HasLength {
		l, err := ex.evalArith(p.Length)
		if err != nil {
			return "", arithFailure(err)
		}
		if l < 0 {
			end = len(value) + int(l)
		} else {
			end = start + int(l)
		}
		if end > len(value) {
			end = len(value)
		}
		if end < start {
			end = start
		}
	}
	return string(value[start:end]), nil
}

// expandArrayAccess ${arr[i]}，下标@与*展开全部元素
func (ex *Executor) expandArrayAccess(p *parser.ArrayAccessPart) ([]string, bool, *Result) {
	arr := ex.lookupArray(p.Name)
	index := strings.TrimSpace(p.Index)
	if index == "@" {
		return arrayValues(arr), true, nil
	}
	if index == "*" {
		return []string{strings.Join(arrayValues(arr), " ")}, false, nil
	}
	idx, ires := ex.evalArrayIndex(index)
	if ires != nil {
		return nil, false, ires
	}
	return []string{arr[idx]}, false, nil
}

// expandArraySlice ${arr[@]:off:len}
func (ex *Executor) expandArraySlice(p *parser.ArraySlicePart) ([]string, bool, *Result) {
	values := arrayValues(ex.lookupArray(p.Name))

	off, err := ex.evalArith(p.Offset)
	if err != nil {
		return nil, false, arithFailure(err)
	}
	start := int(off)
	if start < 0 {
		start += len(values)
	}
	if start < 0 || start >= len(values) {
		return nil, true, nil
	}

	end := len(values)
	if p.HasLength {
		l, err := ex.evalArith(p.Length)
		if err != nil {
			return nil, false, arithFailure(err)
		}
		end = start + int(l)
		if end > len(values) {
			end = len(values)
		}
		if end < start {
			end = start
		}
	}
	return values[start:end], true, nil
}

// arrayValues 按下标升序取数组元素
func arrayValues(arr map[int]string) []string {
	indices := make([]int, 0, len(arr))
	for i := range arr {
		indices = append(indices, i)
	}
	sort.Ints(indices)
	out := make([]string, len(indices))
	for i, idx := range indices {
		out[i] = arr[idx]
	}
	return out
}

// expandPrefixMatch ${!prefix*}：按字典序列出匹配前缀的变量名
func (ex *Executor) expandPrefixMatch(prefix string) []string {
	seen := make(map[string]bool)
	var names []string
	collect := func(m map[string]string) {
		for name := range m {
			if strings.HasPrefix(name, prefix) && !seen[name] {
				seen[name] = true
				names = append(names, name)
			}
		}
	}
	for i := len(ex.frames) - 1; i >= 0; i-- {
		collect(ex.frames[i].locals)
	}
	collect(ex.vars)
	collect(ex.env)
	sort.Strings(names)
	return names
}
