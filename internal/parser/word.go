package parser

import (
	"strings"

	"sandbash/internal/limits"
)

// ParseExpansionText 将一段原文按双引号上下文解析为Word
// 算术展开先对表达式文本做参数替换与命令替换，再交给求值器
func ParseExpansionText(text string, lim limits.ExecutionLimits) (*Word, error) {
	return NewWithLimits("", lim, nil).parseWordText(text, true)
}

// parseWordText 将单词原文解析为片段序列
// 识别引号段、$name、${...}、$( )、$(( ))、反引号
// inDQuote 表示原文来自双引号内部（转义规则不同，单引号失去特殊含义）
func (p *Parser) parseWordText(raw string, inDQuote bool) (*Word, error) {
	w := &Word{}
	var lit strings.Builder
	flush := func() {
		if lit.Len() > 0 {
			w.Parts = append(w.Parts, &LiteralPart{Text: lit.String()})
			lit.Reset()
		}
	}

	i := 0
	for i < len(raw) {
		c := raw[i]
		switch {
		case c == '\'' && !inDQuote:
			end := strings.IndexByte(raw[i+1:], '\'')
			if end < 0 {
				return nil, &ParseError{Type: ErrorTypeUnclosedQuote, Message: "unterminated single quote"}
			}
			flush()
			w.Parts = append(w.Parts, &QuotedGroupPart{
				Parts: []WordPart{&LiteralPart{Text: raw[i+1 : i+1+end]}},
			})
			i += end + 2
		case c == '"' && !inDQuote:
			end, err := findClosingDQuote(raw, i+1)
			if err != nil {
				return nil, err
			}
			inner, err := p.parseWordText(raw[i+1:end], true)
			if err != nil {
				return nil, err
			}
			flush()
			w.Parts = append(w.Parts, &QuotedGroupPart{Parts: inner.Parts})
			i = end + 1
		case c == '\\':
			if i+1 >= len(raw) {
				lit.WriteByte('\\')
				i++
				break
			}
			next := raw[i+1]
			if inDQuote {
				// 双引号内仅 $ ` " \ 可被转义
				switch next {
				case '$', '`', '"', '\\':
					lit.WriteByte(next)
				default:
					lit.WriteByte('\\')
					lit.WriteByte(next)
				}
			} else {
				lit.WriteByte(next)
			}
			i += 2
		case c == '`':
			end := findClosingBacktick(raw, i+1)
			if end < 0 {
				return nil, &ParseError{Type: ErrorTypeUnclosedQuote, Message: "unterminated backquote"}
			}
			cmds, err := p.subParse(raw[i+1 : end])
			if err != nil {
				return nil, err
			}
			flush()
			w.Parts = append(w.Parts, &CommandSubPart{Commands: cmds})
			i = end + 1
		case c == '$':
			part, next, err := p.parseDollar(raw, i)
			if err != nil {
				return nil, err
			}
			if part == nil {
				lit.WriteByte('$')
				i++
				break
			}
			flush()
			w.Parts = append(w.Parts, part)
			i = next
		default:
			lit.WriteByte(c)
			i++
		}
	}
	flush()
	return w.Normalize(), nil
}

// parseDollar 解析 $ 引导的展开，返回片段与扫描终点
// 返回nil片段表示孤立的 $ 按字面量处理
func (p *Parser) parseDollar(raw string, i int) (WordPart, int, error) {
	if i+1 >= len(raw) {
		return nil, 0, nil
	}
	c := raw[i+1]
	switch {
	case c == '(' && i+2 < len(raw) && raw[i+2] == '(':
		// $((expr)) 算术展开；注意与 $( (subshell) ) 无空格时的歧义按算术处理
		end := findArithEnd(raw, i+3)
		if end < 0 {
			return nil, 0, &ParseError{Type: ErrorTypeUnclosedExpansion, Message: "unterminated arithmetic expansion"}
		}
		return &ArithPart{Expr: raw[i+3 : end]}, end + 2, nil
	case c == '(':
		end := findClosingParen(raw, i+2)
		if end < 0 {
			return nil, 0, &ParseError{Type: ErrorTypeUnclosedExpansion, Message: "unterminated command substitution"}
		}
		cmds, err := p.subParse(raw[i+2 : end])
		if err != nil {
			return nil, 0, err
		}
		return &CommandSubPart{Commands: cmds}, end + 1, nil
	case c == '{':
		end := findClosingBrace(raw, i+2)
		if end < 0 {
			return nil, 0, &ParseError{Type: ErrorTypeUnclosedExpansion, Message: "unterminated parameter expansion"}
		}
		part, err := p.parseBraceExpansion(raw[i+2 : end])
		if err != nil {
			return nil, 0, err
		}
		return part, end + 1, nil
	case isNameStart(c):
		j := i + 1
		for j < len(raw) && isNameChar(raw[j]) {
			j++
		}
		return &VariablePart{Name: raw[i+1 : j]}, j, nil
	case isSpecialParam(c):
		return &VariablePart{Name: string(c)}, i + 2, nil
	}
	return nil, 0, nil
}

// parseBraceExpansion 解析 ${...} 内部的参数展开语法
// 嵌套的 ${a:-${b:-...}} 经由操作数递归回到单词解析，计入共享深度预算
func (p *Parser) parseBraceExpansion(content string) (WordPart, error) {
	if err := p.budget.push(); err != nil {
		return nil, err
	}
	defer p.budget.pop()
	if err := p.budget.tick(); err != nil {
		return nil, err
	}
	if content == "" {
		return nil, &ParseError{Type: ErrorTypeSyntax, Message: "bad substitution: ${}"}
	}

	// ${#var} / ${#arr[@]}
	if content[0] == '#' && len(content) > 1 {
		rest := content[1:]
		if name, ok := trimArraySuffix(rest); ok {
			return &ArrayLengthPart{Name: name}, nil
		}
		return &LengthPart{Name: rest}, nil
	}

	// ${!var} / ${!arr[@]} / ${!prefix*}
	if content[0] == '!' && len(content) > 1 {
		rest := content[1:]
		if name, ok := trimArraySuffix(rest); ok {
			return &ArrayIndicesPart{Name: name}, nil
		}
		if strings.HasSuffix(rest, "*") || strings.HasSuffix(rest, "@") {
			return &PrefixMatchPart{Prefix: rest[:len(rest)-1]}, nil
		}
		return &IndirectPart{Name: rest}, nil
	}

	// 参数名
	j := 0
	if isSpecialParam(content[0]) {
		j = 1
	} else {
		for j < len(content) && isNameChar(content[j]) {
			j++
		}
	}
	if j == 0 {
		return nil, &ParseError{Type: ErrorTypeSyntax, Message: "bad substitution: ${" + content + "}"}
	}
	name := content[:j]
	rest := content[j:]

	// 数组访问 ${arr[i]}，可跟切片 ${arr[@]:off:len}
	if strings.HasPrefix(rest, "[") {
		close := strings.IndexByte(rest, ']')
		if close < 0 {
			return nil, &ParseError{Type: ErrorTypeUnclosedExpansion, Message: "unterminated array subscript"}
		}
		index := rest[1:close]
		after := rest[close+1:]
		if after == "" {
			return &ArrayAccessPart{Name: name, Index: index}, nil
		}
		if strings.HasPrefix(after, ":") && (index == "@" || index == "*") {
			offset, length, hasLen := splitSlice(after[1:])
			return &ArraySlicePart{Name: name, Offset: offset, Length: length, HasLength: hasLen}, nil
		}
		return nil, &ParseError{Type: ErrorTypeSyntax, Message: "bad substitution: ${" + content + "}"}
	}

	if rest == "" {
		return &VariablePart{Name: name}, nil
	}

	// 操作符
	makeOperand := func(s string) (*Word, error) {
		return p.parseWordText(s, false)
	}
	switch {
	case strings.HasPrefix(rest, ":-"), strings.HasPrefix(rest, ":="),
		strings.HasPrefix(rest, ":+"), strings.HasPrefix(rest, ":?"):
		op := map[byte]ParamOp{'-': ParamUseDefault, '=': ParamAssignDefault, '+': ParamUseAlternate, '?': ParamError}[rest[1]]
		operand, err := makeOperand(rest[2:])
		if err != nil {
			return nil, err
		}
		return &ParamExpPart{Name: name, Op: op, Operand: operand, Colon: true}, nil
	case strings.HasPrefix(rest, ":"):
		// 子串截取 ${var:offset} / ${var:offset:length}
		offset, length, hasLen := splitSlice(rest[1:])
		return &SubstringPart{Name: name, Offset: offset, Length: length, HasLength: hasLen}, nil
	case rest[0] == '-' || rest[0] == '=' || rest[0] == '+' || rest[0] == '?':
		op := map[byte]ParamOp{'-': ParamUseDefault, '=': ParamAssignDefault, '+': ParamUseAlternate, '?': ParamError}[rest[0]]
		operand, err := makeOperand(rest[1:])
		if err != nil {
			return nil, err
		}
		return &ParamExpPart{Name: name, Op: op, Operand: operand}, nil
	case strings.HasPrefix(rest, "##"):
		return &ParamExpPart{Name: name, Op: ParamTrimPrefixLong, Pattern: rest[2:]}, nil
	case rest[0] == '#':
		return &ParamExpPart{Name: name, Op: ParamTrimPrefixShort, Pattern: rest[1:]}, nil
	case strings.HasPrefix(rest, "%%"):
		return &ParamExpPart{Name: name, Op: ParamTrimSuffixLong, Pattern: rest[2:]}, nil
	case rest[0] == '%':
		return &ParamExpPart{Name: name, Op: ParamTrimSuffixShort, Pattern: rest[1:]}, nil
	case strings.HasPrefix(rest, "//"):
		pat, rep := splitReplacement(rest[2:])
		return &ParamExpPart{Name: name, Op: ParamReplaceAll, Pattern: pat, Replacement: rep}, nil
	case rest[0] == '/':
		pat, rep := splitReplacement(rest[1:])
		return &ParamExpPart{Name: name, Op: ParamReplaceFirst, Pattern: pat, Replacement: rep}, nil
	case strings.HasPrefix(rest, "^^"):
		return &ParamExpPart{Name: name, Op: ParamUpperAll}, nil
	case rest[0] == '^':
		return &ParamExpPart{Name: name, Op: ParamUpperFirst}, nil
	case strings.HasPrefix(rest, ",,"):
		return &ParamExpPart{Name: name, Op: ParamLowerAll}, nil
	case rest[0] == ',':
		return &ParamExpPart{Name: name, Op: ParamLowerFirst}, nil
	}
	return nil, &ParseError{Type: ErrorTypeSyntax, Message: "bad substitution: ${" + content + "}"}
}

// splitSlice 拆分 offset[:length]，冒号只在顶层生效
func splitSlice(s string) (offset, length string, hasLen bool) {
	depth := 0
	for i := 0; i < len(s); i++ {
		switch s[i] {
		case '(':
			depth++
		case ')':
			depth--
		case ':':
			if depth == 0 {
				return strings.TrimSpace(s[:i]), strings.TrimSpace(s[i+1:]), true
			}
		}
	}
	return strings.TrimSpace(s), "", false
}

// splitReplacement 拆分 pattern/replacement，反斜杠转义的斜杠不作分隔
func splitReplacement(s string) (pattern, replacement string) {
	for i := 0; i < len(s); i++ {
		if s[i] == '\\' {
			i++
			continue
		}
		if s[i] == '/' {
			return s[:i], s[i+1:]
		}
	}
	return s, ""
}

// trimArraySuffix 去除 [@] / [*] 后缀，返回数组名
func trimArraySuffix(s string) (string, bool) {
	if strings.HasSuffix(s, "[@]") || strings.HasSuffix(s, "[*]") {
		return s[:len(s)-3], true
	}
	return "", false
}

// findClosingDQuote 查找闭合双引号，跳过转义
func findClosingDQuote(s string, from int) (int, error) {
	for i := from; i < len(s); i++ {
		switch s[i] {
		case '\\':
			i++
		case '"':
			return i, nil
		}
	}
	return 0, &ParseError{Type: ErrorTypeUnclosedQuote, Message: "unterminated double quote"}
}

// findClosingBacktick 查找闭合反引号
func findClosingBacktick(s string, from int) int {
	for i := from; i < len(s); i++ {
		switch s[i] {
		case '\\':
			i++
		case '`':
			return i
		}
	}
	return -1
}

// findClosingParen 查找配对右括号，括号深度与引号感知
func findClosingParen(s string, from int) int {
	depth := 1
	for i := from; i < len(s); i++ {
		switch s[i] {
		case '\\':
			i++
		case '\'', '"':
			q := s[i]
			for i++; i < len(s) && s[i] != q; i++ {
				if q == '"' && s[i] == '\\' {
					i++
				}
			}
			if i >= len(s) {
				return -1
			}
		case '(':
			depth++
		case ')':
			depth--
			if depth == 0 {
				return i
			}
		}
	}
	return -1
}

// findClosingBrace 查找配对右大括号
func findClosingBrace(s string, from int) int {
	depth := 1
	for i := from; i < len(s); i++ {
		switch s[i] {
		case '\\':
			i++
		case '\'', '"':
			q := s[i]
			for i++; i < len(s) && s[i] != q; i++ {
				if q == '"' && s[i] == '\\' {
					i++
				}
			}
			if i >= len(s) {
				return -1
			}
		case '{':
			depth++
		case '}':
			depth--
			if depth == 0 {
				return i
			}
		}
	}
	return -1
}

// findArithEnd 查找 $(( 的闭合 ))，返回内容终点
func findArithEnd(s string, from int) int {
	depth := 0
	for i := from; i < len(s); i++ {
		switch s[i] {
		case '(':
			depth++
		case ')':
			if depth == 0 {
				if i+1 < len(s) && s[i+1] == ')' {
					return i
				}
				return -1
			}
			depth--
		}
	}
	return -1
}

// isNameStart 判断是否为变量名首字符
func isNameStart(ch byte) bool {
	return ch == '_' || ('a' <= ch && ch <= 'z') || ('A' <= ch && ch <= 'Z')
}

// isNameChar 判断是否为变量名字符
func isNameChar(ch byte) bool {
	return isNameStart(ch) || ('0' <= ch && ch <= '9')
}

// isSpecialParam 判断是否为特殊参数字符（$? $# $@ 等）
func isSpecialParam(ch byte) bool {
	switch ch {
	case '?', '#', '@', '*', '$', '!', '-':
		return true
	}
	return '0' <= ch && ch <= '9'
}
