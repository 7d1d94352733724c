// Package lexer 提供词法分析功能，将脚本文本分解为带跨度的token序列
package lexer

import (
	"strings"
)

// Lexer 词法分析器
// 负责将输入的shell脚本字符串分解为一系列token
// here-document 在遇到 << 时被立即读取，读取后游标跳过正文行
type Lexer struct {
	input        string
	position     int  // 当前位置
	readPosition int  // 读取位置
	ch           byte // 当前字符
	line         int  // 当前行号
	column       int  // 当前列号
	inCond       bool // 是否处于 [[ ]] 条件表达式内部
}

// New 创建新的词法分析器
func New(input string) *Lexer {
	l := &Lexer{
		input:  input,
		line:   1,
		column: 0,
	}
	l.readChar()
	return l
}

// readChar 读取下一个字符
func (l *Lexer) readChar() {
	if l.readPosition >= len(l.input) {
		l.ch = 0
	} else {
		l.ch = l.input[l.readPosition]
	}
	l.position = l.readPosition
	l.readPosition++
	if l.ch == '\n' {
		l.line++
		l.column = 0
	} else {
		l.column++
	}
}

// peekChar 查看下一个字符但不移动位置
func (l *Lexer) peekChar() byte {
	if l.readPosition >= len(l.input) {
		return 0
	}
	return l.input[l.readPosition]
}

// peekChar2 查看下下个字符
func (l *Lexer) peekChar2() byte {
	if l.readPosition+1 >= len(l.input) {
		return 0
	}
	return l.input[l.readPosition+1]
}

// skipWhitespace 跳过空白、行续接和注释
func (l *Lexer) skipWhitespace() {
	for {
		switch {
		case l.ch == ' ' || l.ch == '\t' || l.ch == '\r':
			l.readChar()
		case l.ch == '\\' && l.peekChar() == '\n':
			l.readChar()
			l.readChar()
		case l.ch == '#':
			for l.ch != '\n' && l.ch != 0 {
				l.readChar()
			}
		default:
			return
		}
	}
}

// NextToken 读取下一个token
func (l *Lexer) NextToken() Token {
	l.skipWhitespace()

	tok := Token{Line: l.line, Column: l.column, Fd: -1}

	if l.inCond {
		return l.nextCondToken(tok)
	}

	switch l.ch {
	case 0:
		tok.Type = EOF
		return tok
	case '\n':
		tok.Type = NEWLINE
		tok.Literal = "\n"
		l.readChar()
		return tok
	case '|':
		if l.peekChar() == '|' {
			l.readChar()
			l.readChar()
			tok.Type = OR_IF
			tok.Literal = "||"
		} else {
			l.readChar()
			tok.Type = PIPE
			tok.Literal = "|"
		}
		return tok
	case '&':
		if l.peekChar() == '&' {
			l.readChar()
			l.readChar()
			tok.Type = AND_IF
			tok.Literal = "&&"
		} else if l.peekChar() == '>' {
			l.readChar()
			l.readChar()
			tok.Type = REDIR_OUT_BOTH
			tok.Literal = "&>"
		} else {
			l.readChar()
			tok.Type = AMP
			tok.Literal = "&"
		}
		return tok
	case ';':
		if l.peekChar() == ';' && l.peekChar2() == '&' {
			l.readChar()
			l.readChar()
			l.readChar()
			tok.Type = DSEMI_AND
			tok.Literal = ";;&"
		} else if l.peekChar() == ';' {
			l.readChar()
			l.readChar()
			tok.Type = DSEMI
			tok.Literal = ";;"
		} else if l.peekChar() == '&' {
			l.readChar()
			l.readChar()
			tok.Type = SEMI_AND
			tok.Literal = ";&"
		} else {
			l.readChar()
			tok.Type = SEMI
			tok.Literal = ";"
		}
		return tok
	case '(':
		if l.peekChar() == '(' {
			l.readChar()
			l.readChar()
			return l.readArithCommand(tok)
		}
		l.readChar()
		tok.Type = LPAREN
		tok.Literal = "("
		return tok
	case ')':
		l.readChar()
		tok.Type = RPAREN
		tok.Literal = ")"
		return tok
	case '{':
		if isWordBoundary(l.peekChar()) {
			l.readChar()
			tok.Type = LBRACE
			tok.Literal = "{"
			return tok
		}
	case '}':
		if isWordBoundary(l.peekChar()) || l.peekChar() == ')' {
			l.readChar()
			tok.Type = RBRACE
			tok.Literal = "}"
			return tok
		}
	case '[':
		if l.peekChar() == '[' && (l.peekChar2() == ' ' || l.peekChar2() == '\t') {
			l.readChar()
			l.readChar()
			l.inCond = true
			tok.Type = COND_START
			tok.Literal = "[["
			return tok
		}
	case '<', '>':
		return l.readRedirect(tok, -1)
	}

	// N> N>> N>&M 形式的文件描述符重定向
	if isDigit(l.ch) {
		i := l.position
		for i < len(l.input) && isDigit(l.input[i]) {
			i++
		}
		if i < len(l.input) && (l.input[i] == '>' || l.input[i] == '<') {
			start := l.position
			for isDigit(l.ch) {
				l.readChar()
			}
			fd := 0
			for _, c := range l.input[start:i] {
				fd = fd*10 + int(c-'0')
			}
			return l.readRedirect(tok, fd)
		}
	}

	return l.readWord(tok, false)
}

// nextCondToken 在 [[ ]] 内部读取token
// 条件表达式里 < > ( ) ! 等都按普通单词处理，直到遇到 ]]
func (l *Lexer) nextCondToken(tok Token) Token {
	switch l.ch {
	case 0:
		tok.Type = EOF
		return tok
	case '\n':
		tok.Type = NEWLINE
		tok.Literal = "\n"
		l.readChar()
		return tok
	}
	if l.ch == ']' && l.peekChar() == ']' {
		l.readChar()
		l.readChar()
		l.inCond = false
		tok.Type = COND_END
		tok.Literal = "]]"
		return tok
	}
	return l.readWord(tok, true)
}

// readRedirect 读取重定向操作符，fd为前缀文件描述符（-1表示未指定）
func (l *Lexer) readRedirect(tok Token, fd int) Token {
	tok.Fd = fd
	if l.ch == '>' {
		switch {
		case l.peekChar() == '>':
			l.readChar()
			l.readChar()
			tok.Type = REDIR_APPEND
			tok.Literal = ">>"
		case l.peekChar() == '&':
			l.readChar()
			l.readChar()
			if isDigit(l.ch) {
				start := l.position
				for isDigit(l.ch) {
					l.readChar()
				}
				tok.Type = REDIR_DUP_OUT
				tok.Literal = l.input[start:l.position]
			} else {
				// >&file 等价于 &>file
				tok.Type = REDIR_OUT_BOTH
				tok.Literal = ">&"
			}
		case l.peekChar() == '(' && fd < 0:
			l.readChar()
			l.readChar()
			return l.readBalancedParen(tok, PROCSUB_OUT)
		default:
			l.readChar()
			tok.Type = REDIR_OUT
			tok.Literal = ">"
		}
		return tok
	}
	// '<'
	switch {
	case l.peekChar() == '<' && l.peekChar2() == '<':
		l.readChar()
		l.readChar()
		l.readChar()
		tok.Type = REDIR_HERESTRING
		tok.Literal = "<<<"
	case l.peekChar() == '<' && l.peekChar2() == '-':
		l.readChar()
		l.readChar()
		l.readChar()
		return l.readHeredoc(tok, true)
	case l.peekChar() == '<':
		l.readChar()
		l.readChar()
		return l.readHeredoc(tok, false)
	case l.peekChar() == '&':
		l.readChar()
		l.readChar()
		start := l.position
		for isDigit(l.ch) {
			l.readChar()
		}
		tok.Type = REDIR_DUP_IN
		tok.Literal = l.input[start:l.position]
	case l.peekChar() == '(' && fd < 0:
		l.readChar()
		l.readChar()
		return l.readBalancedParen(tok, PROCSUB_IN)
	default:
		l.readChar()
		tok.Type = REDIR_IN
		tok.Literal = "<"
	}
	return tok
}

// readHeredoc 立即读取here-document正文
// 读取后对输入做拼接，游标越过被捕获的行，下一个token属于heredoc之后的命令
func (l *Lexer) readHeredoc(tok Token, strip bool) Token {
	for l.ch == ' ' || l.ch == '\t' {
		l.readChar()
	}
	quoted := false
	var delim string
	if l.ch == '\'' || l.ch == '"' {
		q := l.ch
		quoted = true
		l.readChar()
		start := l.position
		for l.ch != q && l.ch != 0 {
			l.readChar()
		}
		delim = l.input[start:l.position]
		if l.ch == 0 {
			tok.Type = ILLEGAL
			tok.Literal = "<<" + delim
			return tok
		}
		l.readChar()
	} else {
		start := l.position
		for !isWordBoundary(l.ch) && !isOperatorChar(l.ch) {
			l.readChar()
		}
		delim = l.input[start:l.position]
	}
	if delim == "" {
		tok.Type = ILLEGAL
		tok.Literal = "<<"
		return tok
	}

	nl := strings.IndexByte(l.input[l.position:], '\n')
	if nl < 0 {
		tok.Type = ILLEGAL
		tok.Literal = "<<" + delim
		return tok
	}
	bodyStart := l.position + nl + 1

	var body strings.Builder
	idx := bodyStart
	found := false
	for idx <= len(l.input) {
		lineEnd := strings.IndexByte(l.input[idx:], '\n')
		var line string
		var next int
		if lineEnd < 0 {
			line = l.input[idx:]
			next = len(l.input)
		} else {
			line = l.input[idx : idx+lineEnd]
			next = idx + lineEnd + 1
		}
		check := line
		if strip {
			check = strings.TrimLeft(line, "\t")
		}
		if check == delim {
			found = true
			idx = next
			break
		}
		if strip {
			body.WriteString(check)
		} else {
			body.WriteString(line)
		}
		body.WriteByte('\n')
		if lineEnd < 0 {
			idx = next
			break
		}
		idx = next
	}
	if !found {
		tok.Type = ILLEGAL
		tok.Literal = "<<" + delim
		return tok
	}

	// 从输入中摘除正文与定界符行，当前行余下部分继续正常词法分析
	l.input = l.input[:bodyStart] + l.input[idx:]

	tok.Type = HEREDOC
	tok.Literal = body.String()
	tok.Quoted = quoted
	tok.Strip = strip
	return tok
}

// readArithCommand 读取 ((...)) 算术命令原文
func (l *Lexer) readArithCommand(tok Token) Token {
	var sb strings.Builder
	depth := 2
	for depth > 0 && l.ch != 0 {
		if l.ch == '(' {
			depth++
			sb.WriteByte(l.ch)
		} else if l.ch == ')' {
			depth--
			if depth > 0 {
				sb.WriteByte(l.ch)
			}
		} else {
			sb.WriteByte(l.ch)
		}
		l.readChar()
	}
	if depth > 0 {
		tok.Type = ILLEGAL
		tok.Literal = "(("
		return tok
	}
	tok.Type = ARITH
	tok.Literal = strings.TrimSuffix(sb.String(), ")")
	return tok
}

// readBalancedParen 读取括号平衡的原文（进程替换内部命令）
func (l *Lexer) readBalancedParen(tok Token, typ TokenType) Token {
	var sb strings.Builder
	depth := 1
	for depth > 0 && l.ch != 0 {
		switch l.ch {
		case '(':
			depth++
			sb.WriteByte(l.ch)
		case ')':
			depth--
			if depth > 0 {
				sb.WriteByte(l.ch)
			}
		case '\'', '"':
			q := l.ch
			sb.WriteByte(l.ch)
			l.readChar()
			for l.ch != q && l.ch != 0 {
				sb.WriteByte(l.ch)
				l.readChar()
			}
			if l.ch == 0 {
				tok.Type = ILLEGAL
				tok.Literal = sb.String()
				return tok
			}
			sb.WriteByte(l.ch)
		default:
			sb.WriteByte(l.ch)
		}
		l.readChar()
	}
	if depth > 0 {
		tok.Type = ILLEGAL
		tok.Literal = sb.String()
		return tok
	}
	tok.Type = typ
	tok.Literal = sb.String()
	return tok
}

// readWord 读取一个完整单词
// 单词可以混合裸文本、引号段、变量与各种替换段，原文原样保留交给语法分析器
// 整体为单个引号段的单词退化为 STRING_SINGLE / STRING_DOUBLE
func (l *Lexer) readWord(tok Token, cond bool) Token {
	var sb strings.Builder
	segments := 0
	firstSingle := false
	firstDouble := false
	var firstContent string

	for !l.wordEnd(cond) {
		switch l.ch {
		case '\'':
			content, ok := l.readQuotedRaw('\'')
			if !ok {
				tok.Type = ILLEGAL
				tok.Literal = "'"
				return tok
			}
			if segments == 0 {
				firstSingle = true
				firstContent = content
			}
			sb.WriteByte('\'')
			sb.WriteString(content)
			sb.WriteByte('\'')
			segments++
		case '"':
			content, ok := l.readQuotedRaw('"')
			if !ok {
				tok.Type = ILLEGAL
				tok.Literal = "\""
				return tok
			}
			if segments == 0 {
				firstDouble = true
				firstContent = content
			}
			sb.WriteByte('"')
			sb.WriteString(content)
			sb.WriteByte('"')
			segments++
		case '`':
			content, ok := l.readQuotedRaw('`')
			if !ok {
				tok.Type = ILLEGAL
				tok.Literal = "`"
				return tok
			}
			sb.WriteByte('`')
			sb.WriteString(content)
			sb.WriteByte('`')
			segments++
		case '\\':
			sb.WriteByte(l.ch)
			l.readChar()
			if l.ch != 0 {
				sb.WriteByte(l.ch)
				l.readChar()
			}
			segments++
		case '$':
			if !l.readDollar(&sb) {
				tok.Type = ILLEGAL
				tok.Literal = "$"
				return tok
			}
			segments++
		default:
			sb.WriteByte(l.ch)
			l.readChar()
			segments++
		}
	}

	raw := sb.String()
	if segments == 1 && firstSingle {
		tok.Type = STRING_SINGLE
		tok.Literal = firstContent
		tok.Quoted = true
		return tok
	}
	if segments == 1 && firstDouble {
		tok.Type = STRING_DOUBLE
		tok.Literal = firstContent
		tok.Quoted = true
		return tok
	}
	tok.Type = WORD
	tok.Literal = raw
	return tok
}

// readQuotedRaw 读取引号段的原始内容（不含引号），消费闭合引号
func (l *Lexer) readQuotedRaw(quote byte) (string, bool) {
	l.readChar() // 跳过起始引号
	var sb strings.Builder
	for l.ch != quote {
		if l.ch == 0 {
			return sb.String(), false
		}
		if quote != '\'' && l.ch == '\\' {
			sb.WriteByte(l.ch)
			l.readChar()
			if l.ch == 0 {
				return sb.String(), false
			}
			sb.WriteByte(l.ch)
			l.readChar()
			continue
		}
		sb.WriteByte(l.ch)
		l.readChar()
	}
	l.readChar() // 跳过闭合引号
	return sb.String(), true
}

// readDollar 读取 $ 引导的段并追加到单词原文
// 处理 $( )、$(( ))、${ } 的括号平衡，内部引号不参与配对
func (l *Lexer) readDollar(sb *strings.Builder) bool {
	sb.WriteByte('$')
	l.readChar()
	switch l.ch {
	case '(':
		depth := 0
		for {
			if l.ch == 0 {
				return false
			}
			if l.ch == '\'' || l.ch == '"' {
				q := l.ch
				sb.WriteByte(l.ch)
				l.readChar()
				for l.ch != q && l.ch != 0 {
					sb.WriteByte(l.ch)
					l.readChar()
				}
				if l.ch == 0 {
					return false
				}
				sb.WriteByte(l.ch)
				l.readChar()
				continue
			}
			if l.ch == '(' {
				depth++
			} else if l.ch == ')' {
				depth--
			}
			sb.WriteByte(l.ch)
			l.readChar()
			if depth == 0 {
				return true
			}
		}
	case '{':
		depth := 0
		for {
			if l.ch == 0 {
				return false
			}
			if l.ch == '\'' || l.ch == '"' {
				q := l.ch
				sb.WriteByte(l.ch)
				l.readChar()
				for l.ch != q && l.ch != 0 {
					sb.WriteByte(l.ch)
					l.readChar()
				}
				if l.ch == 0 {
					return false
				}
				sb.WriteByte(l.ch)
				l.readChar()
				continue
			}
			if l.ch == '{' {
				depth++
			} else if l.ch == '}' {
				depth--
			}
			sb.WriteByte(l.ch)
			l.readChar()
			if depth == 0 {
				return true
			}
		}
	default:
		// $VAR、$?、$# 等留给单词解析器处理
		return true
	}
}

// wordEnd 判断当前字符是否终结单词
func (l *Lexer) wordEnd(cond bool) bool {
	if l.ch == 0 {
		return true
	}
	if cond {
		return l.ch == ' ' || l.ch == '\t' || l.ch == '\r' || l.ch == '\n'
	}
	switch l.ch {
	case ' ', '\t', '\r', '\n', '|', '&', ';', '(', ')', '<', '>':
		return true
	}
	return false
}

// isWordBoundary 判断字符是否为单词边界
func isWordBoundary(ch byte) bool {
	switch ch {
	case 0, ' ', '\t', '\r', '\n', ';', '&', '|':
		return true
	}
	return false
}

// isOperatorChar 判断是否为操作符起始字符
func isOperatorChar(ch byte) bool {
	switch ch {
	case '|', '&', ';', '(', ')', '<', '>':
		return true
	}
	return false
}

// isDigit 判断是否为数字
func isDigit(ch byte) bool {
	return '0' <= ch && ch <= '9'
}
