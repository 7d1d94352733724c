// Package arith 实现shell算术展开 $((...)) 的求值
// 采用优先级爬升法，遵循C风格运算符优先级与结合性
package arith

import (
	"fmt"
	"strconv"
	"strings"

	"sandbash/internal/limits"
)

// Scope 算术求值所需的变量读写接口
type Scope interface {
	Get(name string) string
	Set(name, value string)
}

// EvalError 算术求值错误
type EvalError struct {
	Message string
	Expr    string
}

func (e *EvalError) Error() string {
	return fmt.Sprintf("arithmetic error: %s in %q", e.Message, e.Expr)
}

// Eval 对算术表达式求值，空表达式求值为0
// 括号嵌套深度按解析深度硬上限约束
func Eval(expr string, scope Scope) (int64, error) {
	return EvalDepth(expr, scope, limits.HardMaxParseDepth)
}

// EvalDepth 以指定的括号嵌套上限求值，超限返回LimitError
func EvalDepth(expr string, scope Scope, maxDepth int) (int64, error) {
	if maxDepth <= 0 || maxDepth > limits.HardMaxParseDepth {
		maxDepth = limits.HardMaxParseDepth
	}
	if strings.TrimSpace(expr) == "" {
		return 0, nil
	}
	e := &evaluator{src: expr, scope: scope, maxDepth: maxDepth}
	e.next()
	v, err := e.parseExpr(0)
	if err != nil {
		return 0, err
	}
	if e.tok.kind != tkEOF {
		return 0, e.errorf("unexpected token '%s'", e.tok.text)
	}
	return v, nil
}

type tokenKind int

const (
	tkEOF tokenKind = iota
	tkNumber
	tkName
	tkOp
)

type token struct {
	kind tokenKind
	text string
	num  int64
}

type evaluator struct {
	src      string
	pos      int
	tok      token
	scope    Scope
	depth    int // 当前括号嵌套深度
	maxDepth int
	dead     int // >0 表示处于未选中的分支，抑制赋值与自增副作用
}

// setVar 写回变量；短路或三元未选中分支内不落地
func (e *evaluator) setVar(name string, v int64) {
	if e.dead == 0 {
		e.scope.Set(name, strconv.FormatInt(v, 10))
	}
}

func (e *evaluator) errorf(format string, args ...interface{}) error {
	return &EvalError{Message: fmt.Sprintf(format, args...), Expr: e.src}
}

// 多字符运算符按长度降序匹配
var operators = []string{
	"<<=", ">>=", "**",
	"==", "!=", "<=", ">=", "&&", "||", "<<", ">>",
	"++", "--", "+=", "-=", "*=", "/=", "%=", "&=", "|=", "^=",
	"+", "-", "*", "/", "%", "<", ">", "!", "~", "&", "|", "^",
	"?", ":", "=", "(", ")", ",",
}

// next 读取下一个token
func (e *evaluator) next() {
	for e.pos < len(e.src) && isSpace(e.src[e.pos]) {
		e.pos++
	}
	if e.pos >= len(e.src) {
		e.tok = token{kind: tkEOF}
		return
	}

	c := e.src[e.pos]
	switch {
	case c >= '0' && c <= '9':
		start := e.pos
		for e.pos < len(e.src) && isNumChar(e.src[e.pos]) {
			e.pos++
		}
		text := e.src[start:e.pos]
		n, err := parseNumber(text)
		if err != nil {
			e.tok = token{kind: tkOp, text: text}
			return
		}
		e.tok = token{kind: tkNumber, text: text, num: n}
		return
	case isNameStart(c):
		start := e.pos
		for e.pos < len(e.src) && isNameChar(e.src[e.pos]) {
			e.pos++
		}
		e.tok = token{kind: tkName, text: e.src[start:e.pos]}
		return
	}

	for _, op := range operators {
		if strings.HasPrefix(e.src[e.pos:], op) {
			e.pos += len(op)
			e.tok = token{kind: tkOp, text: op}
			return
		}
	}
	e.tok = token{kind: tkOp, text: string(c)}
	e.pos++
}

// parseNumber 解析整数字面量，支持 0x 十六进制、0 八进制与 base# 记法
func parseNumber(text string) (int64, error) {
	if strings.HasPrefix(text, "0x") || strings.HasPrefix(text, "0X") {
		return strconv.ParseInt(text[2:], 16, 64)
	}
	if i := strings.IndexByte(text, '#'); i > 0 {
		base, err := strconv.Atoi(text[:i])
		if err != nil || base < 2 || base > 64 {
			return 0, fmt.Errorf("invalid base")
		}
		return strconv.ParseInt(text[i+1:], base, 64)
	}
	if len(text) > 1 && text[0] == '0' {
		return strconv.ParseInt(text[1:], 8, 64)
	}
	return strconv.ParseInt(text, 10, 64)
}

// 二元运算符优先级，数值越大绑定越紧
var binaryPrec = map[string]int{
	"||": 3, "&&": 4,
	"|": 5, "^": 6, "&": 7,
	"==": 8, "!=": 8,
	"<": 9, ">": 9, "<=": 9, ">=": 9,
	"<<": 10, ">>": 10,
	"+": 11, "-": 11,
	"*": 12, "/": 12, "%": 12,
	"**": 13,
}

var assignOps = map[string]string{
	"=": "", "+=": "+", "-=": "-", "*=": "*", "/=": "/",
	"%=": "%", "<<=": "<<", ">>=": ">>", "&=": "&", "|=": "|", "^=": "^",
}

// parseExpr 优先级爬升求值
// minPrec=0 时处理逗号表达式，1 为赋值层，2 为三元层
func (e *evaluator) parseExpr(minPrec int) (int64, error) {
	left, err := e.parseUnary()
	if err != nil {
		return 0, err
	}

	for {
		if e.tok.kind != tkOp {
			return left.value(e)
		}
		op := e.tok.text

		// 逗号：求值左侧，返回右侧
		if op == "," && minPrec <= 0 {
			if _, err := left.value(e); err != nil {
				return 0, err
			}
			e.next()
			right, err := e.parseExpr(0)
			if err != nil {
				return 0, err
			}
			left = litOperand(right)
			continue
		}

		// 赋值：右结合，要求左侧为变量
		if base, ok := assignOps[op]; ok && minPrec <= 1 {
			if left.name == "" {
				return 0, e.errorf("assignment to non-variable")
			}
			name := left.name
			e.next()
			right, err := e.parseExpr(1)
			if err != nil {
				return 0, err
			}
			var v int64
			if base == "" {
				v = right
			} else {
				cur, err := left.value(e)
				if err != nil {
					return 0, err
				}
				v, err = applyBinary(base, cur, right, e)
				if err != nil {
					return 0, err
				}
			}
			e.setVar(name, v)
			left = litOperand(v)
			continue
		}

		// 三元：右结合，未选中的分支照常解析但不执行副作用
		if op == "?" && minPrec <= 2 {
			cond, err := left.value(e)
			if err != nil {
				return 0, err
			}
			e.next()
			if cond == 0 {
				e.dead++
			}
			thenVal, err := e.parseExpr(2)
			if cond == 0 {
				e.dead--
			}
			if err != nil {
				return 0, err
			}
			if e.tok.kind != tkOp || e.tok.text != ":" {
				return 0, e.errorf("expected ':' in ternary expression")
			}
			e.next()
			if cond != 0 {
				e.dead++
			}
			elseVal, err := e.parseExpr(2)
			if cond != 0 {
				e.dead--
			}
			if err != nil {
				return 0, err
			}
			if cond != 0 {
				left = litOperand(thenVal)
			} else {
				left = litOperand(elseVal)
			}
			continue
		}

		prec, ok := binaryPrec[op]
		if !ok || prec < minPrec {
			return left.value(e)
		}

		lv, err := left.value(e)
		if err != nil {
			return 0, err
		}
		e.next()

		nextMin := prec + 1
		if op == "**" {
			nextMin = prec // 右结合
		}
		// 逻辑与/或短路：右操作数仍被完整解析，但不执行其副作用
		short := (op == "&&" && lv == 0) || (op == "||" && lv != 0)
		if short {
			e.dead++
		}
		rv, err := e.parseExpr(nextMin)
		if short {
			e.dead--
		}
		if err != nil {
			return 0, err
		}
		v, err := applyBinary(op, lv, rv, e)
		if err != nil {
			return 0, err
		}
		left = litOperand(v)
	}
}

// operand 表示可能尚未求值的左值或即时数值
type operand struct {
	name string // 非空表示变量左值
	val  int64
}

func litOperand(v int64) operand { return operand{val: v} }

func (o operand) value(e *evaluator) (int64, error) {
	if o.name == "" {
		return o.val, nil
	}
	return lookupVar(e.scope, o.name), nil
}

// lookupVar 读取变量的整数值，未定义或非数字视为0
func lookupVar(scope Scope, name string) int64 {
	s := strings.TrimSpace(scope.Get(name))
	if s == "" {
		return 0
	}
	n, err := parseNumber(s)
	if err != nil {
		return 0
	}
	return n
}

// parseUnary 解析一元运算与基本项
func (e *evaluator) parseUnary() (operand, error) {
	if e.tok.kind == tkOp {
		switch e.tok.text {
		case "+":
			e.next()
			o, err := e.parseUnary()
			if err != nil {
				return operand{}, err
			}
			v, err := o.value(e)
			return litOperand(v), err
		case "-":
			e.next()
			o, err := e.parseUnary()
			if err != nil {
				return operand{}, err
			}
			v, err := o.value(e)
			return litOperand(-v), err
		case "!":
			e.next()
			o, err := e.parseUnary()
			if err != nil {
				return operand{}, err
			}
			v, err := o.value(e)
			if err != nil {
				return operand{}, err
			}
			if v == 0 {
				return litOperand(1), nil
			}
			return litOperand(0), nil
		case "~":
			e.next()
			o, err := e.parseUnary()
			if err != nil {
				return operand{}, err
			}
			v, err := o.value(e)
			return litOperand(^v), err
		case "++", "--":
			op := e.tok.text
			e.next()
			o, err := e.parseUnary()
			if err != nil {
				return operand{}, err
			}
			if o.name == "" {
				return operand{}, e.errorf("'%s' requires a variable", op)
			}
			v := lookupVar(e.scope, o.name)
			if op == "++" {
				v++
			} else {
				v--
			}
			e.setVar(o.name, v)
			return litOperand(v), nil
		case "(":
			e.depth++
			if e.depth > e.maxDepth {
				return operand{}, &limits.LimitError{
					Kind:  limits.LimitParseDepth,
					Used:  e.depth,
					Limit: e.maxDepth,
				}
			}
			e.next()
			v, err := e.parseExpr(0)
			if err != nil {
				return operand{}, err
			}
			if e.tok.kind != tkOp || e.tok.text != ")" {
				return operand{}, e.errorf("missing ')'")
			}
			e.depth--
			e.next()
			return litOperand(v), nil
		}
	}
	return e.parsePrimary()
}

// parsePrimary 解析数字、变量及后缀自增自减
func (e *evaluator) parsePrimary() (operand, error) {
	switch e.tok.kind {
	case tkNumber:
		v := e.tok.num
		e.next()
		return litOperand(v), nil
	case tkName:
		name := e.tok.text
		e.next()
		if e.tok.kind == tkOp && (e.tok.text == "++" || e.tok.text == "--") {
			op := e.tok.text
			e.next()
			v := lookupVar(e.scope, name)
			if op == "++" {
				e.setVar(name, v+1)
			} else {
				e.setVar(name, v-1)
			}
			return litOperand(v), nil
		}
		return operand{name: name}, nil
	case tkEOF:
		return operand{}, e.errorf("unexpected end of expression")
	}
	return operand{}, e.errorf("unexpected token '%s'", e.tok.text)
}

// applyBinary 执行二元运算；除零与模零按安全约定返回0
func applyBinary(op string, l, r int64, e *evaluator) (int64, error) {
	switch op {
	case "+":
		return l + r, nil
	case "-":
		return l - r, nil
	case "*":
		return l * r, nil
	case "/":
		if r == 0 {
			return 0, nil
		}
		return l / r, nil
	case "%":
		if r == 0 {
			return 0, nil
		}
		return l % r, nil
	case "**":
		if r < 0 {
			return 0, nil
		}
		result := int64(1)
		for i := int64(0); i < r; i++ {
			result *= l
		}
		return result, nil
	case "<<":
		return l << uint(r&63), nil
	case ">>":
		return l >> uint(r&63), nil
	case "<":
		return boolToInt(l < r), nil
	case ">":
		return boolToInt(l > r), nil
	case "<=":
		return boolToInt(l <= r), nil
	case ">=":
		return boolToInt(l >= r), nil
	case "==":
		return boolToInt(l == r), nil
	case "!=":
		return boolToInt(l != r), nil
	case "&":
		return l & r, nil
	case "^":
		return l ^ r, nil
	case "|":
		return l | r, nil
	case "&&":
		return boolToInt(l != 0 && r != 0), nil
	case "||":
		return boolToInt(l != 0 || r != 0), nil
	}
	return 0, e.errorf("unknown operator '%s'", op)
}

func boolToInt(b bool) int64 {
	if b {
		return 1
	}
	return 0
}

func isSpace(c byte) bool { return c == ' ' || c == '\t' || c == '\n' || c == '\r' }
func isNameStart(c byte) bool {
	return c == '_' || ('a' <= c && c <= 'z') || ('A' <= c && c <= 'Z')
}
func isNameChar(c byte) bool { return isNameStart(c) || ('0' <= c && c <= '9') }
func isNumChar(c byte) bool {
	return ('0' <= c && c <= '9') || ('a' <= c && c <= 'f') || ('A' <= c && c <= 'F') ||
		c == 'x' || c == 'X' || c == '#'
}
