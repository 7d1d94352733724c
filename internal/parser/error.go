package parser

import (
	"fmt"

	"sandbash/internal/lexer"
)

// ErrorType 解析错误类型
type ErrorType int

const (
	ErrorTypeSyntax          ErrorType = iota // 语法错误
	ErrorTypeUnexpectedToken                  // 意外的token
	ErrorTypeUnclosedQuote                    // 未闭合的引号
	ErrorTypeUnclosedExpansion                // 未闭合的展开
	ErrorTypeUnclosedControlFlow              // 未闭合的控制流（if/fi、do/done等）
	ErrorTypeUnterminatedHeredoc              // 未终止的here-document
	ErrorTypeBadRedirect                      // 非法重定向
)

// ParseError 表示解析错误，携带行列位置
type ParseError struct {
	Type     ErrorType
	Message  string
	Line     int
	Column   int
	Expected string // 期望的token
	Got      string // 实际得到的token
}

// Error 实现 error 接口
func (e *ParseError) Error() string {
	if e.Line > 0 {
		if e.Expected != "" {
			return fmt.Sprintf("parse error at line %d, column %d: %s, expected %s, got %s",
				e.Line, e.Column, e.Message, e.Expected, e.Got)
		}
		return fmt.Sprintf("parse error at line %d, column %d: %s", e.Line, e.Column, e.Message)
	}
	return fmt.Sprintf("parse error: %s", e.Message)
}

// errorAt 基于token位置构造解析错误
func errorAt(typ ErrorType, tok lexer.Token, msg string) *ParseError {
	return &ParseError{
		Type:    typ,
		Message: msg,
		Line:    tok.Line,
		Column:  tok.Column,
		Got:     tok.Literal,
	}
}

// expectedError 构造“期望X得到Y”形式的错误
func expectedError(tok lexer.Token, expected string) *ParseError {
	return &ParseError{
		Type:     ErrorTypeUnexpectedToken,
		Message:  "unexpected token",
		Line:     tok.Line,
		Column:   tok.Column,
		Expected: expected,
		Got:      tok.Type.String() + " " + tok.Literal,
	}
}
