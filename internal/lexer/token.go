package lexer

// TokenType token类型
type TokenType int

const (
	ILLEGAL TokenType = iota // 非法token
	EOF                      // 输入结束
	NEWLINE                  // 换行

	WORD          // 裸词（可展开，原文可能包含引号段和替换段）
	STRING_SINGLE // 整体单引号串（字面量，不展开）
	STRING_DOUBLE // 整体双引号串（可展开）
	HEREDOC       // here-document 正文
	ARITH         // ((...)) 算术原文

	PIPE      // |
	OR_IF     // ||
	AMP       // &
	AND_IF    // &&
	SEMI      // ;
	DSEMI     // ;;
	SEMI_AND  // ;&
	DSEMI_AND // ;;&

	LPAREN // (
	RPAREN // )
	LBRACE // {
	RBRACE // }

	COND_START // [[
	COND_END   // ]]

	REDIR_OUT        // > 或 N>
	REDIR_APPEND     // >> 或 N>>
	REDIR_IN         // <
	REDIR_HERESTRING // <<<
	REDIR_DUP_OUT    // >&M 或 N>&M
	REDIR_DUP_IN     // <&M 或 N<&M
	REDIR_OUT_BOTH   // &> 或 >&file

	PROCSUB_IN  // <(...)
	PROCSUB_OUT // >(...)
)

// Token 带位置信息的token
type Token struct {
	Type    TokenType
	Literal string
	Line    int
	Column  int
	Quoted  bool // heredoc定界符是否被引号（禁用正文展开）
	Strip   bool // <<- 形式，去除正文每行的前导制表符
	Fd      int  // 重定向的文件描述符，-1表示未指定
}

var tokenNames = map[TokenType]string{
	ILLEGAL:          "ILLEGAL",
	EOF:              "EOF",
	NEWLINE:          "NEWLINE",
	WORD:             "WORD",
	STRING_SINGLE:    "STRING_SINGLE",
	STRING_DOUBLE:    "STRING_DOUBLE",
	HEREDOC:          "HEREDOC",
	ARITH:            "ARITH",
	PIPE:             "|",
	OR_IF:            "||",
	AMP:              "&",
	AND_IF:           "&&",
	SEMI:             ";",
	DSEMI:            ";;",
	SEMI_AND:         ";&",
	DSEMI_AND:        ";;&",
	LPAREN:           "(",
	RPAREN:           ")",
	LBRACE:           "{",
	RBRACE:           "}",
	COND_START:       "[[",
	COND_END:         "]]",
	REDIR_OUT:        ">",
	REDIR_APPEND:     ">>",
	REDIR_IN:         "<",
	REDIR_HERESTRING: "<<<",
	REDIR_DUP_OUT:    ">&",
	REDIR_DUP_IN:     "<&",
	REDIR_OUT_BOTH:   "&>",
	PROCSUB_IN:       "<(",
	PROCSUB_OUT:      ">(",
}

// String 返回token类型名
func (t TokenType) String() string {
	if s, ok := tokenNames[t]; ok {
		return s
	}
	return "UNKNOWN"
}

// IsRedirect 判断是否为重定向token
func (t TokenType) IsRedirect() bool {
	switch t {
	case REDIR_OUT, REDIR_APPEND, REDIR_IN, REDIR_HERESTRING,
		REDIR_DUP_OUT, REDIR_DUP_IN, REDIR_OUT_BOTH, HEREDOC:
		return true
	}
	return false
}

// IsWordlike 判断是否可以作为单词参与命令
func (t TokenType) IsWordlike() bool {
	switch t {
	case WORD, STRING_SINGLE, STRING_DOUBLE, PROCSUB_IN, PROCSUB_OUT:
		return true
	}
	return false
}
