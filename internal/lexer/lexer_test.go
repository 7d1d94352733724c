package lexer

import (
	"testing"
)

// collect 读取全部token直到EOF
func collect(input string) []Token {
	l := New(input)
	var out []Token
	for {
		tok := l.NextToken()
		out = append(out, tok)
		if tok.Type == EOF {
			return out
		}
	}
}

func TestNextTokenBasic(t *testing.T) {
	tests := []struct {
		input    string
		expected []Token
	}{
		{
			input: "echo hello",
			expected: []Token{
				{Type: WORD, Literal: "echo"},
				{Type: WORD, Literal: "hello"},
				{Type: EOF},
			},
		},
		{
			input: "echo 'hello world'",
			expected: []Token{
				{Type: WORD, Literal: "echo"},
				{Type: STRING_SINGLE, Literal: "hello world"},
				{Type: EOF},
			},
		},
		{
			input: `echo "hello $VAR"`,
			expected: []Token{
				{Type: WORD, Literal: "echo"},
				{Type: STRING_DOUBLE, Literal: "hello $VAR"},
				{Type: EOF},
			},
		},
		{
			input: "ls | grep test",
			expected: []Token{
				{Type: WORD, Literal: "ls"},
				{Type: PIPE, Literal: "|"},
				{Type: WORD, Literal: "grep"},
				{Type: WORD, Literal: "test"},
				{Type: EOF},
			},
		},
		{
			input: "true && echo yes || echo no",
			expected: []Token{
				{Type: WORD, Literal: "true"},
				{Type: AND_IF, Literal: "&&"},
				{Type: WORD, Literal: "echo"},
				{Type: WORD, Literal: "yes"},
				{Type: OR_IF, Literal: "||"},
				{Type: WORD, Literal: "echo"},
				{Type: WORD, Literal: "no"},
				{Type: EOF},
			},
		},
		{
			input: "a; b;; c ;& d ;;& e",
			expected: []Token{
				{Type: WORD, Literal: "a"},
				{Type: SEMI, Literal: ";"},
				{Type: WORD, Literal: "b"},
				{Type: DSEMI, Literal: ";;"},
				{Type: WORD, Literal: "c"},
				{Type: SEMI_AND, Literal: ";&"},
				{Type: WORD, Literal: "d"},
				{Type: DSEMI_AND, Literal: ";;&"},
				{Type: WORD, Literal: "e"},
				{Type: EOF},
			},
		},
		{
			input: "(echo hi)",
			expected: []Token{
				{Type: LPAREN, Literal: "("},
				{Type: WORD, Literal: "echo"},
				{Type: WORD, Literal: "hi"},
				{Type: RPAREN, Literal: ")"},
				{Type: EOF},
			},
		},
		{
			input: "{ echo hi; }",
			expected: []Token{
				{Type: LBRACE, Literal: "{"},
				{Type: WORD, Literal: "echo"},
				{Type: WORD, Literal: "hi"},
				{Type: SEMI, Literal: ";"},
				{Type: RBRACE, Literal: "}"},
				{Type: EOF},
			},
		},
		{
			input: "echo a\necho b",
			expected: []Token{
				{Type: WORD, Literal: "echo"},
				{Type: WORD, Literal: "a"},
				{Type: NEWLINE, Literal: "\n"},
				{Type: WORD, Literal: "echo"},
				{Type: WORD, Literal: "b"},
				{Type: EOF},
			},
		},
		{
			input: "sleep 1 &",
			expected: []Token{
				{Type: WORD, Literal: "sleep"},
				{Type: WORD, Literal: "1"},
				{Type: AMP, Literal: "&"},
				{Type: EOF},
			},
		},
	}

	for _, tt := range tests {
		got := collect(tt.input)
		if len(got) != len(tt.expected) {
			t.Errorf("输入 %q：token数量错误，期望 %d，得到 %d (%v)", tt.input, len(tt.expected), len(got), got)
			continue
		}
		for i, want := range tt.expected {
			if got[i].Type != want.Type {
				t.Errorf("输入 %q token[%d]：类型错误，期望 %v，得到 %v", tt.input, i, want.Type, got[i].Type)
			}
			if got[i].Literal != want.Literal {
				t.Errorf("输入 %q token[%d]：字面量错误，期望 %q，得到 %q", tt.input, i, want.Literal, got[i].Literal)
			}
		}
	}
}

func TestNextTokenWordVariants(t *testing.T) {
	// 混合引号段与展开段的单词保持原文
	got := collect(`echo pre"mid $x"post`)
	if got[1].Type != WORD || got[1].Literal != `pre"mid $x"post` {
		t.Errorf("混合单词应保持原文，得到 %v %q", got[1].Type, got[1].Literal)
	}

	got = collect("echo $((1+2))")
	if got[1].Type != WORD || got[1].Literal != "$((1+2))" {
		t.Errorf("算术展开应整体成词，得到 %v %q", got[1].Type, got[1].Literal)
	}

	got = collect("echo $(pwd)/bin")
	if got[1].Type != WORD || got[1].Literal != "$(pwd)/bin" {
		t.Errorf("命令替换应整体成词，得到 %v %q", got[1].Type, got[1].Literal)
	}

	got = collect("echo ${x:-default}")
	if got[1].Type != WORD || got[1].Literal != "${x:-default}" {
		t.Errorf("参数展开应整体成词，得到 %v %q", got[1].Type, got[1].Literal)
	}

	// 嵌套替换的括号配对
	got = collect("echo $(echo $(echo deep))")
	if got[1].Type != WORD || got[1].Literal != "$(echo $(echo deep))" {
		t.Errorf("嵌套命令替换配对错误，得到 %q", got[1].Literal)
	}
}

func TestNextTokenRedirects(t *testing.T) {
	tests := []struct {
		input   string
		typ     TokenType
		fd      int
		literal string
	}{
		{"> f", REDIR_OUT, -1, ">"},
		{">> f", REDIR_APPEND, -1, ">>"},
		{"< f", REDIR_IN, -1, "<"},
		{"<<< word", REDIR_HERESTRING, -1, "<<<"},
		{"2> f", REDIR_OUT, 2, ">"},
		{"2>> f", REDIR_APPEND, 2, ">>"},
		{"2>&1", REDIR_DUP_OUT, 2, "1"},
		{">&2", REDIR_DUP_OUT, -1, "2"},
		{"&> f", REDIR_OUT_BOTH, -1, "&>"},
	}
	for _, tt := range tests {
		got := collect(tt.input)
		if got[0].Type != tt.typ {
			t.Errorf("输入 %q：类型错误，期望 %v，得到 %v", tt.input, tt.typ, got[0].Type)
			continue
		}
		if got[0].Fd != tt.fd {
			t.Errorf("输入 %q：fd错误，期望 %d，得到 %d", tt.input, tt.fd, got[0].Fd)
		}
		if got[0].Literal != tt.literal {
			t.Errorf("输入 %q：字面量错误，期望 %q，得到 %q", tt.input, tt.literal, got[0].Literal)
		}
	}
}

func TestNextTokenHeredoc(t *testing.T) {
	got := collect("cat << EOF\nline1\nline2\nEOF\necho after")
	if got[1].Type != HEREDOC {
		t.Fatalf("期望HEREDOC token，得到 %v", got[1].Type)
	}
	if got[1].Literal != "line1\nline2\n" {
		t.Errorf("heredoc正文错误，得到 %q", got[1].Literal)
	}
	if got[1].Quoted {
		t.Error("无引号定界符不应标记Quoted")
	}
	// 正文之后继续正常词法分析
	if got[3].Type != WORD || got[3].Literal != "echo" {
		t.Errorf("heredoc之后的token错误，得到 %v %q", got[3].Type, got[3].Literal)
	}
}

func TestNextTokenHeredocQuotedDelim(t *testing.T) {
	got := collect("cat << 'EOF'\n$x\nEOF\n")
	if got[1].Type != HEREDOC {
		t.Fatalf("期望HEREDOC token，得到 %v", got[1].Type)
	}
	if !got[1].Quoted {
		t.Error("引号定界符应标记Quoted")
	}
	if got[1].Literal != "$x\n" {
		t.Errorf("heredoc正文错误，得到 %q", got[1].Literal)
	}
}

func TestNextTokenHeredocStrip(t *testing.T) {
	got := collect("cat <<- EOF\n\tindented\n\tEOF\n")
	if got[1].Type != HEREDOC {
		t.Fatalf("期望HEREDOC token，得到 %v", got[1].Type)
	}
	if !got[1].Strip {
		t.Error("<<- 应标记Strip")
	}
	if got[1].Literal != "indented\n" {
		t.Errorf("前导制表符应被去除，得到 %q", got[1].Literal)
	}
}

func TestNextTokenHeredocUnterminated(t *testing.T) {
	got := collect("cat << EOF\nno terminator")
	if got[1].Type != ILLEGAL {
		t.Errorf("未结束的heredoc应产生ILLEGAL，得到 %v", got[1].Type)
	}
}

func TestNextTokenArith(t *testing.T) {
	got := collect("(( x = 1 + 2 ))")
	if got[0].Type != ARITH {
		t.Fatalf("期望ARITH token，得到 %v", got[0].Type)
	}
	if got[0].Literal != " x = 1 + 2 " {
		t.Errorf("算术原文错误，得到 %q", got[0].Literal)
	}

	// 内部括号配对
	got = collect("(( (1+2)*3 ))")
	if got[0].Type != ARITH || got[0].Literal != " (1+2)*3 " {
		t.Errorf("含括号的算术原文错误，得到 %v %q", got[0].Type, got[0].Literal)
	}
}

func TestNextTokenConditional(t *testing.T) {
	got := collect("[[ $x == a* ]]")
	want := []struct {
		typ     TokenType
		literal string
	}{
		{COND_START, "[["},
		{WORD, "$x"},
		{WORD, "=="},
		{WORD, "a*"},
		{COND_END, "]]"},
		{EOF, ""},
	}
	if len(got) != len(want) {
		t.Fatalf("token数量错误，期望 %d，得到 %d (%v)", len(want), len(got), got)
	}
	for i, w := range want {
		if got[i].Type != w.typ || got[i].Literal != w.literal {
			t.Errorf("token[%d] 期望 %v %q，得到 %v %q", i, w.typ, w.literal, got[i].Type, got[i].Literal)
		}
	}
}

func TestNextTokenCondOperatorsAreWords(t *testing.T) {
	// 条件表达式内 < > ( ) 不再是操作符
	got := collect("[[ a < b ]]")
	if got[2].Type != WORD || got[2].Literal != "<" {
		t.Errorf("条件内 < 应为单词，得到 %v %q", got[2].Type, got[2].Literal)
	}
}

func TestNextTokenProcSub(t *testing.T) {
	got := collect("diff <(sort a) <(sort b)")
	if got[1].Type != PROCSUB_IN || got[1].Literal != "sort a" {
		t.Errorf("进程替换token错误，得到 %v %q", got[1].Type, got[1].Literal)
	}
	if got[2].Type != PROCSUB_IN || got[2].Literal != "sort b" {
		t.Errorf("第二个进程替换token错误，得到 %v %q", got[2].Type, got[2].Literal)
	}

	got = collect("tee >(wc -l)")
	if got[1].Type != PROCSUB_OUT || got[1].Literal != "wc -l" {
		t.Errorf("输出进程替换token错误，得到 %v %q", got[1].Type, got[1].Literal)
	}
}

func TestNextTokenComments(t *testing.T) {
	got := collect("echo hi # trailing comment\necho next")
	if got[2].Type != NEWLINE {
		t.Errorf("注释应被跳过直到换行，得到 %v", got[2].Type)
	}
	if got[3].Literal != "echo" {
		t.Errorf("注释后的token错误，得到 %q", got[3].Literal)
	}
}

func TestNextTokenLineContinuation(t *testing.T) {
	got := collect("echo a \\\n b")
	if len(got) != 4 {
		t.Fatalf("行续接后token数量错误，得到 %v", got)
	}
	if got[2].Type != WORD || got[2].Literal != "b" {
		t.Errorf("行续接后的token错误，得到 %v %q", got[2].Type, got[2].Literal)
	}
}

func TestNextTokenUnterminatedQuote(t *testing.T) {
	got := collect("echo 'oops")
	if got[1].Type != ILLEGAL {
		t.Errorf("未闭合引号应产生ILLEGAL，得到 %v", got[1].Type)
	}
}

func TestNextTokenPositions(t *testing.T) {
	l := New("echo hi\necho bye")
	tok := l.NextToken()
	if tok.Line != 1 || tok.Column != 1 {
		t.Errorf("首token位置错误，得到 %d:%d", tok.Line, tok.Column)
	}
	l.NextToken() // hi
	l.NextToken() // newline
	tok = l.NextToken()
	if tok.Line != 2 {
		t.Errorf("第二行token行号错误，得到 %d", tok.Line)
	}
}

func TestNextTokenBraceInWord(t *testing.T) {
	// 非独立的 { } 属于单词
	got := collect("echo a{b}c")
	if got[1].Type != WORD || got[1].Literal != "a{b}c" {
		t.Errorf("单词内花括号应保留，得到 %v %q", got[1].Type, got[1].Literal)
	}
}
