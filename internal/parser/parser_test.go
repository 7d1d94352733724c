package parser

import (
	"errors"
	"strings"
	"testing"

	"github.com/tevino/abool/v2"

	"sandbash/internal/limits"
)

// lit 拼接单词中的字面量片段
func lit(w *Word) string {
	var sb strings.Builder
	for _, p := range w.Parts {
		if l, okCast := p.(*LiteralPart); okCast {
			sb.WriteString(l.Text)
		}
	}
	return sb.String()
}

// parseOne 解析单条命令
func parseOne(t *testing.T, input string) Command {
	t.Helper()
	script, err := New(input).Parse()
	if err != nil {
		t.Fatalf("解析 %q 出错: %v", input, err)
	}
	if len(script.Commands) != 1 {
		t.Fatalf("解析 %q：期望1条命令，得到 %d", input, len(script.Commands))
	}
	return script.Commands[0]
}

func TestParseSimpleCommand(t *testing.T) {
	cmd, okCast := parseOne(t, "echo hello world").(*SimpleCommand)
	if !okCast {
		t.Fatal("期望SimpleCommand节点")
	}
	if lit(cmd.Name) != "echo" {
		t.Errorf("命令名错误，得到 %q", lit(cmd.Name))
	}
	if len(cmd.Args) != 2 {
		t.Fatalf("参数数量错误，得到 %d", len(cmd.Args))
	}
	if lit(cmd.Args[0]) != "hello" || lit(cmd.Args[1]) != "world" {
		t.Errorf("参数错误，得到 %q %q", lit(cmd.Args[0]), lit(cmd.Args[1]))
	}
}

func TestParseAssignments(t *testing.T) {
	cmd := parseOne(t, "FOO=bar BAZ=qux env").(*SimpleCommand)
	if len(cmd.Assignments) != 2 {
		t.Fatalf("赋值数量错误，得到 %d", len(cmd.Assignments))
	}
	if cmd.Assignments[0].Name != "FOO" || lit(cmd.Assignments[0].Value) != "bar" {
		t.Errorf("第一个赋值错误: %+v", cmd.Assignments[0])
	}
	if lit(cmd.Name) != "env" {
		t.Errorf("命令名错误，得到 %q", lit(cmd.Name))
	}

	// 纯赋值无命令名
	cmd = parseOne(t, "x=5").(*SimpleCommand)
	if cmd.Name != nil {
		t.Error("纯赋值不应有命令名")
	}

	// += 追加
	cmd = parseOne(t, "x+=3").(*SimpleCommand)
	if !cmd.Assignments[0].Append {
		t.Error("+= 应标记Append")
	}

	// 数组字面量
	cmd = parseOne(t, "arr=(a b c)").(*SimpleCommand)
	if !cmd.Assignments[0].IsArray {
		t.Fatal("数组字面量应标记IsArray")
	}
	if len(cmd.Assignments[0].ArrayValues) != 3 {
		t.Errorf("数组元素数量错误，得到 %d", len(cmd.Assignments[0].ArrayValues))
	}

	// 下标赋值
	cmd = parseOne(t, "arr[2]=v").(*SimpleCommand)
	a := cmd.Assignments[0]
	if !a.HasIndex || a.Index != "2" {
		t.Errorf("下标赋值解析错误: %+v", a)
	}
}

func TestParsePipelineAndLists(t *testing.T) {
	pipe, okCast := parseOne(t, "a | b | c").(*Pipeline)
	if !okCast {
		t.Fatal("期望Pipeline节点")
	}
	if len(pipe.Commands) != 3 {
		t.Errorf("管道段数错误，得到 %d", len(pipe.Commands))
	}
	if pipe.Negated {
		t.Error("无 ! 前缀不应取反")
	}

	pipe = parseOne(t, "! true").(*Pipeline)
	if !pipe.Negated {
		t.Error("! 前缀应标记Negated")
	}

	list, okCast := parseOne(t, "a && b || c").(*CommandList)
	if !okCast {
		t.Fatal("期望CommandList节点")
	}
	if len(list.Rest) != 2 {
		t.Fatalf("列表项数错误，得到 %d", len(list.Rest))
	}
	if list.Rest[0].Op != OpAnd || list.Rest[1].Op != OpOr {
		t.Errorf("列表操作符错误: %v %v", list.Rest[0].Op, list.Rest[1].Op)
	}

	list = parseOne(t, "work &").(*CommandList)
	if !list.TrailingAmp {
		t.Error("尾部 & 应标记TrailingAmp")
	}
}

func TestParseIf(t *testing.T) {
	comp := parseOne(t, "if a; then b; elif c; then d; else e; fi").(*Compound)
	node, okCast := comp.Node.(*IfCommand)
	if !okCast {
		t.Fatal("期望IfCommand节点")
	}
	if len(node.Condition) != 1 || len(node.Then) != 1 {
		t.Errorf("条件/then数量错误: %d %d", len(node.Condition), len(node.Then))
	}
	if len(node.Elifs) != 1 {
		t.Fatalf("elif数量错误，得到 %d", len(node.Elifs))
	}
	if len(node.Else) != 1 {
		t.Errorf("else数量错误，得到 %d", len(node.Else))
	}
}

func TestParseLoops(t *testing.T) {
	comp := parseOne(t, "for x in a b c; do echo $x; done").(*Compound)
	forNode := comp.Node.(*ForCommand)
	if forNode.Variable != "x" || !forNode.HasWords || len(forNode.Words) != 3 {
		t.Errorf("for解析错误: %+v", forNode)
	}

	comp = parseOne(t, "for x; do echo $x; done").(*Compound)
	forNode = comp.Node.(*ForCommand)
	if forNode.HasWords {
		t.Error("省略in子句不应标记HasWords")
	}

	comp = parseOne(t, "for ((i=0; i<10; i++)); do echo $i; done").(*Compound)
	arithFor := comp.Node.(*ArithForCommand)
	if arithFor.Init != "i=0" || arithFor.Cond != "i<10" || arithFor.Step != "i++" {
		t.Errorf("C风格for解析错误: %+v", arithFor)
	}

	comp = parseOne(t, "while a; do b; done").(*Compound)
	if _, okCast := comp.Node.(*WhileCommand); !okCast {
		t.Error("期望WhileCommand节点")
	}

	comp = parseOne(t, "until a; do b; done").(*Compound)
	if _, okCast := comp.Node.(*UntilCommand); !okCast {
		t.Error("期望UntilCommand节点")
	}
}

func TestParseCase(t *testing.T) {
	comp := parseOne(t, "case $x in a|b) one;; c) two;& d) three;;& *) other;; esac").(*Compound)
	node := comp.Node.(*CaseCommand)
	if len(node.Items) != 4 {
		t.Fatalf("case分支数错误，得到 %d", len(node.Items))
	}
	if len(node.Items[0].Patterns) != 2 {
		t.Errorf("多模式分支解析错误，得到 %d 个模式", len(node.Items[0].Patterns))
	}
	if node.Items[0].Terminator != CaseBreak {
		t.Errorf(";; 应为CaseBreak，得到 %v", node.Items[0].Terminator)
	}
	if node.Items[1].Terminator != CaseFallThrough {
		t.Errorf(";& 应为CaseFallThrough，得到 %v", node.Items[1].Terminator)
	}
	if node.Items[2].Terminator != CaseContinue {
		t.Errorf(";;& 应为CaseContinue，得到 %v", node.Items[2].Terminator)
	}
}

func TestParseFunctions(t *testing.T) {
	def, okCast := parseOne(t, "greet() { echo hi; }").(*FunctionDef)
	if !okCast {
		t.Fatal("期望FunctionDef节点")
	}
	if def.Name != "greet" {
		t.Errorf("函数名错误，得到 %q", def.Name)
	}

	def = parseOne(t, "function greet { echo hi; }").(*FunctionDef)
	if def.Name != "greet" {
		t.Errorf("function关键字形式函数名错误，得到 %q", def.Name)
	}

	def = parseOne(t, "function greet() { echo hi; }").(*FunctionDef)
	if def.Name != "greet" {
		t.Errorf("function加括号形式函数名错误，得到 %q", def.Name)
	}
}

func TestParseSubshellAndGroup(t *testing.T) {
	comp := parseOne(t, "(a; b)").(*Compound)
	sub := comp.Node.(*Subshell)
	if len(sub.Commands) != 2 {
		t.Errorf("子shell命令数错误，得到 %d", len(sub.Commands))
	}

	comp = parseOne(t, "{ a; b; }").(*Compound)
	grp := comp.Node.(*BraceGroup)
	if len(grp.Commands) != 2 {
		t.Errorf("花括号组命令数错误，得到 %d", len(grp.Commands))
	}
}

func TestParseRedirects(t *testing.T) {
	cmd := parseOne(t, "cmd > out.txt 2>&1 < in.txt").(*SimpleCommand)
	if len(cmd.Redirects) != 3 {
		t.Fatalf("重定向数量错误，得到 %d", len(cmd.Redirects))
	}
	if cmd.Redirects[0].Kind != RedirOutput {
		t.Errorf("第一个重定向类型错误: %v", cmd.Redirects[0].Kind)
	}
	if cmd.Redirects[1].Kind != RedirDupOut || cmd.Redirects[1].Fd != 2 {
		t.Errorf("2>&1解析错误: %+v", cmd.Redirects[1])
	}
	if cmd.Redirects[2].Kind != RedirInput {
		t.Errorf("输入重定向类型错误: %v", cmd.Redirects[2].Kind)
	}

	// 复合命令尾部重定向
	comp := parseOne(t, "if a; then b; fi > log.txt").(*Compound)
	if len(comp.Redirects) != 1 || comp.Redirects[0].Kind != RedirOutput {
		t.Errorf("复合命令尾部重定向解析错误: %+v", comp.Redirects)
	}
}

func TestParseWordParts(t *testing.T) {
	cmd := parseOne(t, `echo pre$x"mid $y"$(date)$((1+2))post`).(*SimpleCommand)
	parts := cmd.Args[0].Parts
	kinds := make([]string, 0, len(parts))
	for _, p := range parts {
		switch p.(type) {
		case *LiteralPart:
			kinds = append(kinds, "lit")
		case *VariablePart:
			kinds = append(kinds, "var")
		case *QuotedGroupPart:
			kinds = append(kinds, "quoted")
		case *CommandSubPart:
			kinds = append(kinds, "cmdsub")
		case *ArithPart:
			kinds = append(kinds, "arith")
		default:
			kinds = append(kinds, "other")
		}
	}
	want := []string{"lit", "var", "quoted", "cmdsub", "arith", "lit"}
	if strings.Join(kinds, ",") != strings.Join(want, ",") {
		t.Errorf("单词片段序列错误，期望 %v，得到 %v", want, kinds)
	}
}

func TestParseParamExpansions(t *testing.T) {
	tests := []struct {
		input string
		check func(p WordPart) bool
	}{
		{"echo ${x:-d}", func(p WordPart) bool {
			e, okCast := p.(*ParamExpPart)
			return okCast && e.Op == ParamUseDefault && e.Colon
		}},
		{"echo ${x-d}", func(p WordPart) bool {
			e, okCast := p.(*ParamExpPart)
			return okCast && e.Op == ParamUseDefault && !e.Colon
		}},
		{"echo ${x:=d}", func(p WordPart) bool {
			e, okCast := p.(*ParamExpPart)
			return okCast && e.Op == ParamAssignDefault
		}},
		{"echo ${x:?msg}", func(p WordPart) bool {
			e, okCast := p.(*ParamExpPart)
			return okCast && e.Op == ParamError
		}},
		{"echo ${x#pat}", func(p WordPart) bool {
			e, okCast := p.(*ParamExpPart)
			return okCast && e.Op == ParamTrimPrefixShort && e.Pattern == "pat"
		}},
		{"echo ${x##pat}", func(p WordPart) bool {
			e, okCast := p.(*ParamExpPart)
			return okCast && e.Op == ParamTrimPrefixLong
		}},
		{"echo ${x%%pat}", func(p WordPart) bool {
			e, okCast := p.(*ParamExpPart)
			return okCast && e.Op == ParamTrimSuffixLong
		}},
		{"echo ${x/a/b}", func(p WordPart) bool {
			e, okCast := p.(*ParamExpPart)
			return okCast && e.Op == ParamReplaceFirst && e.Pattern == "a" && e.Replacement == "b"
		}},
		{"echo ${x//a/b}", func(p WordPart) bool {
			e, okCast := p.(*ParamExpPart)
			return okCast && e.Op == ParamReplaceAll
		}},
		{"echo ${#x}", func(p WordPart) bool {
			_, okCast := p.(*LengthPart)
			return okCast
		}},
		{"echo ${x:1:2}", func(p WordPart) bool {
			e, okCast := p.(*SubstringPart)
			return okCast && e.Offset == "1" && e.Length == "2" && e.HasLength
		}},
		{"echo ${a[3]}", func(p WordPart) bool {
			e, okCast := p.(*ArrayAccessPart)
			return okCast && e.Name == "a" && e.Index == "3"
		}},
		{"echo ${#a[@]}", func(p WordPart) bool {
			e, okCast := p.(*ArrayLengthPart)
			return okCast && e.Name == "a"
		}},
		{"echo ${!x}", func(p WordPart) bool {
			e, okCast := p.(*IndirectPart)
			return okCast && e.Name == "x"
		}},
	}
	for _, tt := range tests {
		cmd := parseOne(t, tt.input).(*SimpleCommand)
		if len(cmd.Args) != 1 || len(cmd.Args[0].Parts) != 1 {
			t.Errorf("输入 %q：期望单片段参数", tt.input)
			continue
		}
		if !tt.check(cmd.Args[0].Parts[0]) {
			t.Errorf("输入 %q：片段解析错误 %#v", tt.input, cmd.Args[0].Parts[0])
		}
	}
}

func TestParseConditional(t *testing.T) {
	comp := parseOne(t, "[[ $x == a* ]]").(*Compound)
	node := comp.Node.(*Conditional)
	if len(node.Words) != 3 {
		t.Errorf("条件表达式词数错误，得到 %d", len(node.Words))
	}
}

func TestParseErrors(t *testing.T) {
	tests := []struct {
		input string
		typ   ErrorType
	}{
		{"if a; then b", ErrorTypeUnclosedControlFlow},
		{"while a; do b", ErrorTypeUnclosedControlFlow},
		{"case x in a) b;;", ErrorTypeUnclosedControlFlow},
		{"(a; b", ErrorTypeUnclosedControlFlow},
		{"{ a; b;", ErrorTypeUnclosedControlFlow},
		{"[[ a == b", ErrorTypeUnclosedControlFlow},
		{"echo >", ErrorTypeBadRedirect},
		{"echo ${", ErrorTypeSyntax},
		{"a | | b", ErrorTypeUnexpectedToken},
		{"fi", ErrorTypeSyntax},
	}
	for _, tt := range tests {
		_, err := New(tt.input).Parse()
		if err == nil {
			t.Errorf("输入 %q 应解析失败", tt.input)
			continue
		}
		var pe *ParseError
		if !errors.As(err, &pe) {
			t.Errorf("输入 %q：期望ParseError，得到 %T", tt.input, err)
			continue
		}
		if pe.Type != tt.typ {
			t.Errorf("输入 %q：错误类型期望 %v，得到 %v (%v)", tt.input, tt.typ, pe.Type, err)
		}
	}
}

func TestParseDepthLimit(t *testing.T) {
	lim := limits.Default()
	lim.MaxParseDepth = 20

	deep := strings.Repeat("( ", 30) + "echo x" + strings.Repeat(" )", 30)
	_, err := NewWithLimits(deep, lim, nil).Parse()
	var le *limits.LimitError
	if !errors.As(err, &le) {
		t.Fatalf("超深嵌套应返回LimitError，得到 %v", err)
	}
	if le.Kind != limits.LimitParseDepth {
		t.Errorf("错误类别期望LimitParseDepth，得到 %v", le.Kind)
	}

	fine := strings.Repeat("( ", 10) + "echo x" + strings.Repeat(" )", 10)
	if _, err := NewWithLimits(fine, lim, nil).Parse(); err != nil {
		t.Errorf("限额内嵌套不应报错: %v", err)
	}
}

func TestParseDepthCountsSubstitution(t *testing.T) {
	// 命令替换嵌套同样计入深度，无法绕过限制
	lim := limits.Default()
	lim.MaxParseDepth = 10

	expr := "echo deep"
	for i := 0; i < 20; i++ {
		expr = "echo $(" + expr + ")"
	}
	_, err := NewWithLimits(expr, lim, nil).Parse()
	var le *limits.LimitError
	if !errors.As(err, &le) {
		t.Fatalf("嵌套替换超深应返回LimitError，得到 %v", err)
	}
	if le.Kind != limits.LimitParseDepth {
		t.Errorf("错误类别期望LimitParseDepth，得到 %v", le.Kind)
	}
}

func TestParseDepthCountsParamExpansion(t *testing.T) {
	// 嵌套参数展开 ${a:-${b:-...}} 同样计入深度
	lim := limits.Default()
	lim.MaxParseDepth = 10

	deep := "echo " + strings.Repeat("${x:-", 30) + "y" + strings.Repeat("}", 30)
	_, err := NewWithLimits(deep, lim, nil).Parse()
	var le *limits.LimitError
	if !errors.As(err, &le) {
		t.Fatalf("嵌套参数展开超深应返回LimitError，得到 %v", err)
	}
	if le.Kind != limits.LimitParseDepth {
		t.Errorf("错误类别期望LimitParseDepth，得到 %v", le.Kind)
	}

	fine := "echo " + strings.Repeat("${x:-", 5) + "y" + strings.Repeat("}", 5)
	if _, err := NewWithLimits(fine, lim, nil).Parse(); err != nil {
		t.Errorf("限额内参数展开不应报错: %v", err)
	}
}

func TestParseFuelLimit(t *testing.T) {
	lim := limits.Default()
	lim.ParserFuel = 30

	_, err := NewWithLimits(strings.Repeat("echo x; ", 100), lim, nil).Parse()
	var le *limits.LimitError
	if !errors.As(err, &le) {
		t.Fatalf("燃料耗尽应返回LimitError，得到 %v", err)
	}
	if le.Kind != limits.LimitParserFuel {
		t.Errorf("错误类别期望LimitParserFuel，得到 %v", le.Kind)
	}
}

func TestParseCancelFlag(t *testing.T) {
	cancel := abool.New()
	cancel.Set()
	_, err := NewWithLimits("echo hello", limits.Default(), cancel).Parse()
	var le *limits.LimitError
	if !errors.As(err, &le) {
		t.Fatalf("取消旗标置位后解析应中止，得到 %v", err)
	}
	if le.Kind != limits.LimitParseTime {
		t.Errorf("错误类别期望LimitParseTime，得到 %v", le.Kind)
	}
}

func TestParseHeredocQuotedTarget(t *testing.T) {
	cmd := parseOne(t, "cat << 'EOF'\n$x\nEOF").(*SimpleCommand)
	if len(cmd.Redirects) != 1 || cmd.Redirects[0].Kind != RedirHereDoc {
		t.Fatalf("heredoc重定向解析错误: %+v", cmd.Redirects)
	}
	if !cmd.Redirects[0].Target.Quoted {
		t.Error("引号定界符的heredoc正文应标记Quoted")
	}
}
