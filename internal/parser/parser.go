package parser

import (
	"regexp"
	"strings"

	"github.com/tevino/abool/v2"

	"sandbash/internal/lexer"
	"sandbash/internal/limits"
)

// budget 解析预算：燃料与嵌套深度
// 命令替换、进程替换等嵌套子解析共享同一预算，继承剩余额度而非重新计算
type budget struct {
	fuel     int
	maxFuel  int
	depth    int
	maxDepth int
	cancel   *abool.AtomicBool // 解析超时旗标，由宿主的看门狗置位
}

// tick 消耗一个解析操作
func (b *budget) tick() error {
	if b.cancel != nil && b.cancel.IsSet() {
		return &limits.LimitError{Kind: limits.LimitParseTime}
	}
	b.fuel--
	if b.fuel < 0 {
		return &limits.LimitError{Kind: limits.LimitParserFuel, Used: b.maxFuel, Limit: b.maxFuel}
	}
	return nil
}

// push 进入一层可嵌套的语法结构
func (b *budget) push() error {
	b.depth++
	if b.depth > b.maxDepth {
		return &limits.LimitError{Kind: limits.LimitParseDepth, Used: b.depth, Limit: b.maxDepth}
	}
	return nil
}

// pop 退出一层嵌套
func (b *budget) pop() {
	b.depth--
}

// Parser 语法分析器
// 负责将token序列解析为抽象语法树，通过燃料和深度双预算抵御病态输入
type Parser struct {
	l      *lexer.Lexer
	budget *budget

	curToken  lexer.Token
	peekToken lexer.Token
}

// New 创建使用默认限制的解析器
func New(input string) *Parser {
	return NewWithLimits(input, limits.Default(), nil)
}

// NewWithLimits 创建解析器，限额经过硬上限收拢
func NewWithLimits(input string, lim limits.ExecutionLimits, cancel *abool.AtomicBool) *Parser {
	lim = lim.Clamp()
	p := &Parser{
		l: lexer.New(input),
		budget: &budget{
			fuel:     lim.ParserFuel,
			maxFuel:  lim.ParserFuel,
			maxDepth: lim.MaxParseDepth,
			cancel:   cancel,
		},
	}
	p.nextToken()
	p.nextToken()
	return p
}

// newSubParser 为嵌套子解析创建解析器，共享父预算
func (p *Parser) newSubParser(input string) *Parser {
	sub := &Parser{
		l:      lexer.New(input),
		budget: p.budget,
	}
	sub.nextToken()
	sub.nextToken()
	return sub
}

// subParse 解析命令替换/进程替换内部的命令序列
// 嵌套替换计入深度，防止以替换代替括号绕过嵌套限制
func (p *Parser) subParse(input string) ([]Command, error) {
	if err := p.budget.push(); err != nil {
		return nil, err
	}
	defer p.budget.pop()
	sub := p.newSubParser(input)
	script, err := sub.Parse()
	if err != nil {
		return nil, err
	}
	return script.Commands, nil
}

// nextToken 移动到下一个token
func (p *Parser) nextToken() {
	p.curToken = p.peekToken
	p.peekToken = p.l.NextToken()
}

// Parse 解析整个脚本
func (p *Parser) Parse() (*Script, error) {
	script := &Script{Line: 1, Column: 1}
	for p.curToken.Type != lexer.EOF {
		p.skipSeparators()
		if p.curToken.Type == lexer.EOF {
			break
		}
		if err := p.budget.tick(); err != nil {
			return nil, err
		}
		cmd, err := p.parseCommandList()
		if err != nil {
			return nil, err
		}
		if cmd == nil {
			return nil, expectedError(p.curToken, "command")
		}
		script.Commands = append(script.Commands, cmd)
	}
	return script, nil
}

// skipNewlines 跳过换行
func (p *Parser) skipNewlines() {
	for p.curToken.Type == lexer.NEWLINE {
		p.nextToken()
	}
}

// skipSeparators 跳过换行和分号
func (p *Parser) skipSeparators() {
	for p.curToken.Type == lexer.NEWLINE || p.curToken.Type == lexer.SEMI {
		p.nextToken()
	}
}

// atWord 判断当前token是否为指定的保留字
// 保留字只在命令起始位置判定，其余位置它们是普通参数
func (p *Parser) atWord(s string) bool {
	return p.curToken.Type == lexer.WORD && p.curToken.Literal == s
}

func (p *Parser) atAnyWord(words []string) bool {
	for _, w := range words {
		if p.atWord(w) {
			return true
		}
	}
	return false
}

// expectWord 消费指定保留字，否则报错
func (p *Parser) expectWord(s string) error {
	if !p.atWord(s) {
		return expectedError(p.curToken, "'"+s+"'")
	}
	p.nextToken()
	return nil
}

// reservedTerminators 结束复合命令体的保留字
var reservedTerminators = map[string]bool{
	"then": true, "else": true, "elif": true, "fi": true,
	"do": true, "done": true, "esac": true, "in": true,
}

// canStartCommand 判断当前token能否开始一条新命令
func (p *Parser) canStartCommand() bool {
	switch p.curToken.Type {
	case lexer.LPAREN, lexer.LBRACE, lexer.COND_START, lexer.ARITH:
		return true
	case lexer.WORD:
		return !reservedTerminators[p.curToken.Literal]
	case lexer.STRING_SINGLE, lexer.STRING_DOUBLE, lexer.PROCSUB_IN, lexer.PROCSUB_OUT:
		return true
	}
	return p.curToken.Type.IsRedirect()
}

// parseCommandList 解析命令列表（&& || ; & 连接）
func (p *Parser) parseCommandList() (Command, error) {
	first, err := p.parsePipeline()
	if err != nil {
		return nil, err
	}
	if first == nil {
		return nil, nil
	}

	list := &CommandList{First: first}
	for {
		var op ListOperator
		switch p.curToken.Type {
		case lexer.AND_IF:
			op = OpAnd
			p.nextToken()
			p.skipNewlines()
		case lexer.OR_IF:
			op = OpOr
			p.nextToken()
			p.skipNewlines()
		case lexer.SEMI:
			p.nextToken()
			if !p.canStartCommand() {
				goto done
			}
			op = OpSemi
		case lexer.AMP:
			p.nextToken()
			if !p.canStartCommand() {
				list.TrailingAmp = true
				goto done
			}
			op = OpBackground
		default:
			goto done
		}

		next, err := p.parsePipeline()
		if err != nil {
			return nil, err
		}
		if next == nil {
			return nil, expectedError(p.curToken, "command")
		}
		list.Rest = append(list.Rest, ListEntry{Op: op, Cmd: next})
	}
done:
	if len(list.Rest) == 0 && !list.TrailingAmp {
		return first, nil
	}
	return list, nil
}

// parsePipeline 解析管道（可带前导 ! 取反）
func (p *Parser) parsePipeline() (Command, error) {
	negated := false
	if p.atWord("!") {
		negated = true
		p.nextToken()
	}

	first, err := p.parseCommand()
	if err != nil {
		return nil, err
	}
	if first == nil {
		if negated {
			return nil, expectedError(p.curToken, "command after '!'")
		}
		return nil, nil
	}

	cmds := []Command{first}
	for p.curToken.Type == lexer.PIPE {
		p.nextToken()
		p.skipNewlines()
		next, err := p.parseCommand()
		if err != nil {
			return nil, err
		}
		if next == nil {
			return nil, expectedError(p.curToken, "command after '|'")
		}
		cmds = append(cmds, next)
	}

	if len(cmds) == 1 && !negated {
		return first, nil
	}
	return &Pipeline{Negated: negated, Commands: cmds}, nil
}

// parseCommand 解析一条命令（简单命令、复合命令或函数定义）
func (p *Parser) parseCommand() (Command, error) {
	switch p.curToken.Type {
	case lexer.ILLEGAL:
		return nil, errorAt(ErrorTypeSyntax, p.curToken, "unexpected or unterminated input near '"+p.curToken.Literal+"'")
	case lexer.LPAREN:
		return p.parseSubshell()
	case lexer.LBRACE:
		return p.parseBraceGroup()
	case lexer.COND_START:
		return p.parseConditional()
	case lexer.ARITH:
		expr := p.curToken.Literal
		p.nextToken()
		redirects, err := p.parseTrailingRedirects()
		if err != nil {
			return nil, err
		}
		return &Compound{Node: &ArithmeticCommand{Expr: expr}, Redirects: redirects}, nil
	case lexer.WORD:
		switch p.curToken.Literal {
		case "if":
			return p.parseIf()
		case "for":
			return p.parseFor()
		case "while":
			return p.parseWhile(false)
		case "until":
			return p.parseWhile(true)
		case "case":
			return p.parseCase()
		case "function":
			return p.parseFunctionKeyword()
		case "time":
			return p.parseTime()
		}
		if reservedTerminators[p.curToken.Literal] {
			return nil, errorAt(ErrorTypeSyntax, p.curToken, "unexpected reserved word '"+p.curToken.Literal+"'")
		}
		// POSIX函数定义 name() { ... }
		if isFunctionName(p.curToken.Literal) && p.peekToken.Type == lexer.LPAREN {
			return p.parsePosixFunction()
		}
		return p.parseSimpleCommand()
	default:
		if p.curToken.Type.IsWordlike() || p.curToken.Type.IsRedirect() {
			return p.parseSimpleCommand()
		}
		return nil, nil
	}
}

var assignmentRe = regexp.MustCompile(`(?s)^([A-Za-z_][A-Za-z0-9_]*)(\[([^\]]+)\])?(\+)?=(.*)$`)

// parseSimpleCommand 解析简单命令：赋值前缀、命令名、参数、重定向
func (p *Parser) parseSimpleCommand() (Command, error) {
	if err := p.budget.tick(); err != nil {
		return nil, err
	}

	cmd := &SimpleCommand{Line: p.curToken.Line, Column: p.curToken.Column}

	// 赋值前缀（仅裸词可构成赋值）
	for p.curToken.Type == lexer.WORD {
		m := assignmentRe.FindStringSubmatch(p.curToken.Literal)
		if m == nil {
			break
		}
		assign := &Assignment{Name: m[1], Append: m[4] == "+"}
		if m[2] != "" {
			assign.Index = m[3]
			assign.HasIndex = true
		}
		if m[5] == "" && p.peekToken.Type == lexer.LPAREN {
			// 数组字面量 NAME=(a b c)
			assign.IsArray = true
			p.nextToken() // 越过赋值词
			p.nextToken() // 越过 (
			for {
				p.skipNewlines()
				if p.curToken.Type == lexer.RPAREN {
					p.nextToken()
					break
				}
				if !p.curToken.Type.IsWordlike() {
					return nil, expectedError(p.curToken, "')'")
				}
				w, err := p.parseWordToken()
				if err != nil {
					return nil, err
				}
				assign.ArrayValues = append(assign.ArrayValues, w)
			}
		} else {
			value, err := p.parseWordText(m[5], false)
			if err != nil {
				return nil, err
			}
			assign.Value = value
			p.nextToken()
		}
		cmd.Assignments = append(cmd.Assignments, assign)
	}

	for {
		switch {
		case p.curToken.Type.IsWordlike():
			w, err := p.parseWordToken()
			if err != nil {
				return nil, err
			}
			if cmd.Name == nil {
				cmd.Name = w
			} else {
				cmd.Args = append(cmd.Args, w)
			}
		case p.curToken.Type.IsRedirect():
			r, err := p.parseRedirect()
			if err != nil {
				return nil, err
			}
			cmd.Redirects = append(cmd.Redirects, r)
		default:
			if cmd.Name == nil && len(cmd.Assignments) == 0 && len(cmd.Redirects) == 0 {
				return nil, nil
			}
			return cmd, nil
		}
	}
}

// parseWordToken 将当前单词token解析为Word并前进
func (p *Parser) parseWordToken() (*Word, error) {
	tok := p.curToken
	switch tok.Type {
	case lexer.STRING_SINGLE:
		p.nextToken()
		return &Word{Parts: []WordPart{&LiteralPart{Text: tok.Literal}}, Quoted: true}, nil
	case lexer.STRING_DOUBLE:
		w, err := p.parseWordText(tok.Literal, true)
		if err != nil {
			return nil, err
		}
		w.Quoted = true
		p.nextToken()
		return w, nil
	case lexer.WORD:
		w, err := p.parseWordText(tok.Literal, false)
		if err != nil {
			return nil, err
		}
		p.nextToken()
		return w, nil
	case lexer.PROCSUB_IN, lexer.PROCSUB_OUT:
		cmds, err := p.subParse(tok.Literal)
		if err != nil {
			return nil, err
		}
		p.nextToken()
		return &Word{Parts: []WordPart{&ProcSubPart{Commands: cmds, IsInput: tok.Type == lexer.PROCSUB_IN}}}, nil
	}
	return nil, expectedError(tok, "word")
}

// parseRedirect 解析重定向
func (p *Parser) parseRedirect() (*Redirect, error) {
	tok := p.curToken
	r := &Redirect{Fd: tok.Fd}

	switch tok.Type {
	case lexer.HEREDOC:
		r.Kind = RedirHereDoc
		if tok.Quoted {
			r.Target = &Word{Parts: []WordPart{&LiteralPart{Text: tok.Literal}}, Quoted: true}
		} else {
			w, err := p.parseWordText(tok.Literal, true)
			if err != nil {
				return nil, err
			}
			r.Target = w
		}
		p.nextToken()
		return r, nil
	case lexer.REDIR_DUP_OUT:
		r.Kind = RedirDupOut
		r.Target = NewLiteralWord(tok.Literal)
		p.nextToken()
		return r, nil
	case lexer.REDIR_DUP_IN:
		r.Kind = RedirDupIn
		r.Target = NewLiteralWord(tok.Literal)
		p.nextToken()
		return r, nil
	case lexer.REDIR_OUT:
		r.Kind = RedirOutput
	case lexer.REDIR_APPEND:
		r.Kind = RedirAppend
	case lexer.REDIR_IN:
		r.Kind = RedirInput
	case lexer.REDIR_HERESTRING:
		r.Kind = RedirHereString
	case lexer.REDIR_OUT_BOTH:
		r.Kind = RedirOutBoth
	default:
		return nil, expectedError(tok, "redirection")
	}

	p.nextToken()
	if !p.curToken.Type.IsWordlike() {
		return nil, errorAt(ErrorTypeBadRedirect, p.curToken, "missing redirection target")
	}
	target, err := p.parseWordToken()
	if err != nil {
		return nil, err
	}
	r.Target = target
	return r, nil
}

// parseTrailingRedirects 解析复合命令尾部的重定向
func (p *Parser) parseTrailingRedirects() ([]*Redirect, error) {
	var out []*Redirect
	for p.curToken.Type.IsRedirect() {
		r, err := p.parseRedirect()
		if err != nil {
			return nil, err
		}
		out = append(out, r)
	}
	return out, nil
}

// parseCommandsUntil 解析命令序列直到遇到终止保留字或终止token
// 每轮先检查终止条件再尝试解析下一条命令
func (p *Parser) parseCommandsUntil(stopWords []string, stopTypes []lexer.TokenType) ([]Command, error) {
	var cmds []Command
	for {
		p.skipSeparators()
		if p.curToken.Type == lexer.EOF {
			return cmds, nil
		}
		if p.atAnyWord(stopWords) {
			return cmds, nil
		}
		stopped := false
		for _, t := range stopTypes {
			if p.curToken.Type == t {
				stopped = true
				break
			}
		}
		if stopped {
			return cmds, nil
		}
		if err := p.budget.tick(); err != nil {
			return nil, err
		}
		cmd, err := p.parseCommandList()
		if err != nil {
			return nil, err
		}
		if cmd == nil {
			return cmds, nil
		}
		cmds = append(cmds, cmd)
	}
}

// parseIf 解析 if/then/elif/else/fi
func (p *Parser) parseIf() (Command, error) {
	if err := p.budget.push(); err != nil {
		return nil, err
	}
	defer p.budget.pop()

	openTok := p.curToken
	p.nextToken()

	cond, err := p.parseCommandsUntil([]string{"then"}, nil)
	if err != nil {
		return nil, err
	}
	if err := p.expectWord("then"); err != nil {
		return nil, err
	}
	then, err := p.parseCommandsUntil([]string{"elif", "else", "fi"}, nil)
	if err != nil {
		return nil, err
	}

	node := &IfCommand{Condition: cond, Then: then}
	for p.atWord("elif") {
		p.nextToken()
		elifCond, err := p.parseCommandsUntil([]string{"then"}, nil)
		if err != nil {
			return nil, err
		}
		if err := p.expectWord("then"); err != nil {
			return nil, err
		}
		elifBody, err := p.parseCommandsUntil([]string{"elif", "else", "fi"}, nil)
		if err != nil {
			return nil, err
		}
		node.Elifs = append(node.Elifs, ElifBranch{Condition: elifCond, Body: elifBody})
	}
	if p.atWord("else") {
		p.nextToken()
		elseBody, err := p.parseCommandsUntil([]string{"fi"}, nil)
		if err != nil {
			return nil, err
		}
		node.Else = elseBody
	}
	if !p.atWord("fi") {
		return nil, errorAt(ErrorTypeUnclosedControlFlow, openTok, "unclosed if: missing 'fi'")
	}
	p.nextToken()

	redirects, err := p.parseTrailingRedirects()
	if err != nil {
		return nil, err
	}
	return &Compound{Node: node, Redirects: redirects}, nil
}

// parseFor 解析 for 循环（列表迭代或C风格）
func (p *Parser) parseFor() (Command, error) {
	if err := p.budget.push(); err != nil {
		return nil, err
	}
	defer p.budget.pop()

	openTok := p.curToken
	p.nextToken()

	// C风格 for ((init; cond; step))
	if p.curToken.Type == lexer.ARITH {
		clauses := strings.Split(p.curToken.Literal, ";")
		if len(clauses) != 3 {
			return nil, errorAt(ErrorTypeSyntax, p.curToken, "for loop requires ((init; cond; step))")
		}
		p.nextToken()
		body, err := p.parseLoopBody(openTok)
		if err != nil {
			return nil, err
		}
		node := &ArithForCommand{
			Init: strings.TrimSpace(clauses[0]),
			Cond: strings.TrimSpace(clauses[1]),
			Step: strings.TrimSpace(clauses[2]),
			Body: body,
		}
		redirects, err := p.parseTrailingRedirects()
		if err != nil {
			return nil, err
		}
		return &Compound{Node: node, Redirects: redirects}, nil
	}

	if p.curToken.Type != lexer.WORD || !isFunctionName(p.curToken.Literal) {
		return nil, expectedError(p.curToken, "loop variable name")
	}
	node := &ForCommand{Variable: p.curToken.Literal}
	p.nextToken()

	if p.atWord("in") {
		node.HasWords = true
		p.nextToken()
		for p.curToken.Type.IsWordlike() {
			w, err := p.parseWordToken()
			if err != nil {
				return nil, err
			}
			node.Words = append(node.Words, w)
		}
	}

	body, err := p.parseLoopBody(openTok)
	if err != nil {
		return nil, err
	}
	node.Body = body

	redirects, err := p.parseTrailingRedirects()
	if err != nil {
		return nil, err
	}
	return &Compound{Node: node, Redirects: redirects}, nil
}

// parseLoopBody 解析 do ... done 循环体
func (p *Parser) parseLoopBody(openTok lexer.Token) ([]Command, error) {
	p.skipSeparators()
	if err := p.expectWord("do"); err != nil {
		return nil, err
	}
	body, err := p.parseCommandsUntil([]string{"done"}, nil)
	if err != nil {
		return nil, err
	}
	if !p.atWord("done") {
		return nil, errorAt(ErrorTypeUnclosedControlFlow, openTok, "unclosed loop: missing 'done'")
	}
	p.nextToken()
	return body, nil
}

// parseWhile 解析 while/until 循环
func (p *Parser) parseWhile(until bool) (Command, error) {
	if err := p.budget.push(); err != nil {
		return nil, err
	}
	defer p.budget.pop()

	openTok := p.curToken
	p.nextToken()

	cond, err := p.parseCommandsUntil([]string{"do"}, nil)
	if err != nil {
		return nil, err
	}
	body, err := p.parseLoopBody(openTok)
	if err != nil {
		return nil, err
	}

	var node CompoundNode
	if until {
		node = &UntilCommand{Condition: cond, Body: body}
	} else {
		node = &WhileCommand{Condition: cond, Body: body}
	}
	redirects, err := p.parseTrailingRedirects()
	if err != nil {
		return nil, err
	}
	return &Compound{Node: node, Redirects: redirects}, nil
}

// parseCase 解析 case .. in pattern) cmds ;; .. esac
func (p *Parser) parseCase() (Command, error) {
	if err := p.budget.push(); err != nil {
		return nil, err
	}
	defer p.budget.pop()

	openTok := p.curToken
	p.nextToken()

	if !p.curToken.Type.IsWordlike() {
		return nil, expectedError(p.curToken, "word after 'case'")
	}
	subject, err := p.parseWordToken()
	if err != nil {
		return nil, err
	}
	p.skipNewlines()
	if err := p.expectWord("in"); err != nil {
		return nil, err
	}

	node := &CaseCommand{Word: subject}
	for {
		p.skipNewlines()
		if p.atWord("esac") {
			p.nextToken()
			break
		}
		if p.curToken.Type == lexer.EOF {
			return nil, errorAt(ErrorTypeUnclosedControlFlow, openTok, "unclosed case: missing 'esac'")
		}

		// 可选的前导 (
		if p.curToken.Type == lexer.LPAREN {
			p.nextToken()
		}

		item := &CaseItem{}
		for {
			if !p.curToken.Type.IsWordlike() {
				return nil, expectedError(p.curToken, "case pattern")
			}
			pat, err := p.parseWordToken()
			if err != nil {
				return nil, err
			}
			item.Patterns = append(item.Patterns, pat)
			if p.curToken.Type != lexer.PIPE {
				break
			}
			p.nextToken()
		}
		if p.curToken.Type != lexer.RPAREN {
			return nil, expectedError(p.curToken, "')'")
		}
		p.nextToken()

		cmds, err := p.parseCommandsUntil([]string{"esac"},
			[]lexer.TokenType{lexer.DSEMI, lexer.SEMI_AND, lexer.DSEMI_AND})
		if err != nil {
			return nil, err
		}
		item.Commands = cmds

		switch p.curToken.Type {
		case lexer.DSEMI:
			item.Terminator = CaseBreak
			p.nextToken()
		case lexer.SEMI_AND:
			item.Terminator = CaseFallThrough
			p.nextToken()
		case lexer.DSEMI_AND:
			item.Terminator = CaseContinue
			p.nextToken()
		default:
			// 最后一个分支允许省略 ;;
			item.Terminator = CaseBreak
		}
		node.Items = append(node.Items, item)
	}

	redirects, err := p.parseTrailingRedirects()
	if err != nil {
		return nil, err
	}
	return &Compound{Node: node, Redirects: redirects}, nil
}

// parseSubshell 解析子shell ( ... )
func (p *Parser) parseSubshell() (Command, error) {
	if err := p.budget.push(); err != nil {
		return nil, err
	}
	defer p.budget.pop()

	openTok := p.curToken
	p.nextToken()

	cmds, err := p.parseCommandsUntil(nil, []lexer.TokenType{lexer.RPAREN})
	if err != nil {
		return nil, err
	}
	if p.curToken.Type != lexer.RPAREN {
		return nil, errorAt(ErrorTypeUnclosedControlFlow, openTok, "unclosed subshell: missing ')'")
	}
	p.nextToken()

	redirects, err := p.parseTrailingRedirects()
	if err != nil {
		return nil, err
	}
	return &Compound{Node: &Subshell{Commands: cmds}, Redirects: redirects}, nil
}

// parseBraceGroup 解析大括号组 { ... }
func (p *Parser) parseBraceGroup() (Command, error) {
	if err := p.budget.push(); err != nil {
		return nil, err
	}
	defer p.budget.pop()

	openTok := p.curToken
	p.nextToken()

	cmds, err := p.parseCommandsUntil(nil, []lexer.TokenType{lexer.RBRACE})
	if err != nil {
		return nil, err
	}
	if p.curToken.Type != lexer.RBRACE {
		return nil, errorAt(ErrorTypeUnclosedControlFlow, openTok, "unclosed brace group: missing '}'")
	}
	p.nextToken()

	redirects, err := p.parseTrailingRedirects()
	if err != nil {
		return nil, err
	}
	return &Compound{Node: &BraceGroup{Commands: cmds}, Redirects: redirects}, nil
}

// parseConditional 解析 [[ ... ]] 条件表达式
func (p *Parser) parseConditional() (Command, error) {
	openTok := p.curToken
	p.nextToken()

	node := &Conditional{}
	for p.curToken.Type != lexer.COND_END {
		if p.curToken.Type == lexer.EOF || p.curToken.Type == lexer.NEWLINE {
			return nil, errorAt(ErrorTypeUnclosedControlFlow, openTok, "unclosed conditional: missing ']]'")
		}
		if !p.curToken.Type.IsWordlike() {
			return nil, expectedError(p.curToken, "conditional operand")
		}
		w, err := p.parseWordToken()
		if err != nil {
			return nil, err
		}
		node.Words = append(node.Words, w)
	}
	p.nextToken()

	redirects, err := p.parseTrailingRedirects()
	if err != nil {
		return nil, err
	}
	return &Compound{Node: node, Redirects: redirects}, nil
}

// parseTime 解析 time [-p] 命令
func (p *Parser) parseTime() (Command, error) {
	p.nextToken()
	node := &TimeCommand{}
	if p.atWord("-p") {
		node.Posix = true
		p.nextToken()
	}
	if p.canStartCommand() {
		cmd, err := p.parsePipeline()
		if err != nil {
			return nil, err
		}
		node.Command = cmd
	}
	return &Compound{Node: node}, nil
}

// parseFunctionKeyword 解析 function name { ... } 形式的函数定义
func (p *Parser) parseFunctionKeyword() (Command, error) {
	p.nextToken()
	if p.curToken.Type != lexer.WORD || !isFunctionName(p.curToken.Literal) {
		return nil, expectedError(p.curToken, "function name")
	}
	name := p.curToken.Literal
	p.nextToken()

	// 可选的 ()
	if p.curToken.Type == lexer.LPAREN && p.peekToken.Type == lexer.RPAREN {
		p.nextToken()
		p.nextToken()
	}
	return p.parseFunctionBody(name)
}

// parsePosixFunction 解析 name() { ... } 形式的函数定义
func (p *Parser) parsePosixFunction() (Command, error) {
	name := p.curToken.Literal
	p.nextToken() // 越过函数名
	if p.peekToken.Type != lexer.RPAREN {
		return nil, expectedError(p.peekToken, "')'")
	}
	p.nextToken() // 越过 (
	p.nextToken() // 越过 )
	return p.parseFunctionBody(name)
}

// parseFunctionBody 解析函数体
func (p *Parser) parseFunctionBody(name string) (Command, error) {
	if err := p.budget.push(); err != nil {
		return nil, err
	}
	defer p.budget.pop()

	p.skipNewlines()
	body, err := p.parseCommand()
	if err != nil {
		return nil, err
	}
	if body == nil {
		return nil, expectedError(p.curToken, "function body")
	}
	return &FunctionDef{Name: name, Body: body}, nil
}

// isFunctionName 判断是否为合法的函数/变量名
func isFunctionName(s string) bool {
	if s == "" {
		return false
	}
	for i := 0; i < len(s); i++ {
		c := s[i]
		if c == '_' || ('a' <= c && c <= 'z') || ('A' <= c && c <= 'Z') {
			continue
		}
		if i > 0 && '0' <= c && c <= '9' {
			continue
		}
		return false
	}
	return true
}
