// Package parser 提供语法分析功能，将token序列解析为抽象语法树（AST）
package parser

// Command AST命令节点接口
type Command interface {
	commandNode()
}

// Script 脚本根节点
// 每次 exec 调用解析一次，解析完成后不再修改
type Script struct {
	Commands []Command
	Line     int
	Column   int
}

// SimpleCommand 简单命令
type SimpleCommand struct {
	Name        *Word
	Args        []*Word
	Redirects   []*Redirect
	Assignments []*Assignment
	Line        int
	Column      int
}

func (c *SimpleCommand) commandNode() {}

// Pipeline 管道
type Pipeline struct {
	Negated  bool // 前导 ! 取反最终退出码
	Commands []Command
}

func (c *Pipeline) commandNode() {}

// ListOperator 命令列表操作符
type ListOperator int

const (
	OpAnd        ListOperator = iota // && 前一个成功才执行
	OpOr                             // || 前一个失败才执行
	OpSemi                           // ; 无条件执行
	OpBackground                     // & 后台（语法接受，同步执行）
)

// ListEntry 列表中的一项
type ListEntry struct {
	Op  ListOperator
	Cmd Command
}

// CommandList 命令列表
type CommandList struct {
	First Command
	Rest  []ListEntry
	// TrailingAmp 表示列表以 & 结尾（最后一个命令登记为后台作业）
	TrailingAmp bool
}

func (c *CommandList) commandNode() {}

// Compound 复合命令及其尾部重定向
type Compound struct {
	Node      CompoundNode
	Redirects []*Redirect
}

func (c *Compound) commandNode() {}

// CompoundNode 复合命令节点接口
type CompoundNode interface {
	compoundNode()
}

// ElifBranch elif分支
type ElifBranch struct {
	Condition []Command
	Body      []Command
}

// IfCommand if语句
type IfCommand struct {
	Condition []Command
	Then      []Command
	Elifs     []ElifBranch
	Else      []Command
}

func (c *IfCommand) compoundNode() {}

// ForCommand for循环（for x in ...; do ...; done）
type ForCommand struct {
	Variable string
	Words    []*Word
	HasWords bool // 区分省略 in 子句（遍历位置参数）
	Body     []Command
}

func (c *ForCommand) compoundNode() {}

// ArithForCommand C风格for循环（for ((init; cond; step))）
// 三个子句保存原文，由解释器调用算术求值器
type ArithForCommand struct {
	Init string
	Cond string
	Step string
	Body []Command
}

func (c *ArithForCommand) compoundNode() {}

// WhileCommand while循环
type WhileCommand struct {
	Condition []Command
	Body      []Command
}

func (c *WhileCommand) compoundNode() {}

// UntilCommand until循环
type UntilCommand struct {
	Condition []Command
	Body      []Command
}

func (c *UntilCommand) compoundNode() {}

// CaseTerminator case分支终结符
type CaseTerminator int

const (
	CaseBreak       CaseTerminator = iota // ;; 停止匹配
	CaseFallThrough                       // ;& 无条件落入下一分支
	CaseContinue                          // ;;& 继续尝试后续模式
)

// CaseItem case分支
type CaseItem struct {
	Patterns   []*Word
	Commands   []Command
	Terminator CaseTerminator
}

// CaseCommand case语句
type CaseCommand struct {
	Word  *Word
	Items []*CaseItem
}

func (c *CaseCommand) compoundNode() {}

// Subshell 子shell（括号组）
type Subshell struct {
	Commands []Command
}

func (c *Subshell) compoundNode() {}

// BraceGroup 大括号组
type BraceGroup struct {
	Commands []Command
}

func (c *BraceGroup) compoundNode() {}

// ArithmeticCommand ((expression)) 算术命令
type ArithmeticCommand struct {
	Expr string
}

func (c *ArithmeticCommand) compoundNode() {}

// Conditional [[ ... ]] 条件表达式
type Conditional struct {
	Words []*Word
}

func (c *Conditional) compoundNode() {}

// TimeCommand time计时命令
type TimeCommand struct {
	Posix   bool // -p 使用POSIX输出格式
	Command Command
}

func (c *TimeCommand) compoundNode() {}

// FunctionDef 函数定义
type FunctionDef struct {
	Name string
	Body Command
}

func (c *FunctionDef) commandNode() {}

// Word 单词：有序的可展开片段序列
// 不变式：零片段的单词规范化为单个空字面量
type Word struct {
	Parts  []WordPart
	Quoted bool // 来自引号时禁用glob展开与单词分割
}

// NewLiteralWord 创建字面量单词
func NewLiteralWord(s string) *Word {
	return &Word{Parts: []WordPart{&LiteralPart{Text: s}}}
}

// Normalize 保证单词至少有一个片段
func (w *Word) Normalize() *Word {
	if len(w.Parts) == 0 {
		w.Parts = []WordPart{&LiteralPart{}}
	}
	return w
}

// WordPart 单词片段接口（封闭和类型，解释器按类型穷举）
type WordPart interface {
	wordPart()
}

// LiteralPart 字面量
type LiteralPart struct {
	Text string
}

func (p *LiteralPart) wordPart() {}

// VariablePart 变量展开 $VAR / ${VAR}
type VariablePart struct {
	Name string
}

func (p *VariablePart) wordPart() {}

// QuotedGroupPart 混合单词中的引号段
// 组内展开不做单词分割与glob，如 a"$x"b 中的 "$x"
type QuotedGroupPart struct {
	Parts []WordPart
}

func (p *QuotedGroupPart) wordPart() {}

// CommandSubPart 命令替换 $( ) 或反引号
type CommandSubPart struct {
	Commands []Command
}

func (p *CommandSubPart) wordPart() {}

// ArithPart 算术展开 $(( ))，原文在执行期求值
type ArithPart struct {
	Expr string
}

func (p *ArithPart) wordPart() {}

// LengthPart 长度展开 ${#var}
type LengthPart struct {
	Name string
}

func (p *LengthPart) wordPart() {}

// ParamOp 参数展开操作符
type ParamOp int

const (
	ParamUseDefault     ParamOp = iota // :- 未设置（或为空）时使用默认值
	ParamAssignDefault                 // := 未设置时赋默认值
	ParamUseAlternate                  // :+ 已设置时使用替代值
	ParamError                         // :? 未设置时报错
	ParamTrimPrefixShort               // # 去除最短前缀
	ParamTrimPrefixLong                // ## 去除最长前缀
	ParamTrimSuffixShort               // % 去除最短后缀
	ParamTrimSuffixLong                // %% 去除最长后缀
	ParamReplaceFirst                  // /pat/rep 替换首个
	ParamReplaceAll                    // //pat/rep 全部替换
	ParamUpperFirst                    // ^ 首字符大写
	ParamUpperAll                      // ^^ 全部大写
	ParamLowerFirst                    // , 首字符小写
	ParamLowerAll                      // ,, 全部小写
)

// ParamExpPart 带操作符的参数展开 ${var<op>operand}
type ParamExpPart struct {
	Name        string
	Op          ParamOp
	Operand     *Word // 默认值/替代值/错误消息，执行期展开
	Colon       bool  // :- 与 - 的区别（空值是否视同未设置）
	Pattern     string // 替换操作的模式
	Replacement string // 替换操作的替换文本
}

func (p *ParamExpPart) wordPart() {}

// SubstringPart 子串截取 ${var:offset:length}
type SubstringPart struct {
	Name      string
	Offset    string
	Length    string
	HasLength bool
}

func (p *SubstringPart) wordPart() {}

// ArrayAccessPart 数组元素访问 ${arr[i]} / ${arr[@]}
type ArrayAccessPart struct {
	Name  string
	Index string
}

func (p *ArrayAccessPart) wordPart() {}

// ArraySlicePart 数组切片 ${arr[@]:off:len}
type ArraySlicePart struct {
	Name      string
	Offset    string
	Length    string
	HasLength bool
}

func (p *ArraySlicePart) wordPart() {}

// ArrayLengthPart 数组长度 ${#arr[@]}
type ArrayLengthPart struct {
	Name string
}

func (p *ArrayLengthPart) wordPart() {}

// ArrayIndicesPart 数组下标集合 ${!arr[@]}
type ArrayIndicesPart struct {
	Name string
}

func (p *ArrayIndicesPart) wordPart() {}

// IndirectPart 间接展开 ${!var}
type IndirectPart struct {
	Name string
}

func (p *IndirectPart) wordPart() {}

// PrefixMatchPart 前缀匹配 ${!prefix*}
type PrefixMatchPart struct {
	Prefix string
}

func (p *PrefixMatchPart) wordPart() {}

// ProcSubPart 进程替换 <(cmd) / >(cmd)
type ProcSubPart struct {
	Commands []Command
	IsInput  bool // true为<()，false为>()
}

func (p *ProcSubPart) wordPart() {}

// RedirectKind 重定向类型
type RedirectKind int

const (
	RedirOutput     RedirectKind = iota // >
	RedirAppend                         // >>
	RedirInput                          // <
	RedirHereDoc                        // << / <<-
	RedirHereString                     // <<<
	RedirDupOut                         // >&M
	RedirDupIn                          // <&M
	RedirOutBoth                        // &>
)

// Redirect 重定向
type Redirect struct {
	Fd     int // 文件描述符，-1表示按类型取默认值
	Kind   RedirectKind
	Target *Word
}

// Assignment 变量赋值
type Assignment struct {
	Name        string
	Index       string // 数组下标赋值 arr[i]=v
	HasIndex    bool
	Value       *Word
	ArrayValues []*Word // 数组字面量 arr=(a b c)
	IsArray     bool
	Append      bool // += 追加赋值
}
