// Package limits 提供沙箱执行的资源限制与计数器
// 所有限制在超出时立即中止整个执行，脚本内部无法捕获
package limits

import (
	"fmt"
	"time"
)

// 硬上限，调用方配置无法超过这些值
const (
	// HardMaxParseDepth 语法嵌套深度的硬上限
	HardMaxParseDepth = 100
	// HardMaxParserFuel 解析操作数的硬上限
	HardMaxParserFuel = 200000
)

// ExecutionLimits 执行资源限制
type ExecutionLimits struct {
	MaxCommands      int           // 最大命令执行数
	MaxLoopIter      int           // 单个循环最大迭代次数
	MaxFunctionDepth int           // 最大函数调用深度
	MaxInputSize     int           // 脚本输入最大字节数
	MaxParseDepth    int           // 语法嵌套深度（受硬上限约束）
	ParserFuel       int           // 解析操作预算（受硬上限约束）
	ParseTimeout     time.Duration // 解析阶段的墙钟超时
}

// Default 返回默认限制
func Default() ExecutionLimits {
	return ExecutionLimits{
		MaxCommands:      10000,
		MaxLoopIter:      10000,
		MaxFunctionDepth: 100,
		MaxInputSize:     1 << 20,
		MaxParseDepth:    HardMaxParseDepth,
		ParserFuel:       HardMaxParserFuel,
		ParseTimeout:     5 * time.Second,
	}
}

// Clamp 将配置值收拢到硬上限之内
func (l ExecutionLimits) Clamp() ExecutionLimits {
	if l.MaxParseDepth <= 0 || l.MaxParseDepth > HardMaxParseDepth {
		l.MaxParseDepth = HardMaxParseDepth
	}
	if l.ParserFuel <= 0 || l.ParserFuel > HardMaxParserFuel {
		l.ParserFuel = HardMaxParserFuel
	}
	return l
}

// Counters 执行计数器
// 命令计数在整个执行期间单调递增，循环计数在每个循环入口重置
type Counters struct {
	Commands      int // 已执行命令数
	FunctionDepth int // 当前函数调用深度
}

// LimitKind 资源限制错误类别
type LimitKind int

const (
	LimitParserFuel LimitKind = iota // 解析燃料耗尽
	LimitParseDepth                  // 语法嵌套过深
	LimitParseTime                   // 解析超时
	LimitInputSize                   // 输入过大
	LimitLoopIter                    // 循环迭代超限
	LimitFuncDepth                   // 函数深度超限
	LimitCommands                    // 命令总数超限
)

// LimitError 资源限制错误
// 属于宿主层故障，区别于脚本自身的失败退出码
type LimitError struct {
	Kind  LimitKind
	Used  int // 已消耗量
	Limit int // 配置限额
}

// Error 实现 error 接口
func (e *LimitError) Error() string {
	switch e.Kind {
	case LimitParserFuel:
		return fmt.Sprintf("resource limit exceeded: parser fuel exhausted (%d operations)", e.Limit)
	case LimitParseDepth:
		return fmt.Sprintf("resource limit exceeded: nesting too deep (%d levels, limit %d)", e.Used, e.Limit)
	case LimitParseTime:
		return "resource limit exceeded: parse timeout"
	case LimitInputSize:
		return fmt.Sprintf("resource limit exceeded: input too large (%d bytes, limit %d)", e.Used, e.Limit)
	case LimitLoopIter:
		return fmt.Sprintf("resource limit exceeded: loop iterations (%d)", e.Limit)
	case LimitFuncDepth:
		return fmt.Sprintf("resource limit exceeded: function depth (%d)", e.Limit)
	case LimitCommands:
		return fmt.Sprintf("resource limit exceeded: command count (%d)", e.Limit)
	}
	return "resource limit exceeded"
}

// TickCommand 命令计数加一
func (c *Counters) TickCommand(l ExecutionLimits) error {
	c.Commands++
	if l.MaxCommands > 0 && c.Commands > l.MaxCommands {
		return &LimitError{Kind: LimitCommands, Used: c.Commands, Limit: l.MaxCommands}
	}
	return nil
}

// PushFunction 进入函数调用
func (c *Counters) PushFunction(l ExecutionLimits) error {
	c.FunctionDepth++
	if l.MaxFunctionDepth > 0 && c.FunctionDepth > l.MaxFunctionDepth {
		return &LimitError{Kind: LimitFuncDepth, Used: c.FunctionDepth, Limit: l.MaxFunctionDepth}
	}
	return nil
}

// PopFunction 退出函数调用
func (c *Counters) PopFunction() {
	if c.FunctionDepth > 0 {
		c.FunctionDepth--
	}
}
