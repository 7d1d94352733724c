package executor

import "fmt"

// ErrorType 执行错误类型
type ErrorType int

const (
	ErrorTypeRuntime        ErrorType = iota // 一般运行时错误
	ErrorTypeUnboundVar                      // ${var:?} 触发的未设置变量
	ErrorTypeBadSubstitution                 // 非法的参数展开
	ErrorTypeExit                            // exit 内置命令（经流程控制传播）
)

// ExecutionError 执行期错误
type ExecutionError struct {
	Type    ErrorType
	Message string
}

func (e *ExecutionError) Error() string {
	return e.Message
}

func runtimeErrorf(format string, args ...interface{}) *ExecutionError {
	return &ExecutionError{Type: ErrorTypeRuntime, Message: fmt.Sprintf(format, args...)}
}
