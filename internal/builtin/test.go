package builtin

import (
	"strconv"
)

// testCmd 实现 test 条件判断
func testCmd(ctx *Context) *Result {
	return evalTest(ctx, ctx.Args)
}

// bracketCmd 实现 [ 形式，要求末参为 ]
func bracketCmd(ctx *Context) *Result {
	args := ctx.Args
	if len(args) == 0 || args[len(args)-1] != "]" {
		return fail("[", 2, "missing ']'")
	}
	return evalTest(ctx, args[:len(args)-1])
}

// evalTest 按POSIX test语义求值
// 退出码：0为真，1为假，2为用法错误
func evalTest(ctx *Context, args []string) *Result {
	v, err := testExpr(ctx, args)
	if err != nil {
		return fail("test", 2, "%s", err.msg)
	}
	if v {
		return ok("")
	}
	return &Result{ExitCode: 1}
}

type testError struct{ msg string }

// testExpr 求值整个表达式，支持 ! 取反与 -a/-o 连接
func testExpr(ctx *Context, args []string) (bool, *testError) {
	switch len(args) {
	case 0:
		return false, nil
	case 1:
		return args[0] != "", nil
	}

	if args[0] == "!" {
		v, err := testExpr(ctx, args[1:])
		return !v, err
	}

	// -a/-o 从左往右结合
	for i := 1; i < len(args)-1; i++ {
		if args[i] == "-a" {
			l, err := testExpr(ctx, args[:i])
			if err != nil {
				return false, err
			}
			if !l {
				return false, nil
			}
			return testExpr(ctx, args[i+1:])
		}
		if args[i] == "-o" {
			l, err := testExpr(ctx, args[:i])
			if err != nil {
				return false, err
			}
			if l {
				return true, nil
			}
			return testExpr(ctx, args[i+1:])
		}
	}

	switch len(args) {
	case 2:
		return testUnary(ctx, args[0], args[1])
	case 3:
		return testBinary(args[0], args[1], args[2])
	}
	return false, &testError{"too many arguments"}
}

// testUnary 一元判断
func testUnary(ctx *Context, op, operand string) (bool, *testError) {
	switch op {
	case "-z":
		return operand == "", nil
	case "-n":
		return operand != "", nil
	case "-e":
		return ctx.FS.Exists(ctx.resolve(operand)), nil
	case "-f":
		info, err := ctx.FS.Stat(ctx.resolve(operand))
		return err == nil && !info.IsDir, nil
	case "-d":
		info, err := ctx.FS.Stat(ctx.resolve(operand))
		return err == nil && info.IsDir, nil
	case "-s":
		info, err := ctx.FS.Stat(ctx.resolve(operand))
		return err == nil && info.Size > 0, nil
	case "-L", "-h":
		info, err := ctx.FS.Stat(ctx.resolve(operand))
		return err == nil && info.IsSymlink, nil
	case "-r", "-w", "-x":
		// 虚拟文件系统内一律可读写执行
		return ctx.FS.Exists(ctx.resolve(operand)), nil
	}
	return false, &testError{"unknown operator " + op}
}

// testBinary 二元判断
func testBinary(left, op, right string) (bool, *testError) {
	switch op {
	case "=", "==":
		return left == right, nil
	case "!=":
		return left != right, nil
	case "<":
		return left < right, nil
	case ">":
		return left > right, nil
	}

	// 数值比较
	l, lerr := strconv.ParseInt(left, 10, 64)
	r, rerr := strconv.ParseInt(right, 10, 64)
	switch op {
	case "-eq", "-ne", "-lt", "-le", "-gt", "-ge":
		if lerr != nil {
			return false, &testError{"integer expression expected: " + left}
		}
		if rerr != nil {
			return false, &testError{"integer expression expected: " + right}
		}
	default:
		return false, &testError{"unknown operator " + op}
	}
	switch op {
	case "-eq":
		return l == r, nil
	case "-ne":
		return l != r, nil
	case "-lt":
		return l < r, nil
	case "-le":
		return l <= r, nil
	case "-gt":
		return l > r, nil
	default:
		return l >= r, nil
	}
}
