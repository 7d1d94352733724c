package builtin

import (
	"strings"
)

// pushd 压入目录栈并切换目录
func pushd(ctx *Context) *Result {
	if ctx.DirStack == nil {
		return fail("pushd", 1, "directory stack unavailable")
	}
	if len(ctx.Args) == 0 {
		// 无参数时交换栈顶与当前目录
		if ctx.DirStack.IsEmpty() {
			return fail("pushd", 1, "no other directory")
		}
		top := ctx.DirStack.Pop().(string)
		ctx.DirStack.Push(*ctx.Cwd)
		res := chdir(ctx, top, "pushd")
		if res != nil {
			return res
		}
		return dirs(ctx)
	}

	prev := *ctx.Cwd
	if res := chdir(ctx, ctx.Args[0], "pushd"); res != nil {
		return res
	}
	ctx.DirStack.Push(prev)
	return dirs(ctx)
}

// popd 弹出目录栈并切换
func popd(ctx *Context) *Result {
	if ctx.DirStack == nil || ctx.DirStack.IsEmpty() {
		return fail("popd", 1, "directory stack empty")
	}
	dir := ctx.DirStack.Pop().(string)
	if res := chdir(ctx, dir, "popd"); res != nil {
		return res
	}
	return dirs(ctx)
}

// dirs 输出目录栈，栈顶在前，当前目录居首
func dirs(ctx *Context) *Result {
	entries := []string{*ctx.Cwd}
	if ctx.DirStack != nil {
		// 栈接口不支持遍历，弹出收集后恢复
		var popped []string
		for !ctx.DirStack.IsEmpty() {
			popped = append(popped, ctx.DirStack.Pop().(string))
		}
		entries = append(entries, popped...)
		for i := len(popped) - 1; i >= 0; i-- {
			ctx.DirStack.Push(popped[i])
		}
	}
	return ok(strings.Join(entries, " ") + "\n")
}

// chdir 校验并切换目录，失败时返回错误结果
func chdir(ctx *Context, dir, name string) *Result {
	target := ctx.resolve(dir)
	info, err := ctx.FS.Stat(target)
	if err != nil {
		return fsError(name, dir, err)
	}
	if !info.IsDir {
		return fail(name, 1, "%s: Not a directory", dir)
	}
	ctx.Env["OLDPWD"] = *ctx.Cwd
	*ctx.Cwd = target
	ctx.Env["PWD"] = target
	return nil
}
