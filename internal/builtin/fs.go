package builtin

import (
	"fmt"
	"sort"
	"strings"

	"sandbash/internal/vfs"
)

// pwd 输出当前目录
func pwd(ctx *Context) *Result {
	return ok(*ctx.Cwd + "\n")
}

// cd 改变当前目录
func cd(ctx *Context) *Result {
	dir := "/"
	if len(ctx.Args) > 0 {
		dir = ctx.Args[0]
	} else if home, exists := ctx.Env["HOME"]; exists && home != "" {
		dir = home
	}
	if dir == "-" {
		old, exists := ctx.Env["OLDPWD"]
		if !exists || old == "" {
			return fail("cd", 1, "OLDPWD not set")
		}
		dir = old
	}
	target := ctx.resolve(dir)
	info, err := ctx.FS.Stat(target)
	if err != nil {
		return fsError("cd", dir, err)
	}
	if !info.IsDir {
		return fail("cd", 1, "%s: Not a directory", dir)
	}
	ctx.Env["OLDPWD"] = *ctx.Cwd
	*ctx.Cwd = target
	ctx.Env["PWD"] = target
	return ok("")
}

// cat 连接文件并输出
func cat(ctx *Context) *Result {
	var showEnds, number bool
	args := ctx.Args
	for len(args) > 0 && strings.HasPrefix(args[0], "-") && args[0] != "-" {
		switch args[0] {
		case "-E":
			showEnds = true
		case "-n":
			number = true
		default:
			return fail("cat", 1, "invalid option -- '%s'", args[0])
		}
		args = args[1:]
	}
	text, errRes := inputText(ctx, args, "cat")
	if errRes != nil {
		return errRes
	}
	if !showEnds && !number {
		return ok(text)
	}
	var sb strings.Builder
	for i, line := range splitLines(text) {
		if number {
			fmt.Fprintf(&sb, "%6d\t", i+1)
		}
		sb.WriteString(line)
		if showEnds {
			sb.WriteByte('$')
		}
		sb.WriteByte('\n')
	}
	return ok(sb.String())
}

// ls 列出目录内容
func ls(ctx *Context) *Result {
	var all, long bool
	var paths []string
	for _, arg := range ctx.Args {
		switch {
		case arg == "-a":
			all = true
		case arg == "-l":
			long = true
		case arg == "-la" || arg == "-al":
			all, long = true, true
		case strings.HasPrefix(arg, "-"):
			return fail("ls", 2, "invalid option -- '%s'", arg)
		default:
			paths = append(paths, arg)
		}
	}
	if len(paths) == 0 {
		paths = []string{*ctx.Cwd}
	}

	var sb strings.Builder
	multi := len(paths) > 1
	for i, p := range paths {
		target := ctx.resolve(p)
		info, err := ctx.FS.Stat(target)
		if err != nil {
			return fsError("ls", p, err)
		}
		if !info.IsDir {
			writeLsEntry(&sb, info, long)
			continue
		}
		entries, err := ctx.FS.ReadDir(target)
		if err != nil {
			return fsError("ls", p, err)
		}
		if multi {
			if i > 0 {
				sb.WriteByte('\n')
			}
			fmt.Fprintf(&sb, "%s:\n", p)
		}
		sort.Slice(entries, func(a, b int) bool { return entries[a].Name < entries[b].Name })
		for _, e := range entries {
			if !all && strings.HasPrefix(e.Name, ".") {
				continue
			}
			writeLsEntry(&sb, e, long)
		}
	}
	return ok(sb.String())
}

func writeLsEntry(sb *strings.Builder, info *vfs.FileInfo, long bool) {
	if !long {
		sb.WriteString(info.Name)
		sb.WriteByte('\n')
		return
	}
	kind := "-"
	if info.IsDir {
		kind = "d"
	} else if info.IsSymlink {
		kind = "l"
	}
	fmt.Fprintf(sb, "%s%s %8d %s %s\n",
		kind, info.Mode.Perm().String()[1:], info.Size,
		info.ModTime.Format("Jan _2 15:04"), info.Name)
}

// mkdir 创建目录
func mkdir(ctx *Context) *Result {
	recursive := false
	args := ctx.Args
	if len(args) > 0 && args[0] == "-p" {
		recursive = true
		args = args[1:]
	}
	if len(args) == 0 {
		return fail("mkdir", 1, "missing operand")
	}
	for _, arg := range args {
		if err := ctx.FS.Mkdir(ctx.resolve(arg), recursive); err != nil {
			if recursive && err == vfs.ErrExists {
				continue
			}
			return fsError("mkdir", arg, err)
		}
	}
	return ok("")
}

// rmdir 删除空目录
func rmdir(ctx *Context) *Result {
	if len(ctx.Args) == 0 {
		return fail("rmdir", 1, "missing operand")
	}
	for _, arg := range ctx.Args {
		target := ctx.resolve(arg)
		entries, err := ctx.FS.ReadDir(target)
		if err != nil {
			return fsError("rmdir", arg, err)
		}
		if len(entries) > 0 {
			return fail("rmdir", 1, "failed to remove '%s': Directory not empty", arg)
		}
		if err := ctx.FS.Remove(target, false); err != nil {
			return fsError("rmdir", arg, err)
		}
	}
	return ok("")
}

// rm 删除文件或目录
func rm(ctx *Context) *Result {
	var recursive, force bool
	var paths []string
	for _, arg := range ctx.Args {
		switch arg {
		case "-r", "-R", "-rf", "-fr":
			recursive = true
			if len(arg) > 2 {
				force = true
			}
		case "-f":
			force = true
		default:
			if strings.HasPrefix(arg, "-") {
				return fail("rm", 1, "invalid option -- '%s'", arg)
			}
			paths = append(paths, arg)
		}
	}
	if len(paths) == 0 {
		if force {
			return ok("")
		}
		return fail("rm", 1, "missing operand")
	}
	for _, arg := range paths {
		target := ctx.resolve(arg)
		info, err := ctx.FS.Stat(target)
		if err != nil {
			if force {
				continue
			}
			return fsError("rm", arg, err)
		}
		if info.IsDir && !recursive {
			return fail("rm", 1, "cannot remove '%s': Is a directory", arg)
		}
		if err := ctx.FS.Remove(target, recursive); err != nil {
			return fsError("rm", arg, err)
		}
	}
	return ok("")
}

// touch 创建空文件或更新时间戳
func touch(ctx *Context) *Result {
	if len(ctx.Args) == 0 {
		return fail("touch", 1, "missing file operand")
	}
	for _, arg := range ctx.Args {
		target := ctx.resolve(arg)
		if ctx.FS.Exists(target) {
			data, err := ctx.FS.ReadFile(target)
			if err != nil {
				if err == vfs.ErrIsDir {
					continue
				}
				return fsError("touch", arg, err)
			}
			if err := ctx.FS.WriteFile(target, data); err != nil {
				return fsError("touch", arg, err)
			}
			continue
		}
		if err := ctx.FS.WriteFile(target, nil); err != nil {
			return fsError("touch", arg, err)
		}
	}
	return ok("")
}

// cp 复制文件
func cp(ctx *Context) *Result {
	recursive := false
	args := ctx.Args
	for len(args) > 0 && (args[0] == "-r" || args[0] == "-R") {
		recursive = true
		args = args[1:]
	}
	if len(args) < 2 {
		return fail("cp", 1, "missing file operand")
	}
	srcs, dst := args[:len(args)-1], args[len(args)-1]
	dstPath := ctx.resolve(dst)
	dstInfo, dstErr := ctx.FS.Stat(dstPath)
	dstIsDir := dstErr == nil && dstInfo.IsDir

	if len(srcs) > 1 && !dstIsDir {
		return fail("cp", 1, "target '%s' is not a directory", dst)
	}
	for _, src := range srcs {
		srcPath := ctx.resolve(src)
		info, err := ctx.FS.Stat(srcPath)
		if err != nil {
			return fsError("cp", src, err)
		}
		if info.IsDir && !recursive {
			return fail("cp", 1, "-r not specified; omitting directory '%s'", src)
		}
		target := dstPath
		if dstIsDir {
			_, base := vfs.SplitPath(srcPath)
			target = vfs.NormalizePath(dstPath, base)
		}
		if err := ctx.FS.Copy(srcPath, target); err != nil {
			return fsError("cp", src, err)
		}
	}
	return ok("")
}

// mv 移动或重命名文件
func mv(ctx *Context) *Result {
	if len(ctx.Args) < 2 {
		return fail("mv", 1, "missing file operand")
	}
	srcs, dst := ctx.Args[:len(ctx.Args)-1], ctx.Args[len(ctx.Args)-1]
	dstPath := ctx.resolve(dst)
	dstInfo, dstErr := ctx.FS.Stat(dstPath)
	dstIsDir := dstErr == nil && dstInfo.IsDir

	if len(srcs) > 1 && !dstIsDir {
		return fail("mv", 1, "target '%s' is not a directory", dst)
	}
	for _, src := range srcs {
		srcPath := ctx.resolve(src)
		target := dstPath
		if dstIsDir {
			_, base := vfs.SplitPath(srcPath)
			target = vfs.NormalizePath(dstPath, base)
		}
		if err := ctx.FS.Rename(srcPath, target); err != nil {
			return fsError("mv", src, err)
		}
	}
	return ok("")
}
