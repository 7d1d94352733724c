package executor

import (
	"fmt"
	"strconv"

	"sandbash/internal/parser"
	"sandbash/internal/vfs"
)

// fileDest 一次重定向打开的文件目标
// 多个fd可指向同一目标（2>&1），内容按产生顺序合并
type fileDest struct {
	path     string
	appendTo bool
	buf      string
}

// dest 输出去向：透传stdout、透传stderr或文件
type dest struct {
	passStdout bool
	passStderr bool
	file       *fileDest
}

// outRedirect 解析后的输出重定向
type outRedirect struct {
	fd     int
	kind   parser.RedirectKind
	target string
}

// preparedRedirects 重定向预处理结果
type preparedRedirects struct {
	hasStdin bool
	stdin    string
	outputs  []outRedirect
}

// prepareRedirects 展开重定向目标并读取输入
// 输入重定向立即求值，输出重定向在命令完成后按序套用
func (ex *Executor) prepareRedirects(redirects []*parser.Redirect) (*preparedRedirects, *Result) {
	prep := &preparedRedirects{}
	for _, r := range redirects {
		switch r.Kind {
		case parser.RedirInput:
			target, eres := ex.expandWordSingle(r.Target)
			if eres != nil {
				return nil, eres
			}
			data, err := ex.fs.ReadFile(vfs.NormalizePath(ex.cwd, target))
			if err != nil {
				return nil, &Result{
					Stderr:   fmt.Sprintf("sandbash: %s: %s\n", target, fsErrMessage(err)),
					ExitCode: 1,
				}
			}
			prep.stdin = string(data)
			prep.hasStdin = true
		case parser.RedirHereDoc:
			body, eres := ex.expandWordSingle(r.Target)
			if eres != nil {
				return nil, eres
			}
			prep.stdin = body
			prep.hasStdin = true
		case parser.RedirHereString:
			body, eres := ex.expandWordSingle(r.Target)
			if eres != nil {
				return nil, eres
			}
			prep.stdin = body + "\n"
			prep.hasStdin = true
		case parser.RedirDupIn:
			// 输入fd复制在缓冲模型下无须动作
		default:
			target, eres := ex.expandWordSingle(r.Target)
			if eres != nil {
				return nil, eres
			}
			fd := r.Fd
			if fd < 0 {
				fd = 1
			}
			prep.outputs = append(prep.outputs, outRedirect{fd: fd, kind: r.Kind, target: target})
		}
	}
	return prep, nil
}

// applyOutputRedirects 将捕获的输出按重定向表路由
func (ex *Executor) applyOutputRedirects(prep *preparedRedirects, res *Result) *Result {
	if len(prep.outputs) == 0 {
		return nil
	}

	fdTable := map[int]dest{
		1: {passStdout: true},
		2: {passStderr: true},
	}
	var opened []*fileDest

	openFile := func(target string, appendTo bool) *fileDest {
		f := &fileDest{path: vfs.NormalizePath(ex.cwd, target), appendTo: appendTo}
		opened = append(opened, f)
		return f
	}

	for _, r := range prep.outputs {
		switch r.kind {
		case parser.RedirOutput:
			fdTable[r.fd] = dest{file: openFile(r.target, false)}
		case parser.RedirAppend:
			fdTable[r.fd] = dest{file: openFile(r.target, true)}
		case parser.RedirOutBoth:
			f := openFile(r.target, false)
			fdTable[1] = dest{file: f}
			fdTable[2] = dest{file: f}
		case parser.RedirDupOut:
			n, err := strconv.Atoi(r.target)
			if err != nil {
				return &Result{
					Stderr:   fmt.Sprintf("sandbash: %s: ambiguous redirect\n", r.target),
					ExitCode: 1,
				}
			}
			src, exists := fdTable[n]
			if !exists {
				src = dest{passStderr: n == 2, passStdout: n != 2}
			}
			fdTable[r.fd] = src
		}
	}

	route := func(d dest, content string, stdout, stderr *string) {
		switch {
		case d.file != nil:
			d.file.buf += content
		case d.passStdout:
			*stdout += content
		case d.passStderr:
			*stderr += content
		}
	}
	var newStdout, newStderr string
	route(fdTable[1], res.Stdout, &newStdout, &newStderr)
	route(fdTable[2], res.Stderr, &newStdout, &newStderr)

	for _, f := range opened {
		var err error
		if f.appendTo {
			err = ex.fs.AppendFile(f.path, []byte(f.buf))
		} else {
			err = ex.fs.WriteFile(f.path, []byte(f.buf))
		}
		if err != nil {
			return &Result{
				Stderr:   fmt.Sprintf("sandbash: %s: %s\n", f.path, fsErrMessage(err)),
				ExitCode: 1,
			}
		}
	}

	res.Stdout = newStdout
	res.Stderr = newStderr
	return nil
}

// fsErrMessage 虚拟文件系统错误的bash风格描述
func fsErrMessage(err error) string {
	switch err {
	case vfs.ErrNotFound:
		return "No such file or directory"
	case vfs.ErrIsDir:
		return "Is a directory"
	case vfs.ErrNotDir:
		return "Not a directory"
	case vfs.ErrExists:
		return "File exists"
	case vfs.ErrQuota:
		return "Disk quota exceeded"
	}
	return err.Error()
}
