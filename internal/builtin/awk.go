package builtin

import (
	"bytes"
	"strings"

	"github.com/benhoyt/goawk/interp"
	"github.com/benhoyt/goawk/parser"
)

// awkCmd 基于goawk的awk实现
// 沙箱内禁止awk程序自行读写文件或执行外部命令，输入限定为stdin与-v变量
func awkCmd(ctx *Context) *Result {
	var progText string
	var awkVars []string
	args := ctx.Args
	fieldSep := ""

	for len(args) > 0 {
		switch {
		case args[0] == "-F":
			if len(args) < 2 {
				return fail("awk", 2, "option requires an argument -- 'F'")
			}
			fieldSep = args[1]
			args = args[2:]
		case strings.HasPrefix(args[0], "-F"):
			fieldSep = args[0][2:]
			args = args[1:]
		case args[0] == "-v":
			if len(args) < 2 {
				return fail("awk", 2, "option requires an argument -- 'v'")
			}
			i := strings.IndexByte(args[1], '=')
			if i < 0 {
				return fail("awk", 2, "invalid -v assignment: '%s'", args[1])
			}
			awkVars = append(awkVars, args[1][:i], args[1][i+1:])
			args = args[2:]
		case args[0] == "-f":
			if len(args) < 2 {
				return fail("awk", 2, "option requires an argument -- 'f'")
			}
			data, err := ctx.FS.ReadFile(ctx.resolve(args[1]))
			if err != nil {
				return fsError("awk", args[1], err)
			}
			progText = string(data)
			args = args[2:]
		default:
			goto parsed
		}
	}
parsed:
	if progText == "" {
		if len(args) == 0 {
			return fail("awk", 2, "usage: awk [-F sep] [-v var=val] program")
		}
		progText = args[0]
		args = args[1:]
	}
	if fieldSep != "" {
		awkVars = append(awkVars, "FS", fieldSep)
	}

	prog, err := parser.ParseProgram([]byte(progText), &parser.ParserConfig{})
	if err != nil {
		return fail("awk", 2, "syntax error: %v", err)
	}

	input := ctx.Stdin
	if len(args) > 0 {
		text, errRes := inputText(ctx, args, "awk")
		if errRes != nil {
			return errRes
		}
		input = text
	}

	var stdout, stderr bytes.Buffer
	config := &interp.Config{
		Stdin:        strings.NewReader(input),
		Output:       &stdout,
		Error:        &stderr,
		Vars:         awkVars,
		NoFileReads:  true,
		NoFileWrites: true,
		NoExec:       true,
	}
	status, err := interp.ExecProgram(prog, config)
	if err != nil {
		return fail("awk", 2, "%v", err)
	}
	return &Result{Stdout: stdout.String(), Stderr: stderr.String(), ExitCode: status}
}
