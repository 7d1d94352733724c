package main

import (
	"fmt"
	"io"
	"os"

	"git.sr.ht/~sircmpwn/getopt"
	"golang.org/x/term"

	"sandbash"
	"sandbash/internal/shell"
)

func usage() {
	fmt.Fprintln(os.Stderr, "usage: sandbash [-i] [-c script] [-f file] [args...]")
	os.Exit(2)
}

func main() {
	var script string
	var file string
	interactive := false

	opts, optind, err := getopt.Getopts(os.Args, "c:f:ih")
	if err != nil {
		fmt.Fprintln(os.Stderr, "sandbash:", err)
		usage()
	}
	for _, opt := range opts {
		switch opt.Option {
		case 'c':
			script = opt.Value
		case 'f':
			file = opt.Value
		case 'i':
			interactive = true
		case 'h':
			usage()
		}
	}
	args := os.Args[optind:]

	// -f 未给出时首个位置参数视为脚本文件
	name0 := "sandbash"
	if script == "" && file == "" && len(args) > 0 {
		file = args[0]
		args = args[1:]
	}
	if file != "" {
		data, err := os.ReadFile(file)
		if err != nil {
			fmt.Fprintf(os.Stderr, "sandbash: %s: %v\n", file, err)
			os.Exit(127)
		}
		script = string(data)
		name0 = file
	}

	builder := sandbash.NewBuilder().Name(name0).Args(args...)
	if home := os.Getenv("HOME"); home != "" {
		builder.Env("HOME", "/")
	}
	bash := builder.Build()

	if script != "" {
		os.Exit(run(bash, script))
	}

	// 无脚本：终端进入交互模式，否则把stdin整体当脚本
	if interactive || term.IsTerminal(int(os.Stdin.Fd())) {
		os.Exit(shell.New(bash).Run())
	}
	data, err := io.ReadAll(os.Stdin)
	if err != nil {
		fmt.Fprintln(os.Stderr, "sandbash:", err)
		os.Exit(1)
	}
	os.Exit(run(bash, string(data)))
}

func run(bash *sandbash.Bash, script string) int {
	res := bash.Exec(script)
	if res.Stdout != "" {
		fmt.Print(res.Stdout)
	}
	if res.Stderr != "" {
		fmt.Fprint(os.Stderr, res.Stderr)
	}
	return res.ExitCode
}
