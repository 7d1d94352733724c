// Package shell 提供沙箱bash的交互式界面
package shell

import (
	"bufio"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"

	"github.com/chzyer/readline"
	"github.com/fatih/color"

	"sandbash"
)

// Shell 交互式沙箱shell
// 所有命令在同一个Bash实例上执行，变量与虚拟文件在会话内保持
type Shell struct {
	bash    *sandbash.Bash
	running bool

	promptColor *color.Color
	errColor    *color.Color
}

// New 创建Shell实例
func New(bash *sandbash.Bash) *Shell {
	if bash == nil {
		bash = sandbash.New()
	}
	return &Shell{
		bash:        bash,
		running:     true,
		promptColor: color.New(color.FgGreen, color.Bold),
		errColor:    color.New(color.FgRed),
	}
}

// prompt 生成带当前虚拟目录的提示符
func (s *Shell) prompt() string {
	return s.promptColor.Sprintf("sandbash:%s$ ", s.bash.Cwd())
}

// Run 运行交互式循环
func (s *Shell) Run() int {
	historyFile := ""
	if home := os.Getenv("HOME"); home != "" {
		historyFile = filepath.Join(home, ".sandbash_history")
	}

	config := &readline.Config{
		Prompt:          s.prompt(),
		HistoryFile:     historyFile,
		HistoryLimit:    1000,
		InterruptPrompt: "^C",
		EOFPrompt:       "exit",
	}

	rl, err := readline.NewEx(config)
	if err != nil {
		// readline不可用时回退到行扫描
		return s.runPlain()
	}
	defer rl.Close()

	lastExit := 0
	for s.running {
		rl.SetPrompt(s.prompt())
		line, err := rl.Readline()
		if err == readline.ErrInterrupt {
			continue
		}
		if err == io.EOF {
			break
		}
		if err != nil {
			break
		}
		if strings.TrimSpace(line) == "" {
			continue
		}
		lastExit = s.runLine(line)
	}
	return lastExit
}

// runPlain 无readline环境下的简单循环
func (s *Shell) runPlain() int {
	scanner := bufio.NewScanner(os.Stdin)
	lastExit := 0
	for s.running {
		fmt.Print(s.prompt())
		if !scanner.Scan() {
			break
		}
		line := scanner.Text()
		if strings.TrimSpace(line) == "" {
			continue
		}
		lastExit = s.runLine(line)
	}
	return lastExit
}

// runLine 执行一行并输出结果
func (s *Shell) runLine(line string) int {
	res := s.bash.Exec(line)
	if res.Stdout != "" {
		fmt.Print(res.Stdout)
	}
	if res.Stderr != "" {
		s.errColor.Fprint(os.Stderr, res.Stderr)
	}
	return res.ExitCode
}
