package builtin

import (
	"strings"
	"testing"

	"github.com/ahrtr/gocontainer/stack"

	"sandbash/internal/vfs"
)

// newCtx 构造以根目录为当前目录的测试上下文
func newCtx(args ...string) *Context {
	cwd := "/"
	return &Context{
		Args:     args,
		Env:      map[string]string{},
		Cwd:      &cwd,
		FS:       vfs.NewMemFS(),
		DirStack: stack.New(),
	}
}

func withStdin(ctx *Context, stdin string) *Context {
	ctx.Stdin = stdin
	ctx.HasStdin = true
	return ctx
}

// call 按名称调用内置命令
func call(t *testing.T, ctx *Context, name string) *Result {
	t.Helper()
	fn, found := Get(name)
	if !found {
		t.Fatalf("内置命令 %s 未注册", name)
	}
	return fn(ctx)
}

func TestEcho(t *testing.T) {
	tests := []struct {
		name string
		args []string
		want string
	}{
		{"无参数", nil, "\n"},
		{"多参数", []string{"a", "b", "c"}, "a b c\n"},
		{"-n抑制换行", []string{"-n", "hi"}, "hi"},
		{"-e解释转义", []string{"-e", `a\tb\n`}, "a\tb\n\n"},
		{"-ne组合", []string{"-ne", `x\n`}, "x\n"},
		{"-E禁用转义", []string{"-E", `a\tb`}, `a\tb` + "\n"},
		{"非选项的横线", []string{"-x", "y"}, "-x y\n"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			res := call(t, newCtx(tt.args...), "echo")
			if res.Stdout != tt.want {
				t.Errorf("echo %v 输出 = %q, 期望 %q", tt.args, res.Stdout, tt.want)
			}
		})
	}
}

func TestPrintf(t *testing.T) {
	tests := []struct {
		name string
		args []string
		want string
	}{
		{"字符串", []string{"%s\n", "hi"}, "hi\n"},
		{"整数", []string{"%d-%d\n", "3", "4"}, "3-4\n"},
		{"宽度", []string{"[%5s]", "ab"}, "[   ab]"},
		{"格式循环", []string{"%s\n", "a", "b"}, "a\nb\n"},
		{"缺参数补空", []string{"%s:%d\n", "x"}, "x:0\n"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			res := call(t, newCtx(tt.args...), "printf")
			if res.Stdout != tt.want {
				t.Errorf("printf %v 输出 = %q, 期望 %q", tt.args, res.Stdout, tt.want)
			}
		})
	}
}

func TestCat(t *testing.T) {
	ctx := newCtx("/a.txt", "/b.txt")
	ctx.FS.WriteFile("/a.txt", []byte("one\n"))
	ctx.FS.WriteFile("/b.txt", []byte("two\n"))
	res := call(t, ctx, "cat")
	if res.Stdout != "one\ntwo\n" {
		t.Errorf("cat 多文件输出 = %q", res.Stdout)
	}

	ctx = withStdin(newCtx(), "from stdin")
	res = call(t, ctx, "cat")
	if res.Stdout != "from stdin" {
		t.Errorf("cat 标准输入输出 = %q", res.Stdout)
	}

	ctx = newCtx("-n", "/a.txt")
	ctx.FS.WriteFile("/a.txt", []byte("x\ny\n"))
	res = call(t, ctx, "cat")
	if res.Stdout != "     1\tx\n     2\ty\n" {
		t.Errorf("cat -n 输出 = %q", res.Stdout)
	}

	ctx = newCtx("-E", "/a.txt")
	ctx.FS.WriteFile("/a.txt", []byte("x\n"))
	res = call(t, ctx, "cat")
	if res.Stdout != "x$\n" {
		t.Errorf("cat -E 输出 = %q", res.Stdout)
	}

	res = call(t, newCtx("/missing"), "cat")
	if res.ExitCode == 0 || !strings.Contains(res.Stderr, "No such file") {
		t.Errorf("cat 不存在的文件应报错, 得到 code=%d stderr=%q", res.ExitCode, res.Stderr)
	}
}

func TestLs(t *testing.T) {
	ctx := newCtx()
	ctx.FS.WriteFile("/b.txt", []byte("b"))
	ctx.FS.WriteFile("/a.txt", []byte("a"))
	ctx.FS.WriteFile("/.hidden", []byte("h"))
	ctx.FS.Mkdir("/sub", false)

	res := call(t, ctx, "ls")
	if res.Stdout != "a.txt\nb.txt\nsub\n" {
		t.Errorf("ls 默认输出 = %q", res.Stdout)
	}

	ctx.Args = []string{"-a"}
	res = call(t, ctx, "ls")
	if res.Stdout != ".hidden\na.txt\nb.txt\nsub\n" {
		t.Errorf("ls -a 输出 = %q", res.Stdout)
	}

	ctx.Args = []string{"-l"}
	res = call(t, ctx, "ls")
	lines := strings.Split(strings.TrimSuffix(res.Stdout, "\n"), "\n")
	if len(lines) != 3 {
		t.Fatalf("ls -l 行数 = %d, 期望 3", len(lines))
	}
	if !strings.HasPrefix(lines[2], "d") || !strings.HasSuffix(lines[2], " sub") {
		t.Errorf("ls -l 目录行 = %q", lines[2])
	}

	ctx.Args = []string{"/missing"}
	res = call(t, ctx, "ls")
	if res.ExitCode == 0 {
		t.Errorf("ls 不存在的路径应失败")
	}
}

func TestCdPwd(t *testing.T) {
	ctx := newCtx()
	ctx.FS.Mkdir("/home/user", true)
	ctx.FS.Mkdir("/tmp", false)

	ctx.Args = []string{"/tmp"}
	if res := call(t, ctx, "cd"); res.ExitCode != 0 {
		t.Fatalf("cd /tmp 失败: %s", res.Stderr)
	}
	if *ctx.Cwd != "/tmp" || ctx.Env["PWD"] != "/tmp" {
		t.Errorf("cd 后 cwd = %q PWD = %q", *ctx.Cwd, ctx.Env["PWD"])
	}

	// 无参数回到HOME
	ctx.Args = nil
	ctx.Env["HOME"] = "/home/user"
	call(t, ctx, "cd")
	if *ctx.Cwd != "/home/user" {
		t.Errorf("cd 无参数 cwd = %q, 期望 /home/user", *ctx.Cwd)
	}

	// cd - 回到上一目录
	ctx.Args = []string{"-"}
	call(t, ctx, "cd")
	if *ctx.Cwd != "/tmp" || ctx.Env["OLDPWD"] != "/home/user" {
		t.Errorf("cd - 后 cwd = %q OLDPWD = %q", *ctx.Cwd, ctx.Env["OLDPWD"])
	}

	if res := call(t, newCtx(), "pwd"); res.Stdout != "/\n" {
		t.Errorf("pwd 输出 = %q", res.Stdout)
	}

	ctx = newCtx("/nope")
	if res := call(t, ctx, "cd"); res.ExitCode == 0 {
		t.Errorf("cd 到不存在目录应失败")
	}
	ctx = newCtx("/f")
	ctx.FS.WriteFile("/f", []byte("x"))
	if res := call(t, ctx, "cd"); res.ExitCode == 0 || !strings.Contains(res.Stderr, "Not a directory") {
		t.Errorf("cd 到文件应失败, stderr=%q", res.Stderr)
	}
}

func TestMkdirRmdirRm(t *testing.T) {
	ctx := newCtx("-p", "/a/b/c")
	if res := call(t, ctx, "mkdir"); res.ExitCode != 0 {
		t.Fatalf("mkdir -p 失败: %s", res.Stderr)
	}
	if !ctx.FS.Exists("/a/b/c") {
		t.Errorf("mkdir -p 未创建目录链")
	}
	// -p 对已有目录不报错
	if res := call(t, ctx, "mkdir"); res.ExitCode != 0 {
		t.Errorf("mkdir -p 重复创建应成功: %s", res.Stderr)
	}

	ctx.Args = []string{"/a/b/c"}
	if res := call(t, ctx, "rmdir"); res.ExitCode != 0 {
		t.Errorf("rmdir 空目录失败: %s", res.Stderr)
	}
	ctx.Args = []string{"/a"}
	if res := call(t, ctx, "rmdir"); res.ExitCode == 0 || !strings.Contains(res.Stderr, "not empty") {
		t.Errorf("rmdir 非空目录应失败, stderr=%q", res.Stderr)
	}

	ctx.FS.WriteFile("/a/f.txt", []byte("x"))
	ctx.Args = []string{"/a"}
	if res := call(t, ctx, "rm"); res.ExitCode == 0 {
		t.Errorf("rm 目录不带 -r 应失败")
	}
	ctx.Args = []string{"-rf", "/a"}
	if res := call(t, ctx, "rm"); res.ExitCode != 0 {
		t.Errorf("rm -rf 失败: %s", res.Stderr)
	}
	if ctx.FS.Exists("/a") {
		t.Errorf("rm -rf 后目录仍存在")
	}

	ctx.Args = []string{"-f", "/missing"}
	if res := call(t, ctx, "rm"); res.ExitCode != 0 {
		t.Errorf("rm -f 不存在的文件应静默成功")
	}
	ctx.Args = []string{"/missing"}
	if res := call(t, ctx, "rm"); res.ExitCode == 0 {
		t.Errorf("rm 不存在的文件应失败")
	}
}

func TestCpMv(t *testing.T) {
	ctx := newCtx("/src.txt", "/dst.txt")
	ctx.FS.WriteFile("/src.txt", []byte("data"))
	if res := call(t, ctx, "cp"); res.ExitCode != 0 {
		t.Fatalf("cp 失败: %s", res.Stderr)
	}
	data, _ := ctx.FS.ReadFile("/dst.txt")
	if string(data) != "data" {
		t.Errorf("cp 目标内容 = %q", data)
	}

	// 复制进目录保留文件名
	ctx.FS.Mkdir("/dir", false)
	ctx.Args = []string{"/src.txt", "/dir"}
	call(t, ctx, "cp")
	if !ctx.FS.Exists("/dir/src.txt") {
		t.Errorf("cp 到目录未保留文件名")
	}

	ctx.Args = []string{"/dir", "/dir2"}
	if res := call(t, ctx, "cp"); res.ExitCode == 0 {
		t.Errorf("cp 目录不带 -r 应失败")
	}
	ctx.Args = []string{"-r", "/dir", "/dir2"}
	if res := call(t, ctx, "cp"); res.ExitCode != 0 {
		t.Fatalf("cp -r 失败: %s", res.Stderr)
	}
	if !ctx.FS.Exists("/dir2/src.txt") {
		t.Errorf("cp -r 未复制子文件")
	}

	ctx.Args = []string{"/dst.txt", "/renamed.txt"}
	if res := call(t, ctx, "mv"); res.ExitCode != 0 {
		t.Fatalf("mv 失败: %s", res.Stderr)
	}
	if ctx.FS.Exists("/dst.txt") || !ctx.FS.Exists("/renamed.txt") {
		t.Errorf("mv 未完成重命名")
	}

	ctx.Args = []string{"/renamed.txt", "/dir"}
	call(t, ctx, "mv")
	if !ctx.FS.Exists("/dir/renamed.txt") {
		t.Errorf("mv 到目录未保留文件名")
	}

	ctx.Args = []string{"/a", "/b", "/notadir"}
	if res := call(t, ctx, "mv"); res.ExitCode == 0 || !strings.Contains(res.Stderr, "is not a directory") {
		t.Errorf("mv 多源到非目录应失败, stderr=%q", res.Stderr)
	}
}

func TestHeadTail(t *testing.T) {
	input := "1\n2\n3\n4\n5\n"
	tests := []struct {
		name string
		cmd  string
		args []string
		want string
	}{
		{"head默认10行", "head", nil, input},
		{"head -n 2", "head", []string{"-n", "2"}, "1\n2\n"},
		{"head -3", "head", []string{"-3"}, "1\n2\n3\n"},
		{"tail -n 2", "tail", []string{"-n", "2"}, "4\n5\n"},
		{"tail -1", "tail", []string{"-1"}, "5\n"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			res := call(t, withStdin(newCtx(tt.args...), input), tt.cmd)
			if res.Stdout != tt.want {
				t.Errorf("%s %v 输出 = %q, 期望 %q", tt.cmd, tt.args, res.Stdout, tt.want)
			}
		})
	}

	res := call(t, newCtx("-n"), "head")
	if res.ExitCode == 0 {
		t.Errorf("head -n 缺参数应失败")
	}
}

func TestWc(t *testing.T) {
	res := call(t, withStdin(newCtx(), "a b\nc\n"), "wc")
	if res.Stdout != "2 3 6\n" {
		t.Errorf("wc 默认输出 = %q", res.Stdout)
	}
	res = call(t, withStdin(newCtx("-l"), "a\nb\nc\n"), "wc")
	if res.Stdout != "3\n" {
		t.Errorf("wc -l 输出 = %q", res.Stdout)
	}
	res = call(t, withStdin(newCtx("-w"), "one two three"), "wc")
	if res.Stdout != "3\n" {
		t.Errorf("wc -w 输出 = %q", res.Stdout)
	}
	res = call(t, withStdin(newCtx("-c"), "abcd"), "wc")
	if res.Stdout != "4\n" {
		t.Errorf("wc -c 输出 = %q", res.Stdout)
	}
}

func TestGrep(t *testing.T) {
	input := "apple\nbanana\nApple pie\ncherry\n"
	tests := []struct {
		name     string
		args     []string
		want     string
		wantCode int
	}{
		{"基本匹配", []string{"apple"}, "apple\n", 0},
		{"忽略大小写", []string{"-i", "apple"}, "apple\nApple pie\n", 0},
		{"反向匹配", []string{"-v", "a"}, "Apple pie\ncherry\n", 0},
		{"计数", []string{"-c", "an"}, "1\n", 0},
		{"正则", []string{"^c.*y$"}, "cherry\n", 0},
		{"固定字符串", []string{"-F", "e p"}, "Apple pie\n", 0},
		{"无匹配退出1", []string{"zzz"}, "", 1},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			res := call(t, withStdin(newCtx(tt.args...), input), "grep")
			if res.Stdout != tt.want || res.ExitCode != tt.wantCode {
				t.Errorf("grep %v = (%q, %d), 期望 (%q, %d)",
					tt.args, res.Stdout, res.ExitCode, tt.want, tt.wantCode)
			}
		})
	}

	res := call(t, withStdin(newCtx("["), "x"), "grep")
	if res.ExitCode != 2 {
		t.Errorf("grep 非法正则应退出2, 得到 %d", res.ExitCode)
	}
}

func TestSortUniq(t *testing.T) {
	res := call(t, withStdin(newCtx(), "b\na\nc\n"), "sort")
	if res.Stdout != "a\nb\nc\n" {
		t.Errorf("sort 输出 = %q", res.Stdout)
	}
	res = call(t, withStdin(newCtx("-r"), "a\nb\n"), "sort")
	if res.Stdout != "b\na\n" {
		t.Errorf("sort -r 输出 = %q", res.Stdout)
	}
	res = call(t, withStdin(newCtx("-n"), "10\n9\n100\n"), "sort")
	if res.Stdout != "9\n10\n100\n" {
		t.Errorf("sort -n 输出 = %q", res.Stdout)
	}
	res = call(t, withStdin(newCtx("-u"), "b\na\nb\n"), "sort")
	if res.Stdout != "a\nb\n" {
		t.Errorf("sort -u 输出 = %q", res.Stdout)
	}

	res = call(t, withStdin(newCtx(), "a\na\nb\na\n"), "uniq")
	if res.Stdout != "a\nb\na\n" {
		t.Errorf("uniq 输出 = %q", res.Stdout)
	}
	res = call(t, withStdin(newCtx("-c"), "a\na\nb\n"), "uniq")
	if res.Stdout != "      2 a\n      1 b\n" {
		t.Errorf("uniq -c 输出 = %q", res.Stdout)
	}
	res = call(t, withStdin(newCtx("-d"), "a\na\nb\n"), "uniq")
	if res.Stdout != "a\n" {
		t.Errorf("uniq -d 输出 = %q", res.Stdout)
	}
}

func TestTr(t *testing.T) {
	tests := []struct {
		name  string
		args  []string
		stdin string
		want  string
	}{
		{"单字符替换", []string{"a", "b"}, "banana", "bbnbnb"},
		{"范围替换", []string{"a-z", "A-Z"}, "hello", "HELLO"},
		{"字符类", []string{"[:lower:]", "[:upper:]"}, "MixEd", "MIXED"},
		{"删除", []string{"-d", "aeiou"}, "banana", "bnn"},
		{"短替换集补最后字符", []string{"abc", "x"}, "cab", "xxx"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			res := call(t, withStdin(newCtx(tt.args...), tt.stdin), "tr")
			if res.Stdout != tt.want {
				t.Errorf("tr %v 输出 = %q, 期望 %q", tt.args, res.Stdout, tt.want)
			}
		})
	}
}

func TestCut(t *testing.T) {
	input := "a:b:c\nx:y:z\n"
	res := call(t, withStdin(newCtx("-d", ":", "-f", "2"), input), "cut")
	if res.Stdout != "b\ny\n" {
		t.Errorf("cut -d : -f 2 输出 = %q", res.Stdout)
	}
	res = call(t, withStdin(newCtx("-d:", "-f1,3"), input), "cut")
	if res.Stdout != "a:c\nx:z\n" {
		t.Errorf("cut -d: -f1,3 输出 = %q", res.Stdout)
	}
	res = call(t, withStdin(newCtx("-c", "1-3"), "abcdef\n"), "cut")
	if res.Stdout != "abc\n" {
		t.Errorf("cut -c 1-3 输出 = %q", res.Stdout)
	}
}

func TestSeq(t *testing.T) {
	tests := []struct {
		name string
		args []string
		want string
	}{
		{"单参数", []string{"3"}, "1\n2\n3\n"},
		{"起止", []string{"2", "4"}, "2\n3\n4\n"},
		{"步长", []string{"1", "2", "6"}, "1\n3\n5\n"},
		{"递减", []string{"3", "-1", "1"}, "3\n2\n1\n"},
		{"空范围", []string{"5", "3"}, ""},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			res := call(t, newCtx(tt.args...), "seq")
			if res.Stdout != tt.want {
				t.Errorf("seq %v 输出 = %q, 期望 %q", tt.args, res.Stdout, tt.want)
			}
		})
	}
	if res := call(t, newCtx("1", "0", "5"), "seq"); res.ExitCode == 0 {
		t.Errorf("seq 步长为0应失败")
	}
}

func TestBasenameDirname(t *testing.T) {
	res := call(t, newCtx("/usr/local/bin"), "basename")
	if res.Stdout != "bin\n" {
		t.Errorf("basename 输出 = %q", res.Stdout)
	}
	res = call(t, newCtx("/tmp/file.txt", ".txt"), "basename")
	if res.Stdout != "file\n" {
		t.Errorf("basename 去后缀输出 = %q", res.Stdout)
	}
	res = call(t, newCtx("/usr/local/bin"), "dirname")
	if res.Stdout != "/usr/local\n" {
		t.Errorf("dirname 输出 = %q", res.Stdout)
	}
	res = call(t, newCtx("plain"), "dirname")
	if res.Stdout != ".\n" {
		t.Errorf("dirname 无斜杠路径输出 = %q", res.Stdout)
	}
}

func TestTestCommand(t *testing.T) {
	tests := []struct {
		name string
		args []string
		want int
	}{
		{"无参数为假", nil, 1},
		{"非空串为真", []string{"x"}, 0},
		{"空串为假", []string{""}, 1},
		{"-z空串", []string{"-z", ""}, 0},
		{"-n非空", []string{"-n", "a"}, 0},
		{"字符串相等", []string{"a", "=", "a"}, 0},
		{"字符串不等", []string{"a", "!=", "b"}, 0},
		{"数值相等", []string{"5", "-eq", "5"}, 0},
		{"数值小于", []string{"3", "-lt", "5"}, 0},
		{"数值大于为假", []string{"3", "-gt", "5"}, 1},
		{"取反", []string{"!", "a", "=", "b"}, 0},
		{"与", []string{"a", "=", "a", "-a", "1", "-eq", "1"}, 0},
		{"或", []string{"a", "=", "b", "-o", "1", "-eq", "1"}, 0},
		{"非整数用法错误", []string{"x", "-eq", "1"}, 2},
		{"未知运算符", []string{"a", "~~", "b"}, 2},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			res := call(t, newCtx(tt.args...), "test")
			if res.ExitCode != tt.want {
				t.Errorf("test %v 退出码 = %d, 期望 %d", tt.args, res.ExitCode, tt.want)
			}
		})
	}
}

func TestTestFileOperators(t *testing.T) {
	ctx := newCtx()
	ctx.FS.WriteFile("/file", []byte("content"))
	ctx.FS.WriteFile("/empty", nil)
	ctx.FS.Mkdir("/dir", false)

	tests := []struct {
		name string
		args []string
		want int
	}{
		{"-e存在", []string{"-e", "/file"}, 0},
		{"-e不存在", []string{"-e", "/nope"}, 1},
		{"-f普通文件", []string{"-f", "/file"}, 0},
		{"-f目录为假", []string{"-f", "/dir"}, 1},
		{"-d目录", []string{"-d", "/dir"}, 0},
		{"-s非空文件", []string{"-s", "/file"}, 0},
		{"-s空文件为假", []string{"-s", "/empty"}, 1},
		{"-r存在即可读", []string{"-r", "/file"}, 0},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			ctx.Args = tt.args
			res := call(t, ctx, "test")
			if res.ExitCode != tt.want {
				t.Errorf("test %v 退出码 = %d, 期望 %d", tt.args, res.ExitCode, tt.want)
			}
		})
	}
}

func TestBracketCommand(t *testing.T) {
	res := call(t, newCtx("a", "=", "a", "]"), "[")
	if res.ExitCode != 0 {
		t.Errorf("[ a = a ] 退出码 = %d", res.ExitCode)
	}
	res = call(t, newCtx("a", "=", "a"), "[")
	if res.ExitCode != 2 {
		t.Errorf("缺少 ] 应退出2, 得到 %d", res.ExitCode)
	}
}

func TestBase64(t *testing.T) {
	res := call(t, withStdin(newCtx(), "hello"), "base64")
	if res.Stdout != "aGVsbG8=\n" {
		t.Errorf("base64 编码输出 = %q", res.Stdout)
	}
	res = call(t, withStdin(newCtx("-d"), "aGVsbG8=\n"), "base64")
	if res.Stdout != "hello" {
		t.Errorf("base64 -d 输出 = %q", res.Stdout)
	}
	res = call(t, withStdin(newCtx("-d"), "!!!"), "base64")
	if res.ExitCode == 0 {
		t.Errorf("base64 -d 非法输入应失败")
	}
}

func TestHashCommands(t *testing.T) {
	// echo无换行的"abc"摘要为已知值
	res := call(t, withStdin(newCtx(), "abc"), "sha256sum")
	if !strings.HasPrefix(res.Stdout, "ba7816bf8f01cfea414140de5dae2223b00361a396177a9cb410ff61f20015ad") {
		t.Errorf("sha256sum 输出 = %q", res.Stdout)
	}
	if !strings.HasSuffix(res.Stdout, "  -\n") {
		t.Errorf("sha256sum 标准输入应标记为 -, 得到 %q", res.Stdout)
	}

	ctx := newCtx("/f")
	ctx.FS.WriteFile("/f", []byte("abc"))
	res = call(t, ctx, "sha256sum")
	if !strings.HasSuffix(res.Stdout, "  /f\n") {
		t.Errorf("sha256sum 文件输出 = %q", res.Stdout)
	}

	// blake2b与blake3输出128位十六进制长度校验
	res = call(t, withStdin(newCtx(), "abc"), "b2sum")
	if len(strings.Fields(res.Stdout)[0]) != 128 {
		t.Errorf("b2sum 摘要长度异常: %q", res.Stdout)
	}
	res = call(t, withStdin(newCtx(), "abc"), "b3sum")
	if len(strings.Fields(res.Stdout)[0]) != 64 {
		t.Errorf("b3sum 摘要长度异常: %q", res.Stdout)
	}
}

func TestAwk(t *testing.T) {
	res := call(t, withStdin(newCtx("{ print $2 }"), "a b c\nx y z\n"), "awk")
	if res.Stdout != "b\ny\n" {
		t.Errorf("awk 取字段输出 = %q", res.Stdout)
	}

	res = call(t, withStdin(newCtx("{ s += $1 } END { print s }"), "1\n2\n3\n"), "awk")
	if res.Stdout != "6\n" {
		t.Errorf("awk 求和输出 = %q", res.Stdout)
	}

	res = call(t, withStdin(newCtx("-F", ":", "{ print $1 }"), "root:x:0\n"), "awk")
	if res.Stdout != "root\n" {
		t.Errorf("awk -F 输出 = %q", res.Stdout)
	}

	res = call(t, withStdin(newCtx("-v", "n=5", "BEGIN { print n }"), ""), "awk")
	if res.Stdout != "5\n" {
		t.Errorf("awk -v 输出 = %q", res.Stdout)
	}

	res = call(t, newCtx("{ print"), "awk")
	if res.ExitCode != 2 {
		t.Errorf("awk 语法错误应退出2, 得到 %d", res.ExitCode)
	}
}

func TestDirStack(t *testing.T) {
	ctx := newCtx()
	ctx.FS.Mkdir("/a", false)
	ctx.FS.Mkdir("/b", false)

	ctx.Args = []string{"/a"}
	res := call(t, ctx, "pushd")
	if res.ExitCode != 0 || *ctx.Cwd != "/a" {
		t.Fatalf("pushd /a 失败: code=%d cwd=%q", res.ExitCode, *ctx.Cwd)
	}
	if res.Stdout != "/a /\n" {
		t.Errorf("pushd 输出 = %q", res.Stdout)
	}

	ctx.Args = []string{"/b"}
	call(t, ctx, "pushd")
	ctx.Args = nil
	res = call(t, ctx, "dirs")
	if res.Stdout != "/b /a /\n" {
		t.Errorf("dirs 输出 = %q", res.Stdout)
	}

	// 无参数pushd交换栈顶
	res = call(t, ctx, "pushd")
	if *ctx.Cwd != "/a" || res.Stdout != "/a /b /\n" {
		t.Errorf("pushd 交换后 cwd=%q 输出=%q", *ctx.Cwd, res.Stdout)
	}

	res = call(t, ctx, "popd")
	if *ctx.Cwd != "/b" {
		t.Errorf("popd 后 cwd = %q, 期望 /b", *ctx.Cwd)
	}
	call(t, ctx, "popd")
	if *ctx.Cwd != "/" {
		t.Errorf("再次 popd 后 cwd = %q, 期望 /", *ctx.Cwd)
	}
	res = call(t, ctx, "popd")
	if res.ExitCode == 0 {
		t.Errorf("空栈 popd 应失败")
	}
}

func TestTrueFalseColon(t *testing.T) {
	if res := call(t, newCtx(), "true"); res.ExitCode != 0 {
		t.Errorf("true 退出码 = %d", res.ExitCode)
	}
	if res := call(t, newCtx(), "false"); res.ExitCode != 1 {
		t.Errorf("false 退出码 = %d", res.ExitCode)
	}
	if res := call(t, newCtx("ignored"), ":"); res.ExitCode != 0 {
		t.Errorf(": 退出码 = %d", res.ExitCode)
	}
}

func TestGetNames(t *testing.T) {
	if _, found := Get("echo"); !found {
		t.Errorf("echo 应已注册")
	}
	if _, found := Get("nosuch"); found {
		t.Errorf("nosuch 不应注册")
	}
	names := Names()
	if len(names) < 30 {
		t.Errorf("注册命令数 = %d, 偏少", len(names))
	}
}
