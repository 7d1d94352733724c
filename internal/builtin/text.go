package builtin

import (
	"fmt"
	"path"
	"regexp"
	"sort"
	"strconv"
	"strings"
)

// echo 输出参数
// 支持 -n 不换行与 -e 转义解释
func echo(ctx *Context) *Result {
	newline := true
	escape := false
	args := ctx.Args
	for len(args) > 0 {
		switch args[0] {
		case "-n":
			newline = false
		case "-e":
			escape = true
		case "-ne", "-en":
			newline = false
			escape = true
		case "-E":
			escape = false
		default:
			goto body
		}
		args = args[1:]
	}
body:
	out := strings.Join(args, " ")
	if escape {
		out = interpretEscapes(out)
	}
	if newline {
		out += "\n"
	}
	return ok(out)
}

// interpretEscapes 解释echo -e和printf共用的反斜杠转义
func interpretEscapes(s string) string {
	var sb strings.Builder
	for i := 0; i < len(s); i++ {
		if s[i] != '\\' || i+1 >= len(s) {
			sb.WriteByte(s[i])
			continue
		}
		i++
		switch s[i] {
		case 'n':
			sb.WriteByte('\n')
		case 't':
			sb.WriteByte('\t')
		case 'r':
			sb.WriteByte('\r')
		case 'a':
			sb.WriteByte('\a')
		case 'b':
			sb.WriteByte('\b')
		case 'f':
			sb.WriteByte('\f')
		case 'v':
			sb.WriteByte('\v')
		case '\\':
			sb.WriteByte('\\')
		case '0':
			// 八进制 \0NNN
			j := i + 1
			for j < len(s) && j <= i+3 && s[j] >= '0' && s[j] <= '7' {
				j++
			}
			if v, err := strconv.ParseInt(s[i+1:j], 8, 16); err == nil && j > i+1 {
				sb.WriteByte(byte(v))
				i = j - 1
			} else {
				sb.WriteByte(0)
			}
		case 'x':
			j := i + 1
			for j < len(s) && j <= i+2 && isHexDigit(s[j]) {
				j++
			}
			if j > i+1 {
				v, _ := strconv.ParseInt(s[i+1:j], 16, 16)
				sb.WriteByte(byte(v))
				i = j - 1
			} else {
				sb.WriteString("\\x")
			}
		default:
			sb.WriteByte('\\')
			sb.WriteByte(s[i])
		}
	}
	return sb.String()
}

func isHexDigit(c byte) bool {
	return ('0' <= c && c <= '9') || ('a' <= c && c <= 'f') || ('A' <= c && c <= 'F')
}

// printfCmd 格式化输出，格式串被循环套用直到参数耗尽
func printfCmd(ctx *Context) *Result {
	if len(ctx.Args) == 0 {
		return fail("printf", 1, "usage: printf format [arguments]")
	}
	format := ctx.Args[0]
	args := ctx.Args[1:]

	var sb strings.Builder
	for {
		consumed := printfOnce(&sb, format, args)
		if consumed == 0 || consumed >= len(args) {
			break
		}
		args = args[consumed:]
	}
	return ok(sb.String())
}

var printfVerbRe = regexp.MustCompile(`%[-+ #0]*[0-9]*(\.[0-9]+)?[diouxXeEfgGcsb%]`)

// printfOnce 套用一轮格式串，返回消耗的参数个数
func printfOnce(sb *strings.Builder, format string, args []string) int {
	consumed := 0
	out := printfVerbRe.ReplaceAllStringFunc(interpretEscapes(format), func(verb string) string {
		kind := verb[len(verb)-1]
		if kind == '%' {
			return "%"
		}
		var arg string
		if consumed < len(args) {
			arg = args[consumed]
			consumed++
		}
		switch kind {
		case 'd', 'i', 'o', 'u', 'x', 'X':
			n, _ := strconv.ParseInt(strings.TrimSpace(arg), 0, 64)
			v := verb
			if kind == 'i' || kind == 'u' {
				v = verb[:len(verb)-1] + "d"
			}
			return fmt.Sprintf(v, n)
		case 'e', 'E', 'f', 'g', 'G':
			f, _ := strconv.ParseFloat(strings.TrimSpace(arg), 64)
			return fmt.Sprintf(verb, f)
		case 'c':
			if arg == "" {
				return ""
			}
			return fmt.Sprintf(verb, rune(arg[0]))
		case 'b':
			return fmt.Sprintf(verb[:len(verb)-1]+"s", interpretEscapes(arg))
		default:
			return fmt.Sprintf(verb, arg)
		}
	})
	sb.WriteString(out)
	return consumed
}

func trueCmd(ctx *Context) *Result { return ok("") }
func falseCmd(ctx *Context) *Result { return &Result{ExitCode: 1} }

// head 输出前N行
func head(ctx *Context) *Result {
	n, args, errRes := parseLineCount(ctx.Args, "head")
	if errRes != nil {
		return errRes
	}
	text, errRes := inputText(ctx, args, "head")
	if errRes != nil {
		return errRes
	}
	lines := splitLines(text)
	if len(lines) > n {
		lines = lines[:n]
	}
	return ok(joinLines(lines))
}

// tail 输出后N行
func tail(ctx *Context) *Result {
	n, args, errRes := parseLineCount(ctx.Args, "tail")
	if errRes != nil {
		return errRes
	}
	text, errRes := inputText(ctx, args, "tail")
	if errRes != nil {
		return errRes
	}
	lines := splitLines(text)
	if len(lines) > n {
		lines = lines[len(lines)-n:]
	}
	return ok(joinLines(lines))
}

// parseLineCount 解析 -n N 与 -N 形式的行数选项，默认10
func parseLineCount(args []string, name string) (int, []string, *Result) {
	n := 10
	rest := args
	for len(rest) > 0 && strings.HasPrefix(rest[0], "-") && rest[0] != "-" {
		opt := rest[0]
		if opt == "-n" {
			if len(rest) < 2 {
				return 0, nil, fail(name, 1, "option requires an argument -- 'n'")
			}
			v, err := strconv.Atoi(rest[1])
			if err != nil || v < 0 {
				return 0, nil, fail(name, 1, "invalid number of lines: '%s'", rest[1])
			}
			n = v
			rest = rest[2:]
			continue
		}
		if v, err := strconv.Atoi(opt[1:]); err == nil {
			n = v
			rest = rest[1:]
			continue
		}
		return 0, nil, fail(name, 1, "invalid option -- '%s'", opt)
	}
	return n, rest, nil
}

func joinLines(lines []string) string {
	if len(lines) == 0 {
		return ""
	}
	return strings.Join(lines, "\n") + "\n"
}

// wc 统计行数、词数和字节数
func wc(ctx *Context) *Result {
	var countLines, countWords, countBytes bool
	var files []string
	for _, arg := range ctx.Args {
		switch arg {
		case "-l":
			countLines = true
		case "-w":
			countWords = true
		case "-c":
			countBytes = true
		default:
			if strings.HasPrefix(arg, "-") && arg != "-" {
				return fail("wc", 1, "invalid option -- '%s'", arg)
			}
			files = append(files, arg)
		}
	}
	if !countLines && !countWords && !countBytes {
		countLines, countWords, countBytes = true, true, true
	}

	text, errRes := inputText(ctx, files, "wc")
	if errRes != nil {
		return errRes
	}
	lines := strings.Count(text, "\n")
	words := len(strings.Fields(text))
	bytes := len(text)

	var fields []string
	if countLines {
		fields = append(fields, strconv.Itoa(lines))
	}
	if countWords {
		fields = append(fields, strconv.Itoa(words))
	}
	if countBytes {
		fields = append(fields, strconv.Itoa(bytes))
	}
	return ok(strings.Join(fields, " ") + "\n")
}

// grep 按正则过滤行
func grep(ctx *Context) *Result {
	var invert, ignoreCase, countOnly, fixed bool
	args := ctx.Args
	for len(args) > 0 && strings.HasPrefix(args[0], "-") && args[0] != "-" {
		switch args[0] {
		case "-v":
			invert = true
		case "-i":
			ignoreCase = true
		case "-c":
			countOnly = true
		case "-F":
			fixed = true
		case "-E":
			// 扩展正则即默认行为
		default:
			return fail("grep", 2, "invalid option -- '%s'", args[0])
		}
		args = args[1:]
	}
	if len(args) == 0 {
		return fail("grep", 2, "usage: grep [-vicFE] pattern [file...]")
	}
	pattern := args[0]
	if fixed {
		pattern = regexp.QuoteMeta(pattern)
	}
	if ignoreCase {
		pattern = "(?i)" + pattern
	}
	re, err := regexp.Compile(pattern)
	if err != nil {
		return fail("grep", 2, "invalid pattern: %v", err)
	}

	text, errRes := inputText(ctx, args[1:], "grep")
	if errRes != nil {
		return errRes
	}
	var matched []string
	for _, line := range splitLines(text) {
		if re.MatchString(line) != invert {
			matched = append(matched, line)
		}
	}
	if countOnly {
		return ok(strconv.Itoa(len(matched)) + "\n")
	}
	if len(matched) == 0 {
		return &Result{ExitCode: 1}
	}
	return ok(joinLines(matched))
}

// sortCmd 排序行
func sortCmd(ctx *Context) *Result {
	var reverse, numeric, unique bool
	var files []string
	for _, arg := range ctx.Args {
		switch arg {
		case "-r":
			reverse = true
		case "-n":
			numeric = true
		case "-u":
			unique = true
		case "-rn", "-nr":
			reverse, numeric = true, true
		default:
			if strings.HasPrefix(arg, "-") && arg != "-" {
				return fail("sort", 2, "invalid option -- '%s'", arg)
			}
			files = append(files, arg)
		}
	}
	text, errRes := inputText(ctx, files, "sort")
	if errRes != nil {
		return errRes
	}
	lines := splitLines(text)
	sort.SliceStable(lines, func(i, j int) bool {
		if numeric {
			a, _ := strconv.ParseFloat(strings.TrimSpace(lines[i]), 64)
			b, _ := strconv.ParseFloat(strings.TrimSpace(lines[j]), 64)
			if a != b {
				return a < b
			}
		}
		return lines[i] < lines[j]
	})
	if reverse {
		for i, j := 0, len(lines)-1; i < j; i, j = i+1, j-1 {
			lines[i], lines[j] = lines[j], lines[i]
		}
	}
	if unique {
		out := lines[:0]
		for i, line := range lines {
			if i == 0 || line != out[len(out)-1] {
				out = append(out, line)
			}
		}
		lines = out
	}
	return ok(joinLines(lines))
}

// uniq 去除相邻重复行
func uniq(ctx *Context) *Result {
	var countFlag, dupOnly bool
	var files []string
	for _, arg := range ctx.Args {
		switch arg {
		case "-c":
			countFlag = true
		case "-d":
			dupOnly = true
		default:
			if strings.HasPrefix(arg, "-") && arg != "-" {
				return fail("uniq", 1, "invalid option -- '%s'", arg)
			}
			files = append(files, arg)
		}
	}
	text, errRes := inputText(ctx, files, "uniq")
	if errRes != nil {
		return errRes
	}
	var sb strings.Builder
	lines := splitLines(text)
	for i := 0; i < len(lines); {
		j := i
		for j < len(lines) && lines[j] == lines[i] {
			j++
		}
		count := j - i
		if !dupOnly || count > 1 {
			if countFlag {
				fmt.Fprintf(&sb, "%7d %s\n", count, lines[i])
			} else {
				sb.WriteString(lines[i])
				sb.WriteByte('\n')
			}
		}
		i = j
	}
	return ok(sb.String())
}

// tr 字符转换与删除
func tr(ctx *Context) *Result {
	deleteMode := false
	args := ctx.Args
	if len(args) > 0 && args[0] == "-d" {
		deleteMode = true
		args = args[1:]
	}
	if deleteMode && len(args) != 1 || !deleteMode && len(args) != 2 {
		return fail("tr", 1, "usage: tr [-d] set1 [set2]")
	}

	set1 := expandTrSet(args[0])
	if deleteMode {
		drop := make(map[rune]bool, len(set1))
		for _, r := range set1 {
			drop[r] = true
		}
		var sb strings.Builder
		for _, r := range ctx.Stdin {
			if !drop[r] {
				sb.WriteRune(r)
			}
		}
		return ok(sb.String())
	}

	set2 := expandTrSet(args[1])
	if len(set2) == 0 {
		return fail("tr", 1, "empty replacement set")
	}
	mapping := make(map[rune]rune, len(set1))
	for i, r := range set1 {
		if i < len(set2) {
			mapping[r] = set2[i]
		} else {
			mapping[r] = set2[len(set2)-1]
		}
	}
	var sb strings.Builder
	for _, r := range ctx.Stdin {
		if to, exists := mapping[r]; exists {
			sb.WriteRune(to)
		} else {
			sb.WriteRune(r)
		}
	}
	return ok(sb.String())
}

// expandTrSet 展开tr字符集：a-z范围与[:class:]类
func expandTrSet(s string) []rune {
	switch s {
	case "[:lower:]":
		s = "a-z"
	case "[:upper:]":
		s = "A-Z"
	case "[:digit:]":
		s = "0-9"
	case "[:space:]":
		return []rune{' ', '\t', '\n', '\r', '\v', '\f'}
	}
	runes := []rune(s)
	var out []rune
	for i := 0; i < len(runes); i++ {
		if i+2 < len(runes) && runes[i+1] == '-' && runes[i+2] >= runes[i] {
			for r := runes[i]; r <= runes[i+2]; r++ {
				out = append(out, r)
			}
			i += 2
			continue
		}
		out = append(out, runes[i])
	}
	return out
}

// cut 按分隔符提取字段或按位置提取字符
func cut(ctx *Context) *Result {
	delim := "\t"
	var fieldSpec, charSpec string
	var files []string
	args := ctx.Args
	for i := 0; i < len(args); i++ {
		arg := args[i]
		switch {
		case arg == "-d":
			if i+1 >= len(args) {
				return fail("cut", 1, "option requires an argument -- 'd'")
			}
			i++
			delim = args[i]
		case strings.HasPrefix(arg, "-d"):
			delim = arg[2:]
		case arg == "-f":
			if i+1 >= len(args) {
				return fail("cut", 1, "option requires an argument -- 'f'")
			}
			i++
			fieldSpec = args[i]
		case strings.HasPrefix(arg, "-f"):
			fieldSpec = arg[2:]
		case arg == "-c":
			if i+1 >= len(args) {
				return fail("cut", 1, "option requires an argument -- 'c'")
			}
			i++
			charSpec = args[i]
		case strings.HasPrefix(arg, "-c"):
			charSpec = arg[2:]
		case strings.HasPrefix(arg, "-") && arg != "-":
			return fail("cut", 1, "invalid option -- '%s'", arg)
		default:
			files = append(files, arg)
		}
	}
	if fieldSpec == "" && charSpec == "" {
		return fail("cut", 1, "you must specify a list of fields or characters")
	}

	spec := fieldSpec
	if spec == "" {
		spec = charSpec
	}
	ranges, err := parseCutRanges(spec)
	if err != nil {
		return fail("cut", 1, "invalid field list: '%s'", spec)
	}

	text, errRes := inputText(ctx, files, "cut")
	if errRes != nil {
		return errRes
	}
	var sb strings.Builder
	for _, line := range splitLines(text) {
		if charSpec != "" {
			runes := []rune(line)
			for _, r := range ranges {
				lo, hi := r[0], r[1]
				if hi > len(runes) {
					hi = len(runes)
				}
				if lo <= len(runes) {
					sb.WriteString(string(runes[lo-1 : hi]))
				}
			}
			sb.WriteByte('\n')
			continue
		}
		fields := strings.Split(line, delim)
		if len(fields) == 1 {
			// 无分隔符的行整行输出
			sb.WriteString(line)
			sb.WriteByte('\n')
			continue
		}
		var picked []string
		for _, r := range ranges {
			lo, hi := r[0], r[1]
			if hi > len(fields) {
				hi = len(fields)
			}
			for f := lo; f <= hi; f++ {
				picked = append(picked, fields[f-1])
			}
		}
		sb.WriteString(strings.Join(picked, delim))
		sb.WriteByte('\n')
	}
	return ok(sb.String())
}

// parseCutRanges 解析 1,3-5 形式的范围列表
func parseCutRanges(spec string) ([][2]int, error) {
	var out [][2]int
	for _, part := range strings.Split(spec, ",") {
		if i := strings.IndexByte(part, '-'); i >= 0 {
			lo, err := strconv.Atoi(part[:i])
			if err != nil || lo < 1 {
				return nil, fmt.Errorf("bad range")
			}
			hi := 1 << 20
			if part[i+1:] != "" {
				hi, err = strconv.Atoi(part[i+1:])
				if err != nil || hi < lo {
					return nil, fmt.Errorf("bad range")
				}
			}
			out = append(out, [2]int{lo, hi})
			continue
		}
		n, err := strconv.Atoi(part)
		if err != nil || n < 1 {
			return nil, fmt.Errorf("bad field")
		}
		out = append(out, [2]int{n, n})
	}
	return out, nil
}

// seq 输出数列
func seq(ctx *Context) *Result {
	var first, incr, last int64 = 1, 1, 1
	var err error
	switch len(ctx.Args) {
	case 1:
		last, err = strconv.ParseInt(ctx.Args[0], 10, 64)
	case 2:
		first, err = strconv.ParseInt(ctx.Args[0], 10, 64)
		if err == nil {
			last, err = strconv.ParseInt(ctx.Args[1], 10, 64)
		}
	case 3:
		first, err = strconv.ParseInt(ctx.Args[0], 10, 64)
		if err == nil {
			incr, err = strconv.ParseInt(ctx.Args[1], 10, 64)
		}
		if err == nil {
			last, err = strconv.ParseInt(ctx.Args[2], 10, 64)
		}
	default:
		return fail("seq", 1, "usage: seq [first [incr]] last")
	}
	if err != nil {
		return fail("seq", 1, "invalid number")
	}
	if incr == 0 {
		return fail("seq", 1, "increment must not be zero")
	}

	var sb strings.Builder
	if incr > 0 {
		for i := first; i <= last; i += incr {
			fmt.Fprintf(&sb, "%d\n", i)
		}
	} else {
		for i := first; i >= last; i += incr {
			fmt.Fprintf(&sb, "%d\n", i)
		}
	}
	return ok(sb.String())
}

// basename 输出路径的最后一段
func basename(ctx *Context) *Result {
	if len(ctx.Args) == 0 {
		return fail("basename", 1, "missing operand")
	}
	base := path.Base(strings.ReplaceAll(ctx.Args[0], "\\", "/"))
	if len(ctx.Args) > 1 && base != ctx.Args[1] {
		base = strings.TrimSuffix(base, ctx.Args[1])
	}
	return ok(base + "\n")
}

// dirname 输出路径的目录部分
func dirname(ctx *Context) *Result {
	if len(ctx.Args) == 0 {
		return fail("dirname", 1, "missing operand")
	}
	return ok(path.Dir(strings.ReplaceAll(ctx.Args[0], "\\", "/")) + "\n")
}
