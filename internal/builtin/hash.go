package builtin

import (
	"crypto/sha256"
	b64 "encoding/base64"
	"fmt"
	"strings"

	"github.com/zeebo/blake3"
	"golang.org/x/crypto/blake2b"
)

// base64Cmd 编解码base64
func base64Cmd(ctx *Context) *Result {
	decode := false
	args := ctx.Args
	for len(args) > 0 && (args[0] == "-d" || args[0] == "--decode") {
		decode = true
		args = args[1:]
	}
	text, errRes := inputText(ctx, args, "base64")
	if errRes != nil {
		return errRes
	}
	if decode {
		data, err := b64.StdEncoding.DecodeString(strings.TrimSpace(text))
		if err != nil {
			return fail("base64", 1, "invalid input")
		}
		return ok(string(data))
	}
	return ok(b64.StdEncoding.EncodeToString([]byte(text)) + "\n")
}

// hashInput 统一的摘要命令骨架，输出 "<hex>  <name>" 行
func hashInput(ctx *Context, name string, sum func([]byte) string) *Result {
	if len(ctx.Args) == 0 {
		return ok(fmt.Sprintf("%s  -\n", sum([]byte(ctx.Stdin))))
	}
	var sb strings.Builder
	for _, arg := range ctx.Args {
		if arg == "-" {
			fmt.Fprintf(&sb, "%s  -\n", sum([]byte(ctx.Stdin)))
			continue
		}
		data, err := ctx.FS.ReadFile(ctx.resolve(arg))
		if err != nil {
			return fsError(name, arg, err)
		}
		fmt.Fprintf(&sb, "%s  %s\n", sum(data), arg)
	}
	return ok(sb.String())
}

// sha256sum 计算SHA-256摘要
func sha256sum(ctx *Context) *Result {
	return hashInput(ctx, "sha256sum", func(data []byte) string {
		return fmt.Sprintf("%x", sha256.Sum256(data))
	})
}

// b2sum 计算BLAKE2b-512摘要
func b2sum(ctx *Context) *Result {
	return hashInput(ctx, "b2sum", func(data []byte) string {
		return fmt.Sprintf("%x", blake2b.Sum512(data))
	})
}

// b3sum 计算BLAKE3摘要
func b3sum(ctx *Context) *Result {
	return hashInput(ctx, "b3sum", func(data []byte) string {
		h := blake3.New()
		h.Write(data)
		return fmt.Sprintf("%x", h.Sum(nil))
	})
}
