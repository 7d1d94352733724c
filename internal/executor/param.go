package executor

import (
	"strings"
	"unicode"
)

// trimPatternPrefix ${v#pat} / ${v##pat}
func trimPatternPrefix(value, pattern string, longest bool) string {
	runes := []rune(value)
	if longest {
		for i := len(runes); i >= 0; i-- {
			if matchPattern(pattern, string(runes[:i])) {
				return string(runes[i:])
			}
		}
		return value
	}
	for i := 0; i <= len(runes); i++ {
		if matchPattern(pattern, string(runes[:i])) {
			return string(runes[i:])
		}
	}
	return value
}

// trimPatternSuffix ${v%pat} / ${v%%pat}
func trimPatternSuffix(value, pattern string, longest bool) string {
	runes := []rune(value)
	if longest {
		for i := 0; i <= len(runes); i++ {
			if matchPattern(pattern, string(runes[i:])) {
				return string(runes[:i])
			}
		}
		return value
	}
	for i := len(runes); i >= 0; i-- {
		if matchPattern(pattern, string(runes[i:])) {
			return string(runes[:i])
		}
	}
	return value
}

// replacePattern ${v/pat/rep} / ${v//pat/rep}
// 模式前缀#锚定开头，%锚定结尾；每个位置取最长匹配，从左到右
func replacePattern(value, pattern, replacement string, all bool) string {
	if pattern == "" {
		return value
	}
	if strings.HasPrefix(pattern, "#") {
		trimmed := trimPatternPrefix(value, pattern[1:], true)
		if trimmed != value {
			return replacement + trimmed
		}
		return value
	}
	if strings.HasPrefix(pattern, "%") {
		trimmed := trimPatternSuffix(value, pattern[1:], true)
		if trimmed != value {
			return trimmed + replacement
		}
		return value
	}

	runes := []rune(value)
	var sb strings.Builder
	replaced := false
	for i := 0; i < len(runes); {
		if replaced && !all {
			sb.WriteString(string(runes[i:]))
			break
		}
		// 当前位置尝试最长匹配
		end := -1
		for j := len(runes); j >= i; j-- {
			if matchPattern(pattern, string(runes[i:j])) {
				end = j
				break
			}
		}
		if end < 0 || end == i && !matchPattern(pattern, "") {
			sb.WriteRune(runes[i])
			i++
			continue
		}
		if end == i {
			// 空匹配避免死循环
			sb.WriteRune(runes[i])
			i++
			continue
		}
		sb.WriteString(replacement)
		replaced = true
		i = end
	}
	return sb.String()
}

// caseFirst ${v^} / ${v,} 首字符大小写转换
func caseFirst(value string, upper bool) string {
	if value == "" {
		return value
	}
	runes := []rune(value)
	if upper {
		runes[0] = unicode.ToUpper(runes[0])
	} else {
		runes[0] = unicode.ToLower(runes[0])
	}
	return string(runes)
}
