package traversal

import (
	"fmt"
	"strings"
	"unicode/utf8"
)

const (
	lineNumberFormat = "%4d | %s\n"
	codeFence        = "```"
	newline          = "\n"
	carriageReturn   = "\r"
)

// FormatContent decodes raw bytes lossily and applies optional line numbering and
// fencing. Invalid UTF-8 sequences become U+FFFD.
func FormatContent(raw []byte, extension string, lineNumbers, codeBlock bool) string {
	content := strings.ToValidUTF8(string(raw), string(utf8.RuneError))
	if lineNumbers {
		content = numberLines(content)
	}
	if codeBlock {
		content = fence(content, extension)
	}
	return content
}

// IsEmittable reports whether a formatted block belongs in the output. Blocks that
// are blank or that contain U+FFFD are treated as binary and dropped.
func IsEmittable(block string) bool {
	if strings.TrimSpace(block) == "" {
		return false
	}
	return !strings.ContainsRune(block, utf8.RuneError)
}

func numberLines(content string) string {
	var builder strings.Builder
	for lineIndex, line := range splitLines(content) {
		fmt.Fprintf(&builder, lineNumberFormat, lineIndex+1, line)
	}
	return builder.String()
}

func fence(content, extension string) string {
	var builder strings.Builder
	builder.WriteString(codeFence)
	builder.WriteString(extension)
	builder.WriteString(newline)
	builder.WriteString(content)
	if content != "" && !strings.HasSuffix(content, newline) {
		builder.WriteString(newline)
	}
	builder.WriteString(codeFence)
	return builder.String()
}

// splitLines splits on "\n", drops one trailing "\r" per line and ignores a final
// empty segment after a trailing newline.
func splitLines(content string) []string {
	if content == "" {
		return nil
	}
	lines := strings.Split(strings.TrimSuffix(content, newline), newline)
	for lineIndex, line := range lines {
		lines[lineIndex] = strings.TrimSuffix(line, carriageReturn)
	}
	return lines
}
