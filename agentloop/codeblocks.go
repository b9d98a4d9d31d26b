package agentloop

import (
	"iter"
	"regexp"
	"strings"
)

// CodeBlock is one fenced block from a model reply.
type CodeBlock struct {
	Language string
	Code     string
}

// fencePattern matches a whole ``` fence, tagged or not, so that untagged
// blocks are consumed instead of leaking their closing fence.
var fencePattern = regexp.MustCompile("(?s)```([^\\n`]*)\\r?\\n(.*?)```")

// CodeBlocks yields the language-tagged fenced blocks in text, in order.
// Untagged fences are skipped. The sequence is lazy and can be ranged over
// any number of times.
func CodeBlocks(text string) iter.Seq[CodeBlock] {
	return func(yield func(CodeBlock) bool) {
		rest := text
		for {
			loc := fencePattern.FindStringSubmatchIndex(rest)
			if loc == nil {
				return
			}
			info := strings.Fields(rest[loc[2]:loc[3]])
			code := strings.TrimRight(rest[loc[4]:loc[5]], "\r\n")
			rest = rest[loc[1]:]
			if len(info) == 0 {
				continue
			}
			if !yield(CodeBlock{Language: strings.ToLower(info[0]), Code: code}) {
				return
			}
		}
	}
}
