// Package testsupport holds fixtures shared by the fruti package's tests:
// randomized token streams for lexer benchmarks, grounded on the teacher
// repo's internal/test helper of the same shape.
package testsupport

import (
	"math/rand"
	"strings"
)

const validTokens = "fn;let;mut;struct;(;);{;};\"a short string\";" +
	"\"a longer string with enough bytes to matter for a benchmark: the quick brown fox jumps over the lazy dog, repeatedly, to pad things out\";" +
	"\"\";+;-;*;/;==;!=;123;3.14;//a line comment\n;/* a block comment */;\n"

// RandomTokenSource returns size source tokens, space-separated, drawn at
// random from a fixed pool of keywords, delimiters, strings, operators,
// numbers and comments (it holds no char literal).
func RandomTokenSource(size int) string {
	return RandomTokenSourceWithSep(size, " ")
}

// RandomTokenSourceWithSep is RandomTokenSource with a caller-chosen
// separator, useful for forcing terminator-insertion-relevant newline runs.
func RandomTokenSourceWithSep(size int, sep string) string {
	valid := strings.Split(validTokens, ";")

	var toks []string
	for len(toks) < size {
		toks = append(toks, valid[rand.Intn(len(valid))])
	}

	return strings.Join(toks, sep)
}
