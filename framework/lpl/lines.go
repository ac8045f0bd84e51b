package lpl

import (
	"regexp"
	"strings"
)

// DefaultTabWidth is used when no positive tab width is configured.
const DefaultTabWidth = 4

// LineClass is the structural category of a raw line.
type LineClass int

const (
	LineContent LineClass = iota
	LineBlank
	LineComment
	LineDirective
)

// Classify decides whether a raw line takes part in parsing.
func Classify(text string) LineClass {
	trimmed := strings.TrimSpace(text)
	switch {
	case trimmed == "":
		return LineBlank
	case strings.HasPrefix(trimmed, "//"):
		return LineComment
	case strings.HasPrefix(trimmed, "#"):
		return LineDirective
	default:
		return LineContent
	}
}

// IndentWidth returns the display column of the first non-whitespace
// character, advancing tabs to the next multiple of tabWidth.
func IndentWidth(text string, tabWidth int) int {
	if tabWidth <= 0 {
		tabWidth = DefaultTabWidth
	}
	end := firstNonSpace(text)
	width := 0
	for i := 0; i < end; i++ {
		if text[i] == '\t' {
			width = (width/tabWidth + 1) * tabWidth
		} else {
			width++
		}
	}
	return width
}

func firstNonSpace(text string) int {
	for i := 0; i < len(text); i++ {
		switch text[i] {
		case ' ', '\t', '\v', '\f', '\r':
			continue
		}
		return i
	}
	return len(text)
}

var importAnnotation = regexp.MustCompile(`@Import=(\w+)`)

// sourceLine is a structurally relevant line split into the pieces the
// grammar needs.
type sourceLine struct {
	number int
	indent int
	column int
	// body is the trimmed text with any trailing comment removed.
	body string
	// raw is the trimmed text including the comment, used as hover text.
	raw    string
	annot  string
	length int
}

func newSourceLine(number int, text string, tabWidth int) sourceLine {
	body, comment := splitComment(text)
	ln := sourceLine{
		number: number,
		indent: IndentWidth(text, tabWidth),
		column: firstNonSpace(text),
		body:   strings.TrimSpace(body),
		raw:    strings.TrimSpace(text),
		length: len(strings.TrimRight(text, "\r\n")),
	}
	if m := importAnnotation.FindStringSubmatch(comment); m != nil {
		ln.annot = m[1]
	}
	return ln
}

// splitComment separates a trailing // comment, ignoring slashes inside
// double-quoted strings.
func splitComment(text string) (string, string) {
	inString := false
	for i := 0; i < len(text); i++ {
		switch text[i] {
		case '\\':
			if inString {
				i++
			}
		case '"':
			inString = !inString
		case '/':
			if !inString && i+1 < len(text) && text[i+1] == '/' {
				return text[:i], text[i+2:]
			}
		}
	}
	return text, ""
}
