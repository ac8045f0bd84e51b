package lpl

import (
	"testing"

	"github.com/stretchr/testify/require"
)

func TestClassify(t *testing.T) {
	cases := map[string]LineClass{
		"":                        LineBlank,
		"   \t ":                  LineBlank,
		"  // a comment":          LineComment,
		"#ifdef SOMETHING":        LineDirective,
		"    #endif":              LineDirective,
		"Foo is a BusinessClass":  LineContent,
		"    bar is a String // x": LineContent,
	}
	for line, want := range cases {
		require.Equal(t, want, Classify(line), "line %q", line)
	}
}

func TestIndentWidth(t *testing.T) {
	require.Equal(t, 0, IndentWidth("Foo", 4))
	require.Equal(t, 2, IndentWidth("  Foo", 4))
	require.Equal(t, 4, IndentWidth("\tFoo", 4))
	require.Equal(t, 4, IndentWidth("  \tFoo", 4))
	require.Equal(t, 8, IndentWidth("    \tFoo", 4))
	require.Equal(t, 9, IndentWidth("\t\t Foo", 4))
	require.Equal(t, 8, IndentWidth("\tFoo", 8))
	require.Equal(t, 4, IndentWidth("\tFoo", 0), "falls back to the default tab width")
}

func TestSourceLineStripsCommentAndReadsAnnotation(t *testing.T) {
	ln := newSourceLine(3, "\tname is Alpha 30 // @Import=FullName", 4)
	require.Equal(t, 3, ln.number)
	require.Equal(t, 4, ln.indent)
	require.Equal(t, 1, ln.column)
	require.Equal(t, "name is Alpha 30", ln.body)
	require.Equal(t, "name is Alpha 30 // @Import=FullName", ln.raw)
	require.Equal(t, "FullName", ln.annot)

	quoted := newSourceLine(0, `    url is "http://example.com"`, 4)
	require.Equal(t, `url is "http://example.com"`, quoted.body)
	require.Empty(t, quoted.annot)
}
