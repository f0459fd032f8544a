package transform

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestCode_ShiftSkipsBlankLinesAndRawText(t *testing.T) {
	var c code
	c.write("{\n  a();\n\n  b(")
	c.writeRaw("`x\ny`")
	c.write(");\n}")

	assert.Equal(t, "{\n    a();\n\n    b(`x\ny`);\n  }", c.shift("  ").String())
}

func TestCode_ShiftAcrossSegments(t *testing.T) {
	var c code
	c.write("a\n")
	c.write("b\n")
	c.writeRaw("`c`")

	assert.Equal(t, "a\n\tb\n\t`c`", c.shift("\t").String())
}

func TestCode_ShiftKeepsCRLF(t *testing.T) {
	var c code
	c.write("{\r\n  x;\r\n}")

	assert.Equal(t, "{\r\n    x;\r\n  }", c.shift("  ").String())
}

func TestDetectIndentUnit(t *testing.T) {
	cases := map[string]struct {
		src  string
		want string
	}{
		"two spaces":  {src: "a {\n  b {\n    c;\n  }\n}\n", want: "  "},
		"four spaces": {src: "a {\n    b;\n}\n", want: "    "},
		"tabs":        {src: "a {\n\tb {\n\t\tc;\n\t}\n}\n", want: "\t"},
		"flat":        {src: "a;\nb;\n", want: "    "},
		"doc comment": {src: "/**\n * x\n */\nf {\n  y;\n}\n", want: "  "},
	}
	for name, tc := range cases {
		t.Run(name, func(t *testing.T) {
			assert.Equal(t, tc.want, detectIndentUnit([]byte(tc.src)))
		})
	}
}

func TestLineIndent(t *testing.T) {
	src := []byte("x;\n    foo(async () => 1);\n")
	assert.Equal(t, "    ", lineIndent(src, 11))
	assert.Equal(t, "", lineIndent(src, 0))
}

func TestEndsStatement(t *testing.T) {
	assert.True(t, endsStatement([]byte("a;\n  "), 5))
	assert.True(t, endsStatement([]byte("{ "), 2))
	assert.True(t, endsStatement([]byte("   "), 3))
	assert.False(t, endsStatement([]byte("foo()\n"), 6))
}
