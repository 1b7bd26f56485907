package types

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestNormalizeContentLineEndings(t *testing.T) {
	assert.Equal(t, "a\nb\nc", NormalizeContent("a\r\nb\rc"))
}

func TestNormalizeContentTrailingWhitespace(t *testing.T) {
	assert.Equal(t, "def f():\n    return 1", NormalizeContent("def f():  \t\n    return 1"))
	// interior whitespace survives
	assert.Equal(t, "a  b", NormalizeContent("a  b"))
}

func TestHashContentDeterministic(t *testing.T) {
	a := HashContent("def f():\n    return 1\n")
	b := HashContent("def f():\r\n    return 1\r\n")
	assert.Equal(t, a, b, "CRLF and LF forms hash identically")
	assert.Len(t, a, 64)
	assert.Equal(t, a, HashContent("def f():\n    return 1\n"))
}

func TestHashContentDistinguishesContent(t *testing.T) {
	assert.NotEqual(t, HashContent("return 1"), HashContent("return 2"))
}
