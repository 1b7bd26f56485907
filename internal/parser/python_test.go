package parser

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/dshills/memindex/pkg/types"
)

const pySource = `"""Auth helpers."""
import os
from collections import OrderedDict

MAX_TRIES = 3

class Validator(BaseChecker):
    """Validates incoming tokens."""

    def check(self, token):
        """Return True when the token is valid."""
        cleaned = normalize(token)
        if not cleaned:
            raise ValueError("empty token")
        return Store(cleaned).ok()

def normalize(token):
    return token.strip()
`

func parsePython(t *testing.T, src string) *types.ParseResult {
	t.Helper()
	res, err := NewPythonParser().Parse([]byte(src), "pkg/auth.py")
	require.NoError(t, err)
	return res
}

func TestPythonFileEntity(t *testing.T) {
	res := parsePython(t, pySource)

	file := entityByName(t, res, "pkg/auth.py")
	assert.Equal(t, types.EntityFile, file.Type)
	assert.Equal(t, 1, file.StartLine)
	assert.Equal(t, "Auth helpers.", file.DocComment)
}

func TestPythonClassAndMethod(t *testing.T) {
	res := parsePython(t, pySource)

	cls := entityByName(t, res, "pkg/auth.py::Validator")
	assert.Equal(t, types.EntityClass, cls.Type)
	assert.Equal(t, "class Validator(BaseChecker)", cls.Signature)
	assert.Equal(t, "Validates incoming tokens.", cls.DocComment)

	method := entityByName(t, res, "pkg/auth.py::Validator::check")
	assert.Equal(t, types.EntityMethod, method.Type)
	assert.Equal(t, 1, method.Facts.ParamCount, "self is not counted")
	assert.True(t, method.HasBody)

	assert.True(t, hasRelation(res, "pkg/auth.py::Validator", "BaseChecker", types.RelationInherits))
	assert.True(t, hasRelation(res, "pkg/auth.py::Validator", "pkg/auth.py::Validator::check", types.RelationContains))
}

func TestPythonFunctionFacts(t *testing.T) {
	res := parsePython(t, pySource)

	check := entityByName(t, res, "pkg/auth.py::Validator::check")
	assert.Contains(t, check.Facts.Calls, "normalize")
	assert.Contains(t, check.Facts.Raises, "ValueError")
	assert.Contains(t, check.Facts.Instantiates, "Store")
	assert.Positive(t, check.Facts.BranchCount)

	assert.True(t, hasRelation(res, "pkg/auth.py::Validator::check", "normalize", types.RelationCalls))
	assert.True(t, hasRelation(res, "pkg/auth.py::Validator::check", "ValueError", types.RelationRaises))
	assert.True(t, hasRelation(res, "pkg/auth.py::Validator::check", "Store", types.RelationInstantiates))
}

func TestPythonImports(t *testing.T) {
	res := parsePython(t, pySource)

	assert.True(t, hasRelation(res, "pkg/auth.py", "os", types.RelationImports))
	assert.True(t, hasRelation(res, "pkg/auth.py", "collections.OrderedDict", types.RelationImports))
}

func TestPythonModuleVariable(t *testing.T) {
	res := parsePython(t, pySource)

	v := entityByName(t, res, "pkg/auth.py::MAX_TRIES")
	assert.Equal(t, types.EntityVariable, v.Type)
	assert.Equal(t, "MAX_TRIES = 3", v.Signature)
}

func TestPythonDecorators(t *testing.T) {
	src := `@cached
def lookup(key):
    return key
`
	res := parsePython(t, src)

	fn := entityByName(t, res, "pkg/auth.py::lookup")
	assert.Equal(t, []string{"cached"}, fn.Facts.Decorators)
	assert.True(t, hasRelation(res, "cached", "pkg/auth.py::lookup", types.RelationDecorates))
}

func TestPythonAsyncSignature(t *testing.T) {
	src := `async def fetch(url):
    return url
`
	res := parsePython(t, src)

	fn := entityByName(t, res, "pkg/auth.py::fetch")
	assert.True(t, fn.Facts.IsAsync)
	assert.Equal(t, "async def fetch(url)", fn.Signature)
}

func TestPythonCollisionSuffix(t *testing.T) {
	src := `def twice():
    return 1

def twice():
    return 2
`
	res := parsePython(t, src)

	entityByName(t, res, "pkg/auth.py::twice")
	dup := entityByName(t, res, "pkg/auth.py::twice#4")
	assert.Equal(t, 4, dup.StartLine)
}

func TestPythonNestedFunction(t *testing.T) {
	src := `def outer():
    def inner():
        return 1
    return inner
`
	res := parsePython(t, src)

	inner := entityByName(t, res, "pkg/auth.py::outer::inner")
	assert.True(t, hasRelation(res, "pkg/auth.py::outer", inner.Name, types.RelationContains))
}
