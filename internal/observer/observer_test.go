package observer

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/dshills/memindex/pkg/types"
)

func enriched(e types.Entity) types.Entity {
	res := &types.ParseResult{FilePath: e.FilePath}
	res.AddEntity(e)
	Enrich(res)
	return res.Entities[0]
}

func TestEnrichFunctionObservations(t *testing.T) {
	e := enriched(types.Entity{
		Name:       "a.py::check",
		Type:       types.EntityFunction,
		FilePath:   "a.py",
		DocComment: "Validate a token. Returns True on success.",
		Facts: types.Facts{
			ParamCount:  2,
			ReturnKind:  "bool",
			BranchCount: 1,
			Calls:       []string{"normalize"},
			Raises:      []string{"ValueError"},
			Decorators:  []string{"cached"},
		},
	})

	assert.Contains(t, e.Observations, "purpose:Validate a token")
	assert.Contains(t, e.Observations, "params:2")
	assert.Contains(t, e.Observations, "returns:bool")
	assert.Contains(t, e.Observations, "complexity:low")
	assert.Contains(t, e.Observations, "calls:normalize")
	assert.Contains(t, e.Observations, "raises:ValueError")
	assert.Contains(t, e.Observations, "decorator:cached")
	assert.Contains(t, e.Observations, "async:false")
}

func TestEnrichUnknownReturn(t *testing.T) {
	e := enriched(types.Entity{Name: "a.py::f", Type: types.EntityFunction, FilePath: "a.py"})
	assert.Contains(t, e.Observations, "returns:unknown")
}

func TestComplexityBuckets(t *testing.T) {
	cases := []struct {
		branches int
		want     string
	}{
		{0, "complexity:low"},
		{3, "complexity:low"},
		{4, "complexity:medium"},
		{8, "complexity:medium"},
		{9, "complexity:high"},
		{20, "complexity:high"},
	}
	for _, tc := range cases {
		e := enriched(types.Entity{
			Name: "a.py::f", Type: types.EntityFunction, FilePath: "a.py",
			Facts: types.Facts{BranchCount: tc.branches},
		})
		assert.Contains(t, e.Observations, tc.want, "branches=%d", tc.branches)
	}
}

func TestNonCallableSkipsCallableTags(t *testing.T) {
	e := enriched(types.Entity{
		Name: "a.py::CONFIG", Type: types.EntityVariable, FilePath: "a.py",
	})
	for _, obs := range e.Observations {
		assert.NotContains(t, obs, "params:")
		assert.NotContains(t, obs, "complexity:")
		assert.NotContains(t, obs, "async:")
	}
}

func TestEntityWithNothingApplicable(t *testing.T) {
	e := enriched(types.Entity{Name: "a.py", Type: types.EntityFile, FilePath: "a.py"})
	assert.Empty(t, e.Observations)
}

func TestDetectCallablePatterns(t *testing.T) {
	cases := []struct {
		name string
		want string
	}{
		{"a.py::create_session", "pattern:factory"},
		{"a.py::build_index", "pattern:factory"},
		{"a.py::on_message", "pattern:observer"},
		{"a.py::handle_request", "pattern:observer"},
		{"a.py::visit_node", "pattern:visitor"},
	}
	for _, tc := range cases {
		e := enriched(types.Entity{Name: tc.name, Type: types.EntityFunction, FilePath: "a.py"})
		assert.Contains(t, e.Observations, tc.want, tc.name)
	}
}

func TestDetectClassPatterns(t *testing.T) {
	cases := []struct {
		name string
		want string
	}{
		{"a.py::SessionFactory", "pattern:factory"},
		{"a.py::EventListener", "pattern:observer"},
		{"a.py::QueryBuilder", "pattern:builder"},
		{"a.py::UserRepository", "pattern:repository"},
		{"a.py::AuthService", "pattern:service"},
	}
	for _, tc := range cases {
		e := enriched(types.Entity{Name: tc.name, Type: types.EntityClass, FilePath: "a.py"})
		assert.Contains(t, e.Observations, tc.want, tc.name)
	}
}

func TestNoPatternForPlainNames(t *testing.T) {
	e := enriched(types.Entity{Name: "a.py::helper", Type: types.EntityFunction, FilePath: "a.py"})
	for _, obs := range e.Observations {
		require.NotContains(t, obs, "pattern:")
	}
}
