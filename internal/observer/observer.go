package observer

import (
	"fmt"
	"strings"

	"github.com/dshills/memindex/pkg/types"
)

// Complexity thresholds over the branch count. Fixed so observation
// output stays stable across runs.
const (
	complexityMediumAt = 4
	complexityHighAt   = 9
)

// Enrich appends key:value observation tags to every entity in the parse
// result. Observations are advisory; entities with nothing applicable are
// left untouched.
func Enrich(result *types.ParseResult) {
	for i := range result.Entities {
		enrichEntity(&result.Entities[i])
	}
}

func enrichEntity(e *types.Entity) {
	var obs []string

	if purpose := firstSentence(e.DocComment); purpose != "" {
		obs = append(obs, "purpose:"+purpose)
	}

	if isCallable(e.Type) {
		obs = append(obs, fmt.Sprintf("params:%d", e.Facts.ParamCount))
		returns := e.Facts.ReturnKind
		if returns == "" {
			returns = "unknown"
		}
		obs = append(obs, "returns:"+returns)
		obs = append(obs, "complexity:"+complexityBucket(e.Facts.BranchCount))
	}

	for _, callee := range e.Facts.Calls {
		obs = append(obs, "calls:"+callee)
	}
	for _, name := range e.Facts.Raises {
		obs = append(obs, "raises:"+name)
	}
	for _, name := range e.Facts.Catches {
		obs = append(obs, "catches:"+name)
	}
	for _, name := range e.Facts.Decorators {
		obs = append(obs, "decorator:"+name)
	}

	if pattern := detectPattern(e); pattern != "" {
		obs = append(obs, "pattern:"+pattern)
	}

	if isCallable(e.Type) {
		obs = append(obs, fmt.Sprintf("async:%t", e.Facts.IsAsync))
	}

	e.Observations = append(e.Observations, obs...)
}

func isCallable(t types.EntityType) bool {
	return t == types.EntityFunction || t == types.EntityMethod
}

func complexityBucket(branches int) string {
	switch {
	case branches >= complexityHighAt:
		return "high"
	case branches >= complexityMediumAt:
		return "medium"
	default:
		return "low"
	}
}

// firstSentence extracts the leading sentence of a doc string
func firstSentence(doc string) string {
	doc = strings.TrimSpace(doc)
	if doc == "" {
		return ""
	}
	if idx := strings.IndexAny(doc, ".\n"); idx >= 0 {
		return strings.TrimSpace(doc[:idx])
	}
	return doc
}
