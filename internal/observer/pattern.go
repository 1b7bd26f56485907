package observer

import (
	"strings"

	"github.com/dshills/memindex/pkg/types"
)

// detectPattern identifies common design patterns from entity naming
// conventions. Detection is heuristic; false positives are acceptable and
// the first matching pattern wins.
func detectPattern(e *types.Entity) string {
	base := baseName(e.Name)

	switch e.Type {
	case types.EntityFunction, types.EntityMethod:
		return detectCallablePattern(base)
	case types.EntityClass:
		return detectTypePattern(base)
	default:
		return ""
	}
}

func detectCallablePattern(name string) string {
	lower := strings.ToLower(name)
	switch {
	case strings.HasPrefix(lower, "new") || strings.HasPrefix(lower, "make") ||
		strings.HasPrefix(lower, "create") || strings.HasPrefix(lower, "build"):
		return "factory"
	case strings.HasPrefix(lower, "get_instance") || lower == "instance" || lower == "shared":
		return "singleton"
	case strings.HasPrefix(lower, "on_") || strings.HasPrefix(lower, "handle") ||
		strings.HasPrefix(lower, "notify") || strings.HasPrefix(lower, "subscribe"):
		return "observer"
	case strings.HasPrefix(lower, "visit"):
		return "visitor"
	default:
		return ""
	}
}

func detectTypePattern(name string) string {
	switch {
	case strings.HasSuffix(name, "Factory"):
		return "factory"
	case strings.HasSuffix(name, "Singleton"):
		return "singleton"
	case strings.HasSuffix(name, "Observer") || strings.HasSuffix(name, "Listener"):
		return "observer"
	case strings.HasSuffix(name, "Builder"):
		return "builder"
	case strings.HasSuffix(name, "Adapter"):
		return "adapter"
	case strings.HasSuffix(name, "Repository") || strings.HasSuffix(name, "Repo"):
		return "repository"
	case strings.HasSuffix(name, "Service"):
		return "service"
	case strings.HasSuffix(name, "Handler"):
		return "handler"
	case strings.HasSuffix(name, "Strategy"):
		return "strategy"
	case strings.HasSuffix(name, "Decorator"):
		return "decorator"
	default:
		return ""
	}
}

// baseName strips the qualification prefix, returning the final segment
func baseName(qualified string) string {
	if idx := strings.LastIndex(qualified, "::"); idx >= 0 {
		return qualified[idx+2:]
	}
	return qualified
}
