package treeshake

import (
	"github.com/gnana997/treeshake/pkg/config"
	"github.com/gnana997/treeshake/pkg/scope"
)

// aliasSet records which bindings denote a JSX factory. It only grows during
// a pass and belongs to exactly one pass.
type aliasSet struct {
	patterns *config.Patterns
	bindings map[scope.Binding]struct{}
}

func newAliasSet(patterns *config.Patterns) *aliasSet {
	return &aliasSet{
		patterns: patterns,
		bindings: make(map[scope.Binding]struct{}),
	}
}

// recordImport marks local as a factory alias when imported names a factory.
// For `import { jsx }` the imported name is the local name itself.
func (a *aliasSet) recordImport(imported string, local scope.Binding) bool {
	if !a.patterns.IsFactoryName(imported) {
		return false
	}
	a.bindings[local] = struct{}{}
	return true
}

func (a *aliasSet) isFactory(b scope.Binding) bool {
	_, ok := a.bindings[b]
	return ok
}

func (a *aliasSet) len() int {
	return len(a.bindings)
}
