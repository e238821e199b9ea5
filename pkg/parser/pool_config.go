package parser

import (
	"github.com/gnana997/treeshake/pkg/util"
)

// getDefaultPoolSize returns the number of parsers kept per grammar.
//
// It MUST match the runner's worker count so that no worker waits for a
// parser; both use util.GetOptimalPoolSize().
func getDefaultPoolSize() int {
	return util.GetOptimalPoolSize()
}
