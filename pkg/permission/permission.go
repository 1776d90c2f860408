// Package permission evaluates capability strings against granted permission
// sets. Evaluation is pure string matching with no I/O, so both the HTTP
// middleware and tests can call it freely.
package permission

import "strings"

// Wildcard grants every capability.
const Wildcard = "*"

// Allows reports whether the granted set covers the required capability.
// A grant matches exactly, via the global "*", or via a category wildcard
// such as "files.*" which covers every capability under "files.".
func Allows(granted []string, required string) bool {
	for _, g := range granted {
		if g == required || g == Wildcard {
			return true
		}
		if prefix, ok := strings.CutSuffix(g, ".*"); ok && strings.HasPrefix(required, prefix+".") {
			return true
		}
	}
	return false
}
