// Package model defines core data structures for guardlint.
package model

// Policy is one compiled enforcement rule. It is constructed once from
// validated configuration and shared, read-only, by every analysis pass.
type Policy struct {
	// Rule is the configured rule name, used in reports.
	Rule string

	// MonitoredCalls lists canonical call names whose function-valued
	// arguments are inspected.
	MonitoredCalls []string

	// MonitoredFunctions lists exported binding names whose function (or
	// object-of-function) values are inspected.
	MonitoredFunctions []string

	// Enforced lists the canonical names that must be called directly from
	// every inspected body. Never empty after validation.
	Enforced []string

	// RequireAll selects all-of semantics; the default is any-of.
	RequireAll bool
}

// Violation is one policy failure at one site. Line and Col are 1-based.
type Violation struct {
	Rule    string
	Path    string
	Line    int
	Col     int
	Message string
}

// FileResult holds the outcome of analyzing a single source file.
type FileResult struct {
	Path       string
	Language   string
	Violations []Violation
}
