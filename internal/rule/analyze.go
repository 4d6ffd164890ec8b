// Package rule implements the enforced-call analysis engine.
//
// The engine verifies a structural invariant over an already-parsed syntax
// tree: designated callback arguments and exported function bodies must
// directly invoke at least one (or all) of a policy's enforced operations.
// It performs no data-flow or alias analysis; only invocations lexically
// reachable from a body without crossing a nested function boundary count.
package rule

import (
	sitter "github.com/smacker/go-tree-sitter"
	"go.uber.org/zap"

	"github.com/guardlint/guardlint/internal/lang"
	"github.com/guardlint/guardlint/internal/model"
)

// Analyzer applies one immutable policy to syntax trees. It holds no mutable
// state between passes, so a single Analyzer may be used from multiple
// goroutines as long as each pass gets its own tree.
type Analyzer struct {
	policy         model.Policy
	monitoredCalls map[string]struct{}
	monitoredFuncs map[string]struct{}
	message        string
	logger         *zap.Logger
}

// Option configures an Analyzer.
type Option func(*Analyzer)

// WithLogger attaches a logger for per-site debug traces.
func WithLogger(logger *zap.Logger) Option {
	return func(a *Analyzer) {
		if logger != nil {
			a.logger = logger
		}
	}
}

// New compiles a validated policy into an Analyzer.
func New(policy model.Policy, opts ...Option) *Analyzer {
	a := &Analyzer{
		policy:         policy,
		monitoredCalls: nameSet(policy.MonitoredCalls),
		monitoredFuncs: nameSet(policy.MonitoredFunctions),
		message:        violationMessage(policy.Enforced, policy.RequireAll),
		logger:         zap.NewNop(),
	}
	for _, opt := range opts {
		opt(a)
	}
	return a
}

func nameSet(names []string) map[string]struct{} {
	set := make(map[string]struct{}, len(names))
	for _, n := range names {
		set[n] = struct{}{}
	}
	return set
}

// Analyze walks one file's tree and returns every policy violation in it.
// The pass is synchronous and side-effect-free; the tree is never mutated
// and must stay alive (tree not closed) for the duration of the call.
func (a *Analyzer) Analyze(root *sitter.Node, source []byte, path string) []model.Violation {
	w := &walker{
		analyzer: a,
		source:   source,
		path:     path,
		logger:   a.logger.With(zap.String("file", path), zap.String("rule", a.policy.Rule)),
	}
	w.walk(root)
	return w.violations
}

// walker carries the per-pass state for one file.
type walker struct {
	analyzer   *Analyzer
	source     []byte
	path       string
	logger     *zap.Logger
	violations []model.Violation
}

func (w *walker) walk(node *sitter.Node) {
	switch node.Type() {
	case "call_expression":
		w.checkCallSite(node)
	case "export_statement":
		w.checkExportSite(node)
	}
	for i := 0; i < int(node.NamedChildCount()); i++ {
		w.walk(node.NamedChild(i))
	}
}

// checkCallSite inspects every function-valued argument of a monitored call.
// Non-function arguments and unresolvable callees are skipped, not errors.
func (w *walker) checkCallSite(call *sitter.Node) {
	name := callName(call, w.source)
	if name == "" {
		return
	}
	if _, ok := w.analyzer.monitoredCalls[name]; !ok {
		return
	}
	args := call.ChildByFieldName("arguments")
	if args == nil {
		return
	}
	for i := 0; i < int(args.NamedChildCount()); i++ {
		arg := args.NamedChild(i)
		if !isFunctionValue(arg) {
			continue
		}
		w.checkBody(arg, arg)
	}
}

// checkExportSite inspects exported declarations whose name is monitored.
// Two shapes apply: an exported named function (declaration or
// function-valued variable), and an exported variable initialized to an
// object literal, each of whose function-valued properties is an
// independent site. Non-exported bindings are never sites.
func (w *walker) checkExportSite(export *sitter.Node) {
	decl := export.ChildByFieldName("declaration")
	if decl == nil {
		// Bare specifier lists (export { a }) and default-exported
		// anonymous expressions carry no declared name to match.
		return
	}

	switch decl.Type() {
	case "function_declaration", "generator_function_declaration":
		nameNode := decl.ChildByFieldName("name")
		if nameNode == nil {
			return
		}
		if _, ok := w.analyzer.monitoredFuncs[lang.NodeText(nameNode, w.source)]; !ok {
			return
		}
		w.checkBody(decl, decl)

	case "lexical_declaration", "variable_declaration":
		for i := 0; i < int(decl.NamedChildCount()); i++ {
			d := decl.NamedChild(i)
			if d.Type() != "variable_declarator" {
				continue
			}
			w.checkDeclarator(d)
		}
	}
}

func (w *walker) checkDeclarator(d *sitter.Node) {
	nameNode := d.ChildByFieldName("name")
	if nameNode == nil || nameNode.Type() != "identifier" {
		return
	}
	if _, ok := w.analyzer.monitoredFuncs[lang.NodeText(nameNode, w.source)]; !ok {
		return
	}
	value := unwrapAssertions(d.ChildByFieldName("value"))
	if value == nil {
		return
	}
	switch {
	case isFunctionValue(value):
		w.checkBody(value, value)
	case value.Type() == "object":
		w.checkObjectProperties(value)
	}
}

// checkObjectProperties treats each function-valued property of an exported
// object literal as its own site; one property's failure does not affect
// its siblings.
func (w *walker) checkObjectProperties(obj *sitter.Node) {
	for i := 0; i < int(obj.NamedChildCount()); i++ {
		prop := obj.NamedChild(i)
		switch prop.Type() {
		case "pair":
			value := unwrapAssertions(prop.ChildByFieldName("value"))
			if value != nil && isFunctionValue(value) {
				w.checkBody(value, prop)
			}
		case "method_definition":
			w.checkBody(prop, prop)
		}
	}
}

// checkBody runs the skip/extract/evaluate/report sequence for one site.
// Violations are anchored at anchor and reported exactly once per site.
func (w *walker) checkBody(fn, anchor *sitter.Node) {
	if isEmptyFunction(fn) {
		w.logger.Debug("skipping empty body",
			zap.Uint32("line", anchor.StartPoint().Row+1))
		return
	}
	calls := extractCalls(fn, w.source)
	if satisfies(calls, w.analyzer.policy.Enforced, w.analyzer.policy.RequireAll) {
		return
	}
	w.logger.Debug("policy unsatisfied",
		zap.Uint32("line", anchor.StartPoint().Row+1),
		zap.Strings("calls", calls))
	point := anchor.StartPoint()
	w.violations = append(w.violations, model.Violation{
		Rule:    w.analyzer.policy.Rule,
		Path:    w.path,
		Line:    int(point.Row) + 1,
		Col:     int(point.Column) + 1,
		Message: w.analyzer.message,
	})
}

// assertionKinds are the wrapper nodes stripped from export initializers and
// object property values before deciding whether they are function-valued.
var assertionKinds = map[string]struct{}{
	"as_expression":            {},
	"satisfies_expression":     {},
	"non_null_expression":      {},
	"type_assertion":           {},
	"parenthesized_expression": {},
}

func unwrapAssertions(node *sitter.Node) *sitter.Node {
	for node != nil {
		if _, ok := assertionKinds[node.Type()]; !ok {
			return node
		}
		if node.Type() == "type_assertion" {
			// Angle-bracket assertions put the type first.
			node = node.NamedChild(int(node.NamedChildCount()) - 1)
			continue
		}
		node = node.NamedChild(0)
	}
	return node
}
