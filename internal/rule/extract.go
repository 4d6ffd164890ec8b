package rule

import (
	sitter "github.com/smacker/go-tree-sitter"
)

// functionKinds are the node kinds the extractor treats as function values.
// The async flag is a property of these same kinds and is irrelevant here.
var functionKinds = map[string]struct{}{
	"arrow_function":      {},
	"function":            {},
	"function_expression": {},
	"generator_function":  {},
}

func isFunctionValue(node *sitter.Node) bool {
	_, ok := functionKinds[node.Type()]
	return ok
}

// isEmptyFunction reports whether a function body is semantically empty.
//
// An expression body is never empty. A block body is empty iff it holds no
// statements; comment nodes carry no syntactic weight, so a block containing
// only comments counts as empty. A commented-out enforced call therefore
// skips the site rather than satisfying it.
func isEmptyFunction(fn *sitter.Node) bool {
	body := fn.ChildByFieldName("body")
	if body == nil {
		// Bodyless declarations (TS overload signatures) have nothing to check.
		return true
	}
	if body.Type() != "statement_block" {
		return false
	}
	for i := 0; i < int(body.NamedChildCount()); i++ {
		if body.NamedChild(i).Type() != "comment" {
			return false
		}
	}
	return true
}

// extractCalls collects the canonical names of every invocation directly
// reachable from fn's body. Traversal follows structured control statements
// but never crosses a nested function boundary: a call made inside a helper
// defined within the body is not a direct call of the body. Unresolvable
// call targets are dropped.
func extractCalls(fn *sitter.Node, source []byte) []string {
	body := fn.ChildByFieldName("body")
	if body == nil {
		return nil
	}
	e := &extractor{source: source}
	if body.Type() != "statement_block" {
		e.emit(body)
		return e.calls
	}
	e.visitBlock(body)
	return e.calls
}

type extractor struct {
	source []byte
	calls  []string
}

// statementVisitors dispatches on statement kind. Kinds absent from the
// table, in particular every function and class declaration form, are not
// recursed into. Populated in init to break the reference cycle with the
// visit methods.
var statementVisitors map[string]func(*extractor, *sitter.Node)

func init() {
	statementVisitors = map[string]func(*extractor, *sitter.Node){
		"expression_statement": (*extractor).visitExpression,
		"lexical_declaration":  (*extractor).visitDeclaration,
		"variable_declaration": (*extractor).visitDeclaration,
		"return_statement":     (*extractor).visitReturn,
		"if_statement":         (*extractor).visitIf,
		"try_statement":        (*extractor).visitTry,
		"for_statement":        (*extractor).visitLoop,
		"for_in_statement":     (*extractor).visitLoop,
		"while_statement":      (*extractor).visitLoop,
		"do_statement":         (*extractor).visitLoop,
		"switch_statement":     (*extractor).visitSwitch,
		"labeled_statement":    (*extractor).visitLabeled,
		"statement_block":      (*extractor).visitBlock,
	}
}

func (e *extractor) visitStatement(node *sitter.Node) {
	if node == nil {
		return
	}
	// else branches arrive wrapped in an else_clause.
	if node.Type() == "else_clause" {
		node = node.NamedChild(0)
		if node == nil {
			return
		}
	}
	if visit, ok := statementVisitors[node.Type()]; ok {
		visit(e, node)
	}
}

func (e *extractor) visitBlock(block *sitter.Node) {
	for i := 0; i < int(block.NamedChildCount()); i++ {
		e.visitStatement(block.NamedChild(i))
	}
}

func (e *extractor) visitExpression(stmt *sitter.Node) {
	e.emit(stmt.NamedChild(0))
}

func (e *extractor) visitDeclaration(decl *sitter.Node) {
	for i := 0; i < int(decl.NamedChildCount()); i++ {
		child := decl.NamedChild(i)
		if child.Type() != "variable_declarator" {
			continue
		}
		e.emit(child.ChildByFieldName("value"))
	}
}

func (e *extractor) visitReturn(stmt *sitter.Node) {
	e.emit(stmt.NamedChild(0))
}

func (e *extractor) visitIf(stmt *sitter.Node) {
	e.visitStatement(stmt.ChildByFieldName("consequence"))
	e.visitStatement(stmt.ChildByFieldName("alternative"))
}

func (e *extractor) visitTry(stmt *sitter.Node) {
	e.visitStatement(stmt.ChildByFieldName("body"))
	if handler := stmt.ChildByFieldName("handler"); handler != nil {
		e.visitStatement(handler.ChildByFieldName("body"))
	}
	if finalizer := stmt.ChildByFieldName("finalizer"); finalizer != nil {
		e.visitStatement(finalizer.ChildByFieldName("body"))
	}
}

func (e *extractor) visitLoop(stmt *sitter.Node) {
	e.visitStatement(stmt.ChildByFieldName("body"))
}

func (e *extractor) visitSwitch(stmt *sitter.Node) {
	body := stmt.ChildByFieldName("body")
	if body == nil {
		return
	}
	for i := 0; i < int(body.NamedChildCount()); i++ {
		c := body.NamedChild(i)
		// switch_case and switch_default hold their statements as named
		// children alongside the case value expression.
		value := c.ChildByFieldName("value")
		for j := 0; j < int(c.NamedChildCount()); j++ {
			s := c.NamedChild(j)
			if value != nil && s.StartByte() == value.StartByte() {
				continue
			}
			e.visitStatement(s)
		}
	}
}

func (e *extractor) visitLabeled(stmt *sitter.Node) {
	e.visitStatement(stmt.ChildByFieldName("body"))
}

// emit records expr's call name if expr, after unwrapping one optional await,
// is an invocation with a resolvable target.
func (e *extractor) emit(expr *sitter.Node) {
	if expr == nil {
		return
	}
	if expr.Type() == "await_expression" {
		expr = expr.NamedChild(0)
		if expr == nil {
			return
		}
	}
	if expr.Type() != "call_expression" {
		return
	}
	if name := callName(expr, e.source); name != "" {
		e.calls = append(e.calls, name)
	}
}
