package rule

import (
	"strings"

	sitter "github.com/smacker/go-tree-sitter"

	"github.com/guardlint/guardlint/internal/lang"
)

// callName returns the canonical dotted name of a call expression's target,
// or "" when the target is unresolvable.
func callName(call *sitter.Node, source []byte) string {
	callee := call.ChildByFieldName("function")
	if callee == nil {
		return ""
	}
	return resolveName(callee, source)
}

// resolveName canonicalizes an identifier or member-access chain.
//
// A chain whose base is not a plain identifier (a call result, `this`, a
// computed access) is unresolvable as a whole: this.hasPermission() must
// not canonicalize to "hasPermission".
func resolveName(node *sitter.Node, source []byte) string {
	var segments []string
	for node.Type() == "member_expression" {
		prop := node.ChildByFieldName("property")
		if prop == nil || prop.Type() != "property_identifier" {
			return ""
		}
		segments = append(segments, lang.NodeText(prop, source))
		node = node.ChildByFieldName("object")
		if node == nil {
			return ""
		}
	}
	if node.Type() != "identifier" {
		return ""
	}
	segments = append(segments, lang.NodeText(node, source))

	// Collected outermost-first; the base goes in front.
	for i, j := 0, len(segments)-1; i < j; i, j = i+1, j-1 {
		segments[i], segments[j] = segments[j], segments[i]
	}
	return strings.Join(segments, ".")
}

// nameMatches reports whether an extracted call name satisfies an enforced
// name. Exact equality always matches. An unqualified enforced name also
// matches any qualified call whose final segment equals it, so that
// permissions.hasPermission satisfies an enforcement of hasPermission
// (namespace-import convention). A qualified enforced name matches only
// exactly.
func nameMatches(callName, enforcedName string) bool {
	if callName == enforcedName {
		return true
	}
	if strings.Contains(enforcedName, ".") {
		return false
	}
	return strings.HasSuffix(callName, "."+enforcedName)
}
