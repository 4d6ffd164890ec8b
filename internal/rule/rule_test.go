package rule

import (
	"context"
	"testing"

	sitter "github.com/smacker/go-tree-sitter"
	"github.com/stretchr/testify/require"

	"github.com/guardlint/guardlint/internal/lang"
)

// parse returns the root node of source parsed with the named language.
// The tree stays alive until the test ends.
func parse(t *testing.T, langName, source string) (*sitter.Node, []byte) {
	t.Helper()
	l := lang.Languages[langName]
	require.NotNil(t, l, "language %q not registered", langName)

	p := l.NewParser()
	tree, err := p.ParseCtx(context.Background(), nil, []byte(source))
	require.NoError(t, err)
	t.Cleanup(tree.Close)
	return tree.RootNode(), []byte(source)
}

// findFirst returns the first node of the given kind in preorder, or nil.
func findFirst(node *sitter.Node, kind string) *sitter.Node {
	if node.Type() == kind {
		return node
	}
	for i := 0; i < int(node.NamedChildCount()); i++ {
		if found := findFirst(node.NamedChild(i), kind); found != nil {
			return found
		}
	}
	return nil
}
