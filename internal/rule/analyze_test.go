package rule

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/guardlint/guardlint/internal/model"
)

var queryPolicy = model.Policy{
	Rule:           "require-auth-check",
	MonitoredCalls: []string{"query"},
	Enforced:       []string{"hasPermission"},
}

func analyzeSource(t *testing.T, langName string, policy model.Policy, source string) []model.Violation {
	t.Helper()
	root, src := parse(t, langName, source)
	return New(policy).Analyze(root, src, "test.ts")
}

func TestCallSiteSatisfied(t *testing.T) {
	t.Parallel()
	got := analyzeSource(t, "javascript", queryPolicy,
		`query(() => { hasPermission() })`)
	assert.Empty(t, got)
}

func TestCallSiteViolation(t *testing.T) {
	t.Parallel()
	got := analyzeSource(t, "javascript", queryPolicy,
		`query(() => { console.log("x") })`)
	require.Len(t, got, 1)
	assert.Contains(t, got[0].Message, "hasPermission")
	assert.Equal(t, "require-auth-check", got[0].Rule)
	assert.Equal(t, "test.ts", got[0].Path)
	assert.Equal(t, 1, got[0].Line)
}

func TestRequireAllReportsAllNames(t *testing.T) {
	t.Parallel()
	policy := model.Policy{
		Rule:           "r",
		MonitoredCalls: []string{"query"},
		Enforced:       []string{"hasPermission", "isAuthenticated"},
		RequireAll:     true,
	}
	got := analyzeSource(t, "javascript", policy,
		`query(() => { hasPermission() })`)
	require.Len(t, got, 1)
	assert.Contains(t, got[0].Message, "hasPermission")
	assert.Contains(t, got[0].Message, "isAuthenticated")
}

func TestQualifiedCallSatisfiesBareName(t *testing.T) {
	t.Parallel()
	got := analyzeSource(t, "javascript", queryPolicy,
		`query(() => { auth.hasPermission() })`)
	assert.Empty(t, got)
}

func TestQualifiedEnforcedNameMatchesExactly(t *testing.T) {
	t.Parallel()
	policy := model.Policy{
		Rule:           "r",
		MonitoredCalls: []string{"query"},
		Enforced:       []string{"auth.hasPermission"},
	}

	got := analyzeSource(t, "javascript", policy, `query(() => { auth.hasPermission() })`)
	assert.Empty(t, got)

	got = analyzeSource(t, "javascript", policy, `query(() => { x.auth.hasPermission() })`)
	assert.Len(t, got, 1)

	got = analyzeSource(t, "javascript", policy, `query(() => { hasPermission() })`)
	assert.Len(t, got, 1)
}

func TestEmptyBodyNeverReported(t *testing.T) {
	t.Parallel()
	assert.Empty(t, analyzeSource(t, "javascript", queryPolicy, `query(() => {})`))
	assert.Empty(t, analyzeSource(t, "javascript", queryPolicy,
		`query(() => { /* hasPermission() */ })`))
}

func TestDeclarationOnlyBodyIsReported(t *testing.T) {
	t.Parallel()
	got := analyzeSource(t, "javascript", queryPolicy, `query(() => { const x = 1 })`)
	assert.Len(t, got, 1)
}

func TestNestedFunctionCallsDoNotCount(t *testing.T) {
	t.Parallel()
	got := analyzeSource(t, "javascript", queryPolicy,
		`query(() => {
			function helper() { hasPermission() }
			helper()
		})`)
	require.Len(t, got, 1)
}

func TestAwaitedEnforcedCall(t *testing.T) {
	t.Parallel()
	got := analyzeSource(t, "javascript", queryPolicy,
		`query(async (ctx) => { await ctx.auth.hasPermission() })`)
	assert.Empty(t, got)
}

func TestExpressionBodiedArgument(t *testing.T) {
	t.Parallel()
	assert.Empty(t, analyzeSource(t, "javascript", queryPolicy,
		`query(() => hasPermission())`))
	assert.Len(t, analyzeSource(t, "javascript", queryPolicy,
		`query(() => someValue)`), 1)
}

func TestUnresolvableCallInsideBody(t *testing.T) {
	t.Parallel()
	// this.hasPermission() must not canonicalize to hasPermission.
	got := analyzeSource(t, "javascript", queryPolicy,
		`query(function () { this.hasPermission() })`)
	assert.Len(t, got, 1)
}

func TestEachFunctionArgumentIsItsOwnSite(t *testing.T) {
	t.Parallel()
	got := analyzeSource(t, "javascript", queryPolicy,
		`query(opts, () => { console.log(1) }, () => { hasPermission() })`)
	require.Len(t, got, 1)
}

func TestMonitoredQualifiedCallName(t *testing.T) {
	t.Parallel()
	policy := model.Policy{
		Rule:           "r",
		MonitoredCalls: []string{"server.query"},
		Enforced:       []string{"hasPermission"},
	}
	got := analyzeSource(t, "javascript", policy,
		`server.query(() => { console.log(1) });
		 query(() => { console.log(1) });`)
	require.Len(t, got, 1)
	assert.Equal(t, 1, got[0].Line)
}

func TestUnmonitoredCallIgnored(t *testing.T) {
	t.Parallel()
	got := analyzeSource(t, "javascript", queryPolicy,
		`mutation(() => { console.log(1) })`)
	assert.Empty(t, got)
}

func TestMonitoredCallInsideFunctionBody(t *testing.T) {
	t.Parallel()
	// Monitored call sites are found anywhere in the tree, not only at
	// the top level.
	got := analyzeSource(t, "javascript", queryPolicy,
		`function register() {
			query(() => { console.log(1) })
		}`)
	require.Len(t, got, 1)
	assert.Equal(t, 2, got[0].Line)
}

var actionsPolicy = model.Policy{
	Rule:               "require-auth-check",
	MonitoredFunctions: []string{"actions"},
	Enforced:           []string{"hasPermission"},
}

func TestExportedObjectPropertiesAreIndependentSites(t *testing.T) {
	t.Parallel()
	got := analyzeSource(t, "javascript", actionsPolicy,
		`export const actions = {
			a: () => { hasPermission() },
			b: () => { console.log("x") },
		};`)
	require.Len(t, got, 1)
	assert.Equal(t, 3, got[0].Line, "violation must anchor at property b")
}

func TestExportedObjectMethodProperties(t *testing.T) {
	t.Parallel()
	got := analyzeSource(t, "javascript", actionsPolicy,
		`export const actions = {
			async a() { hasPermission() },
			b() { console.log("x") },
		};`)
	require.Len(t, got, 1)
	assert.Equal(t, 3, got[0].Line)
}

func TestExportedFunctionDeclaration(t *testing.T) {
	t.Parallel()
	assert.Empty(t, analyzeSource(t, "javascript", actionsPolicy,
		`export function actions() { hasPermission() }`))
	assert.Len(t, analyzeSource(t, "javascript", actionsPolicy,
		`export function actions() { console.log(1) }`), 1)
}

func TestDefaultExportedNamedFunction(t *testing.T) {
	t.Parallel()
	got := analyzeSource(t, "javascript", actionsPolicy,
		`export default function actions() { console.log(1) }`)
	assert.Len(t, got, 1)
}

func TestExportedFunctionVariable(t *testing.T) {
	t.Parallel()
	assert.Len(t, analyzeSource(t, "javascript", actionsPolicy,
		`export const actions = () => { console.log(1) };`), 1)
	assert.Empty(t, analyzeSource(t, "javascript", actionsPolicy,
		`export const actions = async () => { hasPermission() };`))
}

func TestNonExportedBindingIsNotASite(t *testing.T) {
	t.Parallel()
	assert.Empty(t, analyzeSource(t, "javascript", actionsPolicy,
		`function actions() { console.log(1) }`))
	assert.Empty(t, analyzeSource(t, "javascript", actionsPolicy,
		`const actions = () => { console.log(1) };`))
}

func TestExportNameMismatchIgnored(t *testing.T) {
	t.Parallel()
	assert.Empty(t, analyzeSource(t, "javascript", actionsPolicy,
		`export const handlers = { a: () => { console.log(1) } };`))
}

func TestTypeAssertionWrappersUnwrapped(t *testing.T) {
	t.Parallel()
	got := analyzeSource(t, "typescript", actionsPolicy,
		`export const actions = (() => { console.log(1) }) as Handler;`)
	assert.Len(t, got, 1)

	got = analyzeSource(t, "typescript", actionsPolicy,
		`export const actions = {
			a: (() => { console.log(1) }) as Handler,
		};`)
	assert.Len(t, got, 1)
}

func TestEmptyExportedBodySkipped(t *testing.T) {
	t.Parallel()
	assert.Empty(t, analyzeSource(t, "javascript", actionsPolicy,
		`export function actions() {}`))
}

func TestControlFlowTraversal(t *testing.T) {
	t.Parallel()

	sources := []string{
		`query(() => { if (x) { hasPermission() } })`,
		`query(() => { if (x) { log() } else { hasPermission() } })`,
		`query(() => { try { hasPermission() } catch (e) { log(e) } })`,
		`query(() => { try { log() } finally { hasPermission() } })`,
		`query(() => { for (const k of keys) { hasPermission() } })`,
		`query(() => { while (x) { hasPermission() } })`,
		`query(() => { switch (x) { case 1: hasPermission(); break; default: break; } })`,
		`query(() => { outer: { hasPermission() } })`,
	}
	for _, source := range sources {
		assert.Empty(t, analyzeSource(t, "javascript", queryPolicy, source), source)
	}
}

func TestIdempotentOverSameTree(t *testing.T) {
	t.Parallel()
	root, src := parse(t, "javascript",
		`query(() => { console.log(1) });
		 query(() => { hasPermission() });
		 query(() => { fail() });`)

	a := New(queryPolicy)
	first := a.Analyze(root, src, "f.js")
	second := a.Analyze(root, src, "f.js")
	require.Len(t, first, 2)
	assert.Equal(t, first, second)
}

func TestViolationsDoNotSuppressEachOther(t *testing.T) {
	t.Parallel()
	got := analyzeSource(t, "javascript", queryPolicy,
		`query(() => { a() });
		 query(() => { b() });`)
	require.Len(t, got, 2)
	assert.Equal(t, 1, got[0].Line)
	assert.Equal(t, 2, got[1].Line)
}

func TestTSXSources(t *testing.T) {
	t.Parallel()
	got := analyzeSource(t, "tsx", queryPolicy,
		`export const page = query(() => { console.log(1) });`)
	assert.Len(t, got, 1)
}
