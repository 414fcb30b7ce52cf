package ast

import (
	"testing"

	"github.com/stretchr/testify/require"
)

func TestResolveCrossFileNamedImport(t *testing.T) {
	bSrc := "def g(x):\n    return x + 1\n"
	aSrc := "from b import g\n\ndef f(x):\n    return g(x)\n"

	py := pythonExtractor{}
	bFuncs, err := py.ExtractFunctions([]byte(bSrc), "b.py")
	require.NoError(t, err)
	aFuncs, err := py.ExtractFunctions([]byte(aSrc), "a.py")
	require.NoError(t, err)
	aImports, err := py.ExtractImports([]byte(aSrc), "a.py")
	require.NoError(t, err)

	aEdges, err := py.ExtractCalls([]byte(aSrc), "a.py", aFuncs, FuncNameIndex(aFuncs))
	require.NoError(t, err)
	require.Len(t, aEdges, 1)
	require.Equal(t, ConfidenceUnresolved, aEdges[0].Confidence, "resolved only after the cross-file pass")

	resolver := NewResolver(func(importPath string) (string, bool) {
		if importPath == "b" {
			return "b.py", true
		}
		return "", false
	})
	resolver.BuildIndex([]FileUnit{
		{FilePath: "a.py", Functions: aFuncs, Imports: aImports},
		{FilePath: "b.py", Functions: bFuncs},
	})

	resolved := resolver.Resolve("a.py", aEdges)
	require.Len(t, resolved, 1)
	require.Contains(t, []Confidence{ConfidenceHigh, ConfidenceMedium}, resolved[0].Confidence)
	require.Equal(t, bFuncs[0].ID, resolved[0].CalleeID)
}

func TestResolveGlobalFallbackLowConfidence(t *testing.T) {
	edges := []CallEdge{{CallerID: "caller", CalleeName: "onlyDef"}}
	resolver := NewResolver(func(string) (string, bool) { return "", false })
	resolver.BuildIndex([]FileUnit{
		{FilePath: "x.go", Functions: []Function{{ID: "def1", Name: "onlyDef"}}},
	})
	resolved := resolver.Resolve("caller.go", edges)
	require.Equal(t, ConfidenceLow, resolved[0].Confidence)
	require.Equal(t, "def1", resolved[0].CalleeID)
}

func TestResolveAmbiguousGlobalStaysUnresolved(t *testing.T) {
	edges := []CallEdge{{CallerID: "caller", CalleeName: "dup"}}
	resolver := NewResolver(func(string) (string, bool) { return "", false })
	resolver.BuildIndex([]FileUnit{
		{FilePath: "x.go", Functions: []Function{{ID: "def1", Name: "dup"}}},
		{FilePath: "y.go", Functions: []Function{{ID: "def2", Name: "dup"}}},
	})
	resolved := resolver.Resolve("caller.go", edges)
	require.Equal(t, ConfidenceUnresolved, resolved[0].Confidence)
	require.Empty(t, resolved[0].CalleeID)
}

func TestDispatchSelectsExtractorByLanguage(t *testing.T) {
	require.IsType(t, goExtractor{}, Dispatch("go"))
	require.IsType(t, pythonExtractor{}, Dispatch("python"))
	require.Equal(t, jsExtractor{typescript: true}, Dispatch("typescript"))
	require.Equal(t, jsExtractor{typescript: false}, Dispatch("javascript"))
	require.IsType(t, genericExtractor{}, Dispatch("rust"))
}
