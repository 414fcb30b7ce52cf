package ast

import (
	"testing"

	"github.com/stretchr/testify/require"
)

func TestGenericExtractFunctionsRubyLikeKeyword(t *testing.T) {
	src := "def greet(name)\n  puts(name)\nend\n\ndef run\n  greet(\"hi\")\nend\n"
	ext := genericExtractor{}
	funcs, err := ext.ExtractFunctions([]byte(src), "script.rb")
	require.NoError(t, err)
	require.NotEmpty(t, funcs)

	var sawGreet, sawRun bool
	for _, fn := range funcs {
		if fn.Name == "greet" {
			sawGreet = true
		}
		if fn.Name == "run" {
			sawRun = true
		}
	}
	require.True(t, sawGreet)
	require.True(t, sawRun)
}

func TestGenericExtractCallsLowConfidence(t *testing.T) {
	funcs := []Function{
		{ID: "caller", Name: "run", FullSource: "func run() {\n  helper()\n}"},
		{ID: "callee", Name: "helper", FullSource: "func helper() {}"},
	}
	idx := FuncNameIndex(funcs)
	ext := genericExtractor{}
	edges, err := ext.ExtractCalls(nil, "x", funcs, idx)
	require.NoError(t, err)
	require.Len(t, edges, 1)
	require.Equal(t, "callee", edges[0].CalleeID)
	require.Equal(t, ConfidenceLow, edges[0].Confidence)
}
