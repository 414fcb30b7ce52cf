package ast

import (
	"testing"

	"github.com/stretchr/testify/require"
)

const goSample = `package sample

import (
	"fmt"
	other "pkg/other"
)

func Add(a int, b int) int {
	return helper(a) + other.Double(b)
}

func helper(x int) int {
	fmt.Println(x)
	return x * 2
}

type Server struct{}

func (s *Server) Start() error {
	return helper(1)
}
`

func TestGoExtractFunctions(t *testing.T) {
	ext := goExtractor{}
	funcs, err := ext.ExtractFunctions([]byte(goSample), "sample.go")
	require.NoError(t, err)
	require.Len(t, funcs, 3)

	names := map[string]Function{}
	for _, fn := range funcs {
		names[fn.Name] = fn
	}
	require.Contains(t, names, "Add")
	require.Contains(t, names, "helper")
	require.Contains(t, names, "Server.Start")
	require.True(t, names["Server.Start"].IsMethod)
	require.Equal(t, "Server", names["Server.Start"].ClassName)
}

func TestGoExtractCallsSameFileResolvesHigh(t *testing.T) {
	ext := goExtractor{}
	funcs, err := ext.ExtractFunctions([]byte(goSample), "sample.go")
	require.NoError(t, err)

	idx := FuncNameIndex(funcs)
	edges, err := ext.ExtractCalls([]byte(goSample), "sample.go", funcs, idx)
	require.NoError(t, err)

	var sawHelperCall, sawModuleCall bool
	for _, e := range edges {
		if e.CalleeName == "helper" && e.CalleeModule == "" {
			require.Equal(t, ConfidenceHigh, e.Confidence)
			require.NotEmpty(t, e.CalleeID)
			sawHelperCall = true
		}
		if e.CalleeName == "Double" && e.CalleeModule == "other" {
			require.Equal(t, ConfidenceUnresolved, e.Confidence)
			sawModuleCall = true
		}
	}
	require.True(t, sawHelperCall)
	require.True(t, sawModuleCall)
}

func TestGoExtractImports(t *testing.T) {
	ext := goExtractor{}
	imports, err := ext.ExtractImports([]byte(goSample), "sample.go")
	require.NoError(t, err)
	require.Len(t, imports, 2)

	byPath := map[string]Import{}
	for _, imp := range imports {
		byPath[imp.Path] = imp
	}
	require.Contains(t, byPath, "fmt")
	require.Contains(t, byPath, "pkg/other")
	require.Equal(t, "other", byPath["pkg/other"].Alias)
}
