package ast

import (
	"testing"

	"github.com/stretchr/testify/require"
)

const kotlinSample = `class Widget {
    /**
     * builds a thing
     */
    @JvmStatic
    suspend fun build(x: Int): Int {
        return helper(x)
    }

    fun helper(x: Int): Int {
        return x + 1
    }
}
`

func TestKotlinExtractFunctions(t *testing.T) {
	ext := kotlinExtractor{}
	funcs, err := ext.ExtractFunctions([]byte(kotlinSample), "widget.kt")
	require.NoError(t, err)
	require.Len(t, funcs, 2)

	byName := map[string]Function{}
	for _, fn := range funcs {
		byName[fn.Name] = fn
	}
	build, ok := byName["Widget.build"]
	require.True(t, ok)
	require.True(t, build.IsMethod)
	require.True(t, build.IsAsync)
	require.Contains(t, build.Decorators, "JvmStatic")
	require.Contains(t, build.Docstring, "builds a thing")
}

func TestKotlinSameFileCallResolvesHigh(t *testing.T) {
	ext := kotlinExtractor{}
	funcs, err := ext.ExtractFunctions([]byte(kotlinSample), "widget.kt")
	require.NoError(t, err)

	idx := FuncNameIndex(funcs)
	edges, err := ext.ExtractCalls([]byte(kotlinSample), "widget.kt", funcs, idx)
	require.NoError(t, err)
	require.Len(t, edges, 1)
	require.Equal(t, "helper", edges[0].CalleeName)
	require.Equal(t, ConfidenceHigh, edges[0].Confidence)
}

func TestKotlinExtractImports(t *testing.T) {
	src := "import com.example.Foo\nimport com.example.util.*\nimport com.example.Bar as B\n"
	ext := kotlinExtractor{}
	imports, err := ext.ExtractImports([]byte(src), "a.kt")
	require.NoError(t, err)
	require.Len(t, imports, 3)

	var sawWildcard, sawAlias bool
	for _, imp := range imports {
		if imp.Wildcard && imp.Path == "com.example.util" {
			sawWildcard = true
		}
		if imp.Alias == "B" {
			sawAlias = true
		}
	}
	require.True(t, sawWildcard)
	require.True(t, sawAlias)
}

func TestDispatchSelectsKotlinExtractor(t *testing.T) {
	require.IsType(t, kotlinExtractor{}, Dispatch("kotlin"))
}
