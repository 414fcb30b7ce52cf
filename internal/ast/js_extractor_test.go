package ast

import (
	"testing"

	"github.com/stretchr/testify/require"
)

func TestJSExtractFunctionShapes(t *testing.T) {
	src := `
function add(a, b) { return helper(a, b); }
const helper = (a, b) => a + b;
class Widget {
  async render() { return add(1, 2); }
}
`
	ext := jsExtractor{}
	funcs, err := ext.ExtractFunctions([]byte(src), "sample.js")
	require.NoError(t, err)

	byName := map[string]Function{}
	for _, fn := range funcs {
		byName[fn.Name] = fn
	}
	require.Contains(t, byName, "add")
	require.Contains(t, byName, "helper")
	require.Contains(t, byName, "Widget.render")
	require.True(t, byName["Widget.render"].IsAsync)
	require.True(t, byName["Widget.render"].IsMethod)
}

func TestJSSameFileCallResolvesHigh(t *testing.T) {
	src := `
function add(a, b) { return helper(a, b); }
function helper(a, b) { return a + b; }
`
	ext := jsExtractor{}
	funcs, err := ext.ExtractFunctions([]byte(src), "sample.js")
	require.NoError(t, err)

	idx := FuncNameIndex(funcs)
	edges, err := ext.ExtractCalls([]byte(src), "sample.js", funcs, idx)
	require.NoError(t, err)
	require.NotEmpty(t, edges)

	var found bool
	for _, e := range edges {
		if e.CalleeName == "helper" {
			require.Equal(t, ConfidenceHigh, e.Confidence)
			found = true
		}
	}
	require.True(t, found)
}

func TestTypeScriptDispatchParses(t *testing.T) {
	src := `
function add(a: number, b: number): number {
  return a + b;
}
`
	ext := jsExtractor{typescript: true}
	funcs, err := ext.ExtractFunctions([]byte(src), "sample.ts")
	require.NoError(t, err)
	require.Len(t, funcs, 1)
	require.Equal(t, "add", funcs[0].Name)
}

func TestJSExtractImports(t *testing.T) {
	src := `
import fs from "fs";
import { readFile, writeFile as wf } from "./files";
import * as path from "path";
`
	ext := jsExtractor{}
	imports, err := ext.ExtractImports([]byte(src), "sample.js")
	require.NoError(t, err)
	require.NotEmpty(t, imports)

	var sawPath, sawWF bool
	for _, imp := range imports {
		if imp.Path == "path" && imp.Wildcard {
			sawPath = true
		}
		if imp.Alias == "wf" {
			sawWF = true
		}
	}
	require.True(t, sawPath)
	require.True(t, sawWF)
}
