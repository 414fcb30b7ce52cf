package ast

// Extractor is the capability set a language variant implements: produce
// function definitions, produce call edges (within the file, against a
// name→id map already built from ExtractFunctions), and produce import
// statements. A dispatcher selects a variant by normalized language tag;
// unknown tags resolve to the generic fallback.
type Extractor interface {
	// ExtractFunctions returns every function/method definition in content.
	ExtractFunctions(content []byte, relPath string) ([]Function, error)

	// ExtractCalls walks content recording call expressions found inside
	// each of funcs, keyed by the calling function's id. funcNameToID maps
	// simple function names (as stored during ExtractFunctions) to their
	// ids, enabling same-file resolution without a second index pass.
	ExtractCalls(content []byte, relPath string, funcs []Function, funcNameToID map[string]string) ([]CallEdge, error)

	// ExtractImports returns every import/require statement in content.
	ExtractImports(content []byte, relPath string) ([]Import, error)
}

// Dispatch selects an Extractor variant for a normalized language tag, as
// produced by internal/scanner.DetectLanguage. Unknown tags get the
// generic fallback, which scans source lines for common function
// declaration keywords instead of parsing a syntax tree.
func Dispatch(language string) Extractor {
	switch language {
	case "go":
		return goExtractor{}
	case "python":
		return pythonExtractor{}
	case "javascript", "typescript":
		return jsExtractor{typescript: language == "typescript"}
	case "kotlin":
		return kotlinExtractor{}
	default:
		return genericExtractor{}
	}
}

// FuncNameIndex builds the simple-name → id map ExtractCalls expects,
// using each function's unqualified name (the part after the last '.').
func FuncNameIndex(funcs []Function) map[string]string {
	idx := make(map[string]string, len(funcs))
	for _, fn := range funcs {
		idx[simpleName(fn.Name)] = fn.ID
	}
	return idx
}

func simpleName(name string) string {
	for i := len(name) - 1; i >= 0; i-- {
		if name[i] == '.' {
			return name[i+1:]
		}
	}
	return name
}
