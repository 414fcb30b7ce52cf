package ast

import "strings"

// genericExtractor is the fallback for languages without a dedicated
// tree-sitter grammar wired in: a line-pattern heuristic grounded on
// kraklabs-cie/pkg/ingestion/parser_go.go's non-tree-sitter fallback
// (Parser.parseGoFile/findGoCalls), generalized from Go's "func " keyword
// to the canonical keyword set the specification names for generic
// extraction: def/function/func/fn/sub, tracked by brace-balance instead
// of a single language's block syntax.
type genericExtractor struct{}

var genericFuncKeywords = []string{"def ", "function ", "func ", "fn ", "sub "}

func (genericExtractor) startsFunction(trimmed string) (name string, ok bool) {
	for _, kw := range genericFuncKeywords {
		if strings.HasPrefix(trimmed, kw) {
			rest := strings.TrimPrefix(trimmed, kw)
			rest = strings.TrimLeft(rest, " \t*&")
			if rest == "" {
				return "", false
			}
			end := strings.IndexAny(rest, "(: \t")
			if end == 0 {
				return "", false
			}
			if end < 0 {
				end = len(rest)
			}
			return rest[:end], true
		}
	}
	return "", false
}

func (g genericExtractor) ExtractFunctions(content []byte, relPath string) ([]Function, error) {
	lines := strings.Split(string(content), "\n")
	var funcs []Function

	var current *Function
	var currentLines []string
	braceBalance := 0
	usesBraces := false

	flush := func(endLine int) {
		if current == nil {
			return
		}
		current.LineEnd = endLine
		current.FullSource = strings.Join(currentLines, "\n")
		funcs = append(funcs, *current)
		current = nil
		currentLines = nil
	}

	start := func(name string, lineNum int, line string) {
		current = &Function{
			ID:        FunctionID(relPath, name, lineNum),
			Name:      name,
			FilePath:  relPath,
			LineStart: lineNum,
		}
		currentLines = []string{line}
		braceBalance = strings.Count(line, "{") - strings.Count(line, "}")
		usesBraces = strings.Contains(line, "{")
	}

	for i, line := range lines {
		lineNum := i + 1
		trimmed := strings.TrimSpace(line)

		if name, ok := g.startsFunction(trimmed); ok {
			flush(lineNum - 1)
			start(name, lineNum, line)
			continue
		}
		if current == nil {
			continue
		}

		currentLines = append(currentLines, line)
		if strings.Contains(line, "{") {
			usesBraces = true
		}
		braceBalance += strings.Count(line, "{") - strings.Count(line, "}")

		if usesBraces {
			if braceBalance <= 0 {
				flush(lineNum)
			}
			continue
		}
		if trimmed == "" || trimmed == "end" {
			flush(lineNum)
		}
	}
	flush(len(lines))

	return funcs, nil
}

func (g genericExtractor) ExtractCalls(content []byte, relPath string, funcs []Function, funcNameToID map[string]string) ([]CallEdge, error) {
	var edges []CallEdge
	for _, fn := range funcs {
		for _, name := range findGenericCalls(fn.FullSource) {
			if id, ok := funcNameToID[name]; ok && id != fn.ID {
				edges = append(edges, CallEdge{
					CallerID:   fn.ID,
					CalleeName: name,
					CalleeID:   id,
					Confidence: ConfidenceLow,
				})
			}
		}
	}
	return edges, nil
}

func (genericExtractor) ExtractImports(content []byte, relPath string) ([]Import, error) {
	return nil, nil
}

// findGenericCalls looks for identifier( patterns, skipping string and
// comment content, mirroring the teacher's brace/string-aware scanner.
func findGenericCalls(code string) []string {
	var calls []string
	inString := byte(0)
	i := 0
	for i < len(code) {
		c := code[i]
		if inString != 0 {
			if c == inString && (i == 0 || code[i-1] != '\\') {
				inString = 0
			}
			i++
			continue
		}
		if c == '"' || c == '\'' {
			inString = c
			i++
			continue
		}
		if isIdentStart(c) {
			start := i
			for i < len(code) && isIdentChar(code[i]) {
				i++
			}
			name := code[start:i]
			for i < len(code) && (code[i] == ' ' || code[i] == '\t') {
				i++
			}
			if i < len(code) && code[i] == '(' {
				calls = append(calls, name)
			}
			continue
		}
		i++
	}
	return calls
}

func isIdentStart(c byte) bool {
	return (c >= 'a' && c <= 'z') || (c >= 'A' && c <= 'Z') || c == '_'
}

func isIdentChar(c byte) bool {
	return isIdentStart(c) || (c >= '0' && c <= '9')
}
