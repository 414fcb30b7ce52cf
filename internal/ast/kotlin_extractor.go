package ast

import (
	"context"
	"strings"

	sitter "github.com/smacker/go-tree-sitter"
	"github.com/smacker/go-tree-sitter/kotlin"
)

// kotlinExtractor walks the Kotlin grammar the same way pythonExtractor and
// jsExtractor walk theirs: no Kotlin parser exists anywhere in the
// retrieval pack to ground node-type choices on, so this follows the
// sibling extractors' idiom (two-pass function-then-call walk, class-body
// recursion stamping ClassName, KDoc/annotation capture) against Kotlin's
// own node shapes (function_declaration, class_declaration, modifiers).
type kotlinExtractor struct{}

func (kotlinExtractor) parse(content []byte) (*sitter.Tree, error) {
	parser := sitter.NewParser()
	parser.SetLanguage(kotlin.GetLanguage())
	return parser.ParseCtx(context.Background(), nil, content)
}

func (k kotlinExtractor) ExtractFunctions(content []byte, relPath string) ([]Function, error) {
	tree, err := k.parse(content)
	if err != nil {
		return nil, err
	}
	var funcs []Function
	anon := 0
	var walk func(n *sitter.Node, className string)
	walk = func(n *sitter.Node, className string) {
		if n == nil {
			return
		}
		switch n.Type() {
		case "class_declaration", "object_declaration":
			name := ""
			if id := n.ChildByFieldName("name"); id != nil {
				name = id.Content(content)
			}
			if body := n.ChildByFieldName("body"); body != nil {
				for i := 0; i < int(body.ChildCount()); i++ {
					walk(body.Child(i), name)
				}
			}
			return
		case "function_declaration":
			funcs = append(funcs, k.extractFunction(n, content, relPath, className))
			if body := n.ChildByFieldName("body"); body != nil {
				for i := 0; i < int(body.ChildCount()); i++ {
					walk(body.Child(i), className)
				}
			}
			return
		case "anonymous_function", "lambda_literal":
			anon++
			funcs = append(funcs, k.extractAnon(n, content, relPath, anon))
		}
		for i := 0; i < int(n.ChildCount()); i++ {
			walk(n.Child(i), className)
		}
	}
	walk(tree.RootNode(), "")
	return funcs, nil
}

func (k kotlinExtractor) extractFunction(n *sitter.Node, content []byte, relPath, className string) Function {
	name := ""
	if id := n.ChildByFieldName("name"); id != nil {
		name = id.Content(content)
	}
	fullName := name
	if className != "" {
		fullName = className + "." + name
	}
	startLine := int(n.StartPoint().Row) + 1
	endLine := int(n.EndPoint().Row) + 1

	fn := Function{
		ID:         FunctionID(relPath, fullName, startLine),
		Name:       fullName,
		FilePath:   relPath,
		LineStart:  startLine,
		LineEnd:    endLine,
		FullSource: n.Content(content),
		Parameters: k.params(n, content),
		IsMethod:   className != "",
		ClassName:  className,
		IsAsync:    k.isSuspend(n, content),
		Decorators: k.annotations(n, content),
		Docstring:  k.kdoc(n, content),
	}
	if ret := n.ChildByFieldName("return_type"); ret != nil {
		fn.ReturnType = ret.Content(content)
	}
	return fn
}

func (k kotlinExtractor) extractAnon(n *sitter.Node, content []byte, relPath string, anonCount int) Function {
	name := "$anon_"
	switch anonCount {
	default:
		name += string(rune('0' + anonCount%10))
	}
	startLine := int(n.StartPoint().Row) + 1
	return Function{
		ID:         FunctionID(relPath, name, startLine),
		Name:       name,
		FilePath:   relPath,
		LineStart:  startLine,
		LineEnd:    int(n.EndPoint().Row) + 1,
		FullSource: n.Content(content),
	}
}

// isSuspend reports whether a function_declaration carries the "suspend"
// modifier, Kotlin's equivalent of Python/JS's async marker.
func (kotlinExtractor) isSuspend(n *sitter.Node, content []byte) bool {
	mods := n.ChildByFieldName("modifiers")
	if mods == nil {
		return false
	}
	return strings.Contains(mods.Content(content), "suspend")
}

// annotations collects "@Name" entries from a function's modifiers list,
// mirroring decorator extraction in the Python extractor.
func (kotlinExtractor) annotations(n *sitter.Node, content []byte) []string {
	mods := n.ChildByFieldName("modifiers")
	if mods == nil {
		return nil
	}
	var out []string
	for i := 0; i < int(mods.ChildCount()); i++ {
		c := mods.Child(i)
		if c.Type() == "annotation" {
			text := strings.TrimPrefix(strings.TrimSpace(c.Content(content)), "@")
			out = append(out, text)
		}
	}
	return out
}

// kdoc returns the KDoc comment immediately preceding the function, used
// as its docstring.
func (kotlinExtractor) kdoc(n *sitter.Node, content []byte) string {
	prev := n.PrevSibling()
	if prev == nil || prev.Type() != "multiline_comment" {
		return ""
	}
	text := prev.Content(content)
	if !strings.HasPrefix(text, "/**") {
		return ""
	}
	text = strings.TrimPrefix(text, "/**")
	text = strings.TrimSuffix(text, "*/")
	var lines []string
	for _, line := range strings.Split(text, "\n") {
		line = strings.TrimSpace(line)
		line = strings.TrimPrefix(line, "*")
		lines = append(lines, strings.TrimSpace(line))
	}
	return strings.Trim(strings.Join(lines, "\n"), "\n ")
}

func (kotlinExtractor) params(n *sitter.Node, content []byte) []Parameter {
	list := n.ChildByFieldName("parameters")
	if list == nil {
		return nil
	}
	var params []Parameter
	for i := 0; i < int(list.ChildCount()); i++ {
		c := list.Child(i)
		if c.Type() != "parameter" {
			continue
		}
		p := Parameter{}
		if id := c.ChildByFieldName("name"); id != nil {
			p.Name = id.Content(content)
		}
		if t := c.ChildByFieldName("type"); t != nil {
			p.Type = t.Content(content)
		}
		if d := c.ChildByFieldName("default"); d != nil {
			p.Default = d.Content(content)
			p.HasDefault = true
		}
		if p.Name != "" {
			params = append(params, p)
		}
	}
	return params
}

func (k kotlinExtractor) ExtractCalls(content []byte, relPath string, funcs []Function, funcNameToID map[string]string) ([]CallEdge, error) {
	tree, err := k.parse(content)
	if err != nil {
		return nil, err
	}

	byID := make(map[string]*sitter.Node, len(funcs))
	anon := 0
	var collect func(n *sitter.Node, className string)
	collect = func(n *sitter.Node, className string) {
		if n == nil {
			return
		}
		switch n.Type() {
		case "class_declaration", "object_declaration":
			name := ""
			if id := n.ChildByFieldName("name"); id != nil {
				name = id.Content(content)
			}
			if body := n.ChildByFieldName("body"); body != nil {
				for i := 0; i < int(body.ChildCount()); i++ {
					collect(body.Child(i), name)
				}
			}
			return
		case "function_declaration":
			name := ""
			if id := n.ChildByFieldName("name"); id != nil {
				name = id.Content(content)
			}
			fullName := name
			if className != "" {
				fullName = className + "." + name
			}
			startLine := int(n.StartPoint().Row) + 1
			byID[FunctionID(relPath, fullName, startLine)] = n
			if body := n.ChildByFieldName("body"); body != nil {
				for i := 0; i < int(body.ChildCount()); i++ {
					collect(body.Child(i), className)
				}
			}
			return
		case "anonymous_function", "lambda_literal":
			anon++
			startLine := int(n.StartPoint().Row) + 1
			byID[FunctionID(relPath, "$anon_"+string(rune('0'+anon%10)), startLine)] = n
		}
		for i := 0; i < int(n.ChildCount()); i++ {
			collect(n.Child(i), className)
		}
	}
	collect(tree.RootNode(), "")

	var edges []CallEdge
	for _, fn := range funcs {
		node, ok := byID[fn.ID]
		if !ok {
			continue
		}
		k.walkCalls(node, content, fn.ID, funcNameToID, &edges)
	}
	return edges, nil
}

func (k kotlinExtractor) walkCalls(n *sitter.Node, content []byte, callerID string, funcNameToID map[string]string, edges *[]CallEdge) {
	if n == nil {
		return
	}
	if n.Type() == "call_expression" {
		callee := n.ChildByFieldName("function")
		name, module := k.calleeNameAndModule(callee, content)
		if name != "" {
			edge := CallEdge{
				CallerID:     callerID,
				CalleeName:   name,
				CalleeModule: module,
				Line:         int(n.StartPoint().Row) + 1,
				Confidence:   ConfidenceUnresolved,
			}
			if module == "" {
				if id, ok := funcNameToID[name]; ok {
					edge.CalleeID = id
					edge.Confidence = ConfidenceHigh
				}
			}
			*edges = append(*edges, edge)
		}
	}
	for i := 0; i < int(n.ChildCount()); i++ {
		k.walkCalls(n.Child(i), content, callerID, funcNameToID, edges)
	}
}

func (kotlinExtractor) calleeNameAndModule(n *sitter.Node, content []byte) (name, module string) {
	if n == nil {
		return "", ""
	}
	switch n.Type() {
	case "simple_identifier":
		return n.Content(content), ""
	case "navigation_expression":
		receiver := n.ChildByFieldName("receiver")
		suffix := n.ChildByFieldName("suffix")
		if suffix == nil {
			return "", ""
		}
		name = strings.TrimPrefix(suffix.Content(content), ".")
		if receiver != nil {
			module = receiver.Content(content)
		}
		return name, module
	}
	return "", ""
}

func (kotlinExtractor) ExtractImports(content []byte, relPath string) ([]Import, error) {
	parser := sitter.NewParser()
	parser.SetLanguage(kotlin.GetLanguage())
	tree, err := parser.ParseCtx(context.Background(), nil, content)
	if err != nil {
		return nil, err
	}
	var imports []Import
	var walk func(n *sitter.Node)
	walk = func(n *sitter.Node) {
		if n == nil {
			return
		}
		if n.Type() == "import_header" {
			imp := Import{Line: int(n.StartPoint().Row) + 1}
			id := n.ChildByFieldName("identifier")
			path := ""
			if id != nil {
				path = id.Content(content)
			}
			if strings.HasSuffix(path, ".*") {
				imp.Path = strings.TrimSuffix(path, ".*")
				imp.Wildcard = true
			} else {
				imp.Path = path
			}
			if alias := n.ChildByFieldName("alias"); alias != nil {
				imp.Alias = alias.Content(content)
			}
			imports = append(imports, imp)
			return
		}
		for i := 0; i < int(n.ChildCount()); i++ {
			walk(n.Child(i))
		}
	}
	walk(tree.RootNode())
	return imports, nil
}
