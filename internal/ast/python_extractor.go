package ast

import (
	"context"
	"fmt"
	"strings"

	sitter "github.com/smacker/go-tree-sitter"
	"github.com/smacker/go-tree-sitter/python"
)

// pythonExtractor implements Extractor for Python source, grounded on
// vjache-cie/pkg/ingestion/parser_python.go's class-prefix walk (methods
// named "Class.method") and lambda/call handling. Decorator and async
// detection and import extraction aren't present in that grounding file
// and are added here by inspecting the surrounding node shape directly.
type pythonExtractor struct{}

func (p pythonExtractor) parse(content []byte) (*sitter.Tree, error) {
	parser := sitter.NewParser()
	parser.SetLanguage(python.GetLanguage())
	tree, err := parser.ParseCtx(context.Background(), nil, content)
	if err != nil {
		return nil, fmt.Errorf("ast: python parse: %w", err)
	}
	return tree, nil
}

func (p pythonExtractor) ExtractFunctions(content []byte, relPath string) ([]Function, error) {
	tree, err := p.parse(content)
	if err != nil {
		return nil, err
	}
	defer tree.Close()

	var funcs []Function
	anon := 0
	p.walk(tree.RootNode(), content, relPath, "", &funcs, &anon)
	return funcs, nil
}

func (p pythonExtractor) walk(node *sitter.Node, content []byte, relPath, classPrefix string, funcs *[]Function, anon *int) {
	if node == nil {
		return
	}
	switch node.Type() {
	case "class_definition":
		className := p.name(node, content)
		for i := 0; i < int(node.ChildCount()); i++ {
			child := node.Child(i)
			if child.Type() == "block" {
				p.walk(child, content, relPath, className, funcs, anon)
			}
		}
		return
	case "decorated_definition":
		decorators := p.decorators(node, content)
		inner := node.ChildByFieldName("definition")
		if inner == nil {
			for i := 0; i < int(node.ChildCount()); i++ {
				if node.Child(i).Type() == "function_definition" || node.Child(i).Type() == "class_definition" {
					inner = node.Child(i)
					break
				}
			}
		}
		if inner != nil && inner.Type() == "function_definition" {
			if fn := p.extractFunction(inner, content, relPath, classPrefix); fn != nil {
				fn.Decorators = decorators
				*funcs = append(*funcs, *fn)
			}
			return
		}
		p.walk(inner, content, relPath, classPrefix, funcs, anon)
		return
	case "function_definition":
		if fn := p.extractFunction(node, content, relPath, classPrefix); fn != nil {
			*funcs = append(*funcs, *fn)
		}
	case "lambda":
		*anon++
		if fn := p.extractLambda(node, content, relPath, *anon); fn != nil {
			*funcs = append(*funcs, *fn)
		}
	}
	for i := 0; i < int(node.ChildCount()); i++ {
		p.walk(node.Child(i), content, relPath, classPrefix, funcs, anon)
	}
}

func (p pythonExtractor) name(node *sitter.Node, content []byte) string {
	n := node.ChildByFieldName("name")
	if n == nil {
		return ""
	}
	return string(content[n.StartByte():n.EndByte()])
}

func (p pythonExtractor) decorators(node *sitter.Node, content []byte) []string {
	var decorators []string
	for i := 0; i < int(node.ChildCount()); i++ {
		child := node.Child(i)
		if child.Type() == "decorator" {
			decorators = append(decorators, strings.TrimPrefix(string(content[child.StartByte():child.EndByte()]), "@"))
		}
	}
	return decorators
}

// isAsync reports whether node has a leading "async" token, the shape
// tree-sitter-python uses for `async def` and `async with`/`async for`.
func (p pythonExtractor) isAsync(node *sitter.Node, content []byte) bool {
	for i := 0; i < int(node.ChildCount()); i++ {
		child := node.Child(i)
		if child.Type() == "async" || string(content[child.StartByte():child.EndByte()]) == "async" {
			return true
		}
		if child.Type() == "def" {
			break
		}
	}
	return false
}

func (p pythonExtractor) extractFunction(node *sitter.Node, content []byte, relPath, classPrefix string) *Function {
	name := p.name(node, content)
	if name == "" {
		return nil
	}
	fullName := name
	className := ""
	isMethod := false
	if classPrefix != "" {
		fullName = classPrefix + "." + name
		className = classPrefix
		isMethod = true
	}

	returnType := ""
	if n := node.ChildByFieldName("return_type"); n != nil {
		returnType = string(content[n.StartByte():n.EndByte()])
	}

	startLine := int(node.StartPoint().Row) + 1
	endLine := int(node.EndPoint().Row) + 1

	return &Function{
		ID:         FunctionID(relPath, fullName, startLine),
		Name:       fullName,
		FilePath:   relPath,
		LineStart:  startLine,
		LineEnd:    endLine,
		FullSource: string(content[node.StartByte():node.EndByte()]),
		Parameters: p.params(node, content),
		ReturnType: returnType,
		IsAsync:    p.isAsync(node, content),
		IsMethod:   isMethod,
		ClassName:  className,
		Docstring:  p.docstring(node, content),
	}
}

func (p pythonExtractor) extractLambda(node *sitter.Node, content []byte, relPath string, index int) *Function {
	name := fmt.Sprintf("$lambda_%d", index)
	startLine := int(node.StartPoint().Row) + 1
	endLine := int(node.EndPoint().Row) + 1
	return &Function{
		ID:         FunctionID(relPath, name, startLine),
		Name:       name,
		FilePath:   relPath,
		LineStart:  startLine,
		LineEnd:    endLine,
		FullSource: string(content[node.StartByte():node.EndByte()]),
	}
}

func (p pythonExtractor) params(node *sitter.Node, content []byte) []Parameter {
	paramsNode := node.ChildByFieldName("parameters")
	if paramsNode == nil {
		return nil
	}
	var params []Parameter
	for i := 0; i < int(paramsNode.ChildCount()); i++ {
		child := paramsNode.Child(i)
		switch child.Type() {
		case "identifier":
			params = append(params, Parameter{Name: string(content[child.StartByte():child.EndByte()])})
		case "typed_parameter":
			name := ""
			typ := ""
			for j := 0; j < int(child.ChildCount()); j++ {
				grand := child.Child(j)
				if grand.Type() == "identifier" {
					name = string(content[grand.StartByte():grand.EndByte()])
				}
				if grand.Type() == "type" {
					typ = string(content[grand.StartByte():grand.EndByte()])
				}
			}
			params = append(params, Parameter{Name: name, Type: typ})
		case "default_parameter", "typed_default_parameter":
			nameNode := child.ChildByFieldName("name")
			valueNode := child.ChildByFieldName("value")
			typeNode := child.ChildByFieldName("type")
			param := Parameter{HasDefault: true}
			if nameNode != nil {
				param.Name = string(content[nameNode.StartByte():nameNode.EndByte()])
			}
			if valueNode != nil {
				param.Default = string(content[valueNode.StartByte():valueNode.EndByte()])
			}
			if typeNode != nil {
				param.Type = string(content[typeNode.StartByte():typeNode.EndByte()])
			}
			params = append(params, param)
		}
	}
	return params
}

func (p pythonExtractor) docstring(node *sitter.Node, content []byte) string {
	body := node.ChildByFieldName("body")
	if body == nil || body.ChildCount() == 0 {
		return ""
	}
	first := body.Child(0)
	if first.Type() != "expression_statement" || first.ChildCount() == 0 {
		return ""
	}
	str := first.Child(0)
	if str.Type() != "string" {
		return ""
	}
	return strings.Trim(string(content[str.StartByte():str.EndByte()]), "\"' \t\n")
}

func (p pythonExtractor) ExtractCalls(content []byte, relPath string, funcs []Function, funcNameToID map[string]string) ([]CallEdge, error) {
	tree, err := p.parse(content)
	if err != nil {
		return nil, err
	}
	defer tree.Close()

	nodeByID := map[string]*sitter.Node{}
	anon := 0
	p.collectNodes(tree.RootNode(), content, relPath, "", nodeByID, &anon)

	var edges []CallEdge
	for _, fn := range funcs {
		node, ok := nodeByID[fn.ID]
		if !ok {
			continue
		}
		p.walkCalls(node, content, fn.ID, funcNameToID, &edges)
	}
	return edges, nil
}

func (p pythonExtractor) collectNodes(node *sitter.Node, content []byte, relPath, classPrefix string, out map[string]*sitter.Node, anon *int) {
	if node == nil {
		return
	}
	switch node.Type() {
	case "class_definition":
		className := p.name(node, content)
		for i := 0; i < int(node.ChildCount()); i++ {
			child := node.Child(i)
			if child.Type() == "block" {
				p.collectNodes(child, content, relPath, className, out, anon)
			}
		}
		return
	case "function_definition":
		name := p.name(node, content)
		fullName := name
		if classPrefix != "" {
			fullName = classPrefix + "." + name
		}
		startLine := int(node.StartPoint().Row) + 1
		out[FunctionID(relPath, fullName, startLine)] = node
	case "decorated_definition":
		for i := 0; i < int(node.ChildCount()); i++ {
			if node.Child(i).Type() == "function_definition" {
				p.collectNodes(node.Child(i), content, relPath, classPrefix, out, anon)
			}
		}
		return
	case "lambda":
		*anon++
		name := fmt.Sprintf("$lambda_%d", *anon)
		startLine := int(node.StartPoint().Row) + 1
		out[FunctionID(relPath, name, startLine)] = node
	}
	for i := 0; i < int(node.ChildCount()); i++ {
		p.collectNodes(node.Child(i), content, relPath, classPrefix, out, anon)
	}
}

func (p pythonExtractor) walkCalls(node *sitter.Node, content []byte, callerID string, funcNameToID map[string]string, edges *[]CallEdge) {
	if node == nil {
		return
	}
	if node.Type() == "call" {
		if funcNode := node.ChildByFieldName("function"); funcNode != nil {
			calleeName, module := p.calleeNameAndModule(funcNode, content)
			if calleeName != "" {
				line := int(node.StartPoint().Row) + 1
				edge := CallEdge{CallerID: callerID, CalleeName: calleeName, CalleeModule: module, Line: line}
				if module == "" {
					if id, ok := funcNameToID[calleeName]; ok && id != callerID {
						edge.CalleeID = id
						edge.Confidence = ConfidenceHigh
					} else {
						edge.Confidence = ConfidenceUnresolved
					}
				} else {
					edge.Confidence = ConfidenceUnresolved
				}
				*edges = append(*edges, edge)
			}
		}
	}
	for i := 0; i < int(node.ChildCount()); i++ {
		p.walkCalls(node.Child(i), content, callerID, funcNameToID, edges)
	}
}

func (p pythonExtractor) calleeNameAndModule(node *sitter.Node, content []byte) (string, string) {
	if node == nil {
		return "", ""
	}
	switch node.Type() {
	case "identifier":
		return string(content[node.StartByte():node.EndByte()]), ""
	case "attribute":
		attrNode := node.ChildByFieldName("attribute")
		objNode := node.ChildByFieldName("object")
		if attrNode == nil {
			return "", ""
		}
		module := ""
		if objNode != nil {
			module = string(content[objNode.StartByte():objNode.EndByte()])
		}
		return string(content[attrNode.StartByte():attrNode.EndByte()]), module
	}
	return "", ""
}

func (p pythonExtractor) ExtractImports(content []byte, relPath string) ([]Import, error) {
	tree, err := p.parse(content)
	if err != nil {
		return nil, err
	}
	defer tree.Close()

	var imports []Import
	root := tree.RootNode()
	for i := 0; i < int(root.ChildCount()); i++ {
		p.collectImport(root.Child(i), content, &imports)
	}
	return imports, nil
}

func (p pythonExtractor) collectImport(node *sitter.Node, content []byte, imports *[]Import) {
	if node == nil {
		return
	}
	line := int(node.StartPoint().Row) + 1
	switch node.Type() {
	case "import_statement":
		for i := 0; i < int(node.ChildCount()); i++ {
			child := node.Child(i)
			switch child.Type() {
			case "dotted_name":
				*imports = append(*imports, Import{Path: string(content[child.StartByte():child.EndByte()]), Line: line})
			case "aliased_import":
				name := child.ChildByFieldName("name")
				alias := child.ChildByFieldName("alias")
				if name != nil {
					imp := Import{Path: string(content[name.StartByte():name.EndByte()]), Line: line}
					if alias != nil {
						imp.Alias = string(content[alias.StartByte():alias.EndByte()])
					}
					*imports = append(*imports, imp)
				}
			}
		}
	case "import_from_statement":
		moduleNode := node.ChildByFieldName("module_name")
		module := ""
		if moduleNode != nil {
			module = string(content[moduleNode.StartByte():moduleNode.EndByte()])
		}
		wildcard := false
		var names []*sitter.Node
		for i := 0; i < int(node.ChildCount()); i++ {
			child := node.Child(i)
			if child.Type() == "wildcard_import" {
				wildcard = true
			}
			if child.Type() == "dotted_name" && child != moduleNode {
				names = append(names, child)
			}
			if child.Type() == "aliased_import" {
				names = append(names, child)
			}
		}
		if wildcard {
			*imports = append(*imports, Import{Path: module, Line: line, Wildcard: true})
			return
		}
		for _, n := range names {
			if n.Type() == "aliased_import" {
				name := n.ChildByFieldName("name")
				alias := n.ChildByFieldName("alias")
				bound := ""
				if name != nil {
					bound = string(content[name.StartByte():name.EndByte()])
				}
				if alias != nil {
					bound = string(content[alias.StartByte():alias.EndByte()])
				}
				*imports = append(*imports, Import{Path: module, Alias: bound, Line: line})
				continue
			}
			// "from module import name" binds the local name "name",
			// resolved against "module" by the caller-supplied resolver.
			*imports = append(*imports, Import{Path: module, Alias: string(content[n.StartByte():n.EndByte()]), Line: line})
		}
	}
}
