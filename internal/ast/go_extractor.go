package ast

import (
	"context"
	"fmt"
	"strings"

	sitter "github.com/smacker/go-tree-sitter"
	"github.com/smacker/go-tree-sitter/golang"
)

// goExtractor implements Extractor for Go source, grounded on
// kraklabs-cie/pkg/ingestion/parser_go.go's two-pass tree-sitter walk:
// a first pass collects function/method/closure nodes, a second pass
// walks each collected node's body for call expressions.
type goExtractor struct{}

func (goExtractor) parse(content []byte) (*sitter.Tree, error) {
	parser := sitter.NewParser()
	parser.SetLanguage(golang.GetLanguage())
	tree, err := parser.ParseCtx(context.Background(), nil, content)
	if err != nil {
		return nil, fmt.Errorf("ast: go parse: %w", err)
	}
	return tree, nil
}

func (g goExtractor) ExtractFunctions(content []byte, relPath string) ([]Function, error) {
	tree, err := g.parse(content)
	if err != nil {
		return nil, err
	}
	defer tree.Close()

	var funcs []Function
	anon := 0
	var walk func(node *sitter.Node)
	walk = func(node *sitter.Node) {
		if node == nil {
			return
		}
		switch node.Type() {
		case "function_declaration":
			if fn := g.extractFuncDecl(node, content, relPath); fn != nil {
				funcs = append(funcs, *fn)
			}
		case "method_declaration":
			if fn := g.extractMethodDecl(node, content, relPath); fn != nil {
				funcs = append(funcs, *fn)
			}
		case "func_literal":
			anon++
			if fn := g.extractFuncLiteral(node, content, relPath, anon); fn != nil {
				funcs = append(funcs, *fn)
			}
		}
		for i := 0; i < int(node.ChildCount()); i++ {
			walk(node.Child(i))
		}
	}
	walk(tree.RootNode())
	return funcs, nil
}

func (g goExtractor) buildFunction(node *sitter.Node, content []byte, relPath, name, returnType string, isMethod bool, className string) *Function {
	startLine := int(node.StartPoint().Row) + 1
	endLine := int(node.EndPoint().Row) + 1
	fn := &Function{
		ID:         FunctionID(relPath, name, startLine),
		Name:       name,
		FilePath:   relPath,
		LineStart:  startLine,
		LineEnd:    endLine,
		FullSource: string(content[node.StartByte():node.EndByte()]),
		ReturnType: returnType,
		IsMethod:   isMethod,
		ClassName:  className,
		Parameters: g.extractParams(node, content),
	}
	return fn
}

func (g goExtractor) extractFuncDecl(node *sitter.Node, content []byte, relPath string) *Function {
	nameNode := node.ChildByFieldName("name")
	if nameNode == nil {
		return nil
	}
	name := string(content[nameNode.StartByte():nameNode.EndByte()])
	returnType := g.fieldText(node, "result", content)
	return g.buildFunction(node, content, relPath, name, returnType, false, "")
}

func (g goExtractor) extractMethodDecl(node *sitter.Node, content []byte, relPath string) *Function {
	nameNode := node.ChildByFieldName("name")
	if nameNode == nil {
		return nil
	}
	methodName := string(content[nameNode.StartByte():nameNode.EndByte()])
	receiverType := g.receiverType(node, content)
	fullName := methodName
	if receiverType != "" {
		fullName = receiverType + "." + methodName
	}
	returnType := g.fieldText(node, "result", content)
	return g.buildFunction(node, content, relPath, fullName, returnType, true, receiverType)
}

func (g goExtractor) extractFuncLiteral(node *sitter.Node, content []byte, relPath string, anon int) *Function {
	name := fmt.Sprintf("$anon_%d", anon)
	returnType := g.fieldText(node, "result", content)
	return g.buildFunction(node, content, relPath, name, returnType, false, "")
}

func (g goExtractor) fieldText(node *sitter.Node, field string, content []byte) string {
	n := node.ChildByFieldName(field)
	if n == nil {
		return ""
	}
	return string(content[n.StartByte():n.EndByte()])
}

func (g goExtractor) receiverType(node *sitter.Node, content []byte) string {
	recv := node.ChildByFieldName("receiver")
	if recv == nil {
		return ""
	}
	for i := 0; i < int(recv.ChildCount()); i++ {
		child := recv.Child(i)
		if child.Type() == "parameter_declaration" {
			if typeNode := child.ChildByFieldName("type"); typeNode != nil {
				return g.baseTypeName(typeNode, content)
			}
		}
	}
	return ""
}

func (g goExtractor) baseTypeName(typeNode *sitter.Node, content []byte) string {
	if typeNode == nil {
		return ""
	}
	switch typeNode.Type() {
	case "pointer_type":
		for i := 0; i < int(typeNode.ChildCount()); i++ {
			child := typeNode.Child(i)
			if child.Type() != "*" {
				return g.baseTypeName(child, content)
			}
		}
	case "generic_type":
		if n := typeNode.ChildByFieldName("type"); n != nil {
			return string(content[n.StartByte():n.EndByte()])
		}
	case "type_identifier":
		return string(content[typeNode.StartByte():typeNode.EndByte()])
	}
	name := string(content[typeNode.StartByte():typeNode.EndByte()])
	return strings.TrimPrefix(name, "*")
}

func (g goExtractor) extractParams(node *sitter.Node, content []byte) []Parameter {
	paramsNode := node.ChildByFieldName("parameters")
	if paramsNode == nil {
		return nil
	}
	var params []Parameter
	for i := 0; i < int(paramsNode.ChildCount()); i++ {
		child := paramsNode.Child(i)
		if child.Type() != "parameter_declaration" && child.Type() != "variadic_parameter_declaration" {
			continue
		}
		typeNode := child.ChildByFieldName("type")
		typeText := ""
		if typeNode != nil {
			typeText = string(content[typeNode.StartByte():typeNode.EndByte()])
		}
		nameNode := child.ChildByFieldName("name")
		if nameNode != nil {
			params = append(params, Parameter{Name: string(content[nameNode.StartByte():nameNode.EndByte()]), Type: typeText})
			continue
		}
		if typeText != "" {
			params = append(params, Parameter{Type: typeText})
		}
	}
	return params
}

func (g goExtractor) ExtractCalls(content []byte, relPath string, funcs []Function, funcNameToID map[string]string) ([]CallEdge, error) {
	tree, err := g.parse(content)
	if err != nil {
		return nil, err
	}
	defer tree.Close()

	byID := map[string]*sitter.Node{}
	anon := 0
	var collect func(node *sitter.Node)
	collect = func(node *sitter.Node) {
		if node == nil {
			return
		}
		switch node.Type() {
		case "function_declaration", "method_declaration":
			if nameNode := node.ChildByFieldName("name"); nameNode != nil {
				name := string(content[nameNode.StartByte():nameNode.EndByte()])
				if node.Type() == "method_declaration" {
					if recv := g.receiverType(node, content); recv != "" {
						name = recv + "." + name
					}
				}
				startLine := int(node.StartPoint().Row) + 1
				byID[FunctionID(relPath, name, startLine)] = node
			}
		case "func_literal":
			anon++
			name := fmt.Sprintf("$anon_%d", anon)
			startLine := int(node.StartPoint().Row) + 1
			byID[FunctionID(relPath, name, startLine)] = node
		}
		for i := 0; i < int(node.ChildCount()); i++ {
			collect(node.Child(i))
		}
	}
	collect(tree.RootNode())

	var edges []CallEdge
	for _, fn := range funcs {
		node, ok := byID[fn.ID]
		if !ok {
			continue
		}
		body := node.ChildByFieldName("body")
		if body == nil {
			for i := 0; i < int(node.ChildCount()); i++ {
				if node.Child(i).Type() == "block" {
					body = node.Child(i)
					break
				}
			}
		}
		if body == nil {
			continue
		}
		g.walkCalls(body, content, fn.ID, funcNameToID, &edges)
	}
	return edges, nil
}

func (g goExtractor) walkCalls(node *sitter.Node, content []byte, callerID string, funcNameToID map[string]string, edges *[]CallEdge) {
	if node == nil {
		return
	}
	if node.Type() == "call_expression" {
		if funcNode := node.ChildByFieldName("function"); funcNode != nil {
			calleeName, module := g.calleeNameAndModule(funcNode, content)
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
		g.walkCalls(node.Child(i), content, callerID, funcNameToID, edges)
	}
}

// calleeNameAndModule returns the simple callee name used for same-file
// resolution and, for selector expressions (pkg.Foo / obj.Method), the
// qualifying prefix for cross-file resolution.
func (g goExtractor) calleeNameAndModule(node *sitter.Node, content []byte) (string, string) {
	if node == nil {
		return "", ""
	}
	switch node.Type() {
	case "identifier":
		return string(content[node.StartByte():node.EndByte()]), ""
	case "selector_expression":
		fieldNode := node.ChildByFieldName("field")
		operandNode := node.ChildByFieldName("operand")
		if fieldNode == nil {
			return "", ""
		}
		field := string(content[fieldNode.StartByte():fieldNode.EndByte()])
		module := ""
		if operandNode != nil {
			module = string(content[operandNode.StartByte():operandNode.EndByte()])
		}
		return field, module
	case "index_expression":
		if operand := node.ChildByFieldName("operand"); operand != nil {
			return g.calleeNameAndModule(operand, content)
		}
	}
	return "", ""
}

func (g goExtractor) ExtractImports(content []byte, relPath string) ([]Import, error) {
	tree, err := g.parse(content)
	if err != nil {
		return nil, err
	}
	defer tree.Close()

	var imports []Import
	root := tree.RootNode()
	for i := 0; i < int(root.ChildCount()); i++ {
		child := root.Child(i)
		if child.Type() != "import_declaration" {
			continue
		}
		for j := 0; j < int(child.ChildCount()); j++ {
			grand := child.Child(j)
			switch grand.Type() {
			case "import_spec":
				if imp := g.importSpec(grand, content); imp != nil {
					imports = append(imports, *imp)
				}
			case "import_spec_list":
				for k := 0; k < int(grand.ChildCount()); k++ {
					spec := grand.Child(k)
					if spec.Type() == "import_spec" {
						if imp := g.importSpec(spec, content); imp != nil {
							imports = append(imports, *imp)
						}
					}
				}
			}
		}
	}
	return imports, nil
}

func (g goExtractor) importSpec(node *sitter.Node, content []byte) *Import {
	pathNode := node.ChildByFieldName("path")
	if pathNode == nil {
		for i := 0; i < int(node.ChildCount()); i++ {
			if node.Child(i).Type() == "interpreted_string_literal" {
				pathNode = node.Child(i)
				break
			}
		}
	}
	if pathNode == nil {
		return nil
	}
	path := strings.Trim(string(content[pathNode.StartByte():pathNode.EndByte()]), `"`)
	alias := ""
	if nameNode := node.ChildByFieldName("name"); nameNode != nil {
		alias = string(content[nameNode.StartByte():nameNode.EndByte()])
	}
	return &Import{
		Path:     path,
		Alias:    alias,
		Line:     int(node.StartPoint().Row) + 1,
		Wildcard: alias == ".",
	}
}
