package ast

import (
	"context"
	"fmt"
	"strings"

	sitter "github.com/smacker/go-tree-sitter"
	"github.com/smacker/go-tree-sitter/javascript"
	"github.com/smacker/go-tree-sitter/typescript/typescript"
)

// jsExtractor implements Extractor for JavaScript and TypeScript, grounded
// on vjache-cie/pkg/ingestion/parser_javascript.go's four function shapes
// (function_declaration, variable_declarator assigned an arrow/function
// expression, method_definition, anonymous arrow_function) generalized to
// also run under the TypeScript grammar.
type jsExtractor struct {
	typescript bool
}

func (j jsExtractor) parse(content []byte) (*sitter.Tree, error) {
	parser := sitter.NewParser()
	if j.typescript {
		parser.SetLanguage(typescript.GetLanguage())
	} else {
		parser.SetLanguage(javascript.GetLanguage())
	}
	tree, err := parser.ParseCtx(context.Background(), nil, content)
	if err != nil {
		return nil, fmt.Errorf("ast: js/ts parse: %w", err)
	}
	return tree, nil
}

func (j jsExtractor) ExtractFunctions(content []byte, relPath string) ([]Function, error) {
	tree, err := j.parse(content)
	if err != nil {
		return nil, err
	}
	defer tree.Close()

	var funcs []Function
	anon := 0
	j.walk(tree.RootNode(), content, relPath, "", &funcs, &anon)
	return funcs, nil
}

func (j jsExtractor) walk(node *sitter.Node, content []byte, relPath, className string, funcs *[]Function, anon *int) {
	if node == nil {
		return
	}
	switch node.Type() {
	case "class_declaration":
		name := j.name(node, content)
		for i := 0; i < int(node.ChildCount()); i++ {
			child := node.Child(i)
			if child.Type() == "class_body" {
				j.walk(child, content, relPath, name, funcs, anon)
			}
		}
		return
	case "function_declaration":
		if fn := j.extractNamed(node, content, relPath, "", false); fn != nil {
			*funcs = append(*funcs, *fn)
		}
	case "variable_declarator":
		nameNode := node.ChildByFieldName("name")
		valueNode := node.ChildByFieldName("value")
		if nameNode != nil && valueNode != nil {
			switch valueNode.Type() {
			case "arrow_function", "function_expression", "function":
				if fn := j.extractAssigned(nameNode, valueNode, content, relPath); fn != nil {
					*funcs = append(*funcs, *fn)
				}
			}
		}
	case "method_definition":
		if fn := j.extractNamed(node, content, relPath, className, true); fn != nil {
			*funcs = append(*funcs, *fn)
		}
	case "arrow_function":
		parent := node.Parent()
		if parent == nil || parent.Type() != "variable_declarator" {
			*anon++
			if fn := j.extractAnonymousArrow(node, content, relPath, *anon); fn != nil {
				*funcs = append(*funcs, *fn)
			}
		}
	}
	for i := 0; i < int(node.ChildCount()); i++ {
		j.walk(node.Child(i), content, relPath, className, funcs, anon)
	}
}

func (j jsExtractor) name(node *sitter.Node, content []byte) string {
	n := node.ChildByFieldName("name")
	if n == nil {
		return ""
	}
	return string(content[n.StartByte():n.EndByte()])
}

func (j jsExtractor) isAsync(node *sitter.Node, content []byte) bool {
	for i := 0; i < int(node.ChildCount()); i++ {
		child := node.Child(i)
		if child.Type() == "async" {
			return true
		}
		if child.IsNamed() {
			break
		}
	}
	return false
}

func (j jsExtractor) extractNamed(node *sitter.Node, content []byte, relPath, className string, isMethod bool) *Function {
	nameNode := node.ChildByFieldName("name")
	if nameNode == nil {
		return nil
	}
	name := string(content[nameNode.StartByte():nameNode.EndByte()])
	fullName := name
	if isMethod && className != "" {
		fullName = className + "." + name
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
		Parameters: j.params(node, content),
		IsAsync:    j.isAsync(node, content),
		IsMethod:   isMethod,
		ClassName:  className,
	}
}

func (j jsExtractor) extractAssigned(nameNode, valueNode *sitter.Node, content []byte, relPath string) *Function {
	name := string(content[nameNode.StartByte():nameNode.EndByte()])
	startLine := int(nameNode.StartPoint().Row) + 1
	endLine := int(valueNode.EndPoint().Row) + 1
	if parent := nameNode.Parent(); parent != nil {
		if grand := parent.Parent(); grand != nil &&
			(grand.Type() == "lexical_declaration" || grand.Type() == "variable_declaration") {
			startLine = int(grand.StartPoint().Row) + 1
		}
	}
	return &Function{
		ID:         FunctionID(relPath, name, startLine),
		Name:       name,
		FilePath:   relPath,
		LineStart:  startLine,
		LineEnd:    endLine,
		FullSource: string(content[nameNode.StartByte():valueNode.EndByte()]),
		Parameters: j.params(valueNode, content),
		IsAsync:    j.isAsync(valueNode, content),
	}
}

func (j jsExtractor) extractAnonymousArrow(node *sitter.Node, content []byte, relPath string, index int) *Function {
	name := fmt.Sprintf("$arrow_%d", index)
	startLine := int(node.StartPoint().Row) + 1
	endLine := int(node.EndPoint().Row) + 1
	return &Function{
		ID:         FunctionID(relPath, name, startLine),
		Name:       name,
		FilePath:   relPath,
		LineStart:  startLine,
		LineEnd:    endLine,
		FullSource: string(content[node.StartByte():node.EndByte()]),
		Parameters: j.params(node, content),
		IsAsync:    j.isAsync(node, content),
	}
}

func (j jsExtractor) params(node *sitter.Node, content []byte) []Parameter {
	paramsNode := node.ChildByFieldName("parameters")
	if paramsNode == nil {
		paramsNode = node.ChildByFieldName("parameter")
	}
	if paramsNode == nil {
		return nil
	}
	if paramsNode.Type() == "identifier" {
		// single bare identifier parameter (e.g. `x => x + 1`)
		return []Parameter{{Name: string(content[paramsNode.StartByte():paramsNode.EndByte()])}}
	}
	var params []Parameter
	for i := 0; i < int(paramsNode.ChildCount()); i++ {
		child := paramsNode.Child(i)
		switch child.Type() {
		case "identifier":
			params = append(params, Parameter{Name: string(content[child.StartByte():child.EndByte()])})
		case "required_parameter", "optional_parameter":
			p := Parameter{}
			if n := child.ChildByFieldName("pattern"); n != nil {
				p.Name = string(content[n.StartByte():n.EndByte()])
			}
			if n := child.ChildByFieldName("type"); n != nil {
				p.Type = string(content[n.StartByte():n.EndByte()])
			}
			params = append(params, p)
		case "assignment_pattern":
			p := Parameter{HasDefault: true}
			if n := child.ChildByFieldName("left"); n != nil {
				p.Name = string(content[n.StartByte():n.EndByte()])
			}
			if n := child.ChildByFieldName("right"); n != nil {
				p.Default = string(content[n.StartByte():n.EndByte()])
			}
			params = append(params, p)
		}
	}
	return params
}

func (j jsExtractor) ExtractCalls(content []byte, relPath string, funcs []Function, funcNameToID map[string]string) ([]CallEdge, error) {
	tree, err := j.parse(content)
	if err != nil {
		return nil, err
	}
	defer tree.Close()

	nodeByID := map[string]*sitter.Node{}
	anon := 0
	j.collectNodes(tree.RootNode(), content, relPath, "", nodeByID, &anon)

	var edges []CallEdge
	for _, fn := range funcs {
		node, ok := nodeByID[fn.ID]
		if !ok {
			continue
		}
		j.walkCalls(node, content, fn.ID, funcNameToID, &edges)
	}
	return edges, nil
}

func (j jsExtractor) collectNodes(node *sitter.Node, content []byte, relPath, className string, out map[string]*sitter.Node, anon *int) {
	if node == nil {
		return
	}
	switch node.Type() {
	case "class_declaration":
		name := j.name(node, content)
		for i := 0; i < int(node.ChildCount()); i++ {
			child := node.Child(i)
			if child.Type() == "class_body" {
				j.collectNodes(child, content, relPath, name, out, anon)
			}
		}
		return
	case "function_declaration":
		name := j.name(node, content)
		startLine := int(node.StartPoint().Row) + 1
		out[FunctionID(relPath, name, startLine)] = node
	case "method_definition":
		name := j.name(node, content)
		if className != "" {
			name = className + "." + name
		}
		startLine := int(node.StartPoint().Row) + 1
		out[FunctionID(relPath, name, startLine)] = node
	case "variable_declarator":
		nameNode := node.ChildByFieldName("name")
		valueNode := node.ChildByFieldName("value")
		if nameNode != nil && valueNode != nil {
			switch valueNode.Type() {
			case "arrow_function", "function_expression", "function":
				name := string(content[nameNode.StartByte():nameNode.EndByte()])
				startLine := int(nameNode.StartPoint().Row) + 1
				if parent := nameNode.Parent(); parent != nil {
					if grand := parent.Parent(); grand != nil &&
						(grand.Type() == "lexical_declaration" || grand.Type() == "variable_declaration") {
						startLine = int(grand.StartPoint().Row) + 1
					}
				}
				out[FunctionID(relPath, name, startLine)] = valueNode
			}
		}
	case "arrow_function":
		parent := node.Parent()
		if parent == nil || parent.Type() != "variable_declarator" {
			*anon++
			name := fmt.Sprintf("$arrow_%d", *anon)
			startLine := int(node.StartPoint().Row) + 1
			out[FunctionID(relPath, name, startLine)] = node
		}
	}
	for i := 0; i < int(node.ChildCount()); i++ {
		j.collectNodes(node.Child(i), content, relPath, className, out, anon)
	}
}

func (j jsExtractor) walkCalls(node *sitter.Node, content []byte, callerID string, funcNameToID map[string]string, edges *[]CallEdge) {
	if node == nil {
		return
	}
	if node.Type() == "call_expression" {
		if funcNode := node.ChildByFieldName("function"); funcNode != nil {
			calleeName, module := j.calleeNameAndModule(funcNode, content)
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
		j.walkCalls(node.Child(i), content, callerID, funcNameToID, edges)
	}
}

func (j jsExtractor) calleeNameAndModule(node *sitter.Node, content []byte) (string, string) {
	if node == nil {
		return "", ""
	}
	switch node.Type() {
	case "identifier":
		return string(content[node.StartByte():node.EndByte()]), ""
	case "member_expression":
		propNode := node.ChildByFieldName("property")
		objNode := node.ChildByFieldName("object")
		if propNode == nil {
			return "", ""
		}
		module := ""
		if objNode != nil {
			module = string(content[objNode.StartByte():objNode.EndByte()])
		}
		return string(content[propNode.StartByte():propNode.EndByte()]), module
	}
	return "", ""
}

func (j jsExtractor) ExtractImports(content []byte, relPath string) ([]Import, error) {
	tree, err := j.parse(content)
	if err != nil {
		return nil, err
	}
	defer tree.Close()

	var imports []Import
	root := tree.RootNode()
	for i := 0; i < int(root.ChildCount()); i++ {
		j.collectImport(root.Child(i), content, &imports)
	}
	return imports, nil
}

func (j jsExtractor) collectImport(node *sitter.Node, content []byte, imports *[]Import) {
	if node == nil || node.Type() != "import_statement" {
		return
	}
	line := int(node.StartPoint().Row) + 1
	sourceNode := node.ChildByFieldName("source")
	path := ""
	if sourceNode != nil {
		path = strings.Trim(string(content[sourceNode.StartByte():sourceNode.EndByte()]), `"'`)
	}

	hasClause := false
	for i := 0; i < int(node.ChildCount()); i++ {
		child := node.Child(i)
		switch child.Type() {
		case "import_clause":
			hasClause = true
			j.collectImportClause(child, content, path, line, imports)
		case "namespace_import":
			hasClause = true
			*imports = append(*imports, Import{Path: path, Alias: j.lastIdentifier(child, content), Line: line, Wildcard: true})
		}
	}
	if !hasClause && path != "" {
		*imports = append(*imports, Import{Path: path, Line: line})
	}
}

func (j jsExtractor) collectImportClause(node *sitter.Node, content []byte, path string, line int, imports *[]Import) {
	for i := 0; i < int(node.ChildCount()); i++ {
		child := node.Child(i)
		switch child.Type() {
		case "identifier":
			*imports = append(*imports, Import{Path: path, Alias: string(content[child.StartByte():child.EndByte()]), Line: line})
		case "namespace_import":
			*imports = append(*imports, Import{Path: path, Alias: j.lastIdentifier(child, content), Line: line, Wildcard: true})
		case "named_imports":
			for k := 0; k < int(child.ChildCount()); k++ {
				spec := child.Child(k)
				if spec.Type() != "import_specifier" {
					continue
				}
				nameNode := spec.ChildByFieldName("name")
				aliasNode := spec.ChildByFieldName("alias")
				imp := Import{Path: path, Line: line}
				if nameNode != nil {
					imp.Alias = string(content[nameNode.StartByte():nameNode.EndByte()])
				}
				if aliasNode != nil {
					imp.Alias = string(content[aliasNode.StartByte():aliasNode.EndByte()])
				}
				*imports = append(*imports, imp)
			}
		}
	}
}

func (j jsExtractor) lastIdentifier(node *sitter.Node, content []byte) string {
	for i := int(node.ChildCount()) - 1; i >= 0; i-- {
		child := node.Child(i)
		if child.Type() == "identifier" {
			return string(content[child.StartByte():child.EndByte()])
		}
	}
	return ""
}
