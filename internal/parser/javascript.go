package parser

import (
	"strings"

	sitter "github.com/smacker/go-tree-sitter"
	"github.com/smacker/go-tree-sitter/javascript"

	"github.com/dshills/memindex/pkg/types"
)

// jsBranchTypes are the node types counted toward complexity
var jsBranchTypes = map[string]bool{
	"if_statement":       true,
	"for_statement":      true,
	"for_in_statement":   true,
	"while_statement":    true,
	"do_statement":       true,
	"ternary_expression": true,
	"switch_case":        true,
	"catch_clause":       true,
}

// JavaScriptParser extracts entities and relations from JavaScript source
type JavaScriptParser struct{}

// NewJavaScriptParser creates a new JavaScript parser
func NewJavaScriptParser() *JavaScriptParser {
	return &JavaScriptParser{}
}

// Language returns the language name
func (p *JavaScriptParser) Language() string { return "javascript" }

// Extensions returns the claimed file extensions
func (p *JavaScriptParser) Extensions() []string { return []string{".js", ".mjs", ".cjs", ".jsx"} }

// SupportsStreaming reports the streaming capability
func (p *JavaScriptParser) SupportsStreaming() bool { return false }

// EmitsImplementation reports whether implementation chunks are produced
func (p *JavaScriptParser) EmitsImplementation() bool { return true }

// Parse extracts entities and relations from a JavaScript source file
func (p *JavaScriptParser) Parse(content []byte, filePath string) (*types.ParseResult, error) {
	tree, err := parseTree(javascript.GetLanguage(), content, filePath)
	if err != nil {
		return nil, err
	}
	defer tree.Close()

	em := newEmitter(filePath)
	fileName := em.emitFileEntity("", lineCount(content))

	w := &scriptWalker{em: em, content: content, fileName: fileName}
	w.walkProgram(tree.RootNode())

	return em.result, nil
}

// scriptWalker walks JavaScript and TypeScript syntax trees. The two
// grammars share their statement shapes; TypeScript adds declaration
// forms handled in walkStatement.
type scriptWalker struct {
	em       *emitter
	content  []byte
	fileName string
}

func (w *scriptWalker) walkProgram(root *sitter.Node) {
	eachNamedChild(root, func(child *sitter.Node) {
		w.walkStatement(child, nil, w.fileName)
	})
}

func (w *scriptWalker) walkStatement(n *sitter.Node, scope []string, parentName string) {
	switch n.Type() {
	case "import_statement":
		if source := fieldContent(n, "source", w.content); source != "" {
			w.em.addRelation(w.fileName, strings.Trim(source, "\"'`"), types.RelationImports)
		}
	case "class_declaration", "abstract_class_declaration":
		w.extractClass(n, scope, parentName)
	case "function_declaration", "generator_function_declaration":
		w.extractFunction(n, scope, parentName, types.EntityFunction)
	case "lexical_declaration", "variable_declaration":
		eachNamedChild(n, func(child *sitter.Node) {
			if child.Type() == "variable_declarator" {
				w.extractDeclarator(child, scope, parentName)
			}
		})
	case "export_statement":
		if decl := n.ChildByFieldName("declaration"); decl != nil {
			w.walkStatement(decl, scope, parentName)
		}
	case "expression_statement":
		w.extractRequire(n)
	case "interface_declaration", "type_alias_declaration", "enum_declaration":
		w.extractTypeDeclaration(n, scope, parentName)
	}
}

// extractClass emits a class entity, heritage edges, and its methods
func (w *scriptWalker) extractClass(n *sitter.Node, scope []string, parentName string) {
	className := fieldContent(n, "name", w.content)
	if className == "" {
		return
	}
	segments := append(append([]string{}, scope...), className)

	sig := "class " + className
	var base string
	walkNodes(n, func(node *sitter.Node) bool {
		if node.Type() == "class_heritage" {
			text := strings.TrimSpace(strings.TrimPrefix(node.Content(w.content), "extends"))
			base = strings.TrimSpace(strings.SplitN(text, "implements", 2)[0])
			return false
		}
		return node.Type() != "class_body"
	})
	if base != "" {
		sig += " extends " + base
	}

	name := w.em.addEntity(types.Entity{
		Name:      w.em.qualify(segments...),
		Type:      types.EntityClass,
		StartLine: startLine(n),
		EndLine:   endLine(n),
		Signature: sig,
		HasBody:   true,
		Body:      sliceLines(w.content, startLine(n), endLine(n)),
		Facts:     types.Facts{HasAsync: true},
	})
	w.em.addRelation(parentName, name, types.RelationContains)
	if base != "" {
		w.em.addRelation(name, base, types.RelationInherits)
	}

	if body := n.ChildByFieldName("body"); body != nil {
		eachNamedChild(body, func(member *sitter.Node) {
			if member.Type() == "method_definition" {
				w.extractMethod(member, segments, name)
			}
		})
	}
}

// extractMethod emits a method entity inside a class scope
func (w *scriptWalker) extractMethod(n *sitter.Node, scope []string, className string) {
	methodName := fieldContent(n, "name", w.content)
	if methodName == "" {
		return
	}
	segments := append(append([]string{}, scope...), methodName)

	params := n.ChildByFieldName("parameters")
	paramsText := "()"
	paramCount := 0
	if params != nil {
		paramsText = params.Content(w.content)
		paramCount = int(params.NamedChildCount())
	}
	isAsync := hasAnonChild(n, "async")

	sig := methodName + paramsText
	if isAsync {
		sig = "async " + sig
	}
	if ret := fieldContent(n, "return_type", w.content); ret != "" {
		sig += ret
	}

	facts := types.Facts{
		ParamCount: paramCount,
		ReturnKind: strings.TrimPrefix(fieldContent(n, "return_type", w.content), ": "),
		IsAsync:    isAsync,
		HasAsync:   true,
	}
	body := n.ChildByFieldName("body")
	w.collectBodyFacts(body, &facts)

	name := w.em.addEntity(types.Entity{
		Name:      w.em.qualify(segments...),
		Type:      types.EntityMethod,
		StartLine: startLine(n),
		EndLine:   endLine(n),
		Signature: sig,
		HasBody:   body != nil,
		Body:      sliceLines(w.content, startLine(n), endLine(n)),
		Facts:     facts,
	})
	w.em.addRelation(className, name, types.RelationContains)
	w.emitFactRelations(name, &facts)
}

// extractFunction emits a function entity with its body facts
func (w *scriptWalker) extractFunction(n *sitter.Node, scope []string, parentName string, entityType types.EntityType) {
	funcName := fieldContent(n, "name", w.content)
	if funcName == "" {
		return
	}
	w.emitFunctionEntity(n, funcName, scope, parentName, entityType)
}

// extractDeclarator handles `const f = () => ...` and `const f = function`
// forms, which name an otherwise anonymous function.
func (w *scriptWalker) extractDeclarator(n *sitter.Node, scope []string, parentName string) {
	name := fieldContent(n, "name", w.content)
	value := n.ChildByFieldName("value")
	if name == "" {
		return
	}

	if value != nil {
		switch value.Type() {
		case "arrow_function", "function", "function_expression":
			w.emitFunctionEntity(value, name, scope, parentName, types.EntityFunction)
			return
		}
	}

	// Scope-level variable
	if len(scope) == 0 {
		varName := w.em.addEntity(types.Entity{
			Name:      w.em.qualify(name),
			Type:      types.EntityVariable,
			StartLine: startLine(n),
			EndLine:   endLine(n),
			Signature: strings.SplitN(n.Content(w.content), "\n", 2)[0],
			Facts:     types.Facts{HasAsync: true},
		})
		w.em.addRelation(parentName, varName, types.RelationContains)
	}
}

// emitFunctionEntity is the shared emission path for named functions,
// function expressions, and arrow functions.
func (w *scriptWalker) emitFunctionEntity(n *sitter.Node, funcName string, scope []string, parentName string, entityType types.EntityType) {
	segments := append(append([]string{}, scope...), funcName)

	params := n.ChildByFieldName("parameters")
	paramsText := "()"
	paramCount := 0
	if params != nil {
		paramsText = params.Content(w.content)
		paramCount = int(params.NamedChildCount())
	}
	isAsync := hasAnonChild(n, "async")

	sig := "function " + funcName + paramsText
	if n.Type() == "arrow_function" {
		sig = funcName + " = " + paramsText + " => ..."
	}
	if isAsync {
		sig = "async " + sig
	}

	facts := types.Facts{
		ParamCount: paramCount,
		ReturnKind: strings.TrimPrefix(fieldContent(n, "return_type", w.content), ": "),
		IsAsync:    isAsync,
		HasAsync:   true,
	}
	body := n.ChildByFieldName("body")
	w.collectBodyFacts(body, &facts)

	name := w.em.addEntity(types.Entity{
		Name:      w.em.qualify(segments...),
		Type:      entityType,
		StartLine: startLine(n),
		EndLine:   endLine(n),
		Signature: sig,
		HasBody:   body != nil,
		Body:      sliceLines(w.content, startLine(n), endLine(n)),
		Facts:     facts,
	})
	w.em.addRelation(parentName, name, types.RelationContains)
	w.emitFactRelations(name, &facts)
}

// extractTypeDeclaration handles TypeScript-only declaration forms
func (w *scriptWalker) extractTypeDeclaration(n *sitter.Node, scope []string, parentName string) {
	typeName := fieldContent(n, "name", w.content)
	if typeName == "" {
		return
	}
	segments := append(append([]string{}, scope...), typeName)

	kind := "type"
	switch n.Type() {
	case "interface_declaration":
		kind = "interface"
	case "enum_declaration":
		kind = "enum"
	}

	name := w.em.addEntity(types.Entity{
		Name:      w.em.qualify(segments...),
		Type:      types.EntityClass,
		StartLine: startLine(n),
		EndLine:   endLine(n),
		Signature: kind + " " + typeName,
		HasBody:   true,
		Body:      sliceLines(w.content, startLine(n), endLine(n)),
		Facts:     types.Facts{HasAsync: true},
	})
	w.em.addRelation(parentName, name, types.RelationContains)

	// interface X extends Y
	walkNodes(n, func(node *sitter.Node) bool {
		if node.Type() == "extends_type_clause" {
			eachNamedChild(node, func(base *sitter.Node) {
				w.em.addRelation(name, base.Content(w.content), types.RelationInherits)
			})
			return false
		}
		return true
	})
}

// extractRequire handles CommonJS require() at statement level
func (w *scriptWalker) extractRequire(n *sitter.Node) {
	walkNodes(n, func(node *sitter.Node) bool {
		if node.Type() != "call_expression" {
			return true
		}
		if fieldContent(node, "function", w.content) != "require" {
			return true
		}
		args := node.ChildByFieldName("arguments")
		if args != nil && args.NamedChildCount() > 0 {
			module := strings.Trim(args.NamedChild(0).Content(w.content), "\"'`")
			w.em.addRelation(w.fileName, module, types.RelationImports)
		}
		return false
	})
}

// collectBodyFacts records calls, throws, catches, instantiations, anon
// functions, and branch counts from a function body.
func (w *scriptWalker) collectBodyFacts(body *sitter.Node, facts *types.Facts) {
	if body == nil {
		return
	}
	facts.BranchCount = countBranches(body, jsBranchTypes) + countBooleanOperators(body, w.content)

	walkNodes(body, func(node *sitter.Node) bool {
		switch node.Type() {
		case "function_declaration", "class_declaration", "method_definition":
			return false
		case "arrow_function", "function_expression":
			// Anonymous unless a declarator named it; the declarator path
			// prunes before reaching here only for its own value node.
			if p := node.Parent(); p != nil && p.Type() == "variable_declarator" {
				return true
			}
			w.em.addEntity(types.Entity{
				Name:      w.em.anonName(startLine(node)),
				Type:      types.EntityFunction,
				StartLine: startLine(node),
				EndLine:   endLine(node),
				Signature: "anonymous function",
				Facts:     types.Facts{HasAsync: true},
			})
		case "call_expression":
			if fn := node.ChildByFieldName("function"); fn != nil {
				callee := fn.Content(w.content)
				if callee != "" && callee != "require" && !strings.ContainsAny(callee, "({\n") {
					facts.Calls = append(facts.Calls, callee)
				}
			}
		case "new_expression":
			if ctor := fieldContent(node, "constructor", w.content); ctor != "" {
				facts.Instantiates = append(facts.Instantiates, ctor)
			}
		case "throw_statement":
			raised := "error"
			if node.NamedChildCount() > 0 {
				thrown := node.NamedChild(0)
				if thrown.Type() == "new_expression" {
					raised = fieldContent(thrown, "constructor", w.content)
				} else {
					raised = strings.SplitN(thrown.Content(w.content), "(", 2)[0]
				}
			}
			facts.Raises = append(facts.Raises, strings.TrimSpace(raised))
		case "catch_clause":
			facts.Catches = append(facts.Catches, "error")
		}
		return true
	})
}

// emitFactRelations emits call/raise/catch/instantiate edges for an entity
func (w *scriptWalker) emitFactRelations(name string, facts *types.Facts) {
	for _, callee := range facts.Calls {
		w.em.addRelation(name, callee, types.RelationCalls)
	}
	for _, raised := range facts.Raises {
		w.em.addRelation(name, raised, types.RelationRaises)
	}
	for _, inst := range facts.Instantiates {
		w.em.addRelation(name, inst, types.RelationInstantiates)
	}
}

// countBooleanOperators counts && and || operators in a subtree
func countBooleanOperators(n *sitter.Node, content []byte) int {
	count := 0
	walkNodes(n, func(node *sitter.Node) bool {
		if node.Type() == "binary_expression" {
			if op := node.ChildByFieldName("operator"); op != nil {
				text := op.Content(content)
				if text == "&&" || text == "||" {
					count++
				}
			}
		}
		return true
	})
	return count
}
