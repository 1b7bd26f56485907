package parser

import (
	"strings"
	"unicode"

	sitter "github.com/smacker/go-tree-sitter"
	"github.com/smacker/go-tree-sitter/python"

	"github.com/dshills/memindex/pkg/types"
)

// pythonBranchTypes are the node types counted toward complexity
var pythonBranchTypes = map[string]bool{
	"if_statement":           true,
	"elif_clause":            true,
	"for_statement":          true,
	"while_statement":        true,
	"conditional_expression": true,
	"boolean_operator":       true,
	"except_clause":          true,
	"case_clause":            true,
}

// PythonParser extracts entities and relations from Python source via a
// grammar-driven concrete syntax tree.
type PythonParser struct{}

// NewPythonParser creates a new Python parser
func NewPythonParser() *PythonParser {
	return &PythonParser{}
}

// Language returns the language name
func (p *PythonParser) Language() string { return "python" }

// Extensions returns the claimed file extensions
func (p *PythonParser) Extensions() []string { return []string{".py", ".pyi"} }

// SupportsStreaming reports the streaming capability
func (p *PythonParser) SupportsStreaming() bool { return false }

// EmitsImplementation reports whether implementation chunks are produced
func (p *PythonParser) EmitsImplementation() bool { return true }

// Parse extracts entities and relations from a Python source file
func (p *PythonParser) Parse(content []byte, filePath string) (*types.ParseResult, error) {
	tree, err := parseTree(python.GetLanguage(), content, filePath)
	if err != nil {
		return nil, err
	}
	defer tree.Close()

	root := tree.RootNode()
	em := newEmitter(filePath)

	fileName := em.emitFileEntity(pythonDocstring(root, content), lineCount(content))

	w := &pythonWalker{em: em, content: content, fileName: fileName}
	eachNamedChild(root, func(child *sitter.Node) {
		w.walkStatement(child, nil, fileName)
	})

	return em.result, nil
}

// pythonWalker walks module, class, and function scopes
type pythonWalker struct {
	em       *emitter
	content  []byte
	fileName string
}

// walkStatement handles one statement in the given scope. parentName is
// the entity that contains declarations at this level.
func (w *pythonWalker) walkStatement(n *sitter.Node, scope []string, parentName string) {
	switch n.Type() {
	case "class_definition":
		w.extractClass(n, scope, parentName, nil)
	case "function_definition":
		w.extractFunction(n, scope, parentName, nil, len(scope) > 0)
	case "decorated_definition":
		w.extractDecorated(n, scope, parentName)
	case "import_statement", "import_from_statement":
		w.extractImport(n)
	case "expression_statement":
		w.extractModuleAssignment(n, scope, parentName)
	}
}

// extractDecorated unwraps decorators and forwards to the definition
func (w *pythonWalker) extractDecorated(n *sitter.Node, scope []string, parentName string) {
	var decorators []string
	eachNamedChild(n, func(child *sitter.Node) {
		if child.Type() == "decorator" {
			name := strings.TrimPrefix(strings.SplitN(child.Content(w.content), "(", 2)[0], "@")
			decorators = append(decorators, strings.TrimSpace(name))
		}
	})

	def := n.ChildByFieldName("definition")
	if def == nil {
		return
	}
	switch def.Type() {
	case "class_definition":
		w.extractClass(def, scope, parentName, decorators)
	case "function_definition":
		w.extractFunction(def, scope, parentName, decorators, len(scope) > 0)
	}
}

// extractClass emits a class entity, its inheritance edges, and recurses
// into the class body.
func (w *pythonWalker) extractClass(n *sitter.Node, scope []string, parentName string, decorators []string) {
	className := fieldContent(n, "name", w.content)
	if className == "" {
		return
	}
	segments := append(append([]string{}, scope...), className)

	var bases []string
	if super := n.ChildByFieldName("superclasses"); super != nil {
		eachNamedChild(super, func(arg *sitter.Node) {
			switch arg.Type() {
			case "identifier", "attribute":
				bases = append(bases, arg.Content(w.content))
			}
		})
	}

	sig := "class " + className
	if len(bases) > 0 {
		sig += "(" + strings.Join(bases, ", ") + ")"
	}

	body := n.ChildByFieldName("body")
	name := w.em.addEntity(types.Entity{
		Name:       w.em.qualify(segments...),
		Type:       types.EntityClass,
		StartLine:  startLine(n),
		EndLine:    endLine(n),
		Signature:  sig,
		DocComment: pythonDocstring(body, w.content),
		HasBody:    true,
		Body:       sliceLines(w.content, startLine(n), endLine(n)),
		Facts:      types.Facts{Decorators: decorators, HasAsync: true},
	})

	w.em.addRelation(parentName, name, types.RelationContains)
	for _, base := range bases {
		w.em.addRelation(name, base, types.RelationInherits)
	}
	for _, dec := range decorators {
		w.em.addRelation(dec, name, types.RelationDecorates)
	}

	if body != nil {
		eachNamedChild(body, func(child *sitter.Node) {
			w.walkStatement(child, segments, name)
		})
	}
}

// extractFunction emits a function or method entity with its body facts
func (w *pythonWalker) extractFunction(n *sitter.Node, scope []string, parentName string, decorators []string, isMethod bool) {
	funcName := fieldContent(n, "name", w.content)
	if funcName == "" {
		return
	}
	segments := append(append([]string{}, scope...), funcName)

	params := n.ChildByFieldName("parameters")
	paramCount := 0
	paramsText := "()"
	if params != nil {
		paramsText = params.Content(w.content)
		eachNamedChild(params, func(p *sitter.Node) {
			if p.Content(w.content) != "self" && p.Content(w.content) != "cls" {
				paramCount++
			}
		})
	}

	returnKind := fieldContent(n, "return_type", w.content)
	isAsync := hasAnonChild(n, "async")

	sig := "def " + funcName + paramsText
	if isAsync {
		sig = "async " + sig
	}
	if returnKind != "" {
		sig += " -> " + returnKind
	}

	body := n.ChildByFieldName("body")
	facts := types.Facts{
		ParamCount: paramCount,
		ReturnKind: returnKind,
		Decorators: decorators,
		IsAsync:    isAsync,
		HasAsync:   true,
	}
	w.collectBodyFacts(body, &facts)

	entityType := types.EntityFunction
	if isMethod {
		entityType = types.EntityMethod
	}

	name := w.em.addEntity(types.Entity{
		Name:       w.em.qualify(segments...),
		Type:       entityType,
		StartLine:  startLine(n),
		EndLine:    endLine(n),
		Signature:  sig,
		DocComment: pythonDocstring(body, w.content),
		HasBody:    body != nil,
		Body:       sliceLines(w.content, startLine(n), endLine(n)),
		Facts:      facts,
	})

	w.em.addRelation(parentName, name, types.RelationContains)
	for _, dec := range decorators {
		w.em.addRelation(dec, name, types.RelationDecorates)
	}
	w.emitFactRelations(name, &facts)

	// Nested defs become their own entities
	if body != nil {
		eachNamedChild(body, func(child *sitter.Node) {
			switch child.Type() {
			case "function_definition", "class_definition", "decorated_definition":
				w.walkStatement(child, segments, name)
			}
		})
	}
}

// extractImport emits imports relations for import and from-import forms
func (w *pythonWalker) extractImport(n *sitter.Node) {
	switch n.Type() {
	case "import_statement":
		eachNamedChild(n, func(child *sitter.Node) {
			switch child.Type() {
			case "dotted_name":
				w.em.addRelation(w.fileName, child.Content(w.content), types.RelationImports)
			case "aliased_import":
				if name := child.ChildByFieldName("name"); name != nil {
					w.em.addRelation(w.fileName, name.Content(w.content), types.RelationImports)
				}
			}
		})
	case "import_from_statement":
		module := fieldContent(n, "module_name", w.content)
		if module == "" {
			return
		}
		found := false
		eachNamedChild(n, func(child *sitter.Node) {
			if child.Type() == "dotted_name" && child.Content(w.content) != module {
				w.em.addRelation(w.fileName, module+"."+child.Content(w.content), types.RelationImports)
				found = true
			}
			if child.Type() == "aliased_import" {
				if name := child.ChildByFieldName("name"); name != nil {
					w.em.addRelation(w.fileName, module+"."+name.Content(w.content), types.RelationImports)
					found = true
				}
			}
		})
		if !found {
			w.em.addRelation(w.fileName, module, types.RelationImports)
		}
	}
}

// extractModuleAssignment emits variable entities for scope-level
// assignments like CONSTANT = value.
func (w *pythonWalker) extractModuleAssignment(n *sitter.Node, scope []string, parentName string) {
	if n.NamedChildCount() == 0 {
		return
	}
	assign := n.NamedChild(0)
	if assign.Type() != "assignment" {
		return
	}
	left := assign.ChildByFieldName("left")
	if left == nil || left.Type() != "identifier" {
		return
	}

	varName := left.Content(w.content)
	segments := append(append([]string{}, scope...), varName)
	name := w.em.addEntity(types.Entity{
		Name:      w.em.qualify(segments...),
		Type:      types.EntityVariable,
		StartLine: startLine(n),
		EndLine:   endLine(n),
		Signature: strings.SplitN(assign.Content(w.content), "\n", 2)[0],
		Facts:     types.Facts{HasAsync: true},
	})
	w.em.addRelation(parentName, name, types.RelationContains)
}

// collectBodyFacts records calls, raises, catches, instantiations, and
// branch counts from a function body.
func (w *pythonWalker) collectBodyFacts(body *sitter.Node, facts *types.Facts) {
	if body == nil {
		return
	}
	facts.BranchCount = countBranches(body, pythonBranchTypes)

	walkNodes(body, func(node *sitter.Node) bool {
		switch node.Type() {
		case "function_definition", "class_definition":
			// Nested scopes record their own facts
			return false
		case "call":
			fn := node.ChildByFieldName("function")
			if fn == nil {
				return true
			}
			callee := fn.Content(w.content)
			if callee == "" {
				return true
			}
			if isConstructorName(callee) {
				facts.Instantiates = append(facts.Instantiates, callee)
			} else {
				facts.Calls = append(facts.Calls, callee)
			}
		case "raise_statement":
			if node.NamedChildCount() > 0 {
				raised := node.NamedChild(0).Content(w.content)
				raised = strings.SplitN(raised, "(", 2)[0]
				facts.Raises = append(facts.Raises, strings.TrimSpace(raised))
			}
		case "except_clause":
			if node.NamedChildCount() > 0 {
				caught := node.NamedChild(0)
				switch caught.Type() {
				case "identifier", "attribute", "tuple":
					facts.Catches = append(facts.Catches, caught.Content(w.content))
				}
			}
		case "lambda":
			w.em.addEntity(types.Entity{
				Name:      w.em.anonName(startLine(node)),
				Type:      types.EntityFunction,
				StartLine: startLine(node),
				EndLine:   endLine(node),
				Signature: "lambda",
				Facts:     types.Facts{HasAsync: true},
			})
		}
		return true
	})
}

// emitFactRelations emits call/raise/catch/instantiate edges for an entity
func (w *pythonWalker) emitFactRelations(name string, facts *types.Facts) {
	for _, callee := range facts.Calls {
		w.em.addRelation(name, callee, types.RelationCalls)
	}
	for _, raised := range facts.Raises {
		w.em.addRelation(name, raised, types.RelationRaises)
	}
	for _, caught := range facts.Catches {
		w.em.addRelation(name, caught, types.RelationCatches)
	}
	for _, inst := range facts.Instantiates {
		w.em.addRelation(name, inst, types.RelationInstantiates)
	}
}

// pythonDocstring returns the docstring of a module or block node
func pythonDocstring(block *sitter.Node, content []byte) string {
	if block == nil || block.NamedChildCount() == 0 {
		return ""
	}
	first := block.NamedChild(0)
	if first.Type() != "expression_statement" || first.NamedChildCount() == 0 {
		return ""
	}
	str := first.NamedChild(0)
	if str.Type() != "string" {
		return ""
	}
	doc := str.Content(content)
	doc = strings.TrimLeft(doc, "rbuRBU")
	doc = strings.Trim(doc, "\"'")
	return strings.TrimSpace(doc)
}

// isConstructorName applies the name-based instantiation heuristic: a
// call target whose final segment starts with an upper-case letter.
func isConstructorName(callee string) bool {
	parts := strings.Split(callee, ".")
	last := parts[len(parts)-1]
	if last == "" {
		return false
	}
	r := []rune(last)[0]
	return unicode.IsUpper(r)
}
