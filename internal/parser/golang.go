package parser

import (
	"fmt"
	"go/ast"
	"go/parser"
	"go/token"
	"strings"

	"github.com/dshills/memindex/pkg/types"
)

// GoParser handles AST-based parsing of Go source files
type GoParser struct{}

// NewGoParser creates a new Go parser
func NewGoParser() *GoParser {
	return &GoParser{}
}

// Language returns the language name
func (p *GoParser) Language() string { return "go" }

// Extensions returns the claimed file extensions
func (p *GoParser) Extensions() []string { return []string{".go"} }

// SupportsStreaming reports the streaming capability
func (p *GoParser) SupportsStreaming() bool { return false }

// EmitsImplementation reports whether implementation chunks are produced
func (p *GoParser) EmitsImplementation() bool { return true }

// Parse extracts entities and relations from a Go source file
func (p *GoParser) Parse(content []byte, filePath string) (*types.ParseResult, error) {
	fset := token.NewFileSet()

	file, err := parser.ParseFile(fset, filePath, content, parser.ParseComments)
	if file == nil {
		return nil, &types.ParseError{File: filePath, Message: fmt.Sprintf("syntax error: %v", err)}
	}

	em := newEmitter(filePath)
	if err != nil {
		// Partial AST is still usable; record the syntax error and continue
		em.result.AddDiagnostic(filePath, 0, 0, fmt.Sprintf("syntax error: %v", err))
	}

	doc := ""
	if file.Doc != nil {
		doc = strings.TrimSpace(file.Doc.Text())
	}
	fileName := em.emitFileEntity(doc, lineCount(content))

	ext := &goExtractor{
		em:       em,
		fset:     fset,
		content:  content,
		fileName: fileName,
		fileVars: topLevelValueNames(file),
	}

	// Imports
	for _, imp := range file.Imports {
		path := strings.Trim(imp.Path.Value, `"`)
		em.addRelation(fileName, path, types.RelationImports)
	}

	// Top-level declarations
	for _, decl := range file.Decls {
		switch d := decl.(type) {
		case *ast.FuncDecl:
			ext.extractFunction(d)
		case *ast.GenDecl:
			ext.extractGenDecl(d)
		}
	}

	return em.result, nil
}

// goExtractor walks declarations producing entities and relations
type goExtractor struct {
	em       *emitter
	fset     *token.FileSet
	content  []byte
	fileName string
	fileVars map[string]bool
}

// topLevelValueNames collects the file-scope const and var names so body
// walks can attribute reads and writes to them.
func topLevelValueNames(file *ast.File) map[string]bool {
	names := make(map[string]bool)
	for _, decl := range file.Decls {
		gen, ok := decl.(*ast.GenDecl)
		if !ok {
			continue
		}
		for _, spec := range gen.Specs {
			if vs, ok := spec.(*ast.ValueSpec); ok {
				for _, ident := range vs.Names {
					if ident.Name != "_" {
						names[ident.Name] = true
					}
				}
			}
		}
	}
	return names
}

func (e *goExtractor) lineOf(pos token.Pos) int {
	return e.fset.Position(pos).Line
}

// extractFunction extracts function and method declarations
func (e *goExtractor) extractFunction(fn *ast.FuncDecl) {
	start := e.lineOf(fn.Pos())
	end := e.lineOf(fn.End())

	entityType := types.EntityFunction
	var segments []string
	if fn.Recv != nil && len(fn.Recv.List) > 0 {
		entityType = types.EntityMethod
		recv := receiverTypeName(fn.Recv.List[0].Type)
		if recv != "" {
			segments = append(segments, recv)
		}
	}
	segments = append(segments, fn.Name.Name)

	facts := types.Facts{HasAsync: true}
	if fn.Type.Params != nil {
		facts.ParamCount = fn.Type.Params.NumFields()
	}
	if fn.Type.Results != nil && fn.Type.Results.NumFields() > 0 {
		facts.ReturnKind = fieldListString(fn.Type.Results)
	} else {
		facts.ReturnKind = ""
	}
	e.collectBodyFacts(fn.Body, &facts)

	name := e.em.addEntity(types.Entity{
		Name:       e.em.qualify(segments...),
		Type:       entityType,
		StartLine:  start,
		EndLine:    end,
		Signature:  functionSignature(fn),
		DocComment: docText(fn.Doc),
		HasBody:    fn.Body != nil,
		Body:       sliceLines(e.content, start, end),
		Facts:      facts,
	})

	e.em.addRelation(e.fileName, name, types.RelationContains)
	e.emitFactRelations(name, &facts)
}

// extractGenDecl extracts type, const, and var declarations
func (e *goExtractor) extractGenDecl(decl *ast.GenDecl) {
	for _, spec := range decl.Specs {
		switch s := spec.(type) {
		case *ast.TypeSpec:
			e.extractTypeSpec(s, decl.Doc)
		case *ast.ValueSpec:
			e.extractValueSpec(s, decl.Doc)
		}
	}
}

// extractTypeSpec extracts struct, interface, and type alias declarations
func (e *goExtractor) extractTypeSpec(spec *ast.TypeSpec, doc *ast.CommentGroup) {
	start := e.lineOf(spec.Pos())
	end := e.lineOf(spec.End())

	var sig string
	switch t := spec.Type.(type) {
	case *ast.StructType:
		sig = fmt.Sprintf("type %s struct { ... } // %d fields", spec.Name.Name, t.Fields.NumFields())
	case *ast.InterfaceType:
		sig = fmt.Sprintf("type %s interface { ... } // %d methods", spec.Name.Name, t.Methods.NumFields())
	default:
		sig = fmt.Sprintf("type %s", spec.Name.Name)
	}

	name := e.em.addEntity(types.Entity{
		Name:       e.em.qualify(spec.Name.Name),
		Type:       types.EntityClass,
		StartLine:  start,
		EndLine:    end,
		Signature:  sig,
		DocComment: docText(doc),
		HasBody:    true,
		Body:       sliceLines(e.content, start, end),
		Facts:      types.Facts{HasAsync: true},
	})
	e.em.addRelation(e.fileName, name, types.RelationContains)

	// Embedded structs and interfaces behave like inheritance
	if st, ok := spec.Type.(*ast.StructType); ok && st.Fields != nil {
		for _, field := range st.Fields.List {
			if len(field.Names) == 0 {
				if base := exprString(field.Type); base != "" {
					e.em.addRelation(name, base, types.RelationInherits)
				}
			}
		}
	}
	if it, ok := spec.Type.(*ast.InterfaceType); ok && it.Methods != nil {
		for _, field := range it.Methods.List {
			if len(field.Names) == 0 {
				if base := exprString(field.Type); base != "" {
					e.em.addRelation(name, base, types.RelationInherits)
				}
			}
		}
	}
}

// extractValueSpec extracts const and var declarations
func (e *goExtractor) extractValueSpec(spec *ast.ValueSpec, doc *ast.CommentGroup) {
	for _, ident := range spec.Names {
		if ident.Name == "_" {
			continue
		}
		start := e.lineOf(spec.Pos())
		end := e.lineOf(spec.End())

		sig := ident.Name
		if spec.Type != nil {
			sig = fmt.Sprintf("%s %s", ident.Name, exprString(spec.Type))
		} else if len(spec.Values) > 0 {
			sig = fmt.Sprintf("%s = ...", ident.Name)
		}

		name := e.em.addEntity(types.Entity{
			Name:       e.em.qualify(ident.Name),
			Type:       types.EntityVariable,
			StartLine:  start,
			EndLine:    end,
			Signature:  sig,
			DocComment: docText(doc),
			Facts:      types.Facts{HasAsync: true},
		})
		e.em.addRelation(e.fileName, name, types.RelationContains)
	}
}

// collectBodyFacts walks a function body recording calls, instantiations,
// panics, recovers, goroutine launches, and branch counts.
func (e *goExtractor) collectBodyFacts(body *ast.BlockStmt, facts *types.Facts) {
	if body == nil {
		return
	}

	// Positions of file-scope identifiers appearing as assignment targets.
	// Short declarations create locals, so only plain assignments count.
	writePos := make(map[token.Pos]bool)
	ast.Inspect(body, func(node ast.Node) bool {
		switch n := node.(type) {
		case *ast.AssignStmt:
			if n.Tok == token.DEFINE {
				return true
			}
			for _, lhs := range n.Lhs {
				if id, ok := lhs.(*ast.Ident); ok && e.fileVars[id.Name] {
					writePos[id.Pos()] = true
				}
			}
		case *ast.IncDecStmt:
			if id, ok := n.X.(*ast.Ident); ok && e.fileVars[id.Name] {
				writePos[id.Pos()] = true
			}
		}
		return true
	})

	ast.Inspect(body, func(node ast.Node) bool {
		switch n := node.(type) {
		case *ast.CallExpr:
			callee := calleeName(n)
			switch callee {
			case "":
			case "panic":
				if len(n.Args) > 0 {
					facts.Raises = append(facts.Raises, exprString(n.Args[0]))
				} else {
					facts.Raises = append(facts.Raises, "panic")
				}
			case "recover":
				facts.Catches = append(facts.Catches, "panic")
			case "new":
				if len(n.Args) > 0 {
					facts.Instantiates = append(facts.Instantiates, exprString(n.Args[0]))
				}
			default:
				facts.Calls = append(facts.Calls, callee)
			}
		case *ast.CompositeLit:
			if t := exprString(n.Type); t != "" && !strings.HasPrefix(t, "[]") && !strings.HasPrefix(t, "map[") {
				facts.Instantiates = append(facts.Instantiates, t)
			}
		case *ast.Ident:
			if e.fileVars[n.Name] {
				if writePos[n.Pos()] {
					facts.Writes = appendUnique(facts.Writes, n.Name)
				} else {
					facts.Reads = appendUnique(facts.Reads, n.Name)
				}
			}
		case *ast.GoStmt:
			facts.IsAsync = true
		case *ast.IfStmt, *ast.ForStmt, *ast.RangeStmt, *ast.SwitchStmt,
			*ast.TypeSwitchStmt, *ast.SelectStmt, *ast.CaseClause:
			facts.BranchCount++
		case *ast.BinaryExpr:
			if n.Op == token.LAND || n.Op == token.LOR {
				facts.BranchCount++
			}
		}
		return true
	})
}

// emitFactRelations emits call/raise/catch/instantiate edges for an entity
func (e *goExtractor) emitFactRelations(name string, facts *types.Facts) {
	for _, callee := range facts.Calls {
		e.em.addRelation(name, callee, types.RelationCalls)
	}
	for _, raised := range facts.Raises {
		e.em.addRelation(name, raised, types.RelationRaises)
	}
	for _, caught := range facts.Catches {
		e.em.addRelation(name, caught, types.RelationCatches)
	}
	for _, inst := range facts.Instantiates {
		e.em.addRelation(name, inst, types.RelationInstantiates)
	}
	for _, read := range facts.Reads {
		e.em.addRelation(name, e.em.qualify(read), types.RelationReads)
	}
	for _, written := range facts.Writes {
		e.em.addRelation(name, e.em.qualify(written), types.RelationWrites)
	}
}

// appendUnique appends s only when the slice does not already contain it
func appendUnique(list []string, s string) []string {
	for _, existing := range list {
		if existing == s {
			return list
		}
	}
	return append(list, s)
}

// receiverTypeName extracts the receiver type name from a method
func receiverTypeName(expr ast.Expr) string {
	switch t := expr.(type) {
	case *ast.StarExpr:
		return receiverTypeName(t.X)
	case *ast.IndexExpr:
		return receiverTypeName(t.X)
	case *ast.Ident:
		return t.Name
	}
	return ""
}

// calleeName resolves the textual name of a call target within file scope
func calleeName(call *ast.CallExpr) string {
	switch fn := call.Fun.(type) {
	case *ast.Ident:
		return fn.Name
	case *ast.SelectorExpr:
		return exprString(fn)
	}
	return ""
}

// functionSignature builds a function signature string
func functionSignature(fn *ast.FuncDecl) string {
	var sig strings.Builder
	sig.WriteString("func ")

	if fn.Recv != nil && len(fn.Recv.List) > 0 {
		sig.WriteString("(")
		sig.WriteString(exprString(fn.Recv.List[0].Type))
		sig.WriteString(") ")
	}

	sig.WriteString(fn.Name.Name)
	sig.WriteString("(")
	if fn.Type.Params != nil {
		sig.WriteString(fieldListString(fn.Type.Params))
	}
	sig.WriteString(")")

	if fn.Type.Results != nil {
		results := fieldListString(fn.Type.Results)
		if results != "" {
			if fn.Type.Results.NumFields() > 1 {
				sig.WriteString(" (" + results + ")")
			} else {
				sig.WriteString(" " + results)
			}
		}
	}

	return sig.String()
}

// fieldListString converts a field list to a string representation
func fieldListString(fields *ast.FieldList) string {
	if fields == nil || len(fields.List) == 0 {
		return ""
	}

	var parts []string
	for _, field := range fields.List {
		typeStr := exprString(field.Type)
		if len(field.Names) > 0 {
			for _, name := range field.Names {
				parts = append(parts, fmt.Sprintf("%s %s", name.Name, typeStr))
			}
		} else {
			parts = append(parts, typeStr)
		}
	}

	return strings.Join(parts, ", ")
}

// exprString converts an expression to a string representation
func exprString(expr ast.Expr) string {
	switch t := expr.(type) {
	case nil:
		return ""
	case *ast.Ident:
		return t.Name
	case *ast.StarExpr:
		return "*" + exprString(t.X)
	case *ast.ArrayType:
		return "[]" + exprString(t.Elt)
	case *ast.MapType:
		return fmt.Sprintf("map[%s]%s", exprString(t.Key), exprString(t.Value))
	case *ast.ChanType:
		return "chan " + exprString(t.Value)
	case *ast.FuncType:
		return "func(...)"
	case *ast.InterfaceType:
		return "interface{}"
	case *ast.SelectorExpr:
		return exprString(t.X) + "." + t.Sel.Name
	case *ast.IndexExpr:
		return exprString(t.X)
	case *ast.Ellipsis:
		return "..." + exprString(t.Elt)
	case *ast.BasicLit:
		return t.Value
	default:
		return "..."
	}
}

// docText extracts documentation from a comment group
func docText(doc *ast.CommentGroup) string {
	if doc == nil {
		return ""
	}
	return strings.TrimSpace(doc.Text())
}
