package parsers

import (
	"context"
	"os"

	sitter "github.com/tree-sitter/go-tree-sitter"
	python "github.com/tree-sitter/tree-sitter-python/bindings/go"
)

// PythonParser finds contract predicates in Python source.
type PythonParser struct {
	language   *sitter.Language
	namespaces map[string]bool
}

// NewPythonParser creates a parser recognising calls rooted at the given
// namespaces (for example "deal" in `@deal.pre(...)`).
func NewPythonParser(namespaces ...string) *PythonParser {
	set := make(map[string]bool, len(namespaces))
	for _, ns := range namespaces {
		set[ns] = true
	}
	return &PythonParser{
		language:   sitter.NewLanguage(python.Language()),
		namespaces: set,
	}
}

// ParseFile reads and scans a Python file.
func (p *PythonParser) ParseFile(ctx context.Context, filePath string) ([]Site, error) {
	source, err := os.ReadFile(filePath)
	if err != nil {
		return nil, err
	}
	return p.FindSites(ctx, filePath, source)
}

// FindSites returns the predicates passed to contract calls in source, in
// source order. Syntax errors do not fail the scan; tree-sitter recovers and
// the well-formed parts are still searched.
func (p *PythonParser) FindSites(ctx context.Context, filePath string, source []byte) ([]Site, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	tree, err := parseTree(p.language, "python", filePath, source)
	if err != nil {
		return nil, err
	}
	defer tree.Close()

	root := tree.RootNode()
	defs := p.moduleDefinitions(root, source)

	var sites []Site
	walkTree(root, func(n *sitter.Node) bool {
		if n.Kind() != "call" {
			return true
		}
		contract, ok := p.contractName(n.ChildByFieldName("function"), source)
		if !ok {
			return true
		}
		for _, arg := range namedChildren(n.ChildByFieldName("arguments")) {
			if arg.Kind() == "keyword_argument" {
				arg = arg.ChildByFieldName("value")
			}
			if site, ok := p.siteFor(arg, source, defs); ok {
				site.File = filePath
				site.CallLine = startLine(arg)
				site.Contract = contract
				sites = append(sites, site)
			}
		}
		return true
	})

	return sites, nil
}

// contractName returns the dotted callee of a contract call such as
// "deal.pre". The chain must start at a recognised namespace and have at
// least one attribute.
func (p *PythonParser) contractName(fn *sitter.Node, source []byte) (string, bool) {
	if fn == nil || fn.Kind() != "attribute" {
		return "", false
	}
	root := fn
	for root.Kind() == "attribute" {
		root = root.ChildByFieldName("object")
		if root == nil {
			return "", false
		}
	}
	if root.Kind() != "identifier" || !p.namespaces[nodeText(root, source)] {
		return "", false
	}
	return nodeText(fn, source), true
}

func (p *PythonParser) siteFor(arg *sitter.Node, source []byte, defs map[string]Site) (Site, bool) {
	if arg == nil {
		return Site{}, false
	}
	switch arg.Kind() {
	case "lambda":
		return Site{
			Line:   startLine(arg),
			Column: int(arg.StartPosition().Column),
			Kind:   KindLambda,
		}, true
	case "identifier":
		site, ok := defs[nodeText(arg, source)]
		return site, ok
	}
	return Site{}, false
}

// moduleDefinitions indexes module-level lambda assignments and function
// definitions by name. Later bindings win.
func (p *PythonParser) moduleDefinitions(root *sitter.Node, source []byte) map[string]Site {
	defs := make(map[string]Site)
	for _, stmt := range namedChildren(root) {
		switch stmt.Kind() {
		case "expression_statement":
			for _, expr := range namedChildren(stmt) {
				if expr.Kind() != "assignment" {
					continue
				}
				left, right := expr.ChildByFieldName("left"), expr.ChildByFieldName("right")
				if left == nil || left.Kind() != "identifier" {
					continue
				}
				name := nodeText(left, source)
				if right == nil || right.Kind() != "lambda" {
					delete(defs, name)
					continue
				}
				defs[name] = Site{
					Line:   startLine(stmt),
					Column: int(stmt.StartPosition().Column),
					Kind:   KindAssigned,
					Name:   name,
				}
			}
		case "function_definition", "decorated_definition":
			fn := stmt
			if stmt.Kind() == "decorated_definition" {
				fn = stmt.ChildByFieldName("definition")
			}
			if fn == nil || fn.Kind() != "function_definition" {
				continue
			}
			name := nodeText(fn.ChildByFieldName("name"), source)
			if name == "" {
				continue
			}
			defs[name] = Site{
				Line:   startLine(fn),
				Column: int(fn.StartPosition().Column),
				Kind:   KindFunction,
				Name:   name,
			}
		}
	}
	return defs
}
