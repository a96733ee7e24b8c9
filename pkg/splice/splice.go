// Package splice turns model output into Go syntax that can be embedded at
// a call site. Text is first tokenized, then parsed into the expected
// construct; each step fails with its own error type so callers can tell
// a lexing problem from a parse problem. Nothing is executed or
// type-checked.
package splice

import (
	"errors"
	"fmt"
	"go/ast"
	"go/parser"
	"go/scanner"
	"go/token"
	"strconv"
)

// filename used in positions reported for generated text.
const filename = "generated.go"

// LexError reports text that is not a valid Go token stream.
type LexError struct {
	Errs scanner.ErrorList
}

func (e *LexError) Error() string {
	return "lexing generated code: " + e.Errs.Error()
}

// ParseError reports tokens that do not form the expected construct.
type ParseError struct {
	Want string
	Err  error
}

func (e *ParseError) Error() string {
	return fmt.Sprintf("parsing generated %s: %v", e.Want, e.Err)
}

func (e *ParseError) Unwrap() error { return e.Err }

// Snippet is a parsed construct plus the exact source text to embed.
type Snippet struct {
	// Source is the construct's text, cut from the generated input.
	Source string
	// Node is *ast.FuncDecl for FuncDecl and *ast.FuncLit for FuncLit.
	Node ast.Node
	// Imports lists import paths declared alongside a function declaration.
	Imports []string
	// Fset resolves positions in Node.
	Fset *token.FileSet
}

// Body returns the source of the function body, braces included. It is
// empty for snippets whose node has no body.
func (s *Snippet) Body() string {
	var body *ast.BlockStmt
	switch n := s.Node.(type) {
	case *ast.FuncDecl:
		body = n.Body
	case *ast.FuncLit:
		body = n.Body
	}
	if body == nil {
		return ""
	}
	start := s.Fset.Position(body.Lbrace).Offset
	end := s.Fset.Position(body.Rbrace).Offset + 1
	base := s.Fset.Position(s.Node.Pos()).Offset
	return s.Source[start-base : end-base]
}

// Lex checks that src is a well-formed Go token stream.
func Lex(src string) error {
	fset := token.NewFileSet()
	file := fset.AddFile(filename, -1, len(src))

	var errs scanner.ErrorList
	var s scanner.Scanner
	s.Init(file, []byte(src), func(pos token.Position, msg string) {
		errs.Add(pos, msg)
	}, scanner.ScanComments)
	for {
		_, tok, _ := s.Scan()
		if tok == token.EOF {
			break
		}
	}
	if len(errs) > 0 {
		errs.Sort()
		return &LexError{Errs: errs}
	}
	return nil
}

// FuncDecl parses src as a complete top-level function declaration. A
// leading package clause and import declarations are accepted; any other
// declaration is rejected.
func FuncDecl(src string) (*Snippet, error) {
	if err := Lex(src); err != nil {
		return nil, err
	}

	full := src
	if !hasPackageClause(src) {
		full = "package generated\n\n" + src
	}

	fset := token.NewFileSet()
	f, err := parser.ParseFile(fset, filename, full, parser.ParseComments|parser.SkipObjectResolution)
	if err != nil {
		return nil, &ParseError{Want: "function", Err: err}
	}

	var fn *ast.FuncDecl
	var imports []string
	for _, decl := range f.Decls {
		switch d := decl.(type) {
		case *ast.FuncDecl:
			if fn != nil {
				return nil, &ParseError{Want: "function", Err: fmt.Errorf("found more than one function declaration")}
			}
			fn = d
		case *ast.GenDecl:
			if d.Tok != token.IMPORT {
				return nil, &ParseError{Want: "function", Err: fmt.Errorf("unexpected %s declaration", d.Tok)}
			}
		}
	}
	for _, imp := range f.Imports {
		path, err := strconv.Unquote(imp.Path.Value)
		if err != nil {
			return nil, &ParseError{Want: "function", Err: err}
		}
		imports = append(imports, path)
	}
	if fn == nil {
		return nil, &ParseError{Want: "function", Err: fmt.Errorf("no function declaration found")}
	}
	if fn.Body == nil {
		return nil, &ParseError{Want: "function", Err: fmt.Errorf("function %s has no body", fn.Name.Name)}
	}

	start := fset.Position(fn.Pos()).Offset
	end := fset.Position(fn.End()).Offset
	return &Snippet{
		Source:  full[start:end],
		Node:    fn,
		Imports: imports,
		Fset:    fset,
	}, nil
}

// FuncLit parses src as an expression that must be a function literal.
// Redundant parentheses around the literal are removed.
func FuncLit(src string) (*Snippet, error) {
	if err := Lex(src); err != nil {
		return nil, err
	}

	fset := token.NewFileSet()
	expr, err := parser.ParseExprFrom(fset, filename, src, parser.SkipObjectResolution)
	if err != nil {
		return nil, &ParseError{Want: "function literal", Err: err}
	}
	for {
		paren, ok := expr.(*ast.ParenExpr)
		if !ok {
			break
		}
		expr = paren.X
	}
	lit, ok := expr.(*ast.FuncLit)
	if !ok {
		return nil, &ParseError{Want: "function literal", Err: fmt.Errorf("got %T instead", expr)}
	}

	start := fset.Position(lit.Pos()).Offset
	end := fset.Position(lit.End()).Offset
	return &Snippet{
		Source: src[start:end],
		Node:   lit,
		Fset:   fset,
	}, nil
}

// hasPackageClause reports whether the first token of src is "package".
func hasPackageClause(src string) bool {
	fset := token.NewFileSet()
	file := fset.AddFile(filename, -1, len(src))
	var s scanner.Scanner
	s.Init(file, []byte(src), nil, 0)
	for {
		_, tok, _ := s.Scan()
		switch tok {
		case token.SEMICOLON:
			continue
		case token.PACKAGE:
			return true
		default:
			return false
		}
	}
}

// IsLexError reports whether err is, or wraps, a *LexError.
func IsLexError(err error) bool {
	var lexErr *LexError
	return errors.As(err, &lexErr)
}

// IsParseError reports whether err is, or wraps, a *ParseError.
func IsParseError(err error) bool {
	var parseErr *ParseError
	return errors.As(err, &parseErr)
}
