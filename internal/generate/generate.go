// Package generate expands vibecode template files. A template is a Go
// source file whose functions carry a //vibecode:fn directive and an empty
// body, or which calls vibecode.Run / vibecode.RunWith inline. Every site
// is sent to an llm.Responder, the reply is spliced in, and the result is
// written as a regular Go file.
package generate

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"go/ast"
	"go/format"
	"go/parser"
	"go/token"
	"os"
	"path/filepath"
	"sort"
	"strings"

	"github.com/rs/zerolog"
	"golang.org/x/sync/errgroup"
	"golang.org/x/tools/go/ast/astutil"
	"golang.org/x/tools/imports"

	"github.com/jxucoder/vibecode/pkg/llm"
	"github.com/jxucoder/vibecode/pkg/splice"
)

const (
	FuncInstructions = "Implement the given function in Go. You must ONLY return the implementation code without any explanation."
	LitInstructions  = "Write a Go function literal for the given task. You must ONLY return the function literal without any explanation or wrapping code."
)

// ErrNoSites is returned for a file that has nothing to expand.
var ErrNoSites = errors.New("no vibecode sites found")

// Generator expands template files using a Responder.
type Generator struct {
	responder llm.Responder
	jobs      int
	log       zerolog.Logger
}

// Option configures a Generator.
type Option func(*Generator)

// WithJobs bounds how many sites are expanded at once.
func WithJobs(n int) Option {
	return func(g *Generator) {
		if n > 0 {
			g.jobs = n
		}
	}
}

// WithLogger sets the logger used for progress and generated code.
func WithLogger(l zerolog.Logger) Option {
	return func(g *Generator) { g.log = l }
}

// New creates a Generator.
func New(r llm.Responder, opts ...Option) *Generator {
	g := &Generator{
		responder: r,
		jobs:      4,
		log:       zerolog.Nop(),
	}
	for _, opt := range opts {
		opt(g)
	}
	return g
}

// OutputPath returns the default output file for a template:
// foo.go becomes foo_vibecoded.go.
func OutputPath(in string) string {
	return strings.TrimSuffix(in, ".go") + "_vibecoded.go"
}

// File expands the template at in and writes the result to out. An empty
// out selects OutputPath(in). Nothing is written unless every site
// expands cleanly.
func (g *Generator) File(ctx context.Context, in, out string) error {
	if out == "" {
		out = OutputPath(in)
	}
	src, err := os.ReadFile(in)
	if err != nil {
		return fmt.Errorf("reading template: %w", err)
	}
	gen, err := g.Source(ctx, in, src)
	if err != nil {
		return err
	}
	if err := os.WriteFile(out, gen, 0o644); err != nil {
		return fmt.Errorf("writing %s: %w", out, err)
	}
	g.log.Info().Str("template", in).Str("output", out).Msg("wrote generated file")
	return nil
}

// Source expands the template src and returns the formatted output file.
// filename is used for positions in errors and for the generated header.
func (g *Generator) Source(ctx context.Context, filename string, src []byte) ([]byte, error) {
	fset := token.NewFileSet()
	f, err := parser.ParseFile(fset, filename, src, parser.ParseComments|parser.SkipObjectResolution)
	if err != nil {
		return nil, fmt.Errorf("parsing template: %w", err)
	}

	c := &collector{fset: fset, file: fset.File(f.Pos()), src: src}
	for _, decl := range f.Decls {
		if fn, ok := decl.(*ast.FuncDecl); ok {
			if err := c.funcDecl(fn); err != nil {
				return nil, err
			}
		}
	}
	marker := markerName(f)
	if marker != "" {
		var callErr error
		ast.Inspect(f, func(n ast.Node) bool {
			if callErr != nil {
				return false
			}
			if call, ok := n.(*ast.CallExpr); ok {
				_, callErr = c.runCall(call, marker)
			}
			return callErr == nil
		})
		if callErr != nil {
			return nil, callErr
		}
	}
	if len(c.sites) == 0 {
		return nil, fmt.Errorf("%s: %w", filename, ErrNoSites)
	}
	if !c.buildConstraint(f) {
		g.log.Warn().Str("template", filename).
			Msgf("no //go:build line mentions the %s tag; template and output may compile together", BuildTag)
	}
	if err := checkNesting(c.sites); err != nil {
		return nil, err
	}

	g.log.Debug().Str("template", filename).Int("sites", len(c.sites)).Msg("expanding")

	expanded := make([]string, len(c.sites))
	extra := make([][]string, len(c.sites))

	eg, egCtx := errgroup.WithContext(ctx)
	eg.SetLimit(g.jobs)
	for i, s := range c.sites {
		i, s := i, s
		eg.Go(func() error {
			text, imps, err := g.expand(egCtx, s)
			if err != nil {
				return fmt.Errorf("%s: %w", s.pos, err)
			}
			expanded[i], extra[i] = text, imps
			return nil
		})
	}
	if err := eg.Wait(); err != nil {
		return nil, err
	}

	edits := append([]edit(nil), c.edits...)
	for i, s := range c.sites {
		edits = append(edits, edit{start: s.start, end: s.end, text: expanded[i]})
	}
	out, err := applyEdits(src, edits)
	if err != nil {
		return nil, err
	}

	var paths []string
	for _, imps := range extra {
		paths = append(paths, imps...)
	}
	return finish(filename, out, marker, paths)
}

func (g *Generator) expand(ctx context.Context, s *site) (string, []string, error) {
	switch s.kind {
	case funcSite:
		input := "Function signature:\n" + s.signature
		if s.hasPrompt {
			input += "\n\nAdditional information:\n" + s.prompt
		}
		text, err := g.responder.Respond(ctx, s.complexity, FuncInstructions, input)
		if err != nil {
			return "", nil, fmt.Errorf("vibecoding function %s: %w", s.name, err)
		}
		g.log.Debug().Msgf("--- vibecoded function %s ---\n%s", s.name, text)

		snip, err := splice.FuncDecl(text)
		if err != nil {
			return "", nil, fmt.Errorf("vibecoding function %s: %w", s.name, err)
		}
		reply := snip.Node.(*ast.FuncDecl)
		if err := matchSignature(s.decl, reply); err != nil {
			return "", nil, fmt.Errorf("vibecoding function %s: %w", s.name, &splice.ParseError{Want: "function", Err: err})
		}
		if reply.Name.Name != s.name {
			g.log.Warn().Str("site", s.pos.String()).Str("want", s.name).Str("got", reply.Name.Name).
				Msg("model renamed the function; keeping the declared name")
		}
		return snip.Body(), snip.Imports, nil

	case runSite:
		input := s.prompt
		if s.args != "" {
			input += "\n\nThe function literal is called immediately with these arguments: " + s.args
		}
		if s.result != "" {
			input += "\n\nIt must return a value of type " + s.result + "."
		}
		text, err := g.responder.Respond(ctx, s.complexity, LitInstructions, input)
		if err != nil {
			return "", nil, fmt.Errorf("vibecoding closure: %w", err)
		}
		g.log.Debug().Msgf("--- vibecoded closure ---\n%s", text)

		snip, err := splice.FuncLit(text)
		if err != nil {
			return "", nil, fmt.Errorf("vibecoding closure: %w", err)
		}
		return "(" + snip.Source + ")(" + s.args + ")", nil, nil
	}
	return "", nil, fmt.Errorf("unknown site kind %d", s.kind)
}

// checkNesting rejects sites that contain other sites, before any model
// call is made.
func checkNesting(sites []*site) error {
	sorted := append([]*site(nil), sites...)
	sort.Slice(sorted, func(i, j int) bool { return sorted[i].start < sorted[j].start })
	for i := 1; i < len(sorted); i++ {
		if sorted[i].start < sorted[i-1].end {
			return fmt.Errorf("%s: nested vibecode sites are not supported", sorted[i].pos)
		}
	}
	return nil
}

// applyEdits rewrites src. Edits must not overlap.
func applyEdits(src []byte, edits []edit) ([]byte, error) {
	sort.Slice(edits, func(i, j int) bool { return edits[i].start < edits[j].start })

	var buf bytes.Buffer
	last := 0
	for _, e := range edits {
		if e.start < last {
			return nil, fmt.Errorf("overlapping expansions at offset %d: nested vibecode sites are not supported", e.start)
		}
		buf.Write(src[last:e.start])
		buf.WriteString(e.text)
		last = e.end
	}
	buf.Write(src[last:])
	return buf.Bytes(), nil
}

// finish removes the marker import, adds imports the model declared, and
// runs goimports over the result.
func finish(filename string, src []byte, marker string, paths []string) ([]byte, error) {
	fset := token.NewFileSet()
	f, err := parser.ParseFile(fset, filename, src, parser.ParseComments)
	if err != nil {
		return nil, fmt.Errorf("parsing expanded source: %w", err)
	}
	switch marker {
	case "":
	case "vibecode":
		astutil.DeleteImport(fset, f, MarkerImportPath)
	default:
		astutil.DeleteNamedImport(fset, f, marker, MarkerImportPath)
	}
	for _, path := range paths {
		astutil.AddImport(fset, f, path)
	}

	var buf bytes.Buffer
	fmt.Fprintf(&buf, "// Code generated by vibecode from %s. DO NOT EDIT.\n\n", filepath.Base(filename))
	if err := format.Node(&buf, fset, f); err != nil {
		return nil, fmt.Errorf("formatting expanded source: %w", err)
	}

	out, err := imports.Process(OutputPath(filename), buf.Bytes(), &imports.Options{
		Comments:  true,
		TabIndent: true,
		TabWidth:  8,
	})
	if err != nil {
		return nil, fmt.Errorf("fixing imports: %w", err)
	}
	return out, nil
}
