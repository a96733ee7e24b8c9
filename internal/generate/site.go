package generate

import (
	"fmt"
	"go/ast"
	"go/build/constraint"
	"go/token"
	"strconv"
	"strings"

	"github.com/jxucoder/vibecode/pkg/llm"
)

const (
	// MarkerImportPath is the package whose Run and RunWith calls are expanded.
	MarkerImportPath = "github.com/jxucoder/vibecode"

	// BuildTag guards template files.
	BuildTag = "vibecode"

	directivePrefix = "//vibecode:fn"
)

type siteKind int

const (
	funcSite siteKind = iota
	runSite
)

// site is one place in a template file that needs generated code.
type site struct {
	kind       siteKind
	pos        token.Position
	name       string // function name, or the call text for run sites
	complexity llm.Complexity
	prompt     string
	hasPrompt  bool

	// signature is the declaration text up to the body, for funcSite.
	signature string
	// decl is the template declaration the reply must match, for funcSite.
	decl *ast.FuncDecl
	// args is the argument list text passed to the literal, for runSite.
	args string
	// result is the type argument of a generic run call, if any.
	result string

	// start and end bound the bytes replaced by the expansion.
	start, end int
}

// directive holds the arguments of a //vibecode:fn line.
type directive struct {
	complexity llm.Complexity
	prompt     string
	hasPrompt  bool
}

// parseDirective reads `complexity=<tier>` and `prompt="..."` pairs from
// the text following the directive prefix.
func parseDirective(text string) (directive, error) {
	var d directive
	rest := strings.TrimSpace(text)
	for rest != "" {
		eq := strings.IndexByte(rest, '=')
		if eq <= 0 {
			return d, fmt.Errorf("malformed directive argument %q", rest)
		}
		key := strings.TrimSpace(rest[:eq])
		rest = strings.TrimLeft(rest[eq+1:], " \t")

		var value string
		if strings.HasPrefix(rest, `"`) || strings.HasPrefix(rest, "`") {
			quoted, err := strconv.QuotedPrefix(rest)
			if err != nil {
				return d, fmt.Errorf("directive argument %s: %w", key, err)
			}
			value, _ = strconv.Unquote(quoted)
			rest = rest[len(quoted):]
		} else {
			end := strings.IndexAny(rest, " \t")
			if end < 0 {
				end = len(rest)
			}
			value, rest = rest[:end], rest[end:]
		}
		rest = strings.TrimSpace(rest)

		switch key {
		case "complexity":
			c, err := llm.ParseComplexity(value)
			if err != nil {
				return d, err
			}
			d.complexity = c
		case "prompt":
			d.prompt = value
			d.hasPrompt = true
		default:
			return d, fmt.Errorf("unknown directive argument %q", key)
		}
	}
	return d, nil
}

// findDirective returns the directive comment in a doc group, if any.
func findDirective(doc *ast.CommentGroup) *ast.Comment {
	if doc == nil {
		return nil
	}
	for _, c := range doc.List {
		if c.Text == directivePrefix || strings.HasPrefix(c.Text, directivePrefix+" ") {
			return c
		}
	}
	return nil
}

// markerName returns the local name of the marker import, or "" when the
// file does not import it.
func markerName(f *ast.File) string {
	for _, imp := range f.Imports {
		path, err := strconv.Unquote(imp.Path.Value)
		if err != nil || path != MarkerImportPath {
			continue
		}
		if imp.Name != nil {
			return imp.Name.Name
		}
		return "vibecode"
	}
	return ""
}

// edit replaces src[start:end] with text.
type edit struct {
	start, end int
	text       string
}

// collector gathers the sites of one file and the edits that do not need
// a model call.
type collector struct {
	fset  *token.FileSet
	file  *token.File
	src   []byte
	sites []*site
	edits []edit
}

func (s *collector) offset(p token.Pos) int { return s.file.Offset(p) }

func (s *collector) text(from, to token.Pos) string {
	return string(s.src[s.offset(from):s.offset(to)])
}

// dropComment removes a whole comment line, including its newline.
func (s *collector) dropComment(c *ast.Comment) {
	start, end := s.offset(c.Pos()), s.offset(c.End())
	if end < len(s.src) && s.src[end] == '\n' {
		end++
	}
	s.edits = append(s.edits, edit{start: start, end: end})
}

// buildConstraint negates the vibecode tag in the file's //go:build line
// so the template and its output never compile together, and drops
// go:generate lines that invoke vibecode. It reports whether the build
// line mentioned the tag.
func (s *collector) buildConstraint(f *ast.File) bool {
	found := false
	for _, group := range f.Comments {
		for _, c := range group.List {
			switch {
			case strings.HasPrefix(c.Text, "//go:generate") && strings.Contains(c.Text, "vibecode"):
				s.dropComment(c)
			case c.Pos() < f.Package && constraint.IsGoBuild(c.Text):
				expr, err := constraint.Parse(c.Text)
				if err != nil {
					continue
				}
				flipped, ok := negateTag(expr, BuildTag)
				if !ok {
					continue
				}
				found = true
				s.edits = append(s.edits, edit{
					start: s.offset(c.Pos()),
					end:   s.offset(c.End()),
					text:  "//go:build " + flipped.String(),
				})
			}
		}
	}
	return found
}

// negateTag returns expr with every occurrence of tag negated, so
// `vibecode && linux` becomes `!vibecode && linux`. It reports whether
// tag occurred at all.
func negateTag(expr constraint.Expr, tag string) (constraint.Expr, bool) {
	switch e := expr.(type) {
	case *constraint.TagExpr:
		if e.Tag == tag {
			return &constraint.NotExpr{X: e}, true
		}
	case *constraint.NotExpr:
		if t, ok := e.X.(*constraint.TagExpr); ok && t.Tag == tag {
			return t, true
		}
		x, ok := negateTag(e.X, tag)
		return &constraint.NotExpr{X: x}, ok
	case *constraint.AndExpr:
		x, okX := negateTag(e.X, tag)
		y, okY := negateTag(e.Y, tag)
		return &constraint.AndExpr{X: x, Y: y}, okX || okY
	case *constraint.OrExpr:
		x, okX := negateTag(e.X, tag)
		y, okY := negateTag(e.Y, tag)
		return &constraint.OrExpr{X: x, Y: y}, okX || okY
	}
	return expr, false
}

func (s *collector) funcDecl(fn *ast.FuncDecl) error {
	c := findDirective(fn.Doc)
	if c == nil {
		return nil
	}
	pos := s.fset.Position(fn.Pos())
	d, err := parseDirective(strings.TrimPrefix(c.Text, directivePrefix))
	if err != nil {
		return fmt.Errorf("%s: %w", pos, err)
	}
	if fn.Body == nil {
		return fmt.Errorf("%s: function %s has no body", pos, fn.Name.Name)
	}
	if len(fn.Body.List) > 0 {
		return fmt.Errorf("%s: the body of %s must be empty", pos, fn.Name.Name)
	}

	s.dropComment(c)
	s.sites = append(s.sites, &site{
		kind:       funcSite,
		pos:        pos,
		name:       fn.Name.Name,
		complexity: d.complexity,
		prompt:     d.prompt,
		hasPrompt:  d.hasPrompt,
		signature:  strings.TrimSpace(s.text(fn.Pos(), fn.Body.Lbrace)),
		decl:       fn,
		start:      s.offset(fn.Body.Lbrace),
		end:        s.offset(fn.Body.Rbrace) + 1,
	})
	return nil
}

// runCall records a marker Run or RunWith call. It reports false when
// call is not a marker call.
func (s *collector) runCall(call *ast.CallExpr, marker string) (bool, error) {
	fun, result := call.Fun, ""
	switch ix := fun.(type) {
	case *ast.IndexExpr:
		fun, result = ix.X, s.text(ix.Index.Pos(), ix.Index.End())
	case *ast.IndexListExpr:
		fun = ix.X
	}
	sel, ok := fun.(*ast.SelectorExpr)
	if !ok {
		return false, nil
	}
	pkg, ok := sel.X.(*ast.Ident)
	if !ok || pkg.Name != marker {
		return false, nil
	}
	name := marker + "." + sel.Sel.Name
	pos := s.fset.Position(call.Pos())

	args := call.Args
	complexity := llm.Low
	switch sel.Sel.Name {
	case "Run":
	case "RunWith":
		if len(args) == 0 {
			return true, fmt.Errorf("%s: %s requires a complexity and a prompt string", pos, name)
		}
		c, err := complexityArg(args[0], marker)
		if err != nil {
			return true, fmt.Errorf("%s: %s: %w", pos, name, err)
		}
		complexity = c
		args = args[1:]
	default:
		return false, nil
	}

	if len(args) == 0 {
		return true, fmt.Errorf("%s: %s requires at least a prompt string", pos, name)
	}
	lit, ok := args[0].(*ast.BasicLit)
	if !ok || lit.Kind != token.STRING {
		return true, fmt.Errorf("%s: %s prompt must be a string literal", pos, name)
	}
	prompt, err := strconv.Unquote(lit.Value)
	if err != nil {
		return true, fmt.Errorf("%s: %s: %w", pos, name, err)
	}
	if call.Ellipsis.IsValid() {
		return true, fmt.Errorf("%s: %s does not accept a variadic spread", pos, name)
	}

	var argText string
	if rest := args[1:]; len(rest) > 0 {
		argText = s.text(rest[0].Pos(), rest[len(rest)-1].End())
	}

	s.sites = append(s.sites, &site{
		kind:       runSite,
		pos:        pos,
		name:       name,
		complexity: complexity,
		prompt:     prompt,
		hasPrompt:  true,
		args:       argText,
		result:     result,
		start:      s.offset(call.Pos()),
		end:        s.offset(call.End()),
	})
	return true, nil
}

// complexityArg accepts marker.Low, marker.Medium or marker.High, or a
// string literal naming the tier.
func complexityArg(e ast.Expr, marker string) (llm.Complexity, error) {
	switch v := e.(type) {
	case *ast.SelectorExpr:
		if pkg, ok := v.X.(*ast.Ident); ok && pkg.Name == marker {
			return llm.ParseComplexity(v.Sel.Name)
		}
	case *ast.BasicLit:
		if v.Kind == token.STRING {
			s, err := strconv.Unquote(v.Value)
			if err != nil {
				return llm.Low, err
			}
			return llm.ParseComplexity(s)
		}
	}
	return llm.Low, fmt.Errorf("complexity must be %s.Low, %s.Medium or %s.High", marker, marker, marker)
}
